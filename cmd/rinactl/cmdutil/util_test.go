package cmdutil

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rina-go/rinad/internal/cli/output"
	"github.com/rina-go/rinad/internal/cli/prompt"
	"github.com/rina-go/rinad/internal/cli/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTableRenderer struct {
	headers []string
	rows    [][]string
}

func (t testTableRenderer) Headers() []string { return t.headers }
func (t testTableRenderer) Rows() [][]string  { return t.rows }

func resetFlags(t *testing.T) {
	t.Helper()
	orig := *Flags
	t.Cleanup(func() { *Flags = orig })
	*Flags = GlobalFlags{}
}

func TestGetAuthenticatedClientFromFlags(t *testing.T) {
	resetFlags(t)
	Flags.ServerURL = "http://localhost:7378"
	Flags.Token = "flag-token"

	c, err := GetAuthenticatedClient()
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestGetAuthenticatedClientNoSession(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := GetAuthenticatedClient()
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestGetAuthenticatedClientExpiredSession(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store, err := session.NewStore()
	require.NoError(t, err)
	require.NoError(t, store.Set(&session.Session{
		ServerURL: "http://localhost:7378",
		Token:     "tok",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err = GetAuthenticatedClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestGetOutputFormatParsed(t *testing.T) {
	resetFlags(t)
	Flags.Output = "json"
	f, err := GetOutputFormatParsed()
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, f)
}

func TestGetOutputFormatParsedInvalid(t *testing.T) {
	resetFlags(t)
	Flags.Output = "xml"
	_, err := GetOutputFormatParsed()
	require.Error(t, err)
}

func TestPrintResourceTable(t *testing.T) {
	resetFlags(t)
	Flags.Output = "table"

	var buf bytes.Buffer
	renderer := testTableRenderer{headers: []string{"A"}, rows: [][]string{{"1"}}}
	require.NoError(t, PrintResource(&buf, struct{ A int }{A: 1}, renderer))
	assert.Contains(t, buf.String(), "A")
}

func TestPrintResourceJSON(t *testing.T) {
	resetFlags(t)
	Flags.Output = "json"

	var buf bytes.Buffer
	require.NoError(t, PrintResource(&buf, struct {
		A int `json:"a"`
	}{A: 1}, testTableRenderer{}))
	assert.Contains(t, buf.String(), `"a": 1`)
}

func TestHandleAbort(t *testing.T) {
	assert.NoError(t, HandleAbort(prompt.ErrAborted))
	other := errors.New("boom")
	assert.Equal(t, other, HandleAbort(other))
}
