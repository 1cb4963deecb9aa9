package commands

import (
	"testing"

	"github.com/rina-go/rinad/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecretShort(t *testing.T) {
	assert.Equal(t, "********", maskSecret("short"))
}

func TestMaskSecretShape(t *testing.T) {
	masked := maskSecret("0123456789abcdef0123456789abcdef")
	assert.Equal(t, "0123...cdef", masked)
}

func TestDIFSummaryTable(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.ControlAPI.JWTSecret = "0123456789abcdef0123456789abcdef"
	table := difSummaryTable(cfg)

	require.Equal(t, []string{"SETTING", "VALUE"}, table.Headers())

	found := map[string]string{}
	for _, row := range table.Rows() {
		require.Len(t, row, 2)
		found[row[0]] = row[1]
	}
	assert.Equal(t, "0123...cdef", found["jwt_secret"])
	assert.Equal(t, cfg.ControlAPI.GRPCAddress, found["grpc_address"])
}
