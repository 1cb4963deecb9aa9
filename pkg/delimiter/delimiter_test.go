package delimiter

import (
	"testing"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadOf(t *testing.T, d *du.DU) []byte {
	t.Helper()
	return append([]byte(nil), d.Data()...)
}

func TestNew_RejectsTooSmallFragmentSize(t *testing.T) {
	_, err := New(1)
	assert.ErrorIs(t, err, ErrFragmentSizeTooSmall)
}

func TestFragment_SingleFragmentWhenUnderLimit(t *testing.T) {
	delim, err := New(400)
	require.NoError(t, err)

	in := du.Create(100)
	for i := range in.Data() {
		in.Data()[i] = byte(i)
	}
	orig := payloadOf(t, in)

	frags, err := delim.Fragment(in)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, 101, frags[0].Len())

	rx, err := delim.ProcessUDF(frags[0])
	require.NoError(t, err)
	require.Len(t, rx, 1)
	assert.Equal(t, orig, payloadOf(t, rx[0]))
}

func TestFragment_ThreeFragmentsForS2Scenario(t *testing.T) {
	// spec S2: max_fragment_size=400, 1000-byte write -> {400,400,200}
	// payload lengths once the 1-byte delimiter overhead is stripped.
	delim, err := New(400)
	require.NoError(t, err)

	in := du.Create(1000)
	payload := in.Data()
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	orig := payloadOf(t, in)

	frags, err := delim.Fragment(in)
	require.NoError(t, err)
	require.Len(t, frags, 3)
	assert.Equal(t, 401, frags[0].Len())
	assert.Equal(t, 401, frags[1].Len())
	assert.Equal(t, 201, frags[2].Len())

	var reassembled []*du.DU
	for _, f := range frags {
		rx, err := delim.ProcessUDF(f)
		require.NoError(t, err)
		reassembled = append(reassembled, rx...)
	}
	require.Len(t, reassembled, 1)
	assert.Equal(t, orig, payloadOf(t, reassembled[0]))
}

func TestProcessUDF_PendingUntilTerminalFragment(t *testing.T) {
	delim, err := New(10)
	require.NoError(t, err)

	in := du.Create(25)
	frags, err := delim.Fragment(in)
	require.NoError(t, err)
	require.Len(t, frags, 3)

	rx, err := delim.ProcessUDF(frags[0])
	require.NoError(t, err)
	assert.Empty(t, rx)
	assert.True(t, delim.Pending())

	rx, err = delim.ProcessUDF(frags[1])
	require.NoError(t, err)
	assert.Empty(t, rx)

	rx, err = delim.ProcessUDF(frags[2])
	require.NoError(t, err)
	assert.Len(t, rx, 1)
	assert.False(t, delim.Pending())
}

func TestReset_DiscardsPartialReassembly(t *testing.T) {
	delim, err := New(10)
	require.NoError(t, err)

	in := du.Create(25)
	frags, err := delim.Fragment(in)
	require.NoError(t, err)

	_, err = delim.ProcessUDF(frags[0])
	require.NoError(t, err)
	require.True(t, delim.Pending())

	delim.Reset()
	assert.False(t, delim.Pending())
}

func TestProcessUDF_RejectsFragmentWithNoOverheadByte(t *testing.T) {
	delim, err := New(10)
	require.NoError(t, err)

	empty := du.Create(0)
	_, err = delim.ProcessUDF(empty)
	assert.ErrorIs(t, err, ErrEmptyFragment)
}
