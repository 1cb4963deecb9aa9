package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripsFlowCreateRequest(t *testing.T) {
	c := codec{}
	req := &FlowCreateRequest{
		Header:        Header{EventID: "evt-1", SrcIPCPID: 1, DestIPCPID: 1},
		IPCPID:        1,
		MsgBoundaries: true,
		QueueDepth:    16,
	}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	var got FlowCreateRequest
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, *req, got)
}

func TestCodec_RoundTripsPFFDumpResponse(t *testing.T) {
	c := codec{}
	resp := &PFFDumpResponse{
		Header: Header{EventID: "evt-2"},
		Result: Result{OK: true},
		Entries: []PFFEntry{
			{DestAddr: 42, NextHopPort: 7},
			{DestAddr: 43, NextHopPort: 8},
		},
	}

	data, err := c.Marshal(resp)
	require.NoError(t, err)

	var got PFFDumpResponse
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, *resp, got)
}

func TestCodecName_RegisteredAsXDR(t *testing.T) {
	assert.Equal(t, "xdr", codec{}.Name())
}
