package controlapi

import (
	"testing"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/efcp"
	"github.com/rina-go/rinad/pkg/ipcp"
	"github.com/rina-go/rinad/pkg/kipcm"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKIPCM(t *testing.T) *kipcm.KIPCM {
	t.Helper()
	k := kipcm.New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.RegisterFactory("normal", func(name string) (ipcp.Instance, error) {
		dt := &dtconst.DataTransferConstants{}
		dtconst.ApplyDefaults(dt)
		table := pci.NewOffsetTable(*dt)
		container := efcp.NewContainer(dt, table, func(*du.DU) error { return nil })
		return ipcp.NewNormal(name, k.KFA(), container), nil
	}))
	return k
}

func TestOps_IPCCreateDestroyAndHealth(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)

	assert.Equal(t, 0, ops.Health())

	res := ops.IPCCreate(1, "shim.1", "shim-loopback")
	assert.True(t, res.OK)
	assert.Equal(t, 1, ops.Health())

	res = ops.IPCDestroy(1)
	assert.True(t, res.OK)
	assert.Equal(t, 0, ops.Health())
}

func TestOps_IPCCreateUnknownFactoryReturnsError(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)

	res := ops.IPCCreate(1, "x", "nope")
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Message)
}

func TestOps_FlowCreateDestroyAndList(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)
	require.True(t, ops.IPCCreate(1, "shim.1", "shim-loopback").OK)

	portID, res := ops.FlowCreate(1, false, 4)
	require.True(t, res.OK)
	require.NotZero(t, portID)

	flows := ops.FlowList()
	require.Len(t, flows, 1)
	assert.Equal(t, portID, flows[0].PortID)

	assert.True(t, ops.FlowDestroy(portID).OK)
}

func TestOps_AssignToDIF(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)
	require.True(t, ops.IPCCreate(1, "normal.1", "normal").OK)

	dt := dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(&dt)
	res := ops.AssignToDIF(1, ipcp.DIFConfig{Name: "test.DIF", DT: dt})
	assert.True(t, res.OK)
}

func TestOps_ConnDumpAndPFFDump_NormalOnly(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)
	require.True(t, ops.IPCCreate(1, "normal.1", "normal").OK)

	dt := dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(&dt)
	require.True(t, ops.AssignToDIF(1, ipcp.DIFConfig{Name: "test.DIF", DT: dt}).OK)

	portID, res := ops.FlowCreate(1, false, 4)
	require.True(t, res.OK)

	inst, err := k.Instance(1)
	require.NoError(t, err)
	cm := inst.(ipcp.ConnectionManager)
	cepID, err := cm.CreateConnection(portID, 42)
	require.NoError(t, err)
	_ = cepID

	conns, res := ops.ConnDump(1)
	require.True(t, res.OK)
	require.Len(t, conns, 1)
	assert.Equal(t, portID, conns[0].PortID)

	cm.PFFAdd(99, 7)
	pff, res := ops.PFFDump(1)
	require.True(t, res.OK)
	assert.Equal(t, uint32(7), pff[99])
}

func TestOps_ConnDumpOnShimReturnsError(t *testing.T) {
	k := newTestKIPCM(t)
	ops := NewOps(k)
	require.True(t, ops.IPCCreate(1, "shim.1", "shim-loopback").OK)

	_, res := ops.ConnDump(1)
	assert.False(t, res.OK)
}
