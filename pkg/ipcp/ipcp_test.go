package ipcp

import (
	"context"
	"testing"
	"time"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/efcp"
	"github.com/rina-go/rinad/pkg/kfa"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShim_FlowAllocateRequestThenLoopback(t *testing.T) {
	k := kfa.New(2)
	shim := NewShim("shim-loopback.1", k)

	portA, err := k.ReservePortID()
	require.NoError(t, err)
	portB, err := k.ReservePortID()
	require.NoError(t, err)
	require.NoError(t, k.CreateFlow(portA, shim, false, 4))
	require.NoError(t, k.CreateFlow(portB, shim, false, 4))

	require.NoError(t, shim.FlowAllocateRequest(portA, portB))
	require.NoError(t, shim.FlowAllocateResponse(portB, true))

	payload := du.Create(5)
	copy(payload.Data(), "hello")
	require.NoError(t, k.Write(context.Background(), portA, payload, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := k.Read(ctx, portB)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", string(got.Data()))
}

func TestShim_WriteOnUnboundPortFails(t *testing.T) {
	k := kfa.New(2)
	shim := NewShim("shim-loopback.1", k)
	assert.ErrorIs(t, shim.DUWrite(context.Background(), 1, du.Create(1), true), ErrNotBound)
}

func TestShim_DeallocateUnpairsBothSides(t *testing.T) {
	k := kfa.New(2)
	shim := NewShim("shim-loopback.1", k)
	require.NoError(t, shim.FlowAllocateRequest(1, 2))
	require.NoError(t, shim.FlowDeallocate(1))
	assert.ErrorIs(t, shim.DUWrite(context.Background(), 1, du.Create(1), true), ErrNotBound)
}

func testNormal(t *testing.T) (*NormalIPCP, *kfa.KFA) {
	t.Helper()
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)

	k := kfa.New(2)
	container := efcp.NewContainer(dt, table, func(*du.DU) error { return nil })
	n := NewNormal("normal.1", k, container)
	require.NoError(t, n.AssignToDIF(DIFConfig{Name: "test.DIF", DT: *dt}))
	return n, k
}

func TestNormal_CreateConnectionBindsPortAndWrite(t *testing.T) {
	n, k := testNormal(t)
	portID, err := k.ReservePortID()
	require.NoError(t, err)
	require.NoError(t, k.CreateFlow(portID, n, false, 4))

	cepID, err := n.CreateConnection(portID, 42)
	require.NoError(t, err)
	assert.NotZero(t, cepID)

	payload := du.Create(10)
	require.NoError(t, k.Write(context.Background(), portID, payload, true))
}

func TestNormal_DUWriteOnUnboundPortFails(t *testing.T) {
	n, _ := testNormal(t)
	assert.ErrorIs(t, n.DUWrite(context.Background(), 99, du.Create(1), true), ErrNotBound)
}

func TestNormal_PFFAddRemoveDump(t *testing.T) {
	n, _ := testNormal(t)
	n.PFFAdd(42, 7)
	hop, err := n.NextHop(42)
	require.NoError(t, err)
	assert.EqualValues(t, 7, hop)

	assert.Len(t, n.PFFDump(), 1)

	n.PFFRemove(42)
	_, err = n.NextHop(42)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestNormal_DestroyConnectionClearsBinding(t *testing.T) {
	n, k := testNormal(t)
	portID, err := k.ReservePortID()
	require.NoError(t, err)
	require.NoError(t, k.CreateFlow(portID, n, false, 4))

	cepID, err := n.CreateConnection(portID, 42)
	require.NoError(t, err)

	require.NoError(t, n.DestroyConnection(cepID))
	assert.ErrorIs(t, n.DUWrite(context.Background(), portID, du.Create(1), true), ErrNotBound)
}

func TestNormal_ConnectionsListsActiveBindings(t *testing.T) {
	n, k := testNormal(t)
	portID, err := k.ReservePortID()
	require.NoError(t, err)
	require.NoError(t, k.CreateFlow(portID, n, false, 4))

	cepID, err := n.CreateConnection(portID, 42)
	require.NoError(t, err)

	conns := n.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, portID, conns[0].PortID)
	assert.Equal(t, cepID, conns[0].CEPID)

	require.NoError(t, n.DestroyConnection(cepID))
	assert.Empty(t, n.Connections())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "shim", KindShim.String())
	assert.Equal(t, "normal", KindNormal.String())
}
