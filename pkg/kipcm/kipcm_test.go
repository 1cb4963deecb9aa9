package kipcm

import (
	"context"
	"testing"
	"time"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/ipcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestDU(t *testing.T, payload string) *du.DU {
	t.Helper()
	d := du.Create(len(payload))
	copy(d.Data(), payload)
	return d
}

func TestRegisterFactory_RejectsDuplicate(t *testing.T) {
	k := New(2)
	f := func(name string) (ipcp.Instance, error) { return ipcp.NewShim(name, k.KFA()), nil }
	require.NoError(t, k.RegisterFactory("shim-loopback", f))
	assert.ErrorIs(t, k.RegisterFactory("shim-loopback", f), ErrFactoryExists)
}

func TestIPCCreate_UnknownFactory(t *testing.T) {
	k := New(2)
	assert.ErrorIs(t, k.IPCCreate(1, "shim.1", "nope"), ErrFactoryNotFound)
}

func TestIPCCreate_RejectsDuplicateIPCID(t *testing.T) {
	k := New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))
	assert.ErrorIs(t, k.IPCCreate(1, "shim.1", "shim-loopback"), ErrIPCPExists)
}

func TestFlowCreate_ThenLoopbackThroughDUWriteRead(t *testing.T) {
	k := New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))

	portA, err := k.FlowCreate(1, false, 4)
	require.NoError(t, err)
	portB, err := k.FlowCreate(1, false, 4)
	require.NoError(t, err)

	inst, err := k.lookup(1)
	require.NoError(t, err)
	shim := inst.(*ipcp.ShimIPCP)
	require.NoError(t, shim.FlowAllocateRequest(portA, portB))
	require.NoError(t, shim.FlowAllocateResponse(portB, true))

	payload := makeTestDU(t, "hello")
	require.NoError(t, k.DUWrite(context.Background(), portA, payload, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := k.DURead(ctx, portB)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", string(got.Data()))
}

func TestFlowDestroy_ThenReadReturnsEOF(t *testing.T) {
	k := New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))
	portID, err := k.FlowCreate(1, false, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// A reader already blocked in DURead holds a reference to the flow,
	// so FlowDestroy wakes it with EOF rather than freeing the flow
	// under it.
	type readResult struct {
		d   *du.DU
		err error
	}
	done := make(chan readResult, 1)
	go func() {
		d, err := k.DURead(ctx, portID)
		done <- readResult{d: d, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, k.FlowDestroy(portID))

	res := <-done
	require.NoError(t, res.err)
	assert.Nil(t, res.d)
}

func TestIPCDestroy_UnknownID(t *testing.T) {
	k := New(2)
	assert.ErrorIs(t, k.IPCDestroy(9), ErrIPCPNotFound)
}

func TestIPCIDs_ListsBoundIDsSorted(t *testing.T) {
	k := New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(5, "shim.5", "shim-loopback"))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))

	assert.Equal(t, []uint16{1, 5}, k.IPCIDs())
}

func TestInstance_ReturnsBoundIPCP(t *testing.T) {
	k := New(2)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))

	inst, err := k.Instance(1)
	require.NoError(t, err)
	assert.Equal(t, "shim.1", inst.Name())

	_, err = k.Instance(99)
	assert.ErrorIs(t, err, ErrIPCPNotFound)
}

type fakeKIPCMMetrics struct {
	dispatches []string
	instances  []int
	factories  []string
}

func (f *fakeKIPCMMetrics) RecordDispatch(msgType string, outcome string, duration time.Duration) {
	f.dispatches = append(f.dispatches, msgType+":"+outcome)
}
func (f *fakeKIPCMMetrics) RecordInstanceCount(count int) {
	f.instances = append(f.instances, count)
}
func (f *fakeKIPCMMetrics) RecordFactoryRegistered(ipcpType string) {
	f.factories = append(f.factories, ipcpType)
}

func TestMetrics_RecordFactoryRegisteredAndInstanceCount(t *testing.T) {
	k := New(2)
	m := &fakeKIPCMMetrics{}
	k.SetMetrics(m)

	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	assert.Equal(t, []string{"shim-loopback"}, m.factories)

	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))
	assert.Equal(t, []int{1}, m.instances)

	require.NoError(t, k.IPCDestroy(1))
	assert.Equal(t, []int{1, 0}, m.instances)
}

func TestMetrics_RecordDispatchOnFlowCreateAndDUWrite(t *testing.T) {
	k := New(2)
	m := &fakeKIPCMMetrics{}
	k.SetMetrics(m)
	require.NoError(t, k.RegisterFactory("shim-loopback", func(name string) (ipcp.Instance, error) {
		return ipcp.NewShim(name, k.KFA()), nil
	}))
	require.NoError(t, k.IPCCreate(1, "shim.1", "shim-loopback"))

	portID, err := k.FlowCreate(1, false, 4)
	require.NoError(t, err)
	assert.Contains(t, m.dispatches, "flow_create:ok")

	require.Error(t, k.DUWrite(context.Background(), portID, makeTestDU(t, "x"), false))
	assert.Contains(t, m.dispatches, "du_write:error")
}
