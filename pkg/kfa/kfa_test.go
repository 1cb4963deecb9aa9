package kfa

import (
	"context"
	"testing"
	"time"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIPCP struct {
	written    []*du.DU
	maxSDUSize int
}

func (f *fakeIPCP) DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error {
	f.written = append(f.written, d)
	return nil
}

func (f *fakeIPCP) MaxSDUSize() int { return f.maxSDUSize }

func TestReservePortID_SequentialAllocation(t *testing.T) {
	k := New(2)
	id1, err := k.ReservePortID()
	require.NoError(t, err)
	id2, err := k.ReservePortID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestCreateFlow_RejectsDuplicate(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	assert.ErrorIs(t, k.CreateFlow(7, ipcp, false, 4), ErrFlowExists)
}

func TestPostThenRead_S1Loopback(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	require.NoError(t, k.SetState(7, FlowStateAllocated))

	payload := du.Create(100)
	require.NoError(t, k.Post(7, payload))

	readable, err := k.Readable(7)
	require.NoError(t, err)
	assert.True(t, readable)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := k.Read(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100, got.Len())
}

func TestWrite_ForwardsToBoundIPCP(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	require.NoError(t, k.SetState(7, FlowStateAllocated))

	d := du.Create(10)
	require.NoError(t, k.Write(context.Background(), 7, d, true))
	require.Len(t, ipcp.written, 1)
	assert.Same(t, d, ipcp.written[0])
}

func TestWrite_NonBlockingReturnsTryAgainWhilePending(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))

	assert.ErrorIs(t, k.Write(context.Background(), 7, du.Create(1), false), ErrTryAgain)
	assert.Empty(t, ipcp.written)
}

func TestWrite_BlocksUntilStateLeavesDisabled(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	require.NoError(t, k.SetState(7, FlowStateDisabled))

	done := make(chan error, 1)
	go func() {
		done <- k.Write(context.Background(), 7, du.Create(1), true)
	}()

	select {
	case <-done:
		t.Fatal("Write returned before the flow was re-enabled")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, k.SetState(7, FlowStateAllocated))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Write did not unblock after the flow was re-enabled")
	}
	assert.Len(t, ipcp.written, 1)
}

func TestWrite_BlockedWriterWakesOnDeallocate(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	require.NoError(t, k.SetState(7, FlowStateDisabled))

	done := make(chan error, 1)
	go func() {
		done <- k.Write(context.Background(), 7, du.Create(1), true)
	}()

	require.NoError(t, k.Destroy(7))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFlowDeallocated)
	case <-time.After(time.Second):
		t.Fatal("Write did not unblock after deallocation")
	}
}

func TestWrite_RejectsOversizedSDUWithMessageBoundaries(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{maxSDUSize: 4}
	require.NoError(t, k.CreateFlow(7, ipcp, true, 4))
	require.NoError(t, k.SetState(7, FlowStateAllocated))

	assert.ErrorIs(t, k.Write(context.Background(), 7, du.Create(5), true), ErrOversizedSDU)
	assert.Empty(t, ipcp.written)
}

func TestRead_ReturnsEOFAfterDestroyDrainsQueue(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))
	require.NoError(t, k.Post(7, du.Create(5)))

	// Hold a reference the way an in-flight reader does, so Destroy
	// defers removal instead of dropping the flow inline.
	f, err := k.lookup(7)
	require.NoError(t, err)
	f.acquire()
	require.NoError(t, k.Destroy(7))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The queued DU from before Destroy still drains first.
	got, err := k.Read(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)

	// Nothing is left queued, so the next Read reports EOF.
	eof, err := k.Read(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, eof)

	k.releaseAndMaybeDrop(7, f)
	assert.False(t, k.Exists(7), "drained deallocated flow should be dropped from the map")
}

func TestRead_BlocksUntilPostOrContextCancel(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 4))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := k.Read(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPost_DropsOldestWhenQueueFull(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(7, ipcp, false, 1))

	first := du.Create(1)
	second := du.Create(2)
	require.NoError(t, k.Post(7, first))
	require.NoError(t, k.Post(7, second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := k.Read(ctx, 7)
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestWrite_UnknownPortID(t *testing.T) {
	k := New(2)
	assert.ErrorIs(t, k.Write(context.Background(), 99, du.Create(1), true), ErrFlowNotFound)
}

func TestProcessFinalised_DeallocatesOwnedPortsOnly(t *testing.T) {
	k := New(2)
	ipcp := &fakeIPCP{}
	require.NoError(t, k.CreateFlow(1, ipcp, false, 4))
	require.NoError(t, k.CreateFlow(2, ipcp, false, 4))
	require.NoError(t, k.CreateFlow(3, ipcp, false, 4))
	require.NoError(t, k.BindOwner(1, 100))
	require.NoError(t, k.BindOwner(2, 100))
	require.NoError(t, k.BindOwner(3, 200))

	released := k.ProcessFinalised(100)
	assert.Equal(t, 2, released)
	assert.False(t, k.Exists(1))
	assert.False(t, k.Exists(2))
	assert.True(t, k.Exists(3))
}
