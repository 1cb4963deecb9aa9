package dtp

import (
	"context"
	"testing"
	"time"

	"github.com/rina-go/rinad/pkg/connection"
	"github.com/rina-go/rinad/pkg/delimiter"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/dtcp"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClosedWindowDTP builds a DTP whose DTCP has a closed window
// (InitialCredit: 0) and a CWQ capped at cwqCapacity, for exercising
// sendOne's closed-window-queue backpressure path.
func newClosedWindowDTP(t *testing.T, cwqCapacity int) (*DTP, *dtcp.DTCP) {
	t.Helper()
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)
	conn := connection.New(7)
	conn.SourceCEPID = 1
	conn.DestinationCEPID = 2

	ctrl := dtcp.New(conn, dt, table, dtcp.Config{WindowBased: true, CWQCapacity: cwqCapacity})
	d := New(conn, dt, table, nil, ctrl,
		func(*du.DU) error { return nil },
		func(*du.DU) error { return nil }, nil, Config{InOrder: true})
	return d, ctrl
}

func newTestDTP(t *testing.T, inOrder bool) (*DTP, []*du.DU, *dtconst.DataTransferConstants, *pci.OffsetTable) {
	t.Helper()
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)
	conn := connection.New(7)
	conn.SourceCEPID = 1
	conn.DestinationCEPID = 2

	var sent []*du.DU
	sender := func(pdu *du.DU) error {
		sent = append(sent, pdu)
		return nil
	}
	var delivered []*du.DU
	deliverer := func(payload *du.DU) error {
		delivered = append(delivered, payload)
		return nil
	}
	d := New(conn, dt, table, nil, nil, sender, deliverer, nil, Config{InOrder: inOrder})
	return d, delivered, dt, table
}

func TestSend_S1Loopback(t *testing.T) {
	d, _, _, _ := newTestDTP(t, true)
	payload := du.Create(100)

	var sentPDU *du.DU
	d.send = func(pdu *du.DU) error {
		sentPDU = pdu
		return nil
	}

	require.NoError(t, d.Send(context.Background(), payload, true))
	require.NotNil(t, sentPDU)

	p := sentPDU.PCI()
	assert.Equal(t, pci.PDUTypeDT, p.Type())
	sn, err := p.SequenceNumber()
	require.NoError(t, err)
	assert.EqualValues(t, 1, sn)
}

func TestReceive_InOrderDeliveryAdvancesWindow(t *testing.T) {
	d, _, dt, table := newTestDTP(t, true)

	var delivered []*du.DU
	d.deliver = func(payload *du.DU) error {
		delivered = append(delivered, payload)
		return nil
	}

	mkDataPDU := func(seq uint64, payload string) *du.DU {
		frag := du.Create(len(payload))
		copy(frag.Data(), payload)
		frag.Configure(dt, table)
		require.NoError(t, frag.Encap(pci.PDUTypeDT))
		p := frag.PCI()
		require.NoError(t, p.Format(1, 2, 10, 20, seq, 1, 0, frag.Len(), pci.PDUTypeDT))
		return du.FromWire(frag.Data(), dt, table)
	}

	_, err := d.Receive(mkDataPDU(1, "hello"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello", string(delivered[0].Data()))

	_, err = d.Receive(mkDataPDU(2, "world"))
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	assert.Equal(t, "world", string(delivered[1].Data()))
}

func TestReceive_OutOfOrderBuffersUntilGapFills(t *testing.T) {
	d, _, dt, table := newTestDTP(t, true)

	var delivered []*du.DU
	d.deliver = func(payload *du.DU) error {
		delivered = append(delivered, payload)
		return nil
	}

	mk := func(seq uint64, payload string) *du.DU {
		frag := du.Create(len(payload))
		copy(frag.Data(), payload)
		frag.Configure(dt, table)
		require.NoError(t, frag.Encap(pci.PDUTypeDT))
		p := frag.PCI()
		require.NoError(t, p.Format(1, 2, 10, 20, seq, 1, 0, frag.Len(), pci.PDUTypeDT))
		return du.FromWire(frag.Data(), dt, table)
	}

	_, err := d.Receive(mk(2, "second"))
	require.NoError(t, err)
	assert.Empty(t, delivered, "seq 2 arrives before seq 1, must not be delivered yet")

	_, err = d.Receive(mk(1, "first"))
	require.NoError(t, err)
	require.Len(t, delivered, 2, "filling the gap delivers both in order")
	assert.Equal(t, "first", string(delivered[0].Data()))
	assert.Equal(t, "second", string(delivered[1].Data()))
}

func TestReceive_DropsBelowLeftWindowEdge(t *testing.T) {
	d, _, dt, table := newTestDTP(t, true)
	d.deliver = func(*du.DU) error { return nil }

	mk := func(seq uint64) *du.DU {
		frag := du.Create(3)
		copy(frag.Data(), "abc")
		frag.Configure(dt, table)
		require.NoError(t, frag.Encap(pci.PDUTypeDT))
		p := frag.PCI()
		require.NoError(t, p.Format(1, 2, 10, 20, seq, 1, 0, frag.Len(), pci.PDUTypeDT))
		return du.FromWire(frag.Data(), dt, table)
	}

	_, err := d.Receive(mk(1))
	require.NoError(t, err)
	_, err = d.Receive(mk(1))
	assert.ErrorIs(t, err, ErrOutOfWindow)
}

func TestFragmentedSend_S2Scenario(t *testing.T) {
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)
	conn := connection.New(7)
	delim, err := delimiter.New(400)
	require.NoError(t, err)

	var sent []*du.DU
	d := New(conn, dt, table, delim, nil,
		func(pdu *du.DU) error { sent = append(sent, pdu); return nil },
		func(*du.DU) error { return nil }, nil, Config{InOrder: true})

	payload := du.Create(1000)
	require.NoError(t, d.Send(context.Background(), payload, true))
	require.Len(t, sent, 3)
}

type fakeDTPMetrics struct {
	sent, received []string
	seqNums        []uint64
	gaps           []uint64
	fragEvents     []string
}

func (f *fakeDTPMetrics) RecordPDUSent(cepID int32, pduType string, bytes int) {
	f.sent = append(f.sent, pduType)
}
func (f *fakeDTPMetrics) RecordPDUReceived(cepID int32, pduType string, bytes int) {
	f.received = append(f.received, pduType)
}
func (f *fakeDTPMetrics) RecordSeqNum(cepID int32, seqNum uint64) {
	f.seqNums = append(f.seqNums, seqNum)
}
func (f *fakeDTPMetrics) RecordGap(cepID int32, gapSize uint64) {
	f.gaps = append(f.gaps, gapSize)
}
func (f *fakeDTPMetrics) RecordFragmentation(event string, fragments int) {
	f.fragEvents = append(f.fragEvents, event)
}
func (f *fakeDTPMetrics) RecordRTT(cepID int32, rtt time.Duration) {}

func TestSend_RecordsPDUSentAndSeqNum(t *testing.T) {
	d, _, _, _ := newTestDTP(t, true)
	m := &fakeDTPMetrics{}
	d.SetMetrics(m)

	require.NoError(t, d.Send(context.Background(), du.Create(10), true))
	assert.Equal(t, []string{"DT"}, m.sent)
	assert.Equal(t, []uint64{1}, m.seqNums)
}

func TestReceive_RecordsPDUReceivedAndGap(t *testing.T) {
	d, _, dt, table := newTestDTP(t, false)
	var delivered []*du.DU
	d.deliver = func(payload *du.DU) error {
		delivered = append(delivered, payload)
		return nil
	}
	m := &fakeDTPMetrics{}
	d.SetMetrics(m)

	mk := func(seq uint64) *du.DU {
		pdu, err := du.CreateEFCP(pci.PDUTypeDT, dt, table)
		require.NoError(t, err)
		p := pdu.PCI()
		require.NoError(t, p.Format(1, 2, 10, 20, seq, 0, 0, pdu.Len(), pci.PDUTypeDT))
		return pdu
	}

	_, err := d.Receive(mk(3))
	require.NoError(t, err)
	assert.Len(t, delivered, 1)
	assert.Equal(t, []string{"DT"}, m.received)
	assert.Equal(t, []uint64{2}, m.gaps)
}

func TestFragmentedSend_RecordsFragmentationEvent(t *testing.T) {
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)
	conn := connection.New(7)
	delim, err := delimiter.New(400)
	require.NoError(t, err)

	d := New(conn, dt, table, delim, nil,
		func(pdu *du.DU) error { return nil },
		func(*du.DU) error { return nil }, nil, Config{InOrder: true})
	m := &fakeDTPMetrics{}
	d.SetMetrics(m)

	require.NoError(t, d.Send(context.Background(), du.Create(1000), true))
	assert.Contains(t, m.fragEvents, "fragment")
}

func TestATimer_RunsInlineWhenZero(t *testing.T) {
	d, _, _, _ := newTestDTP(t, true)
	ran := false
	d.ArmATimer(func() { ran = true })
	assert.True(t, ran)
}

func TestSend_ClosedWindowQueuesUntilCapacity(t *testing.T) {
	d, _ := newClosedWindowDTP(t, 2)

	require.NoError(t, d.Send(context.Background(), du.Create(10), false))
	require.NoError(t, d.Send(context.Background(), du.Create(10), false))
}

func TestSend_NonBlockingReturnsCWQFullAtCapacity(t *testing.T) {
	d, _ := newClosedWindowDTP(t, 1)

	require.NoError(t, d.Send(context.Background(), du.Create(10), false))
	err := d.Send(context.Background(), du.Create(10), false)
	assert.ErrorIs(t, err, ErrCWQFull)
}

func TestSend_BlockingWaitsForCWQSpaceThenSucceeds(t *testing.T) {
	d, ctrl := newClosedWindowDTP(t, 1)
	require.NoError(t, d.Send(context.Background(), du.Create(10), false))

	done := make(chan error, 1)
	go func() {
		done <- d.Send(context.Background(), du.Create(10), true)
	}()

	select {
	case <-done:
		t.Fatal("Send returned before the CWQ freed space")
	case <-time.After(50 * time.Millisecond):
	}

	ctrl.UpdateSenderWindow(1)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after the CWQ freed space")
	}
}

func TestSend_BlockingSendCancelledByContext(t *testing.T) {
	d, _ := newClosedWindowDTP(t, 1)
	require.NoError(t, d.Send(context.Background(), du.Create(10), false))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Send(ctx, du.Create(10), true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDrain_StopsAllTimersWithoutPanic(t *testing.T) {
	d, _, _, _ := newTestDTP(t, true)
	d.cfg.AMillis = 1000
	d.cfg.RAMillis = 1000
	d.cfg.RendezvousMs = 1000
	d.ArmATimer(func() {})
	d.ArmRTimer(func() {})
	d.ArmRendezvous(func() {})
	d.Drain()
}
