package dtcp

import (
	"testing"

	"github.com/rina-go/rinad/pkg/connection"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSetup(t *testing.T, cfg Config) (*DTCP, *pci.OffsetTable, *dtconst.DataTransferConstants) {
	t.Helper()
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	table := pci.NewOffsetTable(*dt)
	conn := connection.New(7)
	conn.SourceCEPID = 1
	conn.DestinationCEPID = 2
	return New(conn, dt, table, cfg), table, dt
}

func TestGenerateControlPDU_StampsSequenceAndEcho(t *testing.T) {
	d, _, _ := testSetup(t, Config{})
	d.lastRcvCtlSeq = 41

	pdu, err := d.GenerateControlPDU(pci.PDUTypeACK, 7)
	require.NoError(t, err)

	p := pdu.PCI()
	sn, err := p.SequenceNumber()
	require.NoError(t, err)
	assert.EqualValues(t, 1, sn)

	echoed, err := p.ControlLastSeqNumRcvd()
	require.NoError(t, err)
	assert.EqualValues(t, 41, echoed)

	acked, err := p.ControlAckSeqNum()
	require.NoError(t, err)
	assert.EqualValues(t, 7, acked)
}

func TestGenerateControlPDU_NACKAcksLWEPlusOne(t *testing.T) {
	d, _, _ := testSetup(t, Config{})

	pdu, err := d.GenerateControlPDU(pci.PDUTypeNACK, 7)
	require.NoError(t, err)

	acked, err := pdu.PCI().ControlAckSeqNum()
	require.NoError(t, err)
	assert.EqualValues(t, 8, acked)
}

func TestCommonRcvControl_DropsDuplicate(t *testing.T) {
	d, table, dt := testSetup(t, Config{})

	pdu, err := du.CreateEFCP(pci.PDUTypeACK, dt, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, pdu.Len(), pci.PDUTypeACK))
	require.NoError(t, p.ControlAckSeqNumSet(99))

	_, err = d.CommonRcvControl(p)
	require.NoError(t, err)

	_, err = d.CommonRcvControl(p)
	assert.ErrorIs(t, err, ErrDuplicateControl)
}

func TestCommonRcvControl_ACK_DrainsRTXQueue(t *testing.T) {
	d, table, dt := testSetup(t, Config{RtxControl: true, DataRetransmitMax: 3})
	d.PushRTX(1, du.Create(10))
	d.PushRTX(2, du.Create(10))
	require.Equal(t, 2, d.rtxq.Size())

	pdu, err := du.CreateEFCP(pci.PDUTypeACK, dt, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, pdu.Len(), pci.PDUTypeACK))
	require.NoError(t, p.ControlAckSeqNumSet(1))

	_, err = d.CommonRcvControl(p)
	require.NoError(t, err)
	assert.Equal(t, 1, d.rtxq.Size())
}

func TestCommonRcvControl_NACK_RequestsRetransmission(t *testing.T) {
	d, table, dt := testSetup(t, Config{RtxControl: true, DataRetransmitMax: 3})
	d.PushRTX(1, du.Create(10))
	d.PushRTX(2, du.Create(10))

	pdu, err := du.CreateEFCP(pci.PDUTypeNACK, dt, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, pdu.Len(), pci.PDUTypeNACK))
	require.NoError(t, p.ControlAckSeqNumSet(1))

	action, err := d.CommonRcvControl(p)
	require.NoError(t, err)
	assert.Len(t, action.Retransmit, 2)
	assert.Equal(t, 2, d.rtxq.Size())
}

func TestCommonRcvControl_NACKAndFC_RetransmitsAndDrainsCWQ(t *testing.T) {
	d, table, dt := testSetup(t, Config{RtxControl: true, DataRetransmitMax: 3, WindowBased: true})
	d.PushRTX(1, du.Create(10))
	d.PushCWQ(du.Create(1))

	pdu, err := du.CreateEFCP(pci.PDUTypeNACKAndFC, dt, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, pdu.Len(), pci.PDUTypeNACKAndFC))
	require.NoError(t, p.ControlAckSeqNumSet(1))
	require.NoError(t, p.ControlNewRightWindowEdgeSet(5))

	action, err := d.CommonRcvControl(p)
	require.NoError(t, err)
	assert.Len(t, action.Retransmit, 1)
	assert.Len(t, action.DrainCWQ, 1)
	assert.True(t, action.CancelRendezvous)
}

func TestUpdateSenderWindow_DrainsCWQ(t *testing.T) {
	d, _, _ := testSetup(t, Config{WindowBased: true, InitialCredit: 2})
	d.PushCWQ(du.Create(1))
	d.PushCWQ(du.Create(1))
	d.PushCWQ(du.Create(1))

	released := d.UpdateSenderWindow(5)
	assert.Len(t, released, 3)
	assert.True(t, d.SenderWindowOpen(5))
	assert.False(t, d.SenderWindowOpen(6))
}

func TestCommonRcvControl_FC_UpdatesWindowAndDrainsCWQ(t *testing.T) {
	d, table, dt := testSetup(t, Config{WindowBased: true})
	d.PushCWQ(du.Create(1))

	pdu, err := du.CreateEFCP(pci.PDUTypeFC, dt, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, pdu.Len(), pci.PDUTypeFC))
	require.NoError(t, p.ControlNewRightWindowEdgeSet(10))

	action, err := d.CommonRcvControl(p)
	require.NoError(t, err)
	assert.Len(t, action.DrainCWQ, 1)
	assert.True(t, action.CancelRendezvous)
}

func TestRTTEstimator_ConvergesTowardStableSample(t *testing.T) {
	r := NewRTTEstimator()
	for i := 0; i < 50; i++ {
		r.Sample(100)
	}
	assert.InDelta(t, 100, r.SRTT(), 1)
}

func TestRTXQueue_NackReinjectsFromSeqOnward(t *testing.T) {
	q := NewRTXQueue(3)
	q.Push(1, du.Create(1))
	q.Push(2, du.Create(1))
	q.Push(3, du.Create(1))

	due := q.Nack(2)
	assert.Len(t, due, 2)
	assert.Equal(t, 3, q.Size())
}

func TestRTXQueue_AckDiscardsUpToSeq(t *testing.T) {
	q := NewRTXQueue(3)
	q.Push(1, du.Create(1))
	q.Push(2, du.Create(1))
	q.Ack(1)
	assert.Equal(t, 1, q.Size())
}

type fakeDTCPMetrics struct {
	retransmissions []int
	cwqDepths       []int
	rtxqDepths      []int
	windowUpdates   int
	backpressure    []bool
	rendezvous      int
}

func (f *fakeDTCPMetrics) RecordRetransmission(cepID int32, attempt int) {
	f.retransmissions = append(f.retransmissions, attempt)
}
func (f *fakeDTCPMetrics) RecordCWQDepth(cepID int32, depth int) {
	f.cwqDepths = append(f.cwqDepths, depth)
}
func (f *fakeDTCPMetrics) RecordRTXQDepth(cepID int32, depth int) {
	f.rtxqDepths = append(f.rtxqDepths, depth)
}
func (f *fakeDTCPMetrics) RecordWindowUpdate(cepID int32, lwe, rwe uint64) {
	f.windowUpdates++
}
func (f *fakeDTCPMetrics) RecordBackpressure(cepID int32, enabled bool) {
	f.backpressure = append(f.backpressure, enabled)
}
func (f *fakeDTCPMetrics) RecordRendezvous(cepID int32) {
	f.rendezvous++
}

func TestPushCWQ_RecordsDepthAndBackpressure(t *testing.T) {
	d, _, _ := testSetup(t, Config{WindowBased: true})
	m := &fakeDTCPMetrics{}
	d.SetMetrics(m)

	d.PushCWQ(du.Create(1))
	require.NotEmpty(t, m.cwqDepths)
	assert.Equal(t, 1, m.cwqDepths[len(m.cwqDepths)-1])
	assert.Contains(t, m.backpressure, false)
}

func TestNack_RecordsRetransmissionAndRTXQDepth(t *testing.T) {
	d, _, _ := testSetup(t, Config{RtxControl: true, DataRetransmitMax: 3})
	m := &fakeDTCPMetrics{}
	d.SetMetrics(m)

	d.PushRTX(1, du.Create(1))
	d.PushRTX(2, du.Create(1))
	due := d.Nack(1)

	assert.Len(t, due, 2)
	assert.Equal(t, []int{2}, m.retransmissions)
	assert.NotEmpty(t, m.rtxqDepths)
}

func TestGenerateControlPDU_RecordsRendezvous(t *testing.T) {
	d, _, _ := testSetup(t, Config{})
	m := &fakeDTCPMetrics{}
	d.SetMetrics(m)

	_, err := d.GenerateControlPDU(pci.PDUTypeRendezvous, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, m.rendezvous)
}
