package rmt

import (
	"testing"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	routes map[uint64]uint32
}

func (f *fakeRouter) NextHop(destAddr uint64) (uint32, error) {
	portID, ok := f.routes[destAddr]
	if !ok {
		return 0, assert.AnError
	}
	return portID, nil
}

type fakeWriter struct {
	writes map[uint32][]*du.DU
}

func (f *fakeWriter) Write(portID uint32, raw *du.DU) error {
	if f.writes == nil {
		f.writes = make(map[uint32][]*du.DU)
	}
	f.writes[portID] = append(f.writes[portID], raw)
	return nil
}

type fakeDemux struct {
	received map[uint32][]*du.DU
}

func (f *fakeDemux) Receive(cepID uint32, raw *du.DU) error {
	if f.received == nil {
		f.received = make(map[uint32][]*du.DU)
	}
	f.received[cepID] = append(f.received[cepID], raw)
	return nil
}

func testTable(t *testing.T) *pci.OffsetTable {
	t.Helper()
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	return pci.NewOffsetTable(*dt)
}

func TestSend_ResolvesNextHopAndWrites(t *testing.T) {
	table := testTable(t)
	router := &fakeRouter{routes: map[uint64]uint32{42: 7}}
	writer := &fakeWriter{}
	r := New(table, router, writer, nil)

	pdu, err := du.CreateEFCP(pci.PDUTypeDT, &dtconst.DataTransferConstants{}, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 42, 1, 0, 0, pdu.Len(), pci.PDUTypeDT))

	require.NoError(t, r.Send(pdu))
	assert.Len(t, writer.writes[7], 1)
}

func TestSend_NoRouteReturnsError(t *testing.T) {
	table := testTable(t)
	router := &fakeRouter{routes: map[uint64]uint32{}}
	r := New(table, router, &fakeWriter{}, nil)

	pdu, err := du.CreateEFCP(pci.PDUTypeDT, &dtconst.DataTransferConstants{}, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 2, 10, 99, 1, 0, 0, pdu.Len(), pci.PDUTypeDT))

	assert.Error(t, r.Send(pdu))
}

func TestReceive_RoutesByCEPDestination(t *testing.T) {
	table := testTable(t)
	demux := &fakeDemux{}
	r := New(table, nil, nil, demux)

	pdu, err := du.CreateEFCP(pci.PDUTypeDT, &dtconst.DataTransferConstants{}, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 5, 10, 20, 1, 0, 0, pdu.Len(), pci.PDUTypeDT))

	require.NoError(t, r.Receive(pdu))
	assert.Len(t, demux.received[5], 1)
}

func TestReceive_NoCEPDestination(t *testing.T) {
	table := testTable(t)
	r := New(table, nil, nil, &fakeDemux{})

	pdu, err := du.CreateEFCP(pci.PDUTypeDT, &dtconst.DataTransferConstants{}, table)
	require.NoError(t, err)
	p := pdu.PCI()
	require.NoError(t, p.Format(1, 0, 10, 20, 1, 0, 0, pdu.Len(), pci.PDUTypeDT))

	assert.ErrorIs(t, r.Receive(pdu), ErrNoCEPDestination)
}
