// Package rmt implements a minimal routing/multiplexing collaborator:
// the component DTP hands formatted PDUs to on send, and that demuxes
// incoming PDUs by cep-destination back to the right EFCP connection
// on receive, per spec §2's data flow description. Routing policy
// content (PFF population, multi-hop forwarding decisions) is out of
// scope; this package only performs the single PFF lookup + dispatch
// step, reusing whatever Router/Demux the owning IPCP provides.
package rmt

import (
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/pci"
)

// Router resolves a destination address to the next-hop port-id, the
// Go analogue of a PFF lookup (pkg/ipcp.NormalIPCP.NextHop satisfies
// this).
type Router interface {
	NextHop(destAddr uint64) (portID uint32, err error)
}

// Writer moves an outbound PDU onto the wire for portID, the Go
// analogue of the IPCP's du_write southbound call.
type Writer interface {
	Write(portID uint32, raw *du.DU) error
}

// Demux routes an inbound PDU to the EFCP connection bound to cepID,
// the Go analogue of efcp_container_receive (pkg/efcp.Container
// satisfies this).
type Demux interface {
	Receive(cepID uint32, raw *du.DU) error
}

// RMT sits between EFCP/DTP and the IPCP's underlying transport: Send
// is the Sender callback DTP instances are constructed with, and
// Receive is called by whatever demultiplexes incoming PDUs off the
// wire (a shim's loopback pairing, or a data device) for this IPCP.
type RMT struct {
	table  *pci.OffsetTable
	router Router
	writer Writer
	demux  Demux
}

// New creates an RMT collaborator.
func New(table *pci.OffsetTable, router Router, writer Writer, demux Demux) *RMT {
	return &RMT{table: table, router: router, writer: writer, demux: demux}
}

// Send peeks the destination address off raw's PCI header (without
// mutating raw — pci.New parses a view over the existing bytes),
// resolves the next-hop port-id via the Router, and hands the PDU to
// the Writer. Matches the dtp.Sender signature, so an *RMT's Send
// method can be passed directly as an efcp.Container's send
// collaborator.
func (r *RMT) Send(raw *du.DU) error {
	p := pci.New(raw.Data(), r.table)
	destAddr, err := p.Destination()
	if err != nil {
		return err
	}
	portID, err := r.router.NextHop(destAddr)
	if err != nil {
		return err
	}
	return r.writer.Write(portID, raw)
}

// Receive peeks raw's cep-destination field and hands the PDU to the
// Demux, the Go analogue of the RMT demultiplexing an inbound PDU by
// cep-id to the right EFCP connection.
func (r *RMT) Receive(raw *du.DU) error {
	p := pci.New(raw.Data(), r.table)
	cepDest, err := p.CEPDestination()
	if err != nil {
		return err
	}
	if cepDest == 0 {
		return ErrNoCEPDestination
	}
	return r.demux.Receive(uint32(cepDest), raw)
}
