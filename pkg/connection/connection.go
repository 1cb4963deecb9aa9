// Package connection holds the EFCP connection record: the port-id,
// addresses, cep-ids and qos-id that identify one flow's data-transfer
// endpoint within an IPCP.
package connection

import (
	"github.com/rina-go/rinad/pkg/idalloc"
)

// Connection is the per-flow EFCP endpoint record, created when KFA binds
// a flow to an IPCP instance and handed to EFCP's container to build a
// DTP/DTCP instance pair around.
type Connection struct {
	PortID uint32

	SourceAddress      uint64
	DestinationAddress uint64

	SourceCEPID      uint32
	DestinationCEPID uint32

	QosID uint64
}

// New creates a Connection with both cep-ids unset (idalloc.BadID);
// SourceCEPID is filled in once CIDM allocates one, DestinationCEPID
// once the peer's cep-id is learned (either from the allocate-request
// response or, for a nascent connection, from the first DT PDU
// received).
func New(portID uint32) *Connection {
	return &Connection{
		PortID:           portID,
		SourceCEPID:      idalloc.BadID,
		DestinationCEPID: idalloc.BadID,
	}
}

// HasDestinationCEPID reports whether the peer's cep-id has been learned
// yet. A nascent connection has none until either the allocation
// handshake completes or the first DT PDU arrives.
func (c *Connection) HasDestinationCEPID() bool {
	return !idalloc.IsBad(c.DestinationCEPID)
}
