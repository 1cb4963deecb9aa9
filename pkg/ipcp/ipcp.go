// Package ipcp defines the IPC Process instance capability set and its
// two variants — Shim (a thin adapter over an existing transport, no
// EFCP) and Normal (full EFCP/DTP/DTCP stack) — the Go analogue of
// struct ipcp_instance_ops's has_common_hooks/is_shim/is_normal split
// in spec §2's data flow.
//
// The kernel checks capability by testing which function pointers in
// a single ops struct are non-nil; a Go instance instead implements
// the common Instance interface always, and optionally one of
// FlowAllocator (Shim) or ConnectionManager (Normal), checked with a
// type assertion where KIPCM needs to know which it has.
package ipcp

import (
	"context"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
)

// Kind distinguishes the two IPCP variants.
type Kind int

const (
	KindShim Kind = iota + 1
	KindNormal
)

func (k Kind) String() string {
	switch k {
	case KindShim:
		return "shim"
	case KindNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// DIFConfig bundles what assign_to_dif/update_dif_config hand an IPCP:
// the DIF name and its Data Transfer Constants profile.
type DIFConfig struct {
	Name string
	DT   dtconst.DataTransferConstants
}

// Instance is the common hook set every IPCP variant implements,
// mirroring has_common_hooks's assign_to_dif/update_dif_config/du_write/
// ipcp_name requirement.
type Instance interface {
	Name() string
	Kind() Kind
	AssignToDIF(cfg DIFConfig) error
	UpdateDIFConfig(cfg DIFConfig) error

	// DUWrite accepts a DU from KFA bound to portID and moves it into
	// the IPCP's data path (loopback peer for Shim, EFCP connection for
	// Normal). blocking mirrors the caller's O_NONBLOCK state; a Normal
	// instance consults it only when the connection's closed-window
	// queue is at capacity, a Shim instance ignores it (loopback never
	// queues).
	DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error

	// MaxSDUSize reports the largest user-facing message this instance
	// accepts, the Go analogue of ipcp_instance_ops.max_sdu_size. A
	// flow whose MsgBoundaries is set rejects larger writes outright
	// (kfa_flow_sdu_write's -EMSGSIZE path). Zero means no bound
	// (e.g. the loopback Shim, which frames nothing).
	MaxSDUSize() int
}

// FlowAllocator is implemented by Shim IPCPs: they allocate flows
// directly over their underlying transport with no EFCP connection in
// between, mirroring ipcp_instance_is_shim's flow_allocate_request/
// flow_allocate_response/flow_deallocate/application_register set.
type FlowAllocator interface {
	FlowAllocateRequest(portID uint32, peerPortID uint32) error
	FlowAllocateResponse(portID uint32, accept bool) error
	FlowDeallocate(portID uint32) error
	ApplicationRegister(name string) error
	ApplicationUnregister(name string) error
}

// ConnectionManager is implemented by Normal IPCPs: flows ride an EFCP
// connection, and the PFF routes by destination address, mirroring
// ipcp_instance_is_normal's connection_create/connection_destroy/
// pff_add/pff_remove/pff_dump set.
type ConnectionManager interface {
	CreateConnection(portID uint32, destAddr uint64) (cepID uint32, err error)
	DestroyConnection(cepID uint32) error

	PFFAdd(destAddr uint64, nextHopPortID uint32)
	PFFRemove(destAddr uint64)
	PFFDump() map[uint64]uint32

	// DUEnqueue delivers an upward-travelling DU to the application
	// bound to portID, the Go analogue of du_enqueue.
	DUEnqueue(portID uint32, d *du.DU) error

	// Connections lists the port-id/cep-id bindings currently active,
	// for control-plane introspection (`rinactl conn dump`).
	Connections() []ConnectionInfo
}

// ConnectionInfo is a read-only view of one port-id/cep-id binding.
type ConnectionInfo struct {
	PortID uint32
	CEPID  uint32
}
