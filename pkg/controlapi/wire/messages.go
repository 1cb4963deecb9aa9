// Package wire defines the control-message request/response structs
// ControlService carries, and the XDR codec that puts them on the gRPC
// wire in place of protobuf, mirroring spec §6's typed, event-id
// correlated request/response contract.
package wire

import "github.com/rina-go/rinad/pkg/dtconst"

// Header is embedded in every request/response, mirroring the
// {msg_type, src_ipcp_id, dest_ipcp_id, event_id} fields every control
// message carries. msg_type itself is implicit in which RPC carried the
// message, so it is not repeated here.
type Header struct {
	EventID   string
	SrcIPCPID uint16
	DestIPCPID uint16
}

// Result is the generic status every response carries, independent of
// which request it answers.
type Result struct {
	OK      bool
	Message string
}

// HealthRequest carries no payload; Header.EventID still correlates the
// reply.
type HealthRequest struct {
	Header
}

// HealthResponse reports whether the daemon is accepting control
// traffic.
type HealthResponse struct {
	Header
	Result      Result
	BoundIPCPs  uint32
}

// AssignToDIFRequest mirrors the assign-to-dif request.
type AssignToDIFRequest struct {
	Header
	IPCPID uint16
	DIFName string
	DT      dtconst.DataTransferConstants
}

// AssignToDIFResponse mirrors the assign-to-dif response.
type AssignToDIFResponse struct {
	Header
	Result Result
}

// IPCCreateRequest mirrors the create-IPCP request.
type IPCCreateRequest struct {
	Header
	IPCPID      uint16
	Name        string
	FactoryName string
}

// IPCCreateResponse mirrors the create-IPCP response.
type IPCCreateResponse struct {
	Header
	Result Result
}

// IPCDestroyRequest mirrors the destroy-IPCP request.
type IPCDestroyRequest struct {
	Header
	IPCPID uint16
}

// IPCDestroyResponse mirrors the destroy-IPCP response.
type IPCDestroyResponse struct {
	Header
	Result Result
}

// FlowCreateRequest mirrors the allocate-flow request, minus the
// event-id/port-id correlation KIPCM already handles internally (spec
// §4.9): the caller gets the reserved port-id back synchronously.
type FlowCreateRequest struct {
	Header
	IPCPID        uint16
	MsgBoundaries bool
	QueueDepth    uint32
}

// FlowCreateResponse carries the reserved port-id, or a bad result on
// failure.
type FlowCreateResponse struct {
	Header
	Result Result
	PortID uint32
}

// FlowDestroyRequest mirrors the deallocate-flow request.
type FlowDestroyRequest struct {
	Header
	PortID uint32
}

// FlowDestroyResponse mirrors the deallocate-flow response.
type FlowDestroyResponse struct {
	Header
	Result Result
}

// FlowInfo is one row of a flow-list response, from kfa.FlowSnapshot.
type FlowInfo struct {
	PortID uint32
	State  int32
	Owner  uint32
}

// FlowListRequest asks for every flow KFA currently has bound.
type FlowListRequest struct {
	Header
	IPCPID uint16
}

// FlowListResponse carries the flow snapshot.
type FlowListResponse struct {
	Header
	Result Result
	Flows  []FlowInfo
}

// ConnInfo is one row of a connection-dump response, from
// ipcp.ConnectionInfo.
type ConnInfo struct {
	PortID uint32
	CEPID  uint32
}

// ConnDumpRequest asks for the port-id/cep-id bindings of a Normal IPCP.
type ConnDumpRequest struct {
	Header
	IPCPID uint16
}

// ConnDumpResponse carries the connection bindings.
type ConnDumpResponse struct {
	Header
	Result Result
	Conns  []ConnInfo
}

// PFFEntry is one row of a PFF dump.
type PFFEntry struct {
	DestAddr    uint64
	NextHopPort uint32
}

// PFFDumpRequest asks for a Normal IPCP's PDU Forwarding Function table.
type PFFDumpRequest struct {
	Header
	IPCPID uint16
}

// PFFDumpResponse carries the PFF table.
type PFFDumpResponse struct {
	Header
	Result  Result
	Entries []PFFEntry
}
