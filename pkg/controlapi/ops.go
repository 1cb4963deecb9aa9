// Package controlapi exposes KIPCM's control-message contract (spec
// §6) over the network: a gRPC ControlService for programmatic IPC
// managers, and a chi JSON façade for operator tooling, mirroring
// dittofs's pkg/controlplane/api split between router.go and a richer
// RPC surface. No data PDU ever crosses this package; every handler
// here only reaches KIPCM's northbound control entry points.
package controlapi

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rina-go/rinad/pkg/ipcp"
	"github.com/rina-go/rinad/pkg/kipcm"
)

// Ops implements every control-message family this surface exposes,
// shared verbatim between the gRPC service and the chi JSON façade so
// the two transports can never drift in behavior.
type Ops struct {
	k *kipcm.KIPCM
}

// NewOps wraps a KIPCM for control-plane dispatch.
func NewOps(k *kipcm.KIPCM) *Ops {
	return &Ops{k: k}
}

// NewEventID generates a fresh event-id for a request that didn't
// supply one, the Go analogue of the kernel's event-id generator
// (spec §6's event_id correlation).
func NewEventID() string {
	return uuid.NewString()
}

func ok() Result { return Result{OK: true} }

func errResult(err error) Result {
	if err == nil {
		return ok()
	}
	return Result{OK: false, Message: err.Error()}
}

// Result is the transport-agnostic outcome of a control operation;
// wire.Result and the JSON façade's response envelope are both built
// from it.
type Result struct {
	OK      bool
	Message string
}

// Health reports liveness plus the number of bound IPC processes.
func (o *Ops) Health() (boundIPCPs int) {
	return len(o.k.IPCIDs())
}

// AssignToDIF forwards to KIPCM.AssignToDIF.
func (o *Ops) AssignToDIF(ipcID uint16, cfg ipcp.DIFConfig) Result {
	return errResult(o.k.AssignToDIF(ipcID, cfg))
}

// IPCCreate forwards to KIPCM.IPCCreate.
func (o *Ops) IPCCreate(ipcID uint16, name, factoryName string) Result {
	return errResult(o.k.IPCCreate(ipcID, name, factoryName))
}

// IPCDestroy forwards to KIPCM.IPCDestroy.
func (o *Ops) IPCDestroy(ipcID uint16) Result {
	return errResult(o.k.IPCDestroy(ipcID))
}

// FlowCreate forwards to KIPCM.FlowCreate.
func (o *Ops) FlowCreate(ipcID uint16, msgBoundaries bool, queueDepth int) (portID uint32, res Result) {
	portID, err := o.k.FlowCreate(ipcID, msgBoundaries, queueDepth)
	return portID, errResult(err)
}

// FlowDestroy forwards to KIPCM.FlowDestroy.
func (o *Ops) FlowDestroy(portID uint32) Result {
	return errResult(o.k.FlowDestroy(portID))
}

// FlowList returns the KFA's live flow snapshot, the Go analogue of a
// query-RIB request scoped to flow state.
func (o *Ops) FlowList() []kfaSnapshotRow {
	snaps := o.k.KFA().Snapshot()
	out := make([]kfaSnapshotRow, len(snaps))
	for i, s := range snaps {
		out[i] = kfaSnapshotRow{PortID: s.PortID, State: int32(s.State), Owner: s.Owner}
	}
	return out
}

type kfaSnapshotRow struct {
	PortID uint32
	State  int32
	Owner  uint32
}

// connectionManager returns ipcID's instance type-asserted for
// ipcp.ConnectionManager, which only Normal variants implement.
func (o *Ops) connectionManager(ipcID uint16) (ipcp.ConnectionManager, error) {
	inst, err := o.k.Instance(ipcID)
	if err != nil {
		return nil, err
	}
	cm, ok := inst.(ipcp.ConnectionManager)
	if !ok {
		return nil, fmt.Errorf("controlapi: ipc process %d is not a connection manager", ipcID)
	}
	return cm, nil
}

// ConnDump returns ipcID's active port-id/cep-id bindings.
func (o *Ops) ConnDump(ipcID uint16) ([]ipcp.ConnectionInfo, Result) {
	cm, err := o.connectionManager(ipcID)
	if err != nil {
		return nil, errResult(err)
	}
	return cm.Connections(), ok()
}

// PFFDump returns ipcID's PDU Forwarding Function table.
func (o *Ops) PFFDump(ipcID uint16) (map[uint64]uint32, Result) {
	cm, err := o.connectionManager(ipcID)
	if err != nil {
		return nil, errResult(err)
	}
	return cm.PFFDump(), ok()
}
