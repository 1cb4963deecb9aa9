// Package kipcm implements the Kernel IPC Manager: the name-keyed
// IPCP factory registry, the ipc-process-id-keyed instance map, and
// the dispatcher that routes northbound calls (ipc_create, du_write,
// du_read, flow_create, flow_destroy) to the right instance, mirroring
// struct kipcm in spec §2's control dispatcher.
package kipcm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/ipcp"
	"github.com/rina-go/rinad/pkg/kfa"
	"github.com/rina-go/rinad/pkg/metrics"
)

// Factory builds a new named IPCP instance, the Go analogue of
// ipcp_factory_ops.create.
type Factory func(name string) (ipcp.Instance, error)

// KIPCM is the kernel IPC manager: it owns the KFA (flows are
// contained within its lifetime, per kipcm.h's note on KFA ownership),
// a registry of named factories, and the ipc-process-id-keyed instance
// map.
type KIPCM struct {
	mu sync.RWMutex

	kfa       *kfa.KFA
	factories map[string]Factory
	instances map[uint16]ipcp.Instance
	metrics   metrics.KIPCMMetrics
}

// SetMetrics attaches a KIPCMMetrics collector; nil disables collection.
func (k *KIPCM) SetMetrics(m metrics.KIPCMMetrics) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.metrics = m
}

func (k *KIPCM) recordInstanceCountLocked() {
	if k.metrics != nil {
		k.metrics.RecordInstanceCount(len(k.instances))
	}
}

// New creates a KIPCM owning a fresh KFA sized for the given port-id
// width.
func New(portIDWidth uint8) *KIPCM {
	return &KIPCM{
		kfa:       kfa.New(portIDWidth),
		factories: make(map[string]Factory),
		instances: make(map[uint16]ipcp.Instance),
	}
}

// KFA returns the KFA this KIPCM owns, the Go analogue of the
// southbound kipcm_kfa() accessor IPCPs use to bind flows.
func (k *KIPCM) KFA() *kfa.KFA { return k.kfa }

// RegisterFactory adds a named IPCP factory (e.g. "shim-loopback",
// "normal-ipc"), the Go analogue of ipcpf_register.
func (k *KIPCM) RegisterFactory(name string, f Factory) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.factories[name]; exists {
		return ErrFactoryExists
	}
	k.factories[name] = f
	if k.metrics != nil {
		k.metrics.RecordFactoryRegistered(name)
	}
	return nil
}

// UnregisterFactory removes a previously registered factory, the Go
// analogue of ipcpf_unregister.
func (k *KIPCM) UnregisterFactory(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.factories, name)
}

// IPCCreate builds a new IPCP instance of the named factory and binds
// it to ipcID, the Go analogue of kipcm_ipc_create.
func (k *KIPCM) IPCCreate(ipcID uint16, name string, factoryName string) error {
	start := time.Now()
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.instances[ipcID]; exists {
		metrics.ObserveDispatch(k.metrics, "ipc_create", "error", time.Since(start))
		return ErrIPCPExists
	}
	factory, ok := k.factories[factoryName]
	if !ok {
		metrics.ObserveDispatch(k.metrics, "ipc_create", "error", time.Since(start))
		return ErrFactoryNotFound
	}
	inst, err := factory(name)
	if err != nil {
		metrics.ObserveDispatch(k.metrics, "ipc_create", "error", time.Since(start))
		return err
	}
	k.instances[ipcID] = inst
	k.recordInstanceCountLocked()
	metrics.ObserveDispatch(k.metrics, "ipc_create", "ok", time.Since(start))
	return nil
}

// IPCDestroy removes the instance bound to ipcID, the Go analogue of
// kipcm_ipc_destroy.
func (k *KIPCM) IPCDestroy(ipcID uint16) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, exists := k.instances[ipcID]; !exists {
		return ErrIPCPNotFound
	}
	delete(k.instances, ipcID)
	k.recordInstanceCountLocked()
	return nil
}

// Instance returns the IPCP instance bound to ipcID, for control-plane
// introspection and for Normal-variant callers that need to type-assert
// for ipcp.ConnectionManager (`rinactl conn dump`, `pff dump`).
func (k *KIPCM) Instance(ipcID uint16) (ipcp.Instance, error) {
	return k.lookup(ipcID)
}

// IPCIDs lists every currently bound ipc-process-id, sorted ascending.
func (k *KIPCM) IPCIDs() []uint16 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]uint16, 0, len(k.instances))
	for id := range k.instances {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (k *KIPCM) lookup(ipcID uint16) (ipcp.Instance, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	inst, ok := k.instances[ipcID]
	if !ok {
		return nil, ErrIPCPNotFound
	}
	return inst, nil
}

// AssignToDIF forwards to the named instance's AssignToDIF.
func (k *KIPCM) AssignToDIF(ipcID uint16, cfg ipcp.DIFConfig) error {
	start := time.Now()
	inst, err := k.lookup(ipcID)
	if err != nil {
		metrics.ObserveDispatch(k.metricsSnapshot(), "assign_to_dif", "error", time.Since(start))
		return err
	}
	err = inst.AssignToDIF(cfg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "assign_to_dif", outcome, time.Since(start))
	return err
}

func (k *KIPCM) metricsSnapshot() metrics.KIPCMMetrics {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.metrics
}

// FlowCreate reserves a port-id from the KFA and binds a flow to
// ipcID's instance, the Go analogue of kipcm_flow_create.
func (k *KIPCM) FlowCreate(ipcID uint16, msgBoundaries bool, queueDepth int) (uint32, error) {
	start := time.Now()
	inst, err := k.lookup(ipcID)
	if err != nil {
		metrics.ObserveDispatch(k.metricsSnapshot(), "flow_create", "error", time.Since(start))
		return 0, err
	}
	portID, err := k.kfa.ReservePortID()
	if err != nil {
		metrics.ObserveDispatch(k.metricsSnapshot(), "flow_create", "error", time.Since(start))
		return 0, err
	}
	if err := k.kfa.CreateFlow(portID, inst, msgBoundaries, queueDepth); err != nil {
		k.kfa.ReleasePortID(portID)
		metrics.ObserveDispatch(k.metricsSnapshot(), "flow_create", "error", time.Since(start))
		return 0, err
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "flow_create", "ok", time.Since(start))
	return portID, nil
}

// FlowDestroy tears down the flow bound to portID, the Go analogue of
// kipcm_flow_destroy.
func (k *KIPCM) FlowDestroy(portID uint32) error {
	start := time.Now()
	err := k.kfa.Destroy(portID)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "flow_destroy", outcome, time.Since(start))
	return err
}

// DUWrite hands a user buffer down through the KFA to whichever IPCP
// instance owns portID, the Go analogue of kipcm_du_write. blocking
// mirrors the caller's O_NONBLOCK state: true sleeps until the flow's
// window reopens, false returns kfa.ErrTryAgain immediately.
func (k *KIPCM) DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error {
	start := time.Now()
	err := k.kfa.Write(ctx, portID, d, blocking)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "du_write", outcome, time.Since(start))
	return err
}

// DURead blocks for the next DU delivered on portID, the Go analogue
// of kipcm_du_read.
func (k *KIPCM) DURead(ctx context.Context, portID uint32) (*du.DU, error) {
	start := time.Now()
	d, err := k.kfa.Read(ctx, portID)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "du_read", outcome, time.Since(start))
	return d, err
}

// MgmtDUWrite forwards a management PDU to ipcID's instance, the Go
// analogue of kipcm_mgmt_du_write. Most IPCPs treat management PDUs
// identically to DUWrite on a reserved port; Normal variants that need
// a distinct management plane can type-assert for a richer interface.
// Management writes are never blocking.
func (k *KIPCM) MgmtDUWrite(ipcID uint16, portID uint32, d *du.DU) error {
	start := time.Now()
	inst, err := k.lookup(ipcID)
	if err != nil {
		metrics.ObserveDispatch(k.metricsSnapshot(), "mgmt_du_write", "error", time.Since(start))
		return err
	}
	err = inst.DUWrite(context.Background(), portID, d, false)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveDispatch(k.metricsSnapshot(), "mgmt_du_write", outcome, time.Since(start))
	return err
}

// Len reports the number of live IPC process instances.
func (k *KIPCM) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.instances)
}
