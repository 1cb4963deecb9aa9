package ipcp

import (
	"context"
	"sync"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/efcp"
	"github.com/rina-go/rinad/pkg/kfa"
)

// NormalIPCP is a full-stack IPC process: every flow rides an EFCP
// connection, and outbound PDUs for a remote address are routed
// through a minimal in-memory PFF, mirroring ipcp_instance_is_normal's
// connection_create/pff_add/pff_dump capability set. Routing policy
// content is out of scope (spec Non-goals); PFFAdd/PFFRemove/PFFDump
// exist so kipcm_pff_* control messages have a real table to drive.
type NormalIPCP struct {
	name string
	dt   dtconst.DataTransferConstants

	efcp *efcp.Container
	kfa  *kfa.KFA

	mu       sync.RWMutex
	bindings map[uint32]uint32 // portID -> cepID
	pff      map[uint64]uint32 // destination address -> next-hop portID
}

// NewNormal creates a Normal IPCP instance. container must already be
// wired with the Sender that hands formatted PDUs to this IPCP's RMT
// collaborator.
func NewNormal(name string, k *kfa.KFA, container *efcp.Container) *NormalIPCP {
	return &NormalIPCP{
		name:     name,
		efcp:     container,
		kfa:      k,
		bindings: make(map[uint32]uint32),
		pff:      make(map[uint64]uint32),
	}
}

func (n *NormalIPCP) Name() string { return n.name }
func (n *NormalIPCP) Kind() Kind   { return KindNormal }

// MaxSDUSize reports the DIF's configured max SDU size, mirroring
// normal_max_sdu_size's read of dt_cons.max_sdu_size.
func (n *NormalIPCP) MaxSDUSize() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return int(n.dt.MaxSDUSize)
}

// AssignToDIF records the DIF's Data Transfer Constants profile,
// mirroring assign_to_dif's role of handing the IPCP its dt_cons.
func (n *NormalIPCP) AssignToDIF(cfg DIFConfig) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dt = cfg.DT
	return nil
}

// UpdateDIFConfig replaces the live DT profile, mirroring
// update_dif_config's hot-reload of policy parameters.
func (n *NormalIPCP) UpdateDIFConfig(cfg DIFConfig) error {
	return n.AssignToDIF(cfg)
}

// CreateConnection builds a new EFCP connection for portID and
// records the port-id/cep-id binding DUWrite/DUEnqueue use to route.
func (n *NormalIPCP) CreateConnection(portID uint32, destAddr uint64) (uint32, error) {
	cepID, err := n.efcp.CreateConnection(efcp.ConnectionSpec{
		PortID:             portID,
		DestinationAddress: destAddr,
		Deliver: func(payload *du.DU) error {
			return n.kfa.Post(portID, payload)
		},
		DisableWrite: func(disabled bool) {
			_ = n.kfa.SetState(portID, flowStateFor(disabled))
		},
	})
	if err != nil {
		return 0, err
	}

	n.mu.Lock()
	n.bindings[portID] = cepID
	n.mu.Unlock()

	// The connection exists and du_write can now reach it: the
	// allocate-flow handshake this port-id was PENDING for has
	// completed, so writers blocked on it (or arriving after) may
	// proceed, matching kfa_flow_create's doc contract.
	_ = n.kfa.SetState(portID, kfa.FlowStateAllocated)
	return cepID, nil
}

// flowStateFor maps a DTCP write-disable signal onto the KFA flow
// states that gate Post/Write, matching the disable_write/enable_write
// hookup described in SPEC_FULL.md's supplemented-features section.
func flowStateFor(disabled bool) kfa.FlowState {
	if disabled {
		return kfa.FlowStateDisabled
	}
	return kfa.FlowStateAllocated
}

// DestroyConnection tears the EFCP connection down and clears the
// port-id binding.
func (n *NormalIPCP) DestroyConnection(cepID uint32) error {
	if err := n.efcp.Destroy(cepID); err != nil {
		return err
	}
	n.mu.Lock()
	for portID, c := range n.bindings {
		if c == cepID {
			delete(n.bindings, portID)
			break
		}
	}
	n.mu.Unlock()
	return nil
}

// DUWrite looks up the EFCP connection bound to portID and hands the
// DU to its Write path, forwarding blocking to the connection's DTP
// send path for its closed-window-queue backpressure decision.
func (n *NormalIPCP) DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error {
	n.mu.RLock()
	cepID, ok := n.bindings[portID]
	n.mu.RUnlock()
	if !ok {
		return ErrNotBound
	}
	return n.efcp.Write(ctx, cepID, d, blocking)
}

// DUEnqueue delivers an already-reassembled DU to the application
// bound to portID, the path EFCP's Deliver callback above also uses.
func (n *NormalIPCP) DUEnqueue(portID uint32, d *du.DU) error {
	return n.kfa.Post(portID, d)
}

// PFFAdd installs (or replaces) the next-hop port-id for destAddr.
func (n *NormalIPCP) PFFAdd(destAddr uint64, nextHopPortID uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pff[destAddr] = nextHopPortID
}

// PFFRemove deletes destAddr's PFF entry, if any.
func (n *NormalIPCP) PFFRemove(destAddr uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.pff, destAddr)
}

// PFFDump returns a snapshot of the PFF for kipcm_pff_dump.
func (n *NormalIPCP) PFFDump() map[uint64]uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[uint64]uint32, len(n.pff))
	for k, v := range n.pff {
		out[k] = v
	}
	return out
}

// Connections lists the active port-id/cep-id bindings, for
// `rinactl conn dump`.
func (n *NormalIPCP) Connections() []ConnectionInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]ConnectionInfo, 0, len(n.bindings))
	for portID, cepID := range n.bindings {
		out = append(out, ConnectionInfo{PortID: portID, CEPID: cepID})
	}
	return out
}

// NextHop resolves destAddr's next-hop port-id via the PFF, returning
// ErrNoRoute when none is installed.
func (n *NormalIPCP) NextHop(destAddr uint64) (uint32, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	portID, ok := n.pff[destAddr]
	if !ok {
		return 0, ErrNoRoute
	}
	return portID, nil
}
