// Package efcp implements the EFCP instance and its container: the
// cep-id-keyed map of connections, each owning one DTP, an optional
// DTCP, and an optional delimiter, with the pending-ops drain-before-
// destroy invariant described in spec §4.7.
package efcp

import (
	"context"
	"sync"

	"github.com/rina-go/rinad/pkg/connection"
	"github.com/rina-go/rinad/pkg/delimiter"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/dtcp"
	"github.com/rina-go/rinad/pkg/dtp"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/idalloc"
	"github.com/rina-go/rinad/pkg/metrics"
	"github.com/rina-go/rinad/pkg/pci"
)

// State mirrors the instance's two-valued lifecycle in spec §4.3.
type State int32

const (
	StateAllocated State = iota + 1
	StateDeallocated
)

// ConnectionSpec bundles everything CreateConnection needs to build one
// connection's DTP/DTCP/delimiter stack.
type ConnectionSpec struct {
	PortID             uint32
	SourceAddress      uint64
	DestinationAddress uint64
	QosID              uint64

	// MaxFragmentSize > 0 enables fragmentation for this connection when
	// the DIF's constants set DIFFragmentation.
	MaxFragmentSize int

	// DTCPConfig non-nil enables DTCP for this connection.
	DTCPConfig *dtcp.Config

	DTPConfig    dtp.Config
	Deliver      dtp.Deliverer
	DisableWrite dtp.DisableWrite
}

// Instance owns one connection: its DTP state machine and, optionally,
// a DTCP instance and a delimiter.
type Instance struct {
	Connection *connection.Connection
	DTP        *dtp.DTP
	DTCP       *dtcp.DTCP // nil when disabled
	Delimiter  *delimiter.Delimiter // nil when disabled

	mu         sync.Mutex
	state      State
	pendingOps int
	drained    chan struct{}
	closeOnce  sync.Once
}

func newInstance(conn *connection.Connection, d *dtp.DTP, c *dtcp.DTCP, delim *delimiter.Delimiter) *Instance {
	return &Instance{
		Connection: conn,
		DTP:        d,
		DTCP:       c,
		Delimiter:  delim,
		state:      StateAllocated,
		drained:    make(chan struct{}),
	}
}

func (i *Instance) acquire() {
	i.mu.Lock()
	i.pendingOps++
	i.mu.Unlock()
}

// release decrements pending-ops and, if the instance is deallocated
// and has now drained to zero, signals Destroy to proceed.
func (i *Instance) release() {
	i.mu.Lock()
	i.pendingOps--
	drained := i.state == StateDeallocated && i.pendingOps <= 0
	i.mu.Unlock()
	if drained {
		i.closeOnce.Do(func() { close(i.drained) })
	}
}

// State reports the instance's current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Container is the EFCP container: the cep-id → instance map, guarded
// by its own lock, plus the CIDM that hands out cep-ids.
type Container struct {
	mu        sync.RWMutex
	cidm      *idalloc.CIDM
	instances map[uint32]*Instance

	dt    *dtconst.DataTransferConstants
	table *pci.OffsetTable
	send  dtp.Sender

	dtpMetrics  metrics.DTPMetrics
	dtcpMetrics metrics.DTCPMetrics
}

// SetMetrics attaches DTP/DTCP metrics collectors that every connection
// created afterward by CreateConnection is wired up with; either may be
// nil. Connections already created are unaffected — call before
// CreateConnection, the way the source wires ipcp config once at
// assign-to-dif time.
func (c *Container) SetMetrics(dtpMetrics metrics.DTPMetrics, dtcpMetrics metrics.DTCPMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dtpMetrics = dtpMetrics
	c.dtcpMetrics = dtcpMetrics
}

// NewContainer creates an EFCP container for one IPCP instance. send is
// the routing/multiplexing collaborator every connection's DTP hands
// formatted PDUs to.
func NewContainer(dt *dtconst.DataTransferConstants, table *pci.OffsetTable, send dtp.Sender) *Container {
	return &Container{
		cidm:      idalloc.NewCIDM(dt.CepIDWidth),
		instances: make(map[uint32]*Instance),
		dt:        dt,
		table:     table,
		send:      send,
	}
}

// CreateConnection allocates a cep-id via the CIDM and builds the
// DTP/DTCP/delimiter stack for one connection, mirroring spec §4.7's
// connection creation bullet. Returns the newly allocated source cep-id.
func (c *Container) CreateConnection(spec ConnectionSpec) (uint32, error) {
	cepID := c.cidm.Allocate()
	if idalloc.IsBad(cepID) {
		return idalloc.BadID, ErrCEPIDExhausted
	}

	conn := connection.New(spec.PortID)
	conn.SourceAddress = spec.SourceAddress
	conn.DestinationAddress = spec.DestinationAddress
	conn.QosID = spec.QosID
	conn.SourceCEPID = cepID

	var delim *delimiter.Delimiter
	if spec.MaxFragmentSize > 0 && c.dt.DIFFragmentation {
		d, err := delimiter.New(spec.MaxFragmentSize)
		if err != nil {
			c.cidm.Release(cepID)
			return idalloc.BadID, err
		}
		delim = d
	}

	var ctrl *dtcp.DTCP
	if spec.DTCPConfig != nil {
		ctrl = dtcp.New(conn, c.dt, c.table, *spec.DTCPConfig)
	}

	dtpInst := dtp.New(conn, c.dt, c.table, delim, ctrl, c.send, spec.Deliver, spec.DisableWrite, spec.DTPConfig)
	instance := newInstance(conn, dtpInst, ctrl, delim)

	c.mu.Lock()
	dtpInst.SetMetrics(c.dtpMetrics)
	if ctrl != nil {
		ctrl.SetMetrics(c.dtcpMetrics)
	}
	c.instances[cepID] = instance
	c.mu.Unlock()

	return cepID, nil
}

func (c *Container) lookup(cepID uint32) (*Instance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instances[cepID]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return inst, nil
}

// Write looks up the instance by cep-id, refuses a deallocated
// instance, and runs the DTP send path under the pending-ops envelope
// described in spec §4.7. blocking is forwarded to DTP.Send, which
// consults it only if the connection's window is closed and its
// closed-window queue is at capacity.
func (c *Container) Write(ctx context.Context, cepID uint32, payload *du.DU, blocking bool) error {
	inst, err := c.lookup(cepID)
	if err != nil {
		return err
	}
	inst.acquire()
	defer inst.release()

	if inst.State() == StateDeallocated {
		return ErrDeallocated
	}
	return inst.DTP.Send(ctx, payload, blocking)
}

// Receive looks up the instance by cep-id and runs the DTP/DTCP receive
// path, routing control PDUs to DTCP and data PDUs to DTP, under the
// same pending-ops envelope as Write.
func (c *Container) Receive(cepID uint32, raw *du.DU) error {
	inst, err := c.lookup(cepID)
	if err != nil {
		return err
	}
	inst.acquire()
	defer inst.release()

	if inst.State() == StateDeallocated {
		return ErrDeallocated
	}

	p, derr := inst.DTP.Receive(raw)
	if derr == dtp.ErrControlPDU {
		if inst.DTCP == nil {
			return derr
		}
		_, err := inst.DTCP.CommonRcvControl(p)
		return err
	}
	return derr
}

// Destroy marks the instance DEALLOCATED and removes it from the map
// immediately; if operations were in flight, it blocks until they
// drain, then tears down the DTP's timers and releases the cep-id back
// to the CIDM, mirroring spec §4.7's destroy bullet.
func (c *Container) Destroy(cepID uint32) error {
	c.mu.Lock()
	inst, ok := c.instances[cepID]
	if !ok {
		c.mu.Unlock()
		return ErrConnectionNotFound
	}
	delete(c.instances, cepID)
	c.mu.Unlock()

	inst.mu.Lock()
	inst.state = StateDeallocated
	drained := inst.pendingOps <= 0
	inst.mu.Unlock()

	if !drained {
		<-inst.drained
	}

	inst.DTP.Drain()
	c.cidm.Release(cepID)
	return nil
}

// AddressChange walks every instance and updates its connection's
// source address, mirroring efcp_imap_address_change.
func (c *Container) AddressChange(newAddress uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, inst := range c.instances {
		inst.Connection.SourceAddress = newAddress
	}
}

// Len reports the number of live connections, useful for tests and
// metrics.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}
