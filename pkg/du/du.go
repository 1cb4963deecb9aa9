// Package du implements the Data Unit buffer: a head/tail-resizable PDU
// buffer with shared, refcounted clone semantics, carrying an optional
// attached PCI view over its own bytes.
package du

import (
	"sync/atomic"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/pci"
)

// Default head/tail reservations, mirroring MAX_PCIS_LEN (room for the
// largest control PCI layout, five times over) and MAX_TAIL_LEN.
const (
	defaultHeadroom = 40 * 5
	defaultTailroom = 20
)

// sharedBuffer is the refcounted backing array one or more DU clones
// share. Only Dup creates a second reference; a freshly Created DU owns
// its buffer exclusively.
type sharedBuffer struct {
	raw  []byte
	refs int32
}

func newSharedBuffer(size int) *sharedBuffer {
	return &sharedBuffer{raw: make([]byte, size), refs: 1}
}

func (b *sharedBuffer) retain() {
	atomic.AddInt32(&b.refs, 1)
}

// release decrements the refcount and reports whether this was the last
// reference (i.e. whether the caller was the sole owner).
func (b *sharedBuffer) release() bool {
	return atomic.AddInt32(&b.refs, -1) == 0
}

// DU is a single buffer view: start/end bound the current data region
// within the shared backing array, pciStart marks where an attached PCI's
// header begins (or -1 if none attached). Growing the head preserves the
// PCI's position when one is attached, matching the source's
// PDU_HEAD_GROW_WITH_PCI behavior.
type DU struct {
	buf      *sharedBuffer
	start    int
	end      int
	pciStart int // -1 when no PCI attached

	cfg   *dtconst.DataTransferConstants
	table *pci.OffsetTable
}

// IsOk reports whether du is non-nil and has a backing buffer, mirroring
// is_du_ok.
func IsOk(d *DU) bool {
	return d != nil && d.buf != nil
}

// Create allocates a DU with default headroom, dataLen bytes of payload,
// and default tailroom. No PCI is attached.
func Create(dataLen int) *DU {
	buf := newSharedBuffer(defaultHeadroom + dataLen + defaultTailroom)
	return &DU{
		buf:      buf,
		start:    defaultHeadroom,
		end:      defaultHeadroom + dataLen,
		pciStart: -1,
	}
}

// FromWire wraps bytes received off the wire in a DU with default
// tailroom and no headroom, configured with dt/table so Decap can parse
// the PCI at its head. The byte slice is copied; the caller's slice may
// be reused immediately after FromWire returns.
func FromWire(data []byte, dt *dtconst.DataTransferConstants, table *pci.OffsetTable) *DU {
	buf := newSharedBuffer(len(data) + defaultTailroom)
	copy(buf.raw, data)
	return &DU{
		buf:      buf,
		start:    0,
		end:      len(data),
		pciStart: -1,
		cfg:      dt,
		table:    table,
	}
}

// CreateEFCP allocates a DU holding only a PCI header sized for pduType,
// with default headroom before it and default tailroom after — the
// starting point for building a control PDU (FC, ACK, CACK, RENDEZVOUS)
// before any payload is appended.
func CreateEFCP(pduType pci.PDUType, dt *dtconst.DataTransferConstants, table *pci.OffsetTable) (*DU, error) {
	if table == nil {
		return nil, ErrNilConfig
	}
	pciLen, err := table.Size(pduType)
	if err != nil {
		return nil, err
	}
	if pciLen <= 0 {
		return nil, ErrInvalidPCILen
	}

	buf := newSharedBuffer(defaultHeadroom + defaultTailroom)
	d := &DU{
		buf:      buf,
		start:    defaultHeadroom - pciLen,
		end:      defaultHeadroom,
		pciStart: defaultHeadroom - pciLen,
		cfg:      dt,
		table:    table,
	}
	return d, nil
}

// Configure attaches the Data-Transfer Constants profile and PCI offset
// table a DU created via Create needs before Encap or Decap can be
// called on it. A DU built via CreateEFCP or FromWire is already
// configured and never needs this.
func (d *DU) Configure(dt *dtconst.DataTransferConstants, table *pci.OffsetTable) {
	d.cfg = dt
	d.table = table
}

// Data returns the current data region: the PCI header (if encap'd) plus
// payload, or payload alone after Decap has pulled the header off.
func (d *DU) Data() []byte {
	return d.buf.raw[d.start:d.end]
}

// Len returns the length of the current data region.
func (d *DU) Len() int {
	return d.end - d.start
}

// PCI returns a view over the attached PCI header, or nil if none is
// attached.
func (d *DU) PCI() *pci.PCI {
	if d.pciStart < 0 || d.table == nil {
		return nil
	}
	return pci.New(d.buf.raw[d.pciStart:], d.table)
}

// HasPCI reports whether a PCI handle is currently attached.
func (d *DU) HasPCI() bool {
	return d.pciStart >= 0
}

// Encap reserves pci_calculate_size(pduType) bytes by pushing the data
// start backward and attaches a PCI handle over them.
func (d *DU) Encap(pduType pci.PDUType) error {
	if d.table == nil {
		return ErrNilConfig
	}
	pciLen, err := d.table.Size(pduType)
	if err != nil {
		return err
	}
	if pciLen <= 0 {
		return ErrInvalidPCILen
	}
	if err := d.HeadGrow(pciLen); err != nil {
		return err
	}
	d.pciStart = d.start
	return nil
}

// Decap reads the PCI type off the head of the buffer, validates it,
// trims any trailing padding introduced by lower layers down to the
// PCI's declared total length, and pulls the header off so Data returns
// payload only. The returned PCI remains valid (it views bytes still
// inside the backing array) for callers that need to read header fields
// after decap.
func (d *DU) Decap() (*pci.PCI, error) {
	if d.table == nil {
		return nil, ErrNilConfig
	}
	d.pciStart = d.start
	p := pci.New(d.buf.raw[d.start:], d.table)

	pduType := p.Type()
	if !pduType.IsOk() {
		return nil, ErrInvalidPDUType
	}

	pciLen, err := d.table.Size(pduType)
	if err != nil || pciLen <= 0 {
		return nil, ErrInvalidPCILen
	}

	if declared := p.Length(); d.Len() > declared && declared > 0 {
		if err := d.TailShrink(d.Len() - declared); err != nil {
			return nil, err
		}
	}

	if err := d.HeadShrink(pciLen); err != nil {
		return nil, err
	}
	return p, nil
}

// HeadGrow reserves bytes more headroom, expanding and copying the
// backing array if there isn't enough room already. When a PCI handle is
// attached with header bytes preceding the current data start (the
// relay case — Decap advanced past it without detaching it), those bytes
// are preserved ahead of the newly reserved room.
func (d *DU) HeadGrow(bytes int) error {
	offset := 0
	if d.pciStart >= 0 {
		offset = d.start - d.pciStart
	}

	pivot := d.start
	if d.pciStart >= 0 && d.pciStart < pivot {
		pivot = d.pciStart
	}
	if pivot < bytes {
		d.growBuffer(bytes, 0)
	}

	if d.pciStart < 0 || offset <= 0 {
		d.start -= bytes
	} else {
		d.start -= offset + bytes
	}
	return nil
}

// HeadShrink pulls bytes off the front of the data region. If a PCI
// handle is attached, it is repositioned to the new data start, matching
// the source's skb_pull-then-reassign-pci.h behavior.
func (d *DU) HeadShrink(bytes int) error {
	d.start += bytes
	if d.pciStart >= 0 {
		d.pciStart = d.start
	}
	return nil
}

// TailGrow extends the data region by bytes, expanding the backing
// array if there isn't enough tailroom.
func (d *DU) TailGrow(bytes int) error {
	tailroom := cap(d.buf.raw) - d.end
	if tailroom < bytes {
		d.growBuffer(0, bytes)
	}
	d.end += bytes
	return nil
}

// TailShrink trims bytes off the back of the data region.
func (d *DU) TailShrink(bytes int) error {
	d.end -= bytes
	return nil
}

// growBuffer reallocates the backing array so that at least minHeadroom
// bytes precede the earlier of start/pciStart and at least minTailroom
// bytes follow end, copying the current data region (and any preceding
// PCI bytes) across and repointing start/end/pciStart into the new array.
func (d *DU) growBuffer(minHeadroom, minTailroom int) {
	oldLo := d.start
	if d.pciStart >= 0 && d.pciStart < oldLo {
		oldLo = d.pciStart
	}
	oldHi := d.end

	newHeadroom := minHeadroom + defaultHeadroom
	newTailroom := minTailroom + defaultTailroom
	newBuf := newSharedBuffer(newHeadroom + (oldHi - oldLo) + newTailroom)
	copy(newBuf.raw[newHeadroom:], d.buf.raw[oldLo:oldHi])

	shift := newHeadroom - oldLo
	d.start += shift
	d.end += shift
	if d.pciStart >= 0 {
		d.pciStart += shift
	}

	oldBuf := d.buf
	d.buf = newBuf
	oldBuf.release()
}

// Dup clones du: the returned DU shares the same backing array (the
// refcount is bumped) but owns its own start/end/pciStart, so growing or
// shrinking one clone never affects the other's view.
func (d *DU) Dup() *DU {
	d.buf.retain()
	clone := *d
	return &clone
}

// Destroy releases du's reference to its backing buffer. Go's garbage
// collector reclaims the array once every clone has released it; Destroy
// exists so call sites mirror the source's explicit du_destroy and so
// reference-counting invariants (drain before free) are testable.
func (d *DU) Destroy() {
	if d.buf == nil {
		return
	}
	d.buf.release()
	d.buf = nil
}

// RefCount reports the current number of live references to du's
// backing buffer. Exposed for tests exercising clone/destroy invariants.
func (d *DU) RefCount() int32 {
	return atomic.LoadInt32(&d.buf.refs)
}
