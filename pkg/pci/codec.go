// Package pci implements the table-driven Protocol Control Information
// codec: reading and writing header fields at offsets computed once per
// DIF configuration, for each of the PDU types a DIF exchanges (DT, MGMT,
// FC, ACK, ACK+FC, CACK, RENDEZVOUS, NACK, NACK+FC).
package pci

import (
	"encoding/binary"
)

// PCI is a view into a byte slice: a pointer to where the header starts
// plus the offset table needed to locate its fields. It never copies or
// owns the underlying buffer — the DU buffer that embeds a PCI decides
// its lifetime.
type PCI struct {
	h     []byte
	table *OffsetTable
}

// New wraps h (the header region of a DU buffer, starting at the PCI's
// first byte) using table to locate fields. h must be at least as long as
// table.Size of whatever type gets written into it.
func New(h []byte, table *OffsetTable) *PCI {
	return &PCI{h: h, table: table}
}

// Bytes returns the underlying header region.
func (p *PCI) Bytes() []byte {
	return p.h
}

// IsOk reports whether p has a header attached and carries a recognised
// PDU type with positive length, mirroring pci_is_ok.
func (p *PCI) IsOk() bool {
	return p != nil && p.h != nil && p.Length() > 0 && p.Type().IsOk()
}

func getWidth(h []byte, offset, width int) (uint64, error) {
	if offset < 0 || offset+width > len(h) {
		return 0, ErrBufferTooShort
	}
	switch width {
	case 1:
		return uint64(h[offset]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(h[offset:])), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(h[offset:])), nil
	case 8:
		return binary.BigEndian.Uint64(h[offset:]), nil
	default:
		return 0, ErrInvalidFieldWidth
	}
}

func setWidth(h []byte, offset, width int, val uint64) error {
	if offset < 0 || offset+width > len(h) {
		return ErrBufferTooShort
	}
	switch width {
	case 1:
		h[offset] = byte(val)
	case 2:
		binary.BigEndian.PutUint16(h[offset:], uint16(val))
	case 4:
		binary.BigEndian.PutUint32(h[offset:], uint32(val))
	case 8:
		binary.BigEndian.PutUint64(h[offset:], val)
	default:
		return ErrInvalidFieldWidth
	}
	return nil
}

func (p *PCI) get(f fieldIndex, width uint8) (uint64, error) {
	return getWidth(p.h, p.table.offset[f], int(width))
}

func (p *PCI) set(f fieldIndex, width uint8, val uint64) error {
	return setWidth(p.h, p.table.offset[f], int(width), val)
}

// ---- Base getters/setters, present on every PDU type ----

// Version returns the PCI wire-format version.
func (p *PCI) Version() (uint8, error) {
	v, err := getWidth(p.h, p.table.offset[fieldBaseVersion], versionSize)
	return uint8(v), err
}

// VersionSet writes the PCI wire-format version.
func (p *PCI) VersionSet(v uint8) error {
	return setWidth(p.h, p.table.offset[fieldBaseVersion], versionSize, uint64(v))
}

// Type returns the PDU type byte.
func (p *PCI) Type() PDUType {
	v, err := getWidth(p.h, p.table.offset[fieldBaseType], typeSize)
	if err != nil {
		return PDUTypeNone
	}
	return PDUType(v)
}

// TypeSet writes the PDU type byte.
func (p *PCI) TypeSet(t PDUType) error {
	return setWidth(p.h, p.table.offset[fieldBaseType], typeSize, uint64(t))
}

// Flags returns the PDU flags byte.
func (p *PCI) Flags() (uint8, error) {
	v, err := getWidth(p.h, p.table.offset[fieldBaseFlags], flagsSize)
	return uint8(v), err
}

// FlagsSet writes the PDU flags byte.
func (p *PCI) FlagsSet(flags uint8) error {
	return setWidth(p.h, p.table.offset[fieldBaseFlags], flagsSize, uint64(flags))
}

// Destination returns the destination address.
func (p *PCI) Destination() (uint64, error) {
	return p.get(fieldBaseDstAddr, p.table.dt.AddressWidth)
}

// DestinationSet writes the destination address.
func (p *PCI) DestinationSet(addr uint64) error {
	return p.set(fieldBaseDstAddr, p.table.dt.AddressWidth, addr)
}

// Source returns the source address.
func (p *PCI) Source() (uint64, error) {
	return p.get(fieldBaseSrcAddr, p.table.dt.AddressWidth)
}

// SourceSet writes the source address.
func (p *PCI) SourceSet(addr uint64) error {
	return p.set(fieldBaseSrcAddr, p.table.dt.AddressWidth, addr)
}

// QosID returns the qos-id field.
func (p *PCI) QosID() (uint64, error) {
	return p.get(fieldBaseQosID, p.table.dt.QosIDWidth)
}

// QosIDSet writes the qos-id field.
func (p *PCI) QosIDSet(qosID uint64) error {
	return p.set(fieldBaseQosID, p.table.dt.QosIDWidth, qosID)
}

// CEPSource returns the source connection-endpoint-id.
func (p *PCI) CEPSource() (uint64, error) {
	return p.get(fieldBaseSrcCEP, p.table.dt.CepIDWidth)
}

// CEPSourceSet writes the source connection-endpoint-id.
func (p *PCI) CEPSourceSet(cepID uint64) error {
	return p.set(fieldBaseSrcCEP, p.table.dt.CepIDWidth, cepID)
}

// CEPDestination returns the destination connection-endpoint-id.
func (p *PCI) CEPDestination() (uint64, error) {
	return p.get(fieldBaseDstCEP, p.table.dt.CepIDWidth)
}

// CEPDestinationSet writes the destination connection-endpoint-id.
func (p *PCI) CEPDestinationSet(cepID uint64) error {
	return p.set(fieldBaseDstCEP, p.table.dt.CepIDWidth, cepID)
}

// Length returns the PDU length field.
func (p *PCI) Length() int {
	v, err := p.get(fieldBaseLen, p.table.dt.LengthWidth)
	if err != nil {
		return 0
	}
	return int(v)
}

// LengthSet writes the PDU length field.
func (p *PCI) LengthSet(length int) error {
	return p.set(fieldBaseLen, p.table.dt.LengthWidth, uint64(length))
}

// Format writes the base header common to every PDU type, mirroring
// pci_format. It does not populate the control fields specific to FC, ACK,
// CACK, and RENDEZVOUS PDUs — callers use the typed setters for those
// after Format.
func (p *PCI) Format(srcCEP, dstCEP, srcAddr, dstAddr uint64, seqNum uint64, qosID uint64, flags uint8, length int, pduType PDUType) error {
	if err := p.VersionSet(Version); err != nil {
		return err
	}
	if err := p.TypeSet(pduType); err != nil {
		return err
	}
	if err := p.CEPDestinationSet(dstCEP); err != nil {
		return err
	}
	if err := p.CEPSourceSet(srcCEP); err != nil {
		return err
	}
	if err := p.DestinationSet(dstAddr); err != nil {
		return err
	}
	if err := p.SourceSet(srcAddr); err != nil {
		return err
	}
	if err := p.SequenceNumberSet(seqNum); err != nil {
		return err
	}
	if err := p.QosIDSet(qosID); err != nil {
		return err
	}
	if err := p.FlagsSet(flags); err != nil {
		return err
	}
	return p.LengthSet(length)
}
