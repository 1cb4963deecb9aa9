package pci

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPDUType indicates an operation was attempted against a PDU
	// type the codec has no offset-table entry for.
	ErrUnknownPDUType = errors.New("unknown PDU type")

	// ErrFieldNotDefined indicates a getter/setter was called for a field
	// that this PDU type does not carry (e.g. sndr_rate on an ACK PDU).
	ErrFieldNotDefined = errors.New("field not defined for this PDU type")

	// ErrBufferTooShort indicates the backing buffer is shorter than the
	// offset plus field width the codec needs to read or write.
	ErrBufferTooShort = errors.New("buffer too short for PCI field")

	// ErrInvalidFieldWidth indicates a configured field width is not one
	// of the widths the codec knows how to encode (1, 2, 4, or 8 bytes).
	ErrInvalidFieldWidth = errors.New("invalid field width")
)

// FieldError wraps a field-access sentinel with the operation and PDU
// type that triggered it. Op names the field accessor; the control
// accessors leave Field at zero.
type FieldError struct {
	Op    string
	Type  PDUType
	Field fieldIndex
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("pci %s: %s (type=%s, field=%d)", e.Op, e.Err, e.Type, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func newFieldError(op string, t PDUType, f fieldIndex, err error) *FieldError {
	return &FieldError{Op: op, Type: t, Field: f, Err: err}
}
