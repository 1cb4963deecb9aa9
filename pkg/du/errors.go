package du

import "errors"

var (
	// ErrNoPCI indicates an operation that requires an attached PCI was
	// called on a DU that has none (pci.h == NULL in the source).
	ErrNoPCI = errors.New("du has no attached pci")

	// ErrInvalidPDUType indicates decap read a PCI type the offset table
	// has no size for.
	ErrInvalidPDUType = errors.New("pdu has invalid or unrecognised type")

	// ErrInvalidPCILen indicates the computed PCI size for a type was
	// zero or negative.
	ErrInvalidPCILen = errors.New("pdu has invalid pci length")

	// ErrNilConfig indicates CreateEFCP or Encap was called without a
	// configured offset table.
	ErrNilConfig = errors.New("du requires a configured pci offset table")
)
