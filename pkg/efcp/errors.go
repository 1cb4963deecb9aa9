package efcp

import "errors"

var (
	// ErrConnectionNotFound indicates no instance is bound to the
	// requested cep-id.
	ErrConnectionNotFound = errors.New("efcp: no instance bound to cep-id")

	// ErrDeallocated indicates a write/receive was attempted on an
	// instance already marked DEALLOCATED.
	ErrDeallocated = errors.New("efcp: instance is deallocated")

	// ErrCEPIDExhausted indicates the CIDM has no free cep-id left.
	ErrCEPIDExhausted = errors.New("efcp: cep-id space exhausted")
)
