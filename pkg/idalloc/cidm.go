package idalloc

// CIDM allocates connection-endpoint-ids, unique within one IPCP's EFCP
// container.
type CIDM struct {
	*Allocator
}

// NewCIDM creates a CIDM sized for the DIF's configured cep-id width.
func NewCIDM(cepIDWidth uint8) *CIDM {
	return &CIDM{Allocator: NewForWidth(cepIDWidth)}
}

// PIDM allocates port-ids, unique within one host and handed to user
// space as the flow identifier.
type PIDM struct {
	*Allocator
}

// NewPIDM creates a PIDM sized for the DIF's configured port-id width.
func NewPIDM(portIDWidth uint8) *PIDM {
	return &PIDM{Allocator: NewForWidth(portIDWidth)}
}
