package ipcp

import "errors"

var (
	// ErrNotBound indicates a DUWrite/DUEnqueue arrived for a port-id with
	// no connection or peer binding in place.
	ErrNotBound = errors.New("ipcp: port-id has no binding")

	// ErrAlreadyBound indicates a bind attempt for a port-id already in use.
	ErrAlreadyBound = errors.New("ipcp: port-id already bound")

	// ErrNoRoute indicates the PFF has no next-hop entry for a destination
	// address.
	ErrNoRoute = errors.New("ipcp: no PFF entry for destination address")

	// ErrWrongKind indicates a Shim-only or Normal-only operation was
	// attempted against the other variant.
	ErrWrongKind = errors.New("ipcp: operation not supported by this IPCP kind")
)
