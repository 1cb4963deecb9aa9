package rmt

import "errors"

// ErrNoCEPDestination indicates Receive was handed a PDU with no
// cep-destination field set (e.g. a connectionless management PDU
// this minimal RMT does not route).
var ErrNoCEPDestination = errors.New("rmt: PDU carries no cep-destination")
