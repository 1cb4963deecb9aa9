package iodev

import "errors"

var (
	// ErrClosed indicates an operation on a DataDevice after Close.
	ErrClosed = errors.New("iodev: device closed")

	// ErrHandlerExists indicates RegisterHandler was called twice for
	// the same message type.
	ErrHandlerExists = errors.New("iodev: handler already registered for message type")

	// ErrNoHandler indicates Dispatch received a message type with no
	// registered handler.
	ErrNoHandler = errors.New("iodev: no handler registered for message type")
)
