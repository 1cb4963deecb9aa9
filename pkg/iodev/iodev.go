// Package iodev provides the Go-native replacement for the kernel's
// two user-facing devices: a per-flow data device (iodev.c) moving
// SDUs in and out of one port-id, and a control device (ctrldev.h)
// dispatching typed control messages to registered handlers. Where
// the kernel exposes these as misc character devices opened by
// user-space processes, a Go process has no syscall boundary to
// cross: DataDevice and ControlDevice are plain Go values handed
// directly to whatever goroutine owns a flow or a control session.
package iodev

import (
	"context"
	"sync"

	"github.com/rina-go/rinad/pkg/du"
)

// FlowIO is the subset of KIPCM a DataDevice needs: blocking SDU
// read/write bound to one port-id, the Go analogue of
// kipcm_du_write/kipcm_du_read.
type FlowIO interface {
	DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error
	DURead(ctx context.Context, portID uint32) (*du.DU, error)
	FlowDestroy(portID uint32) error
}

// DataDevice is the per-flow SDU channel a user-space process would
// open as /dev/rina-io, the Go analogue of iodev_priv bound to one
// port-id. SDUs, not byte streams: Write takes a whole DU and Read
// returns a whole DU, matching kipcm_du_write/kipcm_du_read's
// message-oriented contract rather than iodev_read's partial-read
// byte-stream accommodation (there being no user-space buffer size to
// split against in a Go caller).
type DataDevice struct {
	portID   uint32
	flows    FlowIO
	blocking bool

	mu     sync.Mutex
	closed bool
}

// NewDataDevice opens a data device bound to portID. blocking mirrors
// whether the device was opened with O_NONBLOCK in the source: false
// makes Write return immediately with ErrTryAgain instead of sleeping
// while the flow's window is closed.
func NewDataDevice(portID uint32, flows FlowIO, blocking bool) *DataDevice {
	return &DataDevice{portID: portID, flows: flows, blocking: blocking}
}

// Write hands one SDU down to the bound flow, the Go analogue of
// iodev_write. It blocks (or returns kfa.ErrTryAgain) while the flow's
// window is closed, per the device's blocking mode, and can be
// cancelled via ctx while waiting.
func (d *DataDevice) Write(ctx context.Context, sdu *du.DU) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return d.flows.DUWrite(ctx, d.portID, sdu, d.blocking)
}

// Read blocks for the next SDU delivered on the bound flow, or until
// ctx is cancelled, the Go analogue of iodev_read's blocking path. A
// nil DU with a nil error means the flow reached EOF (deallocated).
func (d *DataDevice) Read(ctx context.Context) (*du.DU, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return d.flows.DURead(ctx, d.portID)
}

// Close deallocates the bound flow and marks the device unusable, the
// Go analogue of iodev_release.
func (d *DataDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.flows.FlowDestroy(d.portID)
}
