// Package delimiter implements the EFCP fragmentation/reassembly hook:
// splitting a user DU too large for one PDU into multiple fragments on
// send, and reassembling a run of fragments back into the original user
// DU on receive.
//
// The EFCP container constructs a Delimiter only when the DIF's constants
// enable fragmentation (dtconst.DataTransferConstants.DIFFragmentation)
// and the connection asks for a positive max fragment size; any other
// EFCP instance carries a nil delimiter and passes DUs through DTP
// unmodified.
package delimiter

import (
	"github.com/rina-go/rinad/pkg/du"
)

// moreFragments is the delimiter overhead byte prepended to every
// fragment: 1 while more fragments of the same user DU follow, 0 on the
// terminal fragment.
const (
	moreFragments byte = 1
	lastFragment  byte = 0
	overheadLen        = 1
)

// Delimiter holds the per-connection fragmentation state: the
// max_fragment_size bound on send, and the in-progress reassembly
// buffer for whatever fragment run is currently incomplete on receive.
//
// Not safe for concurrent use without external synchronization; callers
// are expected to serialize delimiter access the way the source
// serializes EFCP instance access (spec §4.3 EFCP instance).
type Delimiter struct {
	maxFragmentSize int

	// partial accumulates payload bytes for a reassembly in progress.
	// nil when no reassembly is in progress.
	partial []byte
}

// New creates a Delimiter bounding fragments to maxFragmentSize bytes of
// payload each (excluding the one-byte delimiter overhead).
func New(maxFragmentSize int) (*Delimiter, error) {
	if maxFragmentSize <= overheadLen {
		return nil, ErrFragmentSizeTooSmall
	}
	return &Delimiter{maxFragmentSize: maxFragmentSize}, nil
}

// Fragment splits in's payload into one or more DUs, each carrying at
// most max_fragment_size payload bytes plus the one-byte delimiter
// overhead identifying whether more fragments follow. The input DU is
// consumed; ownership of the returned fragments passes to the caller
// (typically handed one-by-one to DTP's send path, spec §4.4 step 1).
func (d *Delimiter) Fragment(in *du.DU) ([]*du.DU, error) {
	payload := in.Data()
	if len(payload) == 0 {
		frag := du.Create(overheadLen)
		frag.Data()[0] = lastFragment
		return []*du.DU{frag}, nil
	}

	var out []*du.DU
	for offset := 0; offset < len(payload); offset += d.maxFragmentSize {
		end := offset + d.maxFragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]

		frag := du.Create(overheadLen + len(chunk))
		data := frag.Data()
		if end < len(payload) {
			data[0] = moreFragments
		} else {
			data[0] = lastFragment
		}
		copy(data[overheadLen:], chunk)
		out = append(out, frag)
	}
	return out, nil
}

// ProcessUDF consumes one incoming fragment and reports any user DUs
// that are now complete. Most calls return an empty slice (the fragment
// extended an in-progress reassembly but didn't complete it); a
// terminal fragment returns exactly one reassembled DU. The incoming DU
// is consumed.
func (d *Delimiter) ProcessUDF(in *du.DU) ([]*du.DU, error) {
	payload := in.Data()
	if len(payload) < overheadLen {
		return nil, ErrEmptyFragment
	}

	flag := payload[0]
	body := payload[overheadLen:]
	d.partial = append(d.partial, body...)

	if flag == moreFragments {
		return nil, nil
	}

	reassembled := du.Create(len(d.partial))
	copy(reassembled.Data(), d.partial)
	d.partial = nil
	return []*du.DU{reassembled}, nil
}

// Pending reports whether a reassembly is currently in progress (useful
// for EFCP instance teardown: a delimiter with pending bytes was mid-PDU
// when its connection was deallocated).
func (d *Delimiter) Pending() bool {
	return len(d.partial) > 0
}

// Reset discards any in-progress reassembly, e.g. after detecting a
// sequence gap that makes recovering the interrupted user DU impossible.
func (d *Delimiter) Reset() {
	d.partial = nil
}
