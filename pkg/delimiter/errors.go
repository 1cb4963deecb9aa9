package delimiter

import "errors"

var (
	// ErrFragmentSizeTooSmall indicates max_fragment_size leaves no room
	// for the one-byte delimiter overhead.
	ErrFragmentSizeTooSmall = errors.New("delimiter: max_fragment_size too small for delimiter overhead")

	// ErrEmptyFragment indicates process_udf was handed a DU with no
	// payload at all (not even the overhead byte).
	ErrEmptyFragment = errors.New("delimiter: fragment carries no delimiter byte")
)
