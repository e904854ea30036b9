package cell

import "errors"

// Sentinel errors reported by builders, slices, and the byte codec.
var (
	// ErrOverflow is returned when content would exceed a cell's bit capacity.
	ErrOverflow = errors.New("cell: bit capacity exceeded")

	// ErrRefOverflow is returned when content would exceed a cell's reference
	// capacity.
	ErrRefOverflow = errors.New("cell: reference capacity exceeded")

	// ErrUnderflow is returned when a read runs past the available bits.
	ErrUnderflow = errors.New("cell: slice exhausted")

	// ErrRefUnderflow is returned when a read runs past the available
	// references.
	ErrRefUnderflow = errors.New("cell: references exhausted")

	// ErrValueRange is returned when a value does not fit its field, or a
	// field width is itself invalid.
	ErrValueRange = errors.New("cell: value out of range")

	// ErrNonCanonical is returned when decoded content violates a canonical
	// encoding rule.
	ErrNonCanonical = errors.New("cell: non-canonical encoding")
)
