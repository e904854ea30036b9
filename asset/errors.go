package asset

import "errors"

var (
	// ErrUnknownTag is returned when decoding meets a wire tag outside the
	// closed variant set.
	ErrUnknownTag = errors.New("asset: unrecognized wire tag")

	// ErrInvalidKey is returned by FromKey for malformed textual keys.
	ErrInvalidKey = errors.New("asset: invalid key")

	// ErrUnsupportedComparison is returned when two extra currencies are
	// ordered against each other. The gap is deliberate: the ledger
	// defines no order for them.
	ErrUnsupportedComparison = errors.New("asset: extra currencies have no defined order")
)
