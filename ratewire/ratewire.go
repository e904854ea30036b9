// Package ratewire implements the canonical model and wire codec for
// time-bounded, signed exchange-rate announcements: weighted allocations
// over tradable assets, the rate payload binding them to an expiration, and
// the recursively linked chain of independently signed payloads. Encoded
// forms are cell trees serialized as canonical bag-of-cells bytes, so equal
// values always carry equal bytes and a stable digest.
package ratewire

// Bounded-tree layer capacities for the payload's two sequences. A coins
// field occupies at most 124 bits, so seven fit inline alongside the
// overflow reference; assets are stored one per referenced cell, leaving
// the fourth reference slot for the overflow.
const (
	coinsPerCell  = 7
	assetsPerCell = 3
)

// SignatureSize is the exact chain signature length in bytes.
const SignatureSize = 64
