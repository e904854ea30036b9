package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// CAS is a minimal content-addressable storage interface for rate
// documents: canonical bag-of-cells bytes for payloads and chains, receipt
// bytes, and publisher-set policies.
//
// Contract:
// - Put MUST be idempotent and stored objects MUST be immutable.
// - The CID MUST be computed from the written bytes; callers supply
//   canonical bytes, the store never rewrites them.
// - Get MUST report an absent CID as ErrNotFound.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Sentinels shared by every adapter. Remote adapters map these across the
// wire so errors.Is works the same against a local or a gRPC-backed CAS.
var (
	// ErrNotFound reports an absent CID.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidCID reports a CID that is undefined or not the profile
	// adapters store under (CIDv1, raw codec, SHA-256).
	ErrInvalidCID = errors.New("storage: invalid cid")
	// ErrCIDMismatch reports stored bytes whose recomputed CID differs
	// from the requested one.
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	// ErrImmutable reports an attempt to overwrite an object with
	// different bytes under the same CID.
	ErrImmutable = errors.New("storage: object already stored with different bytes")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
