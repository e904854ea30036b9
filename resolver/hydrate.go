package resolver

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/compliance"
	"xdao.co/ratewire/pubset"
	"xdao.co/ratewire/ratewire"
	"xdao.co/ratewire/storage"
)

var ErrMissingCAS = errors.New("resolver: blob ref names a CID but no CAS was supplied")

// BlobRef names an input either inline or by CID. Set exactly one field;
// CID-form refs need a CAS on the request to fetch from.
type BlobRef struct {
	Bytes []byte
	CID   cid.Cid
}

// ResolveRequestCAS is a resolver request whose inputs may arrive as CIDs.
//
// Supply either one CAS or an ordered CASAdapters slice, never both. With
// adapters, fetches try each in slice order, so results never depend on map
// iteration or any other source of randomness.
type ResolveRequestCAS struct {
	Chain  BlobRef
	Policy BlobRef
	At     uint32

	Compliance compliance.ComplianceMode

	CAS         storage.CAS
	CASAdapters []storage.CAS
}

// ResolveOutputCAS bundles the resolution with the deterministic input
// identifiers used to bind a receipt to its inputs.
type ResolveOutputCAS struct {
	Resolution      *Resolution
	PublisherSetCID string
	ChainCID        string
}

func ResolveWithCAS(req ResolveRequestCAS) (*ResolveOutputCAS, error) {
	cas, err := req.backend()
	if err != nil {
		return nil, err
	}

	policyBytes, policyCID, err := req.Policy.hydrate(cas)
	if err != nil {
		return nil, fmt.Errorf("resolver: hydrate publisher set: %w", err)
	}
	set, err := pubset.ParseWithCompliance(policyBytes, req.Compliance)
	if err != nil {
		return nil, err
	}

	chainBytes, chainRawCID, err := req.Chain.hydrate(cas)
	if err != nil {
		return nil, fmt.Errorf("resolver: hydrate chain: %w", err)
	}

	res, err := resolveWithSet(chainBytes, set, req.At)
	if err != nil {
		return nil, err
	}
	if req.Compliance == compliance.Strict {
		if err := enforceStrictResolution(res); err != nil {
			return nil, err
		}
	}

	// Bind to the canonical chain CID; fall back to the raw input CID if the
	// chain bytes cannot be re-encoded.
	chainCID := chainRawCID.String()
	if doc, derr := ratewire.ChainDocumentFromBytes(chainBytes); derr == nil {
		chainCID = doc.CID
	}

	return &ResolveOutputCAS{
		Resolution:      res,
		PublisherSetCID: policyCID.String(),
		ChainCID:        chainCID,
	}, nil
}

// backend picks the CAS the request hydrates through. A nil return with a
// nil error means the request carries no CAS at all; hydration then only
// works for refs that already carry bytes.
func (req ResolveRequestCAS) backend() (storage.CAS, error) {
	switch {
	case req.CAS != nil && len(req.CASAdapters) > 0:
		return nil, errors.New("resolver: CAS and CASAdapters are mutually exclusive")
	case req.CAS != nil:
		return req.CAS, nil
	case len(req.CASAdapters) > 0:
		return storage.MultiCAS{Adapters: req.CASAdapters}, nil
	default:
		return nil, nil
	}
}

// hydrate returns the referenced bytes together with their canonical CID.
// Inline bytes are hashed in place; CID refs are fetched through cas and the
// fetched content is verified against the requested CID.
func (r BlobRef) hydrate(cas storage.CAS) ([]byte, cid.Cid, error) {
	switch {
	case len(r.Bytes) > 0 && r.CID.Defined():
		return nil, cid.Undef, errors.New("blob ref sets both bytes and CID")
	case len(r.Bytes) > 0:
		id, err := cidutil.CIDv1RawSHA256CID(r.Bytes)
		if err != nil {
			return nil, cid.Undef, err
		}
		return r.Bytes, id, nil
	case r.CID.Defined():
		if cas == nil {
			return nil, cid.Undef, ErrMissingCAS
		}
		b, err := cas.Get(r.CID)
		if err != nil {
			return nil, cid.Undef, err
		}
		id, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			return nil, cid.Undef, err
		}
		if !id.Equals(r.CID) {
			return nil, cid.Undef, storage.ErrCIDMismatch
		}
		return b, r.CID, nil
	default:
		return nil, cid.Undef, errors.New("blob ref sets neither bytes nor CID")
	}
}
