package storage

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
)

// Composite adapters. MultiCAS spreads reads over several stores without
// duplicating writes; ReplicatingCAS duplicates writes and proves every
// backend agreed on the CID. Both fail fast on real backend errors instead
// of masking them as misses.

var (
	_ CAS = MultiCAS{}
	_ CAS = (*ReplicatingCAS)(nil)
)

// MultiCAS is an ordered read-fallback over several adapters.
//
// Callers supply a fixed adapter order; iteration never goes through a map,
// so retrieval strategy stays deterministic. Writes land only on the first
// adapter.
type MultiCAS struct {
	Adapters []CAS
}

func (m MultiCAS) Put(data []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("storage: MultiCAS built with zero adapters")
	}
	return m.Adapters[0].Put(data)
}

func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	for _, cas := range m.Adapters {
		data, err := cas.Get(id)
		switch {
		case err == nil:
			return data, nil
		case IsNotFound(err):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(id) {
			return true
		}
	}
	return false
}

// NamedCAS pairs a CAS with a stable label for per-backend reporting.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every object to all backends.
//
// Put succeeds only when each backend stored the bytes under the same CID;
// a disagreeing backend surfaces as ErrCIDMismatch. Reads fall back in
// backend order.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

// PutAll writes data to every backend and reports the CID each one returned,
// keyed by backend name. The first return is the canonical CID computed from
// the bytes themselves.
func (r ReplicatingCAS) PutAll(data []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, nil, errors.New("storage: ReplicatingCAS built with zero backends")
	}
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}

	report := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: backend %q carries a nil CAS", b.Name)
		}
		got, err := b.CAS.Put(data)
		if err != nil {
			return cid.Undef, nil, err
		}
		report[b.Name] = got
		if got != want {
			return cid.Undef, report, ErrCIDMismatch
		}
	}
	return want, report, nil
}

func (r ReplicatingCAS) Put(data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(data)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		data, err := b.CAS.Get(id)
		switch {
		case err == nil:
			return data, nil
		case IsNotFound(err):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
