package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// NewCAS builds an empty CAS for one test. Instances must not share state
// across tests.
type NewCAS func(t *testing.T) storage.CAS

// conformancePayloads are the byte shapes every adapter must round-trip:
// plain text, a single byte, and binary with interior zeros.
var conformancePayloads = [][]byte{
	[]byte("exchange-rate chain bytes"),
	{0x42},
	{0xb5, 0xee, 0x00, 0x00, 0x9c, 0x72, 0x00, 0x01},
}

// RunCASConformance exercises one adapter against the storage.CAS contract.
// Every backend's test file runs this before its own cases.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("RoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		for _, want := range conformancePayloads {
			id, err := cas.Put(want)
			if err != nil {
				t.Fatalf("Put(%x): %v", want, err)
			}
			canonical, err := cidutil.CIDv1RawSHA256CID(want)
			if err != nil {
				t.Fatalf("CIDv1RawSHA256CID: %v", err)
			}
			if id != canonical {
				t.Fatalf("Put CID = %s, want %s", id, canonical)
			}
			got, err := cas.Get(id)
			if err != nil {
				t.Fatalf("Get(%s): %v", id, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("Get(%s) returned %x, want %x", id, got, want)
			}
		}
	})

	t.Run("DistinctBytesDistinctCIDs", func(t *testing.T) {
		cas := newCAS(t)
		seen := make(map[cid.Cid]bool)
		for _, p := range conformancePayloads {
			id, err := cas.Put(p)
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if seen[id] {
				t.Fatalf("CID %s assigned to two different payloads", id)
			}
			seen[id] = true
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes twice")
		first, err := cas.Put(b)
		if err != nil {
			t.Fatalf("first Put: %v", err)
		}
		second, err := cas.Put(b)
		if err != nil {
			t.Fatalf("second Put: %v", err)
		}
		if first != second {
			t.Fatalf("Put not idempotent: %s vs %s", first, second)
		}
	})

	t.Run("MissingObject", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("never stored")
		id, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID: %v", err)
		}
		if cas.Has(id) {
			t.Fatalf("Has(%s) = true before Put", id)
		}
		if _, err := cas.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
		}
		if _, err := cas.Put(b); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has(%s) = false after Put", id)
		}
	})

	t.Run("UndefinedCIDRejected", func(t *testing.T) {
		cas := newCAS(t)
		if cas.Has(cid.Undef) {
			t.Fatalf("Has(Undef) = true")
		}
		if _, err := cas.Get(cid.Undef); err == nil {
			t.Fatalf("Get(Undef) succeeded")
		}
	})

	t.Run("GetReturnsPrivateCopy", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("caller may scribble on this")
		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		first, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		for i := range first {
			first[i] = 0xFF
		}
		again, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get after scribble: %v", err)
		}
		if !bytes.Equal(again, want) {
			t.Fatalf("stored object mutated through Get result")
		}
	})
}
