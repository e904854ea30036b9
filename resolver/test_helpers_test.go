package resolver

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"testing"

	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/cell"
	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/ratewire"
)

// ----- test helpers -----

type pubEntry struct{ key, role string }

type requireRule struct {
	role   string
	quorum int
}

func publisherSet(entries []pubEntry, rules []requireRule) string {
	var sb strings.Builder
	sb.WriteString("-----BEGIN XDAO PUBLISHER SET-----\n")
	sb.WriteString("META\n")
	sb.WriteString("Spec: xdao-pubset-1\n")
	sb.WriteString("Version: 1\n\n")

	sb.WriteString("KEYS\n")
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key == entries[j].key {
			return entries[i].role < entries[j].role
		}
		return entries[i].key < entries[j].key
	})
	for _, e := range entries {
		fmt.Fprintf(&sb, "Key: %s\nRole: %s\n\n", e.key, e.role)
	}

	sb.WriteString("RULES\n")
	for _, r := range rules {
		fmt.Fprintf(&sb, "Require:\n  Role: %s\n", r.role)
		if r.quorum > 1 {
			fmt.Fprintf(&sb, "  Quorum: %d\n", r.quorum)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("-----END XDAO PUBLISHER SET-----\n")
	return sb.String()
}

func mustSigner(t *testing.T, seedByte byte) *keys.Signer {
	t.Helper()
	s, err := keys.NewSignerFromSeed(bytes.Repeat([]byte{seedByte}, 32))
	if err != nil {
		t.Fatalf("NewSignerFromSeed: %v", err)
	}
	return s
}

func mustPayload(t *testing.T, expiration uint32, amount int64) *ratewire.RatePayload {
	t.Helper()
	alloc, err := ratewire.NewAllocation(asset.NewNative(), big.NewInt(amount))
	if err != nil {
		t.Fatalf("NewAllocation: %v", err)
	}
	p, err := ratewire.NewRatePayload(expiration, []ratewire.Allocation{alloc})
	if err != nil {
		t.Fatalf("NewRatePayload: %v", err)
	}
	return p
}

func signedChain(t *testing.T, signer *keys.Signer, payloads ...*ratewire.RatePayload) []byte {
	t.Helper()
	chain, err := ratewire.BuildChain(context.Background(), payloads, signer)
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	enc, err := chain.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return enc
}

type chainItem struct {
	payload *ratewire.RatePayload
	signer  *keys.Signer
}

// mixedChain assembles a chain whose nodes carry signatures from different
// signers; BuildChain always signs with a single signer.
func mixedChain(t *testing.T, items []chainItem) []byte {
	t.Helper()

	var next *cell.Cell
	for i := len(items) - 1; i >= 0; i-- {
		digest, err := items[i].payload.Digest()
		if err != nil {
			t.Fatalf("Digest: %v", err)
		}
		sig, err := items[i].signer.Sign(context.Background(), digest)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}

		b := cell.NewBuilder()
		if err := b.StoreBytes(sig); err != nil {
			t.Fatalf("StoreBytes: %v", err)
		}
		pc, err := items[i].payload.Cell()
		if err != nil {
			t.Fatalf("payload Cell: %v", err)
		}
		if err := b.StoreRef(pc); err != nil {
			t.Fatalf("StoreRef payload: %v", err)
		}
		if next != nil {
			if err := b.StoreRef(next); err != nil {
				t.Fatalf("StoreRef next: %v", err)
			}
		}
		next = b.Build()
	}
	if next == nil {
		t.Fatal("mixedChain needs at least one item")
	}
	return cell.ToBOC(next)
}
