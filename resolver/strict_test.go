package resolver

import (
	"strings"
	"testing"

	"xdao.co/ratewire/compliance"
	"xdao.co/ratewire/pubset"
)

// strictSet renders a publisher set with explicit quorums, which ParseStrict
// demands.
func strictSet(t *testing.T, entries []pubEntry, rules []requireRule) string {
	t.Helper()

	set := &pubset.Set{Meta: map[string]string{"Version": "1"}}
	for _, e := range entries {
		set.Publishers = append(set.Publishers, pubset.Publisher{Key: e.key, Role: e.role})
	}
	for _, r := range rules {
		q := r.quorum
		if q < 1 {
			q = 1
		}
		set.Rules = append(set.Rules, pubset.Rule{Role: r.role, Quorum: q})
	}

	out, err := pubset.Render(set)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out)
}

func TestResolveStrict_CleanChainResolves(t *testing.T) {
	signer := mustSigner(t, 0xE1)
	policy := strictSet(t,
		[]pubEntry{{key: signer.PublisherKey(), role: "publisher"}},
		[]requireRule{{role: "publisher"}},
	)

	chain := signedChain(t, signer, mustPayload(t, 900, 1), mustPayload(t, 800, 2))

	res, err := ResolveStrict(chain, []byte(policy), 100)
	if err != nil {
		t.Fatalf("ResolveStrict: %v", err)
	}
	if res.State != StateResolved || res.Index != 0 {
		t.Fatalf("State=%s Index=%d", res.State, res.Index)
	}
}

func TestResolveStrict_RejectsExclusions(t *testing.T) {
	signer := mustSigner(t, 0xE2)
	policy := strictSet(t,
		[]pubEntry{{key: signer.PublisherKey(), role: "publisher"}},
		nil,
	)

	// One node already expired at verification time.
	chain := signedChain(t, signer, mustPayload(t, 100, 1), mustPayload(t, 900, 2))

	if _, err := ResolveStrict(chain, []byte(policy), 200); err == nil {
		t.Fatal("expected strict mode error for excluded node")
	} else if !strings.Contains(err.Error(), "strict mode") {
		t.Fatalf("err = %v", err)
	}

	// Permissive accepts the same inputs and records the exclusion.
	res, err := ResolveWithOptions(chain, []byte(policy), 200, Options{Mode: compliance.Permissive})
	if err != nil {
		t.Fatalf("permissive: %v", err)
	}
	if res.State != StateResolved || len(res.Exclusions) != 1 {
		t.Fatalf("State=%s exclusions=%+v", res.State, res.Exclusions)
	}
}

func TestResolveStrict_RejectsUnresolved(t *testing.T) {
	trusted := mustSigner(t, 0xE3)
	rogue := mustSigner(t, 0xE4)
	policy := strictSet(t,
		[]pubEntry{{key: trusted.PublisherKey(), role: "publisher"}},
		nil,
	)

	chain := signedChain(t, rogue, mustPayload(t, 900, 1))

	if _, err := ResolveStrict(chain, []byte(policy), 100); err == nil {
		t.Fatal("expected strict mode error for unresolved chain")
	}
}

func TestResolveStrict_RejectsPolicyWithDefaultedQuorum(t *testing.T) {
	signer := mustSigner(t, 0xE5)
	// publisherSet omits Quorum for quorum<=1 rules; strict parsing must reject that.
	policy := publisherSet(
		[]pubEntry{{key: signer.PublisherKey(), role: "publisher"}},
		[]requireRule{{role: "publisher", quorum: 1}},
	)

	chain := signedChain(t, signer, mustPayload(t, 900, 1))

	if _, err := ResolveStrict(chain, []byte(policy), 100); err == nil {
		t.Fatal("expected strict parse error for defaulted quorum")
	}
	if _, err := Resolve(chain, []byte(policy), 100); err != nil {
		t.Fatalf("permissive Resolve: %v", err)
	}
}
