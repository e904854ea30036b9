// Package resolver selects the winning rate announcement from a signed chain.
package resolver

import (
	"fmt"

	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/pubset"
	"xdao.co/ratewire/ratewire"
)

type State string

const (
	StateResolved   State = "Resolved"
	StateUnresolved State = "Unresolved"
)

type Confidence string

const (
	ConfidenceHigh      Confidence = "High"
	ConfidenceMedium    Confidence = "Medium"
	ConfidenceLow       Confidence = "Low"
	ConfidenceUndefined Confidence = "Undefined"
)

// Resolution is the deterministic outcome of evaluating a signed rate chain
// against a publisher set at a point in time.
type Resolution struct {
	State      State
	Confidence Confidence

	// Payload is the selected announcement; nil unless State is Resolved.
	Payload *ratewire.RatePayload
	// Index is the chain position of the selected node, head first; -1 when
	// nothing was selected.
	Index int

	Exclusions []Exclusion
	Verdicts   []RuleVerdict
}

// Exclusion records a chain node that was rejected and why.
type Exclusion struct {
	Index  int
	Reason string
}

type candidate struct {
	index   int
	payload *ratewire.RatePayload
	key     string
	roles   map[string]bool
}

// Resolve evaluates chainBytes against the publisher set in policyBytes at
// the given timestamp.
//
// A node is valid when its payload digest verifies against a publisher key
// and its expiration is strictly later than at. Among valid nodes the one
// with the greatest expiration wins; ties go to the node closest to the head.
func Resolve(chainBytes, policyBytes []byte, at uint32) (*Resolution, error) {
	set, err := pubset.Parse(policyBytes)
	if err != nil {
		return nil, err
	}
	return resolveWithSet(chainBytes, set, at)
}

func resolveWithSet(chainBytes []byte, set *pubset.Set, at uint32) (*Resolution, error) {
	// The publisher set is the trust anchor; a malformed key in it is an
	// error, never an exclusion.
	for i, p := range set.Publishers {
		if _, err := keys.ParsePublisherKey(p.Key); err != nil {
			return nil, fmt.Errorf("resolver: publisher set key %d: %w", i, err)
		}
	}
	trustIndex := indexTrust(set)
	ordered := orderedKeys(set)

	chain, err := ratewire.DecodeChain(chainBytes)
	if err != nil {
		return nil, err
	}

	res := &Resolution{State: StateUnresolved, Confidence: ConfidenceUndefined, Index: -1}

	var candidates []candidate
	i := 0
	for node := chain; node != nil; node = node.Next() {
		payload := node.Payload()
		digest, derr := payload.Digest()
		if derr != nil {
			res.Exclusions = append(res.Exclusions, Exclusion{Index: i, Reason: "Digest computation failed"})
			i++
			continue
		}

		var matched string
		for _, key := range ordered {
			if keys.VerifyDigest(key, digest, node.Signature()) == nil {
				matched = key
				break
			}
		}
		if matched == "" {
			res.Exclusions = append(res.Exclusions, Exclusion{Index: i, Reason: "Untrusted signature"})
			i++
			continue
		}
		if payload.Expiration() <= at {
			res.Exclusions = append(res.Exclusions, Exclusion{Index: i, Reason: "Payload expired"})
			i++
			continue
		}

		candidates = append(candidates, candidate{index: i, payload: payload, key: matched, roles: trustIndex[matched]})
		i++
	}

	if len(candidates) == 0 {
		return res, nil
	}

	verdicts, ok := evaluateRules(set, candidates)
	res.Verdicts = verdicts
	if !ok {
		res.Confidence = ConfidenceLow
		return res, nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		// Strict > keeps the earliest index on equal expirations.
		if c.payload.Expiration() > best.payload.Expiration() {
			best = c
		}
	}

	res.State = StateResolved
	res.Payload = best.payload
	res.Index = best.index
	if len(res.Exclusions) == 0 {
		res.Confidence = ConfidenceHigh
	} else {
		res.Confidence = ConfidenceMedium
	}
	return res, nil
}

func indexTrust(set *pubset.Set) map[string]map[string]bool {
	idx := make(map[string]map[string]bool)
	for _, p := range set.Publishers {
		m := idx[p.Key]
		if m == nil {
			m = make(map[string]bool)
			idx[p.Key] = m
		}
		m[p.Role] = true
	}
	return idx
}

// orderedKeys returns the distinct publisher keys in first-appearance order,
// so signature matching never depends on map iteration.
func orderedKeys(set *pubset.Set) []string {
	seen := make(map[string]bool, len(set.Publishers))
	out := make([]string, 0, len(set.Publishers))
	for _, p := range set.Publishers {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		out = append(out, p.Key)
	}
	return out
}
