package ratewire

import (
	"math/big"

	"xdao.co/ratewire/asset"
)

// Normalize completes a partial allocation vector against a target asset
// universe. For every target asset, in target order, the result carries the
// matching input allocation or a synthesized zero-amount one, so the result
// always has exactly the targets' length and order. Input allocations for
// assets outside the targets are dropped silently, and duplicate input
// assets resolve to the last occurrence.
//
// targetAssets must already be in canonical asset order; the precondition
// is the caller's and is not checked here. Normalize is total: it never
// fails.
func Normalize(allocations []Allocation, targetAssets []asset.Asset) []Allocation {
	byKey := make(map[string]Allocation, len(allocations))
	for _, al := range allocations {
		if !al.valid() {
			continue
		}
		byKey[al.asset.Key()] = al
	}
	out := make([]Allocation, 0, len(targetAssets))
	for _, target := range targetAssets {
		if al, ok := byKey[target.Key()]; ok {
			out = append(out, al)
			continue
		}
		out = append(out, Allocation{asset: target, amount: new(big.Int)})
	}
	return out
}
