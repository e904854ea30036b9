package ratewire

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/cell"
)

// RatePayload is a time-bounded rate announcement: an unsigned 32-bit
// expiration timestamp and an allocation vector. Construction sorts the
// allocations into canonical asset order and the payload is immutable
// afterwards, so equal payloads always encode to equal bytes and share a
// digest.
type RatePayload struct {
	expiration  uint32
	allocations []Allocation
}

// NewRatePayload validates and builds a payload. The allocation slice is
// copied and sorted by canonical asset order; input order never matters.
// Duplicate assets are rejected, as is more than one extra-currency
// allocation, since extra currencies cannot be ordered against each other.
func NewRatePayload(expiration uint32, allocations []Allocation) (*RatePayload, error) {
	allocs := append([]Allocation(nil), allocations...)
	seen := make(map[string]bool, len(allocs))
	extras := 0
	for i, al := range allocs {
		if !al.valid() {
			return nil, newError(KindValidation, RuleAllocationAsset,
				fmt.Sprintf("allocation %d was not built by NewAllocation", i))
		}
		key := al.asset.Key()
		if seen[key] {
			return nil, newError(KindValidation, RuleDuplicateAsset,
				fmt.Sprintf("allocation %d repeats asset %q", i, key))
		}
		seen[key] = true
		if al.asset.Kind() == asset.KindExtraCurrency {
			extras++
		}
	}
	if extras > 1 {
		return nil, wrapError(KindCompare, RuleUnsupportedComparison,
			fmt.Sprintf("%d extra-currency allocations cannot be ordered", extras),
			asset.ErrUnsupportedComparison)
	}
	// At most one extra currency and no duplicate keys remain, so the
	// comparator is total over these entries.
	sort.Slice(allocs, func(i, j int) bool {
		c, _ := allocs[i].Compare(allocs[j])
		return c < 0
	})
	return &RatePayload{expiration: expiration, allocations: allocs}, nil
}

// Expiration returns the announcement's expiration timestamp.
func (p *RatePayload) Expiration() uint32 { return p.expiration }

// Allocations returns the sorted allocation vector. The slice and its
// amounts are fresh copies.
func (p *RatePayload) Allocations() []Allocation {
	out := make([]Allocation, len(p.allocations))
	for i, al := range p.allocations {
		out[i] = Allocation{asset: al.asset, amount: new(big.Int).Set(al.amount)}
	}
	return out
}

// Len returns the number of allocations.
func (p *RatePayload) Len() int { return len(p.allocations) }

// Cell assembles the payload's root cell: the 32-bit expiration, then one
// overflow-reference sub-tree for the asset sequence and one for the
// amount sequence, encoded independently but in the same order.
func (p *RatePayload) Cell() (*cell.Cell, error) {
	assets, err := cell.BuildList(len(p.allocations), assetsPerCell, func(b *cell.Builder, i int) error {
		ac, err := p.allocations[i].asset.Cell()
		if err != nil {
			return err
		}
		return b.StoreRef(ac)
	})
	if err != nil {
		return nil, encodeError("asset sequence", err)
	}
	amounts, err := cell.BuildList(len(p.allocations), coinsPerCell, func(b *cell.Builder, i int) error {
		return b.StoreCoins(p.allocations[i].amount)
	})
	if err != nil {
		return nil, encodeError("amount sequence", err)
	}
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(p.expiration), 32); err != nil {
		return nil, encodeError("expiration", err)
	}
	if err := b.StoreRef(assets); err != nil {
		return nil, encodeError("asset sequence", err)
	}
	if err := b.StoreRef(amounts); err != nil {
		return nil, encodeError("amount sequence", err)
	}
	return b.Build(), nil
}

// encodeError maps cell-level failures surfaced while encoding. A value
// range failure means an amount exceeds the coins wire form; anything else
// indicates a broken internal invariant.
func encodeError(what string, err error) error {
	if errors.Is(err, cell.ErrValueRange) {
		return wrapError(KindValidation, RuleAmountWidth,
			fmt.Sprintf("encoding %s: %s", what, err), err)
	}
	return wrapError(KindInternal, "", fmt.Sprintf("encoding %s: %s", what, err), err)
}

// Encode serializes the payload as canonical bag-of-cells bytes.
func (p *RatePayload) Encode() ([]byte, error) {
	c, err := p.Cell()
	if err != nil {
		return nil, err
	}
	return cell.ToBOC(c), nil
}

// Digest returns the canonical hash of the encoded payload, that is,
// the root cell's representation hash. It is the signing input; raw
// encoded bytes are never signed directly.
func (p *RatePayload) Digest() ([]byte, error) {
	c, err := p.Cell()
	if err != nil {
		return nil, err
	}
	h := c.Hash()
	return h[:], nil
}

// Sign delegates to the signing provider with the payload digest and
// returns the signature bytes unchanged. No verification happens here.
func (p *RatePayload) Sign(ctx context.Context, signer Signer) ([]byte, error) {
	if signer == nil {
		return nil, newError(KindCrypto, RuleSignerFailed, "signing requires a signer")
	}
	digest, err := p.Digest()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(ctx, digest)
	if err != nil {
		return nil, wrapError(KindCrypto, RuleSignerFailed, fmt.Sprintf("signer: %s", err), err)
	}
	return sig, nil
}

// DecodePayload parses bag-of-cells bytes produced by Encode, or by any
// foreign writer of the same wire layout, back into a validated payload.
// Decoding either yields a fully valid payload or an error, never a
// partial value; foreign allocation orderings are re-sorted through the
// constructor.
func DecodePayload(data []byte) (*RatePayload, error) {
	root, err := cell.FromBOC(data)
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload: %s", err), err)
	}
	return payloadFromCell(root)
}

// payloadFromCell decodes a payload root cell. Shared with chain decoding,
// which reaches payload cells by reference.
func payloadFromCell(root *cell.Cell) (*RatePayload, error) {
	s := root.Slice()
	exp, err := s.LoadUint(32)
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload expiration: %s", err), err)
	}
	assetsRoot, err := s.LoadRef()
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload asset sequence: %s", err), err)
	}
	amountsRoot, err := s.LoadRef()
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload amount sequence: %s", err), err)
	}
	if s.BitsLeft() != 0 || s.RefsLeft() != 0 {
		return nil, newError(KindParse, RuleMalformed,
			fmt.Sprintf("payload root carries %d trailing bits and %d references", s.BitsLeft(), s.RefsLeft()))
	}

	var assets []asset.Asset
	err = cell.LoadRefList(assetsRoot, assetsPerCell, func(c *cell.Cell) error {
		a, err := asset.FromCell(c)
		if err != nil {
			return err
		}
		assets = append(assets, a)
		return nil
	})
	if err != nil {
		if errors.Is(err, asset.ErrUnknownTag) {
			return nil, wrapError(KindParse, RuleWireTag, fmt.Sprintf("payload asset sequence: %s", err), err)
		}
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload asset sequence: %s", err), err)
	}

	var amounts []*big.Int
	err = cell.LoadInlineList(amountsRoot, coinsPerCell, func(s *cell.Slice) error {
		v, err := s.LoadCoins()
		if err != nil {
			return err
		}
		amounts = append(amounts, v)
		return nil
	})
	if err != nil {
		return nil, wrapError(KindParse, RuleMalformed, fmt.Sprintf("payload amount sequence: %s", err), err)
	}

	if len(assets) != len(amounts) {
		return nil, newError(KindParse, RuleLengthMismatch,
			fmt.Sprintf("payload decodes %d assets but %d amounts", len(assets), len(amounts)))
	}

	allocs := make([]Allocation, len(assets))
	for i := range assets {
		al, err := NewAllocation(assets[i], amounts[i])
		if err != nil {
			return nil, err
		}
		allocs[i] = al
	}
	return NewRatePayload(uint32(exp), allocs)
}
