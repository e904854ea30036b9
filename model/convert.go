package model

import (
	"encoding/hex"
	"math/big"

	"xdao.co/ratewire/address"
	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/ratewire"
)

// AssetToCore converts an interchange asset into its core value.
//
// Shape violations (wrong or missing fields for the declared kind) map to
// INVALID_KIND; a malformed master address maps to INVALID_ADDRESS.
func AssetToCore(a Asset) (asset.Asset, error) {
	switch a.Kind {
	case "native":
		if a.Master != "" || a.CurrencyID != nil {
			return nil, NewError(ErrInvalidKind, "native asset carries token or currency fields")
		}
		return asset.NewNative(), nil
	case "token":
		if a.CurrencyID != nil {
			return nil, NewError(ErrInvalidKind, "token asset carries a currencyId")
		}
		if a.Master == "" {
			return nil, NewError(ErrInvalidKind, "token asset missing master")
		}
		master, err := address.Parse(a.Master)
		if err != nil {
			return nil, NewError(ErrInvalidAddress, err.Error())
		}
		return asset.NewToken(master), nil
	case "extra_currency":
		if a.Master != "" {
			return nil, NewError(ErrInvalidKind, "extra_currency asset carries a master address")
		}
		if a.CurrencyID == nil {
			return nil, NewError(ErrInvalidKind, "extra_currency asset missing currencyId")
		}
		return asset.NewExtraCurrency(*a.CurrencyID), nil
	default:
		return nil, Errorf(ErrInvalidKind, "unknown asset kind %q", a.Kind)
	}
}

// AssetFromCore converts a core asset into its interchange form.
func AssetFromCore(a asset.Asset) Asset {
	switch v := a.(type) {
	case asset.Token:
		return Asset{Kind: asset.KindToken.String(), Master: v.Master.String()}
	case asset.ExtraCurrency:
		id := v.ID
		return Asset{Kind: asset.KindExtraCurrency.String(), CurrencyID: &id}
	default:
		return Asset{Kind: asset.KindNative.String()}
	}
}

// AllocationToCore parses the decimal amount and builds a validated core
// allocation. Amount failures map to INVALID_AMOUNT.
func AllocationToCore(a Allocation) (ratewire.Allocation, error) {
	coreAsset, err := AssetToCore(a.Asset)
	if err != nil {
		return ratewire.Allocation{}, err
	}
	if a.Amount == "" {
		return ratewire.Allocation{}, NewError(ErrInvalidAmount, "allocation missing amount")
	}
	amount, ok := new(big.Int).SetString(a.Amount, 10)
	if !ok {
		return ratewire.Allocation{}, Errorf(ErrInvalidAmount, "amount %q is not a base-10 integer", a.Amount)
	}
	alloc, err := ratewire.NewAllocation(coreAsset, amount)
	if err != nil {
		return ratewire.Allocation{}, NewError(ErrInvalidAmount, err.Error())
	}
	return alloc, nil
}

// AllocationFromCore converts a core allocation into its interchange form.
func AllocationFromCore(al ratewire.Allocation) Allocation {
	return Allocation{
		Asset:  AssetFromCore(al.Asset()),
		Amount: al.Amount().String(),
	}
}

// PayloadToCore builds a validated core payload from its interchange form.
// Constructor rejections (duplicate assets, unorderable extra currencies)
// map to INVALID_PAYLOAD.
func PayloadToCore(p RatePayload) (*ratewire.RatePayload, error) {
	allocs := make([]ratewire.Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		alloc, err := AllocationToCore(a)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, alloc)
	}
	payload, err := ratewire.NewRatePayload(p.Expiration, allocs)
	if err != nil {
		return nil, NewError(ErrInvalidPayload, err.Error())
	}
	return payload, nil
}

// PayloadFromCore converts a core payload into its interchange form.
func PayloadFromCore(p *ratewire.RatePayload) RatePayload {
	out := RatePayload{
		Expiration:  p.Expiration(),
		Allocations: make([]Allocation, 0, p.Len()),
	}
	for _, al := range p.Allocations() {
		out.Allocations = append(out.Allocations, AllocationFromCore(al))
	}
	return out
}

// ChainFromCore converts a signed chain into linked interchange nodes,
// head first.
func ChainFromCore(c *ratewire.SignedRateChain) *ChainNode {
	if c == nil {
		return nil
	}
	return &ChainNode{
		Signature: hex.EncodeToString(c.Signature()),
		Payload:   PayloadFromCore(c.Payload()),
		Next:      ChainFromCore(c.Next()),
	}
}
