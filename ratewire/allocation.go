package ratewire

import (
	"fmt"
	"math/big"

	"xdao.co/ratewire/asset"
)

// Allocation pairs an asset with a non-negative arbitrary-precision amount.
// Allocations are immutable values: the constructor copies the amount in
// and Amount copies it back out, so no caller can mutate a stored amount.
type Allocation struct {
	asset  asset.Asset
	amount *big.Int
}

// NewAllocation validates and builds an allocation. The amount must be
// non-negative; it is copied, so the caller keeps ownership of amt.
func NewAllocation(a asset.Asset, amt *big.Int) (Allocation, error) {
	if a == nil {
		return Allocation{}, newError(KindValidation, RuleAllocationAsset, "allocation requires an asset")
	}
	if amt == nil {
		return Allocation{}, newError(KindValidation, RuleAllocationAmount, "allocation requires an amount")
	}
	if amt.Sign() < 0 {
		return Allocation{}, newError(KindValidation, RuleAllocationAmount,
			fmt.Sprintf("allocation amount %s is negative", amt))
	}
	return Allocation{asset: a, amount: new(big.Int).Set(amt)}, nil
}

// Asset returns the allocation's asset.
func (al Allocation) Asset() asset.Asset { return al.asset }

// Amount returns a copy of the allocation's amount.
func (al Allocation) Amount() *big.Int {
	if al.amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(al.amount)
}

// Compare orders allocations by their assets alone; amounts never
// participate. The extra-currency ordering gap propagates unchanged.
func (al Allocation) Compare(other Allocation) (int, error) {
	return asset.Compare(al.asset, other.asset)
}

// valid reports whether the allocation went through NewAllocation rather
// than being a bare zero value.
func (al Allocation) valid() bool {
	return al.asset != nil && al.amount != nil
}
