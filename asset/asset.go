// Package asset defines the tradable asset identity: a closed tagged
// variant covering the ledger's native currency, token master contracts,
// and auxiliary extra currencies, together with the canonical ordering and
// the stable textual key used for lookups and reconstruction.
package asset

import (
	"fmt"

	"xdao.co/ratewire/address"
	"xdao.co/ratewire/cell"
)

// Kind is the asset variant tag. Kind values double as the 4-bit wire tag
// and define the first level of the canonical order.
type Kind uint8

const (
	KindNative        Kind = 0
	KindToken         Kind = 1
	KindExtraCurrency Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindToken:
		return "token"
	case KindExtraCurrency:
		return "extra_currency"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Asset is the closed set of tradable asset identities. The only
// implementations are Native, Token, and ExtraCurrency; the sealed
// method keeps the set closed, so an asset's payload always matches its
// kind. Assets are immutable values.
type Asset interface {
	Kind() Kind

	// Key returns the stable textual identity: "0" for the native
	// currency, "1:<address>" for a token, "2:<id>" for an extra
	// currency. FromKey is the inverse.
	Key() string

	// Cell serializes the asset into its own cell: the 4-bit kind tag
	// followed by the variant payload. FromCell is the inverse.
	Cell() (*cell.Cell, error)

	sealed()
}

// Native is the ledger's own currency. It carries no payload.
type Native struct{}

// Token identifies a fungible token by its master contract address.
type Token struct {
	Master address.Address
}

// ExtraCurrency identifies an auxiliary ledger currency by numeric id.
type ExtraCurrency struct {
	ID int32
}

// NewNative returns the native currency asset.
func NewNative() Asset { return Native{} }

// NewToken returns the asset for the token governed by master.
func NewToken(master address.Address) Asset { return Token{Master: master} }

// NewExtraCurrency returns the asset for the extra currency id.
func NewExtraCurrency(id int32) Asset { return ExtraCurrency{ID: id} }

func (Native) Kind() Kind        { return KindNative }
func (Token) Kind() Kind         { return KindToken }
func (ExtraCurrency) Kind() Kind { return KindExtraCurrency }

func (Native) sealed()        {}
func (Token) sealed()         {}
func (ExtraCurrency) sealed() {}

// Equal reports key equality. It agrees with Compare wherever the canonical
// order is defined and extends it to extra-currency pairs.
func Equal(a, b Asset) bool {
	return a != nil && b != nil && a.Key() == b.Key()
}
