// Package address implements the ledger account address: an 8-bit signed
// workchain paired with a 256-bit account hash. It provides the textual raw
// form "<workchain>:<hex hash>" and the 267-bit standard cell form used by
// asset serialization.
package address

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"xdao.co/ratewire/cell"
)

// HashSize is the account hash width in bytes.
const HashSize = 32

// addrBits is the standard cell form width: 2-bit tag, 1-bit anycast flag,
// 8-bit workchain, 256-bit hash.
const addrBits = 2 + 1 + 8 + 8*HashSize

// addrTag marks the standard (non-anycast, full-hash) address form.
const addrTag = 0b10

// Address identifies a ledger account. The zero value is the zero account
// in the base workchain; all 2^8 * 2^256 combinations are valid addresses,
// so Address carries no further invariant.
type Address struct {
	Workchain int8
	Hash      [HashSize]byte
}

// Parse reads the textual raw form "<workchain>:<64 hex digits>".
func Parse(s string) (Address, error) {
	wc, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, fmt.Errorf("address: %q: missing workchain separator", s)
	}
	w, err := strconv.ParseInt(wc, 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("address: %q: bad workchain: %v", s, err)
	}
	if len(rest) != 2*HashSize {
		return Address{}, fmt.Errorf("address: %q: hash is %d hex digits, want %d", s, len(rest), 2*HashSize)
	}
	raw, err := hex.DecodeString(rest)
	if err != nil {
		return Address{}, fmt.Errorf("address: %q: bad hash: %v", s, err)
	}
	a := Address{Workchain: int8(w)}
	copy(a.Hash[:], raw)
	return a, nil
}

// String renders the textual raw form with a lowercase hex hash.
func (a Address) String() string {
	return strconv.Itoa(int(a.Workchain)) + ":" + hex.EncodeToString(a.Hash[:])
}

// MarshalText implements encoding.TextMarshaler using the raw form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the raw form.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// StoreTo appends the 267-bit standard cell form.
func (a Address) StoreTo(b *cell.Builder) error {
	if b.BitsLeft() < addrBits {
		return cell.ErrOverflow
	}
	if err := b.StoreUint(addrTag, 2); err != nil {
		return err
	}
	if err := b.StoreBool(false); err != nil { // no anycast
		return err
	}
	if err := b.StoreInt(int64(a.Workchain), 8); err != nil {
		return err
	}
	return b.StoreBytes(a.Hash[:])
}

// Load reads the standard cell form written by StoreTo. Other address
// constructors (empty, external, anycast-rewritten) are rejected.
func Load(s *cell.Slice) (Address, error) {
	tag, err := s.LoadUint(2)
	if err != nil {
		return Address{}, err
	}
	if tag != addrTag {
		return Address{}, fmt.Errorf("address: unsupported address tag %#b", tag)
	}
	anycast, err := s.LoadBool()
	if err != nil {
		return Address{}, err
	}
	if anycast {
		return Address{}, fmt.Errorf("address: anycast addresses not supported")
	}
	wc, err := s.LoadInt(8)
	if err != nil {
		return Address{}, err
	}
	raw, err := s.LoadBytes(HashSize)
	if err != nil {
		return Address{}, err
	}
	a := Address{Workchain: int8(wc)}
	copy(a.Hash[:], raw)
	return a, nil
}
