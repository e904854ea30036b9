package cell

import (
	"fmt"
	"math/big"
)

// Builder assembles a cell by appending bit-level fields in order. Store
// methods validate capacity and argument ranges up front, so a Builder whose
// stores all succeeded always produces a valid cell from Build.
type Builder struct {
	data []byte
	bits int
	refs []*Cell
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// BitsLeft reports the remaining inline bit capacity.
func (b *Builder) BitsLeft() int { return MaxBits - b.bits }

// RefsLeft reports the remaining reference capacity.
func (b *Builder) RefsLeft() int { return MaxRefs - len(b.refs) }

func (b *Builder) appendBit(set bool) {
	if b.bits%8 == 0 {
		b.data = append(b.data, 0)
	}
	if set {
		b.data[b.bits/8] |= 0x80 >> uint(b.bits%8)
	}
	b.bits++
}

// StoreUint appends v as an unsigned big-endian field of the given width.
func (b *Builder) StoreUint(v uint64, bits int) error {
	if bits < 0 || bits > 64 {
		return fmt.Errorf("cell: uint width %d: %w", bits, ErrValueRange)
	}
	if bits < 64 && v>>uint(bits) != 0 {
		return fmt.Errorf("cell: value %d does not fit in %d bits: %w", v, bits, ErrValueRange)
	}
	if b.BitsLeft() < bits {
		return ErrOverflow
	}
	for i := bits - 1; i >= 0; i-- {
		b.appendBit(v>>uint(i)&1 == 1)
	}
	return nil
}

// StoreInt appends v as a two's-complement signed field of the given width.
func (b *Builder) StoreInt(v int64, bits int) error {
	if bits <= 0 || bits > 64 {
		return fmt.Errorf("cell: int width %d: %w", bits, ErrValueRange)
	}
	if bits < 64 {
		lo := -(int64(1) << uint(bits-1))
		hi := int64(1)<<uint(bits-1) - 1
		if v < lo || v > hi {
			return fmt.Errorf("cell: value %d does not fit in %d signed bits: %w", v, bits, ErrValueRange)
		}
	}
	if b.BitsLeft() < bits {
		return ErrOverflow
	}
	u := uint64(v)
	for i := bits - 1; i >= 0; i-- {
		b.appendBit(u>>uint(i)&1 == 1)
	}
	return nil
}

// StoreBool appends a single bit.
func (b *Builder) StoreBool(v bool) error {
	if v {
		return b.StoreUint(1, 1)
	}
	return b.StoreUint(0, 1)
}

// StoreBits appends the first bits bits of src, most significant bit of
// src[0] first.
func (b *Builder) StoreBits(src []byte, bits int) error {
	if bits < 0 || bits > len(src)*8 {
		return fmt.Errorf("cell: %d bits from %d-byte source: %w", bits, len(src), ErrValueRange)
	}
	if b.BitsLeft() < bits {
		return ErrOverflow
	}
	for i := 0; i < bits; i++ {
		b.appendBit(src[i/8]>>uint(7-i%8)&1 == 1)
	}
	return nil
}

// StoreBytes appends whole bytes.
func (b *Builder) StoreBytes(src []byte) error {
	return b.StoreBits(src, len(src)*8)
}

// StoreBigUint appends v as an unsigned big-endian field of the given width.
func (b *Builder) StoreBigUint(v *big.Int, bits int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("cell: big uint must be non-negative: %w", ErrValueRange)
	}
	if bits < 0 || bits > MaxBits {
		return fmt.Errorf("cell: big uint width %d: %w", bits, ErrValueRange)
	}
	if v.BitLen() > bits {
		return fmt.Errorf("cell: %d-bit value does not fit in %d bits: %w", v.BitLen(), bits, ErrValueRange)
	}
	if b.BitsLeft() < bits {
		return ErrOverflow
	}
	for i := bits - 1; i >= 0; i-- {
		b.appendBit(v.Bit(i) == 1)
	}
	return nil
}

// StoreCoins appends v in the ledger's variable-width unsigned form: a 4-bit
// byte count followed by that many big-endian value bytes, minimally encoded
// (zero is the bare count 0). Values up to 2^120-1 are representable, so a
// coins field occupies at most 124 bits.
func (b *Builder) StoreCoins(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("cell: coins must be non-negative: %w", ErrValueRange)
	}
	n := (v.BitLen() + 7) / 8
	if n > maxCoinsBytes {
		return fmt.Errorf("cell: coins value needs %d bytes, limit %d: %w", n, maxCoinsBytes, ErrValueRange)
	}
	if b.BitsLeft() < 4+n*8 {
		return ErrOverflow
	}
	if err := b.StoreUint(uint64(n), 4); err != nil {
		return err
	}
	return b.StoreBigUint(v, n*8)
}

// StoreRef attaches a child reference.
func (b *Builder) StoreRef(c *Cell) error {
	if c == nil {
		return fmt.Errorf("cell: nil reference: %w", ErrValueRange)
	}
	if len(b.refs) >= MaxRefs {
		return ErrRefOverflow
	}
	b.refs = append(b.refs, c)
	return nil
}

// Build freezes the accumulated content into an immutable cell. The builder
// remains usable but shares nothing with the returned cell.
func (b *Builder) Build() *Cell {
	data := append([]byte(nil), b.data...)
	refs := append([]*Cell(nil), b.refs...)
	return newCell(b.bits, data, refs)
}
