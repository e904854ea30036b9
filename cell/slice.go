package cell

import (
	"fmt"
	"math/big"
)

// Slice reads a cell's content sequentially, mirroring the Builder's append
// order. Load methods consume bits and references; a Slice never mutates its
// cell, and several slices may read the same cell independently.
type Slice struct {
	data []byte
	pos  int // next unread bit
	end  int
	refs []*Cell
	ref  int // next unread reference
}

// BitsLeft reports the number of unread bits.
func (s *Slice) BitsLeft() int { return s.end - s.pos }

// RefsLeft reports the number of unread references.
func (s *Slice) RefsLeft() int { return len(s.refs) - s.ref }

func (s *Slice) loadBit() bool {
	set := s.data[s.pos/8]>>uint(7-s.pos%8)&1 == 1
	s.pos++
	return set
}

// LoadUint reads an unsigned big-endian field of the given width.
func (s *Slice) LoadUint(bits int) (uint64, error) {
	if bits < 0 || bits > 64 {
		return 0, fmt.Errorf("cell: uint width %d: %w", bits, ErrValueRange)
	}
	if s.BitsLeft() < bits {
		return 0, ErrUnderflow
	}
	var v uint64
	for i := 0; i < bits; i++ {
		v <<= 1
		if s.loadBit() {
			v |= 1
		}
	}
	return v, nil
}

// LoadInt reads a two's-complement signed field of the given width.
func (s *Slice) LoadInt(bits int) (int64, error) {
	if bits <= 0 || bits > 64 {
		return 0, fmt.Errorf("cell: int width %d: %w", bits, ErrValueRange)
	}
	u, err := s.LoadUint(bits)
	if err != nil {
		return 0, err
	}
	if bits < 64 && u&(1<<uint(bits-1)) != 0 {
		u |= ^uint64(0) << uint(bits)
	}
	return int64(u), nil
}

// LoadBool reads a single bit.
func (s *Slice) LoadBool() (bool, error) {
	u, err := s.LoadUint(1)
	return u == 1, err
}

// LoadBits reads the given number of bits into a fresh byte slice, most
// significant bit of out[0] first; unused trailing bits of the last byte are
// zero.
func (s *Slice) LoadBits(bits int) ([]byte, error) {
	if bits < 0 {
		return nil, fmt.Errorf("cell: bit count %d: %w", bits, ErrValueRange)
	}
	if s.BitsLeft() < bits {
		return nil, ErrUnderflow
	}
	out := make([]byte, (bits+7)/8)
	for i := 0; i < bits; i++ {
		if s.loadBit() {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out, nil
}

// LoadBytes reads whole bytes.
func (s *Slice) LoadBytes(n int) ([]byte, error) {
	return s.LoadBits(n * 8)
}

// LoadBigUint reads an unsigned big-endian field of the given width.
func (s *Slice) LoadBigUint(bits int) (*big.Int, error) {
	if bits < 0 || bits > MaxBits {
		return nil, fmt.Errorf("cell: big uint width %d: %w", bits, ErrValueRange)
	}
	if s.BitsLeft() < bits {
		return nil, ErrUnderflow
	}
	v := new(big.Int)
	for i := bits - 1; i >= 0; i-- {
		if s.loadBit() {
			v.SetBit(v, i, 1)
		}
	}
	return v, nil
}

// LoadCoins reads a variable-width unsigned amount stored by StoreCoins.
// Non-minimal encodings (a leading zero value byte) are rejected with
// ErrNonCanonical.
func (s *Slice) LoadCoins() (*big.Int, error) {
	n, err := s.LoadUint(4)
	if err != nil {
		return nil, err
	}
	v, err := s.LoadBigUint(int(n) * 8)
	if err != nil {
		return nil, err
	}
	if n > 0 && (v.BitLen()+7)/8 != int(n) {
		return nil, fmt.Errorf("cell: coins length %d with %d significant bytes: %w", n, (v.BitLen()+7)/8, ErrNonCanonical)
	}
	return v, nil
}

// LoadRef consumes the next child reference.
func (s *Slice) LoadRef() (*Cell, error) {
	if s.RefsLeft() == 0 {
		return nil, ErrRefUnderflow
	}
	c := s.refs[s.ref]
	s.ref++
	return c, nil
}
