package cell

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

func mustBuild(t *testing.T, f func(b *Builder) error) *Cell {
	t.Helper()
	b := NewBuilder()
	if err := f(b); err != nil {
		t.Fatalf("build: %v", err)
	}
	return b.Build()
}

func TestEmptyCellHash(t *testing.T) {
	// sha256 over the two zero descriptor bytes.
	const want = "96a296d224f285c67bee93c30f8a309157f0daa35dc5b87e410b78630a09cfc7"
	h := NewBuilder().Build().Hash()
	if got := hex.EncodeToString(h[:]); got != want {
		t.Fatalf("empty cell hash = %s, want %s", got, want)
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	a := mustBuild(t, func(b *Builder) error { return b.StoreUint(1, 8) })
	b := mustBuild(t, func(b *Builder) error { return b.StoreUint(2, 8) })
	if a.Hash() == b.Hash() {
		t.Fatal("distinct content produced equal hashes")
	}
	// Same bytes, different bit lengths must differ via the completion tag.
	c := mustBuild(t, func(b *Builder) error { return b.StoreUint(0, 5) })
	d := mustBuild(t, func(b *Builder) error { return b.StoreUint(0, 8) })
	if c.Hash() == d.Hash() {
		t.Fatal("5-bit and 8-bit zero fields produced equal hashes")
	}
}

func TestHashCoversReferences(t *testing.T) {
	leafA := mustBuild(t, func(b *Builder) error { return b.StoreUint(1, 8) })
	leafB := mustBuild(t, func(b *Builder) error { return b.StoreUint(2, 8) })
	pa := mustBuild(t, func(b *Builder) error { return b.StoreRef(leafA) })
	pb := mustBuild(t, func(b *Builder) error { return b.StoreRef(leafB) })
	if pa.Hash() == pb.Hash() {
		t.Fatal("parents of distinct children produced equal hashes")
	}
	pa2 := mustBuild(t, func(b *Builder) error { return b.StoreRef(leafA) })
	if !pa.Equal(pa2) {
		t.Fatal("identical trees compared unequal")
	}
}

func TestDepth(t *testing.T) {
	leaf := NewBuilder().Build()
	if leaf.Depth() != 0 {
		t.Fatalf("leaf depth = %d", leaf.Depth())
	}
	mid := mustBuild(t, func(b *Builder) error { return b.StoreRef(leaf) })
	top := mustBuild(t, func(b *Builder) error {
		if err := b.StoreRef(leaf); err != nil {
			return err
		}
		return b.StoreRef(mid)
	})
	if mid.Depth() != 1 || top.Depth() != 2 {
		t.Fatalf("depths = %d, %d, want 1, 2", mid.Depth(), top.Depth())
	}
}

func TestBuilderBitCapacity(t *testing.T) {
	b := NewBuilder()
	if err := b.StoreBits(make([]byte, 128), MaxBits); err != nil {
		t.Fatalf("storing %d bits: %v", MaxBits, err)
	}
	if b.BitsLeft() != 0 {
		t.Fatalf("BitsLeft = %d after filling", b.BitsLeft())
	}
	if err := b.StoreUint(0, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("overfill error = %v, want ErrOverflow", err)
	}
	c := b.Build()
	if c.Bits() != MaxBits {
		t.Fatalf("built cell bits = %d", c.Bits())
	}
}

func TestBuilderRefCapacity(t *testing.T) {
	leaf := NewBuilder().Build()
	b := NewBuilder()
	for i := 0; i < MaxRefs; i++ {
		if err := b.StoreRef(leaf); err != nil {
			t.Fatalf("ref %d: %v", i, err)
		}
	}
	if err := b.StoreRef(leaf); !errors.Is(err, ErrRefOverflow) {
		t.Fatalf("fifth ref error = %v, want ErrRefOverflow", err)
	}
}

func TestStoreUintRange(t *testing.T) {
	b := NewBuilder()
	if err := b.StoreUint(16, 4); !errors.Is(err, ErrValueRange) {
		t.Fatalf("16 in 4 bits: %v, want ErrValueRange", err)
	}
	if err := b.StoreUint(15, 4); err != nil {
		t.Fatalf("15 in 4 bits: %v", err)
	}
}

func TestIntRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, -128, 42, -100} {
		c := mustBuild(t, func(b *Builder) error { return b.StoreInt(v, 8) })
		got, err := c.Slice().LoadInt(8)
		if err != nil {
			t.Fatalf("LoadInt(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("int8 round trip: got %d, want %d", got, v)
		}
	}
	b := NewBuilder()
	if err := b.StoreInt(128, 8); !errors.Is(err, ErrValueRange) {
		t.Fatalf("128 in int8: %v, want ErrValueRange", err)
	}
	if err := b.StoreInt(-129, 8); !errors.Is(err, ErrValueRange) {
		t.Fatalf("-129 in int8: %v, want ErrValueRange", err)
	}
}

func TestUintRoundTripUnaligned(t *testing.T) {
	c := mustBuild(t, func(b *Builder) error {
		if err := b.StoreUint(5, 3); err != nil {
			return err
		}
		if err := b.StoreUint(0x1ff, 9); err != nil {
			return err
		}
		return b.StoreBool(true)
	})
	if c.Bits() != 13 {
		t.Fatalf("bits = %d, want 13", c.Bits())
	}
	s := c.Slice()
	if v, err := s.LoadUint(3); err != nil || v != 5 {
		t.Fatalf("LoadUint(3) = %d, %v", v, err)
	}
	if v, err := s.LoadUint(9); err != nil || v != 0x1ff {
		t.Fatalf("LoadUint(9) = %d, %v", v, err)
	}
	if v, err := s.LoadBool(); err != nil || !v {
		t.Fatalf("LoadBool = %v, %v", v, err)
	}
	if s.BitsLeft() != 0 {
		t.Fatalf("BitsLeft = %d after draining", s.BitsLeft())
	}
	if _, err := s.LoadUint(1); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("read past end: %v, want ErrUnderflow", err)
	}
}

func TestBitsRoundTrip(t *testing.T) {
	src := []byte{0xde, 0xad, 0xbe, 0xef}
	c := mustBuild(t, func(b *Builder) error { return b.StoreBits(src, 29) })
	got, err := c.Slice().LoadBits(29)
	if err != nil {
		t.Fatalf("LoadBits: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xe8} // low 3 bits cleared
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#02x, want %#02x", i, got[i], want[i])
		}
	}
}

func TestCoinsRoundTrip(t *testing.T) {
	one20 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(255),
		big.NewInt(256),
		big.NewInt(1_000_000_000),
		new(big.Int).Lsh(big.NewInt(1), 56),
		new(big.Int).Lsh(big.NewInt(1), 119),
		one20,
	}
	for _, v := range values {
		c := mustBuild(t, func(b *Builder) error { return b.StoreCoins(v) })
		got, err := c.Slice().LoadCoins()
		if err != nil {
			t.Fatalf("LoadCoins(%s): %v", v, err)
		}
		if got.Cmp(v) != 0 {
			t.Fatalf("coins round trip: got %s, want %s", got, v)
		}
	}
}

func TestCoinsRejectsOversized(t *testing.T) {
	b := NewBuilder()
	if err := b.StoreCoins(new(big.Int).Lsh(big.NewInt(1), 120)); !errors.Is(err, ErrValueRange) {
		t.Fatalf("2^120 coins: %v, want ErrValueRange", err)
	}
	if err := b.StoreCoins(big.NewInt(-1)); !errors.Is(err, ErrValueRange) {
		t.Fatalf("negative coins: %v, want ErrValueRange", err)
	}
}

func TestCoinsRejectsNonMinimal(t *testing.T) {
	// Length 2 with a leading zero value byte encodes 5 non-minimally.
	c := mustBuild(t, func(b *Builder) error {
		if err := b.StoreUint(2, 4); err != nil {
			return err
		}
		return b.StoreUint(5, 16)
	})
	if _, err := c.Slice().LoadCoins(); !errors.Is(err, ErrNonCanonical) {
		t.Fatalf("non-minimal coins: %v, want ErrNonCanonical", err)
	}
}

func TestBigUintRoundTrip(t *testing.T) {
	v := new(big.Int).SetBytes([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0xfe})
	c := mustBuild(t, func(b *Builder) error { return b.StoreBigUint(v, 100) })
	got, err := c.Slice().LoadBigUint(100)
	if err != nil {
		t.Fatalf("LoadBigUint: %v", err)
	}
	if got.Cmp(v) != 0 {
		t.Fatalf("big uint round trip: got %s, want %s", got, v)
	}
	b := NewBuilder()
	if err := b.StoreBigUint(v, 60); !errors.Is(err, ErrValueRange) {
		t.Fatalf("oversized big uint: %v, want ErrValueRange", err)
	}
}

func TestSliceRefs(t *testing.T) {
	leaf := mustBuild(t, func(b *Builder) error { return b.StoreUint(7, 8) })
	c := mustBuild(t, func(b *Builder) error { return b.StoreRef(leaf) })
	s := c.Slice()
	if s.RefsLeft() != 1 {
		t.Fatalf("RefsLeft = %d", s.RefsLeft())
	}
	got, err := s.LoadRef()
	if err != nil {
		t.Fatalf("LoadRef: %v", err)
	}
	if !got.Equal(leaf) {
		t.Fatal("LoadRef returned a different cell")
	}
	if _, err := s.LoadRef(); !errors.Is(err, ErrRefUnderflow) {
		t.Fatalf("exhausted refs: %v, want ErrRefUnderflow", err)
	}
}
