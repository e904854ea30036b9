package cell

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func TestToBOCEmptyCellVector(t *testing.T) {
	const want = "b5ee9c724101010100020000004cacb9cd"
	got := hex.EncodeToString(ToBOC(NewBuilder().Build()))
	if got != want {
		t.Fatalf("empty cell boc = %s, want %s", got, want)
	}
}

func TestToBOCSingleByteVector(t *testing.T) {
	const want = "b5ee9c724101010100030000022a35c1830a"
	c := mustBuild(t, func(b *Builder) error { return b.StoreUint(0x2a, 8) })
	got := hex.EncodeToString(ToBOC(c))
	if got != want {
		t.Fatalf("u8 cell boc = %s, want %s", got, want)
	}
}

func TestBOCRoundTrip(t *testing.T) {
	leaf := mustBuild(t, func(b *Builder) error { return b.StoreUint(0xbeef, 16) })
	mid := mustBuild(t, func(b *Builder) error {
		if err := b.StoreUint(9, 5); err != nil {
			return err
		}
		return b.StoreRef(leaf)
	})
	root := mustBuild(t, func(b *Builder) error {
		if err := b.StoreUint(0xffffffff, 32); err != nil {
			return err
		}
		if err := b.StoreRef(mid); err != nil {
			return err
		}
		return b.StoreRef(leaf)
	})

	enc := ToBOC(root)
	dec, err := FromBOC(enc)
	if err != nil {
		t.Fatalf("FromBOC: %v", err)
	}
	if !dec.Equal(root) {
		t.Fatal("decoded tree differs from original")
	}
	if !bytes.Equal(ToBOC(dec), enc) {
		t.Fatal("re-encoding is not byte identical")
	}
}

func TestBOCDeduplicatesSharedSubtrees(t *testing.T) {
	shared := mustBuild(t, func(b *Builder) error { return b.StoreUint(7, 8) })
	root := mustBuild(t, func(b *Builder) error {
		for i := 0; i < 3; i++ {
			if err := b.StoreRef(shared); err != nil {
				return err
			}
		}
		return nil
	})

	enc := ToBOC(root)
	// Two distinct cells: the root record (2 descriptor bytes + 3 ref
	// indices) and one shared leaf (2 + 1 data byte). Header is 11 bytes
	// for single-byte widths, trailer 4.
	if want := 11 + 5 + 3 + 4; len(enc) != want {
		t.Fatalf("deduplicated boc is %d bytes, want %d", len(enc), want)
	}
	dec, err := FromBOC(enc)
	if err != nil {
		t.Fatalf("FromBOC: %v", err)
	}
	if !dec.Equal(root) {
		t.Fatal("decoded tree differs from original")
	}
}

func TestFromBOCToleratesMissingChecksum(t *testing.T) {
	// The same empty cell without the CRC flag or trailer.
	dec, err := FromBOC(fromHex(t, "b5ee9c72010101010002000000"))
	if err != nil {
		t.Fatalf("FromBOC: %v", err)
	}
	if dec.Bits() != 0 || dec.Refs() != 0 {
		t.Fatalf("decoded cell has %d bits, %d refs", dec.Bits(), dec.Refs())
	}
	if got := hex.EncodeToString(ToBOC(dec)); got != "b5ee9c724101010100020000004cacb9cd" {
		t.Fatalf("re-encode = %s", got)
	}
}

func TestFromBOCRejects(t *testing.T) {
	canonical := ToBOC(mustBuild(t, func(b *Builder) error { return b.StoreUint(0x2a, 8) }))

	corrupt := append([]byte(nil), canonical...)
	corrupt[len(corrupt)-1] ^= 0xff

	truncated := canonical[:len(canonical)-6]

	garbage := append(append([]byte(nil), canonical...), 0x00)

	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, "truncated"},
		{"magic", fromHex(t, "deadbeef0101010100020000"), "magic"},
		{"checksum", corrupt, "checksum"},
		{"truncated", truncated, "truncated"},
		{"trailing garbage", garbage, "trailing"},
		{"two roots", fromHex(t, "b5ee9c72010102020004000100000000"), "roots"},
		{"exotic cell", fromHex(t, "b5ee9c72010101010002000800"), "exotic"},
		{"self reference", fromHex(t, "b5ee9c7201010101000300010000"), "forward order"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromBOC(tc.in); err == nil {
				t.Fatal("decode unexpectedly succeeded")
			} else if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestBOCDeterministicAcrossRebuilds(t *testing.T) {
	build := func() *Cell {
		leaf := mustBuild(t, func(b *Builder) error { return b.StoreUint(123, 10) })
		return mustBuild(t, func(b *Builder) error {
			if err := b.StoreUint(77, 7); err != nil {
				return err
			}
			return b.StoreRef(leaf)
		})
	}
	first := ToBOC(build())
	for i := 0; i < 25; i++ {
		if !bytes.Equal(ToBOC(build()), first) {
			t.Fatalf("encoding differed on rebuild %d", i)
		}
	}
}
