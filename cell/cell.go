// Package cell implements the ledger's fixed-capacity tree node: bit-level
// building and parsing, the standard representation hash, bag-of-cells byte
// serialization, and the bounded-tree list codec that maps unbounded
// sequences onto the bounded-degree tree.
package cell

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// MaxBits is the inline data capacity of a single cell.
	MaxBits = 1023

	// MaxRefs is the reference capacity of a single cell.
	MaxRefs = 4

	// HashSize is the size of a cell representation hash.
	HashSize = sha256.Size

	// maxCoinsBytes bounds the value width of the variable-length coins
	// field: a 4-bit byte count addresses at most 15 value bytes.
	maxCoinsBytes = 15
)

// Cell is an immutable fixed-capacity tree node holding up to MaxBits bits
// of inline data and up to MaxRefs references to child cells. Cells are
// created through a Builder or by decoding bag-of-cells bytes and are never
// modified afterwards.
type Cell struct {
	bits  int
	data  []byte // ceil(bits/8) bytes, unused trailing bits zero
	refs  []*Cell
	hash  [HashSize]byte
	depth uint16
}

// newCell freezes content into a cell and precomputes its depth and
// representation hash. Callers hand over ownership of data and refs.
func newCell(bits int, data []byte, refs []*Cell) *Cell {
	c := &Cell{bits: bits, data: data, refs: refs}
	for _, r := range refs {
		if r.depth >= c.depth {
			c.depth = r.depth + 1
		}
	}
	c.hash = sha256.Sum256(c.repr())
	return c
}

// repr returns the standard cell representation hashed to identify the
// subtree: the two descriptor bytes, the data with completion tag, each
// child's depth as a big-endian u16, then each child's hash.
func (c *Cell) repr() []byte {
	out := make([]byte, 0, 2+len(c.data)+len(c.refs)*(2+HashSize))
	d1, d2 := c.descriptors()
	out = append(out, d1, d2)
	out = append(out, c.paddedData()...)
	for _, r := range c.refs {
		out = binary.BigEndian.AppendUint16(out, r.depth)
	}
	for _, r := range c.refs {
		out = append(out, r.hash[:]...)
	}
	return out
}

// descriptors returns the refs descriptor and the data-size descriptor
// (floor(bits/8) + ceil(bits/8), odd exactly when a completion tag is
// present).
func (c *Cell) descriptors() (byte, byte) {
	return byte(len(c.refs)), byte(c.bits/8 + (c.bits+7)/8)
}

// paddedData returns the data bytes with the completion tag applied: when
// the bit length is not byte-aligned, a single 1 bit follows the data and
// the remainder of the byte is zero.
func (c *Cell) paddedData() []byte {
	out := append([]byte(nil), c.data...)
	if c.bits%8 != 0 {
		out[len(out)-1] |= 0x80 >> uint(c.bits%8)
	}
	return out
}

// Bits reports the inline data length in bits.
func (c *Cell) Bits() int { return c.bits }

// Refs reports the number of child references.
func (c *Cell) Refs() int { return len(c.refs) }

// Ref returns the i-th child cell.
func (c *Cell) Ref(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, ErrRefUnderflow
	}
	return c.refs[i], nil
}

// Hash returns the representation hash identifying this cell's whole
// subtree. Two cells with equal hashes carry identical content.
func (c *Cell) Hash() [HashSize]byte { return c.hash }

// Depth returns the height of the subtree rooted here; a leaf has depth 0.
func (c *Cell) Depth() uint16 { return c.depth }

// Slice begins sequential reading of the cell's content.
func (c *Cell) Slice() *Slice {
	return &Slice{data: c.data, end: c.bits, refs: c.refs}
}

// Equal reports whether two cells carry identical content, compared by
// representation hash.
func (c *Cell) Equal(o *Cell) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.hash == o.hash
}
