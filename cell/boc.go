package cell

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math/bits"
)

// bocMagic tags the serialized bag-of-cells container.
const bocMagic = 0xb5ee9c72

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ToBOC serializes the tree rooted at c into canonical bag-of-cells bytes:
// a single root, cells deduplicated by representation hash and ordered so
// every reference points to a later cell, no index section, and a CRC32-C
// trailer. Equal trees serialize to identical bytes, which makes the output
// suitable for hashing, content addressing, and byte comparison.
func ToBOC(c *Cell) []byte {
	order := topoOrder(c)
	index := make(map[[HashSize]byte]int, len(order))
	for i, cc := range order {
		index[cc.hash] = i
	}

	size := bytesFor(uint64(len(order)))
	var total uint64
	for _, cc := range order {
		total += uint64(2 + (cc.bits+7)/8 + len(cc.refs)*size)
	}
	off := bytesFor(total)

	out := binary.BigEndian.AppendUint32(nil, bocMagic)
	out = append(out, 0x40|byte(size)) // no index, CRC32-C present
	out = append(out, byte(off))
	out = appendUintN(out, uint64(len(order)), size)
	out = appendUintN(out, 1, size) // roots
	out = appendUintN(out, 0, size) // absent
	out = appendUintN(out, total, off)
	out = appendUintN(out, 0, size) // root index
	for _, cc := range order {
		d1, d2 := cc.descriptors()
		out = append(out, d1, d2)
		out = append(out, cc.paddedData()...)
		for _, r := range cc.refs {
			out = appendUintN(out, uint64(index[r.hash]), size)
		}
	}
	return binary.LittleEndian.AppendUint32(out, crc32.Checksum(out, crcTable))
}

// topoOrder returns the distinct cells of the tree in reverse post-order:
// the root first, every cell before all of its children.
func topoOrder(root *Cell) []*Cell {
	seen := make(map[[HashSize]byte]bool)
	var post []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		if seen[c.hash] {
			return
		}
		seen[c.hash] = true
		for _, r := range c.refs {
			visit(r)
		}
		post = append(post, c)
	}
	visit(root)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// bytesFor returns the minimal whole-byte width holding n.
func bytesFor(n uint64) int {
	w := 1
	for w < 8 && n>>uint(8*w) != 0 {
		w++
	}
	return w
}

func appendUintN(out []byte, v uint64, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		out = append(out, byte(v>>uint(8*i)))
	}
	return out
}

// FromBOC parses bag-of-cells bytes into their root cell. The tolerant
// superset of the canonical form is accepted: an optional index section, an
// optional checksum, and any cell order with forward references. Exactly one
// root is required, exotic cells are rejected, and a present checksum must
// verify. Re-encode with ToBOC to recover the canonical bytes.
func FromBOC(data []byte) (*Cell, error) {
	r := bocReader{data: data}

	magic, err := r.uint(4)
	if err != nil {
		return nil, err
	}
	if magic != bocMagic {
		return nil, fmt.Errorf("cell: boc magic %08x", magic)
	}
	flags, err := r.uint(1)
	if err != nil {
		return nil, err
	}
	hasIdx := flags&0x80 != 0
	hasCRC := flags&0x40 != 0
	if flags&0x18 != 0 {
		return nil, fmt.Errorf("cell: reserved boc flags %#02x set", flags&0x18)
	}
	size := int(flags & 0x07)
	if size < 1 || size > 4 {
		return nil, fmt.Errorf("cell: boc reference width %d", size)
	}
	off64, err := r.uint(1)
	if err != nil {
		return nil, err
	}
	off := int(off64)
	if off < 1 || off > 8 {
		return nil, fmt.Errorf("cell: boc offset width %d", off)
	}
	cells, err := r.uint(size)
	if err != nil {
		return nil, err
	}
	roots, err := r.uint(size)
	if err != nil {
		return nil, err
	}
	absent, err := r.uint(size)
	if err != nil {
		return nil, err
	}
	total, err := r.uint(off)
	if err != nil {
		return nil, err
	}
	if roots != 1 {
		return nil, fmt.Errorf("cell: boc carries %d roots, want exactly 1", roots)
	}
	if absent != 0 {
		return nil, fmt.Errorf("cell: boc absent cells not supported")
	}
	if cells == 0 || cells > uint64(len(data)) {
		return nil, fmt.Errorf("cell: boc cell count %d out of range", cells)
	}
	rootIdx, err := r.uint(size)
	if err != nil {
		return nil, err
	}
	if rootIdx >= cells {
		return nil, fmt.Errorf("cell: boc root index %d of %d cells", rootIdx, cells)
	}
	if hasIdx {
		if err := r.skip(int(cells) * off); err != nil {
			return nil, err
		}
	}
	body, err := r.take(int(total))
	if err != nil {
		return nil, err
	}
	if hasCRC {
		sum := crc32.Checksum(data[:r.pos], crcTable)
		tail, err := r.take(4)
		if err != nil {
			return nil, err
		}
		// checksum stored little-endian
		if binary.LittleEndian.Uint32(tail) != sum {
			return nil, fmt.Errorf("cell: boc checksum mismatch")
		}
	}
	if r.rest() != 0 {
		return nil, fmt.Errorf("cell: %d trailing bytes after boc", r.rest())
	}

	raws, err := parseCellRecords(body, int(cells), size)
	if err != nil {
		return nil, err
	}

	// Children carry higher indices, so building back to front resolves
	// every reference to an already built cell.
	built := make([]*Cell, cells)
	for i := int(cells) - 1; i >= 0; i-- {
		refs := make([]*Cell, len(raws[i].refs))
		for j, idx := range raws[i].refs {
			refs[j] = built[idx]
		}
		built[i] = newCell(raws[i].bits, raws[i].data, refs)
	}
	return built[rootIdx], nil
}

type rawCell struct {
	bits int
	data []byte
	refs []uint64
}

func parseCellRecords(body []byte, cells, size int) ([]rawCell, error) {
	r := bocReader{data: body}
	raws := make([]rawCell, cells)
	for i := range raws {
		d1, err := r.uint(1)
		if err != nil {
			return nil, err
		}
		if d1&0x08 != 0 {
			return nil, fmt.Errorf("cell %d: exotic cells not supported", i)
		}
		if d1>>5 != 0 {
			return nil, fmt.Errorf("cell %d: level %d not supported", i, d1>>5)
		}
		nrefs := int(d1 & 0x07)
		if nrefs > MaxRefs {
			return nil, fmt.Errorf("cell %d: %d references", i, nrefs)
		}
		d2, err := r.uint(1)
		if err != nil {
			return nil, err
		}
		raw, err := r.take(int(d2+1) / 2)
		if err != nil {
			return nil, err
		}
		nbits := int(d2/2) * 8
		data := append([]byte(nil), raw...)
		if d2%2 == 1 {
			last := data[len(data)-1]
			if last == 0 {
				return nil, fmt.Errorf("cell %d: missing completion tag: %w", i, ErrNonCanonical)
			}
			tz := bits.TrailingZeros8(last)
			nbits += 7 - tz
			data[len(data)-1] &^= 1 << uint(tz)
		}
		if nbits > MaxBits {
			return nil, fmt.Errorf("cell %d: %d bits", i, nbits)
		}
		refs := make([]uint64, nrefs)
		for j := range refs {
			idx, err := r.uint(size)
			if err != nil {
				return nil, err
			}
			if idx <= uint64(i) || idx >= uint64(cells) {
				return nil, fmt.Errorf("cell %d: reference to cell %d breaks forward order", i, idx)
			}
			refs[j] = idx
		}
		raws[i] = rawCell{bits: nbits, data: data, refs: refs}
	}
	if r.rest() != 0 {
		return nil, fmt.Errorf("cell: %d trailing bytes in cell records", r.rest())
	}
	return raws, nil
}

// bocReader is a bounds-checked big-endian cursor over boc bytes.
type bocReader struct {
	data []byte
	pos  int
}

func (r *bocReader) rest() int { return len(r.data) - r.pos }

func (r *bocReader) uint(n int) (uint64, error) {
	if r.rest() < n {
		return 0, fmt.Errorf("cell: boc truncated at byte %d", r.pos)
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(r.data[r.pos+i])
	}
	r.pos += n
	return v, nil
}

func (r *bocReader) take(n int) ([]byte, error) {
	if r.rest() < n {
		return nil, fmt.Errorf("cell: boc truncated at byte %d", r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *bocReader) skip(n int) error {
	_, err := r.take(n)
	return err
}
