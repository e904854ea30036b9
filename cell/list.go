package cell

import "fmt"

// The bounded-tree list codec packs an ordered sequence into a right-leaning
// chain of cells. Every layer holds up to perCell items plus one reserved
// overflow reference continuing the sequence; the final layer may be partial
// and carries no overflow reference. The empty sequence is a single empty
// cell. Access is strictly sequential: no balancing, no random access.

// BuildList encodes n items into a list tree and returns its root cell. The
// store callback appends item i to the current layer's builder; perCell must
// be chosen so that perCell items plus one reference always fit in a cell.
// Layers are built back to front, so each overflow child is complete before
// its parent stores the reference.
func BuildList(n, perCell int, store func(b *Builder, i int) error) (*Cell, error) {
	if n < 0 || perCell < 1 {
		return nil, fmt.Errorf("cell: list of %d items, %d per layer: %w", n, perCell, ErrValueRange)
	}
	layers := (n + perCell - 1) / perCell
	var tail *Cell
	for li := layers - 1; li >= 0; li-- {
		b := NewBuilder()
		end := (li + 1) * perCell
		if end > n {
			end = n
		}
		for i := li * perCell; i < end; i++ {
			if err := store(b, i); err != nil {
				return nil, err
			}
		}
		if tail != nil {
			if err := b.StoreRef(tail); err != nil {
				return nil, err
			}
		}
		tail = b.Build()
	}
	if tail == nil {
		tail = NewBuilder().Build()
	}
	return tail, nil
}

// LoadInlineList walks a list tree whose items are inline bit fields. The
// load callback consumes exactly one item from the slice; a layer is read
// until its bits are exhausted, then the overflow reference, if present, is
// followed. A layer with more than perCell items or more than one reference
// is malformed.
func LoadInlineList(root *Cell, perCell int, load func(s *Slice) error) error {
	if root == nil || perCell < 1 {
		return fmt.Errorf("cell: inline list walk: %w", ErrValueRange)
	}
	for cur := root; ; {
		s := cur.Slice()
		for n := 0; s.BitsLeft() > 0; n++ {
			if n == perCell {
				return fmt.Errorf("cell: list layer exceeds %d items", perCell)
			}
			if err := load(s); err != nil {
				return err
			}
		}
		switch s.RefsLeft() {
		case 0:
			return nil
		case 1:
			next, err := s.LoadRef()
			if err != nil {
				return err
			}
			cur = next
		default:
			return fmt.Errorf("cell: list layer carries %d references, want at most 1", s.RefsLeft())
		}
	}
}

// LoadRefList walks a list tree whose items are child cells, handing each
// item cell to the load callback. A layer with perCell+1 references holds
// perCell items plus the overflow reference; any other layer holds only
// items and ends the walk. Layers carry no inline data.
func LoadRefList(root *Cell, perCell int, load func(c *Cell) error) error {
	if root == nil || perCell < 1 || perCell >= MaxRefs {
		return fmt.Errorf("cell: ref list walk: %w", ErrValueRange)
	}
	for cur := root; ; {
		if cur.bits != 0 {
			return fmt.Errorf("cell: list layer carries %d inline bits, want none", cur.bits)
		}
		if len(cur.refs) == perCell+1 {
			for _, c := range cur.refs[:perCell] {
				if err := load(c); err != nil {
					return err
				}
			}
			cur = cur.refs[perCell]
			continue
		}
		for _, c := range cur.refs {
			if err := load(c); err != nil {
				return err
			}
		}
		return nil
	}
}
