package asset

import (
	"fmt"

	"xdao.co/ratewire/address"
	"xdao.co/ratewire/cell"
)

// tagBits is the width of the wire tag prefix.
const tagBits = 4

func (Native) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(KindNative), tagBits); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func (t Token) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(KindToken), tagBits); err != nil {
		return nil, err
	}
	if err := t.Master.StoreTo(b); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func (e ExtraCurrency) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreUint(uint64(KindExtraCurrency), tagBits); err != nil {
		return nil, err
	}
	if err := b.StoreInt(int64(e.ID), 32); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Load reads the tagged wire form from s: the 4-bit kind tag, then the
// variant payload. Unrecognized tags fail with ErrUnknownTag.
func Load(s *cell.Slice) (Asset, error) {
	tag, err := s.LoadUint(tagBits)
	if err != nil {
		return nil, err
	}
	switch Kind(tag) {
	case KindNative:
		return Native{}, nil
	case KindToken:
		master, err := address.Load(s)
		if err != nil {
			return nil, err
		}
		return Token{Master: master}, nil
	case KindExtraCurrency:
		id, err := s.LoadInt(32)
		if err != nil {
			return nil, err
		}
		return ExtraCurrency{ID: int32(id)}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
}

// FromCell decodes an asset serialized into its own cell by Cell. Trailing
// bits or references after the payload are rejected.
func FromCell(c *cell.Cell) (Asset, error) {
	if c == nil {
		return nil, fmt.Errorf("asset: nil cell")
	}
	s := c.Slice()
	a, err := Load(s)
	if err != nil {
		return nil, err
	}
	if s.BitsLeft() != 0 || s.RefsLeft() != 0 {
		return nil, fmt.Errorf("asset: %d trailing bits and %d references after %s payload: %w",
			s.BitsLeft(), s.RefsLeft(), a.Kind(), cell.ErrNonCanonical)
	}
	return a, nil
}
