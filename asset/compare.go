package asset

import (
	"bytes"
	"fmt"

	"xdao.co/ratewire/cell"
)

// Compare orders two assets canonically and returns -1, 0, or 1. The kind
// tag orders first: native before token before extra currency. Token pairs
// order by the 256-bit representation hash of the serialized master
// address, compared as an unsigned integer; this is the order sorted
// asset sequences are content-addressed under. Extra-currency pairs have
// no defined order and fail with ErrUnsupportedComparison.
func Compare(a, b Asset) (int, error) {
	if a == nil || b == nil {
		return 0, fmt.Errorf("asset: compare of nil asset")
	}
	ka, kb := a.Kind(), b.Kind()
	if ka != kb {
		if ka < kb {
			return -1, nil
		}
		return 1, nil
	}
	switch ta := a.(type) {
	case Native:
		return 0, nil
	case Token:
		ha, err := ta.orderingHash()
		if err != nil {
			return 0, err
		}
		hb, err := b.(Token).orderingHash()
		if err != nil {
			return 0, err
		}
		// Equal-width big-endian comparison is the unsigned integer order.
		return bytes.Compare(ha[:], hb[:]), nil
	case ExtraCurrency:
		return 0, ErrUnsupportedComparison
	}
	return 0, fmt.Errorf("asset: compare of unknown kind %s", ka)
}

// orderingHash is the representation hash of a cell holding only the
// serialized master address, not the tagged asset cell.
func (t Token) orderingHash() ([cell.HashSize]byte, error) {
	b := cell.NewBuilder()
	if err := t.Master.StoreTo(b); err != nil {
		return [cell.HashSize]byte{}, err
	}
	return b.Build().Hash(), nil
}
