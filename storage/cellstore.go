package storage

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cell"
)

// PutCell canonically encodes a cell tree and stores the resulting
// bag-of-cells bytes. The returned CID addresses the canonical encoding.
func PutCell(cas CAS, root *cell.Cell) (cid.Cid, error) {
	if cas == nil {
		return cid.Undef, fmt.Errorf("storage: nil CAS")
	}
	if root == nil {
		return cid.Undef, fmt.Errorf("storage: nil cell")
	}
	return cas.Put(cell.ToBOC(root))
}

// GetCell fetches a block and decodes it as a single-root cell tree.
//
// Beyond the byte-level CID check every adapter performs, the decoded tree
// is re-encoded and compared to the stored bytes, so a block that is valid
// bag-of-cells but not in canonical form is rejected rather than silently
// re-addressed under a different CID later.
func GetCell(cas CAS, id cid.Cid) (*cell.Cell, error) {
	if cas == nil {
		return nil, fmt.Errorf("storage: nil CAS")
	}
	b, err := cas.Get(id)
	if err != nil {
		return nil, err
	}
	root, err := cell.FromBOC(b)
	if err != nil {
		return nil, fmt.Errorf("storage: block %s: %w", id, err)
	}
	if !bytes.Equal(cell.ToBOC(root), b) {
		return nil, fmt.Errorf("storage: block %s is not canonical bag-of-cells: %w", id, cell.ErrNonCanonical)
	}
	return root, nil
}
