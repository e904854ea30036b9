// Package cidutil derives content identifiers for canonical document
// bytes. Every CID in this module is CIDv1 with the "raw" multicodec and
// a sha2-256 multihash, computed over canonical bag-of-cells (or other
// canonical text) bytes, so equal documents always share a CID.
package cidutil

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/ratewire/cell"
)

// sum256 wraps data in a sha2-256 multihash. multihash.Sum can only fail
// on unknown codes or bad lengths, neither of which applies here.
func sum256(data []byte) (multihash.Multihash, error) {
	return multihash.Sum(data, multihash.SHA2_256, -1)
}

// CIDv1RawSHA256 returns the CIDv1 string (raw multicodec, sha2-256
// multihash) for data.
func CIDv1RawSHA256(data []byte) string {
	sum, err := sum256(data)
	if err != nil {
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDv1RawSHA256CID is CIDv1RawSHA256 returning the parsed cid.Cid.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := sum256(data)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CellCID returns the CID of a cell tree's canonical bag-of-cells
// encoding. Trees with equal representation hashes encode to equal bytes,
// so they share a CID.
func CellCID(root *cell.Cell) (cid.Cid, error) {
	if root == nil {
		return cid.Undef, errors.New("cidutil: nil cell")
	}
	return CIDv1RawSHA256CID(cell.ToBOC(root))
}
