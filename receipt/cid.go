package receipt

import (
	"fmt"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/resolver"
)

// CID derives the IPFS-compatible CIDv1 (raw codec, sha2-256) under which
// receipt bytes are stored and referenced by supersession chains.
//
// Only canonical bytes get an identity. Anything Canonicalize rejects has no
// CID, so two byte-distinct renderings of the same resolution can never
// circulate under one name.
func CID(receiptBytes []byte) (string, error) {
	canon, err := Canonicalize(receiptBytes)
	if err != nil {
		return "", fmt.Errorf("canonical receipt required: %w", err)
	}
	return cidutil.CIDv1RawSHA256(canon), nil
}

// RenderWithCID renders a receipt and derives its CID in one step.
func RenderWithCID(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions) ([]byte, string, error) {
	b, err := Render(res, chainCID, publisherSetCID, opts)
	return withCID(b, err)
}

// RenderSignedWithCID is RenderWithCID for receipts that must carry a
// signature; it fails when opts has no usable signing key.
func RenderSignedWithCID(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions) ([]byte, string, error) {
	b, err := RenderSigned(res, chainCID, publisherSetCID, opts)
	return withCID(b, err)
}

func withCID(b []byte, err error) ([]byte, string, error) {
	if err != nil {
		return nil, "", err
	}
	id, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, id, nil
}
