package receipt

import (
	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/resolver"
)

// Document is a first-class receipt object.
//
// Bytes are canonical receipt bytes. CID is derived from Bytes.
//
// A receipt is intentionally treated as a document (not ephemeral output) so
// it can be archived, inspected, and re-verified.
//
// Wrapping adds no trust semantics; VerifySignature reads the bytes alone.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocumentFromBytes canonicalizes receipt bytes and computes the receipt CID.
func NewDocumentFromBytes(receiptBytes []byte) (*Document, error) {
	canon, err := Canonicalize(receiptBytes)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: cidutil.CIDv1RawSHA256(canon)}, nil
}

// RenderDocument renders receipt bytes from a resolver Resolution and returns
// a canonical Document (bytes + CID).
func RenderDocument(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions) (*Document, error) {
	b, err := Render(res, chainCID, publisherSetCID, opts)
	if err != nil {
		return nil, err
	}
	return NewDocumentFromBytes(b)
}
