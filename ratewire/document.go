package ratewire

import (
	"xdao.co/ratewire/cidutil"
)

// Document is a first-class wire object: canonical bag-of-cells bytes plus
// the CID derived from them. Payloads and chains are treated as documents
// rather than ephemeral output so they can be archived, content-addressed,
// and re-verified later.
//
// The wrapper carries no trust of its own; verification still goes through
// the signature and digest paths.
type Document struct {
	Bytes []byte
	CID   string
}

// NewPayloadDocument encodes a payload and computes its CID.
func NewPayloadDocument(p *RatePayload) (*Document, error) {
	b, err := p.Encode()
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: b, CID: cidutil.CIDv1RawSHA256(b)}, nil
}

// NewChainDocument encodes a chain and computes its CID.
func NewChainDocument(c *SignedRateChain) (*Document, error) {
	b, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: b, CID: cidutil.CIDv1RawSHA256(b)}, nil
}

// PayloadDocumentFromBytes parses payload bytes, re-encodes them in
// canonical form, and computes the CID over the canonical bytes. Foreign
// encodings that decode to the same payload thus share a CID.
func PayloadDocumentFromBytes(data []byte) (*Document, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}
	return NewPayloadDocument(p)
}

// ChainDocumentFromBytes parses chain bytes, re-encodes them in canonical
// form, and computes the CID over the canonical bytes.
func ChainDocumentFromBytes(data []byte) (*Document, error) {
	c, err := DecodeChain(data)
	if err != nil {
		return nil, err
	}
	return NewChainDocument(c)
}
