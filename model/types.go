package model

// Asset is the interchange form of a tradable asset identity.
//
// Kind is one of "native", "token", "extra_currency". Master is set only for
// token assets (raw address form); CurrencyID only for extra-currency assets.
type Asset struct {
	Kind       string `json:"kind"`
	Master     string `json:"master,omitempty"`
	CurrencyID *int32 `json:"currencyId,omitempty"`
}

// Allocation pairs an asset with its weight.
//
// Amount is a base-10 decimal string so consumers never round through floats.
type Allocation struct {
	Asset  Asset  `json:"asset"`
	Amount string `json:"amount"`
}

type RatePayload struct {
	Expiration  uint32       `json:"expiration"`
	Allocations []Allocation `json:"allocations"`
}

// ChainNode is one signed announcement in head-first order.
// Signature is lowercase hex.
type ChainNode struct {
	Signature string      `json:"signature"`
	Payload   RatePayload `json:"payload"`
	Next      *ChainNode  `json:"next,omitempty"`
}

// BlobRef carries an input inline or names it by CID. Exactly one field is
// set per ref; encoding/json renders Bytes as base64.
type BlobRef struct {
	CID   string `json:"cid,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
}

// ComplianceMode is the wire spelling of the resolver compliance knob.
type ComplianceMode string

const (
	CompliancePermissive ComplianceMode = "permissive"
	ComplianceStrict     ComplianceMode = "strict"
)

type ResolverRequest struct {
	Chain      BlobRef        `json:"chain"`
	Publishers BlobRef        `json:"publishers"`
	At         uint32         `json:"at"`
	Compliance ComplianceMode `json:"compliance"`
}

type Exclusion struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type RuleVerdict struct {
	Role          string   `json:"role"`
	Quorum        int      `json:"quorum"`
	Observed      int      `json:"observed"`
	PublisherKeys []string `json:"publisherKeys"`
	Satisfied     bool     `json:"satisfied"`
	Reason        string   `json:"reason"`
}

type Resolution struct {
	State      string        `json:"state"`
	Confidence string        `json:"confidence"`
	Index      int           `json:"index"`
	Payload    *RatePayload  `json:"payload,omitempty"`
	Exclusions []Exclusion   `json:"exclusions"`
	Verdicts   []RuleVerdict `json:"verdicts"`
}

type ReceiptDocument struct {
	Bytes []byte `json:"bytes"`
	CID   string `json:"cid"`
}

type ResolverResponse struct {
	Resolution      Resolution      `json:"resolution"`
	ChainCID        string          `json:"chainCID"`
	PublisherSetCID string          `json:"publisherSetCID"`
	Receipt         ReceiptDocument `json:"receipt"`
}
