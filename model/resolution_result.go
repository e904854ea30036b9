package model

import "github.com/ipfs/go-cid"

// ResolutionResult condenses a resolver run for in-process callers.
//
// Integrations that only need the receipt evidence and the headline outcome
// can take this instead of the full ResolverResponse DTO.
//
// Receipt holds the canonical resolver output bytes and ReceiptCID the CID
// bound to them. Payload is the selected announcement and stays nil unless
// State is Resolved. Verdicts carry the per-role quorum results and
// Exclusions the nodes the run rejected.
//
// The JSON boundary type is ResolverResponse, not this.
type ResolutionResult struct {
	Receipt    []byte
	ReceiptCID cid.Cid
	State      string
	Payload    *RatePayload
	Verdicts   []RuleVerdict
	Exclusions []Exclusion
}
