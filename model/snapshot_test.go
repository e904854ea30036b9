package model

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_ResolverRequest_JSONShape(t *testing.T) {
	req := ResolverRequest{
		Chain:      BlobRef{CID: "bafy-chain-1"},
		Publishers: BlobRef{CID: "bafy-set-1"},
		At:         1700000000,
		Compliance: ComplianceStrict,
	}

	b, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}

	const want = `{
  "chain": {
    "cid": "bafy-chain-1"
  },
  "publishers": {
    "cid": "bafy-set-1"
  },
  "at": 1700000000,
  "compliance": "strict"
}`

	if got := string(b); got != want {
		t.Fatalf("request JSON changed shape:\n%s", got)
	}
}

func TestSnapshot_ResolverResponse_JSONShape(t *testing.T) {
	currencyID := int32(0)
	resp := ResolverResponse{
		Resolution: Resolution{
			State:      "Resolved",
			Confidence: "High",
			Index:      0,
			Payload: &RatePayload{
				Expiration: 1700000600,
				Allocations: []Allocation{
					{Asset: Asset{Kind: "native"}, Amount: "750"},
					{Asset: Asset{Kind: "extra_currency", CurrencyID: &currencyID}, Amount: "250"},
				},
			},
			Exclusions: []Exclusion{},
			Verdicts:   []RuleVerdict{},
		},
		ChainCID:        "bafy-chain-1",
		PublisherSetCID: "bafy-set-1",
		Receipt:         ReceiptDocument{Bytes: []byte("receipt-bytes"), CID: "bafy-receipt-1"},
	}

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}

	const want = `{
  "resolution": {
    "state": "Resolved",
    "confidence": "High",
    "index": 0,
    "payload": {
      "expiration": 1700000600,
      "allocations": [
        {
          "asset": {
            "kind": "native"
          },
          "amount": "750"
        },
        {
          "asset": {
            "kind": "extra_currency",
            "currencyId": 0
          },
          "amount": "250"
        }
      ]
    },
    "exclusions": [],
    "verdicts": []
  },
  "chainCID": "bafy-chain-1",
  "publisherSetCID": "bafy-set-1",
  "receipt": {
    "bytes": "cmVjZWlwdC1ieXRlcw==",
    "cid": "bafy-receipt-1"
  }
}`

	if got := string(b); got != want {
		t.Fatalf("response JSON changed shape:\n%s", got)
	}
}
