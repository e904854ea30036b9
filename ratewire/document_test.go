package ratewire

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/cidutil"
)

func TestPayloadDocumentCID(t *testing.T) {
	p := mustPayload(t, 3000, mustAlloc(t, asset.NewNative(), 12))
	doc, err := NewPayloadDocument(p)
	if err != nil {
		t.Fatalf("NewPayloadDocument: %v", err)
	}
	if len(doc.Bytes) == 0 {
		t.Fatalf("expected encoded bytes")
	}
	if !strings.HasPrefix(doc.CID, "bafkrei") {
		t.Fatalf("expected CIDv1 raw sha2-256 prefix, got %q", doc.CID)
	}
	if doc.CID != cidutil.CIDv1RawSHA256(doc.Bytes) {
		t.Fatalf("CID does not match document bytes")
	}
}

func TestPayloadDocumentFromBytesCanonicalizes(t *testing.T) {
	native := asset.NewNative()
	token := asset.NewToken(tokenAddr(0x31))

	canonical, err := NewPayloadDocument(mustPayload(t, 5,
		mustAlloc(t, native, 1),
		mustAlloc(t, token, 2),
	))
	if err != nil {
		t.Fatalf("NewPayloadDocument: %v", err)
	}

	// A foreign encoding with reversed allocation order must map to the
	// same document.
	foreign := payloadBOC(t, 5,
		assetListCell(t, mustAssetCell(t, token), mustAssetCell(t, native)),
		amountListCell(t, 2, 1),
		0)
	doc, err := PayloadDocumentFromBytes(foreign)
	if err != nil {
		t.Fatalf("PayloadDocumentFromBytes: %v", err)
	}
	if doc.CID != canonical.CID {
		t.Fatalf("foreign ordering changed the CID: %s vs %s", doc.CID, canonical.CID)
	}
	if !bytes.Equal(doc.Bytes, canonical.Bytes) {
		t.Fatalf("foreign ordering changed the canonical bytes")
	}
}

func TestChainDocumentRoundTrip(t *testing.T) {
	_, priv := mustTestKeypair(t, 0x21)
	chain, err := BuildChain(context.Background(), testPayloads(t, 2), ed25519Signer(priv))
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	doc, err := NewChainDocument(chain)
	if err != nil {
		t.Fatalf("NewChainDocument: %v", err)
	}
	back, err := ChainDocumentFromBytes(doc.Bytes)
	if err != nil {
		t.Fatalf("ChainDocumentFromBytes: %v", err)
	}
	if back.CID != doc.CID || !bytes.Equal(back.Bytes, doc.Bytes) {
		t.Fatalf("chain document is not stable across decode and re-encode")
	}
}

func TestPayloadDocumentFromBytesRejectsGarbage(t *testing.T) {
	_, err := PayloadDocumentFromBytes([]byte("not a payload"))
	checkRule(t, err, KindParse, RuleMalformed)
}
