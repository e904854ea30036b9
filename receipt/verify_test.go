package receipt

import (
	"bytes"
	"strings"
	"testing"
)

func TestVerifySignature_UnsignedReturnsFalse(t *testing.T) {
	out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{})
	ok, err := VerifySignature(out)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if ok {
		t.Fatalf("expected unsigned receipt to return ok=false")
	}
}

func TestVerifySignature_SignedVerifies(t *testing.T) {
	pub, priv := mustKeypair(t, 0x5A)
	out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{
		ResolverKey: resolverKeyFor(pub),
		PrivateKey:  priv,
	})

	ok, err := VerifySignature(out)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
}

func TestVerifySignature_HonorsDeclaredHashAlg(t *testing.T) {
	pub, priv := mustKeypair(t, 0x33)
	for _, alg := range []string{"sha256", "sha512", "sha3-256"} {
		out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{
			ResolverKey: resolverKeyFor(pub),
			PrivateKey:  priv,
			HashAlg:     alg,
		})
		if !strings.Contains(string(out), "Hash-Alg: "+alg+"\n") {
			t.Fatalf("missing Hash-Alg line for %s", alg)
		}
		ok, err := VerifySignature(out)
		if err != nil {
			t.Fatalf("VerifySignature(%s): %v", alg, err)
		}
		if !ok {
			t.Fatalf("expected ok=true for %s", alg)
		}
	}
}

func TestVerifySignature_RejectsNonCanonicalBytes(t *testing.T) {
	pub, priv := mustKeypair(t, 0x11)
	out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{
		ResolverKey: resolverKeyFor(pub),
		PrivateKey:  priv,
	})

	bad := []byte(strings.ReplaceAll(string(out), "\n", "\r\n"))
	ok, err := VerifySignature(bad)
	if err == nil {
		t.Fatalf("expected error")
	}
	if ok {
		t.Fatalf("expected ok=false")
	}
}

func TestVerifySignature_RejectsTamperedResult(t *testing.T) {
	pub, priv := mustKeypair(t, 0x44)
	out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{
		ResolverKey: resolverKeyFor(pub),
		PrivateKey:  priv,
	})

	bad := bytes.Replace(out, []byte("Confidence: High\n"), []byte("Confidence: Medium\n"), 1)
	if bytes.Equal(out, bad) {
		t.Fatalf("failed to mutate receipt bytes")
	}
	ok, err := VerifySignature(bad)
	if err == nil {
		t.Fatalf("expected error for tampered receipt")
	}
	if ok {
		t.Fatalf("expected ok=false")
	}
}

func TestRenderDocument_ProducesCanonicalBytesAndStableCID(t *testing.T) {
	doc, err := RenderDocument(resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if _, err := Canonicalize(doc.Bytes); err != nil {
		t.Fatalf("canonicalize rendered receipt: %v", err)
	}
	cid2, err := CID(doc.Bytes)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if doc.CID != cid2 {
		t.Fatalf("CID mismatch: %s vs %s", doc.CID, cid2)
	}
}
