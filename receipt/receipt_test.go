package receipt

import (
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/ratewire"
	"xdao.co/ratewire/resolver"
)

func mustPayload(t *testing.T, expiration uint32, amount int64) *ratewire.RatePayload {
	t.Helper()
	alloc, err := ratewire.NewAllocation(asset.NewNative(), big.NewInt(amount))
	if err != nil {
		t.Fatalf("NewAllocation: %v", err)
	}
	p, err := ratewire.NewRatePayload(expiration, []ratewire.Allocation{alloc})
	if err != nil {
		t.Fatalf("NewRatePayload: %v", err)
	}
	return p
}

func resolvedResolution(t *testing.T, expiration uint32) *resolver.Resolution {
	t.Helper()
	return &resolver.Resolution{
		State:      resolver.StateResolved,
		Confidence: resolver.ConfidenceHigh,
		Payload:    mustPayload(t, expiration, 500_000_000),
		Index:      0,
	}
}

func unresolvedResolution() *resolver.Resolution {
	return &resolver.Resolution{
		State:      resolver.StateUnresolved,
		Confidence: resolver.ConfidenceUndefined,
		Index:      -1,
	}
}

func mustRender(t *testing.T, res *resolver.Resolution, chainCID, setCID string, opts RenderOptions) []byte {
	t.Helper()
	b, err := Render(res, chainCID, setCID, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return b
}

func TestRender_AlwaysHasAllSections(t *testing.T) {
	out := string(mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{}))

	if !strings.HasPrefix(out, Preamble+"\n") {
		t.Fatalf("expected receipt preamble")
	}
	if !strings.Contains(out, Postamble+"\n") {
		t.Fatalf("expected receipt postamble")
	}
	for _, sec := range []string{"META", "INPUTS", "RESULT", "EXCLUSIONS", "VERDICTS", "CRYPTO"} {
		if !strings.Contains(out, "\n"+sec+"\n") {
			t.Fatalf("expected receipt to contain section %s", sec)
		}
	}
	if !strings.Contains(out, "Mode: permissive\n") {
		t.Fatalf("expected default Mode line")
	}
	if !strings.Contains(out, "Verified-At: 0\n") {
		t.Fatalf("expected Verified-At line")
	}
}

func TestRender_SelectionFieldsOnlyWhenResolved(t *testing.T) {
	resolved := string(mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{VerifiedAt: 100}))
	for _, field := range []string{"Payload-Digest: ", "Payload-Expiration: 600", "Selected-Index: 0"} {
		if !strings.Contains(resolved, field) {
			t.Fatalf("expected resolved receipt to contain %q", field)
		}
	}

	unresolved := string(mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{VerifiedAt: 100}))
	for _, field := range []string{"Payload-Digest", "Payload-Expiration", "Selected-Index"} {
		if strings.Contains(unresolved, field) {
			t.Fatalf("did not expect %q in unresolved receipt", field)
		}
	}
}

func TestRender_ResolvedWithoutPayloadFails(t *testing.T) {
	res := &resolver.Resolution{State: resolver.StateResolved, Confidence: resolver.ConfidenceHigh}
	if _, err := Render(res, "bafy-chain-1", "bafy-set-1", RenderOptions{}); err == nil {
		t.Fatalf("expected error for resolved resolution without payload")
	}
}

func TestRender_SignsWhenKeyProvided(t *testing.T) {
	pub, priv := mustKeypair(t, 0x5A)
	resolverKey := resolverKeyFor(pub)

	out := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{
		VerifiedAt:  100,
		ResolverKey: resolverKey,
		PrivateKey:  priv,
	})
	text := string(out)
	if !strings.Contains(text, "\nCRYPTO\n") {
		t.Fatalf("missing CRYPTO section")
	}
	if !strings.Contains(text, "Resolver-Key: "+resolverKey+"\n") {
		t.Fatalf("missing Resolver-Key")
	}
	if !strings.Contains(text, "Signature: ") {
		t.Fatalf("missing Signature line")
	}

	scope, err := signatureScope(out)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	digest := sha256.Sum256(scope)
	if !ed25519.Verify(pub, digest[:], extractSignature(t, text)) {
		t.Fatalf("signature did not verify")
	}
}

// extractSignature decodes the base64 value of the Signature line in a
// rendered receipt, failing the test when none is present.
func extractSignature(t *testing.T, text string) []byte {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		b64, ok := strings.CutPrefix(line, "Signature: ")
		if !ok {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			t.Fatalf("decode sig: %v", err)
		}
		return sig
	}
	t.Fatalf("signature line not found")
	return nil
}

func TestRenderSigned_RequiresKeyMaterial(t *testing.T) {
	if _, err := RenderSigned(resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{}); err == nil {
		t.Fatalf("expected error without key material")
	}

	pub, _ := mustKeypair(t, 0x5A)
	opts := RenderOptions{ResolverKey: resolverKeyFor(pub)}
	if _, err := RenderSigned(resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", opts); err == nil {
		t.Fatalf("expected error without private key")
	}
}
