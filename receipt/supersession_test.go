package receipt

import (
	"testing"
)

func TestValidateSupersession_OK(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	// A fresh chain under the same trust anchor supersedes the old verification.
	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{
		ResolverID:           "xdao-ratewire-reference",
		VerifiedAt:           200,
		SupersedesReceiptCID: oldCID,
	})

	if err := ValidateSupersession(newBytes, oldBytes); err != nil {
		t.Fatalf("ValidateSupersession: %v", err)
	}
}

func TestValidateSupersession_AllowsEqualVerifiedAt(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{
		ResolverID:           "xdao-ratewire-reference",
		VerifiedAt:           100,
		SupersedesReceiptCID: oldCID,
	})

	if err := ValidateSupersession(newBytes, oldBytes); err != nil {
		t.Fatalf("ValidateSupersession: %v", err)
	}
}

func TestValidateSupersession_RejectsMissingSupersedesField(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 200})

	if err := ValidateSupersession(newBytes, oldBytes); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSupersession_RejectsWrongSupersedesCID(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{
		ResolverID:           "xdao-ratewire-reference",
		VerifiedAt:           200,
		SupersedesReceiptCID: "bafy-not-the-old-cid",
	})

	if err := ValidateSupersession(newBytes, oldBytes); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSupersession_RejectsDifferentResolverID(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{
		ResolverID:           "xdao-ratewire-other",
		VerifiedAt:           200,
		SupersedesReceiptCID: oldCID,
	})

	if err := ValidateSupersession(newBytes, oldBytes); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSupersession_RejectsDifferentPublisherSet(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-2", RenderOptions{
		ResolverID:           "xdao-ratewire-reference",
		VerifiedAt:           200,
		SupersedesReceiptCID: oldCID,
	})

	if err := ValidateSupersession(newBytes, oldBytes); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSupersession_RejectsEarlierVerifiedAt(t *testing.T) {
	oldBytes := mustRender(t, unresolvedResolution(), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 200})
	oldCID, err := CID(oldBytes)
	if err != nil {
		t.Fatalf("CID(old): %v", err)
	}

	newBytes := mustRender(t, resolvedResolution(t, 900), "bafy-chain-2", "bafy-set-1", RenderOptions{
		ResolverID:           "xdao-ratewire-reference",
		VerifiedAt:           100,
		SupersedesReceiptCID: oldCID,
	})

	if err := ValidateSupersession(newBytes, oldBytes); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSupersession_RejectsIdenticalBytes(t *testing.T) {
	b := mustRender(t, resolvedResolution(t, 600), "bafy-chain-1", "bafy-set-1", RenderOptions{ResolverID: "xdao-ratewire-reference", VerifiedAt: 100})
	if err := ValidateSupersession(b, b); err == nil {
		t.Fatalf("expected error")
	}
}
