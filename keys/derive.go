package keys

import (
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
)

// kdfDomain separates this derivation from every other sha256 use.
const kdfDomain = "xdao-ratewire-kms-lite-v1"

// DeriveRoleSeed stretches a root seed into the Ed25519 seed for one role's
// signing key. The same root and role always produce the same seed, so a
// role key can be rebuilt anywhere the root is available.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if got := len(rootSeed); got != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed is %d bytes, want %d", got, ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	// Preimage layout: seed | 0x00 | domain | 0x00 | "role:"<role>.
	// NUL separators keep adjacent fields from gluing together.
	h := sha256.New()
	h.Write(rootSeed)
	h.Write([]byte{0})
	h.Write([]byte(kdfDomain))
	h.Write([]byte{0})
	h.Write([]byte("role:" + role))
	sum := h.Sum(nil)
	return sum[:ed25519.SeedSize], nil
}
