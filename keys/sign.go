package keys

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
)

// Signer signs payload digests with an Ed25519 private key held in memory.
//
// It satisfies the ratewire signing contract: Sign receives the digest to
// sign, never the raw encoded bytes. The context is consulted before the
// (purely local) signing operation so cancelled calls fail fast.
type Signer struct {
	priv ed25519.PrivateKey
}

// NewSignerFromSeed builds a Signer from a 32-byte Ed25519 seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateSigner creates a Signer with a fresh random key. A nil reader
// uses crypto/rand.
func GenerateSigner(random io.Reader) (*Signer, error) {
	if random == nil {
		random = rand.Reader
	}
	_, priv, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, err
	}
	return &Signer{priv: priv}, nil
}

// Sign returns the Ed25519 signature over digest.
func (s *Signer) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(s.priv, digest), nil
}

// PublicKey returns the signer's public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// PublisherKey returns the signer's public key in publisher-key form.
func (s *Signer) PublisherKey() string {
	key, _ := PublisherKeyFromPublicKey(s.PublicKey())
	return key
}

// VerifyDigest checks sig over digest against a publisher-key string.
func VerifyDigest(publisherKey string, digest, sig []byte) error {
	pub, err := ParsePublisherKey(publisherKey)
	if err != nil {
		return err
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("ed25519 signature must be %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}
	if !ed25519.Verify(pub, digest, sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}
