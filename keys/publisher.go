package keys

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// publisherKeyPrefix marks the only supported key algorithm.
const publisherKeyPrefix = "ed25519:"

// PublisherKeyFromPublicKey encodes an Ed25519 public key into the
// publisher-key string: "ed25519:" + base64(pubkey).
func PublisherKeyFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key: want %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return publisherKeyPrefix + base64.StdEncoding.EncodeToString(pub), nil
}

// GeneratePublisherKeyFromSeed returns the publisher-key string for an
// Ed25519 seed, in the same "ed25519:" + base64(pubkey) form the key store
// and CLI emit.
func GeneratePublisherKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return publisherKeyPrefix + base64.StdEncoding.EncodeToString(pub)
}

// ParsePublisherKey decodes a publisher-key string back into the public key.
func ParsePublisherKey(key string) (ed25519.PublicKey, error) {
	rest, ok := strings.CutPrefix(key, publisherKeyPrefix)
	if !ok {
		return nil, fmt.Errorf("publisher key must start with %q", publisherKeyPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, fmt.Errorf("publisher key base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key: want %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
