package keys

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// dilithium3KeyPrefix marks post-quantum publisher keys. A dilithium3
// signature is kilobytes long and can never ride in a chain cell, so
// these keys only sign unbounded text documents such as receipts.
const dilithium3KeyPrefix = "dilithium3:"

// GenerateDilithium3Keypair returns a new Dilithium3 keypair. A nil
// reader uses crypto/rand.
func GenerateDilithium3Keypair(random io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(random)
}

// PublisherKeyFromDilithium3 encodes a Dilithium3 public key into the
// publisher-key string: "dilithium3:" + base64(pubkey).
func PublisherKeyFromDilithium3(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("nil dilithium3 public key")
	}
	return dilithium3KeyPrefix + base64.StdEncoding.EncodeToString(pub.Bytes()), nil
}

// ParseDilithium3PublisherKey decodes a "dilithium3:" publisher-key
// string back into the public key.
func ParseDilithium3PublisherKey(key string) (*mode3.PublicKey, error) {
	rest, ok := strings.CutPrefix(key, dilithium3KeyPrefix)
	if !ok {
		return nil, fmt.Errorf("publisher key must start with %q", dilithium3KeyPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, fmt.Errorf("publisher key base64: %w", err)
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("invalid dilithium3 public key: %w", err)
	}
	return &pk, nil
}

// SignDilithium3Digest returns a base64 dilithium3 signature over an
// already-computed digest.
func SignDilithium3Digest(digest []byte, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("nil dilithium3 private key")
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyDilithium3Digest checks a dilithium3 signature over a digest
// against a "dilithium3:" publisher key.
func VerifyDilithium3Digest(publisherKey string, digest, sig []byte) error {
	pk, err := ParseDilithium3PublisherKey(publisherKey)
	if err != nil {
		return err
	}
	if len(sig) != mode3.SignatureSize {
		return fmt.Errorf("dilithium3 signature must be %d bytes, got %d", mode3.SignatureSize, len(sig))
	}
	if !mode3.Verify(pk, digest, sig) {
		return fmt.Errorf("dilithium3 signature did not verify")
	}
	return nil
}
