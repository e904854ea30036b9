package keys

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// Sealed-seed envelope parameters. The scrypt cost is the interactive
// profile; bumping it requires a new envelope version.
const (
	envelopeVersion = 1
	envelopeKDF     = "scrypt"
	scryptN         = 1 << 15
	scryptR         = 8
	scryptP         = 1
	saltSize        = 16
)

type sealedEnvelope struct {
	Version int    `json:"version"`
	KDF     string `json:"kdf"`
	N       int    `json:"n"`
	R       int    `json:"r"`
	P       int    `json:"p"`
	Salt    string `json:"salt"`
	Nonce   string `json:"nonce"`
	Sealed  string `json:"sealed"`
}

// SealSeed encrypts an Ed25519 seed under a passphrase. The result is a
// self-describing JSON envelope safe to store on disk.
func SealSeed(seed []byte, passphrase string) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	if passphrase == "" {
		return nil, errors.New("passphrase cannot be empty")
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	key, err := envelopeKey(passphrase, salt, scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	box := secretbox.Seal(nil, seed, &nonce, key)
	env := sealedEnvelope{
		Version: envelopeVersion,
		KDF:     envelopeKDF,
		N:       scryptN,
		R:       scryptR,
		P:       scryptP,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Nonce:   base64.StdEncoding.EncodeToString(nonce[:]),
		Sealed:  base64.StdEncoding.EncodeToString(box),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// OpenSeed decrypts a sealed-seed envelope produced by SealSeed.
func OpenSeed(data []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase cannot be empty")
	}
	var env sealedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("sealed envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.KDF != envelopeKDF {
		return nil, fmt.Errorf("unsupported envelope kdf %q", env.KDF)
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("envelope salt: %w", err)
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("envelope nonce: %w", err)
	}
	if len(nonceBytes) != 24 {
		return nil, fmt.Errorf("envelope nonce must be 24 bytes, got %d", len(nonceBytes))
	}
	box, err := base64.StdEncoding.DecodeString(env.Sealed)
	if err != nil {
		return nil, fmt.Errorf("envelope payload: %w", err)
	}
	key, err := envelopeKey(passphrase, salt, env.N, env.R, env.P)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	seed, ok := secretbox.Open(nil, box, &nonce, key)
	if !ok {
		return nil, errors.New("wrong passphrase or corrupted envelope")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("unsealed seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func envelopeKey(passphrase string, salt []byte, n, r, p int) (*[32]byte, error) {
	raw, err := scrypt.Key([]byte(passphrase), salt, n, r, p, 32)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
