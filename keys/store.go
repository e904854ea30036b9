package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// KeyStore is a local-first manager for publisher and resolver seeds.
//
// EXPERIMENTAL: the on-disk layout is not covered by the protocol stability
// promise and may change between minor versions.
//
// Directory holds one subdirectory per identifier: a root seed (plaintext
// root.key, or passphrase-sealed root.key.sealed) plus derived role seeds
// under roles/. Role derivation is deterministic, so a backup of the root
// seed recovers every role key.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	Roles      []string
	Sealed     bool
}

// GetDefaultDirectory resolves the key directory: $XDAO_RATEWIRE_HOME/keys
// when the variable is set, otherwise ~/.xdao/ratewire/keys.
func GetDefaultDirectory() (string, error) {
	if home := os.Getenv("XDAO_RATEWIRE_HOME"); home != "" {
		return filepath.Join(home, "keys"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "ratewire", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory != "" {
		return &KeyStore{Directory: directory}, nil
	}
	directory, err := GetDefaultDirectory()
	if err != nil {
		return nil, err
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) sealedRootKeyPath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key.sealed")
}

func (ks *KeyStore) roleKeyPath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

// Identifiers and roles become path segments, so both are restricted to
// ASCII letters, digits, hyphen and underscore.
func checkPathSegment(value, what string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, char := range value {
		switch {
		case char >= 'a' && char <= 'z':
		case char >= 'A' && char <= 'Z':
		case char >= '0' && char <= '9':
		case char == '-' || char == '_':
		default:
			return fmt.Errorf("invalid character %q in %s", char, what)
		}
	}
	return nil
}

// CheckKeyName reports whether identifier is usable as a key name.
func CheckKeyName(identifier string) error {
	return checkPathSegment(identifier, "identifier")
}

// CheckRole reports whether role is usable as a role name.
func CheckRole(role string) error {
	return checkPathSegment(role, "role")
}

// ParseSeedHex decodes a hex-encoded 32-byte seed, tolerating surrounding
// whitespace and an optional 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("want seed of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// writeKeyFile creates a 0600 key file, refusing to clobber an existing one
// unless overwrite is set.
func (ks *KeyStore) writeKeyFile(filePath string, content []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	exclusive := os.O_EXCL
	if overwrite {
		exclusive = os.O_TRUNC
	}
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|exclusive, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (ks *KeyStore) saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	return ks.writeKeyFile(filePath, []byte(hex.EncodeToString(seed)+"\n"), overwrite)
}

func (ks *KeyStore) loadSeedFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// loadRootSeed prefers the sealed envelope when a passphrase is supplied,
// falling back to the plaintext root key otherwise.
func (ks *KeyStore) loadRootSeed(identifier, passphrase string) ([]byte, error) {
	if passphrase != "" {
		data, err := os.ReadFile(ks.sealedRootKeyPath(identifier))
		if err != nil {
			return nil, err
		}
		return OpenSeed(data, passphrase)
	}
	return ks.loadSeedFromFile(ks.rootKeyPath(identifier))
}

// InitializeRootKey stores a plaintext root seed and returns its
// publisher key.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (publisherKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(identifier)
	if err := ks.saveSeedToFile(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return GeneratePublisherKeyFromSeed(seed), filePath, nil
}

// InitializeRootKeySealed stores a passphrase-sealed root seed and returns
// its publisher key.
func (ks *KeyStore) InitializeRootKeySealed(identifier string, seed []byte, passphrase string, overwrite bool) (publisherKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	if len(seed) != ed25519.SeedSize {
		return "", "", fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	envelope, err := SealSeed(seed, passphrase)
	if err != nil {
		return "", "", err
	}
	filePath = ks.sealedRootKeyPath(identifier)
	if err := ks.writeKeyFile(filePath, envelope, overwrite); err != nil {
		return "", "", err
	}
	return GeneratePublisherKeyFromSeed(seed), filePath, nil
}

// DeriveKeyFromRole derives and stores a role key from a stored root key.
// Role keys are always stored in plaintext; pass a passphrase when the
// root seed is sealed.
func (ks *KeyStore) DeriveKeyFromRole(from, role, passphrase string, overwrite bool) (publisherKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadRootSeed(from, passphrase)
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyPath(from, role)
	if err := ks.saveSeedToFile(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return GeneratePublisherKeyFromSeed(roleSeed), filePath, nil
}

// ExportKey returns the publisher key for a stored root or role key.
func (ks *KeyStore) ExportKey(identifier, role, passphrase string) (string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", err
	}
	var seed []byte
	var err error
	if role == "" {
		seed, err = ks.loadRootSeed(identifier, passphrase)
	} else {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		seed, err = ks.loadSeedFromFile(ks.roleKeyPath(identifier, role))
	}
	if err != nil {
		return "", err
	}
	return GeneratePublisherKeyFromSeed(seed), nil
}

// LoadSeed resolves a signing seed from, in priority order: an inline hex
// seed, an explicit key file, or a stored signer name plus optional role.
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerRole, keyFile, passphrase string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, err
		}
		if passphrase != "" && strings.HasSuffix(keyFile, ".sealed") {
			return OpenSeed(data, passphrase)
		}
		return ParseSeedHex(strings.TrimSpace(string(data)))
	}
	if signerName != "" {
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole == "" {
			return ks.loadRootSeed(signerName, passphrase)
		}
		if err := CheckRole(signerRole); err != nil {
			return nil, err
		}
		return ks.loadSeedFromFile(ks.roleKeyPath(signerName, signerRole))
	}
	return nil, errors.New("no signer provided")
}

// LoadSigner resolves a seed like LoadSeed and wraps it in a Signer.
func (ks *KeyStore) LoadSigner(seedHex, signerName, signerRole, keyFile, passphrase string) (*Signer, error) {
	seed, err := ks.LoadSeed(seedHex, signerName, signerRole, keyFile, passphrase)
	if err != nil {
		return nil, err
	}
	return NewSignerFromSeed(seed)
}

// derivedRoles lists the role names with a stored seed under an identifier.
// A missing roles directory just means no roles were derived yet.
func (ks *KeyStore) derivedRoles(identifier string) []string {
	entries, err := os.ReadDir(filepath.Join(ks.Directory, identifier, "roles"))
	if err != nil {
		return nil
	}
	var roles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if role, ok := strings.CutSuffix(entry.Name(), ".key"); ok {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

// ListKeys enumerates every identifier in the store together with its
// derived roles and whether its root seed is passphrase-sealed. Entries come
// back sorted by identifier.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []KeyEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		identifier := entry.Name()
		_, serr := os.Stat(ks.sealedRootKeyPath(identifier))
		result = append(result, KeyEntry{
			Identifier: identifier,
			Roles:      ks.derivedRoles(identifier),
			Sealed:     serr == nil,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identifier < result[j].Identifier })
	return result, nil
}
