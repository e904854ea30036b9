package receipt

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/sha3"

	"xdao.co/ratewire/keys"
)

// VerifySignature verifies the receipt CRYPTO signature, if present.
//
// Returns (true, nil) if the receipt is signed and the signature verifies.
// Returns (false, nil) if the receipt is not signed (empty CRYPTO section).
// Anything else, from malformed bytes to a wrong signature, returns
// (false, err).
//
// Verification requires canonical receipt bytes; non-canonical inputs are
// rejected.
func VerifySignature(receiptBytes []byte) (bool, error) {
	canon, err := Canonicalize(receiptBytes)
	if err != nil {
		return false, fmt.Errorf("canonical receipt required: %w", err)
	}

	cryptoLines, err := sectionBody(canon, "CRYPTO")
	if err != nil {
		return false, err
	}
	if len(cryptoLines) == 0 {
		return false, nil
	}

	sigAlg, hasAlg, err := fieldValue(canon, "CRYPTO", "Signature-Alg")
	if err != nil {
		return false, err
	}
	hashAlg, hasHash, err := fieldValue(canon, "CRYPTO", "Hash-Alg")
	if err != nil {
		return false, err
	}
	resolverKey, hasKey, err := fieldValue(canon, "CRYPTO", "Resolver-Key")
	if err != nil {
		return false, err
	}
	sigB64, hasSig, err := fieldValue(canon, "CRYPTO", "Signature")
	if err != nil {
		return false, err
	}

	// CRYPTO carries all four fields or none.
	if !(hasKey && hasAlg && hasHash && hasSig) {
		return false, errors.New("CRYPTO: signature fields are only partly present")
	}
	if !strings.HasPrefix(resolverKey, sigAlg+":") {
		return false, errors.New("CRYPTO: Resolver-Key alg does not match Signature-Alg")
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, fmt.Errorf("CRYPTO: Signature is not valid base64: %w", err)
	}

	scope, err := signatureScope(canon)
	if err != nil {
		return false, err
	}
	digest, err := digestFor(hashAlg, scope)
	if err != nil {
		return false, err
	}

	switch sigAlg {
	case "ed25519":
		pub, err := keys.ParsePublisherKey(resolverKey)
		if err != nil {
			return false, fmt.Errorf("CRYPTO: invalid Resolver-Key: %w", err)
		}
		if len(sig) != ed25519.SignatureSize {
			return false, errors.New("CRYPTO: Signature length is wrong for ed25519")
		}
		if !ed25519.Verify(pub, digest, sig) {
			return false, errors.New("CRYPTO: signature rejected")
		}
		return true, nil
	case "dilithium3":
		if err := keys.VerifyDilithium3Digest(resolverKey, digest, sig); err != nil {
			return false, fmt.Errorf("CRYPTO: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("CRYPTO: Signature-Alg %q is not supported", sigAlg)
	}
}

// digestFor hashes the signature scope with the algorithm named in Hash-Alg.
func digestFor(hashAlg string, scope []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		d := sha256.Sum256(scope)
		return d[:], nil
	case "sha512":
		d := sha512.Sum512(scope)
		return d[:], nil
	case "sha3-256":
		d := sha3.Sum256(scope)
		return d[:], nil
	default:
		return nil, fmt.Errorf("CRYPTO: Hash-Alg %q is not supported", hashAlg)
	}
}
