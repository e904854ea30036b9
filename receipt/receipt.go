// Package receipt renders and verifies canonical rate-verification receipts.
//
// A receipt is a line-oriented text document binding one resolver run to its
// inputs: the chain CID, the publisher-set CID, the verified-at timestamp and
// compliance mode, the outcome, and every exclusion and rule verdict the run
// produced. Section ordering and line sorting are fixed so the same resolution
// always renders to the same bytes.
package receipt

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/compliance"
	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/resolver"
)

const (
	Preamble  = "-----BEGIN XDAO RATE RECEIPT-----"
	Postamble = "-----END XDAO RATE RECEIPT-----"

	// Spec identifies the receipt format generation in META.
	Spec = "xdao-receipt-1"
)

// PublisherSetCID returns a deterministic identifier for publisher-set bytes.
// This is an IPFS-compatible CIDv1 (raw + sha2-256) over the exact bytes.
func PublisherSetCID(setBytes []byte) string {
	return cidutil.CIDv1RawSHA256(setBytes)
}

type RenderOptions struct {
	ResolverID string

	// VerifiedAt is the evaluation instant the resolver used for expiration
	// checks. It is part of the verification inputs and always rendered.
	VerifiedAt uint32

	// Mode is the compliance mode the resolver ran under.
	Mode compliance.ComplianceMode

	// RenderedAt is an informational wall-clock stamp; zero means omit.
	// Strict rendering rejects it because it breaks reproducibility.
	RenderedAt time.Time

	// Optional receipt supersession.
	// If set, the receipt asserts it supersedes a prior receipt identified by CID.
	SupersedesReceiptCID string

	// Optional receipt signing. If a signing key is set, the output will
	// include a CRYPTO section populated and Signature computed over the
	// receipt bytes excluding the Signature: line. At most one of
	// PrivateKey and Dilithium3Key may be set; ResolverKey must carry the
	// matching algorithm prefix.
	ResolverKey string
	PrivateKey  ed25519.PrivateKey

	// Dilithium3Key signs with the post-quantum dilithium3 scheme instead
	// of ed25519. Signatures this size only exist in receipts; chain cells
	// cannot carry them.
	Dilithium3Key *mode3.PrivateKey

	// HashAlg selects the signature digest; empty means sha256.
	HashAlg string
}

// Render produces a canonical receipt binding a resolution to its inputs.
// Every section appears even when empty, and line order never varies, so
// equal inputs render byte-equal receipts.
func Render(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions) ([]byte, error) {
	resolverID := opts.ResolverID
	if resolverID == "" {
		resolverID = "xdao-ratewire-reference"
	}
	hashAlg := opts.HashAlg
	if hashAlg == "" {
		hashAlg = "sha256"
	}
	if len(opts.PrivateKey) > 0 && opts.Dilithium3Key != nil {
		return nil, errors.New("both ed25519 and dilithium3 signing keys provided")
	}
	sigAlg := "ed25519"
	if opts.Dilithium3Key != nil {
		sigAlg = "dilithium3"
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Mode: " + opts.Mode.String(),
		"Resolver-ID: " + resolverID,
		"Spec: " + Spec,
		"Verified-At: " + strconv.FormatUint(uint64(opts.VerifiedAt), 10),
		"Version: 1",
	}
	if !opts.RenderedAt.IsZero() {
		metaLines = append(metaLines, "Rendered-At: "+opts.RenderedAt.UTC().Format(time.RFC3339))
	}
	if opts.SupersedesReceiptCID != "" {
		metaLines = append(metaLines, "Supersedes-Receipt-CID: "+opts.SupersedesReceiptCID)
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// INPUTS
	sb.WriteString("INPUTS\n")
	sb.WriteString("Chain-CID: ")
	sb.WriteString(chainCID)
	sb.WriteString("\n")
	sb.WriteString("Publisher-Set-CID: ")
	sb.WriteString(publisherSetCID)
	sb.WriteString("\n")
	sb.WriteString("\n")

	// RESULT
	sb.WriteString("RESULT\n")
	resultLines := []string{
		"Confidence: " + string(res.Confidence),
		"State: " + string(res.State),
	}
	if res.State == resolver.StateResolved {
		if res.Payload == nil {
			return nil, errors.New("resolved resolution carries no payload")
		}
		digest, err := res.Payload.Digest()
		if err != nil {
			return nil, fmt.Errorf("selected payload digest: %w", err)
		}
		resultLines = append(resultLines,
			"Payload-Digest: "+hex.EncodeToString(digest),
			"Payload-Expiration: "+strconv.FormatUint(uint64(res.Payload.Expiration()), 10),
			"Selected-Index: "+strconv.Itoa(res.Index),
		)
	}
	sort.Strings(resultLines)
	for _, l := range resultLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// EXCLUSIONS
	sb.WriteString("EXCLUSIONS\n")
	ex := append([]resolver.Exclusion(nil), res.Exclusions...)
	sort.Slice(ex, func(i, j int) bool {
		if ex[i].Index == ex[j].Index {
			return ex[i].Reason < ex[j].Reason
		}
		return ex[i].Index < ex[j].Index
	})
	for _, e := range ex {
		sb.WriteString("Index: ")
		sb.WriteString(strconv.Itoa(e.Index))
		sb.WriteString("\n")
		sb.WriteString("Reason: ")
		sb.WriteString(e.Reason)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// VERDICTS
	sb.WriteString("VERDICTS\n")
	verdicts := append([]resolver.RuleVerdict(nil), res.Verdicts...)
	sort.Slice(verdicts, func(i, j int) bool {
		if verdicts[i].Role == verdicts[j].Role {
			return verdicts[i].Quorum < verdicts[j].Quorum
		}
		return verdicts[i].Role < verdicts[j].Role
	})
	for _, v := range verdicts {
		sb.WriteString("Role: ")
		sb.WriteString(v.Role)
		sb.WriteString("\n")
		sb.WriteString("Quorum: ")
		sb.WriteString(strconv.Itoa(v.Quorum))
		sb.WriteString("\n")
		sb.WriteString("Observed: ")
		sb.WriteString(strconv.Itoa(v.Observed))
		sb.WriteString("\n")
		pkeys := append([]string(nil), v.PublisherKeys...)
		sort.Strings(pkeys)
		for _, k := range pkeys {
			sb.WriteString("Publisher-Key: ")
			sb.WriteString(k)
			sb.WriteString("\n")
		}
		sb.WriteString("Satisfied: ")
		if v.Satisfied {
			sb.WriteString("true\n")
		} else {
			sb.WriteString("false\n")
		}
		sb.WriteString("Reason: ")
		sb.WriteString(v.Reason)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// CRYPTO (empty when no key material was provided)
	sb.WriteString("CRYPTO\n")
	if opts.ResolverKey != "" {
		cryptoLines := []string{
			"Hash-Alg: " + hashAlg,
			"Resolver-Key: " + opts.ResolverKey,
			"Signature-Alg: " + sigAlg,
			"Signature: 0",
		}
		sort.Strings(cryptoLines)
		sb.WriteString(strings.Join(cryptoLines, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble + "\n")
	out := []byte(sb.String())

	if (len(opts.PrivateKey) > 0 || opts.Dilithium3Key != nil) && opts.ResolverKey != "" {
		if !strings.HasPrefix(opts.ResolverKey, sigAlg+":") {
			return nil, fmt.Errorf("Resolver-Key alg does not match Signature-Alg %q", sigAlg)
		}
		sig, err := signReceipt(out, opts, hashAlg)
		if err != nil {
			return nil, err
		}
		out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+sig, 1))
	}

	return out, nil
}

// RenderSigned renders a receipt with a required signature.
//
// Unlike Render, this fails explicitly when key material is missing, and it
// verifies the produced signature before returning.
func RenderSigned(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions) ([]byte, error) {
	if opts.ResolverKey == "" || (len(opts.PrivateKey) == 0 && opts.Dilithium3Key == nil) {
		return nil, errors.New("signing requires ResolverKey and a signing key")
	}
	out, err := Render(res, chainCID, publisherSetCID, opts)
	if err != nil {
		return nil, err
	}
	ok, err := VerifySignature(out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("rendered receipt is unsigned")
	}
	return out, nil
}

// RenderWithCompliance renders a receipt under an explicit compliance mode.
//
// Strict mode refuses anything that would make the receipt ambiguous or
// non-reproducible: a missing resolver identity, an informational wall-clock
// stamp, an unresolved outcome, or a resolution that excluded nodes.
func RenderWithCompliance(res *resolver.Resolution, chainCID, publisherSetCID string, opts RenderOptions, mode compliance.ComplianceMode) ([]byte, error) {
	opts.Mode = mode
	if mode == compliance.Strict {
		if opts.ResolverID == "" {
			return nil, errors.New("strict mode requires an explicit Resolver-ID")
		}
		if !opts.RenderedAt.IsZero() {
			return nil, errors.New("strict mode forbids Rendered-At")
		}
		if res.State != resolver.StateResolved {
			return nil, fmt.Errorf("strict mode refuses to render state %q", res.State)
		}
		if len(res.Exclusions) > 0 {
			return nil, fmt.Errorf("strict mode refuses to render %d exclusions", len(res.Exclusions))
		}
	}
	return Render(res, chainCID, publisherSetCID, opts)
}

func signReceipt(receiptBytes []byte, opts RenderOptions, hashAlg string) (string, error) {
	scope, err := signatureScope(receiptBytes)
	if err != nil {
		return "", err
	}
	digest, err := digestFor(hashAlg, scope)
	if err != nil {
		return "", err
	}
	if opts.Dilithium3Key != nil {
		return keys.SignDilithium3Digest(digest, opts.Dilithium3Key)
	}
	if len(opts.PrivateKey) != ed25519.PrivateKeySize {
		return "", errors.New("invalid private key length")
	}
	sig := ed25519.Sign(opts.PrivateKey, digest)
	return base64.StdEncoding.EncodeToString(sig), nil
}

func signatureScope(receiptBytes []byte) ([]byte, error) {
	lines := strings.Split(string(receiptBytes), "\n")
	kept := make([]string, 0, len(lines))
	dropped := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			dropped++
			continue
		}
		kept = append(kept, l)
	}
	switch dropped {
	case 1:
		return []byte(strings.Join(kept, "\n")), nil
	case 0:
		return nil, errors.New("missing Signature line")
	default:
		return nil, errors.New("multiple Signature lines")
	}
}
