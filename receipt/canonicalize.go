package receipt

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Canonicalize is the mandatory canonicalization choke point for receipts.
//
// Receipt bytes MUST be canonical before CID derivation, signing, or
// supersession validation. This function enforces byte-level canonical rules
// by rejecting any non-canonical input.
func Canonicalize(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, errors.New("receipt must be valid UTF-8")
	}
	if bytes.HasPrefix(input, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(input, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if len(input) == 0 {
		return nil, errors.New("empty receipt")
	}
	// Canonical receipts emitted by Render always end with a newline.
	if input[len(input)-1] != '\n' {
		return nil, errors.New("missing trailing newline")
	}

	doc := string(input)
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if err := validateCanonical(doc); err != nil {
		return nil, err
	}

	// Copy so later writes to input cannot alias the canonical bytes.
	return append([]byte(nil), input...), nil
}

var sectionOrder = []string{"META", "INPUTS", "RESULT", "EXCLUSIONS", "VERDICTS", "CRYPTO"}

func validateCanonical(doc string) error {
	lines := strings.Split(doc, "\n")
	// Canonical receipts have a trailing newline, so last line is always empty.
	if len(lines) < 3 {
		return errors.New("receipt too short")
	}
	if lines[0] != Preamble {
		return errors.New("missing receipt preamble")
	}
	if lines[len(lines)-1] != "" {
		return errors.New("missing trailing newline")
	}
	if lines[len(lines)-2] != Postamble {
		return errors.New("missing receipt postamble")
	}

	cur := &lineCursor{lines: lines[1 : len(lines)-2]}
	for _, sec := range sectionOrder {
		body, err := cur.section(sec)
		if err != nil {
			return err
		}
		if err := validateSection(sec, body); err != nil {
			return err
		}
	}
	if !cur.done() {
		return errors.New("content appears between the last section and the postamble")
	}
	return nil
}

// lineCursor walks the region between preamble and postamble, consuming one
// "HEADER / body / blank line" group per section call.
type lineCursor struct {
	lines []string
	pos   int
}

func (c *lineCursor) section(name string) ([]string, error) {
	if c.pos >= len(c.lines) {
		return nil, fmt.Errorf("missing section %q", name)
	}
	if c.lines[c.pos] != name {
		return nil, fmt.Errorf("section order: want %q, found %q", name, c.lines[c.pos])
	}
	c.pos++
	start := c.pos
	for c.pos < len(c.lines) && c.lines[c.pos] != "" {
		c.pos++
	}
	if c.pos >= len(c.lines) {
		return nil, fmt.Errorf("section %q is not followed by a blank line", name)
	}
	body := c.lines[start:c.pos]
	c.pos++
	return body, nil
}

func (c *lineCursor) done() bool { return c.pos == len(c.lines) }

func validateSection(section string, body []string) error {
	switch section {
	case "META":
		return validateMeta(body)
	case "INPUTS":
		return validateInputs(body)
	case "RESULT":
		return validateResult(body)
	case "EXCLUSIONS":
		return validateExclusions(body)
	case "VERDICTS":
		return validateVerdicts(body)
	case "CRYPTO":
		return validateCrypto(body)
	default:
		return fmt.Errorf("unknown section %q", section)
	}
}

// requireSortedUnique rejects bodies whose lines are not in strictly
// ascending lexicographic order. Strict ascent makes duplicates adjacent, so
// the equality check is enough to catch them.
func requireSortedUnique(lines []string) error {
	prev := ""
	for i, l := range lines {
		if l == "" {
			return errors.New("empty line inside section")
		}
		if i > 0 {
			if l == prev {
				return errors.New("duplicate line")
			}
			if l < prev {
				return errors.New("section lines out of lexicographic order")
			}
		}
		prev = l
	}
	return nil
}

func splitKV(line string) (string, string, error) {
	k, v, ok := strings.Cut(line, ": ")
	if !ok {
		return "", "", errors.New("invalid key-value formatting")
	}
	if k == "" {
		return "", "", errors.New("empty key")
	}
	if v == "" {
		return "", "", errors.New("empty value")
	}
	return k, v, nil
}

// requireFields checks that every required key appears in body. Bodies must
// already be well-formed key-value lines.
func requireFields(section string, body []string, required ...string) error {
	have := make(map[string]bool, len(body))
	for _, l := range body {
		k, _, err := splitKV(l)
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		have[k] = true
	}
	for _, k := range required {
		if !have[k] {
			return fmt.Errorf("%s: missing %s", section, k)
		}
	}
	return nil
}

func validateMeta(body []string) error {
	if err := requireSortedUnique(body); err != nil {
		return fmt.Errorf("META: %w", err)
	}
	for _, l := range body {
		k, v, err := splitKV(l)
		if err != nil {
			return fmt.Errorf("META: %w", err)
		}
		switch k {
		case "Mode":
			if v != "permissive" && v != "strict" {
				return fmt.Errorf("META: unknown Mode %q", v)
			}
		case "Spec":
			if v != Spec {
				return fmt.Errorf("META: unsupported Spec %q", v)
			}
		case "Verified-At":
			if _, err := strconv.ParseUint(v, 10, 32); err != nil {
				return fmt.Errorf("META: invalid Verified-At %q", v)
			}
		}
	}
	return requireFields("META", body, "Mode", "Resolver-ID", "Spec", "Verified-At", "Version")
}

func validateInputs(body []string) error {
	if len(body) != 2 {
		return errors.New("INPUTS: expected exactly Chain-CID and Publisher-Set-CID")
	}
	for i, key := range []string{"Chain-CID", "Publisher-Set-CID"} {
		v, ok := strings.CutPrefix(body[i], key+": ")
		if !ok || v == "" {
			return fmt.Errorf("INPUTS: invalid %s", key)
		}
	}
	return nil
}

func validateResult(body []string) error {
	if err := requireSortedUnique(body); err != nil {
		return fmt.Errorf("RESULT: %w", err)
	}
	fields := make(map[string]string)
	for _, l := range body {
		k, v, err := splitKV(l)
		if err != nil {
			return fmt.Errorf("RESULT: %w", err)
		}
		fields[k] = v
	}
	state, ok := fields["State"]
	if !ok {
		return errors.New("RESULT: missing State")
	}
	if state != "Resolved" && state != "Unresolved" {
		return fmt.Errorf("RESULT: unknown State %q", state)
	}
	if _, ok := fields["Confidence"]; !ok {
		return errors.New("RESULT: missing Confidence")
	}

	digest, hasDigest := fields["Payload-Digest"]
	expiration, hasExp := fields["Payload-Expiration"]
	index, hasIndex := fields["Selected-Index"]
	if state == "Resolved" {
		if !hasDigest || !hasExp || !hasIndex {
			return errors.New("RESULT: Resolved requires Payload-Digest, Payload-Expiration and Selected-Index")
		}
		if raw, err := hex.DecodeString(digest); err != nil || len(raw) != 32 {
			return fmt.Errorf("RESULT: invalid Payload-Digest %q", digest)
		}
		if _, err := strconv.ParseUint(expiration, 10, 32); err != nil {
			return fmt.Errorf("RESULT: invalid Payload-Expiration %q", expiration)
		}
		if n, err := strconv.Atoi(index); err != nil || n < 0 {
			return fmt.Errorf("RESULT: invalid Selected-Index %q", index)
		}
	} else if hasDigest || hasExp || hasIndex {
		return errors.New("RESULT: Unresolved must not carry selection fields")
	}
	return nil
}

// recordScanner consumes fixed-order key-value records from a section body.
type recordScanner struct {
	body []string
	pos  int
}

func (s *recordScanner) done() bool { return s.pos >= len(s.body) }

func (s *recordScanner) kv(key string) (string, error) {
	if s.pos >= len(s.body) {
		return "", fmt.Errorf("missing %s", key)
	}
	v, ok := strings.CutPrefix(s.body[s.pos], key+": ")
	if !ok {
		return "", fmt.Errorf("expected %s", key)
	}
	if v == "" {
		return "", fmt.Errorf("empty %s", key)
	}
	s.pos++
	return v, nil
}

func (s *recordScanner) peekKey(key string) bool {
	return s.pos < len(s.body) && strings.HasPrefix(s.body[s.pos], key+": ")
}

func validateExclusions(body []string) error {
	sc := &recordScanner{body: body}
	lastIndex := -1
	for !sc.done() {
		idxVal, err := sc.kv("Index")
		if err != nil {
			return fmt.Errorf("EXCLUSIONS: %w", err)
		}
		idx, convErr := strconv.Atoi(idxVal)
		if convErr != nil || idx < 0 {
			return fmt.Errorf("EXCLUSIONS: invalid Index %q", idxVal)
		}
		if idx <= lastIndex {
			return errors.New("EXCLUSIONS: Index not strictly ascending")
		}
		lastIndex = idx
		if _, err := sc.kv("Reason"); err != nil {
			return fmt.Errorf("EXCLUSIONS: %w", err)
		}
	}
	return nil
}

type verdictRecord struct {
	role    string
	quorum  int
	keyJoin string
}

func validateVerdicts(body []string) error {
	sc := &recordScanner{body: body}
	var recs []verdictRecord
	for !sc.done() {
		role, err := sc.kv("Role")
		if err != nil {
			return fmt.Errorf("VERDICTS: %w", err)
		}
		vr := verdictRecord{role: role}

		quorumVal, err := sc.kv("Quorum")
		if err != nil {
			return fmt.Errorf("VERDICTS: %w", err)
		}
		quorum, convErr := strconv.Atoi(quorumVal)
		if convErr != nil || quorum < 1 {
			return fmt.Errorf("VERDICTS: invalid Quorum %q", quorumVal)
		}
		vr.quorum = quorum

		observedVal, err := sc.kv("Observed")
		if err != nil {
			return fmt.Errorf("VERDICTS: %w", err)
		}
		if n, convErr := strconv.Atoi(observedVal); convErr != nil || n < 0 {
			return fmt.Errorf("VERDICTS: invalid Observed %q", observedVal)
		}

		var pubkeys []string
		for sc.peekKey("Publisher-Key") {
			k, err := sc.kv("Publisher-Key")
			if err != nil {
				return fmt.Errorf("VERDICTS: %w", err)
			}
			pubkeys = append(pubkeys, k)
		}
		for j := 1; j < len(pubkeys); j++ {
			if pubkeys[j-1] > pubkeys[j] {
				return errors.New("VERDICTS: Publisher-Key not sorted")
			}
		}
		vr.keyJoin = strings.Join(pubkeys, ",")

		satisfied, err := sc.kv("Satisfied")
		if err != nil {
			return fmt.Errorf("VERDICTS: %w", err)
		}
		if satisfied != "true" && satisfied != "false" {
			return errors.New("VERDICTS: invalid Satisfied boolean")
		}

		if _, err := sc.kv("Reason"); err != nil {
			return fmt.Errorf("VERDICTS: %w", err)
		}

		recs = append(recs, vr)
	}

	for j := 1; j < len(recs); j++ {
		if verdictLess(recs[j], recs[j-1]) {
			return errors.New("VERDICTS: records not sorted")
		}
	}
	return nil
}

func verdictLess(a, b verdictRecord) bool {
	if a.role != b.role {
		return a.role < b.role
	}
	if a.quorum != b.quorum {
		return a.quorum < b.quorum
	}
	return a.keyJoin < b.keyJoin
}

func validateCrypto(body []string) error {
	if len(body) == 0 {
		return nil
	}
	if err := requireSortedUnique(body); err != nil {
		return fmt.Errorf("CRYPTO: %w", err)
	}
	return requireFields("CRYPTO", body, "Hash-Alg", "Resolver-Key", "Signature", "Signature-Alg")
}
