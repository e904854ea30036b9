// Package pubset implements parsing for the publisher set format, the text
// document that names which keys may sign rate announcements.
package pubset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Spec is the format identifier every publisher set must carry in META.
const Spec = "xdao-pubset-1"

type Set struct {
	Meta       map[string]string
	Publishers []Publisher
	Rules      []Rule
}

// Publisher is a trusted signing key and the role it acts under.
type Publisher struct {
	Key  string
	Role string
}

// Rule requires a minimum number of distinct publisher keys, all bearing
// Role, among the valid signers of a chain.
type Rule struct {
	Role   string
	Quorum int

	quorumExplicit bool
}

// Parse parses a publisher set from bytes.
//
// Parsing is permissive about omitted quorums (they default to 1); use
// ParseStrict to forbid defaults.
func Parse(data []byte) (*Set, error) {
	return parse(data, false)
}

// ParseStrict parses a publisher set and rejects anything that relies on a
// default: every Require block must carry an explicit Quorum, META must carry
// a Version, at least one key must be present, and keys must be unique.
func ParseStrict(data []byte) (*Set, error) {
	return parse(data, true)
}

func parse(data []byte, strict bool) (*Set, error) {
	if err := checkLineDiscipline(data); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("-----BEGIN XDAO PUBLISHER SET-----")) {
		return nil, errors.New("missing publisher set preamble")
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte("-----END XDAO PUBLISHER SET-----")) {
		return nil, errors.New("missing publisher set postamble")
	}

	reader := bufio.NewReader(bytes.NewReader(data))
	var currSection string
	meta := make(map[string]string)
	var publishers []Publisher
	var rules []Rule
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "META", "KEYS", "RULES":
			currSection = line
			continue
		}

		switch currSection {
		case "META":
			if key, value, ok := strings.Cut(line, ": "); ok {
				meta[key] = value
			}
		case "KEYS":
			if key, ok := strings.CutPrefix(line, "Key: "); ok {
				if key == "" {
					return nil, errors.New("empty Key")
				}
				roleLine, _ := reader.ReadString('\n')
				role, hasRole := strings.CutPrefix(strings.TrimSpace(roleLine), "Role: ")
				if !hasRole {
					return nil, errors.New("expected Role after Key")
				}
				if role == "" {
					return nil, errors.New("empty Role")
				}
				publishers = append(publishers, Publisher{Key: key, Role: role})
			}
		case "RULES":
			if strings.HasPrefix(line, "Require:") {
				r, rerr := parseRequire(reader)
				if rerr != nil {
					return nil, rerr
				}
				rules = append(rules, r)
			}
		}
		if err != nil {
			break
		}
	}

	if meta["Spec"] == "" {
		return nil, errors.New("missing META Spec")
	}
	if meta["Spec"] != Spec {
		return nil, fmt.Errorf("unsupported META Spec: %q", meta["Spec"])
	}

	if strict {
		if meta["Version"] == "" {
			return nil, errors.New("strict: missing META Version")
		}
		if len(publishers) == 0 {
			return nil, errors.New("strict: publisher set has no keys")
		}
		seen := make(map[string]bool, len(publishers))
		for _, p := range publishers {
			if !strings.HasPrefix(p.Key, "ed25519:") {
				return nil, fmt.Errorf("strict: unsupported key type: %q", p.Key)
			}
			id := p.Key + "|" + p.Role
			if seen[id] {
				return nil, fmt.Errorf("strict: duplicate Key: %q", p.Key)
			}
			seen[id] = true
		}
		for _, r := range rules {
			if !r.quorumExplicit {
				return nil, errors.New("strict: Require block missing explicit Quorum")
			}
		}
	}

	return &Set{Meta: meta, Publishers: publishers, Rules: rules}, nil
}

// parseRequire consumes the indented body of a Require block, stopping at a
// blank line, the next block header, or the document postamble.
func parseRequire(reader *bufio.Reader) (Rule, error) {
	r := Rule{Quorum: 1}
	for {
		l, _ := reader.ReadString('\n')
		l = strings.TrimSpace(l)
		if l == "" || strings.HasSuffix(l, ":") || l == "-----END XDAO PUBLISHER SET-----" {
			break
		}
		switch {
		case strings.HasPrefix(l, "Role: "):
			r.Role = strings.TrimPrefix(l, "Role: ")
		case strings.HasPrefix(l, "Quorum: "):
			q, err := strconv.Atoi(strings.TrimPrefix(l, "Quorum: "))
			if err != nil || q < 1 {
				return Rule{}, errors.New("invalid Quorum")
			}
			r.Quorum = q
			r.quorumExplicit = true
		default:
			return Rule{}, fmt.Errorf("unknown Require field: %q", l)
		}
	}
	if r.Role == "" {
		return Rule{}, errors.New("Require block missing Role")
	}
	return r, nil
}

// checkLineDiscipline rejects a UTF-8 BOM, CR line endings, and trailing
// whitespace anywhere in the document.
func checkLineDiscipline(data []byte) error {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return errors.New("BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return errors.New("CR line endings not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if n := len(line); n > 0 && (line[n-1] == ' ' || line[n-1] == '\t') {
			return errors.New("trailing whitespace forbidden")
		}
	}
	return nil
}
