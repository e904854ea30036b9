package pubset

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Render writes a publisher set in canonical form: META keys sorted with
// Spec and Version first, publishers sorted by key then role, one blank
// line between entries, LF endings.
//
// The output always carries explicit quorums, so it parses under ParseStrict
// when the set itself satisfies the strict checks.
func Render(set *Set) ([]byte, error) {
	if set == nil {
		return nil, errors.New("pubset: nil set")
	}

	var sb strings.Builder
	sb.WriteString("-----BEGIN XDAO PUBLISHER SET-----\n")
	sb.WriteString("META\n")
	sb.WriteString("Spec: ")
	sb.WriteString(Spec)
	sb.WriteString("\n")

	version := set.Meta["Version"]
	if version == "" {
		version = "1"
	}
	sb.WriteString("Version: ")
	sb.WriteString(version)
	sb.WriteString("\n")

	extra := make([]string, 0, len(set.Meta))
	for k := range set.Meta {
		if k == "Spec" || k == "Version" {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if k == "" || strings.ContainsAny(k, ":\n") {
			return nil, errors.New("pubset: invalid META key")
		}
		v := set.Meta[k]
		if strings.Contains(v, "\n") {
			return nil, errors.New("pubset: invalid META value")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}

	sb.WriteString("\nKEYS\n")
	publishers := append([]Publisher(nil), set.Publishers...)
	sort.Slice(publishers, func(i, j int) bool {
		if publishers[i].Key == publishers[j].Key {
			return publishers[i].Role < publishers[j].Role
		}
		return publishers[i].Key < publishers[j].Key
	})
	for _, p := range publishers {
		if p.Key == "" || p.Role == "" {
			return nil, errors.New("pubset: publisher missing Key or Role")
		}
		if strings.ContainsAny(p.Key, " \n") || strings.ContainsAny(p.Role, " \n") {
			return nil, errors.New("pubset: Key and Role must not contain spaces")
		}
		sb.WriteString("Key: ")
		sb.WriteString(p.Key)
		sb.WriteString("\nRole: ")
		sb.WriteString(p.Role)
		sb.WriteString("\n\n")
	}
	if len(publishers) == 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("RULES\n")
	rules := append([]Rule(nil), set.Rules...)
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Role == rules[j].Role {
			return rules[i].Quorum < rules[j].Quorum
		}
		return rules[i].Role < rules[j].Role
	})
	for _, r := range rules {
		if r.Role == "" {
			return nil, errors.New("pubset: rule missing Role")
		}
		q := r.Quorum
		if q < 1 {
			q = 1
		}
		sb.WriteString("Require:\n  Role: ")
		sb.WriteString(r.Role)
		sb.WriteString("\n  Quorum: ")
		sb.WriteString(strconv.Itoa(q))
		sb.WriteString("\n\n")
	}

	sb.WriteString("-----END XDAO PUBLISHER SET-----\n")
	return []byte(sb.String()), nil
}
