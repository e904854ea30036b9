package resolver

import (
	"sort"

	"xdao.co/ratewire/pubset"
)

// RuleVerdict records how one publisher set requirement evaluated.
//
// Verdicts are evidence only; the trust decision never reads them back.
// They exist so a later reader can answer "why unresolved?" without
// re-running the resolver.
type RuleVerdict struct {
	Role   string
	Quorum int

	Observed      int
	PublisherKeys []string

	Satisfied bool
	Reason    string
}

func evaluateRules(set *pubset.Set, cands []candidate) ([]RuleVerdict, bool) {
	if set == nil || len(set.Rules) == 0 {
		return nil, true
	}

	// Map role -> unique publisher keys that signed a valid node under it.
	roleToKeys := make(map[string]map[string]bool)
	for _, c := range cands {
		for role := range c.roles {
			m := roleToKeys[role]
			if m == nil {
				m = make(map[string]bool)
				roleToKeys[role] = m
			}
			m[c.key] = true
		}
	}

	ok := true
	out := make([]RuleVerdict, 0, len(set.Rules))
	for _, r := range set.Rules {
		q := r.Quorum
		if q < 1 {
			q = 1
		}
		signers := sortedSigners(roleToKeys[r.Role])
		v := RuleVerdict{
			Role:          r.Role,
			Quorum:        q,
			Observed:      len(signers),
			PublisherKeys: signers,
			Satisfied:     len(signers) >= q,
		}
		v.Reason = ruleReason(v.Satisfied, v.Observed)
		if !v.Satisfied {
			ok = false
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Role == out[j].Role {
			return out[i].Quorum < out[j].Quorum
		}
		return out[i].Role < out[j].Role
	})

	return out, ok
}

func sortedSigners(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func ruleReason(satisfied bool, observed int) string {
	switch {
	case satisfied:
		return "Satisfied"
	case observed == 0:
		return "Missing required evidence"
	default:
		return "Insufficient quorum"
	}
}
