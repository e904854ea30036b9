package pubset

import (
	"strings"
	"testing"

	"xdao.co/ratewire/compliance"
)

const validSet = `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

Description: test

KEYS
Key: ed25519:PUBLISHER_KEY
Role: publisher

RULES
Require:
  Role: publisher
-----END XDAO PUBLISHER SET-----`

func TestParseValidSet(t *testing.T) {
	set, err := Parse([]byte(validSet))
	if err != nil {
		t.Fatalf("expected valid set, got error: %v", err)
	}
	if len(set.Publishers) != 1 || set.Publishers[0].Key != "ed25519:PUBLISHER_KEY" {
		t.Errorf("expected publisher entry for PUBLISHER_KEY, got %+v", set.Publishers)
	}
	if set.Publishers[0].Role != "publisher" {
		t.Errorf("expected role publisher, got %+v", set.Publishers)
	}
	if len(set.Rules) != 1 || set.Rules[0].Role != "publisher" {
		t.Errorf("expected rule Role=publisher, got %+v", set.Rules)
	}
}

func TestParseSet_Quorum(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher
  Quorum: 3
-----END XDAO PUBLISHER SET-----`

	set, err := Parse([]byte(setText))
	if err != nil {
		t.Fatalf("expected valid set, got error: %v", err)
	}
	if len(set.Rules) != 1 || set.Rules[0].Quorum != 3 {
		t.Fatalf("expected quorum=3, got %+v", set.Rules)
	}
}

func TestParseStrict_RequiresExplicitQuorum(t *testing.T) {
	// This set omits Quorum; Parse() defaults it to 1, but strict parsing must reject.
	set, err := Parse([]byte(validSet))
	if err != nil {
		t.Fatalf("Parse(validSet): %v", err)
	}
	if len(set.Rules) != 1 || set.Rules[0].Quorum != 1 {
		t.Fatalf("rule = %+v, want default quorum 1", set.Rules)
	}

	if _, err := ParseStrict([]byte(validSet)); err == nil {
		t.Fatalf("expected strict parse error")
	}
	if _, err := ParseWithCompliance([]byte(validSet), compliance.Strict); err == nil {
		t.Fatalf("expected strict parse error")
	}
	if _, err := ParseWithCompliance([]byte(validSet), compliance.Permissive); err != nil {
		t.Fatalf("expected permissive parse ok, got %v", err)
	}
}

func TestParseStrict_AllowsExplicitQuorumOne(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher
  Quorum: 1
-----END XDAO PUBLISHER SET-----`

	if _, err := ParseStrict([]byte(setText)); err != nil {
		t.Fatalf("strict parse: %v", err)
	}
}

func TestParseInvalidSet_MissingPreamble(t *testing.T) {
	_, err := Parse([]byte("META\nVersion: 1\n"))
	if err == nil {
		t.Error("want error for missing preamble")
	}
}

func TestParseInvalidSet_MissingMetaSpec(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher
-----END XDAO PUBLISHER SET-----`

	_, err := Parse([]byte(setText))
	if err == nil {
		t.Fatalf("want error for missing META Spec")
	}
}

func TestParseInvalidSet_RequireUnknownField(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher
  Nope: 1
-----END XDAO PUBLISHER SET-----`

	if _, err := Parse([]byte(setText)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseInvalidSet_InvalidQuorum(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher
  Quorum: 0
-----END XDAO PUBLISHER SET-----`

	if _, err := Parse([]byte(setText)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseInvalidSet_KeyWithoutRole(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Key: ed25519:K2
Role: publisher

RULES
-----END XDAO PUBLISHER SET-----`

	if _, err := Parse([]byte(setText)); err == nil {
		t.Fatalf("expected error for Key without Role")
	}
}

func TestParseInvalidSet_LineDiscipline(t *testing.T) {
	cases := map[string]string{
		"BOM":                 "\xEF\xBB\xBF" + validSet,
		"CR line endings":     strings.ReplaceAll(validSet, "\n", "\r\n"),
		"trailing whitespace": strings.Replace(validSet, "Version: 1", "Version: 1 ", 1),
	}
	for name, text := range cases {
		if _, err := Parse([]byte(text)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseStrict_RejectsAnyRequireMissingQuorum(t *testing.T) {
	// The first Require block has no Quorum line; permissive parsing would
	// fill in 1, but strict refuses defaults anywhere in the document, so
	// one incomplete block is enough to fail even with a complete second.
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

RULES
Require:
  Role: publisher

Require:
  Role: auditor
  Quorum: 1
-----END XDAO PUBLISHER SET-----`

	if _, err := Parse([]byte(setText)); err != nil {
		t.Fatalf("permissive Parse: %v", err)
	}
	if _, err := ParseStrict([]byte(setText)); err == nil {
		t.Fatalf("expected strict parse error")
	}
}

func TestParseStrict_RejectsDuplicateKeys(t *testing.T) {
	setText := `-----BEGIN XDAO PUBLISHER SET-----
META
Version: 1
Spec: xdao-pubset-1

KEYS
Key: ed25519:K1
Role: publisher

Key: ed25519:K1
Role: publisher

RULES
-----END XDAO PUBLISHER SET-----`

	if _, err := Parse([]byte(setText)); err != nil {
		t.Fatalf("permissive Parse: %v", err)
	}
	if _, err := ParseStrict([]byte(setText)); err == nil {
		t.Fatalf("expected strict parse error")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	set := &Set{
		Meta: map[string]string{"Version": "2", "Description": "rendered"},
		Publishers: []Publisher{
			{Key: "ed25519:ZKEY", Role: "publisher"},
			{Key: "ed25519:AKEY", Role: "auditor"},
		},
		Rules: []Rule{{Role: "publisher", Quorum: 2}},
	}

	out, err := Render(set)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	back, err := ParseStrict(out)
	if err != nil {
		t.Fatalf("ParseStrict(rendered): %v", err)
	}
	if back.Meta["Version"] != "2" || back.Meta["Description"] != "rendered" {
		t.Fatalf("meta mismatch: %+v", back.Meta)
	}
	if len(back.Publishers) != 2 || back.Publishers[0].Key != "ed25519:AKEY" {
		t.Fatalf("expected sorted publishers, got %+v", back.Publishers)
	}
	if len(back.Rules) != 1 || back.Rules[0].Quorum != 2 {
		t.Fatalf("rules mismatch: %+v", back.Rules)
	}

	again, err := Render(back)
	if err != nil {
		t.Fatalf("Render(back): %v", err)
	}
	if string(again) != string(out) {
		t.Fatalf("render is not stable:\n%s\nvs\n%s", out, again)
	}
}
