package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const samplePack = `name: internal
rules:
  - id: corp-token
    pattern: "CORP-[0-9]{8}"
    category: credential_access
    severity: critical
    message: "Corporate token: {match}"
  - id: corp-banned-host
    pattern: evil.example.com
    literal: true
    category: network_suspicious
    severity: high
    skip_if_comment: true
    contextual: true
`

func TestParsePack(t *testing.T) {
	rules, err := ParsePack([]byte(samplePack))
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules", len(rules))
	}
	if m, ok := rules[0].Match("token CORP-12345678 leaked"); !ok || m != "CORP-12345678" {
		t.Errorf("unexpected match %q %v", m, ok)
	}
	if !rules[1].Contextual || !rules[1].SkipIfComment {
		t.Error("flags not carried over")
	}
}

func TestParsePackRejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"missing rules":    "name: x\n",
		"unknown category": "rules:\n  - {id: a, pattern: x, category: nope, severity: low}\n",
		"unknown field":    "rules:\n  - {id: a, pattern: x, category: env_access, severity: low, weight: 3}\n",
		"bad severity":     "rules:\n  - {id: a, pattern: x, category: env_access, severity: urgent}\n",
		"empty":            "",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePack([]byte(doc)); !errors.Is(err, ErrInvalidPack) {
				t.Errorf("expected ErrInvalidPack, got %v", err)
			}
		})
	}
}

func TestLoadPacksExtendsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	if err := os.WriteFile(path, []byte(samplePack), 0o600); err != nil {
		t.Fatal(err)
	}
	base := DefaultDatabase()
	db, err := LoadPacks(base, path)
	if err != nil {
		t.Fatal(err)
	}
	if db.Len() != base.Len()+2 {
		t.Errorf("got %d rules, want %d", db.Len(), base.Len()+2)
	}
	if db.Rules()[db.Len()-1].ID != "corp-banned-host" {
		t.Error("pack rules should follow the built-in rules")
	}
	if _, err := LoadPacks(base, path, path); !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if _, err := LoadPacks(base, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
