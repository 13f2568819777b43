package permission

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRules_MissingFileIsNotError(t *testing.T) {
	rules, err := LoadRules(t.TempDir())
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules != nil {
		t.Fatalf("expected nil rules for a missing file, got %+v", rules)
	}
}

func TestSaveThenLoadRules_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := []Rule{
		{Kind: "Write", Target: "*.env", Allowed: false},
		{Kind: "Bash", Target: "npm:*", Allowed: true},
	}
	if err := SaveRules(dir, want); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}
	got, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rules, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rule %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadBashBlacklist_MissingFileIsNotError(t *testing.T) {
	patterns, err := LoadBashBlacklist(t.TempDir())
	if err != nil {
		t.Fatalf("LoadBashBlacklist: %v", err)
	}
	if patterns != nil {
		t.Fatalf("expected nil patterns for a missing file, got %v", patterns)
	}
}

func TestLoadEngineRules_BlacklistPrecedesPersistedRules(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".hoosh"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hoosh", "bash_blacklist.json"), []byte(`["rm:*"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SaveRules(dir, []Rule{{Kind: "Write", Target: "*", Allowed: true}}); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadEngineRules(dir)
	if err != nil {
		t.Fatalf("LoadEngineRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %+v", rules)
	}
	if rules[0].Kind != "Bash" || rules[0].Target != "rm:*" || rules[0].Allowed {
		t.Fatalf("expected the blacklist entry first and denying, got %+v", rules[0])
	}

	engine := NewEngine(rules)
	if engine.Check(Descriptor{Kind: "Bash", Target: "rm -rf /tmp/x"}) {
		t.Fatal("expected the blacklisted bash command to be denied without a prompt")
	}
}
