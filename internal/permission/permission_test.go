package permission

import "testing"

func TestIsReadOnlyTool(t *testing.T) {
	for _, name := range []string{"Read", "Glob", "Grep", "List"} {
		if !IsReadOnlyTool(name) {
			t.Errorf("expected %q to be read-only", name)
		}
	}
	for _, name := range []string{"Write", "Edit", "Bash", "Task"} {
		if IsReadOnlyTool(name) {
			t.Errorf("expected %q not to be read-only", name)
		}
	}
}

func TestCheck_ReadOnlyShortCircuitsByDefault(t *testing.T) {
	engine := NewEngine(nil)
	engine.OnUnresolved(func(d Descriptor) (bool, Scope) {
		t.Fatal("onUnresolved should never be reached for a read-only descriptor")
		return false, ScopeNo
	})

	if !engine.Check(Descriptor{Kind: "Read", Target: "*", ReadOnly: true}) {
		t.Fatal("expected a read-only descriptor to be allowed without consulting rules or prompting")
	}
}

func TestCheck_ConfirmReadsDisablesShortCircuit(t *testing.T) {
	engine := NewEngine(nil)
	engine.SetConfirmReads(true)

	prompted := false
	engine.OnUnresolved(func(d Descriptor) (bool, Scope) {
		prompted = true
		return false, ScopeNo
	})

	if engine.Check(Descriptor{Kind: "Read", Target: "*", ReadOnly: true}) {
		t.Fatal("expected the unresolved callback's denial to be honored")
	}
	if !prompted {
		t.Fatal("expected SetConfirmReads(true) to route a read-only descriptor through the unresolved callback")
	}
}

func TestCheck_SkipPermissionsOverridesEverything(t *testing.T) {
	engine := NewEngine([]Rule{{Kind: "Write", Target: "*", Allowed: false}})
	engine.SetSkipPermissions(true)

	if !engine.Check(Descriptor{Kind: "Write", Target: "/tmp/x"}) {
		t.Fatal("expected skip_permissions to allow even a denying rule")
	}
}

func TestCheck_FirstMatchingRuleWins(t *testing.T) {
	engine := NewEngine([]Rule{
		{Kind: "Write", Target: "*.env", Allowed: false},
		{Kind: "Write", Target: "*", Allowed: true},
	})

	if engine.Check(Descriptor{Kind: "Write", Target: ".env"}) {
		t.Fatal("expected the more specific deny rule to win over the later allow-all rule")
	}
	if !engine.Check(Descriptor{Kind: "Write", Target: "main.go"}) {
		t.Fatal("expected the allow-all rule to match a target the deny rule doesn't")
	}
}
