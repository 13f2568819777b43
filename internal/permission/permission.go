// Package permission implements the permission engine (component C,
// spec §4.4): pluggable pattern matchers, the allow/deny rule set
// persisted at .hoosh/permissions.json, and the bash safety classifier
// that lets read-only commands skip the approval dialog.
package permission

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is one persisted or in-memory permission decision, matching spec
// §3's PermissionRule tuple.
type Rule struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Allowed bool   `json:"allowed"`
}

// Descriptor is what a tool produces to describe the operation it wants
// to perform, feeding the permission check (spec §4.4).
type Descriptor struct {
	Kind            string // tool name, e.g. "Bash", "Write"
	Target          string // file path, raw command, or "*"
	ReadOnly        bool
	WriteSafe       bool
	Destructive     bool
	ParentDirectory string
	Display         string
	SuggestedRule   string // pattern to persist on TrustProject, e.g. "*" or a bash pipe pattern
}

// Scope is the user's response to an unresolved permission request.
type Scope string

const (
	ScopeYesOnce      Scope = "yes_once"
	ScopeTrustProject Scope = "trust_project"
	ScopeNo           Scope = "no"
)

// Matcher tests a stored rule's pattern against a descriptor's target.
type Matcher interface {
	Matches(pattern, target string) bool
}

// FilePatternMatcher matches glob patterns (**, *, ?) against a resolved
// absolute file path.
type FilePatternMatcher struct{}

func (FilePatternMatcher) Matches(pattern, target string) bool {
	if pattern == "*" {
		return true
	}
	ok, err := doublestar.Match(pattern, target)
	return err == nil && ok
}

// Engine evaluates tool calls against a rule set plus the two built-in
// matchers, and mediates interactive approval for unmatched operations.
type Engine struct {
	rules         []Rule
	skipAll       bool
	confirmReads  bool
	fileMatcher   Matcher
	bashMatcher   Matcher
	onUnresolved  func(d Descriptor) (bool, Scope)
}

// NewEngine builds an engine over an initial rule set.
func NewEngine(rules []Rule) *Engine {
	return &Engine{
		rules:       rules,
		fileMatcher: FilePatternMatcher{},
		bashMatcher: BashPatternMatcher{},
	}
}

// SetSkipPermissions globally disables enforcement (step 1 of spec
// §4.4's check algorithm) — the --autopilot / YOLO mode.
func (e *Engine) SetSkipPermissions(skip bool) { e.skipAll = skip }

// SetConfirmReads requires approval even for read_only descriptors.
func (e *Engine) SetConfirmReads(confirm bool) { e.confirmReads = confirm }

// OnUnresolved registers the callback invoked when no rule matches; it
// returns whether to allow and, if allowed, under what scope.
func (e *Engine) OnUnresolved(fn func(d Descriptor) (bool, Scope)) { e.onUnresolved = fn }

// matcherFor picks the matcher appropriate for a descriptor's kind.
func (e *Engine) matcherFor(kind string) Matcher {
	if strings.EqualFold(kind, "bash") {
		return e.bashMatcher
	}
	return e.fileMatcher
}

// Check runs the five-step algorithm from spec §4.4 and returns whether
// the operation may proceed.
func (e *Engine) Check(d Descriptor) bool {
	if e.skipAll {
		return true
	}
	if d.ReadOnly && !e.confirmReads {
		return true
	}

	matcher := e.matcherFor(d.Kind)
	for _, rule := range e.rules {
		if !strings.EqualFold(rule.Kind, d.Kind) {
			continue
		}
		if matcher.Matches(rule.Target, d.Target) {
			return rule.Allowed
		}
	}

	if e.onUnresolved == nil {
		return false
	}
	allowed, scope := e.onUnresolved(d)
	if allowed && scope == ScopeTrustProject {
		pattern := d.SuggestedRule
		if pattern == "" {
			pattern = "*"
		}
		e.AddRule(Rule{Kind: d.Kind, Target: pattern, Allowed: true})
	}
	return allowed
}

// AddRule appends a rule to the in-memory set; callers persist via
// PermissionsFile.Save after a TrustProject decision.
func (e *Engine) AddRule(r Rule) {
	e.rules = append(e.rules, r)
}

// Rules returns the current rule set (for persistence).
func (e *Engine) Rules() []Rule { return e.rules }

// readOnlyTools never mutate state and are exempt from the default
// approval dialog (step 2 of the check algorithm).
var readOnlyTools = map[string]bool{
	"Read": true, "Glob": true, "Grep": true, "List": true,
}

// IsReadOnlyTool reports whether name is a read-only tool.
func IsReadOnlyTool(name string) bool { return readOnlyTools[name] }
