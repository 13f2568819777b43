// Package agent implements the turn loop (component K, spec §4.6) and
// the sub-agent dispatcher (component L, spec §4.7). Grounded on the
// teacher's internal/agent package, restructured around this module's
// own conversation/executor/context/backend packages rather than the
// teacher's provider.Message/task.AgentTask types.
package agent

import (
	"fmt"
	"strings"

	"github.com/hoosh/hoosh/internal/tool"
)

// Type identifies one of the three built-in sub-agent kinds spec §4.7
// names explicitly. Custom named agents (the teacher's loader.go/
// store.go agent-prompt files under ~/.config/<app>/agents/*.txt) are
// out of this module's SPEC_FULL.md scope: spec §4.7 only ever
// dispatches on subagent_type ∈ {plan, explore, general-purpose}.
type Type string

const (
	TypePlan           Type = "plan"
	TypeExplore        Type = "explore"
	TypeGeneralPurpose Type = "general-purpose"
)

// Config describes one sub-agent type: its step budget, its tool
// access, and how it frames a task prompt as a system message.
type Config struct {
	Name        string
	Description string
	MaxSteps    int
	Access      tool.AccessConfig
}

// builtins are the three sub-agent types spec §4.7 names, with the
// exact max_steps spec assigns (plan=50, explore=30, general=100) —
// these differ from the teacher's own registry.go numbers (plan=50,
// explore=30, general-purpose=50), which this module does not carry
// over verbatim since spec.md is the authority on the number, not the
// teacher.
var builtins = map[Type]Config{
	TypePlan: {
		Name:        "Plan",
		Description: "Software architect for designing implementation plans: identifies critical files and considers architectural trade-offs without modifying anything.",
		MaxSteps:    50,
		Access:      tool.AccessConfig{Mode: tool.AccessAllowlist, Allow: []string{"Read", "Glob", "Grep", "List"}},
	},
	TypeExplore: {
		Name:        "Explore",
		Description: "Fast, read-only codebase exploration: finds files, searches code, and answers questions about the codebase.",
		MaxSteps:    30,
		Access:      tool.AccessConfig{Mode: tool.AccessAllowlist, Allow: []string{"Read", "Glob", "Grep", "List"}},
	},
	TypeGeneralPurpose: {
		Name:        "general-purpose",
		Description: "General-purpose agent for researching complex questions, searching for code, and executing multi-step tasks with full tool access.",
		MaxSteps:    100,
		Access:      tool.AccessConfig{Mode: tool.AccessDenylist},
	},
}

// LookupConfig resolves a subagent_type string (case-insensitively) to
// its Config.
func LookupConfig(agentType string) (Config, bool) {
	for t, cfg := range builtins {
		if strings.EqualFold(string(t), agentType) {
			return cfg, true
		}
	}
	return Config{}, false
}

// SystemMessage builds the sub-agent's system prompt from its Config
// and the task prompt handed to it — the Go rendering of the original's
// agent_type.system_message(prompt) (spec §4.7 step 3).
func (c Config) SystemMessage(prompt string) string {
	return fmt.Sprintf(
		"You are a specialized %s sub-agent launched by the main assistant.\n\n"+
			"## Role\n%s\n\n"+
			"## Task\n%s\n\n"+
			"## Guidelines\n"+
			"- Focus only on the task above; do not ask clarifying questions, the caller cannot see them.\n"+
			"- Return a clear, self-contained summary as your final message: it is the only thing the caller sees.\n"+
			"- If you hit a dead end, say so plainly rather than guessing.\n",
		c.Name, c.Description, prompt,
	)
}
