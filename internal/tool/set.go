package tool

import "strings"

// AccessMode controls how a sub-agent's tool access is configured.
type AccessMode string

const (
	AccessAllowlist AccessMode = "allowlist"
	AccessDenylist  AccessMode = "denylist"
)

// AccessConfig configures a sub-agent's allow/deny list.
type AccessConfig struct {
	Mode  AccessMode
	Allow []string
	Deny  []string
}

// Set resolves the tool list offered to the model for one turn: the main
// conversation's full set, a plan-mode-restricted set, or a sub-agent's
// allow/deny-filtered set (spec §4.2, §4.6).
type Set struct {
	Disabled map[string]bool
	PlanMode bool
	Access   *AccessConfig
}

// Tools returns the resolved descriptor list for this turn.
func (s *Set) Tools() []Descriptor {
	if s.Access != nil {
		return s.agentTools()
	}
	if s.PlanMode {
		return GetPlanModeToolSchemasFiltered(s.Disabled)
	}
	return GetToolSchemasFiltered(s.Disabled)
}

// agentBlockedTools can never be exposed to a sub-agent: Task would allow
// recursive spawning past spec §8's depth-1 cap.
var agentBlockedTools = map[string]bool{
	"Task": true,
}

func (s *Set) agentTools() []Descriptor {
	all := GetToolSchemas()
	out := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if agentBlockedTools[d.Name] {
			continue
		}
		if !s.isToolAllowed(d.Name) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (s *Set) isToolAllowed(name string) bool {
	switch s.Access.Mode {
	case AccessAllowlist:
		for _, allowed := range s.Access.Allow {
			if strings.EqualFold(name, allowed) {
				return true
			}
		}
		return false
	case AccessDenylist:
		for _, denied := range s.Access.Deny {
			if strings.EqualFold(name, denied) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
