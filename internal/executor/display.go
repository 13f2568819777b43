package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hoosh/hoosh/internal/tool"
)

// maxDisplayArgLen bounds how much of a single argument's rendering
// appears in the generic fallback display, keeping ToolCalls events
// readable in the UI driver's transcript.
const maxDisplayArgLen = 80

// FormatDisplay computes the human-readable label for a tool call (spec
// §4.3 step 4): a tool that implements CallDisplayer controls its own
// rendering, otherwise a generic "Name(key=value, ...)" fallback is
// built from the call's parameters. Exported so the turn loop can
// compute the same label up front for the ToolCalls event, without
// duplicating the formatting rules.
func FormatDisplay(t tool.Tool, params map[string]any) string {
	if d, ok := t.(tool.CallDisplayer); ok {
		return d.FormatCallDisplay(params)
	}
	return genericDisplay(t.Name(), params)
}

func genericDisplay(name string, params map[string]any) string {
	if len(params) == 0 {
		return name + "()"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, truncateArg(fmt.Sprint(params[k]))))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func truncateArg(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) <= maxDisplayArgLen {
		return s
	}
	return s[:maxDisplayArgLen-1] + "…"
}
