package permission

import "strings"

// BashPatternMatcher implements the bash permission pattern language from
// spec §4.4:
//
//	"*"                       matches any command
//	"cmd:*"                   matches if cmd is one of the command's base commands
//	"cmd1:*|cmd2:*|cmd3:*"    matches only when every listed base command is
//	                          present among the target's base commands
//	"cmd:<<"                  matches a heredoc invocation of cmd; "*:<<" any heredoc
//	otherwise                 exact-literal match against the full command line
type BashPatternMatcher struct{}

func (BashPatternMatcher) Matches(pattern, target string) bool {
	if pattern == "*" {
		return true
	}

	targetCmds := baseCommands(target)
	targetHasHeredoc := strings.Contains(target, "<<")

	if strings.Contains(pattern, ":*") || strings.Contains(pattern, ":<<") {
		parts := strings.Split(pattern, "|")
		for _, p := range parts {
			if !matchesSingleClause(p, targetCmds, targetHasHeredoc) {
				return false
			}
		}
		return true
	}

	// Exact-literal fallback: the pattern must equal the full command text.
	return pattern == target
}

func matchesSingleClause(clause string, targetCmds []string, targetHasHeredoc bool) bool {
	clause = strings.TrimSpace(clause)
	cmd, isHeredoc := strings.CutSuffix(clause, ":<<")
	if isHeredoc {
		if !targetHasHeredoc {
			return false
		}
		if cmd == "*" {
			return true
		}
		return containsCmd(targetCmds, cmd)
	}

	cmd, isWildcard := strings.CutSuffix(clause, ":*")
	if isWildcard {
		return containsCmd(targetCmds, cmd)
	}

	return false
}

func containsCmd(cmds []string, want string) bool {
	for _, c := range cmds {
		if c == want {
			return true
		}
	}
	return false
}

// baseCommands extracts the first token of every pipeline/list segment in
// a shell command line, after stripping leading environment assignments
// (e.g. "FOO=bar cmd args" -> "cmd"). Segments are split on the shell
// metacharacters |, &&, ||, and ;. This is the escalation guard: a rule
// approved for "find:*|head:*|xargs:*" does not match "xargs rm -rf /",
// because find and head are not among that command's base commands.
// Arguments are not inspected, so "rm" passed to xargs never counts as a
// base command, and "find . | head | xargs rm -rf /" does match the rule.
func baseCommands(command string) []string {
	segments := splitShellSegments(command)
	cmds := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		tokens := strings.Fields(seg)
		idx := 0
		for idx < len(tokens) && isEnvAssignment(tokens[idx]) {
			idx++
		}
		if idx < len(tokens) {
			cmds = append(cmds, tokens[idx])
		}
	}
	return cmds
}

func isEnvAssignment(tok string) bool {
	eq := strings.Index(tok, "=")
	if eq <= 0 {
		return false
	}
	name := tok[:eq]
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// splitShellSegments splits on |, &&, ||, and ; without a real shell
// parser; adequate for base-command extraction since we only need the
// first token of each segment.
func splitShellSegments(command string) []string {
	var segments []string
	var cur strings.Builder
	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		switch {
		case i+1 < len(runes) && runes[i] == '&' && runes[i+1] == '&':
			segments = append(segments, cur.String())
			cur.Reset()
			i++
		case i+1 < len(runes) && runes[i] == '|' && runes[i+1] == '|':
			segments = append(segments, cur.String())
			cur.Reset()
			i++
		case runes[i] == '|' || runes[i] == ';':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(runes[i])
		}
	}
	segments = append(segments, cur.String())
	return segments
}
