package permission

import "strings"

// CommandRisk is the outcome of classifying a bash command's base commands.
type CommandRisk string

const (
	RiskSafe    CommandRisk = "safe"
	RiskUnknown CommandRisk = "unknown"
)

// safeCommands are pure queries: they read state but never mutate it, so a
// classified-safe command is flagged read_only and skips the approval
// dialog entirely (spec §4.4's "Bash command classification").
var safeCommands = map[string]bool{
	"ls": true, "pwd": true, "cat": true, "head": true, "tail": true,
	"grep": true, "rg": true, "find": true, "wc": true, "echo": true,
	"which": true, "whoami": true, "date": true, "env": true, "printenv": true,
	"file": true, "stat": true, "diff": true, "git": true, "go": true,
	"ps": true, "df": true, "du": true, "uname": true, "id": true,
	"sort": true, "uniq": true, "basename": true, "dirname": true,
	"realpath": true, "tree": true, "less": true, "true": true,
}

// gitMutatingSubcommands are the git subcommands that write to the
// repository or remote; "git" itself is in safeCommands because most git
// subcommands (status, log, diff, show, branch --list) are read-only.
var gitMutatingSubcommands = map[string]bool{
	"commit": true, "push": true, "reset": true, "checkout": true,
	"merge": true, "rebase": true, "cherry-pick": true, "stash": true,
	"clean": true, "add": true, "rm": true, "mv": true, "tag": true,
	"branch": true, "apply": true, "am": true, "revert": true,
}

// ClassifyCommand reports whether command is safe: every base command in
// every pipeline segment is a known pure-query command, with special-cased
// handling for "git" (safe only for its read-only subcommands).
func ClassifyCommand(command string) CommandRisk {
	for _, seg := range splitShellSegments(command) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		tokens := strings.Fields(seg)
		idx := 0
		for idx < len(tokens) && isEnvAssignment(tokens[idx]) {
			idx++
		}
		if idx >= len(tokens) {
			continue
		}
		cmd := tokens[idx]
		if cmd == "git" {
			if idx+1 < len(tokens) && gitMutatingSubcommands[tokens[idx+1]] {
				return RiskUnknown
			}
			continue
		}
		if !safeCommands[cmd] {
			return RiskUnknown
		}
	}
	if strings.ContainsAny(command, ">") {
		// Redirection mutates the filesystem regardless of the command used.
		return RiskUnknown
	}
	return RiskSafe
}

// SuggestBashPattern builds the rule pattern proposed for TrustProject scope:
// "cmd:*" for a single base command, a pipe of "cmd:*" clauses for a
// pipeline, or "*" when no base command is found, matching
// BashPatternMatcher's language (spec §4.4).
func SuggestBashPattern(command string) string {
	cmds := baseCommands(command)
	if len(cmds) == 0 {
		return "*"
	}
	if len(cmds) == 1 {
		return cmds[0] + ":*"
	}
	clauses := make([]string, len(cmds))
	for i, c := range cmds {
		clauses[i] = c + ":*"
	}
	return strings.Join(clauses, "|")
}

// DescribeBash builds the Descriptor for a Bash tool invocation of command,
// applying the safety classifier and the suggested-pattern/persistent-message
// rules grounded on original_source/src/tools/bash/tool.rs's describe_permission.
func DescribeBash(command string) Descriptor {
	target := command
	if target == "" {
		target = "*"
	}

	b := NewDescriptorBuilder("Bash", "run", target).
		WithDisplayName("Bash Command").
		WithApprovalPrompt("Can I run this bash command?")

	if ClassifyCommand(target) == RiskSafe {
		b.ReadOnly().WithSuggestedRule("*").
			WithPersistentApproval("don't ask me again for bash in this project")
		d, _ := b.Build()
		return d
	}

	suggested := SuggestBashPattern(target)
	b.WithSuggestedRule(suggested)

	if strings.Contains(suggested, "|") {
		clauses := strings.Split(suggested, "|")
		names := make([]string, len(clauses))
		for i, c := range clauses {
			names[i] = strings.TrimSuffix(c, ":*")
		}
		b.WithPersistentApproval(
			"don't ask me again for pipe combination of \"" + strings.Join(names, ", ") + "\" commands in this project")
	} else {
		name := strings.TrimSuffix(strings.TrimSuffix(suggested, ":*"), "*")
		if name == "" {
			b.WithPersistentApproval("don't ask me again for bash in this project")
		} else {
			b.WithPersistentApproval("don't ask me again for \"" + name + "\" commands in this project")
		}
	}

	d, _ := b.Build()
	return d
}
