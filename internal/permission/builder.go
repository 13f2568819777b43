package permission

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorBuilder assembles a Descriptor with sensible defaults, mirroring
// the fluent ToolPermissionBuilder from the original implementation
// (permissions/tool_permission.rs): callers only override what's unusual for
// their tool and get consistent display/approval text for free.
type DescriptorBuilder struct {
	kind            string
	toolDisplayName string
	target          string
	readOnly        bool
	writeSafe       bool
	destructive     bool
	parentDirectory string
	displayName     string
	approvalPrompt  string
	persistentMsg   string
	suggestedRule   string
}

// NewDescriptorBuilder starts a builder for a tool named kind, whose
// human-facing action verb is toolDisplayName (e.g. "read", "edit", "run").
func NewDescriptorBuilder(kind, toolDisplayName, target string) *DescriptorBuilder {
	return &DescriptorBuilder{kind: kind, toolDisplayName: toolDisplayName, target: target}
}

func (b *DescriptorBuilder) WithTarget(target string) *DescriptorBuilder {
	b.target = target
	return b
}

// WithTargetPath sets the target to an absolute path and derives its parent
// directory automatically.
func (b *DescriptorBuilder) WithTargetPath(path string) *DescriptorBuilder {
	b.target = path
	b.parentDirectory = filepath.Dir(path)
	return b
}

func (b *DescriptorBuilder) ReadOnly() *DescriptorBuilder {
	b.readOnly = true
	return b
}

func (b *DescriptorBuilder) WriteSafe() *DescriptorBuilder {
	b.writeSafe = true
	return b
}

func (b *DescriptorBuilder) Destructive() *DescriptorBuilder {
	b.destructive = true
	return b
}

func (b *DescriptorBuilder) WithParentDirectory(parent string) *DescriptorBuilder {
	b.parentDirectory = parent
	return b
}

func (b *DescriptorBuilder) WithDisplayName(name string) *DescriptorBuilder {
	b.displayName = name
	return b
}

func (b *DescriptorBuilder) WithApprovalPrompt(prompt string) *DescriptorBuilder {
	b.approvalPrompt = prompt
	return b
}

func (b *DescriptorBuilder) WithPersistentApproval(msg string) *DescriptorBuilder {
	b.persistentMsg = msg
	return b
}

func (b *DescriptorBuilder) WithSuggestedRule(pattern string) *DescriptorBuilder {
	b.suggestedRule = pattern
	return b
}

// Build finalizes the descriptor, filling in default display/approval text
// from the tool's kind and target where the caller didn't override it.
func (b *DescriptorBuilder) Build() (Descriptor, error) {
	if b.target == "" {
		return Descriptor{}, fmt.Errorf("permission descriptor: target is required")
	}

	displayName := b.displayName
	if displayName == "" {
		displayName = capitalize(b.kind)
	}

	approvalPrompt := b.approvalPrompt
	if approvalPrompt == "" {
		verb := b.toolDisplayName
		if verb == "" {
			verb = strings.ToLower(b.kind)
		}
		approvalPrompt = fmt.Sprintf("Can I %q %q", verb, b.target)
	}

	persistentMsg := b.persistentMsg
	if persistentMsg == "" {
		project := "this project"
		if cwd, err := os.Getwd(); err == nil {
			project = cwd
		}
		persistentMsg = fmt.Sprintf("don't ask me again for %q in %q", b.toolDisplayName, project)
	}

	suggestedRule := b.suggestedRule
	if suggestedRule == "" {
		suggestedRule = "*"
	}

	display := fmt.Sprintf("%s\n%s\n%s", displayName, approvalPrompt, persistentMsg)

	return Descriptor{
		Kind:            b.kind,
		Target:          b.target,
		ReadOnly:        b.readOnly,
		WriteSafe:       b.writeSafe,
		Destructive:     b.destructive,
		ParentDirectory: b.parentDirectory,
		Display:         display,
		SuggestedRule:   suggestedRule,
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
