package executor

import (
	"github.com/hoosh/hoosh/internal/permission"
	uipermission "github.com/hoosh/hoosh/internal/tool/permission"
)

// buildDescriptor derives the permission engine's Descriptor (spec §4.4)
// from the PermissionRequest a tool already builds for the UI preview
// (spec §4.2's describe_permission, folded into PreparePermission here
// rather than kept as a separate tool method — one preview call serves
// both the approval dialog and the policy check).
func buildDescriptor(toolName string, req *uipermission.PermissionRequest) permission.Descriptor {
	switch {
	case permission.IsReadOnlyTool(toolName):
		return readOnlyDescriptor(toolName, req.FilePath)
	case req.BashMeta != nil:
		return permission.DescribeBash(req.BashMeta.Command)
	case req.FilePath != "":
		return fileDescriptor(toolName, req.FilePath)
	case req.AgentMeta != nil:
		d, _ := permission.NewDescriptorBuilder(toolName, "run", "*").
			WithDisplayName("Launch " + req.AgentMeta.AgentName + " agent").
			WithSuggestedRule("*").
			Build()
		return d
	default:
		d, _ := permission.NewDescriptorBuilder(toolName, "run", "*").
			WithSuggestedRule("*").
			Build()
		return d
	}
}

// readOnlyDescriptor covers Read/Glob/Grep/List: spec §4.2 reserves
// generate_preview/ToolPreview for destructive-or-interesting calls, and
// a plain read is neither, so Display is left empty on purpose — no
// preview event fires for it. The ReadOnly flag is what actually
// matters: it drives Engine.Check's step-2 short-circuit (permission.go)
// so these calls reach the engine like every other tool call (spec §4.3
// step 5) without ever prompting.
func readOnlyDescriptor(toolName, target string) permission.Descriptor {
	if target == "" {
		target = "*"
	}
	return permission.Descriptor{Kind: toolName, Target: target, ReadOnly: true, SuggestedRule: "*"}
}

func fileDescriptor(toolName, path string) permission.Descriptor {
	verb := "write"
	if toolName == "Edit" {
		verb = "edit"
	}
	d, _ := permission.NewDescriptorBuilder(toolName, verb, path).
		WithTargetPath(path).
		WriteSafe().
		WithSuggestedRule("*").
		Build()
	return d
}
