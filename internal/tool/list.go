package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// ListTool lists a directory's immediate entries, directories first then
// alphabetically, hiding dotfiles unless show_hidden is set — ported from
// the original's list_directory (spec.md:82 names it among the core's
// mandatory concrete tools).
type ListTool struct{}

func (t *ListTool) Name() string { return "List" }
func (t *ListTool) Description() string {
	return "List the files and directories in a given path.\n\n" +
		"Usage:\n" +
		"- path defaults to the current directory when empty or \".\"\n" +
		"- Set show_hidden to true to include dotfiles\n\n" +
		"When to use:\n" +
		"- Getting oriented in an unfamiliar directory before reading specific files\n\n" +
		"When NOT to use:\n" +
		"- Finding files by name pattern across a tree — use Glob instead\n" +
		"- Searching file contents — use Grep instead"
}

func (t *ListTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":        map[string]any{"type": "string", "description": "Directory to list, default current directory"},
			"show_hidden": map[string]any{"type": "boolean", "description": "Include dotfiles, default false"},
		},
	}
}

// RequiresPermission is false: listing a directory only reads metadata —
// see ReadTool.RequiresPermission for why it still implements
// PermissionAwareTool rather than skipping the engine.
func (t *ListTool) RequiresPermission() bool { return false }

func (t *ListTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	return &permission.PermissionRequest{ID: generateRequestID(), ToolName: t.Name(), FilePath: t.resolvePath(params, cwd)}, nil
}

func (t *ListTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	return t.Execute(ctx, params, cwd)
}

func (t *ListTool) resolvePath(params map[string]any, cwd string) string {
	path := stringParam(params, "path")
	if path == "" || path == "." {
		return cwd
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

type listEntry struct {
	name  string
	isDir bool
	size  int64
}

func (t *ListTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	dirPath := t.resolvePath(params, cwd)
	showHidden := boolParam(params, "show_hidden")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult("directory not found: " + dirPath)
		}
		return NewErrorResult("failed to list directory: " + err.Error())
	}

	var listed []listEntry
	for _, e := range entries {
		if !showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		listed = append(listed, listEntry{name: e.Name(), isDir: e.IsDir(), size: size})
	}

	sort.Slice(listed, func(i, j int) bool {
		if listed[i].isDir != listed[j].isDir {
			return listed[i].isDir
		}
		return listed[i].name < listed[j].name
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Contents of %s:\n", dirPath)

	var dirs, files []listEntry
	for _, e := range listed {
		if e.isDir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	if len(dirs) == 0 && len(files) == 0 {
		sb.WriteString("  (empty directory)\n")
		return Result{Output: sb.String()}
	}

	if len(dirs) > 0 {
		sb.WriteString("\nDirectories:\n")
		for _, d := range dirs {
			fmt.Fprintf(&sb, "  \U0001F4C1 %s/\n", d.name)
		}
	}
	if len(files) > 0 {
		sb.WriteString("\nFiles:\n")
		for _, f := range files {
			fmt.Fprintf(&sb, "  \U0001F4C4 %s (%d bytes)\n", f.name, f.size)
		}
	}

	return Result{Output: sb.String()}
}

func init() {
	Register(&ListTool{})
}
