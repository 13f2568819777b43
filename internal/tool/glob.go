package tool

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

const maxGlobResults = 100

var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, ".svn": true, ".hg": true,
	"vendor": true, "__pycache__": true, ".cache": true, "dist": true, "build": true,
}

// GlobTool finds files matching a doublestar glob pattern, sorted by
// modification time (newest first), per spec §4.2.
type GlobTool struct{}

func (t *GlobTool) Name() string        { return "Glob" }
func (t *GlobTool) Description() string { return "Find files matching a glob pattern" }

func (t *GlobTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Glob pattern, supports ** for recursive matching"},
			"path":    map[string]any{"type": "string", "description": "Base directory to search in, default current directory"},
		},
		"required": []string{"pattern"},
	}
}

// RequiresPermission is false: Glob only walks the filesystem, never
// mutates it — see ReadTool.RequiresPermission for why it still
// implements PermissionAwareTool rather than skipping the engine.
func (t *GlobTool) RequiresPermission() bool { return false }

func (t *GlobTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	basePath := cwd
	if path := stringParam(params, "path"); path != "" {
		if filepath.IsAbs(path) {
			basePath = path
		} else {
			basePath = filepath.Join(cwd, path)
		}
	}
	return &permission.PermissionRequest{ID: generateRequestID(), ToolName: t.Name(), FilePath: basePath}, nil
}

func (t *GlobTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	return t.Execute(ctx, params, cwd)
}

func (t *GlobTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	pattern := stringParam(params, "pattern")
	if pattern == "" {
		return NewErrorResult("pattern is required")
	}

	basePath := cwd
	if path := stringParam(params, "path"); path != "" {
		if filepath.IsAbs(path) {
			basePath = path
		} else {
			basePath = filepath.Join(cwd, path)
		}
	}
	if _, err := os.Stat(basePath); err != nil {
		return NewErrorResult("path not found: " + basePath)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo

	err := filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		relPath, err := filepath.Rel(basePath, path)
		if err != nil {
			return nil
		}
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil || !matched {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, fileInfo{path: relPath, modTime: info.ModTime()})
		return nil
	})
	if err != nil && err != context.Canceled {
		return NewErrorResult("glob error: " + err.Error())
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	truncated := false
	if len(files) > maxGlobResults {
		files = files[:maxGlobResults]
		truncated = true
	}

	out := ""
	for _, f := range files {
		out += f.path + "\n"
	}
	if len(files) == 0 {
		out = "No files found"
	} else if truncated {
		out += "\n(truncated to first " + itoa(maxGlobResults) + " results)"
	}

	return Result{Output: out, Truncated: truncated}
}

func init() {
	Register(&GlobTool{})
}
