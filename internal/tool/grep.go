package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

const (
	defaultHeadLimit = 250
	grepMaxFileBytes = 5 * 1024 * 1024
)

// fileTypeGlobs maps the Grep tool's "file_type" shorthand to file globs, the
// same small set ripgrep's --type flag ships built in for common languages.
var fileTypeGlobs = map[string][]string{
	"go":   {"*.go"},
	"js":   {"*.js", "*.jsx", "*.mjs"},
	"ts":   {"*.ts", "*.tsx"},
	"py":   {"*.py"},
	"rust": {"*.rs"},
	"java": {"*.java"},
	"md":   {"*.md", "*.markdown"},
	"json": {"*.json"},
	"yaml": {"*.yaml", "*.yml"},
}

// GrepTool searches file contents with a Go regexp engine, rendering a
// ripgrep-shaped result (content / files_with_matches / count modes),
// per the grep strategy resolved in SPEC_FULL.md §12: this is a native
// implementation, not a wrapper around an external rg binary.
type GrepTool struct{}

func (t *GrepTool) Name() string { return "Grep" }
func (t *GrepTool) Description() string {
	return "Search file contents using regular expressions, ripgrep-style"
}

func (t *GrepTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":       map[string]any{"type": "string", "description": "Regular expression pattern"},
			"path":          map[string]any{"type": "string", "description": "File or directory to search, default current directory"},
			"glob":          map[string]any{"type": "string", "description": "Glob filter for files to search, e.g. *.go"},
			"file_type":     map[string]any{"type": "string", "description": "File type shorthand, e.g. go, js, py"},
			"output_mode":   map[string]any{"type": "string", "enum": []string{"content", "files_with_matches", "count"}},
			"-i":            map[string]any{"type": "boolean", "description": "Case insensitive search"},
			"-n":            map[string]any{"type": "boolean", "description": "Show line numbers (content mode only)"},
			"-A":            map[string]any{"type": "integer", "description": "Lines of context after each match"},
			"-B":            map[string]any{"type": "integer", "description": "Lines of context before each match"},
			"-C":            map[string]any{"type": "integer", "description": "Lines of context before and after each match"},
			"multiline":     map[string]any{"type": "boolean", "description": "Allow . to match newlines across lines"},
			"head_limit":    map[string]any{"type": "integer", "description": "Limit number of output lines/entries"},
		},
		"required": []string{"pattern"},
	}
}

// RequiresPermission is false: Grep only reads file contents, never
// mutates them — see ReadTool.RequiresPermission for why it still
// implements PermissionAwareTool rather than skipping the engine.
func (t *GrepTool) RequiresPermission() bool { return false }

func (t *GrepTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
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

func (t *GrepTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	return t.Execute(ctx, params, cwd)
}

func (t *GrepTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	pattern := stringParam(params, "pattern")
	if pattern == "" {
		return NewErrorResult("pattern is required")
	}

	flags := ""
	if boolParam(params, "-i") {
		flags += "i"
	}
	multiline := boolParam(params, "multiline")
	if multiline {
		flags += "s"
	}
	reSrc := pattern
	if flags != "" {
		reSrc = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(reSrc)
	if err != nil {
		return NewErrorResult("invalid pattern: " + err.Error())
	}

	basePath := cwd
	if path := stringParam(params, "path"); path != "" {
		if filepath.IsAbs(path) {
			basePath = path
		} else {
			basePath = filepath.Join(cwd, path)
		}
	}

	globPattern := stringParam(params, "glob")
	if ft := stringParam(params, "file_type"); ft != "" {
		if globs, ok := fileTypeGlobs[ft]; ok && len(globs) > 0 {
			globPattern = globs[0]
		}
	}

	outputMode := stringParam(params, "output_mode")
	if outputMode == "" {
		outputMode = "files_with_matches"
	}
	headLimit := intParam(params, "head_limit", defaultHeadLimit)
	before := intParam(params, "-B", 0)
	after := intParam(params, "-A", 0)
	if c := intParam(params, "-C", 0); c > 0 {
		before, after = c, c
	}
	showLineNos := boolParam(params, "-n")

	var results []grepFileMatch

	walkFn := func(path string, isDir bool, name string) error {
		if isDir {
			if ignoredDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if globPattern != "" {
			matched, _ := doublestar.Match(globPattern, name)
			if !matched {
				return nil
			}
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() > grepMaxFileBytes {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil || isBinary(content) {
			return nil
		}
		relPath, err := filepath.Rel(basePath, path)
		if err != nil {
			relPath = path
		}

		linesOut, count := grepFile(re, string(content), relPath, outputMode, showLineNos, before, after)
		if count > 0 {
			results = append(results, grepFileMatch{path: relPath, count: count, lines: linesOut})
		}
		return nil
	}

	info, err := os.Stat(basePath)
	if err != nil {
		return NewErrorResult("path not found: " + basePath)
	}
	if info.IsDir() {
		err = filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return walkFn(path, d.IsDir(), d.Name())
		})
	} else {
		err = walkFn(basePath, false, filepath.Base(basePath))
	}
	if err != nil && err != context.Canceled {
		return NewErrorResult("grep error: " + err.Error())
	}

	return renderGrepResult(results, outputMode, headLimit)
}

func grepFile(re *regexp.Regexp, content, relPath, outputMode string, showLineNos bool, before, after int) ([]string, int) {
	lines := strings.Split(content, "\n")
	var matchIdx []int
	for i, line := range lines {
		if re.MatchString(line) {
			matchIdx = append(matchIdx, i)
		}
	}
	if len(matchIdx) == 0 {
		return nil, 0
	}
	if outputMode != "content" {
		return nil, len(matchIdx)
	}

	var out []string
	printed := map[int]bool{}
	for _, i := range matchIdx {
		start := i - before
		if start < 0 {
			start = 0
		}
		end := i + after
		if end > len(lines)-1 {
			end = len(lines) - 1
		}
		for j := start; j <= end; j++ {
			if printed[j] {
				continue
			}
			printed[j] = true
			if showLineNos {
				out = append(out, fmt.Sprintf("%s:%d:%s", relPath, j+1, lines[j]))
			} else {
				out = append(out, fmt.Sprintf("%s:%s", relPath, lines[j]))
			}
		}
	}
	return out, len(matchIdx)
}

// grepFileMatch holds one file's aggregated match data before rendering.
type grepFileMatch struct {
	path  string
	count int
	lines []string // populated only in content mode
}

// renderGrepResult formats results per outputMode and applies head_limit,
// mirroring the ripgrep-JSON-ish output shape spec.md describes without
// shelling out to a real rg binary.
func renderGrepResult(results []grepFileMatch, outputMode string, headLimit int) Result {
	if len(results) == 0 {
		return Result{Output: "No matches found"}
	}

	var out []string
	switch outputMode {
	case "content":
		for _, r := range results {
			out = append(out, r.lines...)
		}
	case "count":
		for _, r := range results {
			out = append(out, fmt.Sprintf("%s:%d", r.path, r.count))
		}
	default: // files_with_matches
		for _, r := range results {
			out = append(out, r.path)
		}
	}

	truncated := false
	if headLimit > 0 && len(out) > headLimit {
		out = out[:headLimit]
		truncated = true
	}

	text := strings.Join(out, "\n")
	if truncated {
		text += fmt.Sprintf("\n... (truncated to %d entries; narrow the pattern or raise head_limit)", headLimit)
	}
	return Result{Output: text, Truncated: truncated}
}

func init() {
	Register(&GrepTool{})
}
