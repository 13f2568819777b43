package tool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

const (
	maxReadLines  = 2000
	maxLineLength = 2000
)

// ReadTool reads file contents with optional line offset/limit, per spec
// §4.2's file-read tool.
type ReadTool struct{}

func (t *ReadTool) Name() string        { return "Read" }
func (t *ReadTool) Description() string { return "Read file contents" }

func (t *ReadTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string", "description": "Path to the file to read"},
			"offset":    map[string]any{"type": "integer", "description": "Line number to start reading from (1-based)"},
			"limit":     map[string]any{"type": "integer", "description": "Maximum number of lines to read"},
		},
		"required": []string{"file_path"},
	}
}

// RequiresPermission is false: Read never mutates anything, so there is
// nothing for a preview to show (spec §4.2's generate_preview is reserved
// for destructive-or-interesting calls). It still implements
// PermissionAwareTool so the call reaches Engine.Check like every other
// tool (spec §4.3 step 5) and is allowed via the read-only short-circuit
// rather than by skipping the engine entirely.
func (t *ReadTool) RequiresPermission() bool { return false }

func (t *ReadTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	filePath := stringParam(params, "file_path")
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}
	return &permission.PermissionRequest{ID: generateRequestID(), ToolName: t.Name(), FilePath: filePath}, nil
}

func (t *ReadTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	return t.Execute(ctx, params, cwd)
}

func (t *ReadTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	filePath, ok := params["file_path"].(string)
	if !ok || filePath == "" {
		return NewErrorResult("file_path is required")
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	offset := intParam(params, "offset", 0)
	limit := intParam(params, "limit", maxReadLines)
	if limit <= 0 {
		limit = maxReadLines
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewErrorResult("file not found: " + filePath)
		}
		return NewErrorResult("failed to stat file: " + err.Error())
	}
	if info.IsDir() {
		return NewErrorResult("path is a directory: " + filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return NewErrorResult("failed to open file: " + err.Error())
	}
	defer file.Close()

	header := make([]byte, 512)
	n, _ := file.Read(header)
	if n > 0 && isBinary(header[:n]) {
		return Result{Output: fmt.Sprintf("Binary file detected: %s (%d bytes)", filePath, info.Size())}
	}
	file.Seek(0, 0)

	var sb []byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	readCount := 0
	truncated := false

	for scanner.Scan() {
		lineNo++
		if offset > 0 && lineNo < offset {
			continue
		}
		if readCount >= limit {
			truncated = true
			break
		}
		text := scanner.Text()
		if len(text) > maxLineLength {
			text = text[:maxLineLength] + "...[line truncated]"
		}
		lines = append(lines, text)
		readCount++
	}
	if err := scanner.Err(); err != nil {
		return NewErrorResult("error reading file: " + err.Error())
	}

	out := string(sb)
	if truncated {
		out += fmt.Sprintf("\n... (truncated, %d lines read, use offset to continue)", readCount)
	}
	return Result{Output: out, Truncated: truncated}
}

func isBinary(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key].(int); ok {
		return v
	}
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return def
}

func boolParam(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func init() {
	Register(&ReadTool{})
}
