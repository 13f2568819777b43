package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// WriteTool writes content to a file, creating it (and its parent
// directories) if needed. Requires permission (spec §4.4): diff/preview
// shown before write.
type WriteTool struct{}

func (t *WriteTool) Name() string        { return "Write" }
func (t *WriteTool) Description() string { return "Write content to a file, overwriting if it exists" }

func (t *WriteTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string", "description": "Path to the file to write"},
			"content":   map[string]any{"type": "string", "description": "Content to write"},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteTool) RequiresPermission() bool { return true }

func (t *WriteTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	filePath := stringParam(params, "file_path")
	if filePath == "" {
		return nil, &Error{Message: "file_path is required"}
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, &Error{Message: "content is required"}
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	_, err := os.Stat(filePath)
	isNewFile := os.IsNotExist(err)
	if err != nil && !isNewFile {
		return nil, &Error{Message: "failed to check file: " + err.Error()}
	}

	var diffMeta *permission.DiffMetadata
	description := "Overwrite existing file"
	if isNewFile {
		diffMeta = permission.GeneratePreview(filePath, content, true)
		description = "Create new file"
	} else {
		oldContent, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, &Error{Message: "failed to read existing file: " + readErr.Error()}
		}
		diffMeta = permission.GenerateDiff(filePath, string(oldContent), content)
	}

	return &permission.PermissionRequest{
		ID: generateRequestID(), ToolName: t.Name(), FilePath: filePath,
		Description: description, DiffMeta: diffMeta,
	}, nil
}

func (t *WriteTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	filePath := stringParam(params, "file_path")
	content := stringParam(params, "content")
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return NewErrorResult("failed to create directory: " + err.Error())
	}

	_, err := os.Stat(filePath)
	isNewFile := os.IsNotExist(err)

	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return NewErrorResult("failed to write file: " + err.Error())
	}

	action := "Updated"
	if isNewFile {
		action = "Created"
	}
	lineCount := strings.Count(content, "\n") + 1
	return Result{Output: action + " " + filePath + " (" + itoa(lineCount) + " lines)"}
}

func (t *WriteTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	return t.ExecuteApproved(ctx, params, cwd)
}

func init() {
	Register(&WriteTool{})
}
