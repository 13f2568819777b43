package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// EditTool performs exact-string replacement edits on a file, per spec
// §4.2's edit semantics: old_string must be unique unless replace_all.
type EditTool struct{}

func (t *EditTool) Name() string        { return "Edit" }
func (t *EditTool) Description() string { return "Edit file contents using string replacement" }

func (t *EditTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":   map[string]any{"type": "string", "description": "Path to the file to edit"},
			"old_string":  map[string]any{"type": "string", "description": "Text to replace; must be unique unless replace_all"},
			"new_string":  map[string]any{"type": "string", "description": "Replacement text"},
			"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence, default false"},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

func (t *EditTool) RequiresPermission() bool { return true }

func (t *EditTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	filePath := stringParam(params, "file_path")
	if filePath == "" {
		return nil, &Error{Message: "file_path is required"}
	}
	oldString, ok := params["old_string"].(string)
	if !ok {
		return nil, &Error{Message: "old_string is required"}
	}
	newString, ok := params["new_string"].(string)
	if !ok {
		return nil, &Error{Message: "new_string is required"}
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Message: "file not found: " + filePath}
		}
		return nil, &Error{Message: "failed to read file: " + err.Error()}
	}
	oldContent := string(content)

	count := strings.Count(oldContent, oldString)
	if count == 0 {
		return nil, &Error{Message: "old_string not found in file"}
	}
	replaceAll := boolParam(params, "replace_all")
	if !replaceAll && count > 1 {
		return nil, &Error{Message: "old_string is not unique in file (found " + itoa(count) + " occurrences); use replace_all=true"}
	}

	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(oldContent, oldString, newString)
	} else {
		newContent = strings.Replace(oldContent, oldString, newString, 1)
	}

	diffMeta := permission.GenerateDiff(filePath, oldContent, newContent)
	return &permission.PermissionRequest{
		ID: generateRequestID(), ToolName: t.Name(), FilePath: filePath,
		Description: "Replace text in file", DiffMeta: diffMeta,
	}, nil
}

func (t *EditTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	filePath := stringParam(params, "file_path")
	oldString := stringParam(params, "old_string")
	newString := stringParam(params, "new_string")
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return NewErrorResult("failed to read file: " + err.Error())
	}
	oldContent := string(content)

	replaceAll := boolParam(params, "replace_all")
	var newContent string
	var replaceCount int
	if replaceAll {
		replaceCount = strings.Count(oldContent, oldString)
		newContent = strings.ReplaceAll(oldContent, oldString, newString)
	} else {
		replaceCount = 1
		newContent = strings.Replace(oldContent, oldString, newString, 1)
	}

	if err := os.WriteFile(filePath, []byte(newContent), 0o644); err != nil {
		return NewErrorResult("failed to write file: " + err.Error())
	}

	return Result{Output: "Successfully edited " + filePath + " (" + itoa(replaceCount) + " replacement(s))"}
}

func (t *EditTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	return t.ExecuteApproved(ctx, params, cwd)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	negative := n < 0
	if negative {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if negative {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func init() {
	Register(&EditTool{})
}
