package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// BashTool executes a shell command in bash, per spec §4.2. Always
// requires permission: the executor calls PreparePermission first, then
// checks the resulting descriptor against the bash pattern matcher (spec
// §4.4).
type BashTool struct{}

func (t *BashTool) Name() string        { return "Bash" }
func (t *BashTool) Description() string { return "Execute a shell command" }

func (t *BashTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":           map[string]any{"type": "string", "description": "The shell command to execute"},
			"description":       map[string]any{"type": "string", "description": "Brief description shown in the permission prompt"},
			"timeout":           map[string]any{"type": "integer", "description": "Timeout in milliseconds, default 120000, max 600000"},
			"run_in_background": map[string]any{"type": "boolean", "description": "Run the command in the background"},
		},
		"required": []string{"command"},
	}
}

func (t *BashTool) RequiresPermission() bool { return true }

func (t *BashTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	command := stringParam(params, "command")
	if command == "" {
		return nil, &Error{Message: "command is required"}
	}
	description := stringParam(params, "description")
	runBackground := boolParam(params, "run_in_background")
	lineCount := strings.Count(command, "\n") + 1

	return &permission.PermissionRequest{
		ID: generateRequestID(), ToolName: t.Name(), Description: description,
		BashMeta: &permission.BashMetadata{
			Command: command, Description: description,
			RunBackground: runBackground, LineCount: lineCount,
		},
	}, nil
}

func (t *BashTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	command := stringParam(params, "command")
	description := stringParam(params, "description")
	background := boolParam(params, "run_in_background")

	timeout := 120 * time.Second
	if ms := intParam(params, "timeout", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > 600*time.Second {
			timeout = 600 * time.Second
		}
	}

	if background {
		bgTask, err := runBackground(command, description, cwd, timeout)
		if err != nil {
			return NewErrorResult("failed to start background command: " + err.Error())
		}
		return Result{Output: fmt.Sprintf("Running in background.\nTask ID: %s\nPID: %d\nCommand: %s", bgTask.ID, bgTask.PID, command)}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += stderr.String()
	}

	const maxLen = 30000
	truncated := false
	if len(output) > maxLen {
		output = output[:maxLen] + "\n... (output truncated)"
		truncated = true
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Result{Output: output, IsError: true, Truncated: truncated}
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			output += fmt.Sprintf("\n[exit code %d]", exitErr.ExitCode())
		}
		return Result{Output: output, IsError: true, Truncated: truncated}
	}

	return Result{Output: output, Truncated: truncated}
}

func (t *BashTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	return t.ExecuteApproved(ctx, params, cwd)
}

func init() {
	Register(&BashTool{})
}
