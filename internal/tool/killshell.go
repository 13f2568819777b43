package tool

import (
	"context"
	"fmt"
)

// KillShellTool terminates a running background bash task.
type KillShellTool struct{}

func (t *KillShellTool) Name() string        { return "KillShell" }
func (t *KillShellTool) Description() string { return "Terminate a background shell task" }

func (t *KillShellTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"shell_id": map[string]any{"type": "string", "description": "ID of the background task to kill"}},
		"required":   []string{"shell_id"},
	}
}

func (t *KillShellTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	shellID := stringParam(params, "shell_id")
	if shellID == "" {
		return NewErrorResult("shell_id is required")
	}

	bgTask, found := DefaultBgTasks.Get(shellID)
	if !found {
		return NewErrorResult(fmt.Sprintf("task not found: %s", shellID))
	}
	if !bgTask.IsRunning() {
		info := bgTask.GetStatus()
		return NewErrorResult(fmt.Sprintf("task already %s", info.Status))
	}

	if err := DefaultBgTasks.Kill(shellID); err != nil {
		return NewErrorResult("failed to kill task: " + err.Error())
	}

	final := bgTask.GetStatus()
	out := fmt.Sprintf("Task killed.\nTask ID: %s\nPID: %d\nStatus: %s", shellID, final.PID, final.Status)
	if final.Output != "" {
		out += "\n\nOutput before kill:\n" + final.Output
	}
	return Result{Output: out}
}

func init() {
	Register(&KillShellTool{})
}
