package tool

import (
	"context"
	"fmt"
	"time"
)

// TaskOutputTool retrieves output from a running or completed background
// task (bash or sub-agent), optionally blocking until it finishes.
type TaskOutputTool struct{}

func (t *TaskOutputTool) Name() string { return "TaskOutput" }
func (t *TaskOutputTool) Description() string {
	return "Retrieve output from a background task started with run_in_background"
}

func (t *TaskOutputTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string", "description": "ID of the background task"},
			"block":   map[string]any{"type": "boolean", "description": "Wait for completion, default true"},
			"timeout": map[string]any{"type": "integer", "description": "Max wait in milliseconds when block=true, default 30000"},
		},
		"required": []string{"task_id"},
	}
}

func (t *TaskOutputTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	taskID := stringParam(params, "task_id")
	if taskID == "" {
		return NewErrorResult("task_id is required")
	}
	block := true
	if v, ok := params["block"].(bool); ok {
		block = v
	}
	timeout := 30 * time.Second
	if ms := intParam(params, "timeout", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > 600*time.Second {
			timeout = 600 * time.Second
		}
	}

	bgTask, found := DefaultBgTasks.Get(taskID)
	if !found {
		return NewErrorResult(fmt.Sprintf("task not found: %s", taskID))
	}

	if block && bgTask.IsRunning() {
		if !bgTask.WaitForCompletion(timeout) {
			info := bgTask.GetStatus()
			return Result{
				Output:  info.Output,
				IsError: true,
			}
		}
	}

	info := bgTask.GetStatus()
	out := fmt.Sprintf("Task ID: %s\nStatus: %s\n", info.ID, info.Status)
	if info.PID != 0 {
		out += fmt.Sprintf("PID: %d\n", info.PID)
	}
	if info.Command != "" {
		out += "Command: " + info.Command + "\n"
	}
	if !info.EndTime.IsZero() {
		out += fmt.Sprintf("Duration: %v\n", info.EndTime.Sub(info.StartTime))
	}
	if info.Output != "" {
		out += "\nOutput:\n" + info.Output
	}
	if info.Error != "" {
		out += "\nError: " + info.Error
	}

	return Result{Output: out, IsError: info.Status == BgTaskFailed}
}

func init() {
	Register(&TaskOutputTool{})
}
