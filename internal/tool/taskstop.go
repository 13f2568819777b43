package tool

import (
	"context"
	"fmt"
)

// TaskStopTool stops a running background task (bash or sub-agent) by id.
type TaskStopTool struct{}

func (t *TaskStopTool) Name() string        { return "TaskStop" }
func (t *TaskStopTool) Description() string { return "Stop a running background task by its ID" }

func (t *TaskStopTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"task_id": map[string]any{"type": "string", "description": "ID of the background task to stop"}},
		"required":   []string{"task_id"},
	}
}

func (t *TaskStopTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	taskID := stringParam(params, "task_id")
	if taskID == "" {
		return NewErrorResult("task_id is required")
	}

	bgTask, found := DefaultBgTasks.Get(taskID)
	if !found {
		return NewErrorResult(fmt.Sprintf("task not found: %s", taskID))
	}
	if !bgTask.IsRunning() {
		info := bgTask.GetStatus()
		return NewErrorResult(fmt.Sprintf("task already %s", info.Status))
	}
	if err := DefaultBgTasks.Kill(taskID); err != nil {
		return NewErrorResult("failed to stop task: " + err.Error())
	}

	final := bgTask.GetStatus()
	out := fmt.Sprintf("Task stopped.\nTask ID: %s\nStatus: %s", taskID, final.Status)
	if final.Output != "" {
		out += "\n\nOutput before stop:\n" + final.Output
	}
	return Result{Output: out}
}

func init() {
	Register(&TaskStopTool{})
}
