package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// TodoStatus is the lifecycle state of a single todo item, per spec §3.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry in the structured task list the model maintains
// to track progress across a turn.
type TodoItem struct {
	Content    string     `json:"content"`
	ActiveForm string     `json:"activeForm"`
	Status     TodoStatus `json:"status"`
}

// TodoWriteTool replaces the full todo list in one call; the model is
// expected to resend the complete list on every update rather than
// patch individual items, per spec §4.2.
type TodoWriteTool struct{}

func (t *TodoWriteTool) Name() string        { return "TodoWrite" }
func (t *TodoWriteTool) Description() string {
	return "Create and manage a structured task list to track progress on multi-step work"
}

func (t *TodoWriteTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content":    map[string]any{"type": "string"},
						"activeForm": map[string]any{"type": "string", "description": "Present-continuous form shown while in_progress"},
						"status":     map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"content", "activeForm", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

func (t *TodoWriteTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	todosRaw, ok := params["todos"]
	if !ok {
		return NewErrorResult("missing required parameter: todos")
	}

	todosJSON, err := json.Marshal(todosRaw)
	if err != nil {
		return NewErrorResult("invalid todos format: " + err.Error())
	}
	var todos []TodoItem
	if err := json.Unmarshal(todosJSON, &todos); err != nil {
		return NewErrorResult("failed to parse todos: " + err.Error())
	}

	for i, td := range todos {
		if td.Content == "" {
			return NewErrorResult(fmt.Sprintf("todo[%d]: content is required", i))
		}
		if td.ActiveForm == "" {
			return NewErrorResult(fmt.Sprintf("todo[%d]: activeForm is required", i))
		}
		switch td.Status {
		case TodoPending, TodoInProgress, TodoCompleted:
		default:
			return NewErrorResult(fmt.Sprintf("todo[%d]: invalid status %q", i, td.Status))
		}
	}

	pending, inProgress, completed := 0, 0, 0
	for _, td := range todos {
		switch td.Status {
		case TodoPending:
			pending++
		case TodoInProgress:
			inProgress++
		case TodoCompleted:
			completed++
		}
	}

	return Result{
		Output:    fmt.Sprintf("Todo list updated: %d pending, %d in progress, %d completed", pending, inProgress, completed),
		TodoItems: todos,
	}
}

func init() {
	Register(&TodoWriteTool{})
}
