package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// AgentExecutor decouples the Task tool from the agent package that
// actually runs sub-agent turn loops (component F, spec §4.6), avoiding
// an import cycle between internal/tool and internal/agent.
type AgentExecutor interface {
	Run(ctx context.Context, req AgentExecRequest) (*AgentExecResult, error)
	RunBackground(req AgentExecRequest) (AgentTaskInfo, error)
	GetAgentConfig(agentType string) (AgentConfigInfo, bool)
	GetParentModelID() string
}

// AgentExecRequest carries the parameters for one sub-agent spawn.
type AgentExecRequest struct {
	Agent       string
	Prompt      string
	Description string
	CallID      string
	Background  bool
	Model       string
	MaxTurns    int
	Cwd         string
}

// AgentExecResult is what a foreground sub-agent run reports back.
type AgentExecResult struct {
	AgentName   string
	Success     bool
	Content     string
	TurnCount   int
	TotalTokens int
	Error       string
}

// AgentTaskInfo identifies a background sub-agent run.
type AgentTaskInfo struct {
	TaskID    string
	AgentName string
}

// AgentConfigInfo describes a sub-agent type for the permission prompt.
type AgentConfigInfo struct {
	Name           string
	Description    string
	PermissionMode string
	Tools          []string
}

// TaskTool launches a sub-agent (spec §4.6). Sub-agents are capped at
// recursion depth 1: the tool set handed to a sub-agent never includes
// Task itself (enforced in Set.agentTools, set.go).
type TaskTool struct {
	Executor AgentExecutor
}

func NewTaskTool() *TaskTool { return &TaskTool{} }

func (t *TaskTool) Name() string        { return "Task" }
func (t *TaskTool) Description() string { return "Launch a sub-agent to handle a complex, multi-step task" }

func (t *TaskTool) ParameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subagent_type":     map[string]any{"type": "string", "description": "Explore, Plan, general-purpose, or a custom agent name"},
			"prompt":            map[string]any{"type": "string", "description": "The task for the sub-agent to perform"},
			"description":       map[string]any{"type": "string", "description": "Short (3-5 word) description of the task"},
			"run_in_background": map[string]any{"type": "boolean", "description": "Run the sub-agent in the background"},
			"model":             map[string]any{"type": "string", "description": "Override model; defaults to the parent conversation's model"},
			"max_turns":         map[string]any{"type": "integer", "description": "Maximum number of turns before stopping"},
		},
		"required": []string{"subagent_type", "prompt"},
	}
}

func (t *TaskTool) SetExecutor(executor AgentExecutor) { t.Executor = executor }

func (t *TaskTool) RequiresPermission() bool { return true }

func (t *TaskTool) PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error) {
	agentType := stringParam(params, "subagent_type")
	if agentType == "" {
		return nil, fmt.Errorf("subagent_type is required")
	}
	prompt := stringParam(params, "prompt")
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	description := stringParam(params, "description")
	if description == "" {
		description = "Run agent task"
	}
	background := boolParam(params, "run_in_background")
	requestModel := stringParam(params, "model")

	if t.Executor == nil {
		return nil, fmt.Errorf("agent executor not configured")
	}
	config, ok := t.Executor.GetAgentConfig(agentType)
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", agentType)
	}

	effectiveModel := requestModel
	if effectiveModel == "" {
		effectiveModel = t.Executor.GetParentModelID()
	}

	desc := fmt.Sprintf("Spawn %s agent: %s", config.Name, description)
	if background {
		desc += " (background)"
	}

	return &permission.PermissionRequest{
		ID: generateRequestID(), ToolName: t.Name(), Description: desc,
		AgentMeta: &permission.AgentMetadata{
			AgentName: config.Name, Description: config.Description,
			Model: effectiveModel, PermissionMode: config.PermissionMode,
			Tools: config.Tools, Prompt: prompt, Background: background,
		},
	}, nil
}

func (t *TaskTool) ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result {
	return t.execute(ctx, params, cwd)
}

func (t *TaskTool) Execute(ctx context.Context, params map[string]any, cwd string) Result {
	return t.execute(ctx, params, cwd)
}

func (t *TaskTool) execute(ctx context.Context, params map[string]any, cwd string) Result {
	agentType := stringParam(params, "subagent_type")
	if agentType == "" {
		return NewErrorResult("subagent_type is required")
	}
	prompt := stringParam(params, "prompt")
	if prompt == "" {
		return NewErrorResult("prompt is required")
	}
	description := stringParam(params, "description")
	background := boolParam(params, "run_in_background")
	model := stringParam(params, "model")
	maxTurns := intParam(params, "max_turns", 0)

	if t.Executor == nil {
		return NewErrorResult("agent executor not configured")
	}

	req := AgentExecRequest{
		Agent: agentType, Prompt: prompt, Description: description,
		CallID:     CallIDFromContext(ctx),
		Background: background, Model: model, MaxTurns: maxTurns, Cwd: cwd,
	}

	if background {
		taskInfo, err := t.Executor.RunBackground(req)
		if err != nil {
			return NewErrorResult(fmt.Sprintf("failed to start background agent: %v", err))
		}
		return Result{Output: fmt.Sprintf(
			"Agent started in background.\nTask ID: %s\nAgent: %s\n\nUse TaskOutput with task_id=%q to check the result.",
			taskInfo.TaskID, taskInfo.AgentName, taskInfo.TaskID)}
	}

	start := time.Now()
	result, err := t.Executor.Run(ctx, req)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("agent execution failed: %v", err))
	}
	_ = time.Since(start)

	if !result.Success {
		return Result{Output: result.Content, IsError: true}
	}
	out := result.Content
	if out == "" {
		out = fmt.Sprintf("Agent completed successfully.\nTurns: %d\nTokens: %d", result.TurnCount, result.TotalTokens)
	}
	return Result{Output: out}
}

func init() {
	Register(NewTaskTool())
}
