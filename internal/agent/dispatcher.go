package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hoosh/hoosh/internal/backend"
	gocontext "github.com/hoosh/hoosh/internal/context"
	"github.com/hoosh/hoosh/internal/conversation"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/executor"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/permission"
	"github.com/hoosh/hoosh/internal/tool"
)

// TaskManager implements tool.AgentExecutor (component L, spec §4.7):
// the Task tool's one dependency on this package, kept as a narrow
// interface on the tool side specifically to avoid an import cycle
// (internal/tool cannot import internal/agent, since internal/agent
// already imports internal/tool for Registry/AccessConfig).
//
// Grounded on the teacher's internal/agent.Executor (its sub-agent
// runner, internal/agent/executor.go) for the overall Run/RunBackground
// shape, but driven by this module's own Agent.HandleTurn rather than a
// hand-rolled inner loop — the sub-agent's turn loop and the top-level
// turn loop are the same code (spec §4.7 step 4: "Runs Agent::handle_turn
// bounded by agent_type.max_steps()").
type TaskManager struct {
	// Backend is used for every sub-agent run unless NewBackend is set
	// and the caller requests a model override.
	Backend backend.Backend
	// NewBackend optionally builds a backend for a specific model
	// override (spec §4.7's "model?" parameter); nil means overrides are
	// ignored and Backend is always used, matching a single-model
	// deployment.
	NewBackend func(model string) (backend.Backend, error)

	ParentModelID string
	Cwd           string
	Sender        event.Sender

	// DefaultTimeout bounds a sub-agent's wall-clock time (spec §5's
	// "Sub-agents accept an optional wall-clock timeout"); zero means no
	// bound beyond MaxSteps.
	DefaultTimeout time.Duration
}

var _ tool.AgentExecutor = (*TaskManager)(nil)

func (m *TaskManager) GetParentModelID() string { return m.ParentModelID }

func (m *TaskManager) GetAgentConfig(agentType string) (tool.AgentConfigInfo, bool) {
	cfg, ok := LookupConfig(agentType)
	if !ok {
		return tool.AgentConfigInfo{}, false
	}
	reg := buildSubagentRegistry(cfg.Access)
	return tool.AgentConfigInfo{
		Name:           cfg.Name,
		Description:    cfg.Description,
		PermissionMode: "auto-approve", // sub-agents never prompt; see Run's executor setup.
		Tools:          reg.List(),
	}, true
}

// Run executes one sub-agent synchronously, bounded by its type's
// max_steps and m.DefaultTimeout (spec §4.7 steps 1-6).
func (m *TaskManager) Run(ctx context.Context, req tool.AgentExecRequest) (*tool.AgentExecResult, error) {
	cfg, ok := LookupConfig(req.Agent)
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", req.Agent)
	}

	if m.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.DefaultTimeout)
		defer cancel()
	}

	be, err := m.resolveBackend(req.Model)
	if err != nil {
		return nil, err
	}

	cwd := req.Cwd
	if cwd == "" {
		cwd = m.Cwd
	}
	maxSteps := cfg.MaxSteps
	if req.MaxTurns > 0 {
		maxSteps = req.MaxTurns
	}

	// 1. New event channel. 2. Clone the registry minus Task.
	childBus := event.NewBus()
	reg := buildSubagentRegistry(cfg.Access)

	// 3. Fresh conversation seeded with the agent type's system message.
	conv := conversation.New()
	conv.AddSystem(cfg.SystemMessage(req.Prompt))
	conv.AddUser(req.Prompt, nil)

	engine := permission.NewEngine(nil)
	exec := executor.New(reg, engine, childBus.Sender(), cwd)
	// Sub-agents never interactively prompt (the teacher's executor.go
	// auto-approves every permission-aware call it runs); the allow/deny
	// list already bounds what it can touch.
	exec.SetAutopilot(true)

	child := &Agent{
		Conversation: conv,
		Context:      gocontext.NewManager(gocontext.NewTokenAccountant(0)),
		Backend:      be,
		Executor:     exec,
		Registry:     reg,
		Sender:       childBus.Sender(),
		MaxSteps:     maxSteps,
	}

	// 4. Run the bounded turn loop.
	stats, runErr := m.bridge(ctx, child, childBus, req, maxSteps)

	result := &tool.AgentExecResult{
		AgentName:   cfg.Name,
		TurnCount:   stats.steps,
		TotalTokens: stats.inputTokens + stats.outputTokens,
	}

	// 6. On completion, extract the child's last assistant message as
	// the tool result; any error from the turn loop (timeout, cancellation,
	// a hard backend error, an empty response) is an explicit failure.
	if runErr != nil {
		result.Success = false
		result.Error = runErr.Error()
		result.Content = lastAssistantContent(child.Conversation.Messages)
		return result, nil
	}
	result.Success = true
	result.Content = lastAssistantContent(child.Conversation.Messages)
	return result, nil
}

// RunBackground starts a sub-agent run on its own goroutine and returns
// immediately; progress and completion are retrievable via the TaskOutput
// tool, sharing its namespace with backgrounded bash commands.
func (m *TaskManager) RunBackground(req tool.AgentExecRequest) (tool.AgentTaskInfo, error) {
	cfg, ok := LookupConfig(req.Agent)
	if !ok {
		return tool.AgentTaskInfo{}, fmt.Errorf("unknown agent type: %s", req.Agent)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	bgTask := tool.DefaultBgTasks.CreateAgent(req.Description, cancel)

	go func() {
		defer cancel()
		result, err := m.Run(runCtx, req)
		if err != nil {
			bgTask.Complete(0, err)
			return
		}
		bgTask.AppendOutput([]byte(result.Content))
		if result.Success {
			bgTask.Complete(0, nil)
		} else {
			bgTask.Complete(0, fmt.Errorf("%s", result.Error))
		}
	}()

	return tool.AgentTaskInfo{TaskID: bgTask.ID, AgentName: cfg.Name}, nil
}

func (m *TaskManager) resolveBackend(model string) (backend.Backend, error) {
	if model != "" && m.NewBackend != nil {
		return m.NewBackend(model)
	}
	return m.Backend, nil
}

type subagentStats struct {
	steps        int
	toolUses     int
	inputTokens  int
	outputTokens int
}

// bridge runs child.HandleTurn on its own goroutine while translating its
// event stream into SubagentStepProgress/SubagentTaskComplete events on
// the parent sender (spec §4.7 step 5), keyed by the Task tool call's id
// so the UI can associate progress with the right invocation.
func (m *TaskManager) bridge(ctx context.Context, child *Agent, childBus *event.Bus, req tool.AgentExecRequest, maxSteps int) (subagentStats, error) {
	done := make(chan error, 1)
	go func() { done <- child.HandleTurn(ctx) }()

	var stats subagentStats
	var runErr error

loop:
	for {
		select {
		case ev := <-childBus.Receive():
			m.observe(&stats, ev, req.CallID, maxSteps)
		case runErr = <-done:
			break loop
		}
	}
	// Drain whatever arrived in the buffer between the child's last send
	// and the done signal being observed above.
drain:
	for {
		select {
		case ev := <-childBus.Receive():
			m.observe(&stats, ev, req.CallID, maxSteps)
		default:
			break drain
		}
	}

	m.Sender.Emit(event.Event{
		Type:            event.SubagentTaskComplete,
		ToolCallID:      req.CallID,
		TotalSteps:      stats.steps,
		TotalToolUses:   stats.toolUses,
		TotalInputToks:  stats.inputTokens,
		TotalOutputToks: stats.outputTokens,
	})
	return stats, runErr
}

func (m *TaskManager) observe(stats *subagentStats, ev event.Event, callID string, maxSteps int) {
	switch ev.Type {
	case event.ToolCalls:
		stats.steps++
		stats.toolUses += len(ev.Calls)
		desc := ""
		if len(ev.Calls) > 0 {
			desc = ev.Calls[0].Display
		}
		budget := 0.0
		if maxSteps > 0 {
			budget = float64(stats.steps) / float64(maxSteps)
		}
		m.Sender.Emit(event.Event{
			Type:       event.SubagentStepProgress,
			ToolCallID: callID,
			StepNumber: stats.steps,
			ActionType: "tool_calls",
			Text:       desc,
			BudgetPct:  budget,
		})
	case event.TokenUsage:
		stats.inputTokens += ev.InputTokens
		stats.outputTokens += ev.OutputTokens
	}
}

func lastAssistantContent(msgs []message.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}

// buildSubagentRegistry clones the process-wide tool registry into a real
// *tool.Registry for execution, filtered by access and always excluding
// Task (spec §4.7 step 2's recursion cap). tool.Set.Tools() already
// computes this same filtered name list for the wire-format schema sent
// to the backend; this rebuilds the matching execution-time registry
// since Set.Tools() only returns schema Descriptors, not Tool instances.
func buildSubagentRegistry(access tool.AccessConfig) *tool.Registry {
	set := &tool.Set{Access: &access}
	reg := tool.NewRegistry()
	for _, d := range set.Tools() {
		if t, ok := tool.Get(d.Name); ok {
			reg.Register(t)
		}
	}
	return reg
}
