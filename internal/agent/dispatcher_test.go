package agent

import (
	"context"
	"testing"

	"github.com/hoosh/hoosh/internal/backend"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

// S5 — sub-agent dispatch: an explore-type sub-agent runs a couple of
// tool-using steps then finishes, and the parent observes bridged
// SubagentStepProgress/SubagentTaskComplete events rather than the
// child's raw event stream.
func TestTaskManager_Run_Explore(t *testing.T) {
	dir := t.TempDir()

	b := &fakeBackend{steps: []backend.Response{
		{
			ToolCalls: []message.ToolCall{{ID: "c1", Name: "Glob", Input: `{"pattern":"*.go"}`}},
			HasUsage:  true,
			Usage:     backend.Usage{InputTokens: 100, OutputTokens: 20},
		},
		{
			ToolCalls: []message.ToolCall{{ID: "c2", Name: "Grep", Input: `{"pattern":"func"}`}},
			HasUsage:  true,
			Usage:     backend.Usage{InputTokens: 120, OutputTokens: 25},
		},
		{Content: "Found 2 matching functions."},
	}}

	bus := event.NewBus()
	m := &TaskManager{Backend: b, Cwd: dir, Sender: bus.Sender(), ParentModelID: "fake-model"}

	result, err := m.Run(context.Background(), tool.AgentExecRequest{
		Agent:       "explore",
		Prompt:      "find all functions",
		Description: "explore-task",
		CallID:      "call_explore_1",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Error)
	}
	if result.Content != "Found 2 matching functions." {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.TurnCount != 2 {
		t.Fatalf("expected 2 steps (tool-call rounds), got %d", result.TurnCount)
	}
	if result.TotalTokens != 100+20+120+25 {
		t.Fatalf("unexpected total tokens: %d", result.TotalTokens)
	}

	var progress []event.Event
	var complete *event.Event
	for _, ev := range drainTurnEvents(bus) {
		switch ev.Type {
		case event.SubagentStepProgress:
			progress = append(progress, ev)
		case event.SubagentTaskComplete:
			e := ev
			complete = &e
		}
	}
	if len(progress) != 2 {
		t.Fatalf("expected 2 SubagentStepProgress events, got %d", len(progress))
	}
	if progress[0].StepNumber != 1 || progress[1].StepNumber != 2 {
		t.Fatalf("expected increasing step numbers, got %d then %d", progress[0].StepNumber, progress[1].StepNumber)
	}
	if progress[0].ToolCallID != "call_explore_1" || progress[1].ToolCallID != "call_explore_1" {
		t.Fatalf("expected SubagentStepProgress events keyed by the originating Task call id, got %+v and %+v", progress[0], progress[1])
	}
	if complete == nil {
		t.Fatal("expected a terminal SubagentTaskComplete event")
	}
	if complete.ToolCallID != "call_explore_1" {
		t.Fatalf("expected SubagentTaskComplete keyed by the originating Task call id, got %q", complete.ToolCallID)
	}
	if complete.TotalSteps != 2 || complete.TotalToolUses != 2 {
		t.Fatalf("unexpected totals on SubagentTaskComplete: %+v", complete)
	}
	if complete.TotalInputToks != 220 || complete.TotalOutputToks != 45 {
		t.Fatalf("unexpected token totals on SubagentTaskComplete: %+v", complete)
	}
}

// Unknown sub-agent types are rejected before any backend call.
func TestTaskManager_Run_UnknownAgentType(t *testing.T) {
	m := &TaskManager{Backend: &fakeBackend{}, Sender: event.NewBus().Sender()}
	_, err := m.Run(context.Background(), tool.AgentExecRequest{Agent: "not-a-real-type", Prompt: "x"})
	if err == nil {
		t.Fatal("expected an error for an unknown agent type")
	}
}

// RunBackground returns immediately and the result becomes observable
// through the same BgTaskManager TaskOutput/TaskStop already use for bash.
func TestTaskManager_RunBackground(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBackend{steps: []backend.Response{{Content: "done in background"}}}
	bus := event.NewBus()
	m := &TaskManager{Backend: b, Cwd: dir, Sender: bus.Sender()}

	info, err := m.RunBackground(tool.AgentExecRequest{Agent: "general-purpose", Prompt: "go do it", Description: "bg-task"})
	if err != nil {
		t.Fatalf("RunBackground: %v", err)
	}
	if info.TaskID == "" {
		t.Fatal("expected a non-empty task id")
	}

	bgTask, ok := tool.DefaultBgTasks.Get(info.TaskID)
	if !ok {
		t.Fatalf("task %s not registered", info.TaskID)
	}
	if !bgTask.WaitForCompletion(5_000_000_000) { // 5s in nanoseconds
		t.Fatal("background task did not complete in time")
	}
	status := bgTask.GetStatus()
	if status.Status != tool.BgTaskCompleted {
		t.Fatalf("expected completed status, got %s", status.Status)
	}
	if status.Output != "done in background" {
		t.Fatalf("unexpected output: %q", status.Output)
	}
}

// GetAgentConfig surfaces the same tool list the dispatcher actually runs
// a sub-agent of that type with.
func TestTaskManager_GetAgentConfig(t *testing.T) {
	m := &TaskManager{}
	cfg, ok := m.GetAgentConfig("plan")
	if !ok {
		t.Fatal("expected the plan agent type to resolve")
	}
	if cfg.PermissionMode != "auto-approve" {
		t.Fatalf("unexpected permission mode: %s", cfg.PermissionMode)
	}
	found := false
	for _, name := range cfg.Tools {
		if name == "Read" {
			found = true
		}
		if name == "Task" {
			t.Fatal("plan agent's tool list must not include Task")
		}
	}
	if !found {
		t.Fatal("expected Read in the plan agent's tool list")
	}
}
