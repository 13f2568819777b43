package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoosh/hoosh/internal/backend"
	gocontext "github.com/hoosh/hoosh/internal/context"
	"github.com/hoosh/hoosh/internal/conversation"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/executor"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/permission"
	"github.com/hoosh/hoosh/internal/tool"
)

// fakeBackend scripts a fixed sequence of backend.Response values, one
// per call to SendMessageWithToolsAndEvents, mirroring the teacher's
// core_test.go mockProvider.
type fakeBackend struct {
	steps []backend.Response
	calls int
}

func (f *fakeBackend) SendMessage(ctx context.Context, text string) (string, error) {
	return "a title", nil
}

func (f *fakeBackend) SendMessageWithToolsAndEvents(ctx context.Context, conv []message.Message, reg *tool.Registry, sender event.Sender) (backend.Response, error) {
	if f.calls >= len(f.steps) {
		return backend.Response{}, nil
	}
	r := f.steps[f.calls]
	f.calls++
	return r, nil
}

func (f *fakeBackend) BackendName() string { return "fake" }
func (f *fakeBackend) ModelName() string   { return "fake-model" }
func (f *fakeBackend) Pricing() (backend.Pricing, bool) {
	return backend.Pricing{}, false
}

func newTestAgent(t *testing.T, b *fakeBackend, reg *tool.Registry, sender event.Sender, cwd string) *Agent {
	t.Helper()
	engine := permission.NewEngine(nil)
	exec := executor.New(reg, engine, sender, cwd)
	return &Agent{
		Conversation: conversation.New(),
		Context:      gocontext.NewManager(gocontext.NewTokenAccountant(100000)),
		Backend:      b,
		Executor:     exec,
		Registry:     reg,
		Sender:       sender,
		MaxSteps:     10,
	}
}

func drainTurnEvents(bus *event.Bus) []event.Event {
	var out []event.Event
	for {
		select {
		case ev := <-bus.Receive():
			out = append(out, ev)
		default:
			return out
		}
	}
}

// S1 — simple Q&A: no tool calls, final response only.
func TestHandleTurn_SimpleQA(t *testing.T) {
	bus := event.NewBus()
	reg := tool.NewRegistry()
	b := &fakeBackend{steps: []backend.Response{{Content: "Hi!"}}}
	a := newTestAgent(t, b, reg, bus.Sender(), t.TempDir())
	a.Conversation.AddUser("Hello", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	msgs := a.Conversation.Messages
	if len(msgs) != 2 || msgs[0].Content != "Hello" || msgs[1].Content != "Hi!" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	var sawFinal, sawToolCalls bool
	for _, ev := range drainTurnEvents(bus) {
		if ev.Type == event.FinalResponse {
			sawFinal = true
		}
		if ev.Type == event.ToolCalls {
			sawToolCalls = true
		}
	}
	if !sawFinal {
		t.Fatal("expected a FinalResponse event")
	}
	if sawToolCalls {
		t.Fatal("did not expect a ToolCalls event")
	}
}

// S2 — single tool call: executor runs it for real against a temp file.
func TestHandleTurn_SingleToolCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := tool.NewRegistry()
	reg.Register(&tool.ReadTool{})

	bus := event.NewBus()
	b := &fakeBackend{steps: []backend.Response{
		{ToolCalls: []message.ToolCall{{ID: "call1", Name: "Read", Input: `{"file_path":"` + path + `"}`}}},
		{Content: "File contents: abc"},
	}}
	a := newTestAgent(t, b, reg, bus.Sender(), dir)
	a.Conversation.AddUser("Read test.txt", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	msgs := a.Conversation.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(msgs), msgs)
	}
	if !msgs[1].HasToolCalls() {
		t.Fatalf("expected msgs[1] to carry tool calls: %+v", msgs[1])
	}
	if msgs[2].Role != message.RoleTool || msgs[2].ToolCallID != "call1" {
		t.Fatalf("expected msgs[2] to be the tool result for call1: %+v", msgs[2])
	}
	if msgs[2].IsError {
		t.Fatalf("expected a successful read, got error: %s", msgs[2].Content)
	}
	if msgs[3].Content != "File contents: abc" {
		t.Fatalf("unexpected final message: %+v", msgs[3])
	}
}

// S3 — interrupted + resumed: a trailing unanswered tool call is repaired
// before the turn proceeds.
func TestHandleTurn_InterruptedAndResumed(t *testing.T) {
	reg := tool.NewRegistry()
	bus := event.NewBus()
	b := &fakeBackend{steps: []backend.Response{{Content: "done"}}}
	a := newTestAgent(t, b, reg, bus.Sender(), t.TempDir())

	a.Conversation.AddUser("start", nil)
	a.Conversation.AddAssistant("", []message.ToolCall{{ID: "orphan", Name: "Read", Input: "{}"}})
	a.Conversation.AddUser("continue", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	msgs := a.Conversation.Messages
	var foundSynthetic bool
	for _, m := range msgs {
		if m.Role == message.RoleTool && m.ToolCallID == "orphan" && m.IsError {
			foundSynthetic = true
		}
	}
	if !foundSynthetic {
		t.Fatalf("expected a synthetic tool result for the orphaned call: %+v", msgs)
	}
}

// S4 — denied write: a standing deny rule for Write denies the call, the
// turn terminates with a PermissionDenied event and never calls the backend
// a second time.
func TestHandleTurn_DeniedWrite(t *testing.T) {
	dir := t.TempDir()
	reg := tool.NewRegistry()
	reg.Register(&tool.WriteTool{})

	bus := event.NewBus()
	b := &fakeBackend{steps: []backend.Response{
		{ToolCalls: []message.ToolCall{{ID: "call1", Name: "Write", Input: `{"file_path":"secrets.env","content":"x"}`}}},
		{Content: "should not be reached"},
	}}

	// A standing deny rule for Write (e.g. persisted from an earlier
	// "don't ask again" decision) denies the call outright, without
	// invoking the interactive approval flow — this is the
	// PermissionDeniedError path, distinct from a live UI rejection
	// (which surfaces as UserRejection; see
	// TestHandleTurn_UserRejectsWrite below).
	engine := permission.NewEngine([]permission.Rule{{Kind: "Write", Target: "*", Allowed: false}})
	exec := executor.New(reg, engine, bus.Sender(), dir)

	a := &Agent{
		Conversation: conversation.New(),
		Context:      gocontext.NewManager(gocontext.NewTokenAccountant(100000)),
		Backend:      b,
		Executor:     exec,
		Registry:     reg,
		Sender:       bus.Sender(),
		MaxSteps:     10,
	}
	a.Conversation.AddUser("Write secrets.env", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if b.calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", b.calls)
	}

	var sawDenied bool
	for _, ev := range drainTurnEvents(bus) {
		if ev.Type == event.PermissionDenied {
			sawDenied = true
			if len(ev.Names) != 1 || ev.Names[0] != "Write" {
				t.Fatalf("unexpected PermissionDenied names: %v", ev.Names)
			}
		}
	}
	if !sawDenied {
		t.Fatal("expected a PermissionDenied event")
	}
}

// TestHandleTurn_UserRejectsWrite covers the live-UI counterpart of
// TestHandleTurn_DeniedWrite: no stored rule matches, so the executor
// prompts, and the UI's approval response is a denial — surfaced as a
// UserRejectedError (and a UserRejection event), not a
// PermissionDeniedError.
func TestHandleTurn_UserRejectsWrite(t *testing.T) {
	dir := t.TempDir()
	reg := tool.NewRegistry()
	reg.Register(&tool.WriteTool{})

	bus := event.NewBus()
	b := &fakeBackend{steps: []backend.Response{
		{ToolCalls: []message.ToolCall{{ID: "call1", Name: "Write", Input: `{"file_path":"secrets.env","content":"x"}`}}},
		{Content: "should not be reached"},
	}}

	engine := permission.NewEngine(nil)
	approvalCh := make(chan executor.PermissionResponse, 1)
	approvalCh <- executor.PermissionResponse{RequestID: "call1", Approved: false, Reason: "not allowed"}
	exec := executor.New(reg, engine, bus.Sender(), dir).WithApprovalChannel(approvalCh)

	a := &Agent{
		Conversation: conversation.New(),
		Context:      gocontext.NewManager(gocontext.NewTokenAccountant(100000)),
		Backend:      b,
		Executor:     exec,
		Registry:     reg,
		Sender:       bus.Sender(),
		MaxSteps:     10,
	}
	a.Conversation.AddUser("Write secrets.env", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if b.calls != 1 {
		t.Fatalf("expected exactly one backend call, got %d", b.calls)
	}

	var sawRejection bool
	for _, ev := range drainTurnEvents(bus) {
		if ev.Type == event.UserRejection {
			sawRejection = true
		}
		if ev.Type == event.PermissionDenied {
			t.Fatal("a live UI denial should surface as UserRejection, not PermissionDenied")
		}
	}
	if !sawRejection {
		t.Fatal("expected a UserRejection event")
	}
}

// MaxStepsReached fires when the backend never stops producing tool calls.
func TestHandleTurn_MaxStepsReached(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(&tool.ReadTool{})
	bus := event.NewBus()

	steps := make([]backend.Response, 3)
	for i := range steps {
		steps[i] = backend.Response{ToolCalls: []message.ToolCall{{ID: "x", Name: "Read", Input: `{"file_path":"/nonexistent"}`}}}
	}
	b := &fakeBackend{steps: steps}
	a := newTestAgent(t, b, reg, bus.Sender(), t.TempDir())
	a.MaxSteps = 3
	a.Conversation.AddUser("loop", nil)

	if err := a.HandleTurn(context.Background()); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	var sawMaxSteps bool
	for _, ev := range drainTurnEvents(bus) {
		if ev.Type == event.MaxStepsReached {
			sawMaxSteps = true
			if ev.MaxSteps != 3 {
				t.Fatalf("unexpected MaxSteps: %d", ev.MaxSteps)
			}
		}
	}
	if !sawMaxSteps {
		t.Fatal("expected a MaxStepsReached event")
	}
}

// Both content and tool calls empty: Error("No response received").
func TestHandleTurn_EmptyResponse(t *testing.T) {
	reg := tool.NewRegistry()
	bus := event.NewBus()
	b := &fakeBackend{steps: []backend.Response{{}}}
	a := newTestAgent(t, b, reg, bus.Sender(), t.TempDir())
	a.Conversation.AddUser("hi", nil)

	err := a.HandleTurn(context.Background())
	if err == nil {
		t.Fatal("expected an error for an empty response")
	}

	var sawError bool
	for _, ev := range drainTurnEvents(bus) {
		if ev.Type == event.Error {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("expected an Error event")
	}
}
