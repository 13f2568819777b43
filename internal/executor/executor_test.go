package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/permission"
	"github.com/hoosh/hoosh/internal/tool"
)

func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	dir := t.TempDir()

	reg := tool.NewRegistry()
	reg.Register(&tool.ReadTool{})

	engine := permission.NewEngine(nil)
	engine.SetSkipPermissions(true)

	bus := event.NewBus()
	t.Cleanup(bus.Close)

	return New(reg, engine, bus.Sender(), dir), dir
}

func TestExecuteReadFileTool(t *testing.T) {
	exec, dir := newTestExecutor(t)

	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("Hello, World!"), 0o644); err != nil {
		t.Fatal(err)
	}

	input, _ := json.Marshal(map[string]any{"file_path": "test.txt"})
	call := message.ToolCall{ID: "call_123", Name: "Read", Input: string(input)}

	resp := exec.ExecuteToolCall(context.Background(), call)
	if resp.IsError {
		t.Fatalf("expected success, got error: %s", resp.Output)
	}
	if resp.Output != "Hello, World!" {
		t.Fatalf("unexpected output: %q", resp.Output)
	}
}

func TestExecuteReadFileTool_ReadOnlyShortCircuitsWithoutSkipAll(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("Hello, World!"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := tool.NewRegistry()
	reg.Register(&tool.ReadTool{})
	// No SetSkipPermissions: Read must be allowed via the read-only
	// short-circuit (permission.go step 2), not global enforcement
	// being off.
	engine := permission.NewEngine(nil)
	bus := event.NewBus()
	t.Cleanup(bus.Close)
	exec := New(reg, engine, bus.Sender(), dir)

	input, _ := json.Marshal(map[string]any{"file_path": "test.txt"})
	call := message.ToolCall{ID: "call_ro", Name: "Read", Input: string(input)}

	resp := exec.ExecuteToolCall(context.Background(), call)
	if resp.IsError {
		t.Fatalf("expected read-only short-circuit to allow, got error: %s", resp.Output)
	}
	if resp.Output != "Hello, World!" {
		t.Fatalf("unexpected output: %q", resp.Output)
	}
}

func TestExecuteReadFileTool_ConfirmReadsRequiresApproval(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.txt"), []byte("Hello, World!"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := tool.NewRegistry()
	reg.Register(&tool.ReadTool{})
	engine := permission.NewEngine(nil)
	engine.SetConfirmReads(true)
	bus := event.NewBus()
	t.Cleanup(bus.Close)

	approvals := make(chan PermissionResponse, 1)
	exec := New(reg, engine, bus.Sender(), dir).WithApprovalChannel(approvals)

	input, _ := json.Marshal(map[string]any{"file_path": "test.txt"})
	call := message.ToolCall{ID: "call_cr", Name: "Read", Input: string(input)}

	go func() {
		req := <-bus.Receive()
		approvals <- PermissionResponse{RequestID: req.ToolCallID, Approved: false, Reason: "confirm reads is on"}
	}()

	resp := exec.ExecuteToolCall(context.Background(), call)
	if !resp.IsError {
		t.Fatal("expected SetConfirmReads to route Read through the approval gate and the rejection to deny it")
	}
	if !strings.Contains(resp.Output, "confirm reads is on") {
		t.Fatalf("expected rejection reason in output, got: %s", resp.Output)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec, _ := newTestExecutor(t)

	call := message.ToolCall{ID: "call_123", Name: "unknown_tool", Input: "{}"}
	resp := exec.ExecuteToolCall(context.Background(), call)

	if !resp.IsError {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(resp.Output, "unknown tool") {
		t.Fatalf("expected 'unknown tool' in output, got: %s", resp.Output)
	}
}

func TestExecuteReadFileToolWithInvalidSchema(t *testing.T) {
	exec, _ := newTestExecutor(t)

	input, _ := json.Marshal(map[string]any{"offset": "not_a_number"})
	call := message.ToolCall{ID: "call_456", Name: "Read", Input: string(input)}

	resp := exec.ExecuteToolCall(context.Background(), call)
	if !resp.IsError {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(resp.Output, "schema") {
		t.Fatalf("expected schema validation error, got: %s", resp.Output)
	}
}

func TestApprovalFlow_AutopilotAutoApproves(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(&tool.BashTool{})
	engine := permission.NewEngine(nil)
	bus := event.NewBus()
	t.Cleanup(bus.Close)

	exec := New(reg, engine, bus.Sender(), t.TempDir())
	exec.SetAutopilot(true)

	input, _ := json.Marshal(map[string]any{"command": "rm -rf /tmp/nonexistent-hoosh-test"})
	call := message.ToolCall{ID: "call_1", Name: "Bash", Input: string(input)}

	resp := exec.ExecuteToolCall(context.Background(), call)
	if resp.IsError {
		t.Fatalf("autopilot should have auto-approved, got error: %s", resp.Output)
	}
}

func TestApprovalFlow_RejectionDeniesWithReason(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(&tool.BashTool{})
	engine := permission.NewEngine(nil)
	bus := event.NewBus()
	t.Cleanup(bus.Close)

	approvals := make(chan PermissionResponse, 1)
	exec := New(reg, engine, bus.Sender(), t.TempDir()).WithApprovalChannel(approvals)

	input, _ := json.Marshal(map[string]any{"command": "rm -rf /tmp/nonexistent-hoosh-test"})
	call := message.ToolCall{ID: "call_2", Name: "Bash", Input: string(input)}

	go func() {
		req := <-bus.Receive()
		approvals <- PermissionResponse{RequestID: req.ToolCallID, Approved: false, Reason: "too risky"}
	}()

	resp := exec.ExecuteToolCall(context.Background(), call)
	if !resp.IsError {
		t.Fatal("expected rejection to deny execution")
	}
	if !strings.Contains(resp.Output, "too risky") {
		t.Fatalf("expected rejection reason in output, got: %s", resp.Output)
	}
}

func TestApprovalFlow_IDMismatchFailsClosed(t *testing.T) {
	reg := tool.NewRegistry()
	reg.Register(&tool.BashTool{})
	engine := permission.NewEngine(nil)
	bus := event.NewBus()
	t.Cleanup(bus.Close)

	approvals := make(chan PermissionResponse, 1)
	exec := New(reg, engine, bus.Sender(), t.TempDir()).WithApprovalChannel(approvals)

	input, _ := json.Marshal(map[string]any{"command": "rm -rf /tmp/nonexistent-hoosh-test"})
	call := message.ToolCall{ID: "call_3", Name: "Bash", Input: string(input)}

	go func() {
		<-bus.Receive()
		approvals <- PermissionResponse{RequestID: "wrong-id", Approved: true}
	}()

	resp := exec.ExecuteToolCall(context.Background(), call)
	if !resp.IsError {
		t.Fatal("expected ID mismatch to fail the step")
	}
	if !strings.Contains(resp.Output, "mismatch") {
		t.Fatalf("expected mismatch error, got: %s", resp.Output)
	}
}

func TestExecuteToolCallsIsSequential(t *testing.T) {
	exec, dir := newTestExecutor(t)

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	in1, _ := json.Marshal(map[string]any{"file_path": "a.txt"})
	in2, _ := json.Marshal(map[string]any{"file_path": "b.txt"})
	calls := []message.ToolCall{
		{ID: "c1", Name: "Read", Input: string(in1)},
		{ID: "c2", Name: "Read", Input: string(in2)},
	}

	results := exec.ExecuteToolCalls(context.Background(), calls)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Output != "a" || results[1].Output != "b" {
		t.Fatalf("unexpected outputs: %+v", results)
	}
}
