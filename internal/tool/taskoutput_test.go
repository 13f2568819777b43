package tool

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTaskOutputTool_StillRunning(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	bgTask := DefaultBgTasks.CreateAgent("Test task", cancel)
	bgTask.AppendOutput([]byte("Some partial output\n"))
	defer func() { DefaultBgTasks.mu.Lock(); delete(DefaultBgTasks.tasks, bgTask.ID); DefaultBgTasks.mu.Unlock() }()

	tool := &TaskOutputTool{}
	result := tool.Execute(context.Background(), map[string]any{
		"task_id": bgTask.ID,
		"block":   true,
		"timeout": float64(100),
	}, ".")

	// Execute blocks up to the timeout, which elapses before the task
	// ever completes: it reports the partial output it has so far as an
	// error result rather than hanging indefinitely.
	if !result.IsError {
		t.Errorf("expected IsError=true when the wait times out on a still-running task, got false")
	}
	if !strings.Contains(result.Output, "Some partial output") {
		t.Errorf("expected partial output to be included, got: %s", result.Output)
	}
}

func TestTaskOutputTool_Completed(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())

	bgTask := DefaultBgTasks.CreateAgent("Test task", cancel)
	bgTask.AppendOutput([]byte("Final output\n"))
	bgTask.Complete(0, nil)
	cancel()
	defer func() { DefaultBgTasks.mu.Lock(); delete(DefaultBgTasks.tasks, bgTask.ID); DefaultBgTasks.mu.Unlock() }()

	tool := &TaskOutputTool{}
	result := tool.Execute(context.Background(), map[string]any{
		"task_id": bgTask.ID,
		"block":   true,
		"timeout": float64(1000),
	}, ".")

	if result.IsError {
		t.Errorf("expected IsError=false for a completed task, got true. Output: %s", result.Output)
	}
	if !strings.Contains(result.Output, "Status: completed") {
		t.Errorf("expected 'Status: completed' in output, got: %s", result.Output)
	}
	if !strings.Contains(result.Output, "Final output") {
		t.Errorf("expected final output to be included, got: %s", result.Output)
	}
}

func TestTaskOutputTool_NotFound(t *testing.T) {
	tool := &TaskOutputTool{}
	result := tool.Execute(context.Background(), map[string]any{
		"task_id": "nonexistent-task",
		"block":   false,
	}, ".")

	if !result.IsError {
		t.Error("expected IsError=true for a nonexistent task")
	}
	if !strings.Contains(result.Output, "not found") {
		t.Errorf("expected 'not found' in output, got: %s", result.Output)
	}
}

func TestTaskOutputTool_NonBlocking(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	bgTask := DefaultBgTasks.CreateAgent("Test task", cancel)
	defer func() { DefaultBgTasks.mu.Lock(); delete(DefaultBgTasks.tasks, bgTask.ID); DefaultBgTasks.mu.Unlock() }()

	tool := &TaskOutputTool{}
	start := time.Now()
	result := tool.Execute(context.Background(), map[string]any{
		"task_id": bgTask.ID,
		"block":   false,
	}, ".")
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Errorf("non-blocking call took too long: %v", elapsed)
	}
	if result.IsError {
		t.Errorf("expected IsError=false, got true. Output: %s", result.Output)
	}
	if !strings.Contains(result.Output, "Status: running") {
		t.Errorf("expected 'Status: running' in output, got: %s", result.Output)
	}
}
