package context

import (
	"testing"

	"github.com/hoosh/hoosh/internal/message"
)

func TestSlidingWindowKeepsRecent(t *testing.T) {
	var msgs []message.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, message.UserMessage("msg", nil))
	}

	s := NewSlidingWindowStrategy(3, false)
	out := s.Apply(msgs)

	if len(out) != 3 {
		t.Fatalf("expected 3 messages kept, got %d", len(out))
	}
}

func TestSlidingWindowPreservesSystemMessages(t *testing.T) {
	msgs := []message.Message{
		message.SystemMessage("sys"),
		message.UserMessage("1", nil),
		message.UserMessage("2", nil),
		message.UserMessage("3", nil),
		message.UserMessage("4", nil),
	}

	s := NewSlidingWindowStrategy(2, true)
	out := s.Apply(msgs)

	if out[0].Role != message.RoleSystem {
		t.Fatalf("expected system message preserved first, got %v", out[0])
	}
	if len(out) != 3 {
		t.Fatalf("expected 1 system + 2 recent, got %d", len(out))
	}
}

func TestSlidingWindowDropsOrphanedToolPair(t *testing.T) {
	msgs := []message.Message{
		message.UserMessage("old 1", nil),
		message.AssistantMessage("", []message.ToolCall{{ID: "call1", Name: "Read"}}),
		message.ToolMessage("call1", "Read", "result", false),
		message.UserMessage("old 2", nil),
		message.UserMessage("recent 1", nil),
		message.UserMessage("recent 2", nil),
	}

	// keep_recent_n=4 cuts the window right between the assistant tool-call
	// message and its tool-result message, which would otherwise orphan
	// the tool-result (its call message falls on the dropped side).
	s := NewSlidingWindowStrategy(4, false)
	out := s.Apply(msgs)

	for _, m := range out {
		if m.Role == message.RoleAssistant && m.HasToolCalls() {
			t.Fatalf("expected no orphaned tool call to survive, got %+v", m)
		}
		if m.Role == message.RoleTool {
			t.Fatalf("expected no orphaned tool result to survive, got %+v", m)
		}
	}
}

func TestToolOutputTruncationSkipsRecentTurns(t *testing.T) {
	longOutput := make([]byte, 1000)
	for i := range longOutput {
		longOutput[i] = 'x'
	}

	msgs := []message.Message{
		message.UserMessage("turn1", nil),
		message.ToolMessage("c1", "Bash", string(longOutput), false),
		message.UserMessage("turn2", nil),
		message.ToolMessage("c2", "Bash", string(longOutput), false),
		message.UserMessage("turn3", nil),
		message.ToolMessage("c3", "Bash", string(longOutput), false),
	}

	strat := NewToolOutputTruncationStrategy(100, "")
	out := strat.Apply(msgs)

	// turn1's tool result is old enough (more than 2 turns back) to truncate.
	if len(out[1].Content) >= len(longOutput) {
		t.Errorf("expected turn1 tool result truncated, len=%d", len(out[1].Content))
	}
	// turn3's tool result is within the last two turns; left intact.
	if len(out[5].Content) != len(longOutput) {
		t.Errorf("expected turn3 tool result left intact, len=%d", len(out[5].Content))
	}
}

func TestTokenPressureMonotonic(t *testing.T) {
	acc := NewTokenAccountant(1000)

	pressure := acc.GetTokenPressure()
	if pressure != 0 {
		t.Fatalf("expected zero initial pressure, got %f", pressure)
	}

	for i := 0; i < 20; i++ {
		acc.Record(10, 5)
		next := acc.GetTokenPressure()
		if next < pressure {
			t.Fatalf("pressure should never decrease: was %f, now %f", pressure, next)
		}
		pressure = next
	}

	if pressure <= 0 || pressure > 1 {
		t.Fatalf("expected pressure in (0,1], got %f", pressure)
	}
}

func TestTokenPressureClampedToOne(t *testing.T) {
	acc := NewTokenAccountant(10)
	acc.Record(1000, 0)

	if acc.GetTokenPressure() != 1 {
		t.Fatalf("expected pressure clamped to 1.0, got %f", acc.GetTokenPressure())
	}
}

func TestShouldWarnOncePerTurn(t *testing.T) {
	acc := NewTokenAccountant(100)
	acc.Record(90, 0)

	if !acc.ShouldWarn(0.8) {
		t.Fatal("expected warning on first check above threshold")
	}
	if acc.ShouldWarn(0.8) {
		t.Fatal("expected no repeat warning within the same turn")
	}

	acc.ResetTurn()
	if !acc.ShouldWarn(0.8) {
		t.Fatal("expected warning to fire again after ResetTurn")
	}
}
