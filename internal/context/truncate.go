package context

import (
	"strings"

	"github.com/hoosh/hoosh/internal/message"
	"github.com/mattn/go-runewidth"
)

// ToolOutputTruncationStrategy shortens old tool-result content that
// exceeds MaxCharsPerToolResult, keeping the first and last halves joined
// by EllipsisMarker (spec §4.5). Only messages older than the last two
// turns are eligible — the model needs recent tool output intact.
type ToolOutputTruncationStrategy struct {
	MaxCharsPerToolResult int
	EllipsisMarker        string
}

func NewToolOutputTruncationStrategy(maxChars int, marker string) *ToolOutputTruncationStrategy {
	if marker == "" {
		marker = "\n... [truncated] ...\n"
	}
	return &ToolOutputTruncationStrategy{MaxCharsPerToolResult: maxChars, EllipsisMarker: marker}
}

func (s *ToolOutputTruncationStrategy) Apply(messages []message.Message) []message.Message {
	recentTurnStart := recentTurnBoundary(messages)

	out := make([]message.Message, len(messages))
	copy(out, messages)

	for i := 0; i < recentTurnStart; i++ {
		m := out[i]
		if m.Role != message.RoleTool {
			continue
		}
		if runewidth.StringWidth(m.Content) <= s.MaxCharsPerToolResult {
			continue
		}
		m.Content = s.truncate(m.Content)
		out[i] = m
	}

	return out
}

// truncate keeps the first and last half of content, splitting on rune
// boundaries so a multi-byte character (CJK, emoji) is never cut in half.
func (s *ToolOutputTruncationStrategy) truncate(content string) string {
	runes := []rune(content)
	half := s.MaxCharsPerToolResult / 2
	if half < 1 {
		half = 1
	}
	if len(runes) <= half*2 {
		return content
	}

	head := string(runes[:half])
	tail := string(runes[len(runes)-half:])
	return head + s.EllipsisMarker + tail
}

// recentTurnBoundary returns the index of the first message belonging to
// the last two "turns" (a turn starts at a user message); messages before
// this index are old enough to truncate, messages at or after it are
// protected because the model needs recent output intact.
func recentTurnBoundary(messages []message.Message) int {
	turnStarts := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == message.RoleUser {
			turnStarts++
			if turnStarts == 2 {
				return i
			}
		}
	}
	return 0
}

// Contains reports whether the strategy's ellipsis marker appears in s,
// used by callers to detect whether a tool result was truncated.
func (s *ToolOutputTruncationStrategy) Contains(text string) bool {
	return strings.Contains(text, s.EllipsisMarker)
}
