// Package context implements the context manager (component G, spec
// §4.5): a pipeline of reduction strategies applied to a conversation's
// message list at the start of every turn, plus token accounting and
// LLM-based summarization.
package context

import "github.com/hoosh/hoosh/internal/message"

// Strategy reduces a message list, returning a possibly-modified copy.
// Strategies run in declared order, before the backend is called.
type Strategy interface {
	Apply(messages []message.Message) []message.Message
}

// SlidingWindowStrategy keeps the most recent KeepRecentN messages (plus,
// optionally, all system messages), dropping the middle while preserving
// the invariant that no tool-call is ever left without its tool-result
// and vice versa (spec §4.5, §3).
type SlidingWindowStrategy struct {
	KeepRecentN int
	KeepSystem  bool
}

func NewSlidingWindowStrategy(keepRecentN int, keepSystem bool) *SlidingWindowStrategy {
	return &SlidingWindowStrategy{KeepRecentN: keepRecentN, KeepSystem: keepSystem}
}

func (s *SlidingWindowStrategy) Apply(messages []message.Message) []message.Message {
	if len(messages) <= s.KeepRecentN {
		return messages
	}

	cutIdx := len(messages) - s.KeepRecentN

	var kept []message.Message
	if s.KeepSystem {
		for _, m := range messages[:cutIdx] {
			if m.Role == message.RoleSystem {
				kept = append(kept, m)
			}
		}
	}
	kept = append(kept, messages[cutIdx:]...)

	return dropOrphanedToolPairs(kept)
}

// dropOrphanedToolPairs removes any assistant tool-call that lost its
// tool-result to the cut, and any tool-result whose call is gone.
func dropOrphanedToolPairs(messages []message.Message) []message.Message {
	present := make(map[string]bool)
	for _, m := range messages {
		if m.Role == message.RoleTool {
			present[m.ToolCallID] = true
		}
	}

	resolvable := make(map[string]bool)
	for _, m := range messages {
		if m.Role != message.RoleAssistant || !m.HasToolCalls() {
			continue
		}
		for _, tc := range m.ToolCalls {
			if present[tc.ID] {
				resolvable[tc.ID] = true
			}
		}
	}

	out := make([]message.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case message.RoleAssistant:
			if m.HasToolCalls() {
				kept := filterResolvableCalls(m.ToolCalls, resolvable)
				if len(kept) == 0 && m.Content == "" {
					continue
				}
				m.ToolCalls = kept
			}
			out = append(out, m)
		case message.RoleTool:
			if resolvable[m.ToolCallID] {
				out = append(out, m)
			}
		default:
			out = append(out, m)
		}
	}
	return out
}

func filterResolvableCalls(calls []message.ToolCall, resolvable map[string]bool) []message.ToolCall {
	var out []message.ToolCall
	for _, tc := range calls {
		if resolvable[tc.ID] {
			out = append(out, tc)
		}
	}
	return out
}
