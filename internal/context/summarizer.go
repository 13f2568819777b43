package context

import (
	gocontext "context"
	"fmt"
	"strings"

	"github.com/hoosh/hoosh/internal/message"
)

// Backend is the narrow slice of internal/backend.Backend the
// summarizer needs — a single-shot prompt-in, text-out call with no tool
// use. Declaring it locally (rather than importing internal/backend)
// avoids coupling the context manager to the backend package, mirroring
// internal/tool/task.go's AgentExecutor decoupling.
type Backend interface {
	SendMessage(ctx gocontext.Context, prompt string) (string, error)
}

// Summarizer builds an LLM-based compression of a message range on
// demand (spec §4.5). No command and no Manager strategy in this module
// invokes it; a caller constructs one with NewSummarizer and calls it
// directly.
type Summarizer struct {
	backend Backend
}

func NewSummarizer(backend Backend) *Summarizer {
	return &Summarizer{backend: backend}
}

// Summarize asks the backend to compress messages, optionally focusing
// on particular topics. Returns the summary text alone; callers install
// it via conversation.CompactWithSummary.
func (s *Summarizer) Summarize(ctx gocontext.Context, messages []message.Message, focus string) (string, error) {
	prompt := s.formatMessagesForSummary(messages) + "\n\n" + s.buildSummaryRequest(focus)

	summary, err := s.backend.SendMessage(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to get summary from backend: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func (s *Summarizer) buildSummaryRequest(focus string) string {
	request := "Summarize our conversation so far concisely. Focus on:\n" +
		"- Key decisions, configurations, and code changes\n" +
		"- Important context needed for future reference\n" +
		"- Unresolved issues or pending tasks\n" +
		"- Critical file paths, functions, or entities mentioned\n\n"

	if focus != "" {
		request += fmt.Sprintf("Pay special attention to: %s\n\n", focus)
	}

	request += "Omit routine acknowledgments and redundant information.\n" +
		"Aim for 70% compression while preserving semantic value.\n" +
		"Provide only the summary, no preamble."

	return request
}

func (s *Summarizer) formatMessagesForSummary(messages []message.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
