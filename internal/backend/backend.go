// Package backend defines the LLM backend contract (component J, spec
// §6/§4.8) and the retry strategy every call to it passes through.
// Grounded on the teacher's internal/provider package (the LLMProvider
// interface, Stream-of-chunks shape, and ProviderFactory pattern) and on
// the original implementation's backends/mod.rs LlmBackend trait, which
// this module's Backend generalizes with the richer usage/pricing data
// spec §6 asks for.
package backend

import (
	"context"

	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

// Pricing is a backend's per-million-token rate, used to compute a
// best-effort cost estimate for the TokenUsage event (spec §4.6 step 4c).
// Whether pricing is known at all is reported by Backend.Pricing's bool
// result (the original's pricing() -> Option<...>).
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Usage reports token counts returned alongside a completion, when the
// provider's API surfaces them.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is what send_message_with_tools_and_events returns (spec §6):
// assistant content and/or tool calls, plus usage when available.
type Response struct {
	Content   string
	ToolCalls []message.ToolCall
	Usage     Usage
	HasUsage  bool
}

// HasToolCalls reports whether the response carries any tool call.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Empty reports whether the response has neither content nor tool calls
// (spec §4.6 step 4f: "If both are empty").
func (r Response) Empty() bool { return r.Content == "" && !r.HasToolCalls() }

// Backend is the trait the turn loop and sub-agent dispatcher consume
// from a provider adapter (spec §6's "LLM backend contract"). Each
// provider package (anthropic, openai, google) supplies one
// implementation, the way the teacher's provider
// subpackages each supply one client per provider.
type Backend interface {
	// SendMessage is a one-shot, untooled query used for best-effort
	// title generation (spec §4.6 step 6) and conversation summarization
	// (spec §4.5's Summarizer).
	SendMessage(ctx context.Context, text string) (string, error)

	// SendMessageWithToolsAndEvents runs one completion against the full
	// conversation and tool registry, streaming progress onto sender as
	// it goes (AssistantThought / ToolCalls-in-progress chunks are the
	// provider's concern; the turn loop only consumes the final
	// Response). Tool schemas come from reg.List() rather than a
	// separate parameter, mirroring how the registry is already the
	// single source of truth for tool shape elsewhere in this module.
	SendMessageWithToolsAndEvents(ctx context.Context, conv []message.Message, reg *tool.Registry, sender event.Sender) (Response, error)

	// BackendName identifies the provider ("anthropic", "openai", "google").
	BackendName() string

	// ModelName identifies the specific model this Backend instance talks to.
	ModelName() string

	// Pricing returns the backend's per-million-token rates, if known.
	Pricing() (Pricing, bool)
}
