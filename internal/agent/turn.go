package agent

import (
	"context"
	"fmt"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/backend"
	gocontext "github.com/hoosh/hoosh/internal/context"
	"github.com/hoosh/hoosh/internal/conversation"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/executor"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

// DefaultMaxSteps bounds a top-level turn when the caller doesn't override
// it. Sub-agent turns instead pass their Config.MaxSteps (spec §4.7).
const DefaultMaxSteps = 100

// Agent wires the conversation, context manager, backend, and tool
// executor together to drive one handle_turn call (component K, spec
// §4.6). Grounded on the teacher's internal/core.Loop.Run, restructured
// around this module's event-driven backend.Backend (one accumulated
// Response per step, spec §6) rather than the teacher's chunk-streaming
// Collect/Stream pair — the effect on the turn loop's shape is the same;
// only the single-shot-vs-channel plumbing underneath it differs.
type Agent struct {
	Conversation *conversation.Conversation
	Context      *gocontext.Manager
	Backend      backend.Backend
	Executor     *executor.Executor
	Registry     *tool.Registry
	Sender       event.Sender
	MaxSteps     int
}

// HandleTurn runs one full turn against a.Conversation, per spec §4.6's
// six numbered steps.
func (a *Agent) HandleTurn(ctx context.Context) error {
	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	// 1. Emit Thinking.
	a.Sender.Emit(event.Event{Type: event.Thinking})

	// 2. Repair (§4.1).
	a.Conversation.Repair()

	// 3. Run context manager (§4.5).
	a.Context.Accountant.ResetTurn()
	a.Conversation.Messages = a.Context.Apply(a.Conversation.Messages)

	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// 4a. Call the backend.
		resp, err := a.Backend.SendMessageWithToolsAndEvents(ctx, a.Conversation.Messages, a.Registry, a.Sender)
		if err != nil {
			// 4b. Recoverable-by-LLM errors are folded into the
			// conversation as a user message and the turn continues;
			// everything else terminates it.
			if apperr.RecoverableByLLM(err) {
				a.Conversation.AddUser(err.Error(), nil)
				continue
			}
			a.Sender.Emit(event.Event{Type: event.Error, Text: err.Error()})
			return err
		}

		// 4c. Record usage, emit TokenUsage.
		if resp.HasUsage {
			a.Context.RecordUsage(a.Sender, resp.Usage.InputTokens, resp.Usage.OutputTokens)
			usageEv := event.Event{
				Type:         event.TokenUsage,
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
			}
			if p, ok := a.Backend.Pricing(); ok {
				usageEv.CostUSD = cost(resp.Usage.InputTokens, resp.Usage.OutputTokens, p)
			}
			a.Sender.Emit(usageEv)
		}

		switch {
		case resp.HasToolCalls():
			// 4d. Append assistant message, emit ToolCalls, execute,
			// append results, emit AllToolsComplete.
			a.Conversation.AddAssistant(resp.Content, resp.ToolCalls)

			calls := make([]event.ToolCallDisplay, 0, len(resp.ToolCalls))
			for _, tc := range resp.ToolCalls {
				calls = append(calls, event.ToolCallDisplay{ID: tc.ID, Display: a.displayFor(tc)})
			}
			a.Sender.Emit(event.Event{Type: event.ToolCalls, Calls: calls})

			results := a.Executor.ExecuteToolCalls(ctx, resp.ToolCalls)
			for _, r := range results {
				a.Conversation.AddToolResult(r.ToolCallID, r.ToolName, r.Output, r.IsError)
			}
			a.Sender.Emit(event.Event{Type: event.AllToolsComplete})

			// 4g/4h. A rejected or permission-denied result terminates
			// the turn immediately; a plain execution failure does not
			// (the model is expected to try again).
			if names := rejectedNames(results); len(names) > 0 {
				a.Sender.Emit(event.Event{Type: event.UserRejection, Names: names})
				a.ensureTitle(ctx)
				return nil
			}
			if names := deniedNames(results); len(names) > 0 {
				a.Sender.Emit(event.Event{Type: event.PermissionDenied, Names: names})
				a.ensureTitle(ctx)
				return nil
			}
			continue

		case resp.Content != "":
			// 4e. Content only: final response.
			a.Sender.Emit(event.Event{Type: event.FinalResponse, Text: resp.Content})
			a.Conversation.AddAssistant(resp.Content, nil)
			a.ensureTitle(ctx)
			return nil

		default:
			// 4f. Both empty.
			a.Sender.Emit(event.Event{Type: event.Error, Text: "No response received"})
			a.ensureTitle(ctx)
			return fmt.Errorf("no response received from backend")
		}
	}

	// 5. Loop exhausted. ensure_title still runs here: every return path
	// gets it except the hard backend-error return and the cancellation
	// check at the top of each step.
	a.Sender.Emit(event.Event{Type: event.MaxStepsReached, MaxSteps: maxSteps})
	a.ensureTitle(ctx)
	return nil
}

// displayFor computes a tool call's human-readable label for the ToolCalls
// event, reusing executor.FormatDisplay so the label the UI sees up front
// matches what the executor itself would compute.
func (a *Agent) displayFor(tc message.ToolCall) string {
	t, ok := a.Registry.Get(tc.Name)
	if !ok {
		return tc.Name + "(...)"
	}
	params, err := message.ParseToolInput(tc.Input)
	if err != nil {
		return tc.Name + "(...)"
	}
	return executor.FormatDisplay(t, params)
}

// ensureTitle asks the backend for a short title when the conversation
// doesn't have one yet, per spec §4.6 step 6. Best-effort: failure is not
// fatal to the turn that already returned its final response.
func (a *Agent) ensureTitle(ctx context.Context) {
	if a.Conversation.Metadata.Title != "" {
		return
	}
	firstUser := ""
	for _, m := range a.Conversation.Messages {
		if m.Role == message.RoleUser {
			firstUser = m.Content
			break
		}
	}
	if firstUser == "" {
		return
	}
	title, err := a.Backend.SendMessage(ctx, titlePrompt(firstUser))
	if err != nil {
		return
	}
	if title != "" {
		a.Conversation.SetTitle(title)
	}
}

func titlePrompt(firstUserMessage string) string {
	return "Generate a short title (4-6 words, no punctuation at the end) for a conversation " +
		"that starts with this message. Reply with only the title.\n\n" + firstUserMessage
}

func cost(inputTokens, outputTokens int, p backend.Pricing) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMillion + float64(outputTokens)/1_000_000*p.OutputPerMillion
}

func rejectedNames(results []executor.Response) []string {
	var names []string
	for _, r := range results {
		if r.Rejected {
			names = append(names, r.ToolName)
		}
	}
	return names
}

func deniedNames(results []executor.Response) []string {
	var names []string
	for _, r := range results {
		if r.PermissionDenied {
			names = append(names, r.ToolName)
		}
	}
	return names
}
