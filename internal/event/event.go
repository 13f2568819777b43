// Package event defines the typed event bus (component M): an unbounded,
// multi-producer/single-consumer channel of Events emitted by
// the turn loop, the tool executor, and the permission engine for the UI
// driver to consume.
//
// Go has no closed sum type, so Event follows the tagged-struct idiom
// already used by message.StreamChunk: one Type discriminant plus a set
// of optional payload fields that are only valid for the matching type.
package event

import "github.com/hoosh/hoosh/internal/tool"

// Type enumerates the stable core-to-UI event contract of spec §6.
type Type string

const (
	Thinking               Type = "thinking"
	AssistantThought       Type = "assistant_thought"
	ToolCalls              Type = "tool_calls"
	ToolPreview            Type = "tool_preview"
	ToolExecutionStarted   Type = "tool_execution_started"
	ToolResult             Type = "tool_result"
	ToolExecutionCompleted Type = "tool_execution_completed"
	AllToolsComplete       Type = "all_tools_complete"
	FinalResponse          Type = "final_response"
	Error                  Type = "error"
	MaxStepsReached        Type = "max_steps_reached"
	ToolPermissionRequest  Type = "tool_permission_request"
	ApprovalRequest        Type = "approval_request"
	UserRejection          Type = "user_rejection"
	PermissionDenied       Type = "permission_denied"
	Exit                   Type = "exit"
	ClearConversation      Type = "clear_conversation"
	DebugMessage           Type = "debug_message"
	RetryEvent             Type = "retry_event"
	TokenPressureWarning   Type = "token_pressure_warning"
	Summarizing            Type = "summarizing"
	SummaryComplete        Type = "summary_complete"
	SummaryError           Type = "summary_error"
	TokenUsage             Type = "token_usage"
	SubagentStepProgress   Type = "subagent_step_progress"
	SubagentTaskComplete   Type = "subagent_task_complete"
	BashOutputChunk        Type = "bash_output_chunk"
	StepStarted            Type = "step_started"
	TodoUpdate             Type = "todo_update"
)

// ToolCallDisplay pairs a tool call id with its human-readable label.
type ToolCallDisplay struct {
	ID      string
	Display string
}

// Event is the single envelope type carried on the bus. Only the fields
// relevant to Type are populated; the rest are zero values.
type Event struct {
	Type Type

	Text        string // AssistantThought, DebugMessage, Error, ToolPreview content
	ToolCallID  string
	ToolName    string
	Calls       []ToolCallDisplay // ToolCalls
	Names       []string          // UserRejection, PermissionDenied
	MaxSteps    int               // MaxStepsReached
	RequestID   string            // ToolPermissionRequest

	// Retry
	OperationName string
	Attempt       int
	MaxAttempts   int
	IsSuccess     bool

	// Token accounting
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Pressure     float64

	// Summarization
	MessageCount int
	Summary      string

	// Sub-agent bridging
	StepNumber      int
	ActionType      string
	BudgetPct       float64
	TotalSteps      int
	TotalToolUses   int
	TotalInputToks  int
	TotalOutputToks int

	// Todo
	Todos []tool.TodoItem
}

// Bus is a typed, unbounded, multi-producer/single-consumer event channel.
// Senders obtained via Sender() are cheap to clone (they share the
// underlying Go channel); the receiving end is exclusive to the UI driver.
type Bus struct {
	ch chan Event
}

// NewBus creates an event bus. Go channels aren't literally unbounded;
// a large buffer approximates the unbounded-channel contract of spec §2
// component M so producers never block behind a slow consumer in practice.
func NewBus() *Bus {
	return &Bus{ch: make(chan Event, 4096)}
}

// Sender returns a send-only handle. Cloneable by value.
func (b *Bus) Sender() Sender {
	return Sender{ch: b.ch}
}

// Receive returns the receive-only channel for the UI driver.
func (b *Bus) Receive() <-chan Event {
	return b.ch
}

// Close closes the underlying channel. Only the owner should call this,
// after all senders are done.
func (b *Bus) Close() {
	close(b.ch)
}

// Sender is a cloneable handle for emitting events onto a Bus.
type Sender struct {
	ch chan<- Event
}

// Emit sends ev without blocking forever if the channel is nil (a nil
// Sender is a valid no-op sink, matching the teacher's Option<Sender>
// pattern without needing a pointer).
func (s Sender) Emit(ev Event) {
	if s.ch == nil {
		return
	}
	s.ch <- ev
}

// Valid reports whether the sender is backed by a real channel.
func (s Sender) Valid() bool { return s.ch != nil }
