// Package conversation implements the conversation model and its durable
// append-only store (component B, spec §4.1): message history, repair of
// interrupted tool-call sequences, and summary compaction.
package conversation

import (
	"fmt"
	"time"

	"github.com/hoosh/hoosh/internal/message"
)

const interruptedNotice = "Tool execution was interrupted before a result could be recorded."

// SummarySentinel prefixes the content of a compaction summary message,
// per spec §3's invariant on compacted conversations.
const SummarySentinel = "[CONVERSATION HISTORY SUMMARY"

// Metadata is the persisted header of a conversation.
type Metadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Conversation owns an ordered message list plus metadata, and optionally
// a handle to a Store for durable persistence. The in-memory list is
// always the source of truth for the current turn: persistence failures
// are logged, never fatal to an append (spec §4.1, §7).
type Conversation struct {
	Metadata Metadata
	Messages []message.Message

	store *Store
}

// New creates an ephemeral, in-memory conversation with id
// "temp_<unix-seconds>".
func New() *Conversation {
	now := time.Now()
	return &Conversation{
		Metadata: Metadata{
			ID:        fmt.Sprintf("temp_%d", now.Unix()),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// NewWithStore creates a conversation with the given id backed by store;
// the metadata file is created on disk immediately.
func NewWithStore(id string, store *Store) (*Conversation, error) {
	now := time.Now()
	c := &Conversation{
		Metadata: Metadata{ID: id, CreatedAt: now, UpdatedAt: now},
		store:    store,
	}
	if err := store.createMetadata(c.Metadata); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads metadata and messages for id from store.
func Load(id string, store *Store) (*Conversation, error) {
	meta, err := store.loadMetadata(id)
	if err != nil {
		return nil, err
	}
	msgs, err := store.loadMessages(id)
	if err != nil {
		return nil, err
	}
	return &Conversation{Metadata: meta, Messages: msgs, store: store}, nil
}

func (c *Conversation) append(m message.Message) {
	c.Messages = append(c.Messages, m)
	c.Metadata.MessageCount = len(c.Messages)
	c.Metadata.UpdatedAt = time.Now()
	if c.store != nil {
		if err := c.store.appendMessage(c.Metadata.ID, m); err != nil {
			c.store.logAppendFailure(c.Metadata.ID, err)
		}
		if err := c.store.saveMetadata(c.Metadata); err != nil {
			c.store.logAppendFailure(c.Metadata.ID, err)
		}
	}
}

// AddSystem appends a system message.
func (c *Conversation) AddSystem(content string) {
	c.append(message.SystemMessage(content))
}

// AddUser appends a user message, optionally with images.
func (c *Conversation) AddUser(content string, images []message.ImageData) {
	c.append(message.UserMessage(content, images))
}

// AddAssistant appends an assistant message with optional content and
// tool calls.
func (c *Conversation) AddAssistant(content string, calls []message.ToolCall) {
	c.append(message.AssistantMessage(content, calls))
}

// AddToolResult appends a tool-role message reporting the outcome of a
// prior tool call.
func (c *Conversation) AddToolResult(callID, toolName, content string, isError bool) {
	c.append(message.ToolMessage(callID, toolName, content, isError))
}

// SetTitle updates the conversation's title and persists metadata.
func (c *Conversation) SetTitle(title string) {
	c.Metadata.Title = title
	c.Metadata.UpdatedAt = time.Now()
	if c.store != nil {
		if err := c.store.saveMetadata(c.Metadata); err != nil {
			c.store.logAppendFailure(c.Metadata.ID, err)
		}
	}
}

// Repair inserts synthetic tool-result messages for any assistant tool
// calls left unanswered by a crash or cancellation, per spec §4.1.
// Idempotent: calling it twice in a row is a no-op the second time.
func (c *Conversation) Repair() {
	n := len(c.Messages)
	if n == 0 {
		return
	}

	// Find a trailing assistant-with-tool-calls message, either as the
	// very last message or as the second-to-last with a resumption user
	// message following it.
	lastIdx := n - 1
	var pendingIdx int = -1
	var trailingUser bool

	if c.Messages[lastIdx].Role == message.RoleAssistant && c.Messages[lastIdx].HasToolCalls() {
		pendingIdx = lastIdx
	} else if lastIdx > 0 && c.Messages[lastIdx].Role == message.RoleUser &&
		c.Messages[lastIdx-1].Role == message.RoleAssistant && c.Messages[lastIdx-1].HasToolCalls() {
		pendingIdx = lastIdx - 1
		trailingUser = true
	}

	if pendingIdx == -1 {
		return
	}

	answered := map[string]bool{}
	for i := pendingIdx + 1; i < n; i++ {
		if c.Messages[i].Role == message.RoleTool {
			answered[c.Messages[i].ToolCallID] = true
		}
	}

	var synthetic []message.Message
	for _, tc := range c.Messages[pendingIdx].ToolCalls {
		if !answered[tc.ID] {
			synthetic = append(synthetic, message.ToolMessage(tc.ID, tc.Name, interruptedNotice, true))
		}
	}
	if len(synthetic) == 0 {
		return
	}

	if trailingUser {
		// Insert synthetic results before the trailing user message.
		head := append([]message.Message{}, c.Messages[:lastIdx]...)
		head = append(head, synthetic...)
		head = append(head, c.Messages[lastIdx])
		c.Messages = head
	} else {
		c.Messages = append(c.Messages, synthetic...)
	}
	c.Metadata.MessageCount = len(c.Messages)

	if c.store != nil {
		for _, m := range synthetic {
			if err := c.store.appendMessage(c.Metadata.ID, m); err != nil {
				c.store.logAppendFailure(c.Metadata.ID, err)
			}
		}
	}
}

// CompactWithSummary replaces the middle of the conversation with a single
// sentinel-wrapped summary message, per spec §4.1. If the conversation has
// keepRecent or fewer messages, it is a no-op. The system message, if
// present, is preserved ahead of the summary; the last keepRecent messages
// follow it verbatim.
func (c *Conversation) CompactWithSummary(summary string, keepRecent int) {
	n := len(c.Messages)
	if n <= keepRecent {
		return
	}

	var systemMsg *message.Message
	start := 0
	if n > 0 && c.Messages[0].Role == message.RoleSystem {
		m := c.Messages[0]
		systemMsg = &m
		start = 1
	}

	tailStart := n - keepRecent
	if tailStart < start {
		tailStart = start
	}
	summarizedCount := tailStart - start

	summaryMsg := message.UserMessage(
		fmt.Sprintf("%s - %d messages]\n\n%s\n\n[END SUMMARY - Recent conversation continues below]",
			SummarySentinel, summarizedCount, summary),
		nil,
	)

	var rebuilt []message.Message
	if systemMsg != nil {
		rebuilt = append(rebuilt, *systemMsg)
	}
	rebuilt = append(rebuilt, summaryMsg)
	rebuilt = append(rebuilt, c.Messages[tailStart:]...)

	c.Messages = rebuilt
	c.Metadata.MessageCount = len(c.Messages)
	c.Metadata.UpdatedAt = time.Now()
}

// IsCompacted reports whether the conversation currently contains a
// sentinel-wrapped summary message.
func (c *Conversation) IsCompacted() bool {
	for _, m := range c.Messages {
		if m.Role == message.RoleUser && len(m.Content) >= len(SummarySentinel) &&
			m.Content[:len(SummarySentinel)] == SummarySentinel {
			return true
		}
	}
	return false
}
