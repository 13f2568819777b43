// Package anthropic adapts the Anthropic Messages API to the
// backend.Backend contract. Grounded on the teacher's
// internal/provider/anthropic/client.go: the same message-conversion
// loop and streaming-event switch, rebuilt against backend.Response
// instead of provider.StreamChunk so a full completion (not a chunk
// channel) is what SendMessageWithToolsAndEvents returns, matching spec
// §6's send_message_with_tools_and_events(...) -> LlmResponse shape.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/backend"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

// pricing holds the well-known per-million-token rates for the models
// this adapter is commonly pointed at. Unlisted models report unknown
// pricing rather than guessing.
var pricing = map[string]backend.Pricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 5, OutputPerMillion: 25},
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-haiku-3-5-20241022":  {InputPerMillion: 0.8, OutputPerMillion: 4},
}

// Client implements backend.Backend against a live Anthropic API key.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int
	system    string
}

// New builds a Client. apiKey empty means "read ANTHROPIC_API_KEY from
// the environment", matching the teacher's anthropic.NewClient() default.
func New(apiKey, model, systemPrompt string, maxTokens int) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens, system: systemPrompt}
}

func (c *Client) BackendName() string { return "anthropic" }
func (c *Client) ModelName() string   { return c.model }

func (c *Client) Pricing() (backend.Pricing, bool) {
	p, ok := pricing[c.model]
	return p, ok
}

// SendMessage is the one-shot untooled query used for title generation
// and summarization (spec §4.5, §4.6 step 6).
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(text))},
	})
	if err != nil {
		return "", classify(err)
	}
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}

// SendMessageWithToolsAndEvents runs one completion against the full
// conversation and tool registry, draining the SDK's streaming response
// into a single backend.Response (spec §6).
func (c *Client) SendMessageWithToolsAndEvents(ctx context.Context, conv []message.Message, reg *tool.Registry, sender event.Sender) (backend.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  toAnthropicMessages(conv),
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}
	if tools := toAnthropicTools(reg); len(tools) > 0 {
		params.Tools = tools
	}

	stream := c.sdk.Messages.NewStreaming(ctx, params)

	var (
		resp                                          backend.Response
		currentToolID, currentToolName, currentInput string
	)

	for stream.Next() {
		ev := stream.Current()
		switch ev.Type {
		case "content_block_start":
			block := ev.AsContentBlockStart()
			if block.ContentBlock.Type == "tool_use" {
				currentToolID = block.ContentBlock.ID
				currentToolName = block.ContentBlock.Name
				currentInput = ""
			}
		case "content_block_delta":
			delta := ev.AsContentBlockDelta()
			switch delta.Delta.Type {
			case "text_delta":
				if delta.Delta.Text != "" {
					resp.Content += delta.Delta.Text
					sender.Emit(event.Event{Type: event.AssistantThought, Text: delta.Delta.Text})
				}
			case "input_json_delta":
				currentInput += delta.Delta.PartialJSON
			}
		case "content_block_stop":
			if currentToolID != "" {
				resp.ToolCalls = append(resp.ToolCalls, message.ToolCall{ID: currentToolID, Name: currentToolName, Input: currentInput})
				currentToolID, currentToolName, currentInput = "", "", ""
			}
		case "message_delta":
			delta := ev.AsMessageDelta()
			resp.Usage.OutputTokens = int(delta.Usage.OutputTokens)
			resp.HasUsage = true
		case "message_start":
			start := ev.AsMessageStart()
			resp.Usage.InputTokens = int(start.Message.Usage.InputTokens)
			resp.HasUsage = true
		}
	}

	if err := stream.Err(); err != nil {
		return backend.Response{}, classify(err)
	}
	return resp, nil
}

func toAnthropicMessages(conv []message.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case message.RoleSystem:
			// handled via params.System, not a message.
			continue
		case message.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case message.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError)))
		case message.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
				continue
			}
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if tc.Input != "" {
					if err := json.Unmarshal([]byte(tc.Input), &input); err != nil {
						input = tc.Input
					}
				} else {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return out
}

func toAnthropicTools(reg *tool.Registry) []anthropic.ToolUnionParam {
	if reg == nil {
		return nil
	}
	names := reg.List()
	out := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		t, ok := reg.Get(name)
		if !ok {
			continue
		}
		schema := t.ParameterSchema()
		inputSchema := anthropic.ToolInputSchemaParam{}
		if props, ok := schema["properties"]; ok {
			inputSchema.Properties = props
		}
		if required, ok := schema["required"].([]string); ok {
			inputSchema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name(),
				Description: anthropic.String(t.Description()),
				InputSchema: inputSchema,
			},
		})
	}
	return out
}

// classify maps an Anthropic SDK error onto the taxonomy spec §7/§4.8's
// retry strategy consumes. Anthropic's SDK (like the rest of the
// Stainless-generated clients this module depends on) surfaces HTTP
// failures as *anthropic.Error carrying StatusCode; anything else is a
// transport-level NetworkError.
func classify(err error) error {
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		switch {
		case aerr.StatusCode == 401 || aerr.StatusCode == 403:
			return &apperr.AuthenticationError{Message: aerr.Error()}
		case aerr.StatusCode == 429:
			return &apperr.RateLimitError{Message: aerr.Error()}
		case aerr.StatusCode >= 500:
			return &apperr.ServerError{Status: aerr.StatusCode, Message: aerr.Error()}
		default:
			return &apperr.OtherError{Message: aerr.Error()}
		}
	}
	return &apperr.NetworkError{Err: fmt.Errorf("anthropic: %w", err)}
}
