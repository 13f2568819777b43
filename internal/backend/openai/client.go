// Package openai adapts the OpenAI Chat Completions API to the
// backend.Backend contract. Grounded on the teacher's
// internal/provider/openai/client.go streamChatCompletions path (the
// Responses-API / codex-model branch is not carried over: this module
// has no codex-specific routing need, and duplicating two wire formats
// for one backend would not exercise anything SPEC_FULL.md asks for).
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/backend"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

var pricing = map[string]backend.Pricing{
	"gpt-4.1":      {InputPerMillion: 2, OutputPerMillion: 8},
	"gpt-4.1-mini": {InputPerMillion: 0.4, OutputPerMillion: 1.6},
	"gpt-4o":       {InputPerMillion: 2.5, OutputPerMillion: 10},
	"gpt-4o-mini":  {InputPerMillion: 0.15, OutputPerMillion: 0.6},
}

// Client implements backend.Backend against a live OpenAI API key.
type Client struct {
	sdk       openai.Client
	model     string
	maxTokens int
	system    string
}

// New builds a Client. apiKey empty means "read OPENAI_API_KEY from the
// environment", matching the teacher's openai.NewClient() default.
func New(apiKey, model, systemPrompt string, maxTokens int) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{sdk: openai.NewClient(opts...), model: model, maxTokens: maxTokens, system: systemPrompt}
}

func (c *Client) BackendName() string { return "openai" }
func (c *Client) ModelName() string   { return c.model }

func (c *Client) Pricing() (backend.Pricing, bool) {
	p, ok := pricing[c.model]
	return p, ok
}

func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(text)},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) SendMessageWithToolsAndEvents(ctx context.Context, conv []message.Message, reg *tool.Registry, sender event.Sender) (backend.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conv)+1)
	if c.system != "" {
		messages = append(messages, openai.SystemMessage(c.system))
	}
	for _, m := range conv {
		switch m.Role {
		case message.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case message.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case message.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case message.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			var asst openai.ChatCompletionAssistantMessageParam
			if m.Content != "" {
				asst.Content.OfString = openai.Opt(m.Content)
			}
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnionParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name: tc.Name, Arguments: tc.Input,
						},
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}

	params := openai.ChatCompletionNewParams{Model: c.model, Messages: messages}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	if tools := toOpenAITools(reg); len(tools) > 0 {
		params.Tools = tools
	}

	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)

	var resp backend.Response
	toolCalls := make(map[int]*message.ToolCall)

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				resp.Content += choice.Delta.Content
				sender.Emit(event.Event{Type: event.AssistantThought, Text: choice.Delta.Content})
			}
			for _, tc := range choice.Delta.ToolCalls {
				idx := int(tc.Index)
				if _, ok := toolCalls[idx]; !ok {
					toolCalls[idx] = &message.ToolCall{ID: tc.ID, Name: tc.Function.Name}
				}
				toolCalls[idx].Input += tc.Function.Arguments
			}
		}
		if chunk.Usage.PromptTokens > 0 {
			resp.Usage.InputTokens = int(chunk.Usage.PromptTokens)
			resp.HasUsage = true
		}
		if chunk.Usage.CompletionTokens > 0 {
			resp.Usage.OutputTokens = int(chunk.Usage.CompletionTokens)
			resp.HasUsage = true
		}
	}

	if err := stream.Err(); err != nil {
		return backend.Response{}, classify(err)
	}
	for _, tc := range toolCalls {
		resp.ToolCalls = append(resp.ToolCalls, *tc)
	}
	return resp, nil
}

func toOpenAITools(reg *tool.Registry) []openai.ChatCompletionToolUnionParam {
	if reg == nil {
		return nil
	}
	names := reg.List()
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(names))
	for _, name := range names {
		t, ok := reg.Get(name)
		if !ok {
			continue
		}
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name(),
					Description: openai.String(t.Description()),
					Parameters:  openai.FunctionParameters(t.ParameterSchema()),
				},
			},
		})
	}
	return out
}

// classify maps an OpenAI SDK error (same Stainless-generated shape as
// the Anthropic client) onto the retry-strategy taxonomy.
func classify(err error) error {
	var aerr *openai.Error
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
	return &apperr.NetworkError{Err: fmt.Errorf("openai: %w", err)}
}
