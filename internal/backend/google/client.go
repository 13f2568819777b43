// Package google adapts the Gemini API to the backend.Backend contract.
// Grounded on the teacher's internal/provider/google/client.go: the same
// Content/Part conversion and GenerateContentStream iteration, rebuilt
// to accumulate one backend.Response instead of a StreamChunk channel.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/backend"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/tool"
)

var pricing = map[string]backend.Pricing{
	"gemini-2.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 10},
	"gemini-2.5-flash": {InputPerMillion: 0.3, OutputPerMillion: 2.5},
}

// Client implements backend.Backend against a live Gemini API key.
type Client struct {
	sdk       *genai.Client
	model     string
	maxTokens int
	system    string
}

// New builds a Client, reading GOOGLE_API_KEY (falling back to
// GEMINI_API_KEY) the way the teacher's NewAPIKeyClient does.
func New(ctx context.Context, apiKey, model, systemPrompt string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	return &Client{sdk: sdk, model: model, maxTokens: maxTokens, system: systemPrompt}, nil
}

func (c *Client) BackendName() string { return "google" }
func (c *Client) ModelName() string   { return c.model }

func (c *Client) Pricing() (backend.Pricing, bool) {
	p, ok := pricing[c.model]
	return p, ok
}

func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	result, err := c.sdk.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: text}}},
	}, nil)
	if err != nil {
		return "", classify(err)
	}
	var out string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			out += part.Text
		}
	}
	return out, nil
}

func (c *Client) SendMessageWithToolsAndEvents(ctx context.Context, conv []message.Message, reg *tool.Registry, sender event.Sender) (backend.Response, error) {
	contents := toGeminiContents(conv)

	config := &genai.GenerateContentConfig{}
	if c.system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: c.system}}}
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = int32(c.maxTokens)
	}
	if tools := toGeminiTools(reg); len(tools) > 0 {
		config.Tools = tools
	}

	var resp backend.Response
	for result, err := range c.sdk.Models.GenerateContentStream(ctx, c.model, contents, config) {
		if err != nil {
			return backend.Response{}, classify(err)
		}
		for _, candidate := range result.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					resp.Content += part.Text
					sender.Emit(event.Event{Type: event.AssistantThought, Text: part.Text})
				}
				if part.FunctionCall != nil {
					argsJSON, _ := json.Marshal(part.FunctionCall.Args)
					resp.ToolCalls = append(resp.ToolCalls, message.ToolCall{
						ID: part.FunctionCall.ID, Name: part.FunctionCall.Name, Input: string(argsJSON),
					})
				}
			}
		}
		if result.UsageMetadata != nil {
			resp.Usage.InputTokens = int(result.UsageMetadata.PromptTokenCount)
			resp.Usage.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
			resp.HasUsage = true
		}
	}
	return resp, nil
}

func toGeminiContents(conv []message.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(conv))
	for _, m := range conv {
		var role string
		var parts []*genai.Part
		switch m.Role {
		case message.RoleSystem:
			continue
		case message.RoleUser:
			role = "user"
			if len(m.Images) > 0 {
				for _, img := range m.Images {
					decoded, err := base64.StdEncoding.DecodeString(img.Data)
					if err == nil {
						parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MediaType, Data: decoded}})
					}
				}
				if m.Content != "" {
					parts = append(parts, &genai.Part{Text: m.Content})
				}
			} else {
				parts = []*genai.Part{{Text: m.Content}}
			}
		case message.RoleTool:
			role = "user"
			var result map[string]any
			if err := json.Unmarshal([]byte(m.Content), &result); err != nil {
				result = map[string]any{"result": m.Content}
			}
			parts = []*genai.Part{{FunctionResponse: &genai.FunctionResponse{ID: m.ToolCallID, Name: m.ToolName, Response: result}}}
		case message.RoleAssistant:
			role = "model"
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Input != "" {
					_ = json.Unmarshal([]byte(tc.Input), &args)
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func toGeminiTools(reg *tool.Registry) []*genai.Tool {
	if reg == nil {
		return nil
	}
	names := reg.List()
	decls := make([]*genai.FunctionDeclaration, 0, len(names))
	for _, name := range names {
		t, ok := reg.Get(name)
		if !ok {
			continue
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name: t.Name(), Description: t.Description(), ParametersJsonSchema: t.ParameterSchema(),
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// classify maps a Gemini SDK error onto the retry-strategy taxonomy.
// The genai client surfaces HTTP failures as *genai.APIError carrying a
// Code field mirroring the HTTP status.
func classify(err error) error {
	var aerr genai.APIError
	if asAPIError(err, &aerr) {
		switch {
		case aerr.Code == 401 || aerr.Code == 403:
			return &apperr.AuthenticationError{Message: aerr.Message}
		case aerr.Code == 429:
			return &apperr.RateLimitError{Message: aerr.Message}
		case aerr.Code >= 500:
			return &apperr.ServerError{Status: aerr.Code, Message: aerr.Message}
		default:
			return &apperr.OtherError{Message: aerr.Message}
		}
	}
	return &apperr.NetworkError{Err: fmt.Errorf("google: %w", err)}
}

func asAPIError(err error, target *genai.APIError) bool {
	if aerr, ok := err.(genai.APIError); ok {
		*target = aerr
		return true
	}
	if aerr, ok := err.(*genai.APIError); ok {
		*target = *aerr
		return true
	}
	return false
}
