package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoosh/hoosh/internal/backend/anthropic"
	"github.com/hoosh/hoosh/internal/backend/google"
	"github.com/hoosh/hoosh/internal/backend/openai"
)

// Options configures a backend built by New. APIKey empty means "read it
// from the provider's usual environment variable", matching the
// teacher's NewAPIKeyClient default for every provider.
type Options struct {
	Provider     string // "anthropic", "openai", or "google"
	Model        string
	APIKey       string
	SystemPrompt string
	MaxTokens    int
}

// New builds a Backend for opts.Provider, the way the teacher's
// provider.NewProvider factory dispatches on a "provider:auth_method"
// string — simplified to a bare provider name since this module has no
// multi-auth-method UI to drive the extra dimension.
func New(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Provider) {
	case "anthropic":
		return anthropic.New(opts.APIKey, opts.Model, opts.SystemPrompt, opts.MaxTokens), nil
	case "openai":
		return openai.New(opts.APIKey, opts.Model, opts.SystemPrompt, opts.MaxTokens), nil
	case "google", "gemini":
		return google.New(ctx, opts.APIKey, opts.Model, opts.SystemPrompt, opts.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown backend provider: %s", opts.Provider)
	}
}
