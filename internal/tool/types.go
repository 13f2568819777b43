// Package tool implements the tool surface exposed to the model: file
// tools, search tools, shell execution, the sub-agent spawner, and the
// todo tracker, all behind a common Tool interface (component D, spec
// §4.2).
package tool

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/hoosh/hoosh/internal/tool/permission"
)

// Result is what a tool's Execute call reports back to the executor.
type Result struct {
	Output    string
	IsError   bool
	Truncated bool
	TodoItems []TodoItem // set only by TodoWrite
}

// Tool is the minimal contract every tool implements.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() map[string]any
	Execute(ctx context.Context, params map[string]any, cwd string) Result
}

// PermissionAwareTool is implemented by tools that must obtain user
// approval before running (spec §4.2, §4.4). PreparePermission computes
// the preview (diff, command text, agent summary) shown to the user;
// ExecuteApproved performs the actual side effect once approved.
type PermissionAwareTool interface {
	Tool
	RequiresPermission() bool
	PreparePermission(ctx context.Context, params map[string]any, cwd string) (*permission.PermissionRequest, error)
	ExecuteApproved(ctx context.Context, params map[string]any, cwd string) Result
}

// CallDisplayer is an optional interface a tool may implement to control
// how its call is rendered to the UI driver; tools that don't implement
// it fall back to a generic "Name(args)" rendering in the executor.
type CallDisplayer interface {
	FormatCallDisplay(params map[string]any) string
}

// Error is a tool-local validation or precondition failure, distinct from
// apperr's execution-failure types: it never reaches the LLM as a
// generic failure, only as the specific message given.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewErrorResult is a small helper for tools returning an immediate
// validation failure.
func NewErrorResult(message string) Result {
	return Result{Output: message, IsError: true}
}

// generateRequestID produces an opaque permission-request id using
// cryptographic randomness, avoiding collisions under concurrent calls.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "req_" + time.Now().Format("150405.000000000")
	}
	return "req_" + hex.EncodeToString(b)
}
