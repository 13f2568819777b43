// Package apperr defines the closed error taxonomy used across the agent
// core: tool errors, permission errors, and backend errors, each carrying
// enough structure for the retry strategy and the turn loop to classify it
// without string matching.
package apperr

import "fmt"

// ToolNotFoundError is fatal for a single tool call; the model is told to
// try a different tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

// InvalidArgumentsError is surfaced to the LLM so it can correct its call.
type InvalidArgumentsError struct {
	Tool    string
	Details string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Details)
}

// PermissionDeniedError is surfaced to the LLM and terminates the turn.
type PermissionDeniedError struct {
	Tool   string
	Target string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s on %q", e.Tool, e.Target)
}

// UserRejectedError is surfaced to the LLM and terminates the turn.
type UserRejectedError struct {
	Reason string
}

func (e *UserRejectedError) Error() string {
	if e.Reason == "" {
		return "operation rejected by user"
	}
	return "operation rejected: " + e.Reason
}

// ExecutionFailedError is a generic tool execution failure.
type ExecutionFailedError struct {
	Message string
}

func (e *ExecutionFailedError) Error() string { return e.Message }

// TimeoutError reports that a tool exceeded its allotted time.
type TimeoutError struct {
	Tool    string
	Seconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %ds", e.Tool, e.Seconds)
}

// ReadFailedError, WriteFailedError and EditFailedError are structured I/O
// failures for the file tools.
type ReadFailedError struct {
	Path string
	Err  error
}

func (e *ReadFailedError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadFailedError) Unwrap() error { return e.Err }

type WriteFailedError struct {
	Path string
	Err  error
}

func (e *WriteFailedError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteFailedError) Unwrap() error { return e.Err }

type EditFailedError struct {
	Path   string
	Reason string
}

func (e *EditFailedError) Error() string { return fmt.Sprintf("edit %s: %s", e.Path, e.Reason) }

// --- Backend errors ---

// NetworkError wraps a transport-level failure talking to the backend.
// Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError reports a 429-class response. Retryable; RetryAfterSeconds, when
// positive, overrides the exponential backoff delay.
type RateLimitError struct {
	RetryAfterSeconds int // 0 means "not specified"
	Message           string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limited"
}

// ServerError reports a 5xx-class response. Retryable.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// AuthenticationError reports a 401/403-class response. Not retryable.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// RecoverableByLlmError is a special class: the agent loop appends the
// message to the conversation as a user message and continues the turn
// instead of terminating it.
type RecoverableByLlmError struct {
	Message string
}

func (e *RecoverableByLlmError) Error() string { return e.Message }

// OtherError is a catch-all for backend errors that don't fit another
// variant. Not retryable.
type OtherError struct {
	Message string
}

func (e *OtherError) Error() string { return e.Message }

// --- Classification ---

// Retryable reports whether the retry strategy (§4.8) should re-attempt
// the operation that produced err.
func Retryable(err error) bool {
	switch err.(type) {
	case *NetworkError, *RateLimitError, *ServerError:
		return true
	default:
		return false
	}
}

// RecoverableByLLM reports whether the agent turn loop should fold err's
// message into the conversation as a user message and continue the turn,
// rather than terminating it.
func RecoverableByLLM(err error) bool {
	_, ok := err.(*RecoverableByLlmError)
	return ok
}

// RetryAfterSeconds extracts a rate-limit retry-after hint, if any.
func RetryAfterSeconds(err error) (int, bool) {
	if rl, ok := err.(*RateLimitError); ok && rl.RetryAfterSeconds > 0 {
		return rl.RetryAfterSeconds, true
	}
	return 0, false
}

// ShortMessage renders a compact one-line description of err, suitable for
// a retry-attempt log line.
func ShortMessage(err error) string {
	return err.Error()
}

// IsUserRejection reports whether err represents a user's rejection of an
// approval request.
func IsUserRejection(err error) bool {
	_, ok := err.(*UserRejectedError)
	return ok
}

// IsPermissionDenied reports whether err represents a permission-engine
// denial.
func IsPermissionDenied(err error) bool {
	_, ok := err.(*PermissionDeniedError)
	return ok
}
