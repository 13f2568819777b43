package tool

import "context"

// callIDKey is the context key carrying the originating tool-call id
// through a tool's Execute/ExecuteApproved call, the way the teacher's
// internal/log.WithAgentTracker threads its tracker through context
// rather than widening every call signature.
type callIDKey struct{}

// WithCallID attaches the tool call id the executor is currently running
// so a tool can thread it into work it hands off elsewhere (the Task
// tool's sub-agent dispatch, spec §4.7 step 5).
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallIDFromContext retrieves the id WithCallID attached, or "" if none.
func CallIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}
