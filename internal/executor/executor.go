// Package executor implements the tool execution pipeline (component F,
// spec §4.3): resolve, parse, validate, compute display name, check
// permission, preview, gate on approval, execute. Grounded on the
// original implementation's tool_executor.rs and on the teacher's
// internal/agent/executor.go (which the same pipeline was already
// hand-rolled into once, for sub-agents).
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/event"
	"github.com/hoosh/hoosh/internal/message"
	"github.com/hoosh/hoosh/internal/permission"
	"github.com/hoosh/hoosh/internal/tool"
)

// PermissionResponse is the UI driver's answer to a ToolPermissionRequest
// event (spec §4.4 step 4): allowed, and — when allowed — the scope
// under which the decision was made.
//
// The original implementation keeps this gate (rule lookup +
// interactive prompt, with a persistable scope) separate from a second,
// unconditional preview/confirm gate guarding every call with a preview
// (its ApprovalRequest/ApprovalResponse). This module merges the two:
// one ToolPermissionRequest carries the preview text already, and one
// response carries both the yes/no and the persistence scope. Two
// sequential prompts for the same action add no safety the merged one
// doesn't already provide, and the merge matches how internal/permission
// was already built — an Engine with a single OnUnresolved callback.
type PermissionResponse struct {
	RequestID string
	Approved  bool
	Scope     permission.Scope
	Reason    string // optional rejection reason surfaced to the LLM
}

// Response is what execute_tool_call reports back (spec §4.3): the
// computed display name travels with it so callers never need to
// recompute it for the tool-result message or transcript line.
type Response struct {
	ToolCallID  string
	ToolName    string
	DisplayName string
	Output      string
	IsError     bool
	Truncated   bool
	TodoItems   []tool.TodoItem

	// Rejected and PermissionDenied classify IsError results that the
	// turn loop must treat specially (spec §4.6 steps 4g/4h): a user's
	// explicit rejection of an approval prompt, or a permission-engine
	// denial. Both false for an ordinary execution failure, which the
	// turn loop lets the model see and retry.
	Rejected         bool
	PermissionDenied bool
}

// ToMessage converts a Response into the tool-role message appended to
// the conversation.
func (r Response) ToMessage() message.Message {
	return message.ToolMessage(r.ToolCallID, r.ToolName, r.Output, r.IsError)
}

// Executor runs execute_tool_call / execute_tool_calls against a tool
// registry and permission engine, emitting the core-to-UI events of
// spec §6 along the way.
type Executor struct {
	registry *tool.Registry
	engine   *permission.Engine
	sender   event.Sender
	cwd      string

	autopilot atomic.Bool

	approvalMu sync.Mutex
	approvalCh <-chan PermissionResponse

	// currentCallID/currentToolName/lastApprovalErr are scratch state
	// set immediately before Engine.Check and read back from the
	// OnUnresolved callback it invokes synchronously. Safe because
	// execute_tool_calls is a sequential contract (spec §4.3) — only one
	// call is ever mid-flight on a given Executor.
	currentCallID   string
	currentToolName string
	lastApprovalErr error
}

// New builds an Executor. engine.OnUnresolved is wired to this
// Executor's own approval flow; callers must not also register their
// own OnUnresolved callback on the same engine.
func New(registry *tool.Registry, engine *permission.Engine, sender event.Sender, cwd string) *Executor {
	e := &Executor{registry: registry, engine: engine, sender: sender, cwd: cwd}
	engine.OnUnresolved(e.onUnresolved)
	return e
}

// SetAutopilot toggles the autopilot flag: when true, every unresolved
// permission check auto-approves without prompting (spec §4.3 step 7).
func (e *Executor) SetAutopilot(enabled bool) { e.autopilot.Store(enabled) }

// Autopilot reports the current autopilot state.
func (e *Executor) Autopilot() bool { return e.autopilot.Load() }

// WithApprovalChannel wires the channel the UI driver sends
// PermissionResponse values on, keyed by RequestID. Without one,
// unresolved checks auto-approve (no approval system configured).
func (e *Executor) WithApprovalChannel(ch <-chan PermissionResponse) *Executor {
	e.approvalCh = ch
	return e
}

// ExecuteToolCall runs the full 8-step pipeline for one call.
func (e *Executor) ExecuteToolCall(ctx context.Context, call message.ToolCall) Response {
	name := call.Name
	ctx = tool.WithCallID(ctx, call.ID)

	// 1. Resolve.
	t, ok := e.registry.Get(name)
	if !ok {
		err := &apperr.ToolNotFoundError{Name: name}
		return errorResponse(call, name, err)
	}

	// 2. Parse arguments.
	params, err := message.ParseToolInput(call.Input)
	if err != nil {
		ierr := &apperr.InvalidArgumentsError{Tool: name, Details: "invalid tool arguments: " + err.Error()}
		return errorResponse(call, name, ierr)
	}

	// 4. Compute display name. Done ahead of validation (step 3) so a
	// validation failure still reports a useful label, matching the
	// original's comment that display name is captured "before
	// validation, so we have it even if validation fails".
	displayName := FormatDisplay(t, params)

	// 3. Validate against schema.
	if err := validateAgainstSchema(params, t.ParameterSchema(), name); err != nil {
		ierr := &apperr.InvalidArgumentsError{Tool: name, Details: err.Error()}
		return errorResponseDisplay(call, name, displayName, ierr)
	}

	// 5-7. Permission check, preview, approval gate. Every
	// PermissionAwareTool reaches Engine.Check (spec §4.3 step 5 is a
	// universal pipeline stage, not limited to tools an approval prompt
	// can actually fire for) — RequiresPermission only gates whether a
	// preview is worth showing first, since a read-only descriptor's
	// Check call blocks on approval only when confirm-reads is on.
	pat, isPermissionAware := t.(tool.PermissionAwareTool)
	if isPermissionAware {
		req, err := pat.PreparePermission(ctx, params, e.cwd)
		if err != nil {
			ierr := &apperr.ExecutionFailedError{Message: err.Error()}
			return errorResponseDisplay(call, name, displayName, ierr)
		}

		descriptor := buildDescriptor(name, req)

		// Preview is shown unconditionally for tools that require
		// permission, ahead of the approval decision, so the UI
		// transcript always reflects what is about to run even when a
		// stored rule auto-allows it. Tools that don't require
		// permission (Read/Glob/Grep/List) never produce anything worth
		// previewing.
		if pat.RequiresPermission() && descriptor.Display != "" {
			e.sender.Emit(event.Event{Type: event.ToolPreview, ToolName: name, ToolCallID: call.ID, Text: descriptor.Display})
		}

		e.currentCallID = call.ID
		e.currentToolName = name
		e.lastApprovalErr = nil

		allowed := e.engine.Check(descriptor)
		if !allowed {
			if e.lastApprovalErr != nil {
				return errorResponseDisplay(call, name, displayName, e.lastApprovalErr)
			}
			perr := &apperr.PermissionDeniedError{Tool: name, Target: descriptor.Target}
			return errorResponseDisplay(call, name, displayName, perr)
		}

		// 8. Execute (approved path).
		result := pat.ExecuteApproved(ctx, params, e.cwd)
		return fromResult(call, name, displayName, result)
	}

	// 8. Execute (no permission gate for this tool).
	result := t.Execute(ctx, params, e.cwd)
	return fromResult(call, name, displayName, result)
}

// ExecuteToolCalls runs each call through the pipeline sequentially —
// never in parallel — because later calls may depend on earlier side
// effects and on conversation state inspected by permission rules (spec
// §4.3).
func (e *Executor) ExecuteToolCalls(ctx context.Context, calls []message.ToolCall) []Response {
	results := make([]Response, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.ExecuteToolCall(ctx, call))
	}
	return results
}

// onUnresolved is the permission engine's callback for calls no stored
// rule matches. It requests approval from the UI driver and blocks on
// the approval channel, recording any error detail richer than a plain
// allow/deny in lastApprovalErr for ExecuteToolCall to surface.
func (e *Executor) onUnresolved(d permission.Descriptor) (bool, permission.Scope) {
	if e.autopilot.Load() {
		return true, permission.ScopeYesOnce
	}

	e.sender.Emit(event.Event{
		Type: event.ToolPermissionRequest, RequestID: e.currentCallID,
		ToolName: e.currentToolName, ToolCallID: e.currentCallID, Text: d.Display,
	})

	resp, err := e.awaitApproval(e.currentCallID)
	if err != nil {
		e.lastApprovalErr = &apperr.ExecutionFailedError{Message: err.Error()}
		return false, permission.ScopeNo
	}
	if !resp.Approved {
		e.lastApprovalErr = &apperr.UserRejectedError{Reason: resp.Reason}
		return false, permission.ScopeNo
	}
	return true, resp.Scope
}

// awaitApproval blocks on the approval channel behind a mutex — the
// executor owns a single receiver and the UI is expected to send one
// PermissionResponse per ToolPermissionRequest, in order (spec §4.3's
// "concurrent approval queue").
func (e *Executor) awaitApproval(requestID string) (PermissionResponse, error) {
	e.approvalMu.Lock()
	defer e.approvalMu.Unlock()

	if e.approvalCh == nil {
		// No approval system configured: auto-approve, matching the
		// original implementation's request_approval fallback.
		return PermissionResponse{RequestID: requestID, Approved: true, Scope: permission.ScopeYesOnce}, nil
	}

	resp, ok := <-e.approvalCh
	if !ok {
		return PermissionResponse{}, fmt.Errorf("approval channel closed")
	}
	if resp.RequestID != requestID {
		return PermissionResponse{}, fmt.Errorf("approval response ID mismatch: expected %s, got %s", requestID, resp.RequestID)
	}
	return resp, nil
}

func fromResult(call message.ToolCall, toolName, displayName string, result tool.Result) Response {
	return Response{
		ToolCallID: call.ID, ToolName: toolName, DisplayName: displayName,
		Output: result.Output, IsError: result.IsError, Truncated: result.Truncated,
		TodoItems: result.TodoItems,
	}
}

func errorResponse(call message.ToolCall, toolName string, err error) Response {
	return errorResponseDisplay(call, toolName, toolName, err)
}

func errorResponseDisplay(call message.ToolCall, toolName, displayName string, err error) Response {
	return Response{
		ToolCallID: call.ID, ToolName: toolName, DisplayName: displayName,
		Output: err.Error(), IsError: true,
		Rejected:         apperr.IsUserRejection(err),
		PermissionDenied: apperr.IsPermissionDenied(err),
	}
}
