package tool

import (
	"context"
	"strings"
	"sync"
)

// Registry manages tool registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, indexed case-insensitively by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[strings.ToLower(t.Name())] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// List returns the registered tool names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	return names
}

// Execute runs a tool by name directly, bypassing the permission-aware
// path; the executor package is responsible for routing
// PermissionAwareTool calls through PreparePermission/ExecuteApproved.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, cwd string) Result {
	t, ok := r.Get(name)
	if !ok {
		return NewErrorResult("unknown tool: " + name)
	}
	return t.Execute(ctx, params, cwd)
}

// DefaultRegistry is the process-wide tool registry populated by each
// tool's init().
var DefaultRegistry = NewRegistry()

// Register adds a tool to DefaultRegistry.
func Register(t Tool) { DefaultRegistry.Register(t) }

// Get retrieves a tool from DefaultRegistry.
func Get(name string) (Tool, bool) { return DefaultRegistry.Get(name) }

// Execute runs a tool from DefaultRegistry.
func Execute(ctx context.Context, name string, params map[string]any, cwd string) Result {
	return DefaultRegistry.Execute(ctx, name, params, cwd)
}
