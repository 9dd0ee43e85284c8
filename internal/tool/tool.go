// Package tool defines the executable-tool capability the gate consumes
// and a registry to hold implementations. The governance pipeline only
// holds a reference to a registry; concrete tools are owned by whoever
// assembles the server.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Result is the outcome a tool reports. A failed Result is a tool-level
// failure tier, distinct from a Go error (transport/lookup failure) and
// from a policy denial.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// Spec is the discovery metadata for one tool.
type Spec struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ParametersSchema map[string]any `json:"parameters_schema"`
}

// Tool is the interface every executable tool must implement. Execute
// must honor ctx cancellation; long-running work is expected here and
// nowhere else in the pipeline.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// SpecOf builds a Spec from a tool's metadata.
func SpecOf(t Tool) Spec {
	return Spec{
		Name:             t.Name(),
		Description:      t.Description(),
		ParametersSchema: t.ParametersSchema(),
	}
}

// Registry maps tool names to implementations.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the specs of all registered tools sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, SpecOf(t))
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// StringArg extracts a string argument, returning "" when absent or of
// the wrong type.
func StringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// RequireStringArg extracts a string argument or fails with a
// descriptive error.
func RequireStringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument: %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
