// Package registry maps side-effect names to their implementation.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/utopium/chatflow/pkg/domain"
)

// ToolFunction defines the signature for a side-effect implementation.
// It receives a context and the loosely typed arguments of the call, and
// returns the text result (a caption, an image URL, a post ID).
type ToolFunction func(ctx context.Context, args map[string]any) (string, error)

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolFunction
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolFunction),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Execute looks up a tool by name and executes it.
// Unknown names return an error wrapping domain.ErrUnknownTool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	fn, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}

	return fn(ctx, args)
}

// Names lists the registered tools in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
