package engine

import (
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/stillframe/gallery-agent/core"
)

// ToolRegistry is the closed set of operations the engine can
// dispatch. Dispatch is by exact name; unknown names are rejected at
// the boundary, never silently ignored.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
	names []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]core.Tool)}
}

// Register adds a tool, replacing any tool with the same name.
func (r *ToolRegistry) Register(tools ...core.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; !exists {
			r.names = append(r.names, t.Name())
		}
		r.tools[t.Name()] = t
	}
}

// Get looks up a tool by exact name.
func (r *ToolRegistry) Get(name string) (core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// ToAPITools converts every registered tool for the Anthropic API.
func (r *ToolRegistry) ToAPITools() []anthropic.ToolUnionParam {
	return r.ToAPIToolsFiltered(nil)
}

// ToAPIToolsFiltered converts the registered tools that pass the
// filter. A nil filter passes everything.
func (r *ToolRegistry) ToAPIToolsFiltered(filter func(core.Tool) bool) []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]anthropic.ToolUnionParam, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		if filter != nil && !filter(t) {
			continue
		}
		out = append(out, toAPITool(t.Definition()))
	}
	return out
}

// FilterByNames builds a filter passing only the named tools.
func FilterByNames(names ...string) func(core.Tool) bool {
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}
	return func(t core.Tool) bool {
		_, ok := allowed[t.Name()]
		return ok
	}
}

func toAPITool(def core.ToolDefinition) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := def.InputSchema["properties"]; ok {
		schema.Properties = props
	}
	if required, ok := def.InputSchema["required"].([]string); ok {
		schema.Required = required
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        def.ToolName,
			Description: anthropic.String(def.ToolDescription),
			InputSchema: schema,
		},
	}
}
