package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/gallery-agent/core"
)

type stubTool struct {
	name        string
	destructive bool
	result      *core.ToolResult
	err         error
	calls       int
}

func (t *stubTool) Name() string { return t.name }

func (t *stubTool) Definition() core.ToolDefinition {
	return core.ToolDefinition{
		ToolName:        t.name,
		ToolDescription: "stub",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
		Destructive: t.destructive,
	}
}

func (t *stubTool) Destructive() bool { return t.destructive }

func (t *stubTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	if t.result != nil {
		return t.result, nil
	}
	return core.OK("ok", nil), nil
}

func TestRegistryGet(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&stubTool{name: "alpha"}, &stubTool{name: "beta"})

	tool, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tool.Name())

	_, ok = r.Get("gamma")
	assert.False(t, ok, "unknown names are rejected, never resolved loosely")
}

func TestRegistryNamesKeepRegistrationOrder(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&stubTool{name: "zeta"}, &stubTool{name: "alpha"}, &stubTool{name: "mid"})
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewToolRegistry()
	first := &stubTool{name: "alpha"}
	second := &stubTool{name: "alpha", destructive: true}
	r.Register(first, &stubTool{name: "beta"})
	r.Register(second)

	assert.Equal(t, []string{"alpha", "beta"}, r.Names())
	tool, ok := r.Get("alpha")
	require.True(t, ok)
	assert.True(t, tool.Destructive())
}

func TestToAPITools(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&stubTool{name: "alpha"}, &stubTool{name: "beta"})

	apiTools := r.ToAPITools()
	require.Len(t, apiTools, 2)
	assert.Equal(t, "alpha", apiTools[0].OfTool.Name)
	assert.Equal(t, "beta", apiTools[1].OfTool.Name)
}

func TestToAPIToolsFiltered(t *testing.T) {
	r := NewToolRegistry()
	r.Register(&stubTool{name: "alpha"}, &stubTool{name: "beta"}, &stubTool{name: "gamma"})

	apiTools := r.ToAPIToolsFiltered(FilterByNames("gamma", "alpha"))
	require.Len(t, apiTools, 2)
	// Registration order is preserved regardless of filter order.
	assert.Equal(t, "alpha", apiTools[0].OfTool.Name)
	assert.Equal(t, "gamma", apiTools[1].OfTool.Name)
}
