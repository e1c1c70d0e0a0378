package tools

import (
	"context"

	"github.com/stillframe/gallery-agent/core"
)

// HandlerFunc is a tool's execution body.
type HandlerFunc func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error)

// Builder assembles a core.Tool from a name, schema, and handler.
//
//	tool := tools.New("delete_images").
//		Description("Delete images by id.").
//		Schema(tools.BuildSchemaWithThought(props, true, "image_ids")).
//		Destructive().
//		Handler(fn).
//		Build()
type Builder struct {
	def     core.ToolDefinition
	handler HandlerFunc
}

// New starts building a tool with the given dispatch name.
func New(name string) *Builder {
	return &Builder{def: core.ToolDefinition{ToolName: name}}
}

// Description sets the description shown to the model collaborator.
func (b *Builder) Description(d string) *Builder {
	b.def.ToolDescription = d
	return b
}

// Schema sets the JSON Schema for the tool's input.
func (b *Builder) Schema(schema map[string]interface{}) *Builder {
	b.def.InputSchema = schema
	return b
}

// Destructive marks the tool as gallery-mutating; the engine enforces
// an explicit thought on destructive calls.
func (b *Builder) Destructive() *Builder {
	b.def.Destructive = true
	return b
}

// Handler sets the execution body.
func (b *Builder) Handler(fn HandlerFunc) *Builder {
	b.handler = fn
	return b
}

// Build returns the finished tool.
func (b *Builder) Build() core.Tool {
	return &funcTool{def: b.def, handler: b.handler}
}

type funcTool struct {
	def     core.ToolDefinition
	handler HandlerFunc
}

func (t *funcTool) Name() string                    { return t.def.ToolName }
func (t *funcTool) Definition() core.ToolDefinition { return t.def }
func (t *funcTool) Destructive() bool               { return t.def.Destructive }

func (t *funcTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	return t.handler(ctx, params)
}
