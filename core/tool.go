package core

import (
	"context"
	"encoding/json"
)

// Tool is a single named operation in the dispatcher's closed set.
type Tool interface {
	// Name is the exact dispatch name.
	Name() string

	// Definition returns the tool's schema and metadata.
	Definition() ToolDefinition

	// Execute runs the operation. Failures that are part of the tool
	// contract come back as a ToolResult with Success=false; the error
	// return is reserved for infrastructure problems.
	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)

	// Destructive reports whether the operation mutates the gallery.
	// Destructive tools require an explicit thought (see BaseInput).
	Destructive() bool
}

// ToolDefinition describes a tool to the model collaborator.
type ToolDefinition struct {
	ToolName        string
	ToolDescription string

	// InputSchema is a JSON Schema object (see tools.ObjectSchema).
	InputSchema map[string]interface{}

	// Destructive marks gallery-mutating operations.
	Destructive bool
}

// ToolParams carries one invocation's input and identity.
type ToolParams struct {
	// SessionID identifies the orchestration session issuing the call.
	SessionID string

	// RequestID correlates the call in logs and audit entries.
	RequestID string

	// Input is the raw argument object from the model collaborator.
	Input json.RawMessage
}

// ToolResult is the structured outcome of one tool execution. Every
// operation returns at least Success and Message; operation-specific
// fields live in Data. This shape is the externally observable tool
// boundary and stays stable independent of internal representation.
type ToolResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    ErrorCode   `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK builds a successful result.
func OK(message string, data interface{}) *ToolResult {
	return &ToolResult{Success: true, Message: message, Data: data}
}

// Fail builds a structured failure.
func Fail(code ErrorCode, message string) *ToolResult {
	return &ToolResult{Success: false, Message: message, Code: code}
}
