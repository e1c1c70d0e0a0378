package core

// BaseInput provides common fields for all tool inputs.
// Tool input structs embed it to pick up ReAct thought support.
type BaseInput struct {
	// Thought contains the agent's reasoning about why it's using this tool.
	// Optional for read operations, required for destructive ones
	// (delete, tag).
	Thought string `json:"thought,omitempty"`
}
