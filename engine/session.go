package engine

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
)

// Step marks where a turn currently is in the orchestration state
// machine.
type Step string

const (
	StepInit              Step = "init"
	StepAwaitDecision     Step = "await_decision"
	StepExecutingTools    Step = "executing_tools"
	StepProcessingResults Step = "processing_results"
	StepComplete          Step = "complete"
	StepFailed            Step = "failed"
)

// Trace records one tool invocation inside a turn: the model's
// reasoning, the action, and what was observed.
type Trace struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Round       int             `json:"round"`
	Thought     string          `json:"thought,omitempty"`
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input,omitempty"`
	Observation string          `json:"observation"`
	Success     bool            `json:"success"`
	Timestamp   int64           `json:"timestamp"`
}

func (t *Trace) String() string {
	return fmt.Sprintf("round=%d action=%s success=%t thought=%q observation=%q",
		t.Round, t.Action, t.Success, t.Thought, t.Observation)
}

// Session is the per-turn agent state: an append-only conversation
// log, the current step marker, the round counter, and the traces of
// every tool call. It is created at the start of a turn and discarded
// (or persisted by the caller) at turn end.
type Session struct {
	ID             string
	ConversationID string
	Step           Step
	Rounds         int
	LastError      string
	Traces         []*Trace

	messages []anthropic.MessageParam
}

// NewSession creates a fresh session for one turn.
func NewSession(conversationID string) *Session {
	return &Session{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Step:           StepInit,
	}
}

// RestoreHistory seeds the conversation log with prior messages.
func (s *Session) RestoreHistory(history []anthropic.MessageParam) {
	s.messages = append(s.messages, history...)
}

// AddUserMessage appends the user's message to the log.
func (s *Session) AddUserMessage(text string) {
	s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
}

// AddAssistantResponse appends a full model response (text and tool
// use blocks) to the log.
func (s *Session) AddAssistantResponse(resp *anthropic.Message) {
	s.messages = append(s.messages, resp.ToParam())
}

// AddAssistantText appends a plain assistant text message to the log.
func (s *Session) AddAssistantText(text string) {
	s.messages = append(s.messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
}

// AddToolResults appends tool result blocks as a user message, the
// shape the API expects for feeding results back.
func (s *Session) AddToolResults(results []anthropic.ContentBlockParamUnion) {
	s.messages = append(s.messages, anthropic.NewUserMessage(results...))
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []anthropic.MessageParam {
	return append([]anthropic.MessageParam(nil), s.messages...)
}

// AddTrace records a tool invocation.
func (s *Session) AddTrace(t *Trace) {
	s.Traces = append(s.Traces, t)
}
