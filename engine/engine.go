// Package engine drives one conversation turn: it asks the model for
// a decision, dispatches any requested tool calls in order, feeds the
// structured results back, and loops until the model answers in plain
// text or a guard (round cap, timeout) fails the turn.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stillframe/gallery-agent/cache"
	"github.com/stillframe/gallery-agent/core"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxRounds bounds the decide/execute loop within one turn.
const DefaultMaxRounds = 8

const defaultMaxTokens = 4096

// messageCreator is the slice of the Anthropic client the engine
// needs. Tests substitute a scripted fake.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Engine runs the orchestration state machine over a tool registry
// and the shared result cache.
type Engine struct {
	llm      messageCreator
	registry *ToolRegistry
	results  *cache.Store
	audit    AuditLogger
	logger   *zap.Logger

	model        string
	maxTokens    int64
	systemPrompt string
	maxRounds    int
	modelTimeout time.Duration
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAudit sets the audit logger for dispatched tool calls.
func WithAudit(a AuditLogger) Option {
	return func(e *Engine) { e.audit = a }
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
	}
}

// WithSystemPrompt sets the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		if prompt != "" {
			e.systemPrompt = prompt
		}
	}
}

// WithMaxTokens sets the per-response token ceiling.
func WithMaxTokens(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithMaxRounds caps decide/execute rounds per turn.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithModelTimeout bounds each model call. Zero means no per-call
// timeout beyond the caller's context.
func WithModelTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.modelTimeout = d
		}
	}
}

// NewEngine creates an engine over the given Anthropic client,
// registry, and result cache.
func NewEngine(client *anthropic.Client, registry *ToolRegistry, results *cache.Store, opts ...Option) *Engine {
	return newEngine(&client.Messages, registry, results, opts...)
}

func newEngine(llm messageCreator, registry *ToolRegistry, results *cache.Store, opts ...Option) *Engine {
	e := &Engine{
		llm:          llm,
		registry:     registry,
		results:      results,
		logger:       zap.NewNop(),
		model:        DefaultModel,
		maxTokens:    defaultMaxTokens,
		systemPrompt: DefaultSystemPrompt,
		maxRounds:    DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's tool registry.
func (e *Engine) Registry() *ToolRegistry {
	return e.registry
}

// Results returns the engine's result cache.
func (e *Engine) Results() *cache.Store {
	return e.results
}

// Input is one user turn.
type Input struct {
	// UserMessage is the user's message to process.
	UserMessage string

	// ConversationID scopes the session.
	ConversationID string

	// History contains previous messages in the conversation.
	History []anthropic.MessageParam

	// SystemPrompt overrides the engine's default for this turn.
	SystemPrompt string

	// AvailableTools filters which registered tools the model sees.
	// Empty means all.
	AvailableTools []string
}

// OutputType indicates how a turn ended.
type OutputType int

const (
	// OutputComplete means the model produced a final text answer.
	OutputComplete OutputType = iota

	// OutputFailed means a guard tripped or an unrecoverable error
	// occurred; see FailureCode and Err.
	OutputFailed
)

// ToolExecution records one dispatched call for the caller.
type ToolExecution struct {
	Tool       string           `json:"tool"`
	Input      json.RawMessage  `json:"input,omitempty"`
	Result     *core.ToolResult `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// TokenUsage tracks model token consumption for one turn.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Output is the result of one turn.
type Output struct {
	Type        OutputType
	Text        string
	FailureCode core.ErrorCode
	Err         error
	ToolsUsed   []ToolExecution
	TokensUsed  TokenUsage
	Session     *Session
}

type toolCall struct {
	id    string
	name  string
	input json.RawMessage
}

// Run executes one turn of the state machine:
//
//	init -> await decision -> executing tools -> processing results
//	     -> (loop to await decision, or) complete
//
// with failed reachable from any state. Tool calls within a round run
// strictly in the order issued; a cache write from call N is visible
// to call N+1.
func (e *Engine) Run(ctx context.Context, input *Input) (*Output, error) {
	session := NewSession(input.ConversationID)
	session.RestoreHistory(input.History)
	if input.UserMessage != "" {
		session.AddUserMessage(input.UserMessage)
	}

	systemPrompt := input.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = e.systemPrompt
	}

	// Surface the most recent valid cached search to the model so it
	// can act on those results without searching again.
	if e.results != nil {
		if entry, ok := e.results.Latest(); ok {
			systemPrompt += "\n\n" + cacheContext(entry)
		}
	}

	var apiTools []anthropic.ToolUnionParam
	if len(input.AvailableTools) > 0 {
		apiTools = e.registry.ToAPIToolsFiltered(FilterByNames(input.AvailableTools...))
	} else {
		apiTools = e.registry.ToAPITools()
	}

	var totalTokens TokenUsage
	var toolsUsed []ToolExecution

	for {
		if err := ctx.Err(); err != nil {
			return e.fail(session, core.CodeOrchestrationTimeout,
				fmt.Errorf("turn aborted: %w", err), toolsUsed, totalTokens), nil
		}
		if session.Rounds >= e.maxRounds {
			return e.fail(session, core.CodeRoundLimitExceeded,
				fmt.Errorf("exceeded maximum rounds (%d)", e.maxRounds), toolsUsed, totalTokens), nil
		}
		session.Rounds++
		session.Step = StepAwaitDecision

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(e.model),
			MaxTokens: e.maxTokens,
			Messages:  session.Messages(),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
		}
		if len(apiTools) > 0 {
			params.Tools = apiTools
		}

		resp, err := e.createMessage(ctx, params)
		if err != nil {
			code := core.CodeModelError
			if errors.Is(err, context.DeadlineExceeded) {
				code = core.CodeOrchestrationTimeout
			}
			return e.fail(session, code, fmt.Errorf("model call: %w", err), toolsUsed, totalTokens), nil
		}

		totalTokens.InputTokens += int(resp.Usage.InputTokens)
		totalTokens.OutputTokens += int(resp.Usage.OutputTokens)

		var textResponse string
		var calls []toolCall
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textResponse += block.Text
			case "tool_use":
				calls = append(calls, toolCall{id: block.ID, name: block.Name, input: block.Input})
			}
		}

		// No tool calls means the model gave its final answer.
		if len(calls) == 0 {
			session.AddAssistantText(textResponse)
			session.Step = StepComplete
			return &Output{
				Type:       OutputComplete,
				Text:       textResponse,
				ToolsUsed:  toolsUsed,
				TokensUsed: totalTokens,
				Session:    session,
			}, nil
		}

		session.Step = StepExecutingTools
		toolResults := make([]anthropic.ContentBlockParamUnion, 0, len(calls))
		for _, call := range calls {
			block, execution := e.dispatch(ctx, session, call)
			toolResults = append(toolResults, block)
			toolsUsed = append(toolsUsed, execution)
		}

		session.Step = StepProcessingResults
		session.AddAssistantResponse(resp)
		session.AddToolResults(toolResults)
	}
}

// dispatch routes one tool call and turns its structured outcome into
// a result block for the model. Structured failures (unknown tool,
// missing thought, tool-contract failures) are fed back to the model
// for a corrective retry rather than ending the turn.
func (e *Engine) dispatch(ctx context.Context, session *Session, call toolCall) (anthropic.ContentBlockParamUnion, ToolExecution) {
	execution := ToolExecution{Tool: call.name, Input: call.input}

	var base core.BaseInput
	if err := json.Unmarshal(call.input, &base); err != nil {
		result := core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid tool input JSON: %v", err))
		execution.Result = result
		return resultBlock(call.id, result), execution
	}
	thought := strings.TrimSpace(base.Thought)

	tool, ok := e.registry.Get(call.name)
	if !ok {
		e.logger.Warn("unknown tool requested", zap.String("tool", call.name))
		result := core.Fail(core.CodeDispatchError, fmt.Sprintf("unknown tool: %s", call.name))
		execution.Result = result
		return resultBlock(call.id, result), execution
	}

	if tool.Destructive() && thought == "" {
		result := core.Fail(core.CodeInvalidParameter,
			"missing or empty thought: destructive operations require explicit reasoning about which records are affected and why")
		execution.Result = result
		return resultBlock(call.id, result), execution
	}

	trace := &Trace{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		Round:       session.Rounds,
		Thought:     thought,
		Action:      call.name,
		ActionInput: call.input,
		Timestamp:   time.Now().Unix(),
	}

	start := time.Now()
	result, err := tool.Execute(ctx, &core.ToolParams{
		SessionID: session.ID,
		RequestID: session.ID,
		Input:     call.input,
	})
	execution.DurationMs = time.Since(start).Milliseconds()

	trace.Success = err == nil && result != nil && result.Success
	trace.Observation = observation(result, err)
	session.AddTrace(trace)
	e.logger.Info("trace", zap.String("session_id", session.ID), zap.String("trace", trace.String()))

	if e.audit != nil {
		e.audit.Log(ctx, auditEntry(session, tool, call, result, err, execution.DurationMs, start))
	}

	if err != nil {
		execution.Error = err.Error()
		failed := core.Fail(core.CodeDispatchError, err.Error())
		return resultBlock(call.id, failed), execution
	}
	execution.Result = result
	return resultBlock(call.id, result), execution
}

func (e *Engine) createMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	if e.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.modelTimeout)
		defer cancel()
	}
	return e.llm.New(ctx, params)
}

func (e *Engine) fail(session *Session, code core.ErrorCode, err error, toolsUsed []ToolExecution, tokens TokenUsage) *Output {
	session.Step = StepFailed
	session.LastError = err.Error()
	e.logger.Warn("turn failed", zap.String("code", string(code)), zap.Error(err))
	return &Output{
		Type:        OutputFailed,
		FailureCode: code,
		Err:         err,
		ToolsUsed:   toolsUsed,
		TokensUsed:  tokens,
		Session:     session,
	}
}

// resultBlock serializes a ToolResult for the model. The full result
// object is sent either way; the error flag steers the model toward a
// corrective retry.
func resultBlock(toolUseID string, result *core.ToolResult) anthropic.ContentBlockParamUnion {
	b, _ := json.Marshal(result)
	return anthropic.NewToolResultBlock(toolUseID, string(b), !result.Success)
}

func observation(result *core.ToolResult, err error) string {
	if err != nil {
		return fmt.Sprintf("error: %s", err.Error())
	}
	if result == nil {
		return "no result returned"
	}
	if !result.Success {
		return fmt.Sprintf("failed (%s): %s", result.Code, result.Message)
	}
	return result.Message
}

func auditEntry(session *Session, tool core.Tool, call toolCall, result *core.ToolResult, err error, durationMs int64, start time.Time) *AuditEntry {
	entry := &AuditEntry{
		ID:             uuid.New().String(),
		SessionID:      session.ID,
		ConversationID: session.ConversationID,
		ToolName:       call.name,
		ToolInput:      call.input,
		DurationMs:     durationMs,
		Destructive:    tool.Destructive(),
		Timestamp:      start.Unix(),
	}
	if result != nil {
		entry.ToolOutput, _ = json.Marshal(result)
		if !result.Success {
			msg := result.Message
			entry.Error = &msg
		}
	}
	if err != nil {
		msg := err.Error()
		entry.Error = &msg
	}
	return entry
}

// cacheContext renders the most recent valid cached search for the
// system prompt, so the model can reference those ids directly.
func cacheContext(entry *cache.Entry) string {
	return fmt.Sprintf(`Note: You have access to previously searched images:
- Query: %q
- Results: %d images found

You can act on these images without searching again:
- delete_images: delete specific images from the search results
- tag_images: add tags to images from the search results
- filter_low_quality_images: partition the results by quality

Reference the image ids from the previous search results when performing actions.`,
		entry.Query.Text, entry.TotalCount())
}

// DefaultSystemPrompt is the default system prompt for the agent.
const DefaultSystemPrompt = `You are a gallery curator assistant.

WHAT YOU DO:
You help users search, organize, and clean up their photo gallery
through natural conversation: finding images, tagging them, removing
low-quality shots, and summarizing what the gallery contains.

GUIDELINES:
- Be conversational and helpful
- Ask clarifying questions when a request is ambiguous
- Use tools when you have enough information
- Search results are paginated; request further pages instead of
  asking the user to repeat a query
- Deleting images is permanent

REASONING PATTERN:
When using tools, include a "thought" field explaining your reasoning:
1. What you've verified (e.g., "The search returned 5 blurry images")
2. Why you're taking this action (e.g., "User asked to remove blurry shots")
3. What you expect to happen (e.g., "These 5 ids will be deleted")

For destructive operations (delete_images, tag_images), the thought
field is REQUIRED.

AVAILABLE ACTIONS:
- Search the gallery with filters and pagination
- Partition recent results by quality grade
- Delete images by id
- Tag images by id
- Summarize gallery statistics
- Find images related to a given image`
