package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/gallery-agent/cache"
	"github.com/stillframe/gallery-agent/core"
)

// fakeModel returns scripted responses in order, repeating the last
// one once the script runs out. A non-nil err fails every call.
type fakeModel struct {
	script []*anthropic.Message
	err    error
	calls  []anthropic.MessageNewParams
}

func (f *fakeModel) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return resp, nil
}

func textMessage(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
		Usage: anthropic.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func toolUseMessage(id, name, input string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(input)},
		},
		Usage: anthropic.Usage{InputTokens: 20, OutputTokens: 8},
	}
}

func newTestEngine(fake *fakeModel, tools ...core.Tool) (*Engine, *cache.Store) {
	registry := NewToolRegistry()
	registry.Register(tools...)
	results := cache.NewStore()
	return newEngine(fake, registry, results), results
}

func TestRunTextOnlyCompletes(t *testing.T) {
	fake := &fakeModel{script: []*anthropic.Message{textMessage("Your gallery has 10 images.")}}
	eng, _ := newTestEngine(fake)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "how many images do I have?"})
	require.NoError(t, err)

	assert.Equal(t, OutputComplete, out.Type)
	assert.Equal(t, "Your gallery has 10 images.", out.Text)
	assert.Empty(t, out.ToolsUsed)
	assert.Equal(t, StepComplete, out.Session.Step)
	assert.Equal(t, 1, out.Session.Rounds)
	assert.Equal(t, 10, out.TokensUsed.InputTokens)
	assert.Equal(t, 5, out.TokensUsed.OutputTokens)
}

func TestRunDispatchesToolThenCompletes(t *testing.T) {
	tool := &stubTool{name: "analyze_gallery", result: core.OK("Analyzed 10 images.", nil)}
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "analyze_gallery", `{}`),
		textMessage("You have 10 images."),
	}}
	eng, _ := newTestEngine(fake, tool)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "analyze my gallery"})
	require.NoError(t, err)

	assert.Equal(t, OutputComplete, out.Type)
	assert.Equal(t, 1, tool.calls)
	require.Len(t, out.ToolsUsed, 1)
	assert.Equal(t, "analyze_gallery", out.ToolsUsed[0].Tool)
	require.NotNil(t, out.ToolsUsed[0].Result)
	assert.True(t, out.ToolsUsed[0].Result.Success)
	assert.Len(t, fake.calls, 2)
	assert.Equal(t, 2, out.Session.Rounds)
	assert.Equal(t, 30, out.TokensUsed.InputTokens)

	require.Len(t, out.Session.Traces, 1)
	assert.Equal(t, "analyze_gallery", out.Session.Traces[0].Action)
	assert.True(t, out.Session.Traces[0].Success)
}

func TestRunUnknownToolFedBack(t *testing.T) {
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "drop_database", `{}`),
		textMessage("That tool doesn't exist; here's what I can do instead."),
	}}
	eng, _ := newTestEngine(fake)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "drop the database"})
	require.NoError(t, err)

	// The unknown call becomes a structured failure fed back to the
	// model, never a silent no-op and never a turn abort.
	assert.Equal(t, OutputComplete, out.Type)
	require.Len(t, out.ToolsUsed, 1)
	require.NotNil(t, out.ToolsUsed[0].Result)
	assert.False(t, out.ToolsUsed[0].Result.Success)
	assert.Equal(t, core.CodeDispatchError, out.ToolsUsed[0].Result.Code)
	assert.Contains(t, out.ToolsUsed[0].Result.Message, "drop_database")
}

func TestRunDestructiveWithoutThoughtRejected(t *testing.T) {
	tool := &stubTool{name: "delete_images", destructive: true}
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "delete_images", `{"image_ids":["img_001"]}`),
		textMessage("I need to explain my reasoning first."),
	}}
	eng, _ := newTestEngine(fake, tool)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "delete img_001"})
	require.NoError(t, err)

	assert.Zero(t, tool.calls, "destructive call without thought must not execute")
	require.Len(t, out.ToolsUsed, 1)
	require.NotNil(t, out.ToolsUsed[0].Result)
	assert.Equal(t, core.CodeInvalidParameter, out.ToolsUsed[0].Result.Code)
}

func TestRunDestructiveWithThoughtExecutes(t *testing.T) {
	tool := &stubTool{name: "delete_images", destructive: true, result: core.OK("Deleted 1 of 1 images.", nil)}
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "delete_images", `{"thought":"user asked to remove img_001","image_ids":["img_001"]}`),
		textMessage("Done."),
	}}
	eng, _ := newTestEngine(fake, tool)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "delete img_001"})
	require.NoError(t, err)

	assert.Equal(t, 1, tool.calls)
	require.Len(t, out.Session.Traces, 1)
	assert.Equal(t, "user asked to remove img_001", out.Session.Traces[0].Thought)
}

func TestRunRoundCapFailsTurn(t *testing.T) {
	tool := &stubTool{name: "analyze_gallery", result: core.OK("ok", nil)}
	// The script never produces a final answer.
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "analyze_gallery", `{}`),
	}}
	eng, _ := newTestEngine(fake, tool)
	eng.maxRounds = 3

	out, err := eng.Run(context.Background(), &Input{UserMessage: "loop forever"})
	require.NoError(t, err)

	assert.Equal(t, OutputFailed, out.Type)
	assert.Equal(t, core.CodeRoundLimitExceeded, out.FailureCode)
	require.Error(t, out.Err)
	assert.Equal(t, StepFailed, out.Session.Step)
	assert.Equal(t, 3, tool.calls)
	assert.NotEmpty(t, out.Session.LastError)
}

func TestRunCancelledContextFailsTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeModel{script: []*anthropic.Message{textMessage("never reached")}}
	eng, _ := newTestEngine(fake)

	out, err := eng.Run(ctx, &Input{UserMessage: "hello"})
	require.NoError(t, err)

	assert.Equal(t, OutputFailed, out.Type)
	assert.Equal(t, core.CodeOrchestrationTimeout, out.FailureCode)
	assert.Empty(t, fake.calls)
}

func TestRunModelErrorFailsTurn(t *testing.T) {
	fake := &fakeModel{err: assert.AnError}
	eng, _ := newTestEngine(fake)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "hello"})
	require.NoError(t, err)

	assert.Equal(t, OutputFailed, out.Type)
	assert.Equal(t, core.CodeModelError, out.FailureCode)
	require.Error(t, out.Err)
	assert.ErrorIs(t, out.Err, assert.AnError)
	assert.Equal(t, StepFailed, out.Session.Step)
}

func TestRunModelTimeoutCode(t *testing.T) {
	fake := &fakeModel{err: context.DeadlineExceeded}
	eng, _ := newTestEngine(fake)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "hello"})
	require.NoError(t, err)

	assert.Equal(t, OutputFailed, out.Type)
	assert.Equal(t, core.CodeOrchestrationTimeout, out.FailureCode)
}

func TestRunToolErrorFedBack(t *testing.T) {
	tool := &stubTool{name: "analyze_gallery", err: assert.AnError}
	fake := &fakeModel{script: []*anthropic.Message{
		toolUseMessage("tu_1", "analyze_gallery", `{}`),
		textMessage("Something went wrong, sorry."),
	}}
	eng, _ := newTestEngine(fake, tool)

	out, err := eng.Run(context.Background(), &Input{UserMessage: "analyze"})
	require.NoError(t, err)

	assert.Equal(t, OutputComplete, out.Type)
	require.Len(t, out.ToolsUsed, 1)
	assert.NotEmpty(t, out.ToolsUsed[0].Error)
	require.Len(t, out.Session.Traces, 1)
	assert.False(t, out.Session.Traces[0].Success)
}

func TestRunInjectsCacheContext(t *testing.T) {
	fake := &fakeModel{script: []*anthropic.Message{textMessage("You recently searched for sunsets.")}}
	eng, results := newTestEngine(fake)

	results.Put(core.SearchQuery{Text: "sunset"}, []core.Image{
		{ID: "img_001", Filename: "beach_sunset.jpg"},
	})

	_, err := eng.Run(context.Background(), &Input{UserMessage: "what did I search for?"})
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	require.NotEmpty(t, fake.calls[0].System)
	prompt := fake.calls[0].System[0].Text
	assert.Contains(t, prompt, "previously searched images")
	assert.Contains(t, prompt, `"sunset"`)
	assert.Contains(t, prompt, "1 images found")
}

func TestRunFiltersAvailableTools(t *testing.T) {
	fake := &fakeModel{script: []*anthropic.Message{textMessage("ok")}}
	eng, _ := newTestEngine(fake,
		&stubTool{name: "search_images"},
		&stubTool{name: "delete_images", destructive: true},
	)

	_, err := eng.Run(context.Background(), &Input{
		UserMessage:    "search only",
		AvailableTools: []string{"search_images"},
	})
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	require.Len(t, fake.calls[0].Tools, 1)
	assert.Equal(t, "search_images", fake.calls[0].Tools[0].OfTool.Name)
}

func TestRunCarriesHistory(t *testing.T) {
	fake := &fakeModel{script: []*anthropic.Message{textMessage("as I said, 10 images")}}
	eng, _ := newTestEngine(fake)

	history := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("how many images?")),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock("10 images")),
	}

	out, err := eng.Run(context.Background(), &Input{
		UserMessage: "say that again",
		History:     history,
	})
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Len(t, fake.calls[0].Messages, 3)
	// The session log now carries history, the new question, and the answer.
	assert.Len(t, out.Session.Messages(), 4)
}
