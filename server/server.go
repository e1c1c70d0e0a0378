// Package server exposes the agent over a WebSocket chat endpoint.
// Each connection holds its own conversation history; every inbound
// chat message runs one engine turn and streams the outcome back.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stillframe/gallery-agent/cache"
	"github.com/stillframe/gallery-agent/core"
	"github.com/stillframe/gallery-agent/engine"
	"github.com/stillframe/gallery-agent/gallery"
	"github.com/stillframe/gallery-agent/tools"
)

// Config configures the chat server.
type Config struct {
	// AnthropicKey authenticates against the Anthropic API. Required.
	AnthropicKey string

	// Model overrides the engine default.
	Model string

	// SystemPrompt overrides the engine default.
	SystemPrompt string

	// MaxTokens overrides the engine default.
	MaxTokens int64

	// MaxRounds overrides the engine default.
	MaxRounds int

	// CacheTTL overrides the result cache default (30 minutes).
	CacheTTL time.Duration

	// Gallery is the backing image store. Defaults to the sample
	// gallery when nil.
	Gallery *gallery.Store

	// Tools configures page sizes and related-image limits.
	Tools tools.Config

	// Logger receives structured logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// TurnTimeout bounds one engine turn end to end.
	TurnTimeout time.Duration
}

const defaultTurnTimeout = 2 * time.Minute

// Server is a WebSocket front end over the agent engine.
type Server struct {
	engine      *engine.Engine
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	turnTimeout time.Duration
}

// New builds a server: gallery store, result cache, tool registry, and
// engine, wired together from the config.
func New(cfg Config) (*Server, error) {
	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("server: anthropic key is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gal := cfg.Gallery
	if gal == nil {
		var err error
		gal, err = gallery.NewSeededStore()
		if err != nil {
			return nil, fmt.Errorf("server: seed gallery: %w", err)
		}
	}

	var cacheOpts []cache.Option
	if cfg.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithTTL(cfg.CacheTTL))
	}
	results := cache.NewStore(cacheOpts...)

	registry := engine.NewToolRegistry()
	registry.Register(tools.GalleryTools(gal, results, cfg.Tools)...)

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicKey))
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithAudit(engine.NewLoggerAudit(logger)),
	}
	if cfg.Model != "" {
		engineOpts = append(engineOpts, engine.WithModel(cfg.Model))
	}
	if cfg.SystemPrompt != "" {
		engineOpts = append(engineOpts, engine.WithSystemPrompt(cfg.SystemPrompt))
	}
	if cfg.MaxTokens > 0 {
		engineOpts = append(engineOpts, engine.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.MaxRounds > 0 {
		engineOpts = append(engineOpts, engine.WithMaxRounds(cfg.MaxRounds))
	}

	turnTimeout := cfg.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}

	return &Server{
		engine: engine.NewEngine(&client, registry, results, engineOpts...),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		turnTimeout: turnTimeout,
	}, nil
}

// Engine returns the underlying engine, for embedding the server in a
// larger program.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// AddTool registers one extra tool, replacing any with the same name.
func (s *Server) AddTool(t core.Tool) {
	s.engine.Registry().Register(t)
}

// AddTools registers extra tools.
func (s *Server) AddTools(ts ...core.Tool) {
	s.engine.Registry().Register(ts...)
}

// Run serves /ws and /health on addr until the listener fails.
func (s *Server) Run(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	s.logger.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// clientMessage is what the browser sends over the socket.
type clientMessage struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// serverMessage is what the server sends back.
type serverMessage struct {
	Type           string             `json:"type"`
	Text           string             `json:"text,omitempty"`
	Error          string             `json:"error,omitempty"`
	Code           core.ErrorCode     `json:"code,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	ToolsUsed      []toolUseSummary   `json:"tools_used,omitempty"`
	Usage          *engine.TokenUsage `json:"usage,omitempty"`
}

type toolUseSummary struct {
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Conversation history lives for the duration of the connection.
	var history []anthropic.MessageParam
	conversationID := ""

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "chat":
			if msg.ConversationID != "" {
				conversationID = msg.ConversationID
			}
			history = s.handleChat(r.Context(), conn, msg, conversationID, history)
		case "reset":
			history = nil
			s.send(conn, serverMessage{Type: "reset", ConversationID: conversationID})
		default:
			s.send(conn, serverMessage{
				Type:  "error",
				Error: fmt.Sprintf("unknown message type: %q", msg.Type),
				Code:  core.CodeInvalidParameter,
			})
		}
	}
}

func (s *Server) handleChat(ctx context.Context, conn *websocket.Conn, msg clientMessage, conversationID string, history []anthropic.MessageParam) []anthropic.MessageParam {
	if msg.Message == "" {
		s.send(conn, serverMessage{
			Type:  "error",
			Error: "empty message",
			Code:  core.CodeInvalidParameter,
		})
		return history
	}

	turnCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	out, err := s.engine.Run(turnCtx, &engine.Input{
		UserMessage:    msg.Message,
		ConversationID: conversationID,
		History:        history,
	})
	if err != nil {
		s.logger.Error("engine run failed", zap.Error(err))
		s.send(conn, serverMessage{Type: "error", Error: err.Error()})
		return history
	}

	summaries := make([]toolUseSummary, 0, len(out.ToolsUsed))
	for _, exec := range out.ToolsUsed {
		summary := toolUseSummary{Tool: exec.Tool, DurationMs: exec.DurationMs}
		if exec.Result != nil {
			summary.Success = exec.Result.Success
			summary.Message = exec.Result.Message
		}
		summaries = append(summaries, summary)
	}

	if out.Type == engine.OutputFailed {
		errText := ""
		if out.Err != nil {
			errText = out.Err.Error()
		}
		s.send(conn, serverMessage{
			Type:           "error",
			Error:          errText,
			Code:           out.FailureCode,
			ConversationID: conversationID,
			ToolsUsed:      summaries,
			Usage:          &out.TokensUsed,
		})
		// Failed turns do not advance the conversation.
		return history
	}

	s.send(conn, serverMessage{
		Type:           "response",
		Text:           out.Text,
		ConversationID: conversationID,
		ToolsUsed:      summaries,
		Usage:          &out.TokensUsed,
	})
	return out.Session.Messages()
}

func (s *Server) send(conn *websocket.Conn, msg serverMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("websocket write failed", zap.Error(err))
	}
}
