package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// AuditEntry records one dispatched tool call for audit purposes.
type AuditEntry struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput     json.RawMessage `json:"tool_output,omitempty"`
	Error          *string         `json:"error,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	Destructive    bool            `json:"destructive"`
	Timestamp      int64           `json:"timestamp"`
}

// AuditLogger receives an entry for every dispatched tool call.
// Implementations must not block the dispatch path.
type AuditLogger interface {
	Log(ctx context.Context, entry *AuditEntry)
}

// LoggerAudit is an AuditLogger that writes entries to a zap logger.
type LoggerAudit struct {
	logger *zap.Logger
}

// NewLoggerAudit wraps a zap logger as an AuditLogger.
func NewLoggerAudit(logger *zap.Logger) *LoggerAudit {
	return &LoggerAudit{logger: logger}
}

func (a *LoggerAudit) Log(ctx context.Context, entry *AuditEntry) {
	fields := []zap.Field{
		zap.String("audit_id", entry.ID),
		zap.String("session_id", entry.SessionID),
		zap.String("tool", entry.ToolName),
		zap.Int64("duration_ms", entry.DurationMs),
		zap.Bool("destructive", entry.Destructive),
	}
	if entry.Error != nil {
		fields = append(fields, zap.String("error", *entry.Error))
		a.logger.Warn("tool call", fields...)
		return
	}
	a.logger.Info("tool call", fields...)
}
