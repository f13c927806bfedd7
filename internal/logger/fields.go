package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldConversation = "conversation_id"
	FieldCollaborator = "collaborator"
	FieldProvider     = "ai_provider"
	FieldModel        = "ai_model"
)

// Fields converts key/value pairs into string fields. Blank keys or values are
// skipped and a trailing key without a value is ignored.
func Fields(kv ...string) []zap.Field {
	out := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, value := strings.TrimSpace(kv[i]), strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		out = append(out, zap.String(key, value))
	}
	return out
}

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ForConversation scopes logger to one screening conversation.
func ForConversation(logger *zap.Logger, id string) *zap.Logger {
	return WithFields(logger, Fields(FieldConversation, id)...)
}

// ForCollaborator scopes logger to a collaborator backend such as "local" or "remote".
func ForCollaborator(logger *zap.Logger, name string) *zap.Logger {
	return WithFields(logger, Fields(FieldCollaborator, name)...)
}

// ForModel scopes logger to an LLM provider and model.
func ForModel(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, Fields(FieldProvider, provider, FieldModel, model)...)
}
