package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by the model-facing components.
const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldQuery     = "query"
	FieldCandidate = "candidate"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields turns pairs into zap string fields. Pairs with a blank key or
// value are skipped so optional metadata never shows up empty.
func StringFields(pairs ...StringField) []zap.Field {
	fields := make([]zap.Field, 0, len(pairs))
	for _, p := range pairs {
		key, value := strings.TrimSpace(p.Key), strings.TrimSpace(p.Value)
		if key != "" && value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	return fields
}

// WithFields is l.With that tolerates a nil logger.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	l = OrNop(l)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, CommonFields(provider, model)...)
}

// QueryFields carries the query, cut to limit runes.
func QueryFields(query string, limit int) []zap.Field {
	return StringFields(StringField{Key: FieldQuery, Value: TruncateForLog(query, limit)})
}
