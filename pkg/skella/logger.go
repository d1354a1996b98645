package skella

import (
	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug logs at debug level.
func (l *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

// Info logs at info level.
func (l *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

// Warn logs at warn level.
func (l *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

// Error logs at error level.
func (l *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug does nothing.
func (NopLogger) Debug(string, map[string]interface{}) {}

// Info does nothing.
func (NopLogger) Info(string, map[string]interface{}) {}

// Warn does nothing.
func (NopLogger) Warn(string, map[string]interface{}) {}

// Error does nothing.
func (NopLogger) Error(string, map[string]interface{}) {}
