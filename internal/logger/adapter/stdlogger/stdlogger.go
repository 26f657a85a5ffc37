// Package stdlogger bridges printf style loggers, as used by gorm, to the global zerolog logger.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages to zerolog.
type Logger struct {
	component string
}

// New returns a Logger tagging every line with the given component, "std" by default.
func New(component ...string) *Logger {
	c := "std"
	if len(component) > 0 && component[0] != "" {
		c = component[0]
	}

	return &Logger{component: c}
}

// Printf implements the gorm logger.Writer interface.
// gorm prefixes slow queries and errors, the level is derived from that prefix.
func (l *Logger) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))

	switch {
	case strings.Contains(msg, "[error]"), strings.Contains(msg, "Error"):
		l.event(zerolog.ErrorLevel).Msg(msg)
	case strings.Contains(msg, "SLOW SQL"), strings.Contains(msg, "[warn]"):
		l.event(zerolog.WarnLevel).Msg(msg)
	default:
		l.event(zerolog.DebugLevel).Msg(msg)
	}
}

// Debugf logs on debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Infof logs on info level.
func (l *Logger) Infof(format string, args ...any) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warningf logs on warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Errorf logs on error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	return log.WithLevel(level).Str("component", l.component)
}
