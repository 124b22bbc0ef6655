package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zerologAdapter backs the core Logger interface with rs/zerolog.
type zerologAdapter struct {
	z zerolog.Logger
}

// NewZerologLogger builds a logger tagged with the component name. Output
// goes to stderr so command output on stdout stays parseable: JSON lines by
// default, human-readable console format when APP_ENV is "dev". DD_LOG_LEVEL
// overrides the minimum level, which defaults to info.
func NewZerologLogger(component string) Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("DD_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}
	var out io.Writer = os.Stderr
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
	return &zerologAdapter{z: z}
}

func (l *zerologAdapter) Debugf(format string, args ...any) {
	l.z.Debug().Msgf(format, args...)
}

// Debugw attaches the fields as structured key/value pairs.
func (l *zerologAdapter) Debugw(msg string, fields map[string]any) {
	ev := l.z.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *zerologAdapter) Infof(format string, args ...any) {
	l.z.Info().Msgf(format, args...)
}

func (l *zerologAdapter) Warnf(format string, args ...any) {
	l.z.Warn().Msgf(format, args...)
}

func (l *zerologAdapter) Errorf(format string, args ...any) {
	l.z.Error().Msgf(format, args...)
}
