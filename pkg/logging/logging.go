// Package logging provides the leveled printf-style logger the rest
// of this module reports through. It is a thin wrapper over log/slog:
// colorized terminal output via tint when stderr is a tty, plain text
// otherwise. Both a nil *Logger and the zero value are usable and
// silent, so callers can pass the logger through unconditionally.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/rocicorp/datadog-util/domain"
)

// Logger satisfies the domain.Logger capability.
var _ domain.Logger = (*Logger)(nil)

type Logger struct {
	sl *slog.Logger
}

// New creates a logger writing to stderr, gated by the package-level
// Level.
func New() *Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return &Logger{sl: slog.New(newTerminalHandler())}
	}
	return &Logger{sl: slog.New(newTextHandler())}
}

// NewFromSlog wraps an existing slog logger so applications can route
// this module's output into their own logging setup. Level gating is
// then up to the wrapped handler.
func NewFromSlog(sl *slog.Logger) *Logger {
	return &Logger{sl: sl}
}

// With returns a logger with additional attributes attached to every
// record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.sl == nil {
		return l
	}
	return &Logger{sl: l.sl.With(args...)}
}

func (l *Logger) Debugf(format string, a ...any) { l.log(slog.LevelDebug, format, a...) }

func (l *Logger) Infof(format string, a ...any) { l.log(slog.LevelInfo, format, a...) }

func (l *Logger) Warningf(format string, a ...any) { l.log(slog.LevelWarn, format, a...) }

func (l *Logger) Errorf(format string, a ...any) { l.log(slog.LevelError, format, a...) }

func (l *Logger) log(level slog.Level, format string, a ...any) {
	if l == nil || l.sl == nil {
		return
	}
	l.sl.Log(context.Background(), level, fmt.Sprintf(format, a...))
}
