package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerNilIsSilent(t *testing.T) {
	var l *Logger

	l.Debugf("ignored")
	l.Infof("ignored %d", 1)
	l.Warningf("ignored")
	l.Errorf("ignored: %v", "err")
	assert.Nil(t, l.With("k", "v"))
}

func TestLoggerZeroValueIsSilent(t *testing.T) {
	l := &Logger{}

	l.Errorf("ignored")
	assert.Same(t, l, l.With("k", "v"))
}

func TestLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Errorf("failed after %d tries", 3)

	out := buf.String()
	assert.Contains(t, out, "failed after 3 tries")
	assert.Contains(t, out, "level=ERROR")
}

func TestLoggerHandlerGatesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromSlog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	l.Debugf("too quiet to hear")
	l.Infof("loud enough")

	out := buf.String()
	assert.NotContains(t, out, "too quiet to hear")
	assert.Contains(t, out, "loud enough")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.With("component", "reporter").Infof("started")

	assert.Contains(t, buf.String(), "component=reporter")
}

func TestLevelSetByName(t *testing.T) {
	t.Cleanup(func() { Level.Set(slog.LevelInfo) })

	Level.SetByName("debug")
	assert.True(t, Level.Enabled(slog.LevelDebug))

	Level.SetByName("error")
	assert.False(t, Level.Enabled(slog.LevelWarn))
	assert.True(t, Level.Enabled(slog.LevelError))

	Level.SetByName("no-such-level")
	assert.True(t, Level.Enabled(slog.LevelError), "unknown names leave the level untouched")
}
