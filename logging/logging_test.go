package logging_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/textpage/logging"
)

func TestLoggerDefaultsToDiscard(t *testing.T) {
	logging.SetLogger(nil)
	l := logging.Logger()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestSetLogger(t *testing.T) {
	h := logging.NewBufferHandler(nil)
	logging.SetLogger(slog.New(h))
	t.Cleanup(func() { logging.SetLogger(nil) })

	logging.Logger().Info("opened document", slog.Int("pages", 3))

	assert.True(t, h.Contains("opened document"))
	assert.True(t, h.Contains("pages=3"))
	assert.Equal(t, 1, h.Lines())
}

func TestOr(t *testing.T) {
	h := logging.NewBufferHandler(nil)
	own := slog.New(h)
	assert.Same(t, own, logging.Or(own))
	assert.NotNil(t, logging.Or(nil))
}

func TestBufferHandlerLevels(t *testing.T) {
	tests := []struct {
		name  string
		opts  *slog.HandlerOptions
		level slog.Level
		want  bool
	}{
		{"nil options keeps debug", nil, slog.LevelDebug, true},
		{"warn filters info", &slog.HandlerOptions{Level: slog.LevelWarn}, slog.LevelInfo, false},
		{"warn keeps warn", &slog.HandlerOptions{Level: slog.LevelWarn}, slog.LevelWarn, true},
		{"warn keeps error", &slog.HandlerOptions{Level: slog.LevelWarn}, slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := logging.NewBufferHandler(tt.opts)
			assert.Equal(t, tt.want, h.Enabled(context.Background(), tt.level))
		})
	}
}

func TestBufferHandlerDerivedHandlersShareOutput(t *testing.T) {
	h := logging.NewBufferHandler(nil)
	l := slog.New(h).With(slog.String("handle", "doc-1")).WithGroup("page")

	l.Debug("closed", slog.Int("index", 2))

	assert.True(t, h.Contains("handle=doc-1"))
	assert.True(t, h.Contains("page.index=2"))

	h.Reset()
	assert.Equal(t, "", h.String())
	assert.Equal(t, 0, h.Lines())
}
