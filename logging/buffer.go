package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// BufferHandler is a slog.Handler that keeps records in memory as JSON
// lines. Tests use it to assert on what the engine and handles logged.
//
//	h := logging.NewBufferHandler(nil)
//	core := textpage.NewCore(textpage.WithLogger(slog.New(h)))
//	...
//	if !h.Contains("closing document with open text pages") { ... }
type BufferHandler struct {
	level  slog.Leveler
	sink   *sink
	attrs  []slog.Attr
	groups []string
}

// sink is shared by a handler and everything derived from it through
// WithAttrs and WithGroup.
type sink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

type record struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	Time    string   `json:"time"`
	Attrs   []string `json:"attrs,omitempty"`
}

// NewBufferHandler returns an empty BufferHandler. A nil opts (or nil
// opts.Level) captures every level.
func NewBufferHandler(opts *slog.HandlerOptions) *BufferHandler {
	h := &BufferHandler{sink: &sink{}}
	if opts != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	rec := record{
		Level:   r.Level.String(),
		Message: r.Message,
		Time:    r.Time.Format(time.DateTime),
	}
	for _, a := range h.attrs {
		rec.Attrs = append(rec.Attrs, h.qualify(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs = append(rec.Attrs, h.qualify(a))
		return true
	})

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buf.Write(data)
	h.sink.buf.WriteByte('\n')
	return nil
}

func (h *BufferHandler) qualify(a slog.Attr) string {
	if len(h.groups) == 0 {
		return a.String()
	}
	return strings.Join(h.groups, ".") + "." + a.String()
}

// WithAttrs implements slog.Handler. The derived handler writes to the same
// buffer.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &derived
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(append([]string(nil), h.groups...), name)
	return &derived
}

// String returns everything captured so far.
func (h *BufferHandler) String() string {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.buf.String()
}

// Contains reports whether the captured output contains s.
func (h *BufferHandler) Contains(s string) bool {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return bytes.Contains(h.sink.buf.Bytes(), []byte(s))
}

// Lines returns the number of captured records.
func (h *BufferHandler) Lines() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return bytes.Count(h.sink.buf.Bytes(), []byte{'\n'})
}

// Reset discards everything captured so far.
func (h *BufferHandler) Reset() {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buf.Reset()
}
