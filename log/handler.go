// Package log provides structured logging (slog) for export libraries and
// their hosts.
//
// Libraries write one JSON object per record to standard error. A host that
// captures a guest's standard error can feed it to a Forwarder, which
// replays the records into the host's own logger.
package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// LineHandler implements slog.Handler by writing each record as a single
// LogMessageWire JSON line. Handlers derived with WithAttrs or WithGroup
// share the writer lock of their parent.
type LineHandler struct {
	opts   handlerConfig
	mu     *sync.Mutex
	attrs  []LogAttrWire
	groups []string
}

// HandlerOption configures the LineHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	w         io.Writer
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		w:     os.Stderr,
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithWriter sets the destination. Defaults to os.Stderr.
func WithWriter(w io.Writer) HandlerOption {
	return func(c *handlerConfig) {
		if w != nil {
			c.w = w
		}
	}
}

// NewHandler creates a new LineHandler with the given options.
func NewHandler(opts ...HandlerOption) *LineHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LineHandler{opts: cfg, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// WithAttrs returns a handler that includes attrs in every record.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		h2.attrs = appendAttr(h2.attrs, h2.prefix(), a)
	}
	return h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *LineHandler) clone() *LineHandler {
	return &LineHandler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  append([]LogAttrWire(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *LineHandler) prefix() string {
	p := ""
	for _, g := range h.groups {
		p += g + "."
	}
	return p
}

// Handle serializes a slog.Record as one line.
func (h *LineHandler) Handle(_ context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Attrs:     append([]LogAttrWire(nil), h.attrs...),
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = f.File + ":" + strconv.Itoa(f.Line)
	}

	prefix := h.prefix()
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = appendAttr(msg.Attrs, prefix, attr)
		return true
	})

	line, err := json.Marshal(msg)
	if err != nil {
		line, _ = json.Marshal(LogMessageWire{
			Timestamp: record.Time,
			Level:     record.Level.String(),
			Message:   record.Message,
		})
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.opts.w.Write(line)
	return err
}

// appendAttr flattens groups into dotted keys.
func appendAttr(dst []LogAttrWire, prefix string, attr slog.Attr) []LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		p := prefix
		if attr.Key != "" {
			p += attr.Key + "."
		}
		for _, a := range attr.Value.Group() {
			dst = appendAttr(dst, p, a)
		}
		return dst
	}
	attr.Key = prefix + attr.Key
	return append(dst, toLogAttrWire(attr))
}
