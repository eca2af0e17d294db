package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Forwarder is an io.Writer that replays JSON log lines, as written by
// LineHandler, into a logger. Lines that are not log records are logged
// verbatim at error level, since a library only writes raw text to standard
// error when it is aborting.
type Forwarder struct {
	logger *slog.Logger
	attrs  []any

	mu  sync.Mutex
	buf []byte
}

// NewForwarder creates a forwarder. attrs are added to every replayed
// record.
func NewForwarder(logger *slog.Logger, attrs ...any) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{logger: logger, attrs: attrs}
}

// Write buffers p and replays every complete line.
func (f *Forwarder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf, p...)
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		f.replay(f.buf[:i])
		f.buf = f.buf[i+1:]
	}
	return len(p), nil
}

// Flush replays a trailing partial line.
func (f *Forwarder) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) > 0 {
		f.replay(f.buf)
		f.buf = nil
	}
}

func (f *Forwarder) replay(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	ctx := context.Background()

	var msg LogMessageWire
	if line[0] != '{' || json.Unmarshal(line, &msg) != nil || msg.Level == "" {
		f.logger.Log(ctx, slog.LevelError, string(line), f.attrs...)
		return
	}

	level, err := parseLevel(msg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	args := make([]any, 0, len(f.attrs)+len(msg.Attrs))
	args = append(args, f.attrs...)
	for _, a := range msg.Attrs {
		args = append(args, toSlogAttr(a))
	}
	f.logger.Log(ctx, level, msg.Message, args...)
}
