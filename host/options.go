package host

import (
	stdErrors "errors"
	"io"
	"log/slog"
	"os"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// ErrNotSupported is returned by hosts that cannot run on this platform.
var ErrNotSupported = stdErrors.New("host: not supported on this platform")

// hostConfig holds configuration shared by the hosts.
type hostConfig struct {
	logger  *slog.Logger
	stderr  io.Writer
	stdout  io.Writer
	exports []entities.ExportedFunction
	library string
	// guestLogger receives the guest's log records when set.
	guestLogger *slog.Logger
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		logger: slog.Default(),
		stderr: os.Stderr,
		stdout: io.Discard,
	}
}

// Option configures a host.
type Option func(*hostConfig)

// WithLogger sets the logger for load and abort events.
func WithLogger(l *slog.Logger) Option {
	return func(c *hostConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStderr sets where a guest's standard error goes. Abort diagnostics are
// written there.
func WithStderr(w io.Writer) Option {
	return func(c *hostConfig) {
		if w != nil {
			c.stderr = w
		}
	}
}

// WithStdout sets where a guest's standard output goes. Discarded by default.
func WithStdout(w io.Writer) Option {
	return func(c *hostConfig) {
		if w != nil {
			c.stdout = w
		}
	}
}

// WithExports declares the exports of the library. Hosts that cannot
// discover argument counts on their own need it for arity checks.
func WithExports(exports ...entities.ExportedFunction) Option {
	return func(c *hostConfig) {
		c.exports = append(c.exports, exports...)
	}
}

// WithLibraryName sets the name used in errors and logs.
func WithLibraryName(name string) Option {
	return func(c *hostConfig) {
		c.library = name
	}
}

// declarations indexes declared exports by name.
func (c *hostConfig) declarations() map[string]entities.ExportedFunction {
	out := make(map[string]entities.ExportedFunction, len(c.exports))
	for _, e := range c.exports {
		out[e.Name] = e
	}
	return out
}

// WithGuestLogger replays the guest's JSON log lines from standard error
// into logger, tagged with the library name. It replaces WithStderr.
func WithGuestLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		c.guestLogger = logger
	}
}
