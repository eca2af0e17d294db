package boundary

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a Handler to add cross-cutting behaviour.
// Middleware executes in FIFO order (first registered wraps first). All
// middleware runs inside the guard, so a panicking middleware is contained
// like a panicking handler.
type Middleware func(next Handler) Handler

// LoggingMiddleware logs every call at debug level and every failure at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, args Args) (uint32, error) {
			name := "unknown"
			if decl, ok := ExportFrom(ctx); ok {
				name = decl.Name
			}
			start := time.Now()
			res, err := next(ctx, args)
			if err != nil {
				logger.WarnContext(ctx, "export failed",
					"export", name, "code", CodeOf(err).String(), "error", err.Error())
				return res, err
			}
			logger.DebugContext(ctx, "export called",
				"export", name, "args", len(args), "result", res, "duration", time.Since(start))
			return res, nil
		}
	}
}

// ValidateMiddleware rejects calls for which check returns an error. The
// error is returned with CodeInvalidArgument unless it already carries a
// code.
func ValidateMiddleware(check func(ctx context.Context, args Args) error) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args Args) (uint32, error) {
			if err := check(ctx, args); err != nil {
				if CodeOf(err) == CodeFailure {
					err = WrapError(CodeInvalidArgument, err)
				}
				return 0, err
			}
			return next(ctx, args)
		}
	}
}
