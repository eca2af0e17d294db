package boundary

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

func TestWithMiddleware_Order(t *testing.T) {
	var callOrder []string

	mw := func(label string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, a Args) (uint32, error) {
				callOrder = append(callOrder, label+"-before")
				res, err := next(ctx, a)
				callOrder = append(callOrder, label+"-after")
				return res, err
			}
		}
	}

	table, err := NewExportTable(
		WithMiddleware(mw("mw1"), mw("mw2")),
		WithExport(entities.NewStdcall("f"), func(context.Context, Args) (uint32, error) {
			callOrder = append(callOrder, "handler")
			return 0, nil
		}),
	)
	require.NoError(t, err)

	table.Call(context.Background(), "f")

	// FIFO order: mw1 wraps mw2 wraps handler
	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	assert.Equal(t, expected, callOrder)
}

func TestMiddleware_PanicIsContained(t *testing.T) {
	aborter := &RecordingAborter{}
	table, err := NewExportTable(
		WithLogger(discard),
		WithAborter(aborter),
		WithMiddleware(func(next Handler) Handler {
			return func(context.Context, Args) (uint32, error) {
				panic("middleware bug")
			}
		}),
		WithExport(entities.NewStdcall("f"), Func0(func(context.Context) (int32, error) { return 1, nil })),
	)
	require.NoError(t, err)

	assert.Equal(t, CodeAborted, table.CallCode(context.Background(), "f"))
	assert.True(t, aborter.Aborted())
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	table, err := NewExportTable(
		WithLogger(discard),
		WithMiddleware(LoggingMiddleware(logger)),
		WithExport(binary("add"), Func2(func(_ context.Context, a, b int32) (int32, error) { return a + b, nil })),
		WithExport(binary("fail"), Func2(func(_ context.Context, a, b int32) (int32, error) {
			return 0, errors.New("nope")
		})),
	)
	require.NoError(t, err)

	table.Call(context.Background(), "add", 1, 2)
	assert.Contains(t, buf.String(), "export called")
	assert.Contains(t, buf.String(), "export=add")
	assert.Contains(t, buf.String(), "result=3")

	buf.Reset()
	assert.Equal(t, CodeFailure, table.CallCode(context.Background(), "fail", 1, 2))
	assert.Contains(t, buf.String(), "export failed")
	assert.Contains(t, buf.String(), "code=Failure")
}

func TestLoggingMiddleware_DerivedContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	type traceKey struct{}
	trace := func(next Handler) Handler {
		return func(ctx context.Context, a Args) (uint32, error) {
			ctx, cancel := context.WithCancel(context.WithValue(ctx, traceKey{}, "t-1"))
			defer cancel()
			return next(ctx, a)
		}
	}

	var seen string
	table, err := NewExportTable(
		WithLogger(discard),
		WithMiddleware(trace, LoggingMiddleware(logger)),
		WithExport(binary("add"), func(ctx context.Context, a Args) (uint32, error) {
			decl, ok := ExportFrom(ctx)
			require.True(t, ok)
			seen = decl.Name
			return uint32(a.Int32(0) + a.Int32(1)), nil
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, uint32(5), table.Call(context.Background(), "add", 2, 3))
	assert.Equal(t, "add", seen)
	assert.Contains(t, buf.String(), "export=add")
	assert.NotContains(t, buf.String(), "export=unknown")
}

func TestValidateMiddleware(t *testing.T) {
	nonZeroDivisor := ValidateMiddleware(func(ctx context.Context, a Args) error {
		if decl, _ := ExportFrom(ctx); decl.Name == "divide" && a.Int32(1) == 0 {
			return errors.New("divisor is zero")
		}
		return nil
	})

	table, err := NewExportTable(
		WithLogger(discard),
		WithMiddleware(nonZeroDivisor),
		WithExport(binary("divide"), Func2(func(_ context.Context, a, b int32) (int32, error) { return a / b, nil })),
	)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), table.Call(context.Background(), "divide", 9, 3))
	assert.Equal(t, CodeInvalidArgument, table.CallCode(context.Background(), "divide", 9, 0))
}
