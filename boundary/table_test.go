package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	domainerrors "github.com/stdexport/stdexport-sdk/domain/errors"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func binary(name string) entities.ExportedFunction {
	return entities.NewStdcall(name, entities.KindI32, entities.KindI32)
}

func newTestTable(t *testing.T, opts ...TableOption) (*ExportTable, *RecordingAborter) {
	t.Helper()
	aborter := &RecordingAborter{}
	base := []TableOption{
		WithLibrary("testlib"),
		WithLogger(discard),
		WithAborter(aborter),
		WithExport(binary("add"), Func2(func(_ context.Context, a, b int32) (int32, error) {
			return a + b, nil
		})),
		WithExport(binary("divide"), Func2(func(_ context.Context, a, b int32) (int32, error) {
			if b == 0 {
				return 0, errors.New("division by zero")
			}
			return a / b, nil
		})),
		WithExport(binary("checked_add"), Func2(func(_ context.Context, a, b int32) (int32, error) {
			sum := int64(a) + int64(b)
			if sum > math.MaxInt32 || sum < math.MinInt32 {
				return 0, ErrOverflow
			}
			return int32(sum), nil
		})),
		WithExport(entities.NewStdcall("invariant", entities.KindI32), Func1(func(_ context.Context, v int32) (int32, error) {
			if v != 0 {
				Fatal("invariant violated")
			}
			return 0, nil
		})),
	}
	table, err := NewExportTable(append(base, opts...)...)
	require.NoError(t, err)
	return table, aborter
}

func args(vs ...int32) []uint32 {
	out := make([]uint32, len(vs))
	for i, v := range vs {
		out[i] = uint32(v)
	}
	return out
}

func TestNewExportTable_Empty(t *testing.T) {
	table, err := NewExportTable()
	require.NoError(t, err)
	assert.Empty(t, table.Names())
	assert.Equal(t, entities.Stdcall, table.Convention())
}

func TestNewExportTable_Errors(t *testing.T) {
	noop := Func0(func(context.Context) (int32, error) { return 0, nil })

	tests := []struct {
		name string
		opts []TableOption
		want string
	}{
		{
			name: "duplicate",
			opts: []TableOption{WithExport(entities.NewStdcall("f"), noop), WithExport(entities.NewStdcall("f"), noop)},
			want: "duplicate export name",
		},
		{
			name: "empty name",
			opts: []TableOption{WithExport(entities.NewStdcall(""), noop)},
			want: "cannot be empty",
		},
		{
			name: "nil handler",
			opts: []TableOption{WithExport(entities.NewStdcall("f"), nil)},
			want: "has no handler",
		},
		{
			name: "bad kind",
			opts: []TableOption{WithExport(entities.NewStdcall("f", entities.ValueKind("f64")), noop)},
			want: "not a 32-bit kind",
		},
		{
			name: "mixed convention",
			opts: []TableOption{WithExport(entities.ExportedFunction{Name: "f", Convention: entities.Cdecl}, noop)},
			want: "library convention is stdcall",
		},
		{
			name: "unknown convention",
			opts: []TableOption{WithConvention("fastcall")},
			want: "unknown calling convention",
		},
		{
			name: "pinned ordinal clash",
			opts: []TableOption{
				WithExport(entities.ExportedFunction{Name: "a", Ordinal: 3}, noop),
				WithExport(entities.ExportedFunction{Name: "b", Ordinal: 3}, noop),
			},
			want: "ordinal 3 pinned",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExportTable(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewExportTable_RejectsUnwindStrategy(t *testing.T) {
	prev := linkedStrategy
	linkedStrategy = string(entities.StrategyUnwind)
	defer func() { linkedStrategy = prev }()

	_, err := NewExportTable()
	require.Error(t, err)

	var conflict *domainerrors.StrategyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, entities.StrategyUnwind, conflict.Requested)
	assert.Equal(t, entities.StrategyAbort, conflict.Required)
}

func TestExportTable_Ordinals(t *testing.T) {
	noop := Func0(func(context.Context) (int32, error) { return 0, nil })
	table, err := NewExportTable(
		WithExport(entities.NewStdcall("zeta"), noop),
		WithExport(entities.ExportedFunction{Name: "beta", Ordinal: 1}, noop),
		WithExport(entities.NewStdcall("alpha"), noop),
	)
	require.NoError(t, err)

	ordinals := map[string]uint16{}
	for _, e := range table.Exports() {
		ordinals[e.Name] = e.Ordinal
	}
	assert.Equal(t, map[string]uint16{"beta": 1, "alpha": 2, "zeta": 3}, ordinals)
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, table.Names())
}

func TestExportTable_Call(t *testing.T) {
	table, aborter := newTestTable(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		assert.Equal(t, uint32(5), table.Call(ctx, "add", args(2, 3)...))
		assert.Equal(t, int32(-7), int32(table.Call(ctx, "add", args(-10, 3)...)))
	})

	t.Run("recoverable error returns sentinel", func(t *testing.T) {
		assert.Equal(t, CodeFailure, table.CallCode(ctx, "divide", args(10, 0)...))
		assert.Equal(t, int32(-1), int32(table.Call(ctx, "divide", args(10, 0)...)))
	})

	t.Run("coded error", func(t *testing.T) {
		assert.Equal(t, CodeOverflow, table.CallCode(ctx, "checked_add", args(math.MaxInt32, 1)...))
	})

	t.Run("unknown export", func(t *testing.T) {
		assert.Equal(t, CodeUnknownExport, table.CallCode(ctx, "mul", args(1, 2)...))
	})

	t.Run("arity mismatch", func(t *testing.T) {
		assert.Equal(t, CodeArity, table.CallCode(ctx, "add", args(1)...))
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising a nil context from a foreign caller
		assert.Equal(t, uint32(3), table.Call(nil, "add", args(1, 2)...))
	})

	assert.False(t, aborter.Aborted())
}

func TestExportTable_Throw(t *testing.T) {
	deep := func(v int32) int32 {
		if v < 0 {
			Throw(NewError(CodeInvalidArgument, "negative input %d", v))
		}
		return v * 2
	}
	table, aborter := newTestTable(t,
		WithExport(entities.NewStdcall("double", entities.KindI32), Func1(func(_ context.Context, v int32) (int32, error) {
			return deep(v), nil
		})),
		WithExport(entities.NewStdcall("check"), Func0(func(context.Context) (int32, error) {
			Check(fmt.Errorf("wrapped: %w", errors.New("plain")))
			return 0, nil
		})),
	)

	ctx := context.Background()
	assert.Equal(t, uint32(8), table.Call(ctx, "double", args(4)...))
	assert.Equal(t, CodeInvalidArgument, table.CallCode(ctx, "double", args(-1)...))
	assert.Equal(t, CodeFailure, table.CallCode(ctx, "check"))
	assert.False(t, aborter.Aborted(), "Throw is recoverable")
}

func TestExportTable_Abort(t *testing.T) {
	tests := []struct {
		name     string
		handler  Handler
		wantCode string
		wantMsg  string
	}{
		{
			name:     "fatal",
			handler:  Func0(func(context.Context) (int32, error) { Fatal("ledger corrupted"); return 0, nil }),
			wantCode: "fatal",
			wantMsg:  "ledger corrupted",
		},
		{
			name: "fatal with cause",
			handler: Func0(func(context.Context) (int32, error) {
				FatalErr("ledger corrupted", errors.New("bad page"))
				return 0, nil
			}),
			wantCode: "fatal",
			wantMsg:  "ledger corrupted: bad page",
		},
		{
			name: "runtime error",
			handler: Func0(func(context.Context) (int32, error) {
				var m map[string]int
				m["x"] = 1
				return 0, nil
			}),
			wantCode: "runtime",
			wantMsg:  "assignment to entry in nil map",
		},
		{
			name:     "panic with value",
			handler:  Func0(func(context.Context) (int32, error) { panic("boom") }),
			wantCode: "panic",
			wantMsg:  "boom",
		},
		{
			name:     "panic with error",
			handler:  Func0(func(context.Context) (int32, error) { panic(errors.New("bad state")) }),
			wantCode: "panic",
			wantMsg:  "bad state",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aborter := &RecordingAborter{}
			table, err := NewExportTable(
				WithLibrary("testlib"),
				WithLogger(discard),
				WithAborter(aborter),
				WithExport(entities.NewStdcall("f"), tt.handler),
				WithExport(entities.NewStdcall("ok"), Func0(func(context.Context) (int32, error) { return 1, nil })),
			)
			require.NoError(t, err)

			assert.NotPanics(t, func() {
				assert.Equal(t, CodeAborted, table.CallCode(context.Background(), "f"))
			})

			aborts := aborter.Aborts()
			require.Len(t, aborts, 1)
			assert.Equal(t, "abort", aborts[0].Type)
			assert.Equal(t, tt.wantCode, aborts[0].Code)
			assert.Contains(t, aborts[0].Message, tt.wantMsg)
			assert.True(t, aborts[0].Fatal)
			assert.NotEmpty(t, aborts[0].Stack)
			assert.Equal(t, "f", aborts[0].Details["export"])

			assert.True(t, table.Aborted())
			assert.Equal(t, CodeAborted, table.CallCode(context.Background(), "ok"), "no calls after abort")
		})
	}
}

func TestExportTable_InvariantAborts(t *testing.T) {
	table, aborter := newTestTable(t)
	assert.Equal(t, uint32(0), table.Call(context.Background(), "invariant", 0))
	assert.False(t, aborter.Aborted())

	table.Call(context.Background(), "invariant", 1)
	assert.True(t, aborter.Aborted())
}

func TestExportTable_ConcurrentCalls(t *testing.T) {
	table, _ := newTestTable(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int32) {
			defer wg.Done()
			for j := int32(0); j < 100; j++ {
				assert.Equal(t, uint32(i+j), table.Call(context.Background(), "add", args(i, j)...))
			}
		}(int32(i))
	}
	wg.Wait()
}

func TestExportTable_Manifest(t *testing.T) {
	table, _ := newTestTable(t)

	m := table.Manifest()
	assert.Equal(t, "testlib", m.Library)
	assert.Equal(t, entities.Stdcall, m.Convention)
	assert.Empty(t, m.Invariants())

	decl, ok := table.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, "_add@8", decl.DecoratedName())
	assert.Equal(t, entities.KindI32, decl.Result)
	assert.True(t, table.Has("divide"))
	assert.False(t, table.Has("mul"))
}

func TestExportTable_CallContext(t *testing.T) {
	var seen entities.ExportedFunction
	table, err := NewExportTable(
		WithExport(entities.NewStdcall("handle", entities.KindPtr), func(ctx context.Context, a Args) (uint32, error) {
			seen, _ = ExportFrom(ctx)
			return a.Uint32(0), nil
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, uint32(0xdeadbeef), table.Call(context.Background(), "handle", 0xdeadbeef))
	assert.Equal(t, "handle", seen.Name)
	assert.Equal(t, uint16(1), seen.Ordinal)

	_, ok := ExportFrom(context.Background())
	assert.False(t, ok)
}
