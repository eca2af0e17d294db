package callconv

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/x86"
)

func addFunc(conv entities.Convention) Func {
	decl := entities.NewStdcall("add", entities.KindI32, entities.KindI32)
	decl.Convention = conv
	return Func{Decl: decl, Fn: func(_ context.Context, a boundary.Args) uint32 {
		return uint32(a.Int32(0) + a.Int32(1))
	}}
}

func TestCall_AddTwoThree(t *testing.T) {
	m := x86.NewMachine(0)
	before := m.Regs.ESP

	frame, err := Call(context.Background(), m, addFunc(entities.Stdcall), 2, 3)
	require.NoError(t, err)

	assert.Equal(t, uint32(5), frame.Result)
	assert.Equal(t, uint32(5), m.Regs.EAX)
	assert.Equal(t, before, m.Regs.ESP, "esp restored after stdcall return")
	assert.Equal(t, 8, frame.PoppedByCallee)
	assert.Equal(t, 0, frame.PoppedByCaller)
	assert.Equal(t, ReturnAddress, m.Regs.EIP)
	assert.True(t, frame.Balanced())
}

func TestInvoke_ConventionMatrix(t *testing.T) {
	tests := []struct {
		name      string
		caller    entities.Convention
		callee    entities.Convention
		wantDelta int32
	}{
		{"stdcall both sides", entities.Stdcall, entities.Stdcall, 0},
		{"cdecl both sides", entities.Cdecl, entities.Cdecl, 0},
		{"nobody cleans", entities.Stdcall, entities.Cdecl, -8},
		{"both clean", entities.Cdecl, entities.Stdcall, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := x86.NewMachine(0)
			frame, err := Invoke(context.Background(), m, tt.caller, addFunc(tt.callee), 2, 3)
			assert.Equal(t, uint32(5), frame.Result, "arguments are read correctly either way")

			if tt.wantDelta == 0 {
				require.NoError(t, err)
				assert.True(t, frame.Balanced())
				return
			}
			var mismatch *errors.ConventionMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.wantDelta, mismatch.Delta())
			assert.Equal(t, tt.caller, mismatch.Caller)
			assert.Equal(t, tt.callee, mismatch.Callee)
		})
	}
}

func TestInvoke_ArityMismatchDisplacesStack(t *testing.T) {
	m := x86.NewMachine(0)
	// Leave a word on the stack so the callee's extra pop has something to read.
	require.NoError(t, m.Push(0xcafef00d))

	frame, err := Invoke(context.Background(), m, entities.Stdcall, addFunc(entities.Stdcall), 2)
	var mismatch *errors.ConventionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int32(4), mismatch.Delta())
	assert.Equal(t, uint32(2+0xcafef00d), frame.Result, "callee consumed caller data")
}

func TestInvoke_StackFault(t *testing.T) {
	m := x86.NewMachine(8)
	_, err := Invoke(context.Background(), m, entities.Stdcall, addFunc(entities.Stdcall), 2, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack overflow")
}

func TestInvoke_ClobberedRegister(t *testing.T) {
	m := x86.NewMachine(0)
	bad := Func{
		Decl: entities.NewStdcall("bad"),
		Fn: func(context.Context, boundary.Args) uint32 {
			m.Regs.ESI = 0
			return 0
		},
	}
	_, err := Call(context.Background(), m, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callee-saved")
}

func TestTableCallee(t *testing.T) {
	aborter := &boundary.RecordingAborter{}
	table, err := boundary.NewExportTable(
		boundary.WithLibrary("mathlib"),
		boundary.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		boundary.WithAborter(aborter),
		boundary.WithExport(entities.NewStdcall("add", entities.KindI32, entities.KindI32),
			boundary.Func2(func(_ context.Context, a, b int32) (int32, error) { return a + b, nil })),
		boundary.WithExport(entities.NewStdcall("divide", entities.KindI32, entities.KindI32),
			boundary.Func2(func(_ context.Context, a, b int32) (int32, error) {
				if b == 0 {
					return 0, boundary.NewError(boundary.CodeFailure, "division by zero")
				}
				return a / b, nil
			})),
	)
	require.NoError(t, err)

	add, err := TableCallee(table, "add")
	require.NoError(t, err)
	m := x86.NewMachine(0)
	before := m.Regs.ESP

	frame, err := Call(context.Background(), m, add, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), frame.Result)
	assert.Equal(t, before, m.Regs.ESP)

	divide, err := TableCallee(table, "divide")
	require.NoError(t, err)
	frame, err = Call(context.Background(), m, divide, 1, 0)
	require.NoError(t, err, "a failure inside the export still returns normally")
	assert.Equal(t, int32(-1), int32(frame.Result))
	assert.Equal(t, before, m.Regs.ESP)

	_, err = TableCallee(table, "mul")
	var notFound *errors.ExportNotFoundError
	require.ErrorAs(t, err, &notFound)
}
