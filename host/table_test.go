package host_test

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
	"github.com/stdexport/stdexport-sdk/examples/mathlib"
	"github.com/stdexport/stdexport-sdk/host"
)

func newTableLibrary(t *testing.T) ports.Library {
	t.Helper()
	table, err := mathlib.NewExportTable(boundary.WithAborter(&boundary.RecordingAborter{}))
	require.NoError(t, err)
	return host.NewTableLibrary(table)
}

func TestTableLibrary(t *testing.T) {
	ctx := context.Background()
	lib := newTableLibrary(t)
	defer lib.Close(ctx)

	res, err := lib.Call(ctx, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), res)

	res, err = lib.Call(ctx, "divide", 1, 0)
	require.NoError(t, err, "a failure code is a result, not a host error")
	assert.Equal(t, int32(-1), int32(res))

	_, err = lib.Call(ctx, "sub", 1, 2)
	var nf *errors.ExportNotFoundError
	assert.True(t, stdErrors.As(err, &nf))

	_, err = lib.Call(ctx, "add", 1)
	var ar *errors.ArityError
	require.True(t, stdErrors.As(err, &ar))
	assert.Equal(t, 2, ar.Want)

	assert.Len(t, lib.Exports(), 5)
}

func TestTableLibrary_Abort(t *testing.T) {
	ctx := context.Background()
	lib := newTableLibrary(t)

	_, err := lib.Call(ctx, "invariant")
	var ae *errors.AbortError
	require.True(t, stdErrors.As(err, &ae))
	assert.Equal(t, boundary.AbortExitCode, ae.ExitCode)
	assert.Equal(t, "invariant", ae.Export)

	_, err = lib.Call(ctx, "add", 1, 2)
	assert.True(t, stdErrors.As(err, &ae), "no calls after an abort")
}

func TestNativeLibrary_Unsupported(t *testing.T) {
	if host.ErrNotSupported == nil {
		t.Fatal("ErrNotSupported must be set")
	}
	lib, err := host.NewNativeLibrary("mathlib.dll")
	if err == nil {
		// windows: the DLL is not on the search path in tests.
		_ = lib.Close(context.Background())
		t.Skip("native loading available on this platform")
	}
	if !stdErrors.Is(err, host.ErrNotSupported) {
		t.Skipf("native host available, load failed as expected: %v", err)
	}
}
