package host_test

import (
	"bytes"
	"context"
	stdErrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/buildcfg"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/examples/mathlib"
	"github.com/stdexport/stdexport-sdk/host"
)

func TestWasmLibrary_Fixture(t *testing.T) {
	ctx := context.Background()
	lib, err := host.NewWasmLibrary(ctx, fixtureWasm, host.WithLibraryName("fixture"))
	require.NoError(t, err)
	defer lib.Close(ctx)

	names := []string{}
	for _, e := range lib.Exports() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"add", "boom", "trap"}, names)

	res, err := lib.Call(ctx, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), res)

	_, err = lib.Call(ctx, "add", 2)
	var ar *errors.ArityError
	assert.True(t, stdErrors.As(err, &ar))

	_, err = lib.Call(ctx, "missing")
	var nf *errors.ExportNotFoundError
	assert.True(t, stdErrors.As(err, &nf))

	_, err = lib.Call(ctx, "boom")
	var ae *errors.AbortError
	require.True(t, stdErrors.As(err, &ae))
	assert.Equal(t, 70, ae.ExitCode)
	assert.Equal(t, "boom", ae.Export)
	assert.Same(t, ae, lib.Aborted())

	_, err = lib.Call(ctx, "add", 1, 1)
	assert.ErrorIs(t, err, ae, "the instance refuses calls after an abort")
}

func TestWasmLibrary_Trap(t *testing.T) {
	ctx := context.Background()
	lib, err := host.NewWasmLibrary(ctx, fixtureWasm)
	require.NoError(t, err)
	defer lib.Close(ctx)

	_, err = lib.Call(ctx, "trap")
	var ae *errors.AbortError
	require.True(t, stdErrors.As(err, &ae))
	assert.Equal(t, -1, ae.ExitCode)
	assert.Contains(t, ae.Reason, "unreachable")
}

func TestWasmLibrary_DeclaredExports(t *testing.T) {
	ctx := context.Background()
	decl := entities.NewStdcall("add", entities.KindI32, entities.KindI32)
	lib, err := host.NewWasmLibrary(ctx, fixtureWasm, host.WithExports(decl))
	require.NoError(t, err)
	defer lib.Close(ctx)

	assert.Equal(t, []entities.ExportedFunction{decl}, lib.Exports())
}

func TestWasmLibrary_InvalidModule(t *testing.T) {
	_, err := host.NewWasmLibrary(context.Background(), []byte("not wasm"))
	require.Error(t, err)
}

// buildMathwasm compiles cmd/mathwasm with the plan for its profile.
func buildMathwasm(t *testing.T) []byte {
	t.Helper()
	if testing.Short() {
		t.Skip("builds a wasm module")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	root, err := buildcfg.FindModuleRoot(".")
	require.NoError(t, err)
	profile, err := buildcfg.LoadProfile(filepath.Join(root, "cmd", "mathwasm", "profile.yaml"))
	require.NoError(t, err)
	profile.Output = filepath.Join(t.TempDir(), "mathlib.wasm")

	plan, err := buildcfg.Plan(profile)
	require.NoError(t, err)

	cmd := exec.Command(goBin, plan.Args...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), plan.Env...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", out)

	wasm, err := os.ReadFile(profile.Output)
	require.NoError(t, err)
	return wasm
}

func TestWasmLibrary_Mathlib(t *testing.T) {
	wasm := buildMathwasm(t)
	ctx := context.Background()

	published, err := mathlib.Manifest()
	require.NoError(t, err)

	var hostLogs bytes.Buffer
	guestLogger := slog.New(slog.NewTextHandler(&hostLogs, nil))
	lib, err := host.NewWasmLibrary(ctx, wasm,
		host.WithLibraryName(mathlib.Library),
		host.WithExports(published.Exports...),
		host.WithGuestLogger(guestLogger),
	)
	require.NoError(t, err)
	defer lib.Close(ctx)

	call := func(name string, args ...uint32) int32 {
		t.Helper()
		res, err := lib.Call(ctx, name, args...)
		require.NoError(t, err)
		return int32(res)
	}

	assert.Equal(t, int32(5), call("add", 2, 3))
	assert.Equal(t, int32(-1), call("divide", 1, 0))
	assert.Equal(t, int32(boundary.CodeOverflow), call("checked_add", 0x7fffffff, 1))
	assert.Equal(t, int32(9), call("vtab_entry", 1))
	assert.Equal(t, int32(boundary.CodeInvalidArgument), call("vtab_entry", 3))

	_, err = lib.Call(ctx, "invariant")
	var ae *errors.AbortError
	require.True(t, stdErrors.As(err, &ae))
	assert.Equal(t, boundary.AbortExitCode, ae.ExitCode)
	assert.Contains(t, hostLogs.String(), "invariant violated")
	assert.Contains(t, hostLogs.String(), "library=mathlib")

	_, err = lib.Call(ctx, "add", 2, 3)
	assert.Error(t, err)
}
