package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mathlibDLL(t *testing.T, dir string, exports ...testutil.FixtureExport) string {
	t.Helper()
	if len(exports) == 0 {
		exports = []testutil.FixtureExport{
			{Name: "add", Ordinal: 1},
			{Name: "checked_add", Ordinal: 2},
			{Name: "divide", Ordinal: 3},
			{Name: "invariant", Ordinal: 4},
			{Name: "vtab_entry", Ordinal: 5},
		}
	}
	return testutil.WriteDLL(t, dir, testutil.DLLFixture{
		Name:    "mathlib.dll",
		Exports: exports,
		Imports: map[string][]string{"KERNEL32.dll": {"ExitProcess"}},
	})
}

func repoFile(parts ...string) string {
	return filepath.Join(append([]string{"..", ".."}, parts...)...)
}

func TestSchemaCmd(t *testing.T) {
	out, err := run(t, "schema", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, `"strategy"`)

	out, err = run(t, "schema", "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, `"exports"`)

	_, err = run(t, "schema", "linker")
	assert.Error(t, err)
}

func TestInspectCmd(t *testing.T) {
	dll := mathlibDLL(t, t.TempDir())

	out, err := run(t, "inspect", dll)
	require.NoError(t, err)
	assert.Contains(t, out, "vtab_entry")
	assert.Contains(t, out, "machine=0x014c")
	assert.Contains(t, out, ": OK")

	out, err = run(t, "inspect", "--json", dll)
	require.NoError(t, err)
	assert.Contains(t, out, `"Exports"`)
}

func TestInspectCmd_UnwindMetadata(t *testing.T) {
	dll := testutil.WriteDLL(t, t.TempDir(), testutil.DLLFixture{
		Name:    "leaky.dll",
		Exports: []testutil.FixtureExport{{Name: "add"}},
		Imports: map[string][]string{"libgcc_s_dw2-1.dll": {"_Unwind_Resume"}},
	})
	out, err := run(t, "inspect", dll)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "FAIL")
}

func TestVerifyCmd(t *testing.T) {
	dir := t.TempDir()
	manifestPath := repoFile("examples", "mathlib", "mathlib.yaml")

	out, err := run(t, "verify", mathlibDLL(t, dir), "--manifest", manifestPath, "--published", manifestPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "OK")

	short := mathlibDLL(t, t.TempDir(), testutil.FixtureExport{Name: "add", Ordinal: 1})
	out, err = run(t, "verify", short, "--manifest", manifestPath)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "export-missing")

	_, err = run(t, "verify", short)
	assert.Error(t, err, "--manifest is required")
}

func TestCompareCmd(t *testing.T) {
	a := mathlibDLL(t, t.TempDir())
	b := mathlibDLL(t, t.TempDir())

	out, err := run(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "bytes differ: false")

	c := mathlibDLL(t, t.TempDir(), testutil.FixtureExport{Name: "add", Ordinal: 7})
	out, err = run(t, "compare", a, c)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "ordinal-changed")
}

func TestPlanCmd(t *testing.T) {
	t.Setenv("GOWORK", "off")
	out, err := run(t, "plan", "--profile", repoFile("cmd", "mathdll", "profile.yaml"),
		"--with-linker", "clang", "--with-linker-flag", "-fuse-ld=lld")
	require.NoError(t, err)
	assert.Contains(t, out, "GOOS=windows")
	assert.Contains(t, out, "-buildmode=c-shared")
	assert.Contains(t, out, "linkedStrategy=abort")
	assert.Contains(t, out, "# + -ldflags:-extld=clang")
}

func TestPlanCmd_RejectsUnwind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"library: a\npackage: ./a\ntarget: {goos: windows, goarch: \"386\"}\nstrategy: unwind\n"), 0o600))

	_, err := run(t, "plan", "--profile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unwind")
}
