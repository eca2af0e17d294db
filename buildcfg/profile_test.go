package buildcfg

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
)

const mathdllProfile = `
library: mathlib
package: ./cmd/mathdll
target:
  goos: windows
  goarch: "386"
linker:
  cc: {{default "i686-w64-mingw32-gcc" (env "STDEXPORT_TEST_CC")}}
  flags: [-static]
  def_file: cmd/mathdll/mathlib.def
`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(mathdllProfile))
	require.NoError(t, err)

	assert.Equal(t, "mathlib", p.Library)
	assert.Equal(t, entities.StrategyAbort, p.Strategy)
	assert.Equal(t, "mathlib.dll", p.Output)
	assert.Equal(t, p.Linker.CC, p.Linker.Extld)
	assert.True(t, p.IsIsolated())
}

func TestParseProfile_Wasm(t *testing.T) {
	p, err := ParseProfile([]byte(`
library: {{.vars.name}}
package: ./cmd/mathwasm
target: {goos: wasip1, goarch: wasm}
`), WithVars(map[string]interface{}{"name": "mathlib"}))
	require.NoError(t, err)
	assert.Equal(t, "mathlib.wasm", p.Output)
	assert.Empty(t, p.Linker.CC)
}

func TestParseProfile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unwind strategy", "library: a\npackage: ./a\ntarget: {goos: windows, goarch: \"386\"}\nstrategy: unwind\n", "failures must not unwind"},
		{"unknown key", "library: a\npackage: ./a\ntarget: {goos: windows, goarch: \"386\"}\nlinkr: {}\n", "config validation failed"},
		{"unsupported target", "library: a\npackage: ./a\ntarget: {goos: linux, goarch: amd64}\n", "config validation failed"},
		{"missing package", "library: a\ntarget: {goos: windows, goarch: \"386\"}\n", "config validation failed"},
		{"not yaml", "library: [\n", "failed to parse profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseProfile_UnwindIsStrategyConflict(t *testing.T) {
	_, err := ParseProfile([]byte("library: a\npackage: ./a\ntarget: {goos: wasip1, goarch: wasm}\nstrategy: unwind\n"))
	require.Error(t, err)
	assert.True(t, IsStrategyConflict(err))

	detail := errors.ToErrorDetail(err)
	assert.Equal(t, "strategy", detail.Code)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mathlib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mathdllProfile), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "./cmd/mathdll", p.Package)

	_, err = LoadProfile(filepath.Join(dir, "nope.yaml"))
	var cfgErr *errors.ConfigError
	assert.True(t, stdErrors.As(err, &cfgErr))
}

func TestLoadProfile_DefFileFromModuleRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/m\n"), 0o600))
	profileDir := filepath.Join(root, "cmd", "mathdll")
	require.NoError(t, os.MkdirAll(profileDir, 0o755))
	path := filepath.Join(profileDir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mathdllProfile), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)

	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(absRoot, "cmd", "mathdll", "mathlib.def"), p.Linker.DefFile)
}

func TestProfileSchema(t *testing.T) {
	doc, err := ProfileSchema()
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"def_file"`)
}
