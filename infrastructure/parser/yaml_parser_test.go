package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

func TestYamlParser_Parse(t *testing.T) {
	p := NewYamlParser()

	m, err := p.Parse([]byte(`
library: mathlib
convention: stdcall
exports:
  - name: add
    params: [i32, i32]
    result: i32
  - name: divide
    ordinal: 4
    params: [i32, i32]
`))
	require.NoError(t, err)
	assert.Equal(t, "mathlib", m.Library)
	assert.Equal(t, entities.Stdcall, m.Convention)
	require.Len(t, m.Exports, 2)
	assert.Equal(t, uint16(4), m.Exports[1].Ordinal)
	assert.Equal(t, []entities.ValueKind{entities.KindI32, entities.KindI32}, m.Exports[0].Params)
}

func TestYamlParser_UnknownField(t *testing.T) {
	_, err := NewYamlParser().Parse([]byte("library: mathlib\nlibary: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libary")
}

func TestYamlParser_Empty(t *testing.T) {
	_, err := NewYamlParser().ParseProfile(nil)
	require.Error(t, err)
}

func TestYamlParser_ParseProfile(t *testing.T) {
	prof, err := NewYamlParser().ParseProfile([]byte(`
library: mathlib
package: ./cmd/mathdll
target: {goos: windows, goarch: "386"}
linker:
  cc: i686-w64-mingw32-gcc
  flags: [-static]
isolated: false
`))
	require.NoError(t, err)
	assert.Equal(t, "386", prof.Target.GOARCH)
	assert.Equal(t, []string{"-static"}, prof.Linker.Flags)
	assert.False(t, prof.IsIsolated())
	assert.True(t, prof.Native())
}
