package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/application/template"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	env := map[string]string{"STDEXPORT_CC": "i686-w64-mingw32-gcc"}
	engine := template.NewGoTemplateEngine(template.WithLookupEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	t.Run("Successful Resolution", func(t *testing.T) {
		raw := []byte(`library: "{{.vars.name}}"` + "\n" + `package: ./cmd/mathdll`)
		out, err := engine.Render(raw, map[string]interface{}{"name": "mathlib"})
		require.NoError(t, err)
		assert.Contains(t, string(out), `library: "mathlib"`)
	})

	t.Run("Environment Lookup", func(t *testing.T) {
		raw := []byte(`cc: {{env "STDEXPORT_CC"}}` + "\n" + `extld: {{default "gcc" (env "STDEXPORT_LD")}}`)
		out, err := engine.Render(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, "cc: i686-w64-mingw32-gcc\nextld: gcc", string(out))
	})

	t.Run("Missing Key Fails", func(t *testing.T) {
		raw := []byte(`library: "{{.vars.missing}}"`)
		_, err := engine.Render(raw, map[string]interface{}{"name": "mathlib"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")
	})

	t.Run("Lenient Mode", func(t *testing.T) {
		lenient := template.NewGoTemplateEngine(template.WithStrict(false))
		out, err := lenient.Render([]byte(`x: {{.vars.missing}}`), nil)
		require.NoError(t, err)
		assert.Equal(t, "x: <no value>", string(out))
	})

	t.Run("Invalid Template Syntax", func(t *testing.T) {
		_, err := engine.Render([]byte(`library: "{{.vars.name"`), nil)
		require.Error(t, err)
	})
}
