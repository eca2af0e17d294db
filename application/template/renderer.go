// Package template renders build profiles and manifests before they are
// parsed, so one file can describe several toolchains.
package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// templateConfig holds configuration for the GoTemplateEngine.
type templateConfig struct {
	lookupEnv func(string) (string, bool)
	strict    bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		strict:    true,
		lookupEnv: os.LookupEnv,
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithLookupEnv replaces the environment lookup used by the env function.
func WithLookupEnv(fn func(string) (string, bool)) TemplateOption {
	return func(c *templateConfig) {
		if fn != nil {
			c.lookupEnv = fn
		}
	}
}

// GoTemplateEngine implements TemplateEngine using standard text/template.
//
// Values are available as {{.vars.key}}. Two functions are provided:
//
//	{{env "CC"}}               value of an environment variable, "" if unset
//	{{default "gcc" (env "CC")}} fallback for an empty value
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

func (e *GoTemplateEngine) funcs() template.FuncMap {
	return template.FuncMap{
		"env": func(key string) string {
			v, _ := e.config.lookupEnv(key)
			return v
		},
		"default": func(fallback, v string) string {
			if v == "" {
				return fallback
			}
			return v
		},
	}
}

// Render processes the raw document bytes with the provided values.
func (e *GoTemplateEngine) Render(raw []byte, values map[string]interface{}) ([]byte, error) {
	tmpl := template.New("document").Funcs(e.funcs())

	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if values == nil {
		values = map[string]interface{}{}
	}
	data := map[string]interface{}{
		"vars": values,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.Bytes(), nil
}
