package manifest

import (
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/stdexport/stdexport-sdk/application/schema"
	apptemplate "github.com/stdexport/stdexport-sdk/application/template"
	"github.com/stdexport/stdexport-sdk/application/validation"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
	"github.com/stdexport/stdexport-sdk/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ManifestParser
	structValidator ports.StructValidator
	docValidator    ports.DocumentValidator
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlParser(),
		structValidator: validation.NewStructValidator(),
		docValidator:    validation.NewSchemaValidator(),
		strictTemplates: true,
	}
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithDocumentValidator sets the validator used for the schema check. Nil
// disables it.
func WithDocumentValidator(v ports.DocumentValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.docValidator = v
	}
}

// Loader orchestrates the manifest loading pipeline:
// render, parse, normalize and validate.
type Loader struct {
	config loaderConfig
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	return &Loader{config: cfg}
}

// Load renders, parses and validates a manifest document.
func (l *Loader) Load(raw []byte, vars map[string]interface{}) (*entities.ExportManifest, error) {
	data, err := l.config.templateEngine.Render(raw, vars)
	if err != nil {
		return nil, &errors.ManifestError{Err: fmt.Errorf("failed to render manifest: %w", err)}
	}

	m, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, &errors.ManifestError{Err: fmt.Errorf("failed to parse manifest: %w", err)}
	}
	m.Normalize()

	if err := l.Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile reads and loads the manifest at path.
func (l *Loader) LoadFile(path string, vars map[string]interface{}) (*entities.ExportManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ManifestError{Err: err}
	}
	return l.Load(raw, vars)
}

// Validate checks struct tags, the manifest schema and the structural
// invariants. Every invariant violation is reported, joined into one error.
func (l *Loader) Validate(m *entities.ExportManifest) error {
	if err := l.config.structValidator.Struct(m); err != nil {
		var cfgErr *errors.ConfigError
		if stdErrors.As(err, &cfgErr) {
			return &errors.ManifestError{Library: m.Library, Field: cfgErr.Field, Err: cfgErr.Err}
		}
		return &errors.ManifestError{Library: m.Library, Err: err}
	}

	if l.config.docValidator != nil {
		doc, err := Schema()
		if err != nil {
			return err
		}
		if err := l.config.docValidator.Validate(doc, m); err != nil {
			return &errors.ManifestError{Library: m.Library, Err: err}
		}
	}

	if errs := m.Invariants(); len(errs) > 0 {
		return &errors.ManifestError{Library: m.Library, Err: stdErrors.Join(errs...)}
	}
	return nil
}

// Schema returns the JSON schema of a manifest document.
func Schema() ([]byte, error) {
	doc, err := schema.ManifestSchema()
	if err != nil {
		return nil, &errors.SchemaError{Err: err, Type: "ExportManifest"}
	}
	return doc, nil
}
