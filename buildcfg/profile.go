package buildcfg

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stdexport/stdexport-sdk/application/schema"
	apptemplate "github.com/stdexport/stdexport-sdk/application/template"
	"github.com/stdexport/stdexport-sdk/application/validation"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
	"github.com/stdexport/stdexport-sdk/infrastructure/parser"
)

// DefaultCC is the C compiler used for windows/386 when a profile names
// none.
const DefaultCC = "i686-w64-mingw32-gcc"

// profileConfig holds configuration for profile loading.
type profileConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ProfileParser
	structValidator ports.StructValidator
	docValidator    ports.DocumentValidator
	vars            map[string]interface{}
}

func defaultProfileConfig() profileConfig {
	return profileConfig{
		templateEngine:  apptemplate.NewGoTemplateEngine(),
		parser:          parser.NewYamlParser(),
		structValidator: validation.NewStructValidator(),
		docValidator:    validation.NewSchemaValidator(),
	}
}

// ProfileOption configures profile loading.
type ProfileOption func(*profileConfig)

// WithVars sets the template values available as {{.vars.key}}.
func WithVars(vars map[string]interface{}) ProfileOption {
	return func(c *profileConfig) {
		c.vars = vars
	}
}

// WithTemplateEngine sets the template engine.
func WithTemplateEngine(t ports.TemplateEngine) ProfileOption {
	return func(c *profileConfig) {
		if t != nil {
			c.templateEngine = t
		}
	}
}

// WithDocumentValidator sets the schema validator.
func WithDocumentValidator(v ports.DocumentValidator) ProfileOption {
	return func(c *profileConfig) {
		if v != nil {
			c.docValidator = v
		}
	}
}

// LoadProfile reads and parses the profile at path. A relative def_file is
// taken from the root of the module holding the profile; the external
// linker runs in a scratch directory and would not find it otherwise.
func LoadProfile(path string, opts ...ProfileOption) (*entities.BuildProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Err: err}
	}
	p, err := ParseProfile(raw, opts...)
	if err != nil {
		return nil, err
	}
	if def := p.Linker.DefFile; def != "" && !filepath.IsAbs(def) {
		if root, err := FindModuleRoot(filepath.Dir(path)); err == nil {
			p.Linker.DefFile = filepath.Join(root, filepath.FromSlash(def))
		}
	}
	return p, nil
}

// ParseProfile renders, schema-checks, decodes, defaults and validates a
// profile document.
func ParseProfile(raw []byte, opts ...ProfileOption) (*entities.BuildProfile, error) {
	cfg := defaultProfileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := cfg.templateEngine.Render(raw, cfg.vars)
	if err != nil {
		return nil, &errors.ConfigError{Err: fmt.Errorf("failed to render profile: %w", err)}
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &errors.ConfigError{Err: fmt.Errorf("failed to parse profile: %w", err)}
	}
	profileSchema, err := ProfileSchema()
	if err != nil {
		return nil, err
	}
	if err := cfg.docValidator.Validate(profileSchema, doc); err != nil {
		return nil, err
	}

	profile, err := cfg.parser.ParseProfile(data)
	if err != nil {
		return nil, &errors.ConfigError{Err: fmt.Errorf("failed to parse profile: %w", err)}
	}
	ApplyDefaults(profile)

	if err := cfg.structValidator.Struct(profile); err != nil {
		return nil, err
	}
	if profile.Strategy != entities.StrategyAbort {
		return nil, &errors.StrategyConflictError{
			Requested: profile.Strategy,
			Required:  entities.StrategyAbort,
			Where:     "profile " + profile.Library,
		}
	}
	return profile, nil
}

// ApplyDefaults fills the documented defaults: abort strategy, an output
// name derived from the library and target, and for windows the default C
// compiler with the linker following it.
func ApplyDefaults(p *entities.BuildProfile) {
	if p.Strategy == "" {
		p.Strategy = entities.StrategyAbort
	}
	if p.Output == "" && p.Library != "" {
		ext := ".wasm"
		if p.Native() {
			ext = ".dll"
		}
		p.Output = p.Library + ext
	}
	if p.Native() {
		if p.Linker.CC == "" {
			p.Linker.CC = DefaultCC
		}
		if p.Linker.Extld == "" {
			p.Linker.Extld = p.Linker.CC
		}
	}
}

// ProfileSchema returns the JSON schema of a build profile document.
func ProfileSchema() ([]byte, error) {
	doc, err := schema.ProfileSchema()
	if err != nil {
		return nil, &errors.SchemaError{Err: err, Type: "BuildProfile"}
	}
	return doc, nil
}

// IsStrategyConflict reports whether err rejects a profile for its failure
// strategy.
func IsStrategyConflict(err error) bool {
	var sc *errors.StrategyConflictError
	return stdErrors.As(err, &sc)
}
