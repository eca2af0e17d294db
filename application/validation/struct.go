// Package validation validates configuration documents: tagged structs with
// go-playground/validator and decoded documents against JSON schemas.
package validation

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

var cIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// instance returns the package-level validator. Creating a validator is
// expensive, so one is shared.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return yamlName(fld.Tag.Get("yaml"), fld.Name)
		})
		_ = validate.RegisterValidation("cidentifier", func(fl validator.FieldLevel) bool {
			return cIdentifier.MatchString(fl.Field().String())
		})
	})
	return validate
}

func yamlName(tag, fallback string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return fallback
	}
	return name
}

// StructValidator implements ports.StructValidator.
type StructValidator struct{}

var _ ports.StructValidator = StructValidator{}

// NewStructValidator returns the shared struct validator.
func NewStructValidator() StructValidator {
	return StructValidator{}
}

// Struct validates v and returns a *errors.ConfigError naming the first
// failing field.
func (StructValidator) Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: trimRoot(fe.Namespace()),
			Err:   fmt.Errorf("failed on %q rule%s", fe.Tag(), param(fe.Param())),
		}
	}
	return &errors.ConfigError{Err: err}
}

func param(p string) string {
	if p == "" {
		return ""
	}
	return " (" + p + ")"
}

// trimRoot drops the struct type from a namespace such as
// "BuildProfile.target.goos".
func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
