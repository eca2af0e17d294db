// Package errors provides domain-specific error types for the SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can describe themselves
// as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
// Unknown errors are categorized as internal.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// AbortError reports that a library terminated instead of returning.
// Once a library has aborted no further calls into it are possible.
type AbortError struct {
	Library  string
	Export   string
	Reason   string
	ExitCode int
}

func (e *AbortError) Error() string {
	var b strings.Builder
	b.WriteString("library ")
	if e.Library != "" {
		b.WriteString(e.Library + " ")
	}
	b.WriteString("aborted")
	if e.Export != "" {
		fmt.Fprintf(&b, " in %s", e.Export)
	}
	fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// ToErrorDetail implements DetailedError.
func (e *AbortError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "abort",
		Code:    fmt.Sprintf("exit_%d", e.ExitCode),
		Fatal:   true,
	}
}

// ConventionMismatchError reports a call whose caller and callee disagree on
// stack cleanup, observed as a stack pointer that moved across the call.
type ConventionMismatchError struct {
	Export    string
	Caller    entities.Convention
	Callee    entities.Convention
	ESPBefore uint32
	ESPAfter  uint32
}

func (e *ConventionMismatchError) Error() string {
	return fmt.Sprintf("stack imbalance calling %s: caller %s, callee %s, esp 0x%08x -> 0x%08x (%+d bytes)",
		e.Export, e.Caller, e.Callee, e.ESPBefore, e.ESPAfter, e.Delta())
}

// Delta returns the signed stack pointer drift in bytes.
func (e *ConventionMismatchError) Delta() int32 {
	return int32(e.ESPAfter - e.ESPBefore)
}

// ToErrorDetail implements DetailedError.
func (e *ConventionMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("convention", e.Error()).
		WithCode("stack_imbalance").
		WithDetails(map[string]any{"export": e.Export, "delta": e.Delta()})
}

// ExportNotFoundError reports a lookup of a name the library does not export.
type ExportNotFoundError struct {
	Library string
	Name    string
}

func (e *ExportNotFoundError) Error() string {
	if e.Library != "" {
		return fmt.Sprintf("%s does not export %q", e.Library, e.Name)
	}
	return fmt.Sprintf("no export named %q", e.Name)
}

// ToErrorDetail implements DetailedError.
func (e *ExportNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "boundary", Code: "unknown_export"}
}

// ArityError reports a call with the wrong number of argument slots.
type ArityError struct {
	Export string
	Want   int
	Got    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s takes %d arguments, got %d", e.Export, e.Want, e.Got)
}

// ToErrorDetail implements DetailedError.
func (e *ArityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "boundary", Code: "arity"}
}

// ManifestError represents an invalid or incompatible export manifest.
type ManifestError struct {
	Err     error
	Library string
	Field   string
}

func (e *ManifestError) Error() string {
	switch {
	case e.Library != "" && e.Field != "":
		return fmt.Sprintf("manifest %s: field %s: %v", e.Library, e.Field, e.Err)
	case e.Library != "":
		return fmt.Sprintf("manifest %s: %v", e.Library, e.Err)
	case e.Field != "":
		return fmt.Sprintf("manifest field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("manifest: %v", e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ManifestError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "manifest", Code: e.Field}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// StrategyConflictError reports a failure strategy that cannot be used for
// an export library.
type StrategyConflictError struct {
	Requested entities.FailureStrategy
	Required  entities.FailureStrategy
	Where     string
}

func (e *StrategyConflictError) Error() string {
	where := ""
	if e.Where != "" {
		where = " in " + e.Where
	}
	return fmt.Sprintf("failure strategy %q%s conflicts with required %q: failures must not unwind across exported functions",
		e.Requested, where, e.Required)
}

// ToErrorDetail implements DetailedError.
func (e *StrategyConflictError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: "strategy"}
}

// IsolationError reports a build that would share settings with other
// modules through an enclosing workspace.
type IsolationError struct {
	Workspace string
	Uses      []string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("build is not isolated: workspace %s also uses %s",
		e.Workspace, strings.Join(e.Uses, ", "))
}

// ToErrorDetail implements DetailedError.
func (e *IsolationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "isolation",
		Code:    "workspace",
		Details: map[string]any{"workspace": e.Workspace},
	}
}

// ImageError represents a failure reading or interpreting a PE image.
type ImageError struct {
	Err  error
	Path string
	Op   string
}

func (e *ImageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("image %s: %s: %v", e.Path, e.Op, e.Err)
	}
	return fmt.Sprintf("image: %s: %v", e.Op, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ImageError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "image", Code: e.Op}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "schema"}
}
