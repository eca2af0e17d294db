package entities

import "fmt"

// ErrorDetail is a structured, loggable failure record.
// Types: "boundary", "abort", "convention", "manifest", "config", "image",
// "isolation", "validation", "internal".
type ErrorDetail struct {
	// Wrapped contains a wrapped error for error chains.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Stack is captured for aborts.
	Stack []byte `json:"stack,omitempty"`

	// Fatal marks failures that terminate the library.
	Fatal bool `json:"fatal,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns e.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode sets the code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// LogAttrs flattens the detail for structured logging.
func (e *ErrorDetail) LogAttrs() []any {
	if e == nil {
		return nil
	}
	attrs := []any{"error_type", e.Type, "error", e.Message}
	if e.Code != "" {
		attrs = append(attrs, "code", e.Code)
	}
	if e.Fatal {
		attrs = append(attrs, "fatal", true)
	}
	for k, v := range e.Details {
		attrs = append(attrs, k, v)
	}
	return attrs
}
