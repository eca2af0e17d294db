package boundary

import (
	"errors"
	"fmt"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// Code is a result code returned across the boundary in place of a failure.
// Negative values are errors. Codes share the 32-bit result slot with
// ordinary results, so an export that can legitimately produce negative
// values must document which codes it reserves.
type Code int32

// Codes returned by ExportTable.Call. They share the result word with
// export values, so an export whose value range includes negative numbers
// cannot tell a code from a value of the same word.
const (
	// CodeOK indicates success for exports that return only a status.
	CodeOK Code = 0
	// CodeFailure is the sentinel for any recoverable failure without a
	// more specific code.
	CodeFailure Code = -1
	// CodeInvalidArgument indicates an argument the export rejects.
	CodeInvalidArgument Code = -2
	// CodeOverflow indicates a result that does not fit the result slot.
	CodeOverflow Code = -3
	// CodeArity indicates a call with the wrong number of argument slots.
	CodeArity Code = -4
	// CodeUnknownExport indicates a name the table does not export.
	CodeUnknownExport Code = -5
	// CodeAborted is returned only when an Aborter returns, which
	// production aborters never do.
	CodeAborted Code = -99
)

// String returns a human-readable name for the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeFailure:
		return "Failure"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeOverflow:
		return "Overflow"
	case CodeArity:
		return "Arity"
	case CodeUnknownExport:
		return "UnknownExport"
	case CodeAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Code(%d)", int32(c))
	}
}

// Word returns the code as a raw result slot.
func (c Code) Word() uint32 {
	return uint32(c)
}

// IsError reports whether c denotes a failure.
func (c Code) IsError() bool {
	return c < 0
}

// CodeFromWord interprets a raw result slot as a code.
func CodeFromWord(w uint32) Code {
	return Code(int32(w))
}

// Error is a recoverable failure carrying the code the boundary returns.
type Error struct {
	Err     error
	Message string
	Code    Code
}

// NewError creates an Error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code to err.
func WrapError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements errors.DetailedError.
func (e *Error) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "boundary", Code: e.Code.String()}
}

// CodeOf returns the code the boundary reports for err: CodeOK for nil, the
// code of the first *Error in the chain, or CodeFailure.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var be *Error
	if errors.As(err, &be) && be.Code.IsError() {
		return be.Code
	}
	return CodeFailure
}

// Common recoverable errors.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrOverflow        = &Error{Code: CodeOverflow, Message: "result overflows 32 bits"}
)
