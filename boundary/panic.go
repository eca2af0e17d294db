package boundary

import (
	"fmt"
)

// thrown carries a recoverable error up the stack from internal code to the
// nearest guard. It never leaves the library.
type thrown struct {
	err error
}

// fatal carries an unrecoverable failure to the guard, which aborts.
type fatal struct {
	reason string
	err    error
}

func (f fatal) String() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %v", f.reason, f.err)
	}
	return f.reason
}

// Throw unwinds to the enclosing export with a recoverable error. The export
// returns CodeOf(err). Throw is for deeply nested internal code where
// threading an error return is impractical; it must only be called on the
// goroutine running the handler.
func Throw(err error) {
	if err == nil {
		err = &Error{Code: CodeFailure}
	}
	panic(thrown{err: err})
}

// Check calls Throw if err is not nil.
func Check(err error) {
	if err != nil {
		Throw(err)
	}
}

// Fatal reports an unrecoverable internal failure. The library aborts; the
// call does not return to the caller.
func Fatal(reason string) {
	panic(fatal{reason: reason})
}

// FatalErr is Fatal with a cause.
func FatalErr(reason string, err error) {
	panic(fatal{reason: reason, err: err})
}
