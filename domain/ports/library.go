package ports

import (
	"context"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// Library is a loaded export surface that can be called by name.
// Arguments and results are raw 32-bit slots.
type Library interface {
	// Call invokes an export. A non-nil error means the call never reached
	// the library or the library aborted; failures the library reports are
	// returned as codes in the result.
	Call(ctx context.Context, name string, args ...uint32) (uint32, error)

	// Exports returns the declarations the library was loaded with.
	Exports() []entities.ExportedFunction

	Close(ctx context.Context) error
}

// ExportSource exposes the export directory of a built image.
type ExportSource interface {
	ExportSymbols() []entities.ExportSymbol
}

// Aborter terminates the library after an unrecoverable failure.
// Implementations used in production never return.
type Aborter interface {
	Abort(detail *entities.ErrorDetail)
}
