//go:build !windows

package host

import (
	"context"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// NativeLibrary is only available on windows.
type NativeLibrary struct{}

var _ ports.Library = (*NativeLibrary)(nil)

// NewNativeLibrary returns ErrNotSupported.
func NewNativeLibrary(string, ...Option) (*NativeLibrary, error) {
	return nil, ErrNotSupported
}

// Call returns ErrNotSupported.
func (*NativeLibrary) Call(context.Context, string, ...uint32) (uint32, error) {
	return 0, ErrNotSupported
}

// Exports returns nil.
func (*NativeLibrary) Exports() []entities.ExportedFunction { return nil }

// Close returns nil.
func (*NativeLibrary) Close(context.Context) error { return nil }
