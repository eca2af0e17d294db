package host

import (
	"context"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// TableLibrary is an in-process library backed by an export table.
type TableLibrary struct {
	table *boundary.ExportTable
}

var _ ports.Library = (*TableLibrary)(nil)

// NewTableLibrary wraps table.
func NewTableLibrary(table *boundary.ExportTable) *TableLibrary {
	return &TableLibrary{table: table}
}

// Call invokes an export. Dispatch failures are returned as errors; codes
// produced by the export are returned as the result.
func (l *TableLibrary) Call(ctx context.Context, name string, args ...uint32) (uint32, error) {
	if l.table.Aborted() {
		return 0, &errors.AbortError{Library: l.table.Library(), Reason: "library has aborted"}
	}
	decl, ok := l.table.Lookup(name)
	if !ok {
		return 0, &errors.ExportNotFoundError{Library: l.table.Library(), Name: name}
	}
	if len(args) != decl.Arity() {
		return 0, &errors.ArityError{Export: name, Want: decl.Arity(), Got: len(args)}
	}

	res := l.table.Call(ctx, name, args...)
	if l.table.Aborted() {
		return 0, &errors.AbortError{Library: l.table.Library(), Export: name, ExitCode: boundary.AbortExitCode}
	}
	return res, nil
}

// Exports implements ports.Library.
func (l *TableLibrary) Exports() []entities.ExportedFunction {
	return l.table.Exports()
}

// Close implements ports.Library.
func (l *TableLibrary) Close(context.Context) error {
	return nil
}
