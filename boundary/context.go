package boundary

import (
	"context"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// CallContext is the context handed to middleware and handlers. It exposes
// the declaration of the export being called.
type CallContext interface {
	context.Context

	// Export returns the declaration of the export being called.
	Export() entities.ExportedFunction
}

type exportKey struct{}

type callContext struct {
	context.Context
	decl entities.ExportedFunction
}

func newCallContext(ctx context.Context, decl entities.ExportedFunction) CallContext {
	return &callContext{Context: context.WithValue(ctx, exportKey{}, decl), decl: decl}
}

func (c *callContext) Export() entities.ExportedFunction {
	return c.decl
}

// ExportFrom returns the declaration of the export running under ctx,
// including contexts derived from the call context by middleware.
func ExportFrom(ctx context.Context) (entities.ExportedFunction, bool) {
	if cc, ok := ctx.(CallContext); ok {
		return cc.Export(), true
	}
	decl, ok := ctx.Value(exportKey{}).(entities.ExportedFunction)
	return decl, ok
}
