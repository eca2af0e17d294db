package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sort"
	"sync/atomic"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// ExportTable is the immutable set of exports of one library.
// Once created via NewExportTable, exports cannot be added or removed, so
// lookups need no locking.
type ExportTable struct {
	exports    map[string]*export
	names      []string // sorted
	library    string
	convention entities.Convention
	aborter    ports.Aborter
	logger     *slog.Logger
	aborted    atomic.Bool
}

type export struct {
	decl    entities.ExportedFunction
	handler Handler
}

// TableOption configures an ExportTable.
type TableOption func(*tableBuilder)

type tableBuilder struct {
	exports    map[string]*export
	middleware []Middleware
	library    string
	convention entities.Convention
	aborter    ports.Aborter
	logger     *slog.Logger
	errors     []error
}

// NewExportTable creates an immutable ExportTable.
// It fails if a name is registered twice, a declaration is malformed, an
// export does not use the library convention, two exports pin the same
// ordinal, or the library was linked with a strategy other than abort.
func NewExportTable(opts ...TableOption) (*ExportTable, error) {
	if err := checkStrategy(); err != nil {
		return nil, err
	}

	b := &tableBuilder{
		exports:    make(map[string]*export),
		convention: entities.Stdcall,
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.aborter == nil {
		b.aborter = NewProcessAborter(b.logger)
	}

	names := make([]string, 0, len(b.exports))
	for name, e := range b.exports {
		if c := e.decl.Convention; c != "" && c != b.convention {
			return nil, fmt.Errorf("export %q uses %s, library convention is %s", name, c, b.convention)
		}
		e.decl.Convention = b.convention
		names = append(names, name)
	}
	sort.Strings(names)

	if err := assignOrdinals(b.exports, names); err != nil {
		return nil, err
	}

	// Apply middleware in reverse order so the first one wraps outermost.
	for _, e := range b.exports {
		for i := len(b.middleware) - 1; i >= 0; i-- {
			e.handler = b.middleware[i](e.handler)
		}
	}

	return &ExportTable{
		exports:    b.exports,
		names:      names,
		library:    b.library,
		convention: b.convention,
		aborter:    b.aborter,
		logger:     b.logger,
	}, nil
}

// assignOrdinals keeps pinned ordinals and numbers the rest from 1 in name
// order, skipping numbers already taken.
func assignOrdinals(exports map[string]*export, names []string) error {
	used := make(map[uint16]string)
	for _, name := range names {
		ord := exports[name].decl.Ordinal
		if ord == 0 {
			continue
		}
		if prev, ok := used[ord]; ok {
			return fmt.Errorf("ordinal %d pinned by both %q and %q", ord, prev, name)
		}
		used[ord] = name
	}
	next := uint16(1)
	for _, name := range names {
		e := exports[name]
		if e.decl.Ordinal != 0 {
			continue
		}
		for used[next] != "" {
			next++
		}
		e.decl.Ordinal = next
		used[next] = name
	}
	return nil
}

// Call invokes the named export with raw argument slots and returns the raw
// result slot. It never panics and never returns a Go error: recoverable
// failures become codes and unrecoverable ones abort the library.
func (t *ExportTable) Call(ctx context.Context, name string, args ...uint32) uint32 {
	if t.aborted.Load() {
		return CodeAborted.Word()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e, ok := t.exports[name]
	if !ok {
		t.logger.Warn("stdexport: unknown export", "library", t.library, "export", name)
		return CodeUnknownExport.Word()
	}
	if len(args) != e.decl.Arity() {
		t.logger.Warn("stdexport: arity mismatch",
			"export", name, "want", e.decl.Arity(), "got", len(args))
		return CodeArity.Word()
	}
	return t.guard(ctx, e, args)
}

// CallCode is Call with the result interpreted as a signed code.
func (t *ExportTable) CallCode(ctx context.Context, name string, args ...uint32) Code {
	return CodeFromWord(t.Call(ctx, name, args...))
}

// guard runs the handler and resolves every outcome before returning.
// The named result is set by the deferred recovery when the handler panics.
func (t *ExportTable) guard(ctx context.Context, e *export, args Args) (result uint32) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if th, ok := r.(thrown); ok {
			result = t.fail(ctx, e, th.err)
			return
		}
		t.abort(e, r)
		result = CodeAborted.Word()
	}()

	res, err := e.handler(newCallContext(ctx, e.decl), args)
	if err != nil {
		return t.fail(ctx, e, err)
	}
	return res
}

func (t *ExportTable) fail(ctx context.Context, e *export, err error) uint32 {
	code := CodeOf(err)
	t.logger.DebugContext(ctx, "stdexport: export returned error code",
		"export", e.decl.Name, "code", code.String(), "error", err.Error())
	return code.Word()
}

func (t *ExportTable) abort(e *export, r any) {
	t.aborted.Store(true)

	detail := &entities.ErrorDetail{
		Type:  "abort",
		Code:  "panic",
		Stack: debug.Stack(),
		Fatal: true,
		Details: map[string]any{
			"library": t.library,
			"export":  e.decl.Name,
		},
	}
	switch v := r.(type) {
	case fatal:
		detail.Message = v.String()
		detail.Code = "fatal"
	case runtime.Error:
		detail.Message = v.Error()
		detail.Code = "runtime"
	case error:
		detail.Message = v.Error()
		detail.Wrapped = errors.ToErrorDetail(v)
	default:
		detail.Message = fmt.Sprintf("%v", v)
	}
	t.aborter.Abort(detail)
}

// Aborted reports whether the table has aborted. Only possible with an
// Aborter that returns.
func (t *ExportTable) Aborted() bool {
	return t.aborted.Load()
}

// Has reports whether the table exports name.
func (t *ExportTable) Has(name string) bool {
	_, ok := t.exports[name]
	return ok
}

// Names returns the sorted export names.
func (t *ExportTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Lookup returns the declaration of name with its assigned ordinal.
func (t *ExportTable) Lookup(name string) (entities.ExportedFunction, bool) {
	e, ok := t.exports[name]
	if !ok {
		return entities.ExportedFunction{}, false
	}
	return e.decl, true
}

// Exports returns all declarations in name order.
func (t *ExportTable) Exports() []entities.ExportedFunction {
	out := make([]entities.ExportedFunction, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, t.exports[name].decl)
	}
	return out
}

// Library returns the library name.
func (t *ExportTable) Library() string {
	return t.library
}

// Convention returns the convention shared by every export.
func (t *ExportTable) Convention() entities.Convention {
	return t.convention
}

// Manifest returns the table's published contract.
func (t *ExportTable) Manifest() *entities.ExportManifest {
	return &entities.ExportManifest{
		Library:    t.library,
		Convention: t.convention,
		Exports:    t.Exports(),
	}
}

func (b *tableBuilder) add(decl entities.ExportedFunction, h Handler) error {
	if decl.Name == "" {
		return fmt.Errorf("export name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("export %q has no handler", decl.Name)
	}
	if _, exists := b.exports[decl.Name]; exists {
		return fmt.Errorf("duplicate export name: %q", decl.Name)
	}
	for i, p := range decl.Params {
		if !p.Valid() {
			return fmt.Errorf("export %q parameter %d: %q is not a 32-bit kind", decl.Name, i, p)
		}
	}
	if decl.Result == "" {
		decl.Result = entities.KindI32
	}
	b.exports[decl.Name] = &export{decl: decl, handler: h}
	return nil
}

// WithExport registers handler h under decl.
func WithExport(decl entities.ExportedFunction, h Handler) TableOption {
	return func(b *tableBuilder) {
		if err := b.add(decl, h); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware. Middleware executes in FIFO order.
func WithMiddleware(mw ...Middleware) TableOption {
	return func(b *tableBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithAborter replaces the default ProcessAborter.
func WithAborter(a ports.Aborter) TableOption {
	return func(b *tableBuilder) {
		b.aborter = a
	}
}

// WithLogger sets the logger used by the table and its default aborter.
func WithLogger(l *slog.Logger) TableOption {
	return func(b *tableBuilder) {
		b.logger = l
	}
}

// WithLibrary names the library.
func WithLibrary(name string) TableOption {
	return func(b *tableBuilder) {
		b.library = name
	}
}

// WithConvention sets the library convention. Defaults to stdcall.
func WithConvention(c entities.Convention) TableOption {
	return func(b *tableBuilder) {
		if !c.Valid() {
			b.errors = append(b.errors, fmt.Errorf("unknown calling convention %q", c))
			return
		}
		b.convention = c
	}
}
