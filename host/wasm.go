package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
	sdklog "github.com/stdexport/stdexport-sdk/log"
)

// WasmLibrary runs an export library compiled for wasip1. A module instance
// is single-threaded, so calls are serialized.
type WasmLibrary struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	guest   *sdklog.Forwarder
	module  api.Module
	config  hostConfig
	exports []entities.ExportedFunction
	aborted *errors.AbortError
}

var _ ports.Library = (*WasmLibrary)(nil)

// NewWasmLibrary compiles and instantiates wasmBytes. Reactor modules are
// initialized through their _initialize export.
func NewWasmLibrary(ctx context.Context, wasmBytes []byte, opts ...Option) (*WasmLibrary, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.library == "" {
		cfg.library = "wasm"
	}

	var guest *sdklog.Forwarder
	if cfg.guestLogger != nil {
		guest = sdklog.NewForwarder(cfg.guestLogger, "library", cfg.library)
		cfg.stderr = guest
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	modCfg := wazero.NewModuleConfig().
		WithName(cfg.library).
		WithStderr(cfg.stderr).
		WithStdout(cfg.stdout).
		WithStartFunctions()
	mod, err := rt.InstantiateWithConfig(ctx, wasmBytes, modCfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	l := &WasmLibrary{runtime: rt, module: mod, config: cfg, guest: guest}
	l.exports = l.resolveExports()
	cfg.logger.Debug("stdexport: wasm library loaded", "library", cfg.library, "exports", len(l.exports))
	return l, nil
}

// resolveExports returns the declared exports, or derives them from the
// module's i32 functions when none were declared.
func (l *WasmLibrary) resolveExports() []entities.ExportedFunction {
	if len(l.config.exports) > 0 {
		return append([]entities.ExportedFunction(nil), l.config.exports...)
	}
	defs := l.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		if !strings.HasPrefix(name, "_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []entities.ExportedFunction
	for _, name := range names {
		def := defs[name]
		if !allI32(def.ParamTypes()) || len(def.ResultTypes()) > 1 || !allI32(def.ResultTypes()) {
			continue
		}
		params := make([]entities.ValueKind, len(def.ParamTypes()))
		for i := range params {
			params[i] = entities.KindI32
		}
		e := entities.ExportedFunction{Name: name, Params: params, Result: entities.KindVoid, Convention: entities.Stdcall}
		if len(def.ResultTypes()) == 1 {
			e.Result = entities.KindI32
		}
		out = append(out, e)
	}
	return out
}

func allI32(types []api.ValueType) bool {
	for _, t := range types {
		if t != api.ValueTypeI32 {
			return false
		}
	}
	return true
}

// Call invokes an export. A guest that exits or traps is aborted: the error
// is an *errors.AbortError and every later call returns it too.
func (l *WasmLibrary) Call(ctx context.Context, name string, args ...uint32) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.aborted != nil {
		return 0, l.aborted
	}

	fn := l.module.ExportedFunction(name)
	if fn == nil {
		return 0, &errors.ExportNotFoundError{Library: l.config.library, Name: name}
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return 0, &errors.ArityError{Export: name, Want: want, Got: len(args)}
	}

	params := make([]uint64, len(args))
	for i, a := range args {
		params[i] = api.EncodeU32(a)
	}

	results, err := fn.Call(ctx, params...)
	if l.guest != nil {
		l.guest.Flush()
	}
	if err != nil {
		l.aborted = l.abortError(name, err)
		l.config.logger.Error("stdexport: wasm library aborted",
			"library", l.config.library, "export", name, "exit_code", l.aborted.ExitCode)
		return 0, l.aborted
	}
	if len(results) == 0 {
		return 0, nil
	}
	return api.DecodeU32(results[0]), nil
}

func (l *WasmLibrary) abortError(name string, err error) *errors.AbortError {
	ae := &errors.AbortError{Library: l.config.library, Export: name, ExitCode: -1, Reason: err.Error()}
	var exitErr *sys.ExitError
	if stdErrors.As(err, &exitErr) {
		ae.ExitCode = int(exitErr.ExitCode())
		ae.Reason = ""
	}
	return ae
}

// Aborted returns the abort that ended the instance, if any.
func (l *WasmLibrary) Aborted() *errors.AbortError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.aborted
}

// Exports implements ports.Library.
func (l *WasmLibrary) Exports() []entities.ExportedFunction {
	return append([]entities.ExportedFunction(nil), l.exports...)
}

// Close releases the runtime.
func (l *WasmLibrary) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}
