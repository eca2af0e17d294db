//go:build windows

package host

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// NativeLibrary is a DLL loaded into this process. Exports are called with
// the platform convention, stdcall on windows/386. An export that aborts
// terminates this process.
type NativeLibrary struct {
	dll    *windows.DLL
	config hostConfig
	decls  map[string]entities.ExportedFunction

	mu    sync.Mutex
	procs map[string]*windows.Proc
}

var _ ports.Library = (*NativeLibrary)(nil)

// NewNativeLibrary loads the DLL at path.
func NewNativeLibrary(path string, opts ...Option) (*NativeLibrary, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.library == "" {
		cfg.library = path
	}

	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &NativeLibrary{
		dll:    dll,
		config: cfg,
		decls:  cfg.declarations(),
		procs:  make(map[string]*windows.Proc),
	}, nil
}

func (l *NativeLibrary) proc(name string) (*windows.Proc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.procs[name]; ok {
		return p, nil
	}
	p, err := l.dll.FindProc(name)
	if err != nil {
		return nil, &errors.ExportNotFoundError{Library: l.config.library, Name: name}
	}
	l.procs[name] = p
	return p, nil
}

// Call invokes an export. Without a declaration for name the argument count
// cannot be checked and a wrong count corrupts the stack.
func (l *NativeLibrary) Call(_ context.Context, name string, args ...uint32) (uint32, error) {
	if decl, ok := l.decls[name]; ok && decl.Arity() != len(args) {
		return 0, &errors.ArityError{Export: name, Want: decl.Arity(), Got: len(args)}
	}
	p, err := l.proc(name)
	if err != nil {
		return 0, err
	}
	words := make([]uintptr, len(args))
	for i, a := range args {
		words[i] = uintptr(a)
	}
	r1, _, _ := p.Call(words...)
	return uint32(r1), nil
}

// Exports returns the declared exports.
func (l *NativeLibrary) Exports() []entities.ExportedFunction {
	return append([]entities.ExportedFunction(nil), l.config.exports...)
}

// Close unloads the DLL.
func (l *NativeLibrary) Close(context.Context) error {
	return l.dll.Release()
}
