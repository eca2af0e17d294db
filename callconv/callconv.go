// Package callconv simulates a call across the export boundary on the x86
// stack model. The caller pushes arguments right to left and a return
// address; the callee shim reads its arguments, leaves the result in eax and
// returns; whoever the convention makes responsible removes the arguments.
// A caller and callee that disagree leave esp displaced, which is reported
// as a ConventionMismatchError.
package callconv

import (
	"context"
	"fmt"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
	"github.com/stdexport/stdexport-sdk/x86"
)

// ReturnAddress is pushed by the simulated caller.
const ReturnAddress uint32 = 0x0040_1000

// Callee is the code behind an export.
type Callee interface {
	Declaration() entities.ExportedFunction
	Execute(ctx context.Context, args boundary.Args) uint32
}

// Frame describes one completed call.
type Frame struct {
	Export    string
	Result    uint32
	ESPBefore uint32
	ESPAfter  uint32
	// PoppedByCallee is the number of argument bytes the callee removed.
	PoppedByCallee int
	// PoppedByCaller is the number of argument bytes the caller removed.
	PoppedByCaller int
}

// Balanced reports whether esp was restored.
func (f Frame) Balanced() bool {
	return f.ESPBefore == f.ESPAfter
}

// Invoke calls callee with args as a caller using convention caller would.
// The returned frame is valid even when err reports a stack imbalance.
func Invoke(ctx context.Context, m *x86.Machine, caller entities.Convention, callee Callee, args ...uint32) (Frame, error) {
	decl := callee.Declaration()
	frame := Frame{Export: decl.Name, ESPBefore: m.Regs.ESP}
	saved := m.CalleeSaved()

	for i := len(args) - 1; i >= 0; i-- {
		if err := m.Push(args[i]); err != nil {
			return frame, err
		}
	}
	if err := m.Push(ReturnAddress); err != nil {
		return frame, err
	}

	popped, err := runCallee(ctx, m, decl, callee)
	if err != nil {
		return frame, err
	}
	frame.PoppedByCallee = popped

	if caller.Cleanup() == entities.CleanupCaller {
		n := uint32(entities.SlotSize * len(args))
		m.AddESP(n)
		frame.PoppedByCaller = int(n)
	}

	frame.Result = m.Regs.EAX
	frame.ESPAfter = m.Regs.ESP

	if m.CalleeSaved() != saved {
		return frame, fmt.Errorf("callee %s clobbered a callee-saved register", decl.Name)
	}
	if !frame.Balanced() {
		return frame, &errors.ConventionMismatchError{
			Export:    decl.Name,
			Caller:    caller,
			Callee:    decl.EffectiveConvention(),
			ESPBefore: frame.ESPBefore,
			ESPAfter:  frame.ESPAfter,
		}
	}
	return frame, nil
}

// Call invokes callee the way a correctly bound caller would, using the
// callee's own convention.
func Call(ctx context.Context, m *x86.Machine, callee Callee, args ...uint32) (Frame, error) {
	return Invoke(ctx, m, callee.Declaration().EffectiveConvention(), callee, args...)
}

// runCallee is the shim generated for every export: it pops the return
// address, collects the declared arguments and stores the result in eax.
// Under stdcall the arguments are popped ("ret N"); under cdecl they are
// read in place. It returns the number of argument bytes removed.
func runCallee(ctx context.Context, m *x86.Machine, decl entities.ExportedFunction, callee Callee) (int, error) {
	ret, err := m.Pop()
	if err != nil {
		return 0, err
	}

	args := make(boundary.Args, decl.Arity())
	popped := 0
	for i := range args {
		var v uint32
		if decl.EffectiveConvention().Cleanup() == entities.CleanupCallee {
			v, err = m.Pop()
			popped += entities.SlotSize
		} else {
			v, err = m.Peek(i)
		}
		if err != nil {
			return popped, fmt.Errorf("reading argument %d of %s: %w", i, decl.Name, err)
		}
		args[i] = v
	}

	m.Regs.EAX = callee.Execute(ctx, args)
	m.Regs.EIP = ret
	return popped, nil
}

// Func is a Callee backed by a plain function.
type Func struct {
	Decl entities.ExportedFunction
	Fn   func(ctx context.Context, args boundary.Args) uint32
}

func (f Func) Declaration() entities.ExportedFunction { return f.Decl }

func (f Func) Execute(ctx context.Context, args boundary.Args) uint32 {
	return f.Fn(ctx, args)
}

type tableCallee struct {
	table *boundary.ExportTable
	decl  entities.ExportedFunction
}

// TableCallee returns the named export of table as a Callee. Execution goes
// through ExportTable.Call, so the boundary guard runs under the simulator.
func TableCallee(table *boundary.ExportTable, name string) (Callee, error) {
	decl, ok := table.Lookup(name)
	if !ok {
		return nil, &errors.ExportNotFoundError{Library: table.Library(), Name: name}
	}
	return tableCallee{table: table, decl: decl}, nil
}

func (c tableCallee) Declaration() entities.ExportedFunction { return c.decl }

func (c tableCallee) Execute(ctx context.Context, args boundary.Args) uint32 {
	return c.table.Call(ctx, c.decl.Name, args...)
}
