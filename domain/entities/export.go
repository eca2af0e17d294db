package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotSize is the width in bytes of one argument slot on the x86 stack.
const SlotSize = 4

// ValueKind describes a 32-bit value crossing the export boundary.
type ValueKind string

const (
	KindI32  ValueKind = "i32"
	KindU32  ValueKind = "u32"
	KindPtr  ValueKind = "ptr"
	KindVoid ValueKind = "void"
)

// Valid reports whether k may appear as a parameter. Void is only valid as
// a result.
func (k ValueKind) Valid() bool {
	switch k {
	case KindI32, KindU32, KindPtr:
		return true
	}
	return false
}

// ExportedFunction is a named entry point in the library's export table.
// Once published, Name, Params and Convention must not change.
type ExportedFunction struct {
	Name       string      `json:"name" yaml:"name" validate:"required,cidentifier" jsonschema:"pattern=^[A-Za-z_][A-Za-z0-9_]*$"`
	Ordinal    uint16      `json:"ordinal,omitempty" yaml:"ordinal,omitempty" jsonschema:"minimum=1"`
	Params     []ValueKind `json:"params,omitempty" yaml:"params,omitempty" validate:"dive,oneof=i32 u32 ptr" jsonschema:"enum=i32,enum=u32,enum=ptr"`
	Result     ValueKind   `json:"result,omitempty" yaml:"result,omitempty" validate:"omitempty,oneof=i32 u32 ptr void" jsonschema:"enum=i32,enum=u32,enum=ptr,enum=void"`
	Convention Convention  `json:"convention,omitempty" yaml:"convention,omitempty" validate:"omitempty,oneof=stdcall cdecl" jsonschema:"enum=stdcall,enum=cdecl"`
}

// NewStdcall declares a stdcall export returning i32.
func NewStdcall(name string, params ...ValueKind) ExportedFunction {
	return ExportedFunction{
		Name:       name,
		Params:     params,
		Result:     KindI32,
		Convention: Stdcall,
	}
}

// Arity returns the number of argument slots.
func (f ExportedFunction) Arity() int {
	return len(f.Params)
}

// ArgBytes returns the number of stack bytes occupied by the arguments.
func (f ExportedFunction) ArgBytes() int {
	return SlotSize * len(f.Params)
}

// EffectiveConvention returns the declared convention, defaulting to stdcall.
func (f ExportedFunction) EffectiveConvention() Convention {
	if f.Convention == "" {
		return Stdcall
	}
	return f.Convention
}

// DecoratedName returns the symbol name a 32-bit Windows compiler emits:
// "_name@N" for stdcall and "_name" for cdecl.
func (f ExportedFunction) DecoratedName() string {
	if f.EffectiveConvention() == Cdecl {
		return "_" + f.Name
	}
	return fmt.Sprintf("_%s@%d", f.Name, f.ArgBytes())
}

// Signature renders the declaration in C-like form.
func (f ExportedFunction) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = string(p)
	}
	result := f.Result
	if result == "" {
		result = KindVoid
	}
	return fmt.Sprintf("%s __%s %s(%s)", result, f.EffectiveConvention(), f.Name, strings.Join(params, ", "))
}

// SameContract reports whether g can replace f without breaking callers.
// Ordinals are compared only when both are pinned.
func (f ExportedFunction) SameContract(g ExportedFunction) bool {
	if f.Name != g.Name || f.EffectiveConvention() != g.EffectiveConvention() {
		return false
	}
	if f.Result != g.Result || len(f.Params) != len(g.Params) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != g.Params[i] {
			return false
		}
	}
	return f.Ordinal == 0 || g.Ordinal == 0 || f.Ordinal == g.Ordinal
}

// Decoration is the result of parsing a decorated symbol name.
type Decoration struct {
	Name       string
	Convention Convention
	// ArgBytes is -1 when the decoration does not carry a byte count.
	ArgBytes int
}

// ParseDecoratedName splits a 32-bit decorated symbol. Undecorated names
// are reported as stdcall with an unknown byte count, which is how linkers
// that strip decorations (--kill-at) export them.
func ParseDecoratedName(sym string) Decoration {
	name := strings.TrimPrefix(sym, "__imp_")
	if at := strings.LastIndexByte(name, '@'); at > 0 {
		if n, err := strconv.Atoi(name[at+1:]); err == nil && n >= 0 {
			return Decoration{
				Name:       strings.TrimPrefix(name[:at], "_"),
				Convention: Stdcall,
				ArgBytes:   n,
			}
		}
	}
	if strings.HasPrefix(name, "_") {
		return Decoration{Name: name[1:], Convention: Cdecl, ArgBytes: -1}
	}
	return Decoration{Name: name, Convention: Stdcall, ArgBytes: -1}
}
