package x86

import (
	"fmt"
	"strings"
)

// Flags is the subset of EFLAGS the model maintains.
type Flags uint32

const (
	CF Flags = 1 << 0  // carry
	ZF Flags = 1 << 6  // zero
	SF Flags = 1 << 7  // sign
	DF Flags = 1 << 10 // direction
	OF Flags = 1 << 11 // overflow
)

// Set sets or clears f.
func (fl *Flags) Set(f Flags, on bool) {
	if on {
		*fl |= f
	} else {
		*fl &^= f
	}
}

// Has reports whether every bit of f is set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

func (fl Flags) String() string {
	var names []string
	for _, f := range []struct {
		bit  Flags
		name string
	}{{CF, "CF"}, {ZF, "ZF"}, {SF, "SF"}, {DF, "DF"}, {OF, "OF"}} {
		if fl.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "|")
}

// Registers holds the general purpose registers, eip and flags.
type Registers struct {
	EAX, ECX, EDX, EBX uint32
	ESP, EBP, ESI, EDI uint32
	EIP                uint32
	Flags              Flags
}

// Callee-saved registers under both stdcall and cdecl.
func (r *Registers) calleeSaved() [4]uint32 {
	return [4]uint32{r.EBX, r.EBP, r.ESI, r.EDI}
}

func (r Registers) String() string {
	return fmt.Sprintf("eax=%08x ecx=%08x edx=%08x ebx=%08x esp=%08x ebp=%08x esi=%08x edi=%08x eip=%08x flags=%s",
		r.EAX, r.ECX, r.EDX, r.EBX, r.ESP, r.EBP, r.ESI, r.EDI, r.EIP, r.Flags)
}
