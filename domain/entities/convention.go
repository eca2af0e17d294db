package entities

import (
	"fmt"
	"strings"
)

// Convention identifies an x86 calling convention.
type Convention string

const (
	// Stdcall pushes arguments right to left and the callee removes them.
	Stdcall Convention = "stdcall"
	// Cdecl pushes arguments right to left and the caller removes them.
	Cdecl Convention = "cdecl"
)

// Cleanup identifies which side of a call pops the arguments.
type Cleanup int

const (
	CleanupCallee Cleanup = iota
	CleanupCaller
)

func (c Cleanup) String() string {
	if c == CleanupCallee {
		return "callee"
	}
	return "caller"
}

// Cleanup reports which side removes arguments from the stack.
func (c Convention) Cleanup() Cleanup {
	if c == Cdecl {
		return CleanupCaller
	}
	return CleanupCallee
}

// Valid reports whether c is a known convention.
func (c Convention) Valid() bool {
	return c == Stdcall || c == Cdecl
}

func (c Convention) String() string {
	return string(c)
}

// ParseConvention parses a convention name. Matching is case-insensitive and
// accepts the compiler spellings "__stdcall" and "__cdecl".
func ParseConvention(s string) (Convention, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "__") {
	case "stdcall", "winapi", "system":
		return Stdcall, nil
	case "cdecl", "c":
		return Cdecl, nil
	}
	return "", fmt.Errorf("unknown calling convention %q", s)
}
