//go:build windows && 386

// Command mathdll is the mathlib export library built as a PE32 DLL.
//
// The stdcall entry points live in shims.c and call the goXxx functions
// below, which dispatch through the guarded export table. Nothing from Go
// crosses the C boundary except 32-bit integers.
//
// Build:
//
//	exportcheck plan --profile cmd/mathdll/profile.yaml
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/examples/mathlib"
	"github.com/stdexport/stdexport-sdk/log"
)

var table = mustTable()

func mustTable() *boundary.ExportTable {
	logger := log.Setup(log.DefaultConfig())
	t, err := mathlib.NewExportTable(
		boundary.WithLogger(logger),
		boundary.WithAborter(boundary.NewProcessAborter(logger)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mathdll: %v\n", err)
		os.Exit(boundary.AbortExitCode)
	}
	return t
}

func call(name string, args ...uint32) C.int32_t {
	return C.int32_t(int32(table.Call(context.Background(), name, args...)))
}

//export goAdd
func goAdd(a, b C.int32_t) C.int32_t {
	return call("add", uint32(a), uint32(b))
}

//export goCheckedAdd
func goCheckedAdd(a, b C.int32_t) C.int32_t {
	return call("checked_add", uint32(a), uint32(b))
}

//export goDivide
func goDivide(a, b C.int32_t) C.int32_t {
	return call("divide", uint32(a), uint32(b))
}

//export goInvariant
func goInvariant() C.int32_t {
	return call("invariant")
}

//export goVtabEntry
func goVtabEntry(i C.int32_t) C.int32_t {
	return call("vtab_entry", uint32(i))
}

func main() {}
