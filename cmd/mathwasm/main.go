//go:build wasip1

// Command mathwasm is the mathlib export library built as a wasip1 reactor.
// Each export forwards to the guarded export table.
//
// Build:
//
//	exportcheck plan --profile cmd/mathwasm/profile.yaml
package main

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
		fmt.Fprintf(os.Stderr, "mathwasm: %v\n", err)
		os.Exit(boundary.AbortExitCode)
	}
	return t
}

func call(name string, args ...uint32) int32 {
	return int32(table.Call(context.Background(), name, args...))
}

//go:wasmexport add
func add(a, b int32) int32 {
	return call("add", uint32(a), uint32(b))
}

//go:wasmexport checked_add
func checkedAdd(a, b int32) int32 {
	return call("checked_add", uint32(a), uint32(b))
}

//go:wasmexport divide
func divide(a, b int32) int32 {
	return call("divide", uint32(a), uint32(b))
}

//go:wasmexport invariant
func invariant() int32 {
	return call("invariant")
}

//go:wasmexport vtab_entry
func vtabEntry(i int32) int32 {
	return call("vtab_entry", uint32(i))
}

func main() {}
