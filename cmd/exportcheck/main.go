// Command exportcheck inspects and verifies stdcall export libraries.
//
//	exportcheck inspect mathlib.dll
//	exportcheck verify mathlib.dll --manifest examples/mathlib/mathlib.yaml
//	exportcheck compare gcc/mathlib.dll lld/mathlib.dll
//	exportcheck plan --profile cmd/mathdll/profile.yaml --with-linker clang
//	exportcheck lint ./cmd/mathdll
package main

import "github.com/stdexport/stdexport-sdk/internal/cli"

func main() {
	cli.Execute()
}
