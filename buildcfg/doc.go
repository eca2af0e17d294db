// Package buildcfg turns a build profile into the exact toolchain
// invocation that produces an export library.
//
// A profile names the library, the Go package that implements it, the
// target, and the external compiler and linker:
//
//	library: mathlib
//	package: ./cmd/mathdll
//	target: {goos: windows, goarch: "386"}
//	linker:
//	  cc: i686-w64-mingw32-gcc
//	  def_file: cmd/mathdll/mathlib.def
//
// Plan never guesses: every toolchain input comes from the profile or from a
// documented default, and a profile that would let failures unwind across
// exported functions is rejected. Builds are isolated from enclosing Go
// workspaces unless the profile sets isolated: false, in which case
// CheckIsolation verifies that the workspace cannot leak settings into the
// build.
package buildcfg
