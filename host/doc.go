// Package host loads export libraries and calls them the way a foreign
// caller would: by name, with raw 32-bit argument slots.
//
// Three hosts implement ports.Library:
//   - TableLibrary calls an in-process boundary.ExportTable.
//   - WasmLibrary runs the library compiled for wasip1 under wazero. A guest
//     that aborts exits its instance; the exit code is reported as an
//     *errors.AbortError and the instance refuses further calls.
//   - NativeLibrary loads a PE32 DLL on windows/386 and calls its stdcall
//     exports through golang.org/x/sys/windows.
package host
