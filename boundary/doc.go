// Package boundary is the export boundary of a native library.
//
// Every exported entry point dispatches through an ExportTable. A call is
// either inside the library, where handlers may fail however they like, or
// crossing back to the caller, where the outcome is already a 32-bit result.
// There is no third state: Call never panics and never returns a Go error.
//
// Handlers report recoverable failures by returning an error (or by calling
// Throw from deep inside internal code). The boundary converts those into
// the error codes defined in this package. Anything else that escapes a
// handler, including runtime panics and Fatal, is treated as unrecoverable
// and handed to the table's Aborter, which terminates the process.
//
// Example:
//
//	table, err := boundary.NewExportTable(
//	    boundary.WithLibrary("mathlib"),
//	    boundary.WithExport(entities.NewStdcall("add", entities.KindI32, entities.KindI32),
//	        boundary.Func2(func(_ context.Context, a, b int32) (int32, error) {
//	            return a + b, nil
//	        })),
//	)
//
//	//export goAdd
//	func goAdd(a, b C.int32_t) C.int32_t {
//	    return C.int32_t(int32(table.Call(context.Background(), "add", uint32(a), uint32(b))))
//	}
package boundary
