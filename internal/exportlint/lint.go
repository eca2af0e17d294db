// Package exportlint checks the Go side of an export library at the
// declaration level: every exported entry point takes and returns 32-bit
// scalars only, dispatches through an export table, and, for native builds,
// is reached from a __stdcall shim with the same number of arguments.
package exportlint

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// Rules reported by the linter.
const (
	RuleNonScalar      = "non-scalar-signature"
	RuleMultipleResult = "multiple-results"
	RuleUnguarded      = "unguarded-export"
	RuleMissingShim    = "missing-shim"
	RuleShimArity      = "shim-arity"
	RuleNotStdcall     = "not-stdcall"
	RuleNoExports      = "no-exports"
)

// scalarTypes are the parameter and result types that fit one 32-bit slot.
var scalarTypes = map[string]bool{
	"int32":       true,
	"uint32":      true,
	"uintptr":     true,
	"C.int":       true,
	"C.uint":      true,
	"C.int32_t":   true,
	"C.uint32_t":  true,
	"C.uintptr_t": true,
	"C.DWORD":     true,
	"C.BOOL":      true,
}

// tableCalls are the methods that dispatch through an export table.
var tableCalls = map[string]bool{
	"Call":     true,
	"CallCode": true,
}

// Lint loads the package matching pattern for the target described by env
// (for example GOOS=windows GOARCH=386 CGO_ENABLED=1) and lints it.
func Lint(ctx context.Context, dir, pattern string, env []string) (*entities.Report, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
		Dir:     dir,
		Env:     append(os.Environ(), env...),
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", pattern, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("pattern %s matched %d packages, want 1", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("failed to load %s: %v", pattern, pkg.Errors[0])
	}

	fset := token.NewFileSet()
	var files []*ast.File
	for _, path := range pkg.GoFiles {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	csrc := make(map[string][]byte)
	for _, path := range pkg.OtherFiles {
		if !strings.HasSuffix(path, ".c") {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		csrc[path] = b
	}

	report := LintSources(fset, files, csrc)
	report.Subject = pkg.PkgPath
	return report, nil
}

// exportFunc is one Go function exported to foreign callers.
type exportFunc struct {
	decl   *ast.FuncDecl
	name   string // Go name
	symbol string // exported symbol
	wasm   bool
}

// LintSources lints parsed Go files and the package's C sources.
func LintSources(fset *token.FileSet, files []*ast.File, csrc map[string][]byte) *entities.Report {
	report := entities.NewReport("")

	funcs := make(map[string]*ast.FuncDecl)
	var exports []exportFunc
	for _, f := range files {
		for _, d := range f.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Recv != nil {
				continue
			}
			funcs[fd.Name.Name] = fd
			if sym, wasm, ok := exportDirective(fd); ok {
				exports = append(exports, exportFunc{decl: fd, name: fd.Name.Name, symbol: sym, wasm: wasm})
			}
		}
	}
	tables := tableVars(files, funcs)

	if len(exports) == 0 {
		report.Add(entities.Finding{
			Severity: entities.SeverityWarning,
			Rule:     RuleNoExports,
			Message:  "package has no //export or //go:wasmexport functions",
		})
		return report
	}

	shims := parseShims(csrc)
	for _, s := range shims {
		if !s.stdcall {
			report.Add(entities.Finding{
				Severity: entities.SeverityError,
				Rule:     RuleNotStdcall,
				Export:   s.name,
				Message:  "dllexport function is not declared __stdcall",
				Pos:      s.pos,
			})
		}
	}

	for _, e := range exports {
		pos := fset.Position(e.decl.Pos()).String()
		add := func(rule, format string, args ...any) {
			report.Add(entities.Finding{
				Severity: entities.SeverityError,
				Rule:     rule,
				Export:   e.symbol,
				Message:  fmt.Sprintf(format, args...),
				Pos:      pos,
			})
		}

		checkSignature(e.decl.Type, add)
		if !routesThroughTable(e.decl, funcs, tables) {
			add(RuleUnguarded, "%s does not dispatch through an export table", e.name)
		}
		if e.wasm || len(csrc) == 0 {
			continue
		}

		callers := shimsCalling(shims, e.symbol)
		if len(callers) == 0 {
			add(RuleMissingShim, "no __stdcall shim calls %s", e.symbol)
			continue
		}
		want := paramCount(e.decl.Type)
		for _, s := range callers {
			if s.params != want {
				add(RuleShimArity, "shim %s takes %d arguments, %s takes %d", s.name, s.params, e.symbol, want)
			}
		}
	}
	return report
}

// exportDirective returns the exported symbol of fd, if any.
func exportDirective(fd *ast.FuncDecl) (string, bool, bool) {
	if fd.Doc == nil {
		return "", false, false
	}
	for _, c := range fd.Doc.List {
		if rest, ok := strings.CutPrefix(c.Text, "//export "); ok {
			return strings.TrimSpace(rest), false, true
		}
		if rest, ok := strings.CutPrefix(c.Text, "//go:wasmexport "); ok {
			return strings.TrimSpace(rest), true, true
		}
	}
	return "", false, false
}

func checkSignature(ft *ast.FuncType, add func(rule, format string, args ...any)) {
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			if t := typeString(field.Type); !scalarTypes[t] {
				add(RuleNonScalar, "parameter type %s does not fit a 32-bit slot", t)
			}
		}
	}
	if ft.Results == nil {
		return
	}
	n := 0
	for _, field := range ft.Results.List {
		if len(field.Names) == 0 {
			n++
		} else {
			n += len(field.Names)
		}
		if t := typeString(field.Type); !scalarTypes[t] {
			add(RuleNonScalar, "result type %s does not fit a 32-bit slot", t)
		}
	}
	if n > 1 {
		add(RuleMultipleResult, "exports return at most one value, got %d", n)
	}
}

func paramCount(ft *ast.FuncType) int {
	if ft.Params == nil {
		return 0
	}
	n := 0
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			n++
		} else {
			n += len(field.Names)
		}
	}
	return n
}

func typeString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeString(t.X)
	case *ast.ArrayType:
		return "[]" + typeString(t.Elt)
	case *ast.MapType:
		return "map[" + typeString(t.Key) + "]" + typeString(t.Value)
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.FuncType:
		return "func"
	case *ast.Ellipsis:
		return "..." + typeString(t.Elt)
	}
	return fmt.Sprintf("%T", e)
}

// routesThroughTable reports whether fd calls Call or CallCode on an export
// table directly or through package-level helper functions.
func routesThroughTable(fd *ast.FuncDecl, funcs map[string]*ast.FuncDecl, tables map[string]bool) bool {
	return callsTable(fd, funcs, tables, map[string]bool{})
}

func callsTable(fd *ast.FuncDecl, funcs map[string]*ast.FuncDecl, tables, seen map[string]bool) bool {
	if fd.Body == nil || seen[fd.Name.Name] {
		return false
	}
	seen[fd.Name.Name] = true

	local := localTables(fd, funcs, tables)
	found := false
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if found {
			return false
		}
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fn := call.Fun.(type) {
		case *ast.SelectorExpr:
			if recv, ok := fn.X.(*ast.Ident); ok && tableCalls[fn.Sel.Name] && local[recv.Name] {
				found = true
			}
		case *ast.Ident:
			if helper, ok := funcs[fn.Name]; ok && callsTable(helper, funcs, tables, seen) {
				found = true
			}
		}
		return !found
	})
	return found
}

// tableVars returns the package-level variables that hold an export table,
// either by declared type or by initialisation from a table constructor.
func tableVars(files []*ast.File, funcs map[string]*ast.FuncDecl) map[string]bool {
	tables := make(map[string]bool)
	for _, f := range files {
		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.VAR {
				continue
			}
			for _, spec := range gd.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for i, name := range vs.Names {
					if isTableType(vs.Type) || (i < len(vs.Values) && makesTable(vs.Values[i], funcs)) {
						tables[name.Name] = true
					}
				}
			}
		}
	}
	return tables
}

// localTables extends tables with fd's table-typed parameters and the
// locals it assigns from a table constructor. Locals shadow package names.
func localTables(fd *ast.FuncDecl, funcs map[string]*ast.FuncDecl, tables map[string]bool) map[string]bool {
	local := make(map[string]bool, len(tables))
	for name := range tables {
		local[name] = true
	}
	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			for _, name := range field.Names {
				local[name.Name] = isTableType(field.Type)
			}
		}
	}
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.AssignStmt:
			if s.Tok != token.DEFINE || len(s.Rhs) != 1 {
				return true
			}
			if id, ok := s.Lhs[0].(*ast.Ident); ok {
				local[id.Name] = makesTable(s.Rhs[0], funcs)
			}
		case *ast.ValueSpec:
			for i, name := range s.Names {
				local[name.Name] = isTableType(s.Type) || (i < len(s.Values) && makesTable(s.Values[i], funcs))
			}
		}
		return true
	})
	return local
}

// makesTable reports whether expr calls NewExportTable or a package
// function whose first result is an export table.
func makesTable(expr ast.Expr, funcs map[string]*ast.FuncDecl) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	switch fn := call.Fun.(type) {
	case *ast.SelectorExpr:
		return fn.Sel.Name == "NewExportTable"
	case *ast.Ident:
		if fn.Name == "NewExportTable" {
			return true
		}
		fd, ok := funcs[fn.Name]
		if !ok || fd.Type.Results == nil || len(fd.Type.Results.List) == 0 {
			return false
		}
		return isTableType(fd.Type.Results.List[0].Type)
	}
	return false
}

// isTableType matches *ExportTable and *pkg.ExportTable.
func isTableType(expr ast.Expr) bool {
	star, ok := expr.(*ast.StarExpr)
	if !ok {
		return false
	}
	switch t := star.X.(type) {
	case *ast.Ident:
		return t.Name == "ExportTable"
	case *ast.SelectorExpr:
		return t.Sel.Name == "ExportTable"
	}
	return false
}
