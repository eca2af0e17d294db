package manifest

import (
	"sort"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// imageExport is one image symbol after undecorating.
type imageExport struct {
	sym entities.ExportSymbol
	dec entities.Decoration
}

// VerifyImage checks that a built image exports what the manifest promises.
// Image names may be plain ("add") or decorated ("add@8", "_add@8"); both
// forms of one export resolve to the same declaration. A name the manifest
// declares verbatim, such as "_init", is never undecorated.
func VerifyImage(m *entities.ExportManifest, img ports.ExportSource) *entities.Report {
	report := entities.NewReport(m.Library)

	byName := make(map[string][]imageExport)
	for _, sym := range img.ExportSymbols() {
		if sym.Name == "" {
			continue
		}
		dec := undecorate(m, sym.Name)
		byName[dec.Name] = append(byName[dec.Name], imageExport{sym: sym, dec: dec})
	}

	for _, decl := range m.Exports {
		found, ok := byName[decl.Name]
		if !ok {
			report.Addf("export-missing", decl.Name, "image does not export %s", decl.Signature())
			continue
		}
		for _, ie := range found {
			verifySymbol(report, decl, ie)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		found := byName[name]
		if _, ok := m.Lookup(name); !ok {
			report.Add(entities.Finding{
				Severity: entities.SeverityWarning,
				Rule:     "undeclared-export",
				Export:   found[0].sym.Name,
				Message:  "image exports a symbol the manifest does not declare",
			})
		}
	}
	return report
}

func verifySymbol(report *entities.Report, decl entities.ExportedFunction, ie imageExport) {
	if decl.Ordinal != 0 && ie.sym.Ordinal != decl.Ordinal {
		report.Addf("ordinal-drift", decl.Name, "pinned ordinal %d, image has %d", decl.Ordinal, ie.sym.Ordinal)
	}
	if ie.sym.Forwarder != "" {
		report.Addf("forwarded-export", decl.Name, "export is forwarded to %s", ie.sym.Forwarder)
	}
	if decl.EffectiveConvention() == entities.Stdcall && ie.dec.ArgBytes >= 0 && ie.dec.ArgBytes != decl.ArgBytes() {
		report.Addf("decoration-mismatch", decl.Name, "%s pops %d bytes, declaration has %d", ie.sym.Name, ie.dec.ArgBytes, decl.ArgBytes())
	}
	if decl.EffectiveConvention() == entities.Stdcall && ie.dec.Convention == entities.Cdecl {
		report.Addf("convention-mismatch", decl.Name, "%s is a cdecl name, declaration is stdcall", ie.sym.Name)
	}
	if decl.EffectiveConvention() == entities.Cdecl && ie.dec.ArgBytes >= 0 {
		report.Addf("convention-mismatch", decl.Name, "%s is a stdcall name, declaration is cdecl", ie.sym.Name)
	}
}

// undecorate resolves an image symbol to the declaration name it exports.
func undecorate(m *entities.ExportManifest, sym string) entities.Decoration {
	if decl, ok := m.Lookup(sym); ok {
		return entities.Decoration{Name: sym, Convention: decl.EffectiveConvention(), ArgBytes: -1}
	}
	return entities.ParseDecoratedName(sym)
}
