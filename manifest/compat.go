package manifest

import (
	"slices"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// CheckCompatible reports what a candidate manifest breaks for callers
// built against the published one. Removals and changed declarations are
// errors; new exports are informational.
func CheckCompatible(published, candidate *entities.ExportManifest) *entities.Report {
	report := entities.NewReport(candidate.Library)

	if published.Library != candidate.Library {
		report.Addf("library-renamed", "", "library %q -> %q", published.Library, candidate.Library)
	}
	if published.Convention != candidate.Convention {
		report.Addf("convention-changed", "", "library convention %s -> %s", published.Convention, candidate.Convention)
	}

	for _, old := range published.Exports {
		cur, ok := candidate.Lookup(old.Name)
		if !ok {
			report.Addf("export-removed", old.Name, "export is missing from the candidate")
			continue
		}
		if old.SameContract(cur) {
			continue
		}
		if old.EffectiveConvention() != cur.EffectiveConvention() {
			report.Addf("convention-changed", old.Name, "%s -> %s", old.EffectiveConvention(), cur.EffectiveConvention())
		}
		if old.Ordinal != 0 && cur.Ordinal != 0 && old.Ordinal != cur.Ordinal {
			report.Addf("ordinal-changed", old.Name, "ordinal %d -> %d", old.Ordinal, cur.Ordinal)
		}
		if !sameLayout(old, cur) {
			report.Addf("signature-changed", old.Name, "%s -> %s", old.Signature(), cur.Signature())
		}
	}

	for _, e := range candidate.Exports {
		if _, ok := published.Lookup(e.Name); !ok {
			report.Add(entities.Finding{
				Severity: entities.SeverityInfo,
				Rule:     "export-added",
				Export:   e.Name,
				Message:  e.Signature(),
			})
		}
	}
	return report
}

func sameLayout(a, b entities.ExportedFunction) bool {
	return resultKind(a) == resultKind(b) && slices.Equal(a.Params, b.Params)
}

func resultKind(f entities.ExportedFunction) entities.ValueKind {
	if f.Result == "" {
		return entities.KindVoid
	}
	return f.Result
}
