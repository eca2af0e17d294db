package peimage

import (
	"strconv"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// Comparison is the result of comparing two builds of one library.
type Comparison struct {
	// SameContract is true when every export of the old image is present in
	// the new one at the same ordinal with the same forwarding.
	SameContract bool
	// BytesDiffer is true when the files are not byte-identical.
	BytesDiffer bool
	Report      *entities.Report
}

// Compare checks that b exposes the same export surface as a. Byte-level
// differences such as timestamps, code layout or linker version are expected
// when the toolchain changes and are not findings.
func Compare(a, b *Image) *Comparison {
	report := entities.NewReport(b.Path)

	if a.Machine != b.Machine || a.Is32Bit != b.Is32Bit {
		report.Addf("machine-changed", "", "machine 0x%04x -> 0x%04x", a.Machine, b.Machine)
	}
	if a.IsDLL != b.IsDLL {
		report.Addf("kind-changed", "", "DLL flag %t -> %t", a.IsDLL, b.IsDLL)
	}

	key := func(e entities.ExportSymbol) string {
		if e.Name != "" {
			return e.Name
		}
		return "#" + strconv.Itoa(int(e.Ordinal))
	}
	before := make(map[string]entities.ExportSymbol, len(a.Exports))
	for _, e := range a.Exports {
		before[key(e)] = e
	}
	after := make(map[string]entities.ExportSymbol, len(b.Exports))
	for _, e := range b.Exports {
		after[key(e)] = e
	}

	for _, e := range a.Exports {
		k := key(e)
		n, ok := after[k]
		switch {
		case !ok:
			report.Addf("export-removed", k, "export is missing from the new image")
		case n.Ordinal != e.Ordinal:
			report.Addf("ordinal-changed", k, "ordinal %d -> %d", e.Ordinal, n.Ordinal)
		case n.Forwarder != e.Forwarder:
			report.Addf("forwarder-changed", k, "forwarder %q -> %q", e.Forwarder, n.Forwarder)
		}
	}
	for _, e := range b.Exports {
		if _, ok := before[key(e)]; !ok {
			report.Add(entities.Finding{
				Severity: entities.SeverityInfo,
				Rule:     "export-added",
				Export:   key(e),
				Message:  "export is new in this image",
			})
		}
	}

	return &Comparison{
		SameContract: report.Passed(),
		BytesDiffer:  a.SHA256 != b.SHA256,
		Report:       report,
	}
}
