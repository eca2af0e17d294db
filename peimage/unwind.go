package peimage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// personalityStems identify routines that exist only to drive stack
// unwinding: C++ and Rust personalities, the libgcc unwinder and the MSVC
// frame handlers. Leading underscores are ignored when matching.
var personalityStems = []string{
	"gxx_personality_",
	"gcc_personality_",
	"Unwind_Resume",
	"Unwind_RaiseException",
	"Unwind_ForcedUnwind",
	"Unwind_SjLj_",
	"CxxFrameHandler",
	"CxxThrowException",
	"except_handler3",
	"except_handler4",
	"C_specific_handler",
	"rust_eh_personality",
}

// unwindSections hold unwind tables. Their presence alone does not mean a
// failure can propagate; C compilers emit them by default.
var unwindSections = []string{".eh_frame", ".gcc_except_table", ".pdata", ".xdata"}

// UnwindReport lists the unwinding machinery found in an image.
type UnwindReport struct {
	// Personalities are imported or defined unwinding routines.
	Personalities []string
	// Sections are sections holding unwind tables.
	Sections []string
}

// Clean reports whether no unwinding routine is linked.
func (r UnwindReport) Clean() bool {
	return len(r.Personalities) == 0
}

func isPersonality(sym string) bool {
	s := strings.TrimLeft(sym, "_")
	if at := strings.LastIndexByte(s, '@'); at > 0 {
		s = s[:at]
	}
	for _, stem := range personalityStems {
		if strings.HasPrefix(s, stem) {
			return true
		}
	}
	return false
}

// Unwind scans imports, symbols and sections for unwinding support.
func (img *Image) Unwind() UnwindReport {
	var r UnwindReport
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			r.Personalities = append(r.Personalities, name)
		}
	}
	for _, imp := range img.Imports {
		if isPersonality(imp.Name) {
			add(imp.Name)
		}
	}
	for _, sym := range img.Symbols {
		if isPersonality(sym) {
			add(sym)
		}
	}
	for _, s := range img.Sections {
		for _, u := range unwindSections {
			if s == u {
				r.Sections = append(r.Sections, s)
			}
		}
	}
	sort.Strings(r.Personalities)
	return r
}

// CheckUnwind reports every linked unwinding routine as an error and every
// unwind table section as information.
func CheckUnwind(img *Image) *entities.Report {
	report := entities.NewReport(img.Path)
	u := img.Unwind()
	for _, p := range u.Personalities {
		report.Add(entities.Finding{
			Severity: entities.SeverityError,
			Rule:     "unwind-personality",
			Message:  fmt.Sprintf("unwinding routine %s is linked", p),
		})
	}
	for _, s := range u.Sections {
		report.Add(entities.Finding{
			Severity: entities.SeverityInfo,
			Rule:     "unwind-section",
			Message:  fmt.Sprintf("section %s holds unwind tables", s),
		})
	}
	return report
}

// CheckLibrary reports structural problems with img as an export library:
// it must be a 32-bit x86 DLL with at least one named export and no linked
// unwinding routines.
func CheckLibrary(img *Image) *entities.Report {
	report := entities.NewReport(img.Path)
	if !img.IsDLL {
		report.Addf("not-dll", "", "image is not a DLL")
	}
	if !img.Is32Bit || img.Machine != 0x014c {
		report.Addf("machine", "", "image targets machine 0x%04x, want i386 PE32", img.Machine)
	}
	named := 0
	for _, e := range img.Exports {
		if e.Name != "" {
			named++
		}
	}
	if named == 0 {
		report.Addf("no-exports", "", "image exports no named functions")
	}
	report.Merge(CheckUnwind(img))
	return report
}
