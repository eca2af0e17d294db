package entities

import (
	"fmt"
	"sort"
)

// ExportManifest is the published contract of a library: the set of
// exports callers may bind to and the convention they all share.
type ExportManifest struct {
	Library     string             `json:"library" yaml:"library" validate:"required"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Convention  Convention         `json:"convention" yaml:"convention" validate:"required,oneof=stdcall cdecl" jsonschema:"enum=stdcall,enum=cdecl"`
	Exports     []ExportedFunction `json:"exports" yaml:"exports" validate:"required,min=1,dive"`
}

// Lookup returns the export with the given name.
func (m *ExportManifest) Lookup(name string) (ExportedFunction, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return ExportedFunction{}, false
}

// Names returns the export names in sorted order.
func (m *ExportManifest) Names() []string {
	names := make([]string, 0, len(m.Exports))
	for _, e := range m.Exports {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Normalize fills each export's convention from the manifest default.
func (m *ExportManifest) Normalize() {
	for i := range m.Exports {
		if m.Exports[i].Convention == "" {
			m.Exports[i].Convention = m.Convention
		}
		if m.Exports[i].Result == "" {
			m.Exports[i].Result = KindI32
		}
	}
}

// Invariants checks the structural rules that struct tags cannot express:
// names and pinned ordinals are unique and every export uses the manifest
// convention. It returns one error per violation.
func (m *ExportManifest) Invariants() []error {
	var errs []error
	names := make(map[string]bool, len(m.Exports))
	ordinals := make(map[uint16]string, len(m.Exports))
	for _, e := range m.Exports {
		if names[e.Name] {
			errs = append(errs, fmt.Errorf("duplicate export name %q", e.Name))
		}
		names[e.Name] = true

		if e.Ordinal != 0 {
			if prev, ok := ordinals[e.Ordinal]; ok {
				errs = append(errs, fmt.Errorf("ordinal %d used by both %q and %q", e.Ordinal, prev, e.Name))
			} else {
				ordinals[e.Ordinal] = e.Name
			}
		}

		if c := e.EffectiveConvention(); c != m.Convention {
			errs = append(errs, fmt.Errorf("export %q uses %s, library convention is %s", e.Name, c, m.Convention))
		}
	}
	return errs
}
