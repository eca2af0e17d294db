package exportlint

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// shim is a C function exported from the DLL.
type shim struct {
	name    string
	params  int
	stdcall bool
	body    string
	pos     string
}

var dllexportDef = regexp.MustCompile(`__declspec\(dllexport\)([^;{(]*?)(\w+)\s*\(([^)]*)\)\s*\{`)

// parseShims finds dllexport function definitions. It does not run the
// preprocessor; shims are expected to be written out literally.
func parseShims(csrc map[string][]byte) []shim {
	paths := make([]string, 0, len(csrc))
	for p := range csrc {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []shim
	for _, path := range paths {
		src := string(csrc[path])
		for _, m := range dllexportDef.FindAllStringSubmatchIndex(src, -1) {
			qualifiers := src[m[2]:m[3]]
			s := shim{
				name:    src[m[4]:m[5]],
				params:  countCParams(src[m[6]:m[7]]),
				stdcall: strings.Contains(qualifiers, "__stdcall") || strings.Contains(qualifiers, "WINAPI"),
				body:    functionBody(src, m[1]),
				pos:     fmt.Sprintf("%s:%d", path, strings.Count(src[:m[0]], "\n")+1),
			}
			out = append(out, s)
		}
	}
	return out
}

func countCParams(list string) int {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return 0
	}
	return strings.Count(list, ",") + 1
}

// functionBody returns the text from start up to the matching close brace.
func functionBody(src string, start int) string {
	depth := 1
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start:i]
			}
		}
	}
	return src[start:]
}

func shimsCalling(shims []shim, symbol string) []shim {
	call := regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\s*\(`)
	var out []shim
	for _, s := range shims {
		if s.stdcall && call.MatchString(s.body) {
			out = append(out, s)
		}
	}
	return out
}
