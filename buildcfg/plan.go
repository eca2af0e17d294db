package buildcfg

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
)

// BuildPlan is a fully resolved go build invocation.
type BuildPlan struct {
	Profile *entities.BuildProfile
	// Env holds KEY=VALUE pairs added to the build environment, sorted.
	Env []string
	// Args are the arguments to the go command, starting with "build".
	Args []string
}

// Command returns the full command line.
func (p *BuildPlan) Command() []string {
	return append([]string{"go"}, p.Args...)
}

// String renders the plan as a shell line.
func (p *BuildPlan) String() string {
	parts := make([]string, 0, len(p.Env)+len(p.Args)+1)
	parts = append(parts, p.Env...)
	for _, a := range p.Command() {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// Plan resolves a profile into a build plan. The failure strategy is stamped
// into the boundary package so a library linked any other way refuses to
// build its export table.
func Plan(profile *entities.BuildProfile) (*BuildPlan, error) {
	p := *profile
	ApplyDefaults(&p)

	if p.Strategy != entities.StrategyAbort {
		return nil, &errors.StrategyConflictError{
			Requested: p.Strategy,
			Required:  entities.StrategyAbort,
			Where:     "build of " + p.Library,
		}
	}

	env := map[string]string{
		"GOOS":   p.Target.GOOS,
		"GOARCH": p.Target.GOARCH,
	}
	if p.IsIsolated() {
		env["GOWORK"] = "off"
	}

	ldflags := []string{}
	if p.Native() {
		env["CGO_ENABLED"] = "1"
		env["CC"] = p.Linker.CC
		ldflags = append(ldflags, "-linkmode=external", "-extld="+p.Linker.Extld)
		if ext := extLDFlags(&p); ext != "" {
			ldflags = append(ldflags, "-extldflags", quoteLDFlag(ext))
		}
	} else {
		env["CGO_ENABLED"] = "0"
	}
	ldflags = append(ldflags, "-X", boundary.StrategySymbol+"="+string(p.Strategy))

	args := []string{"build", "-buildmode=c-shared", "-trimpath"}
	if len(p.Tags) > 0 {
		args = append(args, "-tags="+strings.Join(p.Tags, ","))
	}
	args = append(args, "-ldflags="+strings.Join(ldflags, " "), "-o", p.Output, p.Package)

	return &BuildPlan{Profile: &p, Env: sortedEnv(env), Args: args}, nil
}

func extLDFlags(p *entities.BuildProfile) string {
	flags := append([]string(nil), p.Linker.Flags...)
	if p.Linker.DefFile != "" {
		flags = append(flags, filepath.ToSlash(p.Linker.DefFile))
	}
	return strings.Join(flags, " ")
}

// WithLinker returns a copy of profile that differs only in its linker.
func WithLinker(profile *entities.BuildProfile, extld string, flags ...string) *entities.BuildProfile {
	p := *profile
	p.Linker.Extld = extld
	p.Linker.Flags = append([]string(nil), flags...)
	p.Tags = append([]string(nil), profile.Tags...)
	return &p
}

// Diff lists the environment entries and arguments that differ between two
// plans, as "- old" and "+ new" lines.
func Diff(a, b *BuildPlan) []string {
	var out []string
	out = append(out, diffLists(a.Env, b.Env)...)
	out = append(out, diffLists(splitLDFlags(a.Args), splitLDFlags(b.Args))...)
	return out
}

// splitLDFlags expands the -ldflags argument into its parts so a diff names
// the individual linker flag that changed.
func splitLDFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if rest, ok := strings.CutPrefix(a, "-ldflags="); ok {
			for _, f := range splitQuoted(rest) {
				out = append(out, "-ldflags:"+f)
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func diffLists(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, s := range a {
		inA[s] = true
	}
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, "- "+s)
		}
	}
	for _, s := range b {
		if !inA[s] {
			out = append(out, "+ "+s)
		}
	}
	return out
}

func sortedEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// quoteLDFlag quotes one field of -ldflags. The go command splits the value
// on spaces and honors quotes only around a whole field.
func quoteLDFlag(s string) string {
	switch {
	case !strings.ContainsAny(s, " \t'\""):
		return s
	case strings.Contains(s, "'"):
		return `"` + s + `"`
	}
	return "'" + s + "'"
}

func splitQuoted(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'' || r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"$") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
