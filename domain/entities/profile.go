package entities

// FailureStrategy selects what the runtime does with an unrecoverable
// failure.
type FailureStrategy string

const (
	// StrategyAbort terminates the process. It is the only strategy an
	// export library may be built with.
	StrategyAbort FailureStrategy = "abort"
	// StrategyUnwind propagates the failure up the stack.
	StrategyUnwind FailureStrategy = "unwind"
)

// Target is the platform a library is built for.
type Target struct {
	GOOS   string `json:"goos" yaml:"goos" validate:"required,oneof=windows wasip1" jsonschema:"enum=windows,enum=wasip1"`
	GOARCH string `json:"goarch" yaml:"goarch" validate:"required,oneof=386 wasm" jsonschema:"enum=386,enum=wasm"`
}

// Linker names the external toolchain pair used to link a library.
type Linker struct {
	// CC is the C compiler cgo uses for the stdcall shims.
	CC string `json:"cc,omitempty" yaml:"cc,omitempty"`
	// Extld is the external linker. Empty means the same binary as CC.
	Extld string `json:"extld,omitempty" yaml:"extld,omitempty"`
	// Flags are passed through -extldflags.
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	// DefFile is an optional module-definition file pinning names and
	// ordinals.
	DefFile string `json:"def_file,omitempty" yaml:"def_file,omitempty"`
}

// BuildProfile is the explicit configuration of one library build.
type BuildProfile struct {
	Library  string          `json:"library" yaml:"library" validate:"required"`
	Package  string          `json:"package" yaml:"package" validate:"required"`
	Output   string          `json:"output,omitempty" yaml:"output,omitempty"`
	Target   Target          `json:"target" yaml:"target"`
	Linker   Linker          `json:"linker,omitempty" yaml:"linker,omitempty"`
	Strategy FailureStrategy `json:"strategy,omitempty" yaml:"strategy,omitempty" validate:"omitempty,oneof=abort unwind" jsonschema:"enum=abort,enum=unwind"`
	// Isolated builds ignore any enclosing go.work.
	Isolated *bool    `json:"isolated,omitempty" yaml:"isolated,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Manifest string   `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// IsIsolated reports whether the build ignores enclosing workspaces.
// Profiles are isolated unless they opt out.
func (p *BuildProfile) IsIsolated() bool {
	return p.Isolated == nil || *p.Isolated
}

// Native reports whether the profile builds a PE32 DLL.
func (p *BuildProfile) Native() bool {
	return p.Target.GOOS == "windows"
}
