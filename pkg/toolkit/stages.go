package toolkit

// Stage is one step of the bundler pipeline. Stages are plain descriptors; pkg/bundler translates
// them into engine options. Order matters since every stage consumes the output of the one before it.
type Stage interface {
	StageName() string
}

// HelperMode controls how syntax helpers of the downleveling stage are provided
type HelperMode string

const (
	// HelpersRuntime imports helper runtime packages (@babel/runtime, tslib) instead of inlining them.
	HelpersRuntime HelperMode = "runtime"
	// HelpersESModules is HelpersRuntime with ES-module-aware resolution.
	HelpersESModules HelperMode = "esm-runtime"
	// HelpersBundled inlines everything into the output.
	HelpersBundled HelperMode = "bundled"
)

// DependencyFolder is the folder excluded from transformation when a stage asks for it
const DependencyFolder = "node_modules"

// ResolveStage resolves imports
type ResolveStage struct {
	Extensions []string
	External   []string
	MainFields []string
}

// TypeScriptStage strips types using the discovered tsconfig
type TypeScriptStage struct {
	Tsconfig   string
	SourceMap  bool
	SourceRoot string
}

// JSONStage allows importing .json files
type JSONStage struct{}

// DownlevelStage lowers syntax to Target
type DownlevelStage struct {
	Helpers             HelperMode
	Target              string
	ExcludeDependencies bool
}

// ReplaceStage substitutes identifiers with constant expressions
type ReplaceStage struct {
	Values map[string]string
}

// MinifyStage minifies the bundle
type MinifyStage struct {
	Whitespace  bool
	Identifiers bool
	Syntax      bool
}

func (ResolveStage) StageName() string    { return "resolve" }
func (TypeScriptStage) StageName() string { return "typescript" }
func (JSONStage) StageName() string       { return "json" }
func (DownlevelStage) StageName() string  { return "downlevel" }
func (ReplaceStage) StageName() string    { return "replace" }
func (MinifyStage) StageName() string     { return "minify" }

// StageNames lists the names of stages in order
func StageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for idx, stage := range stages {
		names[idx] = stage.StageName()
	}
	return names
}
