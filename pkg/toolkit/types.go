package toolkit

// Format is a format tag as written in the manifest
type Format string

// Recognized format tags
const (
	FormatCJS Format = "cjs"
	FormatES  Format = "es"
	FormatESM Format = "esm"
	FormatUMD Format = "umd"
)

// ModuleShape is the module system the engine emits for a format
type ModuleShape string

const (
	ModuleCommonJS ModuleShape = "cjs"
	ModuleES       ModuleShape = "es"
	ModuleUMD      ModuleShape = "umd"
)

// Mode is the ambient build mode
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// SourceMapMode controls source map emission for an output
type SourceMapMode string

const (
	SourceMapNone   SourceMapMode = "none"
	SourceMapInline SourceMapMode = "inline"
)

// ExportsNamed is the only export style produced
const ExportsNamed = "named"

// DistDir is the output root relative to the project root
const DistDir = "dist"

// Env carries the ambient state every mapper depends on. It is passed explicitly instead of being
// read from the process.
type Env struct {
	Mode Mode
	// Root is the project root (the working directory); tsconfig files are searched here.
	Root string
}

// Message is a diagnostic produced by the engine
type Message struct {
	Text   string
	File   string
	Line   int
	Column int
	Plugin string
}

// WarningHandler receives engine warnings instead of the default logger
type WarningHandler func(Message)

// ToolkitConfig is the declared content of a manifest
type ToolkitConfig struct {
	Input          string
	OutputFileName string
	Formats        []Format
	External       []string
	// Name is the module name used by global formats.
	Name       string
	Globals    map[string]string
	Extensions []string
	OnWarn     WarningHandler
	Verbose    bool
}

// ConfigArgs is a ToolkitConfig narrowed down to a single format
type ConfigArgs struct {
	Format         Format
	Input          string
	OutputFileName string
	External       []string
	Name           string
	Globals        map[string]string
	Extensions     []string
	OnWarn         WarningHandler
}

// OutputDescriptor describes where and how one format is written
type OutputDescriptor struct {
	Format    Format
	Module    ModuleShape
	File      string
	Exports   string
	SourceMap SourceMapMode
	Name      string
	Globals   map[string]string
}

// BuildConfiguration is the complete configuration for one format
type BuildConfiguration struct {
	Input    string
	External []string
	Output   *OutputDescriptor
	Stages   []Stage
	OnWarn   WarningHandler
}

// DefaultExtensions are resolved when the manifest doesn't list any
var DefaultExtensions = []string{".ts", ".tsx", ".mjs", ".js", ".json"}

// Describe returns a short label used in log lines
func (c *BuildConfiguration) Describe() string {
	if c.Output == nil {
		return c.Input
	}
	return string(c.Output.Format) + " -> " + c.Output.File
}
