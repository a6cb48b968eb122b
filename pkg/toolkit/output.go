package toolkit

import (
	"path"
)

// OutputOptions are the inputs of GetOutput
type OutputOptions struct {
	Format Format
	Module ModuleShape
	// Ext defaults to "js".
	Ext      string
	FileName string
	Name     string
	Globals  map[string]string
}

// GetOutput builds the output descriptor for a single format
func GetOutput(env Env, opts OutputOptions) OutputDescriptor {
	ext := opts.Ext
	if ext == "" {
		ext = "js"
	}

	module := opts.Module
	if module == "" {
		module = ModuleShape(opts.Format)
	}

	output := OutputDescriptor{
		Format:    opts.Format,
		Module:    module,
		File:      path.Join(DistDir, string(opts.Format), opts.FileName+"."+ext),
		Exports:   ExportsNamed,
		SourceMap: SourceMapNone,
		Name:      opts.Name,
	}

	if env.Mode == Development {
		output.SourceMap = SourceMapInline
	}

	if len(opts.Globals) > 0 {
		output.Globals = make(map[string]string, len(opts.Globals))
		for k, v := range opts.Globals {
			output.Globals[k] = v
		}
	}

	return output
}
