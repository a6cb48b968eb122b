package toolkit

import (
	"strconv"
)

// PluginOptions are the inputs of GetPlugins
type PluginOptions struct {
	Format              Format
	Extensions          []string
	External            []string
	Helpers             HelperMode
	Target              string
	ExcludeDependencies bool
	// Minify overrides the mode default (minify in production) when set.
	Minify *bool
}

// GetPlugins returns the ordered stage list for a format: resolve, typescript, json, downlevel,
// replace and, when minifying, minify.
func GetPlugins(env Env, opts PluginOptions) ([]Stage, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	resolve := ResolveStage{
		Extensions: append([]string(nil), extensions...),
		External:   append([]string(nil), opts.External...),
	}
	if opts.Helpers == HelpersESModules {
		resolve.MainFields = []string{"module", "main"}
	}

	stages := []Stage{resolve}

	tsconfig, err := FindTsconfig(env, opts.Format)
	if err != nil {
		return nil, err
	}

	ts := TypeScriptStage{Tsconfig: tsconfig}
	if env.Mode == Development {
		ts.SourceMap = true
		ts.SourceRoot = env.Root
	}
	stages = append(stages, ts)

	stages = append(stages, JSONStage{})

	helpers := opts.Helpers
	if helpers == "" {
		helpers = HelpersBundled
	}
	stages = append(stages, DownlevelStage{
		Helpers:             helpers,
		Target:              opts.Target,
		ExcludeDependencies: opts.ExcludeDependencies,
	})

	stages = append(stages, ReplaceStage{
		Values: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(string(env.Mode)),
		},
	})

	minify := env.Mode == Production
	if opts.Minify != nil {
		minify = *opts.Minify
	}

	if minify {
		stages = append(stages, MinifyStage{
			Whitespace:  true,
			Identifiers: true,
			Syntax:      true,
		})
	}

	return stages, nil
}
