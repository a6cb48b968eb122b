package bundler

import (
	"io/ioutil"
	"path/filepath"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Options translates cfg into esbuild build options. Relative paths are resolved against root.
func Options(root string, cfg *toolkit.BuildConfiguration) (api.BuildOptions, error) {
	if cfg.Output == nil {
		return api.BuildOptions{}, eris.New("build configuration has no output")
	}

	opts := api.BuildOptions{
		EntryPoints:   []string{cfg.Input},
		Outfile:       cfg.Output.File,
		AbsWorkingDir: root,
		Bundle:        true,
		LogLevel:      api.LogLevelSilent,
		Target:        api.ESNext,
		External:      append([]string{}, cfg.External...),
		Loader:        map[string]api.Loader{},
		Define:        map[string]string{},
	}

	switch cfg.Output.Module {
	case toolkit.ModuleCommonJS:
		opts.Format = api.FormatCommonJS
		opts.Platform = api.PlatformNode
	case toolkit.ModuleES:
		opts.Format = api.FormatESModule
		opts.Platform = api.PlatformNeutral
	case toolkit.ModuleUMD:
		opts.Format = api.FormatIIFE
		opts.Platform = api.PlatformBrowser
		opts.GlobalName = cfg.Output.Name

		// Lets CommonJS consumers require() the bundle as well.
		if identifierPattern.MatchString(cfg.Output.Name) {
			opts.Footer = map[string]string{
				"js": "if (typeof module === \"object\" && module.exports) module.exports = " + cfg.Output.Name + ";",
			}
		}
	default:
		return api.BuildOptions{}, faults.New(faults.UnknownFormat, "Unknown format: %s", cfg.Output.Format)
	}

	if cfg.Output.SourceMap == toolkit.SourceMapInline {
		opts.Sourcemap = api.SourceMapInline
	}

	var tsconfig string
	for _, stage := range cfg.Stages {
		switch s := stage.(type) {
		case toolkit.ResolveStage:
			opts.ResolveExtensions = s.Extensions
			opts.External = appendUnique(opts.External, s.External...)
			opts.MainFields = s.MainFields
		case toolkit.TypeScriptStage:
			tsconfig = s.Tsconfig
			opts.Tsconfig = s.Tsconfig
			opts.SourceRoot = s.SourceRoot
			if s.SourceMap {
				opts.Sourcemap = api.SourceMapInline
			}
		case toolkit.JSONStage:
			opts.Loader[".json"] = api.LoaderJSON
		case toolkit.DownlevelStage:
			target, ok := targets[s.Target]
			if !ok {
				return api.BuildOptions{}, eris.Errorf("unsupported target %s", s.Target)
			}

			if s.ExcludeDependencies {
				plugin, err := downlevelPlugin(target, tsconfig, opts.Sourcemap == api.SourceMapInline)
				if err != nil {
					return api.BuildOptions{}, err
				}
				opts.Plugins = append(opts.Plugins, plugin)
			} else {
				opts.Target = target
			}

			if s.Helpers == toolkit.HelpersRuntime || s.Helpers == toolkit.HelpersESModules {
				opts.Plugins = append(opts.Plugins, externalsPlugin())
			}
		case toolkit.ReplaceStage:
			for key, value := range s.Values {
				opts.Define[key] = value
			}
		case toolkit.MinifyStage:
			opts.MinifyWhitespace = s.Whitespace
			opts.MinifyIdentifiers = s.Identifiers
			opts.MinifySyntax = s.Syntax
		default:
			return api.BuildOptions{}, eris.Errorf("unsupported stage %s", stage.StageName())
		}
	}

	if opts.Platform == api.PlatformNeutral && len(opts.MainFields) == 0 {
		opts.MainFields = []string{"module", "main"}
	}

	if len(cfg.Output.Globals) > 0 {
		opts.Plugins = append(opts.Plugins, globalsPlugin(cfg.Output.Globals))
	}

	return opts, nil
}

func readTsconfig(tsconfig string) (string, error) {
	if tsconfig == "" {
		return "", nil
	}

	content, err := ioutil.ReadFile(filepath.Clean(tsconfig))
	if err != nil {
		return "", eris.Wrapf(err, "failed to read %s", tsconfig)
	}
	return string(content), nil
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		seen[item] = true
	}

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			list = append(list, item)
		}
	}
	return list
}
