package bundler

import (
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

const globalsNamespace = "toolkit-global"

var sourceLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// helperRuntimes matches imports of the packages that provide syntax helpers at runtime
const helperRuntimes = `^(@babel/runtime(-corejs[23])?|tslib)(/|$)`

// externalsPlugin keeps helper runtime imports out of the bundle. Other dependencies are bundled
// unless the manifest lists them as external.
func externalsPlugin() api.Plugin {
	return api.Plugin{
		Name: "toolkit-externals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: helperRuntimes}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveEntryPoint {
					return api.OnResolveResult{}, nil
				}

				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
		},
	}
}

// globalsPlugin replaces imports of the given modules with reads of global variables
func globalsPlugin(globals map[string]string) api.Plugin {
	modules := make([]string, 0, len(globals))
	for module := range globals {
		modules = append(modules, regexp.QuoteMeta(module))
	}
	sort.Strings(modules)
	filter := "^(" + strings.Join(modules, "|") + ")$"

	return api.Plugin{
		Name: "toolkit-globals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{Path: args.Path, Namespace: globalsNamespace}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: globalsNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents := "module.exports = globalThis[" + strconv.Quote(globals[args.Path]) + "];"
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}

// downlevelPlugin lowers the project's own sources to target while dependencies are bundled untouched
func downlevelPlugin(target api.Target, tsconfig string, sourceMap bool) (api.Plugin, error) {
	tsconfigRaw, err := readTsconfig(tsconfig)
	if err != nil {
		return api.Plugin{}, err
	}

	dependencyDir := string(filepath.Separator) + toolkit.DependencyFolder + string(filepath.Separator)

	return api.Plugin{
		Name: "toolkit-downlevel",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.(m|c)?(j|t)sx?$`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if strings.Contains(args.Path, dependencyDir) {
					return api.OnLoadResult{}, nil
				}

				loader, ok := sourceLoaders[filepath.Ext(args.Path)]
				if !ok {
					return api.OnLoadResult{}, nil
				}

				source, err := ioutil.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, eris.Wrapf(err, "failed to read %s", args.Path)
				}

				opts := api.TransformOptions{
					Loader:      loader,
					Target:      target,
					Sourcefile:  args.Path,
					TsconfigRaw: tsconfigRaw,
				}
				if sourceMap {
					opts.Sourcemap = api.SourceMapInline
				}

				result := api.Transform(string(source), opts)
				if len(result.Errors) > 0 {
					return api.OnLoadResult{}, &BuildError{Messages: convertMessages(result.Errors)}
				}

				contents := string(result.Code)
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderJS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}, nil
}

// eventsPlugin reports the start and end of every build to emit
func eventsPlugin(emit func(Event)) api.Plugin {
	return api.Plugin{
		Name: "toolkit-events",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				emit(Event{Code: EventBundleStart})
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				warnings := convertMessages(result.Warnings)
				if len(result.Errors) > 0 {
					emit(Event{Code: EventError, Error: &BuildError{Messages: convertMessages(result.Errors)}, Warnings: warnings})
				} else {
					emit(Event{Code: EventBundleEnd, Warnings: warnings})
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func convertMessages(msgs []api.Message) []toolkit.Message {
	result := make([]toolkit.Message, len(msgs))
	for idx, msg := range msgs {
		result[idx] = toolkit.Message{
			Text:   msg.Text,
			Plugin: msg.PluginName,
		}

		if msg.Location != nil {
			result[idx].File = msg.Location.File
			result[idx].Line = msg.Location.Line
			result[idx].Column = msg.Location.Column
		}
	}
	return result
}
