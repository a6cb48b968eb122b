package manifest

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// Options controls how a manifest is loaded
type Options struct {
	// ProjectRoot is the directory "//" paths are relative to.
	ProjectRoot string
	// Compile runs the manifest from a compiled program in a temporary file instead of executing the
	// source directly.
	Compile     bool
	Development bool
}

type parserCtx struct {
	ctx         context.Context
	yamlCache   map[string]interface{}
	filepath    string
	projectRoot string
	config      *toolkit.ToolkitConfig
}

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func starlarkIterable2stringSlice(input starlarkIterable, field string) ([]string, error) {
	if value, ok := input.(*starlark.List); ok && value == nil {
		return []string{}, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		default:
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
	}
	return result, nil
}

func starlarkDict2stringMap(dict *starlark.Dict, field string) (map[string]string, error) {
	if dict == nil {
		return nil, nil
	}

	result := make(map[string]string, dict.Len())
	for _, item := range dict.Items() {
		key, ok := item[0].(starlark.String)
		if !ok {
			return nil, eris.Errorf("found key type %s in %s but only strings are supported", item[0].Type(), field)
		}

		value, ok := item[1].(starlark.String)
		if !ok {
			return nil, eris.Errorf("found value of type %s for key %s in %s but only strings are supported",
				item[1].Type(), key.GoString(), field)
		}

		result[key.GoString()] = value.GoString()
	}
	return result, nil
}

// toolkitBuiltin implements toolkit(). It records the manifest options and returns None.
func toolkitBuiltin(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var input starlark.Value
	var output string
	var formats *starlark.List
	var external *starlark.List
	var extensions *starlark.List
	var globals *starlark.Dict
	var onWarn starlark.Callable

	cfg := new(toolkit.ToolkitConfig)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "input", &input, "output", &output, "format", &formats,
		"external?", &external, "name?", &cfg.Name, "globals?", &globals, "extensions?", &extensions,
		"verbose?", &cfg.Verbose, "on_warn?", &onWarn)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if ctx.config != nil {
		return nil, eris.New("toolkit() can only be called once per manifest")
	}

	inputPath, isPath, err := stringOrPath(input, "input")
	if err != nil {
		return nil, err
	}
	if inputPath == "" {
		return nil, eris.New("input must not be empty")
	}
	if isPath {
		rel, err := filepath.Rel(ctx.projectRoot, inputPath)
		if err == nil {
			inputPath = rel
		}
	}
	cfg.Input = filepath.ToSlash(inputPath)

	if output == "" {
		return nil, eris.New("output must not be empty")
	}
	// the name is placed inside dist/<format>/ and must stay there
	if output == "." || output == ".." || strings.ContainsAny(output, `/\`) {
		return nil, eris.Errorf("output %q must be a file name without directories", output)
	}
	cfg.OutputFileName = output

	formatNames, err := starlarkIterable2stringSlice(formats, "format")
	if err != nil {
		return nil, err
	}
	if len(formatNames) == 0 {
		return nil, eris.New("format must list at least one format")
	}

	cfg.Formats = make([]toolkit.Format, len(formatNames))
	for idx, name := range formatNames {
		cfg.Formats[idx] = toolkit.Format(name)
	}

	cfg.External, err = starlarkIterable2stringSlice(external, "external")
	if err != nil {
		return nil, err
	}

	cfg.Extensions, err = starlarkIterable2stringSlice(extensions, "extensions")
	if err != nil {
		return nil, err
	}

	cfg.Globals, err = starlarkDict2stringMap(globals, "globals")
	if err != nil {
		return nil, err
	}

	if onWarn != nil {
		cfg.OnWarn = warningHandler(ctx.ctx, onWarn)
	}

	ctx.config = cfg
	return starlark.None, nil
}

// warningHandler wraps a Starlark callable. Watch mode reports warnings from several goroutines so
// calls are serialized.
func warningHandler(ctx context.Context, fn starlark.Callable) toolkit.WarningHandler {
	var lock sync.Mutex

	return func(msg toolkit.Message) {
		lock.Lock()
		defer lock.Unlock()

		thread := &starlark.Thread{
			Name: "on_warn",
			Print: func(thread *starlark.Thread, msg string) {
				tklog.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
			},
		}

		warning := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"text":   starlark.String(msg.Text),
			"file":   starlark.String(msg.File),
			"line":   starlark.MakeInt(msg.Line),
			"column": starlark.MakeInt(msg.Column),
			"plugin": starlark.String(msg.Plugin),
		})

		_, err := starlark.Call(thread, fn, starlark.Tuple{warning}, nil)
		if err != nil {
			tklog.Log(ctx).Error().Err(err).Msg("on_warn failed")
		}
	}
}

func predeclared(opts Options) starlark.StringDict {
	return starlark.StringDict{
		"OS":           starlark.String(runtime.GOOS),
		"ARCH":         starlark.String(runtime.GOARCH),
		"DEVELOPMENT":  starlark.Bool(opts.Development),
		"info":         starlark.NewBuiltin("info", logBuiltin(zerolog.InfoLevel)),
		"warn":         starlark.NewBuiltin("warn", logBuiltin(zerolog.WarnLevel)),
		"error":        starlark.NewBuiltin("error", starError),
		"resolve_path": starlark.NewBuiltin("resolve_path", resolvePath),
		"getenv":       starlark.NewBuiltin("getenv", getenv),
		"read_yaml":    starlark.NewBuiltin("read_yaml", readYaml),
		"isdir":        starlark.NewBuiltin("isdir", statBuiltin(isDir)),
		"isfile":       starlark.NewBuiltin("isfile", statBuiltin(isRegular)),
		"toolkit":      starlark.NewBuiltin("toolkit", toolkitBuiltin),
	}
}

// Load executes the manifest at filename and returns the options it declared with toolkit().
func Load(ctx context.Context, filename string, opts Options) (*toolkit.ToolkitConfig, error) {
	projectRoot, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, err
	}

	filename, err = filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filename); err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return nil, faults.New(faults.FileNotFound, "File not found: %s", filename)
		}
		return nil, eris.Wrapf(err, "failed to check %s", filename)
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			tklog.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:         ctx,
		filepath:    filename,
		projectRoot: projectRoot,
		yamlCache:   make(map[string]interface{}),
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read file")
	}

	builtins := predeclared(opts)
	displayName := simplifyPath(&threadCtx, filename)

	var globals starlark.StringDict
	if opts.Compile {
		globals, err = runCompiled(ctx, thread, displayName, script, builtins)
	} else {
		globals, err = starlark.ExecFile(thread, displayName, script, builtins)
	}

	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, faults.New(faults.ManifestInvalid, "failed to execute %s:\n%s", displayName, evalError.Backtrace())
		}
		return nil, faults.Wrap(faults.ManifestInvalid, err, "failed to execute %s", displayName)
	}
	globals.Freeze()

	if threadCtx.config == nil {
		return nil, faults.New(faults.ManifestInvalid, "%s did not call toolkit()", displayName)
	}

	return threadCtx.config, nil
}
