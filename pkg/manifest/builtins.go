package manifest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// resolve_path(part, ..., base = None) joins parts relative to the manifest and returns a path value.
// With base the result is made relative to base.
func resolvePath(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx := getCtx(thread)

	var baseValue starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), nil, kwargs, "base?", &baseValue); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return nil, eris.Errorf("%s: expects at least one argument", fn.Name())
	}

	parts := make([]string, len(args))
	for idx, arg := range args {
		part, ok := starlark.AsString(arg)
		if !ok {
			return nil, eris.Errorf("%s: argument %d is a %s, want string", fn.Name(), idx+1, arg.Type())
		}
		parts[idx] = part
	}

	result := normalizePath(ctx, parts...)

	base, _, err := stringOrPath(baseValue, "base")
	if err != nil {
		return nil, err
	}
	if base != "" {
		result, err = filepath.Rel(normalizePath(ctx, base), result)
		if err != nil {
			return nil, err
		}
	}

	return StarlarkPath(result), nil
}

// logBuiltin returns info() or warn(), which log their argument with the manifest position
func logBuiltin(level zerolog.Level) builtinFunc {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var message string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
			return nil, err
		}

		report(thread, level, message)
		return starlark.None, nil
	}
}

// error(message) aborts the manifest
func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

// getenv(key, default = "")
func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key, fallback string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key, &fallback); err != nil {
		return nil, err
	}

	if value, ok := os.LookupEnv(key); ok {
		return starlark.String(value), nil
	}
	return starlark.String(fallback), nil
}

// read_yaml(file, key, default = None) looks up a dotted key in a YAML or JSON document, e.g.
// read_yaml("package.json", "dependencies", {}). An empty key returns the whole document.
func readYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var file, key string
	var fallback starlark.Value = starlark.None
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &file, &key, &fallback); err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	file = normalizePath(ctx, file)

	doc, err := ctx.document(file)
	if err != nil {
		return nil, err
	}

	value := lookupKey(doc, key)
	if value == nil {
		return fallback, nil
	}

	converted, err := toStarlark(value)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to convert %s from %s", key, file)
	}
	return converted, nil
}

// document returns the parsed content of file. Documents are parsed once per manifest evaluation.
func (ctx *parserCtx) document(file string) (interface{}, error) {
	if doc, ok := ctx.yamlCache[file]; ok {
		return doc, nil
	}

	content, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open file %s", file)
	}

	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, eris.Wrapf(err, "failed to parse file %s", file)
	}

	ctx.yamlCache[file] = doc
	return doc, nil
}

func lookupKey(doc interface{}, key string) interface{} {
	if key == "" {
		return doc
	}

	value := doc
	for _, part := range strings.Split(key, ".") {
		switch current := value.(type) {
		case map[string]interface{}:
			value = current[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(current) {
				return nil
			}
			value = current[idx]
		default:
			return nil
		}
	}
	return value
}

// statBuiltin returns isfile() or isdir()
func statBuiltin(check func(os.FileInfo) bool) builtinFunc {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path); err != nil {
			return nil, err
		}

		info, err := os.Stat(normalizePath(getCtx(thread), path))
		return starlark.Bool(err == nil && check(info)), nil
	}
}

func isRegular(info os.FileInfo) bool { return info.Mode().IsRegular() }
func isDir(info os.FileInfo) bool     { return info.IsDir() }
