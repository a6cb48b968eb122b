package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"

	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
)

// normalizePath joins the given parts relative to the manifest's directory. A part starting with "//"
// is relative to the project root instead, an absolute part replaces everything before it.
func normalizePath(ctx *parserCtx, parts ...string) string {
	result := filepath.Dir(ctx.filepath)

	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, "//"):
			result = filepath.Join(ctx.projectRoot, part[2:])
		case filepath.IsAbs(part):
			result = part
		case strings.HasPrefix(part, "/"):
			// rooted but without a volume (Windows)
			result = filepath.Join(filepath.VolumeName(result), part)
		default:
			result = filepath.Join(result, part)
		}
	}

	return filepath.Clean(result)
}

// simplifyPath shortens paths inside the project root to the "//" notation used in log messages
func simplifyPath(ctx *parserCtx, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(ctx.projectRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return "//" + filepath.ToSlash(rel)
}

// report logs msg prefixed with the manifest position of the calling Starlark statement
func report(thread *starlark.Thread, level zerolog.Level, msg string) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	tklog.Log(ctx.ctx).WithLevel(level).
		Msgf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filepath), pos.Line, pos.Col, msg)
}

// toStarlark converts decoded YAML / JSON documents into Starlark values. Mappings become dicts with
// sorted keys so that manifests iterate them in a stable order.
func toStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(value), nil
	case bool:
		return starlark.Bool(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case int64:
		return starlark.MakeInt64(value), nil
	case uint64:
		return starlark.MakeUint64(value), nil
	case float64:
		return starlark.Float(value), nil
	case []interface{}:
		items := make([]starlark.Value, len(value))
		for idx, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, eris.Wrapf(err, "item %d", idx)
			}
			items[idx] = converted
		}
		return starlark.NewList(items), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(value))
		for _, key := range keys {
			converted, err := toStarlark(value[key])
			if err != nil {
				return nil, eris.Wrapf(err, "key %s", key)
			}

			err = dict.SetKey(starlark.String(key), converted)
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(value))
		for key, item := range value {
			normalized[fmt.Sprint(key)] = item
		}
		return toStarlark(normalized)
	}

	return nil, eris.Errorf("unsupported value of type %T", value)
}
