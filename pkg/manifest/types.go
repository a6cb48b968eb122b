package manifest

import (
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"
)

// StarlarkPath is an absolute path returned by resolve_path(). toolkit() turns it into a path relative
// to the project root while plain strings are taken as they are.
type StarlarkPath string

var _ starlark.Comparable = StarlarkPath("")

func (p StarlarkPath) String() string        { return starlark.String(p).String() }
func (p StarlarkPath) Type() string          { return "path" }
func (p StarlarkPath) Freeze()               {}
func (p StarlarkPath) Truth() starlark.Bool  { return p != "" }
func (p StarlarkPath) Hash() (uint32, error) { return starlark.String(p).Hash() }

func (p StarlarkPath) CompareSameType(op starsyntax.Token, other starlark.Value, depth int) (bool, error) {
	return starlark.String(p).CompareSameType(op, starlark.String(other.(StarlarkPath)), depth)
}

// stringOrPath unpacks a toolkit() argument which may be a string or a path. isPath reports which one it was.
func stringOrPath(value starlark.Value, field string) (result string, isPath bool, err error) {
	switch value := value.(type) {
	case nil, starlark.NoneType:
		return "", false, nil
	case starlark.String:
		return value.GoString(), false, nil
	case StarlarkPath:
		return string(value), true, nil
	}

	return "", false, eris.Errorf("%s: got %s, want string or path", field, value.Type())
}
