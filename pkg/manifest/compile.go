package manifest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"

	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
)

// WriteCompiled compiles the manifest source and writes the resulting program to file
func WriteCompiled(file, name string, script []byte, builtins starlark.StringDict) error {
	_, prog, err := starlark.SourceProgram(name, script, builtins.Has)
	if err != nil {
		return err
	}

	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	err = prog.Write(handle)
	if err != nil {
		return err
	}

	return handle.Close()
}

// ReadCompiled loads a program written by WriteCompiled and runs its top-level statements
func ReadCompiled(thread *starlark.Thread, file string, builtins starlark.StringDict) (starlark.StringDict, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	prog, err := starlark.CompiledProgram(handle)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to decode %s", file)
	}

	return prog.Init(thread, builtins)
}

func runCompiled(ctx context.Context, thread *starlark.Thread, name string, script []byte, builtins starlark.StringDict) (starlark.StringDict, error) {
	tempPath := filepath.Join(os.TempDir(), "toolkit-"+nanoid.New()+".starc")
	defer os.Remove(tempPath)

	err := WriteCompiled(tempPath, name, script, builtins)
	if err != nil {
		return nil, err
	}

	tklog.Log(ctx).Debug().Str("path", tempPath).Msgf("compiled %s", name)

	return ReadCompiled(thread, tempPath, builtins)
}
