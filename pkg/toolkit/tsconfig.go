package toolkit

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
)

// TsconfigCandidates returns the tsconfig file names searched for format, in order
func TsconfigCandidates(mode Mode, format Format) []string {
	candidates := make([]string, 0, 4)
	if mode == Development {
		candidates = append(candidates, "tsconfig."+string(format)+".dev.json", "tsconfig.dev.json")
	}

	return append(candidates, "tsconfig."+string(format)+".json", "tsconfig.json")
}

// FindTsconfig returns the absolute path of the first existing tsconfig candidate in env.Root
func FindTsconfig(env Env, format Format) (string, error) {
	candidates := TsconfigCandidates(env.Mode, format)
	for _, name := range candidates {
		candidate := filepath.Join(env.Root, name)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}

		if err != nil && !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", candidate)
		}
	}

	return "", faults.New(faults.TsconfigNotFound, "tsconfig not found in %s, tried %v", env.Root, candidates)
}
