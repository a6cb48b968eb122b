package runner

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
)

var separator = strings.Repeat("-", 40)

// Build compiles and writes every configuration once
type Build struct {
	Base
}

// NewBuild returns a Build runner using base
func NewBuild(base Base) *Build {
	return &Build{Base: base}
}

// Run processes the configurations sequentially in manifest order. The first failure aborts the run.
func (b *Build) Run(ctx context.Context) error {
	logger := tklog.Log(ctx)

	for idx, cfg := range b.configs {
		if cfg.Output == nil {
			return eris.Errorf("output not found for %s", cfg.Input)
		}

		bundle, err := b.Bundler.Compile(ctx, cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		logger.Info().Msgf("Writing - '%s' bundle to '%s'", cfg.Output.Format, cfg.Output.File)

		err = bundle.Write()
		if err != nil {
			return err
		}

		elapsed := time.Since(start).Milliseconds()

		event := logger.Info().Int("size", bundle.Size())
		compressed, err := bundle.CompressedSize()
		if err != nil {
			logger.Warn().Err(err).Msgf("Failed to measure '%s'", cfg.Output.File)
		} else {
			event = event.Int("brotli", compressed)
		}
		event.Msgf("Writing - Done '%s' bundle to '%s' in %dms", cfg.Output.Format, cfg.Output.File, elapsed)

		if idx < len(b.configs)-1 {
			logger.Info().Msg(separator)
		}
	}

	return nil
}
