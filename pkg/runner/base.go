// Package runner drives the bundler for every format declared in the manifest, either once (Build) or
// continuously (Watch).
package runner

import (
	"context"
	"path/filepath"

	"github.com/ZenFlux/rollup-toolkit/pkg/bundler"
	"github.com/ZenFlux/rollup-toolkit/pkg/config"
	"github.com/ZenFlux/rollup-toolkit/pkg/manifest"
	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// Runner is implemented by Build and Watch
type Runner interface {
	LoadConfig(ctx context.Context) error
	Run(ctx context.Context) error
}

// Base loads the manifest and assembles the build configurations
type Base struct {
	// Root is the project root, usually the working directory.
	Root     string
	Settings *config.Settings
	Bundler  bundler.Bundler

	configs []*toolkit.BuildConfiguration
}

// ManifestPath returns the absolute path of the manifest
func (b *Base) ManifestPath() string {
	if filepath.IsAbs(b.Settings.Manifest) {
		return b.Settings.Manifest
	}
	return filepath.Join(b.Root, b.Settings.Manifest)
}

// Env returns the ambient state passed to the config assembler
func (b *Base) Env() toolkit.Env {
	return toolkit.Env{Mode: b.Settings.Mode(), Root: b.Root}
}

// LoadConfig evaluates the manifest and assembles one configuration per declared format.
// Outside development mode the manifest is compiled first.
func (b *Base) LoadConfig(ctx context.Context) error {
	env := b.Env()
	dev := env.Mode == toolkit.Development

	cfg, err := manifest.Load(ctx, b.ManifestPath(), manifest.Options{
		ProjectRoot: b.Root,
		Compile:     !dev,
		Development: dev,
	})
	if err != nil {
		return err
	}

	configs, err := toolkit.GetGlobalConfig(env, cfg)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		b.describe(ctx, configs)
	}

	b.configs = configs
	return nil
}

// Configs returns the configurations assembled by LoadConfig in manifest order
func (b *Base) Configs() []*toolkit.BuildConfiguration {
	return b.configs
}

func (b *Base) describe(ctx context.Context, configs []*toolkit.BuildConfiguration) {
	logger := tklog.Log(ctx)

	for _, cfg := range configs {
		tsconfig := ""
		for _, stage := range cfg.Stages {
			if ts, ok := stage.(toolkit.TypeScriptStage); ok {
				tsconfig = ts.Tsconfig
			}
		}

		if rel, err := filepath.Rel(b.Root, tsconfig); err == nil {
			tsconfig = rel
		}

		logger.Info().
			Str("format", string(cfg.Output.Format)).
			Strs("stages", toolkit.StageNames(cfg.Stages)).
			Msgf("Using '%s' for '%s'", tsconfig, cfg.Output.File)
	}
}
