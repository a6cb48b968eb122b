package bundler

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// ESBuild bundles through the esbuild Go API
type ESBuild struct {
	// Root is the directory relative input and output paths are resolved against.
	Root string
}

// NewESBuild returns a bundler working in root
func NewESBuild(root string) *ESBuild {
	return &ESBuild{Root: root}
}

func (e *ESBuild) Compile(ctx context.Context, cfg *toolkit.BuildConfiguration) (*Bundle, error) {
	opts, err := Options(e.Root, cfg)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := api.Build(opts)
	warnings := convertMessages(result.Warnings)
	ReportWarnings(ctx, cfg, warnings)

	if len(result.Errors) > 0 {
		return nil, faults.Wrap(faults.BuildFailed, &BuildError{Messages: convertMessages(result.Errors)},
			"failed to build %s", cfg.Describe())
	}

	bundle := &Bundle{Warnings: warnings}
	for _, file := range result.OutputFiles {
		bundle.Files = append(bundle.Files, OutputFile{Path: file.Path, Contents: file.Contents})
	}

	return bundle, nil
}

func (e *ESBuild) Watch(ctx context.Context, cfg *toolkit.BuildConfiguration, handler func(Event)) error {
	opts, err := Options(e.Root, cfg)
	if err != nil {
		return err
	}

	opts.Write = true
	opts.Plugins = append(opts.Plugins, eventsPlugin(handler))

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return faults.Wrap(faults.BuildFailed, &BuildError{Messages: convertMessages(ctxErr.Errors)},
			"failed to prepare %s", cfg.Describe())
	}
	defer buildCtx.Dispose()

	err = buildCtx.Watch(api.WatchOptions{})
	if err != nil {
		return faults.Wrap(faults.BuildFailed, err, "failed to watch %s", cfg.Describe())
	}

	<-ctx.Done()
	tklog.Log(ctx).Debug().Str("format", string(cfg.Output.Format)).Msg("stopped watching")
	return nil
}

// ReportWarnings passes warnings to the configuration's warning handler or logs them if there is none
func ReportWarnings(ctx context.Context, cfg *toolkit.BuildConfiguration, warnings []toolkit.Message) {
	for _, warning := range warnings {
		if cfg.OnWarn != nil {
			cfg.OnWarn(warning)
			continue
		}

		tklog.Log(ctx).Warn().Str("format", string(cfg.Output.Format)).Msg(FormatMessage(warning))
	}
}
