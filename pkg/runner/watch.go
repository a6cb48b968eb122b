package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZenFlux/rollup-toolkit/pkg/bundler"
	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/tklog"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

const clearSequence = "\033[2J\033[H"

// Watch rebuilds every configuration whenever its sources change
type Watch struct {
	Base

	// Out receives the clear-screen sequence. Defaults to os.Stdout.
	Out      io.Writer
	outMutex sync.Mutex
}

// NewWatch returns a Watch runner using base
func NewWatch(base Base) *Watch {
	return &Watch{Base: base, Out: os.Stdout}
}

// Subscription is the state of a single watched configuration
type Subscription struct {
	Config *toolkit.BuildConfiguration
	start  time.Time
}

// Run starts one watcher per configuration and blocks until ctx is cancelled. Build errors are logged
// and never stop the session.
func (w *Watch) Run(ctx context.Context) error {
	for _, cfg := range w.configs {
		if cfg.Output == nil {
			return faults.New(faults.OutputNotFound, "output not found: %s", cfg.Input)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := WatchManifest(groupCtx, w.ManifestPath(), func() {
			tklog.Log(ctx).Warn().Msgf("%s changed, restart to apply the new configuration", w.Settings.Manifest)
		})
		if err != nil {
			tklog.Log(ctx).Warn().Err(err).Msg("Failed to watch the manifest")
		}
		return nil
	})

	for _, cfg := range w.configs {
		sub := &Subscription{Config: cfg}
		group.Go(func() error {
			return w.Bundler.Watch(groupCtx, sub.Config, func(evt bundler.Event) {
				w.HandleEvent(ctx, sub, evt)
			})
		})
	}

	return group.Wait()
}

// HandleEvent logs a single watch event for sub
func (w *Watch) HandleEvent(ctx context.Context, sub *Subscription, evt bundler.Event) {
	logger := tklog.Log(ctx)
	output := sub.Config.Output

	switch evt.Code {
	case bundler.EventBundleStart:
		w.clearScreen()
		sub.start = time.Now()
		logger.Info().Msgf("Watching - Start '%s' bundle to '%s'", output.Format, output.File)
	case bundler.EventBundleEnd:
		bundler.ReportWarnings(ctx, sub.Config, evt.Warnings)
		logger.Info().Msgf("Watching - Done '%s' bundle to '%s' in %dms", output.Format, output.File, time.Since(sub.start).Milliseconds())
	case bundler.EventError:
		bundler.ReportWarnings(ctx, sub.Config, evt.Warnings)
		logger.Error().Err(evt.Error).Str("format", string(output.Format)).Msgf("Error - When processing: %s", output.File)
	default:
		logger.Debug().Msgf("Ignoring event %s", evt.Code)
	}
}

func (w *Watch) clearScreen() {
	if !w.Settings.ClearScreen || w.Out == nil {
		return
	}

	w.outMutex.Lock()
	defer w.outMutex.Unlock()
	fmt.Fprint(w.Out, clearSequence)
}
