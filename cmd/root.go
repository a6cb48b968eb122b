// Package cmd implements the toolkit CLI
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ZenFlux/rollup-toolkit/pkg/bundler"
	"github.com/ZenFlux/rollup-toolkit/pkg/config"
	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/runner"
)

// Runners maps the CLI commands to their runner
var Runners = map[string]func(base runner.Base) runner.Runner{
	"@build": func(base runner.Base) runner.Runner { return runner.NewBuild(base) },
	"@watch": func(base runner.Base) runner.Runner { return runner.NewWatch(base) },
}

// newBundler is replaced in tests
var newBundler = func(root string) bundler.Bundler {
	return bundler.NewESBuild(root)
}

var RootCmd = &cobra.Command{
	Use:   "toolkit [@build|@watch]",
	Short: "Builds cjs, es, esm and umd bundles as declared in toolkit.star",
	Long: `This command reads toolkit.star from the working directory and bundles every declared format to
dist/<format>/. @build runs once, @watch keeps rebuilding until interrupted. Any other argument does nothing.`,
	DisableFlagParsing: true,
	SilenceErrors:      true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return nil
		}

		wd, err := os.Getwd()
		if err != nil {
			return eris.Wrap(err, "failed to retrieve the current working directory")
		}

		return Dispatch(cmd.Context(), wd, args[0])
	},
}

// Dispatch runs the runner registered for command in the project at root. Unknown commands are a no-op.
func Dispatch(ctx context.Context, root, command string) error {
	newRunner, ok := Runners[command]
	if !ok {
		log.Debug().Msgf("Nothing to do for %s", command)
		return nil
	}

	settings, err := config.Load(root)
	if err != nil {
		return err
	}
	configureLogger(settings)

	r := newRunner(runner.Base{
		Root:     root,
		Settings: settings,
		Bundler:  newBundler(root),
	})

	err = r.LoadConfig(ctx)
	if err != nil {
		return err
	}

	return r.Run(ctx)
}

func configureLogger(settings *config.Settings) {
	debug := settings.Debug
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, debug)
	}

	if settings.Log.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(NewConsoleWriter(os.Stderr, debug))
	}
	log.Logger = log.Logger.Level(settings.LogLevel())
}

// Execute runs the root command and exits with the code of the returned fault
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	log.Logger = zerolog.New(NewConsoleWriter(os.Stderr, os.Getenv("TOOLKIT_DEBUG") != ""))

	err := RootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var fault *faults.Fault
		if errors.As(err, &fault) && fault.Code != faults.BuildFailed {
			log.Error().Msg(err.Error())
		} else {
			log.Error().Err(err).Msg("Build failed")
		}
	}

	os.Exit(int(faults.CodeOf(err)))
}
