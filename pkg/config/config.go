package config

import (
	"os"
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// Settings describes the ambient options read from the environment, .env and toolkit.toml
type Settings struct {
	Development bool   `env:"DEVELOPMENT" usage:"Development mode: inline source maps, dev tsconfigs, no minification"`
	Production  bool   `env:"PRODUCTION" usage:"Production mode (the default when DEVELOPMENT is unset)"`
	Debug       bool   `env:"TOOLKIT_DEBUG" usage:"Print error stack traces and raw log fields"`
	Manifest    string `default:"toolkit.star" env:"MANIFEST" usage:"Name of the manifest file in the working directory"`
	ClearScreen bool   `default:"true" env:"CLEAR_SCREEN" usage:"Clear the terminal whenever a watched bundle restarts"`
	Log         struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Load reads the settings for the project in dir. A .env file in dir is applied to the process
// environment first (without overriding variables that are already set), then defaults,
// toolkit.toml and the environment are merged by aconfig.
func Load(dir string) (*Settings, error) {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, eris.Wrapf(err, "failed to load %s", envFile)
		}
	}

	var files []string
	tomlFile := filepath.Join(dir, "toolkit.toml")
	if _, err := os.Stat(tomlFile); err == nil {
		files = append(files, tomlFile)
	}

	cfg := Settings{}
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		SkipFiles:          len(files) == 0,
		AllowUnknownFields: true,
		AllowUnknownEnvs:   true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load settings")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate verifies that all fields have valid values
func (cfg *Settings) Validate() error {
	if cfg.Development && cfg.Production {
		return faults.New(faults.CannotSetBothDevelopmentAndProduction, "Cannot use both development and production")
	}

	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Manifest == "" {
		return eris.New("manifest name must not be empty")
	}

	return nil
}

// Mode returns the ambient build mode
func (cfg *Settings) Mode() toolkit.Mode {
	if cfg.Development {
		return toolkit.Development
	}
	return toolkit.Production
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Settings) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
