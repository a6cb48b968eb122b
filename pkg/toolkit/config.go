package toolkit

import (
	"regexp"
	"sort"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
)

type formatPolicy struct {
	module              ModuleShape
	ext                 string
	helpers             HelperMode
	excludeDependencies bool
	target              string
	// named formats carry the module-level name, global formats additionally carry the globals map.
	named  bool
	global bool
}

// globalNamePattern accepts identifiers and dotted namespaces such as "my.lib"
var globalNamePattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

var policies = map[Format]formatPolicy{
	FormatCJS: {
		module:  ModuleCommonJS,
		ext:     "js",
		helpers: HelpersRuntime,
		target:  "es2015",
	},
	FormatES: {
		module:  ModuleES,
		ext:     "js",
		helpers: HelpersESModules,
		target:  "es2017",
	},
	FormatESM: {
		module:  ModuleES,
		ext:     "mjs",
		helpers: HelpersBundled,
		target:  "es2017",
		named:   true,
	},
	FormatUMD: {
		module:              ModuleUMD,
		ext:                 "js",
		helpers:             HelpersBundled,
		excludeDependencies: true,
		target:              "es2015",
		named:               true,
		global:              true,
	},
}

// Formats returns all recognized format tags, sorted
func Formats() []Format {
	result := make([]Format, 0, len(policies))
	for format := range policies {
		result = append(result, format)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

// IsKnownFormat reports whether format is in the policy table
func IsKnownFormat(format Format) bool {
	_, ok := policies[format]
	return ok
}

// GetConfig assembles the build configuration for a single format
func GetConfig(env Env, args ConfigArgs) (*BuildConfiguration, error) {
	policy, ok := policies[args.Format]
	if !ok {
		return nil, faults.New(faults.UnknownFormat, "Unknown format: %s", args.Format)
	}

	if policy.global && !globalNamePattern.MatchString(args.Name) {
		if args.Name == "" {
			return nil, faults.New(faults.ManifestInvalid, "format %s needs a name for its global variable", args.Format)
		}
		return nil, faults.New(faults.ManifestInvalid, "format %s: %q is not a valid global name", args.Format, args.Name)
	}

	outputOpts := OutputOptions{
		Format:   args.Format,
		Module:   policy.module,
		Ext:      policy.ext,
		FileName: args.OutputFileName,
	}
	if policy.named {
		outputOpts.Name = args.Name
	}
	if policy.global {
		outputOpts.Globals = args.Globals
	}
	output := GetOutput(env, outputOpts)

	stages, err := GetPlugins(env, PluginOptions{
		Format:              args.Format,
		Extensions:          args.Extensions,
		External:            args.External,
		Helpers:             policy.helpers,
		Target:              policy.target,
		ExcludeDependencies: policy.excludeDependencies,
	})
	if err != nil {
		return nil, err
	}

	return &BuildConfiguration{
		Input:    args.Input,
		External: append([]string(nil), args.External...),
		Output:   &output,
		Stages:   stages,
		OnWarn:   args.OnWarn,
	}, nil
}

// GetGlobalConfig assembles one configuration per format listed in cfg, in manifest order
func GetGlobalConfig(env Env, cfg *ToolkitConfig) ([]*BuildConfiguration, error) {
	if len(cfg.Formats) == 0 {
		return nil, faults.New(faults.ManifestInvalid, "no format declared")
	}

	result := make([]*BuildConfiguration, 0, len(cfg.Formats))
	for _, format := range cfg.Formats {
		config, err := GetConfig(env, ConfigArgs{
			Format:         format,
			Input:          cfg.Input,
			OutputFileName: cfg.OutputFileName,
			External:       cfg.External,
			Name:           cfg.Name,
			Globals:        cfg.Globals,
			Extensions:     cfg.Extensions,
			OnWarn:         cfg.OnWarn,
		})
		if err != nil {
			return nil, err
		}

		result = append(result, config)
	}

	return result, nil
}
