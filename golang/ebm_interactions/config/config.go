// Package config loads the settings of the ebm_interactions command.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix starts every environment override. A double underscore separates
// nested keys, so EBM_MEMORY__LIMIT_BYTES sets memory.limit_bytes.
const EnvPrefix = "EBM_"

// Render formats accepted by render.format.
const (
	FormatSVG = "svg"
	FormatDot = "dot"
	FormatPNG = "png"
)

type Config struct {
	LogLevel       string             `koanf:"log_level"`
	LogDevelopment bool               `koanf:"log_development"`
	Memory         Memory             `koanf:"memory"`
	Render         Render             `koanf:"render"`
	Experimental   map[string]float64 `koanf:"experimental"`
}

type Memory struct {
	// LimitBytes caps the reservations of one core. Zero means unlimited.
	LimitBytes uint64 `koanf:"limit_bytes"`
}

type Render struct {
	Format string `koanf:"format"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"log-development": "log_development",
	"memory-limit":    "memory.limit_bytes",
	"format":          "render.format",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log_level":          "info",
		"log_development":    false,
		"memory.limit_bytes": uint64(0),
		"render.format":      FormatSVG,
	}
}

// Load layers defaults, the YAML file at path (when not empty), EBM_
// environment variables and the flags that were set, in increasing priority.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "loading flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that decode fine but cannot be used.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	switch c.Render.Format {
	case FormatSVG, FormatDot, FormatPNG:
	default:
		return errors.Errorf("render.format %q is not one of svg, dot, png", c.Render.Format)
	}
	return nil
}

// Level returns the parsed log level. Validate has already checked it.
func (c *Config) Level() zapcore.Level {
	level, _ := zapcore.ParseLevel(c.LogLevel)
	return level
}
