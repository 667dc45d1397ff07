// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Targets names every structure the harness can exercise, in run order.
var Targets = []string{"stack", "mpsc", "spsc", "seqlock"}

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("stress: invalid config")

// Config holds harness settings. Keys match the flag names so that flags,
// LFSTRESS_* environment variables and config files share one namespace.
type Config struct {
	Targets     []string      `mapstructure:"targets"`
	Workers     int           `mapstructure:"workers"`
	Ops         int           `mapstructure:"ops"`
	Reclaimer   string        `mapstructure:"reclaimer"`
	HazardSlots int           `mapstructure:"hazard-slots"`
	MaxNodes    int           `mapstructure:"max-nodes"`
	Capacity    int           `mapstructure:"capacity"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Debug       bool          `mapstructure:"debug"`
}

// DefaultConfig runs every target with 1M operations on 8 goroutines.
func DefaultConfig() Config {
	return Config{
		Targets:     slices.Clone(Targets),
		Workers:     8,
		Ops:         1_000_000,
		Reclaimer:   "hazard",
		HazardSlots: 16,
		MaxNodes:    1 << 20,
		Capacity:    1024,
		Timeout:     time.Minute,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case len(c.Targets) == 0:
		return fmt.Errorf("%w: no targets", ErrInvalidConfig)
	case c.Workers < 2:
		return fmt.Errorf("%w: workers must be >= 2, got %d", ErrInvalidConfig, c.Workers)
	case c.Ops < c.Workers:
		return fmt.Errorf("%w: ops must be >= workers, got %d", ErrInvalidConfig, c.Ops)
	case c.Reclaimer != "hazard" && c.Reclaimer != "epoch":
		return fmt.Errorf("%w: reclaimer must be hazard or epoch, got %q", ErrInvalidConfig, c.Reclaimer)
	case c.HazardSlots < c.Workers:
		return fmt.Errorf("%w: hazard-slots must be >= workers, got %d", ErrInvalidConfig, c.HazardSlots)
	case c.MaxNodes < 1:
		return fmt.Errorf("%w: max-nodes must be >= 1, got %d", ErrInvalidConfig, c.MaxNodes)
	case c.Capacity < 2:
		return fmt.Errorf("%w: capacity must be >= 2, got %d", ErrInvalidConfig, c.Capacity)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}
	for _, t := range c.Targets {
		if !slices.Contains(Targets, t) {
			return fmt.Errorf("%w: unknown target %q", ErrInvalidConfig, t)
		}
	}
	return nil
}

// NewViper produces a Viper instance for the named application.
// The name is used as the configuration file name, the environment prefix,
// and to generate the path under /etc and $HOME to look for configuration
// files. Automatic environment mode is turned on; dashes in keys become
// underscores in variable names.
func NewViper(applicationName string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(applicationName)
	v.AddConfigPath(fmt.Sprintf("/etc/%s", applicationName))
	v.AddConfigPath(fmt.Sprintf("$HOME/.%s", applicationName))
	v.AddConfigPath(".")
	v.SetEnvPrefix(applicationName)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// NewFlagSet defines one flag per Config key, defaulted from DefaultConfig.
func NewFlagSet(name string) *pflag.FlagSet {
	d := DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "explicit config file (default: search /etc, $HOME and .)")
	fs.StringSlice("targets", d.Targets, "structures to exercise: "+strings.Join(Targets, ","))
	fs.IntP("workers", "w", d.Workers, "goroutines per target")
	fs.IntP("ops", "n", d.Ops, "operations per target")
	fs.String("reclaimer", d.Reclaimer, "reclamation strategy: hazard or epoch")
	fs.Int("hazard-slots", d.HazardSlots, "reclaimer slot count")
	fs.Int("max-nodes", d.MaxNodes, "arena node limit per linked structure")
	fs.Int("capacity", d.Capacity, "SPSC ring capacity")
	fs.Duration("timeout", d.Timeout, "deadline for the whole run")
	fs.Bool("debug", d.Debug, "development logging")
	return fs
}

// ParseAndBind parses the given flag set using the supplied arguments and
// then binds the flag set to the specified Viper instance. If arguments is
// nil, os.Args[1:] is used instead.
func ParseAndBind(v *viper.Viper, fs *pflag.FlagSet, arguments []string) error {
	if arguments == nil {
		arguments = os.Args[1:]
	}
	if err := fs.Parse(arguments); err != nil {
		return err
	}
	return v.BindPFlags(fs)
}

// Load reads the optional config file and decodes every key into a Config.
// A missing config file is not an error; a malformed one is.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("stress: read config: %w", err)
		}
	}

	// Keys present in v replace the defaults outright; without ZeroFields a
	// shorter targets list would be decoded over the default one in place.
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg, replaceDefaults); err != nil {
		return Config{}, fmt.Errorf("stress: decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func replaceDefaults(c *mapstructure.DecoderConfig) {
	c.ZeroFields = true
}
