// Package config loads persistent defaults for strict-fs-sync from a YAML
// file and STRICT_FS_SYNC_* environment variables. Command-line flags bound
// with BindFlags take precedence over both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName   = "strict-fs-sync"
	envPrefix = "STRICT_FS_SYNC"
)

type Config struct {
	Filter        string        `mapstructure:"filter"`
	Excludes      []string      `mapstructure:"exclude"`
	Concurrency   int           `mapstructure:"concurrency"`
	Workers       int           `mapstructure:"workers"`
	Fast          bool          `mapstructure:"fast"`
	Passthru      bool          `mapstructure:"passthru"`
	ShowProgress  bool          `mapstructure:"show-progress"`
	Quiet         bool          `mapstructure:"quiet"`
	Debug         bool          `mapstructure:"debug"`
	LogFormat     string        `mapstructure:"log-format"`
	WatchDebounce time.Duration `mapstructure:"watch-debounce"`
}

var Default = Config{
	Filter:        "*",
	Excludes:      []string{},
	Concurrency:   1,
	Workers:       16,
	LogFormat:     "console",
	WatchDebounce: 500 * time.Millisecond,
}

// Loader wraps a private viper instance so flags can be bound before Load
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault("filter", Default.Filter)
	v.SetDefault("exclude", Default.Excludes)
	v.SetDefault("concurrency", Default.Concurrency)
	v.SetDefault("workers", Default.Workers)
	v.SetDefault("fast", Default.Fast)
	v.SetDefault("passthru", Default.Passthru)
	v.SetDefault("show-progress", Default.ShowProgress)
	v.SetDefault("quiet", Default.Quiet)
	v.SetDefault("debug", Default.Debug)
	v.SetDefault("log-format", Default.LogFormat)
	v.SetDefault("watch-debounce", Default.WatchDebounce)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags lets explicitly set flags override file and environment values.
// Flags that are not config keys are ignored by Load.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	if err := l.v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// Load reads configFile, or config.yaml from the user config directory when
// configFile is empty. A missing default file is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		if dir, err := DefaultDir(); err == nil {
			l.v.AddConfigPath(dir)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Used returns the config file that was read, if any
func (l *Loader) Used() string {
	return l.v.ConfigFileUsed()
}

func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}
	return nil
}

// DefaultDir is $XDG_CONFIG_HOME/strict-fs-sync or its platform equivalent
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}
