// Package config loads procman's settings from an optional procman.yaml,
// PROCMAN_* environment variables and built-in defaults, in increasing
// order of precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shinji-kodama/procman/internal/model"
)

// EnvPrefix is prepended to every environment override, with dots in
// the key replaced by underscores: PROCMAN_LOG_LEVEL, PROCMAN_DISPATCH_WORKERS.
const EnvPrefix = "PROCMAN"

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Runner   RunnerConfig   `mapstructure:"runner"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or text.
	Format string `mapstructure:"format"`
	// File, when set, receives log records instead of stderr.
	File string `mapstructure:"file"`
}

// DispatchConfig controls the dispatch gateway.
type DispatchConfig struct {
	// Workers bounds concurrently running detached units. 0 is unbounded.
	Workers int `mapstructure:"workers"`
	// JoinTimeout bounds a joined unit. 0 is unbounded.
	JoinTimeout time.Duration `mapstructure:"join_timeout"`
}

// RunnerConfig controls command runners.
type RunnerConfig struct {
	// GitBinary is the git executable used by git managers.
	GitBinary string `mapstructure:"git_binary"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Dispatch: DispatchConfig{
			Workers: 4,
		},
		Runner: RunnerConfig{
			GitBinary: "git",
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file", defaults.Log.File)

	v.SetDefault("dispatch.workers", defaults.Dispatch.Workers)
	v.SetDefault("dispatch.join_timeout", defaults.Dispatch.JoinTimeout)

	v.SetDefault("runner.git_binary", defaults.Runner.GitBinary)
}

// Load builds the configuration. An explicit path must exist; without one
// procman.yaml is looked up in ConfigDir() and the current directory and
// is optional.
//
// Faults: FileNotFound for a missing explicit path, ReaderError for a
// malformed file or invalid values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, model.WrapFault(model.FileNotFound,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, model.WrapFault(model.ReaderError,
				fmt.Sprintf("failed to read config file %s", path), err)
		}
	} else {
		v.SetConfigName("procman")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, model.WrapFault(model.ReaderError, "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, model.WrapFault(model.ReaderError, "invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapFault(model.ReaderError, "invalid configuration", err)
	}
	return &cfg, nil
}

// ConfigDir returns the directory searched for procman.yaml.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "procman")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".procman"
	}
	return filepath.Join(home, ".config", "procman")
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted log.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted log.format values.
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate reports every invalid value as ValidationErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	if c.Dispatch.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.workers",
			Value:   c.Dispatch.Workers,
			Message: "must be non-negative",
		})
	}
	if c.Dispatch.JoinTimeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.join_timeout",
			Value:   c.Dispatch.JoinTimeout,
			Message: "must be non-negative",
		})
	}
	if strings.TrimSpace(c.Runner.GitBinary) == "" {
		errs = append(errs, ValidationError{
			Field:   "runner.git_binary",
			Value:   c.Runner.GitBinary,
			Message: "must not be empty",
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
