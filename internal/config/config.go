// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads hwcv command configuration from defaults, a YAML
// file, HWCV_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajroetker/hwcv/cv"
	"github.com/ajroetker/hwcv/device"
)

// Config is the configuration of the hwcv command.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Pool    PoolConfig    `mapstructure:"pool"`
	CV      CVConfig      `mapstructure:"cv"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type DeviceConfig struct {
	ComputeUnits  int `mapstructure:"compute_units"`
	MemoryLimitMB int `mapstructure:"memory_limit_mb"`
}

type PoolConfig struct {
	Capacity int    `mapstructure:"capacity"` // bytes; 0 leaves the pool inactive
	Fallback string `mapstructure:"fallback"`
}

type CVConfig struct {
	Validate bool `mapstructure:"validate"`
	Pitched  bool `mapstructure:"pitched"`
	Jobs     int  `mapstructure:"jobs"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"` // text or json
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{ComputeUnits: 0},
		Pool:   PoolConfig{Capacity: 1 << 20, Fallback: "direct"},
		CV:     CVConfig{Pitched: true, Jobs: 4},
		Logging: LoggingConfig{
			Level:   "warn",
			Format:  "text",
			Console: true,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"compute-units":   "device.compute_units",
	"memory-limit-mb": "device.memory_limit_mb",
	"pool":            "pool.capacity",
	"fallback":        "pool.fallback",
	"validate":        "cv.validate",
	"pitched":         "cv.pitched",
	"jobs":            "cv.jobs",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-file":        "logging.file",
}

// Load loads configuration from cfgFile, or from config.yaml in
// $HOME/.hwcv or the working directory when cfgFile is empty, then applies
// the environment and any flags of flags that were set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hwcv"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("HWCV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Device.ComputeUnits < 0 {
		return errors.New("device.compute_units must not be negative")
	}
	if c.Device.MemoryLimitMB < 0 {
		return errors.New("device.memory_limit_mb must not be negative")
	}
	if c.Pool.Capacity < 0 {
		return errors.New("pool.capacity must not be negative")
	}
	if _, err := cv.ParseFallbackPolicy(c.Pool.Fallback); err != nil {
		return errors.New("pool.fallback must be one of: [direct strict]")
	}
	if c.CV.Jobs < 1 {
		return errors.New("cv.jobs must be at least 1")
	}
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New("logging.format must be one of: [text json]")
	}
	return nil
}

// DeviceOptions returns the device options the configuration selects.
func (c *Config) DeviceOptions(log logrus.FieldLogger) []device.Option {
	opts := []device.Option{device.WithLogger(log)}
	if c.Device.ComputeUnits > 0 {
		opts = append(opts, device.WithComputeUnits(c.Device.ComputeUnits))
	}
	if c.Device.MemoryLimitMB > 0 {
		opts = append(opts, device.WithMemoryLimit(int64(c.Device.MemoryLimitMB)<<20))
	}
	return opts
}

// ContextOptions returns the cv.Context options the configuration selects.
func (c *Config) ContextOptions() []cv.Option {
	fallback, _ := cv.ParseFallbackPolicy(c.Pool.Fallback)
	return []cv.Option{cv.WithFallback(fallback), cv.WithValidation(c.CV.Validate)}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.compute_units", cfg.Device.ComputeUnits)
	v.SetDefault("device.memory_limit_mb", cfg.Device.MemoryLimitMB)

	v.SetDefault("pool.capacity", cfg.Pool.Capacity)
	v.SetDefault("pool.fallback", cfg.Pool.Fallback)

	v.SetDefault("cv.validate", cfg.CV.Validate)
	v.SetDefault("cv.pitched", cfg.CV.Pitched)
	v.SetDefault("cv.jobs", cfg.CV.Jobs)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
