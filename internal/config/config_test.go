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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/hwcv/cv"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
device:
  compute_units: 3
  memory_limit_mb: 64
pool:
  capacity: 4096
  fallback: strict
cv:
  validate: true
  jobs: 2
logging:
  level: debug
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Device.ComputeUnits)
	assert.Equal(t, 64, cfg.Device.MemoryLimitMB)
	assert.Equal(t, 4096, cfg.Pool.Capacity)
	assert.Equal(t, "strict", cfg.Pool.Fallback)
	assert.True(t, cfg.CV.Validate)
	assert.True(t, cfg.CV.Pitched, "unset keys keep their defaults")
	assert.Equal(t, 2, cfg.CV.Jobs)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "pool:\n  capacity: 4096\n  fallback: strict\n")
	t.Setenv("HWCV_POOL_CAPACITY", "8192")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.Pool.Capacity, "environment overrides the file")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("pool", 0, "")
	flags.String("fallback", "direct", "")
	require.NoError(t, flags.Parse([]string{"--pool=16384"}))

	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 16384, cfg.Pool.Capacity, "a set flag overrides the environment")
	assert.Equal(t, "strict", cfg.Pool.Fallback, "an unset flag does not override the file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative_units", func(c *Config) { c.Device.ComputeUnits = -1 }},
		{"negative_limit", func(c *Config) { c.Device.MemoryLimitMB = -1 }},
		{"negative_pool", func(c *Config) { c.Pool.Capacity = -1 }},
		{"bad_fallback", func(c *Config) { c.Pool.Fallback = "sometimes" }},
		{"no_jobs", func(c *Config) { c.CV.Jobs = 0 }},
		{"bad_level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad_format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.ComputeUnits = 2
	cfg.Device.MemoryLimitMB = 1
	cfg.Pool.Fallback = "strict"
	cfg.CV.Validate = true

	assert.Len(t, cfg.DeviceOptions(nil), 3)
	assert.Len(t, cfg.ContextOptions(), 2)

	policy, err := cv.ParseFallbackPolicy(cfg.Pool.Fallback)
	require.NoError(t, err)
	assert.Equal(t, cv.FallbackStrict, policy)
}
