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

// Package commands implements the hwcv command tree.
package commands

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ajroetker/hwcv/cv"
	"github.com/ajroetker/hwcv/device"
	"github.com/ajroetker/hwcv/internal/config"
	"github.com/ajroetker/hwcv/internal/logging"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string

	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
	dev       *device.Device
	ctx       *cv.Context
}

// Execute runs the hwcv command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the hwcv command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "hwcv",
		Short: "Image processing on a simulated accelerator",
		Long: `hwcv runs image-processing kernels (histogram equalization and
transpose) on a simulated accelerator device with ordered streams and a
pooled scratch allocator.

Settings come from $HOME/.hwcv/config.yaml, HWCV_* environment variables and
flags, flags taking precedence.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.hwcv/config.yaml)")
	pf.Int("compute-units", 0, "number of device compute units (0 = GOMAXPROCS)")
	pf.Int("memory-limit-mb", 0, "device memory limit in MiB (0 = unlimited)")
	pf.Int("pool", 1<<20, "memory pool capacity in bytes (0 = no pool)")
	pf.String("fallback", "direct", "scratch policy when the pool is exhausted: direct or strict")
	pf.Bool("validate", false, "validate kernel arguments")
	pf.Bool("pitched", true, "use pitched device allocations for images")
	pf.IntP("jobs", "j", 4, "images processed concurrently")
	pf.String("log-level", "warn", "log level: trace, debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-file", "", "also write logs to this file")

	root.AddCommand(newInfoCommand(a), newEqualizeCommand(a), newTransposeCommand(a))
	return root
}

// run wraps a subcommand body with device setup and teardown.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	dev, err := device.New(cfg.DeviceOptions(log)...)
	if err != nil {
		closer.Close()
		return fmt.Errorf("creating device: %w", err)
	}
	ctx := cv.NewContext(dev, cfg.ContextOptions()...)
	if cfg.Pool.Capacity > 0 {
		if err := ctx.ActivatePool(cfg.Pool.Capacity); err != nil {
			dev.Close()
			closer.Close()
			return fmt.Errorf("activating pool: %s: %w", cv.StatusOf(err), err)
		}
	}
	a.cfg, a.log, a.logCloser, a.dev, a.ctx = cfg, log, closer, dev, ctx
	log.WithFields(logrus.Fields{
		"compute_units": dev.Properties().ComputeUnits,
		"pool":          cfg.Pool.Capacity,
	}).Debug("device ready")
	return nil
}

func (a *app) close() error {
	if a.dev == nil {
		return nil
	}
	var err error
	if a.ctx.Pool().Active() {
		err = a.ctx.ShutdownPool()
	}
	a.dev.Close()
	a.logCloser.Close()
	a.dev = nil
	return err
}
