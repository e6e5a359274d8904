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

package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/hwcv/cv"
)

// newImageCommand builds a subcommand that applies the registered kernel op
// to every file argument.
func newImageCommand(a *app, op, use, short, long, suffix string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   use + " [flags] FILE...",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, files []string) error {
		return a.processFiles(cmd, op, files, outDir, suffix)
	})
	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "", "directory for results (default: next to each input)")
	cmd.Flags().StringVar(&suffix, "suffix", suffix, "suffix added to output file names")
	return cmd
}

// processFiles runs op over files, up to cv.jobs at a time, each on its
// own stream.
func (a *app) processFiles(cmd *cobra.Command, op string, files []string, outDir, suffix string) error {
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(a.cfg.CV.Jobs)
	results := make([]string, len(files))
	for i, in := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := outputPath(in, outDir, suffix)
			if err := a.processFile(op, in, out); err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	err := g.Wait()
	for i, out := range results {
		if out != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", files[i], out)
		}
	}
	return err
}

func (a *app) processFile(op, in, out string) error {
	src, err := readImage(in)
	if err != nil {
		return err
	}
	nc := src.Channels()
	fn, err := cv.Lookup(op, cv.ElemU8, nc)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	res, stream, err := a.apply(fn, src, op == "transpose")
	if err != nil {
		return fmt.Errorf("%s: %s: %w", in, op, err)
	}
	if err := writeImage(out, toImage(res)); err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"op":       op,
		"input":    in,
		"output":   out,
		"channels": nc,
		"stream":   stream,
	}).Info("processed")
	return nil
}

// apply uploads src, runs fn on a fresh stream and downloads the result.
// The stream is drained before the device images are freed, also when fn
// fails after enqueuing work.
func (a *app) apply(fn cv.KernelFunc, src *cv.Image[uint8], swap bool) (*cv.Image[uint8], int, error) {
	din, err := cv.Upload(a.dev, src, a.cfg.CV.Pitched)
	if err != nil {
		return nil, 0, fmt.Errorf("upload: %w", err)
	}
	defer din.Free()

	w, h := src.Width(), src.Height()
	if swap {
		w, h = h, w
	}
	dout, err := cv.NewDeviceImage[uint8](a.dev, w, h, src.Channels(), a.cfg.CV.Pitched)
	if err != nil {
		return nil, 0, err
	}
	defer dout.Free()

	s := a.dev.NewStream()
	defer s.Close()

	if err := fn(a.ctx, s, src.Height(), src.Width(), din.Stride, din.Data, dout.Stride, dout.Data); err != nil {
		return nil, s.ID(), fmt.Errorf("%s: %w", cv.StatusOf(err), err)
	}
	if err := s.Synchronize(); err != nil {
		return nil, s.ID(), fmt.Errorf("%s: %w", cv.StatusOf(err), err)
	}
	res, err := dout.Download()
	if err != nil {
		return nil, s.ID(), fmt.Errorf("download: %w", err)
	}
	return res, s.ID(), nil
}

func newEqualizeCommand(a *app) *cobra.Command {
	return newImageCommand(a, "equalize-hist", "equalize", "Equalize image histograms",
		`Equalize the histogram of every channel of each input image.

Grayscale inputs are processed as one channel, images with transparency as
four and all others as three.`, "_eq")
}

func newTransposeCommand(a *app) *cobra.Command {
	return newImageCommand(a, "transpose", "transpose", "Transpose images",
		"Swap the rows and columns of each input image.", "_t")
}
