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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajroetker/hwcv/cv"
	"github.com/ajroetker/hwcv/device/mempool"
)

func newInfoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show device, memory pool and kernel information",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		return a.printInfo(cmd)
	})
	return cmd
}

func (a *app) printInfo(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	props := a.dev.Properties()

	fmt.Fprintln(w, "Device:")
	fmt.Fprintf(w, "  Name:\t%s\n", props.Name)
	fmt.Fprintf(w, "  Arch:\t%s\n", props.Arch)
	fmt.Fprintf(w, "  Compute units:\t%d\n", props.ComputeUnits)
	fmt.Fprintf(w, "  Threads per block:\t%d\n", props.MaxThreadsPerBlock)
	fmt.Fprintf(w, "  Shared memory per block:\t%d bytes\n", props.SharedMemPerBlock)
	if props.TotalMemory > 0 {
		fmt.Fprintf(w, "  Memory limit:\t%d bytes\n", props.TotalMemory)
	} else {
		fmt.Fprintf(w, "  Memory limit:\tnone\n")
	}
	fmt.Fprintf(w, "  Features:\t%v\n", props.Features)

	stats := a.ctx.Pool().Stats()
	fmt.Fprintln(w, "\nMemory pool:")
	if !stats.Active {
		fmt.Fprintln(w, "  inactive")
	} else {
		fmt.Fprintf(w, "  Capacity:\t%d bytes (%d reserved)\n", stats.Capacity, stats.Reserved)
		fmt.Fprintf(w, "  Fallback:\t%s\n", a.ctx.Fallback())
		for _, c := range mempool.Ladder(stats.Capacity, mempool.DefaultMinBlockSize) {
			fmt.Fprintf(w, "  Class %d B:\t%d blocks\n", c.BlockSize, c.Blocks)
		}
	}

	fmt.Fprintln(w, "\nKernels:")
	for _, k := range cv.Kernels() {
		fmt.Fprintf(w, "  %s\n", k)
	}
	return w.Flush()
}
