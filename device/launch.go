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

package device

import (
	"fmt"
	"unsafe"
)

// Dim3 is a three-dimensional extent or index.
type Dim3 struct {
	X, Y, Z int
}

// Size returns X*Y*Z.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// GridFor returns the grid that covers a width x height region with blocks of
// the given shape.
func GridFor(width, height int, block Dim3) Dim3 {
	return Dim3{
		X: (width + block.X - 1) / block.X,
		Y: (height + block.Y - 1) / block.Y,
		Z: 1,
	}
}

// LaunchConfig is the execution shape of a kernel launch.
type LaunchConfig struct {
	Grid        Dim3
	Block       Dim3
	SharedBytes int // zeroed block-local scratch, at most SharedMemPerBlock
}

// Block is the state a kernel sees for one block of its grid. The threads of
// a block run on a single compute unit, so they may share Shared memory
// without synchronization; blocks run concurrently and must only communicate
// through atomics on device memory.
type Block struct {
	Idx     Dim3
	Dim     Dim3
	GridDim Dim3
	shared  []uint64
}

// Threads calls fn for every thread of the block in x-fastest order with the
// thread's global x and y coordinates.
func (b *Block) Threads(fn func(x, y int)) {
	x0 := b.Idx.X * b.Dim.X
	y0 := b.Idx.Y * b.Dim.Y
	for ty := range b.Dim.Y {
		for tx := range b.Dim.X {
			fn(x0+tx, y0+ty)
		}
	}
}

// Shared returns the first n elements of the block's shared memory.
func Shared[T Element](b *Block, n int) []T {
	var zero T
	if n*int(unsafe.Sizeof(zero)) > len(b.shared)*8 {
		panic(fmt.Sprintf("device: %d elements of shared memory requested, %d bytes configured", n, len(b.shared)*8))
	}
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.shared[0])), n)
}

// Kernel is the body executed once per block of a launch.
type Kernel func(b *Block)

func (cfg LaunchConfig) validate() error {
	g, blk := cfg.Grid, cfg.Block
	switch {
	case g.X <= 0 || g.Y <= 0 || g.Z <= 0:
		return fmt.Errorf("%w: grid %+v", ErrInvalidConfiguration, g)
	case blk.X <= 0 || blk.Y <= 0 || blk.Z <= 0:
		return fmt.Errorf("%w: block %+v", ErrInvalidConfiguration, blk)
	case blk.Size() > MaxThreadsPerBlock:
		return fmt.Errorf("%w: %d threads per block exceeds %d", ErrInvalidConfiguration, blk.Size(), MaxThreadsPerBlock)
	case cfg.SharedBytes < 0 || cfg.SharedBytes > SharedMemPerBlock:
		return fmt.Errorf("%w: %d bytes of shared memory", ErrInvalidConfiguration, cfg.SharedBytes)
	}
	return nil
}

// Launch enqueues kernel k on stream s with the given configuration and
// returns without waiting for it to run. Configuration errors are reported
// immediately; faults raised while the kernel runs are reported by
// s.Synchronize as ErrLaunchFailure.
func (d *Device) Launch(s *Stream, cfg LaunchConfig, k Kernel) error {
	if s == nil || s.dev != d {
		return fmt.Errorf("%w: stream does not belong to this device", ErrInvalidValue)
	}
	if k == nil {
		return fmt.Errorf("%w: nil kernel", ErrInvalidValue)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrDeviceClosed
	}

	gx, gxy := cfg.Grid.X, cfg.Grid.X*cfg.Grid.Y
	words := (cfg.SharedBytes + 7) / 8
	return s.Enqueue(func() error {
		err := d.units.Run(cfg.Grid.Size(), func(i int) {
			b := Block{
				Idx:     Dim3{X: i % gx, Y: (i % gxy) / gx, Z: i / gxy},
				Dim:     cfg.Block,
				GridDim: cfg.Grid,
			}
			if words > 0 {
				b.shared = make([]uint64, words)
			}
			k(&b)
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLaunchFailure, err)
		}
		return nil
	})
}
