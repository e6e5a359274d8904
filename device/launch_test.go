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
	"errors"
	"sync/atomic"
	"testing"
)

func TestLaunchCoversGrid(t *testing.T) {
	dev := newTestDevice(t)
	s := dev.NewStream()

	const width, height = 100, 37
	p, err := dev.Malloc(width * height * 4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer dev.Free(p)

	block := Dim3{X: 16, Y: 8, Z: 1}
	err = dev.Launch(s, LaunchConfig{Grid: GridFor(width, height, block), Block: block}, func(b *Block) {
		out := View[uint32](p, width*height)
		b.Threads(func(x, y int) {
			if x < width && y < height {
				atomic.AddUint32(&out[y*width+x], 1)
			}
		})
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}

	for i, v := range View[uint32](p, width*height) {
		if v != 1 {
			t.Fatalf("element %d written %d times, want 1", i, v)
		}
	}
}

func TestLaunchBlockIndex(t *testing.T) {
	dev := newTestDevice(t)
	s := dev.NewStream()

	grid := Dim3{X: 3, Y: 4, Z: 2}
	var seen [24]atomic.Int32
	err := dev.Launch(s, LaunchConfig{Grid: grid, Block: Dim3{X: 1, Y: 1, Z: 1}}, func(b *Block) {
		if b.GridDim != grid {
			panic("wrong grid dim")
		}
		seen[(b.Idx.Z*grid.Y+b.Idx.Y)*grid.X+b.Idx.X].Add(1)
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	for i := range seen {
		if seen[i].Load() != 1 {
			t.Errorf("block %d ran %d times, want 1", i, seen[i].Load())
		}
	}
}

func TestLaunchShared(t *testing.T) {
	dev := newTestDevice(t)
	s := dev.NewStream()

	p, err := dev.Malloc(8 * 4)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer dev.Free(p)

	err = dev.Launch(s, LaunchConfig{
		Grid:        Dim3{X: 8, Y: 1, Z: 1},
		Block:       Dim3{X: 64, Y: 1, Z: 1},
		SharedBytes: 64 * 4,
	}, func(b *Block) {
		sh := Shared[uint32](b, 64)
		b.Threads(func(x, _ int) {
			sh[x%64] += uint32(x % 64)
		})
		var sum uint32
		for _, v := range sh {
			sum += v
		}
		View[uint32](p, 8)[b.Idx.X] = sum
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := s.Synchronize(); err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	for i, v := range View[uint32](p, 8) {
		if v != 63*64/2 {
			t.Errorf("block %d sum = %d, want %d (shared memory not zeroed per block?)", i, v, 63*64/2)
		}
	}
}

func TestLaunchInvalidConfiguration(t *testing.T) {
	dev := newTestDevice(t)
	s := dev.NewStream()
	noop := func(*Block) {}

	tests := []struct {
		name string
		cfg  LaunchConfig
	}{
		{"empty_grid", LaunchConfig{Grid: Dim3{X: 0, Y: 1, Z: 1}, Block: Dim3{X: 1, Y: 1, Z: 1}}},
		{"empty_block", LaunchConfig{Grid: Dim3{X: 1, Y: 1, Z: 1}, Block: Dim3{X: 1, Y: 0, Z: 1}}},
		{"too_many_threads", LaunchConfig{Grid: Dim3{X: 1, Y: 1, Z: 1}, Block: Dim3{X: 64, Y: 32, Z: 1}}},
		{"too_much_shared", LaunchConfig{Grid: Dim3{X: 1, Y: 1, Z: 1}, Block: Dim3{X: 1, Y: 1, Z: 1}, SharedBytes: SharedMemPerBlock + 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := dev.Launch(s, tc.cfg, noop); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Launch = %v, want ErrInvalidConfiguration", err)
			}
		})
	}

	other := newTestDevice(t)
	cfg := LaunchConfig{Grid: Dim3{X: 1, Y: 1, Z: 1}, Block: Dim3{X: 1, Y: 1, Z: 1}}
	if err := other.Launch(s, cfg, noop); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Launch on foreign stream = %v, want ErrInvalidValue", err)
	}
}

func TestLaunchFault(t *testing.T) {
	dev := newTestDevice(t)
	s := dev.NewStream()

	p, err := dev.Malloc(16)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer dev.Free(p)

	cfg := LaunchConfig{Grid: Dim3{X: 4, Y: 1, Z: 1}, Block: Dim3{X: 1, Y: 1, Z: 1}}
	err = dev.Launch(s, cfg, func(b *Block) {
		View[uint32](p, 5)[0] = 1 // out of bounds
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	var after atomic.Bool
	dev.Launch(s, cfg, func(*Block) { after.Store(true) })

	if err := s.Synchronize(); !errors.Is(err, ErrLaunchFailure) {
		t.Fatalf("Synchronize = %v, want ErrLaunchFailure", err)
	}
	if after.Load() {
		t.Error("launch after a fault was not skipped")
	}
}
