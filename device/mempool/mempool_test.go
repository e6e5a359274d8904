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

package mempool

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/hwcv/device"
)

func newTestDevice(t *testing.T, opts ...device.Option) *device.Device {
	t.Helper()
	dev, err := device.New(append([]device.Option{device.WithComputeUnits(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestLadder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     []ClassSpec
	}{
		{"too_small", 255, nil},
		{"one_block", 256, []ClassSpec{{256, 1}}},
		{"1KiB", 1024, []ClassSpec{{256, 2}, {512, 1}}},
		{"4KiB", 4096, []ClassSpec{{256, 5}, {512, 2}, {1024, 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Ladder(tc.capacity, 256))
		})
	}
}

func TestLadderFitsCapacity(t *testing.T) {
	for _, capacity := range []int{256, 300, 1000, 1 << 16, 3 << 20, 1<<30 + 17} {
		specs := Ladder(capacity, DefaultMinBlockSize)
		require.NotEmpty(t, specs, "capacity %d", capacity)

		total := 0
		for i, s := range specs {
			assert.Equal(t, DefaultMinBlockSize<<i, s.BlockSize)
			assert.Positive(t, s.Blocks, "class %d of capacity %d has no blocks", i, capacity)
			total += s.BlockSize * s.Blocks
		}
		assert.LessOrEqual(t, total, capacity)
	}
}

func TestActivateTwice(t *testing.T) {
	pool := New(newTestDevice(t))

	require.NoError(t, pool.Activate(1024))
	assert.ErrorIs(t, pool.Activate(1024), ErrAlreadyActive)
	assert.ErrorIs(t, pool.Activate(4096), ErrAlreadyActive)
	require.NoError(t, pool.Shutdown())
}

func TestShutdownWithoutActivate(t *testing.T) {
	pool := New(newTestDevice(t))

	assert.ErrorIs(t, pool.Shutdown(), ErrNotActive)

	require.NoError(t, pool.Activate(1024))
	require.NoError(t, pool.Shutdown())
	assert.Zero(t, pool.Capacity())
	assert.ErrorIs(t, pool.Shutdown(), ErrNotActive)
}

func TestActivateInvalidCapacity(t *testing.T) {
	pool := New(newTestDevice(t))

	assert.ErrorIs(t, pool.Activate(0), ErrInvalidCapacity)
	assert.ErrorIs(t, pool.Activate(100), ErrInvalidCapacity)
	assert.False(t, pool.Active())
}

func TestActivateReservesArenas(t *testing.T) {
	dev := newTestDevice(t)
	pool := New(dev)

	require.NoError(t, pool.Activate(1<<20))
	_, allocs := dev.MemoryInUse()
	assert.Equal(t, len(Ladder(1<<20, DefaultMinBlockSize)), allocs, "one arena per size class")

	require.NoError(t, pool.Shutdown())
	bytes, allocs := dev.MemoryInUse()
	assert.Zero(t, bytes)
	assert.Zero(t, allocs)
}

func TestActivateDeviceOutOfMemory(t *testing.T) {
	dev := newTestDevice(t, device.WithMemoryLimit(2048))
	pool := New(dev)

	err := pool.Activate(1 << 20)
	require.ErrorIs(t, err, device.ErrOutOfMemory)
	assert.False(t, pool.Active())

	bytes, _ := dev.MemoryInUse()
	assert.Zero(t, bytes, "partially reserved arenas must be returned")
}

func TestAcquireInactive(t *testing.T) {
	pool := New(newTestDevice(t))

	_, err := pool.Acquire(64)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestAcquireSmallestFit(t *testing.T) {
	pool := New(newTestDevice(t))
	require.NoError(t, pool.Activate(4096)) // 256 x5, 512 x2, 1024 x1

	h, err := pool.Acquire(300)
	require.NoError(t, err)
	assert.Equal(t, 512, h.Size)
	assert.Equal(t, 1, h.Class)
	assert.False(t, h.Ptr().IsNil())

	small, err := pool.Acquire(1)
	require.NoError(t, err)
	assert.Equal(t, 256, small.Size)

	pool.Release(h)
	pool.Release(small)
	require.NoError(t, pool.Shutdown())
}

func TestAcquireFallsUpward(t *testing.T) {
	pool := New(newTestDevice(t))
	require.NoError(t, pool.Activate(1024)) // 256 x2, 512 x1

	a, err := pool.Acquire(200)
	require.NoError(t, err)
	b, err := pool.Acquire(200)
	require.NoError(t, err)
	c, err := pool.Acquire(200)
	require.NoError(t, err)
	assert.Equal(t, 512, c.Size, "third small request is served by the next class")

	_, err = pool.Acquire(200)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	for _, h := range []Handle{a, b, c} {
		pool.Release(h)
	}
	stats := pool.Stats()
	assert.Equal(t, stats.Reserved, stats.Free)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestAcquireLargerThanLargestClass(t *testing.T) {
	pool := New(newTestDevice(t))
	require.NoError(t, pool.Activate(1024))

	_, err := pool.Acquire(1024)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	_, err = pool.Acquire(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestBlocksDoNotOverlap(t *testing.T) {
	pool := New(newTestDevice(t))
	require.NoError(t, pool.Activate(8192))

	var handles []Handle
	for {
		h, err := pool.Acquire(256)
		if errors.Is(err, ErrPoolExhausted) {
			break
		}
		require.NoError(t, err)
		handles = append(handles, h)
	}
	require.NotEmpty(t, handles)

	for i, h := range handles {
		device.View[byte](h.Ptr(), h.Size)[0] = byte(i)
	}
	for i, h := range handles {
		assert.Equal(t, byte(i), device.View[byte](h.Ptr(), h.Size)[0], "block %d was overwritten", i)
		for j, o := range handles[:i] {
			lo, hi := h.Ptr().Addr(), h.Ptr().Addr()+uintptr(h.Size)
			olo, ohi := o.Ptr().Addr(), o.Ptr().Addr()+uintptr(o.Size)
			assert.True(t, hi <= olo || ohi <= lo, "blocks %d and %d overlap", i, j)
		}
	}
}

// TestCapacityInvariant drives random acquire/release sequences and checks
// that outstanding plus free bytes never exceed capacity, and that releasing
// everything restores the initial free bytes.
func TestCapacityInvariant(t *testing.T) {
	for _, capacity := range []int{1024, 5000, 1 << 16} {
		pool := New(newTestDevice(t))
		require.NoError(t, pool.Activate(capacity))
		initial := pool.Stats()
		require.Equal(t, initial.Reserved, initial.Free)

		rng := rand.New(rand.NewPCG(uint64(capacity), 7))
		var held []Handle
		for step := range 2000 {
			if len(held) > 0 && rng.IntN(2) == 0 {
				i := rng.IntN(len(held))
				pool.Release(held[i])
				held = append(held[:i], held[i+1:]...)
			} else if h, err := pool.Acquire(1 + rng.IntN(capacity/2)); err == nil {
				held = append(held, h)
			} else {
				require.ErrorIs(t, err, ErrPoolExhausted)
			}

			s := pool.Stats()
			require.LessOrEqual(t, s.Outstanding+s.Free, capacity, "step %d", step)
			require.Equal(t, s.Reserved, s.Outstanding+s.Free, "step %d", step)
		}

		for _, h := range held {
			pool.Release(h)
		}
		final := pool.Stats()
		assert.Equal(t, initial.Free, final.Free)
		assert.Zero(t, final.Outstanding)
		require.NoError(t, pool.Shutdown())
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	pool := New(newTestDevice(t))
	require.NoError(t, pool.Activate(1<<16))
	initial := pool.Stats()

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), 1))
			for range 500 {
				h, err := pool.Acquire(1 + rng.IntN(4096))
				if errors.Is(err, ErrPoolExhausted) {
					continue
				}
				if err != nil {
					return err
				}
				b := device.View[byte](h.Ptr(), h.Size)
				b[0], b[len(b)-1] = byte(w), byte(w)
				if b[0] != byte(w) || b[len(b)-1] != byte(w) {
					return errors.New("block shared between goroutines")
				}
				pool.Release(h)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	final := pool.Stats()
	assert.Equal(t, initial.Free, final.Free)
	assert.Zero(t, final.Outstanding)
	require.NoError(t, pool.Shutdown())
}

func TestReactivate(t *testing.T) {
	pool := New(newTestDevice(t))

	require.NoError(t, pool.Activate(1024))
	stale, err := pool.Acquire(256)
	require.NoError(t, err)
	require.NoError(t, pool.Shutdown())

	require.NoError(t, pool.Activate(4096))
	assert.Equal(t, 4096, pool.Capacity())
	assert.Equal(t, 4096, pool.Stats().Capacity)
	before := pool.Stats().Free
	pool.Release(stale) // handle from the previous activation
	assert.Equal(t, before, pool.Stats().Free)
	require.NoError(t, pool.Shutdown())
}

func TestMinBlockSizeOption(t *testing.T) {
	pool := New(newTestDevice(t), WithMinBlockSize(64))
	require.NoError(t, pool.Activate(256))

	h, err := pool.Acquire(10)
	require.NoError(t, err)
	assert.Equal(t, 64, h.Size)
	pool.Release(h)
	require.NoError(t, pool.Shutdown())
}

// flakyAllocator fails Malloc after ok successful calls and fails every Free.
type flakyAllocator struct {
	dev   *device.Device
	ok    int
	freed int
}

var (
	errMallocFailed = errors.New("malloc failed")
	errFreeFailed   = errors.New("free failed")
)

func (a *flakyAllocator) Malloc(size int) (device.Ptr, error) {
	if a.ok == 0 {
		return device.Ptr{}, errMallocFailed
	}
	a.ok--
	return a.dev.Malloc(size)
}

func (a *flakyAllocator) Free(p device.Ptr) error {
	a.freed++
	a.dev.Free(p)
	return errFreeFailed
}

func TestActivateRollbackReportsFreeErrors(t *testing.T) {
	alloc := &flakyAllocator{dev: newTestDevice(t), ok: 2}
	pool := New(alloc)

	err := pool.Activate(4096) // three classes, the third reservation fails
	require.ErrorIs(t, err, errMallocFailed)
	assert.ErrorIs(t, err, errFreeFailed)
	assert.Equal(t, 2, alloc.freed)
	assert.False(t, pool.Active())
}
