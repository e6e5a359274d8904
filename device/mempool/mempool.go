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

// Package mempool implements the device memory pool: a sub-allocator that
// serves the short-lived scratch buffers kernels request, so that hot,
// repeatedly invoked operations do not pay for a device allocation and free
// on every call.
//
// An active pool owns one arena per size class, reserved from the device at
// activation and never grown. Size classes are powers of two starting at the
// minimum block size. Blocks are never split or coalesced: a request is
// served by the smallest class that fits and has a free block, and a request
// larger than the largest class always fails with ErrPoolExhausted so the
// caller can allocate directly.
//
//	pool := mempool.New(dev)
//	if err := pool.Activate(1 << 20); err != nil {
//	    return err
//	}
//	defer pool.Shutdown()
//
//	h, err := pool.Acquire(1024)
//	if err == nil {
//	    use(h.Ptr())
//	    pool.Release(h)
//	}
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwcv/device"
)

// DefaultMinBlockSize is the block size of the smallest size class. It
// matches the device allocation alignment.
const DefaultMinBlockSize = device.Alignment

var (
	ErrAlreadyActive   = errors.New("mempool: pool already active")
	ErrNotActive       = errors.New("mempool: pool not active")
	ErrPoolExhausted   = errors.New("mempool: pool exhausted")
	ErrInvalidCapacity = errors.New("mempool: invalid capacity")
	ErrInvalidSize     = errors.New("mempool: invalid request size")
)

// Allocator is the device allocation facility arenas are reserved from.
// *device.Device satisfies it.
type Allocator interface {
	Malloc(size int) (device.Ptr, error)
	Free(p device.Ptr) error
}

// Handle identifies one block handed out by Acquire. It is owned by the
// caller until passed to Release.
type Handle struct {
	Class  int // size class index
	Offset int // byte offset of the block within the class arena
	Size   int // block size in bytes, at least the requested size

	ptr device.Ptr
	gen uint64
}

// Ptr returns the device address of the block.
func (h Handle) Ptr() device.Ptr {
	return h.ptr
}

// ClassSpec describes one size class of an activation.
type ClassSpec struct {
	BlockSize int
	Blocks    int
}

// Ladder returns the size classes an activation with the given capacity
// builds: k power-of-two classes starting at minBlock, k as large as possible
// while the largest block still fits in an equal share capacity/k, each class
// holding as many blocks as fit in its share. The total never exceeds
// capacity. It returns nil when capacity cannot hold a single minimum block.
func Ladder(capacity, minBlock int) []ClassSpec {
	if minBlock <= 0 || capacity < minBlock {
		return nil
	}
	k := 1
	for k < 32 && (minBlock<<k) <= capacity/(k+1) {
		k++
	}
	share := capacity / k
	specs := make([]ClassSpec, k)
	for j := range specs {
		size := minBlock << j
		specs[j] = ClassSpec{BlockSize: size, Blocks: share / size}
	}
	return specs
}

type sizeClass struct {
	ClassSpec
	arena device.Ptr
	free  []int // offsets of free blocks, popped from the end
}

// Pool is a device memory pool. The zero value is not usable; create pools
// with New. A Pool is safe for concurrent use: Acquire and Release from
// kernels on different streams are serialized, the device work using the
// blocks is not.
type Pool struct {
	alloc    Allocator
	minBlock int
	log      logrus.FieldLogger

	mu          sync.Mutex
	active      bool
	gen         uint64
	capacity    int
	classes     []sizeClass
	outstanding int
	hits        uint64
	misses      uint64
}

type options struct {
	minBlock int
	logger   logrus.FieldLogger
}

// Option configures a Pool.
type Option func(*options)

// WithMinBlockSize sets the block size of the smallest size class.
func WithMinBlockSize(n int) Option {
	return func(o *options) { o.minBlock = n }
}

// WithLogger sets the logger for lifecycle and exhaustion messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// New returns an inactive pool that reserves arenas from alloc.
func New(alloc Allocator, opts ...Option) *Pool {
	o := options{minBlock: DefaultMinBlockSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}
	if o.minBlock <= 0 {
		o.minBlock = DefaultMinBlockSize
	}
	return &Pool{
		alloc:    alloc,
		minBlock: o.minBlock,
		log:      o.logger.WithField("component", "mempool"),
	}
}

// Activate reserves capacity bytes from the device, split into size classes
// as described by Ladder, and marks the pool active.
func (p *Pool) Activate(capacity int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return ErrAlreadyActive
	}
	specs := Ladder(capacity, p.minBlock)
	if specs == nil {
		return fmt.Errorf("%w: %d bytes is less than one %d byte block", ErrInvalidCapacity, capacity, p.minBlock)
	}

	classes := make([]sizeClass, 0, len(specs))
	for _, spec := range specs {
		arena, err := p.alloc.Malloc(spec.BlockSize * spec.Blocks)
		if err != nil {
			errs := []error{err}
			for _, c := range classes {
				if ferr := p.alloc.Free(c.arena); ferr != nil {
					errs = append(errs, ferr)
				}
			}
			return fmt.Errorf("mempool: reserving %d x %d bytes: %w", spec.Blocks, spec.BlockSize, errors.Join(errs...))
		}
		free := make([]int, spec.Blocks)
		for i := range free {
			free[i] = (spec.Blocks - 1 - i) * spec.BlockSize
		}
		classes = append(classes, sizeClass{ClassSpec: spec, arena: arena, free: free})
	}

	p.active = true
	p.gen++
	p.capacity = capacity
	p.classes = classes
	p.outstanding = 0
	p.hits, p.misses = 0, 0

	p.log.WithFields(logrus.Fields{
		"capacity": capacity,
		"classes":  len(classes),
		"largest":  classes[len(classes)-1].BlockSize,
	}).Debug("memory pool activated")
	return nil
}

// Acquire returns a free block of at least size bytes from the smallest size
// class that fits and has one. It fails with ErrPoolExhausted when no class
// can serve the request, and with ErrNotActive when the pool is inactive.
func (p *Pool) Acquire(size int) (Handle, error) {
	if size <= 0 {
		return Handle{}, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return Handle{}, ErrNotActive
	}
	for i := range p.classes {
		c := &p.classes[i]
		if c.BlockSize < size || len(c.free) == 0 {
			continue
		}
		off := c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
		p.outstanding += c.BlockSize
		p.hits++
		return Handle{
			Class:  i,
			Offset: off,
			Size:   c.BlockSize,
			ptr:    c.arena.Add(off),
			gen:    p.gen,
		}, nil
	}

	p.misses++
	p.log.WithFields(logrus.Fields{
		"size":        size,
		"outstanding": p.outstanding,
	}).Debug("memory pool exhausted")
	return Handle{}, fmt.Errorf("%w: no free block of %d bytes", ErrPoolExhausted, size)
}

// Release returns a block to its size class. Releasing a handle twice is
// undefined. Handles issued before a Shutdown are ignored.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || h.gen != p.gen || h.Class < 0 || h.Class >= len(p.classes) {
		return
	}
	c := &p.classes[h.Class]
	c.free = append(c.free, h.Offset)
	p.outstanding -= c.BlockSize
}

// Shutdown frees every arena and returns the pool to the inactive state.
// Outstanding handles become invalid. The pool may be activated again.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return ErrNotActive
	}
	var errs []error
	for _, c := range p.classes {
		if err := p.alloc.Free(c.arena); err != nil {
			errs = append(errs, err)
		}
	}
	if p.outstanding > 0 {
		p.log.WithField("outstanding", p.outstanding).Warn("memory pool shut down with blocks in use")
	}
	p.active = false
	p.classes = nil
	p.capacity = 0
	p.outstanding = 0
	p.log.Debug("memory pool shut down")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("mempool: freeing arenas: %w", err)
	}
	return nil
}

// Active reports whether the pool is active.
func (p *Pool) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Capacity returns the capacity of the current activation, 0 when inactive.
func (p *Pool) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// ClassStats is the state of one size class.
type ClassStats struct {
	BlockSize int
	Blocks    int
	Free      int
}

// Stats is a snapshot of the pool bookkeeping.
type Stats struct {
	Active      bool
	Capacity    int // bytes requested at activation
	Reserved    int // bytes held in arenas, at most Capacity
	Outstanding int // bytes in blocks handed out
	Free        int // bytes in free blocks
	Hits        uint64
	Misses      uint64
	Classes     []ClassStats
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Active:      p.active,
		Capacity:    p.capacity,
		Outstanding: p.outstanding,
		Hits:        p.hits,
		Misses:      p.misses,
	}
	for _, c := range p.classes {
		s.Reserved += c.BlockSize * c.Blocks
		s.Free += c.BlockSize * len(c.free)
		s.Classes = append(s.Classes, ClassStats{BlockSize: c.BlockSize, Blocks: c.Blocks, Free: len(c.free)})
	}
	return s
}
