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

// Package workerpool provides the compute units of the simulated device: a
// fixed set of persistent goroutines that execute the blocks of a launched
// grid. Workers are spawned once per device and shared by every stream, so a
// launch costs a few channel sends rather than a goroutine per block.
//
// Usage:
//
//	units := workerpool.New(runtime.GOMAXPROCS(0))
//	defer units.Close()
//
//	err := units.Run(numBlocks, func(block int) {
//	    runBlock(block)
//	})
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent set of compute units. It is safe to submit work from
// several goroutines at once; their items interleave on the same workers.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// PanicError is returned by Run and RunBatched when a work function panics.
type PanicError struct {
	Index int // first index of the failing item
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("workerpool: item %d panicked: %v", e.Index, e.Value)
}

// New creates a pool with numWorkers compute units.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of compute units.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the workers after pending items complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// failure records the first panic raised by any item of one submission and
// tells the remaining workers to stop grabbing new items.
type failure struct {
	once sync.Once
	err  error
	stop atomic.Bool
}

func (f *failure) capture(index int) {
	if r := recover(); r != nil {
		f.once.Do(func() {
			f.err = &PanicError{Index: index, Value: r}
		})
		f.stop.Store(true)
	}
}

// guard runs fn(start, end) and converts a panic into a recorded failure.
func (f *failure) guard(start, end int, fn func(start, end int)) {
	defer f.capture(start)
	fn(start, end)
}

// Run executes fn for each index in [0, n) with atomic work distribution and
// blocks until all items complete. A panicking item stops the distribution of
// further items and is returned as a *PanicError; items already running
// finish normally.
func (p *Pool) Run(n int, fn func(i int)) error {
	return p.RunBatched(n, 1, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}

// RunBatched is Run with batchSize consecutive indices grabbed per atomic
// operation. fn receives [start, end).
func (p *Pool) RunBatched(n, batchSize int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	var f failure
	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)

	if workers == 1 || p.closed.Load() {
		for start := 0; start < n && !f.stop.Load(); start += batchSize {
			f.guard(start, min(start+batchSize, n), fn)
		}
		return f.err
	}

	var nextBatch atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for !f.stop.Load() {
					batch := int(nextBatch.Add(1)) - 1
					start := batch * batchSize
					if start >= n {
						return
					}
					f.guard(start, min(start+batchSize, n), fn)
				}
			},
			barrier: &wg,
		}
	}

	wg.Wait()
	return f.err
}

// ParallelFor splits [0, n) into at most NumWorkers contiguous row ranges and
// blocks until every range is done. It serves host-side bulk work (copies,
// reference computations) that cannot fail.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunks := min(p.numWorkers, n)
	rows := (n + chunks - 1) / chunks
	if chunks == 1 || p.closed.Load() {
		fn(0, n)
		return
	}

	var done sync.WaitGroup
	for lo := 0; lo < n; lo += rows {
		hi := min(lo+rows, n)
		done.Add(1)
		p.workC <- workItem{fn: func() { fn(lo, hi) }, barrier: &done}
	}
	done.Wait()
}
