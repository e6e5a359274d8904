// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestRun(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	if err := pool.Run(n, func(i int) {
		results[i] = i * 2
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestRunBatched(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 103
	var visits [103]atomic.Int32

	if err := pool.RunBatched(n, 10, func(start, end int) {
		for i := start; i < end; i++ {
			visits[i].Add(1)
		}
	}); err != nil {
		t.Fatalf("RunBatched: %v", err)
	}

	for i := range n {
		if got := visits[i].Load(); got != 1 {
			t.Errorf("index %d visited %d times, want 1", i, got)
		}
	}
}

func TestRunPanic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	err := pool.Run(1000, func(i int) {
		if i == 17 {
			panic("boom")
		}
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run error = %v, want *PanicError", err)
	}
	if pe.Index != 17 || pe.Value != "boom" {
		t.Errorf("PanicError = %+v, want index 17 value boom", pe)
	}

	// Workers must survive a panicking item.
	var count atomic.Int32
	if err := pool.Run(64, func(int) { count.Add(1) }); err != nil {
		t.Fatalf("Run after panic: %v", err)
	}
	if count.Load() != 64 {
		t.Errorf("count = %d, want 64", count.Load())
	}
}

func TestRunSingleWorkerPanic(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	var ran atomic.Int32
	err := pool.Run(10, func(i int) {
		ran.Add(1)
		if i == 3 {
			panic("stop")
		}
	})
	if err == nil {
		t.Fatal("Run returned nil, want panic error")
	}
	if ran.Load() != 4 {
		t.Errorf("ran %d items, want 4", ran.Load())
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	// Rows of a 37-row image: every row is visited once, in contiguous chunks.
	const rows = 37
	var visits [rows]atomic.Int32
	var chunks atomic.Int32
	pool.ParallelFor(rows, func(start, end int) {
		if start >= end {
			t.Errorf("empty chunk [%d, %d)", start, end)
		}
		chunks.Add(1)
		for y := start; y < end; y++ {
			visits[y].Add(1)
		}
	})

	for y := range visits {
		if got := visits[y].Load(); got != 1 {
			t.Errorf("row %d visited %d times", y, got)
		}
	}
	if got := chunks.Load(); got > 4 {
		t.Errorf("%d chunks for 4 workers", got)
	}
}

func TestParallelForSmallN(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	n := 3
	var count atomic.Int32

	pool.ParallelFor(n, func(start, end int) {
		count.Add(int32(end - start))
	})

	if count.Load() != int32(n) {
		t.Errorf("count = %d, want %d", count.Load(), n)
	}
}

func TestZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var called bool
	pool.ParallelFor(0, func(start, end int) {
		called = true
	})
	if err := pool.Run(0, func(int) { called = true }); err != nil {
		t.Fatalf("Run(0): %v", err)
	}

	if called {
		t.Error("n=0 should not call fn")
	}
}

func TestCloseMultipleTimes(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close()
}

func TestClosedPoolFallback(t *testing.T) {
	pool := New(4)
	pool.Close()

	// A closed pool still runs work, inline on the caller.
	blocks := make([]int, 64)
	if err := pool.Run(len(blocks), func(i int) {
		blocks[i]++
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	pool.ParallelFor(len(blocks), func(start, end int) {
		for i := start; i < end; i++ {
			blocks[i]++
		}
	})

	for i, v := range blocks {
		if v != 2 {
			t.Errorf("block %d ran %d times, want 2", i, v)
		}
	}
}

func BenchmarkRun(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	n := 1000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.Run(n, func(i int) {
			_ = i * i
		})
	}
}

func BenchmarkRunBatched(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	n := 1000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.RunBatched(n, 10, func(start, end int) {
			for j := start; j < end; j++ {
				_ = j * j
			}
		})
	}
}
