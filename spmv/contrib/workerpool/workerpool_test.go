// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
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

func TestNilPool(t *testing.T) {
	var pool *Pool
	if pool.NumWorkers() != 1 {
		t.Errorf("NumWorkers() = %d, want 1", pool.NumWorkers())
	}

	results := make([]int, 10)
	pool.ParallelFor(len(results), func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i
		}
	})
	for i, r := range results {
		if r != i {
			t.Errorf("results[%d] = %d, want %d", i, r, i)
		}
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForAtomicBatched(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelForAtomicBatched(n, 10, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForSmallN(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	// Test with n smaller than workers
	n := 3
	var count atomic.Int32

	pool.ParallelFor(n, func(start, end int) {
		count.Add(int32(end - start))
	})

	if count.Load() != int32(n) {
		t.Errorf("count = %d, want %d", count.Load(), n)
	}
}

func TestParallelForZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var called bool
	pool.ParallelFor(0, func(start, end int) {
		called = true
	})

	if called {
		t.Error("ParallelFor with n=0 should not call fn")
	}
}

func TestCloseMultipleTimes(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close() // Should not panic
}

func TestClosedPoolFallback(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 100
	results := make([]int, n)

	// Should still work (sequential fallback)
	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestRegionRunsEveryWorker(t *testing.T) {
	pool := New(6)
	defer pool.Close()

	seen := make([]atomic.Int32, pool.NumWorkers())
	pool.Region(func(w *Worker) {
		if w.NumWorkers() != 6 {
			t.Errorf("NumWorkers() = %d, want 6", w.NumWorkers())
		}
		seen[w.ID()].Add(1)
	})

	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Errorf("worker %d ran %d times, want 1", i, got)
		}
	}
}

func TestRegionBarrierOrdersPhases(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	const rounds = 50
	var counter atomic.Int64
	var bad atomic.Int32

	pool.Region(func(w *Worker) {
		for round := range rounds {
			counter.Add(1)
			w.Barrier()
			// Every worker has incremented exactly once per round so far.
			if got := counter.Load(); got != int64((round+1)*w.NumWorkers()) {
				bad.Add(1)
			}
			w.Barrier()
		}
	})

	if bad.Load() != 0 {
		t.Errorf("%d workers observed a counter from the wrong round", bad.Load())
	}
}

type workerError int

func (e workerError) Error() string { return "worker error" }

func TestAgreeFirstErrorWins(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	results := make([]error, pool.NumWorkers())
	pool.Region(func(w *Worker) {
		var err error
		if w.ID() == 1 || w.ID() == 3 {
			err = workerError(w.ID())
		}
		results[w.ID()] = w.Agree(err)
	})

	for i, err := range results {
		if err != workerError(1) {
			t.Errorf("worker %d agreed on %v, want worker 1's error", i, err)
		}
	}
}

func TestAgreeStopsAllWorkersTogether(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	iterations := make([]int, pool.NumWorkers())
	pool.Region(func(w *Worker) {
		for i := range 100 {
			w.Barrier()
			var err error
			if w.ID() == 2 && i == 7 {
				err = workerError(2)
			}
			iterations[w.ID()]++
			if w.Agree(err) != nil {
				return
			}
		}
	})

	for id, n := range iterations {
		if n != 8 {
			t.Errorf("worker %d ran %d iterations, want 8", id, n)
		}
	}
}

func TestAgreeBackToBack(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	const rounds = 500
	var bad atomic.Int32
	pool.Region(func(w *Worker) {
		for round := range rounds {
			// Only the last worker fails, and only on odd rounds; no Barrier
			// separates the calls.
			var err error
			if round%2 == 1 && w.ID() == w.NumWorkers()-1 {
				err = workerError(round)
			}
			got := w.Agree(err)
			if (round%2 == 1) != (got == workerError(round)) {
				bad.Add(1)
			}
		}
	})

	if bad.Load() != 0 {
		t.Errorf("%d Agree results came from the wrong round", bad.Load())
	}
}

func TestRegionClosedPool(t *testing.T) {
	pool := New(3)
	pool.Close()

	var count atomic.Int32
	pool.Region(func(w *Worker) {
		w.Barrier()
		count.Add(1)
	})
	if count.Load() != 3 {
		t.Errorf("count = %d, want 3", count.Load())
	}
}

func TestRegionNilPool(t *testing.T) {
	var pool *Pool
	var ids []int
	pool.Region(func(w *Worker) {
		w.Barrier()
		if err := w.Agree(nil); err != nil {
			t.Errorf("Agree(nil) = %v", err)
		}
		ids = append(ids, w.ID())
	})
	if len(ids) != 1 || ids[0] != 0 {
		t.Errorf("ids = %v, want [0]", ids)
	}
}

func BenchmarkParallelFor(b *testing.B) {
	pool := New(0) // Use GOMAXPROCS
	defer pool.Close()

	n := 1000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ParallelFor(n, func(start, end int) {
			// Simulate work
			for j := start; j < end; j++ {
				_ = j * j
			}
		})
	}
}

func BenchmarkParallelForAtomicBatched(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	n := 1000

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ParallelForAtomicBatched(n, 10, func(start, end int) {
			for j := start; j < end; j++ {
				_ = j * j
			}
		})
	}
}

// BenchmarkBarrier measures one barrier round inside a region, the
// overhead that the benchmark driver keeps out of its timed interval.
func BenchmarkBarrier(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	b.ResetTimer()
	pool.Region(func(w *Worker) {
		for i := 0; i < b.N; i++ {
			w.Barrier()
		}
	})
}
