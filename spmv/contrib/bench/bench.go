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

// Package bench runs a kernel repeatedly inside one parallel region and
// times every iteration.
//
// Each iteration starts with a barrier. Worker 0 starts the clock after
// that barrier and stops it right after the barrier that ends the
// multiply, so the time of a slow start barrier is not counted. A kernel
// error on any worker is agreed on at the end barrier, and all workers
// leave the loop together.
//
// y is not cleared between iterations unless Config.ResetY is set: after
// Repeat iterations, y holds y0 + Repeat*A*x.
package bench

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/spmv"
	"github.com/ajroetker/go-spmv/spmv/contrib/kernel"
	"github.com/ajroetker/go-spmv/spmv/contrib/profile"
	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
	"github.com/ajroetker/go-spmv/spmv/hint"
)

// DefaultRegion is the profiler region name of the timed loop.
const DefaultRegion = "gemv"

// Config controls a benchmark run.
type Config struct {
	// Warmup iterations run before the timed loop on a scratch copy of y,
	// so they do not contribute to the result.
	Warmup int

	// Repeat is the number of timed iterations.
	Repeat int

	// ResetY zeroes y before every iteration. Each worker clears the rows
	// it owns.
	ResetY bool

	// Profiler brackets the timed loop. Nil means profile.Nop.
	Profiler profile.Profiler

	// Hinter is entered before the warmup and left after the timed loop.
	// Nil means hint.Nop.
	Hinter hint.Hinter

	// Region names the profiler region. Empty means DefaultRegion.
	Region string
}

// Result holds the timings of one run.
type Result struct {
	RunID   xid.ID
	Kernel  string
	Workers int
	Cost    kernel.Cost

	Warmups    []time.Duration
	Iterations []time.Duration
}

// Total returns the time of all timed iterations.
func (r *Result) Total() time.Duration {
	return lo.Sum(r.Iterations)
}

// Min returns the fastest timed iteration, or zero without iterations.
func (r *Result) Min() time.Duration {
	return lo.Min(r.Iterations)
}

// Max returns the slowest timed iteration.
func (r *Result) Max() time.Duration {
	return lo.Max(r.Iterations)
}

// Mean returns the average timed iteration.
func (r *Result) Mean() time.Duration {
	if len(r.Iterations) == 0 {
		return 0
	}
	return r.Total() / time.Duration(len(r.Iterations))
}

// Throughput returns the rates achieved by an iteration that took d.
func (r *Result) Throughput(d time.Duration) kernel.Rates {
	return r.Cost.Rates(d)
}

// Run multiplies y += A*x Warmup+Repeat times with k on pool, which must
// have as many workers as k's plan.
//
// Errors in the arguments are reported before any parallel work starts.
// A kernel error stops all workers after the iteration in which it
// occurred; y then holds a partial result.
func Run(pool *workerpool.Pool, k kernel.Kernel, x, y []float64, cfg Config) (*Result, error) {
	n := pool.NumWorkers()
	if k.Plan().Workers() != n {
		return nil, fmt.Errorf("%w: kernel planned for %d workers, pool has %d",
			spmv.ErrInvalidConfiguration, k.Plan().Workers(), n)
	}
	if len(x) != k.NumColumns() {
		return nil, fmt.Errorf("%w: x has %d entries, matrix has %d columns", spmv.ErrDimensionMismatch, len(x), k.NumColumns())
	}
	if len(y) != k.NumRows() {
		return nil, fmt.Errorf("%w: y has %d entries, matrix has %d rows", spmv.ErrDimensionMismatch, len(y), k.NumRows())
	}
	if cfg.Warmup < 0 || cfg.Repeat < 0 {
		return nil, fmt.Errorf("%w: %d warmup and %d timed iterations", spmv.ErrInvalidConfiguration, cfg.Warmup, cfg.Repeat)
	}
	profiler := cfg.Profiler
	if profiler == nil {
		profiler = profile.Nop{}
	}
	counter, _ := profiler.(profile.WorkerCounter)
	hinter := cfg.Hinter
	if hinter == nil {
		hinter = hint.Nop{}
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	res := &Result{
		RunID:      xid.New(),
		Kernel:     k.Name(),
		Workers:    n,
		Cost:       k.Cost(),
		Warmups:    make([]time.Duration, cfg.Warmup),
		Iterations: make([]time.Duration, cfg.Repeat),
	}
	var scratch []float64
	if cfg.Warmup > 0 {
		scratch = append([]float64(nil), y...)
	}

	vectorBytes := int64(len(x)+len(y)) * 8
	hinter.Enter(k.Name(),
		hint.Stream{Name: "matrix", Bytes: res.Cost.MinBytes - vectorBytes},
		hint.Stream{Name: "x", Bytes: int64(len(x)) * 8},
		hint.Stream{Name: "y", Bytes: int64(len(y)) * 8})
	defer hinter.Exit()

	warmup := loop{k: k, x: x, y: scratch, resetY: cfg.ResetY && cfg.Warmup > 0, times: res.Warmups, label: " (warmup)"}
	timed := loop{k: k, x: x, y: y, resetY: cfg.ResetY, times: res.Iterations, counter: counter}

	var runErr error
	pool.Region(func(w *workerpool.Worker) {
		err := warmup.run(w)
		if err == nil {
			w.Barrier()
			var perr error
			if w.ID() == 0 {
				perr = profiler.Start(region)
			}
			if err = w.Agree(perr); err != nil {
				err = fmt.Errorf("bench: starting profiler region %q: %w", region, err)
			}
		}
		if err != nil {
			if w.ID() == 0 {
				runErr = err
			}
			return
		}

		err = timed.run(w)
		if w.ID() == 0 {
			if perr := profiler.Stop(); perr != nil && err == nil {
				err = fmt.Errorf("bench: stopping profiler region %q: %w", region, perr)
			}
			runErr = err
		}
	})
	if runErr != nil {
		return nil, runErr
	}

	if klog.V(1).Enabled() && cfg.Repeat > 0 {
		klog.Infof("%s: %d iterations on %d workers, best %s", res.Kernel, cfg.Repeat, n, res.Throughput(res.Min()))
	}
	return res, nil
}

// loop is one sequence of timed iterations inside a region.
type loop struct {
	k       kernel.Kernel
	x, y    []float64
	resetY  bool
	times   []time.Duration
	counter profile.WorkerCounter
	label   string
}

// run executes the loop on worker w. All workers return the same error.
func (l *loop) run(w *workerpool.Worker) error {
	id := w.ID()
	var rows []float64
	if l.resetY && len(l.times) > 0 {
		r := l.k.Plan().RowRange(id)
		rows = l.y[r.Start:r.End]
	}

	for i := range l.times {
		clear(rows)
		w.Barrier()

		var t0 time.Time
		if id == 0 || l.counter != nil {
			t0 = time.Now()
		}
		err := l.k.Multiply(id, l.x, l.y)
		if l.counter != nil {
			l.counter.Count(id, time.Since(t0))
		}
		err = w.Agree(err)

		if id == 0 {
			l.times[i] = time.Since(t0)
			if err == nil && klog.V(1).Enabled() {
				klog.Infof("%s%s: %s", l.k.Name(), l.label, l.k.Cost().Rates(l.times[i]))
			}
		}
		if err != nil {
			return fmt.Errorf("bench: iteration %d%s: %w", i+1, l.label, err)
		}
	}
	return nil
}
