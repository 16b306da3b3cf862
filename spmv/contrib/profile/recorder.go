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

package profile

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"
	"github.com/rs/xid"
	"golang.org/x/sys/cpu"
)

const separator = "-----------------------------------------------------\n"

// Options configures a Recorder.
type Options struct {
	// Workers is the number of workers that may call Count.
	Workers int

	Format Format

	// PerThread prints each worker's counts when a region stops.
	PerThread bool

	// Region prints a summary when a region stops.
	Region bool

	// Summary prints the totals of all regions on Close.
	Summary bool

	// Output receives the report. Nil means os.Stdout.
	Output io.Writer
}

// workerSlot holds one worker's counts for the open region.
type workerSlot struct {
	calls   atomic.Int64
	elapsed atomic.Int64
	_       cpu.CacheLinePad
}

// regionStats accumulates all runs of one named region.
type regionStats struct {
	name    string
	runs    int
	elapsed time.Duration
	calls   int64
}

// Recorder is a Profiler that measures wall time per region and counts
// kernel calls per worker.
type Recorder struct {
	opts  Options
	out   io.Writer
	runID xid.ID
	start func() time.Time

	mu      sync.Mutex
	closed  bool
	current string
	began   time.Time
	workers []workerSlot
	regions *btree.BTreeG[*regionStats]
	total   regionStats
}

// NewRecorder creates a Recorder and, for CSV output, writes the header.
// The caller must Close it to print the summary.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("profile: %d workers", opts.Workers)
	}
	r := &Recorder{
		opts:    opts,
		out:     opts.Output,
		runID:   xid.New(),
		start:   time.Now,
		workers: make([]workerSlot, opts.Workers),
		regions: btree.NewG(2, func(a, b *regionStats) bool { return a.name < b.name }),
		total:   regionStats{name: "total"},
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if opts.Format == CSV {
		if _, err := fmt.Fprintln(r.out, "run,region,thread,seconds,calls"); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RunID identifies this recorder's output.
func (r *Recorder) RunID() xid.ID {
	return r.runID
}

// Start opens a region.
func (r *Recorder) Start(region string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.current != "" {
		return fmt.Errorf("%w: %q is still open", ErrAlreadyStarted, r.current)
	}
	for i := range r.workers {
		r.workers[i].calls.Store(0)
		r.workers[i].elapsed.Store(0)
	}
	r.current = region
	r.began = r.start()
	return nil
}

// Count records one kernel call of worker that took elapsed.
func (r *Recorder) Count(worker int, elapsed time.Duration) {
	slot := &r.workers[worker]
	slot.calls.Add(1)
	slot.elapsed.Add(int64(elapsed))
}

// Stop closes the open region and prints its report.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.current == "" {
		return ErrNotStarted
	}
	elapsed := r.start().Sub(r.began)
	name := r.current
	r.current = ""

	var calls int64
	for i := range r.workers {
		calls += r.workers[i].calls.Load()
	}
	stats, ok := r.regions.Get(&regionStats{name: name})
	if !ok {
		stats = &regionStats{name: name}
		r.regions.ReplaceOrInsert(stats)
	}
	stats.runs++
	stats.elapsed += elapsed
	stats.calls += calls
	r.total.runs++
	r.total.elapsed += elapsed
	r.total.calls += calls

	if r.opts.PerThread {
		for i := range r.workers {
			w := &r.workers[i]
			d := time.Duration(w.elapsed.Load())
			if err := r.print(name, i, fmt.Sprintf("Thread %d Counters", i), d, w.calls.Load()); err != nil {
				return err
			}
		}
	}
	if r.opts.Region {
		title := fmt.Sprintf("Region %s Summary (%d Threads)", name, len(r.workers))
		return r.print(name, -1, title, elapsed, calls)
	}
	return nil
}

// Regions returns the accumulated wall time and calls of every region,
// ordered by name.
func (r *Recorder) Regions() []RegionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RegionSummary
	r.regions.Ascend(func(s *regionStats) bool {
		out = append(out, RegionSummary{Name: s.name, Runs: s.runs, Elapsed: s.elapsed, Calls: s.calls})
		return true
	})
	return out
}

// RegionSummary is the accumulated record of one region.
type RegionSummary struct {
	Name    string
	Runs    int
	Elapsed time.Duration
	Calls   int64
}

// Close prints the summary of all regions, if requested. Closing twice
// is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.current != "" {
		return fmt.Errorf("%w: %q is still open", ErrAlreadyStarted, r.current)
	}
	if !r.opts.Summary {
		return nil
	}
	if r.opts.Format == Plain {
		if _, err := fmt.Fprintf(r.out, "run %s:\n", r.runID); err != nil {
			return err
		}
		var err error
		r.regions.Ascend(func(s *regionStats) bool {
			_, err = fmt.Fprintf(r.out, "  %-20s %d runs, %.6f s, %d calls\n", s.name, s.runs, s.elapsed.Seconds(), s.calls)
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	title := fmt.Sprintf("Total Summary (%d Threads)", len(r.workers))
	return r.print(r.total.name, -1, title, r.total.elapsed, r.total.calls)
}

// print writes one record. thread is -1 for region and total records.
func (r *Recorder) print(region string, thread int, title string, d time.Duration, calls int64) error {
	var err error
	switch r.opts.Format {
	case CSV:
		_, err = fmt.Fprintf(r.out, "%s,%s,%d,%.9f,%d\n", r.runID, region, thread, d.Seconds(), calls)
	default:
		_, err = fmt.Fprintf(r.out, "%s   %s:\n%s%-20s %.6f s\n%-20s %d\n",
			separator, title, separator, "time", d.Seconds(), "calls", calls)
	}
	return err
}
