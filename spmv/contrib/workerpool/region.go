// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// Barrier is a reusable synchronization point for a fixed number of
// participants. Wait blocks until all participants have called it, then
// releases them together and resets for the next round.
type Barrier struct {
	mu         sync.Mutex
	cond       sync.Cond
	parties    int
	waiting    int
	generation uint64
}

// NewBarrier creates a barrier for the given number of participants.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: max(parties, 1)}
	b.cond.L = &b.mu
	return b
}

// Wait blocks until all participants of the current round have arrived.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.mu.Unlock()
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// errSlot holds one worker's private error, padded so that neighbouring
// workers never write to the same cache line.
type errSlot struct {
	_   cpu.CacheLinePad
	err error
}

// region is the state shared by the workers of one Region call. Agree
// alternates between the two slot sets, so a worker that leaves one Agree
// early never overwrites a slot another worker is still reading.
type region struct {
	barrier *Barrier
	errs    [2][]errSlot
}

func newRegion(n int) *region {
	return &region{
		barrier: NewBarrier(n),
		errs:    [2][]errSlot{make([]errSlot, n), make([]errSlot, n)},
	}
}

// Worker is the handle passed to each invocation of a Region function.
type Worker struct {
	id     int
	region *region
	agrees int
}

// ID returns the worker index in [0, NumWorkers()).
func (w *Worker) ID() int {
	return w.id
}

// NumWorkers returns the number of workers taking part in the region.
func (w *Worker) NumWorkers() int {
	return len(w.region.errs[0])
}

// Barrier blocks until every worker of the region has reached it.
func (w *Worker) Barrier() {
	w.region.barrier.Wait()
}

// Agree publishes this worker's error, waits for all workers, and returns
// the error of the lowest-numbered worker that reported one. Every worker
// receives the same result, so all of them can leave a loop together
// without stranding the others at a barrier.
//
// Agree acts as a barrier, and consecutive calls need no Barrier in
// between.
func (w *Worker) Agree(err error) error {
	errs := w.region.errs[w.agrees%2]
	w.agrees++
	errs[w.id].err = err
	w.region.barrier.Wait()
	for i := range errs {
		if errs[i].err != nil {
			return errs[i].err
		}
	}
	return nil
}
