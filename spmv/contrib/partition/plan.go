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

package partition

import (
	"fmt"

	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/spmv"
)

// Options configures a Plan.
type Options struct {
	Mode Mode

	// Workers is the number of shares. It must match the number of workers
	// of the pool that runs the kernel.
	Workers int

	// RowCounts overrides the even row split with explicit per-worker row
	// counts. It must have one entry per worker and is only valid in
	// RowMode.
	RowCounts []int

	// Precompute locates the rows of every nonzero share once, up front.
	// Otherwise NonzeroRange scans the row pointers on every call.
	Precompute bool
}

// Plan is the division of one matrix among a fixed number of workers.
// A Plan is read-only after New and safe for concurrent use.
type Plan struct {
	mode    Mode
	workers int
	numRows int
	rowPtr  []int64

	rows    []Range        // RowMode
	splits  []Range        // NonzeroMode
	located []NonzeroRange // NonzeroMode, when precomputed
}

// New plans the division of a matrix with numRows rows. rowPtr holds the
// CSR row pointers; it is required in NonzeroMode and ignored otherwise.
func New(opts Options, numRows int, rowPtr []int64) (*Plan, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("%w: %d workers", spmv.ErrInvalidConfiguration, opts.Workers)
	}
	if numRows < 0 {
		return nil, fmt.Errorf("%w: %d rows", spmv.ErrInvalidConfiguration, numRows)
	}
	p := &Plan{
		mode:    opts.Mode,
		workers: opts.Workers,
		numRows: numRows,
	}

	switch opts.Mode {
	case RowMode:
		if opts.RowCounts == nil {
			p.rows = Rows(numRows, opts.Workers)
			break
		}
		if len(opts.RowCounts) != opts.Workers {
			return nil, fmt.Errorf("%w: %d rows per worker given for %d workers",
				spmv.ErrInvalidConfiguration, len(opts.RowCounts), opts.Workers)
		}
		rows, err := RowsExplicit(numRows, opts.RowCounts)
		if err != nil {
			return nil, err
		}
		p.rows = rows

	case NonzeroMode:
		if opts.RowCounts != nil {
			return nil, fmt.Errorf("%w: explicit rows per worker require the row partition", spmv.ErrInvalidConfiguration)
		}
		if len(rowPtr) != numRows+1 {
			return nil, fmt.Errorf("%w: nonzero partition needs %d row pointers, got %d",
				spmv.ErrInvalidConfiguration, numRows+1, len(rowPtr))
		}
		p.rowPtr = rowPtr
		p.splits = nonzeroSplit(rowPtr[numRows], opts.Workers)
		if opts.Precompute {
			p.located = Nonzeros(rowPtr, opts.Workers)
		}

	default:
		return nil, fmt.Errorf("%w: unknown partition mode %d", spmv.ErrInvalidConfiguration, opts.Mode)
	}

	if klog.V(2).Enabled() {
		s := p.Stats()
		klog.Infof("partition: %s over %d workers, %d to %d rows per worker",
			p.mode, p.workers, s.MinRows, s.MaxRows)
	}
	return p, nil
}

// Mode returns the partitioning mode.
func (p *Plan) Mode() Mode {
	return p.mode
}

// Workers returns the number of shares.
func (p *Plan) Workers() int {
	return p.workers
}

// NumRows returns the number of rows of the planned matrix.
func (p *Plan) NumRows() int {
	return p.numRows
}

// Precomputed reports whether nonzero shares were located up front.
func (p *Plan) Precomputed() bool {
	return p.located != nil
}

// RowRange returns the rows written by worker w in RowMode, or the rows it
// owns in NonzeroMode.
func (p *Plan) RowRange(w int) Range {
	if p.mode == RowMode {
		return p.rows[w]
	}
	return p.NonzeroRange(w).Owned
}

// NonzeroRange returns worker w's share of a nonzero partition. Unless
// the plan was precomputed, the rows are located anew on every call.
func (p *Plan) NonzeroRange(w int) NonzeroRange {
	if p.located != nil {
		return p.located[w]
	}
	return LocateRows(p.rowPtr, p.splits[w], w, p.workers)
}

// Coverage returns the rows owned by each worker. The ranges are
// contiguous, ordered and together cover every row exactly once.
func (p *Plan) Coverage() []Range {
	return lo.Times(p.workers, p.RowRange)
}

// Stats summarizes the balance of a plan.
type Stats struct {
	// Rows and Nonzeros hold per-worker counts. In NonzeroMode Rows counts
	// touched rows, so shared rows are counted by every worker touching them.
	Rows     []int
	Nonzeros []int64

	MinRows, MaxRows         int
	MinNonzeros, MaxNonzeros int64
}

// Stats computes per-worker row and nonzero counts. Nonzero counts are
// only available for plans that know the row pointers; see StatsCSR.
func (p *Plan) Stats() Stats {
	return p.stats(p.rowPtr)
}

// StatsCSR computes per-worker counts of a row plan for a CSR matrix with
// the given row pointers.
func (p *Plan) StatsCSR(rowPtr []int64) Stats {
	return p.stats(rowPtr)
}

func (p *Plan) stats(rowPtr []int64) Stats {
	var s Stats
	switch p.mode {
	case RowMode:
		s.Rows = lo.Map(p.rows, func(r Range, _ int) int { return r.Len() })
		if rowPtr != nil {
			s.Nonzeros = lo.Map(p.rows, func(r Range, _ int) int64 { return rowPtr[r.End] - rowPtr[r.Start] })
		}
	case NonzeroMode:
		shares := lo.Times(p.workers, p.NonzeroRange)
		s.Rows = lo.Map(shares, func(r NonzeroRange, _ int) int { return r.Rows.Len() })
		s.Nonzeros = lo.Map(shares, func(r NonzeroRange, _ int) int64 { return int64(r.Nonzeros.Len()) })
	}
	s.MinRows, s.MaxRows = lo.Min(s.Rows), lo.Max(s.Rows)
	if s.Nonzeros != nil {
		s.MinNonzeros, s.MaxNonzeros = lo.Min(s.Nonzeros), lo.Max(s.Nonzeros)
	}
	return s
}
