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

// Package partition splits the rows or nonzeros of a sparse matrix among
// the workers of a pool.
//
// Row partitions give each worker a contiguous range of rows, and every
// worker writes only its own rows of y. Nonzero partitions give each
// worker a contiguous range of the flattened nonzero array, which
// balances work on matrices with very uneven row lengths. A worker's
// nonzero range may start or end in the middle of a row; such rows are
// shared between two or more workers, who must combine their partial sums
// atomically.
package partition

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/spmv"
)

// Mode selects how work is divided among workers.
type Mode int

const (
	// RowMode gives each worker a contiguous range of rows.
	RowMode Mode = iota

	// NonzeroMode gives each worker a contiguous range of nonzeros.
	NonzeroMode
)

// String returns the name used on the command line.
func (m Mode) String() string {
	switch m {
	case RowMode:
		return "rows"
	case NonzeroMode:
		return "nonzeros"
	default:
		return "unknown"
	}
}

// ParseMode parses the name of a partitioning mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "rows", "row", "":
		return RowMode, nil
	case "nonzeros", "nonzero", "nnz":
		return NonzeroMode, nil
	}
	return 0, fmt.Errorf("%w: unknown partition mode %q", spmv.ErrInvalidConfiguration, s)
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of elements in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether i lies in the range.
func (r Range) Contains(i int) bool {
	return r.Start <= i && i < r.End
}

// Rows divides [0, numRows) into workers contiguous ranges. The first
// numRows%workers workers get one extra row.
func Rows(numRows, workers int) []Range {
	ranges := make([]Range, workers)
	size, extra := numRows/workers, numRows%workers
	start := 0
	for w := range ranges {
		n := size
		if w < extra {
			n++
		}
		ranges[w] = Range{Start: start, End: start + n}
		start += n
	}
	return ranges
}

// RowsExplicit turns per-worker row counts into contiguous ranges.
//
// Counts adding up to more than numRows are an error. Counts adding up to
// fewer only produce a warning; the remaining rows are given to the last
// worker so that every row is still computed.
func RowsExplicit(numRows int, counts []int) ([]Range, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no rows per worker given", spmv.ErrInvalidConfiguration)
	}
	if lo.SomeBy(counts, func(n int) bool { return n < 0 }) {
		return nil, fmt.Errorf("%w: negative rows per worker in %v", spmv.ErrInvalidConfiguration, counts)
	}
	total := lo.Sum(counts)
	if total > numRows {
		return nil, fmt.Errorf("%w: %w: rows per worker add up to %d, but the matrix has %d rows",
			spmv.ErrInvalidConfiguration, spmv.ErrPartitionOverflow, total, numRows)
	}

	ranges := make([]Range, len(counts))
	start := 0
	for w, n := range counts {
		ranges[w] = Range{Start: start, End: start + n}
		start += n
	}
	if total < numRows {
		klog.Warningf("partition: rows per worker add up to %d, but the matrix has %d rows; "+
			"the last worker takes the remaining %d", total, numRows, numRows-total)
		ranges[len(ranges)-1].End = numRows
	}
	return ranges, nil
}
