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

package spmv

import (
	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
)

const (
	// sortBlockSize is the row length up to which insertion sort is used,
	// and the block size of the merge sort for longer rows.
	sortBlockSize = 16

	// sortRowBatch is the number of short rows a worker claims at a time.
	sortRowBatch = 512
)

// SortRows sorts the nonzeros of every CSR row by ascending column index,
// moving values along with their columns. The sort is stable, so entries
// with equal columns (duplicates) keep their relative order.
//
// Rows of up to 16 entries are insertion sorted, many rows in parallel.
// Longer rows are sorted one at a time by a bottom-up merge sort whose
// blocks and merges are spread over the pool. rowLenMax bounds the
// scratch space needed for the merges.
func SortRows[I Index](pool *workerpool.Pool, rowPtr []int64, colIdx []I, values []float64, rowLenMax int64) error {
	numRows := len(rowPtr) - 1
	if numRows <= 0 {
		return nil
	}
	return sortRows(pool, numRows, rowLenMax, func(i int) ([]I, []float64) {
		start, end := rowPtr[i], rowPtr[i+1]
		return colIdx[start:end], values[start:end]
	})
}

// sortRows sorts the rows returned by row, which must not overlap.
func sortRows[I Index](pool *workerpool.Pool, numRows int, rowLenMax int64, row func(i int) ([]I, []float64)) error {
	pool.ParallelForAtomicBatched(numRows, sortRowBatch, func(start, end int) {
		for i := start; i < end; i++ {
			cols, vals := row(i)
			if len(cols) <= sortBlockSize {
				insertionSort(cols, vals)
			}
		}
	})
	if rowLenMax <= sortBlockSize {
		return nil
	}

	tmpCols, err := alloc[I](rowLenMax)
	if err != nil {
		return err
	}
	tmpVals, err := alloc[float64](rowLenMax)
	if err != nil {
		return err
	}
	for i := range numRows {
		cols, vals := row(i)
		if len(cols) > sortBlockSize {
			mergeSort(pool, cols, vals, tmpCols[:len(cols)], tmpVals[:len(cols)])
		}
	}
	return nil
}

// insertionSort sorts cols ascending, permuting vals alongside.
func insertionSort[I Index](cols []I, vals []float64) {
	for k := 1; k < len(cols); k++ {
		j, a := cols[k], vals[k]
		l := k - 1
		for l >= 0 && cols[l] > j {
			cols[l+1] = cols[l]
			vals[l+1] = vals[l]
			l--
		}
		cols[l+1] = j
		vals[l+1] = a
	}
}

// mergeSort sorts one long row: insertion sort on blocks of sortBlockSize,
// then merge passes of doubling width. tmpCols and tmpVals must have the
// same length as cols.
func mergeSort[I Index](pool *workerpool.Pool, cols []I, vals []float64, tmpCols []I, tmpVals []float64) {
	n := len(cols)
	numBlocks := (n + sortBlockSize - 1) / sortBlockSize
	pool.ParallelFor(numBlocks, func(start, end int) {
		for b := start; b < end; b++ {
			lo, hi := b*sortBlockSize, min((b+1)*sortBlockSize, n)
			insertionSort(cols[lo:hi], vals[lo:hi])
		}
	})

	for width := sortBlockSize; width < n; width *= 2 {
		pool.ParallelFor(n, func(start, end int) {
			copy(tmpCols[start:end], cols[start:end])
			copy(tmpVals[start:end], vals[start:end])
		})
		numPairs := (n + 2*width - 1) / (2 * width)
		pool.ParallelFor(numPairs, func(start, end int) {
			for p := start; p < end; p++ {
				left := p * 2 * width
				middle := min(left+width, n)
				right := min(left+2*width, n)
				merge(cols[left:right], vals[left:right],
					tmpCols[left:middle], tmpVals[left:middle],
					tmpCols[middle:right], tmpVals[middle:right])
			}
		})
	}
}

// merge merges two sorted runs into dstCols/dstVals, taking from the left
// run on ties.
func merge[I Index](dstCols []I, dstVals []float64, aCols []I, aVals []float64, bCols []I, bVals []float64) {
	u, v, w := 0, 0, 0
	for v < len(aCols) && w < len(bCols) {
		if aCols[v] <= bCols[w] {
			dstCols[u], dstVals[u] = aCols[v], aVals[v]
			v++
		} else {
			dstCols[u], dstVals[u] = bCols[w], bVals[w]
			w++
		}
		u++
	}
	copy(dstCols[u:], aCols[v:])
	copy(dstVals[u:], aVals[v:])
	u += len(aCols) - v
	copy(dstCols[u:], bCols[w:])
	copy(dstVals[u:], bVals[w:])
}
