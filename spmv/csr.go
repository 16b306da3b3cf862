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
	"fmt"
	"math"

	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
)

// ConvertOptions controls the conversion from COO to CSR or ELLPACK.
type ConvertOptions struct {
	// SeparateDiagonal stores diagonal entries in a dense array instead of
	// the sparse body. It only takes effect for square matrices.
	SeparateDiagonal bool

	// SortRows orders the nonzeros of every row by ascending column.
	// Without it, entries keep the order in which they appear in the COO.
	SortRows bool

	// Pool runs the parallel passes of the conversion. Nil converts on the
	// calling goroutine.
	Pool *workerpool.Pool
}

// separates reports whether the diagonal is stored separately for m.
func (o ConvertOptions) separates(numRows, numColumns int64) bool {
	return o.SeparateDiagonal && numRows == numColumns
}

// CSRLayout is the result of the sizing pass: the row pointers of the
// final matrix and the statistics needed to allocate and report it.
type CSRLayout struct {
	// RowPtr has NumRows+1 entries; row i occupies [RowPtr[i], RowPtr[i+1]).
	RowPtr []int64

	// Size is the number of entries in the sparse body, RowPtr[NumRows].
	Size int64

	// RowLenMin and RowLenMax bound the row lengths of the sparse body,
	// after diagonal entries have been moved out.
	RowLenMin int64
	RowLenMax int64

	// DiagSize is NumRows when the diagonal is separated, zero otherwise.
	DiagSize int64

	// SeparateDiagonal records whether diagonal entries were excluded.
	SeparateDiagonal bool
}

// CSR is a sparse matrix in compressed sparse row format.
type CSR[I Index] struct {
	NumRows    I
	NumColumns I

	// RowPtr has NumRows+1 nondecreasing entries, RowPtr[0] == 0.
	RowPtr []int64

	// ColIdx holds 0-based column indices, Values the matching entries.
	ColIdx []I
	Values []float64

	// Diag holds the diagonal when it is stored separately, else nil.
	Diag []float64

	RowLenMin int64
	RowLenMax int64
}

// NewCSR converts a COO matrix to CSR, running the sizing and fill passes.
func NewCSR[I Index](coo *COO[I], opts ConvertOptions) (*CSR[I], error) {
	layout, err := CSRSize(coo, opts)
	if err != nil {
		return nil, err
	}
	return CSRFill(coo, layout, opts)
}

// CSRSize counts the entries destined for each row without materializing
// the column and value arrays.
//
// For symmetric matrices every stored off-diagonal entry counts towards
// both its row and its column; diagonal entries count once. Separated
// diagonal entries are not counted.
func CSRSize[I Index](coo *COO[I], opts ConvertOptions) (CSRLayout, error) {
	if err := coo.Validate(); err != nil {
		return CSRLayout{}, err
	}
	numRows := int64(coo.NumRows)
	separate := opts.separates(numRows, int64(coo.NumColumns))
	symmetric := coo.Symmetry == Symmetric

	rowPtr, err := alloc[int64](numRows + 1)
	if err != nil {
		return CSRLayout{}, err
	}
	for k := range coo.Values {
		i, j := coo.RowIdx[k], coo.ColIdx[k]
		if i == j {
			if !separate {
				rowPtr[i]++
			}
			continue
		}
		rowPtr[i]++
		if symmetric {
			rowPtr[j]++
		}
	}

	// Serial prefix sum: each offset depends on the previous one.
	var rowLenMin, rowLenMax int64
	if numRows > 0 {
		rowLenMin = math.MaxInt64
	}
	for i := int64(1); i <= numRows; i++ {
		n := rowPtr[i]
		rowLenMin = min(rowLenMin, n)
		rowLenMax = max(rowLenMax, n)
		rowPtr[i] += rowPtr[i-1]
	}

	layout := CSRLayout{
		RowPtr:    rowPtr,
		Size:      rowPtr[numRows],
		RowLenMin: rowLenMin,
		RowLenMax: rowLenMax,
	}
	if separate {
		layout.DiagSize = numRows
		layout.SeparateDiagonal = true
	}
	return layout, nil
}

// CSRFill scatters the COO entries into the slots described by layout.
//
// The scatter is a stable bucket sort by row: within a row, entries keep
// their COO order unless opts.SortRows is set. layout.RowPtr is shared
// with the returned matrix and is not modified; a separate cursor array
// tracks the next free slot of each row.
func CSRFill[I Index](coo *COO[I], layout CSRLayout, opts ConvertOptions) (*CSR[I], error) {
	numRows := int64(coo.NumRows)
	if int64(len(layout.RowPtr)) != numRows+1 {
		return nil, fmt.Errorf("%w: layout has %d row pointers for %d rows",
			ErrInvalidConfiguration, len(layout.RowPtr), numRows)
	}
	separate := opts.separates(numRows, int64(coo.NumColumns))
	if separate != layout.SeparateDiagonal {
		return nil, fmt.Errorf("%w: layout and options disagree on diagonal separation", ErrInvalidConfiguration)
	}
	symmetric := coo.Symmetry == Symmetric

	colIdx, err := alloc[I](layout.Size)
	if err != nil {
		return nil, err
	}
	values, err := alloc[float64](layout.Size)
	if err != nil {
		return nil, err
	}
	var diag []float64
	if separate {
		if diag, err = alloc[float64](numRows); err != nil {
			return nil, err
		}
	}
	next, err := alloc[int64](numRows)
	if err != nil {
		return nil, err
	}
	copy(next, layout.RowPtr[:numRows])

	put := func(i, j I, a float64) error {
		k := next[i]
		if k >= layout.RowPtr[i+1] {
			return fmt.Errorf("%w: row %d has more entries than its layout", ErrInvalidConfiguration, i+1)
		}
		colIdx[k] = j
		values[k] = a
		next[i] = k + 1
		return nil
	}
	for k, a := range coo.Values {
		i, j := coo.RowIdx[k]-1, coo.ColIdx[k]-1
		if i < 0 || i >= coo.NumRows || j < 0 || j >= coo.NumColumns {
			return nil, fmt.Errorf("%w: entry %d at (%d,%d) in a %dx%d matrix",
				ErrInvalidRowIndex, k+1, i+1, j+1, coo.NumRows, coo.NumColumns)
		}
		if i == j && separate {
			diag[i] += a
			continue
		}
		if err := put(i, j, a); err != nil {
			return nil, err
		}
		if symmetric && i != j {
			if err := put(j, i, a); err != nil {
				return nil, err
			}
		}
	}

	m := &CSR[I]{
		NumRows:    coo.NumRows,
		NumColumns: coo.NumColumns,
		RowPtr:     layout.RowPtr,
		ColIdx:     colIdx,
		Values:     values,
		Diag:       diag,
		RowLenMin:  layout.RowLenMin,
		RowLenMax:  layout.RowLenMax,
	}
	if opts.SortRows {
		if err := SortRows(opts.Pool, m.RowPtr, m.ColIdx, m.Values, m.RowLenMax); err != nil {
			return nil, err
		}
	}
	klog.V(2).Infof("csr: %dx%d, %d nonzeros in body, %d on separate diagonal, %d to %d per row",
		m.NumRows, m.NumColumns, layout.Size, layout.DiagSize, layout.RowLenMin, layout.RowLenMax)
	return m, nil
}

// HasDiagonal reports whether the diagonal is stored separately.
func (m *CSR[I]) HasDiagonal() bool {
	return m.Diag != nil
}

// Size returns the number of entries in the sparse body.
func (m *CSR[I]) Size() int64 {
	return m.RowPtr[m.NumRows]
}

// NumNonzeros returns the number of stored entries, counting the
// separate diagonal as dense.
func (m *CSR[I]) NumNonzeros() int64 {
	return m.Size() + int64(len(m.Diag))
}

// RowLen returns the number of body entries in row i.
func (m *CSR[I]) RowLen(i int) int64 {
	return m.RowPtr[i+1] - m.RowPtr[i]
}

// Row returns the column indices and values of row i. The slices alias
// the matrix storage.
func (m *CSR[I]) Row(i int) ([]I, []float64) {
	start, end := m.RowPtr[i], m.RowPtr[i+1]
	return m.ColIdx[start:end], m.Values[start:end]
}
