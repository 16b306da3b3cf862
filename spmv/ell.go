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
)

// ellPadBatch is the number of rows a worker pads at a time.
const ellPadBatch = 1024

// ELLLayout is the result of the ELLPACK sizing pass.
type ELLLayout struct {
	// RowLen holds the number of stored (non-padding) entries per row.
	RowLen []int64

	// RowWidth is the longest row, the number of slots in every row.
	RowWidth int64

	// Size is NumRows*RowWidth, the number of slots including padding.
	Size int64

	// DiagSize is NumRows when the diagonal is separated, zero otherwise.
	DiagSize int64
}

// ELL is a sparse matrix in ELLPACK format: every row has RowWidth slots,
// stored contiguously, so row i occupies [i*RowWidth, (i+1)*RowWidth).
//
// Rows shorter than RowWidth are padded with value 0 and column
// min(i, NumColumns-1), a valid index, so padding adds exactly zero.
type ELL[I Index] struct {
	NumRows    I
	NumColumns I
	RowWidth   int

	ColIdx []I
	Values []float64

	// Diag holds the diagonal when it is stored separately, else nil.
	Diag []float64

	// RowLen holds the number of non-padding entries of each row.
	RowLen []int64
}

// ELLSize computes the row width of the ELLPACK form of coo.
// Symmetric matrices are rejected; symmetrize them before conversion.
func ELLSize[I Index](coo *COO[I], opts ConvertOptions) (ELLLayout, error) {
	if err := coo.Validate(); err != nil {
		return ELLLayout{}, err
	}
	if coo.Symmetry == Symmetric {
		return ELLLayout{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, ErrSymmetricUnsupported)
	}
	numRows := int64(coo.NumRows)
	separate := opts.separates(numRows, int64(coo.NumColumns))

	rowLen, err := alloc[int64](numRows)
	if err != nil {
		return ELLLayout{}, err
	}
	for k := range coo.Values {
		i, j := coo.RowIdx[k], coo.ColIdx[k]
		if separate && i == j {
			continue
		}
		rowLen[i-1]++
	}
	var width int64
	for _, n := range rowLen {
		width = max(width, n)
	}

	layout := ELLLayout{
		RowLen:   rowLen,
		RowWidth: width,
	}
	if width > 0 && numRows > math.MaxInt64/width {
		return ELLLayout{}, fmt.Errorf("%w: %d rows of width %d", ErrOutOfMemory, numRows, width)
	}
	layout.Size = numRows * width
	if separate {
		layout.DiagSize = numRows
	}
	return layout, nil
}

// NewELL converts a general COO matrix to ELLPACK.
//
// Entries are scattered into their row's slots in COO order, optionally
// sorted by column, and the remaining slots are then padded in parallel.
func NewELL[I Index](coo *COO[I], opts ConvertOptions) (*ELL[I], error) {
	layout, err := ELLSize(coo, opts)
	if err != nil {
		return nil, err
	}
	numRows := int64(coo.NumRows)
	numColumns := int64(coo.NumColumns)
	separate := opts.separates(numRows, numColumns)
	width := layout.RowWidth

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

	for k, a := range coo.Values {
		i, j := int64(coo.RowIdx[k]-1), coo.ColIdx[k]-1
		if separate && i == int64(j) {
			diag[i] += a
			continue
		}
		slot := i*width + next[i]
		colIdx[slot] = j
		values[slot] = a
		next[i]++
	}

	m := &ELL[I]{
		NumRows:    coo.NumRows,
		NumColumns: coo.NumColumns,
		RowWidth:   int(width),
		ColIdx:     colIdx,
		Values:     values,
		Diag:       diag,
		RowLen:     layout.RowLen,
	}

	if opts.SortRows {
		err := sortRows(opts.Pool, int(numRows), width, func(i int) ([]I, []float64) {
			start := int64(i) * width
			end := start + layout.RowLen[i]
			return colIdx[start:end], values[start:end]
		})
		if err != nil {
			return nil, err
		}
	}

	opts.Pool.ParallelForAtomicBatched(int(numRows), ellPadBatch, func(start, end int) {
		for i := start; i < end; i++ {
			pad := I(min(int64(i), numColumns-1))
			for l := int64(i)*width + layout.RowLen[i]; l < int64(i+1)*width; l++ {
				colIdx[l] = pad
				values[l] = 0
			}
		}
	})

	klog.V(2).Infof("ell: %dx%d, row width %d, %d slots, %d on separate diagonal",
		m.NumRows, m.NumColumns, width, layout.Size, layout.DiagSize)
	return m, nil
}

// HasDiagonal reports whether the diagonal is stored separately.
func (m *ELL[I]) HasDiagonal() bool {
	return m.Diag != nil
}

// Size returns the number of slots, including padding.
func (m *ELL[I]) Size() int64 {
	return int64(m.NumRows) * int64(m.RowWidth)
}

// NumNonzeros returns the number of stored entries, excluding padding and
// counting the separate diagonal as dense.
func (m *ELL[I]) NumNonzeros() int64 {
	var n int64
	for _, l := range m.RowLen {
		n += l
	}
	return n + int64(len(m.Diag))
}

// Padding returns the number of padding slots.
func (m *ELL[I]) Padding() int64 {
	return m.Size() - (m.NumNonzeros() - int64(len(m.Diag)))
}

// Row returns the slots of row i, including padding. The slices alias the
// matrix storage.
func (m *ELL[I]) Row(i int) ([]I, []float64) {
	start, end := i*m.RowWidth, (i+1)*m.RowWidth
	return m.ColIdx[start:end], m.Values[start:end]
}
