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

import "fmt"

// Symmetry describes which part of the matrix a COO stores.
type Symmetry int

const (
	// General matrices store every nonzero explicitly.
	General Symmetry = iota

	// Symmetric matrices store one triangle; a(i,j) implies a(j,i).
	Symmetric
)

// String returns the Matrix Market name of the symmetry.
func (s Symmetry) String() string {
	switch s {
	case General:
		return "general"
	case Symmetric:
		return "symmetric"
	default:
		return "unknown"
	}
}

// COO is a sparse matrix in coordinate format.
//
// RowIdx and ColIdx hold 1-based indices, as read from a Matrix Market
// file, and have the same length as Values. Entries may appear in any
// order and duplicates are summed by the kernels.
type COO[I Index] struct {
	NumRows    I
	NumColumns I
	RowIdx     []I
	ColIdx     []I
	Values     []float64
	Symmetry   Symmetry
}

// NewCOO allocates a COO matrix with room for nnz entries.
func NewCOO[I Index](numRows, numColumns I, nnz int64, symmetry Symmetry) (*COO[I], error) {
	if numRows < 0 || numColumns < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidConfiguration, numRows, numColumns)
	}
	rowIdx, err := alloc[I](nnz)
	if err != nil {
		return nil, err
	}
	colIdx, err := alloc[I](nnz)
	if err != nil {
		return nil, err
	}
	values, err := alloc[float64](nnz)
	if err != nil {
		return nil, err
	}
	return &COO[I]{
		NumRows:    numRows,
		NumColumns: numColumns,
		RowIdx:     rowIdx,
		ColIdx:     colIdx,
		Values:     values,
		Symmetry:   symmetry,
	}, nil
}

// NumNonzeros returns the number of stored entries.
func (m *COO[I]) NumNonzeros() int64 {
	return int64(len(m.Values))
}

// IsSquare reports whether the matrix has as many rows as columns.
func (m *COO[I]) IsSquare() bool {
	return m.NumRows == m.NumColumns
}

// Validate checks the array lengths, the symmetry declaration and that
// every entry lies within the declared dimensions.
func (m *COO[I]) Validate() error {
	if m.NumRows < 0 || m.NumColumns < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidConfiguration, m.NumRows, m.NumColumns)
	}
	if len(m.RowIdx) != len(m.Values) || len(m.ColIdx) != len(m.Values) {
		return fmt.Errorf("%w: %d row indices, %d column indices and %d values",
			ErrInvalidConfiguration, len(m.RowIdx), len(m.ColIdx), len(m.Values))
	}
	if m.Symmetry == Symmetric && !m.IsSquare() {
		return fmt.Errorf("%w: symmetric matrix must be square, got %dx%d",
			ErrInvalidConfiguration, m.NumRows, m.NumColumns)
	}
	for k := range m.Values {
		i, j := m.RowIdx[k], m.ColIdx[k]
		if i < 1 || i > m.NumRows || j < 1 || j > m.NumColumns {
			return fmt.Errorf("%w: entry %d at (%d,%d) in a %dx%d matrix",
				ErrInvalidRowIndex, k+1, i, j, m.NumRows, m.NumColumns)
		}
	}
	return nil
}
