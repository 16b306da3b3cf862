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

// NonzeroRange is one worker's share of a nonzero partition.
type NonzeroRange struct {
	// Nonzeros is the range of the flattened nonzero array to multiply.
	Nonzeros Range

	// Rows is the range of rows that Nonzeros intersects, widened to
	// include Owned. Rows at either end may be shared with neighbours.
	Rows Range

	// Owned is the range of rows whose first nonzero falls in Nonzeros.
	// Empty rows belong to the worker whose range contains their start
	// offset, and trailing empty rows belong to the last worker, so the
	// Owned ranges of all workers partition the rows exactly. The owner
	// of a row adds its diagonal term and resets it when asked to.
	Owned Range
}

// Split reports whether row i also has nonzeros outside r.Nonzeros, so
// that other workers write to it too.
func (r NonzeroRange) Split(rowPtr []int64, i int) bool {
	return rowPtr[i] < int64(r.Nonzeros.Start) || rowPtr[i+1] > int64(r.Nonzeros.End)
}

// nonzeroSplit divides [0, nnz) evenly, the first nnz%workers workers
// getting one extra nonzero.
func nonzeroSplit(nnz int64, workers int) []Range {
	return Rows(int(nnz), workers)
}

// Nonzeros divides the nonzeros of a CSR matrix with the given row
// pointers evenly among workers and locates the rows of every share.
func Nonzeros(rowPtr []int64, workers int) []NonzeroRange {
	numRows := len(rowPtr) - 1
	splits := nonzeroSplit(rowPtr[numRows], workers)
	ranges := make([]NonzeroRange, workers)
	for w, nz := range splits {
		ranges[w] = LocateRows(rowPtr, nz, w, workers)
	}
	return ranges
}

// LocateRows finds the rows touched and owned by the worker-th of workers
// shares, whose nonzero range is nz, by a linear scan of rowPtr.
func LocateRows(rowPtr []int64, nz Range, worker, workers int) NonzeroRange {
	numRows := len(rowPtr) - 1
	s, e := int64(nz.Start), int64(nz.End)

	// First row starting at or after s.
	i := 0
	for i < numRows && rowPtr[i] < s {
		i++
	}
	ownStart := i

	// First row starting at or after e; the row before it holds e-1.
	for i < numRows && rowPtr[i] < e {
		i++
	}
	ownEnd := i
	if worker == workers-1 {
		ownEnd = numRows
	}

	touchStart := ownStart
	if s < e && ownStart > 0 && rowPtr[ownStart] > s {
		// s lies inside the preceding row.
		touchStart = ownStart - 1
	}

	return NonzeroRange{
		Nonzeros: nz,
		Rows:     Range{Start: touchStart, End: ownEnd},
		Owned:    Range{Start: ownStart, End: ownEnd},
	}
}
