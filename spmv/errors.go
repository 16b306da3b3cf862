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

import "errors"

// Errors returned by conversion, planning and the multiply kernels.
// Callers match them with errors.Is; context is added by wrapping with %w.
var (
	// ErrOutOfMemory is returned when an array cannot be allocated, either
	// because its size overflows or because the runtime refused it.
	ErrOutOfMemory = errors.New("spmv: out of memory")

	// ErrInvalidRowIndex is returned when a COO entry lies outside the
	// declared matrix dimensions.
	ErrInvalidRowIndex = errors.New("spmv: row or column index out of bounds")

	// ErrInvalidConfiguration is returned for inconsistent options,
	// such as a symmetric matrix that is not square or an explicit
	// partition with negative counts.
	ErrInvalidConfiguration = errors.New("spmv: invalid configuration")

	// ErrPartitionOverflow is returned when explicit per-worker row counts
	// add up to more rows than the matrix has.
	ErrPartitionOverflow = errors.New("spmv: partition exceeds matrix dimension")

	// ErrRowWidthMismatch is returned by a fixed-width ELLPACK kernel when
	// the matrix row width differs from the width it was unrolled for.
	ErrRowWidthMismatch = errors.New("spmv: ELLPACK row width mismatch")

	// ErrSymmetricUnsupported is returned when converting a symmetric
	// matrix to ELLPACK. Symmetrize the matrix before conversion.
	ErrSymmetricUnsupported = errors.New("spmv: symmetric matrices are not supported by ELLPACK")

	// ErrDimensionMismatch is returned when x or y does not match the
	// matrix dimensions.
	ErrDimensionMismatch = errors.New("spmv: vector dimension mismatch")
)
