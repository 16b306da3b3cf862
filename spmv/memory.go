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
	"unsafe"
)

// Index is the integer type used for row and column indices.
// Use int32 to halve the index traffic of the kernels when the matrix
// dimensions allow it, int64 otherwise.
type Index interface {
	~int32 | ~int64
}

// maxIndex returns the largest value representable by I.
func maxIndex[I Index]() int64 {
	var zero I
	if unsafe.Sizeof(zero) == 4 {
		return math.MaxInt32
	}
	return math.MaxInt64
}

// alloc allocates a zeroed slice of n elements, reporting ErrOutOfMemory
// instead of crashing when n is negative, when the byte size overflows,
// or when the runtime cannot satisfy the request.
func alloc[T any](n int64) (s []T, err error) {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	if n < 0 || n > math.MaxInt || (size > 0 && n > math.MaxInt64/size) {
		return nil, fmt.Errorf("%w: cannot allocate %d elements of %d bytes", ErrOutOfMemory, n, size)
	}
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%w: %v", ErrOutOfMemory, r)
		}
	}()
	return make([]T, n), nil
}
