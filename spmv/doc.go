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

// Package spmv provides the sparse storage formats used to benchmark
// sparse matrix-vector multiplication, y := A*x + y.
//
// # Formats
//
// A matrix enters the package in coordinate (COO) form, as triplets with
// 1-based indices exactly as they are read from a Matrix Market file:
//
//	coo, _ := spmv.NewCOO[int32](3, 3, 5, spmv.General)
//
// and is converted to one of two layouts:
//
//   - CSR: row pointers, column indices and values (NewCSR, or the two
//     passes CSRSize and CSRFill)
//   - ELLPACK: a fixed number of slots per row, padded with explicit zeros
//     (NewELL)
//
// Both converters can move the diagonal into a separate dense array
// (ConvertOptions.SeparateDiagonal) and sort the nonzeros of each row by
// column (ConvertOptions.SortRows). CSR conversion expands symmetric
// matrices that store a single triangle; ELLPACK does not.
//
// # Index Width
//
// Row and column indices are generic over Index, so the same code serves
// 32-bit and 64-bit index arrays:
//
//	csr32, _ := spmv.NewCSR(coo32, spmv.ConvertOptions{})
//	csr64, _ := spmv.NewCSR(coo64, spmv.ConvertOptions{})
//
// Row pointers are always int64, since the number of nonzeros routinely
// exceeds the number of rows by orders of magnitude.
//
// # Multiplication
//
// The multiply kernels, the partitioning of rows or nonzeros among
// workers, and the timing loop live in the contrib packages:
//
//   - spmv/contrib/partition: row and nonzero partitions
//   - spmv/contrib/kernel: CSR and ELLPACK kernels
//   - spmv/contrib/bench: warmup and repeat driver
//   - spmv/contrib/workerpool: the persistent worker pool they run on
package spmv
