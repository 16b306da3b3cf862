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

// Package kernel provides the sparse matrix-vector multiply kernels.
//
// # Sparse Matrix-Vector Product
//
// Every kernel computes y += A*x. It does not clear y first, so repeated
// calls accumulate.
//
//   - csrgemv, csrgemvsd: CSR by rows, without and with separate diagonal
//   - csrgemv_nnz, csrgemvsd_nnz: CSR by nonzeros
//   - ellgemv, ellgemvsd: ELLPACK by rows
//   - ellgemv16sd: ELLPACK with 16 slots per row, unrolled
//
// # Accumulation Order
//
// Within a row, products are summed left to right in storage order into
// a zero-initialized accumulator, and the sum is then added to y[i]. The
// separate-diagonal variants add diag[i]*x[i] + sum, while ellgemv16sd
// starts the row sum with the diagonal term. A given kernel, matrix and
// partition therefore always produce the same bits.
//
// Nonzero-partitioned kernels split rows that straddle two workers' shares.
// The partial sums of such a row are combined with AtomicAdd, in whatever
// order the workers finish, so the result may differ in the last bits from
// run to run. Rows a worker holds entirely are written with a plain add.
//
// # Example Usage
//
//	plan, _ := partition.New(partition.Options{Workers: pool.NumWorkers()}, n, nil)
//	k, _ := kernel.NewCSR(m, plan, kernel.Options{})
//	pool.Region(func(w *workerpool.Worker) {
//	    err := k.Multiply(w.ID(), x, y)
//	    w.Agree(err)
//	})
package kernel
