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
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
)

func TestSortRows(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	for _, rowLen := range []int{0, 1, 2, 15, 16, 17, 31, 32, 33, 100, 1000} {
		t.Run(fmt.Sprintf("len=%d", rowLen), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(rowLen), 7))
			// Three rows: empty, short, and one of the requested length.
			lens := []int{0, 3, rowLen}
			rowPtr := []int64{0}
			for _, n := range lens {
				rowPtr = append(rowPtr, rowPtr[len(rowPtr)-1]+int64(n))
			}
			size := rowPtr[len(rowPtr)-1]
			cols := make([]int32, size)
			vals := make([]float64, size)
			for k := range cols {
				// Few distinct columns so that duplicates are common. The
				// value encodes the original position to check stability.
				cols[k] = int32(rng.IntN(max(rowLen/4, 2)))
				vals[k] = float64(k)
			}

			require.NoError(t, SortRows(pool, rowPtr, cols, vals, int64(slices.Max(lens))))

			for i := range lens {
				rc, rv := cols[rowPtr[i]:rowPtr[i+1]], vals[rowPtr[i]:rowPtr[i+1]]
				for k := 1; k < len(rc); k++ {
					require.LessOrEqual(t, rc[k-1], rc[k], "row %d not sorted at %d", i, k)
					if rc[k-1] == rc[k] {
						require.Less(t, rv[k-1], rv[k], "row %d: duplicates of column %d reordered", i, rc[k])
					}
				}
				// Values stay within their row.
				for _, v := range rv {
					require.GreaterOrEqual(t, v, float64(rowPtr[i]))
					require.Less(t, v, float64(rowPtr[i+1]))
				}
			}
		})
	}
}

func TestSortRowsNilPool(t *testing.T) {
	rowPtr := []int64{0, 40}
	cols := make([]int64, 40)
	vals := make([]float64, 40)
	for k := range cols {
		cols[k] = int64(39 - k)
		vals[k] = float64(39 - k)
	}
	require.NoError(t, SortRows(nil, rowPtr, cols, vals, 40))
	for k := range cols {
		require.Equal(t, int64(k), cols[k])
		require.Equal(t, float64(k), vals[k])
	}
}

func TestMergeTakesLeftOnTies(t *testing.T) {
	dstCols := make([]int32, 6)
	dstVals := make([]float64, 6)
	merge(dstCols, dstVals,
		[]int32{1, 3, 3}, []float64{10, 30, 31},
		[]int32{0, 3, 5}, []float64{0, 32, 50})
	require.Equal(t, []int32{0, 1, 3, 3, 3, 5}, dstCols)
	require.Equal(t, []float64{0, 10, 30, 31, 32, 50}, dstVals)
}

func BenchmarkSortRowsLong(b *testing.B) {
	pool := workerpool.New(0)
	defer pool.Close()
	rng := rand.New(rand.NewPCG(5, 6))
	const n = 1 << 16
	src := make([]int32, n)
	for k := range src {
		src[k] = rng.Int32N(n)
	}
	cols := make([]int32, n)
	vals := make([]float64, n)
	rowPtr := []int64{0, n}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(cols, src)
		if err := SortRows(pool, rowPtr, cols, vals, n); err != nil {
			b.Fatal(err)
		}
	}
}
