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

package kernel

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ajroetker/go-spmv/spmv"
	"github.com/ajroetker/go-spmv/spmv/contrib/partition"
	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
)

func example3x3() *spmv.COO[int32] {
	return &spmv.COO[int32]{
		NumRows:    3,
		NumColumns: 3,
		RowIdx:     []int32{1, 1, 2, 3, 3},
		ColIdx:     []int32{1, 2, 2, 1, 3},
		Values:     []float64{2, 3, 4, 5, 6},
	}
}

// randomCOO returns a general matrix whose row lengths vary widely, so
// that nonzero shares split rows.
func randomCOO(rng *rand.Rand, numRows, numColumns int) *spmv.COO[int32] {
	m := &spmv.COO[int32]{NumRows: int32(numRows), NumColumns: int32(numColumns)}
	for i := range numRows {
		n := rng.IntN(4)
		if rng.IntN(8) == 0 {
			n = rng.IntN(3 * numColumns)
		}
		for range n {
			m.RowIdx = append(m.RowIdx, int32(i+1))
			m.ColIdx = append(m.ColIdx, int32(rng.IntN(numColumns)+1))
			m.Values = append(m.Values, rng.Float64()*2-1)
		}
		if i < numColumns && rng.IntN(2) == 0 {
			m.RowIdx = append(m.RowIdx, int32(i+1))
			m.ColIdx = append(m.ColIdx, int32(i+1))
			m.Values = append(m.Values, 4)
		}
	}
	// Shuffle so rows are filled out of order.
	rng.Shuffle(len(m.Values), func(a, b int) {
		m.RowIdx[a], m.RowIdx[b] = m.RowIdx[b], m.RowIdx[a]
		m.ColIdx[a], m.ColIdx[b] = m.ColIdx[b], m.ColIdx[a]
		m.Values[a], m.Values[b] = m.Values[b], m.Values[a]
	})
	return m
}

func randomVector(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

// run multiplies once on every worker of pool and returns the agreed error.
func run(pool *workerpool.Pool, k Kernel, x, y []float64) error {
	var agreed error
	var once sync.Once
	pool.Region(func(w *workerpool.Worker) {
		err := w.Agree(k.Multiply(w.ID(), x, y))
		once.Do(func() { agreed = err })
	})
	return agreed
}

func newPlan(t testing.TB, mode partition.Mode, workers int, numRows int, rowPtr []int64) *partition.Plan {
	t.Helper()
	p, err := partition.New(partition.Options{Mode: mode, Workers: workers, Precompute: workers%2 == 0}, numRows, rowPtr)
	require.NoError(t, err)
	return p
}

func TestExample(t *testing.T) {
	x := []float64{1, 1, 1}
	want := []float64{5, 4, 11}

	for _, workers := range []int{1, 2, 3, 4} {
		pool := workerpool.New(workers)
		for _, separate := range []bool{false, true} {
			opts := spmv.ConvertOptions{SeparateDiagonal: separate, Pool: pool}
			csr, err := spmv.NewCSR(example3x3(), opts)
			require.NoError(t, err)
			ell, err := spmv.NewELL(example3x3(), opts)
			require.NoError(t, err)

			var kernels []Kernel
			for _, mode := range []partition.Mode{partition.RowMode, partition.NonzeroMode} {
				k, err := NewCSR(csr, newPlan(t, mode, workers, 3, csr.RowPtr), Options{})
				require.NoError(t, err)
				kernels = append(kernels, k)
			}
			k, err := NewELL(ell, newPlan(t, partition.RowMode, workers, 3, nil), Options{})
			require.NoError(t, err)
			kernels = append(kernels, k)

			for _, k := range kernels {
				t.Run(fmt.Sprintf("%s/workers=%d", k.Name(), workers), func(t *testing.T) {
					y := make([]float64, 3)
					require.NoError(t, run(pool, k, x, y))
					require.Equal(t, want, y)

					// y is not cleared between calls.
					require.NoError(t, run(pool, k, x, y))
					require.Equal(t, []float64{10, 8, 22}, y)
				})
			}
		}
		pool.Close()
	}
}

func TestKernelNames(t *testing.T) {
	csr, err := spmv.NewCSR(example3x3(), spmv.ConvertOptions{SeparateDiagonal: true})
	require.NoError(t, err)
	k, err := NewCSR(csr, newPlan(t, partition.NonzeroMode, 2, 3, csr.RowPtr), Options{})
	require.NoError(t, err)
	require.Equal(t, "csrgemvsd_nnz", k.Name())

	plain, err := spmv.NewCSR(example3x3(), spmv.ConvertOptions{})
	require.NoError(t, err)
	k, err = NewCSR(plain, newPlan(t, partition.RowMode, 2, 3, nil), Options{Variant: Plain})
	require.NoError(t, err)
	require.Equal(t, "csrgemv", k.Name())
}

// CSR and ELLPACK forms of a general matrix give bit-identical results
// under row partitions.
func TestCSRMatchesELL(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	pool := workerpool.New(4)
	defer pool.Close()

	for trial := range 10 {
		rows, cols := rng.IntN(80)+1, rng.IntN(80)+1
		coo := randomCOO(rng, rows, cols)
		x := randomVector(rng, cols)
		y0 := randomVector(rng, rows)
		for _, opts := range []spmv.ConvertOptions{
			{Pool: pool},
			{SortRows: true, Pool: pool},
			{SeparateDiagonal: true, Pool: pool},
		} {
			csr, err := spmv.NewCSR(coo, opts)
			require.NoError(t, err)
			ell, err := spmv.NewELL(coo, opts)
			require.NoError(t, err)
			plan := newPlan(t, partition.RowMode, pool.NumWorkers(), rows, nil)

			kc, err := NewCSR(csr, plan, Options{})
			require.NoError(t, err)
			// Auto could pick the unrolled kernel, which sums in another order.
			variant := Plain
			if ell.HasDiagonal() {
				variant = Diagonal
			}
			ke, err := NewELL(ell, plan, Options{Variant: variant})
			require.NoError(t, err)

			yc := append([]float64(nil), y0...)
			ye := append([]float64(nil), y0...)
			require.NoError(t, run(pool, kc, x, yc))
			require.NoError(t, run(pool, ke, x, ye))
			require.Equal(t, yc, ye, "trial %d, %s vs %s", trial, kc.Name(), ke.Name())
		}
	}
}

func TestDiagonalSeparation(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	pool := workerpool.New(3)
	defer pool.Close()

	n := 64
	coo := randomCOO(rng, n, n)
	x := randomVector(rng, n)
	a := mat.NewDense(n, n, nil)
	for k, v := range coo.Values {
		i, j := int(coo.RowIdx[k]-1), int(coo.ColIdx[k]-1)
		a.Set(i, j, a.At(i, j)+v)
	}
	var want mat.VecDense
	want.MulVec(a, mat.NewVecDense(n, x))

	for _, separate := range []bool{false, true} {
		csr, err := spmv.NewCSR(coo, spmv.ConvertOptions{SeparateDiagonal: separate, SortRows: true})
		require.NoError(t, err)
		for _, mode := range []partition.Mode{partition.RowMode, partition.NonzeroMode} {
			k, err := NewCSR(csr, newPlan(t, mode, pool.NumWorkers(), n, csr.RowPtr), Options{})
			require.NoError(t, err)
			y := make([]float64, n)
			require.NoError(t, run(pool, k, x, y))
			for i := range y {
				rowNorm := mat.Norm(a.RowView(i), 1) * mat.Norm(mat.NewVecDense(n, x), math.Inf(1))
				require.InDelta(t, want.AtVec(i), y[i], 1e-13*max(rowNorm, 1), "%s row %d", k.Name(), i)
			}
		}
	}
}

func TestNonzeroMatchesRows(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, workers := range []int{1, 2, 3, 5, 8, 13} {
		pool := workerpool.New(workers)
		for trial := range 5 {
			rows := rng.IntN(100) + 1
			coo := randomCOO(rng, rows, rows)
			csr, err := spmv.NewCSR(coo, spmv.ConvertOptions{SeparateDiagonal: trial%2 == 0})
			require.NoError(t, err)
			x := randomVector(rng, rows)

			byRows, err := NewCSR(csr, newPlan(t, partition.RowMode, workers, rows, nil), Options{})
			require.NoError(t, err)
			byNonzeros, err := NewCSR(csr, newPlan(t, partition.NonzeroMode, workers, rows, csr.RowPtr), Options{})
			require.NoError(t, err)

			want := make([]float64, rows)
			got := make([]float64, rows)
			require.NoError(t, run(pool, byRows, x, want))
			require.NoError(t, run(pool, byNonzeros, x, got))
			require.InDeltaSlice(t, want, got, 1e-12, "workers=%d trial=%d", workers, trial)
		}
		pool.Close()
	}
}

func TestWidth16(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	n := 40
	coo := &spmv.COO[int64]{NumRows: int64(n), NumColumns: int64(n)}
	for i := range n {
		coo.RowIdx = append(coo.RowIdx, int64(i+1))
		coo.ColIdx = append(coo.ColIdx, int64(i+1))
		coo.Values = append(coo.Values, 10)
		for range 16 {
			coo.RowIdx = append(coo.RowIdx, int64(i+1))
			coo.ColIdx = append(coo.ColIdx, int64((i+1+rng.IntN(n-1))%n+1))
			coo.Values = append(coo.Values, rng.Float64())
		}
	}
	ell, err := spmv.NewELL(coo, spmv.ConvertOptions{SeparateDiagonal: true})
	require.NoError(t, err)
	require.Equal(t, 16, ell.RowWidth)

	pool := workerpool.New(4)
	defer pool.Close()
	plan := newPlan(t, partition.RowMode, 4, n, nil)
	auto, err := NewELL(ell, plan, Options{})
	require.NoError(t, err)
	require.Equal(t, "ellgemv16sd", auto.Name())
	generic, err := NewELL(ell, plan, Options{Variant: Diagonal})
	require.NoError(t, err)

	x := randomVector(rng, n)
	want := make([]float64, n)
	got := make([]float64, n)
	require.NoError(t, run(pool, generic, x, want))
	require.NoError(t, run(pool, auto, x, got))
	require.InDeltaSlice(t, want, got, 1e-12)
}

func TestWidth16Mismatch(t *testing.T) {
	ell, err := spmv.NewELL(example3x3(), spmv.ConvertOptions{SeparateDiagonal: true})
	require.NoError(t, err)
	pool := workerpool.New(3)
	defer pool.Close()

	k, err := NewELL(ell, newPlan(t, partition.RowMode, 3, 3, nil), Options{Variant: Width16})
	require.NoError(t, err)
	y := make([]float64, 3)
	err = run(pool, k, []float64{1, 1, 1}, y)
	require.ErrorIs(t, err, spmv.ErrRowWidthMismatch)
	require.Equal(t, []float64{0, 0, 0}, y)
}

func TestPaddingNeutral(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	coo := randomCOO(rng, 50, 50)
	csr, err := spmv.NewCSR(coo, spmv.ConvertOptions{})
	require.NoError(t, err)
	ell, err := spmv.NewELL(coo, spmv.ConvertOptions{})
	require.NoError(t, err)
	require.Positive(t, ell.Padding())

	plan := newPlan(t, partition.RowMode, 1, 50, nil)
	kc, err := NewCSR(csr, plan, Options{})
	require.NoError(t, err)
	ke, err := NewELL(ell, plan, Options{})
	require.NoError(t, err)

	x := make([]float64, 50)
	for j := range x {
		x[j] = 1 + rng.Float64()
	}
	want := make([]float64, 50)
	got := make([]float64, 50)
	require.NoError(t, kc.Multiply(0, x, want))
	require.NoError(t, ke.Multiply(0, x, got))
	require.Equal(t, want, got)

	for i := range 50 {
		for l := ell.RowLen[i]; l < int64(ell.RowWidth); l++ {
			ell.Values[int64(i*ell.RowWidth)+l] = 1e3
		}
	}
	clear(got)
	require.NoError(t, ke.Multiply(0, x, got))
	require.NotEqual(t, want, got)
}

func TestSelectionErrors(t *testing.T) {
	csr, err := spmv.NewCSR(example3x3(), spmv.ConvertOptions{})
	require.NoError(t, err)
	csrsd, err := spmv.NewCSR(example3x3(), spmv.ConvertOptions{SeparateDiagonal: true})
	require.NoError(t, err)
	ell, err := spmv.NewELL(example3x3(), spmv.ConvertOptions{})
	require.NoError(t, err)
	rows := newPlan(t, partition.RowMode, 2, 3, nil)

	_, err = NewCSR(csrsd, rows, Options{Variant: Plain})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
	_, err = NewCSR(csr, rows, Options{Variant: Diagonal})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
	_, err = NewCSR(csr, rows, Options{Variant: Width16})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
	_, err = NewELL(ell, rows, Options{Variant: Width16})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
	_, err = NewELL(ell, newPlan(t, partition.NonzeroMode, 2, 3, csr.RowPtr), Options{})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
	_, err = NewCSR(csr, newPlan(t, partition.RowMode, 2, 4, nil), Options{})
	require.ErrorIs(t, err, spmv.ErrDimensionMismatch)
	_, err = NewCSR(csr, nil, Options{})
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
}

func TestCost(t *testing.T) {
	csr, err := spmv.NewCSR(example3x3(), spmv.ConvertOptions{})
	require.NoError(t, err)
	k, err := NewCSR(csr, newPlan(t, partition.RowMode, 1, 3, nil), Options{})
	require.NoError(t, err)
	require.Equal(t, Cost{Nonzeros: 5, Flops: 10, MinBytes: 140, MaxBytes: 148}, k.Cost())

	ell, err := spmv.NewELL(example3x3(), spmv.ConvertOptions{SeparateDiagonal: true})
	require.NoError(t, err)
	k, err = NewELL(ell, newPlan(t, partition.RowMode, 1, 3, nil), Options{Nonzeros: 7})
	require.NoError(t, err)
	// 3 slots of width 1, 3 diagonal entries, 4-byte indices.
	require.Equal(t, Cost{Nonzeros: 7, Flops: 12, MinBytes: 24 + 24 + 12 + 24 + 24, MaxBytes: 24 + 24 + 12 + 24 + 24 + 24}, k.Cost())

	r := Cost{Nonzeros: 2e9, Flops: 4e9, MinBytes: 1e9, MaxBytes: 3e9}.Rates(2 * time.Second)
	require.Equal(t, "2.000000 seconds (1.000 Gnz/s, 2.000 Gflop/s, 0.5 to 1.5 GB/s)", r.String())
}

func TestAtomicAdd(t *testing.T) {
	var v float64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				AtomicAdd(&v, 0.5)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 4000.0, v)
}

func TestParseVariant(t *testing.T) {
	for _, v := range []Variant{Auto, Plain, Diagonal, Width16} {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
	_, err := ParseVariant("width8")
	require.ErrorIs(t, err, spmv.ErrInvalidConfiguration)
}

func benchmarkKernel(b *testing.B, mode partition.Mode) {
	rng := rand.New(rand.NewPCG(11, 12))
	n := 20000
	coo := randomCOO(rng, n, n)
	csr, err := spmv.NewCSR(coo, spmv.ConvertOptions{SortRows: true})
	require.NoError(b, err)
	pool := workerpool.New(0)
	defer pool.Close()
	k, err := NewCSR(csr, newPlan(b, mode, pool.NumWorkers(), n, csr.RowPtr), Options{})
	require.NoError(b, err)
	x := randomVector(rng, n)
	y := make([]float64, n)

	b.ResetTimer()
	pool.Region(func(w *workerpool.Worker) {
		for i := 0; i < b.N; i++ {
			w.Barrier()
			_ = k.Multiply(w.ID(), x, y)
		}
	})
}

func BenchmarkCSRGemvRows(b *testing.B)     { benchmarkKernel(b, partition.RowMode) }
func BenchmarkCSRGemvNonzeros(b *testing.B) { benchmarkKernel(b, partition.NonzeroMode) }
