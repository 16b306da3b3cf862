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

	"github.com/ajroetker/go-spmv/spmv"
	"github.com/ajroetker/go-spmv/spmv/contrib/partition"
)

// ELLGemv computes y[i] += A[i,:]*x for the rows in rows, padding
// included.
func ELLGemv[I spmv.Index](m *spmv.ELL[I], rows partition.Range, x, y []float64) {
	w, colIdx, a := m.RowWidth, m.ColIdx, m.Values
	for i := rows.Start; i < rows.End; i++ {
		var yi float64
		for l := i * w; l < (i+1)*w; l++ {
			yi += a[l] * x[colIdx[l]]
		}
		y[i] += yi
	}
}

// ELLGemvSD computes y[i] += diag[i]*x[i] + A[i,:]*x for the rows in rows.
// m must store its diagonal separately.
func ELLGemvSD[I spmv.Index](m *spmv.ELL[I], rows partition.Range, x, y []float64) {
	w, colIdx, a, ad := m.RowWidth, m.ColIdx, m.Values, m.Diag
	for i := rows.Start; i < rows.End; i++ {
		var yi float64
		for l := i * w; l < (i+1)*w; l++ {
			yi += a[l] * x[colIdx[l]]
		}
		y[i] += ad[i]*x[i] + yi
	}
}

// ELLGemv16SD is ELLGemvSD unrolled for rows of exactly 16 slots. The row
// sum starts with the diagonal term. It returns spmv.ErrRowWidthMismatch
// for any other width.
func ELLGemv16SD[I spmv.Index](m *spmv.ELL[I], rows partition.Range, x, y []float64) error {
	if m.RowWidth != 16 {
		return fmt.Errorf("%w: kernel needs 16 slots per row, matrix has %d", spmv.ErrRowWidthMismatch, m.RowWidth)
	}
	colIdx, ad := m.ColIdx, m.Diag
	for i := rows.Start; i < rows.End; i++ {
		a := m.Values[i*16 : i*16+16 : i*16+16]
		j := colIdx[i*16 : i*16+16 : i*16+16]
		y[i] += ad[i]*x[i] +
			a[0]*x[j[0]] +
			a[1]*x[j[1]] +
			a[2]*x[j[2]] +
			a[3]*x[j[3]] +
			a[4]*x[j[4]] +
			a[5]*x[j[5]] +
			a[6]*x[j[6]] +
			a[7]*x[j[7]] +
			a[8]*x[j[8]] +
			a[9]*x[j[9]] +
			a[10]*x[j[10]] +
			a[11]*x[j[11]] +
			a[12]*x[j[12]] +
			a[13]*x[j[13]] +
			a[14]*x[j[14]] +
			a[15]*x[j[15]]
	}
	return nil
}

type ellKernel[I spmv.Index] struct {
	name    string
	m       *spmv.ELL[I]
	plan    *partition.Plan
	cost    Cost
	variant Variant
}

// NewELL selects an ELLPACK kernel for m and plan. ELLPACK rows all have
// the same number of slots, so only row plans are accepted.
//
// Width16 is accepted for any width and fails in Multiply with
// spmv.ErrRowWidthMismatch when the width is not 16.
func NewELL[I spmv.Index](m *spmv.ELL[I], plan *partition.Plan, opts Options) (Kernel, error) {
	if err := checkPlan(plan, int(m.NumRows)); err != nil {
		return nil, err
	}
	if plan.Mode() != partition.RowMode {
		return nil, fmt.Errorf("%w: ELLPACK kernels need a row partition, got %s", spmv.ErrInvalidConfiguration, plan.Mode())
	}
	diag := m.HasDiagonal()

	variant := opts.Variant
	switch variant {
	case Auto:
		switch {
		case diag && m.RowWidth == 16:
			variant = Width16
		case diag:
			variant = Diagonal
		default:
			variant = Plain
		}
	case Plain:
		if diag {
			return nil, fmt.Errorf("%w: kernel %s ignores the separate diagonal", spmv.ErrInvalidConfiguration, variant)
		}
	case Diagonal, Width16:
		if !diag {
			return nil, fmt.Errorf("%w: kernel %s needs a separate diagonal", spmv.ErrInvalidConfiguration, variant)
		}
	default:
		return nil, fmt.Errorf("%w: unknown kernel %d", spmv.ErrInvalidConfiguration, variant)
	}

	names := map[Variant]string{Plain: "ellgemv", Diagonal: "ellgemvsd", Width16: "ellgemv16sd"}
	return &ellKernel[I]{
		name:    names[variant],
		m:       m,
		plan:    plan,
		cost:    ellCost(m, opts.Nonzeros),
		variant: variant,
	}, nil
}

func (k *ellKernel[I]) Name() string          { return k.name }
func (k *ellKernel[I]) Cost() Cost            { return k.cost }
func (k *ellKernel[I]) Plan() *partition.Plan { return k.plan }
func (k *ellKernel[I]) NumRows() int          { return int(k.m.NumRows) }
func (k *ellKernel[I]) NumColumns() int       { return int(k.m.NumColumns) }

func (k *ellKernel[I]) Multiply(w int, x, y []float64) error {
	rows := k.plan.RowRange(w)
	switch k.variant {
	case Width16:
		return ELLGemv16SD(k.m, rows, x, y)
	case Diagonal:
		ELLGemvSD(k.m, rows, x, y)
	default:
		ELLGemv(k.m, rows, x, y)
	}
	return nil
}
