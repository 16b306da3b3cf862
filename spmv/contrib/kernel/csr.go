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

// CSRGemv computes y[i] += A[i,:]*x for the rows in rows.
func CSRGemv[I spmv.Index](m *spmv.CSR[I], rows partition.Range, x, y []float64) {
	rowPtr, colIdx, a := m.RowPtr, m.ColIdx, m.Values
	for i := rows.Start; i < rows.End; i++ {
		var yi float64
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			yi += a[k] * x[colIdx[k]]
		}
		y[i] += yi
	}
}

// CSRGemvSD computes y[i] += diag[i]*x[i] + A[i,:]*x for the rows in rows.
// m must store its diagonal separately.
func CSRGemvSD[I spmv.Index](m *spmv.CSR[I], rows partition.Range, x, y []float64) {
	rowPtr, colIdx, a, ad := m.RowPtr, m.ColIdx, m.Values, m.Diag
	for i := rows.Start; i < rows.End; i++ {
		var yi float64
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			yi += a[k] * x[colIdx[k]]
		}
		y[i] += ad[i]*x[i] + yi
	}
}

// CSRGemvNonzero adds the products of the nonzeros in r.Nonzeros to y.
//
// Rows lying entirely inside the share are written with a plain add.
// Rows shared with other workers are written with AtomicAdd. The owner of
// a row adds its diagonal term, if m stores one.
func CSRGemvNonzero[I spmv.Index](m *spmv.CSR[I], r partition.NonzeroRange, x, y []float64) {
	rowPtr, colIdx, a, ad := m.RowPtr, m.ColIdx, m.Values, m.Diag
	s, e := int64(r.Nonzeros.Start), int64(r.Nonzeros.End)
	for i := r.Rows.Start; i < r.Rows.End; i++ {
		kb, ke := max(rowPtr[i], s), min(rowPtr[i+1], e)
		owned := r.Owned.Contains(i)
		if !owned && kb >= ke {
			continue
		}
		var yi float64
		for k := kb; k < ke; k++ {
			yi += a[k] * x[colIdx[k]]
		}
		if owned && ad != nil {
			yi = ad[i]*x[i] + yi
		}
		if rowPtr[i] < s || rowPtr[i+1] > e {
			AtomicAdd(&y[i], yi)
		} else {
			y[i] += yi
		}
	}
}

type csrKernel[I spmv.Index] struct {
	name    string
	m       *spmv.CSR[I]
	plan    *partition.Plan
	cost    Cost
	nonzero bool
}

// NewCSR selects a CSR kernel for m and plan. Row plans use csrgemv or
// csrgemvsd, nonzero plans their nonzero-partitioned forms.
func NewCSR[I spmv.Index](m *spmv.CSR[I], plan *partition.Plan, opts Options) (Kernel, error) {
	if err := checkPlan(plan, int(m.NumRows)); err != nil {
		return nil, err
	}
	diag := m.HasDiagonal()
	switch opts.Variant {
	case Auto:
	case Plain:
		if diag {
			return nil, fmt.Errorf("%w: kernel %s ignores the separate diagonal", spmv.ErrInvalidConfiguration, opts.Variant)
		}
	case Diagonal:
		if !diag {
			return nil, fmt.Errorf("%w: kernel %s needs a separate diagonal", spmv.ErrInvalidConfiguration, opts.Variant)
		}
	default:
		return nil, fmt.Errorf("%w: kernel %s is not available for CSR", spmv.ErrInvalidConfiguration, opts.Variant)
	}

	k := &csrKernel[I]{
		name:    "csrgemv",
		m:       m,
		plan:    plan,
		cost:    csrCost(m, opts.Nonzeros),
		nonzero: plan.Mode() == partition.NonzeroMode,
	}
	if diag {
		k.name += "sd"
	}
	if k.nonzero {
		k.name += "_nnz"
	}
	return k, nil
}

func (k *csrKernel[I]) Name() string          { return k.name }
func (k *csrKernel[I]) Cost() Cost            { return k.cost }
func (k *csrKernel[I]) Plan() *partition.Plan { return k.plan }
func (k *csrKernel[I]) NumRows() int          { return int(k.m.NumRows) }
func (k *csrKernel[I]) NumColumns() int       { return int(k.m.NumColumns) }

func (k *csrKernel[I]) Multiply(w int, x, y []float64) error {
	switch {
	case k.nonzero:
		CSRGemvNonzero(k.m, k.plan.NonzeroRange(w), x, y)
	case k.m.Diag != nil:
		CSRGemvSD(k.m, k.plan.RowRange(w), x, y)
	default:
		CSRGemv(k.m, k.plan.RowRange(w), x, y)
	}
	return nil
}
