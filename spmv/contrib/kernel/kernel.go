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
	"strings"

	"github.com/ajroetker/go-spmv/spmv"
	"github.com/ajroetker/go-spmv/spmv/contrib/partition"
)

// Variant selects a kernel implementation.
type Variant int

const (
	// Auto picks the diagonal variant when the matrix stores its diagonal
	// separately, and the width-16 variant when the ELLPACK width allows.
	Auto Variant = iota

	// Plain multiplies the sparse body only.
	Plain

	// Diagonal adds the separately stored diagonal.
	Diagonal

	// Width16 is the unrolled ELLPACK kernel for rows of exactly 16 slots,
	// with a separate diagonal.
	Width16
)

// String returns the name used on the command line.
func (v Variant) String() string {
	switch v {
	case Auto:
		return "auto"
	case Plain:
		return "plain"
	case Diagonal:
		return "diagonal"
	case Width16:
		return "width16"
	default:
		return "unknown"
	}
}

// ParseVariant parses the name of a kernel variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range []Variant{Auto, Plain, Diagonal, Width16} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kernel %q", spmv.ErrInvalidConfiguration, s)
}

// Options configures kernel selection.
type Options struct {
	Variant Variant

	// Nonzeros overrides the nonzero count used for throughput reporting,
	// typically with the number of entries in the input file. Zero uses
	// the number of entries stored in the converted matrix.
	Nonzeros int64
}

// Kernel computes y += A*x for one matrix and one partition plan.
//
// Multiply is called concurrently by every worker of the plan, each with
// its own worker index, and computes that worker's share only. It returns
// an error only when the kernel cannot run on the matrix it was built
// for, and returns the same error on every worker.
type Kernel interface {
	// Name returns the kernel name, such as "csrgemvsd".
	Name() string

	// Multiply adds worker w's share of A*x to y.
	Multiply(w int, x, y []float64) error

	// Cost returns the work and memory traffic of one full multiply.
	Cost() Cost

	// Plan returns the partition plan the kernel was built for.
	Plan() *partition.Plan

	NumRows() int
	NumColumns() int
}

// checkPlan verifies that plan was made for a matrix with numRows rows.
func checkPlan(plan *partition.Plan, numRows int) error {
	if plan == nil {
		return fmt.Errorf("%w: no partition plan", spmv.ErrInvalidConfiguration)
	}
	if plan.NumRows() != numRows {
		return fmt.Errorf("%w: plan has %d rows, matrix has %d", spmv.ErrDimensionMismatch, plan.NumRows(), numRows)
	}
	return nil
}
