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
	"time"
	"unsafe"

	"github.com/ajroetker/go-spmv/spmv"
)

const (
	valueBytes  = 8 // float64
	rowPtrBytes = 8 // int64
)

// Cost is the work and memory traffic of one full multiply.
//
// MinBytes assumes every array is read or written once, x included.
// MaxBytes assumes every access to x misses the cache.
type Cost struct {
	Nonzeros int64
	Flops    int64
	MinBytes int64
	MaxBytes int64
}

func indexBytes[I spmv.Index]() int64 {
	var i I
	return int64(unsafe.Sizeof(i))
}

func csrCost[I spmv.Index](m *spmv.CSR[I], nonzeros int64) Cost {
	rows, cols := int64(m.NumRows), int64(m.NumColumns)
	size, diag := m.Size(), int64(len(m.Diag))
	idx := indexBytes[I]()
	if nonzeros == 0 {
		nonzeros = m.NumNonzeros()
	}
	return Cost{
		Nonzeros: nonzeros,
		Flops:    2 * (size + diag),
		MinBytes: rows*valueBytes + cols*valueBytes + (rows+1)*rowPtrBytes +
			size*idx + size*valueBytes + diag*valueBytes,
		MaxBytes: rows*valueBytes + size*valueBytes + rows*rowPtrBytes +
			size*idx + size*valueBytes + diag*valueBytes + diag*valueBytes,
	}
}

func ellCost[I spmv.Index](m *spmv.ELL[I], nonzeros int64) Cost {
	rows, cols := int64(m.NumRows), int64(m.NumColumns)
	size, diag := m.Size(), int64(len(m.Diag))
	idx := indexBytes[I]()
	if nonzeros == 0 {
		nonzeros = m.NumNonzeros()
	}
	return Cost{
		Nonzeros: nonzeros,
		Flops:    2 * (size + diag),
		MinBytes: rows*valueBytes + cols*valueBytes +
			size*idx + size*valueBytes + diag*valueBytes,
		MaxBytes: rows*valueBytes + size*valueBytes +
			size*idx + size*valueBytes + diag*valueBytes + diag*valueBytes,
	}
}

// Rates are the throughputs of one multiply that took a given time.
type Rates struct {
	Seconds      float64
	GnzPerSec    float64
	GflopsPerSec float64
	MinGBPerSec  float64
	MaxGBPerSec  float64
}

// Rates converts the cost of a multiply that took d into throughputs.
func (c Cost) Rates(d time.Duration) Rates {
	s := d.Seconds()
	if s <= 0 {
		return Rates{Seconds: s}
	}
	return Rates{
		Seconds:      s,
		GnzPerSec:    float64(c.Nonzeros) * 1e-9 / s,
		GflopsPerSec: float64(c.Flops) * 1e-9 / s,
		MinGBPerSec:  float64(c.MinBytes) * 1e-9 / s,
		MaxGBPerSec:  float64(c.MaxBytes) * 1e-9 / s,
	}
}

// String formats the rates the way the benchmark logs every iteration.
func (r Rates) String() string {
	return fmt.Sprintf("%.6f seconds (%.3f Gnz/s, %.3f Gflop/s, %.1f to %.1f GB/s)",
		r.Seconds, r.GnzPerSec, r.GflopsPerSec, r.MinGBPerSec, r.MaxGBPerSec)
}
