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

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/mtx"
	"github.com/ajroetker/go-spmv/spmv"
	"github.com/ajroetker/go-spmv/spmv/contrib/bench"
	"github.com/ajroetker/go-spmv/spmv/contrib/kernel"
	"github.com/ajroetker/go-spmv/spmv/contrib/partition"
	"github.com/ajroetker/go-spmv/spmv/contrib/profile"
	"github.com/ajroetker/go-spmv/spmv/contrib/workerpool"
	"github.com/ajroetker/go-spmv/spmv/hint"
)

// format is the sparse storage format a subcommand converts to.
type format string

const (
	csrFormat format = "csr"
	ellFormat format = "ell"
)

func (f format) description() string {
	if f == ellFormat {
		return "ELLPACK format"
	}
	return "compressed sparse row format"
}

// settings are the parsed flag values that need validation.
type settings struct {
	mode    partition.Mode
	variant kernel.Variant
	profile profile.Format
	threads int
}

func parseSettings(cmd *cobra.Command, o *options) (settings, error) {
	var s settings
	var err error
	if s.mode, err = partition.ParseMode(o.partition); err != nil {
		return s, err
	}
	if s.variant, err = kernel.ParseVariant(o.kernel); err != nil {
		return s, err
	}
	if s.profile, err = profile.ParseFormat(o.profileFormat); err != nil {
		return s, err
	}
	s.threads = o.threads
	if len(o.rowsPerThread) > 0 && !cmd.Flags().Changed("threads") {
		s.threads = len(o.rowsPerThread)
	}
	if s.threads < 0 {
		return s, fmt.Errorf("%w: %d threads", spmv.ErrInvalidConfiguration, s.threads)
	}
	return s, nil
}

func run(cmd *cobra.Command, f format, o *options, args []string) error {
	s, err := parseSettings(cmd, o)
	if err != nil {
		return err
	}
	switch o.idxWidth {
	case 32:
		return runIndex[int32](cmd, f, o, s, args)
	case 64:
		return runIndex[int64](cmd, f, o, s, args)
	default:
		return fmt.Errorf("%w: --idx-width=%d, expected 32 or 64", spmv.ErrInvalidConfiguration, o.idxWidth)
	}
}

// phase logs the duration of a step at verbosity 1.
func phase(name string, t0 time.Time, detail string) {
	if klog.V(1).Enabled() {
		klog.Infof("%s: %.6f seconds%s", name, time.Since(t0).Seconds(), detail)
	}
}

func runIndex[I spmv.Index](cmd *cobra.Command, f format, o *options, s settings, args []string) error {
	pool := workerpool.New(s.threads)
	defer pool.Close()

	t0 := time.Now()
	coo, bytesRead, err := readMatrix[I](args[0], o.gzip)
	if err != nil {
		return err
	}
	phase("mtxfile_read", t0, fmt.Sprintf(" (%.1f MB/s)", 1e-6*float64(bytesRead)/time.Since(t0).Seconds()))

	opts := spmv.ConvertOptions{SeparateDiagonal: o.separateDiagonal, SortRows: o.sortRows, Pool: pool}
	popts := partition.Options{Mode: s.mode, Workers: pool.NumWorkers(), RowCounts: o.rowsPerThread, Precompute: o.precompute}
	kopts := kernel.Options{Variant: s.variant, Nonzeros: coo.NumNonzeros()}
	numRows, numColumns := int(coo.NumRows), int(coo.NumColumns)

	t0 = time.Now()
	var k kernel.Kernel
	var rowLens []int64
	var rowPtr []int64
	switch f {
	case csrFormat:
		m, err := spmv.NewCSR(coo, opts)
		if err != nil {
			return err
		}
		phase("csr_from_coo", t0, "")
		rowLens = lo.Times(numRows, m.RowLen)
		rowPtr = m.RowPtr
		plan, err := partition.New(popts, numRows, m.RowPtr)
		if err != nil {
			return err
		}
		if k, err = kernel.NewCSR(m, plan, kopts); err != nil {
			return err
		}
	case ellFormat:
		m, err := spmv.NewELL(coo, opts)
		if err != nil {
			return err
		}
		phase("ell_from_coo", t0, "")
		rowLens = m.RowLen
		plan, err := partition.New(popts, numRows, nil)
		if err != nil {
			return err
		}
		if k, err = kernel.NewELL(m, plan, kopts); err != nil {
			return err
		}
	}
	logMatrix(k, rowLens, rowPtr)

	t0 = time.Now()
	x, y, err := readVectors(args[1:], o.gzip, numColumns, numRows)
	if err != nil {
		return err
	}
	phase("read vectors", t0, "")

	var profiler profile.Profiler = profile.Nop{}
	if o.profile {
		rec, err := profile.NewRecorder(profile.Options{
			Workers:   pool.NumWorkers(),
			Format:    s.profile,
			PerThread: o.profilePerThread,
			Region:    true,
			Summary:   o.profileSummary,
			Output:    cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		atexit.Register(func() {
			if err := rec.Close(); err != nil {
				klog.Errorf("closing profiler: %v", err)
			}
		})
		profiler = rec
	}

	res, err := bench.Run(pool, k, x, y, bench.Config{
		Warmup:   o.warmup,
		Repeat:   o.repeat,
		ResetY:   o.resetY,
		Profiler: profiler,
		Hinter:   hint.Default(),
	})
	if err != nil {
		return err
	}
	if o.verbose > 0 {
		printSummary(cmd.ErrOrStderr(), res)
	}

	if o.quiet {
		return nil
	}
	t0 = time.Now()
	if err := mtx.WriteVector(cmd.OutOrStdout(), y); err != nil {
		return err
	}
	phase("mtxfile_write", t0, "")
	return nil
}

// readMatrix reads a coordinate matrix and returns it with the number of
// bytes read.
func readMatrix[I spmv.Index](path string, gzip bool) (*spmv.COO[I], int64, error) {
	s, err := mtx.Open(path, gzip)
	if err != nil {
		return nil, 0, err
	}
	defer s.Close()
	h, err := mtx.ReadHeader(s)
	if err != nil {
		return nil, 0, err
	}
	m, err := mtx.ReadCOO[I](s, h)
	if err != nil {
		return nil, 0, err
	}
	return m, s.BytesRead(), nil
}

func readVector(path string, gzip bool, n int) ([]float64, error) {
	s, err := mtx.Open(path, gzip)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	h, err := mtx.ReadHeader(s)
	if err != nil {
		return nil, err
	}
	return mtx.ReadVector(s, h, n)
}

// readVectors reads the optional x and y files concurrently. Missing
// vectors default to x of ones and y of zeros.
func readVectors(paths []string, gzip bool, numColumns, numRows int) (x, y []float64, err error) {
	var g errgroup.Group
	if len(paths) > 0 {
		g.Go(func() (err error) {
			x, err = readVector(paths[0], gzip, numColumns)
			return err
		})
	} else {
		x = lo.Times(numColumns, func(int) float64 { return 1 })
	}
	if len(paths) > 1 {
		g.Go(func() (err error) {
			y, err = readVector(paths[1], gzip, numRows)
			return err
		})
	} else {
		y = make([]float64, numRows)
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func logMatrix(k kernel.Kernel, rowLens, rowPtr []int64) {
	if !klog.V(2).Enabled() {
		return
	}
	plan := k.Plan()
	stats := plan.StatsCSR(rowPtr)
	klog.Infof("%s: %d rows, %d columns, %d nonzeros, %d to %d nonzeros per row",
		k.Name(), k.NumRows(), k.NumColumns(), k.Cost().Nonzeros, lo.Min(rowLens), lo.Max(rowLens))
	klog.Infof("%d workers, %s partition, %d to %d rows per worker",
		plan.Workers(), plan.Mode(), stats.MinRows, stats.MaxRows)
	if stats.Nonzeros != nil {
		klog.Infof("%d to %d nonzeros per worker", stats.MinNonzeros, stats.MaxNonzeros)
	}
}

func printSummary(w io.Writer, res *bench.Result) {
	if len(res.Iterations) == 0 {
		return
	}
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)
	fmt.Fprintf(w, "%s on %d workers, %d iterations %s\n",
		bold.Sprint(res.Kernel), res.Workers, len(res.Iterations), faint.Sprintf("(run %s)", res.RunID))
	fmt.Fprintf(w, "  best  %s\n", green.Sprint(res.Throughput(res.Min())))
	fmt.Fprintf(w, "  mean  %s\n", res.Throughput(res.Mean()))
	fmt.Fprintf(w, "  worst %s\n", res.Throughput(res.Max()))
}
