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

// Command spmvbench benchmarks sparse matrix-vector multiplication y += A*x
// for a matrix read from a Matrix Market file.
//
// Usage:
//
//	spmvbench csr A.mtx [x.mtx] [y.mtx] --repeat=100 -v
//	spmvbench ell -z A.mtx.gz --separate-diagonal --kernel=width16
//	spmvbench csr A.mtx --partition=nonzeros --threads=48 --quiet
//
// x defaults to a vector of ones and y to zeros. The result y is written
// to standard output in Matrix Market format unless --quiet is given.
//
// Each -v increases the log verbosity: one prints the time of every
// phase and of every multiply, two adds conversion and partition details.
//
// Architecture hints are disabled by setting SPMV_NO_HINTS=1.
package main

import (
	goflag "flag"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-spmv/spmv/contrib/kernel"
	"github.com/ajroetker/go-spmv/spmv/contrib/partition"
	"github.com/ajroetker/go-spmv/spmv/contrib/profile"
)

// options holds the flags shared by all formats.
type options struct {
	separateDiagonal bool
	sortRows         bool
	repeat           int
	warmup           int
	gzip             bool
	quiet            bool
	verbose          int
	threads          int
	partition        string
	rowsPerThread    []int
	precompute       bool
	idxWidth         int
	kernel           string
	resetY           bool

	profile          bool
	profileFormat    string
	profilePerThread bool
	profileSummary   bool
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.separateDiagonal, "separate-diagonal", false, "store the diagonal of a square matrix separately")
	fs.BoolVar(&o.sortRows, "sort-rows", false, "sort the nonzeros of every row by column")
	fs.IntVar(&o.repeat, "repeat", 1, "number of timed multiplications")
	fs.IntVar(&o.warmup, "warmup", 0, "number of untimed multiplications before the timed ones")
	fs.BoolVarP(&o.gzip, "gzip", "z", false, "decompress input files with gzip")
	fs.BoolVar(&o.gzip, "gunzip", false, "alias for --gzip")
	fs.BoolVar(&o.gzip, "ungzip", false, "alias for --gzip")
	_ = fs.MarkHidden("gunzip")
	_ = fs.MarkHidden("ungzip")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "do not print the result vector")
	fs.CountVarP(&o.verbose, "verbose", "v", "log timings; repeat for more detail")
	fs.IntVar(&o.threads, "threads", 0, "number of workers (default GOMAXPROCS)")
	fs.StringVar(&o.partition, "partition", partition.RowMode.String(), "divide work by rows or nonzeros")
	fs.IntSliceVar(&o.rowsPerThread, "rows-per-thread", nil, "explicit number of rows for every worker")
	fs.BoolVar(&o.precompute, "precompute-partition", false, "locate the rows of every nonzero share up front")
	fs.IntVar(&o.idxWidth, "idx-width", 32, "index width in bits, 32 or 64")
	fs.StringVar(&o.kernel, "kernel", kernel.Auto.String(), "kernel variant: auto, plain, diagonal or width16")
	fs.BoolVar(&o.resetY, "reset-y", false, "zero y before every multiplication")

	fs.BoolVar(&o.profile, "profile", false, "report wall time and calls of the timed region")
	fs.StringVar(&o.profileFormat, "profile-format", profile.Plain.String(), "profile report format: plain or csv")
	fs.BoolVar(&o.profilePerThread, "profile-per-thread", false, "report every worker's counts")
	fs.BoolVar(&o.profileSummary, "profile-summary", true, "report the total of all regions at exit")
}

// setVerbosity maps the -v count onto klog's verbosity.
func setVerbosity(fs *goflag.FlagSet, verbose int) error {
	return fs.Set("v", strconv.Itoa(verbose))
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func newRootCommand() *cobra.Command {
	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)

	var o options
	root := &cobra.Command{
		Use:           "spmvbench",
		Short:         "Benchmark sparse matrix-vector multiplication",
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setVerbosity(klogFlags, o.verbose)
		},
	}
	o.addFlags(root.PersistentFlags())

	for _, f := range []format{csrFormat, ellFormat} {
		root.AddCommand(&cobra.Command{
			Use:   string(f) + " A [x] [y]",
			Short: "Multiply with A stored in " + f.description(),
			Args:  cobra.RangeArgs(1, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, f, &o, args)
			},
		})
	}
	return root
}

func main() {
	atexit.Register(klog.Flush)
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "spmvbench: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
