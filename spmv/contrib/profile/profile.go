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

// Package profile defines the instrumentation hook around timed kernel
// regions, and a Recorder that reports wall time and call counts per
// region and per worker.
//
// A profiler is a value owned by the caller: it is created before the
// benchmark, passed to it, and closed afterwards. Nothing in this package
// keeps global state.
package profile

//go:generate mockgen -destination=mock_profile/mock_profiler.go -package=mock_profile github.com/ajroetker/go-spmv/spmv/contrib/profile Profiler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotStarted is returned by Stop without a matching Start.
	ErrNotStarted = errors.New("profile: no region started")

	// ErrAlreadyStarted is returned by Start while a region is open.
	ErrAlreadyStarted = errors.New("profile: region already started")

	// ErrClosed is returned when a closed profiler is used.
	ErrClosed = errors.New("profile: profiler closed")
)

// Profiler brackets named regions of a benchmark. Start and Stop are
// called from a single goroutine and regions do not nest.
type Profiler interface {
	Start(region string) error
	Stop() error
}

// WorkerCounter is implemented by profilers that also collect per-worker
// counts inside a region. Count is called concurrently, but each worker
// only ever passes its own index.
type WorkerCounter interface {
	Count(worker int, elapsed time.Duration)
}

// Nop is a Profiler that does nothing.
type Nop struct{}

// Start returns nil.
func (Nop) Start(string) error { return nil }

// Stop returns nil.
func (Nop) Stop() error { return nil }

// Format selects the output format of a Recorder.
type Format int

const (
	// Plain writes a readable block per record.
	Plain Format = iota
	// CSV writes one comma-separated line per record after a header.
	CSV
)

// String returns the name used on the command line.
func (f Format) String() string {
	switch f {
	case Plain:
		return "plain"
	case CSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "plain", "":
		return Plain, nil
	case "csv":
		return CSV, nil
	}
	return 0, fmt.Errorf("profile: unknown format %q", s)
}
