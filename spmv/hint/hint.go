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

// Package hint defines architecture hints around kernel execution, such
// as cache partitioning or prefetch distance, and reports what the
// current CPU supports.
//
// Hints never change results. The portable build ships no hint adapters,
// so Default returns Nop unless a platform adapter was registered.
// Setting SPMV_NO_HINTS disables registered adapters.
package hint

//go:generate mockgen -destination=mock_hint/mock_hinter.go -package=mock_hint github.com/ajroetker/go-spmv/spmv/hint Hinter

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Stream describes an operand that a kernel streams through memory.
type Stream struct {
	Name  string
	Bytes int64
}

// Hinter prepares the machine for a kernel and restores it afterwards.
// Enter and Exit are called in pairs from a single goroutine, outside of
// the timed region.
type Hinter interface {
	Enter(kernel string, streams ...Stream)
	Exit()
}

// Nop is a Hinter that does nothing.
type Nop struct{}

func (Nop) Enter(string, ...Stream) {}
func (Nop) Exit()                   {}

// CPU describes the instruction sets relevant to the kernels.
type CPU struct {
	Arch     string
	Level    string
	Features []string

	// CacheLine is the cache line size assumed for padding, in bytes.
	CacheLine int
}

// String returns a one-line description, such as "amd64/avx2 (fma)".
func (c CPU) String() string {
	s := c.Arch + "/" + c.Level
	if len(c.Features) > 0 {
		s += " (" + strings.Join(c.Features, ", ") + ")"
	}
	return s
}

// Describe reports the current CPU.
func Describe() CPU {
	c := describe()
	c.CacheLine = int(unsafe.Sizeof(cpu.CacheLinePad{}))
	return c
}

// NoHintsEnv checks if the SPMV_NO_HINTS environment variable is set.
func NoHintsEnv() bool {
	val := os.Getenv("SPMV_NO_HINTS")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

var (
	mu       sync.Mutex
	platform Hinter
)

// Register installs the platform adapter returned by Default. It is meant
// to be called from the init function of a platform-specific package.
func Register(h Hinter) {
	mu.Lock()
	defer mu.Unlock()
	platform = h
}

// Default returns the registered platform adapter, or Nop when none is
// registered or SPMV_NO_HINTS is set.
func Default() Hinter {
	mu.Lock()
	defer mu.Unlock()
	if platform == nil || NoHintsEnv() {
		return Nop{}
	}
	return platform
}
