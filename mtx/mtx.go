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

// Package mtx reads sparse matrices and dense vectors in Matrix Market
// format and writes dense vectors back.
//
// Only the subset used by the benchmarks is supported: coordinate
// matrices with real, integer or pattern values and general or symmetric
// storage, and real or integer array vectors.
package mtx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ajroetker/go-spmv/spmv"
)

// ErrFormat is returned for input that is not valid Matrix Market text.
var ErrFormat = errors.New("mtx: invalid format")

// ErrUnsupported is returned for valid headers this package cannot read.
var ErrUnsupported = errors.New("mtx: unsupported object")

// Error locates a read failure in its input.
type Error struct {
	Path string
	Line int64
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errorAt wraps err with the position of the line being parsed.
func errorAt(s Stream, line int64, err error) error {
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: unexpected end of file", ErrFormat)
	}
	return &Error{Path: s.Name(), Line: line, Err: err}
}

// Object is the kind of data a file holds.
type Object string

const (
	Matrix Object = "matrix"
	Vector Object = "vector"
)

// Format is the storage layout of a file.
type Format string

const (
	Array      Format = "array"
	Coordinate Format = "coordinate"
)

// Field is the type of the stored values.
type Field string

const (
	Real    Field = "real"
	Integer Field = "integer"
	Pattern Field = "pattern"
)

// Header is the banner and size line of a Matrix Market file.
type Header struct {
	Object   Object
	Format   Format
	Field    Field
	Symmetry spmv.Symmetry

	NumRows     int64
	NumColumns  int64
	NumNonzeros int64
}

const banner = "%%MatrixMarket"

// ReadHeader reads the banner, skips comment lines and parses the size
// line. Coordinate matrices and array vectors are accepted.
func ReadHeader(s Stream) (Header, error) {
	var h Header
	line, err := s.ReadLine()
	if err != nil {
		return h, errorAt(s, s.LinesRead()+1, err)
	}
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != banner {
		return h, errorAt(s, s.LinesRead(), fmt.Errorf("%w: bad banner %q", ErrFormat, line))
	}
	h.Object = Object(fields[1])
	h.Format = Format(fields[2])
	h.Field = Field(fields[3])
	switch fields[4] {
	case "general":
		h.Symmetry = spmv.General
	case "symmetric":
		h.Symmetry = spmv.Symmetric
	default:
		return h, errorAt(s, s.LinesRead(), fmt.Errorf("%w: symmetry %q", ErrUnsupported, fields[4]))
	}
	switch h.Field {
	case Real, Integer, Pattern:
	default:
		return h, errorAt(s, s.LinesRead(), fmt.Errorf("%w: field %q", ErrUnsupported, h.Field))
	}

	for {
		line, err = s.ReadLine()
		if err != nil {
			return h, errorAt(s, s.LinesRead()+1, err)
		}
		if !strings.HasPrefix(line, "%") {
			break
		}
	}

	fields = strings.Fields(line)
	switch {
	case h.Object == Matrix && h.Format == Coordinate:
		if len(fields) != 3 {
			return h, errorAt(s, s.LinesRead(), fmt.Errorf("%w: size line %q", ErrFormat, line))
		}
		h.NumRows, err = parseCount(fields[0])
		if err == nil {
			h.NumColumns, err = parseCount(fields[1])
		}
		if err == nil {
			h.NumNonzeros, err = parseCount(fields[2])
		}
	case h.Object == Vector && h.Format == Array:
		if len(fields) != 1 {
			return h, errorAt(s, s.LinesRead(), fmt.Errorf("%w: size line %q", ErrFormat, line))
		}
		h.NumRows, err = parseCount(fields[0])
		h.NumColumns = 1
		h.NumNonzeros = h.NumRows
	default:
		err = fmt.Errorf("%w: %s %s", ErrUnsupported, h.Object, h.Format)
	}
	if err != nil {
		return h, errorAt(s, s.LinesRead(), err)
	}
	return h, nil
}

func parseCount(f string) (int64, error) {
	v, err := strconv.ParseInt(f, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrFormat, v)
	}
	return v, nil
}

// parseIndex parses a 1-based index that must fit I.
func parseIndex[I spmv.Index](f string) (I, error) {
	v, err := strconv.ParseInt(f, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if int64(I(v)) != v {
		return 0, fmt.Errorf("%w: index %d does not fit in %T", ErrFormat, v, I(0))
	}
	return I(v), nil
}

// parseValue parses a value of the given field. Pattern entries are 1.
func parseValue(field Field, fields []string) (float64, error) {
	switch field {
	case Pattern:
		if len(fields) != 0 {
			return 0, fmt.Errorf("%w: pattern entry with a value", ErrFormat)
		}
		return 1, nil
	case Integer:
		if len(fields) != 1 {
			return 0, fmt.Errorf("%w: expected one value", ErrFormat)
		}
		v, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return float64(v), nil
	default:
		if len(fields) != 1 {
			return 0, fmt.Errorf("%w: expected one value", ErrFormat)
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return v, nil
	}
}

// ReadCOO reads the entries of a coordinate matrix whose header was read
// with ReadHeader. The dimensions must fit I.
func ReadCOO[I spmv.Index](s Stream, h Header) (*spmv.COO[I], error) {
	if h.Object != Matrix || h.Format != Coordinate {
		return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: expected a coordinate matrix, got %s %s", ErrUnsupported, h.Object, h.Format))
	}
	if int64(I(h.NumRows)) != h.NumRows || int64(I(h.NumColumns)) != h.NumColumns {
		return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: %dx%d matrix does not fit in %T indices",
			spmv.ErrInvalidConfiguration, h.NumRows, h.NumColumns, I(0)))
	}
	m, err := spmv.NewCOO(I(h.NumRows), I(h.NumColumns), h.NumNonzeros, h.Symmetry)
	if err != nil {
		return nil, err
	}
	for k := range h.NumNonzeros {
		line, err := s.ReadLine()
		if err != nil {
			return nil, errorAt(s, s.LinesRead()+1, err)
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: entry %q", ErrFormat, line))
		}
		i, err := parseIndex[I](fields[0])
		if err != nil {
			return nil, errorAt(s, s.LinesRead(), err)
		}
		j, err := parseIndex[I](fields[1])
		if err != nil {
			return nil, errorAt(s, s.LinesRead(), err)
		}
		a, err := parseValue(h.Field, fields[2:])
		if err != nil {
			return nil, errorAt(s, s.LinesRead(), err)
		}
		if i < 1 || i > m.NumRows || j < 1 || j > m.NumColumns {
			return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: (%d,%d) in a %dx%d matrix",
				spmv.ErrInvalidRowIndex, i, j, m.NumRows, m.NumColumns))
		}
		m.RowIdx[k], m.ColIdx[k], m.Values[k] = i, j, a
	}
	return m, nil
}

// ReadVector reads the values of an array vector whose header was read
// with ReadHeader. The vector must have exactly n entries.
func ReadVector(s Stream, h Header, n int) ([]float64, error) {
	if h.Object != Vector || h.Format != Array {
		return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: expected an array vector, got %s %s", ErrUnsupported, h.Object, h.Format))
	}
	if h.Field == Pattern {
		return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: pattern vector", ErrUnsupported))
	}
	if h.NumRows != int64(n) {
		return nil, errorAt(s, s.LinesRead(), fmt.Errorf("%w: vector has %d entries, expected %d",
			spmv.ErrDimensionMismatch, h.NumRows, n))
	}
	x := make([]float64, n)
	for i := range x {
		line, err := s.ReadLine()
		if err != nil {
			return nil, errorAt(s, s.LinesRead()+1, err)
		}
		if x[i], err = parseValue(h.Field, strings.Fields(line)); err != nil {
			return nil, errorAt(s, s.LinesRead(), err)
		}
	}
	return x, nil
}

// WriteVector writes y as a real array vector with 15 significant digits.
func WriteVector(w io.Writer, y []float64) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := fmt.Fprintf(bw, "%s vector array real general\n%d\n", banner, len(y)); err != nil {
		return err
	}
	var buf []byte
	for _, v := range y {
		buf = strconv.AppendFloat(buf[:0], v, 'g', 15, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
