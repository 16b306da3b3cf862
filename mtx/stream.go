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

package mtx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Stream is a line-oriented source of Matrix Market text.
type Stream interface {
	io.Reader

	// ReadLine returns the next line without its line terminator.
	// At the end of the input it returns io.EOF. A final line without a
	// terminator is returned with a nil error.
	ReadLine() (string, error)

	// Name identifies the stream in error messages, usually a path.
	Name() string

	// LinesRead is the number of lines returned by ReadLine so far.
	LinesRead() int64

	// BytesRead is the number of bytes consumed so far.
	BytesRead() int64

	Close() error
}

// lineReader implements the accounting shared by all streams.
type lineReader struct {
	name  string
	r     *bufio.Reader
	lines int64
	bytes int64
}

func (l *lineReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.bytes += int64(n)
	return n, err
}

func (l *lineReader) ReadLine() (string, error) {
	s, err := l.r.ReadString('\n')
	l.bytes += int64(len(s))
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	l.lines++
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func (l *lineReader) Name() string     { return l.name }
func (l *lineReader) LinesRead() int64 { return l.lines }
func (l *lineReader) BytesRead() int64 { return l.bytes }

// PlainStream reads uncompressed text.
type PlainStream struct {
	lineReader
	c io.Closer
}

// NewPlainStream reads from r. If r is an io.Closer, Close closes it.
func NewPlainStream(name string, r io.Reader) *PlainStream {
	s := &PlainStream{lineReader: lineReader{name: name, r: bufio.NewReaderSize(r, 1<<16)}}
	s.c, _ = r.(io.Closer)
	return s
}

// Close closes the underlying reader.
func (s *PlainStream) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// CompressedStream reads gzip-compressed text.
type CompressedStream struct {
	lineReader
	z *gzip.Reader
	c io.Closer
}

// NewCompressedStream reads the gzip stream r. It fails if r does not
// start with a gzip header.
func NewCompressedStream(name string, r io.Reader) (*CompressedStream, error) {
	z, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s := &CompressedStream{
		lineReader: lineReader{name: name, r: bufio.NewReaderSize(z, 1<<16)},
		z:          z,
	}
	s.c, _ = r.(io.Closer)
	return s, nil
}

// Close closes the decompressor and the underlying reader.
func (s *CompressedStream) Close() error {
	err := s.z.Close()
	if s.c != nil {
		err = errors.Join(err, s.c.Close())
	}
	return err
}

// Open opens the file at path, decompressing it with gzip if compressed
// is set. The path "-" reads standard input.
func Open(path string, compressed bool) (Stream, error) {
	var r io.Reader
	if path == "-" {
		r = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	if !compressed {
		return NewPlainStream(path, r), nil
	}
	s, err := NewCompressedStream(path, r)
	if err != nil {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return s, nil
}
