/*
 * Copyright 2026 uringmerge Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package source implements the per-file line extractor described in
// spec.md §4.2: a fixed byte buffer tracking {start, end, length,
// capacity}, from which complete lines are peeled off one at a time.
//
// A Source can either own its file (Open + Refill, used by this package's
// tests) or have its buffer filled from elsewhere (New + SwapBuffer, used
// by the merge driver with either reader backend, which owns the file
// handles and the half-slot buffers and only hands Source the resulting
// byte ranges).
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// Source tracks one input file's line-extraction state. The invariant
// 0 <= start <= end <= length <= capacity holds at every observable
// moment.
type Source struct {
	path string
	file *os.File // nil when the fd is owned externally (io_uring registered fd)

	buf      []byte
	capacity int
	length   int
	start    int
	end      int

	// finalUnterminated is set by Refill once EOF is reached with a
	// residual, newline-less tail: that tail is the file's last line and
	// must be emitted followed by a synthesized newline. SwapBuffer sets
	// it provisionally whenever its half-slot holds no newline.
	finalUnterminated bool
}

// Open allocates a capacity-byte buffer and opens path read-only, per
// spec.md §4.2 create(path, capacity). The Source owns the file handle;
// Destroy closes it.
func Open(path string, capacity int) (*Source, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	return &Source{
		path:     path,
		file:     f,
		buf:      make([]byte, capacity),
		capacity: capacity,
	}, nil
}

// New creates a Source for path with no buffer and no open file handle.
// It is used by the merge driver, whose reader performs the open and
// buffer management itself; the Source is then driven purely through
// SwapBuffer.
func New(path string, capacity int) *Source {
	return &Source{path: path, capacity: capacity}
}

// Path returns the source's file path, exactly as supplied to Open/New.
func (s *Source) Path() string {
	return s.path
}

// Destroy releases the Source's resources. If the Source owns a file
// handle (opened via Open), it is closed; close errors are logged to the
// given logger (or log.Default() if nil) and otherwise ignored, per
// spec.md §4.2 and the CloseFailure classification in §7.
func (s *Source) Destroy(logger *log.Logger) {
	if s.file == nil {
		return
	}
	if err := s.file.Close(); err != nil {
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("source: close %s: %v", s.path, err)
	}
	s.file = nil
}

// CurrentLine returns the byte range [start, end) — the most recently
// advanced-to line, still borrowed from the Source's buffer. The caller
// must stop referencing it once Advance, Refill, or SwapBuffer is called
// again.
func (s *Source) CurrentLine() []byte {
	return s.buf[s.start:s.end]
}

// Advance moves start to end and looks for the next complete line in the
// buffered tail [end, length). If one is found, end is set one past the
// newline and Advance returns true. Otherwise the tail is an incomplete
// line that a refill must complete, and Advance returns false leaving end
// at length.
func (s *Source) Advance() bool {
	s.start = s.end
	if nl := bytes.IndexByte(s.buf[s.start:s.length], '\n'); nl >= 0 {
		s.end = s.start + nl + 1
		return true
	}
	s.end = s.length
	return false
}

// HasTruncatedFinalLine reports whether the current line is the file's
// last, and it lacked a trailing newline in the underlying file.
func (s *Source) HasTruncatedFinalLine() bool {
	return s.finalUnterminated
}

// Discard marks [start, length) as consumed without looking for a
// newline in it, moving start and end both to length. The merge driver
// calls this after staging whatever CurrentLine held — a fragment of an
// over-long line that a single buffer couldn't complete — right before
// asking for more bytes, so neither backend's next fill has to carry the
// fragment forward itself.
func (s *Source) Discard() {
	s.start = s.length
	s.end = s.length
}

// Refill compacts the unfinished tail [start, end) to offset 0, issues a
// blocking read into [end, capacity), and rescans for a newline, per
// spec.md §4.2. It requires a Source opened with Open (s.file != nil).
//
// Refill returns (false, nil) on true end-of-file with no residual bytes.
// Otherwise it returns (true, nil) with CurrentLine giving a (possibly
// still incomplete, if the read again found no newline) line; the caller
// must call Refill again in that case.
func (s *Source) Refill() (bool, error) {
	if s.file == nil {
		return false, fmt.Errorf("source: %s: refill requires an owned file handle", s.path)
	}
	residual := s.end - s.start
	copy(s.buf[0:residual], s.buf[s.start:s.end])
	s.start = 0
	s.end = residual

	n, err := s.file.Read(s.buf[s.end:s.capacity])
	if err != nil && n == 0 {
		if isEOF(err) {
			s.length = s.end
			if s.length == 0 {
				return false, nil
			}
			s.finalUnterminated = true
			return true, nil
		}
		return false, fmt.Errorf("source: %s: read: %w", s.path, err)
	}
	s.length = s.end + n

	if nl := bytes.IndexByte(s.buf[s.end:s.length], '\n'); nl >= 0 {
		s.end = s.end + nl + 1
		s.finalUnterminated = false
	} else {
		s.end = s.length
		s.finalUnterminated = n == 0
	}
	return true, nil
}

// SwapBuffer installs an externally-filled buffer as the Source's current
// buffer, with n valid bytes starting at offset 0. The merge driver calls
// it after the reader delivers a freshly filled half-slot: unlike Refill, no tail is carried over physically
// (the caller must have already flushed any pending partial line, per
// the merge driver's discipline in spec.md §4.6), because the old and
// new half-slots are not contiguous memory.
//
// If n == 0, the file is at EOF and SwapBuffer returns false.
func (s *Source) SwapBuffer(buf []byte, n int) bool {
	s.buf = buf
	s.capacity = len(buf)
	s.start = 0
	s.length = n
	if n == 0 {
		s.end = 0
		return false
	}
	if nl := bytes.IndexByte(buf[:n], '\n'); nl >= 0 {
		s.end = nl + 1
		s.finalUnterminated = false
	} else {
		s.end = n
		// Provisional: true unless a later SwapBuffer call finds a
		// newline continuing this same line, or this source is
		// destroyed first because nothing more follows.
		s.finalUnterminated = true
	}
	return true
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
