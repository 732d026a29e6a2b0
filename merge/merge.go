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

// Package merge implements the driver of spec.md §4.6: pop the heap's
// minimum, emit a group header on source change, emit the line, and
// refill that source for its next candidate.
package merge

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/uringmerge/bufiox"
	"github.com/cloudwego/uringmerge/heap"
	"github.com/cloudwego/uringmerge/internal/uringerr"
	"github.com/cloudwego/uringmerge/reader"
	"github.com/cloudwego/uringmerge/source"
)

// DefaultBufferSize is the per-source half-slot size used when
// Options.BufferSize is zero or negative.
const DefaultBufferSize = 64 * 1024

// Options configures a merge run.
type Options struct {
	Files      []string
	BufferSize int
	Logger     *log.Logger
}

// Run performs the full k-way merge described in spec.md §1–§4.6,
// writing the result to w. It is the only exported entry point into the
// core; cmd/uringmerge is a thin flag/exit-code wrapper around it.
func Run(ctx context.Context, w io.Writer, opts Options) error {
	if len(opts.Files) == 0 {
		return fmt.Errorf("%w: at least one input file is required", uringerr.ErrUsage)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	d, err := newDriver(ctx, w, opts)
	if err != nil {
		return err
	}
	defer d.rdr.Close()

	if err := d.initSources(); err != nil {
		return err
	}
	if err := d.run(); err != nil {
		return err
	}
	if err := d.out.Flush(); err != nil {
		return fmt.Errorf("%w: %v", uringerr.ErrIOFailure, err)
	}
	return nil
}

type driver struct {
	ctx    context.Context
	files  []string
	logger *log.Logger

	rdr reader.Reader
	h   *heap.Heap
	src []*source.Source

	curHalf      []int
	completed    []bool
	completedErr []error

	lastEmittedSource int
	out               *bufiox.DefaultWriter
}

// newReader is a seam tests use to force the synchronous fallback so
// merge's end-to-end tests don't depend on io_uring being usable in
// whatever sandbox runs `go test` (see reader.NewSync's doc comment).
var newReader = func(opts reader.Options) (reader.Reader, error) {
	return reader.New(opts)
}

func newDriver(ctx context.Context, w io.Writer, opts Options) (*driver, error) {
	n := len(opts.Files)
	rdr, err := newReader(reader.Options{
		Files:      opts.Files,
		BufferSize: opts.BufferSize,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	h := heap.New(n)
	mem := make([]byte, heap.NeededBytes(n))
	if err := h.SetMemory(mem); err != nil {
		return nil, fmt.Errorf("%w: %v", uringerr.ErrOutOfMemory, err)
	}

	src := make([]*source.Source, n)
	for i, path := range opts.Files {
		src[i] = source.New(path, opts.BufferSize)
	}

	return &driver{
		ctx:               ctx,
		files:             opts.Files,
		logger:            opts.Logger,
		rdr:               rdr,
		h:                 h,
		src:               src,
		curHalf:           make([]int, n),
		completed:         make([]bool, n),
		completedErr:      make([]error, n),
		lastEmittedSource: -1,
		out:               bufiox.NewDefaultWriter(w),
	}, nil
}

// initSources opens every file and pushes the first line of every
// source that has one, per spec.md §4.6's initialisation step.
func (d *driver) initSources() error {
	if err := d.rdr.Open(d.ctx); err != nil {
		return err
	}
	for i := range d.files {
		if err := d.await(i); err != nil {
			return err
		}
		buf := d.rdr.BufferSlice(i, 0)
		if d.src[i].SwapBuffer(buf, len(buf)) {
			if !d.h.Push(d.src[i].CurrentLine(), int32(i)) {
				return fmt.Errorf("%w: initial push for %s", uringerr.ErrCapacityExceeded, d.files[i])
			}
		} else {
			d.destroy(i)
		}
	}
	return nil
}

// await blocks until source i's most recently requested read completes,
// buffering any other source's completion observed along the way so a
// later await for that source returns immediately.
func (d *driver) await(i int) error {
	for !d.completed[i] {
		ready, err, ok := d.rdr.Poll()
		if !ok {
			return fmt.Errorf("%w: no outstanding read could satisfy source %d", uringerr.ErrIOFailure, i)
		}
		d.completed[ready] = true
		d.completedErr[ready] = err
	}
	d.completed[i] = false
	err := d.completedErr[i]
	d.completedErr[i] = nil
	return err
}

func (d *driver) destroy(i int) {
	d.src[i].Destroy(d.logger)
}

// run is the main per-iteration loop of spec.md §4.6. A popped entry is
// "complete" (ends in '\n') except for a line so long it couldn't be read
// in one half-slot, or a final line with no newline: initSources,
// refillNextLine and refillContinuation push those still unterminated,
// so they keep competing on their known prefix (spec.md
// §4.6 step 3's "emit truncated, refill, retry" sub-branch) instead of
// being buffered whole, which would blow the O(files × buffer) bound.
func (d *driver) run() error {
	for !d.h.IsEmpty() {
		v, line := d.h.PopMin()
		idx := int(v)

		if idx != d.lastEmittedSource {
			if d.lastEmittedSource == -1 {
				d.writeString(">>> ")
			} else {
				d.writeString("\n>>> ")
			}
			d.writeString(d.files[idx])
			d.writeString("\n")
			d.lastEmittedSource = idx
		}
		d.out.WriteBinary(line)

		if len(line) > 0 && line[len(line)-1] == '\n' {
			if d.src[idx].Advance() {
				if !d.h.Push(d.src[idx].CurrentLine(), v) {
					return fmt.Errorf("%w: re-push for %s", uringerr.ErrCapacityExceeded, d.files[idx])
				}
				continue
			}

			// Advance found an unterminated tail in the already-buffered
			// half-slot: that tail belongs to the NEXT line, which has not
			// competed in the heap yet, so it must not be emitted here.
			next, ok, err := d.refillNextLine(idx)
			if err != nil {
				return err
			}
			if ok {
				if !d.h.Push(next, v) {
					return fmt.Errorf("%w: refill push for %s", uringerr.ErrCapacityExceeded, d.files[idx])
				}
			}
			continue
		}

		// line was an unterminated fragment that already won the heap
		// (pushed by a prior iteration of this same branch, or by
		// initSources for a first line longer than one half-slot): it has
		// just been emitted, so its buffered bytes are consumed and the
		// next half-slot continues the same line.
		d.src[idx].Discard()
		next, ok, err := d.refillContinuation(idx)
		if err != nil {
			return err
		}
		if ok {
			if !d.h.Push(next, v) {
				return fmt.Errorf("%w: refill push for %s", uringerr.ErrCapacityExceeded, d.files[idx])
			}
		}
	}
	return nil
}

// refillNextLine is called right after a complete line was emitted and
// Advance() found no newline in the rest of the current half-slot: those
// leftover bytes are the start of the next line, sitting in a buffer
// about to be replaced by SwapBuffer, so they are copied out (residual)
// before the swap and recombined with whatever the next half-slot
// brings in. The result — possibly still unterminated, if the next line
// is itself longer than one half-slot, or if the file simply ends
// without a final newline — is returned for the caller to push onto the
// heap; it is never emitted directly here, since it has not yet been
// compared against the other sources' candidates, and a source that
// lacks a trailing newline is not necessarily the next thing due out
// (another source's pending candidate may sort earlier).
func (d *driver) refillNextLine(i int) ([]byte, bool, error) {
	residual := append([]byte(nil), d.src[i].CurrentLine()...)
	d.src[i].Discard()
	if err := d.out.Flush(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", uringerr.ErrIOFailure, err)
	}

	half := d.curHalf[i] ^ 1
	if err := d.rdr.RequestRead(i, half); err != nil {
		return nil, false, err
	}
	if err := d.await(i); err != nil {
		return nil, false, err
	}
	d.curHalf[i] = half

	buf := d.rdr.BufferSlice(i, half)
	if !d.src[i].SwapBuffer(buf, len(buf)) {
		if len(residual) == 0 {
			d.destroy(i)
			return nil, false, nil
		}
		// True EOF with a residual and no newline ever found: this is the
		// file's final, unterminated line. It still has to win a fair heap
		// comparison before it is emitted, so push it rather than writing
		// it now; run() will route it to refillContinuation on its next
		// pop, which synthesizes the trailing newline once the repeat read
		// confirms EOF again.
		return residual, true, nil
	}
	return append(residual, d.src[i].CurrentLine()...), true, nil
}

// refillContinuation requests the next half-slot for a line that is
// already committed to being streamed (it was popped from the heap while
// still unterminated and its bytes so far have just been written). It
// returns the next chunk — complete or not — for the caller to push back
// onto the heap.
func (d *driver) refillContinuation(i int) ([]byte, bool, error) {
	if err := d.out.Flush(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", uringerr.ErrIOFailure, err)
	}

	half := d.curHalf[i] ^ 1
	if err := d.rdr.RequestRead(i, half); err != nil {
		return nil, false, err
	}
	if err := d.await(i); err != nil {
		return nil, false, err
	}
	d.curHalf[i] = half

	buf := d.rdr.BufferSlice(i, half)
	if !d.src[i].SwapBuffer(buf, len(buf)) {
		// Reaching here at all means the fragment just emitted (by run(),
		// right before calling us) had no trailing newline — that is the
		// only way control reaches refillContinuation — so hitting true
		// EOF now always means the file's last line was missing its
		// terminator. d.src[i].HasTruncatedFinalLine() is not used here:
		// it reflects the most recent SwapBuffer's own half-slot, not
		// whatever residual a prior refillNextLine call may have
		// prepended, and would be stale in that case.
		d.writeString("\n")
		d.destroy(i)
		return nil, false, nil
	}
	return d.src[i].CurrentLine(), true, nil
}

func (d *driver) writeString(s string) {
	d.out.WriteBinary([]byte(s))
}
