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

//go:build linux

package reader

import (
	"container/list"
	"context"
	"fmt"
	"log"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cloudwego/uringmerge/cache/mempool"
	"github.com/cloudwego/uringmerge/internal/iouring"
	"github.com/cloudwego/uringmerge/internal/uringerr"
)

// UringReader is the io_uring-backed Reader of spec.md §4.3–§4.5: a
// single ring with N registered sparse file slots (one per source) and
// one registered buffer region holding two bufSize half-slots per
// source, back to back. Opening a source is a linked
// openat(IOSQE_IO_LINK)+read_fixed pair targeting that source's
// registered slot and first half; later RequestRead calls submit a
// plain read_fixed into whichever half the caller asks for.
//
// There is exactly one thread of control here: ring cursor updates use
// the atomic load/add already built into internal/iouring, and no
// goroutine is spawned to drive completions — Poll blocks the caller's
// own goroutine on io_uring_enter, per spec.md §5.
type UringReader struct {
	ring    *iouring.IoUring
	files   []string
	bufSize int
	logger  *log.Logger

	region []byte // 2 * len(files) * bufSize, registered as buffer index 0

	opened   []bool
	pathBufs []*byte // keeps each openat's path pointer alive until its CQE

	lens [][2]int // last known byte count per (source, half)

	outstanding int
	queue       *list.List // buffered pollResult, for completions drained ahead of need
}

func newUringReader(opts Options) (*UringReader, error) {
	n := len(opts.Files)
	ring, err := iouring.NewIoUringWithParams(uint32(4*n+8), iouring.IoUringParams{
		Flags:     iouring.IORING_SETUP_R_DISABLED | iouring.IORING_SETUP_CQSIZE,
		CqEntries: uint32(8 * n),
	})
	if err != nil {
		return nil, err
	}

	r := &UringReader{
		ring:     ring,
		files:    opts.Files,
		bufSize:  opts.BufferSize,
		logger:   opts.Logger,
		region:   mempool.Malloc(2 * n * opts.BufferSize),
		opened:   make([]bool, n),
		pathBufs: make([]*byte, n),
		lens:     make([][2]int, n),
		queue:    list.New(),
	}

	if err := ring.RegisterRestrictions([]iouring.IoUringRestriction{
		iouring.RestrictRegisterOp(iouring.IORING_REGISTER_FILES),
		iouring.RestrictRegisterOp(iouring.IORING_REGISTER_BUFFERS),
		iouring.RestrictSQEOp(iouring.IORING_OP_OPENAT),
		iouring.RestrictSQEOp(iouring.IORING_OP_READ_FIXED),
		iouring.RestrictSQEFlagsAllowed(iouring.IOSQE_IO_LINK | iouring.IOSQE_CQE_SKIP_SUCCESS | iouring.IOSQE_FIXED_FILE),
	}); err != nil {
		ring.Close()
		return nil, err
	}
	if err := ring.RegisterSparseFiles(n); err != nil {
		ring.Close()
		return nil, err
	}
	if err := ring.RegisterBuffer(r.region); err != nil {
		ring.Close()
		return nil, err
	}
	if err := ring.EnableRings(); err != nil {
		ring.Close()
		return nil, err
	}
	return r, nil
}

func (r *UringReader) slot(source, half int) []byte {
	off := (2*source + half) * r.bufSize
	return r.region[off : off+r.bufSize]
}

// Open issues the initial openat(linked)+read_fixed pair for every
// source's half 0, per spec.md §4.4's opening submission burst, then
// returns without waiting for any of it to complete.
func (r *UringReader) Open(ctx context.Context) error {
	for i := range r.files {
		if err := r.RequestRead(i, 0); err != nil {
			return err
		}
	}
	return nil
}

// RequestRead submits the read_fixed for (source, half), linking it
// behind an openat the first time this source is touched.
func (r *UringReader) RequestRead(source int, half int) error {
	if !r.opened[source] {
		if err := r.submitOpenat(source); err != nil {
			return err
		}
		r.opened[source] = true
	}
	return r.submitRead(source, half)
}

func (r *UringReader) submitOpenat(source int) error {
	path, err := unix.BytePtrFromString(r.files[source])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", uringerr.ErrOpenFailure, r.files[source], err)
	}
	r.pathBufs[source] = path // must outlive the CQE; kept in the reader, not on the stack

	sqe := r.peekSQE()
	sqe.Opcode = iouring.IORING_OP_OPENAT
	sqe.Flags = iouring.IOSQE_IO_LINK | iouring.IOSQE_CQE_SKIP_SUCCESS
	sqe.Fd = unix.AT_FDCWD
	sqe.Addr = uint64(uintptr(unsafe.Pointer(path)))
	sqe.OpcodeFlags = unix.O_RDONLY
	// Direct (registered) file-slot assignment: slot index is 1-based in
	// the SQE, 0 meaning "let the kernel pick one" (DirectFileIndexAuto).
	sqe.SpliceFdIn = int32(source) + 1
	sqe.UserData = packTag(opOpen, source)
	r.ring.AdvanceSQ()
	return nil
}

func (r *UringReader) submitRead(source int, half int) error {
	sqe := r.peekSQE()
	sqe.Opcode = iouring.IORING_OP_READ_FIXED
	sqe.Flags = iouring.IOSQE_FIXED_FILE
	sqe.Fd = int32(source)
	// -1 offset: read at, and advance, the kernel-tracked file position
	// instead of the explicit per-source bytes_read offset spec.md §3/§4.5
	// describe. Correct here only because each source has at most one
	// outstanding read at a time (see DESIGN.md), so there is never a
	// second in-flight read whose offset this could race with.
	sqe.Off = ^uint64(0)
	buf := r.slot(source, half)
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	sqe.Len = uint32(len(buf))
	sqe.BufIndex = 0
	sqe.UserData = packTag(readOp(half), source)
	r.ring.AdvanceSQ()
	r.outstanding++
	if _, errno := r.ring.Submit(); errno != 0 {
		return fmt.Errorf("%w: io_uring_enter: %v", uringerr.ErrIOFailure, errno)
	}
	return nil
}

func (r *UringReader) peekSQE() *iouring.IoUringSQE {
	sqe := r.ring.PeekSQE(true)
	if sqe != nil {
		return sqe
	}
	r.ring.Submit()
	return r.ring.PeekSQE(true)
}

// Poll returns the next completed read, draining the ring's completion
// queue one CQE at a time and translating link-cancellation into the
// open failure that caused it, per spec.md §7's LinkCanceled handling
// (logged, not propagated as its own error).
func (r *UringReader) Poll() (int, error, bool) {
	if front := r.queue.Front(); front != nil {
		r.queue.Remove(front)
		res := front.Value.(pollResult)
		return res.source, res.err, true
	}
	if r.outstanding <= 0 {
		return 0, nil, false
	}

	cqe, err := r.ring.WaitCQE()
	if err != nil {
		r.outstanding--
		return 0, fmt.Errorf("%w: io_uring wait: %v", uringerr.ErrIOFailure, err), true
	}
	res := r.classify(cqe)
	r.ring.AdvanceCQ()
	r.outstanding--

	// Drain whatever else is already sitting in the CQ without another
	// enter syscall, so a burst of completions doesn't trickle out one
	// blocking wait at a time.
	for {
		next := r.ring.PeekCQE()
		if next == nil {
			break
		}
		r.queue.PushBack(r.classify(next))
		r.ring.AdvanceCQ()
		r.outstanding--
	}

	return res.source, res.err, true
}

func (r *UringReader) classify(cqe *iouring.IoUringCQE) pollResult {
	op, source := unpackTag(cqe.UserData)
	switch op {
	case opOpen:
		// Only reaches here on failure: success is suppressed by
		// IOSQE_CQE_SKIP_SUCCESS.
		return pollResult{source: source, err: fmt.Errorf("%w: open %s: errno %d", uringerr.ErrOpenFailure, r.files[source], -cqe.Res)}
	default:
		half := halfOf(op)
		if cqe.Res == -int32(unix.ECANCELED) {
			// The linked openat ahead of this read failed; that failure
			// already produced its own CQE classified above.
			r.logger.Printf("reader: read for %s canceled by a failed open", r.files[source])
			return pollResult{source: source, err: fmt.Errorf("%w: %s", uringerr.ErrOpenFailure, r.files[source])}
		}
		if cqe.Res < 0 {
			return pollResult{source: source, err: fmt.Errorf("%w: read %s: errno %d", uringerr.ErrIOFailure, r.files[source], -cqe.Res)}
		}
		r.lens[source][half] = int(cqe.Res)
		return pollResult{source: source}
	}
}

// BufferSlice returns the bytes from the most recently completed read
// into (source, half).
func (r *UringReader) BufferSlice(source int, half int) []byte {
	return r.slot(source, half)[:r.lens[source][half]]
}

// Close tears the ring down, releasing the registered buffer and file
// slots along with it, and returns the region to the pool it came from.
func (r *UringReader) Close() error {
	err := r.ring.Close()
	mempool.Free(r.region)
	return err
}
