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

package reader

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cloudwego/uringmerge/cache/mempool"
	"github.com/cloudwego/uringmerge/internal/uringerr"
)

// SyncReader is the platform fallback named in spec.md §6: a plain
// blocking os.File.Read per RequestRead, grounded on the !linux stub
// in internal/iouring/syscall_other.go (ENOSYS) extended into a real
// implementation rather than left as a dead stub. It keeps the same
// two-half-slot addressing as the io_uring backend so the merge driver
// drives both identically, even though nothing here is actually
// asynchronous: Poll just returns the result RequestRead already
// computed.
type SyncReader struct {
	files   []string
	bufSize int
	logger  *log.Logger

	handles []*os.File
	bufs    [][2][]byte
	lens    [][2]int

	ready *list.List // queue of pollResult, FIFO
}

type pollResult struct {
	source int
	err    error
}

func newSyncReader(opts Options) *SyncReader {
	n := len(opts.Files)
	r := &SyncReader{
		files:   opts.Files,
		bufSize: opts.BufferSize,
		logger:  opts.Logger,
		handles: make([]*os.File, n),
		bufs:    make([][2][]byte, n),
		lens:    make([][2]int, n),
		ready:   list.New(),
	}
	for i := range r.bufs {
		r.bufs[i][0] = mempool.Malloc(opts.BufferSize)
		r.bufs[i][1] = mempool.Malloc(opts.BufferSize)
	}
	return r
}

// Open opens every file and performs the first blocking read (into half
// 0) for each, queuing the results for Poll in file order.
func (r *SyncReader) Open(ctx context.Context) error {
	for i, path := range r.files {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return fmt.Errorf("%w: open %s: %v", uringerr.ErrOpenFailure, path, err)
		}
		r.handles[i] = f
	}
	for i := range r.files {
		if err := r.RequestRead(i, 0); err != nil {
			return err
		}
	}
	return nil
}

// RequestRead performs the read immediately (there is nothing to
// pipeline) and queues its outcome for the next Poll call.
func (r *SyncReader) RequestRead(source int, half int) error {
	f := r.handles[source]
	if f == nil {
		r.ready.PushBack(pollResult{source: source, err: nil})
		return nil
	}
	n, err := f.Read(r.bufs[source][half])
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		wrapped := fmt.Errorf("%w: read %s: %v", uringerr.ErrIOFailure, r.files[source], err)
		r.ready.PushBack(pollResult{source: source, err: wrapped})
		return nil
	}
	r.lens[source][half] = n
	r.ready.PushBack(pollResult{source: source, err: nil})
	return nil
}

// Poll drains the queue RequestRead populates; every call it's ever
// going to make has already run synchronously, so this never blocks.
func (r *SyncReader) Poll() (int, error, bool) {
	front := r.ready.Front()
	if front == nil {
		return 0, nil, false
	}
	r.ready.Remove(front)
	res := front.Value.(pollResult)
	return res.source, res.err, true
}

// BufferSlice returns the bytes from the most recent read into
// (source, half).
func (r *SyncReader) BufferSlice(source int, half int) []byte {
	return r.bufs[source][half][:r.lens[source][half]]
}

// Close closes every opened file, logging (not returning) any error per
// spec.md §7's CloseFailure classification, and returns every half-slot
// buffer to the pool it came from.
func (r *SyncReader) Close() error {
	for i, f := range r.handles {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			r.logger.Printf("reader: close %s: %v", r.files[i], err)
		}
		r.handles[i] = nil
	}
	for i := range r.bufs {
		mempool.Free(r.bufs[i][0])
		mempool.Free(r.bufs[i][1])
	}
	return nil
}
