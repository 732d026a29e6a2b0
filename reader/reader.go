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

// Package reader drives the double-buffered, per-file read pipeline that
// feeds source.Source: an io_uring-backed implementation on Linux, and a
// synchronous fallback everywhere else (or when io_uring_setup fails
// with ENOSYS, EPERM or EACCES). Both honor the same Reader contract, so
// the merge driver never branches on which one it was handed.
package reader

import (
	"context"
	"log"
)

// Reader opens every input file and streams bytes into half-slots that
// source.Source installs with SwapBuffer.
//
// Open opens all files and, for every source, issues the first read
// (into half 0). The io_uring backend returns once that initial batch
// is submitted; SyncReader performs the reads before returning. Either
// way the caller drains those results with Poll, exactly like any later
// RequestRead.
//
// RequestRead asks for source's next half-slot of bytes (half is 0 or
// 1, ping-ponging every call for a given source). At most one read per
// source is ever outstanding; the caller must not call RequestRead
// again for the same source until Poll has reported that source's
// previous request complete.
//
// Poll blocks, if necessary, until the next requested read completes,
// and returns which source it was for. ok is false only when no reads
// are outstanding anywhere — further waiting could never produce
// anything, so the caller must request more reads or stop.
//
// BufferSlice returns the bytes delivered by the most recently completed
// read for (source, half); its length is the number of bytes actually
// read (0 at end of file).
type Reader interface {
	Open(ctx context.Context) error
	Poll() (source int, err error, ok bool)
	RequestRead(source int, half int) error
	BufferSlice(source int, half int) []byte
	Close() error
}

// Options bundles the construction arguments shared by both backends.
type Options struct {
	Files      []string
	BufferSize int
	Logger     *log.Logger
}

// New constructs the best Reader for the running kernel: an io_uring
// backend on Linux, falling back transparently to SyncReader when
// io_uring_setup reports ENOSYS, EPERM or EACCES (old kernel, seccomp
// filter, container sandboxing) or the platform isn't Linux at all. Per spec.md §6 the
// two backends are required to produce byte-identical observable
// output, so callers never need to know which one they got.
func New(opts Options) (Reader, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return newPlatformReader(opts)
}

// NewSync always constructs the synchronous fallback, bypassing the
// io_uring backend even on Linux. It exists for tests and diagnostics
// that need deterministic, sandbox-independent behavior — spec.md §6
// requires the two backends to be observably identical, so exercising
// this one stands in for both wherever a test isn't specifically about
// io_uring plumbing itself.
func NewSync(opts Options) Reader {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return newSyncReader(opts)
}
