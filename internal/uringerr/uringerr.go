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

// Package uringerr holds the sentinel errors for the classification in
// spec.md §7. Callers wrap one of these with fmt.Errorf("...: %w", ...)
// and cmd/uringmerge maps the sentinel to a process exit code with
// errors.Is. LinkCanceled, CloseFailure, and RingUnavailable are not
// represented here: spec.md handles them locally (a log line at the
// point of detection), never as a returned error.
package uringerr

import "errors"

var (
	// ErrUsage marks a malformed invocation: no input files, an
	// unreadable flag value, or an explicitly disallowed argument
	// combination. Exit code 64 (EX_USAGE).
	ErrUsage = errors.New("usage error")

	// ErrOpenFailure marks a named input file that could not be opened
	// (missing, permission denied, not a regular file). Exit code 2.
	ErrOpenFailure = errors.New("open failure")

	// ErrIOFailure marks a read or write that failed after the file was
	// successfully opened. Exit code 74 (EX_IOERR).
	ErrIOFailure = errors.New("i/o failure")

	// ErrOutOfMemory marks an allocation failure for the heap arena or a
	// registered buffer region. Exit code 69 (EX_UNAVAILABLE).
	ErrOutOfMemory = errors.New("out of memory")

	// ErrCapacityExceeded marks an internal invariant violation: a push
	// attempted against a full heap, or more live sources than the heap
	// was sized for. This should never happen in a correctly driven
	// merge; its presence indicates a bug, not bad input. Exit code 70
	// (EX_SOFTWARE).
	ErrCapacityExceeded = errors.New("capacity exceeded")
)
