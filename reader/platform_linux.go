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
	"errors"
	"syscall"
)

// newPlatformReader tries the io_uring backend first and falls back to
// SyncReader when the kernel or its sandbox refuses io_uring_setup
// outright: ENOSYS on an old kernel, or EPERM/EACCES from a seccomp
// filter or container runtime that blocks the syscall class entirely
// (spec.md §7's RingUnavailable, handled locally by falling back, never
// surfaced as an error). Any other failure (e.g. ENOMEM) is a real error
// and is returned as such.
func newPlatformReader(opts Options) (Reader, error) {
	r, err := newUringReader(opts)
	if err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
			opts.Logger.Printf("reader: io_uring unavailable (%v); falling back to synchronous reads", err)
			return newSyncReader(opts), nil
		}
		return nil, err
	}
	return r, nil
}
