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

package iouring

import (
	"fmt"
	"unsafe"
)

// RegisterRestrictions installs the given allow-list restrictions. Must be
// called before EnableRings, on a ring created with IORING_SETUP_R_DISABLED
// (spec.md §4.3 step 3).
func (ring *IoUring) RegisterRestrictions(restrictions []IoUringRestriction) error {
	if len(restrictions) == 0 {
		return nil
	}
	errno := Register(ring.fd, IORING_REGISTER_RESTRICTIONS,
		unsafe.Pointer(&restrictions[0]), uint32(len(restrictions)))
	if errno != 0 {
		return fmt.Errorf("io_uring_register(RESTRICTIONS): %w", errno)
	}
	return nil
}

// RegisterSparseFiles registers n file-descriptor slots, all initially
// empty (SparseFileSlot), per spec.md §4.3 step 4. Individual slots are
// filled in-place by linked openat submissions that target them directly.
func (ring *IoUring) RegisterSparseFiles(n int) error {
	slots := make([]int32, n)
	for i := range slots {
		slots[i] = SparseFileSlot
	}
	errno := Register(ring.fd, IORING_REGISTER_FILES, unsafe.Pointer(&slots[0]), uint32(n))
	if errno != 0 {
		return fmt.Errorf("io_uring_register(FILES, sparse x%d): %w", n, errno)
	}
	return nil
}

// RegisterBuffer registers a single contiguous buffer region as buffer
// index 0, per spec.md §4.3 step 5. All READ_FIXED submissions reference
// this one registered buffer with an offset and length into it.
func (ring *IoUring) RegisterBuffer(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("iouring: cannot register an empty buffer")
	}
	iov := Iovec{}
	iov.Set(buf)
	errno := Register(ring.fd, IORING_REGISTER_BUFFERS, unsafe.Pointer(&iov), 1)
	if errno != 0 {
		return fmt.Errorf("io_uring_register(BUFFERS): %w", errno)
	}
	return nil
}

// EnableRings enables a ring created with IORING_SETUP_R_DISABLED, per
// spec.md §4.3 step 6. No submission is processed before this call
// succeeds.
func (ring *IoUring) EnableRings() error {
	errno := Register(ring.fd, IORING_REGISTER_ENABLE_RINGS, nil, 0)
	if errno != 0 {
		return fmt.Errorf("io_uring_register(ENABLE_RINGS): %w", errno)
	}
	return nil
}
