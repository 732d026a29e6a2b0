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
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestrictionStructMatchesKernelABI(t *testing.T) {
	// struct io_uring_restriction is 16 bytes on every architecture the
	// kernel supports it on.
	assert.Equal(t, uintptr(16), unsafe.Sizeof(IoUringRestriction{}))
}

func TestSQEAndCQEStructSizes(t *testing.T) {
	assert.Equal(t, uintptr(64), unsafe.Sizeof(IoUringSQE{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(IoUringCQE{}))
}

func skipUnlessIOUringAvailable(t *testing.T) *IoUring {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("io_uring is only supported on Linux")
	}
	ring, err := NewIoUring(4)
	if err != nil {
		t.Skipf("io_uring unavailable in this sandbox: %v", err)
	}
	return ring
}

func TestNopSubmitAndComplete(t *testing.T) {
	ring := skipUnlessIOUringAvailable(t)
	defer ring.Close()

	sqe := ring.PeekSQE(true)
	require.NotNil(t, sqe)
	sqe.Opcode = IORING_OP_NOP
	sqe.UserData = 0xC0FFEE
	ring.AdvanceSQ()

	n, errno := ring.Submit()
	require.Zero(t, errno)
	require.Equal(t, 1, n)

	cqe, err := ring.WaitCQE()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xC0FFEE), cqe.UserData)
	ring.AdvanceCQ()
}

func TestRegisterRestrictionsAndEnable(t *testing.T) {
	ring, err := NewIoUringWithParams(4, IoUringParams{
		Flags: IORING_SETUP_R_DISABLED,
	})
	if err != nil {
		if runtime.GOOS != "linux" {
			t.Skip("io_uring is only supported on Linux")
		}
		t.Skipf("io_uring unavailable in this sandbox: %v", err)
	}
	defer ring.Close()

	err = ring.RegisterRestrictions([]IoUringRestriction{
		RestrictRegisterOp(IORING_REGISTER_FILES),
		RestrictRegisterOp(IORING_REGISTER_BUFFERS),
		RestrictSQEOp(IORING_OP_OPENAT),
		RestrictSQEOp(IORING_OP_READ_FIXED),
		RestrictSQEFlagsAllowed(IOSQE_IO_LINK | IOSQE_CQE_SKIP_SUCCESS | IOSQE_FIXED_FILE),
	})
	require.NoError(t, err)
	require.NoError(t, ring.EnableRings())
}
