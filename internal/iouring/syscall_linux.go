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

//go:build linux && !(mips64 || mips64le)

package iouring

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Setup initializes io_uring on the common Linux architectures (amd64,
// arm64, 386, arm, ...). golang.org/x/sys/unix carries the per-arch
// syscall numbers that the standard library's syscall package does not
// expose for io_uring, mirroring how syscall_linux_mips.go hard-codes
// them for mips64/mips64le.
func Setup(entries uint32, params *IoUringParams) (int, error) {
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP,
		uintptr(entries),
		uintptr(unsafe.Pointer(params)),
		0)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

// Enter submits queued SQEs and optionally waits for completions.
func Enter(fd int, toSubmit uint32, minComplete uint32, flags uint32, sig unsafe.Pointer) (int, syscall.Errno) {
	r, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
		uintptr(fd),
		uintptr(toSubmit),
		uintptr(minComplete),
		uintptr(flags),
		uintptr(sig),
		0)
	return int(r), errno
}

// Register registers or unregisters resources (files, buffers,
// restrictions, ...) with the given io_uring instance.
func Register(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) syscall.Errno {
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_REGISTER,
		uintptr(fd),
		uintptr(opcode),
		uintptr(arg),
		uintptr(nrArgs),
		0,
		0)
	return errno
}
