// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package devsize

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// deviceSize issues BLKGETSIZE64. Character devices, which do not support
// it, fall back to seeking.
func deviceSize(fd *os.File) (uint64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	switch errno {
	case 0:
		return size, nil
	case unix.ENOTTY, unix.EINVAL:
		return seekSize(fd)
	default:
		return 0, errno
	}
}
