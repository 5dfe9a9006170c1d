// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package devsize discovers the length of a stream target, be it a regular
// file or a block or character device.
package devsize

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrUnsupportedFileType is returned for targets that are neither regular
// files nor devices.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Length returns the length of the file or device at path.
//
// Regular files report their metadata size. Devices are opened and queried
// with the host's raw device size call.
func Length(path string) (uint64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	switch mode := st.Mode(); {
	case mode.IsRegular():
		return uint64(st.Size()), nil

	case mode&os.ModeDevice != 0:
		fd, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer func() {
			_ = fd.Close()
		}()

		size, err := deviceSize(fd)
		if err != nil {
			return 0, errors.Wrapf(err, "querying size of device %q", path)
		}
		return size, nil

	default:
		return 0, errors.Wrapf(ErrUnsupportedFileType, "%q", path)
	}
}

// seekSize finds the size of fd by seeking to its end.
func seekSize(fd *os.File) (uint64, error) {
	end, err := fd.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint64(end), nil
}
