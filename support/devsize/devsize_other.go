// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

//go:build !linux

package devsize

import (
	"os"
)

func deviceSize(fd *os.File) (uint64, error) { return seekSize(fd) }
