// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package dataio contains I/O helpers.
package dataio

import (
	"io"
)

// ReadFull reads from r until buf is full, or until the end of the stream is
// reached. It returns the number of bytes read.
//
// Unlike io.ReadFull, hitting the end of the stream is not an error: a short
// count with a nil error means r is exhausted. A zero count with a nil error
// means r was already exhausted.
func ReadFull(r io.Reader, buf []byte) (int, error) {
	// Read until we fill our buffer or encounter an error.
	total := 0
	for remaining := buf; len(remaining) > 0; {
		amt, err := r.Read(remaining)
		remaining = remaining[amt:]
		total += amt
		if err != nil {
			if err == io.EOF {
				// Finished read and returned EOF.
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}
