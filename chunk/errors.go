// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package chunk

import (
	"fmt"

	"github.com/xcp-ng/randstream/support/fmtutil"

	"github.com/pkg/errors"
)

// ChecksumMismatchError is returned when a chunk's trailer does not match the
// checksum of its payload.
type ChecksumMismatchError struct {
	// Chunk is the index of the chunk in the stream.
	Chunk uint64
	// Expected is the checksum stored in the trailer.
	Expected uint32
	// Actual is the checksum computed over the payload.
	Actual uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("invalid checksum at chunk %d: expected %s, found %s",
		e.Chunk, fmtutil.Checksum(e.Expected), fmtutil.Checksum(e.Actual))
}

// InvalidTrailingBytesError is returned when a chunk too short to carry a
// trailer holds a nonzero byte.
type InvalidTrailingBytesError struct {
	// Chunk is the index of the chunk in the stream.
	Chunk uint64
	// Bytes is a copy of the offending chunk.
	Bytes []byte
}

func (e *InvalidTrailingBytesError) Error() string {
	return fmt.Sprintf("invalid non-zero value at the end of the stream (chunk %d): %s",
		e.Chunk, fmtutil.HexSlice(e.Bytes))
}

// IsCorruption returns true if err, or its cause, reports corrupted chunk data.
func IsCorruption(err error) bool {
	switch errors.Cause(err).(type) {
	case *ChecksumMismatchError, *InvalidTrailingBytesError:
		return true
	default:
		return false
	}
}
