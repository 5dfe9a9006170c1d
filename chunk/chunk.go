// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package chunk implements the chunk codec of a random stream.
//
// A stream is cut into fixed-size windows. The last TrailerSize bytes of each
// window hold the little-endian CRC32 of the bytes preceding them in the
// window, so each chunk can be validated on its own. A window too short to
// hold a trailer (only possible for the last chunk of a stream) is all zero.
package chunk

import (
	"encoding/binary"

	"github.com/xcp-ng/randstream/checksum"
	"github.com/xcp-ng/randstream/prng"
)

// TrailerSize is the size of the checksum trailer at the end of each chunk.
const TrailerSize = 4

// Source fills buffers with deterministic data.
//
// It is satisfied by *prng.PCG.
type Source interface {
	Fill(buf []byte)
}

// PaddedSize is the buffer size needed to encode chunks of chunkSize bytes.
//
// Chunk generation always draws whole generator words, so the number of words
// consumed per chunk is PaddedSize(chunkSize) / prng.WordSize.
func PaddedSize(chunkSize int) int { return prng.PadToWord(chunkSize) }

// Encode generates a chunk of size bytes into buf and returns it, along with
// the checksum state of the whole chunk (payload and trailer).
//
// buf must be at least PaddedSize(size) bytes long. If size is at least
// TrailerSize, PaddedSize(size) bytes are drawn from src and the trailer is
// written over the end of the chunk. Otherwise the chunk is zeroed and nothing
// is drawn from src.
func Encode(src Source, buf []byte, size int) ([]byte, checksum.State) {
	c := buf[:size]
	if size < TrailerSize {
		for i := range c {
			c[i] = 0
		}
		return c, checksum.Of(c)
	}

	src.Fill(buf[:PaddedSize(size)])

	n := size - TrailerSize
	sum := checksum.Of(c[:n])
	binary.LittleEndian.PutUint32(c[n:], sum.Sum32())
	_, _ = sum.Write(c[n:])
	return c, sum
}

// Decode validates chunk, the index'th chunk of a stream, and returns the
// checksum state of all of its bytes.
//
// A trailer mismatch returns a *ChecksumMismatchError. A short chunk holding a
// nonzero byte returns an *InvalidTrailingBytesError.
func Decode(index uint64, c []byte) (checksum.State, error) {
	if len(c) < TrailerSize {
		for _, b := range c {
			if b != 0 {
				return checksum.State{}, &InvalidTrailingBytesError{
					Chunk: index,
					Bytes: append([]byte(nil), c...),
				}
			}
		}
		return checksum.Of(c), nil
	}

	n := len(c) - TrailerSize
	sum := checksum.Of(c[:n])
	if stored := binary.LittleEndian.Uint32(c[n:]); stored != sum.Sum32() {
		return checksum.State{}, &ChecksumMismatchError{
			Chunk:    index,
			Expected: stored,
			Actual:   sum.Sum32(),
		}
	}
	_, _ = sum.Write(c[n:])
	return sum, nil
}
