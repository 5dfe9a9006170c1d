// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package checksum maintains CRC32 (IEEE) state over contiguous byte ranges
// and merges the states of adjacent ranges without re-reading their data.
package checksum

import (
	"hash/crc32"
)

// State is the CRC32 of a contiguous byte range, along with the range length.
//
// The zero value is the state of an empty range, and is the identity element
// of Append.
type State struct {
	crc uint32
	n   uint64
}

// Of returns the State of b.
func Of(b []byte) State {
	return State{crc: crc32.ChecksumIEEE(b), n: uint64(len(b))}
}

// FromSum builds a State from a CRC32 previously computed over n bytes.
func FromSum(crc uint32, n uint64) State { return State{crc: crc, n: n} }

// Write extends the state with p. It never fails.
func (s *State) Write(p []byte) (int, error) {
	s.crc = crc32.Update(s.crc, crc32.IEEETable, p)
	s.n += uint64(len(p))
	return len(p), nil
}

// Sum32 returns the CRC32 of the range.
func (s State) Sum32() uint32 { return s.crc }

// Len returns the number of bytes covered by the state.
func (s State) Len() uint64 { return s.n }

// Append returns the State of s's range immediately followed by next's range.
//
// Append is not commutative: s must describe the bytes preceding next.
func (s State) Append(next State) State {
	return State{
		crc: Combine(s.crc, next.crc, next.n),
		n:   s.n + next.n,
	}
}

// Merge folds states in order. Merge of no states is the empty State.
func Merge(states ...State) State {
	var acc State
	for _, s := range states {
		acc = acc.Append(s)
	}
	return acc
}
