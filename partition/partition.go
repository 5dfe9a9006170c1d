// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package partition describes the chunk layout of a stream and splits it into
// contiguous, non-overlapping chunk ranges, one per worker.
package partition

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrZeroChunkSize is returned when a layout has a zero chunk size.
	ErrZeroChunkSize = errors.New("chunk size must be greater than 0")

	// ErrNoWorkers is returned when a stream is split across zero workers.
	ErrNoWorkers = errors.New("number of jobs must be greater than 0")
)

// MisalignedPositionError is returned when a stream position is not on a chunk
// boundary.
type MisalignedPositionError struct {
	Position  uint64
	ChunkSize uint64
}

func (e *MisalignedPositionError) Error() string {
	return fmt.Sprintf("the start position %d is not a multiple of the chunk size %d", e.Position, e.ChunkSize)
}

// Layout is the chunking of a stream region.
//
// Chunk indices are absolute: chunk c covers stream bytes
// [c*ChunkSize, (c+1)*ChunkSize), clamped to the end of the region.
type Layout struct {
	// ChunkSize is the size of every chunk but possibly the last one.
	ChunkSize uint64
	// Start is the stream position of the region. It must be a multiple of
	// ChunkSize.
	Start uint64
	// Length is the number of bytes in the region.
	Length uint64
}

// Validate checks that the layout is usable.
func (l *Layout) Validate() error {
	if l.ChunkSize == 0 {
		return ErrZeroChunkSize
	}
	if l.Start%l.ChunkSize != 0 {
		return &MisalignedPositionError{Position: l.Start, ChunkSize: l.ChunkSize}
	}
	return nil
}

// NumChunks is the number of chunks in the region.
func (l *Layout) NumChunks() uint64 {
	return (l.Length + l.ChunkSize - 1) / l.ChunkSize
}

// FirstChunk is the absolute index of the first chunk in the region.
func (l *Layout) FirstChunk() uint64 { return l.Start / l.ChunkSize }

// End is the stream position just past the region.
func (l *Layout) End() uint64 { return l.Start + l.Length }

// Offset is the stream position of chunk c.
func (l *Layout) Offset(c uint64) uint64 { return c * l.ChunkSize }

// ChunkLen is the length of chunk c, which is ChunkSize for every chunk but
// the last one. Chunks outside of the region have a length of 0.
func (l *Layout) ChunkLen(c uint64) int {
	off, end := l.Offset(c), l.End()
	switch {
	case off >= end:
		return 0
	case end-off < l.ChunkSize:
		return int(end - off)
	default:
		return int(l.ChunkSize)
	}
}

// Range is a contiguous range of absolute chunk indices [First, End) owned by
// a single worker.
type Range struct {
	// Worker is the index of the worker owning the range.
	Worker int
	First  uint64
	End    uint64
}

// Len is the number of chunks in the range.
func (r Range) Len() uint64 { return r.End - r.First }

// Empty returns true if the range holds no chunk.
func (r Range) Empty() bool { return r.End <= r.First }

func (r Range) String() string {
	return fmt.Sprintf("worker %d [%d, %d)", r.Worker, r.First, r.End)
}

// Split divides the chunks of l across workers.
//
// Each worker receives ceil(NumChunks/workers) chunks, except for the last
// non-empty one. Split always returns exactly workers ranges, in worker order;
// trailing ranges are empty when there are fewer chunks than workers.
func Split(l Layout, workers int) ([]Range, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		return nil, ErrNoWorkers
	}

	numChunks := l.NumChunks()
	perWorker := (numChunks + uint64(workers) - 1) / uint64(workers)
	base := l.FirstChunk()

	ranges := make([]Range, workers)
	for i := range ranges {
		first := clamp(uint64(i)*perWorker, numChunks)
		end := clamp(uint64(i+1)*perWorker, numChunks)
		ranges[i] = Range{
			Worker: i,
			First:  base + first,
			End:    base + end,
		}
	}
	return ranges, nil
}

func clamp(v, max uint64) uint64 {
	if v > max {
		return max
	}
	return v
}
