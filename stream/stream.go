// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stream generates and validates random streams.
//
// A random stream is a deterministic function of a seed and a chunk size. It
// is cut into chunks (see the chunk package), each carrying the CRC32 of its
// own payload, so that a stream can be validated without knowing its seed,
// and corruption can be located to a chunk.
//
// When the target is a file or a block device, work is split across several
// workers, each owning its own file handle and generator, positioned on its
// own range of chunks. The output is byte-for-byte identical to a sequential
// run. When the target is a pipe, a single worker processes the stream
// sequentially.
package stream

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xcp-ng/randstream/partition"
	"github.com/xcp-ng/randstream/progress"
	"github.com/xcp-ng/randstream/support/fmtutil"
	"github.com/xcp-ng/randstream/support/logging"
	"github.com/xcp-ng/randstream/worker"

	"github.com/pkg/errors"
)

// MaxChunkSize is the largest supported chunk size (1 GiB).
const MaxChunkSize = 1 << 30

var (
	// ErrSizeUndeterminable is returned when no size was supplied and the
	// target does not exist to have its size read.
	ErrSizeUndeterminable = errors.New("size can't be determined, a stream size must be provided")

	// ErrPositionWithoutFile is returned when a start position is requested
	// for a stream without a file.
	ErrPositionWithoutFile = errors.New("a start position requires a file")

	// ErrNoStream is returned when neither a path nor a pipe was supplied.
	ErrNoStream = errors.New("no file or pipe to operate on")
)

// PositionBeyondEndError is returned when generation is asked to resume past
// the end of an existing file without an explicit size.
type PositionBeyondEndError struct {
	Position uint64
	Size     uint64
}

func (e *PositionBeyondEndError) Error() string {
	return fmt.Sprintf("the position %d is greater than the file size %d", e.Position, e.Size)
}

// ExpectedChecksumMismatchError is returned when the checksum of a whole
// stream differs from the one the caller expected.
type ExpectedChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ExpectedChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: it was expected to be %s, but is actually %s",
		fmtutil.Checksum(e.Expected), fmtutil.Checksum(e.Actual))
}

// Options are the settings shared by generation and validation.
type Options struct {
	// ChunkSize is the size of each chunk. It must be greater than 0.
	ChunkSize uint64

	// Size is the stream size. It is only used if SizeKnown is true; otherwise
	// the size is read from the target.
	Size      uint64
	SizeKnown bool

	// Jobs is the number of workers to use on files. It must be greater than 0.
	// Pipes always use a single worker.
	Jobs int

	// Progress, if not nil, receives the number of bytes processed so far.
	Progress progress.Sink

	// Logger is the logger instance to use. If nil, no logs will be generated.
	Logger logging.L
}

// Result describes a completed run.
type Result struct {
	// Bytes is the number of bytes generated or validated.
	Bytes uint64
	// Checksum is the CRC32 of the whole stream.
	Checksum uint32
	// Workers is the number of workers that ran.
	Workers int
	// Elapsed is the duration of the run.
	Elapsed time.Duration
}

func (o *Options) logger() logging.L { return logging.Must(o.Logger) }

func (o *Options) check() error {
	switch {
	case o.ChunkSize == 0:
		return partition.ErrZeroChunkSize
	case o.ChunkSize > MaxChunkSize:
		return errors.Errorf("the chunk size %d exceeds the maximum of %d", o.ChunkSize, MaxChunkSize)
	default:
		return nil
	}
}

// progressCapacity sizes the progress channel for a number of workers.
func progressCapacity(workers int) int { return 16 * workers }

// logResult emits the summary of a completed run.
func logResult(l logging.L, verb string, res *Result) {
	l.Infof("checksum: %s", fmtutil.Checksum(res.Checksum))
	l.Debugf("%s bytes: %d", verb, res.Bytes)
	l.Debugf("throughput: %s", fmtutil.Rate(res.Bytes, res.Elapsed))
	l.Debugf("run in %s", res.Elapsed)
}

// onFile opens path, positions the new handle at offset and calls fn with it.
//
// The handle is closed when fn returns; a close error is reported if fn
// succeeded.
func onFile(path string, flag int, offset uint64, fn func(fd *os.File) (worker.Partial, error)) (p worker.Partial, err error) {
	fd, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return p, errors.Wrapf(err, "opening %q", path)
	}
	defer func() {
		if closeErr := fd.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "closing %q", path)
		}
	}()

	if _, err := fd.Seek(int64(offset), io.SeekStart); err != nil {
		return p, errors.Wrapf(err, "seeking %q to %d", path, offset)
	}
	return fn(fd)
}
