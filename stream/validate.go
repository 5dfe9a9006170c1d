// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stream

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/xcp-ng/randstream/chunk"
	"github.com/xcp-ng/randstream/partition"
	"github.com/xcp-ng/randstream/progress"
	"github.com/xcp-ng/randstream/support/bufferpool"
	"github.com/xcp-ng/randstream/support/dataio"
	"github.com/xcp-ng/randstream/support/devsize"
	"github.com/xcp-ng/randstream/worker"

	"github.com/pkg/errors"
)

// ValidateOptions configures Validate.
type ValidateOptions struct {
	Options

	// Path is the file or device to read. If empty, the stream is read
	// sequentially from Input until it ends.
	Path string
	// Input is the pipe to read from when Path is empty.
	Input io.Reader

	// ExpectedChecksum, if not nil, is compared against the checksum of the
	// whole stream once it has been validated.
	ExpectedChecksum *uint32
}

// Validate reads a random stream and validates each of its chunks.
//
// The first corrupted chunk found is reported as a *chunk.ChecksumMismatchError
// or a *chunk.InvalidTrailingBytesError (see errors.Cause).
func Validate(ctx context.Context, opts *ValidateOptions) (*Result, error) {
	res, err := validate(ctx, opts)
	recordRun("validate", res, err)
	return res, err
}

func validate(ctx context.Context, opts *ValidateOptions) (*Result, error) {
	start := time.Now()
	log := opts.logger()

	if err := opts.check(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	if opts.Path != "" {
		res, err = opts.validateFile(ctx)
	} else {
		res, err = opts.validatePipe(ctx)
	}
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)

	if exp := opts.ExpectedChecksum; exp != nil && *exp != res.Checksum {
		return nil, &ExpectedChecksumMismatchError{Expected: *exp, Actual: res.Checksum}
	}

	logResult(log, "read", res)
	return res, nil
}

func (opts *ValidateOptions) validateFile(ctx context.Context) (*Result, error) {
	log := opts.logger()

	size := opts.Size
	if !opts.SizeKnown {
		var err error
		if size, err = devsize.Length(opts.Path); err != nil {
			return nil, errors.Wrap(err, "reading file size")
		}
	}

	l := partition.Layout{ChunkSize: opts.ChunkSize, Length: size}
	ranges, err := partition.Split(l, opts.Jobs)
	if err != nil {
		return nil, err
	}

	log.Debugf("read size: %d", size)
	log.Debugf("number of threads: %d", len(ranges))
	log.Debugf("chunk size: %d", opts.ChunkSize)

	progress.Announce(opts.Progress, l.Length)
	tr := progress.Start(opts.Progress, progressCapacity(len(ranges)))
	results, err := worker.Run(ctx, ranges, tr, func(ctx context.Context, r partition.Range, rep *progress.Reporter) (worker.Partial, error) {
		if r.Empty() {
			return worker.Partial{}, nil
		}
		return onFile(opts.Path, os.O_RDONLY, l.Offset(r.First), func(fd *os.File) (worker.Partial, error) {
			return validateRange(ctx, fd, &l, r, rep)
		})
	})
	tr.Close()
	if err != nil {
		return nil, err
	}

	total, sum := worker.Merge(results)
	return &Result{Bytes: total, Checksum: sum.Sum32(), Workers: len(ranges)}, nil
}

// validateRange reads and validates the chunks of r from rd, which must
// already be positioned at the start of r.
//
// The stream must hold every byte of the layout: a stream ending early is
// reported as io.ErrUnexpectedEOF.
func validateRange(ctx context.Context, rd io.Reader, l *partition.Layout, r partition.Range,
	rep *progress.Reporter) (worker.Partial, error) {

	var p worker.Partial
	if r.Empty() {
		return p, nil
	}

	buf := bufferpool.ForSize(chunk.PaddedSize(int(l.ChunkSize))).Get()
	defer buf.Release()

	for c := r.First; c < r.End; c++ {
		if worker.Cancelled(ctx) {
			p.Cancelled = true
			return p, nil
		}

		want := l.ChunkLen(c)
		amt, err := dataio.ReadFull(rd, buf.Bytes()[:want])
		switch {
		case err != nil:
			return p, errors.Wrapf(err, "reading chunk %d", c)
		case amt < want:
			return p, errors.Wrapf(io.ErrUnexpectedEOF, "reading chunk %d: got %d of %d bytes", c, amt, want)
		}

		sum, err := chunk.Decode(c, buf.Bytes()[:amt])
		if err != nil {
			return p, err
		}
		p.Bytes += uint64(amt)
		p.Sum = p.Sum.Append(sum)
		rep.Add(amt)
	}
	return p, nil
}

// validatePipe validates Input sequentially until it ends.
func (opts *ValidateOptions) validatePipe(ctx context.Context) (*Result, error) {
	if opts.Input == nil {
		return nil, ErrNoStream
	}

	log := opts.logger()
	log.Debugf("read size: ∞")
	log.Debugf("number of threads: 1")
	log.Debugf("chunk size: %d", opts.ChunkSize)

	chunkSize := int(opts.ChunkSize)
	buf := bufferpool.ForSize(chunk.PaddedSize(chunkSize)).Get()
	defer buf.Release()

	tr := progress.Start(opts.Progress, progressCapacity(1))
	defer tr.Close()
	rep := tr.Reporter()
	defer rep.Flush()

	var p worker.Partial
	for c := uint64(0); ; c++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		amt, err := dataio.ReadFull(opts.Input, buf.Bytes()[:chunkSize])
		if err != nil {
			return nil, errors.Wrapf(err, "reading chunk %d", c)
		}
		if amt == 0 {
			// End of input stream.
			break
		}

		sum, err := chunk.Decode(c, buf.Bytes()[:amt])
		if err != nil {
			return nil, err
		}
		p.Bytes += uint64(amt)
		p.Sum = p.Sum.Append(sum)
		rep.Add(amt)

		if amt < chunkSize {
			// A short chunk can only be the last one.
			break
		}
	}

	return &Result{Bytes: p.Bytes, Checksum: p.Sum.Sum32(), Workers: 1}, nil
}
