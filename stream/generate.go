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
	"github.com/xcp-ng/randstream/prng"
	"github.com/xcp-ng/randstream/progress"
	"github.com/xcp-ng/randstream/support/bufferpool"
	"github.com/xcp-ng/randstream/support/devsize"
	"github.com/xcp-ng/randstream/worker"

	"github.com/pkg/errors"
)

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Options

	// Path is the file or device to write to. If empty, the stream is written
	// sequentially to Output.
	Path string
	// Output is the pipe to write to when Path is empty.
	Output io.Writer

	// Seed is the generator seed.
	Seed uint64

	// Position is the stream position to start generating at. It must be a
	// multiple of ChunkSize, and requires a Path.
	Position uint64

	// NoTruncate prevents shrinking an existing file to the end of the
	// generated region. Files are always extended as needed.
	NoTruncate bool
}

// Generate writes a random stream.
func Generate(ctx context.Context, opts *GenerateOptions) (*Result, error) {
	res, err := generate(ctx, opts)
	recordRun("generate", res, err)
	return res, err
}

func generate(ctx context.Context, opts *GenerateOptions) (*Result, error) {
	start := time.Now()
	log := opts.logger()

	if err := opts.check(); err != nil {
		return nil, err
	}
	if opts.Position%opts.ChunkSize != 0 {
		return nil, &partition.MisalignedPositionError{Position: opts.Position, ChunkSize: opts.ChunkSize}
	}
	if opts.Position != 0 && opts.Path == "" {
		return nil, ErrPositionWithoutFile
	}

	size, err := opts.streamSize()
	if err != nil {
		return nil, err
	}

	log.Debugf("position: %d", opts.Position)
	log.Debugf("stream size: %d", size)
	log.Debugf("chunk size: %d", opts.ChunkSize)
	log.Debugf("seed: %d", opts.Seed)

	l := partition.Layout{
		ChunkSize: opts.ChunkSize,
		Start:     opts.Position,
		Length:    size,
	}

	var res *Result
	if opts.Path != "" {
		res, err = opts.generateFile(ctx, &l)
	} else {
		res, err = opts.generatePipe(ctx, &l)
	}
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	logResult(log, "written", res)
	return res, nil
}

// streamSize resolves the number of bytes to generate.
func (opts *GenerateOptions) streamSize() (uint64, error) {
	if opts.SizeKnown {
		return opts.Size, nil
	}
	if opts.Path == "" {
		return 0, ErrSizeUndeterminable
	}

	switch _, err := os.Stat(opts.Path); {
	case os.IsNotExist(err):
		return 0, ErrSizeUndeterminable
	case err != nil:
		return 0, err
	}

	size, err := devsize.Length(opts.Path)
	if err != nil {
		return 0, errors.Wrap(err, "reading file size")
	}
	if opts.Position > size {
		return 0, &PositionBeyondEndError{Position: opts.Position, Size: size}
	}
	return size - opts.Position, nil
}

func (opts *GenerateOptions) generateFile(ctx context.Context, l *partition.Layout) (*Result, error) {
	if opts.Jobs <= 0 {
		return nil, partition.ErrNoWorkers
	}
	if err := presize(opts.Path, l.End(), !opts.NoTruncate); err != nil {
		return nil, err
	}

	ranges, err := partition.Split(*l, opts.Jobs)
	if err != nil {
		return nil, err
	}
	opts.logger().Debugf("number of threads: %d", len(ranges))

	progress.Announce(opts.Progress, l.Length)
	tr := progress.Start(opts.Progress, progressCapacity(len(ranges)))
	results, err := worker.Run(ctx, ranges, tr, func(ctx context.Context, r partition.Range, rep *progress.Reporter) (worker.Partial, error) {
		if r.Empty() {
			return worker.Partial{}, nil
		}
		return onFile(opts.Path, os.O_WRONLY, l.Offset(r.First), func(fd *os.File) (worker.Partial, error) {
			return generateRange(ctx, fd, opts.Seed, l, r, rep)
		})
	})
	tr.Close()
	if err != nil {
		return nil, err
	}

	total, sum := worker.Merge(results)
	return &Result{Bytes: total, Checksum: sum.Sum32(), Workers: len(ranges)}, nil
}

func (opts *GenerateOptions) generatePipe(ctx context.Context, l *partition.Layout) (*Result, error) {
	if opts.Output == nil {
		return nil, ErrNoStream
	}
	opts.logger().Debugf("number of threads: 1")

	ranges, err := partition.Split(*l, 1)
	if err != nil {
		return nil, err
	}

	progress.Announce(opts.Progress, l.Length)
	tr := progress.Start(opts.Progress, progressCapacity(1))
	results, err := worker.Run(ctx, ranges, tr, func(ctx context.Context, r partition.Range, rep *progress.Reporter) (worker.Partial, error) {
		return generateRange(ctx, opts.Output, opts.Seed, l, r, rep)
	})
	tr.Close()
	if err != nil {
		return nil, err
	}

	total, sum := worker.Merge(results)
	return &Result{Bytes: total, Checksum: sum.Sum32(), Workers: 1}, nil
}

// presize makes sure the file at path exists before workers open it, and that
// its size matches end.
//
// Regular files are resized to end when they are too short, or when truncate
// is true. Devices are left alone.
func presize(path string, end uint64, truncate bool) error {
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	defer func() {
		if fd != nil {
			_ = fd.Close()
		}
	}()

	st, err := fd.Stat()
	if err != nil {
		return errors.Wrapf(err, "reading %q", path)
	}
	if st.Mode().IsRegular() && (end > uint64(st.Size()) || truncate) {
		if err := fd.Truncate(int64(end)); err != nil {
			return errors.Wrapf(err, "resizing %q to %d", path, end)
		}
	}

	err, fd = fd.Close(), nil
	return err
}

// generateRange writes the chunks of r to w, which must already be positioned
// at the start of r.
func generateRange(ctx context.Context, w io.Writer, seed uint64, l *partition.Layout,
	r partition.Range, rep *progress.Reporter) (worker.Partial, error) {

	var p worker.Partial
	if r.Empty() {
		return p, nil
	}

	padded := chunk.PaddedSize(int(l.ChunkSize))
	buf := bufferpool.ForSize(padded).Get()
	defer buf.Release()

	// Position the generator on the first chunk. Every chunk draws padded
	// bytes, a whole number of words.
	src := prng.New(seed)
	src.Advance(r.First * uint64(padded/prng.WordSize))

	for c := r.First; c < r.End; c++ {
		if worker.Cancelled(ctx) {
			p.Cancelled = true
			return p, nil
		}

		data, sum := chunk.Encode(src, buf.Bytes(), l.ChunkLen(c))
		if _, err := w.Write(data); err != nil {
			return p, errors.Wrapf(err, "writing chunk %d", c)
		}
		p.Bytes += uint64(len(data))
		p.Sum = p.Sum.Append(sum)
		rep.Add(len(data))
	}
	return p, nil
}
