// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package worker runs one task per partition range concurrently and collects
// their partial results in worker order.
//
// The group's Context doubles as the cancellation token: it is cancelled as
// soon as any task fails, and tasks are expected to poll it once per chunk
// with Cancelled. Cancellation is best-effort; a task may process one more
// chunk after a sibling failed, and bytes already written are left in place.
package worker

import (
	"context"

	"github.com/xcp-ng/randstream/checksum"
	"github.com/xcp-ng/randstream/partition"
	"github.com/xcp-ng/randstream/progress"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Partial is the work done by a single task.
type Partial struct {
	// Bytes is the number of bytes processed.
	Bytes uint64
	// Sum is the checksum state of the processed bytes.
	Sum checksum.State
	// Cancelled is true if the task stopped early because the run was
	// cancelled.
	Cancelled bool
}

// Task processes a single range.
//
// A Task should report each processed chunk to rep, stop early and return a
// Cancelled partial when Cancelled(ctx) becomes true, and return immediately,
// without further I/O, on error.
type Task func(ctx context.Context, r partition.Range, rep *progress.Reporter) (Partial, error)

// Result is the outcome of a task.
type Result struct {
	partition.Range
	Partial

	// Err is the error returned by the task, if any.
	Err error
}

// Cancelled returns true if ctx has been cancelled.
func Cancelled(ctx context.Context) bool { return ctx.Err() != nil }

// Run runs task once for each range in its own goroutine and waits for all of
// them to finish.
//
// The returned results are in the order of ranges. If any task failed, Run
// returns the error of the first failing task in range order, annotated with
// its worker index. If tr is not nil, each task receives its own Reporter,
// which is flushed when the task returns.
func Run(ctx context.Context, ranges []partition.Range, tr *progress.Tracker, task Task) ([]Result, error) {
	results := make([]Result, len(ranges))

	eg, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r

		var rep *progress.Reporter
		if tr != nil {
			rep = tr.Reporter()
		}

		eg.Go(func() error {
			activeWorkers.Inc()
			defer activeWorkers.Dec()
			defer rep.Flush()

			p, err := task(gctx, r, rep)
			results[i] = Result{Range: r, Partial: p, Err: err}
			return err
		})
	}
	_ = eg.Wait()

	for _, res := range results {
		if res.Err != nil {
			return results, errors.Wrapf(res.Err, "worker %d", res.Worker)
		}
	}

	// No task failed, but the parent may have stopped some of them.
	if err := ctx.Err(); err != nil && Incomplete(results) {
		return results, err
	}
	return results, nil
}

// Incomplete returns true if any result was cancelled.
func Incomplete(results []Result) bool {
	for _, res := range results {
		if res.Cancelled {
			return true
		}
	}
	return false
}

// Merge sums the bytes of results and merges their checksums, in order.
func Merge(results []Result) (uint64, checksum.State) {
	var (
		total uint64
		sum   checksum.State
	)
	for _, res := range results {
		total += res.Bytes
		sum = sum.Append(res.Sum)
	}
	return total, sum
}
