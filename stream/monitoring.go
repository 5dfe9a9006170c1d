// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stream

import (
	"github.com/xcp-ng/randstream/chunk"
	"github.com/xcp-ng/randstream/worker"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "randstream_bytes_total",
		Help: "Count of stream bytes processed by completed runs.",
	}, []string{"op"})

	streamRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "randstream_runs_total",
		Help: "Count of runs, by operation and outcome.",
	}, []string{"op", "result"})

	streamChunkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "randstream_chunk_errors_total",
		Help: "Count of corrupted chunks reported.",
	}, []string{"kind"})
)

// RegisterMonitoring registers all of this package's monitoring metrics,
// along with the worker metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		streamBytes,
		streamRuns,
		streamChunkErrors,
	)
	worker.RegisterMonitoring(reg)
}

// outcome classifies the error of a run.
func outcome(err error) string {
	switch errors.Cause(err).(type) {
	case nil:
		return "success"
	case *chunk.ChecksumMismatchError:
		return "checksum_mismatch"
	case *chunk.InvalidTrailingBytesError:
		return "invalid_trailing_bytes"
	case *ExpectedChecksumMismatchError:
		return "expected_checksum_mismatch"
	default:
		return "error"
	}
}

func recordRun(op string, res *Result, err error) {
	result := outcome(err)
	streamRuns.WithLabelValues(op, result).Inc()

	if chunk.IsCorruption(err) {
		streamChunkErrors.WithLabelValues(result).Inc()
	}
	if res != nil {
		streamBytes.WithLabelValues(op).Add(float64(res.Bytes))
	}
}
