// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"

	"github.com/xcp-ng/randstream/chunk"
	"github.com/xcp-ng/randstream/partition"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Generate", func() {
	const chunkSize = 1001

	DescribeTable("produces the same bytes regardless of the number of workers",
		func(size uint64) {
			var pipe bytes.Buffer
			seq := mustGenerate(&GenerateOptions{Options: sized(chunkSize, size, 1), Output: &pipe, Seed: 9})
			Expect(seq.Workers).To(Equal(1))
			Expect(uint64(pipe.Len())).To(Equal(size))

			for _, jobs := range []int{1, 2, 4, 7, 32} {
				path := tempPath("out")
				res := mustGenerate(&GenerateOptions{Options: sized(chunkSize, size, jobs), Path: path, Seed: 9})
				Expect(res.Workers).To(Equal(jobs))
				Expect(res.Checksum).To(Equal(seq.Checksum), "with %d jobs", jobs)
				Expect(mustRead(path)).To(Equal(pipe.Bytes()), "with %d jobs", jobs)
			}
		},
		Entry("empty", uint64(0)),
		Entry("a short tail only", uint64(3)),
		Entry("one chunk", uint64(chunkSize)),
		Entry("many chunks and a tail", uint64(23*chunkSize+17)),
	)

	It("zeroes a tail too short for a trailer", func() {
		path := tempPath("tail")
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 2*chunkSize+3, 2), Path: path})

		data := mustRead(path)
		Expect(data[2*chunkSize:]).To(Equal([]byte{0, 0, 0}))
	})

	It("resumes at a chunk boundary", func() {
		path := tempPath("resume")
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 2*chunkSize, 2), Path: path, Seed: 5})
		orig := mustRead(path)

		// Wipe the second half, then regenerate it.
		Expect(ioutil.WriteFile(path, append(append([]byte(nil), orig[:chunkSize]...), make([]byte, chunkSize)...), 0644)).To(Succeed())
		res := mustGenerate(&GenerateOptions{Options: sized(chunkSize, chunkSize, 2), Path: path, Seed: 5, Position: chunkSize})
		Expect(res.Bytes).To(Equal(uint64(chunkSize)))
		Expect(mustRead(path)).To(Equal(orig))
	})

	It("resumes inside a larger file", func() {
		path := tempPath("resume")
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 10*chunkSize+7, 3), Path: path, Seed: 5})
		orig := mustRead(path)

		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 4*chunkSize, 3), Path: path, Seed: 5,
			Position: 3 * chunkSize, NoTruncate: true})
		Expect(mustRead(path)).To(Equal(orig))
	})

	It("rejects a misaligned position", func() {
		_, err := Generate(ctx, &GenerateOptions{Options: sized(chunkSize, 10, 1), Path: tempPath("out"), Position: 10})
		Expect(err).To(Equal(&partition.MisalignedPositionError{Position: 10, ChunkSize: chunkSize}))
	})

	It("rejects a position without a file", func() {
		_, err := Generate(ctx, &GenerateOptions{Options: sized(chunkSize, 10, 1), Output: ioutil.Discard, Position: chunkSize})
		Expect(err).To(Equal(ErrPositionWithoutFile))
	})

	It("requires an output", func() {
		_, err := Generate(ctx, &GenerateOptions{Options: sized(chunkSize, 10, 1)})
		Expect(err).To(Equal(ErrNoStream))
	})

	Context("without an explicit size", func() {
		opts := Options{ChunkSize: chunkSize, Jobs: 2}

		It("fails on a pipe", func() {
			_, err := Generate(ctx, &GenerateOptions{Options: opts, Output: ioutil.Discard})
			Expect(err).To(Equal(ErrSizeUndeterminable))
		})

		It("fails on a missing file", func() {
			_, err := Generate(ctx, &GenerateOptions{Options: opts, Path: tempPath("missing")})
			Expect(err).To(Equal(ErrSizeUndeterminable))
		})

		It("fills an existing file", func() {
			path := tempPath("existing")
			Expect(ioutil.WriteFile(path, make([]byte, 5000), 0644)).To(Succeed())

			res := mustGenerate(&GenerateOptions{Options: opts, Path: path})
			Expect(res.Bytes).To(Equal(uint64(5000)))

			res = mustGenerate(&GenerateOptions{Options: opts, Path: path, Position: 2 * chunkSize})
			Expect(res.Bytes).To(Equal(uint64(5000 - 2*chunkSize)))
		})

		It("fails when the position is past the end of the file", func() {
			path := tempPath("existing")
			Expect(ioutil.WriteFile(path, make([]byte, 1000), 0644)).To(Succeed())

			_, err := Generate(ctx, &GenerateOptions{Options: opts, Path: path, Position: 2 * chunkSize})
			Expect(err).To(Equal(&PositionBeyondEndError{Position: 2 * chunkSize, Size: 1000}))
		})
	})

	Context("with an existing larger file", func() {
		var path string

		BeforeEach(func() {
			path = tempPath("larger")
			Expect(ioutil.WriteFile(path, make([]byte, 10*chunkSize), 0644)).To(Succeed())
		})

		fileSize := func() int64 {
			st, err := os.Stat(path)
			Expect(err).ToNot(HaveOccurred())
			return st.Size()
		}

		It("truncates it by default", func() {
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 2*chunkSize, 2), Path: path})
			Expect(fileSize()).To(Equal(int64(2 * chunkSize)))
		})

		It("keeps its size with NoTruncate", func() {
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 2*chunkSize, 2), Path: path, NoTruncate: true})
			Expect(fileSize()).To(Equal(int64(10 * chunkSize)))
		})

		It("still extends it with NoTruncate", func() {
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 12*chunkSize, 2), Path: path, NoTruncate: true})
			Expect(fileSize()).To(Equal(int64(12 * chunkSize)))
		})
	})

	It("reports progress up to the stream size", func() {
		var sink totalSink
		opts := sized(chunkSize, 345*chunkSize+5, 3)
		opts.Progress = &sink
		mustGenerate(&GenerateOptions{Options: opts, Path: tempPath("progress")})

		Expect(sink.total).To(Equal(uint64(345*chunkSize + 5)))
		Expect(sink.finished).To(BeTrue())
	})

	It("stops when its context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Generate(cctx, &GenerateOptions{Options: sized(chunkSize, 10*chunkSize, 2), Path: tempPath("cancelled")})
		Expect(errors.Cause(err)).To(Equal(context.Canceled))
	})

	It("reports write failures", func() {
		_, err := Generate(ctx, &GenerateOptions{Options: sized(chunkSize, 10*chunkSize, 1), Output: failingWriter{}})
		Expect(err).To(MatchError(ContainSubstring("writing chunk 0")))
		Expect(chunk.IsCorruption(err)).To(BeFalse())
	})
})

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk on fire") }
