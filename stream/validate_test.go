// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing/iotest"

	"github.com/xcp-ng/randstream/chunk"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate", func() {
	const chunkSize = 1000

	// corrupt generates a stream of size bytes at path, then flips the bits of
	// mask at offset.
	corrupt := func(path string, size uint64, offset int, mask byte) {
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, size, 4), Path: path, Seed: 3})
		data := mustRead(path)
		data[offset] ^= mask
		Expect(ioutil.WriteFile(path, data, 0644)).To(Succeed())
	}

	DescribeTable("round-trips generated streams",
		func(size uint64) {
			path := tempPath("roundtrip")
			gen := mustGenerate(&GenerateOptions{Options: sized(chunkSize, size, 3), Path: path, Seed: 11})

			for _, jobs := range []int{1, 2, 5} {
				res, err := Validate(ctx, &ValidateOptions{
					Options: Options{ChunkSize: chunkSize, Jobs: jobs},
					Path:    path,
				})
				Expect(err).ToNot(HaveOccurred())
				Expect(res.Bytes).To(Equal(size))
				Expect(res.Checksum).To(Equal(gen.Checksum))
			}

			// The same stream, piped.
			res, err := Validate(ctx, &ValidateOptions{
				Options: Options{ChunkSize: chunkSize},
				Input:   iotest.HalfReader(bytes.NewReader(mustRead(path))),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Bytes).To(Equal(size))
			Expect(res.Checksum).To(Equal(gen.Checksum))
		},
		Entry("empty", uint64(0)),
		Entry("3 bytes", uint64(3)),
		Entry("4 bytes", uint64(4)),
		Entry("chunk size - 1", uint64(chunkSize-1)),
		Entry("chunk size", uint64(chunkSize)),
		Entry("chunk size + 1", uint64(chunkSize+1)),
		Entry("10 chunks + 7", uint64(10*chunkSize+7)),
	)

	DescribeTable("names the corrupted chunk",
		func(offset int) {
			path := tempPath("corrupt")
			corrupt(path, 40*chunkSize+7, offset, 0x04)

			_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize, Jobs: 4}, Path: path})
			Expect(err).To(HaveOccurred())
			Expect(chunk.IsCorruption(err)).To(BeTrue())

			cme, ok := errors.Cause(err).(*chunk.ChecksumMismatchError)
			Expect(ok).To(BeTrue())
			Expect(cme.Chunk).To(Equal(uint64(offset / chunkSize)))
		},
		Entry("first payload byte", 0),
		Entry("payload byte of a middle chunk", 17*chunkSize+123),
		Entry("trailer byte of a middle chunk", 25*chunkSize-1),
		Entry("payload of the tail chunk", 40*chunkSize+1),
	)

	It("rejects a nonzero short tail", func() {
		path := tempPath("tail")
		corrupt(path, 3*chunkSize+2, 3*chunkSize+1, 0xFF)

		_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize, Jobs: 2}, Path: path})
		itb, ok := errors.Cause(err).(*chunk.InvalidTrailingBytesError)
		Expect(ok).To(BeTrue())
		Expect(itb.Chunk).To(Equal(uint64(3)))
	})

	Context("with a piped stream", func() {
		It("names the corrupted chunk", func() {
			var buf bytes.Buffer
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 5*chunkSize, 1), Output: &buf})
			buf.Bytes()[2*chunkSize+10] ^= 0x10

			_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize}, Input: &buf})
			cme, ok := errors.Cause(err).(*chunk.ChecksumMismatchError)
			Expect(ok).To(BeTrue())
			Expect(cme.Chunk).To(Equal(uint64(2)))
		})

		It("reports read failures", func() {
			var buf bytes.Buffer
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 3*chunkSize, 1), Output: &buf})

			// The first chunk is read in one call; the second read times out.
			_, err := Validate(ctx, &ValidateOptions{
				Options: Options{ChunkSize: chunkSize},
				Input:   iotest.TimeoutReader(&buf),
			})
			Expect(errors.Cause(err)).To(Equal(iotest.ErrTimeout))
		})

		It("requires an input", func() {
			_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize}})
			Expect(err).To(Equal(ErrNoStream))
		})
	})

	It("reports a stream shorter than its stated size", func() {
		path := tempPath("short")
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 3*chunkSize, 1), Path: path})

		_, err := Validate(ctx, &ValidateOptions{Options: sized(chunkSize, 5*chunkSize, 2), Path: path})
		Expect(errors.Cause(err)).To(Equal(io.ErrUnexpectedEOF))
	})

	It("validates a prefix of a longer stream", func() {
		path := tempPath("prefix")
		mustGenerate(&GenerateOptions{Options: sized(chunkSize, 8*chunkSize+9, 1), Path: path})

		res, err := Validate(ctx, &ValidateOptions{Options: sized(chunkSize, 4*chunkSize, 2), Path: path})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Bytes).To(Equal(uint64(4 * chunkSize)))
	})

	It("fails on a missing file", func() {
		_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize, Jobs: 1}, Path: tempPath("missing")})
		Expect(err).To(MatchError(ContainSubstring("reading file size")))
	})

	Context("with an expected checksum", func() {
		var path string

		BeforeEach(func() {
			path = tempPath("expected")
			mustGenerate(&GenerateOptions{Options: sized(chunkSize, 10007, 2), Path: path, Seed: 42})
		})

		It("succeeds when the checksum matches", func() {
			expected := uint32(0x067E7555)
			res, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize, Jobs: 3}, Path: path, ExpectedChecksum: &expected})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Checksum).To(Equal(expected))
		})

		It("fails when the checksum differs", func() {
			expected := uint32(0xDEADBEEF)
			_, err := Validate(ctx, &ValidateOptions{Options: Options{ChunkSize: chunkSize, Jobs: 3}, Path: path, ExpectedChecksum: &expected})
			Expect(err).To(Equal(&ExpectedChecksumMismatchError{Expected: 0xDEADBEEF, Actual: 0x067E7555}))
		})
	})
})
