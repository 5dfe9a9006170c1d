// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package cli

import (
	"github.com/xcp-ng/randstream/support/fmtutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Flags", func() {
	DescribeTable("ParseSize parses human sizes",
		func(v string, exp uint64) {
			size, err := ParseSize(v)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(exp))
		},
		Entry("bytes", "1000", uint64(1000)),
		Entry("binary single letter", "32k", uint64(32*1024)),
		Entry("upper case single letter", "2M", uint64(2*1024*1024)),
		Entry("gigabytes", "1g", uint64(1<<30)),
		Entry("explicit binary", "32KiB", uint64(32*1024)),
		Entry("explicit decimal", "32kB", uint64(32000)),
		Entry("fractional", "1.5k", uint64(1536)),
		Entry("spaced", " 4 k ", uint64(4096)),
		Entry("zero", "0", uint64(0)),
	)

	DescribeTable("ParseSize rejects invalid sizes",
		func(v string) {
			_, err := ParseSize(v)
			Expect(err).To(MatchError(ContainSubstring("invalid size")))
		},
		Entry("empty", ""),
		Entry("negative", "-1"),
		Entry("unknown unit", "12q"),
		Entry("garbage", "lots"),
	)

	It("SizeFlag renders its value", func() {
		var f SizeFlag
		Expect(f.String()).To(Equal("0"))
		Expect(f.Set("32k")).To(Succeed())
		Expect(f.String()).To(Equal("32 KiB"))
		Expect(uint64(f)).To(Equal(uint64(32768)))

		// The rendered value parses back.
		var g SizeFlag
		Expect(g.Set(f.String())).To(Succeed())
		Expect(g).To(Equal(f))
	})

	DescribeTable("ChecksumFlag parses hexadecimal checksums",
		func(v string, exp uint32) {
			var f ChecksumFlag
			Expect(f.Ptr()).To(BeNil())
			Expect(f.Set(v)).To(Succeed())
			Expect(f.Ptr()).To(Equal(&exp))
			Expect(f.String()).To(Equal(fmtutil.Checksum(exp)))
		},
		Entry("lower case", "067e7555", uint32(0x067E7555)),
		Entry("upper case", "067E7555", uint32(0x067E7555)),
		Entry("without leading zero", "67e7555", uint32(0x067E7555)),
		Entry("with prefix", "0xdeadbeef", uint32(0xDEADBEEF)),
	)

	DescribeTable("ChecksumFlag rejects invalid checksums",
		func(v string) {
			var f ChecksumFlag
			Expect(f.Set(v)).To(MatchError(ContainSubstring("invalid checksum")))
			Expect(f.Valid).To(BeFalse())
		},
		Entry("empty", ""),
		Entry("too long", "123456789"),
		Entry("not hexadecimal", "xyz"),
	)
})
