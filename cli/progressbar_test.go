// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package cli

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("barSink", func() {
	It("erases the bar once finished", func() {
		var buf lockedBuffer
		s := newBarSink(&buf, "writing")
		s.SetMax(1 << 20)
		s.Set(1 << 19)
		s.Set(1 << 20)
		s.Finish()

		Expect(buf.String()).To(ContainSubstring("writing"))
		Expect(buf.String()).ToNot(ContainSubstring("\n"))
	})
})
