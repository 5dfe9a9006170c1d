// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package cli

import (
	"io"
	"time"

	"github.com/xcp-ng/randstream/progress"

	"github.com/schollz/progressbar/v3"
)

// barSink displays progress as a terminal progress bar.
//
// Until SetMax is called, the total is unknown and the bar is a spinner. The
// bar is erased once finished.
type barSink struct {
	bar *progressbar.ProgressBar
}

var _ progress.Bounded = (*barSink)(nil)

func newBarSink(w io.Writer, desc string) *barSink {
	return &barSink{
		bar: progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (s *barSink) SetMax(max uint64) { s.bar.ChangeMax64(int64(max)) }

func (s *barSink) Set(total uint64) { _ = s.bar.Set64(int64(total)) }

func (s *barSink) Finish() { _ = s.bar.Finish() }

// Clear erases the bar.
func (s *barSink) Clear() { _ = s.bar.Clear() }
