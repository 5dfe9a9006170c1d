// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package fmtutil contains formatting helpers.
package fmtutil

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Checksum renders a CRC32 value the way it is printed and accepted on the
// command line: eight lowercase hex digits.
func Checksum(v uint32) string { return fmt.Sprintf("%08x", v) }

// HexSlice is a byte slice that renders as a sequence of hex bytes, instead
// of the default decimal bytes.
//
// Output as: "[4]byte{0x10, 0x20, 0x30, 0x40}"
//
// It can be used for easy lazy hex dumping.
type HexSlice []byte

func (hs HexSlice) String() string {
	var sb bytes.Buffer
	sb.Grow((6 * len(hs)) + 16) // 16 is more than we need for static content.
	fmt.Fprintf(&sb, "[%d]byte{", len(hs))
	for i, b := range hs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", b)
	}
	sb.WriteString("}")
	return sb.String()
}

// Size renders a byte count with binary units ("32 KiB").
func Size(n uint64) string { return humanize.IBytes(n) }

// Rate renders the throughput of n bytes over d, per second.
//
// A zero duration renders as an unknown rate.
func Rate(n uint64, d time.Duration) string {
	if d <= 0 {
		return "? B/s"
	}
	return humanize.IBytes(uint64(float64(n)/d.Seconds())) + "/s"
}
