// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package cli

import (
	"strconv"
	"strings"

	"github.com/xcp-ng/randstream/support/fmtutil"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// ParseSize parses a human-readable byte size.
//
// Single-letter units are binary: "32k" is 32768 bytes, as is "32KiB". Units
// spelled with a "B", such as "32kB", follow humanize and are decimal.
func ParseSize(v string) (uint64, error) {
	s := strings.TrimSpace(v)
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'k', 'K', 'm', 'M', 'g', 'G', 't', 'T', 'p', 'P', 'e', 'E':
			s += "i"
		}
	}

	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Errorf("invalid size %q", v)
	}
	return size, nil
}

// SizeFlag is a pflag.Value holding a byte size.
type SizeFlag uint64

var _ pflag.Value = (*SizeFlag)(nil)

func (f *SizeFlag) String() string {
	if *f == 0 {
		return "0"
	}
	return fmtutil.Size(uint64(*f))
}

// Set implements pflag.Value.
func (f *SizeFlag) Set(v string) error {
	size, err := ParseSize(v)
	if err != nil {
		return err
	}
	*f = SizeFlag(size)
	return nil
}

// Type implements pflag.Value.
func (*SizeFlag) Type() string { return "size" }

// ChecksumFlag is a pflag.Value holding an optional hexadecimal CRC32.
type ChecksumFlag struct {
	Value uint32
	Valid bool
}

var _ pflag.Value = (*ChecksumFlag)(nil)

func (f *ChecksumFlag) String() string {
	if !f.Valid {
		return ""
	}
	return fmtutil.Checksum(f.Value)
}

// Set implements pflag.Value.
//
// The checksum is hexadecimal, with an optional "0x" prefix, in any case.
func (f *ChecksumFlag) Set(v string) error {
	s := strings.TrimSpace(v)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	crc, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return errors.Errorf("invalid checksum %q: expected up to 8 hexadecimal digits", v)
	}
	f.Value, f.Valid = uint32(crc), true
	return nil
}

// Type implements pflag.Value.
func (*ChecksumFlag) Type() string { return "hex" }

// Ptr returns the checksum, or nil if none was set.
func (f *ChecksumFlag) Ptr() *uint32 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
