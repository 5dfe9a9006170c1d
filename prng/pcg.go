// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package prng implements the seekable pseudo-random generator that produces
// stream data.
//
// The generator is a 128-bit multiplicative congruential generator with an
// XSL-RR output permutation (PCG64 MCG). It emits 64-bit words. Because its
// state transition is a single multiplication, the state reached after any
// number of words can be computed directly in O(log n) multiplications, which
// lets independent workers start generating at arbitrary chunk boundaries.
package prng

import (
	"encoding/binary"
	"math/bits"
)

// WordSize is the number of bytes produced by one generator step.
const WordSize = 8

// Multiplier halves of the MCG constant 0x2360ED051FC65DA44385DF649FCCF645.
const (
	mulHi = 0x2360ED051FC65DA4
	mulLo = 0x4385DF649FCCF645
)

// Seed expansion constants (PCG32).
const (
	seedMul = 6364136223846793005
	seedInc = 11634580027462260723
)

// PCG is a PCG64 MCG generator.
//
// A PCG is not safe for concurrent use. Each worker owns its own instance.
type PCG struct {
	hi, lo uint64
}

// New returns a generator seeded from seed.
//
// The 64-bit seed is expanded into 128 bits of state with a PCG32 sequence,
// so that nearby seeds produce unrelated streams.
func New(seed uint64) *PCG {
	var buf [16]byte
	for i := 0; i < len(buf); i += 4 {
		seed = seed*seedMul + seedInc
		xorshifted := uint32(((seed >> 18) ^ seed) >> 27)
		rot := int(seed >> 59)
		binary.LittleEndian.PutUint32(buf[i:], bits.RotateLeft32(xorshifted, -rot))
	}

	// The state of a multiplicative generator must be odd.
	return &PCG{
		lo: binary.LittleEndian.Uint64(buf[:8]) | 1,
		hi: binary.LittleEndian.Uint64(buf[8:]),
	}
}

// Uint64 steps the generator and returns the next word.
func (p *PCG) Uint64() uint64 {
	p.hi, p.lo = mul128(p.hi, p.lo, mulHi, mulLo)

	rot := int(p.hi >> 58)
	return bits.RotateLeft64(p.hi^p.lo, -rot)
}

// Fill fills buf with generator output, little-endian, one word per 8 bytes.
//
// If len(buf) is not a multiple of WordSize, the trailing partial word still
// consumes a whole generator step.
func (p *PCG) Fill(buf []byte) {
	for len(buf) >= WordSize {
		binary.LittleEndian.PutUint64(buf, p.Uint64())
		buf = buf[WordSize:]
	}
	if len(buf) > 0 {
		var tail [WordSize]byte
		binary.LittleEndian.PutUint64(tail[:], p.Uint64())
		copy(buf, tail[:])
	}
}

// Advance moves the generator forward by n words, as if n calls to Uint64 had
// been made and their output discarded.
func (p *PCG) Advance(n uint64) {
	accHi, accLo := uint64(0), uint64(1)
	curHi, curLo := uint64(mulHi), uint64(mulLo)
	for ; n > 0; n >>= 1 {
		if n&1 != 0 {
			accHi, accLo = mul128(accHi, accLo, curHi, curLo)
		}
		curHi, curLo = mul128(curHi, curLo, curHi, curLo)
	}
	p.hi, p.lo = mul128(p.hi, p.lo, accHi, accLo)
}

// State returns the raw 128-bit generator state.
func (p *PCG) State() (hi, lo uint64) { return p.hi, p.lo }

// PadToWord rounds n up to a multiple of WordSize.
func PadToWord(n int) int {
	return (n + WordSize - 1) / WordSize * WordSize
}

// mul128 returns (aHi:aLo * bHi:bLo) mod 2^128.
func mul128(aHi, aLo, bHi, bLo uint64) (hi, lo uint64) {
	hi, lo = bits.Mul64(aLo, bLo)
	hi += aLo*bHi + aHi*bLo
	return
}
