// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"math"
	"math/bits"
	"testing"
)

func TestDivMagicKnownValues(t *testing.T) {
	for _, x := range []struct {
		d     int64
		long  bool
		magic int64
		shift int
	}{
		{3, false, 0x55555556, 0},
		{5, false, 0x66666667, 1},
		{7, false, int64(int32(-1840700269)), 2},
		{3, true, 0x5555555555555556, 0},
		{7, true, 0x4924924924924925, 1},
	} {
		magic, shift := divMagic(x.d, x.long)
		if magic != x.magic || shift != x.shift {
			t.Errorf("divMagic(%d, %v) = %#x, %d; want %#x, %d", x.d, x.long, magic, shift, x.magic, x.shift)
		}
	}
}

// divideInt32 mirrors the emitted instruction sequence.
func divideInt32(n, d int32) int32 {
	magic, shift := divMagic(int64(d), false)
	hi := int32((int64(int32(magic)) * int64(n)) >> 32)
	if d > 0 && magic < 0 {
		hi += n
	} else if d < 0 && magic > 0 {
		hi -= n
	}
	hi >>= uint(shift)
	return hi + int32(uint32(hi)>>31)
}

func mulHigh64(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return int64(hi)
}

func divideInt64(n, d int64) int64 {
	magic, shift := divMagic(d, true)
	hi := mulHigh64(magic, n)
	if d > 0 && magic < 0 {
		hi += n
	} else if d < 0 && magic > 0 {
		hi -= n
	}
	hi >>= uint(shift)
	return hi + int64(uint64(hi)>>63)
}

func TestDivMagicInt32(t *testing.T) {
	divisors := []int32{2, 3, 5, 6, 7, 10, 11, 13, 25, 100, 641, 1000, 65537, 1 << 20, math.MaxInt32, math.MinInt32}
	numerators := []int32{0, 1, -1, 2, -2, 7, -7, 99, -99, 1 << 30, -(1 << 30), math.MaxInt32, math.MinInt32, math.MaxInt32 - 1, math.MinInt32 + 1}

	for _, d := range divisors {
		for _, sign := range []int32{1, -1} {
			d := d * sign
			if d == 0 || d == 1 || d == -1 {
				continue
			}
			for _, n := range numerators {
				q := divideInt32(n, d)
				if want := n / d; q != want {
					t.Errorf("%d / %d = %d; want %d", n, d, q, want)
				}
				if r, want := n-q*d, n%d; r != want {
					t.Errorf("%d %% %d = %d; want %d", n, d, r, want)
				}
			}
		}
	}
}

func TestDivMagicInt64(t *testing.T) {
	divisors := []int64{3, 5, 7, 10, 12, 1000, 1 << 33, 1000000007, math.MaxInt64, math.MaxInt32 + 1}
	numerators := []int64{0, 1, -1, 5, -5, 1 << 40, -(1 << 40), math.MaxInt64, math.MinInt64, math.MaxInt64 - 3, math.MinInt64 + 3}

	for _, d := range divisors {
		for _, sign := range []int64{1, -1} {
			d := d * sign
			for _, n := range numerators {
				q := divideInt64(n, d)
				if want := n / d; q != want {
					t.Errorf("%d / %d = %d; want %d", n, d, q, want)
				}
			}
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for x, want := range map[int64]bool{
		0:             false,
		1:             true,
		2:             true,
		3:             false,
		1 << 31:       true,
		-4:            false,
		math.MinInt64: true,
	} {
		if isPowerOfTwo(x) != want {
			t.Errorf("isPowerOfTwo(%d) != %v", x, want)
		}
	}

	if absOrMin(math.MinInt64) != math.MinInt64 || absOrMin(-5) != 5 {
		t.Error("absOrMin")
	}
}
