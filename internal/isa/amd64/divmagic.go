// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

// divMagic computes the multiplier and shift which replace signed division
// by a constant d, where |d| >= 2.  The multiplier is sign-extended from the
// operand width.  See Hacker's Delight, chapter 10.
func divMagic(d int64, long bool) (magic int64, shift int) {
	w := uint(32)
	if long {
		w = 64
	}
	mask := uint64(1)<<w - 1
	two := uint64(1) << (w - 1)

	ad := uint64(d) & mask
	if d < 0 {
		ad = uint64(-d) & mask
	}

	t := two + (uint64(d)&mask)>>(w-1)
	anc := t - 1 - t%ad
	p := int(w - 1)
	q1 := two / anc
	r1 := two - q1*anc
	q2 := two / ad
	r2 := two - q2*ad

	for {
		p++
		q1 = (2 * q1) & mask
		r1 = (2 * r1) & mask
		if r1 >= anc {
			q1 = (q1 + 1) & mask
			r1 = (r1 - anc) & mask
		}
		q2 = (2 * q2) & mask
		r2 = (2 * r2) & mask
		if r2 >= ad {
			q2 = (q2 + 1) & mask
			r2 = (r2 - ad) & mask
		}
		delta := ad - r2
		if !(q1 < delta || (q1 == delta && r1 == 0)) {
			break
		}
	}

	m := (q2 + 1) & mask
	if d < 0 {
		m = -m & mask
	}

	if long {
		magic = int64(m)
	} else {
		magic = int64(int32(uint32(m)))
	}
	return magic, p - int(w)
}

func absOrMin(x int64) int64 {
	if x < 0 && x != -x {
		return -x
	}
	return x
}

// isPowerOfTwo treats the argument as unsigned, so the minimum value
// qualifies.
func isPowerOfTwo(x int64) bool {
	u := uint64(x)
	return u != 0 && u&(u-1) == 0
}
