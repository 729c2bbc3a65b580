// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hiddenapi

import (
	"fmt"
	"math/bits"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
)

// List of a restricted API member.  The value is encoded in two bits.
type List uint8

const (
	Whitelist List = iota
	LightGreylist
	DarkGreylist
	Blacklist
)

var listNames = [...]string{
	Whitelist:     "whitelist",
	LightGreylist: "light-greylist",
	DarkGreylist:  "dark-greylist",
	Blacklist:     "blacklist",
}

func (l List) String() string {
	if int(l) < len(listNames) {
		return listNames[l]
	}
	return fmt.Sprintf("<invalid list %d>", uint8(l))
}

const (
	accVisibilityFlags = 0x7 // public, private, protected
	accNative          = 0x100

	accHiddenBit       = 0x20
	accHiddenBitNative = 0x200 // 0x20 means synchronized for native methods
)

func secondFlag(flags uint32) uint32 {
	if flags&accNative != 0 {
		return accHiddenBitNative
	}
	return accHiddenBit
}

// firstBitSet reports whether the visibility is not a power of two (zero
// counts as one).
func firstBitSet(flags uint32) bool {
	return bits.OnesCount32(flags&accVisibilityFlags) > 1
}

// DecodeFlags extracts the list from encoded access flags.
func DecodeFlags(flags uint32) List {
	var l List
	if firstBitSet(flags) {
		l |= 1
	}
	if flags&secondFlag(flags) != 0 {
		l |= 2
	}
	return l
}

// RemoveFlags restores the original access flags.
func RemoveFlags(flags uint32) uint32 {
	if firstBitSet(flags) {
		flags ^= accVisibilityFlags
	}
	return flags &^ secondFlag(flags)
}

// EncodeFlags stores the list in access flags which carry no list yet.  The
// low bit of the list inverts the visibility bits, which makes the
// visibility ambiguous.  The high bit sets an otherwise unused flag.
func EncodeFlags(flags uint32, l List) (uint32, error) {
	if l > Blacklist {
		return 0, fmt.Errorf("invalid list %d", uint8(l))
	}
	if RemoveFlags(flags) != flags {
		return 0, errors.Inputf("access flags %#x are already encoded", flags)
	}

	second := secondFlag(flags)
	if l&1 != 0 {
		flags ^= accVisibilityFlags
	}
	if l&2 != 0 {
		flags |= second
	}
	return flags, nil
}
