// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"sort"

	"github.com/tmthrgd/go-bitset"
)

// StackMap describes the state of the frame at a return address or other
// safepoint.
type StackMap struct {
	NativePC uint32 `msgpack:"pc"`
	DexPC    uint32 `msgpack:"dexpc"`

	// Core registers holding object references.
	RegisterMask uint32 `msgpack:"regs"`

	// 32-bit stack slots holding object references.
	StackMask bitset.Bitset `msgpack:"stack,omitempty"`
}

// HasStackBit reports whether the slot holds a reference.
func (m *StackMap) HasStackBit(index uint) bool {
	return index < m.StackMask.Len() && m.StackMask.IsSet(index)
}

// FindStackMap by native pc.  The list must be sorted.
func FindStackMap(a []StackMap, nativePC uint32) (i int, found bool) {
	i = sort.Search(len(a), func(i int) bool {
		return a[i].NativePC >= nativePC
	})
	found = i < len(a) && a[i].NativePC == nativePC
	return
}

// SortStackMaps by native pc.  Entries are recorded in code order, except
// those of slow paths which are emitted after the main code.
func SortStackMaps(a []StackMap) {
	sort.SliceStable(a, func(i, j int) bool {
		return a[i].NativePC < a[j].NativePC
	})
}
