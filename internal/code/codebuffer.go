// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package code

import (
	"encoding/binary"
)

type Buffer interface {
	Bytes() []byte
	Extend(n int) []byte
	PutByte(byte)
	PutUint32(uint32) // Little-endian byte order.
}

// Buf is an optimized Buffer.  The cached length (Addr) avoids interface
// function calls.
type Buf struct {
	Buffer
	Addr int32
}

func (buf *Buf) Extend(n int) (b []byte) {
	b = buf.Buffer.Extend(n)
	buf.Addr += int32(n)
	return
}

func (buf *Buf) PutByte(x byte) {
	buf.Buffer.PutByte(x)
	buf.Addr++
}

func (buf *Buf) PutUint32(x uint32) {
	buf.Buffer.PutUint32(x)
	buf.Addr += 4
}

func (buf *Buf) PutUint64(x uint64) {
	binary.LittleEndian.PutUint64(buf.Extend(8), x)
}

// PutInt32At overwrites 4 bytes ending at addr.
func (buf *Buf) PutInt32At(addr, x int32) {
	binary.LittleEndian.PutUint32(buf.Bytes()[addr-4:addr], uint32(x))
}

// Int32At reads 4 bytes ending at addr.
func (buf *Buf) Int32At(addr int32) int32 {
	return int32(binary.LittleEndian.Uint32(buf.Bytes()[addr-4 : addr]))
}

// Align pads with the fill byte until Addr is a multiple of n.
func (buf *Buf) Align(n int32, fill byte) {
	for buf.Addr&(n-1) != 0 {
		buf.PutByte(fill)
	}
}
