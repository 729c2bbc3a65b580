// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"encoding/binary"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/pkg/errors"
)

// Dynamic is a variable-capacity buffer.  The default value is a valid buffer
// without a size limit.
type Dynamic struct {
	buf     []byte
	maxSize int
}

// NewDynamic buffer.  The slice must be empty.
func NewDynamic(b []byte) *Dynamic {
	return NewLimited(b, 0)
}

// NewLimited buffer panics with ErrSizeLimit when its length would exceed
// maxSize.  Zero maxSize means no limit.  The slice must be empty.
func NewLimited(b []byte, maxSize int) *Dynamic {
	if len(b) != 0 {
		panic("slice must be empty")
	}
	return &Dynamic{b, maxSize}
}

// Len doesn't panic.
func (d *Dynamic) Len() int {
	return len(d.buf)
}

// Bytes doesn't panic.
func (d *Dynamic) Bytes() []byte {
	return d.buf
}

// PutByte panics with ErrSizeLimit if the limit is reached.
func (d *Dynamic) PutByte(value byte) {
	d.Extend(1)[0] = value
}

// PutUint32 panics with ErrSizeLimit if the limit is reached.
func (d *Dynamic) PutUint32(i uint32) {
	binary.LittleEndian.PutUint32(d.Extend(4), i)
}

// Extend panics with ErrSizeLimit if the limit is reached.
func (d *Dynamic) Extend(addLen int) []byte {
	offset := len(d.buf)
	size := offset + addLen

	if size < offset {
		panic(errors.New("buffer size out of range"))
	}
	if d.maxSize > 0 && size > d.maxSize {
		pan.Panic(ErrSizeLimit)
	}

	if size <= cap(d.buf) {
		d.buf = d.buf[:size]
	} else {
		d.grow(addLen)
	}

	return d.buf[offset:]
}

func (d *Dynamic) grow(addLen int) {
	newLen := len(d.buf) + addLen

	newCap := cap(d.buf)*2 + addLen
	if newCap < cap(d.buf) {
		newCap = newLen
	}
	if d.maxSize > 0 && newCap > d.maxSize {
		newCap = d.maxSize
	}

	newBuf := make([]byte, newLen, newCap)
	copy(newBuf, d.buf)
	d.buf = newBuf
}
