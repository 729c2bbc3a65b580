// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && amd64

package native

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// call code on a private stack.  The arguments are loaded into rsi, rdx,
// rcx, r8 and r9.
//
//go:noescape
func call(code, stack uintptr, args *[5]uint64) uint64

// Code is an executable mapping of a method.
type Code struct {
	text  []byte
	stack []byte
}

// Load code into an executable mapping.
func Load(code []byte) (*Code, error) {
	text, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	copy(text, code)

	if err := unix.Mprotect(text, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(text)
		return nil, err
	}

	stack, err := unix.Mmap(-1, 0, stackSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		unix.Munmap(text)
		return nil, err
	}

	return &Code{text, stack}, nil
}

// Call the method with up to five core arguments.  The result is the value
// of rax.
func (c *Code) Call(args ...uint64) uint64 {
	var regs [5]uint64
	copy(regs[:], args)

	top := uintptr(unsafe.Pointer(&c.stack[0])) + uintptr(len(c.stack))
	return call(uintptr(unsafe.Pointer(&c.text[0])), top, &regs)
}

func (c *Code) Close() error {
	err := unix.Munmap(c.text)
	if e := unix.Munmap(c.stack); err == nil {
		err = e
	}
	return err
}

// Alloc32 maps zeroed memory within the low 4 GB, where compressed heap
// references can point.
func Alloc32(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_32BIT)
}

// Free memory returned by Alloc32.
func Free(b []byte) error {
	return unix.Munmap(b)
}
