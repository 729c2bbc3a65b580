// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !(linux && amd64)

package native

type Code struct{}

func Load(code []byte) (*Code, error)    { return nil, ErrUnsupported }
func (*Code) Call(args ...uint64) uint64 { panic(ErrUnsupported) }
func (*Code) Close() error               { return nil }
func Alloc32(size int) ([]byte, error)   { return nil, ErrUnsupported }
func Free(b []byte) error                { return nil }
