// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer implements code.Buffer for the machine code of compiled
// methods.
package buffer

type sizeError string

func (s sizeError) Error() string           { return string(s) }
func (s sizeError) PublicError() string     { return string(s) }
func (s sizeError) BufferSizeLimit() string { return string(s) }

// Errors implementing interface{ BufferSizeLimit() string }.
var (
	ErrSizeLimit  = sizeError("code size limit exceeded")
	ErrStaticSize = sizeError("static buffer capacity exceeded")
)
