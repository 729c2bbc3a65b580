// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !cgo

package disasm

import (
	"errors"
	"io"

	"github.com/Gyoonus/deoptfuscator-sub021/object"
)

func Fprint(w io.Writer, m *object.CompiledMethod) error {
	return errors.New("internal/disasm.Fprint requires cgo")
}
