// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
)

const debugEnabled = debug.Enabled

func debugPrintInsn(b []byte) {
	debug.Printf("insn: % x", b)
}
