// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build amd64 && !nocpudetect

package amd64

import (
	"golang.org/x/sys/cpu"
)

func detect() Features {
	return Features{
		POPCNT: cpu.X86.HasPOPCNT,
		LZCNT:  cpu.X86.HasBMI1 && cpu.X86.HasPOPCNT, // Intel && AMD
		TZCNT:  cpu.X86.HasBMI1,
		SSE41:  cpu.X86.HasSSE41,
	}
}
