// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"strings"
)

// Features of the target processor.  The zero value is the baseline x86-64
// instruction set with SSE2.
type Features struct {
	POPCNT bool `mapstructure:"popcnt" msgpack:"popcnt"`
	LZCNT  bool `mapstructure:"lzcnt" msgpack:"lzcnt"`
	TZCNT  bool `mapstructure:"tzcnt" msgpack:"tzcnt"`
	SSE41  bool `mapstructure:"sse41" msgpack:"sse41"`
}

// Detect features of the host processor.
func Detect() Features {
	return detect()
}

func (f Features) String() string {
	var names []string
	if f.POPCNT {
		names = append(names, "popcnt")
	}
	if f.LZCNT {
		names = append(names, "lzcnt")
	}
	if f.TZCNT {
		names = append(names, "tzcnt")
	}
	if f.SSE41 {
		names = append(names, "sse4.1")
	}
	if len(names) == 0 {
		return "baseline"
	}
	return strings.Join(names, ",")
}
