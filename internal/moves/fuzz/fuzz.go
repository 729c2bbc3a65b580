// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build gofuzz

package fuzz

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/moves"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/test/movesim"
)

func Fuzz(data []byte) int {
	ms := movesim.Generate(data)
	if len(ms) == 0 {
		return -1
	}

	m := new(movesim.Machine)
	m.Fill(uint64(len(data)))
	expect := movesim.Expect(m, ms)

	var r moves.Resolver
	r.Resolve(ms, m)

	if err := movesim.Check(m, ms, expect); err != nil {
		panic(err)
	}
	return 1
}
