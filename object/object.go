// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object holds the output of the code generator.
package object

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// CompiledMethod is the machine code of one method and its metadata.
type CompiledMethod struct {
	Name string `msgpack:"name"`

	// Code includes the constant area.
	Code []byte `msgpack:"code"`

	FrameSize     uint32 `msgpack:"frame"`
	CoreSpillMask uint32 `msgpack:"corespills"`
	FpSpillMask   uint32 `msgpack:"fpspills"`

	Patches   []Patch    `msgpack:"patches,omitempty"`
	JitRoots  []JitRoot  `msgpack:"jitroots,omitempty"`
	StackMaps []StackMap `msgpack:"stackmaps,omitempty"`

	SlowPaths SlowPathStats `msgpack:"slowpaths"`
}

// SlowPathStats counts out-of-line code blocks by kind.
type SlowPathStats struct {
	Total  int            `msgpack:"total"`
	ByKind map[string]int `msgpack:"kinds,omitempty"`
}

func (s *SlowPathStats) Add(kind string) {
	if s.ByKind == nil {
		s.ByKind = make(map[string]int)
	}
	s.ByKind[kind]++
	s.Total++
}

const BundleVersion = 1

// Bundle of compiled methods.
type Bundle struct {
	Version int              `msgpack:"version"`
	Methods []CompiledMethod `msgpack:"methods"`
}

func (b *Bundle) Encode(w io.Writer) error {
	if b.Version == 0 {
		b.Version = BundleVersion
	}
	return msgpack.NewEncoder(w).Encode(b)
}

func DecodeBundle(r io.Reader) (*Bundle, error) {
	b := new(Bundle)
	if err := msgpack.NewDecoder(r).Decode(b); err != nil {
		return nil, err
	}
	return b, nil
}
