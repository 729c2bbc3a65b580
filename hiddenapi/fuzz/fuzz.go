// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build gofuzz

package fuzz

import (
	"github.com/Gyoonus/deoptfuscator-sub021/hiddenapi"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/dex"
)

var lists = &hiddenapi.Lists{
	LightGreylist: hiddenapi.Signatures{"LFoo;->a:I": {}},
	DarkGreylist:  hiddenapi.Signatures{"LFoo;->b()V": {}},
	Blacklist:     hiddenapi.Signatures{"LFoo;->c(J)Z": {}},
}

func Fuzz(data []byte) int {
	image := append([]byte(nil), data...)

	// Checksums are rarely right by chance.
	if f, err := dex.Parse(image); err != nil {
		if len(image) < 12 {
			return -1
		}
		f = &dex.File{Data: image}
		f.UpdateChecksum()
	}

	if _, err := hiddenapi.Process(image, lists, nil); err != nil {
		return 0
	}

	f, err := dex.Parse(image)
	if err != nil {
		panic(err)
	}
	members, err := f.Members()
	if err != nil {
		panic(err)
	}
	for _, m := range members {
		if hiddenapi.DecodeFlags(m.Flags) != lists.Classify(m.Signature()) {
			panic(m.Signature())
		}
	}
	return 1
}
