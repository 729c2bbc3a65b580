// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/code"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/gen/debug"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	"github.com/pkg/errors"
)

// Site of a branch displacement.  Addr is the address immediately after the
// displacement field.
type Site struct {
	Addr int32
	Near bool // 8-bit displacement
}

// L is a label.  Address zero is valid, so binding is tracked separately.
type L struct {
	Sites []Site
	Addr  int32
	Bound bool
}

func (l *L) AddSite(addr int32, near bool) {
	l.Sites = append(l.Sites, Site{addr, near})
}

// Bind the label to the current text address and update the pending
// branches.
func (l *L) Bind(text *code.Buf) {
	l.BindAt(text, text.Addr)
}

// BindAt address, which may be at or before the current text address.
func (l *L) BindAt(text *code.Buf, addr int32) {
	if l.Bound {
		pan.Panic(errors.New("label bound twice"))
	}

	l.Addr = addr
	l.Bound = true

	for _, site := range l.Sites {
		UpdateSite(text, site, addr)
	}
	l.Sites = nil

	if debug.Enabled {
		debug.Printf("label bound at %#x", addr)
	}
}

// FinalAddr panics unless the label is bound.
func (l *L) FinalAddr() int32 {
	if !l.Bound {
		pan.Panic(errors.New("link address undefined while updating branch or table"))
	}
	return l.Addr
}

// UpdateSite patches a branch displacement to point to addr.
func UpdateSite(text *code.Buf, site Site, addr int32) {
	disp := addr - site.Addr

	if site.Near {
		if uint32(disp+128) > 255 {
			pan.Panic(errors.Errorf("near branch at %#x cannot reach %#x", site.Addr, addr))
		}
		text.Bytes()[site.Addr-1] = uint8(int8(disp))
	} else {
		text.PutInt32At(site.Addr, disp)
	}
}
