// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

// Package disasm prints compiled methods in AT&T syntax.
package disasm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gyoonus/deoptfuscator-sub021/object"
	"github.com/bnagy/gapstone"
)

// Fprint a listing of the method's code.  Branch targets are labeled,
// safepoints and linker patches are annotated, and the constant area is
// dumped as bytes.
func Fprint(w io.Writer, m *object.CompiledMethod) (err error) {
	engine, err := gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_64)
	if err != nil {
		return
	}
	defer engine.Close()

	err = engine.SetOption(gapstone.CS_OPT_SYNTAX, gapstone.CS_OPT_SYNTAX_ATT)
	if err != nil {
		return
	}

	insns, err := engine.Disasm(m.Code, 0, 0)
	if err != nil {
		insns = nil // constant area or empty code
	}

	targets := map[uint]string{
		0: m.Name,
	}
	sequence := 0

	for i := range insns {
		insn := &insns[i]

		switch {
		case strings.HasPrefix(insn.Mnemonic, "j"):
		case strings.HasPrefix(insn.Mnemonic, "call"):
		default:
			continue
		}

		addr, err := strconv.ParseUint(insn.OpStr, 0, 32)
		if err != nil {
			continue // indirect
		}

		name, found := targets[uint(addr)]
		if !found {
			name = fmt.Sprintf(".L%d", sequence)
			sequence++
			targets[uint(addr)] = name
		}
		insn.OpStr = name
	}

	notes := make(map[uint][]string)
	for _, sm := range m.StackMaps {
		notes[uint(sm.NativePC)] = append(notes[uint(sm.NativePC)], fmt.Sprintf("safepoint dex_pc=%d", sm.DexPC))
	}

	var end uint
	for _, insn := range insns {
		if name, found := targets[insn.Address]; found {
			if !strings.HasPrefix(name, ".") {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", name)
		}

		end = insn.Address + insn.Size

		var comments []string
		for _, p := range m.Patches {
			if off := uint(p.CodeOffset); off >= insn.Address && off < end {
				comments = append(comments, fmt.Sprintf("patch %s dex=%d index=%d", p.Kind, p.DexFile, p.TargetIndex))
			}
		}
		for _, r := range m.JitRoots {
			if off := uint(r.CodeOffset); off >= insn.Address && off < end {
				comments = append(comments, fmt.Sprintf("jit root %d", r.RootIndex))
			}
		}
		comments = append(comments, notes[end]...)

		if len(comments) > 0 {
			fmt.Fprintf(w, "\t%s\t%s\t# %s\n", insn.Mnemonic, insn.OpStr, strings.Join(comments, ", "))
		} else {
			fmt.Fprintf(w, "\t%s\t%s\n", insn.Mnemonic, insn.OpStr)
		}
	}

	if rest := m.Code[end:]; len(rest) > 0 {
		fmt.Fprintf(w, "\n.data %#x:\n", end)
		for len(rest) > 0 {
			n := 16
			if n > len(rest) {
				n = len(rest)
			}
			fmt.Fprintf(w, "\t.byte\t% x\n", rest[:n])
			rest = rest[n:]
		}
	}

	fmt.Fprintln(w)
	return
}
