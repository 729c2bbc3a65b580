// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dex

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
)

// Member is a field or method declared in a class data item.
type Member struct {
	Class  string // descriptor of the declaring class
	Name   string
	Type   string // field type descriptor or method signature
	Method bool
	Flags  uint32

	flagsOff int
	flagsLen int
}

// Signature of the member as it appears in API lists:
// "Lpkg/Class;->name(I)V" or "Lpkg/Class;->name:I".
func (m *Member) Signature() string {
	if m.Method {
		return m.Class + "->" + m.Name + m.Type
	}
	return m.Class + "->" + m.Name + ":" + m.Type
}

// Members of all classes in class definition order.  Within a class, static
// fields come first, followed by instance fields, direct methods and virtual
// methods.
func (f *File) Members() (members []Member, err error) {
	defer func() { err = pan.Error(recover()) }()

	for i := uint32(0); i < f.classDefs.size; i++ {
		def := f.classDefs.off + i*classDefSize
		dataOff := f.u32(def + 24)
		if dataOff == 0 {
			continue
		}
		class := f.typeDescriptor(f.u32(def))
		members = f.appendClassMembers(members, class, int(dataOff))
	}
	return
}

func (f *File) appendClassMembers(members []Member, class string, offset int) []Member {
	var counts [4]uint32
	for i := range counts {
		x, n := readULEB128(f.Data, offset)
		offset += n
		counts[i] = x
	}

	for list, count := range counts {
		method := list >= 2
		var index uint32

		for j := uint32(0); j < count; j++ {
			diff, n := readULEB128(f.Data, offset)
			offset += n
			if j > 0 && diff == 0 {
				pan.Panic(errors.Inputf("duplicate member index in class %s", class))
			}
			index += diff

			flags, n := readULEB128(f.Data, offset)
			m := Member{
				Class:    class,
				Method:   method,
				Flags:    flags,
				flagsOff: offset,
				flagsLen: n,
			}
			offset += n

			if method {
				_, n = readULEB128(f.Data, offset) // code offset
				offset += n
				m.Name, m.Type = f.methodName(index, class)
			} else {
				m.Name, m.Type = f.fieldName(index, class)
			}
			members = append(members, m)
		}
	}
	return members
}

func (f *File) fieldName(index uint32, class string) (name, typ string) {
	if index >= f.fieldIDs.size {
		pan.Panic(errors.Inputf("field index %d is out of range", index))
	}
	item := f.fieldIDs.off + index*fieldIDSize
	if f.typeDescriptor(uint32(f.u16(item))) != class {
		pan.Panic(errors.Inputf("field %d is not declared by %s", index, class))
	}
	return f.string(f.u32(item + 4)), f.typeDescriptor(uint32(f.u16(item + 2)))
}

func (f *File) methodName(index uint32, class string) (name, signature string) {
	if index >= f.methodIDs.size {
		pan.Panic(errors.Inputf("method index %d is out of range", index))
	}
	item := f.methodIDs.off + index*methodIDSize
	if f.typeDescriptor(uint32(f.u16(item))) != class {
		pan.Panic(errors.Inputf("method %d is not declared by %s", index, class))
	}
	return f.string(f.u32(item + 4)), f.protoSignature(uint32(f.u16(item + 2)))
}

// SetAccessFlags overwrites the encoded flags of a member in place.  The
// encoded size must not change.  The checksum is not updated.
func (f *File) SetAccessFlags(m *Member, flags uint32) error {
	if uleb128Size(flags) != uleb128Size(m.Flags) || uleb128Size(flags) > m.flagsLen {
		return errors.Inputf("access flags %#x of %s cannot be re-encoded in place", flags, m.Signature())
	}
	putULEB128(f.Data[m.flagsOff:m.flagsOff+m.flagsLen], flags)
	m.Flags = flags
	return nil
}
