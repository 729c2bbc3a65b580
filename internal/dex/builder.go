// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dex

import (
	"encoding/binary"
	"unicode/utf8"
)

// Access flags.
const (
	AccPublic    = 0x1
	AccPrivate   = 0x2
	AccProtected = 0x4
	AccStatic    = 0x8
	AccFinal     = 0x10
	AccNative    = 0x100
	AccAbstract  = 0x400

	AccConstructor = 0x10000
)

// Builder writes minimal standard dex images: identifiers, prototypes and
// class data without code items or maps.
type Builder struct {
	Classes []Class
}

type Class struct {
	Descriptor string
	Fields     []Field
	Methods    []Method
}

// Field is static if its flags include AccStatic.
type Field struct {
	Name  string
	Type  string
	Flags uint32
}

type Method struct {
	Name    string
	Params  []string
	Return  string
	Flags   uint32
	Virtual bool
}

type protoKey struct {
	shorty uint32
	ret    uint32
	params []uint32
}

type tables struct {
	strings     []string
	stringIndex map[string]uint32

	types     []uint32
	typeIndex map[string]uint32

	protos     []protoKey
	protoIndex map[string]uint32

	fieldIDs  [][3]uint32 // class, type, name
	methodIDs [][3]uint32 // class, proto, name
}

func (t *tables) str(s string) uint32 {
	if i, found := t.stringIndex[s]; found {
		return i
	}
	i := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.stringIndex[s] = i
	return i
}

func (t *tables) typ(descriptor string) uint32 {
	if i, found := t.typeIndex[descriptor]; found {
		return i
	}
	i := uint32(len(t.types))
	t.types = append(t.types, t.str(descriptor))
	t.typeIndex[descriptor] = i
	return i
}

func shortyChar(descriptor string) byte {
	if descriptor[0] == '[' {
		return 'L'
	}
	return descriptor[0]
}

func (t *tables) proto(params []string, ret string) uint32 {
	shorty := []byte{shortyChar(ret)}
	key := "("
	for _, p := range params {
		shorty = append(shorty, shortyChar(p))
		key += p
	}
	key += ")" + ret

	if i, found := t.protoIndex[key]; found {
		return i
	}

	p := protoKey{shorty: t.str(string(shorty)), ret: t.typ(ret)}
	for _, param := range params {
		p.params = append(p.params, t.typ(param))
	}
	i := uint32(len(t.protos))
	t.protos = append(t.protos, p)
	t.protoIndex[key] = i
	return i
}

type encodedMember struct {
	index uint32
	flags uint32
}

// Bytes of the image with a valid checksum.
func (b *Builder) Bytes() []byte {
	t := &tables{
		stringIndex: make(map[string]uint32),
		typeIndex:   make(map[string]uint32),
		protoIndex:  make(map[string]uint32),
	}

	classLists := make([][4][]encodedMember, len(b.Classes))

	for ci, c := range b.Classes {
		class := t.typ(c.Descriptor)
		lists := &classLists[ci]

		for _, static := range []bool{true, false} {
			for _, f := range c.Fields {
				if (f.Flags&AccStatic != 0) != static {
					continue
				}
				index := uint32(len(t.fieldIDs))
				t.fieldIDs = append(t.fieldIDs, [3]uint32{class, t.typ(f.Type), t.str(f.Name)})
				list := 1
				if static {
					list = 0
				}
				lists[list] = append(lists[list], encodedMember{index, f.Flags})
			}
		}

		for _, virtual := range []bool{false, true} {
			for _, m := range c.Methods {
				if m.Virtual != virtual {
					continue
				}
				index := uint32(len(t.methodIDs))
				t.methodIDs = append(t.methodIDs, [3]uint32{class, t.proto(m.Params, m.Return), t.str(m.Name)})
				list := 2
				if virtual {
					list = 3
				}
				lists[list] = append(lists[list], encodedMember{index, m.Flags})
			}
		}
	}

	stringIDsOff := uint32(headerSize)
	typeIDsOff := stringIDsOff + uint32(len(t.strings))*stringIDSize
	protoIDsOff := typeIDsOff + uint32(len(t.types))*typeIDSize
	fieldIDsOff := protoIDsOff + uint32(len(t.protos))*protoIDSize
	methodIDsOff := fieldIDsOff + uint32(len(t.fieldIDs))*fieldIDSize
	classDefsOff := methodIDsOff + uint32(len(t.methodIDs))*methodIDSize
	dataOff := classDefsOff + uint32(len(b.Classes))*classDefSize

	out := make([]byte, dataOff)
	le := binary.LittleEndian

	align := func() {
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}

	for i, s := range t.strings {
		le.PutUint32(out[stringIDsOff+uint32(i)*stringIDSize:], uint32(len(out)))
		out = appendULEB128(out, uint32(utf8.RuneCountInString(s)))
		out = append(out, s...)
		out = append(out, 0)
	}

	for i, s := range t.types {
		le.PutUint32(out[typeIDsOff+uint32(i)*typeIDSize:], s)
	}

	align()
	for i, p := range t.protos {
		item := out[protoIDsOff+uint32(i)*protoIDSize:]
		le.PutUint32(item[0:], p.shorty)
		le.PutUint32(item[4:], p.ret)
		if len(p.params) > 0 {
			le.PutUint32(item[8:], uint32(len(out)))
			out = le.AppendUint32(out, uint32(len(p.params)))
			for _, param := range p.params {
				out = le.AppendUint16(out, uint16(param))
			}
			align()
		}
	}

	for i, id := range t.fieldIDs {
		item := out[fieldIDsOff+uint32(i)*fieldIDSize:]
		le.PutUint16(item[0:], uint16(id[0]))
		le.PutUint16(item[2:], uint16(id[1]))
		le.PutUint32(item[4:], id[2])
	}

	for i, id := range t.methodIDs {
		item := out[methodIDsOff+uint32(i)*methodIDSize:]
		le.PutUint16(item[0:], uint16(id[0]))
		le.PutUint16(item[2:], uint16(id[1]))
		le.PutUint32(item[4:], id[2])
	}

	for ci, c := range b.Classes {
		lists := classLists[ci]

		def := classDefsOff + uint32(ci)*classDefSize
		le.PutUint32(out[def+0:], t.typeIndex[c.Descriptor])
		le.PutUint32(out[def+4:], AccPublic)
		le.PutUint32(out[def+8:], noIndex)  // superclass
		le.PutUint32(out[def+16:], noIndex) // source file

		if len(lists[0])+len(lists[1])+len(lists[2])+len(lists[3]) == 0 {
			continue
		}

		le.PutUint32(out[def+24:], uint32(len(out)))
		for _, list := range lists {
			out = appendULEB128(out, uint32(len(list)))
		}
		for li, list := range lists {
			prev := uint32(0)
			for _, m := range list {
				out = appendULEB128(out, m.index-prev)
				out = appendULEB128(out, m.flags)
				if li >= 2 {
					out = appendULEB128(out, 0) // no code
				}
				prev = m.index
			}
		}
	}

	align()

	copy(out, "dex\n035\x00")
	le.PutUint32(out[offFileSize:], uint32(len(out)))
	le.PutUint32(out[offHeaderLen:], headerSize)
	le.PutUint32(out[offEndianTag:], endianTag)

	putSection := func(offset uint32, size int, sectionOff uint32) {
		if size > 0 {
			le.PutUint32(out[offset:], uint32(size))
			le.PutUint32(out[offset+4:], sectionOff)
		}
	}
	putSection(offStringIDs, len(t.strings), stringIDsOff)
	putSection(offTypeIDs, len(t.types), typeIDsOff)
	putSection(offProtoIDs, len(t.protos), protoIDsOff)
	putSection(offFieldIDs, len(t.fieldIDs), fieldIDsOff)
	putSection(offMethodIDs, len(t.methodIDs), methodIDsOff)
	putSection(offClassDefs, len(b.Classes), classDefsOff)
	putSection(offDataSection, len(out)-int(dataOff), dataOff)

	f := File{Data: out}
	f.UpdateChecksum()
	return out
}
