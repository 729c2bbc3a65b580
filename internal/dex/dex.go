// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dex reads and patches the parts of standard dex files which carry
// member access flags.
package dex

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"
	"os"

	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	pkgerrors "github.com/pkg/errors"
)

const (
	headerSize    = 0x70
	endianTag     = 0x12345678
	checksumStart = 12 // adler32 covers everything after the checksum

	offChecksum    = 8
	offFileSize    = 32
	offHeaderLen   = 36
	offEndianTag   = 40
	offStringIDs   = 56
	offTypeIDs     = 64
	offProtoIDs    = 72
	offFieldIDs    = 80
	offMethodIDs   = 88
	offClassDefs   = 96
	offDataSection = 104

	stringIDSize = 4
	typeIDSize   = 4
	protoIDSize  = 12
	fieldIDSize  = 8
	methodIDSize = 8
	classDefSize = 32

	noIndex = 0xffffffff
)

var (
	standardMagic = []byte("dex\n")
	compactMagic  = []byte("cdex")
)

type section struct {
	size uint32
	off  uint32
}

// File is a parsed dex image.  Data is modified in place by the setters.
type File struct {
	Data []byte

	stringIDs section
	typeIDs   section
	protoIDs  section
	fieldIDs  section
	methodIDs section
	classDefs section
}

// ReadFile reads and parses a dex file.
func ReadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading dex file %s", filename)
	}
	return Parse(data)
}

// Parse a standard dex image.  The header checksum is verified.
func Parse(data []byte) (f *File, err error) {
	defer func() { err = pan.Error(recover()) }()

	f = &File{Data: data}
	f.parseHeader()
	return
}

func (f *File) u16(offset uint32) uint16 {
	f.check(offset, 2)
	return binary.LittleEndian.Uint16(f.Data[offset:])
}

func (f *File) u32(offset uint32) uint32 {
	f.check(offset, 4)
	return binary.LittleEndian.Uint32(f.Data[offset:])
}

func (f *File) check(offset, size uint32) {
	if uint64(offset)+uint64(size) > uint64(len(f.Data)) {
		pan.Panic(errors.Inputf("offset %#x is out of bounds", offset))
	}
}

func (f *File) section(offset uint32, itemSize uint32, name string) (s section) {
	s.size = f.u32(offset)
	s.off = f.u32(offset + 4)
	if s.size == 0 {
		return
	}
	if uint64(s.off)+uint64(s.size)*uint64(itemSize) > uint64(len(f.Data)) {
		pan.Panic(errors.Inputf("%s section exceeds file size", name))
	}
	return
}

func (f *File) parseHeader() {
	if len(f.Data) < headerSize {
		pan.Panic(errors.Input("file is too short for a dex header"))
	}

	magic := f.Data[:8]
	switch {
	case bytes.HasPrefix(magic, compactMagic):
		pan.Panic(errors.Input("expected a standard dex file, found compact dex"))
	case !bytes.HasPrefix(magic, standardMagic) || magic[7] != 0:
		pan.Panic(errors.Input("bad dex magic"))
	}
	version := string(magic[4:7])
	if version < "035" || version > "039" {
		pan.Panic(errors.Inputf("unsupported dex version %q", version))
	}

	if f.u32(offEndianTag) != endianTag {
		pan.Panic(errors.Input("unsupported dex endianness"))
	}
	if n := f.u32(offFileSize); n != uint32(len(f.Data)) {
		pan.Panic(errors.Inputf("header file size %d does not match actual size %d", n, len(f.Data)))
	}
	if n := f.u32(offHeaderLen); n != headerSize {
		pan.Panic(errors.Inputf("unexpected header size %#x", n))
	}
	if f.u32(offChecksum) != f.Checksum() {
		pan.Panic(errors.Input("dex checksum mismatch"))
	}

	f.stringIDs = f.section(offStringIDs, stringIDSize, "string_ids")
	f.typeIDs = f.section(offTypeIDs, typeIDSize, "type_ids")
	f.protoIDs = f.section(offProtoIDs, protoIDSize, "proto_ids")
	f.fieldIDs = f.section(offFieldIDs, fieldIDSize, "field_ids")
	f.methodIDs = f.section(offMethodIDs, methodIDSize, "method_ids")
	f.classDefs = f.section(offClassDefs, classDefSize, "class_defs")
}

// Checksum computes the adler32 checksum of the image.
func (f *File) Checksum() uint32 {
	return adler32.Checksum(f.Data[checksumStart:])
}

// UpdateChecksum recomputes the header checksum.
func (f *File) UpdateChecksum() {
	binary.LittleEndian.PutUint32(f.Data[offChecksum:], f.Checksum())
}

func (f *File) string(index uint32) string {
	if index >= f.stringIDs.size {
		pan.Panic(errors.Inputf("string index %d is out of range", index))
	}
	offset := f.u32(f.stringIDs.off + index*stringIDSize)
	_, n := readULEB128(f.Data, int(offset)) // utf16 length

	data := f.Data[int(offset)+n:]
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		pan.Panic(errors.Inputf("string %d is not terminated", index))
	}
	return string(data[:end])
}

func (f *File) typeDescriptor(index uint32) string {
	if index >= f.typeIDs.size {
		pan.Panic(errors.Inputf("type index %d is out of range", index))
	}
	return f.string(f.u32(f.typeIDs.off + index*typeIDSize))
}

// protoSignature formats a prototype like "(ILjava/lang/String;)V".
func (f *File) protoSignature(index uint32) string {
	if index >= f.protoIDs.size {
		pan.Panic(errors.Inputf("proto index %d is out of range", index))
	}
	item := f.protoIDs.off + index*protoIDSize
	returnType := f.u32(item + 4)
	paramsOff := f.u32(item + 8)

	var b bytes.Buffer
	b.WriteByte('(')
	if paramsOff != 0 {
		n := f.u32(paramsOff)
		if uint64(n)*2 > uint64(len(f.Data)) {
			pan.Panic(errors.Inputf("type list at %#x is too long", paramsOff))
		}
		f.check(paramsOff+4, n*2)
		for i := uint32(0); i < n; i++ {
			b.WriteString(f.typeDescriptor(uint32(f.u16(paramsOff + 4 + i*2))))
		}
	}
	b.WriteByte(')')
	b.WriteString(f.typeDescriptor(returnType))
	return b.String()
}
