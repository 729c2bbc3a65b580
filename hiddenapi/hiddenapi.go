// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hiddenapi marks the members of dex files with API restriction
// lists.  The list of each field and method is encoded in its access flags
// without changing their encoded size.
package hiddenapi

import (
	"bufio"
	"io"
	"os"

	"github.com/Gyoonus/deoptfuscator-sub021/internal"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/dex"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
	"github.com/Gyoonus/deoptfuscator-sub021/internal/pan"
	pkgerrors "github.com/pkg/errors"
)

// Signatures is a set of member signatures, such as
// "Ljava/lang/Object;->hashCode()I" or "Ljava/lang/String;->value:[C".
type Signatures map[string]struct{}

// ReadSignatures reads one signature per line.
func ReadSignatures(r io.Reader) (Signatures, error) {
	set := make(Signatures)

	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	for s.Scan() {
		set[s.Text()] = struct{}{}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func ReadSignaturesFile(filename string) (Signatures, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to open API list")
	}
	defer f.Close()

	set, err := ReadSignatures(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading API list %s", filename)
	}
	return set, nil
}

func (set Signatures) Contains(signature string) bool {
	_, found := set[signature]
	return found
}

// Lists of restricted members.  Nil sets are empty.
type Lists struct {
	LightGreylist Signatures
	DarkGreylist  Signatures
	Blacklist     Signatures
}

// Classify returns the strictest list containing the signature.
func (l *Lists) Classify(signature string) List {
	switch {
	case l.Blacklist.Contains(signature):
		return Blacklist
	case l.DarkGreylist.Contains(signature):
		return DarkGreylist
	case l.LightGreylist.Contains(signature):
		return LightGreylist
	default:
		return Whitelist
	}
}

// Stats counts the members of each list.
type Stats [4]int

func (s *Stats) add(o Stats) {
	for i := range s {
		s[i] += o[i]
	}
}

// Hidden is the number of members which are not whitelisted.
func (s Stats) Hidden() int {
	return s[LightGreylist] + s[DarkGreylist] + s[Blacklist]
}

// Process encodes the lists into the access flags of every member of a
// standard dex image, and updates the header checksum.  The signature of
// every restricted member is passed to the hidden callback, if any.  The
// image may be partially modified on error.
func Process(image []byte, lists *Lists, hidden func(signature string)) (stats Stats, err error) {
	if internal.DontPanic() {
		defer func() { err = pan.Error(recover()) }()
	}

	stats = process(pan.Must(dex.Parse(image)), lists, hidden)
	return
}

func process(f *dex.File, lists *Lists, hidden func(string)) (stats Stats) {
	members := pan.Must(f.Members())

	for i := range members {
		m := &members[i]
		sig := m.Signature()
		l := lists.Classify(sig)

		flags, err := EncodeFlags(m.Flags, l)
		if err != nil {
			pan.Panic(errors.WrapInput(err, sig))
		}
		pan.Check(f.SetAccessFlags(m, flags))

		stats[l]++
		if l != Whitelist && hidden != nil {
			hidden(sig)
		}
	}

	f.UpdateChecksum()
	return
}

// ProcessFiles processes dex files in place.  Nothing is written unless all
// files are processed successfully.
func ProcessFiles(filenames []string, lists *Lists, hidden func(signature string)) (stats Stats, err error) {
	type output struct {
		name string
		data []byte
		mode os.FileMode
	}
	var outputs []output

	for _, name := range filenames {
		info, err := os.Stat(name)
		if err != nil {
			return stats, pkgerrors.Wrap(err, "unable to open dex file")
		}

		f, err := dex.ReadFile(name)
		if err != nil {
			return stats, errors.Wrapf(err, "open failed for %s", name)
		}

		s, err := processFile(f, lists, hidden)
		if err != nil {
			return stats, errors.Wrapf(err, "processing %s", name)
		}
		stats.add(s)

		outputs = append(outputs, output{name, f.Data, info.Mode().Perm()})
	}

	for _, o := range outputs {
		if err := os.WriteFile(o.name, o.data, o.mode); err != nil {
			return stats, pkgerrors.Wrapf(err, "writing %s", o.name)
		}
	}
	return stats, nil
}

func processFile(f *dex.File, lists *Lists, hidden func(string)) (stats Stats, err error) {
	if internal.DontPanic() {
		defer func() { err = pan.Error(recover()) }()
	}

	stats = process(f, lists, hidden)
	return
}
