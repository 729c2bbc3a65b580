// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pan is the panic zone shared by the code generator.  Deep code
// generation panics with an error value, and public entry points recover it
// with Error.
package pan

import (
	"fmt"
	"io"

	"import.name/pan"
)

type unexpectedEOF struct{}

func (unexpectedEOF) Error() string       { return "unexpected EOF" }
func (unexpectedEOF) PublicError() string { return "unexpected EOF" }
func (unexpectedEOF) InputError() bool    { return true }
func (unexpectedEOF) Unwrap() error       { return io.ErrUnexpectedEOF }

var z = new(pan.Zone)

var Check = z.Check
var Panic = z.Panic
var Wrap = z.Wrap

// Error converts a recovered value to an error.  Foreign panics are
// propagated.
func Error(x any) error {
	err := z.Error(x)
	if err == nil {
		return nil
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return unexpectedEOF{}
	}

	return err
}

func Must[T any](x T, err error) T {
	Check(err)
	return x
}

// Fatalf panics with a compiler-internal error.  It is used for states which
// indicate a bug in the code generator or in its caller, never for conditions
// of the compiled program.
func Fatalf(format string, args ...any) {
	Panic(fmt.Errorf("internal compiler error: "+format, args...))
}
