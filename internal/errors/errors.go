// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"fmt"

	"golang.org/x/xerrors"
)

type inputError struct {
	text  string
	cause error
}

// Input error is caused by a malformed instruction graph, listing, or dex
// file.
func Input(text string) error {
	return &inputError{text, nil}
}

func Inputf(format string, args ...any) error {
	return &inputError{fmt.Sprintf(format, args...), nil}
}

func WrapInput(cause error, text string) error {
	return &inputError{text, cause}
}

func (e *inputError) Error() string {
	if e.cause != nil {
		return e.text + ": " + e.cause.Error()
	}
	return e.text
}

func (e *inputError) PublicError() string { return e.text }
func (e *inputError) InputError() bool    { return true }
func (e *inputError) Unwrap() error       { return e.cause }

// IsInput reports whether some error in the chain was caused by input.
func IsInput(err error) bool {
	var x interface{ InputError() bool }
	return xerrors.As(err, &x) && x.InputError()
}

// Wrapf adds context to an error, keeping the chain inspectable.
func Wrapf(err error, format string, args ...any) error {
	return xerrors.Errorf(format+": %w", append(args, err)...)
}
