// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors exports common error types without unnecessary dependencies.
package errors

import (
	internal "github.com/Gyoonus/deoptfuscator-sub021/internal/errors"
)

// InputError indicates that the error is caused by an unsupported or malformed
// instruction graph, listing, or dex file.  It may wrap an underlying error.
type InputError interface {
	error
	PublicError() string
	InputError() bool
}

// IsInput reports whether err or an error wrapped by it is an InputError.
func IsInput(err error) bool {
	return internal.IsInput(err)
}
