// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package native runs generated leaf methods on the host.  Arguments are
// passed in the managed core argument registers and the method register is
// null.  Only linux/amd64 is supported; elsewhere Load fails with
// ErrUnsupported.
package native

import (
	"errors"
)

var ErrUnsupported = errors.New("native execution is not supported on this platform")

const stackSize = 65536
