// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package event

// Event handler is invoked from a single goroutine (per compilation).
type Event int

const (
	// Every instruction has a location summary.
	Built = Event(iota)

	// The register allocator's decisions have been applied and verified.
	Allocated

	// Machine code, including the constant area, has been generated.  The
	// text buffer may be inspected before the event handler returns.
	Emitted
)

func (e Event) String() string {
	switch e {
	case Built:
		return "Built"

	case Allocated:
		return "Allocated"

	case Emitted:
		return "Emitted"

	default:
		return "<invalid>"
	}
}
