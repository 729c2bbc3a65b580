// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package condition

import (
	"github.com/Gyoonus/deoptfuscator-sub021/internal/isa/amd64/in"
)

// C is the comparison of a Condition or If instruction.  B, BE, A and AE are
// unsigned.
type C uint8

const (
	Eq = C(iota)
	Ne
	Lt
	Le
	Gt
	Ge
	B
	BE
	A
	AE
)

const NumConditions = 10

// Inverted condition yields the opposite result for the same operands.
var Inverted = [NumConditions]C{
	Eq: Ne,
	Ne: Eq,
	Lt: Ge,
	Le: Gt,
	Gt: Le,
	Ge: Lt,
	B:  AE,
	BE: A,
	A:  BE,
	AE: B,
}

// Swapped condition yields the same result with the operands exchanged.
var Swapped = [NumConditions]C{
	Eq: Eq,
	Ne: Ne,
	Lt: Gt,
	Le: Ge,
	Gt: Lt,
	Ge: Le,
	B:  A,
	BE: AE,
	A:  B,
	AE: BE,
}

var integerCCs = [NumConditions]in.CC{
	Eq: in.CCE,
	Ne: in.CCNE,
	Lt: in.CCL,
	Le: in.CCLE,
	Gt: in.CCG,
	Ge: in.CCGE,
	B:  in.CCB,
	BE: in.CCBE,
	A:  in.CCA,
	AE: in.CCAE,
}

// Floating-point comparisons set the flags like unsigned integer ones.
var fpCCs = [NumConditions]in.CC{
	Eq: in.CCE,
	Ne: in.CCNE,
	Lt: in.CCB,
	Le: in.CCBE,
	Gt: in.CCA,
	Ge: in.CCAE,
	B:  in.CCB,
	BE: in.CCBE,
	A:  in.CCA,
	AE: in.CCAE,
}

// IntegerCC after cmp or test.
func (c C) IntegerCC() in.CC { return integerCCs[c] }

// FpCC after ucomiss or ucomisd.  The parity flag must be checked
// separately.
func (c C) FpCC() in.CC { return fpCCs[c] }

func (c C) Opposite() C { return Inverted[c] }
func (c C) Swap() C     { return Swapped[c] }

// Unsigned comparison.
func (c C) Unsigned() bool { return c >= B }

// Eval the condition for integer operands.
func (c C) Eval(x, y int64) bool {
	switch c {
	case Eq:
		return x == y
	case Ne:
		return x != y
	case Lt:
		return x < y
	case Le:
		return x <= y
	case Gt:
		return x > y
	case Ge:
		return x >= y
	case B:
		return uint64(x) < uint64(y)
	case BE:
		return uint64(x) <= uint64(y)
	case A:
		return uint64(x) > uint64(y)
	case AE:
		return uint64(x) >= uint64(y)
	}
	panic(c)
}

var strings = [NumConditions]string{
	Eq: "eq",
	Ne: "ne",
	Lt: "lt",
	Le: "le",
	Gt: "gt",
	Ge: "ge",
	B:  "b",
	BE: "be",
	A:  "a",
	AE: "ae",
}

func (c C) String() string {
	if int(c) < len(strings) {
		return strings[c]
	}
	return "<invalid condition>"
}

// Parse condition name.
func Parse(s string) (C, bool) {
	for i, name := range strings {
		if name == s {
			return C(i), true
		}
	}
	return 0, false
}
