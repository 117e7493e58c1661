// Copyright 2025 Real Good Apps, LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package eval

import (
	"errors"
	"fmt"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// ErrDivideByZero is returned by Program.Run when a
// division or modulo encounters a zero divisor. It is
// not part of the tolerated fault set: Invoke propagates
// it even when strict is false.
var ErrDivideByZero = errors.New("division by zero")

// NullError is the fault produced when an operation
// dereferences a null operand: member access, indexing,
// an ordered comparison, arithmetic, or a builtin applied
// to null. Invoke absorbs it unless strict is set.
type NullError struct {
	// At is the expression whose operand was null.
	At expr.Node
}

func (e *NullError) Error() string {
	if e.At == nil {
		return "null operand"
	}
	return fmt.Sprintf("null operand in %q", expr.ToString(e.At))
}

// ArgError is the fault produced when an operand,
// builtin argument, or program input has a kind the
// operation cannot use. Invoke absorbs it unless
// strict is set.
type ArgError struct {
	// At is the expression that rejected its operand;
	// it is nil when the program input itself was rejected.
	At  expr.Node
	Msg string
}

func (e *ArgError) Error() string {
	if e.At == nil {
		return "invalid argument: " + e.Msg
	}
	return fmt.Sprintf("cannot evaluate %q: %s", expr.ToString(e.At), e.Msg)
}

func errnull(at expr.Node) *NullError {
	return &NullError{At: at}
}

func errarg(at expr.Node, f string, args ...any) *ArgError {
	return &ArgError{At: at, Msg: fmt.Sprintf(f, args...)}
}

// tolerated returns whether err is part of the fault set
// that non-strict invocation converts into an absent Result
// (see Invoke).
func tolerated(err error) bool {
	var ne *NullError
	if errors.As(err, &ne) {
		return true
	}
	var ae *ArgError
	return errors.As(err, &ae)
}
