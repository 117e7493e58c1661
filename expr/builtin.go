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

package expr

import (
	"fmt"
	"strings"
)

// BuiltinOp identifies a builtin function
type BuiltinOp int

const (
	Upper BuiltinOp = iota // UPPER(str)
	Lower                  // LOWER(str)
	Trim                   // TRIM(str)
	Contains               // CONTAINS(str, substr)
	Length                 // LENGTH(str-or-list)
	Abs                    // ABS(num)
	Round                  // ROUND(num)
	Coalesce               // COALESCE(args...)

	maxBuiltin

	// Unspecified is not a valid builtin;
	// it is returned by name2Builtin for
	// unrecognized function names.
	Unspecified BuiltinOp = -1
)

type binfo struct {
	text string

	// argument count limits;
	// maxArgs == -1 means unbounded
	minArgs, maxArgs int

	// acceptable types for every argument
	argType TypeSet

	// result type; see BuiltinOp.ret
	// for ops with data-dependent results
	retType TypeSet
}

var builtinInfo = [maxBuiltin]binfo{
	Upper:    {text: "UPPER", minArgs: 1, maxArgs: 1, argType: StringType, retType: StringType},
	Lower:    {text: "LOWER", minArgs: 1, maxArgs: 1, argType: StringType, retType: StringType},
	Trim:     {text: "TRIM", minArgs: 1, maxArgs: 1, argType: StringType, retType: StringType},
	Contains: {text: "CONTAINS", minArgs: 2, maxArgs: 2, argType: StringType, retType: BoolType},
	Length:   {text: "LENGTH", minArgs: 1, maxArgs: 1, argType: StringType | ListType, retType: IntType},
	Abs:      {text: "ABS", minArgs: 1, maxArgs: 1, argType: NumericType, retType: NumericType},
	Round:    {text: "ROUND", minArgs: 1, maxArgs: 1, argType: NumericType, retType: NumericType},
	Coalesce: {text: "COALESCE", minArgs: 1, maxArgs: -1, argType: AnyType, retType: AnyType},
}

var name2BuiltinMap = make(map[string]BuiltinOp, maxBuiltin)

func init() {
	for op := BuiltinOp(0); op < maxBuiltin; op++ {
		name2BuiltinMap[builtinInfo[op].text] = op
	}
}

func name2Builtin(s string) BuiltinOp {
	if op, ok := name2BuiltinMap[s]; ok {
		return op
	}
	return Unspecified
}

func (b BuiltinOp) info() *binfo {
	if b >= 0 && b < maxBuiltin {
		return &builtinInfo[b]
	}
	return nil
}

func (b BuiltinOp) String() string {
	if info := b.info(); info != nil {
		return info.text
	}
	return fmt.Sprintf("<BuiltinOp=%d>", int(b))
}

func (b BuiltinOp) ret(args []Node, h Hint) TypeSet {
	if b == Coalesce {
		var out TypeSet
		for i := range args {
			out |= TypeOf(args[i], h)
		}
		if out == 0 {
			return AnyType
		}
		return out
	}
	if info := b.info(); info != nil {
		return info.retType
	}
	return AnyType
}

// Call yields op(args...).
func Call(op BuiltinOp, args ...Node) *Builtin {
	return &Builtin{Func: op, Args: args}
}

// CallByName yields 'fn(args...)'.
// Use Call when you know the BuiltinOp associated with fn.
func CallByName(fn string, args ...Node) (*Builtin, error) {
	op := name2Builtin(strings.ToUpper(fn))
	if op == Unspecified {
		return nil, fmt.Errorf("unrecognized builtin function %q", fn)
	}
	return Call(op, args...), nil
}

// CoalesceOf yields 'COALESCE(args...)', an expression
// that evaluates to the first non-null argument,
// or to null when every argument is null.
func CoalesceOf(args ...Node) *Builtin {
	return Call(Coalesce, args...)
}

func (b *Builtin) check(h Hint) error {
	info := b.Func.info()
	if info == nil {
		return errsyntaxf("unrecognized builtin function %q", b.Name())
	}
	if len(b.Args) < info.minArgs {
		return errsyntaxf("%s requires at least %d argument(s)", info.text, info.minArgs)
	}
	if info.maxArgs >= 0 && len(b.Args) > info.maxArgs {
		return errsyntaxf("%s accepts at most %d argument(s)", info.text, info.maxArgs)
	}
	for i := range b.Args {
		if b.Args[i] == nil {
			return errsyntaxf("%s: missing argument %d", info.text, i)
		}
		if !TypeOf(b.Args[i], h).AnyOf(info.argType) {
			return errtypef(b, "argument %d of %s is never a %s",
				i, info.text, info.argType)
		}
	}
	return nil
}
