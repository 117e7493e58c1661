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
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/exp/constraints"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// Program is a lambda compiled into a tree of closures.
//
// A Program is immutable once compiled and is safe for
// concurrent use: Run may be called from any number of
// goroutines.
type Program struct {
	param *expr.Param
	run   thunk
}

type thunk func(arg any) (any, error)

// Compile translates l into a Program.
//
// Compilation fails when l is nil or structurally invalid
// (*expr.RewriteError), when its body references a parameter
// other than l's own, when it contains a nested lambda, or
// when it calls an unknown builtin or calls a builtin with
// the wrong number of arguments. Faults that depend on the
// input value are not compile errors; they surface from Run.
func Compile(l *expr.Lambda) (*Program, error) {
	if l == nil {
		return nil, errors.New("eval: nil lambda")
	}
	if err := expr.Validate(l); err != nil {
		return nil, err
	}
	c := &compiler{param: l.Param}
	run, err := c.compile(l.Body)
	if err != nil {
		return nil, err
	}
	return &Program{param: l.Param, run: run}, nil
}

// Param returns the parameter the program's input binds to.
func (p *Program) Param() *expr.Param { return p.param }

// Run applies the program to arg.
//
// The argument is normalized first (see Normalize), so any
// of the Go kinds Normalize accepts may be passed directly.
// Faults are returned as errors and never panic; *NullError
// and *ArgError describe input-dependent faults, and
// ErrDivideByZero reports a zero divisor.
func (p *Program) Run(arg any) (any, error) {
	v, err := Normalize(arg)
	if err != nil {
		return nil, err
	}
	return p.run(v)
}

type compiler struct {
	param *expr.Param
}

func (c *compiler) compile(e expr.Node) (thunk, error) {
	if v, ok := expr.IsConstant(e); ok {
		return func(any) (any, error) { return v, nil }, nil
	}
	switch n := e.(type) {
	case *expr.Param:
		if !n.Is(c.param) {
			return nil, fmt.Errorf("eval: reference to foreign parameter %s", expr.ToString(n))
		}
		return func(arg any) (any, error) { return arg, nil }, nil
	case *expr.Lambda:
		return nil, errors.New("eval: cannot compile a nested lambda")
	case *expr.Dot:
		return c.dot(n)
	case *expr.Index:
		return c.index(n)
	case *expr.Not:
		return c.not(n)
	case *expr.Logical:
		return c.logical(n)
	case *expr.Comparison:
		return c.comparison(n)
	case *expr.Arithmetic:
		return c.arithmetic(n)
	case *expr.UnaryArith:
		return c.unary(n)
	case *expr.Builtin:
		return c.builtin(n)
	case *expr.Conditional:
		return c.conditional(n)
	default:
		return nil, fmt.Errorf("eval: cannot compile %T", e)
	}
}

func (c *compiler) dot(n *expr.Dot) (thunk, error) {
	inner, err := c.compile(n.Inner)
	if err != nil {
		return nil, err
	}
	return func(arg any) (any, error) {
		v, err := inner(arg)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errnull(n)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errarg(n, "cannot access a field of %s", kindof(v))
		}
		// absent fields read as null, so downstream
		// operations fault with *NullError rather than
		// the access itself
		return m[n.Field], nil
	}, nil
}

func (c *compiler) index(n *expr.Index) (thunk, error) {
	inner, err := c.compile(n.Inner)
	if err != nil {
		return nil, err
	}
	offset, err := c.compile(n.Offset)
	if err != nil {
		return nil, err
	}
	return func(arg any) (any, error) {
		v, err := inner(arg)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errnull(n)
		}
		list, ok := v.([]any)
		if !ok {
			return nil, errarg(n, "cannot index %s", kindof(v))
		}
		o, err := offset(arg)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, errnull(n)
		}
		i, ok := o.(int64)
		if !ok {
			return nil, errarg(n, "%s is not an index", kindof(o))
		}
		if i < 0 || i >= int64(len(list)) {
			return nil, errarg(n, "index %d out of range [0, %d)", i, len(list))
		}
		return list[i], nil
	}, nil
}

func (c *compiler) not(n *expr.Not) (thunk, error) {
	inner, err := c.compile(n.Expr)
	if err != nil {
		return nil, err
	}
	return func(arg any) (any, error) {
		v, err := inner(arg)
		b, err := asBool(n, v, err)
		if err != nil {
			return nil, err
		}
		return !b, nil
	}, nil
}

func (c *compiler) logical(n *expr.Logical) (thunk, error) {
	left, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case expr.OpAnd:
		// short-circuit: the right operand is not
		// evaluated when the left is false
		return func(arg any) (any, error) {
			lv, err := left(arg)
			b, err := asBool(n, lv, err)
			if err != nil {
				return nil, err
			}
			if !b {
				return false, nil
			}
			rv, err := right(arg)
			return asResult(asBool(n, rv, err))
		}, nil
	case expr.OpOr:
		return func(arg any) (any, error) {
			lv, err := left(arg)
			b, err := asBool(n, lv, err)
			if err != nil {
				return nil, err
			}
			if b {
				return true, nil
			}
			rv, err := right(arg)
			return asResult(asBool(n, rv, err))
		}, nil
	case expr.OpXor:
		return func(arg any) (any, error) {
			lv, err := left(arg)
			a, err := asBool(n, lv, err)
			if err != nil {
				return nil, err
			}
			rv, err := right(arg)
			b, err := asBool(n, rv, err)
			if err != nil {
				return nil, err
			}
			return a != b, nil
		}, nil
	case expr.OpXnor:
		return func(arg any) (any, error) {
			lv, err := left(arg)
			a, err := asBool(n, lv, err)
			if err != nil {
				return nil, err
			}
			rv, err := right(arg)
			b, err := asBool(n, rv, err)
			if err != nil {
				return nil, err
			}
			return a == b, nil
		}, nil
	default:
		return nil, fmt.Errorf("eval: unknown logical op %d", int(n.Op))
	}
}

func (c *compiler) comparison(n *expr.Comparison) (thunk, error) {
	left, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	if n.Op == expr.Equals || n.Op == expr.NotEquals {
		neq := n.Op == expr.NotEquals
		return func(arg any) (any, error) {
			a, err := left(arg)
			if err != nil {
				return nil, err
			}
			b, err := right(arg)
			if err != nil {
				return nil, err
			}
			eq, err := equalValues(n, a, b)
			if err != nil {
				return nil, err
			}
			return eq != neq, nil
		}, nil
	}
	return func(arg any) (any, error) {
		a, err := left(arg)
		if err != nil {
			return nil, err
		}
		b, err := right(arg)
		if err != nil {
			return nil, err
		}
		return ordered(n, n.Op, a, b)
	}, nil
}

func (c *compiler) arithmetic(n *expr.Arithmetic) (thunk, error) {
	left, err := c.compile(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(n.Right)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(arg any) (any, error) {
		a, err := left(arg)
		if err != nil {
			return nil, err
		}
		b, err := right(arg)
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, errnull(n)
		}
		if !isNumeric(a) || !isNumeric(b) {
			return nil, errarg(n, "cannot apply %s to %s and %s", op, kindof(a), kindof(b))
		}
		ai, aint := a.(int64)
		bi, bint := b.(int64)
		if op >= expr.BitAndOp {
			if !aint || !bint {
				return nil, errarg(n, "cannot apply %s to %s and %s", op, kindof(a), kindof(b))
			}
			switch op {
			case expr.BitAndOp:
				return ai & bi, nil
			case expr.BitOrOp:
				return ai | bi, nil
			default:
				return ai ^ bi, nil
			}
		}
		if aint && bint {
			switch op {
			case expr.AddOp:
				return ai + bi, nil
			case expr.SubOp:
				return ai - bi, nil
			case expr.MulOp:
				return ai * bi, nil
			case expr.DivOp:
				if bi == 0 {
					return nil, ErrDivideByZero
				}
				return ai / bi, nil
			default: // ModOp
				if bi == 0 {
					return nil, ErrDivideByZero
				}
				return ai % bi, nil
			}
		}
		af, bf := toFloat(a), toFloat(b)
		switch op {
		case expr.AddOp:
			return af + bf, nil
		case expr.SubOp:
			return af - bf, nil
		case expr.MulOp:
			return af * bf, nil
		case expr.DivOp:
			if bf == 0 {
				return nil, ErrDivideByZero
			}
			return af / bf, nil
		default: // ModOp
			if bf == 0 {
				return nil, ErrDivideByZero
			}
			return math.Mod(af, bf), nil
		}
	}, nil
}

func (c *compiler) unary(n *expr.UnaryArith) (thunk, error) {
	inner, err := c.compile(n.Child)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(arg any) (any, error) {
		v, err := inner(arg)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errnull(n)
		}
		if op == expr.BitNotOp {
			i, ok := v.(int64)
			if !ok {
				return nil, errarg(n, "cannot complement %s", kindof(v))
			}
			return ^i, nil
		}
		switch v := v.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		default:
			return nil, errarg(n, "cannot negate %s", kindof(v))
		}
	}, nil
}

func (c *compiler) builtin(n *expr.Builtin) (thunk, error) {
	args := make([]thunk, len(n.Args))
	for i := range n.Args {
		t, err := c.compile(n.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	str1 := func(fn func(string) string) (thunk, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("eval: %s requires exactly 1 argument", n.Func)
		}
		return func(arg any) (any, error) {
			v, err := args[0](arg)
			s, err := asString(n, v, err)
			if err != nil {
				return nil, err
			}
			return fn(s), nil
		}, nil
	}
	switch n.Func {
	case expr.Upper:
		return str1(strings.ToUpper)
	case expr.Lower:
		return str1(strings.ToLower)
	case expr.Trim:
		return str1(strings.TrimSpace)
	case expr.Contains:
		if len(args) != 2 {
			return nil, fmt.Errorf("eval: %s requires exactly 2 arguments", n.Func)
		}
		return func(arg any) (any, error) {
			sv, err := args[0](arg)
			s, err := asString(n, sv, err)
			if err != nil {
				return nil, err
			}
			subv, err := args[1](arg)
			sub, err := asString(n, subv, err)
			if err != nil {
				return nil, err
			}
			return strings.Contains(s, sub), nil
		}, nil
	case expr.Length:
		if len(args) != 1 {
			return nil, fmt.Errorf("eval: %s requires exactly 1 argument", n.Func)
		}
		return func(arg any) (any, error) {
			v, err := args[0](arg)
			if err != nil {
				return nil, err
			}
			switch v := v.(type) {
			case nil:
				return nil, errnull(n)
			case string:
				return int64(utf8.RuneCountInString(v)), nil
			case []any:
				return int64(len(v)), nil
			default:
				return nil, errarg(n, "cannot take the length of %s", kindof(v))
			}
		}, nil
	case expr.Abs:
		if len(args) != 1 {
			return nil, fmt.Errorf("eval: %s requires exactly 1 argument", n.Func)
		}
		return func(arg any) (any, error) {
			v, err := args[0](arg)
			if err != nil {
				return nil, err
			}
			switch v := v.(type) {
			case nil:
				return nil, errnull(n)
			case int64:
				if v < 0 {
					return -v, nil
				}
				return v, nil
			case float64:
				return math.Abs(v), nil
			default:
				return nil, errarg(n, "cannot take the absolute value of %s", kindof(v))
			}
		}, nil
	case expr.Round:
		if len(args) != 1 {
			return nil, fmt.Errorf("eval: %s requires exactly 1 argument", n.Func)
		}
		return func(arg any) (any, error) {
			v, err := args[0](arg)
			if err != nil {
				return nil, err
			}
			switch v := v.(type) {
			case nil:
				return nil, errnull(n)
			case int64:
				return v, nil
			case float64:
				return math.Round(v), nil
			default:
				return nil, errarg(n, "cannot round %s", kindof(v))
			}
		}, nil
	case expr.Coalesce:
		if len(args) == 0 {
			return nil, fmt.Errorf("eval: %s requires at least 1 argument", n.Func)
		}
		// arguments after the first non-null one
		// are not evaluated
		return func(arg any) (any, error) {
			for i := range args {
				v, err := args[i](arg)
				if err != nil {
					return nil, err
				}
				if v != nil {
					return v, nil
				}
			}
			return nil, nil
		}, nil
	default:
		return nil, fmt.Errorf("eval: unknown builtin %s", n.Func)
	}
}

func (c *compiler) conditional(n *expr.Conditional) (thunk, error) {
	test, err := c.compile(n.If)
	if err != nil {
		return nil, err
	}
	then, err := c.compile(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := c.compile(n.Else)
	if err != nil {
		return nil, err
	}
	// only the taken branch is evaluated
	return func(arg any) (any, error) {
		v, err := test(arg)
		b, err := asBool(n, v, err)
		if err != nil {
			return nil, err
		}
		if b {
			return then(arg)
		}
		return els(arg)
	}, nil
}

// asBool coerces the result of a sub-expression
// into a boolean operand
func asBool(at expr.Node, v any, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, errnull(at)
	}
	b, ok := v.(bool)
	if !ok {
		return false, errarg(at, "%s is not a bool", kindof(v))
	}
	return b, nil
}

func asResult(b bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

func asString(at expr.Node, v any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", errnull(at)
	}
	s, ok := v.(string)
	if !ok {
		return "", errarg(at, "%s is not a string", kindof(v))
	}
	return s, nil
}

// equalValues implements the equality doctrine: numeric
// kinds compare by value, null equals only null, values of
// different kinds are unequal, and containers do not admit
// equality at all.
func equalValues(at expr.Node, a, b any) (bool, error) {
	if isContainer(a) || isContainer(b) {
		return false, errarg(at, "cannot compare %s against %s", kindof(a), kindof(b))
	}
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv, nil
		case float64:
			return float64(av) == bv, nil
		}
		return false, nil
	case float64:
		switch bv := b.(type) {
		case int64:
			return av == float64(bv), nil
		case float64:
			return av == bv, nil
		}
		return false, nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv, nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv, nil
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv), nil
	}
	return false, nil
}

// ordered implements <, <=, > and >=; operands must be
// numeric (in any mix), both strings, or both timestamps
func ordered(at expr.Node, op expr.CmpOp, a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, errnull(at)
	}
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return orderedCmp(op, av, bv), nil
		case float64:
			return orderedCmp(op, float64(av), bv), nil
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return orderedCmp(op, av, float64(bv)), nil
		case float64:
			return orderedCmp(op, av, bv), nil
		}
	case string:
		if bv, ok := b.(string); ok {
			return orderedCmp(op, av, bv), nil
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch op {
			case expr.Less:
				return av.Before(bv), nil
			case expr.LessEquals:
				return !av.After(bv), nil
			case expr.Greater:
				return av.After(bv), nil
			default:
				return !av.Before(bv), nil
			}
		}
	}
	return nil, errarg(at, "cannot order %s against %s", kindof(a), kindof(b))
}

func orderedCmp[T constraints.Ordered](op expr.CmpOp, a, b T) bool {
	switch op {
	case expr.Less:
		return a < b
	case expr.LessEquals:
		return a <= b
	case expr.Greater:
		return a > b
	default:
		return a >= b
	}
}
