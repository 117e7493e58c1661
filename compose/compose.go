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

// Package compose builds new lambdas out of existing ones.
//
// Every combinator follows the same recipe: the first operand's
// parameter survives, every other operand's body is rewritten
// (via expr.Substitute) so that its parameter references point
// at the surviving parameter, and the rewritten bodies are
// assembled into a new tree. Operands are never mutated; because
// expression trees are immutable, the produced lambda may share
// subtrees with its operands.
//
// Combinators do not recover from anything: a structurally
// invalid operand surfaces the underlying *expr.RewriteError
// unchanged.
package compose

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// Create wraps body into a lambda over p.
//
// Create fails if body references a parameter other than p;
// a lambda must be closed over its own parameter, and this is
// the single place where that invariant is enforced (all of the
// combinators in this package route their results through it).
func Create(p *expr.Param, body expr.Node) (*expr.Lambda, error) {
	if p == nil {
		return nil, errors.New("compose: nil parameter")
	}
	if body == nil {
		return nil, errors.New("compose: nil body")
	}
	l := &expr.Lambda{Param: p, Body: body}
	// validating the whole lambda (rather than just the body)
	// also rejects a body that re-binds p itself
	if err := expr.Validate(l); err != nil {
		return nil, err
	}
	free := expr.Free(body)
	for i := range free {
		if !free[i].Is(p) {
			return nil, fmt.Errorf("compose: body references foreign parameter %q", free[i].Name)
		}
	}
	return l, nil
}

// And combines two predicates into l AND r.
func And(l, r *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(l, r); err != nil {
		return nil, err
	}
	rbody, err := rebind(r, l.Param)
	if err != nil {
		return nil, err
	}
	return Create(l.Param, expr.And(l.Body, rbody))
}

// Or combines two predicates into l OR r.
func Or(l, r *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(l, r); err != nil {
		return nil, err
	}
	rbody, err := rebind(r, l.Param)
	if err != nil {
		return nil, err
	}
	return Create(l.Param, expr.Or(l.Body, rbody))
}

// Not negates a predicate.
func Not(l *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(l); err != nil {
		return nil, err
	}
	return Create(l.Param, &expr.Not{Expr: l.Body})
}

// Equal compares the output of l against the literal v,
// which must be one of nil, bool, a signed or unsigned
// integer, float32/float64, string, or time.Time.
func Equal(l *expr.Lambda, v any) (*expr.Lambda, error) {
	if err := operands(l); err != nil {
		return nil, err
	}
	c, err := constant(v)
	if err != nil {
		return nil, err
	}
	return Create(l.Param, expr.Compare(expr.Equals, l.Body, c))
}

// EqualExpr compares the outputs of l and r
// when applied to the same input.
func EqualExpr(l, r *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(l, r); err != nil {
		return nil, err
	}
	rbody, err := rebind(r, l.Param)
	if err != nil {
		return nil, err
	}
	return Create(l.Param, expr.Compare(expr.Equals, l.Body, rbody))
}

// IfThenElse selects between then and els based on test:
// the produced lambda evaluates then's body when test's body
// is true and els's body otherwise. The surviving parameter
// is test's.
func IfThenElse(test, then, els *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(test, then, els); err != nil {
		return nil, err
	}
	thenBody, err := rebind(then, test.Param)
	if err != nil {
		return nil, err
	}
	elsBody, err := rebind(els, test.Param)
	if err != nil {
		return nil, err
	}
	return Create(test.Param, expr.If(test.Body, thenBody, elsBody))
}

// Pipe feeds the output of src into dst, producing a lambda
// over src's parameter that computes dst(src(input)).
//
// The composition is a splice: src's entire body is substituted
// for every reference to dst's parameter, so if dst references
// its parameter k times, src's body appears k times in the
// result. Pipe never introduces sharing or memoization to avoid
// that duplication; the produced tree is exactly the spliced one.
func Pipe(src, dst *expr.Lambda) (*expr.Lambda, error) {
	if err := operands(src, dst); err != nil {
		return nil, err
	}
	body, err := expr.Substitute(dst.Body, dst.Param, src.Body)
	if err != nil {
		return nil, err
	}
	return Create(src.Param, body)
}

// operands rejects nil lambdas and lambdas
// missing their parameter or body
func operands(ls ...*expr.Lambda) error {
	for i := range ls {
		if ls[i] == nil {
			return errors.New("compose: nil lambda operand")
		}
		if ls[i].Param == nil {
			return errors.New("compose: lambda with nil parameter")
		}
		if ls[i].Body == nil {
			return errors.New("compose: lambda with nil body")
		}
	}
	return nil
}

// rebind rewrites l's body so that references to
// l's parameter reference onto instead
func rebind(l *expr.Lambda, onto *expr.Param) (expr.Node, error) {
	if l.Param.Is(onto) {
		return l.Body, nil
	}
	return expr.Substitute(l.Body, l.Param, onto)
}

func constant(v any) (expr.Node, error) {
	switch v := v.(type) {
	case nil:
		return expr.Null{}, nil
	case bool:
		return expr.Bool(v), nil
	case int:
		return expr.Integer(v), nil
	case int8:
		return expr.Integer(v), nil
	case int16:
		return expr.Integer(v), nil
	case int32:
		return expr.Integer(v), nil
	case int64:
		return expr.Integer(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("compose: literal %d overflows int64", v)
		}
		return expr.Integer(v), nil
	case uint8:
		return expr.Integer(v), nil
	case uint16:
		return expr.Integer(v), nil
	case uint32:
		return expr.Integer(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("compose: literal %d overflows int64", v)
		}
		return expr.Integer(v), nil
	case float32:
		return expr.Float(v), nil
	case float64:
		return expr.Float(v), nil
	case string:
		return expr.String(v), nil
	case time.Time:
		return &expr.Timestamp{Value: v}, nil
	default:
		return nil, fmt.Errorf("compose: cannot use %T as a literal", v)
	}
}
