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
)

// TypeError is the error type returned
// from Check when an expression is ill-typed.
type TypeError struct {
	At  Node
	Msg string
}

// SyntaxError is the error type
// returned from Check when an
// expression has illegal syntax.
type SyntaxError struct {
	Msg string
}

// Error implements error
func (t *TypeError) Error() string {
	return fmt.Sprintf("%q is ill-typed: %s", ToString(t.At), t.Msg)
}

func (s *SyntaxError) Error() string {
	return s.Msg
}

func errtype(e Node, msg string) *TypeError {
	return &TypeError{At: e, Msg: msg}
}

func errtypef(e Node, f string, args ...any) *TypeError {
	return &TypeError{At: e, Msg: fmt.Sprintf(f, args...)}
}

func errsyntax(msg string) *SyntaxError {
	return &SyntaxError{Msg: msg}
}

func errsyntaxf(f string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(f, args...)}
}

// Hint is an argument that can be
// supplied to type-checking operations
// to refine the type of nodes that have
// types that would otherwise be unknown.
type Hint interface {
	TypeOf(e Node) TypeSet
}

// HintFn is a function that implements Hint
type HintFn func(Node) TypeSet

func (h HintFn) TypeOf(e Node) TypeSet {
	return h(e)
}

// NoHint is the empty Hint
func NoHint(Node) TypeSet {
	return AnyType
}

type checker interface {
	check(Hint) error
}

type checkwalk struct {
	errors []error
	hint   Hint
}

func (c *checkwalk) Visit(n Node) Visitor {
	if n == nil {
		return nil
	}
	ce, ok := n.(checker)
	if ok {
		err := ce.check(c.hint)
		if err != nil {
			c.errors = append(c.errors, err)
			return nil
		}
	}
	return c
}

func combine(err []error) error {
	if len(err) == 1 {
		return err[0]
	}
	return fmt.Errorf("%w and %d other errors", err[0], len(err)-1)
}

// Check walks the AST given by n
// and performs rudimentary sanity-checking
// on all of the values in the tree.
func Check(n Node) error {
	return CheckHint(n, HintFn(NoHint))
}

// CheckHint performs the same sanity-checking
// as Check, except that it uses additional type-hint
// information.
func CheckHint(n Node, h Hint) error {
	c := &checkwalk{hint: h}
	Walk(c, n)
	if c.errors == nil {
		return nil
	}
	return combine(c.errors)
}

func (n *Not) check(h Hint) error {
	if n.Expr == nil {
		return errsyntax("NOT of missing expression")
	}
	if !TypeOf(n.Expr, h).Logical() {
		return errtype(n, "can't compute NOT of non-logical expression")
	}
	return nil
}

func (l *Logical) check(h Hint) error {
	if l.Left == nil || l.Right == nil {
		return errsyntaxf("%s with missing operand", l.Op)
	}
	if !TypeOf(l.Left, h).Logical() {
		return errtypef(l, "lhs of %s is never a boolean", l.Op)
	}
	if !TypeOf(l.Right, h).Logical() {
		return errtypef(l, "rhs of %s is never a boolean", l.Op)
	}
	return nil
}

func (c *Comparison) check(h Hint) error {
	if c.Left == nil || c.Right == nil {
		return errsyntaxf("%s with missing operand", c.Op)
	}
	lt := TypeOf(c.Left, h)
	rt := TypeOf(c.Right, h)
	if !lt.Comparable(rt) {
		return errtypef(c, "lhs (type %s) and rhs (type %s) are never comparable", lt, rt)
	}
	if c.Op.Ordinal() && (!lt.AnyOf(OrdinalType) || !rt.AnyOf(OrdinalType)) {
		return errtypef(c, "operands of %s do not have an ordering", c.Op)
	}
	return nil
}

func (a *Arithmetic) check(h Hint) error {
	if a.Left == nil || a.Right == nil {
		return errsyntaxf("%s with missing operand", a.Op)
	}
	want := NumericType
	if a.Op >= BitAndOp {
		want = IntType
	}
	if !TypeOf(a.Left, h).AnyOf(want) {
		return errtypef(a, "lhs of %s is never a %s", a.Op, want)
	}
	if !TypeOf(a.Right, h).AnyOf(want) {
		return errtypef(a, "rhs of %s is never a %s", a.Op, want)
	}
	return nil
}

func (u *UnaryArith) check(h Hint) error {
	if u.Child == nil {
		return errsyntaxf("unary %s of missing expression", u.Op)
	}
	want := NumericType
	if u.Op == BitNotOp {
		want = IntType
	}
	if !TypeOf(u.Child, h).AnyOf(want) {
		return errtypef(u, "operand of unary %s is never a %s", u.Op, want)
	}
	return nil
}

func (d *Dot) check(h Hint) error {
	if d.Inner == nil {
		return errsyntax("member access of missing expression")
	}
	if d.Field == "" {
		return errsyntax("member access with empty field name")
	}
	if !TypeOf(d.Inner, h).AnyOf(StructType) {
		return errtypef(d, "lhs of .%s is never a record", d.Field)
	}
	return nil
}

func (i *Index) check(h Hint) error {
	if i.Inner == nil || i.Offset == nil {
		return errsyntax("list index with missing expression")
	}
	if !TypeOf(i.Inner, h).AnyOf(ListType) {
		return errtype(i, "indexed expression is never a list")
	}
	if !TypeOf(i.Offset, h).AnyOf(IntType) {
		return errtype(i, "index expression is never an integer")
	}
	return nil
}

func (c *Conditional) check(h Hint) error {
	if c.If == nil || c.Then == nil || c.Else == nil {
		return errsyntax("IF with missing clause")
	}
	if !TypeOf(c.If, h).Logical() {
		return errtype(c, "condition of IF is never a boolean")
	}
	return nil
}

func (p *Param) check(Hint) error {
	if p.Name == "" {
		return errsyntax("parameter with empty name")
	}
	if p.Of == 0 {
		return errsyntaxf("parameter %q has an empty type set", p.Name)
	}
	return nil
}

func (l *Lambda) check(Hint) error {
	if l.Param == nil {
		return errsyntax("lambda with no parameter")
	}
	if l.Body == nil {
		return errsyntax("lambda with no body")
	}
	return nil
}
