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

// RewriteError is the error type returned by Substitute
// and Validate when an expression tree is structurally
// invalid. A RewriteError indicates a malformed tree
// (a bug in whatever constructed it), so callers should
// treat it as fatal rather than retry.
type RewriteError struct {
	At  Node
	Msg string
}

func (e *RewriteError) Error() string {
	if e.At == nil {
		return "invalid expression: " + e.Msg
	}
	return fmt.Sprintf("invalid expression %q: %s", ToString(e.At), e.Msg)
}

func errrewrite(at Node, msg string) *RewriteError {
	return &RewriteError{At: at, Msg: msg}
}

func errrewritef(at Node, f string, args ...any) *RewriteError {
	return &RewriteError{At: at, Msg: fmt.Sprintf(f, args...)}
}

// Validate checks that e is structurally well-formed:
// no missing children, no unknown operators, and no
// lambda that re-binds a parameter already bound by an
// enclosing lambda. It returns a *RewriteError describing
// the first problem found, or nil.
//
// Validate does not type-check; see Check.
func Validate(e Node) error {
	if e == nil {
		return errrewrite(nil, "nil expression")
	}
	if err := validTree(e, nil); err != nil {
		return err
	}
	return nil
}

func validTree(e Node, bound []uint64) *RewriteError {
	switch n := e.(type) {
	case Bool, Integer, Float, String, Null:
		return nil
	case *Timestamp:
		if n == nil {
			return errrewrite(nil, "nil timestamp node")
		}
		return nil
	case *Param:
		if n == nil {
			return errrewrite(nil, "nil parameter node")
		}
		return nil
	case *Lambda:
		if n == nil {
			return errrewrite(nil, "nil lambda node")
		}
		if n.Param == nil {
			return errrewrite(n, "lambda with no parameter")
		}
		if n.Body == nil {
			return errrewrite(n, "lambda with no body")
		}
		for _, id := range bound {
			if id == n.Param.id {
				return errrewritef(n, "parameter %s is bound twice", QuoteID(n.Param.Name))
			}
		}
		return validTree(n.Body, append(bound, n.Param.id))
	case *Dot:
		if n == nil {
			return errrewrite(nil, "nil member access node")
		}
		if n.Inner == nil {
			return errrewrite(n, "member access of nil expression")
		}
		if n.Field == "" {
			return errrewrite(n, "member access with empty field name")
		}
		return validTree(n.Inner, bound)
	case *Index:
		if n == nil {
			return errrewrite(nil, "nil index node")
		}
		if n.Inner == nil || n.Offset == nil {
			return errrewrite(n, "index with nil expression")
		}
		if err := validTree(n.Inner, bound); err != nil {
			return err
		}
		return validTree(n.Offset, bound)
	case *Not:
		if n == nil {
			return errrewrite(nil, "nil NOT node")
		}
		if n.Expr == nil {
			return errrewrite(n, "NOT of nil expression")
		}
		return validTree(n.Expr, bound)
	case *Logical:
		if n == nil {
			return errrewrite(nil, "nil logical node")
		}
		if n.Op < OpAnd || n.Op > OpXor {
			return errrewritef(n, "unknown logical op %d", int(n.Op))
		}
		if n.Left == nil || n.Right == nil {
			return errrewritef(n, "%s with nil operand", n.Op)
		}
		if err := validTree(n.Left, bound); err != nil {
			return err
		}
		return validTree(n.Right, bound)
	case *Comparison:
		if n == nil {
			return errrewrite(nil, "nil comparison node")
		}
		if n.Op < Equals || n.Op > GreaterEquals {
			return errrewritef(n, "unknown comparison op %d", int(n.Op))
		}
		if n.Left == nil || n.Right == nil {
			return errrewritef(n, "%s with nil operand", n.Op)
		}
		if err := validTree(n.Left, bound); err != nil {
			return err
		}
		return validTree(n.Right, bound)
	case *Arithmetic:
		if n == nil {
			return errrewrite(nil, "nil arithmetic node")
		}
		if n.Op < AddOp || n.Op > BitXorOp {
			return errrewritef(n, "unknown arithmetic op %d", int(n.Op))
		}
		if n.Left == nil || n.Right == nil {
			return errrewritef(n, "%s with nil operand", n.Op)
		}
		if err := validTree(n.Left, bound); err != nil {
			return err
		}
		return validTree(n.Right, bound)
	case *UnaryArith:
		if n == nil {
			return errrewrite(nil, "nil unary arithmetic node")
		}
		if n.Op < NegOp || n.Op > BitNotOp {
			return errrewritef(n, "unknown unary op %d", int(n.Op))
		}
		if n.Child == nil {
			return errrewritef(n, "unary %s of nil expression", n.Op)
		}
		return validTree(n.Child, bound)
	case *Builtin:
		if n == nil {
			return errrewrite(nil, "nil builtin node")
		}
		if n.Func.info() == nil {
			return errrewritef(n, "unknown builtin op %d", int(n.Func))
		}
		for i := range n.Args {
			if n.Args[i] == nil {
				return errrewritef(n, "%s with nil argument %d", n.Func, i)
			}
			if err := validTree(n.Args[i], bound); err != nil {
				return err
			}
		}
		return nil
	case *Conditional:
		if n == nil {
			return errrewrite(nil, "nil conditional node")
		}
		if n.If == nil || n.Then == nil || n.Else == nil {
			return errrewrite(n, "IF with nil clause")
		}
		if err := validTree(n.If, bound); err != nil {
			return err
		}
		if err := validTree(n.Then, bound); err != nil {
			return err
		}
		return validTree(n.Else, bound)
	default:
		return errrewritef(nil, "unexpected node type %T", e)
	}
}

// Substitute returns e with every reference to the binding p
// replaced by the expression with.
//
// References are matched by parameter identity (see Param),
// never by name, so parameters that merely share a spelling
// are left alone, and a lambda within e that re-binds the
// same identity shadows it (nothing under that lambda is
// rewritten). Substitute never mutates its arguments: the
// result shares all unchanged subtrees with e, and e itself
// is returned when it contains no reference to p.
//
// Both e and with are validated first; a malformed tree
// yields a *RewriteError and no substitution is performed.
func Substitute(e Node, p *Param, with Node) (Node, error) {
	if p == nil {
		return nil, errrewrite(nil, "substitution of nil parameter")
	}
	if with == nil {
		return nil, errrewrite(nil, "substitution with nil replacement")
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	if err := Validate(with); err != nil {
		return nil, err
	}
	return Rewrite(&substituter{param: p, with: with}, e), nil
}

type substituter struct {
	param *Param
	with  Node
}

func (s *substituter) Walk(n Node) Rewriter {
	// a lambda that re-binds the target identity
	// shadows it; do not descend
	if l, ok := n.(*Lambda); ok && l.Param != nil && l.Param.Is(s.param) {
		return nil
	}
	return s
}

func (s *substituter) Rewrite(n Node) Node {
	if q, ok := n.(*Param); ok && q.Is(s.param) {
		return s.with
	}
	return n
}

// visitfn adapts a function to the Visitor interface;
// returning false stops descent below the visited node.
type visitfn func(Node) bool

func (f visitfn) Visit(n Node) Visitor {
	if n == nil || !f(n) {
		return nil
	}
	return f
}

// Occurrences returns the number of references
// to the binding p within e, not counting any
// subtree in which p is shadowed by a lambda
// that re-binds it.
func Occurrences(e Node, p *Param) int {
	if e == nil || p == nil {
		return 0
	}
	count := 0
	Walk(visitfn(func(n Node) bool {
		if l, ok := n.(*Lambda); ok && l.Param != nil && l.Param.Is(p) {
			return false
		}
		if q, ok := n.(*Param); ok && q.Is(p) {
			count++
		}
		return true
	}), e)
	return count
}

// Free returns the parameters referenced within e
// that are not bound by any lambda within e, in
// order of first appearance.
func Free(e Node) []*Param {
	var out []*Param
	seen := make(map[uint64]bool)
	var rec func(e Node, bound []uint64)
	rec = func(e Node, bound []uint64) {
		switch n := e.(type) {
		case *Param:
			if n == nil {
				return
			}
			for _, id := range bound {
				if id == n.id {
					return
				}
			}
			if !seen[n.id] {
				seen[n.id] = true
				out = append(out, n)
			}
		case *Lambda:
			if n == nil || n.Body == nil {
				return
			}
			if n.Param != nil {
				bound = append(bound, n.Param.id)
			}
			rec(n.Body, bound)
		default:
			if e == nil {
				return
			}
			// enumerate direct children only; rec descends
			e.walk(visitfn(func(child Node) bool {
				rec(child, bound)
				return false
			}))
		}
	}
	rec(e, nil)
	return out
}
