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
	"errors"
	"fmt"
	"testing"
)

// construct a path expression rooted at p
func path(p *Param, fields ...string) Node {
	cur := Node(p)
	for i := range fields {
		cur = &Dot{Inner: cur, Field: fields[i]}
	}
	return cur
}

func TestSubstitute(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("y", StructType)

	tests := []struct {
		expr Node  // tree to rewrite
		with Node  // replacement for p
		want Node  // expected result, with q in place of p
		hits int   // references to p in expr
	}{
		{
			expr: Compare(Equals, path(p, "Age"), Integer(30)),
			with: q,
			want: Compare(Equals, path(q, "Age"), Integer(30)),
			hits: 1,
		},
		{
			expr: And(
				Compare(GreaterEquals, path(p, "Age"), Integer(18)),
				Compare(Equals, path(p, "Name"), String("Sam")),
			),
			with: q,
			want: And(
				Compare(GreaterEquals, path(q, "Age"), Integer(18)),
				Compare(Equals, path(q, "Name"), String("Sam")),
			),
			hits: 2,
		},
		{
			// replacement may be an arbitrary expression
			expr: Compare(Less, path(p, "Score"), Integer(10)),
			with: path(q, "Inner", "Record"),
			want: Compare(Less, &Dot{Inner: path(q, "Inner", "Record"), Field: "Score"}, Integer(10)),
			hits: 1,
		},
		{
			// every occurrence is replaced
			expr: Or(
				&Not{Expr: path(p, "Active")},
				And(path(p, "Active"), Compare(Greater, Add(path(p, "A"), path(p, "B")), Integer(0))),
			),
			with: q,
			want: Or(
				&Not{Expr: path(q, "Active")},
				And(path(q, "Active"), Compare(Greater, Add(path(q, "A"), path(q, "B")), Integer(0))),
			),
			hits: 4,
		},
		{
			expr: If(path(p, "Cond"), path(p, "Then"), Integer(0)),
			with: q,
			want: If(path(q, "Cond"), path(q, "Then"), Integer(0)),
			hits: 2,
		},
		{
			expr: Call(Contains, path(p, "Name"), String("am")),
			with: q,
			want: Call(Contains, path(q, "Name"), String("am")),
			hits: 1,
		},
		{
			expr: &Index{Inner: path(p, "Tags"), Offset: Integer(0)},
			with: q,
			want: &Index{Inner: path(q, "Tags"), Offset: Integer(0)},
			hits: 1,
		},
	}
	for i := range tests {
		tc := &tests[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			before := Copy(tc.expr)
			got, err := Substitute(tc.expr, p, tc.with)
			if err != nil {
				t.Fatalf("substitute: %s", err)
			}
			if !got.Equals(tc.want) {
				t.Errorf("got  %s", ToString(got))
				t.Errorf("want %s", ToString(tc.want))
			}
			if n := Occurrences(tc.expr, p); n != tc.hits {
				t.Errorf("input has %d references to x, expected %d", n, tc.hits)
			}
			if n := Occurrences(got, p); n != 0 {
				t.Errorf("result still has %d references to x", n)
			}
			// the input tree is never mutated
			if !tc.expr.Equals(before) {
				t.Errorf("input changed from %s to %s", ToString(before), ToString(tc.expr))
			}
		})
	}
}

func TestSubstituteIdentity(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("x", StructType) // same spelling, different binding

	// none of these reference p, so Substitute
	// must return the input tree itself
	tests := []Node{
		Integer(42),
		Compare(Equals, Integer(1), Integer(1)),
		And(Bool(true), Compare(Less, path(q, "N"), Integer(3))),
		path(q, "Age"),
	}
	for i := range tests {
		got, err := Substitute(tests[i], p, Bool(true))
		if err != nil {
			t.Fatalf("case %d: %s", i, err)
		}
		if got != tests[i] {
			t.Errorf("case %d: %s was reconstructed rather than returned", i, ToString(tests[i]))
		}
	}
}

func TestSubstituteSharing(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("y", StructType)

	left := Compare(Equals, path(p, "Age"), Integer(30))
	right := Compare(Equals, Integer(1), Integer(1)) // no reference to p
	in := And(left, right)

	out, err := Substitute(in, p, q)
	if err != nil {
		t.Fatal(err)
	}
	lg, ok := out.(*Logical)
	if !ok {
		t.Fatalf("result is %T, not *Logical", out)
	}
	if lg == in {
		t.Error("root was not reconstructed")
	}
	if lg.Left == left {
		t.Error("rewritten branch was not reconstructed")
	}
	// untouched subtrees are shared, not copied
	if lg.Right != right {
		t.Error("unchanged branch was copied")
	}
}

func TestSubstituteShadow(t *testing.T) {
	p := NewParam("x", BoolType)

	// the inner lambda re-binds p, so references
	// beneath it are shadowed and must survive
	inner := &Lambda{Param: p, Body: &Not{Expr: p}}
	in := Or(p, inner)

	out, err := Substitute(in, p, Bool(true))
	if err != nil {
		t.Fatal(err)
	}
	lg := out.(*Logical)
	if !lg.Left.Equals(Bool(true)) {
		t.Errorf("unshadowed reference not replaced: %s", ToString(out))
	}
	if lg.Right != Node(inner) {
		t.Errorf("shadowed subtree was rewritten: %s", ToString(out))
	}
	if n := Occurrences(out, p); n != 0 {
		t.Errorf("%d visible references remain", n)
	}
}

func TestSubstituteErrors(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("x", StructType)

	tests := []struct {
		expr Node
		with Node
	}{
		// nil expression
		{nil, Bool(true)},
		// nil replacement
		{Bool(true), nil},
		// missing operand
		{And(nil, Bool(true)), Bool(true)},
		{Compare(Equals, path(p, "Age"), nil), Bool(true)},
		{&Not{}, Bool(true)},
		{&Dot{Inner: p}, Bool(true)},
		{&Index{Inner: path(p, "Tags")}, Bool(true)},
		{If(Bool(true), nil, Integer(0)), Bool(true)},
		{Call(Contains, path(p, "Name"), nil), Bool(true)},
		// lambda shape
		{&Lambda{Param: p}, Bool(true)},
		{&Lambda{Body: Bool(true)}, Bool(true)},
		// the same binding introduced twice
		{&Lambda{Param: p, Body: &Lambda{Param: p, Body: Bool(true)}}, Bool(true)},
		// unknown operators
		{&Comparison{Op: CmpOp(99), Left: Integer(1), Right: Integer(2)}, Bool(true)},
		{&Logical{Op: LogicalOp(99), Left: Bool(true), Right: Bool(false)}, Bool(true)},
		{&Builtin{Func: Unspecified, Args: []Node{Integer(1)}}, Bool(true)},
		// malformed replacement
		{Bool(true), And(nil, nil)},
	}
	for i := range tests {
		tc := &tests[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			out, err := Substitute(tc.expr, p, tc.with)
			if err == nil {
				t.Fatalf("no error; got %s", ToString(out))
			}
			var re *RewriteError
			if !errors.As(err, &re) {
				t.Fatalf("error %T is not a *RewriteError", err)
			}
			if re.Error() == "" {
				t.Error("empty error text")
			}
		})
	}

	// substituting with a nil parameter also fails
	if _, err := Substitute(Bool(true), nil, q); err == nil {
		t.Error("no error for nil parameter")
	}
}

func TestOccurrencesIdentity(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("x", StructType)

	// parameters that share a name are still distinct bindings
	in := And(
		Compare(Equals, path(p, "A"), Integer(1)),
		Compare(Equals, path(q, "A"), Integer(1)),
	)
	if n := Occurrences(in, p); n != 1 {
		t.Errorf("p occurs %d times, expected 1", n)
	}
	if n := Occurrences(in, q); n != 1 {
		t.Errorf("q occurs %d times, expected 1", n)
	}

	out, err := Substitute(in, p, Bool(true))
	if err != nil {
		t.Fatal(err)
	}
	if n := Occurrences(out, q); n != 1 {
		t.Errorf("reference to q was disturbed: %s", ToString(out))
	}
}

func TestFree(t *testing.T) {
	p := NewParam("x", StructType)
	q := NewParam("y", IntType)

	in := And(
		Compare(Greater, path(p, "Age"), q),
		Compare(Equals, path(p, "Name"), String("Sam")),
	)
	free := Free(in)
	if len(free) != 2 || !free[0].Is(p) || !free[1].Is(q) {
		t.Fatalf("free parameters: %v", free)
	}

	// a bound parameter is not free
	lam := &Lambda{Param: p, Body: Compare(Equals, path(p, "Age"), q)}
	free = Free(lam)
	if len(free) != 1 || !free[0].Is(q) {
		t.Fatalf("free parameters of lambda: %v", free)
	}

	if free := Free(Integer(3)); len(free) != 0 {
		t.Fatalf("constant has free parameters: %v", free)
	}
}

func TestValidateOK(t *testing.T) {
	p := NewParam("x", StructType)
	tests := []Node{
		Bool(true),
		Integer(-3),
		String(""),
		Null{},
		path(p, "A", "B", "C"),
		&Lambda{Param: p, Body: Compare(Equals, path(p, "Age"), Integer(30))},
		Between(path(p, "N"), Integer(0), Integer(10)),
		Call(Coalesce, path(p, "A"), path(p, "B"), Null{}),
	}
	for i := range tests {
		if err := Validate(tests[i]); err != nil {
			t.Errorf("case %d: %s: %s", i, ToString(tests[i]), err)
		}
	}
}
