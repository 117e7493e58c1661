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
	"reflect"
	"testing"

	"github.com/RealGoodAppsLLC/ExpressionMagic/compose"
	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// predicate builds p -> p.field <op> <right>
// over a fresh parameter
func predicate(t *testing.T, field string, op expr.CmpOp, right expr.Node) *expr.Lambda {
	t.Helper()
	p := expr.NewParam("p", expr.StructType)
	l, err := compose.Create(p, expr.Compare(op, &expr.Dot{Inner: p, Field: field}, right))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func mustCombine(t *testing.T, l *expr.Lambda, err error) *expr.Lambda {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestDeMorgan(t *testing.T) {
	adult := predicate(t, "Age", expr.GreaterEquals, expr.Integer(18))
	named := predicate(t, "Name", expr.Equals, expr.String("Sam"))

	// !(A AND B) behaves as !A OR !B
	l, err := compose.And(adult, named)
	both := mustCombine(t, l, err)
	l, err = compose.Not(both)
	notBoth := mustCombine(t, l, err)
	l, err = compose.Not(adult)
	notAdult := mustCombine(t, l, err)
	l, err = compose.Not(named)
	notNamed := mustCombine(t, l, err)
	l, err = compose.Or(notAdult, notNamed)
	either := mustCombine(t, l, err)

	inputs := []map[string]any{
		{"Age": 30, "Name": "Sam"},
		{"Age": 30, "Name": "Bob"},
		{"Age": 10, "Name": "Sam"},
		{"Age": 10, "Name": "Bob"},
	}
	for i := range inputs {
		a, err := InvokeLambda(notBoth, inputs[i], true)
		if err != nil {
			t.Fatal(err)
		}
		b, err := InvokeLambda(either, inputs[i], true)
		if err != nil {
			t.Fatal(err)
		}
		if a.Value != b.Value {
			t.Errorf("input %v: NOT(AND)=%v, OR(NOT)=%v", inputs[i], a.Value, b.Value)
		}
		want := !(i == 0)
		if a.Value != want {
			t.Errorf("input %v: got %v, want %v", inputs[i], a.Value, want)
		}
	}

	// the combined forms left their operands runnable
	res, err := InvokeLambda(adult, inputs[0], true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Bool() {
		t.Error("operand lambda no longer evaluates correctly")
	}
}

func TestPipeEval(t *testing.T) {
	s := expr.NewParam("s", expr.StringType)
	up, err := compose.Create(s, expr.Call(expr.Upper, s))
	if err != nil {
		t.Fatal(err)
	}
	v := expr.NewParam("v", expr.StringType)
	hasSAM, err := compose.Create(v, expr.Call(expr.Contains, v, expr.String("SAM")))
	if err != nil {
		t.Fatal(err)
	}
	pl, err := compose.Pipe(up, hasSAM)
	piped := mustCombine(t, pl, err)

	whole, err := Compile(piped)
	if err != nil {
		t.Fatal(err)
	}
	first, err := Compile(up)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compile(hasSAM)
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{"I am sam", "Sam I Am", "hello", "SAM"} {
		// running the pipe matches running the stages in sequence
		got, err := whole.Run(in)
		if err != nil {
			t.Fatal(err)
		}
		mid, err := first.Run(in)
		if err != nil {
			t.Fatal(err)
		}
		want, err := second.Run(mid)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%q: piped %v, staged %v", in, got, want)
		}
	}
}

func TestIfThenElseEval(t *testing.T) {
	// x -> IF(x.Premium, x.Total * 0.9, x.Total)
	mk := func(body func(p *expr.Param) expr.Node) *expr.Lambda {
		p := expr.NewParam("x", expr.StructType)
		l, err := compose.Create(p, body(p))
		if err != nil {
			t.Fatal(err)
		}
		return l
	}
	test := mk(func(p *expr.Param) expr.Node {
		return &expr.Dot{Inner: p, Field: "Premium"}
	})
	then := mk(func(p *expr.Param) expr.Node {
		return expr.Mul(&expr.Dot{Inner: p, Field: "Total"}, expr.Float(0.875))
	})
	els := mk(func(p *expr.Param) expr.Node {
		return &expr.Dot{Inner: p, Field: "Total"}
	})
	cl, err := compose.IfThenElse(test, then, els)
	cond := mustCombine(t, cl, err)
	res, err := InvokeLambda(cond, map[string]any{"Premium": true, "Total": 80}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != float64(70) {
		t.Errorf("premium: got %#v", res.Value)
	}
	res, err = InvokeLambda(cond, map[string]any{"Premium": false, "Total": 80}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != int64(80) {
		t.Errorf("standard: got %#v", res.Value)
	}
}

func TestEqualScenario(t *testing.T) {
	// build p -> p.Age = 30 AND p.Name = 'Sam' out of
	// field accessors and literal equality, then apply it
	// through a cache
	mkfield := func(name string) *expr.Lambda {
		p := expr.NewParam("person", expr.StructType)
		l, err := compose.Create(p, &expr.Dot{Inner: p, Field: name})
		if err != nil {
			t.Fatal(err)
		}
		return l
	}
	l, err := compose.Equal(mkfield("Age"), 30)
	is30 := mustCombine(t, l, err)
	l, err = compose.Equal(mkfield("Name"), "Sam")
	isSam := mustCombine(t, l, err)
	l, err = compose.And(is30, isSam)
	match := mustCombine(t, l, err)

	var c Cache
	testcases := []struct {
		in   map[string]any
		want bool
	}{
		{map[string]any{"Age": 30, "Name": "Sam"}, true},
		{map[string]any{"Age": 30.0, "Name": "Sam"}, true},
		{map[string]any{"Age": 31, "Name": "Sam"}, false},
		{map[string]any{"Age": 30, "Name": "Bob"}, false},
		{map[string]any{"Name": "Sam"}, false},
	}
	for i := range testcases {
		res, err := c.Invoke(match, testcases[i].in, false)
		if err != nil {
			t.Fatal(err)
		}
		if res.Bool() != testcases[i].want {
			t.Errorf("case %d %v: got %v", i, testcases[i].in, res.Value)
		}
	}
	if c.Misses() != 1 || c.Hits() != int64(len(testcases)-1) {
		t.Errorf("cache accounting: %d misses, %d hits", c.Misses(), c.Hits())
	}
}
