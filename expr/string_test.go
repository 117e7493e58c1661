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
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	x := NewParam("x", StructType)
	y := NewParam("y", BoolType)

	testcases := []struct {
		in   Node
		want string
	}{
		{
			Compare(Equals, path(x, "Age"), Integer(30)),
			"x.Age = 30",
		},
		{
			And(
				Compare(GreaterEquals, path(x, "Age"), Integer(18)),
				Compare(Equals, path(x, "Name"), String("Sam")),
			),
			"x.Age >= 18 AND x.Name = 'Sam'",
		},
		{
			// parenthesize when left-associativity
			// would lead to a different expression
			And(y, Or(y, y)),
			"y AND (y OR y)",
		},
		{
			Add(path(x, "A"), Mul(path(x, "B"), Integer(2))),
			"x.A + (x.B * 2)",
		},
		{
			Compare(Equals, y, Compare(Less, path(x, "A"), path(x, "B"))),
			"y = (x.A < x.B)",
		},
		{
			Between(path(x, "N"), Integer(0), Integer(5)),
			"x.N >= 0 AND x.N <= 5",
		},
		{
			&Not{Expr: y},
			"!(y)",
		},
		{
			&Lambda{Param: x, Body: Compare(NotEquals, path(x, "Name"), String("Sam"))},
			"x -> x.Name <> 'Sam'",
		},
		{
			If(y, String("on"), String("off")),
			"IF(y, 'on', 'off')",
		},
		{
			Call(Contains, Call(Upper, path(x, "Name")), String("SAM")),
			"CONTAINS(UPPER(x.Name), 'SAM')",
		},
		{
			&Index{Inner: path(x, "Tags"), Offset: Integer(0)},
			"x.Tags[0]",
		},
		{
			Neg(path(x, "Delta")),
			"-(x.Delta)",
		},
		{
			Mod(path(x, "N"), Integer(7)),
			"x.N % 7",
		},
		{
			&Dot{Inner: &Dot{Inner: x, Field: "a field"}, Field: "ok"},
			`x."a field".ok`,
		},
		{
			Float(0.5),
			"0.5",
		},
		{
			And(Null{}, Bool(false)),
			"NULL AND FALSE",
		},
	}
	for i := range testcases {
		got := ToString(testcases[i].in)
		if got != testcases[i].want {
			t.Errorf("case %d: got  %q", i, got)
			t.Errorf("case %d: want %q", i, testcases[i].want)
		}
	}
}

func TestRedacted(t *testing.T) {
	x := NewParam("x", StructType)
	in := And(
		Compare(Equals, path(x, "Name"), String("Sam")),
		Compare(Less, path(x, "Age"), Integer(65)),
	)

	plain := ToString(in)
	red := ToRedacted(in)
	if red == plain {
		t.Fatalf("redacted text identical to plain text: %s", red)
	}
	// structure survives; constants do not
	if !strings.Contains(red, "x.Name = ") || !strings.Contains(red, "x.Age < ") {
		t.Errorf("redaction destroyed the expression shape: %s", red)
	}
	if strings.Contains(red, "Sam") || strings.Contains(red, "65") {
		t.Errorf("redaction leaked a constant: %s", red)
	}
	// redaction is deterministic
	if again := ToRedacted(in); again != red {
		t.Errorf("redaction not deterministic:\n%s\n%s", red, again)
	}
}

func TestQuote(t *testing.T) {
	testcases := []struct {
		in, want string
	}{
		{"abc", "'abc'"},
		{"a'b", `'a\'b'`},
		{"a\nb", `'a\nb'`},
		{`a\b`, `'a\\b'`},
		{"héllo", `'h\u00e9llo'`},
	}
	for i := range testcases {
		if got := Quote(testcases[i].in); got != testcases[i].want {
			t.Errorf("case %d: Quote(%q) = %s, expected %s",
				i, testcases[i].in, got, testcases[i].want)
		}
	}
}
