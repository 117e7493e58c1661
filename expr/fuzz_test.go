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
	"testing"
	"time"
)

func addExprs(f *testing.F) {
	x := NewParam("x", StructType)
	exprs := []*Lambda{
		{Param: x, Body: Compare(Equals, path(x, "Age"), Integer(30))},
		{Param: x, Body: And(
			Compare(GreaterEquals, path(x, "Age"), Integer(18)),
			Compare(Equals, path(x, "Name"), String("Sam")),
		)},
		{Param: x, Body: If(
			Call(Contains, path(x, "Name"), String("a")),
			Add(path(x, "N"), Integer(1)),
			Neg(path(x, "N")),
		)},
		{Param: x, Body: &Index{Inner: path(x, "Tags"), Offset: Integer(0)}},
		{Param: x, Body: Compare(Less, path(x, "When"),
			&Timestamp{Value: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})},
		{Param: x, Body: &Lambda{Param: x, Body: x}},
	}
	for i := range exprs {
		buf, err := Encode(exprs[i])
		if err != nil {
			f.Fatal(err)
		}
		f.Add(buf)
	}
	f.Add([]byte(`{"type":"lambda","param":"v","body":{"type":"cmp","op":">=","left":{"type":"param","name":"v"},"right":0}}`))
	f.Add([]byte(`{"type":"logical","op":"and","left":true,"right":false}`))
	f.Add([]byte(`3.141592`))
	f.Add([]byte(`"just a string"`))
}

// confirm that any input that Decode accepts
// round-trips losslessly through Encode
func FuzzDecode(f *testing.F) {
	addExprs(f)
	f.Fuzz(func(t *testing.T, data []byte) {
		e, err := Decode(data)
		if err != nil {
			return
		}
		// decoded trees are valid by construction,
		// so printing and re-encoding cannot fail
		text := ToString(e)
		buf, err := Encode(e)
		if err != nil {
			t.Fatalf("re-encoding %s: %s", text, err)
		}
		e2, err := Decode(buf)
		if err != nil {
			t.Fatalf("re-decoding %s: %s", text, err)
		}
		if !Equal(e, e2) {
			t.Fatalf("%s decoded to %s", text, ToString(e2))
		}
		if err := Validate(e); err != nil {
			t.Fatalf("Decode returned an invalid tree %s: %s", text, err)
		}
	})
}
