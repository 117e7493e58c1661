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
	"testing"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

func TestInvoke(t *testing.T) {
	x := expr.NewParam("x", expr.AnyType)
	age := &expr.Dot{Inner: x, Field: "Age"}
	prog, err := Compile(&expr.Lambda{
		Param: x,
		Body:  expr.Compare(expr.GreaterEquals, age, expr.Integer(21)),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := Invoke(prog, map[string]any{"Age": 30}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != true || !res.Bool() {
		t.Errorf("Age 30: got %+v", res)
	}

	res, err = Invoke(prog, map[string]any{"Age": 12}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != false || res.Bool() {
		t.Errorf("Age 12: got %+v", res)
	}

	// a missing field reads as null, and ordering null
	// is a tolerated fault: the result is simply absent
	res, err = Invoke(prog, map[string]any{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK || res.Bool() {
		t.Errorf("missing Age: got %+v", res)
	}
	if got := res.Or("fallback"); got != "fallback" {
		t.Errorf("Or: got %#v", got)
	}

	// so is a field of the wrong kind...
	res, err = Invoke(prog, map[string]any{"Age": "thirty"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Errorf("string Age: got %+v", res)
	}

	// ...and an input of the wrong shape entirely
	res, err = Invoke(prog, "not a struct", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Errorf("string input: got %+v", res)
	}

	// strict invocation propagates those same faults
	var ne *NullError
	_, err = Invoke(prog, map[string]any{}, true)
	if !errors.As(err, &ne) {
		t.Errorf("strict missing Age: got %v, want a NullError", err)
	}
	var ae *ArgError
	_, err = Invoke(prog, map[string]any{"Age": "thirty"}, true)
	if !errors.As(err, &ae) {
		t.Errorf("strict string Age: got %v, want an ArgError", err)
	}
}

func TestInvokeDivideByZero(t *testing.T) {
	x := expr.NewParam("x", expr.AnyType)
	l := &expr.Lambda{
		Param: x,
		Body:  expr.Div(expr.Integer(100), &expr.Dot{Inner: x, Field: "D"}),
	}
	// a zero divisor is never a tolerated fault
	for _, strict := range []bool{false, true} {
		_, err := InvokeLambda(l, map[string]any{"D": 0}, strict)
		if !errors.Is(err, ErrDivideByZero) {
			t.Errorf("strict=%v: got %v, want ErrDivideByZero", strict, err)
		}
	}
	res, err := InvokeLambda(l, map[string]any{"D": 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != int64(25) {
		t.Errorf("got %+v", res)
	}
}

func TestInvokePresentNull(t *testing.T) {
	// a null RESULT is still a present result:
	// OK distinguishes absence from a null value
	x := expr.NewParam("x", expr.AnyType)
	l := &expr.Lambda{
		Param: x,
		Body:  expr.CoalesceOf(&expr.Dot{Inner: x, Field: "gone"}),
	}
	res, err := InvokeLambda(l, map[string]any{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != nil {
		t.Errorf("got %+v", res)
	}
	if res.Bool() {
		t.Error("Bool() on a null value")
	}
	if got := res.Or("fallback"); got != nil {
		t.Errorf("Or must keep a present null, got %#v", got)
	}
}

func TestInvokeCompileError(t *testing.T) {
	// compile errors are never absorbed, strict or not
	x := expr.NewParam("x", expr.AnyType)
	y := expr.NewParam("y", expr.AnyType)
	for _, strict := range []bool{false, true} {
		if _, err := InvokeLambda(nil, nil, strict); err == nil {
			t.Error("nil lambda did not fail")
		}
		if _, err := InvokeLambda(&expr.Lambda{Param: x, Body: y}, nil, strict); err == nil {
			t.Error("foreign parameter did not fail")
		}
	}
}
