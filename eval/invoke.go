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

import "github.com/RealGoodAppsLLC/ExpressionMagic/expr"

// Result is the outcome of a safe invocation.
// OK distinguishes a present value (which may itself
// be nil) from an absent one.
type Result struct {
	Value any
	OK    bool
}

// Bool reads a predicate outcome: it returns true only
// when the result is present and is the boolean true.
func (r Result) Bool() bool {
	b, ok := r.Value.(bool)
	return r.OK && ok && b
}

// Or returns the result value, or v when the result is absent.
func (r Result) Or(v any) any {
	if r.OK {
		return r.Value
	}
	return v
}

// Invoke applies a compiled program to arg.
//
// When strict is false, a *NullError or *ArgError fault from
// the run is absorbed and reported as an absent Result; those
// faults describe inputs the expression cannot digest rather
// than broken programs. All other errors (ErrDivideByZero
// among them) propagate regardless of strict, and when strict
// is true the tolerated faults propagate too.
func Invoke(p *Program, arg any, strict bool) (Result, error) {
	v, err := p.Run(arg)
	if err != nil {
		if !strict && tolerated(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	return Result{Value: v, OK: true}, nil
}

// InvokeLambda compiles l and invokes it on arg in one step.
// Use a Cache (or compile once with Compile) when the same
// lambda is applied repeatedly.
func InvokeLambda(l *expr.Lambda, arg any, strict bool) (Result, error) {
	p, err := Compile(l)
	if err != nil {
		return Result{}, err
	}
	return Invoke(p, arg, strict)
}
