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
	"fmt"
	"sync"
	"testing"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

type testLogger struct {
	lines []string
}

func (l *testLogger) Printf(f string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(f, args...))
}

func incrLambda(name string) *expr.Lambda {
	p := expr.NewParam(name, expr.AnyType)
	return &expr.Lambda{Param: p, Body: expr.Add(p, expr.Integer(1))}
}

func TestCacheProgram(t *testing.T) {
	var c Cache
	l := incrLambda("x")
	p1, err := c.Program(l)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Program(l)
	if err != nil {
		t.Fatal(err)
	}
	if p2 != p1 {
		t.Error("second lookup compiled a new program")
	}
	// a structurally identical lambda with a distinct
	// parameter identity shares the entry: the encoding,
	// not the identity, is the key
	p3, err := c.Program(incrLambda("x"))
	if err != nil {
		t.Fatal(err)
	}
	if p3 != p1 {
		t.Error("identical encoding missed the cache")
	}
	// a different parameter name does not
	p4, err := c.Program(incrLambda("other"))
	if err != nil {
		t.Fatal(err)
	}
	if p4 == p1 {
		t.Error("distinct encodings share a program")
	}
	if h := c.Hits(); h != 2 {
		t.Errorf("hits: %d", h)
	}
	if m := c.Misses(); m != 2 {
		t.Errorf("misses: %d", m)
	}
	if f := c.Failures(); f != 0 {
		t.Errorf("failures: %d", f)
	}
	if a := c.Accesses(); a != 4 {
		t.Errorf("accesses: %d", a)
	}
	if n := c.Entries(); n != 2 {
		t.Errorf("entries: %d", n)
	}

	res, err := c.Invoke(l, 41, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Value != int64(42) {
		t.Errorf("got %+v", res)
	}
	if h := c.Hits(); h != 3 {
		t.Errorf("hits after Invoke: %d", h)
	}

	c.Reset()
	if c.Entries() != 0 || c.Accesses() != 0 {
		t.Error("Reset left state behind")
	}
	if _, err := c.Program(l); err != nil {
		t.Fatal(err)
	}
	if m := c.Misses(); m != 1 {
		t.Errorf("misses after Reset: %d", m)
	}
}

func TestCacheFailure(t *testing.T) {
	log := &testLogger{}
	c := Cache{Logger: log}
	x := expr.NewParam("x", expr.AnyType)
	y := expr.NewParam("y", expr.AnyType)
	bad := &expr.Lambda{Param: x, Body: y}
	if _, err := c.Program(bad); err == nil {
		t.Fatal("foreign parameter did not fail")
	}
	if f := c.Failures(); f != 1 {
		t.Errorf("failures: %d", f)
	}
	if len(log.lines) != 1 {
		t.Errorf("log lines: %q", log.lines)
	}
	// failures are not cached
	if _, err := c.Program(bad); err == nil {
		t.Fatal("foreign parameter did not fail twice")
	}
	if f := c.Failures(); f != 2 {
		t.Errorf("failures: %d", f)
	}
	if c.Entries() != 0 {
		t.Errorf("entries: %d", c.Entries())
	}
	if _, err := c.Program(nil); err == nil {
		t.Fatal("nil lambda did not fail")
	}
}

func TestCacheConcurrent(t *testing.T) {
	var c Cache
	l := incrLambda("x")
	const procs = 8
	const iters = 100
	var wg sync.WaitGroup
	errs := make([]error, procs)
	wg.Add(procs)
	for g := 0; g < procs; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				res, err := c.Invoke(l, i, false)
				if err == nil && res.Value != int64(i+1) {
					err = fmt.Errorf("got %v for %d", res.Value, i)
				}
				if err != nil {
					errs[g] = err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	for g := range errs {
		if errs[g] != nil {
			t.Fatal(errs[g])
		}
	}
	// concurrent first fills may each compile, but only
	// one entry survives, and every access is accounted
	if n := c.Entries(); n != 1 {
		t.Errorf("entries: %d", n)
	}
	if a := c.Accesses(); a != procs*iters {
		t.Errorf("accesses: %d", a)
	}
	if c.Hits()+c.Misses() != c.Accesses() {
		t.Error("hit/miss accounting is off")
	}
}
