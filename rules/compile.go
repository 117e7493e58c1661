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

package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/RealGoodAppsLLC/ExpressionMagic/compose"
	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// Set is a compiled Definition: every rule reduced to a
// lambda, all of them binding one shared parameter. Rules
// that reference other rules share subtrees with them
// rather than duplicating them.
type Set struct {
	name  string
	param *expr.Param
	rules map[string]*expr.Lambda
	order []string
}

// Name returns the definition name.
func (s *Set) Name() string { return s.name }

// Param returns the parameter shared by
// every lambda in the set.
func (s *Set) Param() *expr.Param { return s.param }

// Names returns the rule names in definition order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// Lambda returns the compiled lambda for the named rule,
// or nil when no such rule exists.
func (s *Set) Lambda(name string) *expr.Lambda {
	return s.rules[name]
}

// Compile resolves every rule in d into a lambda.
//
// Inline rules decode their expression bound to a fresh
// parameter built from d.Param; combination rules fold
// their references through compose (And for "all", Or for
// "any", Not). Duplicate rule names, references to unknown
// rules, and reference cycles are errors.
func (d *Definition) Compile() (*Set, error) {
	if d.Param.Name == "" {
		return nil, errors.New("rules: definition has no parameter name")
	}
	of := expr.AnyType
	if d.Param.Type != "" {
		var err error
		of, err = expr.ParseTypeSet(d.Param.Type)
		if err != nil {
			return nil, fmt.Errorf("rules: parameter %q: %w", d.Param.Name, err)
		}
	}
	index := make(map[string]*RuleSpec, len(d.Rules))
	order := make([]string, 0, len(d.Rules))
	for i := range d.Rules {
		r := &d.Rules[i]
		if r.Name == "" {
			return nil, fmt.Errorf("rules: rule %d has no name", i)
		}
		if _, ok := index[r.Name]; ok {
			return nil, fmt.Errorf("rules: duplicate rule %q", r.Name)
		}
		if err := exactlyOne(r); err != nil {
			return nil, err
		}
		index[r.Name] = r
		order = append(order, r.Name)
	}
	c := &resolver{
		param: expr.NewParam(d.Param.Name, of),
		of:    of,
		index: index,
		state: make(map[string]int, len(d.Rules)),
		done:  make(map[string]*expr.Lambda, len(d.Rules)),
	}
	for _, name := range order {
		if _, err := c.resolve(name); err != nil {
			return nil, err
		}
	}
	return &Set{name: d.Name, param: c.param, rules: c.done, order: order}, nil
}

// Validate compiles d and type-checks every rule.
func (d *Definition) Validate() error {
	s, err := d.Compile()
	if err != nil {
		return err
	}
	for _, name := range s.order {
		if err := expr.Check(s.rules[name]); err != nil {
			return fmt.Errorf("rules: rule %q: %w", name, err)
		}
	}
	return nil
}

func exactlyOne(r *RuleSpec) error {
	n := 0
	if len(r.Expr) > 0 {
		n++
	}
	if len(r.All) > 0 {
		n++
	}
	if len(r.Any) > 0 {
		n++
	}
	if r.Not != "" {
		n++
	}
	if n != 1 {
		return fmt.Errorf("rules: rule %q must set exactly one of expr, all, any, not", r.Name)
	}
	return nil
}

const (
	unresolved = iota
	resolving
	resolved
)

type resolver struct {
	param *expr.Param
	of    expr.TypeSet
	index map[string]*RuleSpec
	state map[string]int
	done  map[string]*expr.Lambda
}

func (c *resolver) resolve(name string) (*expr.Lambda, error) {
	switch c.state[name] {
	case resolved:
		return c.done[name], nil
	case resolving:
		return nil, fmt.Errorf("rules: rule %q is part of a reference cycle", name)
	}
	r, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("rules: reference to unknown rule %q", name)
	}
	c.state[name] = resolving
	l, err := c.build(r)
	if err != nil {
		return nil, err
	}
	c.state[name] = resolved
	c.done[name] = l
	return l, nil
}

func (c *resolver) build(r *RuleSpec) (*expr.Lambda, error) {
	switch {
	case len(r.Expr) > 0:
		return c.inline(r)
	case len(r.All) > 0:
		return c.fold(r.All, compose.And)
	case len(r.Any) > 0:
		return c.fold(r.Any, compose.Or)
	default:
		l, err := c.resolve(r.Not)
		if err != nil {
			return nil, err
		}
		return compose.Not(l)
	}
}

// inline decodes a rule body by wrapping it in a lambda
// envelope around the definition's parameter spec, then
// re-binds the decoded tree onto the set-wide parameter
func (c *resolver) inline(r *RuleSpec) (*expr.Lambda, error) {
	env := struct {
		Type  string          `json:"type"`
		Param string          `json:"param"`
		Of    string          `json:"of"`
		Body  json.RawMessage `json:"body"`
	}{Type: "lambda", Param: c.param.Name, Of: c.of.String(), Body: r.Expr}
	buf, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
	}
	l, err := expr.DecodeLambda(buf)
	if err != nil {
		return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
	}
	body, err := expr.Substitute(l.Body, l.Param, c.param)
	if err != nil {
		return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
	}
	out, err := compose.Create(c.param, body)
	if err != nil {
		return nil, fmt.Errorf("rules: rule %q: %w", r.Name, err)
	}
	return out, nil
}

// fold left-associates combine over the named rules; the
// first operand's parameter survives each step, which is
// the set-wide parameter for every resolved rule
func (c *resolver) fold(names []string, combine func(l, r *expr.Lambda) (*expr.Lambda, error)) (*expr.Lambda, error) {
	out, err := c.resolve(names[0])
	if err != nil {
		return nil, err
	}
	for _, name := range names[1:] {
		next, err := c.resolve(name)
		if err != nil {
			return nil, err
		}
		out, err = combine(out, next)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
