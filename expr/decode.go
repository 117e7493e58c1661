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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Decode decodes the wire encoding produced by Encode.
//
// Parameter references are re-bound as they are decoded:
// each lambda mints a fresh Param from its recorded name and
// type, and a reference binds to the nearest enclosing lambda
// whose parameter shares its name. A reference with no
// enclosing binder is an error. The returned tree is
// structurally valid (see Validate), though not necessarily
// well-typed (see Check).
func Decode(buf []byte) (Node, error) {
	d := &decoder{}
	node, err := d.node(buf)
	if err == nil {
		err = Validate(node)
	}
	if err != nil {
		return nil, fmt.Errorf("expr.Decode: %w", err)
	}
	return node, nil
}

// DecodeLambda is Decode restricted to lambdas.
func DecodeLambda(buf []byte) (*Lambda, error) {
	n, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	l, ok := n.(*Lambda)
	if !ok {
		return nil, fmt.Errorf("expr.DecodeLambda: decoded %T, not a lambda", n)
	}
	return l, nil
}

var errUnexpectedField = errors.New("unexpected field")

type decoder struct {
	// scope is the stack of lambda bindings
	// enclosing the node being decoded
	scope []*Param
}

func (d *decoder) lookup(name string) *Param {
	for i := len(d.scope) - 1; i >= 0; i-- {
		if d.scope[i].Name == name {
			return d.scope[i]
		}
	}
	return nil
}

func (d *decoder) node(buf []byte) (Node, error) {
	buf = bytes.TrimSpace(buf)
	if len(buf) == 0 {
		return nil, errors.New("no input data")
	}
	switch buf[0] {
	case '{':
		return d.object(buf)
	case '[':
		return nil, errors.New("cannot decode a bare list")
	case '"':
		var s string
		if err := json.Unmarshal(buf, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(buf, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case 'n':
		var v any
		if err := json.Unmarshal(buf, &v); err != nil {
			return nil, err
		}
		if v != nil {
			return nil, fmt.Errorf("cannot decode %T", v)
		}
		return Null{}, nil
	default:
		var num json.Number
		if err := json.Unmarshal(buf, &num); err != nil {
			return nil, fmt.Errorf("cannot decode %q", buf)
		}
		// integers without a fraction or exponent
		// stay integers; everything else is a float
		if !strings.ContainsAny(num.String(), ".eE") {
			if i, err := num.Int64(); err == nil {
				return Integer(i), nil
			}
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	}
}

func (d *decoder) object(buf []byte) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, err
	}
	rawtype, ok := fields["type"]
	if !ok {
		return nil, errors.New("object with no type field")
	}
	var typ string
	if err := json.Unmarshal(rawtype, &typ); err != nil {
		return nil, fmt.Errorf("bad type field: %w", err)
	}
	switch typ {
	case "ts":
		s, err := d.str(fields["value"])
		if err != nil {
			return nil, fmt.Errorf("ts: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("ts: %w", err)
		}
		return &Timestamp{Value: t}, nil
	case "param":
		name, err := d.str(fields["name"])
		if err != nil {
			return nil, fmt.Errorf("param: %w", err)
		}
		p := d.lookup(name)
		if p == nil {
			return nil, fmt.Errorf("unbound parameter %q", name)
		}
		return p, nil
	case "lambda":
		return d.lambda(fields)
	default:
		empty, ok := getEmpty(typ)
		if !ok {
			return nil, fmt.Errorf("unrecognized node type %q", typ)
		}
		for name, val := range fields {
			if name == "type" {
				continue
			}
			if err := empty.setfield(d, name, val); err != nil {
				return nil, fmt.Errorf("decoding %s: field %q: %w", typ, name, err)
			}
		}
		return empty, nil
	}
}

func (d *decoder) lambda(fields map[string]json.RawMessage) (Node, error) {
	name, err := d.str(fields["param"])
	if err != nil {
		return nil, fmt.Errorf("lambda: %w", err)
	}
	of := AnyType
	if raw, ok := fields["of"]; ok {
		s, err := d.str(raw)
		if err != nil {
			return nil, fmt.Errorf("lambda: %w", err)
		}
		of, err = ParseTypeSet(s)
		if err != nil {
			return nil, fmt.Errorf("lambda: %w", err)
		}
	}
	rawbody, ok := fields["body"]
	if !ok {
		return nil, errors.New("lambda with no body")
	}
	p := NewParam(name, of)
	d.scope = append(d.scope, p)
	body, err := d.node(rawbody)
	d.scope = d.scope[:len(d.scope)-1]
	if err != nil {
		return nil, err
	}
	return &Lambda{Param: p, Body: body}, nil
}

func (d *decoder) str(val []byte) (string, error) {
	var s string
	err := json.Unmarshal(val, &s)
	return s, err
}

type composite interface {
	Node
	setfield(d *decoder, name string, val []byte) error
}

func getEmpty(name string) (composite, bool) {
	switch name {
	case "dot":
		return &Dot{}, true
	case "index":
		return &Index{}, true
	case "not":
		return &Not{}, true
	case "logical":
		return &Logical{}, true
	case "cmp":
		return &Comparison{}, true
	case "arith":
		return &Arithmetic{}, true
	case "unary":
		return &UnaryArith{}, true
	case "builtin":
		// Unspecified so that a missing func
		// field fails validation
		return &Builtin{Func: Unspecified}, true
	case "cond":
		return &Conditional{}, true
	default:
		return nil, false
	}
}

func parseLogicalOp(s string) (LogicalOp, bool) {
	switch strings.ToUpper(s) {
	case "AND":
		return OpAnd, true
	case "OR":
		return OpOr, true
	case "XOR":
		return OpXor, true
	case "XNOR":
		return OpXnor, true
	}
	return 0, false
}

func parseCmpOp(s string) (CmpOp, bool) {
	switch s {
	case "=", "==":
		return Equals, true
	case "<>", "!=":
		return NotEquals, true
	case "<":
		return Less, true
	case "<=":
		return LessEquals, true
	case ">":
		return Greater, true
	case ">=":
		return GreaterEquals, true
	}
	return 0, false
}

func parseArithOp(s string) (ArithOp, bool) {
	switch s {
	case "+":
		return AddOp, true
	case "-":
		return SubOp, true
	case "*":
		return MulOp, true
	case "/":
		return DivOp, true
	case "%":
		return ModOp, true
	case "&":
		return BitAndOp, true
	case "|":
		return BitOrOp, true
	case "^":
		return BitXorOp, true
	}
	return 0, false
}

func parseUnaryOp(s string) (UnaryArithOp, bool) {
	switch s {
	case "-", "neg":
		return NegOp, true
	case "~":
		return BitNotOp, true
	}
	return 0, false
}

func (dd *Dot) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "inner":
		dd.Inner, err = d.node(val)
	case "field":
		dd.Field, err = d.str(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (i *Index) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "inner":
		i.Inner, err = d.node(val)
	case "offset":
		i.Offset, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (n *Not) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "inner":
		n.Expr, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (l *Logical) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "op":
		var s string
		s, err = d.str(val)
		if err != nil {
			return err
		}
		op, ok := parseLogicalOp(s)
		if !ok {
			return fmt.Errorf("unrecognized logical op %q", s)
		}
		l.Op = op
	case "left":
		l.Left, err = d.node(val)
	case "right":
		l.Right, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Comparison) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "op":
		var s string
		s, err = d.str(val)
		if err != nil {
			return err
		}
		op, ok := parseCmpOp(s)
		if !ok {
			return fmt.Errorf("unrecognized comparison op %q", s)
		}
		c.Op = op
	case "left":
		c.Left, err = d.node(val)
	case "right":
		c.Right, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (a *Arithmetic) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "op":
		var s string
		s, err = d.str(val)
		if err != nil {
			return err
		}
		op, ok := parseArithOp(s)
		if !ok {
			return fmt.Errorf("unrecognized arithmetic op %q", s)
		}
		a.Op = op
	case "left":
		a.Left, err = d.node(val)
	case "right":
		a.Right, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (u *UnaryArith) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "op":
		var s string
		s, err = d.str(val)
		if err != nil {
			return err
		}
		op, ok := parseUnaryOp(s)
		if !ok {
			return fmt.Errorf("unrecognized unary op %q", s)
		}
		u.Op = op
	case "child":
		u.Child, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}

func (b *Builtin) setfield(d *decoder, name string, val []byte) error {
	switch name {
	case "func":
		s, err := d.str(val)
		if err != nil {
			return err
		}
		op := name2Builtin(strings.ToUpper(s))
		if op == Unspecified {
			return fmt.Errorf("unrecognized builtin function %q", s)
		}
		b.Func = op
	case "args":
		var items []json.RawMessage
		if err := json.Unmarshal(val, &items); err != nil {
			return err
		}
		for i := range items {
			arg, err := d.node(items[i])
			if err != nil {
				return err
			}
			b.Args = append(b.Args, arg)
		}
	default:
		return errUnexpectedField
	}
	return nil
}

func (c *Conditional) setfield(d *decoder, name string, val []byte) error {
	var err error
	switch name {
	case "if":
		c.If, err = d.node(val)
	case "then":
		c.Then, err = d.node(val)
	case "else":
		c.Else, err = d.node(val)
	default:
		return errUnexpectedField
	}
	return err
}
