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
	"encoding/json"
	"fmt"
	"time"
)

// Encode returns the wire encoding of n.
//
// Scalar constants encode as bare JSON scalars; structured
// nodes encode as JSON objects with a "type" field naming
// the node kind. Object keys are emitted in sorted order,
// so the encoding of a tree is deterministic and is safe
// to use as a cache key.
//
// Parameters encode by name: a lambda records its parameter's
// name and declared type, and references within its body are
// re-bound on Decode. Encoding a tree with free parameters
// succeeds, but the result can only be decoded with the same
// parameters in scope (see Copy).
func Encode(n Node) ([]byte, error) {
	if n == nil {
		return nil, errrewrite(nil, "cannot encode nil expression")
	}
	buf, err := json.Marshal(n.encode())
	if err != nil {
		return nil, fmt.Errorf("expr: encoding %q: %w", ToString(n), err)
	}
	return buf, nil
}

// EncodeLambda is Encode restricted to lambdas.
func EncodeLambda(l *Lambda) ([]byte, error) {
	if l == nil {
		return nil, errrewrite(nil, "cannot encode nil lambda")
	}
	return Encode(l)
}

func encodeChild(n Node) any {
	if n == nil {
		return map[string]any{"type": "invalid"}
	}
	return n.encode()
}

func (b Bool) encode() any { return bool(b) }

func (i Integer) encode() any { return int64(i) }

func (f Float) encode() any { return float64(f) }

func (s String) encode() any { return string(s) }

func (n Null) encode() any { return nil }

func (t *Timestamp) encode() any {
	return map[string]any{
		"type":  "ts",
		"value": t.Value.Format(time.RFC3339Nano),
	}
}

func (p *Param) encode() any {
	return map[string]any{
		"type": "param",
		"name": p.Name,
	}
}

func (l *Lambda) encode() any {
	obj := map[string]any{
		"type": "lambda",
		"body": encodeChild(l.Body),
	}
	if l.Param != nil {
		obj["param"] = l.Param.Name
		obj["of"] = l.Param.Of.String()
	}
	return obj
}

func (d *Dot) encode() any {
	return map[string]any{
		"type":  "dot",
		"inner": encodeChild(d.Inner),
		"field": d.Field,
	}
}

func (i *Index) encode() any {
	return map[string]any{
		"type":   "index",
		"inner":  encodeChild(i.Inner),
		"offset": encodeChild(i.Offset),
	}
}

func (n *Not) encode() any {
	return map[string]any{
		"type":  "not",
		"inner": encodeChild(n.Expr),
	}
}

func (l *Logical) encode() any {
	return map[string]any{
		"type":  "logical",
		"op":    l.Op.String(),
		"left":  encodeChild(l.Left),
		"right": encodeChild(l.Right),
	}
}

func (c *Comparison) encode() any {
	return map[string]any{
		"type":  "cmp",
		"op":    c.Op.String(),
		"left":  encodeChild(c.Left),
		"right": encodeChild(c.Right),
	}
}

func (a *Arithmetic) encode() any {
	return map[string]any{
		"type":  "arith",
		"op":    a.Op.String(),
		"left":  encodeChild(a.Left),
		"right": encodeChild(a.Right),
	}
}

func (u *UnaryArith) encode() any {
	return map[string]any{
		"type":  "unary",
		"op":    u.Op.String(),
		"child": encodeChild(u.Child),
	}
}

func (b *Builtin) encode() any {
	args := make([]any, len(b.Args))
	for i := range b.Args {
		args[i] = encodeChild(b.Args[i])
	}
	return map[string]any{
		"type": "builtin",
		"func": b.Name(),
		"args": args,
	}
}

func (c *Conditional) encode() any {
	return map[string]any{
		"type": "cond",
		"if":   encodeChild(c.If),
		"then": encodeChild(c.Then),
		"else": encodeChild(c.Else),
	}
}
