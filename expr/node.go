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
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// Visitor is an interface that must
// be satisfied by the argument to Visit.
//
// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result visitor w is not nil, Walk visits each of the children of node
// with the visitor w, followed by a call of w.Visit(nil).
//
// (see also: ast.Visitor)
type Visitor interface {
	Visit(Node) Visitor
}

// Rewriter accepts a Node and returns
// a new node (or just its argument)
type Rewriter interface {
	// Rewrite is applied to nodes
	// in depth-first order, and each
	// node is re-written to use the
	// returned value.
	Rewrite(Node) Node

	// Walk is called during node traversal
	// and the returned Rewriter is used for
	// all the children of Node.
	// If the returned rewriter is nil,
	// then traversal does not proceed past Node.
	Walk(Node) Rewriter
}

type nonleaf interface {
	rewrite(r Rewriter) Node
}

// Rewrite recursively applies a Rewriter in depth-first order.
//
// Rewrite never mutates its input: when a rewrite changes one
// or more children of a node, the node is reconstructed around
// the new children, and otherwise the original node is returned.
// Subtrees that are not changed by r are shared between the
// input and the result.
func Rewrite(r Rewriter, n Node) Node {
	if n == nil {
		return nil
	}
	nl, ok := n.(nonleaf)
	if ok {
		rc := r.Walk(n)
		if rc != nil {
			n = nl.rewrite(rc)
		}
	}
	n = r.Rewrite(n)
	return n
}

// Walk traverses an AST in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w for
// each of the non-nil children of node, followed by a call of w.Visit(nil).
//
// (see also: ast.Walk)
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// ToString returns the string
// representation of this AST node
// and its children
func ToString(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, false)
	return dst.String()
}

// ToRedacted returns the string
// representation of this AST node
// and its children, but with all
// constant expressions replaced
// with random (deterministic) values.
func ToRedacted(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, true)
	return dst.String()
}

type Printable interface {
	// text should write the textual representation
	// of this node to dst, and should redact itself
	// if it is a constant and redact is true
	text(dst *strings.Builder, redact bool)
}

// Node is an expression AST node
type Node interface {
	Printable
	// Equals returns whether this node
	// is equivalent to another node.
	// Nodes are Equal if they are
	// syntactically equivalent or correspond
	// to equal numeric values.
	Equals(Node) bool

	// encode produces the wire representation
	// of this node (see Encode)
	encode() any

	walk(Visitor)
}

// Equal returns whether a and b are equivalent.
// a or b may be nil.
func Equal(a, b Node) bool {
	if a == nil {
		return b == nil
	}
	return b != nil && a.Equals(b)
}

// textOf writes the textual representation of n to dst,
// or the placeholder text "<nil>" when n is missing.
func textOf(dst *strings.Builder, n Node, redact bool) {
	if n == nil {
		dst.WriteString("<nil>")
		return
	}
	n.text(dst, redact)
}

// Constant is a Node that is
// a constant value.
type Constant interface {
	Node
	// ConstValue returns the Go value
	// associated with this constant.
	ConstValue() any
}

var (
	// these are all the Constant types
	_ Constant = String("")
	_ Constant = Integer(0)
	_ Constant = Float(0)
	_ Constant = Bool(true)
	_ Constant = (*Timestamp)(nil)
	_ Constant = Null{}
)

// IsConstant returns the value associated with
// a constant expression, plus a boolean indicating
// whether or not the expression is actually constant
func IsConstant(e Node) (any, bool) {
	c, ok := e.(Constant)
	if !ok {
		return nil, false
	}
	return c.ConstValue(), true
}

type stronglyTyped interface {
	Type() TypeSet
}

type weaklyTyped interface {
	typeof(h Hint) TypeSet
}

// TypeOf attempts to return the set
// of types that a node could evaluate
// to at runtime.
func TypeOf(n Node, h Hint) TypeSet {
	if n == nil {
		return AnyType
	}
	if h == nil {
		h = HintFn(NoHint)
	}
	// parameters are typed by their declaration,
	// possibly refined by a hint
	if p, ok := n.(*Param); ok {
		return p.Of & h.TypeOf(p)
	}
	if st, ok := n.(stronglyTyped); ok {
		return st.Type()
	}
	if tn, ok := n.(weaklyTyped); ok {
		return tn.typeof(h)
	}
	return AnyType
}

type Bool bool

func (b Bool) text(dst *strings.Builder, redact bool) {
	if b {
		dst.WriteString("TRUE")
	} else {
		dst.WriteString("FALSE")
	}
}

func (b Bool) Equals(e Node) bool {
	eb, ok := e.(Bool)
	if !ok {
		return false
	}
	return b == eb
}

func (b Bool) walk(v Visitor) {}

func (b Bool) Type() TypeSet {
	return BoolType
}

func (b Bool) ConstValue() any {
	return bool(b)
}

// String is a literal string AST node
type String string

func (s String) text(dst *strings.Builder, redact bool) {
	v := string(s)
	if redact {
		v = redactString(v)
	}
	quote(dst, v)
}

func (s String) walk(v Visitor) {}

func (s String) Type() TypeSet {
	return StringType
}

func (s String) Equals(e Node) bool {
	es, ok := e.(String)
	if !ok {
		return false
	}
	return s == es
}

func (s String) ConstValue() any {
	return string(s)
}

// Float is a literal float AST node
type Float float64

func (f Float) text(dst *strings.Builder, redact bool) {
	var buf [32]byte
	v := float64(f)
	if redact {
		v = redactFloat(v)
	}
	dst.Write(strconv.AppendFloat(buf[:0], v, 'g', -1, 64))
}

func (f Float) walk(v Visitor) {}

func (f Float) Type() TypeSet {
	return FloatType
}

func (f Float) ConstValue() any {
	return float64(f)
}

func (f Float) Equals(e Node) bool {
	ef, ok := e.(Float)
	if ok {
		return f == ef
	}
	ei, ok := e.(Integer)
	if ok {
		return float64(f) == float64(int64(ei))
	}
	return false
}

// Integer is a literal integer AST node
type Integer int64

func (i Integer) text(dst *strings.Builder, redact bool) {
	var buf [32]byte
	v := int64(i)
	if redact {
		v = redactInt(v)
	}
	dst.Write(strconv.AppendInt(buf[:0], v, 10))
}

func (i Integer) walk(v Visitor) {}

func (i Integer) Type() TypeSet {
	return IntType
}

func (i Integer) ConstValue() any {
	return int64(i)
}

func (i Integer) Equals(e Node) bool {
	ei, ok := e.(Integer)
	if ok {
		return ei == i
	}
	ef, ok := e.(Float)
	if ok {
		trunc := int64(ef)
		return float64(trunc) == float64(ef) && trunc == int64(i)
	}
	return false
}

// Null is the null constant
type Null struct{}

func (n Null) text(dst *strings.Builder, redact bool) {
	dst.WriteString("NULL")
}

func (n Null) walk(v Visitor) {}

func (n Null) Equals(x Node) bool {
	_, ok := x.(Null)
	return ok
}

func (n Null) Type() TypeSet {
	return NullType
}

func (n Null) ConstValue() any {
	return nil
}

// Timestamp is a literal timestamp AST node
type Timestamp struct {
	Value time.Time
}

func (t *Timestamp) text(dst *strings.Builder, redact bool) {
	v := t.Value.Format(time.RFC3339Nano)
	if redact {
		v = redactString(v)
	}
	dst.WriteByte('`')
	dst.WriteString(v)
	dst.WriteByte('`')
}

func (t *Timestamp) walk(v Visitor) {}

func (t *Timestamp) Type() TypeSet {
	return TimeType
}

func (t *Timestamp) ConstValue() any {
	return t.Value
}

func (t *Timestamp) Equals(e Node) bool {
	et, ok := e.(*Timestamp)
	return ok && t.Value.Equal(et.Value)
}

// paramID is the source of parameter identities;
// see NewParam
var paramID uint64

// Param is a named placeholder for the
// input of a Lambda.
//
// Every Param carries a process-unique identity
// assigned by NewParam. Binding relationships
// (which references belong to which lambda) are
// always established through that identity, never
// through the name: two parameters spelled the same
// way are still distinct bindings. Equals, on the
// other hand, compares parameters structurally
// (name and declared type), so that trees survive
// an encode/decode round trip Equals-equivalent.
type Param struct {
	// Name is the display name of the parameter.
	Name string
	// Of is the set of types the parameter
	// may assume at runtime.
	Of TypeSet

	id uint64
}

// NewParam returns a fresh parameter
// with a new unique identity.
func NewParam(name string, of TypeSet) *Param {
	return &Param{Name: name, Of: of, id: atomic.AddUint64(&paramID, 1)}
}

// Is returns whether p and q are the same binding.
func (p *Param) Is(q *Param) bool {
	return p != nil && q != nil && p.id == q.id
}

func (p *Param) text(dst *strings.Builder, redact bool) {
	dst.WriteString(QuoteID(p.Name))
}

func (p *Param) walk(v Visitor) {}

func (p *Param) Equals(e Node) bool {
	ep, ok := e.(*Param)
	return ok && p.Name == ep.Name && p.Of == ep.Of
}

// Lambda is a single-parameter expression
// abstraction: a body expression closed over
// one Param.
//
// Lambda is itself a Node, so it can appear
// inside other trees, but the composition and
// evaluation layers only operate on lambdas
// whose bodies reference their own parameter
// (see Check).
type Lambda struct {
	// Param is the bound parameter.
	Param *Param
	// Body is the expression tree; references
	// to Param within Body denote the lambda input.
	Body Node
}

func (l *Lambda) text(dst *strings.Builder, redact bool) {
	if l.Param == nil {
		dst.WriteString("<nil>")
	} else {
		dst.WriteString(QuoteID(l.Param.Name))
	}
	dst.WriteString(" -> ")
	textOf(dst, l.Body, redact)
}

func (l *Lambda) walk(v Visitor) {
	if l.Body != nil {
		Walk(v, l.Body)
	}
}

func (l *Lambda) rewrite(r Rewriter) Node {
	body := Rewrite(r, l.Body)
	if body == l.Body {
		return l
	}
	return &Lambda{Param: l.Param, Body: body}
}

func (l *Lambda) Equals(e Node) bool {
	el, ok := e.(*Lambda)
	if !ok {
		return false
	}
	if l.Param == nil || el.Param == nil {
		return l.Param == el.Param && Equal(l.Body, el.Body)
	}
	return l.Param.Equals(el.Param) && Equal(l.Body, el.Body)
}

// QuoteID produces a textual identifier;
// the returned string will be double-quoted with escapes
// if it contains non-printable or reserved characters.
func QuoteID(s string) string {
	if s == "" || strings.ContainsAny(s, " .%,~+-!<>=(){}[]:") {
		return strconv.Quote(s)
	}
	for _, r := range s {
		if !strconv.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}

// Dot is a member access expression
// (inner.Field)
type Dot struct {
	Inner Node
	Field string
}

func (d *Dot) text(dst *strings.Builder, redact bool) {
	switch d.Inner.(type) {
	case *Param, *Dot, *Index:
		textOf(dst, d.Inner, redact)
	default:
		dst.WriteByte('(')
		textOf(dst, d.Inner, redact)
		dst.WriteByte(')')
	}
	dst.WriteByte('.')
	dst.WriteString(QuoteID(d.Field))
}

func (d *Dot) walk(v Visitor) {
	if d.Inner != nil {
		Walk(v, d.Inner)
	}
}

func (d *Dot) rewrite(r Rewriter) Node {
	inner := Rewrite(r, d.Inner)
	if inner == d.Inner {
		return d
	}
	return &Dot{Inner: inner, Field: d.Field}
}

func (d *Dot) Equals(x Node) bool {
	xd, ok := x.(*Dot)
	return ok && d.Field == xd.Field && d.Inner.Equals(xd.Inner)
}

func (d *Dot) typeof(h Hint) TypeSet {
	return h.TypeOf(d)
}

// Index is a list element access
// expression (inner[offset])
type Index struct {
	Inner  Node
	Offset Node
}

func (i *Index) text(dst *strings.Builder, redact bool) {
	switch i.Inner.(type) {
	case *Param, *Dot, *Index:
		textOf(dst, i.Inner, redact)
	default:
		dst.WriteByte('(')
		textOf(dst, i.Inner, redact)
		dst.WriteByte(')')
	}
	dst.WriteByte('[')
	textOf(dst, i.Offset, redact)
	dst.WriteByte(']')
}

func (i *Index) walk(v Visitor) {
	if i.Inner != nil {
		Walk(v, i.Inner)
	}
	if i.Offset != nil {
		Walk(v, i.Offset)
	}
}

func (i *Index) rewrite(r Rewriter) Node {
	inner := Rewrite(r, i.Inner)
	offset := Rewrite(r, i.Offset)
	if inner == i.Inner && offset == i.Offset {
		return i
	}
	return &Index{Inner: inner, Offset: offset}
}

func (i *Index) Equals(x Node) bool {
	xi, ok := x.(*Index)
	return ok && i.Inner.Equals(xi.Inner) && i.Offset.Equals(xi.Offset)
}

func (i *Index) typeof(h Hint) TypeSet {
	return h.TypeOf(i)
}

// FlatPath returns the sequence of member accesses
// that makes up e, beginning with the name of the
// parameter at its root, or (nil, false) if e is
// not a simple path expression.
//
// For example, the expression x.location.city
// flattens to ["x", "location", "city"].
func FlatPath(e Node) ([]string, bool) {
	var flatten func(e Node) ([]string, bool)
	flatten = func(e Node) ([]string, bool) {
		switch n := e.(type) {
		case *Param:
			return []string{n.Name}, true
		case *Dot:
			head, ok := flatten(n.Inner)
			if !ok {
				return nil, false
			}
			return append(head, n.Field), true
		default:
			return nil, false
		}
	}
	return flatten(e)
}

// CmpOp is a comparison operation type
type CmpOp int

const (
	Equals CmpOp = iota
	NotEquals

	// note: keep these in order
	// so that we can determine
	// quickly if we are performing
	// an ordinal comparison:

	Less
	LessEquals
	Greater
	GreaterEquals
)

func (c CmpOp) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	default:
		return "<unknown cmp op>"
	}
}

func (c CmpOp) Ordinal() bool {
	return c >= Less && c <= GreaterEquals
}

// Flip returns the operator that is equivalent to c if
// used with the operand order reversed.
func (c CmpOp) Flip() CmpOp {
	switch c {
	case Less:
		return Greater
	case LessEquals:
		return GreaterEquals
	case Greater:
		return Less
	case GreaterEquals:
		return LessEquals
	default:
		return c
	}
}

type Comparison struct {
	Op          CmpOp
	Left, Right Node
}

// Compare generates a comparison operation
// of the given type and with the given arguments
func Compare(op CmpOp, left, right Node) Node {
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) Equals(x Node) bool {
	ec, ok := x.(*Comparison)
	return ok && ec.Op == c.Op && c.Left.Equals(ec.Left) && c.Right.Equals(ec.Right)
}

func (c *Comparison) walk(v Visitor) {
	if c.Left != nil {
		Walk(v, c.Left)
	}
	if c.Right != nil {
		Walk(v, c.Right)
	}
}

func (c *Comparison) rewrite(r Rewriter) Node {
	left := Rewrite(r, c.Left)
	right := Rewrite(r, c.Right)
	if left == c.Left && right == c.Right {
		return c
	}
	return &Comparison{Op: c.Op, Left: left, Right: right}
}

func (c *Comparison) text(dst *strings.Builder, redact bool) {
	parens := false
	// if the right-hand-side op is also
	// a comparison, we must parenthesize it,
	// since otherwise the left-hand associativity
	// would change the meaning of the expression
	// without parentheses
	// i.e.
	//   A = B = C is (A = B) = C
	// so if we have
	//   A = (B = C)
	// then we must use parentheses
	//
	// arithmetic expressions are fine
	// on the rhs, because they have higher precedence
	if _, ok := c.Right.(*Comparison); ok {
		parens = true
	}
	// similarly, if we are comparing boolean
	// expressions with =/<>, make sure those are wrapped
	// as they have lower precedence than comparisons
	if _, ok := c.Right.(*Logical); ok {
		parens = true
	}
	if _, ok := c.Left.(*Logical); ok {
		dst.WriteByte('(')
		textOf(dst, c.Left, redact)
		dst.WriteByte(')')
	} else {
		textOf(dst, c.Left, redact)
	}
	dst.WriteString(fmt.Sprintf(" %s ", c.Op))
	if parens {
		dst.WriteByte('(')
	}
	textOf(dst, c.Right, redact)
	if parens {
		dst.WriteByte(')')
	}
}

func (c *Comparison) Type() TypeSet {
	return LogicalType
}

// Between yields an expression equivalent to
//
//	lo <= val AND val <= hi
func Between(val, lo, hi Node) *Logical {
	return &Logical{
		Op:    OpAnd,
		Left:  Compare(GreaterEquals, val, lo),
		Right: Compare(LessEquals, val, hi),
	}
}

// LogicalOp is a logical operation
type LogicalOp int

const (
	OpAnd  LogicalOp = iota // A AND B
	OpOr                    // A OR B
	OpXnor                  // A XNOR B (A = B)
	OpXor                   // A XOR B (A != B)
)

func (l LogicalOp) String() string {
	switch l {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpXor:
		return "XOR"
	case OpXnor:
		return "XNOR"
	}
	return "<unknown logical op>"
}

// Logical is a Node that represents
// a logical expression
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

func (l *Logical) Equals(x Node) bool {
	xl, ok := x.(*Logical)
	return ok && l.Op == xl.Op && l.Left.Equals(xl.Left) && l.Right.Equals(xl.Right)
}

func (l *Logical) walk(v Visitor) {
	if l.Left != nil {
		Walk(v, l.Left)
	}
	if l.Right != nil {
		Walk(v, l.Right)
	}
}

func (l *Logical) rewrite(r Rewriter) Node {
	left := Rewrite(r, l.Left)
	right := Rewrite(r, l.Right)
	if left == l.Left && right == l.Right {
		return l
	}
	return &Logical{Op: l.Op, Left: left, Right: right}
}

func (l *Logical) text(dst *strings.Builder, redact bool) {
	parens := false
	// if we don't parenthesize the rhs expression
	// when it is an infix logical operation, we
	// will produce an expression that means something
	// different when interpreted with left-associative rules
	//
	// arithmetic and comparison expressions
	// have higher precedence, so we don't need to wrap them
	if _, ok := l.Right.(*Logical); ok {
		parens = true
	}
	textOf(dst, l.Left, redact)
	var middle string
	switch l.Op {
	case OpAnd:
		middle = " AND "
	case OpOr:
		middle = " OR "
	case OpXor:
		middle = " <> "
	case OpXnor:
		middle = " = "
	default:
		middle = "Logical(???)"
	}
	dst.WriteString(middle)
	if parens {
		dst.WriteByte('(')
	}
	textOf(dst, l.Right, redact)
	if parens {
		dst.WriteByte(')')
	}
}

func (l *Logical) Type() TypeSet {
	return LogicalType
}

// And yields '<left> AND <right>'
func And(left, right Node) *Logical {
	return &Logical{Op: OpAnd, Left: left, Right: right}
}

// Or yields '<left> OR <right>'
func Or(left, right Node) *Logical {
	return &Logical{Op: OpOr, Left: left, Right: right}
}

// Xor computes 'left XOR right',
// which is equivalent to 'left <> right'
// for boolean expressions
func Xor(left, right Node) *Logical {
	return &Logical{Op: OpXor, Left: left, Right: right}
}

// Xnor computes 'left XNOR right',
// which is equivalent to 'left = right'
// for boolean expressions.
func Xnor(left, right Node) *Logical {
	return &Logical{Op: OpXnor, Left: left, Right: right}
}

// Not yields
//
//	! (Expr)
type Not struct {
	Expr Node
}

func (n *Not) text(dst *strings.Builder, redact bool) {
	dst.WriteString("!(")
	textOf(dst, n.Expr, redact)
	dst.WriteByte(')')
}

func (n *Not) walk(v Visitor) {
	if n.Expr != nil {
		Walk(v, n.Expr)
	}
}

func (n *Not) rewrite(r Rewriter) Node {
	inner := Rewrite(r, n.Expr)
	if inner == n.Expr {
		return n
	}
	return &Not{Expr: inner}
}

func (n *Not) Type() TypeSet {
	return LogicalType
}

func (n *Not) Equals(x Node) bool {
	xn, ok := x.(*Not)
	return ok && n.Expr.Equals(xn.Expr)
}

// ArithOp is one of the binary arithmetic ops
type ArithOp int

const (
	AddOp ArithOp = iota
	SubOp
	MulOp
	DivOp
	ModOp
	BitAndOp
	BitOrOp
	BitXorOp
)

func (a ArithOp) String() string {
	switch a {
	case AddOp:
		return "+"
	case SubOp:
		return "-"
	case MulOp:
		return "*"
	case DivOp:
		return "/"
	case ModOp:
		return "%"
	case BitAndOp:
		return "&"
	case BitOrOp:
		return "|"
	case BitXorOp:
		return "^"
	default:
		return fmt.Sprintf("<ArithOp=%d>", int(a))
	}
}

// Arithmetic is a binary arithmetic expression
type Arithmetic struct {
	Op          ArithOp
	Left, Right Node
}

// NewArith generates a binary arithmetic expression.
func NewArith(op ArithOp, left, right Node) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

func Add(left, right Node) *Arithmetic    { return NewArith(AddOp, left, right) }
func Sub(left, right Node) *Arithmetic    { return NewArith(SubOp, left, right) }
func Mul(left, right Node) *Arithmetic    { return NewArith(MulOp, left, right) }
func Div(left, right Node) *Arithmetic    { return NewArith(DivOp, left, right) }
func Mod(left, right Node) *Arithmetic    { return NewArith(ModOp, left, right) }
func BitAnd(left, right Node) *Arithmetic { return NewArith(BitAndOp, left, right) }
func BitOr(left, right Node) *Arithmetic  { return NewArith(BitOrOp, left, right) }
func BitXor(left, right Node) *Arithmetic { return NewArith(BitXorOp, left, right) }

func infix(e Node) bool {
	if _, ok := e.(*Arithmetic); ok {
		return true
	}
	_, ok := e.(*Comparison)
	return ok
}

func (a *Arithmetic) text(dst *strings.Builder, redact bool) {
	// if the right-hand-side expression
	// is an infix binary expression, then
	// we must parenthesize it in case it contains
	// an operator of higher precedence
	// (we could compare precedence directly,
	// but it's easier just to do this unconditionally)
	parens := infix(a.Right)
	textOf(dst, a.Left, redact)
	dst.WriteString(fmt.Sprintf(" %s ", a.Op))
	if parens {
		dst.WriteByte('(')
	}
	textOf(dst, a.Right, redact)
	if parens {
		dst.WriteByte(')')
	}
}

func (a *Arithmetic) walk(v Visitor) {
	if a.Left != nil {
		Walk(v, a.Left)
	}
	if a.Right != nil {
		Walk(v, a.Right)
	}
}

func (a *Arithmetic) rewrite(r Rewriter) Node {
	left := Rewrite(r, a.Left)
	right := Rewrite(r, a.Right)
	if left == a.Left && right == a.Right {
		return a
	}
	return &Arithmetic{Op: a.Op, Left: left, Right: right}
}

func (a *Arithmetic) Equals(x Node) bool {
	xa, ok := x.(*Arithmetic)
	if !ok {
		return false
	}
	return a.Op == xa.Op && a.Left.Equals(xa.Left) && a.Right.Equals(xa.Right)
}

func (a *Arithmetic) typeof(hint Hint) TypeSet {
	if a.Op >= BitAndOp {
		return IntType
	}
	t := (TypeOf(a.Left, hint) | TypeOf(a.Right, hint)) & NumericType
	if t == 0 {
		return NumericType
	}
	return t
}

// UnaryArithOp is one of the unary arithmetic ops
type UnaryArithOp int

const (
	NegOp UnaryArithOp = iota
	BitNotOp
)

func (u UnaryArithOp) String() string {
	switch u {
	case NegOp:
		return "-"
	case BitNotOp:
		return "~"
	default:
		return fmt.Sprintf("<UnaryArithOp=%d>", int(u))
	}
}

type UnaryArith struct {
	Op    UnaryArithOp
	Child Node
}

func NewUnaryArith(op UnaryArithOp, child Node) *UnaryArith {
	return &UnaryArith{Op: op, Child: child}
}

func Neg(child Node) *UnaryArith {
	return NewUnaryArith(NegOp, child)
}

func BitNot(child Node) *UnaryArith {
	return NewUnaryArith(BitNotOp, child)
}

func (u *UnaryArith) text(dst *strings.Builder, redact bool) {
	dst.WriteString(u.Op.String())
	dst.WriteByte('(')
	textOf(dst, u.Child, redact)
	dst.WriteByte(')')
}

func (u *UnaryArith) walk(v Visitor) {
	if u.Child != nil {
		Walk(v, u.Child)
	}
}

func (u *UnaryArith) rewrite(r Rewriter) Node {
	child := Rewrite(r, u.Child)
	if child == u.Child {
		return u
	}
	return &UnaryArith{Op: u.Op, Child: child}
}

func (u *UnaryArith) Equals(x Node) bool {
	xu, ok := x.(*UnaryArith)
	return ok && u.Op == xu.Op && u.Child.Equals(xu.Child)
}

func (u *UnaryArith) typeof(hint Hint) TypeSet {
	if u.Op == BitNotOp {
		return IntType
	}
	t := TypeOf(u.Child, hint) & NumericType
	if t == 0 {
		return NumericType
	}
	return t
}

// Builtin is a Node that represents
// a call to a builtin function
type Builtin struct {
	Func BuiltinOp // function identity
	Args []Node    // function arguments
}

func (b *Builtin) walk(v Visitor) {
	for i := range b.Args {
		if b.Args[i] != nil {
			Walk(v, b.Args[i])
		}
	}
}

func (b *Builtin) rewrite(r Rewriter) Node {
	var out []Node
	for i := range b.Args {
		arg := Rewrite(r, b.Args[i])
		if out == nil && arg != b.Args[i] {
			out = make([]Node, len(b.Args))
			copy(out, b.Args[:i])
		}
		if out != nil {
			out[i] = arg
		}
	}
	if out == nil {
		return b
	}
	return &Builtin{Func: b.Func, Args: out}
}

func (b *Builtin) Equals(x Node) bool {
	xb, ok := x.(*Builtin)
	return ok && b.Func == xb.Func &&
		slices.EqualFunc(b.Args, xb.Args, func(l, r Node) bool { return Equal(l, r) })
}

func (b *Builtin) Name() string {
	return b.Func.String()
}

func (b *Builtin) text(dst *strings.Builder, redact bool) {
	dst.WriteString(b.Name())
	dst.WriteByte('(')
	for i := range b.Args {
		textOf(dst, b.Args[i], redact)
		if i != len(b.Args)-1 {
			dst.WriteString(", ")
		}
	}
	dst.WriteByte(')')
}

func (b *Builtin) typeof(hint Hint) TypeSet {
	return b.Func.ret(b.Args, hint)
}

// Conditional is a ternary
// if/then/else expression
type Conditional struct {
	If, Then, Else Node
}

// If yields 'IF(test, then, els)', an expression
// that evaluates to then when test is true and
// els otherwise.
func If(test, then, els Node) *Conditional {
	return &Conditional{If: test, Then: then, Else: els}
}

func (c *Conditional) text(dst *strings.Builder, redact bool) {
	dst.WriteString("IF(")
	textOf(dst, c.If, redact)
	dst.WriteString(", ")
	textOf(dst, c.Then, redact)
	dst.WriteString(", ")
	textOf(dst, c.Else, redact)
	dst.WriteByte(')')
}

func (c *Conditional) walk(v Visitor) {
	if c.If != nil {
		Walk(v, c.If)
	}
	if c.Then != nil {
		Walk(v, c.Then)
	}
	if c.Else != nil {
		Walk(v, c.Else)
	}
}

func (c *Conditional) rewrite(r Rewriter) Node {
	cond := Rewrite(r, c.If)
	then := Rewrite(r, c.Then)
	els := Rewrite(r, c.Else)
	if cond == c.If && then == c.Then && els == c.Else {
		return c
	}
	return &Conditional{If: cond, Then: then, Else: els}
}

func (c *Conditional) Equals(x Node) bool {
	xc, ok := x.(*Conditional)
	return ok && c.If.Equals(xc.If) && c.Then.Equals(xc.Then) && c.Else.Equals(xc.Else)
}

func (c *Conditional) typeof(hint Hint) TypeSet {
	return TypeOf(c.Then, hint) | TypeOf(c.Else, hint)
}
