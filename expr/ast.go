/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package expr

// Node is an expression syntax tree node.
type Node interface {
	Pos() int
}

// Literal is a number, string, boolean, null, or undefined.
type Literal struct {
	At    int
	Value interface{}
}

// Ident is a bare identifier.
type Ident struct {
	At   int
	Name string
}

// Unary is a prefix operator application: !x, -x, +x, typeof x.
type Unary struct {
	At int
	Op TokenType
	X  Node
}

// Binary covers arithmetic, comparison, and logical operators.
type Binary struct {
	At   int
	Op   TokenType
	L, R Node
}

// Conditional is test ? then : else.
type Conditional struct {
	At               int
	Test, Then, Else Node
}

// Member is x.name or x[index].  Optional marks "?.".
type Member struct {
	At       int
	X        Node
	Name     string
	Index    Node
	Computed bool
	Optional bool
}

// Call is fn(args).
type Call struct {
	At       int
	Fn       Node
	Args     []Node
	Optional bool
}

// New is "new Callee(args)".  It parses so that it can be rejected.
type New struct {
	At     int
	Callee Node
	Args   []Node
}

// Spread is ...x inside an array literal, object literal, or
// argument list.
type Spread struct {
	At int
	X  Node
}

// ArrayLit is [a, b, ...c].
type ArrayLit struct {
	At    int
	Elems []Node
}

// Prop is one entry of an object literal.  Exactly one of Key (with
// Value), KeyExpr (with Value), or Spread is set.
type Prop struct {
	Key     string
	KeyExpr Node
	Value   Node
	Spread  Node
}

// ObjectLit is {a: 1, [k]: v, ...o}.
type ObjectLit struct {
	At    int
	Props []Prop
}

// Arrow is (a, b) => body.  Only expression bodies are supported.
type Arrow struct {
	At     int
	Params []string
	Body   Node
}

func (n *Literal) Pos() int     { return n.At }
func (n *Ident) Pos() int       { return n.At }
func (n *Unary) Pos() int       { return n.At }
func (n *Binary) Pos() int      { return n.At }
func (n *Conditional) Pos() int { return n.At }
func (n *Member) Pos() int      { return n.At }
func (n *Call) Pos() int        { return n.At }
func (n *New) Pos() int         { return n.At }
func (n *Spread) Pos() int      { return n.At }
func (n *ArrayLit) Pos() int    { return n.At }
func (n *ObjectLit) Pos() int   { return n.At }
func (n *Arrow) Pos() int       { return n.At }

// Walk calls f for n and then, if f returns true, for each child of n
// in source order.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch vv := n.(type) {
	case *Unary:
		Walk(vv.X, f)
	case *Binary:
		Walk(vv.L, f)
		Walk(vv.R, f)
	case *Conditional:
		Walk(vv.Test, f)
		Walk(vv.Then, f)
		Walk(vv.Else, f)
	case *Member:
		Walk(vv.X, f)
		if vv.Computed {
			Walk(vv.Index, f)
		}
	case *Call:
		Walk(vv.Fn, f)
		for _, a := range vv.Args {
			Walk(a, f)
		}
	case *New:
		Walk(vv.Callee, f)
		for _, a := range vv.Args {
			Walk(a, f)
		}
	case *Spread:
		Walk(vv.X, f)
	case *ArrayLit:
		for _, e := range vv.Elems {
			Walk(e, f)
		}
	case *ObjectLit:
		for _, p := range vv.Props {
			if p.Spread != nil {
				Walk(p.Spread, f)
				continue
			}
			if p.KeyExpr != nil {
				Walk(p.KeyExpr, f)
			}
			Walk(p.Value, f)
		}
	case *Arrow:
		Walk(vv.Body, f)
	}
}
