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

// MaxNesting limits how deeply expressions can nest during parsing.
var MaxNesting = 64

type parser struct {
	src   string
	toks  []Token
	i     int
	depth int
}

// Parse parses a single expression.  Errors are always *Error with
// Reason SyntaxError.
func Parse(src string) (Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != EOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) peekAt(k int) Token {
	if p.i+k < len(p.toks) {
		return p.toks[p.i+k]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() Token {
	t := p.toks[p.i]
	if t.Type != EOF {
		p.i++
	}
	return t
}

func (p *parser) match(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(pos int, msg string) error {
	return &Error{Reason: SyntaxError, Expr: p.src, Msg: msg, Pos: pos}
}

func (p *parser) unexpected(t Token) error {
	if t.Type == EOF {
		return p.errorf(t.Pos, "unexpected end of input")
	}
	return p.errorf(t.Pos, "unexpected "+t.Type.String())
}

func (p *parser) need(tt TokenType) (Token, error) {
	t := p.peek()
	if t.Type != tt {
		if t.Type == EOF {
			return t, p.errorf(t.Pos, "expected "+tt.String()+" before end of input")
		}
		return t, p.errorf(t.Pos, "expected "+tt.String()+", found "+t.Type.String())
	}
	return p.advance(), nil
}

// Binding powers, loosest first.
const (
	bpTernary  = 2
	bpNullish  = 3
	bpOr       = 4
	bpAnd      = 5
	bpEquality = 8
	bpCompare  = 9
	bpAdditive = 11
	bpMultiply = 12
	bpPow      = 13
	bpPrefix   = 14
	bpPostfix  = 17
)

func lbp(tt TokenType) int {
	switch tt {
	case QUESTION:
		return bpTernary
	case NULLISH:
		return bpNullish
	case OR:
		return bpOr
	case AND:
		return bpAnd
	case EQ, NEQ, SEQ, SNEQ:
		return bpEquality
	case LT, LTE, GT, GTE:
		return bpCompare
	case PLUS, MINUS:
		return bpAdditive
	case STAR, SLASH, PERCENT:
		return bpMultiply
	case POW:
		return bpPow
	case PERIOD, OPTCHAIN, LBRACKET, LPAREN:
		return bpPostfix
	}
	return 0
}

func (p *parser) expr(minBP int) (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNesting {
		return nil, p.errorf(p.peek().Pos, "expression nested too deeply")
	}

	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.Type == ASSIGN {
			return nil, p.errorf(t.Pos, "assignment is not allowed in expressions")
		}
		bp := lbp(t.Type)
		if bp <= minBP {
			return left, nil
		}
		if left, err = p.infix(left, t, bp); err != nil {
			return nil, err
		}
	}
}

func (p *parser) infix(left Node, t Token, bp int) (Node, error) {
	switch t.Type {
	case QUESTION:
		p.advance()
		then, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(COLON); err != nil {
			return nil, err
		}
		els, err := p.expr(bpTernary - 1)
		if err != nil {
			return nil, err
		}
		return &Conditional{At: t.Pos, Test: left, Then: then, Else: els}, nil

	case PERIOD, OPTCHAIN, LBRACKET, LPAREN:
		return p.postfix(left)

	case POW:
		p.advance()
		// Right-associative.
		right, err := p.expr(bp - 1)
		if err != nil {
			return nil, err
		}
		return &Binary{At: t.Pos, Op: t.Type, L: left, R: right}, nil
	}

	p.advance()
	right, err := p.expr(bp)
	if err != nil {
		return nil, err
	}
	return &Binary{At: t.Pos, Op: t.Type, L: left, R: right}, nil
}

func (p *parser) postfix(left Node) (Node, error) {
	t := p.advance()
	switch t.Type {
	case PERIOD:
		name, err := p.propertyName()
		if err != nil {
			return nil, err
		}
		return &Member{At: t.Pos, X: left, Name: name}, nil

	case OPTCHAIN:
		switch p.peek().Type {
		case LBRACKET:
			p.advance()
			return p.index(left, t.Pos, true)
		case LPAREN:
			p.advance()
			args, err := p.list(RPAREN)
			if err != nil {
				return nil, err
			}
			return &Call{At: t.Pos, Fn: left, Args: args, Optional: true}, nil
		}
		name, err := p.propertyName()
		if err != nil {
			return nil, err
		}
		return &Member{At: t.Pos, X: left, Name: name, Optional: true}, nil

	case LBRACKET:
		return p.index(left, t.Pos, false)

	case LPAREN:
		args, err := p.list(RPAREN)
		if err != nil {
			return nil, err
		}
		return &Call{At: t.Pos, Fn: left, Args: args}, nil
	}
	return nil, p.unexpected(t)
}

func (p *parser) index(left Node, at int, optional bool) (Node, error) {
	idx, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RBRACKET); err != nil {
		return nil, err
	}
	return &Member{At: at, X: left, Index: idx, Computed: true, Optional: optional}, nil
}

// propertyName accepts identifiers and keywords after a dot.
func (p *parser) propertyName() (string, error) {
	t := p.peek()
	switch t.Type {
	case IDENT, TRUE, FALSE, NULL, UNDEFINED, TYPEOF, NEW, RESERVED:
		p.advance()
		return t.Lit, nil
	}
	return "", p.errorf(t.Pos, "expected property name, found "+t.Type.String())
}

func (p *parser) prefix() (Node, error) {
	t := p.peek()
	switch t.Type {
	case NUMBER, STRING:
		p.advance()
		return &Literal{At: t.Pos, Value: t.Val}, nil
	case TRUE:
		p.advance()
		return &Literal{At: t.Pos, Value: true}, nil
	case FALSE:
		p.advance()
		return &Literal{At: t.Pos, Value: false}, nil
	case NULL:
		p.advance()
		return &Literal{At: t.Pos, Value: nil}, nil
	case UNDEFINED:
		p.advance()
		return &Literal{At: t.Pos, Value: Undefined}, nil

	case IDENT:
		if p.peekAt(1).Type == ARROW {
			p.advance()
			p.advance()
			return p.arrowBody(t.Pos, []string{t.Lit})
		}
		p.advance()
		return &Ident{At: t.Pos, Name: t.Lit}, nil

	case LPAREN:
		if params, ok := p.arrowParams(); ok {
			return p.arrowBody(t.Pos, params)
		}
		p.advance()
		inner, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil

	case LBRACKET:
		p.advance()
		elems, err := p.list(RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{At: t.Pos, Elems: elems}, nil

	case LBRACE:
		p.advance()
		return p.object(t.Pos)

	case NOT, MINUS, PLUS, TYPEOF:
		p.advance()
		x, err := p.expr(bpPrefix)
		if err != nil {
			return nil, err
		}
		return &Unary{At: t.Pos, Op: t.Type, X: x}, nil

	case NEW:
		p.advance()
		callee, err := p.expr(bpPostfix - 1)
		if err != nil {
			return nil, err
		}
		// "new f(x)" parses as new applied to a call.
		if c, is := callee.(*Call); is {
			return &New{At: t.Pos, Callee: c.Fn, Args: c.Args}, nil
		}
		return &New{At: t.Pos, Callee: callee}, nil

	case RESERVED:
		return nil, p.errorf(t.Pos, `"`+t.Lit+`" is not supported in expressions`)
	}
	return nil, p.unexpected(t)
}

// arrowParams looks ahead for "(a, b) =>" and consumes it if found.
func (p *parser) arrowParams() ([]string, bool) {
	j := p.i + 1
	params := []string{}
	for {
		t := p.toks[j]
		if t.Type == RPAREN {
			break
		}
		if t.Type != IDENT {
			return nil, false
		}
		params = append(params, t.Lit)
		j++
		if p.toks[j].Type == COMMA {
			j++
			continue
		}
		if p.toks[j].Type != RPAREN {
			return nil, false
		}
	}
	if j+1 >= len(p.toks) || p.toks[j+1].Type != ARROW {
		return nil, false
	}
	p.i = j + 2
	return params, true
}

func (p *parser) arrowBody(at int, params []string) (Node, error) {
	if p.peek().Type == LBRACE && p.peekAt(1).Type == RBRACE {
		return nil, p.errorf(p.peek().Pos, "arrow functions need an expression body")
	}
	body, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &Arrow{At: at, Params: params, Body: body}, nil
}

// list parses comma-separated expressions (with spreads) up to the
// closing token, which it consumes.  A trailing comma is allowed.
func (p *parser) list(closer TokenType) ([]Node, error) {
	var acc []Node
	for {
		if p.match(closer) {
			return acc, nil
		}
		var (
			n   Node
			err error
		)
		if t := p.peek(); t.Type == ELLIPSIS {
			p.advance()
			var x Node
			if x, err = p.expr(0); err != nil {
				return nil, err
			}
			n = &Spread{At: t.Pos, X: x}
		} else if n, err = p.expr(0); err != nil {
			return nil, err
		}
		acc = append(acc, n)
		if p.match(COMMA) {
			continue
		}
		if _, err := p.need(closer); err != nil {
			return nil, err
		}
		return acc, nil
	}
}

func (p *parser) object(at int) (Node, error) {
	obj := &ObjectLit{At: at}
	for {
		if p.match(RBRACE) {
			return obj, nil
		}
		t := p.peek()
		var prop Prop
		switch t.Type {
		case ELLIPSIS:
			p.advance()
			x, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			prop.Spread = x
		case LBRACKET:
			p.advance()
			k, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RBRACKET); err != nil {
				return nil, err
			}
			if _, err := p.need(COLON); err != nil {
				return nil, err
			}
			v, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			prop.KeyExpr, prop.Value = k, v
		case STRING, NUMBER:
			p.advance()
			if _, err := p.need(COLON); err != nil {
				return nil, err
			}
			v, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			prop.Key, prop.Value = ToString(t.Val), v
		case IDENT, TRUE, FALSE, NULL, UNDEFINED, TYPEOF, NEW, RESERVED:
			p.advance()
			prop.Key = t.Lit
			if p.match(COLON) {
				v, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				prop.Value = v
			} else if t.Type == IDENT {
				// Shorthand {a}.
				prop.Value = &Ident{At: t.Pos, Name: t.Lit}
			} else {
				return nil, p.errorf(t.Pos, "expected :")
			}
		default:
			return nil, p.unexpected(t)
		}
		obj.Props = append(obj.Props, prop)
		if p.match(COMMA) {
			continue
		}
		if _, err := p.need(RBRACE); err != nil {
			return nil, err
		}
		return obj, nil
	}
}
