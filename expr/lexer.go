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

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	NUMBER
	STRING
	IDENT

	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COMMA    // ,
	COLON    // :
	PERIOD   // .
	QUESTION // ?
	OPTCHAIN // ?.
	ELLIPSIS // ...
	ARROW    // =>

	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	POW     // **

	EQ   // ==
	NEQ  // !=
	SEQ  // ===
	SNEQ // !==
	LT   // <
	LTE  // <=
	GT   // >
	GTE  // >=

	AND     // &&
	OR      // ||
	NULLISH // ??
	NOT     // !
	ASSIGN  // =

	TRUE
	FALSE
	NULL
	UNDEFINED
	TYPEOF
	NEW
	RESERVED
)

var tokenNames = map[TokenType]string{
	EOF: "end of input", ILLEGAL: "illegal", NUMBER: "number", STRING: "string", IDENT: "identifier",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]", LBRACE: "{", RBRACE: "}",
	COMMA: ",", COLON: ":", PERIOD: ".", QUESTION: "?", OPTCHAIN: "?.", ELLIPSIS: "...", ARROW: "=>",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", POW: "**",
	EQ: "==", NEQ: "!=", SEQ: "===", SNEQ: "!==", LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	AND: "&&", OR: "||", NULLISH: "??", NOT: "!", ASSIGN: "=",
	TRUE: "true", FALSE: "false", NULL: "null", UNDEFINED: "undefined", TYPEOF: "typeof", NEW: "new",
	RESERVED: "reserved word",
}

func (t TokenType) String() string {
	if s, have := tokenNames[t]; have {
		return s
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

var keywords = map[string]TokenType{
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
	"typeof":    TYPEOF,
	"new":       NEW,

	// Statement-level words have no place in an expression.
	"var":      RESERVED,
	"let":      RESERVED,
	"const":    RESERVED,
	"function": RESERVED,
	"class":    RESERVED,
	"delete":   RESERVED,
	"void":     RESERVED,
	"return":   RESERVED,
	"yield":    RESERVED,
	"await":    RESERVED,
	"async":    RESERVED,
	"with":     RESERVED,
	"if":       RESERVED,
	"for":      RESERVED,
	"while":    RESERVED,
	"do":       RESERVED,
	"switch":   RESERVED,
	"try":      RESERVED,
	"throw":    RESERVED,

	"instanceof": RESERVED,
	"in":         RESERVED,
}

// Token is a lexeme.  Val holds the decoded number or string for
// NUMBER and STRING tokens.
type Token struct {
	Type TokenType
	Lit  string
	Val  interface{}
	Pos  int
}

type lexer struct {
	src string
	i   int
}

// Lex splits the source into tokens.  The final token is always EOF.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src}
	toks := make([]Token, 0, len(src)/2+1)
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Type == EOF {
			return toks, nil
		}
	}
}

func (l *lexer) errorf(pos int, msg string) error {
	return &Error{Reason: SyntaxError, Expr: l.src, Msg: msg, Pos: pos}
}

func (l *lexer) peekByte(off int) byte {
	if l.i+off < len(l.src) {
		return l.src[l.i+off]
	}
	return 0
}

func (l *lexer) has(prefix string) bool {
	return strings.HasPrefix(l.src[l.i:], prefix)
}

func (l *lexer) next() (Token, error) {
	for l.i < len(l.src) {
		r, w := utf8.DecodeRuneInString(l.src[l.i:])
		if !unicode.IsSpace(r) {
			break
		}
		l.i += w
	}
	start := l.i
	if l.i >= len(l.src) {
		return Token{Type: EOF, Pos: start}, nil
	}

	c := l.src[l.i]
	switch {
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.number()
	case c == '"' || c == '\'':
		return l.str(c)
	case isIdentStart(c):
		for l.i < len(l.src) && isIdentPart(l.src[l.i]) {
			l.i++
		}
		lit := l.src[start:l.i]
		if tt, have := keywords[lit]; have {
			return Token{Type: tt, Lit: lit, Pos: start}, nil
		}
		return Token{Type: IDENT, Lit: lit, Pos: start}, nil
	}

	// Longest operators first.
	for _, op := range operators {
		if l.has(op.lit) {
			// "?." followed by a digit is a ternary and a number.
			if op.tt == OPTCHAIN && isDigit(l.peekByte(2)) {
				continue
			}
			l.i += len(op.lit)
			return Token{Type: op.tt, Lit: op.lit, Pos: start}, nil
		}
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.i:])
	return Token{}, l.errorf(start, "unexpected character "+strconv.QuoteRune(r))
}

var operators = []struct {
	lit string
	tt  TokenType
}{
	{"===", SEQ}, {"!==", SNEQ}, {"...", ELLIPSIS},
	{"==", EQ}, {"!=", NEQ}, {"<=", LTE}, {">=", GTE}, {"&&", AND}, {"||", OR},
	{"??", NULLISH}, {"?.", OPTCHAIN}, {"=>", ARROW}, {"**", POW},
	{"(", LPAREN}, {")", RPAREN}, {"[", LBRACKET}, {"]", RBRACKET}, {"{", LBRACE}, {"}", RBRACE},
	{",", COMMA}, {":", COLON}, {".", PERIOD}, {"?", QUESTION},
	{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH}, {"%", PERCENT},
	{"<", LT}, {">", GT}, {"!", NOT}, {"=", ASSIGN},
}

func (l *lexer) number() (Token, error) {
	start := l.i
	if l.has("0x") || l.has("0X") {
		l.i += 2
		for l.i < len(l.src) && isHex(l.src[l.i]) {
			l.i++
		}
		lit := l.src[start:l.i]
		n, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			return Token{}, l.errorf(start, "bad hex literal "+lit)
		}
		return Token{Type: NUMBER, Lit: lit, Val: float64(n), Pos: start}, nil
	}
	for l.i < len(l.src) && isDigit(l.src[l.i]) {
		l.i++
	}
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		l.i++
		for l.i < len(l.src) && isDigit(l.src[l.i]) {
			l.i++
		}
	} else if l.peekByte(0) == '.' && !isIdentStart(l.peekByte(1)) && l.peekByte(1) != '.' {
		// "1." is a number.
		l.i++
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		j := l.i + 1
		if j < len(l.src) && (l.src[j] == '+' || l.src[j] == '-') {
			j++
		}
		if j < len(l.src) && isDigit(l.src[j]) {
			l.i = j
			for l.i < len(l.src) && isDigit(l.src[l.i]) {
				l.i++
			}
		}
	}
	lit := l.src[start:l.i]
	if l.i < len(l.src) && isIdentStart(l.src[l.i]) {
		return Token{}, l.errorf(l.i, "identifier directly after number "+lit)
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(lit, "."), 64)
	if err != nil {
		return Token{}, l.errorf(start, "bad number "+lit)
	}
	return Token{Type: NUMBER, Lit: lit, Val: f, Pos: start}, nil
}

func (l *lexer) str(quote byte) (Token, error) {
	start := l.i
	l.i++
	var b strings.Builder
	for {
		if l.i >= len(l.src) {
			return Token{}, l.errorf(start, "unterminated string")
		}
		c := l.src[l.i]
		switch {
		case c == quote:
			l.i++
			return Token{Type: STRING, Lit: l.src[start:l.i], Val: b.String(), Pos: start}, nil
		case c == '\n':
			return Token{}, l.errorf(l.i, "newline in string")
		case c == '\\':
			l.i++
			if l.i >= len(l.src) {
				return Token{}, l.errorf(start, "unterminated string")
			}
			e := l.src[l.i]
			l.i++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0':
				b.WriteByte(0)
			case 'x':
				r, err := l.hexRune(2)
				if err != nil {
					return Token{}, err
				}
				b.WriteRune(r)
			case 'u':
				r, err := l.hexRune(4)
				if err != nil {
					return Token{}, err
				}
				b.WriteRune(r)
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
			l.i++
		}
	}
}

func (l *lexer) hexRune(n int) (rune, error) {
	if l.i+n > len(l.src) {
		return 0, l.errorf(l.i, "short escape")
	}
	v, err := strconv.ParseUint(l.src[l.i:l.i+n], 16, 32)
	if err != nil {
		return 0, l.errorf(l.i, "bad escape")
	}
	l.i += n
	return rune(v), nil
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
