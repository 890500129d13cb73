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
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
)

var (
	// DefaultCacheSize is the number of parsed expressions an
	// Evaluator remembers.
	DefaultCacheSize = 1024

	// MaxCallDepth limits nested arrow function invocation.
	MaxCallDepth = 64
)

// Evaluator parses, checks, and evaluates expressions.  An Evaluator
// is safe for concurrent use.
type Evaluator struct {
	// Globals, if not nil, is consulted after every scope level.
	Globals Lookup

	CacheSize int

	mu    sync.Mutex
	cache map[string]Node
}

// NewEvaluator makes an Evaluator with Utilities as its globals.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Globals:   Utilities(),
		CacheSize: DefaultCacheSize,
	}
}

// Compile parses and checks the source, using the cache when
// possible.
func (e *Evaluator) Compile(src string) (Node, error) {
	e.mu.Lock()
	n, have := e.cache[src]
	e.mu.Unlock()
	if have {
		return n, nil
	}

	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if err = Check(src, n); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.cache == nil || (e.CacheSize > 0 && len(e.cache) >= e.CacheSize) {
		e.cache = make(map[string]Node)
	}
	e.cache[src] = n
	e.mu.Unlock()

	return n, nil
}

// Evaluate evaluates a single expression.  The returned error, if
// any, is an *Error.  Evaluate never panics.
func (e *Evaluator) Evaluate(src string, s *Scope) (x interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, &Error{Reason: SyntaxError, Expr: src, Msg: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	n, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Scope{}
	}
	if s.Globals == nil && e.Globals != nil {
		acc := *s
		acc.Globals = e.Globals
		s = &acc
	}
	in := &interp{src: src, scope: s}
	return in.eval(n, nil)
}

// locals binds arrow function parameters.
type locals struct {
	vars   map[string]interface{}
	parent *locals
}

func (l *locals) lookup(name string) (interface{}, bool) {
	for ; l != nil; l = l.parent {
		if x, have := l.vars[name]; have {
			return x, true
		}
	}
	return nil, false
}

type interp struct {
	src   string
	scope *Scope
	depth int
}

func (in *interp) fail(r Reason, n Node, msg string) *Error {
	return &Error{Reason: r, Expr: in.src, Msg: msg, Pos: n.Pos()}
}

func (in *interp) eval(n Node, ls *locals) (interface{}, error) {
	switch vv := n.(type) {
	case *Literal:
		return vv.Value, nil

	case *Ident:
		if x, have := ls.lookup(vv.Name); have {
			return x, nil
		}
		if x, have := in.scope.Resolve(vv.Name); have {
			return x, nil
		}
		return nil, in.fail(UndefinedReference, vv, vv.Name+" is not defined")

	case *Unary:
		if vv.Op == TYPEOF {
			if id, is := vv.X.(*Ident); is {
				if _, have := ls.lookup(id.Name); !have {
					if _, have := in.scope.Resolve(id.Name); !have {
						return "undefined", nil
					}
				}
			}
		}
		x, err := in.eval(vv.X, ls)
		if err != nil {
			return nil, err
		}
		switch vv.Op {
		case NOT:
			return !Truthy(x), nil
		case MINUS:
			return -ToNumber(x), nil
		case PLUS:
			return ToNumber(x), nil
		case TYPEOF:
			return TypeOf(x), nil
		}

	case *Binary:
		return in.binary(vv, ls)

	case *Conditional:
		test, err := in.eval(vv.Test, ls)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return in.eval(vv.Then, ls)
		}
		return in.eval(vv.Else, ls)

	case *Member:
		x, err := in.eval(vv.X, ls)
		if err != nil {
			return nil, err
		}
		if vv.Optional && IsNullish(x) {
			return Undefined, nil
		}
		key, err := in.key(vv, ls)
		if err != nil {
			return nil, err
		}
		return Get(x, key), nil

	case *Call:
		return in.call(vv, ls)

	case *New:
		return nil, in.fail(SecurityViolation, vv, "object construction")

	case *ArrayLit:
		return in.elements(vv.Elems, ls)

	case *ObjectLit:
		acc := make(map[string]interface{}, len(vv.Props))
		for _, p := range vv.Props {
			if p.Spread != nil {
				x, err := in.eval(p.Spread, ls)
				if err != nil {
					return nil, err
				}
				switch src := Canonical(x).(type) {
				case map[string]interface{}:
					for k, v := range src {
						acc[k] = v
					}
				case []interface{}:
					for i, v := range src {
						acc[strconv.Itoa(i)] = v
					}
				case string:
					for i, r := range []rune(src) {
						acc[strconv.Itoa(i)] = string(r)
					}
				}
				continue
			}
			key := p.Key
			if p.KeyExpr != nil {
				k, err := in.eval(p.KeyExpr, ls)
				if err != nil {
					return nil, err
				}
				key = ToString(k)
				if ForbiddenProperties[key] {
					return nil, in.fail(SecurityViolation, vv, `object key "`+key+`"`)
				}
			}
			v, err := in.eval(p.Value, ls)
			if err != nil {
				return nil, err
			}
			acc[key] = v
		}
		return acc, nil

	case *Arrow:
		return &closure{in: in, fn: vv, ls: ls}, nil

	case *Spread:
		return nil, in.fail(SyntaxError, vv, "spread outside a literal or argument list")
	}
	return nil, in.fail(SyntaxError, n, fmt.Sprintf("unsupported expression %T", n))
}

// key determines the property name for a member access, rejecting
// forbidden names computed at run time.
func (in *interp) key(m *Member, ls *locals) (interface{}, error) {
	if !m.Computed {
		return m.Name, nil
	}
	k, err := in.eval(m.Index, ls)
	if err != nil {
		return nil, err
	}
	if s, is := k.(string); is && ForbiddenProperties[s] {
		return nil, in.fail(SecurityViolation, m, `access to property "`+s+`"`)
	}
	return k, nil
}

func (in *interp) elements(ns []Node, ls *locals) ([]interface{}, error) {
	acc := make([]interface{}, 0, len(ns))
	for _, n := range ns {
		if sp, is := n.(*Spread); is {
			x, err := in.eval(sp.X, ls)
			if err != nil {
				return nil, err
			}
			switch src := Canonical(x).(type) {
			case []interface{}:
				acc = append(acc, src...)
			case string:
				for _, r := range src {
					acc = append(acc, string(r))
				}
			case nil, undefined:
				return nil, in.fail(UndefinedReference, sp, "cannot spread "+ToString(x))
			default:
				return nil, in.fail(UndefinedReference, sp, "value is not iterable")
			}
			continue
		}
		x, err := in.eval(n, ls)
		if err != nil {
			return nil, err
		}
		acc = append(acc, x)
	}
	return acc, nil
}

func (in *interp) binary(b *Binary, ls *locals) (interface{}, error) {
	l, err := in.eval(b.L, ls)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case AND:
		if !Truthy(l) {
			return l, nil
		}
		return in.eval(b.R, ls)
	case OR:
		if Truthy(l) {
			return l, nil
		}
		return in.eval(b.R, ls)
	case NULLISH:
		if !IsNullish(l) {
			return l, nil
		}
		return in.eval(b.R, ls)
	}

	r, err := in.eval(b.R, ls)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case PLUS:
		return Add(l, r), nil
	case MINUS:
		return ToNumber(l) - ToNumber(r), nil
	case STAR:
		return ToNumber(l) * ToNumber(r), nil
	case SLASH:
		return ToNumber(l) / ToNumber(r), nil
	case PERCENT:
		return math.Mod(ToNumber(l), ToNumber(r)), nil
	case POW:
		return math.Pow(ToNumber(l), ToNumber(r)), nil
	case EQ:
		return LooseEquals(l, r), nil
	case NEQ:
		return !LooseEquals(l, r), nil
	case SEQ:
		return StrictEquals(l, r), nil
	case SNEQ:
		return !StrictEquals(l, r), nil
	case LT, LTE, GT, GTE:
		return compare(b.Op, l, r), nil
	}
	return nil, in.fail(SyntaxError, b, "unsupported operator "+b.Op.String())
}

// Add implements +: concatenation if either side is a string (or a
// container), addition otherwise.
func Add(l, r interface{}) interface{} {
	if stringish(l) || stringish(r) {
		return ToString(l) + ToString(r)
	}
	return ToNumber(l) + ToNumber(r)
}

func stringish(x interface{}) bool {
	switch x.(type) {
	case string, []interface{}, map[string]interface{}:
		return true
	}
	return false
}

func compare(op TokenType, l, r interface{}) bool {
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		switch op {
		case LT:
			return ls < rs
		case LTE:
			return ls <= rs
		case GT:
			return ls > rs
		default:
			return ls >= rs
		}
	}
	x, y := ToNumber(l), ToNumber(r)
	switch op {
	case LT:
		return x < y
	case LTE:
		return x <= y
	case GT:
		return x > y
	default:
		return x >= y
	}
}

func (in *interp) args(ns []Node, ls *locals) ([]interface{}, error) {
	return in.elements(ns, ls)
}

func (in *interp) call(c *Call, ls *locals) (interface{}, error) {
	// Method call: receiver.name(args)
	if m, is := c.Fn.(*Member); is {
		recv, err := in.eval(m.X, ls)
		if err != nil {
			return nil, err
		}
		if m.Optional && IsNullish(recv) {
			return Undefined, nil
		}
		key, err := in.key(m, ls)
		if err != nil {
			return nil, err
		}
		fn := Get(recv, key)
		if c.Optional && IsNullish(fn) {
			return Undefined, nil
		}
		args, err := in.args(c.Args, ls)
		if err != nil {
			return nil, err
		}
		if !IsUndefined(fn) {
			if IsCallable(fn) {
				return in.invoke(c, fn, args)
			}
			return nil, in.fail(UndefinedReference, c, ToString(key)+" is not a function")
		}
		name, _ := key.(string)
		if bm := builtinMethod(recv, name); bm != nil {
			x, err := bm(in, recv, args)
			if err != nil {
				return nil, in.wrap(c, err)
			}
			return x, nil
		}
		return nil, in.fail(UndefinedReference, c, ToString(key)+" is not a function")
	}

	fn, err := in.eval(c.Fn, ls)
	if err != nil {
		return nil, err
	}
	if c.Optional && IsNullish(fn) {
		return Undefined, nil
	}
	args, err := in.args(c.Args, ls)
	if err != nil {
		return nil, err
	}
	if !IsCallable(fn) {
		return nil, in.fail(UndefinedReference, c, "value is not a function")
	}
	return in.invoke(c, fn, args)
}

func (in *interp) wrap(n Node, err error) error {
	if e, is := err.(*Error); is {
		return e
	}
	return in.fail(UndefinedReference, n, err.Error())
}

func (in *interp) invoke(n Node, fn interface{}, args []interface{}) (interface{}, error) {
	x, err := Invoke(fn, args)
	if err != nil {
		return nil, in.wrap(n, err)
	}
	return x, nil
}

// Func is the simplest callable value.
type Func func(args ...interface{}) (interface{}, error)

// Callable is implemented by values that can be called from
// expressions.
type Callable interface {
	Call(args []interface{}) (interface{}, error)
}

// IsCallable reports whether x can be called from an expression.
func IsCallable(x interface{}) bool {
	switch x.(type) {
	case Func, func(...interface{}) (interface{}, error), func(...interface{}) interface{}, Callable:
		return true
	}
	return false
}

// Invoke calls fn, which must be callable.
func Invoke(fn interface{}, args []interface{}) (interface{}, error) {
	switch f := fn.(type) {
	case Func:
		return f(args...)
	case func(...interface{}) (interface{}, error):
		return f(args...)
	case func(...interface{}) interface{}:
		return f(args...), nil
	case Callable:
		return f.Call(args)
	}
	return nil, fmt.Errorf("%T is not callable", fn)
}

// closure is the value of an arrow function.
type closure struct {
	in *interp
	fn *Arrow
	ls *locals
}

func (c *closure) Call(args []interface{}) (interface{}, error) {
	if c.in.depth >= MaxCallDepth {
		return nil, c.in.fail(SyntaxError, c.fn, "call depth exceeded")
	}
	c.in.depth++
	defer func() { c.in.depth-- }()

	vars := make(map[string]interface{}, len(c.fn.Params))
	for i, p := range c.fn.Params {
		if i < len(args) {
			vars[p] = args[i]
		} else {
			vars[p] = Undefined
		}
	}
	return c.in.eval(c.fn.Body, &locals{vars: vars, parent: c.ls})
}

// Get returns the property of x named by key, or Undefined.
func Get(x interface{}, key interface{}) interface{} {
	if s, is := key.(string); is && ForbiddenProperties[s] {
		return Undefined
	}
	switch vv := x.(type) {
	case nil, undefined:
		return Undefined
	case map[string]interface{}:
		if y, have := vv[ToString(key)]; have {
			return y
		}
		return Undefined
	case Vars:
		if y, have := vv[ToString(key)]; have {
			return y
		}
		return Undefined
	case []interface{}:
		if s, is := key.(string); is && s == "length" {
			return float64(len(vv))
		}
		if i, ok := arrayIndex(key); ok && i < len(vv) {
			return vv[i]
		}
		return Undefined
	case string:
		if s, is := key.(string); is && s == "length" {
			return float64(len([]rune(vv)))
		}
		if i, ok := arrayIndex(key); ok {
			rs := []rune(vv)
			if i < len(rs) {
				return string(rs[i])
			}
		}
		return Undefined
	case Lookup:
		if y, have := vv.Lookup(ToString(key)); have {
			return y
		}
		return Undefined
	}
	if _, is := number(x); is || IsCallable(x) {
		return Undefined
	}
	switch reflect.ValueOf(x).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		y := Canonical(x)
		if reflect.TypeOf(y) == reflect.TypeOf(x) {
			return Undefined
		}
		return Get(y, key)
	}
	return Undefined
}

func arrayIndex(key interface{}) (int, bool) {
	switch k := key.(type) {
	case string:
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || strconv.Itoa(n) != k {
			return 0, false
		}
		return n, true
	}
	f, is := number(key)
	if !is || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
