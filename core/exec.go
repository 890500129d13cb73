/* Copyright 2018-2026 Comcast Cable Communications Management, LLC
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

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/request"
)

// MaxMethodDepth bounds the segments of a call path.
var MaxMethodDepth = 16

// DataVar is the ambient name of the unwrapped payload in a fetch's
// then branch.
const DataVar = "$data"

var (
	errNoRequests = errors.New("no request orchestrator")
	errNoConns    = errors.New("no connection manager")
)

// ExecuteActions runs the actions in order, each to completion
// before the next starts.
//
// Failures of individual actions are handled (by catch branches) or
// logged; they do not stop the sequence.  The only error returned is
// the ctx's when it's done.
func (c *Context) ExecuteActions(ctx context.Context, as Actions) error {
	for _, a := range as {
		if err := c.ExecuteAction(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteAction runs one action.  See ExecuteActions.
func (c *Context) ExecuteAction(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Disposed() || a == nil {
		return nil
	}
	c.Metrics.Action(a.Kind())

	switch vv := a.(type) {
	case *Set:
		c.set(vv)
	case *Call:
		c.call(ctx, vv)
	case *Emit:
		c.emit(ctx, vv)
	case *If:
		return c.branch(ctx, vv)
	case *Script:
		c.script(ctx, vv)
	case *Copy:
		return c.copy(ctx, vv)
	case *Fetch:
		return c.fetch(ctx, vv)
	case *Connection:
		return c.connection(ctx, vv)
	default:
		c.log().Warn("unknown action", "kind", a.Kind())
	}
	return nil
}

// str resolves x and renders the result as a string.
func (c *Context) str(x string) (string, error) {
	y, err := c.eval().Resolve(x, c.Scope())
	if err != nil {
		return "", err
	}
	if expr.IsNullish(y) {
		return "", nil
	}
	return expr.ToString(y), nil
}

func (c *Context) set(a *Set) {
	path, err := c.str(a.Path)
	if err != nil {
		c.log().Warn("skipping assignment", "path", a.Path, "err", err)
		return
	}
	x, err := c.eval().ResolveDeep(a.Value, c.Scope())
	if err != nil {
		c.log().Warn("skipping assignment", "path", path, "err", err)
		return
	}
	if c.State == nil {
		c.log().Warn("skipping assignment", "path", path, "err", "no state")
		return
	}
	if err = c.State.SetPath(path, x); err != nil {
		c.log().Warn("skipping assignment", "path", path, "err", err)
	}
}

func (c *Context) call(ctx context.Context, a *Call) {
	args, err := c.eval().ResolveDeep(a.Args, c.Scope())
	if err != nil {
		c.log().Warn("skipping call", "method", a.Name, "err", err)
		return
	}
	var vs []interface{}
	if args != nil {
		vs = args.([]interface{})
	}
	if _, err = c.Call(ctx, a.Name, vs...); err != nil {
		if errors.Is(err, ErrDisposed) {
			c.log().Debug("call abandoned", "method", a.Name)
			return
		}
		var mnf *MethodNotFound
		if errors.As(err, &mnf) {
			c.log().Warn("method not found", "method", a.Name)
			return
		}
		c.log().Warn("call failed", "method", a.Name, "err", err)
	}
}

// isMethod reports whether x can be a method table entry.
func isMethod(x interface{}) bool {
	switch x.(type) {
	case Method, func(context.Context, ...interface{}) (interface{}, error):
		return true
	}
	return expr.IsCallable(x)
}

// findMethod resolves a call path, first in the method table and
// then in the state.
func (c *Context) findMethod(name string) (interface{}, bool) {
	segs, err := expr.ParsePath(name)
	if err != nil || len(segs) > MaxMethodDepth {
		return nil, false
	}
	table := c.methodTable()
	if x, have := expr.GetSegments(table, segs); have && isMethod(x) {
		return x, true
	}
	if len(segs) > 1 && !segs[0].IsIndex && segs[0].Key == MethodsKey {
		if x, have := expr.GetSegments(table, segs[1:]); have && isMethod(x) {
			return x, true
		}
	}
	if c.State != nil {
		if x, have := expr.GetSegments(c.State.Snapshot(), segs); have && isMethod(x) {
			return x, true
		}
	}
	return nil, false
}

// Call invokes the named method with the given arguments and waits
// for an Awaitable result.
func (c *Context) Call(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	fn, found := c.findMethod(name)
	if !found {
		return nil, &MethodNotFound{Name: name}
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	var (
		x   interface{}
		err error
	)
	switch f := fn.(type) {
	case Method:
		x, err = f(ctx, args...)
	case func(context.Context, ...interface{}) (interface{}, error):
		x, err = f(ctx, args...)
	default:
		x, err = expr.Invoke(f, args)
	}
	if err == nil {
		if aw, is := x.(Awaitable); is {
			x, err = aw.Await(ctx)
		}
	}
	if c.Disposed() {
		return nil, ErrDisposed
	}
	if err != nil {
		return nil, err
	}
	return x, nil
}

func (c *Context) emit(ctx context.Context, a *Emit) {
	x, err := c.eval().ResolveDeep(a.Payload, c.Scope())
	if err != nil {
		c.log().Warn("skipping emit", "event", a.Name, "err", err)
		return
	}
	if err = c.Send(ctx, a.Name, x); err != nil {
		c.log().Warn("emit failed", "event", a.Name, "err", err)
	}
}

// Send gives a named event to the emitter.  Without one, the event
// is only logged.
func (c *Context) Send(ctx context.Context, name string, payload interface{}) error {
	if c.Disposed() {
		return ErrDisposed
	}
	if c.Emit == nil {
		c.log().Debug("emit", "event", name, "payload", payload)
		return nil
	}
	return c.Emit(ctx, name, payload)
}

// Condition evaluates a condition.  Strings are templates when they
// contain a placeholder and expressions otherwise.  Other values are
// tested for truthiness.  Evaluation errors count as false.
func (c *Context) Condition(x interface{}) bool {
	s, is := x.(string)
	if !is {
		return expr.Truthy(x)
	}
	var (
		y   interface{}
		err error
	)
	if expr.IsTemplate(s) {
		y, err = c.eval().EvaluateTemplate(s, c.Scope())
	} else {
		y, err = c.eval().Evaluate(s, c.Scope())
	}
	if err != nil {
		c.log().Warn("condition failed", "if", s, "err", err)
		return false
	}
	return expr.Truthy(y)
}

func (c *Context) branch(ctx context.Context, a *If) error {
	if c.Condition(a.Condition) {
		return c.ExecuteActions(ctx, a.Then)
	}
	return c.ExecuteActions(ctx, a.Else)
}

// ScriptEnv returns the environment given to scripts.
func (c *Context) ScriptEnv() *ScriptEnv {
	return &ScriptEnv{
		State:    c.State,
		Computed: c.Computed,
		Ambient:  c.ambient.Copy(),
		Methods:  c.methodTable(),
		Call:     c.Call,
		Emit:     c.Send,
		Logger:   c.log(),
		Done:     c.Done(),
	}
}

// compile returns the cached compilation of code.
func (c *Context) compile(ctx context.Context, code string) (interface{}, error) {
	if x, have := c.sh().compiled.Load(code); have {
		return x, nil
	}
	x, err := c.Scripts.Compile(ctx, code)
	if err != nil {
		return nil, err
	}
	if x != nil {
		c.sh().compiled.Store(code, x)
	}
	return x, nil
}

func (c *Context) script(ctx context.Context, a *Script) {
	if c.Scripts == nil {
		c.log().Error("script failed", "err", InterpreterNotFound, "source", a.Code)
		return
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	compiled, err := c.compile(ctx, a.Code)
	if err == nil {
		err = c.Scripts.Exec(ctx, c.ScriptEnv(), a.Code, compiled)
	}
	if err != nil && c.Disposed() {
		c.log().Debug("script abandoned", "source", a.Code, "err", err)
		return
	}
	if err != nil {
		err = &ScriptError{Source: a.Code, Err: err}
		c.log().Error("script failed", "err", err, "source", a.Code)
	}
}

// outcome is the result of a fallible action.
type outcome struct {
	response interface{}
	data     interface{}
	hasData  bool
	err      error
}

// withFinally runs then (on success) or catch (on failure), and then
// finally.  Branches get their own ambient bindings; finally sees the
// receiver's.
func (c *Context) withFinally(ctx context.Context, kind string, o outcome, then, catch, finally Actions) error {
	var err error
	if o.err == nil {
		d := c.With(expr.ResponseVar, o.response)
		if o.hasData {
			d = d.With(DataVar, o.data)
		}
		err = d.ExecuteActions(ctx, then)
	} else if len(catch) == 0 {
		c.log().Warn(kind+" failed", "err", o.err)
	} else {
		d := c.With(expr.ErrorVar, ErrorValue(o.err))
		if o.response != nil {
			d = d.With(expr.ResponseVar, o.response)
		}
		err = d.ExecuteActions(ctx, catch)
	}
	if ferr := c.ExecuteActions(ctx, finally); err == nil {
		err = ferr
	}
	return err
}

func (c *Context) copy(ctx context.Context, a *Copy) error {
	x, err := c.eval().ResolveDeep(a.Text, c.Scope())
	var text string
	if err == nil {
		if !expr.IsNullish(x) {
			text = expr.Stringify(x)
		}
		switch {
		case c.Clipboard == nil:
			err = &ClipboardError{Err: NoClipboard}
		default:
			if werr := c.Clipboard.WriteText(text); werr != nil {
				err = &ClipboardError{Err: werr}
			}
		}
	}
	return c.withFinally(ctx, KindCopy, outcome{response: text, err: err}, a.Then, a.Catch, nil)
}

func (c *Context) fetch(ctx context.Context, a *Fetch) error {
	if c.Requests == nil {
		return c.withFinally(ctx, KindFetch, outcome{err: errNoRequests}, a.Then, a.Catch, a.Finally)
	}
	r := c.Requests.Send(ctx, &request.Spec{
		URL:           a.URL,
		Method:        a.Method,
		Headers:       a.Headers,
		Body:          a.Body,
		Params:        a.Params,
		ResponseType:  a.ResponseType,
		IgnoreBaseURL: a.IgnoreBaseURL,
	}, c.Scope())
	o := outcome{
		response: r.Response,
		data:     r.Data,
		hasData:  r.Success,
		err:      r.Err,
	}
	if !r.Success && o.err == nil {
		o.err = fmt.Errorf("request %s failed", a.URL)
	}
	return c.withFinally(ctx, KindFetch, o, a.Then, a.Catch, a.Finally)
}

func (c *Context) connection(ctx context.Context, a *Connection) error {
	o := c.applyConnection(ctx, a)
	return c.withFinally(ctx, KindWS, o, a.Then, a.Catch, a.Finally)
}

func (c *Context) applyConnection(ctx context.Context, a *Connection) outcome {
	if c.Conns == nil {
		return outcome{err: errNoConns}
	}
	target, err := c.str(a.Target)
	if err != nil {
		return outcome{err: err}
	}
	id, err := c.str(a.ID)
	if err != nil {
		return outcome{err: err}
	}
	spec := &conn.Spec{
		Key:          id,
		URL:          target,
		Protocols:    a.Protocols,
		Timeout:      time.Duration(a.Timeout) * time.Millisecond,
		ResponseType: conn.Mode(a.ResponseType),
		SendAs:       conn.Mode(a.SendAs),
		Code:         a.Code,
		Reason:       a.Reason,
	}
	op := conn.Op(a.Op)
	switch op {
	case conn.OpSend:
		if spec.Message, err = c.eval().ResolveDeep(a.Message, c.Scope()); err != nil {
			return outcome{err: err}
		}
	case conn.OpConnect, "":
		op = conn.OpConnect
		spec.Handlers = conn.Handlers{
			OnOpen:    c.handler(a.OnOpen),
			OnMessage: c.handler(a.OnMessage),
			OnError:   c.handler(a.OnError),
			OnClose:   c.handler(a.OnClose),
		}
	}
	if err = c.Conns.Apply(ctx, op, spec); err != nil {
		return outcome{err: err}
	}
	key := spec.RegistryKey()
	response := map[string]interface{}{"id": key}
	if st, have := c.Conns.State(key); have {
		response["state"] = st.String()
	} else {
		response["state"] = conn.Closed.String()
	}
	return outcome{response: response}
}

// handler makes a connection callback that runs actions with $event
// bound, and $response or $error as the event kind permits.
func (c *Context) handler(as Actions) conn.Handler {
	if len(as) == 0 {
		return nil
	}
	return func(ctx context.Context, ev *conn.Event) error {
		if c.Disposed() {
			return nil
		}
		d := c.With(expr.EventVar, ev.Value())
		switch ev.Kind {
		case conn.EventMessage:
			d = d.With(expr.ResponseVar, ev.Data)
		case conn.EventError:
			d = d.With(expr.ErrorVar, ErrorValue(ev.Err))
		}
		return d.ExecuteActions(ctx, as)
	}
}
