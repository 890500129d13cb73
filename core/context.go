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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/metrics"
	"github.com/Comcast/shoots/request"
)

// Method is the preferred form of a method table entry.  The table
// also accepts anything expr.IsCallable accepts.
type Method func(ctx context.Context, args ...interface{}) (interface{}, error)

// Awaitable is implemented by method results that complete later.
// A call action waits for them.
type Awaitable interface {
	Await(ctx context.Context) (interface{}, error)
}

// Emitter receives emitted events.
type Emitter func(ctx context.Context, name string, payload interface{}) error

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// Context is what actions execute against.  Derived Contexts (With,
// Child) share the collaborators, the state, and the disposal flag,
// but have their own ambient bindings.
type Context struct {
	State    State
	Computed expr.Vars

	// Methods is the method table.  Values are Methods, other
	// callables, or nested maps of them.
	Methods map[string]interface{}

	Emit      Emitter
	Eval      *expr.Evaluator
	Requests  *request.Orchestrator
	Conns     *conn.Manager
	Clipboard Clipboard
	Scripts   Interpreter

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	ambient expr.Vars
	parents []expr.Frame
	shared  *shared
}

type shared struct {
	disposed atomic.Bool
	compiled sync.Map

	doneOnce sync.Once
	done     chan struct{}
}

func (s *shared) doneCh() chan struct{} {
	s.doneOnce.Do(func() {
		s.done = make(chan struct{})
	})
	return s.done
}

// NewContext makes a Context over the given state.  A nil state gets
// an empty MapState.
func NewContext(state State) *Context {
	if state == nil {
		state = NewMapState(nil)
	}
	return &Context{
		State:  state,
		Eval:   expr.NewEvaluator(),
		shared: &shared{},
	}
}

func (c *Context) sh() *shared {
	if c.shared == nil {
		c.shared = &shared{}
	}
	return c.shared
}

func (c *Context) log() *slog.Logger {
	return logging.OrDefault(c.Logger)
}

func (c *Context) eval() *expr.Evaluator {
	if c.Eval == nil {
		c.Eval = expr.NewEvaluator()
	}
	return c.Eval
}

// With returns a Context with the ambient binding added.  The
// receiver is not modified.
func (c *Context) With(name string, x interface{}) *Context {
	c.sh()
	acc := *c
	acc.ambient = c.ambient.Copy()
	acc.ambient[name] = x
	return &acc
}

// Ambient returns the value of an ambient binding.
func (c *Context) Ambient(name string) (interface{}, bool) {
	x, have := c.ambient[name]
	return x, have
}

// Child returns a Context for a nested scope with its own state and
// computed values.  The receiver's current values become the
// nearest parent frame.
func (c *Context) Child(state State, computed expr.Vars) *Context {
	c.sh()
	acc := *c
	acc.State = state
	acc.Computed = computed
	acc.ambient = nil
	acc.parents = append([]expr.Frame{c.frame()}, c.parents...)
	return &acc
}

// frame is a snapshot of this level.
func (c *Context) frame() expr.Frame {
	f := expr.Frame{
		Computed: c.Computed,
		Ambient:  c.ambient.Copy(),
	}
	if c.State != nil {
		f.State = expr.Vars(c.State.Snapshot())
	}
	return f
}

// Scope returns the evaluation scope at this point.
func (c *Context) Scope() *expr.Scope {
	s := &expr.Scope{
		Frame: expr.Frame{
			Computed: c.Computed,
			Ambient:  c.ambient,
		},
		Parents: c.parents,
	}
	if c.State != nil {
		s.State = c.State
	}
	return s
}

// Dispose marks this Context and every Context derived from it as
// disposed and tears down the connection manager.  Pending callbacks
// then do nothing.
func (c *Context) Dispose() {
	if !c.sh().disposed.CompareAndSwap(false, true) {
		return
	}
	close(c.sh().doneCh())
	if c.Conns != nil {
		c.Conns.Dispose()
	}
}

// Done is closed by Dispose.
func (c *Context) Done() <-chan struct{} {
	return c.sh().doneCh()
}

// bound returns a ctx that is also cancelled by Dispose.
func (c *Context) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	done := c.Done()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Disposed reports whether Dispose has been called.
func (c *Context) Disposed() bool {
	return c.sh().disposed.Load()
}

// methodTable is the method table merged with the methods found in
// the state under MethodsKey.  The Context's own entries win.
func (c *Context) methodTable() map[string]interface{} {
	var external map[string]interface{}
	if c.State != nil {
		if x, have := c.State.Lookup(MethodsKey); have {
			external, _ = x.(map[string]interface{})
		}
	}
	if len(external) == 0 {
		return c.Methods
	}
	acc := make(map[string]interface{}, len(external)+len(c.Methods))
	for k, v := range external {
		acc[k] = v
	}
	for k, v := range c.Methods {
		acc[k] = v
	}
	return acc
}
