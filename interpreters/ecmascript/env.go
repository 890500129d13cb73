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

package ecmascript

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/util"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

// MaxMethodDepth bounds the nesting of the $methods object.
var MaxMethodDepth = 8

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// plain converts an exported value to generic data with float64
// numbers.
func plain(x interface{}) interface{} {
	switch vv := x.(type) {
	case int64:
		return float64(vv)
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[k] = plain(v)
		}
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = plain(v)
		}
		return acc
	}
	return x
}

func export(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return plain(v.Export())
}

func args(call goja.FunctionCall) []interface{} {
	acc := make([]interface{}, len(call.Arguments))
	for i, a := range call.Arguments {
		acc[i] = export(a)
	}
	return acc
}

// stateObject exposes a core.State.  Reads return copies, so only
// assignments to top-level properties change the state.
type stateObject struct {
	o   *goja.Runtime
	s   core.State
	env *core.ScriptEnv
}

func (d *stateObject) Get(key string) goja.Value {
	x, have := d.s.Lookup(key)
	if !have {
		return goja.Undefined()
	}
	return d.o.ToValue(util.StringMaps(x))
}

func (d *stateObject) Set(key string, v goja.Value) bool {
	if d.env.Disposed() {
		return false
	}
	return d.s.SetPath(key, export(v)) == nil
}

func (d *stateObject) Has(key string) bool {
	_, have := d.s.Lookup(key)
	return have
}

func (d *stateObject) Delete(key string) bool {
	return false
}

func (d *stateObject) Keys() []string {
	m := d.s.Snapshot()
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// methods builds the $methods object.  Every leaf calls through
// env.Call by its path.
func methods(ctx context.Context, o *goja.Runtime, l *loop, env *core.ScriptEnv, m map[string]interface{}, prefix string, depth int) *goja.Object {
	obj := o.NewObject()
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub, is := v.(map[string]interface{}); is {
			if depth < MaxMethodDepth {
				obj.Set(k, methods(ctx, o, l, env, sub, path, depth+1))
			}
			continue
		}
		obj.Set(k, func(call goja.FunctionCall) goja.Value {
			xs := args(call)
			return l.async(func() (interface{}, error) {
				return env.Call(ctx, path, xs...)
			})
		})
	}
	return obj
}

// bind sets up the runtime for env.
//
// Utilities:
//
//	emit(name, payload)   send an event to the emitter
//	log(...)              log the (exported) arguments at info level
//	delay(ms)             a promise resolved after ms milliseconds
//	call(path, ...args)   a promise for the result of the named method
//	getState(path)        read a state path
//	setState(path, x)     write a state path
//	now()                 the current time (RFC3339Nano, UTC)
//	cronNext(s)           the next time for the crontab expression s
//	esc(s)                URL query-escape s
func bind(ctx context.Context, o *goja.Runtime, l *loop, env *core.ScriptEnv) error {
	logger := logging.OrDefault(env.Logger)

	set := func(name string, x interface{}) error {
		return o.Set(name, x)
	}

	if env.State != nil {
		if err := set("state", o.NewDynamicObject(&stateObject{o: o, s: env.State, env: env})); err != nil {
			return err
		}
	}
	if err := set("computed", util.StringMaps(map[string]interface{}(env.Computed))); err != nil {
		return err
	}
	for name, x := range env.Ambient {
		if err := set(name, util.StringMaps(x)); err != nil {
			return err
		}
	}
	if env.Call != nil {
		if err := set(core.MethodsKey, methods(ctx, o, l, env, env.Methods, "", 0)); err != nil {
			return err
		}
	}

	utilities := map[string]interface{}{
		"emit": func(call goja.FunctionCall) goja.Value {
			if env.Disposed() {
				protest(o, core.ErrDisposed.Error())
			}
			if env.Emit == nil {
				return goja.Undefined()
			}
			name := call.Argument(0).String()
			if err := env.Emit(ctx, name, export(call.Argument(1))); err != nil {
				panic(o.NewGoError(err))
			}
			return goja.Undefined()
		},

		"log": func(call goja.FunctionCall) goja.Value {
			logger.Info("script log", "args", args(call))
			return goja.Undefined()
		},

		"delay": func(call goja.FunctionCall) goja.Value {
			ms := call.Argument(0).ToInteger()
			return l.async(func() (interface{}, error) {
				t := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer t.Stop()
				select {
				case <-t.C:
					return nil, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			})
		},

		"call": func(call goja.FunctionCall) goja.Value {
			if env.Call == nil || len(call.Arguments) == 0 {
				protest(o, "call needs a method name")
			}
			name := call.Argument(0).String()
			xs := args(call)[1:]
			return l.async(func() (interface{}, error) {
				return env.Call(ctx, name, xs...)
			})
		},

		"getState": func(path string) interface{} {
			if env.State == nil {
				return nil
			}
			x, have := env.State.GetPath(path)
			if !have {
				return nil
			}
			return util.StringMaps(x)
		},

		"setState": func(path string, v goja.Value) {
			if env.State == nil {
				protest(o, "no state")
			}
			if env.Disposed() {
				protest(o, core.ErrDisposed.Error())
			}
			if err := env.State.SetPath(path, export(v)); err != nil {
				protest(o, err.Error())
			}
		},

		"now": func() string {
			return core.Timestamp()
		},

		// cronNext parses the given string as a crontab expression
		// using github.com/gorhill/cronexpr.  Returns the next time
		// as a string formatted in time.RFC3339Nano (UTC).
		"cronNext": func(s string) string {
			c, err := cronexpr.Parse(s)
			if err != nil {
				protest(o, err.Error())
			}
			return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
		},

		"esc": func(s string) string {
			return url.QueryEscape(s)
		},
	}
	for name, f := range utilities {
		if err := set(name, f); err != nil {
			return err
		}
	}
	return nil
}
