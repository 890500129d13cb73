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

	"github.com/Comcast/shoots/expr"
)

// Interpreter runs the code of script actions.
type Interpreter interface {
	// Compile prepares code for repeated execution.  Returning
	// nil (with no error) is fine; Exec then gets nil.
	Compile(ctx context.Context, code string) (interface{}, error)

	// Exec runs code (or what Compile returned for it) and waits
	// for any asynchronous completion.
	Exec(ctx context.Context, env *ScriptEnv, code string, compiled interface{}) error
}

// ScriptEnv is what a script can see and do.
type ScriptEnv struct {
	// State is live: writes are visible to later actions.
	State State

	Computed expr.Vars
	Ambient  expr.Vars

	// Methods is the method table merged with any methods found
	// in the state under MethodsKey.
	Methods map[string]interface{}

	// Call invokes a method by path, as a call action would.
	Call func(ctx context.Context, name string, args ...interface{}) (interface{}, error)

	Emit func(ctx context.Context, name string, payload interface{}) error

	Logger *slog.Logger

	// Done is closed when the owning Context is disposed.  After
	// that, a script must not resume or write.
	Done <-chan struct{}
}

// Disposed reports whether Done is closed.
func (e *ScriptEnv) Disposed() bool {
	if e == nil || e.Done == nil {
		return false
	}
	select {
	case <-e.Done:
		return true
	default:
		return false
	}
}

// InterpretersMap is a map from interpreter names to Interpreters.
type InterpretersMap map[string]Interpreter

// NewInterpretersMap makes an empty map.
func NewInterpretersMap() InterpretersMap {
	return make(InterpretersMap)
}

// Find returns the named Interpreter, or nil.
func (m InterpretersMap) Find(name string) Interpreter {
	return m[name]
}

// DefaultInterpreters is a hook for interpreter packages to register
// themselves.
var DefaultInterpreters = NewInterpretersMap()
