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

// Lookup resolves a top-level name.
type Lookup interface {
	Lookup(name string) (interface{}, bool)
}

// Vars is a plain Lookup.
type Vars map[string]interface{}

func (vs Vars) Lookup(name string) (interface{}, bool) {
	x, have := vs[name]
	return x, have
}

// Copy makes a shallow copy.
func (vs Vars) Copy() Vars {
	acc := make(Vars, len(vs))
	for k, v := range vs {
		acc[k] = v
	}
	return acc
}

// Reserved ambient names.
const (
	EventVar    = "$event"
	ResponseVar = "$response"
	ErrorVar    = "$error"
	IndexVar    = "$index"
	ItemVar     = "$item"
)

// Frame is one level of name resolution: state, then computed
// values, then ambient names.
type Frame struct {
	State    Lookup
	Computed Lookup
	Ambient  Vars
}

func (f *Frame) lookup(name string) (interface{}, bool) {
	if f.State != nil {
		if x, have := f.State.Lookup(name); have {
			return x, true
		}
	}
	if f.Computed != nil {
		if x, have := f.Computed.Lookup(name); have {
			return x, true
		}
	}
	if f.Ambient != nil {
		if x, have := f.Ambient[name]; have {
			return x, true
		}
	}
	return nil, false
}

// Scope is what an expression sees.  Parents are snapshots, nearest
// first.  Globals (if any) are consulted last.
type Scope struct {
	Frame
	Parents []Frame
	Globals Lookup
}

// NewScope makes a Scope with the given state and computed values.
func NewScope(state, computed Lookup) *Scope {
	return &Scope{
		Frame: Frame{
			State:    state,
			Computed: computed,
		},
	}
}

// Resolve finds the value bound to name.
func (s *Scope) Resolve(name string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}
	if x, have := s.Frame.lookup(name); have {
		return x, true
	}
	for i := range s.Parents {
		if x, have := s.Parents[i].lookup(name); have {
			return x, true
		}
	}
	if s.Globals != nil {
		return s.Globals.Lookup(name)
	}
	return nil, false
}

// With returns a copy of the scope with the given ambient binding
// added.  The receiver is not modified.
func (s *Scope) With(name string, x interface{}) *Scope {
	acc := *s
	acc.Ambient = s.Ambient.Copy()
	acc.Ambient[name] = x
	return &acc
}
