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

package core

import (
	"sync"

	"github.com/Comcast/shoots/expr"
)

// MethodsKey is the reserved state key holding externally supplied
// methods.
const MethodsKey = "$methods"

// State is the mutable state scope.  Every holder of a State sees
// every write.
type State interface {
	expr.Lookup

	// GetPath returns the value at the path, or (expr.Undefined,
	// false) if there isn't one.
	GetPath(path string) (interface{}, bool)

	// SetPath writes the value at the path, creating intermediate
	// containers.
	SetPath(path string, x interface{}) error

	// Snapshot returns the current top-level map.  Callers must
	// not modify it.
	Snapshot() map[string]interface{}
}

// MapState is a State backed by a map.  Writes replace the
// containers along the written path, so a Snapshot is never changed
// by later writes.
type MapState struct {
	mu sync.RWMutex
	m  map[string]interface{}

	// OnChange, if not nil, is called after each write.
	OnChange func(path string, x interface{})
}

// NewMapState makes a MapState with the given initial values.
func NewMapState(m map[string]interface{}) *MapState {
	if m == nil {
		m = make(map[string]interface{})
	}
	return &MapState{m: m}
}

func (s *MapState) Lookup(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	x, have := s.m[name]
	return x, have
}

func (s *MapState) GetPath(path string) (interface{}, bool) {
	s.mu.RLock()
	m := s.m
	s.mu.RUnlock()
	return expr.GetPath(m, path)
}

func (s *MapState) SetPath(path string, x interface{}) error {
	if err := s.set(path, x); err != nil {
		return err
	}
	if s.OnChange != nil {
		s.OnChange(path, x)
	}
	return nil
}

func (s *MapState) set(path string, x interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := expr.SetPath(s.m, path, x)
	if err != nil {
		return err
	}
	s.m = m
	return nil
}

func (s *MapState) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}
