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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: a property name or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// ErrBadPath is wrapped by every path parsing error.
var ErrBadPath = errors.New("bad path")

// MaxGrow bounds how far past its end a write may extend an array.
var MaxGrow = 10000

// ParsePath parses dotted and bracket-indexed paths such as
// "a.b[0].c" and "a['x y']".
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadPath)
	}
	var (
		acc []Segment
		i   int
	)
	for i < len(path) {
		switch c := path[i]; {
		case c == '.':
			// Separators are consumed after each segment.
			return nil, fmt.Errorf("%w: misplaced '.' in %q", ErrBadPath, path)
		case c == '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("%w: unclosed '[' in %q", ErrBadPath, path)
			}
			inner := strings.TrimSpace(path[i+1 : i+j])
			i += j + 1
			if i < len(path) && path[i] != '.' && path[i] != '[' {
				return nil, fmt.Errorf("%w: junk after ']' in %q", ErrBadPath, path)
			}
			if i < len(path) && path[i] == '.' && i == len(path)-1 {
				return nil, fmt.Errorf("%w: trailing '.' in %q", ErrBadPath, path)
			}
			if i < len(path) && path[i] == '.' {
				i++
			}
			if n := len(inner); n >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[n-1] == inner[0] {
				acc = append(acc, Segment{Key: inner[1 : n-1]})
				continue
			}
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index %q in %q", ErrBadPath, inner, path)
			}
			acc = append(acc, Segment{Index: n, IsIndex: true})
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			acc = append(acc, Segment{Key: path[i:j]})
			i = j
			if i < len(path) && path[i] == '.' {
				if i == len(path)-1 {
					return nil, fmt.Errorf("%w: trailing '.' in %q", ErrBadPath, path)
				}
				i++
			}
		}
	}
	for _, s := range acc {
		if !s.IsIndex && ForbiddenProperties[s.Key] {
			return nil, fmt.Errorf("%w: forbidden segment %q", ErrBadPath, s.Key)
		}
	}
	return acc, nil
}

// step returns the child of x at s.
func step(x interface{}, s Segment) (interface{}, bool) {
	switch vv := Canonical(x).(type) {
	case map[string]interface{}:
		key := s.Key
		if s.IsIndex {
			key = strconv.Itoa(s.Index)
		}
		y, have := vv[key]
		return y, have
	case []interface{}:
		if s.IsIndex {
			if s.Index < len(vv) {
				return vv[s.Index], true
			}
			return nil, false
		}
		if n, err := strconv.Atoi(s.Key); err == nil && n >= 0 && n < len(vv) {
			return vv[n], true
		}
		if s.Key == "length" {
			return float64(len(vv)), true
		}
	case Lookup:
		return vv.Lookup(s.String())
	}
	return nil, false
}

// GetPath returns the value at the given path.  A missing or
// unparsable path yields (Undefined, false).
func GetPath(root interface{}, path string) (interface{}, bool) {
	segs, err := ParsePath(path)
	if err != nil {
		return Undefined, false
	}
	return GetSegments(root, segs)
}

// GetSegments is GetPath with a pre-parsed path.
func GetSegments(root interface{}, segs []Segment) (interface{}, bool) {
	x := root
	for _, s := range segs {
		y, have := step(x, s)
		if !have {
			return Undefined, false
		}
		x = y
	}
	return x, true
}

// SetPath returns a copy of root with the value at path replaced.
// Containers along the path are copied (and created when absent, an
// array when the next segment is an index), so root itself is never
// modified.
func SetPath(root map[string]interface{}, path string, v interface{}) (map[string]interface{}, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if segs[0].IsIndex {
		return nil, fmt.Errorf("%w: %q starts with an index", ErrBadPath, path)
	}
	y, err := setIn(root, segs, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return y.(map[string]interface{}), nil
}

func setIn(x interface{}, segs []Segment, v interface{}) (interface{}, error) {
	s := segs[0]
	child := func(y interface{}) (interface{}, error) {
		if len(segs) == 1 {
			return v, nil
		}
		if IsNullish(y) {
			if segs[1].IsIndex {
				y = []interface{}{}
			} else {
				y = map[string]interface{}{}
			}
		}
		return setIn(y, segs[1:], v)
	}

	switch vv := Canonical(x).(type) {
	case nil, undefined:
		if s.IsIndex {
			return setIn([]interface{}{}, segs, v)
		}
		return setIn(map[string]interface{}{}, segs, v)

	case map[string]interface{}:
		key := s.String()
		if s.IsIndex {
			key = strconv.Itoa(s.Index)
		}
		y, err := child(vv[key])
		if err != nil {
			return nil, err
		}
		acc := make(map[string]interface{}, len(vv)+1)
		for k, w := range vv {
			acc[k] = w
		}
		acc[key] = y
		return acc, nil

	case []interface{}:
		i := s.Index
		if !s.IsIndex {
			n, err := strconv.Atoi(s.Key)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: property %q on an array", ErrBadPath, s.Key)
			}
			i = n
		}
		if i > len(vv)+MaxGrow {
			return nil, fmt.Errorf("%w: index %d is too far past the end (%d)", ErrBadPath, i, len(vv))
		}
		var y interface{}
		if i < len(vv) {
			y = vv[i]
		}
		y, err := child(y)
		if err != nil {
			return nil, err
		}
		n := len(vv)
		if i >= n {
			n = i + 1
		}
		acc := make([]interface{}, n)
		copy(acc, vv)
		acc[i] = y
		return acc, nil
	}
	return nil, fmt.Errorf("%w: cannot set %s on %s", ErrBadPath, s, TypeOf(x))
}
