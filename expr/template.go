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
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// IsTemplate reports whether s contains an interpolation.
func IsTemplate(s string) bool {
	return strings.Contains(s, openDelim)
}

// segment is literal text or an interpolated expression.
type segment struct {
	text string
	expr bool
}

// splitTemplate breaks a template into segments.  The closing
// delimiter is the first "}}" outside quotes and nested braces.
func splitTemplate(src string) ([]segment, error) {
	var acc []segment
	rest := src
	offset := 0
	for {
		i := strings.Index(rest, openDelim)
		if i < 0 {
			if rest != "" {
				acc = append(acc, segment{text: rest})
			}
			return acc, nil
		}
		if i > 0 {
			acc = append(acc, segment{text: rest[:i]})
		}
		body := rest[i+len(openDelim):]
		j, err := closing(body)
		if err != nil {
			return nil, &Error{Reason: SyntaxError, Expr: src, Msg: err.Error(), Pos: offset + i}
		}
		acc = append(acc, segment{text: strings.TrimSpace(body[:j]), expr: true})
		consumed := i + len(openDelim) + j + len(closeDelim)
		rest = rest[consumed:]
		offset += consumed
	}
}

type templateError string

func (e templateError) Error() string { return string(e) }

func closing(s string) (int, error) {
	var (
		quote byte
		depth int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			depth++
		case '}':
			if depth == 0 {
				if i+1 < len(s) && s[i+1] == '}' {
					return i, nil
				}
				return 0, templateError("unbalanced '}' in interpolation")
			}
			depth--
		}
	}
	if quote != 0 {
		return 0, templateError("unterminated string in interpolation")
	}
	return 0, templateError("unterminated interpolation")
}

// EvaluateTemplate evaluates a template.  A template consisting of
// exactly one interpolation, with no text around it, yields the
// expression's value.  Otherwise the result is a string with each
// interpolation stringified.  A string without interpolations is
// returned unchanged.
func (e *Evaluator) EvaluateTemplate(src string, s *Scope) (interface{}, error) {
	if !IsTemplate(src) {
		return src, nil
	}
	segs, err := splitTemplate(src)
	if err != nil {
		return nil, err
	}

	if len(segs) == 1 && segs[0].expr {
		return e.Evaluate(segs[0].text, s)
	}

	var b strings.Builder
	for _, seg := range segs {
		if !seg.expr {
			b.WriteString(seg.text)
			continue
		}
		x, err := e.Evaluate(seg.text, s)
		if err != nil {
			return nil, err
		}
		b.WriteString(Stringify(x))
	}
	return b.String(), nil
}

// Resolve evaluates x if it's a template string and returns every
// other value as is.
func (e *Evaluator) Resolve(x interface{}, s *Scope) (interface{}, error) {
	if str, is := x.(string); is && IsTemplate(str) {
		return e.EvaluateTemplate(str, s)
	}
	return x, nil
}

// ResolveDeep resolves templates found anywhere in x.  Containers are
// copied, never modified in place.
func (e *Evaluator) ResolveDeep(x interface{}, s *Scope) (interface{}, error) {
	switch vv := x.(type) {
	case string:
		return e.Resolve(vv, s)
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			y, err := e.ResolveDeep(v, s)
			if err != nil {
				return nil, err
			}
			acc[k] = y
		}
		return acc, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			y, err := e.ResolveDeep(v, s)
			if err != nil {
				return nil, err
			}
			acc[i] = y
		}
		return acc, nil
	}
	return x, nil
}
