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

// ForbiddenIdentifiers can never be referenced as bare names, even if
// a scope happens to bind them.
var ForbiddenIdentifiers = map[string]bool{
	// Dynamic code.
	"eval":              true,
	"Function":          true,
	"AsyncFunction":     true,
	"GeneratorFunction": true,

	// Global object handles.
	"globalThis": true,
	"window":     true,
	"self":       true,
	"global":     true,
	"this":       true,
	"document":   true,
	"top":        true,
	"parent":     true,
	"frames":     true,
	"arguments":  true,
	"Reflect":    true,
	"Proxy":      true,

	// Process, filesystem, and module loading.
	"process":       true,
	"require":       true,
	"module":        true,
	"exports":       true,
	"import":        true,
	"importScripts": true,
	"Deno":          true,
	"Bun":           true,

	// Timers.
	"setTimeout":            true,
	"setInterval":           true,
	"setImmediate":          true,
	"clearTimeout":          true,
	"clearInterval":         true,
	"requestAnimationFrame": true,
	"queueMicrotask":        true,

	// Network and storage.
	"fetch":          true,
	"XMLHttpRequest": true,
	"WebSocket":      true,
	"EventSource":    true,
	"Worker":         true,
	"SharedWorker":   true,
	"navigator":      true,
	"location":       true,
	"localStorage":   true,
	"sessionStorage": true,
	"indexedDB":      true,
	"caches":         true,

	"constructor": true,
	"__proto__":   true,
	"prototype":   true,
}

// ForbiddenProperties can never be accessed as members, whether by
// dot, by bracket with a static key, or by bracket with a computed
// key.
var ForbiddenProperties = map[string]bool{
	"constructor":      true,
	"__proto__":        true,
	"prototype":        true,
	"__defineGetter__": true,
	"__defineSetter__": true,
	"__lookupGetter__": true,
	"__lookupSetter__": true,
	"eval":             true,
	"Function":         true,
	"globalThis":       true,
	"caller":           true,
	"callee":           true,
}

func violation(src string, pos int, msg string) *Error {
	return &Error{Reason: SecurityViolation, Expr: src, Msg: msg, Pos: pos}
}

// Check walks the tree and reports the first security violation, if
// any.
func Check(src string, n Node) error {
	var err *Error
	Walk(n, func(n Node) bool {
		if err != nil {
			return false
		}
		switch vv := n.(type) {
		case *Ident:
			if ForbiddenIdentifiers[vv.Name] {
				err = violation(src, vv.At, `reference to "`+vv.Name+`"`)
			}
		case *Member:
			if !vv.Computed {
				if ForbiddenProperties[vv.Name] {
					err = violation(src, vv.At, `access to property "`+vv.Name+`"`)
				}
				break
			}
			if key, static := staticString(vv.Index); static && ForbiddenProperties[key] {
				err = violation(src, vv.At, `access to property "`+key+`"`)
			}
		case *New:
			err = violation(src, vv.At, "object construction")
		case *Arrow:
			for _, name := range vv.Params {
				if ForbiddenIdentifiers[name] {
					err = violation(src, vv.At, `parameter named "`+name+`"`)
					break
				}
			}
		case *ObjectLit:
			for _, p := range vv.Props {
				key, static := p.Key, p.KeyExpr == nil && p.Spread == nil
				if p.KeyExpr != nil {
					key, static = staticString(p.KeyExpr)
				}
				if static && ForbiddenProperties[key] {
					err = violation(src, vv.At, `object key "`+key+`"`)
					break
				}
			}
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return nil
}

// staticString folds literal strings (and concatenations of literals)
// into a key.
func staticString(n Node) (string, bool) {
	switch vv := n.(type) {
	case *Literal:
		switch x := vv.Value.(type) {
		case string:
			return x, true
		case float64:
			return FormatNumber(x), true
		}
	case *Binary:
		if vv.Op != PLUS {
			return "", false
		}
		l, ok := staticString(vv.L)
		if !ok {
			return "", false
		}
		r, ok := staticString(vv.R)
		if !ok {
			return "", false
		}
		return l + r, true
	case *Conditional:
		// Either branch could be taken.
		if s, ok := staticString(vv.Then); ok && ForbiddenProperties[s] {
			return s, true
		}
		if s, ok := staticString(vv.Else); ok && ForbiddenProperties[s] {
			return s, true
		}
	}
	return "", false
}
