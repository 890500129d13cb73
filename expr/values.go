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
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// MarshalJSON renders undefined as null.
func (undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Undefined is the value of a missing property.  It is distinct from
// nil, which is null.
var Undefined interface{} = undefined{}

// IsUndefined reports whether x is Undefined.
func IsUndefined(x interface{}) bool {
	_, is := x.(undefined)
	return is
}

// IsNullish reports whether x is nil or Undefined.
func IsNullish(x interface{}) bool {
	return x == nil || IsUndefined(x)
}

// Defined maps Undefined to nil and returns everything else unchanged.
func Defined(x interface{}) interface{} {
	if IsUndefined(x) {
		return nil
	}
	return x
}

// Truthy follows the usual rules: false, 0, NaN, "", null, and
// undefined are falsy.  Everything else is truthy.
func Truthy(x interface{}) bool {
	switch vv := x.(type) {
	case nil, undefined:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	}
	if f, is := number(x); is {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// number converts Go numeric types to float64.
func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case float32:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int8:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case json.Number:
		f, err := vv.Float64()
		return f, err == nil
	}
	return 0, false
}

// ToNumber converts x to a float64, yielding NaN when there's no
// sensible answer.
func ToNumber(x interface{}) float64 {
	if f, is := number(x); is {
		return f
	}
	switch vv := x.(type) {
	case nil:
		return 0
	case bool:
		if vv {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(vv)
		if s == "" {
			return 0
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if n, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case []interface{}:
		switch len(vv) {
		case 0:
			return 0
		case 1:
			return ToNumber(vv[0])
		}
	}
	return math.NaN()
}

// FormatNumber renders a float64 the way scripts expect: integers
// without a fraction, NaN and Infinity by name.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString converts x to a string using script conventions.
func ToString(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case string:
		return vv
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case []interface{}:
		parts := make([]string, len(vv))
		for i, y := range vv {
			if !IsNullish(y) {
				parts[i] = ToString(y)
			}
		}
		return strings.Join(parts, ",")
	case map[string]interface{}:
		return "[object Object]"
	case []byte:
		return string(vv)
	}
	if f, is := number(x); is {
		return FormatNumber(f)
	}
	if IsCallable(x) {
		return "function"
	}
	switch reflect.ValueOf(x).Kind() {
	case reflect.Slice, reflect.Array:
		return ToString(Canonical(x))
	}
	return "[object Object]"
}

// Stringify renders a template interpolation: null and undefined
// become "", containers become JSON, and everything else follows
// ToString.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil, undefined:
		return ""
	case string:
		return vv
	case []interface{}, map[string]interface{}:
		js, err := json.Marshal(vv)
		if err != nil {
			return ToString(vv)
		}
		return string(js)
	}
	if _, is := number(x); is {
		return ToString(x)
	}
	switch reflect.ValueOf(x).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Ptr:
		if IsCallable(x) {
			return "function"
		}
		if js, err := json.Marshal(x); err == nil {
			return string(js)
		}
	}
	return ToString(x)
}

// TypeOf returns the script type name of x.
func TypeOf(x interface{}) string {
	switch x.(type) {
	case undefined:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case string:
		return "string"
	}
	if _, is := number(x); is {
		return "number"
	}
	if IsCallable(x) {
		return "function"
	}
	return "object"
}

// StrictEquals implements ===.
func StrictEquals(a, b interface{}) bool {
	if IsUndefined(a) || IsUndefined(b) {
		return IsUndefined(a) && IsUndefined(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, is := number(a); is {
		y, is := number(b)
		return is && x == y
	}
	switch av := a.(type) {
	case string:
		bv, is := b.(string)
		return is && av == bv
	case bool:
		bv, is := b.(bool)
		return is && av == bv
	}
	return sameReference(a, b)
}

// LooseEquals implements ==.
func LooseEquals(a, b interface{}) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if isPrimitive(a) && isPrimitive(b) {
		as, aIs := a.(string)
		bs, bIs := b.(string)
		if aIs && bIs {
			return as == bs
		}
		return ToNumber(a) == ToNumber(b)
	}
	return StrictEquals(a, b)
}

func isPrimitive(x interface{}) bool {
	switch x.(type) {
	case string, bool:
		return true
	}
	_, is := number(x)
	return is
}

// sameValueZero is equality for includes(): like === but NaN equals
// NaN.
func sameValueZero(a, b interface{}) bool {
	if x, is := number(a); is && math.IsNaN(x) {
		y, is := number(b)
		return is && math.IsNaN(y)
	}
	return StrictEquals(a, b)
}

func sameReference(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Ptr, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Type().Comparable() && vb.Type().Comparable() {
		return a == b
	}
	return false
}

// Canonical converts the given value to the plain JSON-like
// representation (map[string]interface{}, []interface{}, float64,
// string, bool, nil).  Functions and already-canonical values are
// returned as is.
func Canonical(x interface{}) interface{} {
	switch vv := x.(type) {
	case nil, undefined, string, bool, float64, map[string]interface{}, []interface{}:
		return x
	case []string:
		acc := make([]interface{}, len(vv))
		for i, s := range vv {
			acc[i] = s
		}
		return acc
	case map[string]string:
		acc := make(map[string]interface{}, len(vv))
		for k, s := range vv {
			acc[k] = s
		}
		return acc
	}
	if f, is := number(x); is {
		return f
	}
	if IsCallable(x) {
		return x
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return x
		}
		acc := make([]interface{}, v.Len())
		for i := range acc {
			acc[i] = v.Index(i).Interface()
		}
		return acc
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		acc := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			acc[iter.Key().String()] = iter.Value().Interface()
		}
		return acc
	}
	// Structs and the like go through JSON.
	js, err := json.Marshal(x)
	if err != nil {
		return x
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return x
	}
	return y
}
