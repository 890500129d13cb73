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
	"math"
	"sort"
	"strconv"
	"strings"
)

type method func(in *interp, recv interface{}, args []interface{}) (interface{}, error)

// builtinMethod finds the built-in method for the receiver's type.
func builtinMethod(recv interface{}, name string) method {
	switch recv.(type) {
	case string:
		return stringMethods[name]
	case bool:
		if name == "toString" {
			return func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
				return ToString(recv), nil
			}
		}
		return nil
	case map[string]interface{}:
		return objectMethods[name]
	}
	if _, is := number(recv); is {
		return numberMethods[name]
	}
	if _, is := Canonical(recv).([]interface{}); is {
		return arrayMethods[name]
	}
	return nil
}

func arg(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

var errNotFunction = errors.New("callback is not a function")

func callback(args []interface{}) (interface{}, error) {
	fn := arg(args, 0)
	if !IsCallable(fn) {
		return nil, errNotFunction
	}
	return fn, nil
}

func each(recv interface{}, args []interface{}, f func(i int, x, y interface{}) bool) error {
	fn, err := callback(args)
	if err != nil {
		return err
	}
	xs := Canonical(recv).([]interface{})
	for i, x := range xs {
		y, err := Invoke(fn, []interface{}{x, float64(i), xs})
		if err != nil {
			return err
		}
		if !f(i, x, y) {
			break
		}
	}
	return nil
}

// relIndex resolves a possibly negative index against n.
func relIndex(x interface{}, n int, def int) int {
	if IsUndefined(x) {
		return def
	}
	f := ToNumber(x)
	if math.IsNaN(f) {
		return 0
	}
	i := int(f)
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

var arrayMethods = map[string]method{
	"map": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		acc := []interface{}{}
		err := each(recv, args, func(_ int, _, y interface{}) bool {
			acc = append(acc, y)
			return true
		})
		return acc, err
	},
	"filter": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		acc := []interface{}{}
		err := each(recv, args, func(_ int, x, y interface{}) bool {
			if Truthy(y) {
				acc = append(acc, x)
			}
			return true
		})
		return acc, err
	},
	"find": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		found := Undefined
		err := each(recv, args, func(_ int, x, y interface{}) bool {
			if Truthy(y) {
				found = x
				return false
			}
			return true
		})
		return found, err
	},
	"findIndex": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		found := -1
		err := each(recv, args, func(i int, _, y interface{}) bool {
			if Truthy(y) {
				found = i
				return false
			}
			return true
		})
		return float64(found), err
	},
	"some": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		some := false
		err := each(recv, args, func(_ int, _, y interface{}) bool {
			some = Truthy(y)
			return !some
		})
		return some, err
	},
	"every": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		every := true
		err := each(recv, args, func(_ int, _, y interface{}) bool {
			every = Truthy(y)
			return every
		})
		return every, err
	},
	"forEach": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		err := each(recv, args, func(int, interface{}, interface{}) bool { return true })
		return Undefined, err
	},
	"reduce": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		fn, err := callback(args)
		if err != nil {
			return nil, err
		}
		xs := Canonical(recv).([]interface{})
		start := 0
		var acc interface{}
		if len(args) > 1 {
			acc = args[1]
		} else {
			if len(xs) == 0 {
				return nil, errors.New("reduce of empty array with no initial value")
			}
			acc, start = xs[0], 1
		}
		for i := start; i < len(xs); i++ {
			if acc, err = Invoke(fn, []interface{}{acc, xs[i], float64(i), xs}); err != nil {
				return nil, err
			}
		}
		return acc, nil
	},
	"includes": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		for _, x := range Canonical(recv).([]interface{}) {
			if sameValueZero(x, arg(args, 0)) {
				return true, nil
			}
		}
		return false, nil
	},
	"indexOf": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		for i, x := range Canonical(recv).([]interface{}) {
			if StrictEquals(x, arg(args, 0)) {
				return float64(i), nil
			}
		}
		return float64(-1), nil
	},
	"join": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		sep := ","
		if s := arg(args, 0); !IsUndefined(s) {
			sep = ToString(s)
		}
		xs := Canonical(recv).([]interface{})
		parts := make([]string, len(xs))
		for i, x := range xs {
			if !IsNullish(x) {
				parts[i] = ToString(x)
			}
		}
		return strings.Join(parts, sep), nil
	},
	"slice": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		xs := Canonical(recv).([]interface{})
		from := relIndex(arg(args, 0), len(xs), 0)
		to := relIndex(arg(args, 1), len(xs), len(xs))
		if to < from {
			to = from
		}
		return append([]interface{}{}, xs[from:to]...), nil
	},
	"concat": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		acc := append([]interface{}{}, Canonical(recv).([]interface{})...)
		for _, a := range args {
			if ys, is := Canonical(a).([]interface{}); is {
				acc = append(acc, ys...)
			} else {
				acc = append(acc, a)
			}
		}
		return acc, nil
	},
	"flat": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		acc := []interface{}{}
		for _, x := range Canonical(recv).([]interface{}) {
			if ys, is := x.([]interface{}); is {
				acc = append(acc, ys...)
			} else {
				acc = append(acc, x)
			}
		}
		return acc, nil
	},
	"reverse": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		xs := Canonical(recv).([]interface{})
		acc := make([]interface{}, len(xs))
		for i, x := range xs {
			acc[len(xs)-1-i] = x
		}
		return acc, nil
	},
	"sort": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		acc := append([]interface{}{}, Canonical(recv).([]interface{})...)
		fn := arg(args, 0)
		var err error
		sort.SliceStable(acc, func(i, j int) bool {
			if !IsCallable(fn) {
				return ToString(acc[i]) < ToString(acc[j])
			}
			r, e := Invoke(fn, []interface{}{acc[i], acc[j]})
			if e != nil && err == nil {
				err = e
			}
			return ToNumber(r) < 0
		})
		return acc, err
	},
	"toString": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return ToString(Canonical(recv)), nil
	},
}

func str(recv interface{}) string { return recv.(string) }

var stringMethods = map[string]method{
	"toUpperCase": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return strings.ToUpper(str(recv)), nil
	},
	"toLowerCase": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return strings.ToLower(str(recv)), nil
	},
	"trim": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return strings.TrimSpace(str(recv)), nil
	},
	"trimStart": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return strings.TrimLeft(str(recv), " \t\r\n"), nil
	},
	"trimEnd": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return strings.TrimRight(str(recv), " \t\r\n"), nil
	},
	"startsWith": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return strings.HasPrefix(str(recv), ToString(arg(args, 0))), nil
	},
	"endsWith": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return strings.HasSuffix(str(recv), ToString(arg(args, 0))), nil
	},
	"includes": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return strings.Contains(str(recv), ToString(arg(args, 0))), nil
	},
	"indexOf": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		s, sub := str(recv), ToString(arg(args, 0))
		i := strings.Index(s, sub)
		if i < 0 {
			return float64(-1), nil
		}
		return float64(len([]rune(s[:i]))), nil
	},
	"charAt": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		rs := []rune(str(recv))
		i := int(ToNumber(arg(args, 0)))
		if IsUndefined(arg(args, 0)) {
			i = 0
		}
		if i < 0 || i >= len(rs) {
			return "", nil
		}
		return string(rs[i]), nil
	},
	"slice": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		rs := []rune(str(recv))
		from := relIndex(arg(args, 0), len(rs), 0)
		to := relIndex(arg(args, 1), len(rs), len(rs))
		if to < from {
			return "", nil
		}
		return string(rs[from:to]), nil
	},
	"substring": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		rs := []rune(str(recv))
		clamp := func(x interface{}, def int) int {
			if IsUndefined(x) {
				return def
			}
			f := ToNumber(x)
			switch {
			case math.IsNaN(f) || f < 0:
				return 0
			case f > float64(len(rs)):
				return len(rs)
			}
			return int(f)
		}
		from, to := clamp(arg(args, 0), 0), clamp(arg(args, 1), len(rs))
		if to < from {
			from, to = to, from
		}
		return string(rs[from:to]), nil
	},
	"split": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		s := str(recv)
		if IsUndefined(arg(args, 0)) {
			return []interface{}{s}, nil
		}
		parts := strings.Split(s, ToString(arg(args, 0)))
		acc := make([]interface{}, len(parts))
		for i, p := range parts {
			acc[i] = p
		}
		return acc, nil
	},
	"replace": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return strings.Replace(str(recv), ToString(arg(args, 0)), ToString(arg(args, 1)), 1), nil
	},
	"replaceAll": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return strings.ReplaceAll(str(recv), ToString(arg(args, 0)), ToString(arg(args, 1))), nil
	},
	"repeat": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		n := ToNumber(arg(args, 0))
		if math.IsNaN(n) || n < 0 || n > 1e6 {
			return nil, errors.New("invalid repeat count")
		}
		return strings.Repeat(str(recv), int(n)), nil
	},
	"padStart": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return pad(str(recv), args, true), nil
	},
	"padEnd": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		return pad(str(recv), args, false), nil
	},
	"toString": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return recv, nil
	},
}

func pad(s string, args []interface{}, start bool) string {
	n := int(ToNumber(arg(args, 0)))
	fill := " "
	if f := arg(args, 1); !IsUndefined(f) {
		fill = ToString(f)
	}
	have := len([]rune(s))
	if fill == "" || n <= have {
		return s
	}
	p := []rune(strings.Repeat(fill, n-have))[:n-have]
	if start {
		return string(p) + s
	}
	return s + string(p)
}

var numberMethods = map[string]method{
	"toFixed": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		digits := 0
		if d := arg(args, 0); !IsUndefined(d) {
			digits = int(ToNumber(d))
		}
		if digits < 0 || digits > 100 {
			return nil, errors.New("toFixed digits out of range")
		}
		return strconv.FormatFloat(ToNumber(recv), 'f', digits, 64), nil
	},
	"toString": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		if r := arg(args, 0); !IsUndefined(r) {
			radix := int(ToNumber(r))
			if radix < 2 || radix > 36 {
				return nil, errors.New("radix out of range")
			}
			f := ToNumber(recv)
			if f == math.Trunc(f) {
				return strconv.FormatInt(int64(f), radix), nil
			}
		}
		return ToString(recv), nil
	},
}

var objectMethods = map[string]method{
	"hasOwnProperty": func(_ *interp, recv interface{}, args []interface{}) (interface{}, error) {
		_, have := recv.(map[string]interface{})[ToString(arg(args, 0))]
		return have, nil
	},
	"toString": func(_ *interp, recv interface{}, _ []interface{}) (interface{}, error) {
		return ToString(recv), nil
	},
}
