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
	"errors"
	"math"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

func math1(f func(float64) float64) Func {
	return func(args ...interface{}) (interface{}, error) {
		return f(ToNumber(arg(args, 0))), nil
	}
}

func extremum(pick func(a, b float64) float64, start float64) Func {
	return func(args ...interface{}) (interface{}, error) {
		acc := start
		for _, a := range args {
			f := ToNumber(a)
			if math.IsNaN(f) {
				return math.NaN(), nil
			}
			acc = pick(acc, f)
		}
		return acc, nil
	}
}

func sortedKeys(m map[string]interface{}) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func objectArg(args []interface{}) map[string]interface{} {
	m, _ := Canonical(arg(args, 0)).(map[string]interface{})
	return m
}

// Utilities returns the safe global helpers every expression can see.
// A new value is returned on every call.
func Utilities() Vars {
	return Vars{
		"Math": map[string]interface{}{
			"PI":    math.Pi,
			"E":     math.E,
			"abs":   math1(math.Abs),
			"floor": math1(math.Floor),
			"ceil":  math1(math.Ceil),
			"round": math1(func(f float64) float64 { return math.Floor(f + 0.5) }),
			"trunc": math1(math.Trunc),
			"sqrt":  math1(math.Sqrt),
			"sign": math1(func(f float64) float64 {
				switch {
				case f > 0:
					return 1
				case f < 0:
					return -1
				}
				return f
			}),
			"max": extremum(math.Max, math.Inf(-1)),
			"min": extremum(math.Min, math.Inf(1)),
			"pow": Func(func(args ...interface{}) (interface{}, error) {
				return math.Pow(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
			}),
			"random": Func(func(args ...interface{}) (interface{}, error) {
				return rand.Float64(), nil
			}),
		},

		"JSON": map[string]interface{}{
			"stringify": Func(func(args ...interface{}) (interface{}, error) {
				x := arg(args, 0)
				if IsUndefined(x) {
					return Undefined, nil
				}
				var (
					js  []byte
					err error
				)
				if indent := arg(args, 2); !IsUndefined(indent) {
					in := ToString(indent)
					if n, is := number(indent); is {
						in = strings.Repeat(" ", int(n))
					}
					js, err = json.MarshalIndent(x, "", in)
				} else {
					js, err = json.Marshal(x)
				}
				if err != nil {
					return nil, err
				}
				return string(js), nil
			}),
			"parse": Func(func(args ...interface{}) (interface{}, error) {
				var x interface{}
				if err := json.Unmarshal([]byte(ToString(arg(args, 0))), &x); err != nil {
					return nil, err
				}
				return x, nil
			}),
		},

		"Object": map[string]interface{}{
			"keys": Func(func(args ...interface{}) (interface{}, error) {
				acc := []interface{}{}
				for _, k := range sortedKeys(objectArg(args)) {
					acc = append(acc, k)
				}
				return acc, nil
			}),
			"values": Func(func(args ...interface{}) (interface{}, error) {
				m := objectArg(args)
				acc := []interface{}{}
				for _, k := range sortedKeys(m) {
					acc = append(acc, m[k])
				}
				return acc, nil
			}),
			"entries": Func(func(args ...interface{}) (interface{}, error) {
				m := objectArg(args)
				acc := []interface{}{}
				for _, k := range sortedKeys(m) {
					acc = append(acc, []interface{}{k, m[k]})
				}
				return acc, nil
			}),
			"fromEntries": Func(func(args ...interface{}) (interface{}, error) {
				acc := map[string]interface{}{}
				xs, _ := Canonical(arg(args, 0)).([]interface{})
				for _, x := range xs {
					pair, is := x.([]interface{})
					if !is || len(pair) == 0 {
						continue
					}
					k := ToString(pair[0])
					if ForbiddenProperties[k] {
						continue
					}
					acc[k] = arg(pair, 1)
				}
				return acc, nil
			}),
			"assign": Func(func(args ...interface{}) (interface{}, error) {
				acc := map[string]interface{}{}
				for _, a := range args {
					m, _ := Canonical(a).(map[string]interface{})
					for k, v := range m {
						acc[k] = v
					}
				}
				return acc, nil
			}),
		},

		"Array": map[string]interface{}{
			"isArray": Func(func(args ...interface{}) (interface{}, error) {
				_, is := arg(args, 0).([]interface{})
				return is, nil
			}),
			"of": Func(func(args ...interface{}) (interface{}, error) {
				return append([]interface{}{}, args...), nil
			}),
		},

		"String": Func(func(args ...interface{}) (interface{}, error) {
			if len(args) == 0 {
				return "", nil
			}
			return ToString(args[0]), nil
		}),
		"Number": Func(func(args ...interface{}) (interface{}, error) {
			if len(args) == 0 {
				return float64(0), nil
			}
			return ToNumber(args[0]), nil
		}),
		"Boolean": Func(func(args ...interface{}) (interface{}, error) {
			return Truthy(arg(args, 0)), nil
		}),
		"parseInt": Func(func(args ...interface{}) (interface{}, error) {
			return parseInt(ToString(arg(args, 0)), arg(args, 1)), nil
		}),
		"parseFloat": Func(func(args ...interface{}) (interface{}, error) {
			return parseFloat(ToString(arg(args, 0))), nil
		}),
		"isNaN": Func(func(args ...interface{}) (interface{}, error) {
			return math.IsNaN(ToNumber(arg(args, 0))), nil
		}),
		"isFinite": Func(func(args ...interface{}) (interface{}, error) {
			f := ToNumber(arg(args, 0))
			return !math.IsNaN(f) && !math.IsInf(f, 0), nil
		}),
		"encodeURIComponent": Func(func(args ...interface{}) (interface{}, error) {
			return strings.ReplaceAll(url.QueryEscape(ToString(arg(args, 0))), "+", "%20"), nil
		}),
		"decodeURIComponent": Func(func(args ...interface{}) (interface{}, error) {
			s, err := url.PathUnescape(ToString(arg(args, 0)))
			if err != nil {
				return nil, errors.New("URI malformed")
			}
			return s, nil
		}),
		"Date": map[string]interface{}{
			"now": Func(func(args ...interface{}) (interface{}, error) {
				return float64(time.Now().UnixNano() / int64(time.Millisecond)), nil
			}),
		},
		"NaN":      math.NaN(),
		"Infinity": math.Inf(1),
	}
}

// parseInt reads the longest integer prefix.
func parseInt(s string, radix interface{}) float64 {
	s = strings.TrimSpace(s)
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign, s = -1, s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	base := 10
	if !IsUndefined(radix) {
		base = int(ToNumber(radix))
	}
	if (base == 16 || IsUndefined(radix)) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s, base = s[2:], 16
	}
	if base < 2 || base > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(s) {
		d, err := strconv.ParseInt(s[end:end+1], base, 64)
		if err != nil || d < 0 {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		f, _ := strconv.ParseFloat(s[:end], 64)
		return sign * f
	}
	return sign * float64(n)
}

// parseFloat reads the longest decimal prefix.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") {
		return math.Inf(1)
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1)
	}
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
