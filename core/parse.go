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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Comcast/shoots/util"

	"github.com/jsccast/yaml"
	"github.com/mitchellh/mapstructure"
)

// aliases are accepted spellings of field names.
var aliases = map[string]map[string]string{
	KindFetch: {"ignoreBaseRoute": "ignoreBaseURL"},
}

// ParseJSON parses an action or a list of actions.
func ParseJSON(bs []byte) (Actions, error) {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	return Parse(x)
}

// ParseYAML parses an action or a list of actions written in YAML.
func ParseYAML(bs []byte) (Actions, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	return Parse(util.StringMaps(x))
}

// Parse builds Actions from generic data: a map for a single action
// or a list of maps.  Nil gives no actions.
func Parse(x interface{}) (Actions, error) {
	switch vv := x.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		a, err := ParseAction(vv)
		if err != nil {
			return nil, err
		}
		return Actions{a}, nil
	case []interface{}:
		acc := make(Actions, 0, len(vv))
		for i, y := range vv {
			m, is := y.(map[string]interface{})
			if !is {
				return nil, fmt.Errorf("action %d: %T isn't an object", i, y)
			}
			a, err := ParseAction(m)
			if err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			acc = append(acc, a)
		}
		return acc, nil
	case Actions:
		return vv, nil
	case Action:
		return Actions{vv}, nil
	}
	return nil, fmt.Errorf("%T isn't an action or a list of actions", x)
}

// discriminant finds the single known discriminant in m.
func discriminant(m map[string]interface{}) (string, error) {
	var found []string
	for _, k := range Kinds {
		if _, have := m[k]; have {
			found = append(found, k)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", &UnknownAction{Keys: keys}
}

// ParseAction builds an Action from a map with exactly one
// discriminant.  Unknown fields are errors.
func ParseAction(m map[string]interface{}) (Action, error) {
	kind, err := discriminant(m)
	if err != nil {
		return nil, err
	}
	a := newAction(kind)

	rest := make(map[string]interface{}, len(m))
	for k, v := range m {
		if to, have := aliases[kind][k]; have {
			k = to
		}
		rest[k] = v
	}

	if b, is := a.(brancher); is {
		for name, p := range b.branches() {
			x, have := rest[name]
			if !have {
				continue
			}
			delete(rest, name)
			as, err := Parse(x)
			if err != nil {
				return nil, &BadAction{Kind: kind, Err: fmt.Errorf("%s: %w", name, err)}
			}
			*p = as
		}
	}

	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  stringListHook,
		ErrorUnused: true,
		Result:      a,
	})
	if err != nil {
		return nil, err
	}
	if err = d.Decode(rest); err != nil {
		return nil, &BadAction{Kind: kind, Err: err}
	}

	if err = check(a); err != nil {
		return nil, &BadAction{Kind: kind, Err: err}
	}
	return a, nil
}

var stringListType = reflect.TypeOf(StringList(nil))

// stringListHook lets a single string decode as a StringList.
func stringListHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != stringListType {
		return data, nil
	}
	if s, is := data.(string); is {
		return []string{s}, nil
	}
	return data, nil
}

func oneOf(field, s string, allowed ...string) error {
	if s == "" {
		return nil
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q isn't one of %s", field, s, strings.Join(allowed, ", "))
}

// check enforces constraints that decoding doesn't.
func check(a Action) error {
	switch vv := a.(type) {
	case *Set:
		if vv.Path == "" {
			return errors.New("empty path")
		}
	case *Call:
		if vv.Name == "" {
			return errors.New("empty name")
		}
	case *Emit:
		if vv.Name == "" {
			return errors.New("empty name")
		}
	case *Fetch:
		if err := oneOf("method", strings.ToUpper(vv.Method), "GET", "POST", "PUT", "DELETE", "PATCH"); err != nil {
			return err
		}
		return oneOf("responseType", vv.ResponseType, "json", "text", "blob", "arrayBuffer")
	case *Connection:
		if err := oneOf("op", vv.Op, "connect", "send", "close"); err != nil {
			return err
		}
		if err := oneOf("sendAs", vv.SendAs, "text", "json"); err != nil {
			return err
		}
		if vv.Timeout < 0 {
			return errors.New("negative timeout")
		}
		return oneOf("responseType", vv.ResponseType, "text", "json", "auto")
	case *If:
		if vv.Then == nil {
			return errors.New("no then")
		}
	}
	return nil
}
