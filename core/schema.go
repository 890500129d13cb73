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
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the action schema.
const SchemaID = "https://github.com/Comcast/shoots/schemas/actions.json"

// JSONSchema describes an action list: one action or an array of
// actions.
func (Actions) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Ref: "#/$defs/Action"},
			{Type: "array", Items: &jsonschema.Schema{Ref: "#/$defs/Action"}},
		},
	}
}

// StringList is a string or an array of strings.
func (StringList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}

// Schema generates the JSON Schema (Draft 2020-12) of the action
// wire format.
func Schema() *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	defs := jsonschema.Definitions{}
	variants := []Action{&Set{}, &Call{}, &Emit{}, &Fetch{}, &Connection{}, &If{}, &Script{}, &Copy{}}
	union := make([]*jsonschema.Schema, 0, len(variants))
	for _, v := range variants {
		s := r.Reflect(v)
		for name, d := range s.Definitions {
			defs[name] = d
		}
		union = append(union, &jsonschema.Schema{Ref: s.Ref})
	}
	defs["Action"] = &jsonschema.Schema{OneOf: union}
	defs["Actions"] = Actions(nil).JSONSchema()

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		ID:          SchemaID,
		Title:       "Actions",
		Description: "An action or a list of actions",
		Ref:         "#/$defs/Actions",
		Definitions: defs,
	}
}

var (
	compiled     *sjsonschema.Schema
	compiledErr  error
	compiledOnce sync.Once
)

func compiledSchema() (*sjsonschema.Schema, error) {
	compiledOnce.Do(func() {
		js, err := json.Marshal(Schema())
		if err != nil {
			compiledErr = err
			return
		}
		var doc interface{}
		if err = json.Unmarshal(js, &doc); err != nil {
			compiledErr = err
			return
		}
		c := sjsonschema.NewCompiler()
		if err = c.AddResource(SchemaID, doc); err != nil {
			compiledErr = err
			return
		}
		compiled, compiledErr = c.Compile(SchemaID)
	})
	return compiled, compiledErr
}

// Validate checks generic data (as from json.Unmarshal) against the
// action schema.  Parse is stricter about values; Validate doesn't
// understand field aliases.
func Validate(x interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("action schema: %w", err)
	}
	return s.Validate(x)
}
