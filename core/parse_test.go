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
	"os"
	"testing"

	"github.com/Comcast/shoots/util/testutil"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariants(t *testing.T) {
	as, err := ParseJSON([]byte(`[
	  {"set":"a","value":1},
	  {"call":"m","args":[1]},
	  {"emit":"e"},
	  {"fetch":"/x","ignoreBaseRoute":true},
	  {"ws":"wss://x","protocols":["a","b"]},
	  {"if":"a","then":[]},
	  {"script":"1"},
	  {"copy":"t"}
	]`))
	require.NoError(t, err)
	require.Len(t, as, len(Kinds))
	for i, k := range Kinds {
		assert.Equal(t, k, as[i].Kind())
	}
	assert.True(t, as[3].(*Fetch).IgnoreBaseURL)
	assert.Equal(t, StringList{"a", "b"}, as[4].(*Connection).Protocols)
	assert.NotNil(t, as[5].(*If).Then)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want interface{}
	}{
		{`{"value":1}`, &UnknownAction{}},
		{`{"set":"a","call":"b"}`, &UnknownAction{}},
		{`{"set":"a","bogus":1}`, &BadAction{}},
		{`{"set":""}`, &BadAction{}},
		{`{"fetch":"/x","method":"BREW"}`, &BadAction{}},
		{`{"fetch":"/x","then":{"nope":1}}`, &BadAction{}},
		{`{"ws":"x","op":"open"}`, &BadAction{}},
		{`{"ws":"x","timeout":-1}`, &BadAction{}},
		{`{"if":"x"}`, &BadAction{}},
		{`[1]`, nil},
		{`"set"`, nil},
	}
	for _, tt := range tests {
		_, err := ParseJSON([]byte(tt.src))
		require.Error(t, err, tt.src)
		switch tt.want.(type) {
		case *UnknownAction:
			var e *UnknownAction
			assert.True(t, errors.As(err, &e), "%s: %v", tt.src, err)
		case *BadAction:
			var e *BadAction
			assert.True(t, errors.As(err, &e), "%s: %v", tt.src, err)
		}
	}
}

func TestGolden(t *testing.T) {
	bs, err := os.ReadFile("testdata/flow.yaml")
	require.NoError(t, err)
	as, err := ParseYAML(bs)
	require.NoError(t, err)

	js, err := json.MarshalIndent(as, "", "  ")
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden.json"),
	)
	g.Assert(t, "flow", append(js, '\n'))

	// The serialized form parses back to the same thing.
	again, err := ParseJSON(js)
	require.NoError(t, err)
	js2, err := json.Marshal(again)
	require.NoError(t, err)
	js1, err := json.Marshal(as)
	require.NoError(t, err)
	assert.JSONEq(t, string(js1), string(js2))
}

func TestSchemaValidates(t *testing.T) {
	bs, err := os.ReadFile("testdata/flow.golden.json")
	require.NoError(t, err)
	require.NoError(t, Validate(testutil.Dwimjs(bs)))

	for _, bad := range []string{
		`{"set":"a"}`,
		`{"set":"a","value":1,"extra":true}`,
		`{"fetch":"/x","method":"BREW"}`,
		`{"nope":1}`,
	} {
		assert.Error(t, Validate(testutil.Dwimjs(bad)), bad)
	}
}

func TestUnmarshalActions(t *testing.T) {
	var x struct {
		Do Actions `json:"do"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"do":{"emit":"hi"}}`), &x))
	require.Len(t, x.Do, 1)
	assert.Equal(t, &Emit{Name: "hi"}, x.Do[0])
}
