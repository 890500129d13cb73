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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTemplate(t *testing.T) {
	tests := []struct {
		description string
		src         string
		want        interface{}
	}{
		{"plain string", "plain", "plain"},
		{"typed number", "{{ count + 1 }}", 6.0},
		{"typed object", "{{ user }}", map[string]interface{}{"name": "ann", "tags": []interface{}{"a", "b"}}},
		{"typed bool", "{{count > 1}}", true},
		{"surrounding blanks", "  {{ count }}\n", "  5\n"},
		{"padded", " {{ count }} ", " 5 "},
		{"padded object", " {{ user }}", ` {"name":"ann","tags":["a","b"]}`},
		{"interpolated", "n={{ count }}", "n=5"},
		{"two interpolations", "{{ count }}{{ count }}", "55"},
		{"array as JSON", "u={{ user.tags }}", `u=["a","b"]`},
		{"undefined is empty", "x{{ user.missing }}y", "xy"},
		{"null is empty", "x{{ null }}y", "xy"},
		{"braces in literal", "{{ ({a: 1}).a }}", 1.0},
		{"delimiter in string", "{{ '}}' }}", "}}"},
		{"typed undefined", "{{ user.missing }}", Undefined},
	}

	e := NewEvaluator()
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			got, err := e.EvaluateTemplate(tc.src, testScope())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateTemplateErrors(t *testing.T) {
	tests := []struct {
		src    string
		reason Reason
	}{
		{"{{ count", SyntaxError},
		{"{{ 'x }}", SyntaxError},
		{"a {{ count + }} b", SyntaxError},
		{"{{ window.location }}", SecurityViolation},
		{"hi {{ nope }}", UndefinedReference},
	}

	e := NewEvaluator()
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			_, err := e.EvaluateTemplate(tc.src, testScope())
			assert.Equal(t, tc.reason, ReasonOf(err), "%v", err)
		})
	}
}

func TestResolveDeep(t *testing.T) {
	in := map[string]interface{}{
		"a": "{{ count }}",
		"b": []interface{}{"{{ user.name }}", 7.0},
		"c": map[string]interface{}{"d": "n={{ count }}"},
		"e": true,
	}

	got, err := NewEvaluator().ResolveDeep(in, testScope())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a": 5.0,
		"b": []interface{}{"ann", 7.0},
		"c": map[string]interface{}{"d": "n=5"},
		"e": true,
	}, got)
	assert.Equal(t, "{{ count }}", in["a"], "input must not be modified")
}
