/* Copyright 2018-2026 Comcast Cable Communications Management, LLC
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
	"time"

	"github.com/Comcast/shoots/util"
)

// CanonicalState turns a decoded document into state.  Map keys
// become strings and numbers become float64s.  A nil document is
// the empty state.  Anything other than an object is an error.
func CanonicalState(x interface{}) (map[string]interface{}, error) {
	if x == nil {
		return map[string]interface{}{}, nil
	}
	js, err := json.Marshal(util.StringMaps(x))
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, fmt.Errorf("state must be an object, not a %T", x)
	}
	if m == nil {
		m = map[string]interface{}{}
	}
	return m, nil
}

// Now is the clock behind Timestamp.
var Now = time.Now

// Timestamp is the current UTC time in RFC3339Nano.  Scripts see it
// through now().
func Timestamp() string {
	return Now().UTC().Format(time.RFC3339Nano)
}
