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

// Package testutil has helpers for tests of action execution.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/shoots/logging"
)

// JS renders its argument as JSON, or with %#v if it doesn't
// marshal.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes holding JSON, returns the
// parsed value.  Anything else comes back as given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	var bs []byte
	switch vv := x.(type) {
	case []byte:
		bs = vv
	case string:
		bs = []byte(vv)
	default:
		return x
	}
	var v interface{}
	if err := json.Unmarshal(bs, &v); err != nil {
		if s, is := x.(string); is {
			return s
		}
		return string(bs)
	}
	return v
}

// Eventually polls f until it returns true.  The test fails if that
// hasn't happened within d.
func Eventually(t testing.TB, d time.Duration, f func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("gave up waiting for %s after %v", what, d)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Log collects log output for assertions.
type Log struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *Log) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// NewLog returns a debug-level logger that writes to a Log.
func NewLog() (*Log, *slog.Logger) {
	l := &Log{}
	return l, logging.NewWriter(l, slog.LevelDebug)
}
