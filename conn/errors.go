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

package conn

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisposed is returned by operations on a disposed Manager.
var ErrDisposed = errors.New("connection manager disposed")

// NotFound means no connection is registered under the key.
type NotFound struct {
	Key string
}

func (e *NotFound) Error() string {
	return "connection " + e.Key + " not found"
}

// Timeout means a connection didn't open in time.
type Timeout struct {
	Key   string
	After time.Duration
}

func (e *Timeout) Error() string {
	return "connection " + e.Key + " didn't open within " + e.After.String()
}

// StateError means the connection wasn't in a state that permits the
// operation (such as a send before open).
type StateError struct {
	Key   string
	State State
}

func (e *StateError) Error() string {
	return "connection " + e.Key + " is " + e.State.String()
}

// DialError wraps a failure to open a connection.
type DialError struct {
	Key string
	URL string
	Err error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connection %s to %s: %s", e.Key, e.URL, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// ParseError reports an inbound message that didn't parse in JSON
// mode.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return "connection " + e.Key + " message: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownOp is returned by Apply for an unsupported operation.
type UnknownOp struct {
	Op Op
}

func (e *UnknownOp) Error() string {
	return "unknown connection op " + string(e.Op)
}
