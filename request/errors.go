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

package request

import (
	"fmt"
	"strconv"
)

// TransportError is a network-level failure or a non-2xx status.
// Status is zero if no response was received.
type TransportError struct {
	Method string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	msg := e.Method + " " + e.URL
	if e.Status != 0 {
		msg += ": status " + strconv.Itoa(e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BusinessStatusError occurs when a response envelope carries a code
// that isn't one of the configured success codes.
type BusinessStatusError struct {
	Code    interface{}
	Message string
	Status  int
}

func (e *BusinessStatusError) Error() string {
	msg := fmt.Sprintf("business status %v", e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// InterceptorError wraps a failure from an interceptor.  Stage is
// "request", "response", or "error".
type InterceptorError struct {
	Stage string
	Err   error
}

func (e *InterceptorError) Error() string {
	return e.Stage + " interceptor: " + e.Err.Error()
}

func (e *InterceptorError) Unwrap() error {
	return e.Err
}
