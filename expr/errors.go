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
	"strconv"
)

// Reason classifies an evaluation failure.
type Reason int

const (
	_ Reason = iota

	// SyntaxError: the source doesn't parse (or uses grammar
	// outside the supported subset).
	SyntaxError

	// SecurityViolation: the expression references something it
	// must not reach.
	SecurityViolation

	// UndefinedReference: a bare identifier isn't in scope, or a
	// non-function was called.
	UndefinedReference
)

func (r Reason) String() string {
	switch r {
	case SyntaxError:
		return "SyntaxError"
	case SecurityViolation:
		return "SecurityViolation"
	case UndefinedReference:
		return "UndefinedReference"
	}
	return "Reason(" + strconv.Itoa(int(r)) + ")"
}

// Error is the only error type returned by this package's evaluation
// functions.
type Error struct {
	Reason Reason
	Expr   string
	Msg    string
	Pos    int
}

func (e *Error) Error() string {
	return e.Reason.String() + ": " + e.Msg + ` in "` + e.Expr + `"`
}

// ReasonOf returns the Reason of the given error if it is (or wraps)
// an *Error.  Otherwise returns zero.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return 0
}
