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

// Package expr evaluates small, side-effect-free expressions and
// "{{ }}" templates against a Scope.
//
// The grammar is a subset of ECMAScript expressions: literals,
// member access (including "?."), calls, arrow functions with
// expression bodies, spreads, and the usual unary, binary, logical,
// and conditional operators.  There are no statements and no
// assignment.
//
// Every expression is checked before it is evaluated.  References to
// dynamic code, global object handles, timers, the network, storage,
// and prototype internals are rejected with a SecurityViolation,
// whether or not the scope happens to bind them.
//
// Evaluation never panics.  Failures are reported as an *Error whose
// Reason is SyntaxError, SecurityViolation, or UndefinedReference.
package expr
