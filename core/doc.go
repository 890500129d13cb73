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

// Package core provides the core gear for declarative action trees.
//
// An action tree is data: a single action or a list of actions, each
// a map with exactly one discriminant key ("set", "call", "emit",
// "fetch", "ws", "if", "script", or "copy").  Parse (or ParseJSON or
// ParseYAML) turns such data into typed Actions.  Unknown or
// ambiguous discriminants are parse errors.
//
// The primary method is ExecuteActions, which runs actions strictly
// in order against a Context.  A Context bundles the mutable State,
// the immutable computed values, a method table, an emit sink, the
// expression Evaluator, the request Orchestrator, and the connection
// Manager.  Derived contexts (see Context.With) carry ambient values
// such as $event, $response, and $error for a sub-tree only.
//
// Failures never escape an action.  Expression errors degrade
// (falsy conditions, skipped assignments), fetch and connection
// failures go to "catch" branches (or the log), and a missing method
// is a warning.
//
// Scripts are run by an Interpreter.  See the interpreters packages.
package core
