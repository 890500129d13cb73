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
)

// Action discriminants.
const (
	KindSet    = "set"
	KindCall   = "call"
	KindEmit   = "emit"
	KindFetch  = "fetch"
	KindWS     = "ws"
	KindIf     = "if"
	KindScript = "script"
	KindCopy   = "copy"
)

// Kinds lists every discriminant.
var Kinds = []string{KindSet, KindCall, KindEmit, KindFetch, KindWS, KindIf, KindScript, KindCopy}

// Action is one node of an action tree.  The set of implementations
// is closed: *Set, *Call, *Emit, *Fetch, *Connection, *If, *Script,
// and *Copy.
type Action interface {
	// Kind returns the discriminant.
	Kind() string

	action()
}

// brancher is implemented by actions that have nested action lists.
type brancher interface {
	branches() map[string]*Actions
}

// Set writes a value to a state path.
type Set struct {
	Path string `json:"set" mapstructure:"set"`

	// Value is a literal or a template.  Literal containers have
	// nested templates resolved.
	Value interface{} `json:"value" mapstructure:"value"`
}

// Call invokes a method.
type Call struct {
	Name string        `json:"call" mapstructure:"call"`
	Args []interface{} `json:"args,omitempty" mapstructure:"args"`
}

// Emit sends a named event to the emit sink.
type Emit struct {
	Name    string      `json:"emit" mapstructure:"emit"`
	Payload interface{} `json:"payload,omitempty" mapstructure:"payload"`
}

// Fetch sends an HTTP request.
type Fetch struct {
	URL          string                 `json:"fetch" mapstructure:"fetch"`
	Method       string                 `json:"method,omitempty" mapstructure:"method" jsonschema:"enum=GET,enum=POST,enum=PUT,enum=DELETE,enum=PATCH"`
	Headers      map[string]interface{} `json:"headers,omitempty" mapstructure:"headers"`
	Body         interface{}            `json:"body,omitempty" mapstructure:"body"`
	Params       map[string]interface{} `json:"params,omitempty" mapstructure:"params"`
	ResponseType string                 `json:"responseType,omitempty" mapstructure:"responseType" jsonschema:"enum=json,enum=text,enum=blob,enum=arrayBuffer"`

	Then    Actions `json:"then,omitempty" mapstructure:"-"`
	Catch   Actions `json:"catch,omitempty" mapstructure:"-"`
	Finally Actions `json:"finally,omitempty" mapstructure:"-"`

	IgnoreBaseURL bool `json:"ignoreBaseURL,omitempty" mapstructure:"ignoreBaseURL"`
}

func (a *Fetch) branches() map[string]*Actions {
	return map[string]*Actions{
		"then":    &a.Then,
		"catch":   &a.Catch,
		"finally": &a.Finally,
	}
}

// Connection operates on a WebSocket connection.
type Connection struct {
	// Target is the URL (for connect) or the key.
	Target string `json:"ws" mapstructure:"ws"`

	// Op defaults to connect.
	Op string `json:"op,omitempty" mapstructure:"op" jsonschema:"enum=connect,enum=send,enum=close"`

	// ID is the registry key.  Defaults to the resolved target.
	ID string `json:"id,omitempty" mapstructure:"id"`

	Protocols StringList `json:"protocols,omitempty" mapstructure:"protocols"`

	// Timeout is in milliseconds.
	Timeout int `json:"timeout,omitempty" mapstructure:"timeout"`

	Message      interface{} `json:"message,omitempty" mapstructure:"message"`
	SendAs       string      `json:"sendAs,omitempty" mapstructure:"sendAs" jsonschema:"enum=text,enum=json"`
	ResponseType string      `json:"responseType,omitempty" mapstructure:"responseType" jsonschema:"enum=text,enum=json,enum=auto"`

	OnOpen    Actions `json:"onOpen,omitempty" mapstructure:"-"`
	OnMessage Actions `json:"onMessage,omitempty" mapstructure:"-"`
	OnError   Actions `json:"onError,omitempty" mapstructure:"-"`
	OnClose   Actions `json:"onClose,omitempty" mapstructure:"-"`

	Then    Actions `json:"then,omitempty" mapstructure:"-"`
	Catch   Actions `json:"catch,omitempty" mapstructure:"-"`
	Finally Actions `json:"finally,omitempty" mapstructure:"-"`

	Code   int    `json:"code,omitempty" mapstructure:"code"`
	Reason string `json:"reason,omitempty" mapstructure:"reason"`
}

func (a *Connection) branches() map[string]*Actions {
	return map[string]*Actions{
		"onOpen":    &a.OnOpen,
		"onMessage": &a.OnMessage,
		"onError":   &a.OnError,
		"onClose":   &a.OnClose,
		"then":      &a.Then,
		"catch":     &a.Catch,
		"finally":   &a.Finally,
	}
}

// If branches on a condition.
type If struct {
	// Condition is an expression, a template, or a literal.
	Condition interface{} `json:"if" mapstructure:"if"`

	Then Actions `json:"then" mapstructure:"-"`
	Else Actions `json:"else,omitempty" mapstructure:"-"`
}

func (a *If) branches() map[string]*Actions {
	return map[string]*Actions{
		"then": &a.Then,
		"else": &a.Else,
	}
}

// Script runs code with the Context's Interpreter.
type Script struct {
	Code string `json:"script" mapstructure:"script"`
}

// Copy writes text to the clipboard.
type Copy struct {
	Text interface{} `json:"copy" mapstructure:"copy"`

	Then  Actions `json:"then,omitempty" mapstructure:"-"`
	Catch Actions `json:"catch,omitempty" mapstructure:"-"`
}

func (a *Copy) branches() map[string]*Actions {
	return map[string]*Actions{
		"then":  &a.Then,
		"catch": &a.Catch,
	}
}

func (*Set) Kind() string        { return KindSet }
func (*Call) Kind() string       { return KindCall }
func (*Emit) Kind() string       { return KindEmit }
func (*Fetch) Kind() string      { return KindFetch }
func (*Connection) Kind() string { return KindWS }
func (*If) Kind() string         { return KindIf }
func (*Script) Kind() string     { return KindScript }
func (*Copy) Kind() string       { return KindCopy }

func (*Set) action()        {}
func (*Call) action()       {}
func (*Emit) action()       {}
func (*Fetch) action()      {}
func (*Connection) action() {}
func (*If) action()         {}
func (*Script) action()     {}
func (*Copy) action()       {}

// newAction returns a zero action for the discriminant.
func newAction(kind string) Action {
	switch kind {
	case KindSet:
		return &Set{}
	case KindCall:
		return &Call{}
	case KindEmit:
		return &Emit{}
	case KindFetch:
		return &Fetch{}
	case KindWS:
		return &Connection{}
	case KindIf:
		return &If{}
	case KindScript:
		return &Script{}
	case KindCopy:
		return &Copy{}
	}
	return nil
}

// Actions is an action list.  A list with one action is serialized
// as that action alone.
type Actions []Action

func (as Actions) MarshalJSON() ([]byte, error) {
	if len(as) == 1 {
		return json.Marshal(as[0])
	}
	return json.Marshal([]Action(as))
}

func (as *Actions) UnmarshalJSON(bs []byte) error {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	parsed, err := Parse(x)
	if err != nil {
		return err
	}
	*as = parsed
	return nil
}

// StringList is a list of strings that can be given as a single
// string.
type StringList []string

func (ss StringList) MarshalJSON() ([]byte, error) {
	if len(ss) == 1 {
		return json.Marshal(ss[0])
	}
	return json.Marshal([]string(ss))
}

func (ss *StringList) UnmarshalJSON(bs []byte) error {
	var s string
	if err := json.Unmarshal(bs, &s); err == nil {
		*ss = StringList{s}
		return nil
	}
	var acc []string
	if err := json.Unmarshal(bs, &acc); err != nil {
		return err
	}
	*ss = acc
	return nil
}
