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

// Package ecmascript provides an ECMAScript script interpreter.
package ecmascript

import (
	"context"
	"errors"
	"fmt"

	"github.com/Comcast/shoots/core"

	"github.com/dop251/goja"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// Unsettled is returned by Exec when a script's promise can
	// never settle.
	Unsettled = errors.New("script never settled")
)

// init adds an Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["ecmascript"] = NewInterpreter()
}

// Interpreter implements core.Interpreter using Goja, which is a
// Go implementation of ECMAScript 5.1+ with async functions.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// LibraryProvider resolves the names given to top-level
	// require() calls.  With no provider, require() is an error.
	LibraryProvider LibraryProvider
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// wrapSrc makes the code the body of an async function, so that it
// can await.
func wrapSrc(src string) string {
	return fmt.Sprintf("(async function() {\n%s\n})();\n", src)
}

// Compile inlines libraries and calls goja.Compile.
//
// This method can block if the interpreter's LibraryProvider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	src, err := InlineRequires(ctx, code, i.LibraryProvider)
	if err != nil {
		return nil, err
	}
	p, err := goja.Compile("script", wrapSrc(src), true)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Exec implements the Interpreter method of the same name.
//
// The script sees these names:
//
//	state       the live state; top-level assignments are written through
//	computed    a copy of the computed values
//	$methods    the method table; each method returns a promise
//	$event, $response, $error, ...   the ambient bindings
//
// and the utilities documented at bind.  Exec returns when the
// script's promise settles or ctx is done.
func (i *Interpreter) Exec(ctx context.Context, env *core.ScriptEnv, code string, compiled interface{}) error {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, code); err != nil {
			return err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return fmt.Errorf("ECMAScript bad compilation: %T", compiled)
	}

	o := goja.New()
	l := newLoop(o, env.Done)
	defer l.stop()

	ictx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := bind(ictx, o, l, env); err != nil {
		return err
	}

	// The runtime is interrupted when ictx is done.  If that
	// happens after RunProgram returns, the interruption is
	// harmless.
	go func() {
		select {
		case <-ictx.Done():
		case <-env.Done:
		}
		o.Interrupt(InterruptedMessage)
	}()

	v, err := RunProgram(o, p)
	if err != nil {
		if env.Disposed() {
			return core.ErrDisposed
		}
		return runErr(err)
	}
	return l.await(ictx, v)
}

func runErr(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		return Interrupted
	}
	return err
}

// RunProgram runs p, turning panics into errors.
func RunProgram(o *goja.Runtime, p *goja.Program) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	return o.RunProgram(p)
}
