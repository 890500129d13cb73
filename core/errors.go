package core

// These errors are user errors, not internal errors.

import (
	"errors"
	"strings"

	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/request"
)

var (
	// InterpreterNotFound occurs when a script is executed, and
	// the Context has no Interpreter.
	InterpreterNotFound = errors.New("interpreter not found")

	// NoClipboard occurs when a copy action runs without any
	// clipboard.
	NoClipboard = errors.New("no clipboard available")

	// ErrDisposed occurs when work finishes after its Context was
	// disposed.  The result is dropped.
	ErrDisposed = errors.New("context disposed")
)

// MethodNotFound occurs when a call action names something that
// isn't a callable in the method table or the state.
type MethodNotFound struct {
	Name string
}

func (e *MethodNotFound) Error() string {
	return `method "` + e.Name + `" not found`
}

// ScriptError wraps a failure in a script action.
type ScriptError struct {
	Source string
	Err    error
}

func (e *ScriptError) Error() string {
	return "script: " + e.Err.Error()
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// ClipboardError occurs when every clipboard write failed.
type ClipboardError struct {
	Err error
}

func (e *ClipboardError) Error() string {
	return "clipboard: " + e.Err.Error()
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// UnknownAction occurs when parsing a node that doesn't have exactly
// one known discriminant.
type UnknownAction struct {
	Keys []string
}

func (e *UnknownAction) Error() string {
	if len(e.Keys) == 0 {
		return "action has no discriminant"
	}
	return "action has no single known discriminant among " + strings.Join(e.Keys, ", ")
}

// BadAction occurs when an action's fields don't decode.
type BadAction struct {
	Kind string
	Err  error
}

func (e *BadAction) Error() string {
	return `bad "` + e.Kind + `" action: ` + e.Err.Error()
}

func (e *BadAction) Unwrap() error {
	return e.Err
}

// ErrorName returns the name of the error's class, as used in the
// "name" property of $error.
func ErrorName(err error) string {
	var (
		ee  *expr.Error
		mnf *MethodNotFound
		se  *ScriptError
		ce  *ClipboardError
		te  *request.TransportError
		be  *request.BusinessStatusError
		ie  *request.InterceptorError
		nf  *conn.NotFound
		to  *conn.Timeout
		st  *conn.StateError
		de  *conn.DialError
		pe  *conn.ParseError
	)
	switch {
	case errors.As(err, &ie):
		return "InterceptorError"
	case errors.As(err, &ee):
		return "Expression" + ee.Reason.String()
	case errors.As(err, &mnf):
		return "MethodNotFound"
	case errors.As(err, &se):
		return "ScriptRuntimeError"
	case errors.As(err, &ce):
		return "ClipboardError"
	case errors.As(err, &be):
		return "BusinessStatusError"
	case errors.As(err, &te):
		return "TransportError"
	case errors.As(err, &nf):
		return "ConnectionNotFound"
	case errors.As(err, &to):
		return "ConnectionTimeout"
	case errors.As(err, &st):
		return "ConnectionStateError"
	case errors.As(err, &de):
		return "ConnectionError"
	case errors.As(err, &pe):
		return "MessageParseError"
	}
	return "Error"
}

// ErrorValue renders an error as the value bound to $error.
func ErrorValue(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	m := map[string]interface{}{
		"name":    ErrorName(err),
		"message": err.Error(),
	}

	var (
		te *request.TransportError
		be *request.BusinessStatusError
		ie *request.InterceptorError
		ee *expr.Error
	)
	if errors.As(err, &te) && te.Status != 0 {
		m["status"] = te.Status
	}
	if errors.As(err, &be) {
		m["code"] = be.Code
		if be.Status != 0 {
			m["status"] = be.Status
		}
	}
	if errors.As(err, &ie) {
		m["stage"] = ie.Stage
	}
	if errors.As(err, &ee) {
		m["expr"] = ee.Expr
	}
	return m
}
