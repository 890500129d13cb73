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
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/Comcast/shoots/expr"

	"github.com/gorilla/websocket"
)

// entry is a registered connection.
type entry struct {
	m   *Manager
	key string
	url string

	mu         sync.Mutex
	state      State
	handlers   Handlers
	mode       Mode
	ws         *websocket.Conn
	err        error
	cancelDial context.CancelFunc

	// Local close parameters, so the close event can report them
	// when the peer doesn't echo a close frame.
	code   int
	reason string

	// opened is closed when the dial finishes either way.
	opened chan struct{}

	// readerDone is closed when the reader exits.
	readerDone chan struct{}

	// wmu serializes data writes.
	wmu sync.Mutex

	q *queue
}

func newEntry(m *Manager, key string, spec *Spec) *entry {
	e := &entry{
		m:          m,
		key:        key,
		url:        spec.URL,
		state:      Connecting,
		opened:     make(chan struct{}),
		readerDone: make(chan struct{}),
		q:          &queue{},
	}
	e.bind(spec)
	return e
}

func (e *entry) bind(spec *Spec) {
	mode := spec.ResponseType
	if mode == "" {
		mode = Auto
	}
	e.mu.Lock()
	e.handlers = spec.Handlers
	e.mode = mode
	e.mu.Unlock()
}

func (e *entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *entry) handler(kind string) Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handlers.get(kind)
}

func (e *entry) fire(ev *Event) {
	ev.Key = e.key
	e.mu.Lock()
	wasOpen := e.ws != nil
	e.mu.Unlock()
	if ev.Kind != EventClose || wasOpen {
		e.m.opts.Metrics.ConnectionEvent(ev.Kind)
	}
	e.q.push(func() {
		e.m.dispatch(e, ev)
	})
}

func (e *entry) dial(ctx context.Context, spec *Spec, timeout time.Duration) error {
	var (
		dctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		dctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	e.mu.Lock()
	e.cancelDial = cancel
	if e.state != Connecting {
		cancel()
	}
	e.mu.Unlock()

	d := *e.m.opts.Dialer
	d.Subprotocols = spec.Protocols

	e.m.log.Debug("dialing", "key", e.key, "url", spec.URL)
	ws, _, err := d.DialContext(dctx, spec.URL, spec.Header)
	timedOut := err != nil && timeout > 0 && (errors.Is(dctx.Err(), context.DeadlineExceeded) || isTimeout(err))

	e.mu.Lock()
	if e.state != Connecting {
		// Closed while dialing.
		e.state = Closed
		code, reason := e.code, e.reason
		e.err = &StateError{Key: e.key, State: Closed}
		e.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		close(e.opened)
		close(e.readerDone)
		e.fire(&Event{Kind: EventClose, Code: code, Reason: reason})
		return &StateError{Key: e.key, State: Closed}
	}

	if err != nil {
		if timedOut {
			err = &Timeout{Key: e.key, After: timeout}
		} else {
			err = &DialError{Key: e.key, URL: spec.URL, Err: err}
		}
		e.state = Closed
		e.err = err
		e.mu.Unlock()
		e.m.remove(e)
		close(e.opened)
		close(e.readerDone)
		e.fire(&Event{Kind: EventError, Err: err})
		return err
	}

	e.ws = ws
	e.state = Open
	e.cancelDial = nil
	e.mu.Unlock()
	close(e.opened)

	e.m.log.Debug("connection open", "key", e.key, "protocol", ws.Subprotocol())
	e.fire(&Event{Kind: EventOpen})
	go e.read(ws)
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// wait waits for the dial to finish.
func (e *entry) wait(ctx context.Context) error {
	select {
	case <-e.opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await waits for the dial to finish and reports whether the
// connection opened.
func (e *entry) await(ctx context.Context) error {
	if err := e.wait(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Open {
		return nil
	}
	if e.err != nil {
		return e.err
	}
	return &StateError{Key: e.key, State: e.state}
}

// serialize renders an outbound message.
func serialize(msg interface{}, as Mode) (int, []byte, error) {
	switch as {
	case JSON:
		js, err := json.Marshal(msg)
		return websocket.TextMessage, js, err
	case Text:
		return websocket.TextMessage, []byte(expr.Stringify(msg)), nil
	}
	switch vv := msg.(type) {
	case string:
		return websocket.TextMessage, []byte(vv), nil
	case []byte:
		return websocket.BinaryMessage, vv, nil
	}
	js, err := json.Marshal(msg)
	return websocket.TextMessage, js, err
}

func (e *entry) send(msg interface{}, as Mode) error {
	e.mu.Lock()
	state, ws := e.state, e.ws
	e.mu.Unlock()
	if state != Open {
		return &StateError{Key: e.key, State: state}
	}

	typ, bs, err := serialize(msg, as)
	if err != nil {
		return err
	}

	e.wmu.Lock()
	err = ws.WriteMessage(typ, bs)
	e.wmu.Unlock()
	if err != nil {
		return err
	}
	e.m.opts.Metrics.Message("out")
	return nil
}

// parse interprets an inbound message according to the mode.
func parse(bs []byte, mode Mode) (interface{}, error) {
	switch mode {
	case Text:
		return string(bs), nil
	case JSON:
		var x interface{}
		if err := json.Unmarshal(bs, &x); err != nil {
			return nil, err
		}
		return x, nil
	}
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return string(bs), nil
	}
	return x, nil
}

func (e *entry) read(ws *websocket.Conn) {
	defer close(e.readerDone)
	for {
		_, bs, err := ws.ReadMessage()
		if err != nil {
			e.closed(err)
			return
		}
		e.m.opts.Metrics.Message("in")

		e.mu.Lock()
		mode := e.mode
		e.mu.Unlock()

		x, err := parse(bs, mode)
		if err != nil {
			e.fire(&Event{Kind: EventError, Raw: bs, Err: &ParseError{Key: e.key, Err: err}})
			continue
		}
		e.fire(&Event{Kind: EventMessage, Data: x, Raw: bs})
	}
}

// closed handles the end of the read loop.
func (e *entry) closed(err error) {
	e.mu.Lock()
	local := e.state == Closing
	e.state = Closed
	code, reason := e.code, e.reason
	e.mu.Unlock()

	e.m.remove(e)

	var ce *websocket.CloseError
	switch {
	case local:
	case errors.As(err, &ce):
		code, reason = ce.Code, ce.Text
	default:
		e.fire(&Event{Kind: EventError, Err: err})
		code, reason = websocket.CloseAbnormalClosure, ""
	}
	e.m.log.Debug("connection closed", "key", e.key, "code", code)
	e.fire(&Event{Kind: EventClose, Code: code, Reason: reason})
}

// shutdown closes the connection.  If wait is positive, it waits that
// long for the peer to acknowledge the close.
func (e *entry) shutdown(code int, reason string, wait time.Duration) {
	if code == 0 {
		code = websocket.CloseNormalClosure
	}

	e.mu.Lock()
	switch e.state {
	case Connecting:
		e.state = Closing
		e.code, e.reason = code, reason
		cancel := e.cancelDial
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	case Open:
		e.state = Closing
		e.code, e.reason = code, reason
		ws := e.ws
		e.mu.Unlock()

		msg := websocket.FormatCloseMessage(code, reason)
		if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			e.m.log.Debug("close frame failed", "key", e.key, "error", err)
		}
		if wait > 0 {
			select {
			case <-e.readerDone:
			case <-time.After(wait):
			}
		}
		ws.Close()
		return
	}
	e.mu.Unlock()
}
