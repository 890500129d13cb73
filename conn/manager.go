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

// Package conn manages keyed, long-lived WebSocket connections.
//
// A Manager owns a registry of connections.  Each connection has
// lifecycle handlers (open, message, error, close) which run one at a
// time, in order, on a queue private to that connection.  Handlers
// never block the socket's reader.  After Dispose, no handler runs,
// even one that was already queued.
package conn

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/metrics"

	"github.com/gorilla/websocket"
)

// State is a connection's lifecycle state.
type State int

const (
	Connecting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Mode controls how inbound messages are parsed and how outbound
// messages are serialized.
type Mode string

const (
	// Auto parses inbound JSON when possible and falls back to
	// text.  Outbound strings go as is; everything else as JSON.
	Auto Mode = "auto"

	// Text never parses inbound messages.  Outbound values are
	// stringified.
	Text Mode = "text"

	// JSON requires inbound messages to parse.  Outbound values
	// are always marshaled.
	JSON Mode = "json"
)

// Op is a connection operation.
type Op string

const (
	OpConnect Op = "connect"
	OpSend    Op = "send"
	OpClose   Op = "close"
)

// Event kinds.
const (
	EventOpen    = "open"
	EventMessage = "message"
	EventError   = "error"
	EventClose   = "close"
)

// Event is what a handler receives.
type Event struct {
	Kind string
	Key  string

	// Data is the parsed inbound message.
	Data interface{}
	Raw  []byte

	Err error

	// Code and Reason are set for close events.
	Code   int
	Reason string
}

// Value renders the event as a generic map.
func (ev *Event) Value() map[string]interface{} {
	m := map[string]interface{}{
		"type": ev.Kind,
		"id":   ev.Key,
	}
	switch ev.Kind {
	case EventMessage:
		m["data"] = ev.Data
	case EventError:
		if ev.Err != nil {
			m["message"] = ev.Err.Error()
		}
	case EventClose:
		m["code"] = ev.Code
		m["reason"] = ev.Reason
	}
	return m
}

// Handler processes a lifecycle event.  A returned error (or a panic)
// is logged and doesn't affect later events.
type Handler func(ctx context.Context, ev *Event) error

// Handlers are a connection's lifecycle callbacks.  Any can be nil.
type Handlers struct {
	OnOpen    Handler
	OnMessage Handler
	OnError   Handler
	OnClose   Handler
}

func (hs Handlers) get(kind string) Handler {
	switch kind {
	case EventOpen:
		return hs.OnOpen
	case EventMessage:
		return hs.OnMessage
	case EventError:
		return hs.OnError
	case EventClose:
		return hs.OnClose
	}
	return nil
}

// Spec describes a connection operation.
type Spec struct {
	// Key is the registry key.  When empty, URL is the key.
	Key string
	URL string

	Protocols []string

	// Timeout bounds the open.  Zero means the Manager's default.
	Timeout time.Duration

	// ResponseType is the inbound parsing mode.
	ResponseType Mode
	Header       http.Header
	Handlers     Handlers

	// Message and SendAs are for sends.
	Message interface{}
	SendAs  Mode

	// Code and Reason are for closes.
	Code   int
	Reason string
}

// RegistryKey returns the key the spec addresses.
func (s *Spec) RegistryKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.URL
}

// Options configure a Manager.
type Options struct {
	Dialer *websocket.Dialer

	// ConnectTimeout is used when a Spec doesn't give a timeout.
	ConnectTimeout time.Duration

	// CloseWait bounds how long Close waits for the peer to
	// acknowledge a close frame.
	CloseWait time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// DefaultCloseWait is used when Options.CloseWait is zero.
var DefaultCloseWait = time.Second

// Manager owns a registry of connections.
type Manager struct {
	opts Options
	log  *slog.Logger

	// ctx is given to handlers.  Dispose cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	disposed atomic.Bool

	mu    sync.Mutex
	conns map[string]*entry
}

// NewManager makes a Manager.
func NewManager(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.CloseWait == 0 {
		opts.CloseWait = DefaultCloseWait
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:   opts,
		log:    logging.OrDefault(opts.Logger),
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[string]*entry),
	}
}

// Apply performs the given operation.
func (m *Manager) Apply(ctx context.Context, op Op, spec *Spec) error {
	switch op {
	case OpConnect, "":
		return m.Connect(ctx, spec)
	case OpSend:
		return m.Send(ctx, spec.RegistryKey(), spec.Message, spec.SendAs)
	case OpClose:
		return m.Close(spec.RegistryKey(), spec.Code, spec.Reason)
	}
	return &UnknownOp{Op: op}
}

// Connect opens a connection and waits for it to open.
//
// If a connection that isn't closed is already registered under the
// key, that connection is reused: its handlers and parsing mode are
// replaced by the spec's, and Connect waits for it to open.
func (m *Manager) Connect(ctx context.Context, spec *Spec) error {
	if m.Disposed() {
		return ErrDisposed
	}
	key := spec.RegistryKey()

	m.mu.Lock()
	// Dispose may have taken the registry since the check above.
	if m.Disposed() {
		m.mu.Unlock()
		return ErrDisposed
	}
	if e, have := m.conns[key]; have && e.State() != Closed {
		e.bind(spec)
		m.mu.Unlock()
		m.log.Debug("reusing connection", "key", key)
		return e.await(ctx)
	}
	e := newEntry(m, key, spec)
	m.conns[key] = e
	m.mu.Unlock()

	timeout := spec.Timeout
	if timeout == 0 {
		timeout = m.opts.ConnectTimeout
	}
	return e.dial(ctx, spec, timeout)
}

// Send transmits a message, waiting for the connection to open if
// it's still connecting.
func (m *Manager) Send(ctx context.Context, key string, msg interface{}, as Mode) error {
	if m.Disposed() {
		return ErrDisposed
	}
	e := m.get(key)
	if e == nil {
		return &NotFound{Key: key}
	}
	if err := e.wait(ctx); err != nil {
		return err
	}
	return e.send(msg, as)
}

// Close closes the connection.  Closing a key with no connection is
// not an error.  The connection is removed from the registry before
// it's closed.
func (m *Manager) Close(key string, code int, reason string) error {
	m.mu.Lock()
	e, have := m.conns[key]
	if have {
		delete(m.conns, key)
	}
	m.mu.Unlock()

	if !have {
		m.log.Debug("close of absent connection", "key", key)
		return nil
	}
	e.shutdown(code, reason, m.opts.CloseWait)
	return nil
}

// State returns the state of the connection registered under the key.
func (m *Manager) State(key string) (State, bool) {
	e := m.get(key)
	if e == nil {
		return Closed, false
	}
	return e.State(), true
}

// Keys returns the registered keys in order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	acc := make([]string, 0, len(m.conns))
	for k := range m.conns {
		acc = append(acc, k)
	}
	m.mu.Unlock()
	sort.Strings(acc)
	return acc
}

// Disposed reports whether Dispose has been called.
func (m *Manager) Disposed() bool {
	return m.disposed.Load()
}

// Dispose force-closes every connection.  No handler runs after
// Dispose starts.  Subsequent calls do nothing.
func (m *Manager) Dispose() {
	if !m.disposed.CompareAndSwap(false, true) {
		return
	}
	m.cancel()

	m.mu.Lock()
	es := make([]*entry, 0, len(m.conns))
	for _, e := range m.conns {
		es = append(es, e)
	}
	m.conns = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range es {
		e.shutdown(websocket.CloseGoingAway, "disposed", 0)
	}
	m.log.Debug("connection manager disposed", "closed", len(es))
}

func (m *Manager) get(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[key]
}

// remove unregisters the entry if it's still registered under its
// key.
func (m *Manager) remove(e *entry) {
	m.mu.Lock()
	if m.conns[e.key] == e {
		delete(m.conns, e.key)
	}
	m.mu.Unlock()
}

// dispatch runs the handler for the event.  It's called from the
// connection's queue.
func (m *Manager) dispatch(e *entry, ev *Event) {
	if m.Disposed() {
		return
	}
	h := e.handler(ev.Kind)
	if h == nil {
		if ev.Kind == EventError {
			m.log.Warn("connection error", "key", e.key, "error", ev.Err)
		}
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("connection handler panicked", "key", e.key, "event", ev.Kind, "panic", r)
		}
	}()
	if err := h(m.ctx, ev); err != nil {
		m.log.Warn("connection handler failed", "key", e.key, "event", ev.Kind, "error", err)
	}
}
