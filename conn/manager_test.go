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
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Comcast/shoots/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	Subprotocols: []string{"p2"},
	CheckOrigin:  func(*http.Request) bool { return true },
}

// server starts a WebSocket server that runs the given function for
// each connection.  Returns the ws:// URL.
func server(t *testing.T, handle func(c *websocket.Conn)) string {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handle(c)
	}))
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func echo(c *websocket.Conn) {
	for {
		typ, bs, err := c.ReadMessage()
		if err != nil {
			return
		}
		if err = c.WriteMessage(typ, bs); err != nil {
			return
		}
	}
}

func manager(t *testing.T) *Manager {
	m := NewManager(Options{
		Logger:         logging.NewNop(),
		ConnectTimeout: 5 * time.Second,
		CloseWait:      100 * time.Millisecond,
	})
	t.Cleanup(m.Dispose)
	return m
}

// events collects handler invocations.
type events struct {
	sync.Mutex
	acc []*Event
}

func (es *events) handler(ctx context.Context, ev *Event) error {
	es.Lock()
	es.acc = append(es.acc, ev)
	es.Unlock()
	return nil
}

func (es *events) all() Handlers {
	return Handlers{OnOpen: es.handler, OnMessage: es.handler, OnError: es.handler, OnClose: es.handler}
}

func (es *events) kinds() []string {
	es.Lock()
	defer es.Unlock()
	acc := make([]string, len(es.acc))
	for i, ev := range es.acc {
		acc[i] = ev.Kind
	}
	return acc
}

func (es *events) of(kind string) []*Event {
	es.Lock()
	defer es.Unlock()
	var acc []*Event
	for _, ev := range es.acc {
		if ev.Kind == kind {
			acc = append(acc, ev)
		}
	}
	return acc
}

func (es *events) count(kind string) int {
	return len(es.of(kind))
}

func TestInboundJSON(t *testing.T) {
	u := server(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte(`{"ok":true}`))
		echo(c)
	})
	m := manager(t)
	es := &events{}

	require.NoError(t, m.Connect(context.Background(), &Spec{Key: "m", URL: u, Handlers: es.all()}))
	st, have := m.State("m")
	require.True(t, have)
	assert.Equal(t, Open, st)

	require.Eventually(t, func() bool { return es.count(EventMessage) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]interface{}{"ok": true}, es.of(EventMessage)[0].Data)
	assert.Equal(t, "m", es.of(EventMessage)[0].Key)
	assert.Equal(t, []string{EventOpen, EventMessage}, es.kinds())
}

func TestParsingModes(t *testing.T) {
	u := server(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte(`not json`))
		c.WriteMessage(websocket.TextMessage, []byte(`[1,2]`))
		echo(c)
	})

	for _, mode := range []Mode{Auto, Text, JSON} {
		t.Run(string(mode), func(t *testing.T) {
			m := manager(t)
			es := &events{}
			require.NoError(t, m.Connect(context.Background(), &Spec{URL: u, ResponseType: mode, Handlers: es.all()}))

			switch mode {
			case Auto:
				require.Eventually(t, func() bool { return es.count(EventMessage) == 2 }, time.Second, 5*time.Millisecond)
				msgs := es.of(EventMessage)
				assert.Equal(t, "not json", msgs[0].Data)
				assert.Equal(t, []interface{}{1.0, 2.0}, msgs[1].Data)
			case Text:
				require.Eventually(t, func() bool { return es.count(EventMessage) == 2 }, time.Second, 5*time.Millisecond)
				assert.Equal(t, "[1,2]", es.of(EventMessage)[1].Data)
			case JSON:
				require.Eventually(t, func() bool { return es.count(EventMessage) == 1 }, time.Second, 5*time.Millisecond)
				require.Equal(t, 1, es.count(EventError))
				var pe *ParseError
				assert.True(t, errors.As(es.of(EventError)[0].Err, &pe))
				assert.Equal(t, []byte("not json"), es.of(EventError)[0].Raw)
			}
		})
	}
}

func TestSend(t *testing.T) {
	u := server(t, echo)
	m := manager(t)
	es := &events{}
	ctx := context.Background()

	require.NoError(t, m.Apply(ctx, OpConnect, &Spec{URL: u, ResponseType: Text, Handlers: es.all()}))

	require.NoError(t, m.Apply(ctx, OpSend, &Spec{URL: u, Message: "hi"}))
	require.NoError(t, m.Send(ctx, u, map[string]interface{}{"n": 1}, ""))
	require.NoError(t, m.Send(ctx, u, "x", JSON))
	require.NoError(t, m.Send(ctx, u, []interface{}{1, "a"}, Text))

	require.Eventually(t, func() bool { return es.count(EventMessage) == 4 }, time.Second, 5*time.Millisecond)
	msgs := es.of(EventMessage)
	assert.Equal(t, "hi", msgs[0].Data)
	assert.Equal(t, `{"n":1}`, msgs[1].Data)
	assert.Equal(t, `"x"`, msgs[2].Data)
	assert.Equal(t, `[1,"a"]`, msgs[3].Data)
}

func TestSendFailures(t *testing.T) {
	m := manager(t)
	err := m.Send(context.Background(), "nope", "hi", "")
	var nf *NotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.Key)

	assert.NoError(t, m.Close("nope", 0, ""))
	assert.NoError(t, m.Apply(context.Background(), OpClose, &Spec{Key: "nope"}))

	var uo *UnknownOp
	assert.True(t, errors.As(m.Apply(context.Background(), "bounce", &Spec{}), &uo))
}

func TestProtocols(t *testing.T) {
	u := server(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte(c.Subprotocol()))
		echo(c)
	})
	m := manager(t)
	es := &events{}
	require.NoError(t, m.Connect(context.Background(), &Spec{URL: u, Protocols: []string{"p1", "p2"}, Handlers: es.all()}))
	require.Eventually(t, func() bool { return es.count(EventMessage) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "p2", es.of(EventMessage)[0].Data)
}

func TestReuse(t *testing.T) {
	var accepted int32
	u := server(t, func(c *websocket.Conn) {
		atomic.AddInt32(&accepted, 1)
		echo(c)
	})
	m := manager(t)
	ctx := context.Background()

	first, second := &events{}, &events{}
	require.NoError(t, m.Connect(ctx, &Spec{Key: "k", URL: u, Handlers: first.all()}))
	require.NoError(t, m.Connect(ctx, &Spec{Key: "k", URL: u, Handlers: second.all()}))
	assert.Equal(t, []string{"k"}, m.Keys())

	require.NoError(t, m.Send(ctx, "k", "hello", ""))
	require.Eventually(t, func() bool { return second.count(EventMessage) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, first.count(EventMessage))
	assert.Equal(t, int32(1), atomic.LoadInt32(&accepted))
}

func TestClose(t *testing.T) {
	u := server(t, echo)
	m := manager(t)
	ctx := context.Background()

	var registered atomic.Bool
	closed := make(chan *Event, 1)
	err := m.Connect(ctx, &Spec{Key: "c", URL: u, Handlers: Handlers{
		OnClose: func(ctx context.Context, ev *Event) error {
			_, have := m.State("c")
			registered.Store(have)
			closed <- ev
			return nil
		},
	}})
	require.NoError(t, err)

	require.NoError(t, m.Close("c", 4001, "done"))
	assert.Empty(t, m.Keys())

	select {
	case ev := <-closed:
		assert.Equal(t, 4001, ev.Code)
		assert.Equal(t, "done", ev.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("no close event")
	}
	assert.False(t, registered.Load())

	// A second close is fine.
	assert.NoError(t, m.Close("c", 0, ""))

	var se *NotFound
	assert.True(t, errors.As(m.Send(ctx, "c", "hi", ""), &se))
}

func TestPeerClose(t *testing.T) {
	u := server(t, func(c *websocket.Conn) {
		c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(4000, "bye"), time.Now().Add(time.Second))
		c.ReadMessage()
	})
	m := manager(t)
	es := &events{}
	require.NoError(t, m.Connect(context.Background(), &Spec{Key: "p", URL: u, Handlers: es.all()}))

	require.Eventually(t, func() bool { return es.count(EventClose) == 1 }, time.Second, 5*time.Millisecond)
	ev := es.of(EventClose)[0]
	assert.Equal(t, 4000, ev.Code)
	assert.Equal(t, "bye", ev.Reason)
	require.Eventually(t, func() bool { return len(m.Keys()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		var held []net.Conn
		defer func() {
			for _, c := range held {
				c.Close()
			}
		}()
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			held = append(held, c)
		}
	}()

	m := manager(t)
	es := &events{}
	err = m.Connect(context.Background(), &Spec{
		Key:      "slow",
		URL:      "ws://" + l.Addr().String(),
		Timeout:  50 * time.Millisecond,
		Handlers: es.all(),
	})
	var to *Timeout
	require.True(t, errors.As(err, &to))
	assert.Equal(t, "slow", to.Key)
	assert.Empty(t, m.Keys())
	require.Eventually(t, func() bool { return es.count(EventError) == 1 }, time.Second, 5*time.Millisecond)
}

func TestDialError(t *testing.T) {
	m := manager(t)
	es := &events{}
	err := m.Connect(context.Background(), &Spec{URL: "ws://127.0.0.1:1/x", Handlers: es.all()})
	var de *DialError
	require.True(t, errors.As(err, &de))
	require.Eventually(t, func() bool { return es.count(EventError) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, m.Keys())
}

func TestHandlerFailureIsContained(t *testing.T) {
	u := server(t, echo)
	m := manager(t)
	var calls int32
	err := m.Connect(context.Background(), &Spec{URL: u, Handlers: Handlers{
		OnMessage: func(ctx context.Context, ev *Event) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				panic("first")
			}
			return errors.New("later")
		},
	}})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Send(context.Background(), u, "x", ""))
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, time.Second, 5*time.Millisecond)
}

func TestDispose(t *testing.T) {
	release := make(chan struct{})
	var serverClosed atomic.Bool
	u := server(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.TextMessage, []byte("1"))
		c.WriteMessage(websocket.TextMessage, []byte("2"))
		if _, _, err := c.ReadMessage(); err != nil {
			serverClosed.Store(true)
		}
	})
	m := manager(t)

	var calls int32
	err := m.Connect(context.Background(), &Spec{Key: "d", URL: u, Handlers: Handlers{
		OnMessage: func(ctx context.Context, ev *Event) error {
			atomic.AddInt32(&calls, 1)
			<-release
			return nil
		},
	}})
	require.NoError(t, err)

	// The first message is being handled and the second is queued.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	m.Dispose()
	close(release)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, m.Disposed())
	assert.Empty(t, m.Keys())
	assert.ErrorIs(t, m.Connect(context.Background(), &Spec{URL: u}), ErrDisposed)
	assert.ErrorIs(t, m.Send(context.Background(), "d", "x", ""), ErrDisposed)
	require.Eventually(t, serverClosed.Load, time.Second, 5*time.Millisecond)

	// Idempotent.
	m.Dispose()
}

func TestConnectRacingDispose(t *testing.T) {
	var open int32
	u := server(t, func(c *websocket.Conn) {
		atomic.AddInt32(&open, 1)
		defer atomic.AddInt32(&open, -1)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})

	for round := 0; round < 10; round++ {
		m := NewManager(Options{Logger: logging.NewNop(), ConnectTimeout: 5 * time.Second})
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := m.Connect(context.Background(), &Spec{Key: string(rune('a' + i)), URL: u})
				if err != nil && !errors.Is(err, ErrDisposed) {
					var se *StateError
					assert.True(t, errors.As(err, &se), "%v", err)
				}
			}(i)
		}
		time.Sleep(time.Duration(round) * time.Millisecond)
		m.Dispose()
		wg.Wait()
		assert.Empty(t, m.Keys())
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&open) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventValue(t *testing.T) {
	ev := &Event{Kind: EventClose, Key: "k", Code: 1000, Reason: "bye"}
	assert.Equal(t, map[string]interface{}{"type": "close", "id": "k", "code": 1000, "reason": "bye"}, ev.Value())
}
