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

package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/shoots/config"
	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/logging"
	"github.com/Comcast/shoots/request"
	"github.com/Comcast/shoots/util/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, state map[string]interface{}) (*Context, *testutil.Log) {
	t.Helper()
	l, logger := testutil.NewLog()
	c := NewContext(NewMapState(state))
	c.Logger = logger
	return c, l
}

func run(t *testing.T, c *Context, src string) {
	t.Helper()
	as, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.NoError(t, c.ExecuteActions(context.Background(), as))
}

func get(t *testing.T, c *Context, path string) interface{} {
	t.Helper()
	x, _ := c.State.GetPath(path)
	return x
}

func TestSetIncrements(t *testing.T) {
	c, _ := newContext(t, map[string]interface{}{"count": 5.0})
	run(t, c, `{"set":"count","value":"{{ count + 1 }}"}`)
	assert.Equal(t, 6.0, get(t, c, "count"))
}

func TestSequencing(t *testing.T) {
	c, _ := newContext(t, nil)
	run(t, c, `[
	  {"set":"a","value":1},
	  {"set":"b","value":"{{ a + 1 }}"},
	  {"set":"c.d[1]","value":{"n":"{{ b }}","l":["{{ a }}","x {{ b }}"]}}
	]`)
	assert.Equal(t, 2.0, get(t, c, "b"))
	assert.Equal(t, 2.0, get(t, c, "c.d[1].n"))
	assert.Equal(t, []interface{}{1.0, "x 2"}, get(t, c, "c.d[1].l"))
}

func TestSetSkipsOnError(t *testing.T) {
	c, l := newContext(t, nil)
	run(t, c, `[{"set":"x","value":"{{ nope }}"},{"set":"y","value":1}]`)
	_, have := c.State.GetPath("x")
	assert.False(t, have)
	assert.Equal(t, 1.0, get(t, c, "y"))
	assert.Contains(t, l.String(), "skipping assignment")
}

func TestSetHugeIndex(t *testing.T) {
	c, l := newContext(t, map[string]interface{}{"n": 1e15})
	run(t, c, `[{"set":"list[{{ n }}]","value":1},{"set":"after","value":true}]`)
	assert.Equal(t, true, get(t, c, "after"))
	_, have := c.State.Lookup("list")
	assert.False(t, have)
	assert.Contains(t, l.String(), "skipping assignment")

	done := make(chan struct{})
	go func() {
		c.State.Lookup("after")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state still locked")
	}
}

func TestIf(t *testing.T) {
	tests := []struct {
		cond interface{}
		want string
	}{
		{"count > 5", "lo"},
		{"count == 3", "hi"},
		{"{{ count == 3 }}", "hi"},
		{"nope", "lo"},
		{"count +", "lo"},
		{true, "hi"},
		{0.0, "lo"},
	}
	for _, tt := range tests {
		c, _ := newContext(t, map[string]interface{}{"count": 3.0})
		a := &If{
			Condition: tt.cond,
			Then:      Actions{&Set{Path: "r", Value: "hi"}},
			Else:      Actions{&Set{Path: "r", Value: "lo"}},
		}
		require.NoError(t, c.ExecuteAction(context.Background(), a))
		assert.Equal(t, tt.want, get(t, c, "r"), "%v", tt.cond)
	}
}

func TestCancelled(t *testing.T) {
	c, _ := newContext(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ExecuteActions(ctx, Actions{&Set{Path: "x", Value: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	_, have := c.State.GetPath("x")
	assert.False(t, have)
}

type awaitable struct {
	x interface{}
}

func (a *awaitable) Await(ctx context.Context) (interface{}, error) {
	return a.x, nil
}

func TestCall(t *testing.T) {
	var (
		log []interface{}
		mu  sync.Mutex
	)
	record := func(name string) Method {
		return func(ctx context.Context, args ...interface{}) (interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			log = append(log, append([]interface{}{name}, args...))
			return nil, nil
		}
	}

	c, l := newContext(t, map[string]interface{}{
		"count": 5.0,
		MethodsKey: map[string]interface{}{
			"$nav": map[string]interface{}{
				"push": expr.Func(func(args ...interface{}) (interface{}, error) {
					mu.Lock()
					defer mu.Unlock()
					log = append(log, append([]interface{}{"push"}, args...))
					return nil, nil
				}),
			},
		},
		"api": map[string]interface{}{
			"later": func(args ...interface{}) (interface{}, error) {
				return &awaitable{x: "done"}, nil
			},
		},
	})
	c.Methods = map[string]interface{}{
		"add": record("add"),
		"ns":  map[string]interface{}{"inner": record("inner")},
	}

	run(t, c, `[
	  {"call":"add","args":["{{ count }}","x"]},
	  {"call":"ns.inner"},
	  {"call":"$methods.$nav.push","args":[{"to":"{{ count * 2 }}"}]},
	  {"call":"nope"},
	  {"call":"count"}
	]`)
	assert.Equal(t, []interface{}{
		[]interface{}{"add", 5.0, "x"},
		[]interface{}{"inner"},
		[]interface{}{"push", map[string]interface{}{"to": 10.0}},
	}, log)
	assert.Contains(t, l.String(), "method not found")

	x, err := c.Call(context.Background(), "api.later")
	require.NoError(t, err)
	assert.Equal(t, "done", x)

	_, err = c.Call(context.Background(), strings.Repeat("a.", MaxMethodDepth)+"a")
	var mnf *MethodNotFound
	assert.True(t, errors.As(err, &mnf))
}

func TestCallFailure(t *testing.T) {
	c, l := newContext(t, nil)
	c.Methods = map[string]interface{}{
		"fail": Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return nil, errors.New("kaboom")
		}),
	}
	run(t, c, `[{"call":"fail"},{"set":"after","value":true}]`)
	assert.Equal(t, true, get(t, c, "after"))
	assert.Contains(t, l.String(), "kaboom")
}

func TestEmit(t *testing.T) {
	type emitted struct {
		name    string
		payload interface{}
	}
	var got []emitted
	c, _ := newContext(t, map[string]interface{}{"count": 5.0})
	c.Emit = func(ctx context.Context, name string, payload interface{}) error {
		got = append(got, emitted{name, payload})
		return nil
	}
	run(t, c, `[{"emit":"tick","payload":{"n":"{{ count }}"}},{"emit":"bare"}]`)
	assert.Equal(t, []emitted{
		{"tick", map[string]interface{}{"n": 5.0}},
		{"bare", nil},
	}, got)
}

type fakeInterpreter struct {
	compiles int
	env      *ScriptEnv
}

func (i *fakeInterpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	i.compiles++
	if code == "syntax error" {
		return nil, errors.New("unexpected token")
	}
	return "compiled:" + code, nil
}

func (i *fakeInterpreter) Exec(ctx context.Context, env *ScriptEnv, code string, compiled interface{}) error {
	i.env = env
	if code == "throw" {
		return errors.New("boom")
	}
	return env.State.SetPath("ran", compiled)
}

func TestScript(t *testing.T) {
	c, l := newContext(t, map[string]interface{}{
		MethodsKey: map[string]interface{}{"ext": expr.Func(func(args ...interface{}) (interface{}, error) { return nil, nil })},
	})
	c.Methods = map[string]interface{}{"own": record()}
	i := &fakeInterpreter{}
	c.Scripts = i

	run(t, c, `[
	  {"script":"go"},
	  {"script":"go"},
	  {"script":"throw"},
	  {"script":"syntax error"},
	  {"set":"after","value":1}
	]`)
	assert.Equal(t, "compiled:go", get(t, c, "ran"))
	assert.Equal(t, 3, i.compiles)
	assert.Equal(t, 1.0, get(t, c, "after"))
	assert.Contains(t, l.String(), "script failed")
	assert.Contains(t, l.String(), "source=throw")
	assert.Contains(t, l.String(), "unexpected token")

	require.NotNil(t, i.env)
	assert.Contains(t, i.env.Methods, "ext")
	assert.Contains(t, i.env.Methods, "own")
}

func record() Method {
	return func(ctx context.Context, args ...interface{}) (interface{}, error) { return nil, nil }
}

func TestScriptWithoutInterpreter(t *testing.T) {
	c, l := newContext(t, nil)
	run(t, c, `[{"script":"x = 1"},{"set":"after","value":1}]`)
	assert.Equal(t, 1.0, get(t, c, "after"))
	assert.Contains(t, l.String(), InterpreterNotFound.Error())
}

type fakeClipboard struct {
	err  error
	text string
}

func (c *fakeClipboard) WriteText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func TestCopy(t *testing.T) {
	src := `{"copy":"{{ count }}",
	         "then":{"set":"copied","value":"{{ $response }}"},
	         "catch":{"set":"failure","value":"{{ $error.name }}"}}`

	c, _ := newContext(t, map[string]interface{}{"count": 5.0})
	cb := &fakeClipboard{}
	c.Clipboard = cb
	run(t, c, src)
	assert.Equal(t, "5", cb.text)
	assert.Equal(t, "5", get(t, c, "copied"))

	c, _ = newContext(t, map[string]interface{}{"count": 5.0})
	c.Clipboard = &fakeClipboard{err: errors.New("denied")}
	run(t, c, src)
	assert.Equal(t, "ClipboardError", get(t, c, "failure"))

	c, _ = newContext(t, map[string]interface{}{"count": 5.0})
	run(t, c, src)
	assert.Equal(t, "ClipboardError", get(t, c, "failure"))

	c, _ = newContext(t, nil)
	cb = &fakeClipboard{text: "unchanged"}
	c.Clipboard = cb
	run(t, c, `{"copy":null}`)
	assert.Equal(t, "", cb.text)
}

func api(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []int{1, 2}})
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "nope"})
	})
	s := httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func TestFetch(t *testing.T) {
	s := api(t)
	cfg := config.Default()
	cfg.BaseURL = s.URL
	cfg.Cookies = false
	o, err := request.New(cfg, request.Options{Logger: logging.NewNop()})
	require.NoError(t, err)

	c, l := newContext(t, nil)
	c.Requests = o
	run(t, c, `[
	  {"fetch":"/items",
	   "then":{"set":"n","value":"{{ $data.items.length }}"},
	   "finally":{"set":"done","value":true}},
	  {"fetch":"/missing",
	   "then":{"set":"bad","value":true},
	   "catch":[
	     {"set":"status","value":"{{ $error.status }}"},
	     {"set":"name","value":"{{ $error.name }}"},
	     {"set":"body","value":"{{ $response.error }}"}],
	   "finally":{"set":"done2","value":"{{ $error }}"}},
	  {"fetch":"/missing"}
	]`)
	assert.EqualValues(t, 2, get(t, c, "n"))
	assert.Equal(t, true, get(t, c, "done"))
	_, have := c.State.GetPath("bad")
	assert.False(t, have)
	assert.EqualValues(t, 404, get(t, c, "status"))
	assert.Equal(t, "TransportError", get(t, c, "name"))
	assert.Equal(t, "nope", get(t, c, "body"))

	// finally doesn't see the catch branch's bindings.
	_, have = c.State.GetPath("done2")
	assert.False(t, have)
	_, have = c.Ambient(expr.ResponseVar)
	assert.False(t, have)

	assert.Contains(t, l.String(), "fetch failed")
	assert.Empty(t, o.Loading())
}

func TestFetchWithoutOrchestrator(t *testing.T) {
	c, _ := newContext(t, nil)
	run(t, c, `{"fetch":"/x","catch":{"set":"msg","value":"{{ $error.message }}"}}`)
	assert.Equal(t, errNoRequests.Error(), get(t, c, "msg"))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pusher sends {"ok":true} to each client and then waits for the
// client to go away.
func pusher(t *testing.T) string {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if err = ws.WriteMessage(websocket.TextMessage, []byte(`{"ok":true}`)); err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestConnection(t *testing.T) {
	url := pusher(t)
	c, _ := newContext(t, map[string]interface{}{"url": url})
	c.Conns = conn.NewManager(conn.Options{Logger: logging.NewNop(), CloseWait: 100 * time.Millisecond})
	defer c.Dispose()

	run(t, c, `{"ws":"{{ url }}","op":"connect","id":"m",
	  "onOpen":{"set":"opened","value":"{{ $event.type }}"},
	  "onMessage":{"set":"last","value":"{{ $response.ok }}"},
	  "onClose":{"set":"closed","value":"{{ $event.code }}"},
	  "then":{"set":"state","value":"{{ $response.state }}"}}`)
	assert.Equal(t, "open", get(t, c, "state"))

	testutil.Eventually(t, 2*time.Second, func() bool {
		return get(t, c, "last") == true
	}, "the message")
	testutil.Eventually(t, 2*time.Second, func() bool {
		return get(t, c, "opened") == "open"
	}, "onOpen")

	run(t, c, `[
	  {"ws":"m","op":"send","message":{"n":1},"then":{"set":"sent","value":"{{ $response.id }}"}},
	  {"ws":"m","op":"close","code":4001,"reason":"done"}
	]`)
	assert.Equal(t, "m", get(t, c, "sent"))
	testutil.Eventually(t, 2*time.Second, func() bool {
		x := get(t, c, "closed")
		return x != nil && expr.ToNumber(x) == 4001
	}, "onClose")
	_, have := c.Conns.State("m")
	assert.False(t, have)
}

func TestConnectionFailures(t *testing.T) {
	c, _ := newContext(t, nil)
	c.Conns = conn.NewManager(conn.Options{Logger: logging.NewNop()})
	defer c.Dispose()

	run(t, c, `[
	  {"ws":"nobody","op":"send","message":"hi","catch":{"set":"send","value":"{{ $error.name }}"}},
	  {"ws":"ws://127.0.0.1:1/x","catch":{"set":"connect","value":"{{ $error.name }}"}}
	]`)
	assert.Equal(t, "ConnectionNotFound", get(t, c, "send"))
	assert.Equal(t, "ConnectionError", get(t, c, "connect"))
}

func TestDispose(t *testing.T) {
	c, _ := newContext(t, nil)
	c.Conns = conn.NewManager(conn.Options{Logger: logging.NewNop()})
	d := c.With("$item", 1)
	d.Dispose()
	assert.True(t, c.Disposed())
	assert.True(t, c.Conns.Disposed())
	run(t, c, `{"set":"x","value":1}`)
	_, have := c.State.GetPath("x")
	assert.False(t, have)
}

type blocking struct{}

func (blocking) Await(ctx context.Context) (interface{}, error) {
	<-ctx.Done()
	return "late", nil
}

type waitingInterpreter struct {
	resumed bool
}

func (i *waitingInterpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	return nil, nil
}

func (i *waitingInterpreter) Exec(ctx context.Context, env *ScriptEnv, code string, compiled interface{}) error {
	select {
	case <-env.Done:
		return ErrDisposed
	case <-time.After(2 * time.Second):
		i.resumed = true
		return nil
	}
}

func TestDisposeStopsPendingWork(t *testing.T) {
	c, l := newContext(t, nil)
	c.Methods = map[string]interface{}{
		"wait": Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return blocking{}, nil
		}),
	}
	var emitted []string
	c.Emit = func(ctx context.Context, name string, payload interface{}) error {
		emitted = append(emitted, name)
		return nil
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Dispose()
	}()

	start := time.Now()
	x, err := c.Call(context.Background(), "wait")
	assert.ErrorIs(t, err, ErrDisposed)
	assert.Nil(t, x)
	assert.Less(t, time.Since(start), time.Second)

	run(t, c, `[{"call":"wait"},{"emit":"after"}]`)
	assert.Empty(t, emitted)
	assert.ErrorIs(t, c.Send(context.Background(), "x", nil), ErrDisposed)
	assert.NotContains(t, l.String(), "call failed")

	c, _ = newContext(t, nil)
	wi := &waitingInterpreter{}
	c.Scripts = wi
	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Dispose()
	}()
	run(t, c, `{"script":"x"}`)
	assert.False(t, wi.resumed)
	assert.True(t, c.ScriptEnv().Disposed())
}

func TestScopes(t *testing.T) {
	c, _ := newContext(t, map[string]interface{}{"count": 5.0})
	d := c.With(expr.ItemVar, "thing")
	_, have := c.Ambient(expr.ItemVar)
	assert.False(t, have)

	child := d.Child(NewMapState(nil), expr.Vars{"k": 2.0})
	run(t, child, `{"set":"z","value":"{{ count * k }} {{ $item }}"}`)
	assert.Equal(t, "10 thing", get(t, child, "z"))
	_, have = c.State.GetPath("z")
	assert.False(t, have)

	// Parents are snapshots.
	require.NoError(t, c.State.SetPath("count", 6.0))
	run(t, child, `{"set":"z","value":"{{ count }}"}`)
	assert.Equal(t, 5.0, get(t, child, "z"))
}
