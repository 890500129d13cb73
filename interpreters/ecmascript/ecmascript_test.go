package ecmascript

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/util/testutil"
)

func newContext(state map[string]interface{}) *core.Context {
	c := core.NewContext(core.NewMapState(state))
	_, c.Logger = testutil.NewLog()
	return c
}

func exec(t *testing.T, c *core.Context, code string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	i := NewInterpreter()
	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	return i.Exec(ctx, c.ScriptEnv(), code, compiled)
}

func mustExec(t *testing.T, c *core.Context, code string) {
	t.Helper()
	if err := exec(t, c, code); err != nil {
		t.Fatal(err)
	}
}

func lookup(c *core.Context, path string) interface{} {
	x, _ := c.State.GetPath(path)
	return x
}

func TestStateWrites(t *testing.T) {
	c := newContext(map[string]interface{}{"count": 5.0})
	mustExec(t, c, `state.count = state.count + 1; state.s = "x" + state.count;`)
	if x := lookup(c, "count"); x != 6.0 {
		t.Fatalf("count %#v", x)
	}
	if x := lookup(c, "s"); x != "x6" {
		t.Fatalf("s %#v", x)
	}
}

func TestStateCopies(t *testing.T) {
	c := newContext(map[string]interface{}{"m": map[string]interface{}{"a": 1.0}})
	mustExec(t, c, `state.m.a = 2; setState("n.b", state.m.a + 1);`)
	if x := lookup(c, "m.a"); x != 1.0 {
		t.Fatalf("m.a %#v", x)
	}
	if x := lookup(c, "n.b"); x != 2.0 {
		t.Fatalf("n.b %#v", x)
	}
	mustExec(t, c, `state.got = getState("n.b") + (getState("nope") === null ? 10 : 0);`)
	if x := lookup(c, "got"); x != 12.0 {
		t.Fatalf("got %#v", x)
	}
}

func TestComputedAndAmbient(t *testing.T) {
	c := newContext(nil)
	c.Computed = expr.Vars{"double": 4.0}
	c = c.With(expr.EventVar, map[string]interface{}{"v": "hi"})
	mustExec(t, c, `state.r = $event.v + computed.double;`)
	if x := lookup(c, "r"); x != "hi4" {
		t.Fatalf("r %#v", x)
	}
}

func TestDelay(t *testing.T) {
	c := newContext(nil)
	mustExec(t, c, `await delay(5); state.done = true;`)
	if x := lookup(c, "done"); x != true {
		t.Fatalf("done %#v", x)
	}
}

func TestMethods(t *testing.T) {
	c := newContext(nil)
	c.Methods = map[string]interface{}{
		"add": core.Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return expr.ToNumber(args[0]) + expr.ToNumber(args[1]), nil
		}),
		"ns": map[string]interface{}{
			"inner": core.Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
				return "in", nil
			}),
		},
		"fail": core.Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return nil, errors.New("nope")
		}),
	}
	mustExec(t, c, `
state.sum = await $methods.add(2, 3);
state.inner = await $methods.ns.inner();
state.called = await call("add", 1, 1);
`)
	if x := lookup(c, "sum"); x != 5.0 {
		t.Fatalf("sum %#v", x)
	}
	if x := lookup(c, "inner"); x != "in" {
		t.Fatalf("inner %#v", x)
	}
	if x := lookup(c, "called"); x != 2.0 {
		t.Fatalf("called %#v", x)
	}

	err := exec(t, c, `await $methods.fail();`)
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err %v", err)
	}

	mustExec(t, c, `try { await call("missing"); } catch (e) { state.caught = String(e); }`)
	if s, _ := lookup(c, "caught").(string); !strings.Contains(s, "missing") {
		t.Fatalf("caught %#v", lookup(c, "caught"))
	}
}

func TestEmit(t *testing.T) {
	c := newContext(nil)
	var (
		name    string
		payload interface{}
	)
	c.Emit = func(ctx context.Context, n string, x interface{}) error {
		name, payload = n, x
		return nil
	}
	mustExec(t, c, `emit("ping", {n: 1, l: [2]});`)
	if name != "ping" {
		t.Fatalf("name %q", name)
	}
	if testutil.JS(payload) != `{"l":[2],"n":1}` {
		t.Fatalf("payload %s", testutil.JS(payload))
	}
}

func TestErrors(t *testing.T) {
	c := newContext(nil)

	if err := exec(t, c, `throw new Error("boom");`); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("throw: %v", err)
	}
	if err := exec(t, c, `await Promise.reject("sad");`); err == nil || !strings.Contains(err.Error(), "sad") {
		t.Fatalf("reject: %v", err)
	}
	if err := exec(t, c, `await new Promise(function() {});`); err != Unsettled {
		t.Fatalf("unsettled: %v", err)
	}
	if _, err := NewInterpreter().Compile(context.Background(), `state.x = ;`); err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestInterrupt(t *testing.T) {
	c := newContext(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewInterpreter().Exec(ctx, c.ScriptEnv(), `for (;;) {}`, nil)
	if err != Interrupted {
		t.Fatalf("got %v", err)
	}
}

func TestCronNext(t *testing.T) {
	c := newContext(nil)
	mustExec(t, c, `state.next = cronNext("* * * * *");`)
	s, _ := lookup(c, "next").(string)
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		t.Fatal(err)
	}
	if err := exec(t, c, `cronNext("bad");`); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRequire(t *testing.T) {
	c := newContext(nil)
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"twice": `function twice(x) { return 2 * x; }`,
	})
	code := `require("twice");
state.y = twice(21);`
	if err := i.Exec(context.Background(), c.ScriptEnv(), code, nil); err != nil {
		t.Fatal(err)
	}
	if x := lookup(c, "y"); x != 42.0 {
		t.Fatalf("y %#v", x)
	}

	if _, err := NewInterpreter().Compile(context.Background(), code); err == nil {
		t.Fatal("expected an error without a provider")
	}
	i.LibraryProvider = MakeMapLibraryProvider(nil)
	if _, err := i.Compile(context.Background(), code); err == nil {
		t.Fatal("expected an error for a missing library")
	}
}

func TestInlineRequiresUntouched(t *testing.T) {
	src := `var x = 1; f(require);`
	got, err := InlineRequires(context.Background(), src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != src {
		t.Fatalf("got %q", got)
	}
}

func TestScriptAction(t *testing.T) {
	c := newContext(map[string]interface{}{"n": 1.0})
	c.Scripts = NewInterpreter()
	as, err := core.ParseJSON([]byte(`[
	  {"script": "state.n = state.n * 10"},
	  {"set": "m", "value": "{{ n + 1 }}"}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ExecuteActions(context.Background(), as); err != nil {
		t.Fatal(err)
	}
	if x := lookup(c, "m"); x != 11.0 {
		t.Fatalf("m %#v", x)
	}
}

func TestRegistered(t *testing.T) {
	if core.DefaultInterpreters.Find("ecmascript") == nil {
		t.Fatal("not registered")
	}
}

func TestDisposeStopsScript(t *testing.T) {
	c := newContext(nil)
	c.Scripts = NewInterpreter()
	var emitted []string
	c.Emit = func(ctx context.Context, n string, x interface{}) error {
		emitted = append(emitted, n)
		return nil
	}
	c.Methods = map[string]interface{}{
		"slow": core.Method(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			time.Sleep(100 * time.Millisecond)
			return 1.0, nil
		}),
	}
	as, err := core.ParseJSON([]byte(`[
	  {"script": "await delay(200); state.after = true;"},
	  {"script": "await $methods.slow(); state.slow = true; setState('set', 1); emit('late');"}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		c.Dispose()
	}()
	start := time.Now()
	if err := c.ExecuteActions(context.Background(), as); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d > 150*time.Millisecond {
		t.Fatalf("took %v", d)
	}
	for _, p := range []string{"after", "slow", "set"} {
		if _, have := c.State.GetPath(p); have {
			t.Fatalf("%s written after dispose", p)
		}
	}
	if len(emitted) != 0 {
		t.Fatalf("emitted %v", emitted)
	}

	// A script that resumes after disposal can't write.
	c = newContext(nil)
	c.Emit = func(ctx context.Context, n string, x interface{}) error {
		emitted = append(emitted, n)
		return nil
	}
	env := c.ScriptEnv()
	c.Dispose()
	err = NewInterpreter().Exec(context.Background(), env, `state.x = 1; setState("y", 2); emit("z");`, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, have := c.State.GetPath("x"); have {
		t.Fatal("x written after dispose")
	}
	if _, have := c.State.GetPath("y"); have {
		t.Fatal("y written after dispose")
	}
	if len(emitted) != 0 {
		t.Fatalf("emitted %v", emitted)
	}
}
