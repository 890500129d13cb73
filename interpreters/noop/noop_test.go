package noop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/util/testutil"
)

func TestRefuses(t *testing.T) {
	l, logger := testutil.NewLog()
	i := NewInterpreter()
	compiled, err := i.Compile(context.Background(), "state.x = 1")
	if err != nil || compiled != nil {
		t.Fatalf("compile: %v %v", compiled, err)
	}
	err = i.Exec(context.Background(), &core.ScriptEnv{Logger: logger}, "state.x = 1", nil)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(l.String(), "script refused") {
		t.Fatal(l.String())
	}

	l, logger = testutil.NewLog()
	i.Silent = true
	i.Exec(context.Background(), &core.ScriptEnv{Logger: logger}, "x", nil)
	if l.String() != "" {
		t.Fatal(l.String())
	}
}

func TestScriptAction(t *testing.T) {
	l, logger := testutil.NewLog()
	c := core.NewContext(nil)
	c.Logger = logger
	c.Scripts = NewInterpreter()
	as, err := core.ParseJSON([]byte(`[{"script":"state.x = 1"},{"set":"y","value":2}]`))
	if err != nil {
		t.Fatal(err)
	}
	if err = c.ExecuteActions(context.Background(), as); err != nil {
		t.Fatal(err)
	}
	if _, have := c.State.Lookup("x"); have {
		t.Fatal("script ran")
	}
	if x, _ := c.State.Lookup("y"); x != 2.0 {
		t.Fatalf("y %#v", x)
	}
	if !strings.Contains(l.String(), "script failed") {
		t.Fatal(l.String())
	}
}
