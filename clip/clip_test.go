package clip

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type writer struct {
	err error
	got []string
}

func (w *writer) WriteText(s string) error {
	w.got = append(w.got, s)
	return w.err
}

func TestChain(t *testing.T) {
	bad := &writer{err: errors.New("bad")}
	good := &writer{}
	if err := (Chain{bad, good}).WriteText("hi"); err != nil {
		t.Fatal(err)
	}
	if len(bad.got) != 1 || len(good.got) != 1 || good.got[0] != "hi" {
		t.Fatalf("%v %v", bad.got, good.got)
	}

	err := (Chain{bad, bad}).WriteText("x")
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("got %v", err)
	}
	if err := (Chain{}).WriteText("x"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTerminal(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm")
	var buf bytes.Buffer
	if err := (Terminal{W: &buf}).WriteText("hello"); err != nil {
		t.Fatal(err)
	}
	enc := base64.StdEncoding.EncodeToString([]byte("hello"))
	if s := buf.String(); !strings.HasPrefix(s, "\x1b]52;") || !strings.Contains(s, enc) {
		t.Fatalf("got %q", s)
	}
}
