package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/Comcast/shoots/conn"
	"github.com/Comcast/shoots/expr"
	"github.com/Comcast/shoots/request"
)

func TestMapStateSnapshots(t *testing.T) {
	s := NewMapState(map[string]interface{}{"a": map[string]interface{}{"b": 1.0}})
	before := s.Snapshot()

	var changed []string
	s.OnChange = func(path string, x interface{}) {
		changed = append(changed, path)
	}
	if err := s.SetPath("a.c[1]", "x"); err != nil {
		t.Fatal(err)
	}

	if x, _ := expr.GetPath(before, "a.c"); !expr.IsUndefined(x) {
		t.Fatalf("snapshot changed: %#v", before)
	}
	x, have := s.GetPath("a.c[1]")
	if !have || x != "x" {
		t.Fatalf("got %#v", x)
	}
	if len(changed) != 1 || changed[0] != "a.c[1]" {
		t.Fatalf("changes: %v", changed)
	}

	if err := s.SetPath("a..b", 1); err == nil {
		t.Fatal("expected an error")
	}
	if len(changed) != 1 {
		t.Fatalf("changes: %v", changed)
	}
}

func TestMapStateConcurrent(t *testing.T) {
	s := NewMapState(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetPath("n", float64(j))
				s.Lookup("n")
			}
		}(i)
	}
	wg.Wait()
	if _, have := s.Lookup("n"); !have {
		t.Fatal("no n")
	}
}

func TestErrorValue(t *testing.T) {
	tests := []struct {
		err  error
		name string
		keys []string
	}{
		{&expr.Error{Reason: expr.SecurityViolation, Expr: "window"}, "ExpressionSecurityViolation", []string{"expr"}},
		{&MethodNotFound{Name: "x"}, "MethodNotFound", nil},
		{&ScriptError{Source: "x", Err: errors.New("y")}, "ScriptRuntimeError", nil},
		{&request.TransportError{Status: 500}, "TransportError", []string{"status"}},
		{&request.BusinessStatusError{Code: 7.0, Status: 200}, "BusinessStatusError", []string{"code", "status"}},
		{&request.InterceptorError{Stage: "request", Err: errors.New("no")}, "InterceptorError", []string{"stage"}},
		{&conn.NotFound{Key: "k"}, "ConnectionNotFound", nil},
		{&conn.Timeout{Key: "k"}, "ConnectionTimeout", nil},
		{&conn.StateError{Key: "k"}, "ConnectionStateError", nil},
		{errors.New("plain"), "Error", nil},
	}
	for _, tt := range tests {
		m := ErrorValue(tt.err)
		if m["name"] != tt.name {
			t.Fatalf("%v: name %v, want %s", tt.err, m["name"], tt.name)
		}
		if m["message"] != tt.err.Error() {
			t.Fatalf("%v: message %v", tt.err, m["message"])
		}
		for _, k := range tt.keys {
			if _, have := m[k]; !have {
				t.Fatalf("%v: no %s in %v", tt.err, k, m)
			}
		}
	}
	if ErrorValue(nil) != nil {
		t.Fatal("non-nil value for nil")
	}
}
