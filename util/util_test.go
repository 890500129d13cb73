package util

import (
	"reflect"
	"testing"
)

func TestStringMaps(t *testing.T) {
	in := map[interface{}]interface{}{
		"a": []interface{}{
			map[interface{}]interface{}{1: "one"},
		},
		"b": "x",
	}
	want := map[string]interface{}{
		"a": []interface{}{
			map[string]interface{}{"1": "one"},
		},
		"b": "x",
	}
	if got := StringMaps(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
	if got := StringMaps(3.0); got != 3.0 {
		t.Fatalf("got %#v", got)
	}
}
