package interpreters

import "testing"

func TestStandard(t *testing.T) {
	is := Standard()
	for _, name := range []string{"ecmascript", "javascript", "noop"} {
		if is.Find(name) == nil {
			t.Fatalf("no %s", name)
		}
	}
	if is.Find("ecmascript") != is.Find("javascript") {
		t.Fatal("javascript isn't an alias")
	}
	if is.Find("lua") != nil {
		t.Fatal("found lua")
	}
}
