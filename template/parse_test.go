package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	ns, err := Parse(`Hi <star index="1"/>, &amp; <b>bye</b>`)
	if err != nil {
		t.Fatal(err)
	}
	want := []Node{
		Text("Hi "),
		&Element{Name: "star", Attrs: []Attr{{"index", "1"}}},
		Text(", & "),
		&Element{Name: "b", Children: []Node{Text("bye")}},
	}
	if diff := cmp.Diff(want, ns); diff != "" {
		t.Fatal(diff)
	}
	if s := MarkupAll(ns); s != `Hi <star index="1"/>, &amp; <b>bye</b>` {
		t.Fatal(s)
	}
}

func TestParseLenient(t *testing.T) {
	ns, err := Parse(`a&nbsp;b<br>c`)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 3 {
		t.Fatalf("%#v", ns)
	}
}

func TestParseUnbalanced(t *testing.T) {
	if _, err := Parse(`oops</b>`); err == nil {
		t.Fatal("expected an error")
	}
}
