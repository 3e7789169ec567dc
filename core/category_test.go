package core

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCategoryPath(t *testing.T) {
	c := NewCategory("HELLO *", "Hi there.")
	got := strings.Join(c.Path(), " ")
	want := "HELLO * <THAT> * <TOPIC> *"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	c.That = "DO YOU LIKE TACOS"
	c.Topic = ""
	got = strings.Join(c.Path(), " ")
	want = "HELLO * <THAT> DO YOU LIKE TACOS <TOPIC> *"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStar(t *testing.T) {
	captures := []string{"chips", "queso"}
	for i, want := range []string{"", "chips", "queso", ""} {
		if got := Star(captures, i); got != want {
			t.Fatalf("Star(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestCategoriesSink(t *testing.T) {
	var cs Categories
	var sink CategorySink = &cs
	if err := sink.AcceptCategory(NewCategory("A", "b")); err != nil {
		t.Fatal(err)
	}
	if len(cs) != 1 {
		t.Fatalf("got %d categories", len(cs))
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Report(Diagnostic{Severity: Error, Message: "Pattern missing from category."})
	c.Report(Diagnostic{Severity: Warning, Message: "meh"})
	c.Report(Diagnostic{Severity: Error, Message: "Template missing from category."})
	if n := c.Count(Error); n != 2 {
		t.Fatalf("count %d", n)
	}
	if n := len(c.All()); n != 3 {
		t.Fatalf("all %d", n)
	}
}

func TestZapDiagnostics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	z := NewZapDiagnostics(zap.New(core))
	z.Report(Diagnostic{
		Severity: Warning,
		Message:  "There is no \"meta\" element in AIML.",
		Source:   "tacos.aiml",
		Line:     3,
	})
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.Level != zap.WarnLevel {
		t.Fatalf("level %s", e.Level)
	}
	if e.ContextMap()["line"] != int64(3) {
		t.Fatalf("fields %#v", e.ContextMap())
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: Error, Message: "Unexpected </aiml>; rest of file ignored.", Source: "x.aiml", Line: 7}
	if s := d.String(); !strings.Contains(s, "line 7") || !strings.HasPrefix(s, "error: ") {
		t.Fatal(s)
	}
}
