package sio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/aiml/bot"
	"github.com/Comcast/aiml/core"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

const rules = `<?xml version="1.0"?>
<aiml version="1.0">
<category><pattern>HELLO</pattern><template>Hi there. What is your name?</template></category>
<category><pattern>MY NAME IS *</pattern><that>WHAT IS YOUR NAME</that>
<template>Nice to meet you, <set name="name"><star/></set>.</template></category>
<category><pattern>MY NAME IS *</pattern><template>Hello <star/>.</template></category>
<category><pattern>WHO AM I</pattern><template>You are <get name="name"/>.</template></category>
<category><pattern>LETS TALK ABOUT CATS</pattern><template><think><set name="topic">cats</set></think>OK.</template></category>
<topic name="CATS">
<category><pattern>*</pattern><template>Meow.</template></category>
</topic>
</aiml>
`

func testEngine(t *testing.T) (*bot.Engine, string) {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "rules.aiml")
	if err := os.WriteFile(filename, []byte(rules), 0644); err != nil {
		t.Fatal(err)
	}
	e, err := bot.NewEngine(nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	if _, err := e.Load(context.Background(), filename, "alice"); err != nil {
		t.Fatal(err)
	}
	e.Bots.Ensure("alice").SetProperty("name", "Alice")
	return e, filename
}

func TestSentences(t *testing.T) {
	for input, want := range map[string][]string{
		"":                      nil,
		"Hello":                 {"Hello"},
		"Hello. How are you?":   {"Hello", "How are you"},
		"Wait... what?! Really": {"Wait", "what", "Really"},
		"3.14 is pi":            {"3.14 is pi"},
	} {
		if diff := cmp.Diff(want, Sentences(input)); diff != "" {
			t.Fatalf("%q: %s", input, diff)
		}
	}
}

func TestRespond(t *testing.T) {
	e, _ := testEngine(t)
	c := NewConversation(e.Interpreter, zaptest.NewLogger(t))
	ctx := context.Background()

	for i, tc := range []struct {
		user, input, want string
	}{
		{"u1", "Hello", "Hi there. What is your name?"},
		{"u1", "My name is Bob", "Nice to meet you, BOB."},
		{"u1", "Who am I?", "You are BOB."},
		{"u1", "My name is Bob", "Hello BOB."},
		{"u2", "Hello. My name is Ann.", "Hi there. What is your name? Nice to meet you, ANN."},
		{"u3", "Let's talk about cats", "OK."},
		{"u3", "Anything at all", "Meow."},
		{"u3", "Hello", "Hi there. What is your name?"},
	} {
		got, err := c.Respond(ctx, "alice", tc.user, tc.input)
		if err != nil {
			t.Fatalf("%d %q: %s", i, tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("%d %q: got %q; wanted %q", i, tc.input, got, tc.want)
		}
	}

	that, err := e.Predicates.Get(ctx, "that", "u2", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if that != "Nice to meet you, ANN" {
		t.Fatalf("that is %q", that)
	}
	input, err := e.Predicates.Get(ctx, "input", "u2", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if input != "My name is Ann" {
		t.Fatalf("input is %q", input)
	}
}

func TestRespondNoMatch(t *testing.T) {
	e, _ := testEngine(t)
	c := NewConversation(e.Interpreter, nil)

	_, err := c.Respond(context.Background(), "alice", "u1", "xyzzy")
	if !errors.Is(err, core.NotFound) {
		t.Fatalf("got %v", err)
	}
	if s := Render("", err); s != NoMatch {
		t.Fatal(s)
	}

	r := c.Answer(context.Background(), &Request{ID: "1", BotID: "nobody", UserID: "u", Text: "hello"})
	if r.Matched || r.Response != NoMatch || r.ID != "1" {
		t.Fatal(JS(r))
	}
}
