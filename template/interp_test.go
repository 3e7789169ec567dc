package template

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/subst"
)

type testIndex struct {
	cats    []core.Category
	loaded  []string
	loadErr error
}

func (x *testIndex) Accept(ctx context.Context, c core.Category, botId string) error {
	x.cats = append(x.cats, c)
	return nil
}

func (x *testIndex) Match(ctx context.Context, input, that, topic, botId string) (*core.Match, error) {
	for _, c := range x.cats {
		if stars, ok := match.Match(c.Pattern, input); ok {
			return &core.Match{Category: c, Stars: stars}, nil
		}
	}
	return nil, core.NotFound
}

func (x *testIndex) Load(ctx context.Context, location, botId string) (int, error) {
	if x.loadErr != nil {
		return 0, x.loadErr
	}
	x.loaded = append(x.loaded, location)
	return 1, nil
}

func (x *testIndex) Unload(ctx context.Context, location, botId string) (int, error) {
	return 0, nil
}

func (x *testIndex) Count() int {
	return len(x.cats)
}

type testPredicates struct {
	sync.Mutex
	m   map[string]string
	err error
}

func (p *testPredicates) Get(ctx context.Context, key, userId, botId string) (string, error) {
	p.Lock()
	defer p.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return p.m[key], nil
}

func (p *testPredicates) Set(ctx context.Context, key, userId, botId, value string) error {
	p.Lock()
	defer p.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.m == nil {
		p.m = make(map[string]string)
	}
	p.m[key] = value
	return nil
}

type testProperties map[string]string

func (p testProperties) Property(botId, name string) (string, bool) {
	v, have := p[name]
	return v, have
}

func newTestInterpreter(opts ...Option) (*Interpreter, *testIndex, *testPredicates) {
	x := &testIndex{}
	ps := &testPredicates{}
	opts = append([]Option{
		WithIndex(x),
		WithPredicates(ps),
		WithProperties(testProperties{"name": "Alice"}),
	}, opts...)
	return NewInterpreter(Standard(), opts...), x, ps
}

func process(t *testing.T, in *Interpreter, env *Env, src string) string {
	t.Helper()
	s, err := in.Process(context.Background(), src, env)
	if err != nil {
		t.Fatalf("%s: %s", src, err)
	}
	return s
}

func TestFormal(t *testing.T) {
	in, _, _ := newTestInterpreter()
	env := &Env{}

	if s := process(t, in, env, "<formal>hello world</formal>"); s != "Hello World" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<formal>hELLO  wORLD</formal>"); s != "Hello  World" {
		t.Fatal(s)
	}
	if s := process(t, in, env, `<formal><get name="nothing"/></formal>`); s != "" {
		t.Fatalf("%q", s)
	}

	_, err := in.Process(context.Background(), "<formal></formal>", env)
	var te *TemplateError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TemplateError, got %v", err)
	}
}

func TestSentence(t *testing.T) {
	in, _, _ := newTestInterpreter()
	env := &Env{}
	if s := process(t, in, env, "<sentence>hello there</sentence>"); s != "Hello there" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<sentence>a</sentence>"); s != "a" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<sentence>hi</sentence>|<sentence>h</sentence>"); s != "Hi|h" {
		t.Fatal(s)
	}
	if s := process(t, in, env, `<sentence><get name="nothing"/></sentence>`); s != "" {
		t.Fatalf("got %q", s)
	}
	if _, err := in.Process(context.Background(), "<sentence/>", env); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCase(t *testing.T) {
	in, _, _ := newTestInterpreter()
	env := &Env{}
	if s := process(t, in, env, "<uppercase>abc</uppercase> <lowercase>DEF</lowercase>"); s != "ABC def" {
		t.Fatal(s)
	}
}

func TestDepthExceeded(t *testing.T) {
	in, x, _ := newTestInterpreter()
	x.cats = append(x.cats, core.Category{Pattern: "*", That: "*", Topic: "*", Template: "<sr/>"})

	env := &Env{Match: &core.Match{Stars: []string{"HELLO"}}}
	_, err := in.Process(context.Background(), "<sr/>", env)
	var de *DepthExceeded
	if !errors.As(err, &de) {
		t.Fatalf("expected DepthExceeded, got %v", err)
	}
	if de.Max != DefaultMaxDepth {
		t.Fatal(de.Max)
	}
	if env.Depth() != 0 {
		t.Fatal(env.Depth())
	}
}

func TestMaxDepth(t *testing.T) {
	in, _, _ := newTestInterpreter(WithMaxDepth(2))
	env := &Env{}
	if s := process(t, in, env, "<uppercase><lowercase>X</lowercase></uppercase>"); s != "X" {
		t.Fatal(s)
	}
	if _, err := in.Process(context.Background(), "<uppercase><lowercase><uppercase>x</uppercase></lowercase></uppercase>", env); err == nil {
		t.Fatal("expected an error")
	}
}

func TestUnknownTag(t *testing.T) {
	in, _, _ := newTestInterpreter()
	env := &Env{}
	for _, tc := range []struct {
		src, want string
	}{
		{`<b>Hi <uppercase>there</uppercase></b>`, `<b>Hi THERE</b>`},
		{`Line<br/>break`, `Line<br/>break`},
		{`<a href="http://example.com/">link</a>`, `<a href="http://example.com/">link</a>`},
		{`<x:thing a="1"><bot name="name"/></x:thing>`, `<x:thing a="1">Alice</x:thing>`},
		{`<b>A &amp; B</b>`, `<b>A &amp; B</b>`},
		{`<b><i>1 &lt; 2</i> <uppercase>a &amp; b</uppercase></b>`, `<b><i>1 &lt; 2</i> A &amp; B</b>`},
		{`A &amp; B`, `A & B`},
	} {
		if s := process(t, in, env, tc.src); s != tc.want {
			t.Fatalf("%s: got %s", tc.src, s)
		}
	}
}

func TestSubstitutions(t *testing.T) {
	ss := subst.NewSet()
	ss.Add("b", subst.Person, "I", "you")
	ss.Add("b", subst.Person, "I am", "you are")
	ss.Add("b", subst.Gender, "he", "she")
	ss.Add("b", subst.Person2, "me", "<bot name=\"name\"/>")

	in, _, _ := newTestInterpreter(WithSubstitutions(ss))
	env := &Env{BotID: "b", Match: &core.Match{Stars: []string{"HE LIKES IT"}}}

	if s := process(t, in, env, "<person>I am happy</person>"); s != "you are happy" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<gender/>"); s != "she LIKES IT" {
		t.Fatal(s)
	}
	// Substitution results are themselves processed.
	if s := process(t, in, env, "<person2>tell me</person2>"); s != "tell Alice" {
		t.Fatal(s)
	}
}

func TestSrai(t *testing.T) {
	in, x, _ := newTestInterpreter()
	x.cats = append(x.cats,
		core.Category{Pattern: "HELLO", That: "*", Topic: "*", Template: "Hi!"},
		core.Category{Pattern: "HI *", That: "*", Topic: "*", Template: "<srai>hello</srai> <star/>"},
	)
	env := &Env{Match: &core.Match{Stars: []string{"THERE"}}}

	if s := process(t, in, env, "<srai>hello</srai>"); s != "Hi!" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<srai>hi <star/></srai>"); s != "Hi! THERE" {
		t.Fatal(s)
	}
	if s := process(t, in, env, "<srai>nothing matches this</srai>"); s != "" {
		t.Fatal(s)
	}
	if _, err := in.Process(context.Background(), "<sr>x</sr>", env); err == nil {
		t.Fatal("expected an error")
	}
}

func TestPredicates(t *testing.T) {
	in, _, ps := newTestInterpreter()
	env := &Env{}
	s := process(t, in, env, `<think><set name="name">Bob</set></think>My name is <get name="name"/>.`)
	if s != "My name is Bob." {
		t.Fatal(s)
	}
	if ps.m["name"] != "Bob" {
		t.Fatal(ps.m)
	}
	process(t, in, env, `<set name="topic">cars</set>`)
	if env.Topic != "cars" {
		t.Fatal(env.Topic)
	}
	if _, err := in.Process(context.Background(), `<get/>`, env); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCollaboratorDegrades(t *testing.T) {
	diags := core.NewCollector()
	in, x, ps := newTestInterpreter(WithDiagnostics(diags))
	ps.err = errors.New("disk on fire")
	x.loadErr = errors.New("no such file")

	env := &Env{}
	if s := process(t, in, env, `[<get name="a"/>]`); s != "[]" {
		t.Fatal(s)
	}
	if s := process(t, in, env, `[<learn>x.aiml</learn>]`); s != "[]" {
		t.Fatal(s)
	}
	if n := diags.Count(core.Warning); n != 2 {
		t.Fatal(diags.All())
	}
}

func TestCondition(t *testing.T) {
	in, _, ps := newTestInterpreter()
	ps.m = map[string]string{"mood": "happy", "name": "Bob Smith"}
	env := &Env{}

	for _, tc := range []struct {
		src, want string
	}{
		{`<condition name="mood" value="happy">Yay</condition>`, "Yay"},
		{`<condition name="mood" value="sad">Boo</condition>`, ""},
		{`<condition name="mood"><li value="sad">Boo</li><li value="HAPPY">Yay</li><li>Hmm</li></condition>`, "Yay"},
		{`<condition name="mood"><li value="sad">Boo</li><li>Hmm</li></condition>`, "Hmm"},
		{`<condition><li name="name" value="BOB *">Hi Bob</li><li>Who?</li></condition>`, "Hi Bob"},
		{`<condition><li name="job" value="*">Working</li><li>Idle</li></condition>`, "Idle"},
	} {
		if s := process(t, in, env, tc.src); s != tc.want {
			t.Fatalf("%s: got %q", tc.src, s)
		}
	}
}

func TestRandom(t *testing.T) {
	in, _, _ := newTestInterpreter(WithRand(func(n int) int { return n - 1 }))
	env := &Env{}
	if s := process(t, in, env, `<random><li>a</li><li>b</li><li><uppercase>c</uppercase></li></random>`); s != "C" {
		t.Fatal(s)
	}
	if _, err := in.Process(context.Background(), `<random></random>`, env); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := in.Process(context.Background(), `<li>x</li>`, env); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLearn(t *testing.T) {
	in, x, _ := newTestInterpreter()

	env := &Env{Source: "/rules/main.aiml"}
	if s := process(t, in, env, `<learn>more.aiml</learn>`); s != "" {
		t.Fatal(s)
	}
	env.Source = "http://example.com/rules/main.aiml"
	process(t, in, env, `<learn>../other/more.aiml</learn>`)
	process(t, in, env, `<learn>/abs/x.aiml</learn>`)

	want := []string{"/rules/more.aiml", "http://example.com/other/more.aiml", "/abs/x.aiml"}
	if strings.Join(x.loaded, " ") != strings.Join(want, " ") {
		t.Fatal(x.loaded)
	}
}

func TestMiscTags(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in, x, _ := newTestInterpreter(WithClock(func() time.Time { return now }))
	x.cats = make([]core.Category, 3)
	env := &Env{
		UserID: "u1",
		Input:  "WHAT TIME IS IT",
		That:   "HELLO",
		Match:  &core.Match{Stars: []string{"A", "B"}, ThatStars: []string{"C"}, TopicStars: []string{"D"}},
	}
	for _, tc := range []struct {
		src, want string
	}{
		{`<date format="%Y-%m-%d"/>`, "2024-01-02"},
		{`<id/>`, "u1"},
		{`<size/>`, "3"},
		{`<input/>`, "WHAT TIME IS IT"},
		{`<that/>`, "HELLO"},
		{`<that index="2,1"/>`, ""},
		{`<star/><star index="2"/><star index="3"/>`, "AB"},
		{`<thatstar/><topicstar/>`, "CD"},
		{`<gossip>psst</gossip>`, ""},
		{`<version/>`, Version},
	} {
		if s := process(t, in, env, tc.src); s != tc.want {
			t.Fatalf("%s: got %q", tc.src, s)
		}
	}
}

func TestRegistry(t *testing.T) {
	shout := func(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
		s, err := in.EvaluateAll(ctx, e.Children, env)
		return strings.ToUpper(s) + "!", err
	}
	r := Standard(map[string]Handler{"shout": shout})
	if _, have := r.Lookup("shout"); !have {
		t.Fatal("missing extra")
	}
	if _, have := Standard().Lookup("shout"); have {
		t.Fatal("extra leaked")
	}
	in := NewInterpreter(r)
	if s := process(t, in, &Env{}, "<shout>hey</shout>"); s != "HEY!" {
		t.Fatal(s)
	}
}
