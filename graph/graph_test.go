package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/aiml/core"

	"github.com/google/go-cmp/cmp"
)

func cat(pattern, that, topic, template string) core.Category {
	return core.Category{Pattern: pattern, That: that, Topic: topic, Template: template}
}

func newTestGraph(t *testing.T, cs ...core.Category) *Graph {
	t.Helper()
	g := NewGraph(nil)
	for _, c := range cs {
		if err := g.Accept(context.Background(), c, "b"); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestMatchPriority(t *testing.T) {
	g := newTestGraph(t,
		cat("HELLO", "*", "*", "literal"),
		cat("HELLO *", "*", "*", "hello star"),
		cat("_ THERE", "*", "*", "underscore"),
		cat("*", "*", "*", "star"),
	)
	ctx := context.Background()

	for _, tc := range []struct {
		input    string
		template string
		stars    []string
	}{
		{"HELLO", "literal", nil},
		{"HELLO THERE", "hello star", []string{"THERE"}},
		{"HELLO BIG WORLD", "hello star", []string{"BIG WORLD"}},
		{"HI THERE", "underscore", []string{"HI"}},
		{"GOOD MORNING ALL", "star", []string{"GOOD MORNING ALL"}},
	} {
		m, err := g.Match(ctx, tc.input, "*", "*", "b")
		if err != nil {
			t.Fatalf("%s: %s", tc.input, err)
		}
		if m.Category.Template != tc.template {
			t.Fatalf("%s: got %s", tc.input, m.Category.Template)
		}
		if diff := cmp.Diff(tc.stars, m.Stars); diff != "" {
			t.Fatalf("%s: %s", tc.input, diff)
		}
	}

	if _, err := g.Match(ctx, "HELLO", "*", "*", "nobody"); !errors.Is(err, core.NotFound) {
		t.Fatal(err)
	}
}

func TestMatchThatTopic(t *testing.T) {
	g := newTestGraph(t,
		cat("YES", "*", "*", "yes what"),
		cat("YES", "DO YOU LIKE *", "*", "good"),
		cat("YES", "*", "PETS", "pets"),
	)
	ctx := context.Background()

	m, err := g.Match(ctx, "YES", "DO YOU LIKE CATS", "*", "b")
	if err != nil {
		t.Fatal(err)
	}
	if m.Category.Template != "good" {
		t.Fatal(m.Category.Template)
	}
	if diff := cmp.Diff([]string{"CATS"}, m.ThatStars); diff != "" {
		t.Fatal(diff)
	}

	if m, err = g.Match(ctx, "YES", "", "", "b"); err != nil || m.Category.Template != "yes what" {
		t.Fatal(m, err)
	}
	if m, err = g.Match(ctx, "YES", "WHATEVER", "PETS", "b"); err != nil || m.Category.Template != "pets" {
		t.Fatal(m, err)
	}
	if _, err = g.Match(ctx, "NO", "", "", "b"); !errors.Is(err, core.NotFound) {
		t.Fatal(err)
	}
}

func TestAcceptInvalid(t *testing.T) {
	g := NewGraph(nil)
	if err := g.Accept(context.Background(), cat("HELLO-THERE", "*", "*", "x"), "b"); err == nil {
		t.Fatal("expected an error")
	}
	if g.Count() != 0 {
		t.Fatal(g.Count())
	}
}

const rules = `<aiml>
<category><pattern>HELLO</pattern><template>Hi!</template></category>
<category><pattern>BYE</pattern><template>Bye.</template></category>
</aiml>
`

func writeRules(t *testing.T, dir, name, src string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadUnload(t *testing.T) {
	dir := t.TempDir()
	a := writeRules(t, dir, "a.aiml", rules)
	b := writeRules(t, dir, "b.aiml", `<aiml><category><pattern>*</pattern><template>What?</template></category></aiml>`)

	ctx := context.Background()
	g := NewGraph(nil)

	n, err := g.Load(ctx, a, "b")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatal(n)
	}
	if _, err = g.Load(ctx, "file://"+b, "b"); err != nil {
		t.Fatal(err)
	}
	if g.Count() != 3 {
		t.Fatal(g.Count())
	}
	if diff := cmp.Diff([]string{a, b}, g.Files("b")); diff != "" {
		t.Fatal(diff)
	}

	m, err := g.Match(ctx, "HELLO", "", "", "b")
	if err != nil {
		t.Fatal(err)
	}
	if m.Category.Source != a {
		t.Fatal(m.Category.Source)
	}

	// Loading again adds the rules again.
	if _, err = g.Load(ctx, a, "b"); err != nil {
		t.Fatal(err)
	}
	if g.Count() != 5 {
		t.Fatal(g.Count())
	}

	if n, err = g.Unload(ctx, a, "b"); err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatal(n)
	}
	if g.Count() != 1 {
		t.Fatal(g.Count())
	}
	if diff := cmp.Diff([]string{b}, g.Files("b")); diff != "" {
		t.Fatal(diff)
	}
	m, err = g.Match(ctx, "HELLO", "", "", "b")
	if err != nil {
		t.Fatal(err)
	}
	if m.Category.Template != "What?" {
		t.Fatal(m.Category.Template)
	}

	if _, err = g.Load(ctx, filepath.Join(dir, "missing.aiml"), "b"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadDiagnostics(t *testing.T) {
	dir := t.TempDir()
	filename := writeRules(t, dir, "bad.aiml", `<aiml>
<category><pattern></pattern><template>x</template></category>
<category><pattern>OK</pattern><template>ok</template></category>
</aiml>`)
	diags := core.NewCollector()
	g := NewGraph(nil)
	g.Diagnostics = diags
	n, err := g.Load(context.Background(), filename, "b")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || diags.Count(core.Error) != 1 {
		t.Fatal(n, diags.All())
	}
	if d := diags.All()[0]; d.Source != filename || d.Line != 2 {
		t.Fatal(d)
	}
}

func TestLoadHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rules.aiml":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "1"})
			fmt.Fprint(w, rules)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	ctx := context.Background()
	g := NewGraph(nil)
	n, err := g.Load(ctx, ts.URL+"/rules.aiml", "b")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatal(n)
	}
	if _, err = g.Load(ctx, ts.URL+"/nope.aiml", "b"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCategories(t *testing.T) {
	g := newTestGraph(t,
		cat("B", "*", "*", "b"),
		cat("A", "*", "*", "a"),
	)
	cs := g.Categories("b")
	if len(cs) != 2 || cs[0].Pattern != "A" {
		t.Fatal(cs)
	}
}

func TestConcurrentMatch(t *testing.T) {
	dir := t.TempDir()
	filename := writeRules(t, dir, "a.aiml", rules)
	g := newTestGraph(t, cat("*", "*", "*", "default"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := g.Load(ctx, filename, "b"); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := g.Match(ctx, "HELLO", "", "", "b"); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	if g.Count() != 9 {
		t.Fatal(g.Count())
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	filename := writeRules(t, dir, "a.aiml", rules)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g := NewGraph(nil)
	if _, err := g.Load(ctx, filename, "b"); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(g)
	if err != nil {
		t.Fatal(err)
	}
	w.Debounce = 20 * time.Millisecond
	reloaded := make(chan int, 10)
	w.Reloaded = func(source, botId string, n int, err error) {
		if err != nil {
			t.Error(err)
		}
		reloaded <- n
	}
	if err = w.AddLoaded("b"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error)
	go func() {
		done <- w.Run(ctx)
	}()

	// Give the watcher a moment to start.
	time.Sleep(50 * time.Millisecond)
	writeRules(t, dir, "a.aiml", `<aiml><category><pattern>NEW</pattern><template>new</template></category></aiml>`)

	select {
	case n := <-reloaded:
		if n != 1 {
			t.Fatal(n)
		}
	case <-ctx.Done():
		t.Fatal("no reload")
	}

	if g.Count() != 1 {
		t.Fatal(g.Count())
	}
	if _, err := g.Match(ctx, "NEW", "", "", "b"); err != nil {
		t.Fatal(err)
	}

	cancel()
	<-done
}
