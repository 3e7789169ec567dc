package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/aiml/template"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
interpreter:
  maxDepth: 16
predicates:
  backend: memory
bots:
  - id: alice
    properties:
      name: Alice
    predicates:
      name: friend
    files: [rules/*.aiml]
    substitutions:
      gender:
        - find: he
          replace: she
`))
	require.NoError(t, err)
	require.Equal(t, 16, c.Interpreter.MaxDepth)
	require.Len(t, c.Bots, 1)
	require.Equal(t, "Alice", c.Bots[0].Properties["name"])
	require.Equal(t, "she", c.Bots[0].Substitutions["gender"][0].Replace)
	require.NotNil(t, c.Validation)
}

func TestConfigCheck(t *testing.T) {
	for name, src := range map[string]string{
		"backend":   "predicates:\n  backend: redis\n",
		"path":      "predicates:\n  backend: bolt\n",
		"noid":      "bots:\n  - files: [a.aiml]\n",
		"duplicate": "bots:\n  - id: a\n  - id: a\n",
		"kind":      "bots:\n  - id: a\n    substitutions:\n      input:\n        - find: x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(src))
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestBots(t *testing.T) {
	bs := NewBots()
	bs.Ensure("eliza").SetProperty("name", "Eliza")
	bs.Ensure("alice")
	require.Equal(t, []string{"alice", "eliza"}, bs.IDs())

	v, have := bs.Property("eliza", "name")
	require.True(t, have)
	require.Equal(t, "Eliza", v)

	_, have = bs.Property("nobody", "name")
	require.False(t, have)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0755))
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

const greetings = `<?xml version="1.0"?>
<aiml version="1.0">
<category><pattern>HELLO</pattern><template>Hi <get name="name"/>, I am <bot name="name"/>.</template></category>
<category><pattern>HE LIKES *</pattern><template><gender><star/></gender></template></category>
</aiml>
`

func TestStartup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules/greetings.aiml", greetings)
	startup := writeFile(t, dir, "startup.aiml", `<?xml version="1.0"?>
<aiml version="1.0">
<programd-startup>
  <bots>
    <bot id="alice" enabled="true">
      <property name="name" value="Alice"/>
      <predicates><predicate name="name" default="friend"/></predicates>
      <substitutions>
        <gender><substitute find="she" replace="he"/></gender>
      </substitutions>
      <learn>rules/*.aiml</learn>
    </bot>
    <bot id="bob" enabled="false">
      <property name="name" value="Bob"/>
    </bot>
  </bots>
</programd-startup>
</aiml>
`)

	ctx := context.Background()
	e, err := NewEngine(nil, nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Load(ctx, startup, "alice")
	require.NoError(t, err)

	require.Equal(t, 2, e.Graph.Count())
	require.Equal(t, []string{"alice"}, e.BotIDs())

	env := &template.Env{BotID: "alice", UserID: "u1"}
	s, err := e.Interpreter.Respond(ctx, "hello", env)
	require.NoError(t, err)
	require.Equal(t, "Hi friend, I am Alice.", s)

	s, err = e.Interpreter.Respond(ctx, "he likes she", env)
	require.NoError(t, err)
	require.Equal(t, "he", s)
}

func TestStartupErrors(t *testing.T) {
	s := &Startup{Bots: NewBots()}
	err := s.ProcessStartup(context.Background(), "x.aiml", `<bots><bot><property name="a" value="b"/></bot></bots>`)
	var se *StartupError
	require.ErrorAs(t, err, &se)
}

func TestLocations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.aiml", "")
	writeFile(t, dir, "a.aiml", "")
	source := filepath.Join(dir, "startup.aiml")

	require.Equal(t, []string{filepath.Join(dir, "a.aiml"), filepath.Join(dir, "b.aiml")}, Locations(source, "*.aiml"))
	require.Equal(t, []string{filepath.Join(dir, "c.aiml")}, Locations(source, "c.aiml"))
	require.Equal(t, []string{"http://example.com/x.aiml"}, Locations(source, "http://example.com/x.aiml"))
}

func TestEngine(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "greetings.aiml", greetings)

	cfg := NewConfig()
	cfg.Predicates.Backend = "sqlite"
	cfg.Predicates.Path = filepath.Join(dir, "predicates.db")
	cfg.Bots = []*BotConfig{{
		ID:         "alice",
		Properties: map[string]string{"name": "Alice"},
		Files:      []string{filepath.Join(dir, "*.aiml")},
	}}

	ctx := context.Background()
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	defer e.Close()

	n, err := e.LoadFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{rules}, e.Files("alice"))

	require.NoError(t, e.Predicates.Set(ctx, "name", "u1", "alice", "Carol"))
	s, err := e.Interpreter.Respond(ctx, "HELLO", &template.Env{BotID: "alice", UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "Hi Carol, I am Alice.", s)

	require.NoError(t, e.Reload(ctx))
	require.Equal(t, 2, e.Graph.Count())

	n, err = e.Load(ctx, rules, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, e.Graph.Count())
	require.Equal(t, []string{rules}, e.Files("alice"))

	n, err = e.Unload(ctx, rules, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 0, e.Graph.Count())
	require.Empty(t, e.Files("alice"))
}

func TestEngineBolt(t *testing.T) {
	cfg := NewConfig()
	cfg.Predicates.Backend = "bolt"
	cfg.Predicates.Path = filepath.Join(t.TempDir(), "predicates.db")

	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.Predicates.Set(ctx, "k", "u", "b", "v"))
	v, err := e.Predicates.Get(ctx, "k", "u", "b")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.NoError(t, e.Close())
}
