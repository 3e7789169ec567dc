/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package template

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/subst"

	"go.uber.org/zap"
)

// DefaultMaxDepth is the default limit on evaluation nesting.
const DefaultMaxDepth = 128

// Version is what <version/> reports by default.
var Version = "aiml-go 0.1"

// Handler evaluates one element.  The Interpreter has already
// applied any shortcut rewriting.
type Handler func(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error)

// Registry maps tag names to Handlers.
//
// A Registry is immutable once made.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry makes a Registry from the given maps.  Later maps win.
func NewRegistry(hss ...map[string]Handler) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
	}
	for _, hs := range hss {
		for name, h := range hs {
			r.handlers[name] = h
		}
	}
	return r
}

// Lookup finds the Handler for the tag.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, have := r.handlers[name]
	return h, have
}

// Names returns the registered tag names in order.
func (r *Registry) Names() []string {
	acc := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Properties provides bot properties for <bot name="..."/>.
type Properties interface {
	Property(botId, name string) (string, bool)
}

// Env is the conversation context for one evaluation.
//
// An Env belongs to a single conversation turn and isn't safe for
// concurrent use.
type Env struct {
	BotID  string
	UserID string

	Input string
	That  string
	Topic string

	// Match is the match that selected the template being
	// evaluated.
	Match *core.Match

	// Source is where the template's category came from.
	// Relative <learn> locations resolve against it.
	Source string

	depth int
}

// Depth returns the current evaluation depth.
func (env *Env) Depth() int {
	return env.depth
}

// child makes an Env for evaluating another category's template
// within this evaluation.
func (env *Env) child(m *core.Match) *Env {
	c := *env
	c.Match = m
	if m != nil && m.Category.Source != "" {
		c.Source = m.Category.Source
	}
	return &c
}

// Interpreter evaluates parsed templates.
//
// The Interpreter itself is safe for concurrent use once
// constructed.  Its collaborators must be as well.
type Interpreter struct {
	Registry *Registry

	Index       core.RuleIndex
	Predicates  core.Predicates
	Subst       *subst.Set
	Properties  Properties
	Diagnostics core.Diagnostics
	Logger      *zap.Logger

	MaxDepth int

	// Rand returns a number in [0,n).  Used by <random>.
	Rand func(n int) int

	// Now gives the time for <date/>.
	Now func() time.Time

	Version string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithIndex(x core.RuleIndex) Option { return func(in *Interpreter) { in.Index = x } }
func WithPredicates(p core.Predicates) Option { return func(in *Interpreter) { in.Predicates = p } }
func WithSubstitutions(s *subst.Set) Option { return func(in *Interpreter) { in.Subst = s } }
func WithProperties(p Properties) Option { return func(in *Interpreter) { in.Properties = p } }
func WithDiagnostics(d core.Diagnostics) Option { return func(in *Interpreter) { in.Diagnostics = d } }
func WithLogger(l *zap.Logger) Option { return func(in *Interpreter) { in.Logger = l } }
func WithMaxDepth(n int) Option { return func(in *Interpreter) { in.MaxDepth = n } }
func WithRand(f func(n int) int) Option { return func(in *Interpreter) { in.Rand = f } }
func WithClock(f func() time.Time) Option { return func(in *Interpreter) { in.Now = f } }

// NewInterpreter makes an Interpreter with the given Registry.  A nil
// Registry means Standard().
func NewInterpreter(r *Registry, opts ...Option) *Interpreter {
	if r == nil {
		r = Standard()
	}
	in := &Interpreter{
		Registry:    r,
		Subst:       subst.NewSet(),
		Diagnostics: core.Discard,
		Logger:      zap.NewNop(),
		MaxDepth:    DefaultMaxDepth,
		Rand:        rand.Intn,
		Now:         time.Now,
		Version:     Version,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// report sends a diagnostic about a degraded evaluation.
func (in *Interpreter) report(env *Env, sev core.Severity, msg string) {
	in.Diagnostics.Report(core.Diagnostic{
		Severity: sev,
		Message:  msg,
		Source:   env.Source,
	})
}

// degrade reports a collaborator failure.  The caller then returns
// an empty result.
func (in *Interpreter) degrade(env *Env, op string, err error) {
	err = &core.CollaboratorError{Op: op, Err: err}
	in.Logger.Warn("collaborator failure", zap.String("op", op), zap.Error(err))
	in.report(env, core.Warning, err.Error())
}

// shortcuts gives the expansions for childless elements.
var shortcuts = map[string]func() *Element{
	"sr": func() *Element {
		return &Element{Name: "srai", Children: []Node{&Element{Name: "star"}}}
	},
	"person":  starWrapped("person"),
	"person2": starWrapped("person2"),
	"gender":  starWrapped("gender"),
}

func starWrapped(name string) func() *Element {
	return func() *Element {
		return &Element{Name: name, Children: []Node{&Element{Name: "star"}}}
	}
}

// expand applies shortcut rewriting.
func expand(e *Element) *Element {
	if 0 < len(e.Children) {
		return e
	}
	if f, have := shortcuts[e.Name]; have {
		return f()
	}
	return e
}

// Evaluate evaluates a node to text.
//
// Text evaluates to itself.  An element is dispatched to its Handler.
// An element without a Handler is reproduced as markup around its
// evaluated children.
func (in *Interpreter) Evaluate(ctx context.Context, n Node, env *Env) (string, error) {
	switch vv := n.(type) {
	case Text:
		return string(vv), nil
	case *Element:
		if err := ctx.Err(); err != nil {
			return "", err
		}
		env.depth++
		defer func() { env.depth-- }()
		if in.MaxDepth < env.depth {
			return "", &DepthExceeded{Max: in.MaxDepth, Tag: vv.Name}
		}

		e := expand(vv)
		h, have := in.Registry.Lookup(e.Name)
		if !have {
			s, err := in.markupContent(ctx, e.Children, env)
			if err != nil {
				return "", err
			}
			return wrap(e, s), nil
		}
		return h(ctx, in, env, e)
	case nil:
		return "", nil
	}
	return "", nil
}

// EvaluateAll evaluates the nodes and concatenates the results.
func (in *Interpreter) EvaluateAll(ctx context.Context, ns []Node, env *Env) (string, error) {
	var b strings.Builder
	for _, n := range ns {
		s, err := in.Evaluate(ctx, n, env)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// markupContent evaluates the children of an element that is
// reproduced as markup.  Text results are escaped; the results of
// nested reproduced elements are already markup.
func (in *Interpreter) markupContent(ctx context.Context, ns []Node, env *Env) (string, error) {
	var b strings.Builder
	for _, n := range ns {
		s, err := in.Evaluate(ctx, n, env)
		if err != nil {
			return "", err
		}
		if e, is := n.(*Element); is {
			if _, have := in.Registry.Lookup(e.Name); !have {
				b.WriteString(s)
				continue
			}
		}
		b.WriteString(textEscaper.Replace(s))
	}
	return b.String(), nil
}

// Process parses the template text and evaluates it.
func (in *Interpreter) Process(ctx context.Context, src string, env *Env) (string, error) {
	ns, err := Parse(src)
	if err != nil {
		return "", err
	}
	return in.EvaluateAll(ctx, ns, env)
}
