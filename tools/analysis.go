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

package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/graph"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/template"
)

// Link is a literal <srai> from one category to another.
type Link struct {
	From string `json:"from" yaml:"from"`
	Text string `json:"text" yaml:"text"`

	// To is the pattern of the category that the text reaches.
	// Empty if no category does.
	To string `json:"to,omitempty" yaml:"to,omitempty"`
}

// Analysis summarizes a rule set.
type Analysis struct {
	Categories int `json:"categories" yaml:"categories"`
	WithThat   int `json:"withThat" yaml:"withThat"`

	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// Duplicates are pattern/that/topic tuples given more than
	// once.  The last one wins.
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`

	// Links are literal <srai> references.
	Links []Link `json:"links,omitempty" yaml:"links,omitempty"`

	// Dynamic counts <srai> and <sr> elements whose input is only
	// known at runtime.
	Dynamic int `json:"dynamic" yaml:"dynamic"`

	// Unresolved are literal <srai> texts that no category
	// matches.
	Unresolved []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`

	// Tags counts template elements by name.
	Tags map[string]int `json:"tags" yaml:"tags"`

	// UnknownTags are element names that the registry doesn't
	// handle.  These are reproduced as markup.
	UnknownTags []string `json:"unknownTags,omitempty" yaml:"unknownTags,omitempty"`

	// Errors are templates that don't parse.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

const analysisBot = "analysis"

// Analyze examines the categories.  The Registry (if not nil)
// determines which tags are unknown.
func Analyze(ctx context.Context, cats []core.Category, r *template.Registry) (*Analysis, error) {
	a := &Analysis{
		Categories: len(cats),
		Tags:       make(map[string]int),
	}

	g := graph.NewGraph(nil)
	topics := make(map[string]bool)
	seen := make(map[[3]string]bool)
	unknown := make(map[string]bool)

	for _, c := range cats {
		if c.That != "" && c.That != core.Wildcard {
			a.WithThat++
		}
		if c.Topic != "" && c.Topic != core.Wildcard {
			topics[c.Topic] = true
		}
		that, topic := c.That, c.Topic
		if that == "" {
			that = core.Wildcard
		}
		if topic == "" {
			topic = core.Wildcard
		}
		key := [3]string{strings.ToUpper(c.Pattern), strings.ToUpper(that), strings.ToUpper(topic)}
		if seen[key] {
			a.Duplicates = append(a.Duplicates, strings.Join(key[:], " : "))
		}
		seen[key] = true

		if err := g.Accept(ctx, c, analysisBot); err != nil {
			a.Errors = append(a.Errors, err.Error())
		}
	}

	for _, c := range cats {
		ns, err := template.Parse(c.Template)
		if err != nil {
			a.Errors = append(a.Errors, c.Pattern+": "+err.Error())
			continue
		}
		walk(ns, func(e *template.Element) {
			a.Tags[e.Name]++
			if r != nil {
				if _, have := r.Lookup(e.Name); !have {
					unknown[e.Name] = true
				}
			}
			switch e.Name {
			case "sr":
				a.Dynamic++
			case "srai":
				text, literal := literalText(e)
				if !literal {
					a.Dynamic++
					return
				}
				link := Link{
					From: c.Pattern,
					Text: text,
					To:   resolve(ctx, g, cats, text),
				}
				if link.To == "" {
					a.Unresolved = append(a.Unresolved, text)
				}
				a.Links = append(a.Links, link)
			}
		})
	}

	a.Topics = keys(topics)
	a.UnknownTags = keys(unknown)

	return a, nil
}

func keys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

func walk(ns []template.Node, f func(*template.Element)) {
	for _, n := range ns {
		if e, is := n.(*template.Element); is {
			f(e)
			walk(e.Children, f)
		}
	}
}

// literalText returns the element's content if it's only text.
func literalText(e *template.Element) (string, bool) {
	var b strings.Builder
	for _, n := range e.Children {
		t, is := n.(template.Text)
		if !is {
			return "", false
		}
		b.WriteString(string(t))
	}
	return strings.TrimSpace(b.String()), true
}

// resolve finds the pattern that the text reaches.  The graph
// decides among categories without a that or topic.  Otherwise any
// pattern that matches will do.
func resolve(ctx context.Context, g *graph.Graph, cats []core.Category, text string) string {
	input := match.Normalize(text)
	if m, err := g.Match(ctx, input, core.Wildcard, core.Wildcard, analysisBot); err == nil {
		return m.Category.Pattern
	}
	for i := len(cats) - 1; 0 <= i; i-- {
		if _, ok := match.Match(cats[i].Pattern, input); ok {
			return cats[i].Pattern
		}
	}
	return ""
}
