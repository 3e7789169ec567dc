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

// Package graph is a rule index: a word trie per bot over each
// category's pattern, that, and topic.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/reader"

	"go.uber.org/zap"
)

// node is a trie node.  Words are upper case.  The wildcard children
// are kept apart from the literal children.
type node struct {
	words  map[string]*node
	single *node // "_"
	multi  *node // "*"

	// cats at this node in the order they were added.  The last
	// one wins a match.
	cats []core.Category
}

func (n *node) child(word string, create bool) *node {
	var p **node
	switch word {
	case core.SingleWildcard:
		p = &n.single
	case core.Wildcard:
		p = &n.multi
	default:
		c := n.words[word]
		if c == nil && create {
			if n.words == nil {
				n.words = make(map[string]*node)
			}
			c = &node{}
			n.words[word] = c
		}
		return c
	}
	if *p == nil && create {
		*p = &node{}
	}
	return *p
}

func (n *node) empty() bool {
	return len(n.cats) == 0 && len(n.words) == 0 && n.single == nil && n.multi == nil
}

// remove deletes categories from the given source and prunes empty
// nodes.  Returns the number removed.
func (n *node) remove(source string) int {
	removed := 0
	kept := n.cats[:0]
	for _, c := range n.cats {
		if c.Source == source {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.cats); i++ {
		n.cats[i] = core.Category{}
	}
	n.cats = kept

	for w, c := range n.words {
		removed += c.remove(source)
		if c.empty() {
			delete(n.words, w)
		}
	}
	if n.single != nil {
		removed += n.single.remove(source)
		if n.single.empty() {
			n.single = nil
		}
	}
	if n.multi != nil {
		removed += n.multi.remove(source)
		if n.multi.empty() {
			n.multi = nil
		}
	}
	return removed
}

// search is the state of one match attempt.
type search struct {
	words []string

	// section is 0 for the pattern, 1 for that, and 2 for topic.
	stars [3][]string

	found *core.Category
}

func isMarker(w string) bool {
	return w == core.ThatMarker || w == core.TopicMarker
}

// match tries literal words, then "_", then "*".
func (n *node) match(s *search, i, section int) bool {
	if i == len(s.words) {
		if 0 < len(n.cats) {
			s.found = &n.cats[len(n.cats)-1]
			return true
		}
		return false
	}

	w := s.words[i]
	if c := n.words[w]; c != nil {
		next := section
		if isMarker(w) {
			next++
		}
		if c.match(s, i+1, next) {
			return true
		}
	}
	if isMarker(w) {
		return false
	}

	if n.single != nil {
		s.stars[section] = append(s.stars[section], w)
		if n.single.match(s, i+1, section) {
			return true
		}
		s.stars[section] = s.stars[section][:len(s.stars[section])-1]
	}

	if n.multi != nil {
		for j := i + 1; j <= len(s.words) && !isMarker(s.words[j-1]); j++ {
			s.stars[section] = append(s.stars[section], strings.Join(s.words[i:j], " "))
			if n.multi.match(s, j, section) {
				return true
			}
			s.stars[section] = s.stars[section][:len(s.stars[section])-1]
		}
	}

	return false
}

// Graph implements core.RuleIndex.
type Graph struct {
	sync.RWMutex

	Loader      *Loader
	Policy      *match.Policy
	Diagnostics core.Diagnostics
	Logger      *zap.Logger

	// Startup, if not nil, receives startup blocks found while
	// loading.
	Startup reader.StartupProcessor

	// WarnNonAIML enables strict-mode warnings when reading,
	// with these extra known element names.
	WarnNonAIML []string

	roots map[string]*node
	count int

	// files is bot → source → number of categories loaded.
	files map[string]map[string]int
}

// NewGraph makes an empty Graph.
func NewGraph(loader *Loader) *Graph {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &Graph{
		Loader:      loader,
		Policy:      match.DefaultPolicy(),
		Diagnostics: core.Discard,
		Logger:      zap.NewNop(),
		roots:       make(map[string]*node),
		files:       make(map[string]map[string]int),
	}
}

// add inserts the category.  Caller must hold the write lock.
func (g *Graph) add(c core.Category, botId string) {
	root, have := g.roots[botId]
	if !have {
		root = &node{}
		g.roots[botId] = root
	}
	n := root
	for _, w := range c.Path() {
		n = n.child(strings.ToUpper(w), true)
	}
	n.cats = append(n.cats, c)
	g.count++

	if c.Source != "" {
		g.sources(botId)[c.Source]++
	}
}

// sources returns the bot's source counts.  Caller must hold the
// write lock.
func (g *Graph) sources(botId string) map[string]int {
	fs, have := g.files[botId]
	if !have {
		fs = make(map[string]int)
		g.files[botId] = fs
	}
	return fs
}

// Accept adds the category for the bot after validating it.
func (g *Graph) Accept(ctx context.Context, c core.Category, botId string) error {
	if c.That == "" {
		c.That = core.Wildcard
	}
	if c.Topic == "" {
		c.Topic = core.Wildcard
	}
	if err := g.Policy.Check(c); err != nil {
		return err
	}
	g.Lock()
	g.add(c, botId)
	g.Unlock()
	return nil
}

// Sink returns a CategorySink that adds categories for the bot.
func (g *Graph) Sink(ctx context.Context, botId string) core.CategorySink {
	return core.CategorySinkFunc(func(c core.Category) error {
		return g.Accept(ctx, c, botId)
	})
}

// Match finds the best category for the normalized input, that, and
// topic.
//
// At each word, a literal match is tried first, then "_", then "*".
func (g *Graph) Match(ctx context.Context, input, that, topic, botId string) (*core.Match, error) {
	if that == "" {
		that = core.Wildcard
	}
	if topic == "" {
		topic = core.Wildcard
	}
	path := core.Category{Pattern: input, That: that, Topic: topic}.Path()
	for i, w := range path {
		path[i] = strings.ToUpper(w)
	}

	g.RLock()
	defer g.RUnlock()

	root, have := g.roots[botId]
	if !have {
		return nil, core.NotFound
	}
	s := &search{words: path}
	if !root.match(s, 0, 0) {
		return nil, core.NotFound
	}
	return &core.Match{
		Category:   *s.found,
		Stars:      s.stars[0],
		ThatStars:  s.stars[1],
		TopicStars: s.stars[2],
	}, nil
}

// Load reads the rules at the location and adds them for the bot.
//
// The rules are read before the Graph is locked.
func (g *Graph) Load(ctx context.Context, location, botId string) (int, error) {
	rc, source, err := g.Loader.Open(ctx, location)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var cs core.Categories
	opts := []reader.Option{
		reader.WithDiagnostics(g.Diagnostics),
		reader.WithPolicy(g.Policy),
	}
	if g.Startup != nil {
		opts = append(opts, reader.WithStartup(g.Startup))
	}
	if g.WarnNonAIML != nil {
		opts = append(opts, reader.WarnNonAIML(g.WarnNonAIML...))
	}
	if _, err := reader.New(source, &cs, opts...).Read(ctx, rc); err != nil {
		return 0, fmt.Errorf("reading %s: %w", source, err)
	}

	g.Lock()
	fs := g.sources(botId)
	if _, have := fs[source]; !have {
		fs[source] = 0
	}
	for _, c := range cs {
		g.add(c, botId)
	}
	g.Unlock()

	g.Logger.Info("loaded", zap.String("source", source), zap.String("bot", botId), zap.Int("categories", len(cs)))

	return len(cs), nil
}

// Unload removes the bot's categories that came from the location.
func (g *Graph) Unload(ctx context.Context, location, botId string) (int, error) {
	source := g.Loader.Source(location)

	g.Lock()
	defer g.Unlock()

	root, have := g.roots[botId]
	if !have {
		return 0, nil
	}
	n := root.remove(source)
	g.count -= n
	if fs, have := g.files[botId]; have {
		if _, loaded := fs[source]; loaded {
			fs[source] = 0
		}
	}
	return n, nil
}

// Reload unloads and then loads the location for the bot.
func (g *Graph) Reload(ctx context.Context, location, botId string) (int, error) {
	if _, err := g.Unload(ctx, location, botId); err != nil {
		return 0, err
	}
	return g.Load(ctx, location, botId)
}

// Count gives the total number of categories for all bots.
func (g *Graph) Count() int {
	g.RLock()
	defer g.RUnlock()
	return g.count
}

// Files lists the sources loaded for the bot.
func (g *Graph) Files(botId string) []string {
	g.RLock()
	defer g.RUnlock()
	acc := make([]string, 0, len(g.files[botId]))
	for source, n := range g.files[botId] {
		if 0 < n {
			acc = append(acc, source)
		}
	}
	sort.Strings(acc)
	return acc
}

// Loaders returns the bots that have loaded the source.
func (g *Graph) Loaders(source string) []string {
	g.RLock()
	defer g.RUnlock()
	var acc []string
	for botId, fs := range g.files {
		if _, have := fs[source]; have {
			acc = append(acc, botId)
		}
	}
	sort.Strings(acc)
	return acc
}

// Categories returns all of the bot's categories.
func (g *Graph) Categories(botId string) []core.Category {
	g.RLock()
	defer g.RUnlock()
	var acc []core.Category
	var walk func(n *node)
	walk = func(n *node) {
		acc = append(acc, n.cats...)
		words := make([]string, 0, len(n.words))
		for w := range n.words {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			walk(n.words[w])
		}
		if n.single != nil {
			walk(n.single)
		}
		if n.multi != nil {
			walk(n.multi)
		}
	}
	if root, have := g.roots[botId]; have {
		walk(root)
	}
	return acc
}
