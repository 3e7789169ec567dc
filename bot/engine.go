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

package bot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/graph"
	jsi "github.com/Comcast/aiml/interpreters/goja"
	"github.com/Comcast/aiml/predicates"
	"github.com/Comcast/aiml/predicates/bolt"
	"github.com/Comcast/aiml/predicates/sqlite"
	"github.com/Comcast/aiml/reader"
	"github.com/Comcast/aiml/subst"
	"github.com/Comcast/aiml/template"

	"go.uber.org/zap"
)

// Engine assembles the collaborators that a conversation needs: the
// rule index, bot properties, substitutions, predicates, and a
// template interpreter.
type Engine struct {
	Config      *Config
	Logger      *zap.Logger
	Diagnostics core.Diagnostics

	Graph       *graph.Graph
	Bots        *Bots
	Subst       *subst.Set
	Predicates  *predicates.Defaulted
	Interpreter *template.Interpreter

	closer io.Closer
}

// NewEngine makes an Engine from the Config.  Rule files are not
// loaded until LoadFiles.
func NewEngine(cfg *Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		Config:      cfg,
		Logger:      logger,
		Diagnostics: core.NewZapDiagnostics(logger),
		Bots:        NewBots(),
		Subst:       subst.NewSet(),
	}

	store, closer, err := openPredicates(cfg.Predicates, logger)
	if err != nil {
		return nil, err
	}
	e.closer = closer
	e.Predicates = predicates.WithDefaults(store, nil)

	g := graph.NewGraph(nil)
	g.Policy = cfg.Validation
	g.Diagnostics = e.Diagnostics
	g.Logger = logger
	e.Graph = g

	var extras []map[string]template.Handler
	if cfg.Javascript {
		js := jsi.NewInterpreter()
		js.Logger = logger
		extras = append(extras, jsi.Handlers(js))
	}
	registry := template.Standard(extras...)

	if cfg.Reader.WarnNonAIML {
		g.WarnNonAIML = append(registry.Names(), reader.StructuralNames...)
	}
	g.Startup = &Startup{
		Bots:     e.Bots,
		Subst:    e.Subst,
		Defaults: e.Predicates,
		Index:    g,
		Logger:   logger,
	}

	e.Interpreter = template.NewInterpreter(registry,
		template.WithIndex(g),
		template.WithPredicates(e.Predicates),
		template.WithSubstitutions(e.Subst),
		template.WithProperties(e.Bots),
		template.WithDiagnostics(e.Diagnostics),
		template.WithLogger(logger),
		template.WithMaxDepth(cfg.Interpreter.MaxDepth))

	for _, bc := range cfg.Bots {
		e.apply(bc)
	}

	return e, nil
}

func openPredicates(cfg PredicatesConfig, logger *zap.Logger) (core.Predicates, io.Closer, error) {
	switch cfg.Backend {
	case "bolt":
		s := bolt.NewStore(cfg.Path)
		s.Logger = logger
		if err := s.Open(); err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
		}
		return s, s, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		s.Logger = logger
		return s, s, nil
	default:
		return predicates.NewMemory(), nil, nil
	}
}

func (e *Engine) apply(bc *BotConfig) {
	b := e.Bots.Ensure(bc.ID)
	for name, value := range bc.Properties {
		b.SetProperty(name, value)
	}
	for name, value := range bc.Predicates {
		e.Predicates.SetDefault(bc.ID, name, value)
	}
	for kind, subs := range bc.Substitutions {
		for _, s := range subs {
			e.Subst.Add(bc.ID, subst.Kind(kind), s.Find, s.Replace)
		}
	}
}

// LoadFiles loads every configured bot's rule files.  A file that
// fails to load doesn't stop the others.
func (e *Engine) LoadFiles(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for _, bc := range e.Config.Bots {
		for _, location := range bc.Files {
			n, err := Learn(ctx, e.Graph, "", location, bc.ID)
			total += n
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	e.Logger.Info("rules loaded", zap.Int("categories", total), zap.Int("total", e.Graph.Count()))
	return total, errors.Join(errs...)
}

// Load loads the rules at the location for the bot.  A source the
// bot has already loaded is reloaded.
func (e *Engine) Load(ctx context.Context, location, botId string) (int, error) {
	e.Bots.Ensure(botId)
	loaded := make(map[string]bool)
	for _, source := range e.Files(botId) {
		loaded[source] = true
	}
	total := 0
	var errs []error
	for _, l := range Locations("", location) {
		load := e.Graph.Load
		if loaded[e.Graph.Loader.Source(l)] {
			load = e.Graph.Reload
		}
		n, err := load(ctx, l, botId)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// Unload removes the bot's rules that came from the location.
func (e *Engine) Unload(ctx context.Context, location, botId string) (int, error) {
	return e.Graph.Unload(ctx, location, botId)
}

// Files lists the sources loaded for the bot.
func (e *Engine) Files(botId string) []string {
	return e.Graph.Files(botId)
}

// BotIDs lists the known bots.
func (e *Engine) BotIDs() []string {
	return e.Bots.IDs()
}

// Reload reloads every source each bot has loaded.
func (e *Engine) Reload(ctx context.Context) error {
	var errs []error
	for _, botId := range e.BotIDs() {
		for _, source := range e.Files(botId) {
			if _, err := e.Graph.Reload(ctx, source, botId); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases the predicate store.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
