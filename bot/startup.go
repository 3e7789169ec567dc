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
	"path/filepath"
	"sort"
	"strings"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/predicates"
	"github.com/Comcast/aiml/subst"
	"github.com/Comcast/aiml/template"

	"go.uber.org/zap"
)

// Startup processes startup blocks:
//
//	<programd-startup>
//	  <bots>
//	    <bot id="alice" enabled="true">
//	      <property name="name" value="Alice"/>
//	      <predicates><predicate name="name" default="friend"/></predicates>
//	      <substitutions>
//	        <gender><substitute find="he" replace="she"/></gender>
//	      </substitutions>
//	      <learn>rules/*.aiml</learn>
//	    </bot>
//	  </bots>
//	</programd-startup>
type Startup struct {
	Bots     *Bots
	Subst    *subst.Set
	Defaults *predicates.Defaulted
	Index    core.RuleIndex
	Logger   *zap.Logger
}

// ProcessStartup implements reader.StartupProcessor.
//
// Problems with one bot don't stop the processing of the others.
func (s *Startup) ProcessStartup(ctx context.Context, source, content string) error {
	ns, err := template.Parse(content)
	if err != nil {
		return &StartupError{Source: source, Problem: err.Error()}
	}

	var errs []error
	var walk func(ns []template.Node)
	walk = func(ns []template.Node) {
		for _, n := range ns {
			e, is := n.(*template.Element)
			if !is {
				continue
			}
			switch e.Name {
			case "bots":
				walk(e.Children)
			case "bot":
				if err := s.bot(ctx, source, e); err != nil {
					errs = append(errs, err)
				}
			default:
				s.logger().Debug("ignoring startup element", zap.String("element", e.Name))
			}
		}
	}
	walk(ns)

	return errors.Join(errs...)
}

func (s *Startup) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Startup) bot(ctx context.Context, source string, e *template.Element) error {
	id, _ := e.Attr("id")
	if id == "" {
		return &StartupError{Source: source, Problem: "bot without an id"}
	}
	if enabled, have := e.Attr("enabled"); have && enabled == "false" {
		s.logger().Info("bot disabled", zap.String("bot", id))
		return nil
	}
	b := s.Bots.Ensure(id)

	var errs []error
	for _, n := range e.Children {
		c, is := n.(*template.Element)
		if !is {
			continue
		}
		switch c.Name {
		case "property":
			name, _ := c.Attr("name")
			value, _ := c.Attr("value")
			if name == "" {
				errs = append(errs, &StartupError{Source: source, Problem: "property without a name for " + id})
				continue
			}
			b.SetProperty(name, value)
		case "predicates":
			for _, p := range c.Elements("predicate") {
				name, _ := p.Attr("name")
				def, _ := p.Attr("default")
				if name != "" && s.Defaults != nil {
					s.Defaults.SetDefault(id, name, def)
				}
			}
		case "substitutions":
			s.substitutions(id, c)
		case "learn":
			location := strings.TrimSpace(textOf(c))
			if _, err := Learn(ctx, s.Index, source, location, id); err != nil {
				errs = append(errs, err)
			}
		default:
			s.logger().Debug("ignoring bot element", zap.String("bot", id), zap.String("element", c.Name))
		}
	}
	return errors.Join(errs...)
}

func (s *Startup) substitutions(id string, e *template.Element) {
	if s.Subst == nil {
		return
	}
	for _, kind := range subst.Kinds {
		for _, table := range e.Elements(string(kind)) {
			for _, sub := range table.Elements("substitute") {
				find, _ := sub.Attr("find")
				replace, _ := sub.Attr("replace")
				if find == "" {
					continue
				}
				s.Subst.Add(id, kind, find, replace)
			}
		}
	}
}

func textOf(e *template.Element) string {
	var b strings.Builder
	for _, n := range e.Children {
		if t, is := n.(template.Text); is {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// Locations expands a rule location relative to the source it was
// named in.  File names can be globs.
func Locations(source, location string) []string {
	location = template.Resolve(source, strings.TrimPrefix(location, "file://"))
	if strings.Contains(location, "://") || !strings.ContainsAny(location, "*?[") {
		return []string{location}
	}
	matches, err := filepath.Glob(location)
	if err != nil {
		return []string{location}
	}
	sort.Strings(matches)
	return matches
}

// Learn loads every location that the (possibly glob) location
// names.  Returns the number of categories loaded.
func Learn(ctx context.Context, index core.RuleIndex, source, location, botId string) (int, error) {
	if index == nil {
		return 0, errors.New("no rule index")
	}
	total := 0
	var errs []error
	for _, l := range Locations(source, location) {
		n, err := index.Load(ctx, l, botId)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}
