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
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/subst"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"
)

// DefaultDateFormat is the strftime format for <date/> without a
// format attribute.
const DefaultDateFormat = "%A, %B %d, %Y %H:%M:%S %Z"

// Standard returns a Registry with the standard handlers plus any
// extras.
func Standard(extras ...map[string]Handler) *Registry {
	hs := map[string]Handler{
		"lowercase": Lowercase,
		"uppercase": Uppercase,
		"formal":    Formal,
		"sentence":  Sentence,
		"person":    Substitute(subst.Person),
		"person2":   Substitute(subst.Person2),
		"gender":    Substitute(subst.Gender),
		"sr":        SR,
		"srai":      Srai,
		"star":      Star,
		"thatstar":  ThatStar,
		"topicstar": TopicStar,
		"that":      That,
		"input":     Input,
		"get":       Get,
		"set":       Set,
		"bot":       Bot,
		"think":     Think,
		"random":    Random,
		"condition": Condition,
		"li":        Li,
		"learn":     Learn,
		"size":      Size,
		"date":      Date,
		"id":        ID,
		"version":   VersionTag,
		"gossip":    Gossip,
	}
	return NewRegistry(append([]map[string]Handler{hs}, extras...)...)
}

func children(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return in.EvaluateAll(ctx, e.Children, env)
}

func requireChildren(e *Element) error {
	if len(e.Children) == 0 {
		return &TemplateError{Tag: e.Name, Reason: "requires content"}
	}
	return nil
}

// index parses an index attribute ("2" or "2,1"), returning the first
// component.  Defaults to 1.
func index(e *Element) int {
	s, have := e.Attr("index")
	if !have {
		return 1
	}
	if i := strings.IndexByte(s, ','); 0 <= i {
		s = s[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func Lowercase(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	s, err := children(ctx, in, env, e)
	return strings.ToLower(s), err
}

func Uppercase(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	s, err := children(ctx, in, env, e)
	return strings.ToUpper(s), err
}

// Formal capitalizes each word.
func Formal(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	if err := requireChildren(e); err != nil {
		return "", err
	}
	s, err := children(ctx, in, env, e)
	if err != nil || s == "" {
		return "", err
	}
	return FormalText(s), nil
}

// FormalText upper-cases the first character and lower-cases the rest
// of each space-separated token.
func FormalText(s string) string {
	tokens := strings.Split(s, " ")
	for i, t := range tokens {
		if t == "" {
			continue
		}
		r, n := utf8.DecodeRuneInString(t)
		tokens[i] = string(unicode.ToUpper(r)) + strings.ToLower(t[n:])
	}
	return strings.Join(tokens, " ")
}

// Sentence capitalizes the first character.
func Sentence(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	if err := requireChildren(e); err != nil {
		return "", err
	}
	s, err := children(ctx, in, env, e)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(strings.TrimSpace(s)) <= 1 {
		return s, nil
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:], nil
}

// Substitute makes a Handler that applies the bot's substitution
// table of the given kind and then processes the result as template
// text.
func Substitute(kind subst.Kind) Handler {
	return func(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
		s, err := children(ctx, in, env, e)
		if err != nil {
			return "", err
		}
		if in.Subst != nil {
			s = in.Subst.Apply(env.BotID, kind, s)
		}
		ns, err := Parse(s)
		if err != nil {
			return s, nil
		}
		return in.EvaluateAll(ctx, ns, env)
	}
}

// SR only sees an <sr> with content since the childless form is
// rewritten.
func SR(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return "", &TemplateError{Tag: e.Name, Reason: "takes no content"}
}

// Srai evaluates its content and responds to that as input.
func Srai(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	s, err := children(ctx, in, env, e)
	if err != nil {
		return "", err
	}
	return in.Respond(ctx, s, env)
}

// Respond matches the input against the index and evaluates the
// matching template in a child environment.  No match gives an empty
// result.
func (in *Interpreter) Respond(ctx context.Context, input string, env *Env) (string, error) {
	if in.Index == nil {
		in.degrade(env, "match", errors.New("no rule index"))
		return "", nil
	}
	that := match.Normalize(env.That)
	if that == "" {
		that = core.Wildcard
	}
	topic := match.Normalize(env.Topic)
	if topic == "" {
		topic = core.Wildcard
	}
	m, err := in.Index.Match(ctx, match.Normalize(input), that, topic, env.BotID)
	if errors.Is(err, core.NotFound) {
		in.report(env, core.Info, "no match for "+strconv.Quote(input))
		return "", nil
	}
	if err != nil {
		in.degrade(env, "match", err)
		return "", nil
	}
	return in.Process(ctx, m.Category.Template, env.child(m))
}

func captures(env *Env, which string, e *Element) string {
	if env.Match == nil {
		return ""
	}
	var cs []string
	switch which {
	case "star":
		cs = env.Match.Stars
	case "thatstar":
		cs = env.Match.ThatStars
	case "topicstar":
		cs = env.Match.TopicStars
	}
	return core.Star(cs, index(e))
}

func Star(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return captures(env, "star", e), nil
}

func ThatStar(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return captures(env, "thatstar", e), nil
}

func TopicStar(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return captures(env, "topicstar", e), nil
}

// That gives the bot's previous response.  Only the most recent
// response is kept.
func That(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	if index(e) != 1 {
		return "", nil
	}
	return env.That, nil
}

// Input gives the current input.
func Input(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	if index(e) != 1 {
		return "", nil
	}
	return env.Input, nil
}

func nameAttr(e *Element) (string, error) {
	name, have := e.Attr("name")
	if !have || name == "" {
		return "", &TemplateError{Tag: e.Name, Reason: "requires a name attribute"}
	}
	return name, nil
}

// predicate gets a predicate value, degrading to "" on trouble.
func (in *Interpreter) predicate(ctx context.Context, env *Env, name string) string {
	if in.Predicates == nil {
		in.degrade(env, "get", errors.New("no predicates"))
		return ""
	}
	v, err := in.Predicates.Get(ctx, name, env.UserID, env.BotID)
	if errors.Is(err, core.NotFound) {
		return ""
	}
	if err != nil {
		in.degrade(env, "get", err)
		return ""
	}
	return v
}

func Get(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	name, err := nameAttr(e)
	if err != nil {
		return "", err
	}
	return in.predicate(ctx, env, name), nil
}

// Set stores the evaluated content and returns it.
func Set(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	name, err := nameAttr(e)
	if err != nil {
		return "", err
	}
	s, err := children(ctx, in, env, e)
	if err != nil {
		return "", err
	}
	if in.Predicates == nil {
		in.degrade(env, "set", errors.New("no predicates"))
		return s, nil
	}
	if err := in.Predicates.Set(ctx, name, env.UserID, env.BotID, s); err != nil {
		in.degrade(env, "set", err)
	}
	if name == "topic" {
		env.Topic = s
	}
	return s, nil
}

func Bot(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	name, err := nameAttr(e)
	if err != nil {
		return "", err
	}
	if in.Properties == nil {
		return "", nil
	}
	v, _ := in.Properties.Property(env.BotID, name)
	return v, nil
}

// Think evaluates its content for side effects only.
func Think(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	_, err := children(ctx, in, env, e)
	return "", err
}

// Random evaluates one of its <li> children.
func Random(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	lis := e.Elements("li")
	if len(lis) == 0 {
		return "", &TemplateError{Tag: e.Name, Reason: "requires at least one li"}
	}
	li := lis[in.Rand(len(lis))]
	return in.EvaluateAll(ctx, li.Children, env)
}

// Li only sees an <li> outside of <random> or <condition>.
func Li(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return "", &TemplateError{Tag: e.Name, Reason: "only allowed within random or condition"}
}

// matches reports whether a predicate value satisfies a condition
// value.  The condition value is a matching expression.
func matches(value, actual string) bool {
	if value == core.Wildcard {
		return actual != ""
	}
	_, ok := match.Match(strings.ToUpper(value), match.Normalize(actual))
	return ok
}

// Condition handles the three forms:
//
//	<condition name="n" value="v">...</condition>
//	<condition name="n"><li value="v">...</li>...<li>...</li></condition>
//	<condition><li name="n" value="v">...</li>...<li>...</li></condition>
func Condition(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	name, haveName := e.Attr("name")
	value, haveValue := e.Attr("value")

	if haveName && haveValue {
		if !matches(value, in.predicate(ctx, env, name)) {
			return "", nil
		}
		return children(ctx, in, env, e)
	}

	for _, li := range e.Elements("li") {
		n := name
		if x, have := li.Attr("name"); have {
			n = x
		}
		v, have := li.Attr("value")
		if !have {
			// Default item.
			return in.EvaluateAll(ctx, li.Children, env)
		}
		if n == "" {
			return "", &TemplateError{Tag: e.Name, Reason: "li with a value but no name"}
		}
		if matches(v, in.predicate(ctx, env, n)) {
			return in.EvaluateAll(ctx, li.Children, env)
		}
	}
	return "", nil
}

// Resolve interprets a location relative to the source of the
// current template.
func Resolve(source, location string) string {
	if source == "" || strings.Contains(location, "://") || filepath.IsAbs(location) {
		return location
	}
	if strings.Contains(source, "://") {
		base, err := url.Parse(source)
		if err != nil {
			return location
		}
		ref, err := url.Parse(location)
		if err != nil {
			return location
		}
		return base.ResolveReference(ref).String()
	}
	return filepath.Join(filepath.Dir(source), location)
}

// Learn loads rules from the location given by its content.
func Learn(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	s, err := children(ctx, in, env, e)
	if err != nil {
		return "", err
	}
	location := strings.TrimSpace(s)
	if location == "" {
		return "", &TemplateError{Tag: e.Name, Reason: "requires a location"}
	}
	if in.Index == nil {
		in.degrade(env, "learn", errors.New("no rule index"))
		return "", nil
	}
	location = Resolve(env.Source, location)
	n, err := in.Index.Load(ctx, location, env.BotID)
	if err != nil {
		in.degrade(env, "learn", err)
		return "", nil
	}
	in.Logger.Info("learned", zap.String("location", location), zap.String("bot", env.BotID), zap.Int("categories", n))
	return "", nil
}

// Size gives the number of categories loaded.
func Size(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	if in.Index == nil {
		return "0", nil
	}
	return strconv.Itoa(in.Index.Count()), nil
}

// Date formats the current time with an optional strftime format
// attribute.
func Date(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	format, have := e.Attr("format")
	if !have {
		format = DefaultDateFormat
	}
	return strftime.Format(format, in.Now()), nil
}

func ID(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return env.UserID, nil
}

func VersionTag(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	return in.Version, nil
}

// Gossip logs its content.
func Gossip(ctx context.Context, in *Interpreter, env *Env, e *Element) (string, error) {
	s, err := children(ctx, in, env, e)
	if err != nil {
		return "", err
	}
	in.Logger.Info("gossip", zap.String("bot", env.BotID), zap.String("user", env.UserID), zap.String("text", s))
	return "", nil
}
