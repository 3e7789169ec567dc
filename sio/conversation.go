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

package sio

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/template"

	"go.uber.org/zap"
)

// NoMatch is shown when no category matches any sentence of the
// input.
const NoMatch = "(no match)"

var sentenceEnd = regexp.MustCompile(`[.!?;]+(\s+|$)`)

// Sentences splits input at sentence punctuation.  Empty sentences
// are dropped.
func Sentences(input string) []string {
	var acc []string
	for _, s := range sentenceEnd.Split(input, -1) {
		if s = strings.TrimSpace(s); s != "" {
			acc = append(acc, s)
		}
	}
	return acc
}

// Conversation answers input for a user of a bot.
//
// The previous response ("that"), the current topic, and the last
// input are kept as predicates.
type Conversation struct {
	Interpreter *template.Interpreter
	Logger      *zap.Logger
}

func NewConversation(in *template.Interpreter, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conversation{
		Interpreter: in,
		Logger:      logger,
	}
}

func (c *Conversation) get(ctx context.Context, key, userId, botId string) string {
	v, err := c.Interpreter.Predicates.Get(ctx, key, userId, botId)
	if err != nil && !errors.Is(err, core.NotFound) {
		c.Logger.Warn("predicate", zap.String("key", key), zap.Error(err))
	}
	return v
}

func (c *Conversation) set(ctx context.Context, key, userId, botId, value string) {
	if err := c.Interpreter.Predicates.Set(ctx, key, userId, botId, value); err != nil {
		c.Logger.Warn("predicate", zap.String("key", key), zap.Error(err))
	}
}

// Respond answers each sentence of the input in turn and joins the
// answers.
//
// Returns core.NotFound if no sentence matched.
func (c *Conversation) Respond(ctx context.Context, botId, userId, input string) (string, error) {
	in := c.Interpreter
	if in == nil || in.Index == nil || in.Predicates == nil {
		return "", errors.New("conversation is missing collaborators")
	}

	var (
		replies []string
		matched bool
	)
	for _, sentence := range Sentences(input) {
		normalized := match.Normalize(sentence)
		if normalized == "" {
			continue
		}

		that := c.get(ctx, "that", userId, botId)
		topic := c.get(ctx, "topic", userId, botId)

		thatPath := match.Normalize(that)
		if thatPath == "" {
			thatPath = core.Wildcard
		}
		topicPath := match.Normalize(topic)
		if topicPath == "" {
			topicPath = core.Wildcard
		}

		m, err := in.Index.Match(ctx, normalized, thatPath, topicPath, botId)
		if errors.Is(err, core.NotFound) {
			c.Logger.Debug("no match", zap.String("bot", botId), zap.String("input", normalized))
			continue
		}
		if err != nil {
			return "", err
		}
		matched = true

		env := &template.Env{
			BotID:  botId,
			UserID: userId,
			Input:  sentence,
			That:   that,
			Topic:  topic,
			Match:  m,
			Source: m.Category.Source,
		}
		reply, err := in.Process(ctx, m.Category.Template, env)
		if err != nil {
			return "", err
		}
		reply = strings.TrimSpace(reply)

		c.set(ctx, "input", userId, botId, sentence)
		if ss := Sentences(reply); 0 < len(ss) {
			c.set(ctx, "that", userId, botId, ss[len(ss)-1])
		}
		if reply != "" {
			replies = append(replies, reply)
		}
	}

	if !matched {
		return "", core.NotFound
	}
	return strings.Join(replies, " "), nil
}

// Render gives the text to show for a response.
func Render(response string, err error) string {
	switch {
	case errors.Is(err, core.NotFound):
		return NoMatch
	case err != nil:
		return "(error: " + err.Error() + ")"
	}
	return response
}
