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

// Package match implements the pattern validator and a small wildcard
// matcher for rule-matching expressions.
//
// An expression is a sequence of whitespace-separated tokens.  Each
// token is either a literal word or one of two wildcards: '_', which
// matches exactly one word, and '*', which matches one or more words.
package match

import (
	"strings"
	"unicode"

	"github.com/Comcast/aiml/core"
)

// Matcher carries the policy knobs for validating an expression.
type Matcher struct {
	// AllowAdjacentWildcards permits expressions like "* *" or
	// "_ *".
	AllowAdjacentWildcards bool `json:"allowAdjacentWildcards" yaml:"allowAdjacentWildcards"`

	// AllowSoleWildcard permits an expression that is just a
	// wildcard (like "*").  Topic and <that> usually need this
	// because they default to "*".
	AllowSoleWildcard bool `json:"allowSoleWildcard" yaml:"allowSoleWildcard"`

	// Normalize upper-cases the expression before checking it.
	// Without it, lower-case letters are an error.
	Normalize bool `json:"normalize" yaml:"normalize"`
}

// DefaultMatcher is the Matcher used when none is given.
var DefaultMatcher = &Matcher{
	AllowAdjacentWildcards: true,
	AllowSoleWildcard:      true,
	Normalize:              true,
}

// IsWildcard reports if the token is one of the two wildcards.
func IsWildcard(token string) bool {
	return token == core.Wildcard || token == core.SingleWildcard
}

// Validate checks that the expression is well-formed.
//
// The returned error, if any, is a *NotAPattern.
func (m *Matcher) Validate(expr string) error {
	if m == nil {
		m = DefaultMatcher
	}

	if m.Normalize {
		expr = strings.ToUpper(expr)
	}

	tokens := strings.Fields(expr)
	if len(tokens) == 0 {
		return &NotAPattern{expr, "empty expression"}
	}

	if len(tokens) == 1 && IsWildcard(tokens[0]) && !m.AllowSoleWildcard {
		return &NotAPattern{expr, "expression is only a wildcard"}
	}

	previousWild := false
	for _, token := range tokens {
		if IsWildcard(token) {
			if previousWild && !m.AllowAdjacentWildcards {
				return &NotAPattern{expr, "adjacent wildcards"}
			}
			previousWild = true
			continue
		}
		previousWild = false
		for _, r := range token {
			switch {
			case unicode.IsDigit(r):
			case unicode.IsLetter(r):
				if unicode.IsLower(r) {
					return &NotAPattern{expr, "lower-case letter in \"" + token + "\""}
				}
			case r == '*' || r == '_':
				return &NotAPattern{expr, "wildcard inside word \"" + token + "\""}
			default:
				return &NotAPattern{expr, "bad character '" + string(r) + "' in \"" + token + "\""}
			}
		}
	}

	return nil
}

// Slot names one of the three matching-expression slots of a
// Category.
type Slot int

const (
	PatternSlot Slot = iota
	ThatSlot
	TopicSlot
)

func (s Slot) String() string {
	switch s {
	case PatternSlot:
		return "pattern"
	case ThatSlot:
		return "that"
	case TopicSlot:
		return "topic"
	}
	return "unknown"
}

// Policy gives each slot its own Matcher.
//
// The historical rules differ per slot, so each one is configurable
// on its own.  A nil Matcher means DefaultMatcher.
type Policy struct {
	Pattern *Matcher `json:"pattern,omitempty" yaml:",omitempty"`
	That    *Matcher `json:"that,omitempty" yaml:",omitempty"`
	Topic   *Matcher `json:"topic,omitempty" yaml:",omitempty"`
}

// DefaultPolicy gives every slot a copy of DefaultMatcher.
func DefaultPolicy() *Policy {
	m := func() *Matcher {
		m := *DefaultMatcher
		return &m
	}
	return &Policy{
		Pattern: m(),
		That:    m(),
		Topic:   m(),
	}
}

// Matcher returns the Matcher for the slot.
func (p *Policy) Matcher(s Slot) *Matcher {
	if p == nil {
		return DefaultMatcher
	}
	var m *Matcher
	switch s {
	case PatternSlot:
		m = p.Pattern
	case ThatSlot:
		m = p.That
	case TopicSlot:
		m = p.Topic
	}
	if m == nil {
		m = DefaultMatcher
	}
	return m
}

// Check validates the pattern, that, and topic of the Category.
//
// The returned error, if any, is a *BadSlot.
func (p *Policy) Check(c core.Category) error {
	slots := []struct {
		slot Slot
		expr string
	}{
		{PatternSlot, c.Pattern},
		{ThatSlot, c.That},
		{TopicSlot, c.Topic},
	}
	for _, s := range slots {
		if err := p.Matcher(s.slot).Validate(s.expr); err != nil {
			return &BadSlot{s.slot, err.(*NotAPattern)}
		}
	}
	return nil
}
