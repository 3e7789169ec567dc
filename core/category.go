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

package core

import "strings"

const (
	// Wildcard is the multi-word wildcard.  A missing <that> or
	// topic defaults to this single token.
	Wildcard = "*"

	// SingleWildcard matches exactly one word.
	SingleWildcard = "_"
)

// Category is one rule unit.
//
// Pattern and Template are never empty for a Category that a reader
// delivered.  That and Topic default to Wildcard.
//
// A Category is immutable once emitted.
type Category struct {
	Pattern  string `json:"pattern"`
	That     string `json:"that,omitempty" yaml:",omitempty"`
	Topic    string `json:"topic,omitempty" yaml:",omitempty"`
	Template string `json:"template"`

	// Source identifies where the Category came from (usually a
	// filename or URL).  Used to unload rules by source.
	Source string `json:"source,omitempty" yaml:",omitempty"`

	// Line is the line in Source where the Category began.
	Line int `json:"line,omitempty" yaml:",omitempty"`
}

// NewCategory makes a Category with the default That and Topic.
func NewCategory(pattern, template string) Category {
	return Category{
		Pattern:  pattern,
		That:     Wildcard,
		Topic:    Wildcard,
		Template: template,
	}
}

// Tuple returns the four rule slots.  Provenance is not included.
func (c Category) Tuple() [4]string {
	return [4]string{c.Pattern, c.That, c.Topic, c.Template}
}

// Path gives the words that a RuleIndex would use to store this
// Category: pattern words, then "<THAT>" and that words, then
// "<TOPIC>" and topic words.
func (c Category) Path() []string {
	that, topic := c.That, c.Topic
	if that == "" {
		that = Wildcard
	}
	if topic == "" {
		topic = Wildcard
	}
	acc := make([]string, 0, 16)
	acc = append(acc, strings.Fields(c.Pattern)...)
	acc = append(acc, ThatMarker)
	acc = append(acc, strings.Fields(that)...)
	acc = append(acc, TopicMarker)
	acc = append(acc, strings.Fields(topic)...)
	return acc
}

const (
	// ThatMarker separates pattern words from <that> words in a
	// Category.Path.
	ThatMarker = "<THAT>"

	// TopicMarker separates <that> words from topic words in a
	// Category.Path.
	TopicMarker = "<TOPIC>"
)

// CategorySink consumes categories.
//
// A reader calls AcceptCategory once per valid Category it finds.  An
// error from AcceptCategory is reported as a diagnostic; it does not
// stop the scan.
type CategorySink interface {
	AcceptCategory(Category) error
}

// CategorySinkFunc adapts a function to a CategorySink.
type CategorySinkFunc func(Category) error

func (f CategorySinkFunc) AcceptCategory(c Category) error {
	return f(c)
}

// Categories is a CategorySink that just collects what it's given.
type Categories []Category

func (cs *Categories) AcceptCategory(c Category) error {
	*cs = append(*cs, c)
	return nil
}

// Match is the result of resolving an input against a RuleIndex.
type Match struct {
	Category Category

	// Stars are the input segments captured by wildcards in the
	// pattern, in order.
	Stars []string

	// ThatStars are the captures from the <that> side.
	ThatStars []string

	// TopicStars are the captures from the topic side.
	TopicStars []string
}

// Star returns the i-th (1-based) capture from the given captures,
// or the empty string.
func Star(captures []string, i int) string {
	if i < 1 || len(captures) < i {
		return ""
	}
	return captures[i-1]
}
