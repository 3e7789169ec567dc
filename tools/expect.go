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
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Comcast/aiml/core"

	"gopkg.in/yaml.v2"
)

// Exchange is an input and the response that's expected.
type Exchange struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Input string `json:"input" yaml:"input"`

	// Want, if not empty, is the exact response.
	Want string `json:"want,omitempty" yaml:"want,omitempty"`

	// Match, if not empty, is a regular expression that the
	// response must match.
	Match string `json:"match,omitempty" yaml:"match,omitempty"`

	// NoMatch expects that no category matches the input.
	NoMatch bool `json:"noMatch,omitempty" yaml:"noMatch,omitempty"`
}

// Script is a conversation with a bot that should go as planned.
type Script struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Bot  string `json:"bot" yaml:"bot"`
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	Exchanges []Exchange `json:"exchanges" yaml:"exchanges"`
}

// Responder answers input.  A sio.Conversation is a Responder.
type Responder interface {
	Respond(ctx context.Context, botId, userId, input string) (string, error)
}

// Failure is an Exchange that didn't go as planned.
type Failure struct {
	Index int
	Input string
	Got   string
	Want  string
}

func (f Failure) String() string {
	return fmt.Sprintf("%d %q: got %q; wanted %s", f.Index, f.Input, f.Got, f.Want)
}

type ScriptError struct {
	Failures []Failure
}

func (e *ScriptError) Error() string {
	acc := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		acc[i] = f.String()
	}
	return fmt.Sprintf("%d failed exchange(s): %s", len(e.Failures), strings.Join(acc, "; "))
}

// ParseScript parses a YAML Script.
func ParseScript(bs []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	if s.Bot == "" {
		return nil, errors.New("script has no bot")
	}
	if s.User == "" {
		s.User = "script"
	}
	for i, x := range s.Exchanges {
		if x.Match != "" {
			if _, err := regexp.Compile(x.Match); err != nil {
				return nil, fmt.Errorf("exchange %d: %w", i, err)
			}
		}
	}
	return &s, nil
}

func ReadScript(filename string) (*Script, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	s, err := ParseScript(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// Run sends each input in order.  Every Exchange runs even after a
// failure.  Errors other than failed expectations stop the Script.
func (s *Script) Run(ctx context.Context, r Responder) error {
	var failures []Failure
	for i, x := range s.Exchanges {
		got, err := r.Respond(ctx, s.Bot, s.User, x.Input)
		fail := func(want string) {
			failures = append(failures, Failure{
				Index: i,
				Input: x.Input,
				Got:   got,
				Want:  want,
			})
		}
		switch {
		case errors.Is(err, core.NotFound):
			if !x.NoMatch {
				got = "(no match)"
				fail(expectation(x))
			}
			continue
		case err != nil:
			return fmt.Errorf("exchange %d: %w", i, err)
		case x.NoMatch:
			fail("no match")
			continue
		}
		if x.Want != "" && got != x.Want {
			fail(expectation(x))
			continue
		}
		if x.Match != "" && !regexp.MustCompile(x.Match).MatchString(got) {
			fail(expectation(x))
		}
	}
	if failures != nil {
		return &ScriptError{Failures: failures}
	}
	return nil
}

func expectation(x Exchange) string {
	if x.Want != "" {
		return fmt.Sprintf("%q", x.Want)
	}
	if x.Match != "" {
		return "/" + x.Match + "/"
	}
	return "a match"
}
