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

package reader

import (
	"bytes"
	"strings"
)

// Tag is a member of the small, fixed structural vocabulary that the
// reader recognizes.  Everything else is just text.
type Tag int

const (
	NoTag Tag = iota
	RootOpen
	RootClose
	TopicOpen
	TopicClose
	CategoryOpen
	CategoryClose
	PatternOpen
	PatternClose
	ThatOpen
	ThatClose
	TemplateOpen
	TemplateClose
	StartupOpen
	StartupClose
)

// tagSpec says how to recognize a Tag.
type tagSpec struct {
	// Literal is what the tag starts with.
	Literal string

	// Attrs means the Literal is followed by either '>' or
	// whitespace, attributes, and '>'.  Otherwise the Literal is
	// the whole tag.
	Attrs bool
}

var vocabulary = map[Tag]tagSpec{
	RootOpen:      {"<aiml", true},
	RootClose:     {"</aiml>", false},
	TopicOpen:     {"<topic", true},
	TopicClose:    {"</topic>", false},
	CategoryOpen:  {"<category", true},
	CategoryClose: {"</category>", false},
	PatternOpen:   {"<pattern", true},
	PatternClose:  {"</pattern>", false},
	ThatOpen:      {"<that", true},
	ThatClose:     {"</that>", false},
	TemplateOpen:  {"<template", true},
	TemplateClose: {"</template>", false},
	StartupOpen:   {"<programd-startup", true},
	StartupClose:  {"</programd-startup>", false},
}

// tagOrder gives a stable order for trying the vocabulary.
var tagOrder = []Tag{
	RootOpen, RootClose, TopicOpen, TopicClose, CategoryOpen,
	CategoryClose, PatternOpen, PatternClose, ThatOpen, ThatClose,
	TemplateOpen, TemplateClose, StartupOpen, StartupClose,
}

func (t Tag) String() string {
	spec, have := vocabulary[t]
	if !have {
		return "<?>"
	}
	if spec.Attrs {
		return spec.Literal + ">"
	}
	return spec.Literal
}

// StructuralNames are the element names of the structural
// vocabulary.
var StructuralNames = []string{
	"aiml", "topic", "category", "pattern", "that", "template", "programd-startup",
}

// matchStatus is the result of trying to recognize a tag at a
// position.
type matchStatus int

const (
	noMatch matchStatus = iota
	matched
	needMore // The buffer ends before we can tell.
)

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// matchSpec tries to recognize the spec at buf[at:].  When matched,
// returns the index just after the tag and the raw attribute text.
func matchSpec(buf []byte, at int, spec tagSpec) (int, string, matchStatus) {
	rest := buf[at:]
	lit := spec.Literal
	if len(rest) < len(lit) {
		if strings.HasPrefix(lit, string(rest)) {
			return 0, "", needMore
		}
		return 0, "", noMatch
	}
	if !bytes.HasPrefix(rest, []byte(lit)) {
		return 0, "", noMatch
	}
	if !spec.Attrs {
		return at + len(lit), "", matched
	}
	if len(rest) == len(lit) {
		return 0, "", needMore
	}
	switch c := rest[len(lit)]; {
	case c == '>':
		return at + len(lit) + 1, "", matched
	case isSpace(c):
	default:
		return 0, "", noMatch
	}
	end := bytes.IndexByte(rest[len(lit):], '>')
	if end < 0 {
		return 0, "", needMore
	}
	end += len(lit)
	attrs := string(rest[len(lit):end])
	if strings.HasSuffix(strings.TrimSpace(attrs), "/") {
		// Empty element like <that/>, which isn't structural.
		return 0, "", noMatch
	}
	return at + end + 1, attrs, matched
}

// tagAt identifies the structural tag (if any) at buf[at:].
func tagAt(buf []byte, at int) (Tag, int, string, matchStatus) {
	more := false
	for _, t := range tagOrder {
		end, attrs, status := matchSpec(buf, at, vocabulary[t])
		switch status {
		case matched:
			return t, end, attrs, matched
		case needMore:
			more = true
		}
	}
	if more {
		return NoTag, 0, "", needMore
	}
	return NoTag, 0, "", noMatch
}

// attr extracts the named attribute's value from raw attribute
// text.
func attr(attrs, name string) (string, bool) {
	s := attrs
	for {
		i := strings.Index(s, name)
		if i < 0 {
			return "", false
		}
		// Must be a whole attribute name.
		if 0 < i && !isSpace(s[i-1]) {
			s = s[i+len(name):]
			continue
		}
		r := strings.TrimLeft(s[i+len(name):], " \t\r\n")
		if !strings.HasPrefix(r, "=") {
			s = s[i+len(name):]
			continue
		}
		r = strings.TrimLeft(r[1:], " \t\r\n")
		if r == "" {
			return "", false
		}
		q := r[0]
		if q != '"' && q != '\'' {
			return "", false
		}
		end := strings.IndexByte(r[1:], q)
		if end < 0 {
			return "", false
		}
		return r[1 : 1+end], true
	}
}

// elementName gives the name of the element starting at buf[at]
// (which is a '<').
func elementName(buf []byte, at int) string {
	i := at + 1
	for i < len(buf) {
		c := buf[i]
		if isSpace(c) || c == '>' || c == '/' && at+1 < i {
			break
		}
		i++
	}
	return string(buf[at+1 : i])
}
