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

// Package subst implements ordered, case-insensitive, whole-word
// find/replace tables.  The person, person2, and gender template tags
// use these tables.
package subst

import (
	"strings"
	"sync"
	"unicode"
)

// Kind names a substitution table.
type Kind string

const (
	Gender  Kind = "gender"
	Person  Kind = "person"
	Person2 Kind = "person2"
)

// Kinds lists the known Kinds.
var Kinds = []Kind{Gender, Person, Person2}

// Table is an ordered mapping from an upper-cased find key to a
// literal replacement.
//
// A key can contain more than one word.  Population is append-only,
// and the last Add for a key wins (while the key keeps its original
// position).  A Table should be fully populated before concurrent
// use.
type Table struct {
	keys     []string
	replace  map[string]string
	maxWords int
}

func NewTable() *Table {
	return &Table{
		keys:    make([]string, 0, 16),
		replace: make(map[string]string, 16),
	}
}

func normalizeKey(find string) string {
	return strings.Join(strings.Fields(strings.ToUpper(find)), " ")
}

// Add adds (or replaces) a substitution.  An empty find is ignored.
func (t *Table) Add(find, replace string) {
	key := normalizeKey(find)
	if key == "" {
		return
	}
	if _, have := t.replace[key]; !have {
		t.keys = append(t.keys, key)
		if n := strings.Count(key, " ") + 1; t.maxWords < n {
			t.maxWords = n
		}
	}
	t.replace[key] = replace
}

// clone copies the Table.  A nil Table clones to an empty one.
func (t *Table) clone() *Table {
	c := NewTable()
	if t == nil {
		return c
	}
	c.keys = append(c.keys, t.keys...)
	for k, v := range t.replace {
		c.replace[k] = v
	}
	c.maxWords = t.maxWords
	return c
}

// Len gives the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in the order they were first added.
func (t *Table) Keys() []string {
	acc := make([]string, len(t.keys))
	copy(acc, t.keys)
	return acc
}

// Lookup returns the replacement for the given find string.
func (t *Table) Lookup(find string) (string, bool) {
	if t == nil {
		return "", false
	}
	r, have := t.replace[normalizeKey(find)]
	return r, have
}

// span is a word or a run of space in the input.
type span struct {
	s     string
	space bool
}

func split(input string) []span {
	acc := make([]span, 0, 16)
	start := 0
	inSpace := false
	for i, r := range input {
		sp := unicode.IsSpace(r)
		if i == 0 {
			inSpace = sp
			continue
		}
		if sp != inSpace {
			acc = append(acc, span{input[start:i], inSpace})
			start = i
			inSpace = sp
		}
	}
	if start < len(input) {
		acc = append(acc, span{input[start:], inSpace})
	}
	return acc
}

// Apply performs whole-word substitutions from the table on the
// input.
//
// Each word's upper-cased form is looked up.  When keys span several
// words, the longest key that matches at a position wins.  Words that
// don't match pass through unchanged, and replacement text is inserted
// verbatim.  Replacements are not themselves subject to further
// substitution.
func Apply(t *Table, input string) string {
	if t.Len() == 0 || input == "" {
		return input
	}

	spans := split(input)

	var b strings.Builder
	b.Grow(len(input))

	for i := 0; i < len(spans); {
		if spans[i].space {
			b.WriteString(spans[i].s)
			i++
			continue
		}

		// Try the longest key first.
		matched := false
		for n := t.maxWords; 0 < n; n-- {
			words := make([]string, 0, n)
			j := i
			for ; j < len(spans) && len(words) < n; j++ {
				if !spans[j].space {
					words = append(words, strings.ToUpper(spans[j].s))
				}
			}
			if len(words) < n {
				continue
			}
			if r, have := t.replace[strings.Join(words, " ")]; have {
				b.WriteString(r)
				i = j
				matched = true
				break
			}
		}
		if !matched {
			b.WriteString(spans[i].s)
			i++
		}
	}

	return b.String()
}

// Set holds Tables per bot and per Kind.
//
// Add never modifies a Table that Table has returned.  It adds to a
// copy and then replaces the stored Table, so Add and Apply can run
// concurrently.  A Table returned before an Add doesn't see that Add.
type Set struct {
	sync.RWMutex
	tables map[string]map[Kind]*Table
}

func NewSet() *Set {
	return &Set{
		tables: make(map[string]map[Kind]*Table),
	}
}

// Add adds a substitution to the bot's table of the given kind.
func (s *Set) Add(botId string, kind Kind, find, replace string) {
	s.Lock()
	defer s.Unlock()
	ts, have := s.tables[botId]
	if !have {
		ts = make(map[Kind]*Table, len(Kinds))
		s.tables[botId] = ts
	}
	t := ts[kind].clone()
	t.Add(find, replace)
	ts[kind] = t
}

// Table returns the bot's table of the given kind, which might be
// nil.  Apply treats a nil Table as empty.
func (s *Set) Table(botId string, kind Kind) *Table {
	if s == nil {
		return nil
	}
	s.RLock()
	defer s.RUnlock()
	return s.tables[botId][kind]
}

// Apply is a convenience method that calls Apply with the bot's table
// of the given kind.
func (s *Set) Apply(botId string, kind Kind, input string) string {
	return Apply(s.Table(botId, kind), input)
}
