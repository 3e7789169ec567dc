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

package match

import (
	"strings"
	"unicode"
)

// Normalize prepares conversational input for matching: letters are
// upper-cased, apostrophes are dropped, other punctuation becomes
// space, and runs of space are collapsed.
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	space := true
	for _, r := range input {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			space = false
		case r == '\'':
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Match matches the expression against the input, which should
// already be normalized.  Returns the wildcard captures in order.
//
// An empty expression matches only empty input.
func Match(expr, input string) ([]string, bool) {
	return Words(strings.Fields(strings.ToUpper(expr)), strings.Fields(input))
}

// Words matches expression tokens against input words.
//
// Literal words are tried first, then '_' and then '*'.  '*' takes as
// few words as it can.
func Words(tokens, words []string) ([]string, bool) {
	stars := make([]string, 0, 4)
	if words_(tokens, words, &stars) {
		return stars, true
	}
	return nil, false
}

func words_(tokens, words []string, stars *[]string) bool {
	if len(tokens) == 0 {
		return len(words) == 0
	}
	if len(words) == 0 {
		return false
	}

	switch t := tokens[0]; t {
	case "_":
		*stars = append(*stars, words[0])
		if words_(tokens[1:], words[1:], stars) {
			return true
		}
		*stars = (*stars)[:len(*stars)-1]
		return false
	case "*":
		for n := 1; n <= len(words); n++ {
			*stars = append(*stars, strings.Join(words[:n], " "))
			if words_(tokens[1:], words[n:], stars) {
				return true
			}
			*stars = (*stars)[:len(*stars)-1]
		}
		return false
	default:
		if !strings.EqualFold(t, words[0]) {
			return false
		}
		return words_(tokens[1:], words[1:], stars)
	}
}
