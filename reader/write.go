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
	"bufio"
	"io"

	"github.com/Comcast/aiml/core"
)

// Write renders categories as rule-language markup.
//
// Consecutive categories with the same topic share a <topic> block.
// A <that> element is only written when the that slot isn't the
// wildcard.  Reading the output gives back the same tuples.
func Write(w io.Writer, cs []core.Category) error {
	out := bufio.NewWriter(w)
	put := func(ss ...string) {
		for _, s := range ss {
			out.WriteString(s)
		}
	}

	put(`<?xml version="1.0" encoding="UTF-8"?>`, "\n", `<aiml version="1.0">`, "\n")

	topic := core.Wildcard
	for _, c := range cs {
		t := c.Topic
		if t == "" {
			t = core.Wildcard
		}
		if t != topic {
			if topic != core.Wildcard {
				put("</topic>\n")
			}
			if t != core.Wildcard {
				put(`<topic name="`, t, `">`, "\n")
			}
			topic = t
		}
		put("<category>\n<pattern>", c.Pattern, "</pattern>\n")
		if c.That != "" && c.That != core.Wildcard {
			put("<that>", c.That, "</that>\n")
		}
		put("<template>", c.Template, "</template>\n</category>\n")
	}
	if topic != core.Wildcard {
		put("</topic>\n")
	}
	put("</aiml>\n")

	return out.Flush()
}
