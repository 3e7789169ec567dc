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
	"bytes"
	"fmt"
	"html"
	"io"
	"sort"

	"github.com/Comcast/aiml/core"

	md "github.com/russross/blackfriday/v2"
)

// Markdown describes the categories grouped by topic.
func Markdown(cats []core.Category) []byte {
	var b bytes.Buffer
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	byTopic := make(map[string][]core.Category)
	for _, c := range cats {
		topic := c.Topic
		if topic == "" {
			topic = core.Wildcard
		}
		byTopic[topic] = append(byTopic[topic], c)
	}
	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	f("%d categories in %d topics.\n", len(cats), len(topics))

	for _, topic := range topics {
		f("## Topic `%s`\n", topic)
		for _, c := range byTopic[topic] {
			f("### `%s`\n", c.Pattern)
			if c.That != "" && c.That != core.Wildcard {
				f("that: `%s`\n", c.That)
			}
			if c.Source != "" {
				f("from `%s` line %d\n", c.Source, c.Line)
			}
			f("```xml\n%s\n```\n", c.Template)
		}
	}

	return b.Bytes()
}

// RenderHTML writes an HTML fragment describing the categories.
func RenderHTML(cats []core.Category, out io.Writer) error {
	_, err := fmt.Fprintf(out, "<div class=\"rules\">%s</div>\n", md.Run(Markdown(cats)))
	return err
}

// RenderPage writes a complete HTML page describing the categories.
func RenderPage(title string, cats []core.Category, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/rules.css"}
	}

	title = html.EscapeString(title)

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderHTML(cats, out); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, `
  </body>
</html>
`)
	return err
}
