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

// dot -Tpng links.dot > links.png

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/aiml/core"
)

func dotQuote(s string) string {
	s = strings.Replace(s, `\`, `\\`, -1)
	return `"` + strings.Replace(s, `"`, `\"`, -1) + `"`
}

// Dot makes a Graphviz dot file showing the literal <srai> links
// between categories.  Texts that don't reach a category are drawn
// dashed and red.
func Dot(ctx context.Context, cats []core.Category, w io.Writer) error {
	a, err := Analyze(ctx, cats, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="box" style="rounded,filled" fillcolor="#99ddc8"]
  edge [fontsize = "10"]
`)

	seen := make(map[string]bool)
	node := func(pattern string, attrs string) {
		if seen[pattern] {
			return
		}
		seen[pattern] = true
		if attrs == "" {
			fmt.Fprintf(w, "  %s\n", dotQuote(pattern))
			return
		}
		fmt.Fprintf(w, "  %s [%s]\n", dotQuote(pattern), attrs)
	}

	for _, l := range a.Links {
		node(l.From, "")
		to := l.To
		if to == "" {
			to = l.Text
			node(to, `style="dashed" color="red" fillcolor="#f98b8b"`)
		} else {
			node(to, "")
		}
		label := ""
		if !strings.EqualFold(l.Text, to) {
			label = fmt.Sprintf(" [label=%s]", dotQuote(l.Text))
		}
		fmt.Fprintf(w, "  %s -> %s%s\n", dotQuote(l.From), dotQuote(to), label)
	}

	fmt.Fprintf(w, "}\n")
	return nil
}
