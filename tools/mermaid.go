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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/aiml/core"
)

type MermaidOpts struct {
	// ShowTexts labels each link with its <srai> text when that
	// differs from the target pattern.
	ShowTexts bool `json:"showTexts"`

	// UnresolvedFill is the fill color for texts that don't
	// reach a category.
	UnresolvedFill string `json:"unresolvedFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) flowchart
// of the literal <srai> links between categories.
func Mermaid(ctx context.Context, cats []core.Category, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowTexts:      true,
			UnresolvedFill: "#f98b8b",
		}
	}

	a, err := Analyze(ctx, cats, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "graph LR\n")

	nids := make(map[string]string)
	node := func(pattern string, unresolved bool) string {
		if nid, already := nids[pattern]; already {
			return nid
		}
		nid := fmt.Sprintf("n%d", len(nids)+1)
		nids[pattern] = nid
		fmt.Fprintf(w, "  %s(\"%s\")\n", nid, strings.Replace(pattern, `"`, `'`, -1))
		if unresolved && opts.UnresolvedFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.UnresolvedFill)
		}
		return nid
	}

	for _, l := range a.Links {
		from := node(l.From, false)
		var to string
		if l.To == "" {
			to = node(l.Text, true)
		} else {
			to = node(l.To, false)
		}
		label := ""
		if opts.ShowTexts && l.To != "" && !strings.EqualFold(l.Text, l.To) {
			label = fmt.Sprintf(`-- "%s"`, strings.Replace(l.Text, `"`, `'`, -1))
		}
		if label == "" {
			fmt.Fprintf(w, "  %s --> %s\n", from, to)
		} else {
			fmt.Fprintf(w, "  %s %s --> %s\n", from, label, to)
		}
	}

	return nil
}
