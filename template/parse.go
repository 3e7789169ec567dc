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

package template

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const parseRoot = "template"

// Parse builds the tag tree for template text.
//
// The parser is lenient: HTML entities are recognized, and common
// HTML empty elements (like <br>) are closed automatically.
func Parse(src string) ([]Node, error) {
	d := xml.NewDecoder(strings.NewReader("<" + parseRoot + ">" + src + "</" + parseRoot + ">"))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity

	root := &Element{Name: parseRoot}
	stack := []*Element{}
	top := func() *Element {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Src: src, Err: err}
		}
		switch vv := tok.(type) {
		case xml.StartElement:
			e := &Element{Name: name(vv.Name)}
			for _, a := range vv.Attr {
				e.Attrs = append(e.Attrs, Attr{Name: name(a.Name), Value: a.Value})
			}
			if parent := top(); parent != nil {
				parent.Children = append(parent.Children, e)
			} else {
				root = e
			}
			stack = append(stack, e)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, &ParseError{Src: src, Err: errors.New("unbalanced end element " + name(vv.Name))}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent := top()
			if parent == nil {
				continue
			}
			s := string(vv)
			if n := len(parent.Children); 0 < n {
				if t, is := parent.Children[n-1].(Text); is {
					parent.Children[n-1] = t + Text(s)
					continue
				}
			}
			parent.Children = append(parent.Children, Text(s))
		}
	}
	if 0 < len(stack) {
		return nil, &ParseError{Src: src, Err: errors.New("unclosed element " + top().Name)}
	}

	return root.Children, nil
}

func name(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
