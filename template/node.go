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
	"strings"
)

// Node is either an *Element or a Text.
type Node interface {
	node()
}

// Attr is a single attribute.  Attributes are kept in document
// order.
type Attr struct {
	Name  string
	Value string
}

// Element is a tag with its attributes and children.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

func (*Element) node() {}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the child elements with the given name.
func (e *Element) Elements(name string) []*Element {
	var acc []*Element
	for _, n := range e.Children {
		if c, is := n.(*Element); is && c.Name == name {
			acc = append(acc, c)
		}
	}
	return acc
}

// Text is literal character data.
type Text string

func (Text) node() {}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func writeOpen(b *strings.Builder, e *Element, empty bool) {
	b.WriteString("<")
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteString(`"`)
	}
	if empty {
		b.WriteString("/>")
	} else {
		b.WriteString(">")
	}
}

func writeClose(b *strings.Builder, e *Element) {
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteString(">")
}

func write(b *strings.Builder, n Node) {
	switch vv := n.(type) {
	case Text:
		b.WriteString(textEscaper.Replace(string(vv)))
	case *Element:
		if len(vv.Children) == 0 {
			writeOpen(b, vv, true)
			return
		}
		writeOpen(b, vv, false)
		for _, c := range vv.Children {
			write(b, c)
		}
		writeClose(b, vv)
	}
}

// Markup renders the node as markup.
func Markup(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

// MarkupAll renders a sequence of nodes.
func MarkupAll(ns []Node) string {
	var b strings.Builder
	for _, n := range ns {
		write(&b, n)
	}
	return b.String()
}

// wrap renders the element's tags around content that has already
// been rendered.
func wrap(e *Element, content string) string {
	var b strings.Builder
	if content == "" && len(e.Children) == 0 {
		writeOpen(&b, e, true)
		return b.String()
	}
	writeOpen(&b, e, false)
	b.WriteString(content)
	writeClose(&b, e)
	return b.String()
}
