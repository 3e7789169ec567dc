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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/aiml/core"
	"github.com/Comcast/aiml/match"
)

// StartupProcessor receives the content of a startup block.
type StartupProcessor interface {
	ProcessStartup(ctx context.Context, source string, content string) error
}

// StartupFunc adapts a function to a StartupProcessor.
type StartupFunc func(ctx context.Context, source string, content string) error

func (f StartupFunc) ProcessStartup(ctx context.Context, source string, content string) error {
	return f(ctx, source, content)
}

// Option configures a Reader.
type Option func(*Reader)

// WithDiagnostics sets where structural problems are reported.
func WithDiagnostics(d core.Diagnostics) Option {
	return func(r *Reader) {
		if d != nil {
			r.diags = d
		}
	}
}

// WithPolicy sets the validation policy for delivered categories.
func WithPolicy(p *match.Policy) Option {
	return func(r *Reader) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithStartup sets the processor for startup blocks.
func WithStartup(p StartupProcessor) Option {
	return func(r *Reader) {
		r.startup = p
	}
}

// WarnNonAIML enables advisory warnings for unknown elements
// directly under the root.  Names are additional known element
// names (typically the template vocabulary).
func WarnNonAIML(names ...string) Option {
	return func(r *Reader) {
		r.warnNonAIML = true
		for _, name := range names {
			r.known[name] = true
		}
	}
}

// Reader extracts categories from a character stream.
//
// A Reader consumes a single stream.  It isn't safe for concurrent
// use.
type Reader struct {
	source string
	sink   core.CategorySink

	diags       core.Diagnostics
	policy      *match.Policy
	startup     StartupProcessor
	warnNonAIML bool
	known       map[string]bool

	ctx   context.Context
	state State
	done  bool
	count int

	pattern  string
	that     string
	topic    string
	template string
	begun    int // Line where the current category started.

	// buf holds text not yet discarded.  consumed is the end of the
	// last structural tag.  search is where to look for the next
	// '<'.
	buf      []byte
	consumed int
	search   int
	line     int // Line number of buf[0].
}

// New makes a Reader that delivers categories from the named source
// to the sink.
func New(source string, sink core.CategorySink, opts ...Option) *Reader {
	r := &Reader{
		source: source,
		sink:   sink,
		diags:  core.Discard,
		policy: match.DefaultPolicy(),
		known:  make(map[string]bool, len(StructuralNames)),
		line:   1,
	}
	for _, name := range StructuralNames {
		r.known[name] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	r.reset()
	r.topic = core.Wildcard
	return r
}

// State returns the current scanner state.
func (r *Reader) State() State {
	return r.state
}

// Read scans the input and delivers each valid category to the sink.
// Returns the number of categories delivered.
//
// The only errors returned are I/O errors and context cancellation.
// Structural problems go to the Diagnostics.
func (r *Reader) Read(ctx context.Context, in io.Reader) (int, error) {
	r.ctx = ctx
	br := bufio.NewReader(in)
	for !r.done {
		if err := ctx.Err(); err != nil {
			return r.count, err
		}
		chunk, err := br.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return r.count, err
		}
		r.buf = append(r.buf, chunk...)
		r.scan(eof)
		if eof {
			r.end()
			break
		}
		if 64*1024 < r.consumed {
			r.compact()
		}
	}
	return r.count, nil
}

func (r *Reader) reset() {
	r.pattern = ""
	r.that = core.Wildcard
	r.template = ""
}

func (r *Reader) lineAt(pos int) int {
	if len(r.buf) < pos {
		pos = len(r.buf)
	}
	return r.line + bytes.Count(r.buf[:pos], []byte{'\n'})
}

func (r *Reader) report(sev core.Severity, pos int, format string, args ...interface{}) {
	r.diags.Report(core.Diagnostic{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Source:   r.source,
		Line:     r.lineAt(pos),
	})
}

// compact drops the consumed prefix of the buffer.
func (r *Reader) compact() {
	n := r.consumed
	if n == 0 {
		return
	}
	r.line += bytes.Count(r.buf[:n], []byte{'\n'})
	r.buf = append(make([]byte, 0, len(r.buf)-n), r.buf[n:]...)
	r.search -= n
	r.consumed = 0
}

// scan processes as many tags as it can in the current buffer.
func (r *Reader) scan(eof bool) {
	for !r.done {
		i := bytes.IndexByte(r.buf[r.search:], '<')
		if i < 0 {
			r.search = len(r.buf)
			return
		}
		at := r.search + i

		if r.state != InTemplate && r.state != InStartup && bytes.HasPrefix(r.buf[at:], []byte("<!--")) {
			j := bytes.Index(r.buf[at:], []byte("-->"))
			if j < 0 {
				if eof {
					r.search = len(r.buf)
				}
				return
			}
			r.search = at + j + 3
			continue
		}

		tag, end, attrs, status := tagAt(r.buf, at)
		if status == needMore {
			if !eof {
				r.search = at
				return
			}
			tag = NoTag
		}

		if tag != NoTag {
			if t, have := next(r.state, tag); have {
				r.step(t, at, end, attrs)
				continue
			}
		}

		if r.state == InTemplate || r.state == InStartup {
			r.search = at + 1
			continue
		}

		if tag != NoTag {
			if r.unexpected(tag, at) {
				continue
			}
		} else if r.warnNonAIML {
			r.checkElement(at)
		}
		r.search = at + 1
	}
}

// step performs a transition.
func (r *Reader) step(t transition, at, end int, attrs string) {
	content := string(r.buf[r.consumed:at])
	r.consumed = end
	r.search = end
	r.state = t.To

	if t.Tag == CategoryOpen {
		r.begun = r.lineAt(at)
	}

	switch t.Action {
	case CloseSlot:
		r.fill(t.Slot, content)
	case OpenTopic:
		name, have := attr(attrs, "name")
		if !have {
			r.report(core.Warning, at, "topic without a name; using %s", core.Wildcard)
			name = core.Wildcard
		}
		r.fill(t.Slot, name)
	case ClearTopic:
		r.topic = core.Wildcard
	case Deliver:
		r.deliver(at)
	case Finish:
		r.done = true
	case ProcessStartup:
		if r.startup != nil {
			if err := r.startup.ProcessStartup(r.ctx, r.source, content); err != nil {
				r.report(core.Warning, at, "startup: %s", err)
			}
		}
		r.done = true
	}
}

// fill puts content into a slot.
func (r *Reader) fill(s Slot, content string) {
	switch s {
	case PatternSlot:
		r.pattern = strings.TrimSpace(content)
	case ThatSlot:
		r.that = strings.TrimSpace(content)
		if r.that == "" {
			r.that = core.Wildcard
		}
	case TopicSlot:
		r.topic = strings.TrimSpace(content)
		if r.topic == "" {
			r.topic = core.Wildcard
		}
	case TemplateSlot:
		r.template = content
	}
}

func (r *Reader) abort(pos int, reason string) {
	r.report(core.Error, pos, "Aborting category: %s", reason)
}

// deliver validates the accumulated category and hands it to the
// sink.
func (r *Reader) deliver(pos int) {
	defer func() {
		r.reset()
		r.compact()
	}()

	switch {
	case r.pattern == "":
		r.abort(pos, "Pattern missing from category.")
		return
	case strings.TrimSpace(r.template) == "":
		r.abort(pos, "Template missing from category.")
		return
	}

	c := core.Category{
		Pattern:  r.pattern,
		That:     r.that,
		Topic:    r.topic,
		Template: r.template,
		Source:   r.source,
		Line:     r.begun,
	}
	if err := r.policy.Check(c); err != nil {
		r.abort(pos, err.Error())
		return
	}
	if err := r.sink.AcceptCategory(c); err != nil {
		r.report(core.Error, pos, "category rejected: %s", err)
		return
	}
	r.count++
}

// unexpected handles a vocabulary tag that has no transition from
// the current state.  Returns true if the tag should be examined
// again.
func (r *Reader) unexpected(tag Tag, at int) bool {
	switch {
	case unexpectedInCategory[tag]:
		if !r.state.inCategory() {
			if r.state.insideRoot() {
				r.report(core.Warning, at, "Unexpected %s; ignored.", tag)
			} else {
				r.report(core.Warning, at, "Unexpected %s outside of the root element; ignored.", tag)
			}
			return false
		}
		r.report(core.Error, at, "Unexpected %s; aborting category.", tag)
		r.reset()
		r.consumed = at
		r.search = at
		r.state = AfterCategory
		_, legal := next(AfterCategory, tag)
		if !legal {
			r.search = at + 1
		}
		return legal

	case unexpectedGlobal[tag]:
		if tag == RootClose && r.count == 0 {
			r.report(core.Error, at, "aiml element does not contain any AIML content.")
		} else {
			r.report(core.Error, at, "Unexpected %s; ignoring the rest of the input.", tag)
		}
		r.done = true
		return false
	}
	return false
}

// checkElement warns about an unknown element directly under the
// root.
func (r *Reader) checkElement(at int) {
	switch r.state {
	case InRoot, AfterCategory, AfterTopic:
	default:
		return
	}
	name := elementName(r.buf, at)
	if name == "" {
		return
	}
	switch name[0] {
	case '/', '!', '?':
		return
	}
	if strings.Contains(name, ":") || r.known[name] {
		return
	}
	r.report(core.Warning, at, "Unknown element <%s> in the root element.", name)
}

// end handles the end of input.
func (r *Reader) end() {
	if r.done {
		return
	}
	r.done = true
	pos := len(r.buf)
	switch {
	case r.state.inCategory():
		r.report(core.Warning, pos, "Input ended within a category (state %s).", r.state)
		r.reset()
	case r.state == InStartup:
		r.report(core.Warning, pos, "Input ended within a startup block.")
	case r.state.insideRoot():
		r.report(core.Warning, pos, "Input ended without closing the root element.")
	}
}
