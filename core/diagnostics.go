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

package core

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Severity of a Diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic reports an abort, a validation failure, or an advisory
// warning.
//
// Nothing that produces a Diagnostic terminates the process.  At most
// the smallest enclosing unit of work (one category, one input
// stream, one template evaluation) is abandoned.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Source   string   `json:"source,omitempty"`
	Line     int      `json:"line,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Source == "" && d.Line == 0 {
		return d.Severity.String() + ": " + d.Message
	}
	return fmt.Sprintf("%s: %s (line %d, %q)", d.Severity, d.Message, d.Line, d.Source)
}

// Diagnostics receives Diagnostics.
//
// Implementations must be safe for concurrent use.
type Diagnostics interface {
	Report(Diagnostic)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(Diagnostic)

func (f DiagnosticsFunc) Report(d Diagnostic) {
	f(d)
}

// Discard drops all Diagnostics.
var Discard Diagnostics = DiagnosticsFunc(func(Diagnostic) {})

// Collector remembers every Diagnostic it receives.
type Collector struct {
	sync.Mutex
	Diagnostics []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{
		Diagnostics: make([]Diagnostic, 0, 8),
	}
}

func (c *Collector) Report(d Diagnostic) {
	c.Lock()
	c.Diagnostics = append(c.Diagnostics, d)
	c.Unlock()
}

// All returns a copy of what's been collected.
func (c *Collector) All() []Diagnostic {
	c.Lock()
	defer c.Unlock()
	acc := make([]Diagnostic, len(c.Diagnostics))
	copy(acc, c.Diagnostics)
	return acc
}

// Count returns the number of collected Diagnostics with the given
// Severity.
func (c *Collector) Count(s Severity) int {
	c.Lock()
	defer c.Unlock()
	n := 0
	for _, d := range c.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// ZapDiagnostics writes Diagnostics to a zap.Logger.
type ZapDiagnostics struct {
	Logger *zap.Logger
}

func NewZapDiagnostics(logger *zap.Logger) *ZapDiagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapDiagnostics{
		Logger: logger,
	}
}

func (z *ZapDiagnostics) Report(d Diagnostic) {
	fields := []zap.Field{
		zap.String("source", d.Source),
		zap.Int("line", d.Line),
	}
	switch d.Severity {
	case Error:
		z.Logger.Error(d.Message, fields...)
	case Warning:
		z.Logger.Warn(d.Message, fields...)
	default:
		z.Logger.Info(d.Message, fields...)
	}
}
