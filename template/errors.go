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
	"fmt"
)

// TemplateError reports a handler precondition that the template
// violates.
type TemplateError struct {
	Tag    string
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("<%s>: %s", e.Tag, e.Reason)
}

// DepthExceeded is returned when evaluation nests deeper than the
// Interpreter's MaxDepth.
type DepthExceeded struct {
	Max int
	Tag string
}

func (e *DepthExceeded) Error() string {
	return fmt.Sprintf("evaluation depth exceeded %d at <%s>", e.Max, e.Tag)
}

// ParseError wraps a problem parsing template text.
type ParseError struct {
	Src string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("template parse error: %s in %q", e.Err, e.Src)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
