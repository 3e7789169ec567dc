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

// NotAPattern occurs when an expression isn't well-formed.
type NotAPattern struct {
	Expr   string
	Reason string
}

func (e *NotAPattern) Error() string {
	return `"` + e.Expr + `" is not a valid pattern: ` + e.Reason
}

// BadSlot reports which slot of a Category failed validation.
type BadSlot struct {
	Slot Slot
	*NotAPattern
}

func (e *BadSlot) Error() string {
	return e.Slot.String() + " " + e.NotAPattern.Error()
}
