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

// State is a position in the rule-structure grammar.
type State int

const (
	OutsideAny    State = iota // Not within any element.
	InRoot                     // Entered <aiml>.
	InTopic                    // Entered <topic>.
	InCategory                 // Entered <category>.
	InPattern                  // Entered <pattern>.
	AfterPattern               // Exited <pattern>.
	InThat                     // Entered <that>.
	AfterThat                  // Exited <that>.
	InTemplate                 // Entered <template>.
	AfterTemplate              // Exited <template>.
	AfterCategory              // Exited <category>.
	AfterTopic                 // Exited <topic>.
	OutsideRoot                // Exited <aiml> after a topic.
	InStartup                  // Entered a startup block.
	AfterStartup               // Exited a startup block.
)

var stateNames = [...]string{
	"outside", "in-root", "in-topic", "in-category", "in-pattern",
	"after-pattern", "in-that", "after-that", "in-template",
	"after-template", "after-category", "after-topic", "outside-root",
	"in-startup", "after-startup",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// inCategory reports whether a category is in progress.
func (s State) inCategory() bool {
	switch s {
	case InCategory, InPattern, AfterPattern, InThat, AfterThat, InTemplate, AfterTemplate:
		return true
	}
	return false
}

// insideRoot reports whether the state is somewhere within the root
// element.
func (s State) insideRoot() bool {
	switch s {
	case OutsideAny, OutsideRoot, InStartup, AfterStartup:
		return false
	}
	return true
}

// Action is what a transition does in addition to changing the
// state.
type Action int

const (
	NoAction       Action = iota
	CloseSlot             // Copy the text since the last tag into a slot.
	OpenTopic             // Set the topic slot from the tag's name attribute.
	Deliver               // Validate and deliver the category.
	ClearTopic            // Reset the topic to the wildcard.
	Finish                // Set done.
	ProcessStartup        // Hand the startup block to the StartupProcessor; then finish.
)

// Slot names one of the four accumulators.
type Slot int

const (
	NoSlot Slot = iota
	PatternSlot
	ThatSlot
	TopicSlot
	TemplateSlot
)

// transition is one legal move from a state.
type transition struct {
	Tag    Tag
	To     State
	Action Action
	Slot   Slot
}

// transitions is the grammar: for each state, the legal outgoing
// transitions in priority order.  A state that isn't here has no
// outgoing transitions.
var transitions = map[State][]transition{
	OutsideAny: {
		{Tag: RootOpen, To: InRoot},
		{Tag: StartupOpen, To: InStartup},
	},
	InRoot: {
		{Tag: CategoryOpen, To: InCategory},
		{Tag: TopicOpen, To: InTopic, Action: OpenTopic, Slot: TopicSlot},
	},
	InTopic: {
		{Tag: CategoryOpen, To: InCategory},
		{Tag: TopicClose, To: AfterTopic, Action: ClearTopic},
	},
	InCategory: {
		{Tag: PatternOpen, To: InPattern},
		// Lets deliver report a missing pattern once.
		{Tag: TemplateOpen, To: InTemplate},
	},
	InPattern: {
		{Tag: PatternClose, To: AfterPattern, Action: CloseSlot, Slot: PatternSlot},
	},
	AfterPattern: {
		{Tag: TemplateOpen, To: InTemplate},
		{Tag: ThatOpen, To: InThat},
	},
	InThat: {
		{Tag: ThatClose, To: AfterThat, Action: CloseSlot, Slot: ThatSlot},
	},
	AfterThat: {
		{Tag: TemplateOpen, To: InTemplate},
	},
	InTemplate: {
		{Tag: TemplateClose, To: AfterTemplate, Action: CloseSlot, Slot: TemplateSlot},
	},
	AfterTemplate: {
		{Tag: CategoryClose, To: AfterCategory, Action: Deliver},
	},
	AfterCategory: {
		{Tag: CategoryOpen, To: InCategory},
		{Tag: TopicClose, To: AfterTopic, Action: ClearTopic},
		{Tag: TopicOpen, To: InTopic, Action: OpenTopic, Slot: TopicSlot},
		{Tag: RootClose, To: OutsideAny, Action: Finish},
	},
	AfterTopic: {
		{Tag: CategoryOpen, To: InCategory},
		{Tag: TopicOpen, To: InTopic, Action: OpenTopic, Slot: TopicSlot},
		{Tag: RootClose, To: OutsideRoot, Action: Finish},
	},
	InStartup: {
		{Tag: StartupClose, To: AfterStartup, Action: ProcessStartup},
	},
}

// next finds the transition for the tag from the state.
func next(from State, tag Tag) (transition, bool) {
	for _, t := range transitions[from] {
		if t.Tag == tag {
			return t, true
		}
	}
	return transition{}, false
}

// unexpectedInCategory are the tags that abort the current category
// when they show up where the grammar doesn't allow them.
var unexpectedInCategory = map[Tag]bool{
	TemplateClose: true,
	PatternClose:  true,
	CategoryOpen:  true,
	CategoryClose: true,
	TemplateOpen:  true,
	PatternOpen:   true,
	ThatClose:     true,
	ThatOpen:      true,
	TopicClose:    true,
	TopicOpen:     true,
}

// unexpectedGlobal are the tags that abort the rest of the input when
// they show up where the grammar doesn't allow them.
var unexpectedGlobal = map[Tag]bool{
	RootClose: true,
	RootOpen:  true,
}
