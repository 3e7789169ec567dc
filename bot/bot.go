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

// Package bot assembles bots: their configuration, properties,
// substitutions, rules, and predicates.
package bot

import (
	"sort"
	"sync"
)

// Bot is one conversational identity.
type Bot struct {
	ID string

	sync.RWMutex
	properties map[string]string
}

func newBot(id string) *Bot {
	return &Bot{
		ID:         id,
		properties: make(map[string]string),
	}
}

// Property returns the named property.
func (b *Bot) Property(name string) (string, bool) {
	b.RLock()
	defer b.RUnlock()
	v, have := b.properties[name]
	return v, have
}

func (b *Bot) SetProperty(name, value string) {
	b.Lock()
	b.properties[name] = value
	b.Unlock()
}

// Properties returns a copy of all properties.
func (b *Bot) Properties() map[string]string {
	b.RLock()
	defer b.RUnlock()
	acc := make(map[string]string, len(b.properties))
	for k, v := range b.properties {
		acc[k] = v
	}
	return acc
}

// Bots is the set of known bots.
type Bots struct {
	sync.RWMutex
	bots map[string]*Bot
}

func NewBots() *Bots {
	return &Bots{
		bots: make(map[string]*Bot),
	}
}

// Ensure returns the bot with the given id, creating it if needed.
func (bs *Bots) Ensure(id string) *Bot {
	bs.Lock()
	defer bs.Unlock()
	b, have := bs.bots[id]
	if !have {
		b = newBot(id)
		bs.bots[id] = b
	}
	return b
}

func (bs *Bots) Get(id string) (*Bot, bool) {
	bs.RLock()
	defer bs.RUnlock()
	b, have := bs.bots[id]
	return b, have
}

// IDs returns the bot ids in order.
func (bs *Bots) IDs() []string {
	bs.RLock()
	defer bs.RUnlock()
	acc := make([]string, 0, len(bs.bots))
	for id := range bs.bots {
		acc = append(acc, id)
	}
	sort.Strings(acc)
	return acc
}

// Property implements template.Properties.
func (bs *Bots) Property(botId, name string) (string, bool) {
	b, have := bs.Get(botId)
	if !have {
		return "", false
	}
	return b.Property(name)
}
