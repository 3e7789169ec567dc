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

// Package predicates provides per-user, per-bot memories.
//
// Memory keeps everything in a map.  See the bolt and sqlite
// subpackages for persistent stores.
package predicates

import (
	"context"
	"sync"

	"github.com/Comcast/aiml/core"
)

type memKey struct {
	bot, user, key string
}

// Memory is an in-memory core.Predicates.
type Memory struct {
	sync.RWMutex
	m map[memKey]string
}

func NewMemory() *Memory {
	return &Memory{
		m: make(map[memKey]string),
	}
}

func (s *Memory) Get(ctx context.Context, key, userId, botId string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	return s.m[memKey{botId, userId, key}], nil
}

func (s *Memory) Set(ctx context.Context, key, userId, botId, value string) error {
	s.Lock()
	s.m[memKey{botId, userId, key}] = value
	s.Unlock()
	return nil
}

// Defaulted supplies per-bot default values for predicates that
// haven't been set.
type Defaulted struct {
	core.Predicates

	mu sync.RWMutex

	// defaults is bot → key → value.
	defaults map[string]map[string]string
}

// WithDefaults wraps the Predicates with per-bot defaults.
func WithDefaults(p core.Predicates, defaults map[string]map[string]string) *Defaulted {
	d := &Defaulted{
		Predicates: p,
		defaults:   make(map[string]map[string]string),
	}
	for botId, kvs := range defaults {
		for k, v := range kvs {
			d.SetDefault(botId, k, v)
		}
	}
	return d
}

func (d *Defaulted) SetDefault(botId, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kvs, have := d.defaults[botId]
	if !have {
		kvs = make(map[string]string)
		d.defaults[botId] = kvs
	}
	kvs[key] = value
}

func (d *Defaulted) Default(botId, key string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.defaults[botId][key]
}

func (d *Defaulted) Get(ctx context.Context, key, userId, botId string) (string, error) {
	v, err := d.Predicates.Get(ctx, key, userId, botId)
	if err != nil || v != "" {
		return v, err
	}
	return d.Default(botId, key), nil
}
