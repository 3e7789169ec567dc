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

import "context"

// RuleIndex stores categories and resolves conversation turns to the
// best matching Category.
//
// All methods must be safe for concurrent use.  Callers treat every
// method as potentially blocking and never hold a lock across a call.
type RuleIndex interface {
	// Accept adds the Category for the given bot.
	Accept(ctx context.Context, c Category, botId string) error

	// Match returns the best Match for the given (normalized)
	// input, that, and topic.  Returns NotFound if nothing
	// matches.
	Match(ctx context.Context, input, that, topic, botId string) (*Match, error)

	// Load reads the categories at the given location for the
	// given bot and returns the number of categories added.
	//
	// Loading the same location again adds the rules again.
	Load(ctx context.Context, location, botId string) (int, error)

	// Unload removes all categories from the given location for
	// the given bot and returns the number removed.
	Unload(ctx context.Context, location, botId string) (int, error)

	// Count gives the total number of categories.
	Count() int
}

// Predicates is a per-user, per-bot memory.
//
// All methods must be safe for concurrent use.
type Predicates interface {
	// Get returns the value for the key.  A missing key gives the
	// empty string and no error.
	Get(ctx context.Context, key, userId, botId string) (string, error)

	Set(ctx context.Context, key, userId, botId, value string) error
}
