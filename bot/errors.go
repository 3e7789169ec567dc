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

package bot

import (
	"fmt"
)

// ConfigError reports a bad configuration.
type ConfigError struct {
	Problem string
}

func (e *ConfigError) Error() string {
	return "bad config: " + e.Problem
}

// StartupError reports a problem in a startup block.
type StartupError struct {
	Source  string
	Problem string
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup %s: %s", e.Source, e.Problem)
}
