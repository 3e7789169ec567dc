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
	"os"

	"github.com/Comcast/aiml/match"
	"github.com/Comcast/aiml/template"

	"github.com/jsccast/yaml"
)

// Config is the process configuration, usually read from YAML.
type Config struct {
	Interpreter struct {
		MaxDepth int `yaml:"maxDepth"`
	} `yaml:"interpreter"`

	Reader struct {
		WarnNonAIML bool `yaml:"warnNonAIML"`
	} `yaml:"reader"`

	Validation *match.Policy `yaml:"validation"`

	Predicates PredicatesConfig `yaml:"predicates"`

	// Watch enables reloading rule files when they change.
	Watch bool `yaml:"watch"`

	// Reload is an optional cron expression for periodically
	// reloading every bot's rule files.
	Reload string `yaml:"reload"`

	// Javascript enables the <javascript> tag.
	Javascript bool `yaml:"javascript"`

	Bots []*BotConfig `yaml:"bots"`
}

// PredicatesConfig selects the predicates store.
type PredicatesConfig struct {
	// Backend is "memory", "bolt", or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the database file for "bolt" and "sqlite".
	Path string `yaml:"path"`
}

// BotConfig describes one bot.
type BotConfig struct {
	ID         string            `yaml:"id"`
	Properties map[string]string `yaml:"properties"`

	// Predicates are default predicate values.
	Predicates map[string]string `yaml:"predicates"`

	// Files are rule locations.  File names can be globs.
	Files []string `yaml:"files"`

	// Substitutions maps "gender", "person", and "person2" to
	// their tables.
	Substitutions map[string][]Substitution `yaml:"substitutions"`
}

// Substitution is one entry in a substitution table.
type Substitution struct {
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	c := &Config{
		Validation: match.DefaultPolicy(),
	}
	c.Interpreter.MaxDepth = template.DefaultMaxDepth
	c.Predicates.Backend = "memory"
	return c
}

// ParseConfig parses YAML on top of the defaults.
func ParseConfig(bs []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, &ConfigError{Problem: err.Error()}
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadConfig reads and parses the file.
func ReadConfig(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// Check looks for problems.
func (c *Config) Check() error {
	if c.Interpreter.MaxDepth <= 0 {
		c.Interpreter.MaxDepth = template.DefaultMaxDepth
	}
	if c.Validation == nil {
		c.Validation = match.DefaultPolicy()
	}
	switch c.Predicates.Backend {
	case "", "memory":
		c.Predicates.Backend = "memory"
	case "bolt", "sqlite":
		if c.Predicates.Path == "" {
			return &ConfigError{Problem: "predicates backend " + c.Predicates.Backend + " needs a path"}
		}
	default:
		return &ConfigError{Problem: "unknown predicates backend " + c.Predicates.Backend}
	}
	seen := make(map[string]bool, len(c.Bots))
	for i, b := range c.Bots {
		if b.ID == "" {
			return &ConfigError{Problem: fmt.Sprintf("bot %d has no id", i)}
		}
		if seen[b.ID] {
			return &ConfigError{Problem: "duplicate bot " + b.ID}
		}
		seen[b.ID] = true
		for kind := range b.Substitutions {
			switch kind {
			case "gender", "person", "person2":
			default:
				return &ConfigError{Problem: "unknown substitution kind " + kind}
			}
		}
	}
	return nil
}
