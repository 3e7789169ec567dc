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

package tools

import (
	"io"

	"github.com/Comcast/aiml/core"

	"gopkg.in/yaml.v2"
)

// topicDoc is the YAML form of a topic's categories.
type topicDoc struct {
	Topic      string   `yaml:"topic"`
	Categories []catDoc `yaml:"categories"`
}

type catDoc struct {
	Pattern  string `yaml:"pattern"`
	That     string `yaml:"that,omitempty"`
	Template string `yaml:"template"`
	Source   string `yaml:"source,omitempty"`
	Line     int    `yaml:"line,omitempty"`
}

// WriteYAML dumps the categories as YAML, grouped by consecutive
// topic.
func WriteYAML(cats []core.Category, w io.Writer) error {
	var docs []topicDoc
	for _, c := range cats {
		topic := c.Topic
		if topic == "" {
			topic = core.Wildcard
		}
		if len(docs) == 0 || docs[len(docs)-1].Topic != topic {
			docs = append(docs, topicDoc{Topic: topic})
		}
		d := catDoc{
			Pattern:  c.Pattern,
			Template: c.Template,
			Source:   c.Source,
			Line:     c.Line,
		}
		if c.That != core.Wildcard {
			d.That = c.That
		}
		last := &docs[len(docs)-1]
		last.Categories = append(last.Categories, d)
	}
	bs, err := yaml.Marshal(docs)
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}

// ReadYAML reads categories that WriteYAML wrote.
func ReadYAML(bs []byte) ([]core.Category, error) {
	var docs []topicDoc
	if err := yaml.Unmarshal(bs, &docs); err != nil {
		return nil, err
	}
	var acc []core.Category
	for _, d := range docs {
		for _, c := range d.Categories {
			that := c.That
			if that == "" {
				that = core.Wildcard
			}
			acc = append(acc, core.Category{
				Pattern:  c.Pattern,
				That:     that,
				Topic:    d.Topic,
				Template: c.Template,
				Source:   c.Source,
				Line:     c.Line,
			})
		}
	}
	return acc, nil
}

// WriteAnalysis writes the Analysis as YAML.
func WriteAnalysis(a *Analysis, w io.Writer) error {
	bs, err := yaml.Marshal(a)
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}
