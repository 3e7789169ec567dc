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

package graph

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads rule files when they change.
//
// A changed file is unloaded and loaded again for every bot that
// had loaded it.  Changes are debounced since editors tend to write
// a file in several steps.
type Watcher struct {
	sync.Mutex

	g       *Graph
	watcher *fsnotify.Watcher

	// Debounce is how long a file must be quiet before it's
	// reloaded.
	Debounce time.Duration

	// Reloaded, if not nil, is called after each reload.
	Reloaded func(source, botId string, n int, err error)

	pending map[string]time.Time
	dirs    map[string]bool
}

// NewWatcher makes a Watcher for the Graph.  Call Add for the files
// to watch and then Run.
func NewWatcher(g *Graph) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		g:        g,
		watcher:  w,
		Debounce: 250 * time.Millisecond,
		pending:  make(map[string]time.Time),
		dirs:     make(map[string]bool),
	}, nil
}

// Add watches the given file.  Directories are watched instead of
// files so that files which are replaced (rather than written) are
// noticed.
func (w *Watcher) Add(filename string) error {
	dir := filepath.Dir(filepath.Clean(filename))
	w.Lock()
	defer w.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// AddLoaded watches every file source that the bot has loaded.
func (w *Watcher) AddLoaded(botId string) error {
	for _, source := range w.g.Files(botId) {
		if isURL(source) {
			continue
		}
		if err := w.Add(source); err != nil {
			return err
		}
	}
	return nil
}

// Run processes file events until the context is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	tick := w.Debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			source := filepath.Clean(e.Name)
			if len(w.g.Loaders(source)) == 0 {
				continue
			}
			w.Lock()
			w.pending[source] = time.Now()
			w.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.g.Logger.Warn("watcher", zap.Error(err))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush reloads the files that have been quiet long enough.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string
	w.Lock()
	for source, at := range w.pending {
		if w.Debounce <= now.Sub(at) {
			ready = append(ready, source)
			delete(w.pending, source)
		}
	}
	w.Unlock()

	for _, source := range ready {
		for _, botId := range w.g.Loaders(source) {
			n, err := w.g.Reload(ctx, source, botId)
			if err != nil {
				w.g.Logger.Warn("reload", zap.String("source", source), zap.String("bot", botId), zap.Error(err))
			} else {
				w.g.Logger.Info("reloaded", zap.String("source", source), zap.String("bot", botId), zap.Int("categories", n))
			}
			if w.Reloaded != nil {
				w.Reloaded(source, botId, n, err)
			}
		}
	}
}
