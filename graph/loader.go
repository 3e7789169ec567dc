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
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Loader opens rule sources: file paths, file:// URLs, and http(s)
// URLs.
type Loader struct {
	Client *http.Client

	// Dir, if not empty, is the base for relative file paths.
	Dir string
}

// NewLoader makes a Loader.  A nil client gets a client with a cookie
// jar, which some rule servers need.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{
			PublicSuffixList: publicsuffix.List,
		})
		if err != nil {
			// cookiejar.New doesn't actually return errors.
			panic(err)
		}
		client = &http.Client{
			Jar:     jar,
			Timeout: time.Minute,
		}
	}
	return &Loader{
		Client: client,
	}
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Source gives the canonical name for the location.  Categories
// loaded from the location carry this name as their Source.
func (l *Loader) Source(location string) string {
	if isURL(location) {
		return location
	}
	location = strings.TrimPrefix(location, "file://")
	if l.Dir != "" && !filepath.IsAbs(location) {
		location = filepath.Join(l.Dir, location)
	}
	return filepath.Clean(location)
}

// Open opens the location for reading and returns its canonical
// name.
func (l *Loader) Open(ctx context.Context, location string) (io.ReadCloser, string, error) {
	source := l.Source(location)
	if !isURL(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, source, err
		}
		return f, source, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return nil, source, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, source, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, source, fmt.Errorf("fetching %s: status %s", source, resp.Status)
	}
	return resp.Body, source, nil
}
