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

// Package bolt is a core.Predicates backed by a bbolt file.
package bolt

import (
	"bytes"
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Store keeps predicates in a bucket per bot.  Keys are the user id
// and the predicate name separated by a NUL.
type Store struct {
	Logger   *zap.Logger
	filename string
	db       *bolt.DB
}

func NewStore(filename string) *Store {
	return &Store{
		Logger:   zap.NewNop(),
		filename: filename,
	}
}

func (s *Store) Open() error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(userId, name string) []byte {
	return []byte(userId + "\x00" + name)
}

func (s *Store) Get(ctx context.Context, name, userId, botId string) (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(botId))
		if b == nil {
			return nil
		}
		v = string(b.Get(key(userId, name)))
		return nil
	})
	s.Logger.Debug("get", zap.String("bot", botId), zap.String("user", userId), zap.String("name", name), zap.Error(err))
	return v, err
}

func (s *Store) Set(ctx context.Context, name, userId, botId, value string) error {
	s.Logger.Debug("set", zap.String("bot", botId), zap.String("user", userId), zap.String("name", name))
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(botId))
		if err != nil {
			return err
		}
		return b.Put(key(userId, name), []byte(value))
	})
}

// Forget removes all of the user's predicates for the bot.
func (s *Store) Forget(ctx context.Context, userId, botId string) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(botId))
		if b == nil {
			return nil
		}
		prefix := []byte(userId + "\x00")
		var ks [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			ks = append(ks, append([]byte(nil), k...))
		}
		for _, k := range ks {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

