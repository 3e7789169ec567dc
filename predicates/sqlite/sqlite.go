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

// Package sqlite is a core.Predicates backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store keeps predicates in a single table.
type Store struct {
	Logger *zap.Logger
	db     *sql.DB
}

// Open opens (and if necessary creates) the database at the path.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("predicates: open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("predicates: pragma %q: %w", p, err)
		}
	}

	s := &Store{
		Logger: zap.NewNop(),
		db:     db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("predicates: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS predicates (
			bot        TEXT NOT NULL,
			user       TEXT NOT NULL,
			name       TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (bot, user, name)
		)`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, name, userId, botId string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM predicates WHERE bot = ? AND user = ? AND name = ?`,
		botId, userId, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("predicates: get %s: %w", name, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, name, userId, botId, value string) error {
	s.Logger.Debug("set", zap.String("bot", botId), zap.String("user", userId), zap.String("name", name))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predicates (bot, user, name, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (bot, user, name) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		botId, userId, name, value)
	if err != nil {
		return fmt.Errorf("predicates: set %s: %w", name, err)
	}
	return nil
}

// Users lists the users with predicates for the bot.
func (s *Store) Users(ctx context.Context, botId string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user FROM predicates WHERE bot = ? ORDER BY user`, botId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var acc []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		acc = append(acc, u)
	}
	return acc, rows.Err()
}
