/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// FileName is the SQLite file created under a workspace directory.
const FileName = "prefs.sqlite"

// Options select and address the SQL backend.
type Options struct {
	Driver string
	// DSN is the PostgreSQL connection string for the pgx driver.
	DSN string
	// Password overrides the DSN password for the pgx driver.
	Password string
	// Dir holds the SQLite file for the sqlite driver.
	Dir string
}

type dialect struct {
	name   string
	schema string
	upsert string
	get    string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name: DriverSQLite,
		schema: `CREATE TABLE IF NOT EXISTS prefs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
		upsert: `INSERT INTO prefs(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		get: `SELECT value FROM prefs WHERE key = ?`,
	},
	DriverPgx: {
		name: DriverPgx,
		schema: `CREATE TABLE IF NOT EXISTS prefs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
		upsert: rebind(`INSERT INTO prefs(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		get: rebind(`SELECT value FROM prefs WHERE key = ?`),
	},
}

// rebind turns ? placeholders into $1, $2, ...
func rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore is a Store backed by a prefs table.
type SQLStore struct {
	db      *sql.DB
	d       dialect
	now     func() time.Time
	log     *slog.Logger
	cleanup func()
}

// Open connects to the configured backend and ensures the prefs table.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	l := applog.WithOperation(applog.WithComponent("prefs"), "open").With(slog.String("driver", opts.Driver))
	var (
		db      *sql.DB
		cleanup = func() {}
		err     error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		db, err = openSQLite(ctx, opts.Dir)
	case DriverPgx:
		db, cleanup, err = openPgx(opts.DSN, opts.Password)
	default:
		return nil, fmt.Errorf("prefs: unknown driver %q", opts.Driver)
	}
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		return nil, err
	}
	s := &SQLStore{db: db, d: dialects[opts.Driver], now: time.Now, log: l, cleanup: cleanup}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, s.d.schema); err != nil {
		_ = s.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, fmt.Errorf("prefs schema: %w", err)
	}
	l.Debug("prefs ready")
	return s, nil
}

func openSQLite(ctx context.Context, dir string) (*sql.DB, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("prefs: sqlite directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(filepath.Join(dir, FileName)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

// openPgx registers a parsed connection config so the password from the
// keyring never has to be spliced into the DSN text.
func openPgx(dsn, password string) (*sql.DB, func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, errors.New("prefs: pgx dsn is required")
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse pgx dsn: %w", err)
	}
	if password != "" {
		cfg.Password = password
	}
	name := stdlib.RegisterConnConfig(cfg)
	db, err := sql.Open("pgx", name)
	if err != nil {
		stdlib.UnregisterConnConfig(name)
		return nil, nil, fmt.Errorf("open pgx: %w", err)
	}
	db.SetMaxOpenConns(2)
	return db, func() { stdlib.UnregisterConnConfig(name) }, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key, value string) error {
	var ts any = s.now().UTC()
	if s.d.name == DriverSQLite {
		ts = s.now().UTC().Format(time.RFC3339Nano)
	}
	if _, err := s.db.ExecContext(ctx, s.d.upsert, key, value, ts); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

var _ Stamped = (*SQLStore)(nil)

// UpdatedAt reports when key was last written.
func (s *SQLStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	q := strings.Replace(s.d.get, "SELECT value", "SELECT updated_at", 1)
	if s.d.name == DriverSQLite {
		var raw string
		err := s.db.QueryRowContext(ctx, q, key).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("updated_at %s: %w", key, err)
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("updated_at %s: %w", key, err)
		}
		return t, true, nil
	}
	var t time.Time
	err := s.db.QueryRowContext(ctx, q, key).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return t, true, nil
}

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.cleanup != nil {
		s.cleanup()
	}
	return err
}
