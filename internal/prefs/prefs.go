/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package prefs persists small key/value preference records, such as the
// viewport record, in SQLite or PostgreSQL through database/sql.
package prefs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

//go:embed viewport.schema.json
var viewportSchema []byte

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Stamped is a Store that records when each key was last written.
type Stamped interface {
	Store
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemory() *Memory { return &Memory{m: map[string]string{}} }

func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Close() error { return nil }

// LoadViewport reads the viewport record. A missing, corrupt or invalid
// record yields ok=false and the caller keeps its defaults; only store
// failures are returned as errors.
func LoadViewport(ctx context.Context, s Store, l *slog.Logger) (p viewport.Prefs, ok bool, err error) {
	if l == nil {
		l = applog.WithComponent("prefs")
	}
	raw, found, err := s.Get(ctx, viewport.PrefsKey)
	if err != nil {
		return viewport.Prefs{}, false, fmt.Errorf("load viewport prefs: %w", err)
	}
	if !found {
		return viewport.Prefs{}, false, nil
	}
	if err := validateViewport([]byte(raw)); err != nil {
		l.Warn("viewport prefs invalid, using defaults", slog.Any("err", err))
		return viewport.Prefs{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		l.Warn("viewport prefs corrupt, using defaults", slog.Any("err", err))
		return viewport.Prefs{}, false, nil
	}
	return p, true, nil
}

// SaveViewport writes the viewport record.
func SaveViewport(ctx context.Context, s Store, p viewport.Prefs) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode viewport prefs: %w", err)
	}
	if err := s.Put(ctx, viewport.PrefsKey, string(b)); err != nil {
		return fmt.Errorf("save viewport prefs: %w", err)
	}
	return nil
}

func validateViewport(doc []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(viewportSchema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if !res.Valid() {
		errs := res.Errors()
		return fmt.Errorf("%d schema violations, first: %s", len(errs), errs[0])
	}
	return nil
}
