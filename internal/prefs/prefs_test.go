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
	"strings"
	"testing"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

func samplePrefs() viewport.Prefs {
	return viewport.Prefs{
		Version: viewport.PrefsVersion, Scale: 1.5, ScrollX: 120, ScrollY: -40,
		MinScale: 0.5, MaxScale: 3, EnablePan: true, EnableZoom: true,
	}
}

func openTemp(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteViewportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if _, ok, err := LoadViewport(ctx, s, nil); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	want := samplePrefs()
	if err := SaveViewport(ctx, s, want); err != nil {
		t.Fatalf("SaveViewport: %v", err)
	}
	want.Scale = 2
	if err := SaveViewport(ctx, s, want); err != nil {
		t.Fatalf("SaveViewport overwrite: %v", err)
	}
	got, ok, err := LoadViewport(ctx, s, nil)
	if err != nil || !ok {
		t.Fatalf("LoadViewport: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	ts, ok, err := s.UpdatedAt(ctx, viewport.PrefsKey)
	if err != nil || !ok || time.Since(ts) > time.Minute {
		t.Fatalf("UpdatedAt = %v ok=%v err=%v", ts, ok, err)
	}
}

func TestSQLiteReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = s.Close()
	s, err = Open(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, err := s.Get(ctx, "k"); v != "v" || !ok || err != nil {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
}

func TestInvalidRecordsFallBack(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"corrupt":       `{"version":1,"scale":`,
		"wrong version": `{"version":2,"scale":1,"scroll_x":0,"scroll_y":0,"min_scale":0.5,"max_scale":3,"enable_pan":true,"enable_zoom":true}`,
		"zero scale":    `{"version":1,"scale":0,"scroll_x":0,"scroll_y":0,"min_scale":0.5,"max_scale":3,"enable_pan":true,"enable_zoom":true}`,
		"missing field": `{"version":1,"scale":1}`,
		"string scale":  `{"version":1,"scale":"1","scroll_x":0,"scroll_y":0,"min_scale":0.5,"max_scale":3,"enable_pan":true,"enable_zoom":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			m := NewMemory()
			_ = m.Put(ctx, viewport.PrefsKey, raw)
			if _, ok, err := LoadViewport(ctx, m, nil); ok || err != nil {
				t.Fatalf("ok=%v err=%v, want fallback", ok, err)
			}
		})
	}
}

func TestMemoryAcceptsSavedRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := SaveViewport(ctx, m, samplePrefs()); err != nil {
		t.Fatalf("SaveViewport: %v", err)
	}
	if _, ok, err := LoadViewport(ctx, m, nil); !ok || err != nil {
		t.Fatalf("saved record rejected: ok=%v err=%v", ok, err)
	}
}

func TestRebind(t *testing.T) {
	got := rebind("INSERT INTO prefs(key, value, updated_at) VALUES(?, ?, ?)")
	if got != "INSERT INTO prefs(key, value, updated_at) VALUES($1, $2, $3)" {
		t.Fatalf("rebind = %q", got)
	}
	if !strings.Contains(dialects[DriverPgx].get, "$1") {
		t.Fatalf("pgx get query not rebound: %q", dialects[DriverPgx].get)
	}
}

func TestOpenRejectsBadOptions(t *testing.T) {
	ctx := context.Background()
	for _, o := range []Options{
		{Driver: "mysql"},
		{Driver: DriverSQLite},
		{Driver: DriverPgx},
		{Driver: DriverPgx, DSN: "postgres://%zz"},
	} {
		if s, err := Open(ctx, o); err == nil {
			_ = s.Close()
			t.Errorf("Open(%+v) succeeded", o)
		}
	}
}
