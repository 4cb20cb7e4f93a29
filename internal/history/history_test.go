/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"testing"
	"time"
)

func TestUndoRedoRestoresScenes(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerPage: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	// scene goes "" -> "a" -> "ab"
	m.Record(Snapshot{Page: 1, Blob: []byte(""), TS: t0})
	m.Record(Snapshot{Page: 1, Blob: []byte("a"), TS: t0.Add(20 * time.Millisecond)})
	if !m.CanUndo(1) || m.CanRedo(1) {
		t.Fatalf("guards wrong before undo")
	}
	s, ok := m.Undo(1, []byte("ab"))
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("undo expected 'a', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Undo(1, []byte("a"))
	if !ok || string(s.Blob) != "" {
		t.Fatalf("second undo expected empty scene, got %q", s.Blob)
	}
	if m.CanUndo(1) {
		t.Fatalf("undo stack should be empty")
	}
	s, ok = m.Redo(1, []byte(""))
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("redo expected 'a', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Redo(1, []byte("a"))
	if !ok || string(s.Blob) != "ab" {
		t.Fatalf("second redo expected 'ab', got %q", s.Blob)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	m.Record(Snapshot{Page: 0, Blob: []byte("x"), TS: time.Now()})
	m.Undo(0, []byte("xy"))
	m.Record(Snapshot{Page: 0, Blob: []byte("x"), TS: time.Now()})
	if m.CanRedo(0) {
		t.Fatalf("new edit kept redo history")
	}
}

func TestBurstCoalesces(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{Page: 2, Blob: []byte("1"), TS: t0})
	m.Record(Snapshot{Page: 2, Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)})
	if _, _, total := m.stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(2, []byte("3"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("burst should undo to its first scene, got ok=%v blob=%q", ok, s.Blob)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerPage: 2, MinInterval: time.Millisecond})
	for i := 0; i < 10; i++ {
		m.Record(Snapshot{Page: 3, Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Second)})
	}
	if _, _, total := m.stats(); total > 2 {
		t.Fatalf("expected MaxPerPage cap to limit to 2, got %d", total)
	}
}

func TestGlobalPruneAcrossPages(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8})
	t0 := time.Now()
	m.Record(Snapshot{Page: 1, Blob: []byte("xxxx"), TS: t0})
	m.Record(Snapshot{Page: 2, Blob: []byte("yyyy"), TS: t0.Add(time.Second)})
	m.Record(Snapshot{Page: 2, Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	if _, ok := m.Undo(1, nil); ok {
		t.Fatalf("expected page 1 to have been pruned")
	}
	if _, ok := m.Undo(2, nil); !ok {
		t.Fatalf("expected page 2 to have snapshots")
	}
}

func TestClearPageAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerPage: 10})
	m.Record(Snapshot{Page: 7, Blob: []byte("abcdef"), TS: time.Now()})
	if tb, pages, total := m.stats(); tb == 0 || pages != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d pages=%d total=%d", tb, pages, total)
	}
	m.ClearPage(7)
	if tb, pages, total := m.stats(); tb != 0 || pages != 0 || total != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d pages=%d total=%d", tb, pages, total)
	}
}
