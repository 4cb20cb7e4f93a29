/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps per-page undo/redo stacks of opaque scene snapshots
// for the drawing engines.
package history

import (
	"sync"
	"time"
)

// Snapshot is an encoded page scene. The manager never looks inside Blob;
// its size is len(Blob).
type Snapshot struct {
	Page int
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing.
type Config struct {
	// MaxBytes is a soft cap over all pages; oldest entries go first.
	MaxBytes int
	// MaxPerPage limits undo depth per page (0 means unlimited).
	MaxPerPage int
	// MinInterval merges edits recorded within the interval on the same page
	// into one undo step.
	MinInterval time.Duration
}

// Manager holds undo and redo stacks per page. Record is called with the
// scene as it was before an edit; Undo and Redo take the scene as it is now
// and return the one to restore. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[int][]Snapshot
	redo map[int][]Snapshot

	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// Record pushes the pre-edit scene for a page and clears its redo stack.
// Within MinInterval of the previous record the earlier snapshot is kept, so
// a burst of edits undoes in one step.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Page)
	stack := m.undo[s.Page]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		stack[n-1].TS = s.TS
		return
	}
	m.undo[s.Page] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Page)
}

// Undo returns the scene to restore for page and remembers current for Redo.
func (m *Manager) Undo(page int, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[page]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[page] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[page] = append(m.redo[page], Snapshot{Page: page, Blob: current, TS: s.TS})
	m.totalBytes += len(current)
	return s, true
}

// Redo reverses the last Undo on page.
func (m *Manager) Redo(page int, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[page]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[page] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	// a redo step is never merged with the step before it
	m.undo[page] = append(m.undo[page], Snapshot{Page: page, Blob: current, TS: time.Time{}})
	m.totalBytes += len(current)
	m.enforceCapsLocked(page)
	return s, true
}

func (m *Manager) CanUndo(page int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[page]) > 0
}

func (m *Manager) CanRedo(page int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[page]) > 0
}

// ClearPage drops both stacks of a page.
func (m *Manager) ClearPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[page] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(page)
	delete(m.undo, page)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// stats returns current sizes.
func (m *Manager) stats() (totalBytes int, pages int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, pages, totalSnapshots
}

func (m *Manager) dropRedoLocked(page int) {
	for _, s := range m.redo[page] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, page)
}

func (m *Manager) enforceCapsLocked(page int) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[page]
		if len(stack) > m.cfg.MaxPerPage {
			toDrop := len(stack) - m.cfg.MaxPerPage
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[page] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all pages, never
	// the newest entry of the page being edited.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestPage := 0
		found := false
		var oldestTS time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 || (p == page && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage, oldestTS, found = p, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestPage]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestPage] = stack[1:]
		if len(m.undo[oldestPage]) == 0 {
			delete(m.undo, oldestPage)
		}
	}
}
