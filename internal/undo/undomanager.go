/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is a serialized page document captured before a mutation.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// Label names the operation that followed the capture.
type Snapshot struct {
	PageID string
	Label  string
	Blob   []byte
	TS     time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; oldest undo entries are pruned when exceeded.
	MaxBytes int
	// MaxPerPage limits undo depth per page (0 means unlimited).
	MaxPerPage int
	// MinInterval coalesces a burst of same-label captures (arrow nudges):
	// the first capture of the burst is kept so one undo reverts the burst.
	MinInterval time.Duration
	// Coalesce limits coalescing to the listed labels; nil allows any label.
	Coalesce map[string]bool
}

// Manager keeps undo/redo stacks per page. It is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	undo       map[string][]Snapshot
	redo       map[string][]Snapshot
	lastPush   map[string]Snapshot
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{
		cfg:      cfg,
		undo:     make(map[string][]Snapshot),
		redo:     make(map[string][]Snapshot),
		lastPush: make(map[string]Snapshot),
	}
}

// PushSnapshot records the state before a mutation and clears the page's
// redo stack. A capture with the same label as the previous one, within
// MinInterval of it, is coalesced into it.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.PageID)
	prev, hasPrev := m.lastPush[s.PageID]
	m.lastPush[s.PageID] = s
	if hasPrev && m.coalesces(prev, s) && len(m.undo[s.PageID]) > 0 {
		return
	}
	m.undo[s.PageID] = append(m.undo[s.PageID], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.PageID)
}

func (m *Manager) coalesces(prev, s Snapshot) bool {
	if s.Label == "" || s.Label != prev.Label || s.TS.Sub(prev.TS) >= m.cfg.MinInterval {
		return false
	}
	return m.cfg.Coalesce == nil || m.cfg.Coalesce[s.Label]
}

// Undo pops the latest captured state for the page and stores current on
// the redo stack. The caller restores the returned snapshot.
func (m *Manager) Undo(pageID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[pageID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[pageID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	current.PageID = pageID
	m.redo[pageID] = append(m.redo[pageID], current)
	m.totalBytes += len(current.Blob)
	delete(m.lastPush, pageID)
	m.enforceCapsLocked(pageID)
	return s, true
}

// Discard pops the latest captured state without touching redo. It backs
// out of a gesture whose effect was applied live and then abandoned.
func (m *Manager) Discard(pageID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[pageID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[pageID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	delete(m.lastPush, pageID)
	return s, true
}

// Redo pops the latest undone state and pushes current back onto undo.
func (m *Manager) Redo(pageID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[pageID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[pageID] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	current.PageID = pageID
	m.undo[pageID] = append(m.undo[pageID], current)
	m.totalBytes += len(current.Blob)
	delete(m.lastPush, pageID)
	m.enforceCapsLocked(pageID)
	return s, true
}

// CanUndo reports whether the page has undo history.
func (m *Manager) CanUndo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[pageID]) > 0
}

// CanRedo reports whether the page has redo history.
func (m *Manager) CanRedo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[pageID]) > 0
}

// ClearPage drops all history for a page.
func (m *Manager) ClearPage(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[pageID] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(pageID)
	delete(m.undo, pageID)
	delete(m.lastPush, pageID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, pages int, undoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages = len(m.undo)
	for _, v := range m.undo {
		undoDepth += len(v)
	}
	return m.totalBytes, pages, undoDepth
}

func (m *Manager) dropRedoLocked(pageID string) {
	for _, s := range m.redo[pageID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, pageID)
}

func (m *Manager) enforceCapsLocked(pageID string) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[pageID]
		if extra := len(stack) - m.cfg.MaxPerPage; extra > 0 {
			for i := 0; i < extra; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[pageID] = append([]Snapshot{}, stack[extra:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all pages.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestPage := ""
		found := false
		var oldestTS time.Time
		for page, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage, oldestTS, found = page, stack[0].TS, true
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
