/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(page, label, blob string, ts time.Time) Snapshot {
	return Snapshot{PageID: page, Label: label, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoRestoresStates(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1 << 20, MaxPerPage: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	// state "a" before op1, state "b" before op2, current state "c"
	m.PushSnapshot(snap("p", "drop", "a", t0))
	m.PushSnapshot(snap("p", "drop", "b", t0.Add(time.Second)))

	s, ok := m.Undo("p", snap("p", "", "c", t0))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Undo("p", snap("p", "", "b", t0))
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("second undo expected 'a', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Redo("p", snap("p", "", "a", t0))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("redo expected 'b', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Redo("p", snap("p", "", "b", t0))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, s.Blob)
	}
	if m.CanRedo("p") {
		t.Fatalf("redo stack should be empty")
	}
}

func TestNewCaptureClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.PushSnapshot(snap("p", "drop", "a", t0))
	if _, ok := m.Undo("p", snap("p", "", "b", t0)); !ok {
		t.Fatalf("undo failed")
	}
	m.PushSnapshot(snap("p", "drop", "a", t0.Add(time.Second)))
	if m.CanRedo("p") {
		t.Fatalf("new capture must clear redo")
	}
}

func TestDiscardSkipsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.PushSnapshot(snap("p", "drop", "a", t0))
	m.PushSnapshot(snap("p", "resize", "b", t0.Add(time.Second)))
	s, ok := m.Discard("p")
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("discard expected 'b', got ok=%v blob=%q", ok, s.Blob)
	}
	if m.CanRedo("p") {
		t.Fatalf("discard must not record redo")
	}
	if total, _, depth := m.Stats(); depth != 1 || total != 1 {
		t.Fatalf("stats after discard: bytes=%d depth=%d", total, depth)
	}
	if _, ok := m.Discard("q"); ok {
		t.Fatalf("discard on empty page should report false")
	}
}

func TestCoalesceKeepsFirstOfBurst(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.PushSnapshot(snap("p", "nudge", "1", t0))
	m.PushSnapshot(snap("p", "nudge", "2", t0.Add(10*time.Millisecond)))
	m.PushSnapshot(snap("p", "nudge", "3", t0.Add(20*time.Millisecond)))
	if _, _, depth := m.Stats(); depth != 1 {
		t.Fatalf("expected burst coalesced to 1 snapshot, got %d", depth)
	}
	s, ok := m.Undo("p", snap("p", "", "4", t0))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected state before the burst, got ok=%v blob=%q", ok, s.Blob)
	}
	// a different label is never coalesced
	m.PushSnapshot(snap("p", "nudge", "5", t0.Add(30*time.Millisecond)))
	m.PushSnapshot(snap("p", "delete", "6", t0.Add(31*time.Millisecond)))
	if _, _, depth := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 snapshots, got %d", depth)
	}
}

func TestCoalesceRestrictedToLabels(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Second, Coalesce: map[string]bool{"nudge": true}})
	t0 := time.Now()
	m.PushSnapshot(snap("p", "drop", "1", t0))
	m.PushSnapshot(snap("p", "drop", "2", t0.Add(time.Millisecond)))
	if _, _, depth := m.Stats(); depth != 2 {
		t.Fatalf("drops must not coalesce, depth=%d", depth)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerPage: 2})
	for i := 0; i < 10; i++ {
		m.PushSnapshot(snap("p", "drop", "xxxxx", time.Now().Add(time.Duration(i)*time.Millisecond)))
	}
	if _, _, depth := m.Stats(); depth > 2 {
		t.Fatalf("expected MaxPerPage cap to limit to 2, got %d", depth)
	}
}

func TestGlobalPruneAcrossPages(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8})
	t0 := time.Now()
	m.PushSnapshot(snap("one", "drop", "xxxx", t0))
	m.PushSnapshot(snap("two", "drop", "yyyy", t0.Add(time.Second)))
	m.PushSnapshot(snap("two", "drop", "zzzz", t0.Add(2*time.Second)))
	if m.CanUndo("one") {
		t.Fatalf("expected oldest page history to be pruned")
	}
	if !m.CanUndo("two") {
		t.Fatalf("expected page two to keep history")
	}
}

func TestClearPage(t *testing.T) {
	m := NewManager(Config{})
	m.PushSnapshot(snap("p", "drop", "abcdef", time.Now()))
	m.ClearPage("p")
	if tb, pages, depth := m.Stats(); tb != 0 || pages != 0 || depth != 0 {
		t.Fatalf("expected empty stats, got tb=%d pages=%d depth=%d", tb, pages, depth)
	}
}
