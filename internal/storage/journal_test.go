/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	"pagecanvas/internal/tree"
)

func TestJournalRecordsControllerChanges(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	info, err := s.CreatePage(ctx, "Journal", nil)
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	j := NewJournal(s, info.ID, JournalOptions{SnapshotEvery: 1})
	defer j.Close()

	c := editor.New(tree.New(domain.NewPage(1200), nil), editor.WithHooks(j), editor.WithPageID(info.ID))
	if err := c.StartPaletteDrag(domain.Template{Type: domain.TypeSection}); err != nil {
		t.Fatalf("StartPaletteDrag: %v", err)
	}
	if err := c.PointerUp(100, 100); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	ms, err := s.Mutations(ctx, info.ID)
	if err != nil {
		t.Fatalf("Mutations: %v", err)
	}
	if len(ms) == 0 || ms[0].Op != "add_element" {
		t.Fatalf("unexpected journal: %+v", ms)
	}
	p, err := s.LoadPage(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if len(p.Doc.Elements) != 1 || p.Doc.Elements[0].Type != domain.TypeSection {
		t.Fatalf("saved doc not updated: %+v", p.Doc.Elements)
	}
	if _, err := s.LatestSnapshot(ctx, info.ID); err != nil {
		t.Fatalf("expected a snapshot: %v", err)
	}
	if st := j.Stats(); st.Written == 0 || st.Saved == 0 || st.Errors != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestJournalCoalescesDocuments(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	info, _ := s.CreatePage(ctx, "Coalesce", nil)
	j := NewJournal(s, info.ID, JournalOptions{})
	for i := 0; i < 50; i++ {
		doc := domain.NewPage(float64(100 + i))
		b, _ := json.Marshal(doc)
		j.OnDocumentChanged(b)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p, err := s.LoadPage(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if p.Doc.Canvas.Width != 149 {
		t.Fatalf("want last document, got width %v", p.Doc.Canvas.Width)
	}
	if st := j.Stats(); st.Saved > 50 || st.Saved == 0 {
		t.Fatalf("saved = %d", st.Saved)
	}
}

func TestJournalDropsWhenFullAndAfterClose(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	j := NewJournal(s, "p1", JournalOptions{Queue: 1})
	_ = j.Close()
	j.OnDeleteElement("x")
	if j.Stats().Dropped != 1 {
		t.Fatalf("dropped = %d", j.Stats().Dropped)
	}
	if err := j.Flush(ctx); err != ErrJournalClosed {
		t.Fatalf("want ErrJournalClosed, got %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestJournalFlushHonoursContext(t *testing.T) {
	s := openTemp(t)
	j := NewJournal(s, "p1", JournalOptions{})
	defer j.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.OnToggleLock("a", "", true)
	if err := j.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	ms, _ := s.Mutations(ctx, "p1")
	if len(ms) != 1 || ms[0].Op != "toggle_lock" {
		t.Fatalf("unexpected journal: %+v", ms)
	}
}
