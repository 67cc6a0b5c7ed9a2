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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pagecanvas/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "pages.sqlite")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTemp(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("schema = %d, want %d", v, schemaVersion)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.sqlite")
	s, err := Open(ctx, Config{DSN: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info, err := s.CreatePage(ctx, "Home", nil)
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	_ = s.Close()

	s2, err := Open(ctx, Config{DSN: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	p, err := s2.LoadPage(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if p.Title != "Home" || p.Doc.Canvas.Width != 1200 {
		t.Fatalf("unexpected page: %+v", p.PageInfo)
	}
}

func TestUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("want ErrUnknownDriver, got %v", err)
	}
}

func TestPageSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	doc := domain.NewPage(960)
	doc.Elements = append(doc.Elements, domain.Element{Node: domain.Node{
		ID:       "button-1",
		Type:     "button",
		Position: domain.NewPositions(domain.Position{X: 200, Y: 340}),
		Visible:  true,
	}, Children: []domain.Child{}})
	info, err := s.CreatePage(ctx, "Landing", domain.NewPage(960))
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := s.SavePage(ctx, info.ID, doc); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	p, err := s.LoadPage(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if len(p.Doc.Elements) != 1 {
		t.Fatalf("want 1 element, got %d", len(p.Doc.Elements))
	}
	got := p.Doc.Elements[0].Position.At(domain.Tablet)
	if got.X != 200 || got.Y != 340 {
		t.Fatalf("tablet position = %+v", got)
	}
}

func TestSaveMissingPage(t *testing.T) {
	s := openTemp(t)
	err := s.SavePage(context.Background(), "nope", domain.NewPage(1200))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.LoadPage(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load: want ErrNotFound, got %v", err)
	}
}

func TestCreatePageNeedsTitle(t *testing.T) {
	s := openTemp(t)
	if _, err := s.CreatePage(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected error for empty title")
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	a, _ := s.CreatePage(ctx, "A", nil)
	b, _ := s.CreatePage(ctx, "B", nil)
	if err := s.SavePage(ctx, a.ID, domain.NewPage(1200)); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	list, err := s.ListPages(ctx)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestMutationsAppendInOrder(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, op := range []string{"add_element", "update_position", "delete_element"} {
		if _, err := s.AppendMutation(ctx, Mutation{PageID: "p1", Op: op}); err != nil {
			t.Fatalf("AppendMutation: %v", err)
		}
	}
	_, _ = s.AppendMutation(ctx, Mutation{PageID: "p2", Op: "add_element"})
	ms, err := s.Mutations(ctx, "p1")
	if err != nil {
		t.Fatalf("Mutations: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("want 3, got %d", len(ms))
	}
	if ms[0].Op != "add_element" || ms[2].Op != "delete_element" || ms[0].Seq >= ms[1].Seq {
		t.Fatalf("unexpected journal: %+v", ms)
	}
	if string(ms[0].Payload) != "{}" {
		t.Fatalf("payload = %s", ms[0].Payload)
	}
	if _, err := s.AppendMutation(ctx, Mutation{Op: "x"}); err == nil {
		t.Fatalf("expected error without page id")
	}
}

func TestSnapshotsPrune(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		doc := []byte(`{"n":` + string(rune('0'+i)) + `}`)
		if err := s.SaveSnapshot(ctx, "p1", doc, base.Add(time.Duration(i)*time.Minute), 3); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}
	list, err := s.ListSnapshots(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("want 3 kept, got %d", len(list))
	}
	latest, err := s.LatestSnapshot(ctx, "p1")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if string(latest.Doc) != `{"n":4}` {
		t.Fatalf("latest = %s", latest.Doc)
	}
	if _, err := s.LatestSnapshot(ctx, "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPlaceholderRebind(t *testing.T) {
	s := &Store{dialect: DriverPostgres}
	got := s.q("UPDATE pages SET doc = ?, updated_at = ? WHERE id = ?")
	if got != "UPDATE pages SET doc = $1, updated_at = $2 WHERE id = $3" {
		t.Fatalf("rebind = %q", got)
	}
	s.dialect = DriverSQLite
	if s.q("a = ?") != "a = ?" {
		t.Fatalf("sqlite query must be unchanged")
	}
}
