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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagecanvas/internal/domain"
)

// language=SQL
const insertPageSQL = `INSERT INTO pages(id, title, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

// language=SQL
const updatePageSQL = `UPDATE pages SET doc = ?, updated_at = ? WHERE id = ?`

// language=SQL
const selectPageSQL = `SELECT id, title, doc, created_at, updated_at FROM pages WHERE id = ?`

// language=SQL
const listPagesSQL = `SELECT id, title, created_at, updated_at FROM pages ORDER BY updated_at DESC, id`

// language=SQL
const insertMutationSQL = `INSERT INTO mutations(page_id, op, payload, created_at) VALUES (?, ?, ?, ?) RETURNING seq`

// language=SQL
const selectMutationsSQL = `SELECT seq, page_id, op, payload, created_at FROM mutations WHERE page_id = ? ORDER BY seq`

// PageInfo is a page listing row.
type PageInfo struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Page is a stored page with its document.
type Page struct {
	PageInfo
	Doc *domain.PageDocument
}

// Mutation is one journal entry.
type Mutation struct {
	Seq       int64
	PageID    string
	Op        string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreatePage stores doc under a new uuid.
func (s *Store) CreatePage(ctx context.Context, title string, doc *domain.PageDocument) (PageInfo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return PageInfo{}, errors.New("page title is required")
	}
	if doc == nil {
		doc = domain.NewPage(1200)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return PageInfo{}, fmt.Errorf("encode page: %w", err)
	}
	now := s.now()
	info := PageInfo{ID: uuid.NewString(), Title: title, CreatedAt: now.UTC(), UpdatedAt: now.UTC()}
	if _, err := s.db.ExecContext(ctx, s.q(insertPageSQL), info.ID, info.Title, string(b), ts(now), ts(now)); err != nil {
		return PageInfo{}, fmt.Errorf("insert page: %w", err)
	}
	s.log.Info("page created", slog.String("page", info.ID), slog.String("title", title))
	return info, nil
}

// SavePage replaces the stored document.
func (s *Store) SavePage(ctx context.Context, id string, doc *domain.PageDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return s.SavePageJSON(ctx, id, b)
}

// SavePageJSON replaces the stored document with an already encoded one.
func (s *Store) SavePageJSON(ctx context.Context, id string, doc []byte) error {
	if !json.Valid(doc) {
		return fmt.Errorf("save page %q: invalid json", id)
	}
	res, err := s.db.ExecContext(ctx, s.q(updatePageSQL), string(doc), ts(s.now()), id)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save page %q: %w", id, ErrNotFound)
	}
	return nil
}

// LoadPage reads a page and decodes its document.
func (s *Store) LoadPage(ctx context.Context, id string) (Page, error) {
	var (
		p                 Page
		raw, created, upd string
	)
	err := s.db.QueryRowContext(ctx, s.q(selectPageSQL), id).Scan(&p.ID, &p.Title, &raw, &created, &upd)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, fmt.Errorf("load page %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Page{}, fmt.Errorf("load page: %w", err)
	}
	var doc domain.PageDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Page{}, fmt.Errorf("decode page %q: %w", id, err)
	}
	if doc.Elements == nil {
		doc.Elements = []domain.Element{}
	}
	p.Doc = &doc
	p.CreatedAt, p.UpdatedAt = parseTS(created), parseTS(upd)
	return p, nil
}

// ListPages returns all pages, most recently updated first.
func (s *Store) ListPages(ctx context.Context) ([]PageInfo, error) {
	rows, err := s.db.QueryContext(ctx, listPagesSQL)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	var out []PageInfo
	for rows.Next() {
		var (
			p            PageInfo
			created, upd string
		)
		if err := rows.Scan(&p.ID, &p.Title, &created, &upd); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.CreatedAt, p.UpdatedAt = parseTS(created), parseTS(upd)
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendMutation adds a journal entry and returns its sequence number.
func (s *Store) AppendMutation(ctx context.Context, m Mutation) (int64, error) {
	if m.PageID == "" || m.Op == "" {
		return 0, errors.New("mutation needs page id and op")
	}
	payload := m.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	at := m.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	var seq int64
	if err := s.db.QueryRowContext(ctx, s.q(insertMutationSQL), m.PageID, m.Op, string(payload), ts(at)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("append mutation: %w", err)
	}
	return seq, nil
}

// Mutations lists a page's journal in order.
func (s *Store) Mutations(ctx context.Context, pageID string) ([]Mutation, error) {
	rows, err := s.db.QueryContext(ctx, s.q(selectMutationsSQL), pageID)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()
	var out []Mutation
	for rows.Next() {
		var (
			m           Mutation
			payload, at string
		)
		if err := rows.Scan(&m.Seq, &m.PageID, &m.Op, &payload, &at); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		m.CreatedAt = parseTS(at)
		out = append(out, m)
	}
	return out, rows.Err()
}
