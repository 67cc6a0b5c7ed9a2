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
	"errors"
	"fmt"
	"time"
)

// language=SQL
const insertSnapshotSQL = `INSERT INTO snapshots(page_id, ts, doc) VALUES (?, ?, ?)`

// language=SQL
const selectLatestSnapshotSQL = `SELECT ts, doc FROM snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
const listSnapshotsSQL = `SELECT ts, doc FROM snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE page_id = ? AND id NOT IN (
	SELECT id FROM (SELECT id FROM snapshots WHERE page_id = ? ORDER BY ts DESC, id DESC LIMIT ?) AS keep
)`

// DefaultSnapshotKeep is how many snapshots per page survive pruning.
const DefaultSnapshotKeep = 20

// Snapshot is a stored copy of a page document.
type Snapshot struct {
	TS  time.Time
	Doc []byte
}

// SaveSnapshot stores a document copy and prunes all but the newest keep
// snapshots of the page (keep <= 0 means DefaultSnapshotKeep).
func (s *Store) SaveSnapshot(ctx context.Context, pageID string, doc []byte, at time.Time, keep int) error {
	if pageID == "" {
		return errors.New("page id is required")
	}
	if keep <= 0 {
		keep = DefaultSnapshotKeep
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(insertSnapshotSQL), pageID, ts(at), string(doc)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(pruneOldSnapshotsSQL), pageID, pageID, keep); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return tx.Commit()
}

// LatestSnapshot returns the newest snapshot of a page.
func (s *Store) LatestSnapshot(ctx context.Context, pageID string) (Snapshot, error) {
	var (
		at  string
		doc string
	)
	err := s.db.QueryRowContext(ctx, s.q(selectLatestSnapshotSQL), pageID).Scan(&at, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot for %q: %w", pageID, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Snapshot{TS: parseTS(at), Doc: []byte(doc)}, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, pageID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultSnapshotKeep
	}
	rows, err := s.db.QueryContext(ctx, s.q(listSnapshotsSQL), pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var at, doc string
		if err := rows.Scan(&at, &doc); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, Snapshot{TS: parseTS(at), Doc: []byte(doc)})
	}
	return out, rows.Err()
}
