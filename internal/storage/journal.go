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
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	applog "pagecanvas/internal/log"
	"pagecanvas/internal/tree"
)

// ErrJournalClosed is returned by Flush after Close.
var ErrJournalClosed = errors.New("journal closed")

// JournalOptions tunes a Journal.
type JournalOptions struct {
	// Queue bounds pending mutation entries; overflow is dropped and counted.
	Queue int
	// SnapshotEvery stores a snapshot after this many document saves (0 disables).
	SnapshotEvery int
	// SnapshotKeep is passed to SaveSnapshot.
	SnapshotKeep int
}

// JournalStats reports counters since start.
type JournalStats struct {
	Written int64
	Saved   int64
	Dropped int64
	Errors  int64
}

type journalEntry struct {
	op      string
	payload any
	at      time.Time
	// set on flush barriers only
	ack chan struct{}
}

// Journal records editor changes into a Store without blocking the editor.
// Hook calls enqueue; a single goroutine writes. Document saves coalesce to
// the latest serialized page.
type Journal struct {
	editor.NopHooks

	store  *Store
	pageID string
	opts   JournalOptions
	log    *slog.Logger

	q    chan journalEntry
	kick chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending []byte

	saves                            int
	written, saved, dropped, errored atomic.Int64
}

var (
	_ editor.Hooks            = (*Journal)(nil)
	_ editor.DocumentObserver = (*Journal)(nil)
)

// NewJournal starts a journal for one page.
func NewJournal(store *Store, pageID string, opts JournalOptions) *Journal {
	if opts.Queue <= 0 {
		opts.Queue = 256
	}
	j := &Journal{
		store:  store,
		pageID: pageID,
		opts:   opts,
		log:    applog.WithPage(applog.WithComponent("journal"), pageID),
		q:      make(chan journalEntry, opts.Queue),
		kick:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go j.loop()
	return j
}

func (j *Journal) enqueue(op string, payload any) {
	select {
	case <-j.quit:
		j.dropped.Add(1)
		return
	default:
	}
	select {
	case j.q <- journalEntry{op: op, payload: payload, at: time.Now()}:
	default:
		// drop if queue full
		j.dropped.Add(1)
	}
}

func (j *Journal) OnAddElement(el domain.Element) { j.enqueue("add_element", el) }

func (j *Journal) OnAddChild(parentID string, child domain.Child) {
	j.enqueue("add_child", map[string]any{"parentId": parentID, "child": child})
}

func (j *Journal) OnMoveChild(from, childID, to string, pos domain.Position) {
	j.enqueue("move_child", map[string]any{"fromParentId": from, "childId": childID, "toParentId": to, "position": pos})
}

func (j *Journal) OnUpdateChildPosition(parentID, childID string, v domain.Viewport, pos domain.Position) {
	j.enqueue("update_child_position", map[string]any{"parentId": parentID, "childId": childID, "viewMode": v, "position": pos})
}

func (j *Journal) OnUpdatePosition(id string, patch domain.Positions, mode tree.PositionMode) {
	j.enqueue("update_position", map[string]any{"id": id, "position": patch, "mode": mode.String()})
}

func (j *Journal) OnUpdateSize(id, childID string, size domain.Size) {
	j.enqueue("update_size", map[string]any{"id": id, "childId": childID, "size": size})
}

func (j *Journal) OnDeleteElement(id string) { j.enqueue("delete_element", map[string]any{"id": id}) }

func (j *Journal) OnDeleteChild(parentID, childID string) {
	j.enqueue("delete_child", map[string]any{"parentId": parentID, "childId": childID})
}

func (j *Journal) OnToggleVisibility(id, childID string, visible bool) {
	j.enqueue("toggle_visibility", map[string]any{"id": id, "childId": childID, "visible": visible})
}

func (j *Journal) OnToggleLock(id, childID string, locked bool) {
	j.enqueue("toggle_lock", map[string]any{"id": id, "childId": childID, "locked": locked})
}

func (j *Journal) OnGroupElements(ids []string) { j.enqueue("group", map[string]any{"ids": ids}) }

// OnDocumentChanged keeps only the newest document until the writer picks it up.
func (j *Journal) OnDocumentChanged(doc []byte) {
	j.mu.Lock()
	j.pending = doc
	j.mu.Unlock()
	select {
	case j.kick <- struct{}{}:
	default:
	}
}

// Flush blocks until everything queued before the call is written.
func (j *Journal) Flush(ctx context.Context) error {
	select {
	case <-j.quit:
		return ErrJournalClosed
	default:
	}
	ack := make(chan struct{})
	select {
	case <-j.quit:
		return ErrJournalClosed
	case j.q <- journalEntry{ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the writer. Safe to call twice.
func (j *Journal) Close() error {
	j.once.Do(func() { close(j.quit) })
	<-j.done
	return nil
}

// Stats returns the counters.
func (j *Journal) Stats() JournalStats {
	return JournalStats{
		Written: j.written.Load(),
		Saved:   j.saved.Load(),
		Dropped: j.dropped.Load(),
		Errors:  j.errored.Load(),
	}
}

func (j *Journal) loop() {
	defer close(j.done)
	for {
		select {
		case e := <-j.q:
			j.handle(e)
		case <-j.kick:
			j.saveDoc()
		case <-j.quit:
			for {
				select {
				case e := <-j.q:
					j.handle(e)
				default:
					j.saveDoc()
					return
				}
			}
		}
	}
}

func (j *Journal) handle(e journalEntry) {
	if e.ack != nil {
		j.saveDoc()
		close(e.ack)
		return
	}
	b, err := json.Marshal(e.payload)
	if err != nil {
		j.errored.Add(1)
		j.log.Warn("encode mutation", slog.String("op", e.op), slog.Any("err", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := j.store.AppendMutation(ctx, Mutation{PageID: j.pageID, Op: e.op, Payload: b, CreatedAt: e.at}); err != nil {
		j.errored.Add(1)
		j.log.Warn("append mutation", slog.String("op", e.op), slog.Any("err", err))
		return
	}
	j.written.Add(1)
}

func (j *Journal) saveDoc() {
	j.mu.Lock()
	doc := j.pending
	j.pending = nil
	j.mu.Unlock()
	if doc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.store.SavePageJSON(ctx, j.pageID, doc); err != nil {
		j.errored.Add(1)
		j.log.Warn("save page", slog.Any("err", err))
		return
	}
	j.saved.Add(1)
	j.saves++
	if j.opts.SnapshotEvery > 0 && j.saves%j.opts.SnapshotEvery == 0 {
		if err := j.store.SaveSnapshot(ctx, j.pageID, doc, time.Now(), j.opts.SnapshotKeep); err != nil {
			j.errored.Add(1)
			j.log.Warn("save snapshot", slog.Any("err", err))
		}
	}
}
