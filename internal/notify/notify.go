/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notify is the narrow publish/subscribe channel for user-facing
// notices (toasts). It carries confirmations and failures alike, told apart
// by severity, and never carries tree mutations.
package notify

import (
	"errors"
	"slices"
	"sync"
	"time"

	"pagecanvas/internal/domain"
)

// Severity of a notice.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message for the user.
type Notice struct {
	Severity Severity
	Code     string
	Message  string
	At       time.Time
}

// Codes used by the engine.
const (
	CodeGeometry   = "geometry_unavailable"
	CodeInvalid    = "invalid_drop_target"
	CodeLocked     = "locked"
	CodeOrphan     = "orphan_reference"
	CodeInternal   = "internal"
	CodeAdded      = "added"
	CodeMoved      = "moved"
	CodeDeleted    = "deleted"
	CodeDuplicated = "duplicated"
	CodePopup      = "popup"
	CodeGroup      = "group"
	CodeUndo       = "undo"
)

// CodeFor maps an engine error onto a notice code and severity.
func CodeFor(err error) (string, Severity) {
	switch {
	case errors.Is(err, domain.ErrLockedElement):
		return CodeLocked, Warn
	case errors.Is(err, domain.ErrInvalidDropTarget):
		return CodeInvalid, Warn
	case errors.Is(err, domain.ErrOrphanReference):
		return CodeOrphan, Warn
	case errors.Is(err, domain.ErrGeometryUnavailable):
		return CodeGeometry, Warn
	default:
		return CodeInternal, Error
	}
}

// Handler receives notices. It runs on the publisher's goroutine and must
// not block.
type Handler func(Notice)

// Bus fans notices out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]Handler
	now    func() time.Time
	recent []Notice
	keep   int
}

// NewBus returns a bus that also keeps the last keep notices for polling.
func NewBus(keep int) *Bus {
	if keep < 0 {
		keep = 0
	}
	return &Bus{subs: make(map[int]Handler), now: time.Now, keep: keep}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers n to every subscriber in subscription order.
func (b *Bus) Publish(n Notice) {
	if b == nil {
		return
	}
	if n.At.IsZero() {
		n.At = b.now()
	}
	b.mu.Lock()
	if b.keep > 0 {
		b.recent = append(b.recent, n)
		if over := len(b.recent) - b.keep; over > 0 {
			b.recent = append([]Notice(nil), b.recent[over:]...)
		}
	}
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	hs := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		hs = append(hs, b.subs[id])
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(n)
	}
}

// Info publishes an informational notice.
func (b *Bus) Info(code, msg string) { b.Publish(Notice{Severity: Info, Code: code, Message: msg}) }

// Err publishes the notice matching an engine error.
func (b *Bus) Err(err error) {
	if err == nil {
		return
	}
	code, sev := CodeFor(err)
	b.Publish(Notice{Severity: sev, Code: code, Message: err.Error()})
}

// Recent returns the retained notices, oldest first.
func (b *Bus) Recent() []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Notice(nil), b.recent...)
}
