/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	applog "pagecanvas/internal/log"
	"pagecanvas/internal/notify"
)

// ErrSessionClosed is returned when posting to a closed session.
var ErrSessionClosed = errors.New("editor session closed")

// ErrEventPanicked is returned by Do when the event panicked.
var ErrEventPanicked = errors.New("event panicked")

// Session serializes events onto one goroutine that owns the controller, so
// events posted from anywhere are applied strictly in order and never
// interleave. A panicking event is recovered, reported as an error notice
// and leaves the controller idle.
type Session struct {
	ctl     *Controller
	mu      sync.Mutex
	pending []func(*Controller)
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	log     *slog.Logger
}

// NewSession starts the event loop for ctl. queue sizes the initial backlog;
// the backlog grows as needed, so Post never blocks.
func NewSession(ctl *Controller, queue int) *Session {
	if queue <= 0 {
		queue = 64
	}
	s := &Session{
		ctl:     ctl,
		pending: make([]func(*Controller), 0, queue),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     applog.WithComponent("session"),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for range s.wake {
		for {
			s.mu.Lock()
			batch, closed := s.pending, s.closed
			s.pending = nil
			s.mu.Unlock()
			for _, fn := range batch {
				s.apply(fn)
			}
			if closed {
				return
			}
			if len(batch) == 0 {
				break
			}
		}
	}
}

func (s *Session) apply(fn func(*Controller)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("event panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			s.ctl.resetTransient()
			s.ctl.bus.Publish(notify.Notice{Severity: notify.Error, Code: notify.CodeInternal, Message: fmt.Sprint(r)})
		}
	}()
	fn(s.ctl)
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Post queues fn and returns without waiting for it. Events may post
// follow-up events; those run after every event queued before them.
func (s *Session) Post(fn func(*Controller)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
	s.signal()
	return nil
}

// Do queues fn and waits for its result or ctx. Calling Do from inside an
// event waits on the loop that is running it; use Post there.
func (s *Session) Do(ctx context.Context, fn func(*Controller) error) error {
	res := make(chan error, 1)
	err := s.Post(func(c *Controller) {
		out := ErrEventPanicked
		defer func() { res <- out }()
		out = fn(c)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits until queued ones have run.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
	<-s.done
}
