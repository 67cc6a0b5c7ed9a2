/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IDGenerator produces "<prefix>-<unix millis>" ids. Millis never repeat for
// one generator: a second id inside the same millisecond takes the next one.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDGenerator returns a generator reading the given clock (time.Now when nil).
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a fresh id with the given prefix (a widget type or source id).
func (g *IDGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s-%d", prefix, ms)
}

// Observe advances the generator past ids already present in a loaded
// document so they are never reissued.
func (g *IDGenerator) Observe(ms int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms > g.last {
		g.last = ms
	}
}

// ObserveID feeds the millis suffix of a "<prefix>-<millis>" id to Observe.
// Ids without a numeric suffix are ignored.
func (g *IDGenerator) ObserveID(id string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return
	}
	ms, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil || ms <= 0 {
		return
	}
	g.Observe(ms)
}
