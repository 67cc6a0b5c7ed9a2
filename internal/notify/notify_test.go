/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notify

import (
	"fmt"
	"testing"

	"pagecanvas/internal/domain"
)

func TestBusDeliversInOrderAndUnsubscribes(t *testing.T) {
	b := NewBus(2)
	var got []string
	unsub := b.Subscribe(func(n Notice) { got = append(got, "a:"+n.Code) })
	b.Subscribe(func(n Notice) { got = append(got, "b:"+n.Code) })

	b.Info(CodeAdded, "added")
	unsub()
	unsub()
	b.Info(CodeMoved, "moved")
	b.Info(CodeDeleted, "deleted")

	want := []string{"a:added", "b:added", "b:moved", "b:deleted"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("delivery mismatch: got %v want %v", got, want)
	}
	recent := b.Recent()
	if len(recent) != 2 || recent[0].Code != CodeMoved || recent[1].Code != CodeDeleted {
		t.Fatalf("unexpected retained notices %+v", recent)
	}
}

func TestErrSeverity(t *testing.T) {
	b := NewBus(4)
	b.Err(fmt.Errorf("drag: %w", domain.ErrLockedElement))
	b.Err(fmt.Errorf("boom"))
	b.Err(nil)
	r := b.Recent()
	if len(r) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(r))
	}
	if r[0].Code != CodeLocked || r[0].Severity != Warn {
		t.Fatalf("locked error mapped wrong: %+v", r[0])
	}
	if r[1].Code != CodeInternal || r[1].Severity != Error {
		t.Fatalf("unknown error mapped wrong: %+v", r[1])
	}
}
