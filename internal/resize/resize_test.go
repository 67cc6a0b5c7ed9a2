/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package resize

import (
	"errors"
	"testing"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

func TestMoveScalesByZoomAndClamps(t *testing.T) {
	var calls int
	o := &Overlay{OnResize: func(Target, domain.Size) { calls++ }}
	err := o.Begin(Request{Target: Target{ID: "b1"}, Pointer: geometry.Pt{X: 100, Y: 100}, Start: domain.Size{Width: 200, Height: 80}, Zoom: 200})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	s, ok := o.Move(geometry.Pt{X: 140, Y: 60})
	if !ok || s.Width != 220 || s.Height != 60 {
		t.Fatalf("got %+v ok=%v", s, ok)
	}
	s, _ = o.Move(geometry.Pt{X: -1000, Y: -1000})
	if s.Width != MinSize || s.Height != MinSize {
		t.Fatalf("expected clamp to %d, got %+v", MinSize, s)
	}
	if calls != 2 {
		t.Fatalf("callback calls = %d", calls)
	}
	tgt, last, ok := o.End()
	if !ok || tgt.ID != "b1" || last != s {
		t.Fatalf("End = %+v %+v %v", tgt, last, ok)
	}
	if _, ok := o.Move(geometry.Pt{}); ok {
		t.Fatalf("move after end must be ignored")
	}
}

func TestBeginRefusals(t *testing.T) {
	o := &Overlay{}
	if err := o.Begin(Request{Target: Target{ID: "x"}, Dragging: true}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := o.Begin(Request{Target: Target{ID: "x"}, Locked: true}); !errors.Is(err, domain.ErrLockedElement) {
		t.Fatalf("expected ErrLockedElement, got %v", err)
	}
	if o.Active() {
		t.Fatalf("refused resize must not be active")
	}
}
