/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package resize tracks a corner-handle resize of the selected item.
package resize

import (
	"errors"
	"fmt"
	"math"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

// MinSize is the smallest width or height a resize can produce.
const MinSize = 50

// ErrBusy is returned when a resize is requested while a drag is running.
var ErrBusy = errors.New("resize refused while dragging")

// Target identifies the resized item. ParentID is set for children.
type Target struct {
	ParentID string
	ID       string
}

// Request starts a resize.
type Request struct {
	Target   Target
	Pointer  geometry.Pt // screen space
	Start    domain.Size
	Zoom     float64
	Locked   bool
	Dragging bool
}

// Overlay is the resize state machine. OnResize, when set, is called with
// the new size on every move.
type Overlay struct {
	OnResize func(Target, domain.Size)

	active bool
	req    Request
	last   domain.Size
}

func (o *Overlay) Active() bool { return o.active }

// Target returns the item being resized.
func (o *Overlay) Target() Target { return o.req.Target }

// Start returns the size the gesture began with.
func (o *Overlay) Start() domain.Size { return o.req.Start }

// Begin arms the overlay. Locked items and active drags are refused.
func (o *Overlay) Begin(r Request) error {
	if r.Dragging {
		return ErrBusy
	}
	if r.Locked {
		return fmt.Errorf("resize %q: %w", r.Target.ID, domain.ErrLockedElement)
	}
	o.active = true
	o.req = r
	o.last = r.Start
	return nil
}

// Move computes the size for the current pointer: the start size plus the
// pointer delta in canvas units, never below MinSize.
func (o *Overlay) Move(p geometry.Pt) (domain.Size, bool) {
	if !o.active {
		return domain.Size{}, false
	}
	scale := geometry.ZoomScale(o.req.Zoom)
	s := domain.Size{
		Width:  math.Max(MinSize, o.req.Start.Width+(p.X-o.req.Pointer.X)/scale),
		Height: math.Max(MinSize, o.req.Start.Height+(p.Y-o.req.Pointer.Y)/scale),
	}
	o.last = s
	if o.OnResize != nil {
		o.OnResize(o.req.Target, s)
	}
	return s, true
}

// End finishes the resize and reports the last computed size.
func (o *Overlay) End() (Target, domain.Size, bool) {
	if !o.active {
		return Target{}, domain.Size{}, false
	}
	t, s := o.req.Target, o.last
	o.active = false
	o.req = Request{}
	return t, s, true
}
