/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/drop"
	"pagecanvas/internal/geometry"
	"pagecanvas/internal/notify"
	"pagecanvas/internal/resize"
	"pagecanvas/internal/snap"
	"pagecanvas/internal/tree"
)

// StartDrag begins a drag. Locked or unknown sources are refused with a
// notice and the controller stays idle.
func (c *Controller) StartDrag(p drop.Payload) error {
	if c.sizer.Active() {
		return c.fail("start_drag", fmt.Errorf("start drag: %w", resize.ErrBusy))
	}
	c.menu = nil
	if _, err := c.drops.Begin(p); err != nil {
		return c.fail("start_drag", err)
	}
	c.preview, c.guides, c.hover = nil, nil, drop.Target{}
	return nil
}

// StartPaletteDrag validates a raw palette template and starts dragging it.
func (c *Controller) StartPaletteDrag(t domain.Template) error {
	return c.StartDrag(drop.Payload{Kind: drop.NewFromPalette, Template: t})
}

// PointerMove updates the live preview, guides and hover target. Without a
// mounted canvas the frame is skipped.
func (c *Controller) PointerMove(px, py float64) error {
	if c.sizer.Active() {
		c.ResizeMove(px, py)
		return nil
	}
	if !c.drops.Active() {
		return nil
	}
	p, err := c.canvasPoint(px, py)
	if err != nil {
		c.log.Debug("frame skipped", slog.Any("err", err))
		return err
	}
	res := c.snapPoint(p)
	c.hover = c.drops.Hover(p, c.env())
	size := c.drops.Payload().Size
	r := geometry.R(res.Snapped.X, res.Snapped.Y, size.Width, size.Height)
	c.preview = &r
	c.guides = res.Guides
	return nil
}

func (c *Controller) snapPoint(p geometry.Pt) snap.Result {
	var exclude []string
	if id := c.drops.Payload().SourceID(); id != "" {
		exclude = append(exclude, id)
	}
	return snap.Compute(p, c.tree.Document(), snap.Options{
		GridSize: c.gridSize(),
		Viewport: c.view.Viewport,
		Exclude:  exclude,
	})
}

// PointerUp commits the drag at the pointer. Every failure leaves the tree
// untouched, publishes a notice and returns the controller to idle.
func (c *Controller) PointerUp(px, py float64) error {
	if c.sizer.Active() {
		return c.ResizeEnd()
	}
	if !c.drops.Active() {
		return nil
	}
	defer func() {
		c.preview, c.guides, c.hover = nil, nil, drop.Target{}
	}()
	p, err := c.canvasPoint(px, py)
	if err != nil {
		c.drops.Cancel()
		return c.fail("drop", err)
	}
	placed := c.snapPoint(p).Snapped
	plan, err := c.drops.Commit(p, placed, c.env())
	if err != nil {
		return c.fail("drop", err)
	}
	var res drop.Result
	err = c.mutate("drop:"+plan.Op.String(), func() error {
		var aerr error
		res, aerr = plan.Apply(c.tree)
		return aerr
	})
	if err != nil {
		return c.fail("drop", err)
	}
	c.afterDrop(plan, res)
	return nil
}

func (c *Controller) afterDrop(plan drop.Plan, res drop.Result) {
	c.log.Info("drop committed", slog.String("op", plan.Op.String()), slog.String("id", res.ID), slog.String("parent", res.ParentID))
	switch plan.Op {
	case drop.OpAddElement:
		c.hooks.OnAddElement(res.Element)
		c.selectOnly(res.ID)
		c.bus.Info(notify.CodeAdded, fmt.Sprintf("%s added", res.Element.Type))
	case drop.OpAddChild:
		c.hooks.OnAddChild(res.ParentID, res.Child)
		c.focusChild(res.ParentID, res.ID)
		c.bus.Info(notify.CodeAdded, fmt.Sprintf("%s added to %s", res.Child.Type, res.ParentID))
	case drop.OpUpdateChildPosition:
		c.hooks.OnUpdateChildPosition(plan.ParentID, plan.ChildID, plan.Viewport, c.childPos(plan.ParentID, plan.ChildID, plan.Viewport))
	case drop.OpMoveChild:
		c.hooks.OnMoveChild(plan.ParentID, plan.ChildID, plan.ToParentID, plan.Position)
		c.focusChild(plan.ToParentID, plan.ChildID)
		c.bus.Info(notify.CodeMoved, fmt.Sprintf("moved to %s", plan.ToParentID))
	case drop.OpPromote:
		c.hooks.OnMoveChild(plan.ParentID, plan.ChildID, "", plan.Position)
		c.selectOnly(plan.ChildID)
		c.bus.Info(notify.CodeMoved, "moved to canvas")
	case drop.OpUpdatePosition:
		c.hooks.OnUpdatePosition(plan.ElementID, domain.Positions{plan.Viewport: res.Element.Position.At(plan.Viewport)}, tree.ModeAbsolute)
	case drop.OpAdopt:
		c.hooks.OnDeleteElement(plan.ElementID)
		c.hooks.OnAddChild(plan.ToParentID, res.Child)
		c.focusChild(plan.ToParentID, plan.ElementID)
		c.bus.Info(notify.CodeMoved, fmt.Sprintf("moved into %s", plan.ToParentID))
	}
}

func (c *Controller) childPos(parentID, childID string, v domain.Viewport) domain.Position {
	ch, _ := c.tree.Child(parentID, childID)
	return ch.Position.At(v)
}

// Cancel abandons any drag or resize. A resize that already changed the
// tree is rolled back to its starting document. Calling it with nothing in
// flight is a no-op.
func (c *Controller) Cancel() {
	if c.drops.Active() {
		c.log.Debug("drag cancelled")
	}
	if c.sizer.Active() && c.resized {
		c.revertResize(c.sizer.Target())
	}
	c.resetTransient()
}

func (c *Controller) revertResize(tgt resize.Target) {
	prev, ok := c.history.Discard(c.pageID)
	if !ok {
		return
	}
	var doc domain.PageDocument
	if err := json.Unmarshal(prev.Blob, &doc); err != nil {
		c.log.Warn("revert resize", slog.Any("err", err))
		return
	}
	c.tree.Replace(&doc)
	c.prune()
	c.documentChanged()
	c.log.Debug("resize cancelled", slog.String("id", tgt.ID))
	if tgt.ParentID == "" {
		if e, ok := c.tree.Element(tgt.ID); ok {
			c.hooks.OnUpdateSize(tgt.ID, "", e.EffectiveSize())
		}
		return
	}
	if ch, ok := c.tree.Child(tgt.ParentID, tgt.ID); ok {
		c.hooks.OnUpdateSize(tgt.ParentID, tgt.ID, ch.EffectiveSize())
	}
}

// StartResize arms the resize overlay on an element (childID empty) or a
// child of id. The target becomes the sole selection.
func (c *Controller) StartResize(id, childID string, px, py float64) error {
	var (
		n   domain.Node
		tgt resize.Target
	)
	if childID == "" {
		e, ok := c.tree.Element(id)
		if !ok {
			return c.fail("resize", fmt.Errorf("resize %q: %w", id, domain.ErrOrphanReference))
		}
		n, tgt = e.Node, resize.Target{ID: id}
	} else {
		ch, ok := c.tree.Child(id, childID)
		if !ok {
			return c.fail("resize", fmt.Errorf("resize %q: %w", childID, domain.ErrOrphanReference))
		}
		n, tgt = ch.Node, resize.Target{ParentID: id, ID: childID}
	}
	err := c.sizer.Begin(resize.Request{
		Target:   tgt,
		Pointer:  geometry.Pt{X: px, Y: py},
		Start:    n.EffectiveSize(),
		Zoom:     c.view.Zoom,
		Locked:   n.Locked,
		Dragging: c.drops.Active(),
	})
	if err != nil {
		return c.fail("resize", err)
	}
	c.resized = false
	c.menu = nil
	if childID == "" {
		if len(c.selected) != 1 || c.selected[0] != id || c.selectedChild != nil {
			c.selectOnly(id)
		}
	} else if c.selectedChild == nil || *c.selectedChild != (ChildRef{ParentID: id, ChildID: childID}) {
		c.focusChild(id, childID)
	}
	return nil
}

// ResizeMove applies the size under the pointer to the tree.
func (c *Controller) ResizeMove(px, py float64) (domain.Size, bool) {
	return c.sizer.Move(geometry.Pt{X: px, Y: py})
}

// onResize writes each intermediate size through to the tree and the hooks.
// The first write of a gesture records the undo snapshot; later writes
// extend that step so one undo reverts the whole resize.
func (c *Controller) onResize(t resize.Target, s domain.Size) {
	if cur, ok := c.currentSize(t); !ok || cur == s {
		return
	}
	apply := func() error {
		if t.ParentID == "" {
			return c.tree.UpdateSize(t.ID, s)
		}
		return c.tree.UpdateChildSize(t.ParentID, t.ID, s)
	}
	var err error
	if c.resized {
		if err = apply(); err == nil {
			c.documentChanged()
		}
	} else {
		err = c.mutate("resize", apply)
	}
	if err != nil {
		_ = c.fail("resize", err)
		return
	}
	c.resized = true
	if t.ParentID == "" {
		c.hooks.OnUpdateSize(t.ID, "", s)
	} else {
		c.hooks.OnUpdateSize(t.ParentID, t.ID, s)
	}
	var o geometry.Pt
	if t.ParentID == "" {
		e, _ := c.tree.Element(t.ID)
		p := e.Position.At(c.view.Viewport)
		o = geometry.Pt{X: p.X, Y: p.Y}
	} else {
		pe, _ := c.tree.Element(t.ParentID)
		ch, _ := c.tree.Child(t.ParentID, t.ID)
		pp, cp := pe.Position.At(c.view.Viewport), ch.Position.At(c.view.Viewport)
		o = geometry.Pt{X: pp.X + cp.X, Y: pp.Y + cp.Y}
	}
	r := geometry.R(o.X, o.Y, s.Width, s.Height)
	c.preview = &r
}

// ResizeEnd finishes the gesture. The tree already holds the last size, so
// a release without movement leaves the document and history untouched.
func (c *Controller) ResizeEnd() error {
	start := c.sizer.Start()
	tgt, s, ok := c.sizer.End()
	changed := c.resized
	c.resized = false
	c.preview = nil
	if !ok || !changed {
		return nil
	}
	if s == start {
		c.revertResize(tgt)
		return nil
	}
	c.log.Debug("resize committed", slog.String("id", tgt.ID), slog.Float64("w", s.Width), slog.Float64("h", s.Height))
	return nil
}

func (c *Controller) currentSize(t resize.Target) (domain.Size, bool) {
	if t.ParentID == "" {
		e, ok := c.tree.Element(t.ID)
		return e.EffectiveSize(), ok
	}
	ch, ok := c.tree.Child(t.ParentID, t.ID)
	return ch.EffectiveSize(), ok
}

// isRejection reports whether err is one of the engine's expected refusals
// rather than an internal failure.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrLockedElement) ||
		errors.Is(err, domain.ErrInvalidDropTarget) ||
		errors.Is(err, domain.ErrOrphanReference) ||
		errors.Is(err, domain.ErrGeometryUnavailable)
}
