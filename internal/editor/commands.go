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
	"slices"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
	"pagecanvas/internal/notify"
	"pagecanvas/internal/tree"
	"pagecanvas/internal/undo"
)

// ErrNothingToGroup is returned by Group with fewer than two selected
// elements.
var ErrNothingToGroup = errors.New("select at least two elements to group")

func (c *Controller) selectOnly(id string) {
	c.selected = []string{id}
	c.selectedChild = nil
	c.hooks.OnSelectElement(slices.Clone(c.selected), false)
}

func (c *Controller) focusChild(parentID, childID string) {
	c.selected = nil
	c.selectedChild = &ChildRef{ParentID: parentID, ChildID: childID}
	c.hooks.OnSelectChild(parentID, childID)
}

// Select selects a top-level element. With additive the id is toggled in the
// current selection instead of replacing it.
func (c *Controller) Select(id string, additive bool) error {
	if _, ok := c.tree.Element(id); !ok {
		return c.fail("select", fmt.Errorf("select %q: %w", id, domain.ErrOrphanReference))
	}
	c.selectedChild = nil
	if additive {
		if i := slices.Index(c.selected, id); i >= 0 {
			c.selected = slices.Delete(c.selected, i, i+1)
		} else {
			c.selected = append(c.selected, id)
		}
	} else {
		c.selected = []string{id}
	}
	c.hooks.OnSelectElement(slices.Clone(c.selected), additive)
	return nil
}

// SelectChild focuses a child. An empty childID clears the child focus.
func (c *Controller) SelectChild(parentID, childID string) error {
	if childID == "" {
		c.selectedChild = nil
		c.hooks.OnSelectChild(parentID, "")
		return nil
	}
	if _, ok := c.tree.Child(parentID, childID); !ok {
		return c.fail("select_child", fmt.Errorf("select child %q: %w", childID, domain.ErrOrphanReference))
	}
	c.focusChild(parentID, childID)
	return nil
}

// SelectAll selects every top-level element.
func (c *Controller) SelectAll() {
	c.selected = c.tree.IDs()
	c.selectedChild = nil
	c.hooks.OnSelectElement(slices.Clone(c.selected), false)
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() {
	if len(c.selected) == 0 && c.selectedChild == nil {
		return
	}
	c.selected, c.selectedChild = nil, nil
	c.hooks.OnSelectElement([]string{}, false)
}

// Delete removes the selection: the focused child if any, else every
// selected element. Locked items are skipped with a notice.
func (c *Controller) Delete() error {
	if c.selectedChild != nil {
		ref := *c.selectedChild
		return c.deleteTarget(ref.ParentID, ref.ChildID, false)
	}
	if len(c.selected) == 0 {
		return nil
	}
	var (
		victims []string
		errs    []error
	)
	for _, id := range c.selected {
		e, ok := c.tree.Element(id)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("delete %q: %w", id, domain.ErrOrphanReference))
		case e.Locked:
			errs = append(errs, fmt.Errorf("delete %q: %w", id, domain.ErrLockedElement))
		default:
			victims = append(victims, id)
		}
	}
	for _, err := range errs {
		c.fail("delete", err)
	}
	if len(victims) == 0 {
		return errors.Join(errs...)
	}
	err := c.mutate("delete", func() error {
		for _, id := range victims {
			if _, err := c.tree.DeleteElement(id, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.fail("delete", err)
	}
	for _, id := range victims {
		c.hooks.OnDeleteElement(id)
	}
	c.bus.Info(notify.CodeDeleted, fmt.Sprintf("%d element(s) deleted", len(victims)))
	return errors.Join(errs...)
}

// deleteTarget removes one element (childID empty) or child.
func (c *Controller) deleteTarget(id, childID string, force bool) error {
	err := c.mutate("delete", func() error {
		if childID == "" {
			_, err := c.tree.DeleteElement(id, force)
			return err
		}
		return c.tree.DeleteChild(id, childID, force)
	})
	if err != nil {
		return c.fail("delete", err)
	}
	if childID == "" {
		c.hooks.OnDeleteElement(id)
	} else {
		c.hooks.OnDeleteChild(id, childID)
	}
	c.bus.Info(notify.CodeDeleted, "deleted")
	return nil
}

// OpenContextMenu opens the menu on an element or a child of it.
func (c *Controller) OpenContextMenu(id, childID string, at geometry.Pt) error {
	if childID == "" {
		if _, ok := c.tree.Element(id); !ok {
			return c.fail("context_menu", fmt.Errorf("context menu %q: %w", id, domain.ErrOrphanReference))
		}
	} else if _, ok := c.tree.Child(id, childID); !ok {
		return c.fail("context_menu", fmt.Errorf("context menu %q: %w", childID, domain.ErrOrphanReference))
	}
	c.menu = &ContextMenu{ElementID: id, ChildID: childID, At: at}
	return nil
}

// CloseContextMenu closes the menu if open.
func (c *Controller) CloseContextMenu() { c.menu = nil }

// ForceDelete deletes the context menu target even when it is locked.
func (c *Controller) ForceDelete() error {
	if c.menu == nil {
		return nil
	}
	m := *c.menu
	c.menu = nil
	return c.deleteTarget(m.ElementID, m.ChildID, true)
}

// Duplicate copies every selected element and selects the copies.
func (c *Controller) Duplicate() error {
	if len(c.selected) == 0 {
		return nil
	}
	var copies []domain.Element
	err := c.mutate("duplicate", func() error {
		for _, id := range c.selected {
			el, err := c.tree.DuplicateElement(id)
			if err != nil {
				return err
			}
			copies = append(copies, el)
		}
		return nil
	})
	if err != nil {
		return c.fail("duplicate", err)
	}
	c.selected = c.selected[:0]
	for _, el := range copies {
		c.hooks.OnAddElement(el)
		c.selected = append(c.selected, el.ID)
	}
	c.hooks.OnSelectElement(slices.Clone(c.selected), false)
	c.bus.Info(notify.CodeDuplicated, fmt.Sprintf("%d element(s) duplicated", len(copies)))
	return nil
}

// MoveUp moves id one step earlier in paint order.
func (c *Controller) MoveUp(id string) error { return c.reorder(id, c.tree.MoveElementUp) }

// MoveDown moves id one step later in paint order.
func (c *Controller) MoveDown(id string) error { return c.reorder(id, c.tree.MoveElementDown) }

func (c *Controller) reorder(id string, fn func(string) (bool, error)) error {
	moved := false
	err := c.mutate("reorder", func() error {
		var err error
		moved, err = fn(id)
		if err == nil && !moved {
			return errUnchanged
		}
		return err
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return c.fail("reorder", err)
	}
	return nil
}

var errUnchanged = errors.New("unchanged")

// ToggleVisibility flips an element's or child's visibility.
func (c *Controller) ToggleVisibility(id, childID string) error {
	var v bool
	err := c.mutate("visibility", func() error {
		var err error
		v, err = c.tree.ToggleVisibility(id, childID)
		return err
	})
	if err != nil {
		return c.fail("visibility", err)
	}
	c.hooks.OnToggleVisibility(id, childID, v)
	return nil
}

// ToggleLock flips an element's or child's lock.
func (c *Controller) ToggleLock(id, childID string) error {
	var l bool
	err := c.mutate("lock", func() error {
		var err error
		l, err = c.tree.ToggleLock(id, childID)
		return err
	})
	if err != nil {
		return c.fail("lock", err)
	}
	c.hooks.OnToggleLock(id, childID, l)
	return nil
}

// Nudge moves the selection by (dx, dy) in the active viewport. Locked items
// are skipped with a notice.
func (c *Controller) Nudge(dx, dy float64) error {
	v := c.view.Viewport
	if ref := c.selectedChild; ref != nil {
		err := c.mutate("nudge", func() error {
			return c.tree.OffsetChild(ref.ParentID, ref.ChildID, dx, dy, v)
		})
		if err != nil {
			return c.fail("nudge", err)
		}
		c.hooks.OnUpdateChildPosition(ref.ParentID, ref.ChildID, v, c.childPos(ref.ParentID, ref.ChildID, v))
		return nil
	}
	var errs []error
	for _, id := range slices.Clone(c.selected) {
		patch := domain.Positions{v: {X: dx, Y: dy}}
		err := c.mutate("nudge", func() error {
			return c.tree.UpdatePosition(id, patch, tree.ModeOffset)
		})
		if err != nil {
			errs = append(errs, c.fail("nudge", err))
			continue
		}
		c.hooks.OnUpdatePosition(id, patch, tree.ModeOffset)
	}
	return errors.Join(errs...)
}

// OpenPopup shows a popup and makes it a drop region.
func (c *Controller) OpenPopup(id string) error {
	e, ok := c.tree.Element(id)
	if !ok {
		return c.fail("popup", fmt.Errorf("open popup %q: %w", id, domain.ErrOrphanReference))
	}
	if e.Type != domain.TypePopup {
		return c.fail("popup", fmt.Errorf("open popup %q: %s is not a popup: %w", id, e.Type, domain.ErrInvalidDropTarget))
	}
	if !slices.Contains(c.visiblePopups, id) {
		c.visiblePopups = append(c.visiblePopups, id)
		c.bus.Info(notify.CodePopup, fmt.Sprintf("popup %s opened", id))
	}
	return nil
}

// ClosePopup hides a popup. Closing a closed popup is a no-op.
func (c *Controller) ClosePopup(id string) {
	if i := slices.Index(c.visiblePopups, id); i >= 0 {
		c.visiblePopups = slices.Delete(c.visiblePopups, i, i+1)
		c.bus.Info(notify.CodePopup, fmt.Sprintf("popup %s closed", id))
	}
}

// TogglePopup opens a closed popup or closes an open one.
func (c *Controller) TogglePopup(id string) error {
	if slices.Contains(c.visiblePopups, id) {
		c.ClosePopup(id)
		return nil
	}
	return c.OpenPopup(id)
}

// Group hands the multi-selection to the host. Grouping itself is owned by
// the host.
func (c *Controller) Group() error {
	if len(c.selected) < 2 {
		c.bus.Publish(notify.Notice{Severity: notify.Warn, Code: notify.CodeGroup, Message: ErrNothingToGroup.Error()})
		return ErrNothingToGroup
	}
	c.hooks.OnGroupElements(slices.Clone(c.selected))
	c.bus.Info(notify.CodeGroup, fmt.Sprintf("%d elements grouped", len(c.selected)))
	return nil
}

// Undo restores the state before the last change.
func (c *Controller) Undo() error {
	return c.travel("undo", c.history.Undo)
}

// Redo re-applies the last undone change.
func (c *Controller) Redo() error {
	return c.travel("redo", c.history.Redo)
}

func (c *Controller) travel(op string, step func(string, undo.Snapshot) (undo.Snapshot, bool)) error {
	c.resetTransient()
	cur, err := json.Marshal(c.tree.Document())
	if err != nil {
		return c.fail(op, fmt.Errorf("%s: snapshot: %w", op, err))
	}
	snap, ok := step(c.pageID, undo.Snapshot{Blob: cur, TS: c.now()})
	if !ok {
		c.bus.Info(notify.CodeUndo, "nothing to "+op)
		return nil
	}
	var doc domain.PageDocument
	if err := json.Unmarshal(snap.Blob, &doc); err != nil {
		return c.fail(op, fmt.Errorf("%s: restore: %w", op, err))
	}
	c.tree.Replace(&doc)
	c.prune()
	c.documentChanged()
	c.log.Debug("history step", slog.String("op", op), slog.String("label", snap.Label))
	msg := op
	if snap.Label != "" {
		msg += " " + snap.Label
	}
	c.bus.Info(notify.CodeUndo, msg)
	return nil
}
