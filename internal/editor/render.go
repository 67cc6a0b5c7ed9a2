/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"slices"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

// RenderItem is what an opaque widget renderer needs for one visible item.
// Rect is in canvas space for the active viewport.
type RenderItem struct {
	ID            string
	ParentID      string
	Type          string
	ComponentData map[string]any
	Styles        map[string]any
	Rect          geometry.Rect
	Selected      bool
	Locked        bool
	Children      []RenderItem
}

// RenderItems lists visible elements in paint order with their visible
// children. Popups are listed only while open.
func (c *Controller) RenderItems() []RenderItem {
	v := c.view.Viewport
	doc := c.tree.Document()
	out := make([]RenderItem, 0, len(doc.Elements))
	for _, e := range doc.Elements {
		if !e.Visible {
			continue
		}
		if e.Type == domain.TypePopup && !slices.Contains(c.visiblePopups, e.ID) {
			continue
		}
		box := geometry.BoxIn(e.Node, v)
		item := RenderItem{
			ID:            e.ID,
			Type:          e.Type,
			ComponentData: e.ComponentData,
			Styles:        e.Styles,
			Rect:          box,
			Selected:      slices.Contains(c.selected, e.ID),
			Locked:        e.Locked,
		}
		for _, ch := range e.Children {
			if !ch.Visible {
				continue
			}
			r := geometry.BoxIn(ch.Node, v)
			r.X += box.X
			r.Y += box.Y
			item.Children = append(item.Children, RenderItem{
				ID:            ch.ID,
				ParentID:      e.ID,
				Type:          ch.Type,
				ComponentData: ch.ComponentData,
				Styles:        ch.Styles,
				Rect:          r,
				Selected:      c.selectedChild != nil && c.selectedChild.ChildID == ch.ID,
				Locked:        ch.Locked,
			})
		}
		out = append(out, item)
	}
	return out
}
