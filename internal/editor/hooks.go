/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"pagecanvas/internal/domain"
	"pagecanvas/internal/tree"
)

// Hooks receives every committed change. Calls are synchronous and must not
// block; implementations that persist should queue the work.
type Hooks interface {
	OnAddElement(el domain.Element)
	OnAddChild(parentID string, child domain.Child)
	// OnMoveChild reports a cross-parent move; an empty toParentID is a
	// promotion to top level with pos in canvas space.
	OnMoveChild(fromParentID, childID, toParentID string, pos domain.Position)
	OnUpdateChildPosition(parentID, childID string, v domain.Viewport, pos domain.Position)
	OnUpdatePosition(id string, patch domain.Positions, mode tree.PositionMode)
	// OnUpdateSize reports a resize; childID is empty for top-level elements
	// and id is then the element id, otherwise id is the parent.
	OnUpdateSize(id, childID string, size domain.Size)
	OnDeleteElement(id string)
	OnDeleteChild(parentID, childID string)
	OnSelectElement(ids []string, additive bool)
	OnSelectChild(parentID, childID string)
	OnToggleVisibility(id, childID string, visible bool)
	OnToggleLock(id, childID string, locked bool)
	OnGroupElements(ids []string)
}

// DocumentObserver is an optional extension of Hooks. When implemented it
// receives the serialized page after every committed change, including
// reorders and undo/redo which have no dedicated hook.
type DocumentObserver interface {
	OnDocumentChanged(doc []byte)
}

// NopHooks ignores everything. Embed it to implement a subset.
type NopHooks struct{}

func (NopHooks) OnAddElement(domain.Element) {}
func (NopHooks) OnAddChild(string, domain.Child) {}
func (NopHooks) OnMoveChild(string, string, string, domain.Position) {}
func (NopHooks) OnUpdateChildPosition(string, string, domain.Viewport, domain.Position) {}
func (NopHooks) OnUpdatePosition(string, domain.Positions, tree.PositionMode) {}
func (NopHooks) OnUpdateSize(string, string, domain.Size) {}
func (NopHooks) OnDeleteElement(string) {}
func (NopHooks) OnDeleteChild(string, string) {}
func (NopHooks) OnSelectElement([]string, bool) {}
func (NopHooks) OnSelectChild(string, string) {}
func (NopHooks) OnToggleVisibility(string, string, bool) {}
func (NopHooks) OnToggleLock(string, string, bool) {}
func (NopHooks) OnGroupElements([]string) {}
