/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drop

import (
	"fmt"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/tree"
)

// Op is the single tree mutation a committed drop performs.
type Op int

const (
	OpAddElement Op = iota
	OpAddChild
	OpUpdateChildPosition
	OpMoveChild
	OpPromote
	OpUpdatePosition
	OpAdopt
)

func (o Op) String() string {
	switch o {
	case OpAddElement:
		return "add_element"
	case OpAddChild:
		return "add_child"
	case OpUpdateChildPosition:
		return "update_child_position"
	case OpMoveChild:
		return "move_child"
	case OpPromote:
		return "promote"
	case OpUpdatePosition:
		return "update_position"
	case OpAdopt:
		return "adopt"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Plan describes one drop mutation. Position is canvas space for
// OpAddElement, OpPromote and OpUpdatePosition and parent-relative otherwise.
type Plan struct {
	Op         Op
	Viewport   domain.Viewport
	Element    domain.Element
	Child      domain.Child
	ElementID  string
	ParentID   string
	ChildID    string
	ToParentID string
	Position   domain.Position
}

// Result reports what Apply changed. ID is the item that was created or
// moved; ParentID is its parent afterwards (empty for top-level).
type Result struct {
	ID       string
	ParentID string
	Element  domain.Element
	Child    domain.Child
}

// Apply performs the plan as one tree call.
func (p Plan) Apply(t *tree.Tree) (Result, error) {
	switch p.Op {
	case OpAddElement:
		el, err := t.AddElement(p.Element, p.Viewport)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: el.ID, Element: el}, nil
	case OpAddChild:
		c, err := t.AddChild(p.ParentID, p.Child)
		if err != nil {
			return Result{}, err
		}
		return Result{ID: c.ID, ParentID: p.ParentID, Child: c}, nil
	case OpUpdateChildPosition:
		if err := t.UpdateChildPosition(p.ParentID, p.ChildID, p.Position, p.Viewport); err != nil {
			return Result{}, err
		}
		return Result{ID: p.ChildID, ParentID: p.ParentID}, nil
	case OpMoveChild:
		if err := t.MoveChild(p.ParentID, p.ChildID, p.ToParentID, p.Position, p.Viewport); err != nil {
			return Result{}, err
		}
		return Result{ID: p.ChildID, ParentID: p.ToParentID}, nil
	case OpPromote:
		if err := t.MoveChild(p.ParentID, p.ChildID, "", p.Position, p.Viewport); err != nil {
			return Result{}, err
		}
		el, _ := t.Element(p.ChildID)
		return Result{ID: p.ChildID, Element: el}, nil
	case OpUpdatePosition:
		patch := domain.Positions{p.Viewport: p.Position}
		if err := t.UpdatePosition(p.ElementID, patch, tree.ModeAbsolute); err != nil {
			return Result{}, err
		}
		el, _ := t.Element(p.ElementID)
		return Result{ID: p.ElementID, Element: el}, nil
	case OpAdopt:
		if err := t.AdoptElement(p.ElementID, p.ToParentID, p.Position); err != nil {
			return Result{}, err
		}
		c, _ := t.Child(p.ToParentID, p.ElementID)
		return Result{ID: p.ElementID, ParentID: p.ToParentID, Child: c}, nil
	}
	return Result{}, fmt.Errorf("apply %v: %w", p.Op, domain.ErrInvalidDropTarget)
}
