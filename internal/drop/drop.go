/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drop resolves where a dragged item lands and what single tree
// mutation a drop performs.
package drop

import (
	"errors"
	"fmt"
	"log/slog"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
	applog "pagecanvas/internal/log"
	"pagecanvas/internal/tree"
	"pagecanvas/internal/widget"
)

var (
	// ErrDragActive is returned by Begin while another drag is hovering.
	ErrDragActive = errors.New("drag already in progress")
	// ErrNoDrag is returned by Commit when nothing is being dragged.
	ErrNoDrag = errors.New("no drag in progress")
)

// Kind tags a drag payload.
type Kind int

const (
	NewFromPalette Kind = iota
	ExistingTopLevel
	ExistingChild
)

func (k Kind) String() string {
	switch k {
	case NewFromPalette:
		return "palette"
	case ExistingTopLevel:
		return "element"
	case ExistingChild:
		return "child"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Payload is what a drag carries. Size and Position of existing items are
// refreshed from the tree by Begin.
type Payload struct {
	Kind      Kind
	Template  domain.Template
	ElementID string
	ParentID  string
	ChildID   string
	Size      domain.Size
	Position  domain.Position
}

// ItemType is the widget type being dragged, if known.
func (p Payload) ItemType() string { return p.Template.Type }

// SourceID is the id of the dragged item, empty for palette drags.
func (p Payload) SourceID() string {
	switch p.Kind {
	case ExistingTopLevel:
		return p.ElementID
	case ExistingChild:
		return p.ChildID
	}
	return ""
}

// State of the resolver.
type State int

const (
	Idle State = iota
	Hovering
	Committed
	Cancelled
)

func (s State) String() string {
	return [...]string{"idle", "hovering", "committed", "cancelled"}[s]
}

// Target is a candidate drop location. An empty ContainerID is the bare
// canvas. Origin is the container's top-left in the active viewport.
type Target struct {
	ContainerID string
	Origin      geometry.Pt
}

// Canvas reports whether the target is the bare canvas.
func (t Target) Canvas() bool { return t.ContainerID == "" }

// Env is the view state hit-testing depends on.
type Env struct {
	Viewport domain.Viewport
	// OpenPopups holds the ids of popups currently shown; a closed popup is
	// not a drop region.
	OpenPopups map[string]bool
}

// HitTest finds the nearest enclosing container under p: visible, eligible
// containers whose active-viewport box contains p, highest z first, then the
// latest in paint order. No hit yields the canvas.
func HitTest(doc *domain.PageDocument, reg *widget.Registry, p geometry.Pt, env Env) Target {
	best := -1
	bestZ := 0
	for i, e := range doc.Elements {
		if !eligible(reg, e, env) {
			continue
		}
		if !geometry.BoxIn(e.Node, env.Viewport).Contains(p) {
			continue
		}
		z := e.Position.At(env.Viewport).Z
		if best < 0 || z >= bestZ {
			best, bestZ = i, z
		}
	}
	if best < 0 {
		return Target{}
	}
	e := doc.Elements[best]
	o := e.Position.At(env.Viewport)
	return Target{ContainerID: e.ID, Origin: geometry.Pt{X: o.X, Y: o.Y}}
}

func eligible(reg *widget.Registry, e domain.Element, env Env) bool {
	if !e.Visible || !reg.IsContainer(e.Node) {
		return false
	}
	if e.Type == domain.TypePopup && !env.OpenPopups[e.ID] {
		return false
	}
	return true
}

// Resolver runs the drag state machine for one editor.
type Resolver struct {
	tree    *tree.Tree
	state   State
	payload Payload
	target  Target
	log     *slog.Logger
}

// NewResolver binds a resolver to the tree it plans mutations for.
func NewResolver(t *tree.Tree) *Resolver {
	return &Resolver{tree: t, log: applog.WithComponent("drop")}
}

func (r *Resolver) State() State { return r.state }
func (r *Resolver) Active() bool { return r.state == Hovering }
func (r *Resolver) Payload() Payload { return r.payload }
func (r *Resolver) Target() Target { return r.target }

// Begin starts a drag. Locked sources are refused before the drag starts and
// unknown sources are orphan references; in both cases the state is
// unchanged.
func (r *Resolver) Begin(p Payload) (Payload, error) {
	if r.state == Hovering {
		return Payload{}, ErrDragActive
	}
	switch p.Kind {
	case NewFromPalette:
		if p.Template.Type == "" {
			return Payload{}, fmt.Errorf("begin drag: template without type: %w", domain.ErrInvalidDropTarget)
		}
		p.Size = r.tree.Registry().SizeFor(p.Template)
	case ExistingTopLevel:
		e, ok := r.tree.Element(p.ElementID)
		if !ok {
			return Payload{}, fmt.Errorf("begin drag %q: %w", p.ElementID, domain.ErrOrphanReference)
		}
		if e.Locked {
			return Payload{}, fmt.Errorf("begin drag %q: %w", p.ElementID, domain.ErrLockedElement)
		}
		p.Template = domain.Template{Type: e.Type}
		p.Size = e.EffectiveSize()
		p.Position = e.Position.At(domain.Desktop)
	case ExistingChild:
		c, ok := r.tree.Child(p.ParentID, p.ChildID)
		if !ok {
			return Payload{}, fmt.Errorf("begin drag %q in %q: %w", p.ChildID, p.ParentID, domain.ErrOrphanReference)
		}
		if c.Locked {
			return Payload{}, fmt.Errorf("begin drag %q: %w", p.ChildID, domain.ErrLockedElement)
		}
		p.Template = domain.Template{Type: c.Type}
		p.Size = c.EffectiveSize()
		p.Position = c.Position.At(domain.Desktop)
	default:
		return Payload{}, fmt.Errorf("begin drag: unknown payload %v: %w", p.Kind, domain.ErrInvalidDropTarget)
	}
	r.payload = p
	r.target = Target{}
	r.state = Hovering
	r.log.Debug("drag started", slog.String("kind", p.Kind.String()), slog.String("type", p.Template.Type), slog.String("source", p.SourceID()))
	return p, nil
}

// Hover re-evaluates the candidate target under the pointer (canvas space).
func (r *Resolver) Hover(p geometry.Pt, env Env) Target {
	if r.state != Hovering {
		return Target{}
	}
	r.target = r.resolve(p, env)
	return r.target
}

func (r *Resolver) resolve(p geometry.Pt, env Env) Target {
	reg := r.tree.Registry()
	typ := r.payload.Template.Type
	if reg.IsContainerKind(typ) || reg.CanvasDroppable(typ) {
		return Target{}
	}
	return HitTest(r.tree.Document(), reg, p, env)
}

// Cancel abandons the drag. It is idempotent and never touches the tree.
func (r *Resolver) Cancel() bool {
	was := r.state == Hovering
	if was {
		r.log.Debug("drag cancelled", slog.String("source", r.payload.SourceID()))
	}
	r.state = Idle
	r.payload = Payload{}
	r.target = Target{}
	return was
}

// Commit finishes the drag at pointer (hit-testing) with the item's top-left
// at placed (snapped). Legality is checked again against the current tree.
// On success the state is Committed and the returned plan holds exactly one
// mutation; on failure the state is Idle.
func (r *Resolver) Commit(pointer, placed geometry.Pt, env Env) (Plan, error) {
	if r.state != Hovering {
		return Plan{}, ErrNoDrag
	}
	p := r.payload
	tgt := r.resolve(pointer, env)
	plan, err := r.plan(p, tgt, geometry.Clamp(placed), env)
	r.payload = Payload{}
	r.target = Target{}
	if err != nil {
		r.state = Idle
		return Plan{}, err
	}
	r.state = Committed
	return plan, nil
}

func (r *Resolver) plan(p Payload, tgt Target, at geometry.Pt, env Env) (Plan, error) {
	reg := r.tree.Registry()
	rel := domain.Position{X: at.X - tgt.Origin.X, Y: at.Y - tgt.Origin.Y}
	abs := domain.Position{X: at.X, Y: at.Y}
	if !tgt.Canvas() {
		e, ok := r.tree.Element(tgt.ContainerID)
		if !ok {
			return Plan{}, fmt.Errorf("drop into %q: %w", tgt.ContainerID, domain.ErrOrphanReference)
		}
		if !eligible(reg, e, env) {
			return Plan{}, fmt.Errorf("drop into %q: %w", tgt.ContainerID, domain.ErrInvalidDropTarget)
		}
	}
	switch p.Kind {
	case NewFromPalette:
		t := p.Template
		size := p.Size
		if tgt.Canvas() {
			if !reg.CanvasDroppable(t.Type) {
				return Plan{}, fmt.Errorf("drop %s on canvas: %w", t.Type, domain.ErrInvalidDropTarget)
			}
			el := domain.Element{Node: newNode(t, size)}
			el.Position = domain.Positions{env.Viewport: abs}
			return Plan{Op: OpAddElement, Element: el, Viewport: env.Viewport}, nil
		}
		c := domain.Child{Node: newNode(t, size)}
		c.Position = domain.NewPositions(rel)
		return Plan{Op: OpAddChild, ParentID: tgt.ContainerID, Child: c, Viewport: env.Viewport}, nil

	case ExistingChild:
		if _, ok := r.tree.Child(p.ParentID, p.ChildID); !ok {
			return Plan{}, fmt.Errorf("drop child %q: %w", p.ChildID, domain.ErrOrphanReference)
		}
		switch {
		case tgt.Canvas():
			return Plan{Op: OpPromote, ParentID: p.ParentID, ChildID: p.ChildID, Position: abs, Viewport: env.Viewport}, nil
		case tgt.ContainerID == p.ParentID:
			return Plan{Op: OpUpdateChildPosition, ParentID: p.ParentID, ChildID: p.ChildID, Position: rel, Viewport: env.Viewport}, nil
		default:
			return Plan{Op: OpMoveChild, ParentID: p.ParentID, ChildID: p.ChildID, ToParentID: tgt.ContainerID, Position: rel, Viewport: env.Viewport}, nil
		}

	case ExistingTopLevel:
		e, ok := r.tree.Element(p.ElementID)
		if !ok {
			return Plan{}, fmt.Errorf("drop element %q: %w", p.ElementID, domain.ErrOrphanReference)
		}
		if tgt.Canvas() {
			return Plan{Op: OpUpdatePosition, ElementID: p.ElementID, Position: abs, Viewport: env.Viewport}, nil
		}
		if reg.IsContainerKind(e.Type) || len(e.Children) > 0 || tgt.ContainerID == e.ID {
			return Plan{}, fmt.Errorf("drop %q into %q: %w", e.ID, tgt.ContainerID, domain.ErrInvalidDropTarget)
		}
		return Plan{Op: OpAdopt, ElementID: p.ElementID, ToParentID: tgt.ContainerID, Position: rel, Viewport: env.Viewport}, nil
	}
	return Plan{}, fmt.Errorf("drop: unknown payload %v: %w", p.Kind, domain.ErrInvalidDropTarget)
}

func newNode(t domain.Template, size domain.Size) domain.Node {
	s := size
	return domain.Node{
		Type:          t.Type,
		ComponentData: cloneMap(t.ComponentData),
		Styles:        cloneMap(t.Styles),
		Size:          &s,
		Visible:       true,
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
