/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tree is the element tree model: the only code that mutates a page
// document. Every exported mutation is one synchronous structural edit that
// either fully applies or leaves the document untouched.
package tree

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"pagecanvas/internal/domain"
	applog "pagecanvas/internal/log"
	"pagecanvas/internal/widget"
)

// SectionGap is the vertical spacing between stacked sections.
const SectionGap = 10

// PositionMode selects how UpdatePosition applies a patch.
type PositionMode int

const (
	// ModeAbsolute replaces the stored coordinates.
	ModeAbsolute PositionMode = iota
	// ModeOffset adds the patch to the stored coordinates.
	ModeOffset
)

func (m PositionMode) String() string {
	if m == ModeOffset {
		return "offset"
	}
	return "absolute"
}

// Tree owns a page document and the rules for changing it.
type Tree struct {
	doc *domain.PageDocument
	reg *widget.Registry
	ids *domain.IDGenerator
	now func() time.Time
	log *slog.Logger
}

// Option customises a Tree.
type Option func(*Tree)

// WithClock sets the clock used for updated_at stamps and ids.
func WithClock(now func() time.Time) Option {
	return func(t *Tree) { t.now = now }
}

// WithIDGenerator shares an id generator between trees.
func WithIDGenerator(g *domain.IDGenerator) Option {
	return func(t *Tree) { t.ids = g }
}

// New wraps doc. A nil doc starts an empty 960px page and a nil registry uses
// the built-in widget set.
func New(doc *domain.PageDocument, reg *widget.Registry, opts ...Option) *Tree {
	if doc == nil {
		doc = domain.NewPage(960)
	}
	if doc.Elements == nil {
		doc.Elements = []domain.Element{}
	}
	if reg == nil {
		reg = widget.DefaultRegistry()
	}
	t := &Tree{doc: doc, reg: reg, now: time.Now, log: applog.WithComponent("tree")}
	for _, o := range opts {
		o(t)
	}
	if t.ids == nil {
		t.ids = domain.NewIDGenerator(t.now)
	}
	t.observeIDs()
	return t
}

// observeIDs keeps the generator ahead of every id in the document.
func (t *Tree) observeIDs() {
	var walk func([]domain.Child)
	walk = func(cs []domain.Child) {
		for _, c := range cs {
			t.ids.ObserveID(c.ID)
			walk(c.Children)
		}
	}
	for _, e := range t.doc.Elements {
		t.ids.ObserveID(e.ID)
		walk(e.Children)
	}
}

// Document exposes the document for readers. Callers must not mutate it.
func (t *Tree) Document() *domain.PageDocument { return t.doc }

// Registry returns the widget registry the tree validates against.
func (t *Tree) Registry() *widget.Registry { return t.reg }

// Replace swaps in a whole document, used when restoring an undo snapshot.
func (t *Tree) Replace(doc *domain.PageDocument) {
	if doc == nil {
		return
	}
	if doc.Elements == nil {
		doc.Elements = []domain.Element{}
	}
	t.doc = doc
	t.observeIDs()
}

// NewID returns a fresh "<prefix>-<millis>" id.
func (t *Tree) NewID(prefix string) string { return t.ids.Next(prefix) }

// Element returns a copy of a top-level element.
func (t *Tree) Element(id string) (domain.Element, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return domain.Element{}, false
	}
	return t.doc.Elements[i], true
}

// Child returns a copy of a child under parentID.
func (t *Tree) Child(parentID, childID string) (domain.Child, bool) {
	pi, ci := t.childIndex(parentID, childID)
	if ci < 0 {
		return domain.Child{}, false
	}
	return t.doc.Elements[pi].Children[ci], true
}

// ParentOf returns the id of the element owning childID.
func (t *Tree) ParentOf(childID string) (string, bool) {
	for _, e := range t.doc.Elements {
		for _, c := range e.Children {
			if c.ID == childID {
				return e.ID, true
			}
		}
	}
	return "", false
}

// Exists reports whether id names any element or child.
func (t *Tree) Exists(id string) bool {
	if t.indexOf(id) >= 0 {
		return true
	}
	_, ok := t.ParentOf(id)
	return ok
}

// IDs returns top-level element ids in paint order.
func (t *Tree) IDs() []string {
	out := make([]string, 0, len(t.doc.Elements))
	for _, e := range t.doc.Elements {
		out = append(out, e.ID)
	}
	return out
}

// IsContainer reports whether the element id is currently an eligible drop
// container.
func (t *Tree) IsContainer(id string) bool {
	i := t.indexOf(id)
	return i >= 0 && t.reg.IsContainer(t.doc.Elements[i].Node)
}

func (t *Tree) indexOf(id string) int {
	for i := range t.doc.Elements {
		if t.doc.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tree) childIndex(parentID, childID string) (int, int) {
	pi := t.indexOf(parentID)
	if pi < 0 {
		return -1, -1
	}
	for ci := range t.doc.Elements[pi].Children {
		if t.doc.Elements[pi].Children[ci].ID == childID {
			return pi, ci
		}
	}
	return pi, -1
}

func clampPos(p domain.Position) domain.Position {
	p.X = math.Max(0, p.X)
	p.Y = math.Max(0, p.Y)
	return p
}

func clampAll(ps domain.Positions) domain.Positions {
	out := make(domain.Positions, len(ps))
	for v, p := range ps {
		out[v] = clampPos(p)
	}
	return out
}

// StackBottom is the bottom edge of the lowest section in the desktop layout,
// or 0 when there are none.
func (t *Tree) StackBottom() float64 {
	var bottom float64
	for _, e := range t.doc.Elements {
		if e.Type != domain.TypeSection {
			continue
		}
		b := e.Position.At(domain.Desktop).Y + e.EffectiveSize().Height
		if b > bottom {
			bottom = b
		}
	}
	return bottom
}

// NextSectionPosition is where a new section lands: x=0, below the stack.
func (t *Tree) NextSectionPosition() domain.Position {
	return domain.Position{X: 0, Y: t.StackBottom() + SectionGap}
}

// AddElement appends el. Sections ignore the drop point: x is 0 and y is
// below the current section stack, in every viewport. Other kinds take their
// position at the active viewport and replicate it to all viewports as the
// starting value. An empty id is generated from the type.
func (t *Tree) AddElement(el domain.Element, v domain.Viewport) (domain.Element, error) {
	if el.Type == "" {
		return domain.Element{}, fmt.Errorf("add element: missing type: %w", domain.ErrInvalidDropTarget)
	}
	if el.ID == "" {
		el.ID = t.NewID(el.Type)
	}
	if t.Exists(el.ID) {
		return domain.Element{}, fmt.Errorf("add element: duplicate id %q", el.ID)
	}
	var start domain.Position
	if el.Type == domain.TypeSection {
		start = t.NextSectionPosition()
	} else {
		start = clampPos(el.Position.At(v))
	}
	el.Position = domain.NewPositions(start)
	if el.Size == nil {
		s := t.reg.DefaultSize(el.Type)
		el.Size = &s
	}
	if el.Children == nil {
		el.Children = []domain.Child{}
	}
	el.Meta.UpdatedAt = t.now()
	t.doc.Elements = append(t.doc.Elements, el)
	t.log.Debug("element added", slog.String("id", el.ID), slog.String("type", el.Type))
	return el, nil
}

// AddChild appends child to an eligible container. An empty id is generated
// and the position is clamped; a missing position map starts at the origin
// in every viewport.
func (t *Tree) AddChild(parentID string, child domain.Child) (domain.Child, error) {
	pi := t.indexOf(parentID)
	if pi < 0 {
		return domain.Child{}, fmt.Errorf("add child to %q: %w", parentID, domain.ErrOrphanReference)
	}
	if !t.reg.IsContainer(t.doc.Elements[pi].Node) {
		return domain.Child{}, fmt.Errorf("add child to %q (%s): %w", parentID, t.doc.Elements[pi].Type, domain.ErrInvalidDropTarget)
	}
	if child.Type == "" {
		return domain.Child{}, fmt.Errorf("add child: missing type: %w", domain.ErrInvalidDropTarget)
	}
	if t.reg.IsContainerKind(child.Type) {
		return domain.Child{}, fmt.Errorf("add child: %s cannot be nested: %w", child.Type, domain.ErrInvalidDropTarget)
	}
	if child.ID == "" {
		child.ID = t.NewID(child.Type)
	}
	if t.Exists(child.ID) {
		return domain.Child{}, fmt.Errorf("add child: duplicate id %q", child.ID)
	}
	if child.Position == nil {
		child.Position = domain.NewPositions(domain.Position{})
	}
	child.Position = clampAll(child.Position)
	if child.Size == nil {
		s := t.reg.DefaultSize(child.Type)
		child.Size = &s
	}
	if child.Children == nil {
		child.Children = []domain.Child{}
	}
	now := t.now()
	child.Meta.UpdatedAt = now
	p := &t.doc.Elements[pi]
	p.Children = append(p.Children, child)
	p.Meta.UpdatedAt = now
	t.log.Debug("child added", slog.String("parent", parentID), slog.String("id", child.ID))
	return child, nil
}

// MoveChild relocates a child. An empty toParentID promotes it to a
// top-level element at pos (canvas coordinates, all viewports initialised
// equal). Moving onto the current parent only updates the active viewport.
// Otherwise the child is removed from its parent and appended to the new one
// with pos relative to that parent, in one step.
func (t *Tree) MoveChild(fromParentID, childID, toParentID string, pos domain.Position, v domain.Viewport) error {
	pi, ci := t.childIndex(fromParentID, childID)
	if ci < 0 {
		return fmt.Errorf("move child %q from %q: %w", childID, fromParentID, domain.ErrOrphanReference)
	}
	if toParentID == fromParentID {
		return t.UpdateChildPosition(fromParentID, childID, pos, v)
	}
	now := t.now()
	c := t.doc.Elements[pi].Children[ci]
	c.Position = domain.NewPositions(clampPos(pos))
	c.Meta.UpdatedAt = now

	if toParentID == "" {
		el := domain.Element{Node: c.Node, Children: []domain.Child{}}
		t.removeChildAt(pi, ci, now)
		t.doc.Elements = append(t.doc.Elements, el)
		t.log.Debug("child promoted", slog.String("id", childID), slog.String("from", fromParentID))
		return nil
	}

	ti := t.indexOf(toParentID)
	if ti < 0 {
		return fmt.Errorf("move child %q to %q: %w", childID, toParentID, domain.ErrOrphanReference)
	}
	if !t.reg.IsContainer(t.doc.Elements[ti].Node) {
		return fmt.Errorf("move child %q to %q: %w", childID, toParentID, domain.ErrInvalidDropTarget)
	}
	t.removeChildAt(pi, ci, now)
	dst := &t.doc.Elements[ti]
	dst.Children = append(dst.Children, c)
	dst.Meta.UpdatedAt = now
	t.log.Debug("child moved", slog.String("id", childID), slog.String("from", fromParentID), slog.String("to", toParentID))
	return nil
}

func (t *Tree) removeChildAt(pi, ci int, now time.Time) {
	p := &t.doc.Elements[pi]
	p.Children = append(p.Children[:ci:ci], p.Children[ci+1:]...)
	p.Meta.UpdatedAt = now
}

// AdoptElement turns a top-level leaf element into a child of parentID at pos
// (parent-relative, all viewports initialised equal). It is the inverse of
// promotion.
func (t *Tree) AdoptElement(elementID, parentID string, pos domain.Position) error {
	ei := t.indexOf(elementID)
	if ei < 0 {
		return fmt.Errorf("adopt %q: %w", elementID, domain.ErrOrphanReference)
	}
	pi := t.indexOf(parentID)
	if pi < 0 {
		return fmt.Errorf("adopt %q into %q: %w", elementID, parentID, domain.ErrOrphanReference)
	}
	el := t.doc.Elements[ei]
	if elementID == parentID || t.reg.IsContainerKind(el.Type) || len(el.Children) > 0 {
		return fmt.Errorf("adopt %q: %s cannot be nested: %w", elementID, el.Type, domain.ErrInvalidDropTarget)
	}
	if !t.reg.IsContainer(t.doc.Elements[pi].Node) {
		return fmt.Errorf("adopt %q into %q: %w", elementID, parentID, domain.ErrInvalidDropTarget)
	}
	now := t.now()
	c := domain.Child{Node: el.Node, Children: []domain.Child{}}
	c.Position = domain.NewPositions(clampPos(pos))
	c.Meta.UpdatedAt = now
	t.doc.Elements = append(t.doc.Elements[:ei:ei], t.doc.Elements[ei+1:]...)
	pi = t.indexOf(parentID)
	dst := &t.doc.Elements[pi]
	dst.Children = append(dst.Children, c)
	dst.Meta.UpdatedAt = now
	t.log.Debug("element adopted", slog.String("id", elementID), slog.String("parent", parentID))
	return nil
}

// UpdateChildPosition sets a child's position for one viewport.
func (t *Tree) UpdateChildPosition(parentID, childID string, pos domain.Position, v domain.Viewport) error {
	pi, ci := t.childIndex(parentID, childID)
	if ci < 0 {
		return fmt.Errorf("update child %q position: %w", childID, domain.ErrOrphanReference)
	}
	c := &t.doc.Elements[pi].Children[ci]
	if c.Locked {
		return fmt.Errorf("update child %q position: %w", childID, domain.ErrLockedElement)
	}
	ps := c.Position.Clone()
	if ps == nil {
		ps = domain.Positions{}
	}
	pos.Z = ps.At(v).Z
	ps[v] = clampPos(pos)
	c.Position = ps
	c.Meta.UpdatedAt = t.now()
	return nil
}

// UpdatePosition merges a per-viewport patch into an element. ModeAbsolute
// replaces x/y; ModeOffset adds to them. Results are clamped to >= 0 and
// sections stay at x=0.
func (t *Tree) UpdatePosition(id string, patch domain.Positions, mode PositionMode) error {
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update %q position: %w", id, domain.ErrOrphanReference)
	}
	e := &t.doc.Elements[i]
	if e.Locked {
		return fmt.Errorf("update %q position: %w", id, domain.ErrLockedElement)
	}
	ps := e.Position.Clone()
	if ps == nil {
		ps = domain.Positions{}
	}
	for _, v := range domain.Viewports {
		p, ok := patch[v]
		if !ok {
			continue
		}
		cur := ps.At(v)
		next := cur
		if mode == ModeOffset {
			next.X += p.X
			next.Y += p.Y
		} else {
			next.X, next.Y = p.X, p.Y
		}
		if e.Type == domain.TypeSection {
			next.X = 0
		}
		ps[v] = clampPos(next)
	}
	e.Position = ps
	e.Meta.UpdatedAt = t.now()
	return nil
}

// OffsetChild nudges a child by (dx, dy) in one viewport.
func (t *Tree) OffsetChild(parentID, childID string, dx, dy float64, v domain.Viewport) error {
	c, ok := t.Child(parentID, childID)
	if !ok {
		return fmt.Errorf("offset child %q: %w", childID, domain.ErrOrphanReference)
	}
	p := c.Position.At(v)
	return t.UpdateChildPosition(parentID, childID, domain.Position{X: p.X + dx, Y: p.Y + dy}, v)
}

// UpdateSize sets an element's footprint.
func (t *Tree) UpdateSize(id string, s domain.Size) error {
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update %q size: %w", id, domain.ErrOrphanReference)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("update %q size: non-positive size %vx%v", id, s.Width, s.Height)
	}
	e := &t.doc.Elements[i]
	if e.Locked {
		return fmt.Errorf("update %q size: %w", id, domain.ErrLockedElement)
	}
	e.Size = &domain.Size{Width: s.Width, Height: s.Height}
	e.Meta.UpdatedAt = t.now()
	return nil
}

// UpdateChildSize sets a child's footprint.
func (t *Tree) UpdateChildSize(parentID, childID string, s domain.Size) error {
	pi, ci := t.childIndex(parentID, childID)
	if ci < 0 {
		return fmt.Errorf("update child %q size: %w", childID, domain.ErrOrphanReference)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("update child %q size: non-positive size %vx%v", childID, s.Width, s.Height)
	}
	c := &t.doc.Elements[pi].Children[ci]
	if c.Locked {
		return fmt.Errorf("update child %q size: %w", childID, domain.ErrLockedElement)
	}
	c.Size = &domain.Size{Width: s.Width, Height: s.Height}
	c.Meta.UpdatedAt = t.now()
	return nil
}

// DeleteElement removes a top-level element and its children. Locked
// elements need force. It returns the ids that ceased to exist so callers
// can prune state that referenced them.
func (t *Tree) DeleteElement(id string, force bool) ([]string, error) {
	i := t.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("delete %q: %w", id, domain.ErrOrphanReference)
	}
	e := t.doc.Elements[i]
	if e.Locked && !force {
		return nil, fmt.Errorf("delete %q: %w", id, domain.ErrLockedElement)
	}
	removed := []string{e.ID}
	for _, c := range e.Children {
		removed = append(removed, c.ID)
	}
	t.doc.Elements = append(t.doc.Elements[:i:i], t.doc.Elements[i+1:]...)
	t.log.Debug("element deleted", slog.String("id", id), slog.Int("children", len(e.Children)))
	return removed, nil
}

// DeleteChild removes one child. Locked children need force.
func (t *Tree) DeleteChild(parentID, childID string, force bool) error {
	pi, ci := t.childIndex(parentID, childID)
	if ci < 0 {
		return fmt.Errorf("delete child %q: %w", childID, domain.ErrOrphanReference)
	}
	if t.doc.Elements[pi].Children[ci].Locked && !force {
		return fmt.Errorf("delete child %q: %w", childID, domain.ErrLockedElement)
	}
	t.removeChildAt(pi, ci, t.now())
	return nil
}

// DuplicateElement copies an element and its children with fresh
// "<sourceId>-<millis>" ids. A section copy joins the bottom of the stack;
// other copies sit right after the source, offset by 20px in every viewport.
// The copy is never locked.
func (t *Tree) DuplicateElement(id string) (domain.Element, error) {
	i := t.indexOf(id)
	if i < 0 {
		return domain.Element{}, fmt.Errorf("duplicate %q: %w", id, domain.ErrOrphanReference)
	}
	clone, err := cloneElement(t.doc.Elements[i])
	if err != nil {
		return domain.Element{}, err
	}
	now := t.now()
	clone.ID = t.NewID(id)
	clone.Locked = false
	clone.Meta.UpdatedAt = now
	for ci := range clone.Children {
		clone.Children[ci].ID = t.NewID(clone.Children[ci].ID)
		clone.Children[ci].Meta.UpdatedAt = now
	}
	if clone.Type == domain.TypeSection {
		clone.Position = domain.NewPositions(t.NextSectionPosition())
		t.doc.Elements = append(t.doc.Elements, clone)
		return clone, nil
	}
	ps := make(domain.Positions, len(clone.Position))
	for v, p := range clone.Position {
		ps[v] = domain.Position{X: p.X + 20, Y: p.Y + 20, Z: p.Z}
	}
	clone.Position = ps
	els := make([]domain.Element, 0, len(t.doc.Elements)+1)
	els = append(els, t.doc.Elements[:i+1]...)
	els = append(els, clone)
	els = append(els, t.doc.Elements[i+1:]...)
	t.doc.Elements = els
	return clone, nil
}

// MoveElementUp swaps an element with its predecessor. It reports whether
// anything moved.
func (t *Tree) MoveElementUp(id string) (bool, error) {
	i := t.indexOf(id)
	if i < 0 {
		return false, fmt.Errorf("move up %q: %w", id, domain.ErrOrphanReference)
	}
	if i == 0 {
		return false, nil
	}
	t.doc.Elements[i-1], t.doc.Elements[i] = t.doc.Elements[i], t.doc.Elements[i-1]
	t.doc.Elements[i-1].Meta.UpdatedAt = t.now()
	return true, nil
}

// MoveElementDown swaps an element with its successor.
func (t *Tree) MoveElementDown(id string) (bool, error) {
	i := t.indexOf(id)
	if i < 0 {
		return false, fmt.Errorf("move down %q: %w", id, domain.ErrOrphanReference)
	}
	if i == len(t.doc.Elements)-1 {
		return false, nil
	}
	t.doc.Elements[i+1], t.doc.Elements[i] = t.doc.Elements[i], t.doc.Elements[i+1]
	t.doc.Elements[i+1].Meta.UpdatedAt = t.now()
	return true, nil
}

// ToggleVisibility flips the visible flag of an element, or of one of its
// children when childID is set, and returns the new value.
func (t *Tree) ToggleVisibility(id, childID string) (bool, error) {
	n, err := t.node(id, childID)
	if err != nil {
		return false, fmt.Errorf("toggle visibility: %w", err)
	}
	n.Visible = !n.Visible
	n.Meta.UpdatedAt = t.now()
	return n.Visible, nil
}

// ToggleLock flips the locked flag and returns the new value.
func (t *Tree) ToggleLock(id, childID string) (bool, error) {
	n, err := t.node(id, childID)
	if err != nil {
		return false, fmt.Errorf("toggle lock: %w", err)
	}
	n.Locked = !n.Locked
	n.Meta.UpdatedAt = t.now()
	return n.Locked, nil
}

func (t *Tree) node(id, childID string) (*domain.Node, error) {
	if childID == "" {
		i := t.indexOf(id)
		if i < 0 {
			return nil, fmt.Errorf("%q: %w", id, domain.ErrOrphanReference)
		}
		return &t.doc.Elements[i].Node, nil
	}
	pi, ci := t.childIndex(id, childID)
	if ci < 0 {
		return nil, fmt.Errorf("%q/%q: %w", id, childID, domain.ErrOrphanReference)
	}
	return &t.doc.Elements[pi].Children[ci].Node, nil
}

// CheckInvariants verifies the structural rules: globally unique ids,
// children only under container kinds and no negative coordinates.
func (t *Tree) CheckInvariants() error {
	seen := make(map[string]bool)
	check := func(n domain.Node) error {
		if n.ID == "" {
			return fmt.Errorf("node of type %s without id", n.Type)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate id %q", n.ID)
		}
		seen[n.ID] = true
		for v, p := range n.Position {
			if p.X < 0 || p.Y < 0 {
				return fmt.Errorf("%q has negative %s position %+v", n.ID, v, p)
			}
		}
		return nil
	}
	for _, e := range t.doc.Elements {
		if err := check(e.Node); err != nil {
			return err
		}
		if len(e.Children) > 0 && !t.reg.IsContainerKind(e.Type) {
			return fmt.Errorf("%q (%s) owns children but is not a container kind", e.ID, e.Type)
		}
		for _, c := range e.Children {
			if err := check(c.Node); err != nil {
				return err
			}
		}
	}
	return nil
}
