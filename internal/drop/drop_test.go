/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drop

import (
	"errors"
	"testing"
	"time"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
	"pagecanvas/internal/tree"
)

func newTree(t *testing.T, els ...domain.Element) *tree.Tree {
	t.Helper()
	doc := domain.NewPage(1200)
	doc.Elements = append(doc.Elements, els...)
	ts := time.UnixMilli(1700000000000)
	return tree.New(doc, nil, tree.WithClock(func() time.Time { return ts }))
}

func section(id string, y, h float64) domain.Element {
	return domain.Element{Node: domain.Node{
		ID:            id,
		Type:          domain.TypeSection,
		ComponentData: map[string]any{"structure": domain.StructureStandard},
		Position:      domain.NewPositions(domain.Position{Y: y}),
		Size:          &domain.Size{Width: 960, Height: h},
		Visible:       true,
	}, Children: []domain.Child{}}
}

func leaf(id, typ string, x, y float64) domain.Element {
	return domain.Element{Node: domain.Node{
		ID:       id,
		Type:     typ,
		Position: domain.NewPositions(domain.Position{X: x, Y: y}),
		Size:     &domain.Size{Width: 100, Height: 40},
		Visible:  true,
	}, Children: []domain.Child{}}
}

func withChild(el domain.Element, id string, x, y float64) domain.Element {
	el.Children = append(el.Children, domain.Child{Node: domain.Node{
		ID:       id,
		Type:     "button",
		Position: domain.NewPositions(domain.Position{X: x, Y: y}),
		Size:     &domain.Size{Width: 100, Height: 40},
		Visible:  true,
	}, Children: []domain.Child{}})
	return el
}

var desk = Env{Viewport: domain.Desktop}

func TestHitTest_NearestEnclosingWins(t *testing.T) {
	s1 := section("s1", 0, 400)
	s2 := section("s2", 100, 200)
	tr := newTree(t, s1, s2)
	got := HitTest(tr.Document(), tr.Registry(), geometry.Pt{X: 50, Y: 150}, desk)
	if got.ContainerID != "s2" {
		t.Fatalf("expected later region s2, got %q", got.ContainerID)
	}
	// raise s1 above s2
	tr.Document().Elements[0].Position[domain.Desktop] = domain.Position{Y: 0, Z: 5}
	got = HitTest(tr.Document(), tr.Registry(), geometry.Pt{X: 50, Y: 150}, desk)
	if got.ContainerID != "s1" {
		t.Fatalf("expected higher z region s1, got %q", got.ContainerID)
	}
	got = HitTest(tr.Document(), tr.Registry(), geometry.Pt{X: 50, Y: 900}, desk)
	if !got.Canvas() {
		t.Fatalf("expected canvas fallback, got %q", got.ContainerID)
	}
}

func TestHitTest_EligibilityRules(t *testing.T) {
	plain := section("plain", 0, 400)
	plain.ComponentData = map[string]any{"structure": "other"}
	hidden := section("hidden", 500, 100)
	hidden.Visible = false
	popup := domain.Element{Node: domain.Node{ID: "p1", Type: domain.TypePopup, Visible: true,
		Position: domain.NewPositions(domain.Position{X: 0, Y: 700}), Size: &domain.Size{Width: 600, Height: 400}}}
	tr := newTree(t, plain, hidden, popup)
	doc, reg := tr.Document(), tr.Registry()

	if got := HitTest(doc, reg, geometry.Pt{X: 10, Y: 10}, desk); !got.Canvas() {
		t.Fatalf("non-standard section must not be a region")
	}
	if got := HitTest(doc, reg, geometry.Pt{X: 10, Y: 550}, desk); !got.Canvas() {
		t.Fatalf("hidden section must not be a region")
	}
	if got := HitTest(doc, reg, geometry.Pt{X: 10, Y: 800}, desk); !got.Canvas() {
		t.Fatalf("closed popup must not be a region")
	}
	open := Env{Viewport: domain.Desktop, OpenPopups: map[string]bool{"p1": true}}
	got := HitTest(doc, reg, geometry.Pt{X: 10, Y: 800}, open)
	if got.ContainerID != "p1" || got.Origin != (geometry.Pt{X: 0, Y: 700}) {
		t.Fatalf("open popup should be hit with its origin, got %+v", got)
	}
}

func TestHitTest_UsesActiveViewport(t *testing.T) {
	s1 := section("s1", 0, 400)
	s1.Position[domain.Mobile] = domain.Position{X: 0, Y: 1000}
	tr := newTree(t, s1)
	if got := HitTest(tr.Document(), tr.Registry(), geometry.Pt{X: 10, Y: 10}, Env{Viewport: domain.Mobile}); !got.Canvas() {
		t.Fatalf("mobile layout moved the section away, expected canvas")
	}
	if got := HitTest(tr.Document(), tr.Registry(), geometry.Pt{X: 10, Y: 1010}, Env{Viewport: domain.Mobile}); got.ContainerID != "s1" {
		t.Fatalf("expected s1 in mobile layout, got %+v", got)
	}
}

func TestBegin_RejectsLockedAndUnknown(t *testing.T) {
	b := leaf("b1", "button", 0, 0)
	b.Locked = true
	s := withChild(section("s1", 0, 400), "c1", 10, 10)
	s.Children[0].Locked = true
	tr := newTree(t, b, s)
	r := NewResolver(tr)

	if _, err := r.Begin(Payload{Kind: ExistingTopLevel, ElementID: "b1"}); !errors.Is(err, domain.ErrLockedElement) {
		t.Fatalf("expected ErrLockedElement, got %v", err)
	}
	if _, err := r.Begin(Payload{Kind: ExistingChild, ParentID: "s1", ChildID: "c1"}); !errors.Is(err, domain.ErrLockedElement) {
		t.Fatalf("expected ErrLockedElement for child, got %v", err)
	}
	if _, err := r.Begin(Payload{Kind: ExistingTopLevel, ElementID: "nope"}); !errors.Is(err, domain.ErrOrphanReference) {
		t.Fatalf("expected ErrOrphanReference, got %v", err)
	}
	if r.State() != Idle {
		t.Fatalf("rejected drags must stay idle, got %v", r.State())
	}
}

func TestCommit_PaletteButtonIntoSection(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400))
	r := NewResolver(tr)
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: domain.Template{Type: "button"}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pt := geometry.Pt{X: 205, Y: 340}
	if got := r.Hover(pt, desk); got.ContainerID != "s1" {
		t.Fatalf("hover target = %+v", got)
	}
	plan, err := r.Commit(pt, geometry.Pt{X: 200, Y: 340}, desk)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if plan.Op != OpAddChild || plan.ParentID != "s1" {
		t.Fatalf("unexpected plan %+v", plan)
	}
	res, err := plan.Apply(tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c, ok := tr.Child("s1", res.ID)
	if !ok {
		t.Fatalf("child not found")
	}
	if p := c.Position.At(domain.Desktop); p.X != 200 || p.Y != 340 {
		t.Fatalf("child position = %+v", p)
	}
	if r.State() != Committed {
		t.Fatalf("state = %v", r.State())
	}
}

func TestCommit_PaletteStyleHintsSizeTheChild(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400))
	r := NewResolver(tr)
	tpl := domain.Template{Type: "button", Styles: map[string]any{"width": "120px", "height": "30px"}}
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: tpl}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	plan, err := r.Commit(geometry.Pt{X: 100, Y: 100}, geometry.Pt{X: 100, Y: 100}, desk)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	res, err := plan.Apply(tr)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c, _ := tr.Child("s1", res.ID)
	if got := c.EffectiveSize(); got.Width != 120 || got.Height != 30 {
		t.Fatalf("child size = %+v", got)
	}
}

func TestCommit_PaletteLeafOnCanvasIsInvalid(t *testing.T) {
	tr := newTree(t)
	r := NewResolver(tr)
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: domain.Template{Type: "button"}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, err := r.Commit(geometry.Pt{X: 10, Y: 10}, geometry.Pt{X: 10, Y: 10}, desk)
	if !errors.Is(err, domain.ErrInvalidDropTarget) {
		t.Fatalf("expected ErrInvalidDropTarget, got %v", err)
	}
	if r.State() != Idle || len(tr.Document().Elements) != 0 {
		t.Fatalf("failed drop must leave idle and untouched tree")
	}
}

func TestCommit_ContainerKindsAlwaysResolveToCanvas(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400))
	r := NewResolver(tr)
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: domain.Template{Type: domain.TypePopup}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pt := geometry.Pt{X: 50, Y: 50}
	if got := r.Hover(pt, desk); !got.Canvas() {
		t.Fatalf("popup must target canvas, got %+v", got)
	}
	plan, err := r.Commit(pt, pt, desk)
	if err != nil || plan.Op != OpAddElement {
		t.Fatalf("expected add element, got %+v %v", plan, err)
	}
}

func TestCommit_ChildMoves(t *testing.T) {
	s1 := withChild(section("s1", 0, 400), "c1", 10, 10)
	s2 := section("s2", 410, 400)
	tr := newTree(t, s1, s2)
	r := NewResolver(tr)

	cases := []struct {
		name    string
		pointer geometry.Pt
		want    Op
		pos     domain.Position
	}{
		{"same parent", geometry.Pt{X: 50, Y: 60}, OpUpdateChildPosition, domain.Position{X: 50, Y: 60}},
		{"other parent", geometry.Pt{X: 50, Y: 460}, OpMoveChild, domain.Position{X: 50, Y: 50}},
		{"canvas", geometry.Pt{X: 1000, Y: 60}, OpPromote, domain.Position{X: 1000, Y: 60}},
	}
	for _, tc := range cases {
		if _, err := r.Begin(Payload{Kind: ExistingChild, ParentID: "s1", ChildID: "c1"}); err != nil {
			t.Fatalf("%s: Begin: %v", tc.name, err)
		}
		plan, err := r.Commit(tc.pointer, tc.pointer, desk)
		if err != nil {
			t.Fatalf("%s: Commit: %v", tc.name, err)
		}
		if plan.Op != tc.want || plan.Position != tc.pos {
			t.Fatalf("%s: got op=%v pos=%+v", tc.name, plan.Op, plan.Position)
		}
	}
}

func TestCommit_TopLevelAdoptionAndReposition(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400), leaf("b1", "button", 1000, 500))
	r := NewResolver(tr)

	if _, err := r.Begin(Payload{Kind: ExistingTopLevel, ElementID: "b1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	plan, err := r.Commit(geometry.Pt{X: 1000, Y: 600}, geometry.Pt{X: 1000, Y: 600}, desk)
	if err != nil || plan.Op != OpUpdatePosition {
		t.Fatalf("expected reposition, got %+v %v", plan, err)
	}

	if _, err := r.Begin(Payload{Kind: ExistingTopLevel, ElementID: "b1"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	plan, err = r.Commit(geometry.Pt{X: 10, Y: 20}, geometry.Pt{X: 10, Y: 20}, desk)
	if err != nil || plan.Op != OpAdopt || plan.ToParentID != "s1" {
		t.Fatalf("expected adoption, got %+v %v", plan, err)
	}
	if _, err := plan.Apply(tr); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c, ok := tr.Child("s1", "b1")
	if !ok || c.Position.At(domain.Desktop) != (domain.Position{X: 10, Y: 20}) {
		t.Fatalf("adopted child = %+v ok=%v", c.Position, ok)
	}
}

func TestCommit_RechecksTreeAtCommitTime(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400))
	r := NewResolver(tr)
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: domain.Template{Type: "button"}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	pt := geometry.Pt{X: 20, Y: 20}
	r.Hover(pt, desk)
	// the section loses its container structure mid-drag
	tr.Document().Elements[0].ComponentData["structure"] = "flat"
	if _, err := r.Commit(pt, pt, desk); !errors.Is(err, domain.ErrInvalidDropTarget) {
		t.Fatalf("expected ErrInvalidDropTarget, got %v", err)
	}
	if len(tr.Document().Elements[0].Children) != 0 {
		t.Fatalf("no child must be inserted")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	tr := newTree(t, section("s1", 0, 400))
	r := NewResolver(tr)
	if _, err := r.Begin(Payload{Kind: NewFromPalette, Template: domain.Template{Type: "button"}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !r.Cancel() {
		t.Fatalf("first cancel should report an active drag")
	}
	if r.Cancel() {
		t.Fatalf("second cancel should be a no-op")
	}
	if r.State() != Idle {
		t.Fatalf("state = %v", r.State())
	}
	if _, err := r.Commit(geometry.Pt{}, geometry.Pt{}, desk); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("expected ErrNoDrag, got %v", err)
	}
}
