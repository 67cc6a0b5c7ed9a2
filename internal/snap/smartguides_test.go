/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"reflect"
	"testing"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

func box(id string, x, y, w, h float64) domain.Element {
	return domain.Element{Node: domain.Node{
		ID:       id,
		Type:     "button",
		Position: domain.NewPositions(domain.Position{X: x, Y: y}),
		Size:     &domain.Size{Width: w, Height: h},
		Visible:  true,
	}}
}

func TestCollectSnapPoints_OrderAndCount(t *testing.T) {
	a := box("a", 0, 0, 100, 50)
	a.Children = []domain.Child{{Node: domain.Node{ID: "c", Position: domain.NewPositions(domain.Position{X: 10, Y: 10}), Size: &domain.Size{Width: 20, Height: 20}, Visible: true}}}
	hidden := box("h", 500, 500, 10, 10)
	hidden.Visible = false

	pts := CollectSnapPoints([]domain.Element{a, hidden}, CanvasBounds(960, 600), domain.Desktop)
	if len(pts) != 7+7+3 {
		t.Fatalf("expected 17 points, got %d", len(pts))
	}
	if pts[0] != (geometry.Pt{X: 0, Y: 0}) || pts[1] != (geometry.Pt{X: 100, Y: 50}) || pts[2] != (geometry.Pt{X: 50, Y: 25}) {
		t.Fatalf("element corner/center points out of order: %v", pts[:3])
	}
	// child points come after element points and sit in canvas space
	if pts[7] != (geometry.Pt{X: 10, Y: 10}) {
		t.Fatalf("expected child top-left at (10,10), got %v", pts[7])
	}
	// canvas points close the list
	if pts[16] != (geometry.Pt{X: 480, Y: 300}) {
		t.Fatalf("expected canvas center last, got %v", pts[16])
	}
}

func TestCollectSnapPoints_ViewportAgnostic(t *testing.T) {
	e := box("a", 40, 40, 100, 100)
	e.Position[domain.Mobile] = domain.Position{X: 1, Y: 1}
	cv := CanvasBounds(960, 600)
	d := CollectSnapPoints([]domain.Element{e}, cv, domain.Desktop)
	m := CollectSnapPoints([]domain.Element{e}, cv, domain.Mobile)
	if !reflect.DeepEqual(d, m) {
		t.Fatalf("snap points must be desktop-referenced")
	}
}

func TestCollectSnapPoints_Exclude(t *testing.T) {
	pts := CollectSnapPoints([]domain.Element{box("a", 0, 0, 10, 10)}, CanvasBounds(100, 100), domain.Desktop, "a")
	if len(pts) != 3 {
		t.Fatalf("excluded element should add no points, got %d", len(pts))
	}
}

func TestCalculateGuidelines_EdgesAndCanvas(t *testing.T) {
	els := []domain.Element{box("a", 100, 100, 200, 100)}
	gs := CalculateGuidelines(geometry.Pt{X: 105, Y: 195}, els, 960, 600)
	var left, bottom bool
	for _, g := range gs {
		if g.Orientation == Vertical && g.Position == 100 && g.Kind == KindEdge {
			left = true
		}
		if g.Orientation == Horizontal && g.Position == 200 && g.Kind == KindEdge {
			bottom = true
		}
		if g.Kind == KindCanvas {
			t.Fatalf("no canvas guide expected near (105,195), got %+v", g)
		}
	}
	if !left || !bottom {
		t.Fatalf("expected left edge and bottom edge guides, got %+v", gs)
	}
}

func TestCalculateGuidelines_CanvasMidlines(t *testing.T) {
	gs := CalculateGuidelines(geometry.Pt{X: 478, Y: 302}, nil, 960, 600)
	if len(gs) != 2 {
		t.Fatalf("expected two midline guides, got %+v", gs)
	}
	if gs[0].Orientation != Vertical || gs[0].Position != 480 {
		t.Fatalf("unexpected vertical guide %+v", gs[0])
	}
	if gs[1].Orientation != Horizontal || gs[1].Position != 300 {
		t.Fatalf("unexpected horizontal guide %+v", gs[1])
	}
}

func TestCalculateGuidelines_Threshold(t *testing.T) {
	gs := CalculateGuidelines(geometry.Pt{X: 115, Y: 300}, []domain.Element{box("a", 100, 100, 400, 20)}, 2000, 2000)
	for _, g := range gs {
		if g.Orientation == Vertical && g.Position == 100 {
			t.Fatalf("15px away must not produce a guide")
		}
	}
}

func TestCompute_DeterministicAndConsistent(t *testing.T) {
	doc := domain.NewPage(960)
	doc.Elements = []domain.Element{box("a", 100, 100, 200, 100), box("b", 400, 20, 50, 50)}
	opts := Options{GridSize: 10, Viewport: domain.Desktop}
	first := Compute(geometry.Pt{X: 296, Y: 121}, doc, opts)
	for i := 0; i < 20; i++ {
		if got := Compute(geometry.Pt{X: 296, Y: 121}, doc, opts); !reflect.DeepEqual(got, first) {
			t.Fatalf("pass %d not deterministic", i)
		}
	}
	if first.Snapped.X != 300 {
		t.Fatalf("expected x snapped onto right edge 300, got %v", first.Snapped.X)
	}
	found := false
	for _, g := range first.Guides {
		if g.Orientation == Vertical && g.Position == 300 {
			found = true
		}
	}
	if !found {
		t.Fatalf("snap and guide must agree on x=300: %+v", first.Guides)
	}
}
