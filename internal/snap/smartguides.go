/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

// Snap candidates and alignment guidelines for dragging on the page canvas.
// These helpers are UI-agnostic and deterministic: the same document and
// pointer path always produce the same points and guides.

import (
	"math"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

// Threshold is shared with geometry.SnapToGrid so guides appear exactly when
// the dragged point is pulled onto a line.
const Threshold = geometry.SnapThreshold

// Orientation of a guide line.
const (
	Vertical   = "vertical"
	Horizontal = "horizontal"
)

// Guide kinds.
const (
	KindEdge   = "edge"
	KindCenter = "center"
	KindCanvas = "canvas"
)

// GuideLine describes a visual guide. Position is the x (vertical) or y
// (horizontal) coordinate; From and To are the extents to draw. Guides are
// advisory only and never move the dragged item.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        geometry.Pt
	To          geometry.Pt
}

// CanvasBounds returns the canvas box as bounds.
func CanvasBounds(width, height float64) geometry.Bounds {
	return geometry.R(0, 0, width, height).Bounds()
}

// CollectSnapPoints returns the snap candidates in their evaluation order:
// seven points for every visible element, then seven for every visible child
// of a visible element (in element order), then the canvas top-left,
// bottom-right and center. Geometry is desktop-referenced; viewport is
// accepted for the call contract but does not change the points. Ids in
// exclude (usually the item being dragged) contribute nothing.
func CollectSnapPoints(elements []domain.Element, canvas geometry.Bounds, viewport domain.Viewport, exclude ...string) []geometry.Pt {
	_ = viewport
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	pts := make([]geometry.Pt, 0, 7*len(elements)+3)
	for _, e := range elements {
		if !e.Visible || skip[e.ID] {
			continue
		}
		pts = appendBoxPoints(pts, geometry.BoundsOf(e.Node))
	}
	for _, e := range elements {
		if !e.Visible {
			continue
		}
		for _, c := range e.Children {
			if !c.Visible || skip[c.ID] {
				continue
			}
			pts = appendBoxPoints(pts, geometry.ChildBoundsOf(e.Node, c.Node))
		}
	}
	pts = append(pts,
		geometry.Pt{X: canvas.Left, Y: canvas.Top},
		geometry.Pt{X: canvas.Right, Y: canvas.Bottom},
		geometry.Pt{X: canvas.CenterX, Y: canvas.CenterY},
	)
	return pts
}

func appendBoxPoints(pts []geometry.Pt, b geometry.Bounds) []geometry.Pt {
	return append(pts,
		geometry.Pt{X: b.Left, Y: b.Top},
		geometry.Pt{X: b.Right, Y: b.Bottom},
		geometry.Pt{X: b.CenterX, Y: b.CenterY},
		geometry.Pt{X: b.Left, Y: b.CenterY},
		geometry.Pt{X: b.Right, Y: b.CenterY},
		geometry.Pt{X: b.CenterX, Y: b.Top},
		geometry.Pt{X: b.CenterX, Y: b.Bottom},
	)
}

// CalculateGuidelines emits a vertical guide for every left/right/centerX and
// a horizontal guide for every top/bottom/centerY closer than Threshold to
// p, over visible elements and their visible children, followed by the
// canvas edges and midlines. Several guides may co-exist.
func CalculateGuidelines(p geometry.Pt, elements []domain.Element, viewportWidth, canvasHeight float64, exclude ...string) []GuideLine {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var guides []GuideLine
	box := func(b geometry.Bounds) {
		guides = appendVertical(guides, p, b.Left, KindEdge, b)
		guides = appendVertical(guides, p, b.Right, KindEdge, b)
		guides = appendVertical(guides, p, b.CenterX, KindCenter, b)
		guides = appendHorizontal(guides, p, b.Top, KindEdge, b)
		guides = appendHorizontal(guides, p, b.Bottom, KindEdge, b)
		guides = appendHorizontal(guides, p, b.CenterY, KindCenter, b)
	}
	for _, e := range elements {
		if !e.Visible {
			continue
		}
		if !skip[e.ID] {
			box(geometry.BoundsOf(e.Node))
		}
		for _, c := range e.Children {
			if c.Visible && !skip[c.ID] {
				box(geometry.ChildBoundsOf(e.Node, c.Node))
			}
		}
	}
	cv := CanvasBounds(viewportWidth, canvasHeight)
	guides = appendVertical(guides, p, 0, KindCanvas, cv)
	guides = appendVertical(guides, p, viewportWidth, KindCanvas, cv)
	guides = appendVertical(guides, p, viewportWidth/2, KindCanvas, cv)
	guides = appendHorizontal(guides, p, 0, KindCanvas, cv)
	guides = appendHorizontal(guides, p, canvasHeight, KindCanvas, cv)
	guides = appendHorizontal(guides, p, canvasHeight/2, KindCanvas, cv)
	return guides
}

func appendVertical(gs []GuideLine, p geometry.Pt, x float64, kind string, b geometry.Bounds) []GuideLine {
	if math.Abs(p.X-x) >= Threshold {
		return gs
	}
	x = geometry.FloatRound(x, 3)
	return append(gs, GuideLine{
		Orientation: Vertical,
		Kind:        kind,
		Position:    x,
		From:        geometry.Pt{X: x, Y: math.Min(b.Top, p.Y)},
		To:          geometry.Pt{X: x, Y: math.Max(b.Bottom, p.Y)},
	})
}

func appendHorizontal(gs []GuideLine, p geometry.Pt, y float64, kind string, b geometry.Bounds) []GuideLine {
	if math.Abs(p.Y-y) >= Threshold {
		return gs
	}
	y = geometry.FloatRound(y, 3)
	return append(gs, GuideLine{
		Orientation: Horizontal,
		Kind:        kind,
		Position:    y,
		From:        geometry.Pt{X: math.Min(b.Left, p.X), Y: y},
		To:          geometry.Pt{X: math.Max(b.Right, p.X), Y: y},
	})
}

// Options configure one snapping pass.
type Options struct {
	GridSize float64 // geometry.GridDisabled turns grid rounding off
	Viewport domain.Viewport
	Exclude  []string
}

// Result of Compute: the snapped point and the guides to draw for it.
type Result struct {
	Snapped geometry.Pt
	Guides  []GuideLine
}

// Compute runs a full pass for a dragged point against a document: collect
// candidates, snap, then derive guides from the snapped point.
func Compute(p geometry.Pt, doc *domain.PageDocument, opts Options) Result {
	h := doc.EffectiveHeight()
	cv := CanvasBounds(doc.Canvas.Width, h)
	pts := CollectSnapPoints(doc.Elements, cv, opts.Viewport, opts.Exclude...)
	snapped := geometry.SnapToGrid(p, opts.GridSize, pts)
	return Result{
		Snapped: snapped,
		Guides:  CalculateGuidelines(snapped, doc.Elements, doc.Canvas.Width, h, opts.Exclude...),
	}
}
