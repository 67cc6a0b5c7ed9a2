/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Basic 2D geometry for the canvas engine: points, rectangles, derived box
// bounds and the pointer-to-canvas mapping. Everything here is pure and
// deterministic so that snapping can be replayed in tests.

import (
	"math"

	"pagecanvas/internal/domain"
)

// Pt is a 2D point in canvas pixels.
type Pt struct{ X, Y float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Area is W*H.
func (r Rect) Area() float64 { return r.W * r.H }

// Bounds are the edges and centers of a box.
type Bounds struct {
	Left, Top, Right, Bottom float64
	CenterX, CenterY         float64
}

// Bounds derives edge/center values from the rectangle.
func (r Rect) Bounds() Bounds {
	return Bounds{
		Left:    r.X,
		Top:     r.Y,
		Right:   r.X + r.W,
		Bottom:  r.Y + r.H,
		CenterX: r.X + r.W/2,
		CenterY: r.Y + r.H/2,
	}
}

// BoxOf returns the desktop rectangle of a node relative to its own frame
// (canvas for elements, parent content box for children).
func BoxOf(n domain.Node) Rect {
	p := n.Position.At(domain.Desktop)
	s := n.EffectiveSize()
	return Rect{X: p.X, Y: p.Y, W: s.Width, H: s.Height}
}

// BoundsOf computes a node's bounds from its desktop position and size. The
// desktop layout is the reference frame for all snap geometry whatever
// viewport is being edited.
func BoundsOf(n domain.Node) Bounds { return BoxOf(n).Bounds() }

// ChildBoundsOf places a child's desktop box in canvas space by offsetting it
// with the parent's desktop origin.
func ChildBoundsOf(parent domain.Node, child domain.Node) Bounds {
	po := parent.Position.At(domain.Desktop)
	r := BoxOf(child)
	r.X += po.X
	r.Y += po.Y
	return r.Bounds()
}

// BoxIn returns the node rectangle for the given viewport. Hit-testing uses
// the layout the user is looking at.
func BoxIn(n domain.Node, v domain.Viewport) Rect {
	p := n.Position.At(v)
	s := n.EffectiveSize()
	return Rect{X: p.X, Y: p.Y, W: s.Width, H: s.Height}
}

// PointerToCanvasSpace maps a screen pointer into canvas space: subtract the
// container origin, add the scroll offset, undo the zoom and clamp to the
// positive quadrant. A nil container means the canvas is not mounted; the
// zero point is returned with ErrGeometryUnavailable.
func PointerToCanvasSpace(pointer Pt, container *Rect, scroll Pt, zoomPercent float64) (Pt, error) {
	if container == nil {
		return Pt{}, domain.ErrGeometryUnavailable
	}
	scale := ZoomScale(zoomPercent)
	x := (pointer.X - container.X + scroll.X) / scale
	y := (pointer.Y - container.Y + scroll.Y) / scale
	return Pt{X: math.Max(0, x), Y: math.Max(0, y)}, nil
}

// ZoomScale converts a zoom percentage into a scale factor; non-positive or
// NaN zoom falls back to 100%.
func ZoomScale(zoomPercent float64) float64 {
	if zoomPercent <= 0 || math.IsNaN(zoomPercent) || math.IsInf(zoomPercent, 0) {
		return 1
	}
	return zoomPercent / 100
}

// Clamp returns p with both axes clamped to >= 0.
func Clamp(p Pt) Pt { return Pt{X: math.Max(0, p.X), Y: math.Max(0, p.Y)} }

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
