/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the page document model edited by the canvas engine.
// Element and Child share the Node shape; a parent owns its children array and
// children carry no back-pointer to their parent.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Viewport names one of the independently positioned layouts.
type Viewport string

const (
	Desktop Viewport = "desktop"
	Tablet  Viewport = "tablet"
	Mobile  Viewport = "mobile"
)

// Viewports lists every viewport key in a stable order.
var Viewports = []Viewport{Desktop, Tablet, Mobile}

// ParseViewport accepts a viewport name case-insensitively.
func ParseViewport(s string) (Viewport, error) {
	switch Viewport(strings.ToLower(strings.TrimSpace(s))) {
	case Desktop:
		return Desktop, nil
	case Tablet:
		return Tablet, nil
	case Mobile:
		return Mobile, nil
	}
	return "", fmt.Errorf("unknown viewport %q", s)
}

// Widget types the engine itself knows about. Everything else is a leaf type
// whose meaning belongs to the renderer.
const (
	TypeSection = "section"
	TypePopup   = "popup"
	TypeModal   = "modal"
)

// StructureStandard is the componentData.structure value that turns a section
// into a drop container.
const StructureStandard = "ladi-standard"

// Fallback size used when an item carries neither a size nor style hints.
const (
	DefaultWidth  = 200
	DefaultHeight = 50
)

// Position is a point in canvas pixels with an optional stacking index.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z int     `json:"z,omitempty"`
}

// Positions maps each viewport to its own override. Keys never inherit from
// each other; a missing key reads as the zero position.
type Positions map[Viewport]Position

// NewPositions initialises every viewport key to p. After this step the
// overrides diverge independently.
func NewPositions(p Position) Positions {
	ps := make(Positions, len(Viewports))
	for _, v := range Viewports {
		ps[v] = p
	}
	return ps
}

// At returns the position for v or the zero position when the key is absent.
func (ps Positions) At(v Viewport) Position {
	if ps == nil {
		return Position{}
	}
	return ps[v]
}

// Clone returns an independent copy.
func (ps Positions) Clone() Positions {
	if ps == nil {
		return nil
	}
	out := make(Positions, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Size is a width/height pair in canvas pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Meta carries bookkeeping written by the tree on every mutation.
type Meta struct {
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is the shape shared by top-level elements and container children.
type Node struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	ComponentData map[string]any `json:"componentData,omitempty"`
	Position      Positions      `json:"position"`
	Size          *Size          `json:"size,omitempty"`
	Styles        map[string]any `json:"styles,omitempty"`
	Visible       bool           `json:"visible"`
	Locked        bool           `json:"locked"`
	Meta          Meta           `json:"meta"`
}

// Element is a top-level item on the canvas.
type Element struct {
	Node
	Children []Child `json:"children"`
}

// Child is an item owned by a container element. Its position is relative to
// the parent's content-box origin. Children is structurally present but
// never populated by the engine.
type Child struct {
	Node
	Children []Child `json:"children"`
}

// Structure returns componentData.structure or "" when absent.
func (n Node) Structure() string {
	if n.ComponentData == nil {
		return ""
	}
	s, _ := n.ComponentData["structure"].(string)
	return s
}

// EffectiveSize resolves the box size: explicit size first, then width/height
// style hints, then the 200x50 default, per axis.
func (n Node) EffectiveSize() Size {
	out := Size{Width: DefaultWidth, Height: DefaultHeight}
	if w, ok := StyleNumber(n.Styles, "width"); ok {
		out.Width = w
	}
	if h, ok := StyleNumber(n.Styles, "height"); ok {
		out.Height = h
	}
	if n.Size != nil {
		if n.Size.Width > 0 {
			out.Width = n.Size.Width
		}
		if n.Size.Height > 0 {
			out.Height = n.Size.Height
		}
	}
	return out
}

// StyleNumber reads a positive pixel value from styles. Numbers and "120px"
// style strings are accepted.
func StyleNumber(styles map[string]any, key string) (float64, bool) {
	if styles == nil {
		return 0, false
	}
	switch v := styles[key].(type) {
	case float64:
		return v, v > 0
	case int:
		return float64(v), v > 0
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(v), "px")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// CanvasHeight is either a fixed pixel height or "auto".
type CanvasHeight struct {
	Auto  bool
	Value float64
}

func (h CanvasHeight) MarshalJSON() ([]byte, error) {
	if h.Auto {
		return []byte(`"auto"`), nil
	}
	return json.Marshal(h.Value)
}

func (h *CanvasHeight) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if strings.EqualFold(s, "auto") {
			*h = CanvasHeight{Auto: true}
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
		if err != nil {
			return fmt.Errorf("canvas height %q: %w", s, err)
		}
		*h = CanvasHeight{Value: f}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("canvas height: %w", err)
	}
	*h = CanvasHeight{Value: f}
	return nil
}

// Canvas is the global stage.
type Canvas struct {
	Width      float64      `json:"width"`
	Height     CanvasHeight `json:"height"`
	Background string       `json:"background,omitempty"`
}

// PageDocument is the in-memory page: canvas config plus the ordered element
// list. Element order is paint order.
type PageDocument struct {
	Canvas   Canvas         `json:"canvas"`
	Elements []Element      `json:"elements"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// NewPage returns an empty document with the given canvas width and an
// auto height.
func NewPage(width float64) *PageDocument {
	return &PageDocument{
		Canvas:   Canvas{Width: width, Height: CanvasHeight{Auto: true}, Background: "#ffffff"},
		Elements: []Element{},
		Meta:     map[string]any{},
	}
}

// EffectiveHeight resolves the canvas height. An auto height grows to the
// bottom of the lowest element in the desktop layout.
func (d *PageDocument) EffectiveHeight() float64 {
	if !d.Canvas.Height.Auto {
		return d.Canvas.Height.Value
	}
	var bottom float64
	for _, e := range d.Elements {
		b := e.Position.At(Desktop).Y + e.EffectiveSize().Height
		if b > bottom {
			bottom = b
		}
	}
	return bottom
}

// Clone deep-copies the document through its JSON form so opaque bags are
// not shared with the copy.
func (d *PageDocument) Clone() (*PageDocument, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	var out PageDocument
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	if out.Elements == nil {
		out.Elements = []Element{}
	}
	return &out, nil
}

// Template is a palette item: the blob a NewFromPalette drag carries.
type Template struct {
	Type          string         `json:"type"`
	ComponentData map[string]any `json:"componentData,omitempty"`
	Styles        map[string]any `json:"styles,omitempty"`
	Size          *Size          `json:"size,omitempty"`
}
