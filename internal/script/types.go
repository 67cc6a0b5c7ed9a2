/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	"pagecanvas/internal/geometry"
)

// Script is a recorded editing session: an initial view and a list of
// gestures replayed against a controller.
//
//	viewport: tablet
//	zoom: 100
//	grid: {size: 20, show: true}
//	steps:
//	  - palette: {type: section}
//	    at: [100, 100]
//	    as: hero
//	  - palette: {type: button}
//	    at: [205, 340]
//	  - drag: $hero
//	    path: [[300, 200], [320, 260]]
//	  - key: ctrl+z
type Script struct {
	Viewport domain.Viewport
	Zoom     float64
	Grid     *Grid
	Steps    []Step
}

// Grid overrides the snap grid.
type Grid struct {
	Size float64
	Show bool
}

// StepKind is the gesture a step performs.
type StepKind int

const (
	StepUnknown StepKind = iota
	StepPalette
	StepDrag
	StepResize
	StepKey
	StepSelect
	StepViewport
	StepZoom
	StepOpenPopup
	StepClosePopup
	StepToggleLock
	StepToggleVisibility
)

var stepNames = map[StepKind]string{
	StepPalette:          "palette",
	StepDrag:             "drag",
	StepResize:           "resize",
	StepKey:              "key",
	StepSelect:           "select",
	StepViewport:         "viewport",
	StepZoom:             "zoom",
	StepOpenPopup:        "open_popup",
	StepClosePopup:       "close_popup",
	StepToggleLock:       "toggle_lock",
	StepToggleVisibility: "toggle_visibility",
}

func (k StepKind) String() string {
	if s, ok := stepNames[k]; ok {
		return s
	}
	return "unknown"
}

// Step is one gesture. Target references are element ids, or $name for an
// item bound with "as", or $last for the most recent palette drop.
type Step struct {
	Kind   StepKind
	Line   int
	Column int

	Template domain.Template
	Target   string
	As       string
	Additive bool

	// Path is the pointer trail. The last point is where the pointer is
	// released; palette drops and drags need at least one point.
	Path []geometry.Pt
	// From is where a resize grabs the handle.
	From geometry.Pt

	Key      editor.Key
	Viewport domain.Viewport
	Zoom     float64
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}
