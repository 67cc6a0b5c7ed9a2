/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// SnapThreshold is the distance in canvas pixels within which a point is
// pulled onto a snap candidate. Guidelines use the same value.
const SnapThreshold = 15.0

// GridDisabled is the grid size that turns grid rounding off.
var GridDisabled = math.Inf(1)

// GridEnabled reports whether gridSize describes a usable grid.
func GridEnabled(gridSize float64) bool {
	return gridSize > 0 && !math.IsInf(gridSize, 0) && !math.IsNaN(gridSize)
}

// SnapToGrid rounds p to the nearest grid multiple, then snaps each axis
// independently onto any candidate closer than SnapThreshold to the pointer,
// overriding the grid value. Candidates are evaluated in slice order and the
// last match on an axis wins, so callers must pass a stable order.
func SnapToGrid(p Pt, gridSize float64, snapPoints []Pt) Pt {
	out := p
	if GridEnabled(gridSize) {
		out.X = math.Round(p.X/gridSize) * gridSize
		out.Y = math.Round(p.Y/gridSize) * gridSize
	}
	for _, c := range snapPoints {
		if math.Abs(c.X-p.X) < SnapThreshold {
			out.X = c.X
		}
		if math.Abs(c.Y-p.Y) < SnapThreshold {
			out.Y = c.Y
		}
	}
	return Clamp(out)
}
