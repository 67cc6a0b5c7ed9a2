/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "strings"

// Key is a keyboard event. Meta counts as Ctrl.
type Key struct {
	Name  string
	Shift bool
	Ctrl  bool
	Meta  bool
}

// Nudge distances in canvas pixels.
const (
	NudgeStep      = 1
	NudgeShiftStep = 10
)

// HandleKey applies the editor shortcuts and reports whether k was one.
func (c *Controller) HandleKey(k Key) bool {
	mod := k.Ctrl || k.Meta
	name := k.Name
	if len(name) == 1 {
		name = strings.ToLower(name)
	}
	step := float64(NudgeStep)
	if k.Shift {
		step = NudgeShiftStep
	}
	switch {
	case name == "ArrowLeft":
		_ = c.Nudge(-step, 0)
	case name == "ArrowRight":
		_ = c.Nudge(step, 0)
	case name == "ArrowUp":
		_ = c.Nudge(0, -step)
	case name == "ArrowDown":
		_ = c.Nudge(0, step)
	case name == "Delete" || name == "Backspace":
		_ = c.Delete()
	case name == "Escape":
		c.Cancel()
		c.CloseContextMenu()
		c.ClearSelection()
	case mod && name == "a":
		c.SelectAll()
	case mod && name == "g":
		_ = c.Group()
	case mod && name == "z" && k.Shift:
		_ = c.Redo()
	case mod && name == "z":
		_ = c.Undo()
	case mod && name == "y":
		_ = c.Redo()
	default:
		return false
	}
	return true
}
