/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
	"testing"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/geometry"
)

func TestParseStepsAndHeader(t *testing.T) {
	input := `viewport: tablet
zoom: 150
grid: {size: 10, show: false}
steps:
  - palette: {type: section, componentData: {structure: standard}}
    at: [500, 900]
    as: hero
  - drag: $hero
    path: [[10, 10], [20, 20]]
  - key: shift+ArrowRight
  - resize: $hero
    from: [100, 100]
    to: [150, 120]
  - open_popup: p1
`
	s, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if s.Viewport != domain.Tablet || s.Zoom != 150 || s.Grid == nil || s.Grid.Size != 10 || s.Grid.Show {
		t.Fatalf("header = %+v grid=%+v", s, s.Grid)
	}
	if len(s.Steps) != 5 {
		t.Fatalf("want 5 steps, got %d", len(s.Steps))
	}
	pal := s.Steps[0]
	if pal.Kind != StepPalette || pal.Template.Type != domain.TypeSection || pal.As != "hero" || pal.Line != 5 {
		t.Fatalf("palette step = %+v", pal)
	}
	if pal.Template.ComponentData["structure"] != "standard" {
		t.Fatalf("componentData lost: %+v", pal.Template.ComponentData)
	}
	if d := s.Steps[1]; d.Kind != StepDrag || len(d.Path) != 2 || d.Path[1] != (geometry.Pt{X: 20, Y: 20}) {
		t.Fatalf("drag step = %+v", d)
	}
	if k := s.Steps[2].Key; k.Name != "ArrowRight" || !k.Shift || k.Ctrl {
		t.Fatalf("key = %+v", k)
	}
	if r := s.Steps[3]; r.Kind != StepResize || r.From != (geometry.Pt{X: 100, Y: 100}) || r.Path[0] != (geometry.Pt{X: 150, Y: 120}) {
		t.Fatalf("resize step = %+v", r)
	}
	if p := s.Steps[4]; p.Kind != StepOpenPopup || p.Target != "p1" {
		t.Fatalf("popup step = %+v", p)
	}
}

func TestParseReportsStepErrorsWithPosition(t *testing.T) {
	input := `steps:
  - palette: {type: button}
  - key: hyper+x
  - drag: a
    select: b
    at: [1, 2]
  - palette: {styles: {}}
    at: [1, 1]
  - select: ok
`
	s, errs := Parse(input)
	if len(errs) != 4 {
		t.Fatalf("want 4 errors, got %+v", errs)
	}
	wantLines := []int{2, 3, 4, 7}
	for i, e := range errs {
		if e.Line != wantLines[i] {
			t.Fatalf("error %d at line %d, want %d: %s", i, e.Line, wantLines[i], e.Message)
		}
	}
	if !strings.Contains(errs[0].Message, "drop point") {
		t.Fatalf("message = %q", errs[0].Message)
	}
	if len(s.Steps) != 1 || s.Steps[0].Kind != StepSelect {
		t.Fatalf("valid steps must survive: %+v", s.Steps)
	}
}

func TestParseBrokenYAML(t *testing.T) {
	_, errs := Parse("steps:\n  - key: [\n")
	if len(errs) != 1 {
		t.Fatalf("want one error, got %+v", errs)
	}
	if errs[0].Error() == "" {
		t.Fatalf("empty error text")
	}
}

func TestParseEmpty(t *testing.T) {
	s, errs := Parse("")
	if len(errs) != 0 || len(s.Steps) != 0 {
		t.Fatalf("empty input: %+v %+v", s, errs)
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("cmd+shift+z")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if !k.Meta || !k.Shift || k.Name != "z" {
		t.Fatalf("key = %+v", k)
	}
	if _, err := ParseKey("ctrl+"); err == nil {
		t.Fatalf("expected error for missing name")
	}
}
