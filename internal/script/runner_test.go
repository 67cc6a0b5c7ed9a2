/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"errors"
	"testing"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	"pagecanvas/internal/tree"
)

func newEditor() *editor.Controller {
	return editor.New(tree.New(domain.NewPage(1200), nil))
}

func mustParse(t *testing.T, input string) Script {
	t.Helper()
	s, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("parse: %+v", errs)
	}
	return s
}

func TestRunBuildsPage(t *testing.T) {
	c := newEditor()
	s := mustParse(t, `grid: {size: 20, show: true}
steps:
  - palette: {type: section, componentData: {structure: standard}}
    at: [500, 900]
    as: hero
  - palette: {type: button}
    at: [205, 340]
    as: cta
`)
	rep, err := Run(context.Background(), c, s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Failed != 0 {
		t.Fatalf("failed steps: %+v", rep.Results)
	}
	hero, ok := c.Tree().Element(rep.Results[0].ID)
	if !ok || hero.Position.At(domain.Desktop).Y != 10 {
		t.Fatalf("section missing or misplaced: %+v", hero)
	}
	if len(hero.Children) != 1 || hero.Children[0].ID != rep.Results[1].ID {
		t.Fatalf("button not inside section: %+v", hero.Children)
	}
	if p := hero.Children[0].Position.At(domain.Desktop); p.X != 200 || p.Y != 330 {
		t.Fatalf("button at %+v, want (200,330)", p)
	}
}

func TestRunPromoteThenUndo(t *testing.T) {
	c := newEditor()
	s := mustParse(t, `steps:
  - palette: {type: section}
    at: [500, 900]
    as: hero
  - palette: {type: button}
    at: [205, 340]
    as: cta
  - drag: $cta
    path: [[400, 600], [600, 700]]
  - key: ctrl+z
`)
	rep, err := Run(context.Background(), c, s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Failed != 0 {
		t.Fatalf("failed steps: %+v", rep.Results)
	}
	cta := rep.Results[1].ID
	if _, top := c.Tree().Element(cta); top {
		t.Fatalf("undo must put the button back into the section")
	}
	if _, ok := c.Tree().Child(rep.Results[0].ID, cta); !ok {
		t.Fatalf("button not restored as child")
	}
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	c := newEditor()
	s := mustParse(t, `steps:
  - drag: $ghost
    at: [1, 1]
  - palette: {type: button}
    at: [50, 50]
  - palette: {type: section}
    at: [10, 10]
`)
	rep, err := Run(context.Background(), c, s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Failed != 2 {
		t.Fatalf("want 2 failures, got %+v", rep.Results)
	}
	if !errors.Is(rep.Results[0].Err, ErrUnboundName) {
		t.Fatalf("want ErrUnboundName, got %v", rep.Results[0].Err)
	}
	if !errors.Is(rep.Results[1].Err, domain.ErrInvalidDropTarget) {
		t.Fatalf("leaf on canvas: %v", rep.Results[1].Err)
	}
	if rep.Results[2].Err != nil || len(c.Tree().Document().Elements) != 1 {
		t.Fatalf("section drop should succeed: %+v", rep.Results[2])
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	c := newEditor()
	s := mustParse(t, `steps:
  - viewport: mobile
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, c, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if c.View().Viewport != domain.Desktop {
		t.Fatalf("no step should have run")
	}
}
