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
	"fmt"
	"log/slog"
	"strings"

	"pagecanvas/internal/drop"
	"pagecanvas/internal/editor"
	applog "pagecanvas/internal/log"
)

// ErrUnboundName is returned for a $name nobody bound with "as".
var ErrUnboundName = errors.New("unbound name")

// Result is the outcome of one step. Err holds editor rejections too; they
// do not stop the run.
type Result struct {
	Index int
	Line  int
	Kind  StepKind
	ID    string
	Err   error
}

// Report summarises a run.
type Report struct {
	Results []Result
	Failed  int
}

// Run replays s against c in order. It stops early only when ctx is done.
func Run(ctx context.Context, c *editor.Controller, s Script) (Report, error) {
	l := applog.WithOperation(applog.WithComponent("script"), "run")
	if s.Viewport != "" {
		c.SetViewport(s.Viewport)
	}
	if s.Zoom > 0 {
		c.SetZoom(s.Zoom)
	}
	if s.Grid != nil {
		c.SetGrid(s.Grid.Size, s.Grid.Show)
	}
	r := &runner{c: c, names: map[string]string{}}
	var rep Report
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		id, err := r.step(st)
		if err != nil {
			rep.Failed++
			l.Debug("step failed", slog.Int("line", st.Line), slog.String("kind", st.Kind.String()), slog.Any("err", err))
		}
		rep.Results = append(rep.Results, Result{Index: i, Line: st.Line, Kind: st.Kind, ID: id, Err: err})
	}
	l.Info("script replayed", slog.Int("steps", len(s.Steps)), slog.Int("failed", rep.Failed))
	return rep, nil
}

type runner struct {
	c     *editor.Controller
	names map[string]string
	last  string
}

func (r *runner) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "$") {
		return ref, nil
	}
	name := strings.TrimPrefix(ref, "$")
	if name == "last" && r.last != "" {
		return r.last, nil
	}
	if id, ok := r.names[name]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%s: %w", ref, ErrUnboundName)
}

// locate finds the parent of id; empty for top-level elements.
func (r *runner) locate(id string) (parentID string, ok bool) {
	t := r.c.Tree()
	if _, found := t.Element(id); found {
		return "", true
	}
	return t.ParentOf(id)
}

func (r *runner) step(st Step) (string, error) {
	switch st.Kind {
	case StepPalette:
		if err := r.c.StartPaletteDrag(st.Template); err != nil {
			return "", err
		}
		if err := r.release(st); err != nil {
			return "", err
		}
		id := r.selectedID()
		r.last = id
		if st.As != "" {
			r.names[st.As] = id
		}
		return id, nil
	case StepDrag:
		id, err := r.resolve(st.Target)
		if err != nil {
			return "", err
		}
		parent, ok := r.locate(id)
		p := drop.Payload{Kind: drop.ExistingTopLevel, ElementID: id}
		if ok && parent != "" {
			p = drop.Payload{Kind: drop.ExistingChild, ParentID: parent, ChildID: id}
		}
		if err := r.c.StartDrag(p); err != nil {
			return id, err
		}
		return id, r.release(st)
	case StepResize:
		id, err := r.resolve(st.Target)
		if err != nil {
			return "", err
		}
		parent, _ := r.locate(id)
		elemID, childID := id, ""
		if parent != "" {
			elemID, childID = parent, id
		}
		if err := r.c.StartResize(elemID, childID, st.From.X, st.From.Y); err != nil {
			return id, err
		}
		end := st.Path[len(st.Path)-1]
		for _, p := range st.Path {
			r.c.ResizeMove(p.X, p.Y)
		}
		return id, r.c.PointerUp(end.X, end.Y)
	case StepKey:
		if !r.c.HandleKey(st.Key) {
			return "", fmt.Errorf("key %q is not a shortcut", st.Key.Name)
		}
		return "", nil
	case StepSelect:
		id, err := r.resolve(st.Target)
		if err != nil {
			return "", err
		}
		if parent, ok := r.locate(id); ok && parent != "" {
			return id, r.c.SelectChild(parent, id)
		}
		return id, r.c.Select(id, st.Additive)
	case StepViewport:
		r.c.SetViewport(st.Viewport)
		return "", nil
	case StepZoom:
		r.c.SetZoom(st.Zoom)
		return "", nil
	case StepOpenPopup, StepClosePopup, StepToggleLock, StepToggleVisibility:
		id, err := r.resolve(st.Target)
		if err != nil {
			return "", err
		}
		return id, r.toggle(st.Kind, id)
	}
	return "", fmt.Errorf("unsupported step %s", st.Kind)
}

func (r *runner) toggle(k StepKind, id string) error {
	switch k {
	case StepOpenPopup:
		return r.c.OpenPopup(id)
	case StepClosePopup:
		r.c.ClosePopup(id)
		return nil
	}
	elemID, childID := id, ""
	if parent, ok := r.locate(id); ok && parent != "" {
		elemID, childID = parent, id
	}
	if k == StepToggleLock {
		return r.c.ToggleLock(elemID, childID)
	}
	return r.c.ToggleVisibility(elemID, childID)
}

// release walks the pointer along the path and lets go at its last point.
func (r *runner) release(st Step) error {
	for _, p := range st.Path {
		if err := r.c.PointerMove(p.X, p.Y); err != nil {
			r.c.Cancel()
			return err
		}
	}
	end := st.Path[len(st.Path)-1]
	return r.c.PointerUp(end.X, end.Y)
}

func (r *runner) selectedID() string {
	s := r.c.State()
	if s.SelectedChild != nil {
		return s.SelectedChild.ChildID
	}
	if len(s.Selected) > 0 {
		return s.Selected[len(s.Selected)-1]
	}
	return ""
}
