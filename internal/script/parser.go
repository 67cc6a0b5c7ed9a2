/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/editor"
	"pagecanvas/internal/geometry"
	"pagecanvas/internal/widget"
)

type rawGrid struct {
	Size float64 `yaml:"size"`
	Show *bool   `yaml:"show"`
}

type rawScript struct {
	Viewport string      `yaml:"viewport"`
	Zoom     float64     `yaml:"zoom"`
	Grid     *rawGrid    `yaml:"grid"`
	Steps    []yaml.Node `yaml:"steps"`
}

type rawStep struct {
	Palette          map[string]any `yaml:"palette"`
	Drag             string         `yaml:"drag"`
	Resize           string         `yaml:"resize"`
	Key              string         `yaml:"key"`
	Select           string         `yaml:"select"`
	Viewport         string         `yaml:"viewport"`
	Zoom             float64        `yaml:"zoom"`
	OpenPopup        string         `yaml:"open_popup"`
	ClosePopup       string         `yaml:"close_popup"`
	ToggleLock       string         `yaml:"toggle_lock"`
	ToggleVisibility string         `yaml:"toggle_visibility"`

	At       []float64   `yaml:"at"`
	Path     [][]float64 `yaml:"path"`
	From     []float64   `yaml:"from"`
	To       []float64   `yaml:"to"`
	As       string      `yaml:"as"`
	Additive bool        `yaml:"additive"`
}

// Parse reads a gesture script. Problems are collected per step so a caller
// can report all of them at once; steps with errors are left out.
func Parse(input string) (Script, []Error) {
	var s Script
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(input), &root); err != nil {
		return s, []Error{yamlError(err)}
	}
	if len(root.Content) == 0 {
		return s, nil
	}
	var raw rawScript
	if err := root.Content[0].Decode(&raw); err != nil {
		return s, []Error{{Line: root.Content[0].Line, Column: root.Content[0].Column, Message: err.Error()}}
	}

	var errs []Error
	if raw.Viewport != "" {
		v, err := domain.ParseViewport(raw.Viewport)
		if err != nil {
			errs = append(errs, Error{Line: 1, Column: 1, Message: err.Error()})
		}
		s.Viewport = v
	}
	if raw.Zoom < 0 {
		errs = append(errs, Error{Line: 1, Column: 1, Message: "zoom must be positive"})
	}
	s.Zoom = raw.Zoom
	if raw.Grid != nil {
		g := &Grid{Size: raw.Grid.Size, Show: true}
		if raw.Grid.Show != nil {
			g.Show = *raw.Grid.Show
		}
		s.Grid = g
	}
	for i := range raw.Steps {
		n := &raw.Steps[i]
		st, err := parseStep(n)
		if err != nil {
			errs = append(errs, Error{Line: n.Line, Column: n.Column, Message: err.Error()})
			continue
		}
		s.Steps = append(s.Steps, st)
	}
	return s, errs
}

func parseStep(n *yaml.Node) (Step, error) {
	var r rawStep
	if err := n.Decode(&r); err != nil {
		return Step{}, err
	}
	st := Step{Line: n.Line, Column: n.Column, As: strings.TrimSpace(r.As), Additive: r.Additive}
	kinds := 0
	set := func(k StepKind) {
		kinds++
		st.Kind = k
	}
	if r.Palette != nil {
		set(StepPalette)
		b, err := json.Marshal(r.Palette)
		if err != nil {
			return Step{}, fmt.Errorf("palette: %w", err)
		}
		tpl, err := widget.ParseTemplate(b)
		if err != nil {
			return Step{}, err
		}
		st.Template = tpl
	}
	if r.Drag != "" {
		set(StepDrag)
		st.Target = r.Drag
	}
	if r.Resize != "" {
		set(StepResize)
		st.Target = r.Resize
	}
	if r.Key != "" {
		set(StepKey)
		k, err := ParseKey(r.Key)
		if err != nil {
			return Step{}, err
		}
		st.Key = k
	}
	if r.Select != "" {
		set(StepSelect)
		st.Target = r.Select
	}
	if r.Viewport != "" {
		set(StepViewport)
		v, err := domain.ParseViewport(r.Viewport)
		if err != nil {
			return Step{}, err
		}
		st.Viewport = v
	}
	if r.Zoom != 0 {
		set(StepZoom)
		if r.Zoom < 0 {
			return Step{}, fmt.Errorf("zoom must be positive")
		}
		st.Zoom = r.Zoom
	}
	for _, p := range []struct {
		id   string
		kind StepKind
	}{
		{r.OpenPopup, StepOpenPopup},
		{r.ClosePopup, StepClosePopup},
		{r.ToggleLock, StepToggleLock},
		{r.ToggleVisibility, StepToggleVisibility},
	} {
		if p.id != "" {
			set(p.kind)
			st.Target = p.id
		}
	}
	switch kinds {
	case 0:
		return Step{}, fmt.Errorf("step has no action")
	case 1:
	default:
		return Step{}, fmt.Errorf("step has %d actions, want one", kinds)
	}

	for _, p := range r.Path {
		pt, err := point(p)
		if err != nil {
			return Step{}, fmt.Errorf("path: %w", err)
		}
		st.Path = append(st.Path, pt)
	}
	for _, end := range [][]float64{r.At, r.To} {
		if end == nil {
			continue
		}
		pt, err := point(end)
		if err != nil {
			return Step{}, err
		}
		st.Path = append(st.Path, pt)
	}
	if r.From != nil {
		pt, err := point(r.From)
		if err != nil {
			return Step{}, fmt.Errorf("from: %w", err)
		}
		st.From = pt
	}
	switch st.Kind {
	case StepPalette, StepDrag:
		if len(st.Path) == 0 {
			return Step{}, fmt.Errorf("%s needs a drop point (at or path)", st.Kind)
		}
	case StepResize:
		if r.From == nil || len(st.Path) == 0 {
			return Step{}, fmt.Errorf("resize needs from and to")
		}
	}
	return st, nil
}

func point(v []float64) (geometry.Pt, error) {
	if len(v) != 2 {
		return geometry.Pt{}, fmt.Errorf("point needs two coordinates, got %d", len(v))
	}
	return geometry.Pt{X: v[0], Y: v[1]}, nil
}

// ParseKey reads a chord such as "ArrowLeft", "shift+ArrowUp" or "ctrl+z".
func ParseKey(s string) (editor.Key, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	var k editor.Key
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if p == "" {
				return editor.Key{}, fmt.Errorf("key %q has no name", s)
			}
			k.Name = p
			break
		}
		switch strings.ToLower(p) {
		case "shift":
			k.Shift = true
		case "ctrl", "control":
			k.Ctrl = true
		case "meta", "cmd":
			k.Meta = true
		default:
			return editor.Key{}, fmt.Errorf("key %q: unknown modifier %q", s, p)
		}
	}
	return k, nil
}

// yamlError extracts the line from a yaml.v3 error message when present.
func yamlError(err error) Error {
	e := Error{Line: 1, Column: 1, Message: err.Error()}
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		e.Line = line
	}
	return e
}
