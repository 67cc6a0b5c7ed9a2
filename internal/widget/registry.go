/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package widget

// Registry of widget capabilities. The engine never looks at how a widget
// paints; it only needs to know default sizes and whether a type can own
// children or be dropped onto the bare canvas.

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"pagecanvas/internal/domain"
)

// Descriptor is the capability record for one widget type.
type Descriptor struct {
	Type        string      `yaml:"type"`
	DefaultSize domain.Size `yaml:"default_size"`
	// IsContainer marks types that can act as drop regions.
	IsContainer bool `yaml:"is_container"`
	// AcceptsChildren is false for containers that are temporarily inert.
	AcceptsChildren bool `yaml:"accepts_children"`
	// RequiredStructure, when set, must equal componentData.structure for the
	// element to behave as a container.
	RequiredStructure string `yaml:"required_structure,omitempty"`
	// CanvasDroppable types may be dropped from the palette onto bare canvas.
	CanvasDroppable bool `yaml:"canvas_droppable"`
}

// Registry maps type tags to descriptors. Unknown types resolve to a plain
// leaf descriptor with the default 200x50 size. Safe for concurrent reads.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Descriptor
}

// NewRegistry builds a registry from descriptors.
func NewRegistry(ds ...Descriptor) *Registry {
	r := &Registry{types: make(map[string]Descriptor, len(ds))}
	for _, d := range ds {
		r.Register(d)
	}
	return r
}

// DefaultRegistry returns the built-in widget set.
func DefaultRegistry() *Registry {
	leaf := func(t string, w, h float64) Descriptor {
		return Descriptor{Type: t, DefaultSize: domain.Size{Width: w, Height: h}}
	}
	return NewRegistry(
		Descriptor{Type: domain.TypeSection, DefaultSize: domain.Size{Width: 960, Height: 400}, IsContainer: true, AcceptsChildren: true, RequiredStructure: domain.StructureStandard, CanvasDroppable: true},
		Descriptor{Type: domain.TypePopup, DefaultSize: domain.Size{Width: 600, Height: 400}, IsContainer: true, AcceptsChildren: true, CanvasDroppable: true},
		Descriptor{Type: domain.TypeModal, DefaultSize: domain.Size{Width: 500, Height: 300}, CanvasDroppable: true},
		leaf("button", 200, 50),
		leaf("headline", 400, 60),
		leaf("paragraph", 400, 120),
		leaf("text", 300, 40),
		leaf("image", 300, 200),
		leaf("gallery", 600, 400),
		leaf("video", 480, 270),
		leaf("box", 200, 200),
		leaf("shape", 100, 100),
		leaf("form", 400, 300),
		leaf("list", 300, 200),
		leaf("countdown", 400, 80),
	)
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d Descriptor) {
	t := strings.TrimSpace(d.Type)
	if t == "" {
		return
	}
	d.Type = t
	r.mu.Lock()
	r.types[t] = d
	r.mu.Unlock()
}

// Lookup returns the descriptor for a type and whether it was registered.
func (r *Registry) Lookup(typ string) (Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.types[typ]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{Type: typ, DefaultSize: domain.Size{Width: domain.DefaultWidth, Height: domain.DefaultHeight}}, false
	}
	return d, true
}

// Types lists registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsContainer reports whether n currently behaves as a drop container: its
// type must be a container kind that accepts children, and a required
// structure (sections) must match.
func (r *Registry) IsContainer(n domain.Node) bool {
	d, _ := r.Lookup(n.Type)
	if !d.IsContainer || !d.AcceptsChildren {
		return false
	}
	if d.RequiredStructure != "" && n.Structure() != d.RequiredStructure {
		return false
	}
	return true
}

// IsContainerKind reports whether the type is a container kind regardless
// of its structure flag.
func (r *Registry) IsContainerKind(typ string) bool {
	d, _ := r.Lookup(typ)
	return d.IsContainer
}

// CanvasDroppable reports whether a palette item of this type may land on the
// bare canvas.
func (r *Registry) CanvasDroppable(typ string) bool {
	d, _ := r.Lookup(typ)
	return d.CanvasDroppable
}

// DefaultSize returns the default footprint for a type.
func (r *Registry) DefaultSize(typ string) domain.Size {
	d, _ := r.Lookup(typ)
	return d.DefaultSize
}

type registryFile struct {
	Widgets []Descriptor `yaml:"widgets"`
}

// LoadRegistry reads descriptors from a YAML file and layers them over the
// built-in set.
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read widget registry: %w", err)
	}
	return ParseRegistry(b)
}

// ParseRegistry layers YAML descriptors over the built-in set.
func ParseRegistry(b []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse widget registry: %w", err)
	}
	r := DefaultRegistry()
	for _, d := range f.Widgets {
		if strings.TrimSpace(d.Type) == "" {
			return nil, errors.New("widget registry entry without type")
		}
		r.Register(d)
	}
	return r, nil
}
