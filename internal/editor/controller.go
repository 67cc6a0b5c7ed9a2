/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the drag and interaction controller. It owns the
// transient editing state and turns pointer, keyboard and command input into
// tree mutations, notices, hook calls and undo snapshots.
//
// A Controller is not safe for concurrent use. Hosts with asynchronous event
// delivery drive it through a Session.
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pagecanvas/internal/domain"
	"pagecanvas/internal/drop"
	"pagecanvas/internal/geometry"
	applog "pagecanvas/internal/log"
	"pagecanvas/internal/notify"
	"pagecanvas/internal/resize"
	"pagecanvas/internal/snap"
	"pagecanvas/internal/tree"
	"pagecanvas/internal/undo"
)

// View is the inbound view configuration.
type View struct {
	Viewport domain.Viewport
	Zoom     float64 // percent
	GridSize float64
	ShowGrid bool
	// Container is the canvas element's screen rectangle; nil while the
	// canvas is not mounted.
	Container *geometry.Rect
	Scroll    geometry.Pt
}

// DefaultView is desktop at 100% with a 20px grid shown.
func DefaultView() View {
	return View{Viewport: domain.Desktop, Zoom: 100, GridSize: 20, ShowGrid: true, Container: &geometry.Rect{}}
}

// ChildRef names a child through its parent.
type ChildRef struct {
	ParentID string
	ChildID  string
}

// ContextMenu is an open context menu on an element or child.
type ContextMenu struct {
	ElementID string
	ChildID   string
	At        geometry.Pt
}

// State is a read-only copy of the transient editing state.
type State struct {
	Selected      []string
	SelectedChild *ChildRef
	VisiblePopups []string
	Menu          *ContextMenu
	Preview       *geometry.Rect
	Guides        []snap.GuideLine
	Dragging      bool
	Resizing      bool
	Hover         drop.Target
}

// Controller wires the tree, the drop resolver, the resize overlay, undo
// history, notices and hooks together.
type Controller struct {
	tree    *tree.Tree
	drops   *drop.Resolver
	sizer   resize.Overlay
	hooks   Hooks
	bus     *notify.Bus
	history *undo.Manager
	now     func() time.Time
	log     *slog.Logger

	pageID string
	view   View

	selected      []string
	selectedChild *ChildRef
	visiblePopups []string
	menu          *ContextMenu
	preview       *geometry.Rect
	guides        []snap.GuideLine
	hover         drop.Target

	// resized is set once the current resize gesture has written to the tree.
	resized bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithHooks installs the outbound hooks.
func WithHooks(h Hooks) Option { return func(c *Controller) { c.hooks = h } }

// WithBus publishes notices on b.
func WithBus(b *notify.Bus) Option { return func(c *Controller) { c.bus = b } }

// WithHistory shares an undo manager, e.g. across pages.
func WithHistory(m *undo.Manager) Option { return func(c *Controller) { c.history = m } }

// WithView sets the initial view configuration.
func WithView(v View) Option { return func(c *Controller) { c.view = v } }

// WithPageID keys undo history and logs.
func WithPageID(id string) Option { return func(c *Controller) { c.pageID = id } }

// WithClock sets the clock used for undo timestamps.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// New creates a controller for t.
func New(t *tree.Tree, opts ...Option) *Controller {
	c := &Controller{
		tree:  t,
		drops: drop.NewResolver(t),
		hooks: NopHooks{},
		now:   time.Now,
		view:  DefaultView(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.hooks == nil {
		c.hooks = NopHooks{}
	}
	if c.bus == nil {
		c.bus = notify.NewBus(32)
	}
	if c.history == nil {
		c.history = undo.NewManager(undo.Config{
			MaxPerPage:  200,
			MinInterval: 500 * time.Millisecond,
			Coalesce:    map[string]bool{"nudge": true},
		})
	}
	if c.pageID == "" {
		c.pageID = "page"
	}
	c.log = applog.WithPage(applog.WithComponent("editor"), c.pageID)
	c.sizer.OnResize = c.onResize
	return c
}

func (c *Controller) Tree() *tree.Tree { return c.tree }
func (c *Controller) Bus() *notify.Bus { return c.bus }
func (c *Controller) View() View { return c.view }
func (c *Controller) PageID() string { return c.pageID }
func (c *Controller) Dragging() bool { return c.drops.Active() }
func (c *Controller) Resizing() bool { return c.sizer.Active() }

// SetView replaces the view configuration. A viewport switch drops the
// live preview since it was computed in the old layout.
func (c *Controller) SetView(v View) {
	if v.Viewport == "" {
		v.Viewport = domain.Desktop
	}
	if v.Viewport != c.view.Viewport {
		c.preview, c.guides = nil, nil
	}
	c.view = v
}

// SetViewport switches the active viewport.
func (c *Controller) SetViewport(v domain.Viewport) {
	nv := c.view
	nv.Viewport = v
	c.SetView(nv)
}

// SetZoom sets the zoom percentage.
func (c *Controller) SetZoom(z float64) { c.view.Zoom = z }

// SetGrid sets grid size and visibility. A hidden grid disables rounding.
func (c *Controller) SetGrid(size float64, show bool) {
	c.view.GridSize, c.view.ShowGrid = size, show
}

// SetContainer records the canvas screen rectangle; nil means unmounted.
func (c *Controller) SetContainer(r *geometry.Rect) { c.view.Container = r }

// SetScroll records the canvas scroll offset.
func (c *Controller) SetScroll(p geometry.Pt) { c.view.Scroll = p }

// State returns a copy of the transient state.
func (c *Controller) State() State {
	s := State{
		Selected:      slices.Clone(c.selected),
		VisiblePopups: slices.Clone(c.visiblePopups),
		Guides:        slices.Clone(c.guides),
		Dragging:      c.drops.Active(),
		Resizing:      c.sizer.Active(),
		Hover:         c.hover,
	}
	if s.Selected == nil {
		s.Selected = []string{}
	}
	if s.VisiblePopups == nil {
		s.VisiblePopups = []string{}
	}
	if c.selectedChild != nil {
		cr := *c.selectedChild
		s.SelectedChild = &cr
	}
	if c.menu != nil {
		m := *c.menu
		s.Menu = &m
	}
	if c.preview != nil {
		r := *c.preview
		s.Preview = &r
	}
	return s
}

func (c *Controller) gridSize() float64 {
	if !c.view.ShowGrid {
		return geometry.GridDisabled
	}
	return c.view.GridSize
}

func (c *Controller) env() drop.Env {
	open := make(map[string]bool, len(c.visiblePopups))
	for _, id := range c.visiblePopups {
		open[id] = true
	}
	return drop.Env{Viewport: c.view.Viewport, OpenPopups: open}
}

func (c *Controller) canvasPoint(px, py float64) (geometry.Pt, error) {
	return geometry.PointerToCanvasSpace(geometry.Pt{X: px, Y: py}, c.view.Container, c.view.Scroll, c.view.Zoom)
}

// fail reports err as a notice and returns it.
func (c *Controller) fail(op string, err error) error {
	if isRejection(err) {
		c.log.Debug("operation rejected", slog.String("op", op), slog.Any("err", err))
	} else {
		c.log.Warn("operation failed", slog.String("op", op), slog.Any("err", err))
	}
	c.bus.Err(err)
	return err
}

// mutate runs fn as one undoable step. The pre-change document is captured
// first and only recorded when fn succeeds.
func (c *Controller) mutate(label string, fn func() error) error {
	before, err := json.Marshal(c.tree.Document())
	if err != nil {
		return fmt.Errorf("%s: snapshot: %w", label, err)
	}
	if err := fn(); err != nil {
		return err
	}
	c.history.PushSnapshot(undo.Snapshot{PageID: c.pageID, Label: label, Blob: before, TS: c.now()})
	c.prune()
	c.documentChanged()
	return nil
}

func (c *Controller) documentChanged() {
	obs, ok := c.hooks.(DocumentObserver)
	if !ok {
		return
	}
	b, err := json.Marshal(c.tree.Document())
	if err != nil {
		c.log.Warn("serialize document", slog.Any("err", err))
		return
	}
	obs.OnDocumentChanged(b)
}

// Snapshot returns the serialized page, or nil when it cannot be encoded.
func (c *Controller) Snapshot() []byte {
	b, err := json.Marshal(c.tree.Document())
	if err != nil {
		return nil
	}
	return b
}

// prune drops every transient reference to ids that no longer exist.
func (c *Controller) prune() {
	keep := func(id string) bool { return c.tree.Exists(id) }
	c.selected = slices.DeleteFunc(c.selected, func(id string) bool {
		_, ok := c.tree.Element(id)
		return !ok
	})
	c.visiblePopups = slices.DeleteFunc(c.visiblePopups, func(id string) bool {
		e, ok := c.tree.Element(id)
		return !ok || e.Type != domain.TypePopup
	})
	if c.selectedChild != nil {
		if _, ok := c.tree.Child(c.selectedChild.ParentID, c.selectedChild.ChildID); !ok {
			c.selectedChild = nil
		}
	}
	if c.menu != nil {
		if !keep(c.menu.ElementID) || (c.menu.ChildID != "" && !keep(c.menu.ChildID)) {
			c.menu = nil
		}
	}
}

// resetTransient clears every gesture in flight. Selection survives.
func (c *Controller) resetTransient() {
	c.drops.Cancel()
	c.sizer.End()
	c.resized = false
	c.preview, c.guides = nil, nil
	c.hover = drop.Target{}
}
