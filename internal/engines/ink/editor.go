/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ink is a small vector sketching engine with named tools and named
// styles. Shapes are kept per page and rendered with gg.
package ink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gogpu/gg/text"

	"github.com/cwl23cwl/write-on-app-sub001/internal/history"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
)

// Tool ids understood by the editor.
var toolIDs = map[string]bool{
	"select": true, "hand": true, "draw": true, "eraser": true,
	"text": true, "highlight": true, "geo": true, "laser": true,
}

// Palette maps color names to hex values.
var Palette = map[string]string{
	"black":        "#1d1d1d",
	"grey":         "#9fa8b2",
	"light-violet": "#e085f4",
	"violet":       "#ae3ec9",
	"blue":         "#4465e9",
	"light-blue":   "#4ba1f1",
	"yellow":       "#f1ac4b",
	"orange":       "#e16919",
	"green":        "#099268",
	"light-green":  "#4cb05e",
	"light-red":    "#f87777",
	"red":          "#e03131",
	"white":        "#ffffff",
}

// StrokeWidths are the pen widths in page units per size name.
var StrokeWidths = map[string]float64{"s": 2, "m": 3.5, "l": 5, "xl": 10}

var styleValues = map[string]map[string]bool{
	"size":  {"s": true, "m": true, "l": true, "xl": true},
	"font":  {"draw": true, "sans": true, "serif": true, "mono": true},
	"fill":  {"none": true, "semi": true, "solid": true},
	"align": {"start": true, "middle": true, "end": true},
}

// Point is a page coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one element on a page.
type Shape struct {
	ID      int     `json:"id"`
	Kind    string  `json:"kind"` // draw, highlight, geo, text
	Points  []Point `json:"points,omitempty"`
	Text    string  `json:"text,omitempty"`
	Color   string  `json:"color"`
	Size    string  `json:"size"`
	Font    string  `json:"font,omitempty"`
	Fill    string  `json:"fill,omitempty"`
	Align   string  `json:"align,omitempty"`
	Opacity float64 `json:"opacity"`
}

type page struct {
	Shapes []Shape `json:"shapes"`
}

// Options configure an Editor.
type Options struct {
	Pages   int
	History history.Config
	// FontPath is a TTF/OTF file for text shapes. The Go fonts are used
	// without one.
	FontPath string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Editor is the engine instance. Listeners are called after the editor lock
// is released, on the goroutine that caused the change.
type Editor struct {
	mu sync.Mutex

	tool      string
	next      map[string]string
	pages     []*page
	current   int
	selection map[int]bool
	camX      float64
	camY      float64
	camZ      float64
	nextID    int
	active    *Shape

	hist      *history.Manager
	fontPath  string
	fontsOnce sync.Once
	fonts     map[string]*text.FontSource
	now       func() time.Time
	log       *slog.Logger

	listeners map[int]func(string)
	lorder    []int
	lnext     int
}

// New creates an editor with the given number of blank pages (at least one).
func New(opts Options) *Editor {
	n := max(1, opts.Pages)
	e := &Editor{
		tool:      "select",
		next:      map[string]string{"color": "black", "size": "m", "font": "draw", "fill": "none", "align": "start", "opacity": "1"},
		selection: map[int]bool{},
		camZ:      1,
		hist:      history.NewManager(opts.History),
		fontPath:  opts.FontPath,
		now:       opts.Now,
		log:       opts.Logger,
		listeners: map[int]func(string){},
	}
	for i := 0; i < n; i++ {
		e.pages = append(e.pages, &page{})
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = applog.WithComponent("ink")
	}
	return e
}

// Listen registers fn for change notifications.
func (e *Editor) Listen(fn func(event string)) (unlisten func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lnext++
	id := e.lnext
	e.listeners[id] = fn
	e.lorder = append(e.lorder, id)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
		for i, v := range e.lorder {
			if v == id {
				e.lorder = append(e.lorder[:i:i], e.lorder[i+1:]...)
				break
			}
		}
	}
}

// notify must be called without e.mu held.
func (e *Editor) notify(events ...string) {
	e.mu.Lock()
	fns := make([]func(string), 0, len(e.lorder))
	for _, id := range e.lorder {
		fns = append(fns, e.listeners[id])
	}
	e.mu.Unlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (e *Editor) SetCurrentTool(id string) error {
	if !toolIDs[id] {
		return fmt.Errorf("ink: unknown tool %q", id)
	}
	e.mu.Lock()
	if e.tool == id {
		e.mu.Unlock()
		return nil
	}
	e.tool = id
	e.active = nil
	e.mu.Unlock()
	e.notify("tool")
	return nil
}

func (e *Editor) CurrentToolID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

func validStyle(prop, value string) error {
	switch prop {
	case "color":
		if _, ok := Palette[value]; !ok {
			return fmt.Errorf("ink: unknown color %q", value)
		}
	case "opacity":
		o, err := strconv.ParseFloat(value, 64)
		if err != nil || o < 0 || o > 1 {
			return fmt.Errorf("ink: opacity %q out of range", value)
		}
	default:
		vals, ok := styleValues[prop]
		if !ok {
			return fmt.Errorf("ink: unknown style %q", prop)
		}
		if !vals[value] {
			return fmt.Errorf("ink: invalid %s %q", prop, value)
		}
	}
	return nil
}

func (e *Editor) SetStyleForNextShapes(prop, value string) error {
	if err := validStyle(prop, value); err != nil {
		return err
	}
	e.mu.Lock()
	e.next[prop] = value
	e.mu.Unlock()
	return nil
}

// SetStyleForSelectedShapes restyles the selection as one undo step.
func (e *Editor) SetStyleForSelectedShapes(prop, value string) error {
	if err := validStyle(prop, value); err != nil {
		return err
	}
	e.mu.Lock()
	if len(e.selection) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.recordLocked()
	pg := e.pages[e.current]
	for i := range pg.Shapes {
		s := &pg.Shapes[i]
		if !e.selection[s.ID] {
			continue
		}
		switch prop {
		case "color":
			s.Color = value
		case "size":
			s.Size = value
		case "font":
			s.Font = value
		case "fill":
			s.Fill = value
		case "align":
			s.Align = value
		case "opacity":
			s.Opacity, _ = strconv.ParseFloat(value, 64)
		}
	}
	e.mu.Unlock()
	e.notify("scene")
	return nil
}

func (e *Editor) StyleForNextShapes(prop string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next[prop]
}

func (e *Editor) Camera() (x, y, z float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camX, e.camY, e.camZ
}

func (e *Editor) SetCamera(x, y, z float64) error {
	if !(z > 0) {
		return fmt.Errorf("ink: camera zoom %v must be positive", z)
	}
	e.mu.Lock()
	if e.camX == x && e.camY == y && e.camZ == z {
		e.mu.Unlock()
		return nil
	}
	e.camX, e.camY, e.camZ = x, y, z
	e.mu.Unlock()
	e.notify("camera")
	return nil
}

func (e *Editor) CurrentPageIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Editor) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pages)
}

// SetCurrentPage switches pages and clears the selection.
func (e *Editor) SetCurrentPage(i int) error {
	e.mu.Lock()
	if i < 0 || i >= len(e.pages) {
		e.mu.Unlock()
		return fmt.Errorf("ink: page %d out of range", i)
	}
	changed := i != e.current
	e.current = i
	e.selection = map[int]bool{}
	e.active = nil
	e.mu.Unlock()
	if changed {
		e.notify("page", "selection")
	}
	return nil
}

// AddPage appends a blank page and returns its index.
func (e *Editor) AddPage() int {
	e.mu.Lock()
	e.pages = append(e.pages, &page{})
	n := len(e.pages) - 1
	e.mu.Unlock()
	e.notify("page")
	return n
}

// Shapes returns a copy of the current page's shapes.
func (e *Editor) Shapes() []Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Shape(nil), e.pages[e.current].Shapes...)
}

// Select replaces the selection.
func (e *Editor) Select(ids ...int) {
	e.mu.Lock()
	e.selection = map[int]bool{}
	for _, id := range ids {
		e.selection[id] = true
	}
	e.mu.Unlock()
	e.notify("selection")
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo(e.current)
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo(e.current)
}

func (e *Editor) Undo() error { return e.step(e.hist.Undo) }
func (e *Editor) Redo() error { return e.step(e.hist.Redo) }

func (e *Editor) step(op func(int, []byte) (history.Snapshot, bool)) error {
	e.mu.Lock()
	cur, err := json.Marshal(e.pages[e.current])
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("ink: encode page: %w", err)
	}
	snap, ok := op(e.current, cur)
	if !ok {
		e.mu.Unlock()
		return nil
	}
	var pg page
	if err := json.Unmarshal(snap.Blob, &pg); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("ink: decode page: %w", err)
	}
	e.pages[e.current] = &pg
	e.selection = map[int]bool{}
	e.active = nil
	e.mu.Unlock()
	e.notify("scene", "selection")
	return nil
}

// recordLocked pushes the current page for undo before an edit.
func (e *Editor) recordLocked() {
	blob, err := json.Marshal(e.pages[e.current])
	if err != nil {
		e.log.Warn("page snapshot failed", slog.Any("err", err))
		return
	}
	e.hist.Record(history.Snapshot{Page: e.current, Blob: blob, TS: e.now()})
}
