/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package sheet is a whiteboard engine driven by a flat app-state map, in the
// style of scene editors that expose "currentItem*" properties. Elements are
// rasterized with golang.org/x/image/vector onto a canvas whose attributes
// the engine sets itself.
package sheet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/history"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
)

// Tool types.
const (
	ToolSelection = "selection"
	ToolHand      = "hand"
	ToolFreedraw  = "freedraw"
	ToolEraser    = "eraser"
	ToolText      = "text"
	ToolRectangle = "rectangle"
	ToolLaser     = "laser"
)

var toolTypes = map[string]bool{
	ToolSelection: true, ToolHand: true, ToolFreedraw: true, ToolEraser: true,
	ToolText: true, ToolRectangle: true, ToolLaser: true,
}

// Font family ids.
const (
	FontHand  = 1
	FontSans  = 2
	FontMono  = 3
	FontSerif = 4
)

// Zoom bounds accepted by UpdateAppState.
const (
	MinZoom = 0.1
	MaxZoom = 30
)

// Point is a scene coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is one scene item.
type Element struct {
	ID              int     `json:"id"`
	Type            string  `json:"type"` // freedraw, rectangle, text
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Points          []Point `json:"points,omitempty"`
	Text            string  `json:"text,omitempty"`
	StrokeColor     string  `json:"strokeColor"`
	BackgroundColor string  `json:"backgroundColor"`
	FillStyle       string  `json:"fillStyle"`
	StrokeWidth     float64 `json:"strokeWidth"`
	FontFamily      int     `json:"fontFamily,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty"`
	Opacity         int     `json:"opacity"`
}

type scene struct {
	Elements []Element `json:"elements"`
	NextID   int       `json:"nextId"`
}

// Options configure a Sheet.
type Options struct {
	Pages   int
	History history.Config
	// OnCanvas is called whenever the engine writes its canvas attributes.
	// The hook may correct them in place before they take effect.
	OnCanvas func(c *Canvas)
	Now      func() time.Time
	Logger   *slog.Logger
}

// Sheet is the engine instance. Subscribers run after the lock is released.
type Sheet struct {
	mu sync.Mutex

	tool     string
	state    map[string]any
	pages    []*scene
	current  int
	selected map[int]bool
	active   *Element

	canvas   Canvas
	viewW    int
	viewH    int
	onCanvas func(c *Canvas)

	hist *history.Manager
	now  func() time.Time
	log  *slog.Logger

	subs  map[int]func()
	order []int
	next  int
}

// DefaultAppState returns the initial app state.
func DefaultAppState() map[string]any {
	return map[string]any{
		"currentItemStrokeColor":     "#1e1e1e",
		"currentItemBackgroundColor": "transparent",
		"currentItemFillStyle":       "hachure",
		"currentItemStrokeWidth":     2.0,
		"currentItemFontFamily":      float64(FontHand),
		"currentItemFontSize":        20.0,
		"currentItemTextAlign":       "left",
		"currentItemOpacity":         100.0,
		"viewBackgroundColor":        "#ffffff",
		"zoom":                       map[string]any{"value": 1.0},
		"scrollX":                    0.0,
		"scrollY":                    0.0,
	}
}

// New creates a sheet with the given number of blank pages (at least one).
func New(opts Options) *Sheet {
	s := &Sheet{
		tool:     ToolSelection,
		state:    DefaultAppState(),
		selected: map[int]bool{},
		onCanvas: opts.OnCanvas,
		hist:     history.NewManager(opts.History),
		now:      opts.Now,
		log:      opts.Logger,
		subs:     map[int]func(){},
	}
	for i := 0; i < max(1, opts.Pages); i++ {
		s.pages = append(s.pages, &scene{})
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = applog.WithComponent("sheet")
	}
	return s
}

// Subscribe registers fn for app-state and scene changes.
func (s *Sheet) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// emit must be called without s.mu held.
func (s *Sheet) emit() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Sheet) SetActiveTool(toolType string) error {
	if !toolTypes[toolType] {
		return fmt.Errorf("sheet: unknown tool type %q", toolType)
	}
	s.mu.Lock()
	if s.tool == toolType {
		s.mu.Unlock()
		return nil
	}
	s.tool = toolType
	s.active = nil
	s.mu.Unlock()
	s.emit()
	return nil
}

func (s *Sheet) ActiveTool() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// AppState returns a copy of the app state.
func (s *Sheet) AppState() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

func copyState(st map[string]any) map[string]any {
	out := make(map[string]any, len(st))
	for k, v := range st {
		if m, ok := v.(map[string]any); ok {
			c := make(map[string]any, len(m))
			for mk, mv := range m {
				c[mk] = mv
			}
			v = c
		}
		out[k] = v
	}
	return out
}

// UpdateAppState merges patch into the app state. The patch is validated as
// a whole; on error nothing changes. Subscribers run only if a value changed.
func (s *Sheet) UpdateAppState(patch map[string]any) error {
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		nv, err := normalize(k, v)
		if err != nil {
			return err
		}
		clean[k] = nv
	}
	s.mu.Lock()
	changed := false
	for k, v := range clean {
		if !sameValue(s.state[k], v) {
			s.state[k] = v
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.emit()
	}
	return nil
}

func normalize(key string, v any) (any, error) {
	switch key {
	case "currentItemStrokeColor", "viewBackgroundColor":
		c, ok := v.(string)
		if !ok || !validHex(c) {
			return nil, fmt.Errorf("sheet: %s: invalid color %v", key, v)
		}
		return strings.ToLower(c), nil
	case "currentItemBackgroundColor":
		c, ok := v.(string)
		if !ok || (c != "transparent" && !validHex(c)) {
			return nil, fmt.Errorf("sheet: %s: invalid color %v", key, v)
		}
		return strings.ToLower(c), nil
	case "currentItemFillStyle":
		if f, ok := v.(string); ok && (f == "hachure" || f == "cross-hatch" || f == "solid") {
			return f, nil
		}
		return nil, fmt.Errorf("sheet: %s: invalid fill style %v", key, v)
	case "currentItemTextAlign":
		if a, ok := v.(string); ok && (a == "left" || a == "center" || a == "right") {
			return a, nil
		}
		return nil, fmt.Errorf("sheet: %s: invalid alignment %v", key, v)
	case "currentItemFontFamily":
		n, ok := number(v)
		if !ok || n != math.Trunc(n) || n < FontHand || n > FontSerif {
			return nil, fmt.Errorf("sheet: %s: invalid font family %v", key, v)
		}
		return n, nil
	case "currentItemFontSize", "currentItemStrokeWidth":
		n, ok := number(v)
		if !ok || !(n > 0) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("sheet: %s: must be a positive number, got %v", key, v)
		}
		return n, nil
	case "currentItemOpacity":
		n, ok := number(v)
		if !ok || n < 0 || n > 100 {
			return nil, fmt.Errorf("sheet: %s: opacity %v out of range", key, v)
		}
		return n, nil
	case "scrollX", "scrollY":
		n, ok := number(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("sheet: %s: invalid scroll %v", key, v)
		}
		return n, nil
	case "zoom":
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sheet: zoom must be {value}, got %T", v)
		}
		z, ok := number(m["value"])
		if !ok || z < MinZoom || z > MaxZoom {
			return nil, fmt.Errorf("sheet: zoom value %v out of range", m["value"])
		}
		return map[string]any{"value": z}, nil
	}
	return nil, fmt.Errorf("sheet: unknown app state key %q", key)
}

func sameValue(a, b any) bool {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		return am["value"] == bm["value"]
	}
	return a == b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func validHex(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Page reports the current page index and the page count.
func (s *Sheet) Page() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, len(s.pages)
}

// SetPage switches pages and clears the selection.
func (s *Sheet) SetPage(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.pages) {
		s.mu.Unlock()
		return fmt.Errorf("sheet: page %d out of range", i)
	}
	changed := i != s.current
	s.current = i
	s.selected = map[int]bool{}
	s.active = nil
	s.mu.Unlock()
	if changed {
		s.emit()
	}
	return nil
}

// AddPage appends a blank page and returns its index.
func (s *Sheet) AddPage() int {
	s.mu.Lock()
	s.pages = append(s.pages, &scene{})
	n := len(s.pages) - 1
	s.mu.Unlock()
	s.emit()
	return n
}

// Elements returns a copy of the current page's elements.
func (s *Sheet) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Element(nil), s.pages[s.current].Elements...)
}

// Selected returns the selected element ids.
func (s *Sheet) Selected() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for _, e := range s.pages[s.current].Elements {
		if s.selected[e.ID] {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (s *Sheet) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo(s.current)
}

func (s *Sheet) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo(s.current)
}

func (s *Sheet) Undo() error { return s.step(s.hist.Undo) }
func (s *Sheet) Redo() error { return s.step(s.hist.Redo) }

func (s *Sheet) step(op func(int, []byte) (history.Snapshot, bool)) error {
	s.mu.Lock()
	cur, err := json.Marshal(s.pages[s.current])
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sheet: encode scene: %w", err)
	}
	snap, ok := op(s.current, cur)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	var sc scene
	if err := json.Unmarshal(snap.Blob, &sc); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sheet: decode scene: %w", err)
	}
	// ids stay unique across undo so a redone element never collides
	sc.NextID = max(sc.NextID, s.pages[s.current].NextID)
	s.pages[s.current] = &sc
	s.selected = map[int]bool{}
	s.active = nil
	s.mu.Unlock()
	s.emit()
	return nil
}

// recordLocked pushes the current scene for undo before an edit.
func (s *Sheet) recordLocked() {
	blob, err := json.Marshal(s.pages[s.current])
	if err != nil {
		s.log.Warn("scene snapshot failed", slog.Any("err", err))
		return
	}
	s.hist.Record(history.Snapshot{Page: s.current, Blob: blob, TS: s.now()})
}
