/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"errors"
	"testing"
)

type fakeInk struct {
	tool      string
	next      map[string]string
	selected  map[string]string
	x, y, z   float64
	undoable  bool
	undos     int
	listeners []func(string)
	panicOn   string
	failOn    string
}

func newFakeInk() *fakeInk {
	return &fakeInk{
		tool:     "select",
		next:     map[string]string{"color": "black", "size": "m", "font": "draw", "fill": "none", "align": "start", "opacity": "1"},
		selected: map[string]string{},
		z:        1,
	}
}

func (f *fakeInk) emit(ev string) {
	for _, fn := range f.listeners {
		fn(ev)
	}
}

func (f *fakeInk) SetCurrentTool(id string) error {
	if f.panicOn == "tool" {
		panic("tool exploded")
	}
	if f.failOn == "tool" {
		return errors.New("no such tool")
	}
	f.tool = id
	f.emit("tool")
	return nil
}
func (f *fakeInk) CurrentToolID() string { return f.tool }
func (f *fakeInk) SetStyleForNextShapes(prop, value string) error {
	f.next[prop] = value
	return nil
}
func (f *fakeInk) SetStyleForSelectedShapes(prop, value string) error {
	f.selected[prop] = value
	f.emit("selection")
	return nil
}
func (f *fakeInk) StyleForNextShapes(prop string) string { return f.next[prop] }
func (f *fakeInk) Camera() (x, y, z float64)             { return f.x, f.y, f.z }
func (f *fakeInk) SetCamera(x, y, z float64) error {
	f.x, f.y, f.z = x, y, z
	f.emit("camera")
	return nil
}
func (f *fakeInk) Undo() error           { f.undos++; return nil }
func (f *fakeInk) Redo() error           { return nil }
func (f *fakeInk) CanUndo() bool         { return f.undoable }
func (f *fakeInk) CanRedo() bool         { return false }
func (f *fakeInk) CurrentPageIndex() int { return 0 }
func (f *fakeInk) PageCount() int        { return 3 }
func (f *fakeInk) Listen(fn func(string)) func() {
	f.listeners = append(f.listeners, fn)
	return func() { f.listeners = nil }
}

type fakeSheet struct {
	tool  string
	state map[string]any
	subs  []func()
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{tool: "selection", state: map[string]any{
		"currentItemStrokeColor":     "#1E1E1E",
		"currentItemBackgroundColor": "transparent",
		"currentItemFontFamily":      float64(1),
		"currentItemFontSize":        float64(20),
		"currentItemTextAlign":       "left",
		"currentItemOpacity":         float64(100),
		"zoom":                       map[string]any{"value": 1.0},
	}}
}

func (f *fakeSheet) notify() {
	for _, fn := range f.subs {
		fn()
	}
}
func (f *fakeSheet) SetActiveTool(t string) error { f.tool = t; f.notify(); return nil }
func (f *fakeSheet) ActiveTool() string           { return f.tool }
func (f *fakeSheet) UpdateAppState(p map[string]any) error {
	for k, v := range p {
		f.state[k] = v
	}
	f.notify()
	return nil
}
func (f *fakeSheet) AppState() map[string]any { return f.state }
func (f *fakeSheet) Undo() error              { return nil }
func (f *fakeSheet) Redo() error              { return nil }
func (f *fakeSheet) CanUndo() bool            { return false }
func (f *fakeSheet) CanRedo() bool            { return false }
func (f *fakeSheet) Page() (int, int)         { return 1, 2 }
func (f *fakeSheet) Subscribe(fn func()) func() {
	f.subs = append(f.subs, fn)
	return func() { f.subs = nil }
}

func newAdapter(t *testing.T, k Kind) *Adapter {
	t.Helper()
	a, err := NewAdapter(k, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a
}

func countChanges(a *Adapter, kind ChangeKind) *int {
	n := new(int)
	a.Subscribe(func(c Change) {
		if c.Kind == kind {
			*n++
		}
	})
	return n
}

func TestToolQueuedUntilAttach(t *testing.T) {
	a := newAdapter(t, KindInk)
	a.SetTool(ToolHand)
	a.SetTool(ToolDraw)
	if a.Ready() || a.Tool() != ToolDraw {
		t.Fatalf("queued tool = %q ready=%v", a.Tool(), a.Ready())
	}
	ink := newFakeInk()
	if err := a.Attach(Mount{Kind: KindInk, Ink: ink}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if ink.tool != "draw" || a.Tool() != ToolDraw {
		t.Fatalf("queued tool not flushed: engine %q neutral %q", ink.tool, a.Tool())
	}
}

func TestToolEchoDoesNotLoop(t *testing.T) {
	a := newAdapter(t, KindInk)
	ink := newFakeInk()
	_ = a.Attach(Mount{Kind: KindInk, Ink: ink})
	n := countChanges(a, ChangeTool)

	a.SetTool(ToolEraser)
	a.SetTool(ToolEraser)
	if *n != 1 {
		t.Fatalf("tool changes = %d, want 1", *n)
	}

	ink.tool = "laser"
	ink.emit("tool")
	if a.Tool() != ToolNone || *n != 2 {
		t.Fatalf("engine tool change: tool %q changes %d", a.Tool(), *n)
	}
	ink.emit("tool")
	if *n != 2 {
		t.Fatalf("repeated engine event propagated")
	}
}

func TestSheetHighlightSurvivesEcho(t *testing.T) {
	a := newAdapter(t, KindSheet)
	sh := newFakeSheet()
	_ = a.Attach(Mount{Kind: KindSheet, Sheet: sh})
	a.SetTool(ToolHighlight)
	if sh.tool != "freedraw" {
		t.Fatalf("native tool = %q", sh.tool)
	}
	if a.Tool() != ToolHighlight {
		t.Fatalf("echo rewrote tool to %q", a.Tool())
	}
	sh.tool = "rectangle"
	sh.notify()
	if a.Tool() != ToolGeo {
		t.Fatalf("rectangle read as %q", a.Tool())
	}
}

func TestInkStyleTranslation(t *testing.T) {
	a := newAdapter(t, KindInk)
	ink := newFakeInk()
	_ = a.Attach(Mount{Kind: KindInk, Ink: ink})

	s := a.Style()
	s.StrokeColor = "#4466EE"
	s.TextSize = 35
	s.Font = FontSerif
	s.Align = AlignCenter
	s.Opacity = 0.5
	s.Fill = FillSolid
	a.SetStyle(s)

	want := map[string]string{"color": "blue", "size": "l", "font": "serif", "align": "middle", "opacity": "0.5", "fill": "solid"}
	for k, v := range want {
		if ink.next[k] != v || ink.selected[k] != v {
			t.Errorf("%s: next=%q selected=%q, want %q", k, ink.next[k], ink.selected[k], v)
		}
	}
	if got := a.Style().StrokeColor; got != "#4465e9" {
		t.Fatalf("neutral color after engine echo = %q, want palette blue", got)
	}
}

func TestSheetStyleTranslation(t *testing.T) {
	a := newAdapter(t, KindSheet)
	sh := newFakeSheet()
	_ = a.Attach(Mount{Kind: KindSheet, Sheet: sh})

	if st := a.Style(); st.StrokeColor != "#1e1e1e" || st.Font != FontHand || st.TextSize != 20 || st.Opacity != 1 {
		t.Fatalf("initial style = %+v", st)
	}
	s := a.Style()
	s.StrokeColor = "#e03131"
	s.Fill = FillSolid
	s.Font = FontMono
	s.Align = AlignRight
	s.Opacity = 0.25
	a.SetStyle(s)

	if sh.state["currentItemStrokeColor"] != "#e03131" || sh.state["currentItemBackgroundColor"] != "#e03131" {
		t.Fatalf("colors = %v / %v", sh.state["currentItemStrokeColor"], sh.state["currentItemBackgroundColor"])
	}
	if sh.state["currentItemFillStyle"] != "solid" || sh.state["currentItemFontFamily"] != 3 {
		t.Fatalf("fill/font = %v / %v", sh.state["currentItemFillStyle"], sh.state["currentItemFontFamily"])
	}
	if sh.state["currentItemTextAlign"] != "right" || sh.state["currentItemOpacity"] != 25 {
		t.Fatalf("align/opacity = %v / %v", sh.state["currentItemTextAlign"], sh.state["currentItemOpacity"])
	}
	if a.Style() != s {
		t.Fatalf("neutral style = %+v, want %+v", a.Style(), s)
	}
}

func TestEngineFailuresAreNoOps(t *testing.T) {
	a := newAdapter(t, KindInk)
	ink := newFakeInk()
	_ = a.Attach(Mount{Kind: KindInk, Ink: ink})

	ink.panicOn = "tool"
	a.SetTool(ToolDraw)
	if a.Tool() != ToolSelect {
		t.Fatalf("tool after panic = %q", a.Tool())
	}
	ink.panicOn = ""
	ink.failOn = "tool"
	a.SetTool(ToolText)
	if a.Tool() != ToolSelect {
		t.Fatalf("tool after error = %q", a.Tool())
	}
}

func TestUndoGuardsAndCamera(t *testing.T) {
	a := newAdapter(t, KindInk)
	if a.Undo() || a.CanUndo() {
		t.Fatalf("undo before attach")
	}
	ink := newFakeInk()
	_ = a.Attach(Mount{Kind: KindInk, Ink: ink})
	if a.Undo() || ink.undos != 0 {
		t.Fatalf("undo called through a false CanUndo")
	}
	ink.undoable = true
	if !a.Undo() || ink.undos != 1 {
		t.Fatalf("undo not forwarded")
	}
	if p := a.Page(); p.Total != 3 {
		t.Fatalf("page = %+v", p)
	}

	n := countChanges(a, ChangeCamera)
	a.SetZoom(2)
	if ink.z != 2 || a.Camera().Zoom != 2 || *n != 1 {
		t.Fatalf("zoom: engine %v neutral %v changes %d", ink.z, a.Camera().Zoom, *n)
	}
	a.SetZoom(-1)
	if ink.z != 2 {
		t.Fatalf("negative zoom applied")
	}
}

func TestSheetCameraAndMismatch(t *testing.T) {
	a := newAdapter(t, KindSheet)
	if err := a.Attach(Mount{Kind: KindInk, Ink: newFakeInk()}); err == nil {
		t.Fatalf("kind mismatch accepted")
	}
	sh := newFakeSheet()
	_ = a.Attach(Mount{Kind: KindSheet, Sheet: sh})
	a.SetZoom(1.5)
	z, _ := sh.state["zoom"].(map[string]any)
	if z["value"] != 1.5 {
		t.Fatalf("sheet zoom = %v", sh.state["zoom"])
	}
	if p := a.Page(); p.Current != 1 || p.Total != 2 {
		t.Fatalf("page = %+v", p)
	}
}
