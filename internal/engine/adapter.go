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
	"fmt"
	"log/slog"

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// Adapter keeps the neutral tool, style and camera state and mirrors it to
// and from the attached engine. It must be used from the UI goroutine; engine
// notifications are expected on the same goroutine.
type Adapter struct {
	kind Kind
	tbl  *table
	log  *slog.Logger

	b        binding
	unlisten func()
	ready    bool

	tool       Tool
	lastNative string
	style      Style
	camera     Camera
	page       PageInfo

	queuedTool Tool

	subs   map[int]func(Change)
	order  []int
	nextID int
}

// NewAdapter builds the adapter and its translation table for kind.
func NewAdapter(kind Kind, l *slog.Logger) (*Adapter, error) {
	tbl := tableFor(kind)
	if tbl == nil {
		return nil, fmt.Errorf("engine: unsupported kind %d", int(kind))
	}
	if l == nil {
		l = applog.WithComponent("engine")
	}
	return &Adapter{
		kind:   kind,
		tbl:    tbl,
		log:    l.With(slog.String("engine", kind.String())),
		tool:   ToolNone,
		style:  DefaultStyle(),
		camera: Camera{Zoom: 1},
		subs:   map[int]func(Change){},
	}, nil
}

// Kind returns the engine kind the adapter translates for.
func (a *Adapter) Kind() Kind { return a.kind }

// Attach binds the engine handle, reads its current state and flushes a
// queued tool activation.
func (a *Adapter) Attach(m Mount) error {
	if m.Kind != a.kind {
		return fmt.Errorf("engine: mount is %s, adapter is %s", m.Kind, a.kind)
	}
	var b binding
	switch m.Kind {
	case KindInk:
		if m.Ink == nil {
			return errors.New("engine: ink mount without api")
		}
		b = inkBinding{api: m.Ink, t: a.tbl}
	case KindSheet:
		if m.Sheet == nil {
			return errors.New("engine: sheet mount without api")
		}
		b = sheetBinding{api: m.Sheet, t: a.tbl}
	}
	if a.ready {
		a.Detach()
	}
	a.b = b
	a.ready = true

	a.guard("read tool", func() error {
		a.lastNative = b.tool()
		a.tool = a.tbl.neutralTool(a.lastNative)
		return nil
	})
	a.guard("read style", func() error { a.style = b.style(); return nil })
	a.guard("read camera", func() error { a.camera = b.camera(); return nil })
	a.guard("read page", func() error { a.page = b.page(); return nil })
	a.guard("listen", func() error {
		a.unlisten = b.listen(a.onEngineChange)
		return nil
	})

	if a.queuedTool != "" {
		t := a.queuedTool
		a.queuedTool = ""
		a.log.Debug("flushing queued tool", slog.String("tool", string(t)))
		a.SetTool(t)
	}
	a.log.Info("engine attached", slog.String("tool", string(a.tool)))
	a.emit(Change{Kind: ChangeReady, Tool: a.tool, Style: a.style, Camera: a.camera, Page: a.page})
	return nil
}

// Detach unbinds the engine. The neutral state is kept.
func (a *Adapter) Detach() {
	if a.unlisten != nil {
		fn := a.unlisten
		a.unlisten = nil
		a.guard("unlisten", func() error { fn(); return nil })
	}
	a.b = nil
	a.ready = false
}

// Ready reports whether an engine is attached.
func (a *Adapter) Ready() bool { return a.ready }

// Subscribe registers fn for neutral state changes.
func (a *Adapter) Subscribe(fn func(Change)) (cancel func()) {
	a.nextID++
	id := a.nextID
	a.subs[id] = fn
	a.order = append(a.order, id)
	return func() {
		delete(a.subs, id)
		for i, v := range a.order {
			if v == id {
				a.order = append(a.order[:i:i], a.order[i+1:]...)
				break
			}
		}
	}
}

func (a *Adapter) emit(c Change) {
	for _, id := range append([]int(nil), a.order...) {
		if fn, ok := a.subs[id]; ok {
			fn(c)
		}
	}
}

// guard runs an engine call, turning errors and panics into a logged no-op.
func (a *Adapter) guard(op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("engine call panicked", slog.String("op", op), slog.Any("panic", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		a.log.Warn("engine call failed", slog.String("op", op), slog.Any("err", err))
		return false
	}
	return true
}

// Tool returns the neutral tool, or the queued one before the engine attached.
func (a *Adapter) Tool() Tool {
	if !a.ready && a.queuedTool != "" {
		return a.queuedTool
	}
	return a.tool
}

// SetTool activates t in the engine. Before Attach the request is queued;
// only the latest queued request survives.
func (a *Adapter) SetTool(t Tool) {
	if !t.Valid() {
		applog.Once(a.log, "engine.tool", "unknown tool ignored", slog.String("tool", string(t)))
		return
	}
	if !a.ready {
		a.queuedTool = t
		return
	}
	if t == a.tool {
		return
	}
	prevTool, prevNative := a.tool, a.lastNative
	native := a.tbl.nativeTool(t)
	// set first so the engine's own change event reads as an echo
	a.tool, a.lastNative = t, native
	if !a.guard("set tool", func() error { return a.b.setTool(native) }) {
		a.tool, a.lastNative = prevTool, prevNative
		return
	}
	a.emit(Change{Kind: ChangeTool, Tool: t})
}

// Style returns the neutral shared style.
func (a *Adapter) Style() Style { return a.style }

// SetStyle applies the fields of s that differ from the current style to
// the selection and to new shapes.
func (a *Adapter) SetStyle(s Style) {
	s = a.sanitizeStyle(s)
	if s == a.style {
		return
	}
	if !a.ready {
		a.log.Debug("style change before engine attached dropped")
		return
	}
	prev := a.style
	a.style = s
	if !a.guard("set style", func() error { return a.b.applyStyle(prev, s) }) {
		a.style = prev
		return
	}
	// the engine may have echoed a normalized style back already
	a.emit(Change{Kind: ChangeStyle, Style: a.style})
}

func (a *Adapter) sanitizeStyle(s Style) Style {
	cur := a.style
	if hex := NormalizeHex(s.StrokeColor); hex != "" {
		s.StrokeColor = hex
	} else {
		s.StrokeColor = cur.StrokeColor
	}
	switch s.Fill {
	case FillNone, FillSemi, FillSolid:
	default:
		s.Fill = cur.Fill
	}
	if _, ok := a.tbl.fontOut[s.Font]; !ok {
		s.Font = cur.Font
	}
	if _, ok := a.tbl.alignOut[s.Align]; !ok {
		s.Align = cur.Align
	}
	if !viewmath.Finite(s.TextSize) || s.TextSize <= 0 {
		s.TextSize = cur.TextSize
	}
	if !viewmath.Finite(s.Opacity) {
		s.Opacity = cur.Opacity
	}
	s.Opacity = viewmath.Clamp(s.Opacity, 0, 1)
	return s
}

// Camera returns the engine camera as last seen.
func (a *Adapter) Camera() Camera { return a.camera }

// SetZoom changes only the camera zoom.
func (a *Adapter) SetZoom(z float64) {
	c := a.camera
	c.Zoom = z
	a.SetCamera(c)
}

// SetCamera writes the engine camera. Non-finite or non-positive zoom is
// ignored.
func (a *Adapter) SetCamera(c Camera) {
	if !viewmath.Finite(c.Zoom) || c.Zoom <= 0 || !viewmath.Finite(c.X) || !viewmath.Finite(c.Y) {
		applog.Once(a.log, "engine.camera", "invalid camera ignored", slog.Float64("zoom", c.Zoom))
		return
	}
	if !a.ready || c == a.camera {
		return
	}
	prev := a.camera
	a.camera = c
	if !a.guard("set camera", func() error { return a.b.setCamera(c) }) {
		a.camera = prev
		return
	}
	a.emit(Change{Kind: ChangeCamera, Camera: c})
}

// Page returns the current page bookkeeping.
func (a *Adapter) Page() PageInfo { return a.page }

func (a *Adapter) CanUndo() bool {
	if !a.ready {
		return false
	}
	can := false
	a.guard("can undo", func() error { can = a.b.canUndo(); return nil })
	return can
}

func (a *Adapter) CanRedo() bool {
	if !a.ready {
		return false
	}
	can := false
	a.guard("can redo", func() error { can = a.b.canRedo(); return nil })
	return can
}

// Undo reverts the last engine edit. It reports whether anything happened.
func (a *Adapter) Undo() bool {
	if !a.CanUndo() {
		return false
	}
	if !a.guard("undo", a.b.undo) {
		return false
	}
	a.syncAll()
	return true
}

// Redo re-applies the last undone edit.
func (a *Adapter) Redo() bool {
	if !a.CanRedo() {
		return false
	}
	if !a.guard("redo", a.b.redo) {
		return false
	}
	a.syncAll()
	return true
}

func (a *Adapter) onEngineChange(kind ChangeKind) {
	if !a.ready {
		return
	}
	switch kind {
	case ChangeTool:
		a.syncTool()
	case ChangeSelection, ChangeStyle:
		a.syncStyle()
	case ChangeScene:
		a.syncStyle()
		a.emit(Change{Kind: ChangeScene})
	case ChangeCamera:
		a.syncCamera()
	case ChangePage:
		a.syncPage()
	default:
		a.syncAll()
	}
}

func (a *Adapter) syncAll() {
	a.syncTool()
	a.syncStyle()
	a.syncCamera()
	a.syncPage()
	a.emit(Change{Kind: ChangeScene})
}

func (a *Adapter) syncTool() {
	var native string
	if !a.guard("read tool", func() error { native = a.b.tool(); return nil }) {
		return
	}
	if native == a.lastNative {
		return
	}
	a.lastNative = native
	t := a.tbl.neutralTool(native)
	if t == a.tool {
		return
	}
	a.tool = t
	a.emit(Change{Kind: ChangeTool, Tool: t})
}

func (a *Adapter) syncStyle() {
	var s Style
	if !a.guard("read style", func() error { s = a.b.style(); return nil }) {
		return
	}
	if s == a.style {
		return
	}
	a.style = s
	a.emit(Change{Kind: ChangeStyle, Style: s})
}

func (a *Adapter) syncCamera() {
	var c Camera
	if !a.guard("read camera", func() error { c = a.b.camera(); return nil }) {
		return
	}
	if c == a.camera || !viewmath.Finite(c.Zoom) || c.Zoom <= 0 {
		return
	}
	a.camera = c
	a.emit(Change{Kind: ChangeCamera, Camera: c})
}

func (a *Adapter) syncPage() {
	var p PageInfo
	if !a.guard("read page", func() error { p = a.b.page(); return nil }) {
		return
	}
	if p == a.page {
		return
	}
	a.page = p
	a.emit(Change{Kind: ChangePage, Page: p})
}
