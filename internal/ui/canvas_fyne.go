//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/gesture"
	"github.com/cwl23cwl/write-on-app-sub001/internal/workspace"
)

// SessionCanvas presents a session's backing store and feeds it pointer,
// wheel and key input. Widget coordinates are the session's client
// coordinates.
type SessionCanvas struct {
	widget.BaseWidget
	s *workspace.Session

	root *gesture.Node
	// ctrl tracks the Control/Super keys; Fyne scroll events carry no modifiers.
	ctrl     bool
	pressed  bool
	lastTool engine.Tool

	OnChange func()
}

var (
	_ fyne.Scrollable   = (*SessionCanvas)(nil)
	_ fyne.Draggable    = (*SessionCanvas)(nil)
	_ fyne.Focusable    = (*SessionCanvas)(nil)
	_ desktop.Mouseable = (*SessionCanvas)(nil)
	_ desktop.Keyable   = (*SessionCanvas)(nil)
)

func NewSessionCanvas(s *workspace.Session) *SessionCanvas {
	c := &SessionCanvas{s: s, root: gesture.NewNode(nil, "scroll-root"), lastTool: engine.ToolDraw}
	c.ExtendBaseWidget(c)
	return c
}

func (c *SessionCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	page := canvas.NewRectangle(color.White)
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest
	return &sessionCanvasRenderer{c: c, bg: bg, page: page, img: img, objects: []fyne.CanvasObject{bg, page, img}}
}

// PreferredSize sets a decent default size for the widget.
func (c *SessionCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// Resize reports the new visible size to the session.
func (c *SessionCanvas) Resize(size fyne.Size) {
	c.BaseWidget.Resize(size)
	c.s.Resize(float64(size.Width), float64(size.Height))
}

func (c *SessionCanvas) changed() {
	c.Refresh()
	if c.OnChange != nil {
		c.OnChange()
	}
}

// Scrolled is a zoom intent while Ctrl is held, native scrolling otherwise.
func (c *SessionCanvas) Scrolled(e *fyne.ScrollEvent) {
	ev := &gesture.WheelEvent{
		Event:     gesture.Event{Target: c.root},
		Modifiers: gesture.Modifiers{Ctrl: c.ctrl},
		ClientX:   float64(e.Position.X),
		ClientY:   float64(e.Position.Y),
		// Fyne reports positive DY when scrolling up
		DeltaY: -float64(e.Scrolled.DY),
	}
	c.s.HandleWheel(ev)
	if !ev.DefaultPrevented() {
		c.s.Store().Pan(-float64(e.Scrolled.DX), -float64(e.Scrolled.DY))
	}
	c.changed()
}

func (c *SessionCanvas) pointer(phase gesture.PointerPhase, pos fyne.Position, button int) {
	c.s.HandlePointer(&gesture.PointerEvent{
		Event:   gesture.Event{Target: c.root},
		Phase:   phase,
		Button:  button,
		ClientX: float64(pos.X),
		ClientY: float64(pos.Y),
	})
	c.changed()
}

func (c *SessionCanvas) MouseDown(e *desktop.MouseEvent) {
	btn := 0
	if e.Button != desktop.MouseButtonPrimary {
		btn = 2
	}
	c.pressed = true
	c.pointer(gesture.PointerDown, e.Position, btn)
}

func (c *SessionCanvas) MouseUp(e *desktop.MouseEvent) {
	if !c.pressed {
		return
	}
	c.pressed = false
	c.pointer(gesture.PointerUp, e.Position, 0)
}

func (c *SessionCanvas) Dragged(e *fyne.DragEvent) {
	if c.pressed {
		c.pointer(gesture.PointerMove, e.Position, 0)
	}
}

func (c *SessionCanvas) DragEnd() {}

func (c *SessionCanvas) FocusGained() {}
func (c *SessionCanvas) FocusLost()   { c.ctrl = false }

func (c *SessionCanvas) KeyDown(e *fyne.KeyEvent) {
	switch e.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		c.ctrl = true
	}
}

func (c *SessionCanvas) KeyUp(e *fyne.KeyEvent) {
	switch e.Name {
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		c.ctrl = false
	}
}

func (c *SessionCanvas) TypedRune(r rune) {
	switch r {
	case 'f', 'F':
		c.key(string(r), false)
	case 'h':
		if c.s.Adapter().Tool() == engine.ToolHand {
			c.s.SetTool(c.lastTool)
		} else {
			c.lastTool = c.s.Adapter().Tool()
			c.s.SetTool(engine.ToolHand)
		}
		c.changed()
	case '+', '=', '-', '0':
		if c.ctrl {
			c.key(string(r), true)
		}
	}
}

func (c *SessionCanvas) TypedKey(_ *fyne.KeyEvent) {}

// Shortcut routes a Ctrl/Cmd zoom shortcut ("0", "=", "-") to the controller.
func (c *SessionCanvas) Shortcut(name fyne.KeyName) {
	c.key(strings.ToLower(string(name)), true)
}

func (c *SessionCanvas) key(k string, command bool) {
	c.s.HandleKey(&gesture.KeyEvent{
		Event:     gesture.Event{Target: c.root},
		Modifiers: gesture.Modifiers{Ctrl: command},
		Key:       k,
	})
	c.changed()
}

// sessionCanvasRenderer places the page image at its scrolled, zoomed position.
type sessionCanvasRenderer struct {
	c       *SessionCanvas
	bg      *canvas.Rectangle
	page    *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *sessionCanvasRenderer) Destroy()                     {}
func (r *sessionCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sessionCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 200) }

func (r *sessionCanvasRenderer) Refresh() {
	if f := r.c.s.Frame(); f != nil {
		r.img.Image = f
	}
	r.Layout(r.c.Size())
	canvas.Refresh(r.c)
}

func (r *sessionCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	st := r.c.s.Store().State()
	x, y := r.c.s.PageToClient(0, 0)
	pos := fyne.NewPos(float32(x), float32(y))
	sz := fyne.NewSize(float32(st.PageSize.W*st.Scale), float32(st.PageSize.H*st.Scale))
	r.page.Move(pos)
	r.page.Resize(sz)
	r.img.Move(pos)
	r.img.Resize(sz)
}
