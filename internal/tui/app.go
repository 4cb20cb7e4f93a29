/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tui hosts a workspace session in a terminal. Each cell stands for
// a block of CSS pixels; the page is shown as colored cells sampled from the
// session's frame and the last row is the status line.
package tui

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/gesture"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/workspace"
)

// Cell geometry in CSS pixels.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// wheelStep is the pixel delta of one wheel notch.
const wheelStep = 100.0

var (
	styleDesk   = tcell.StyleDefault.Background(tcell.NewRGBColor(48, 48, 52))
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkBlue)
)

// App drives one session on a tcell screen.
type App struct {
	screen tcell.Screen
	s      *workspace.Session
	log    *slog.Logger

	root   *gesture.Node
	status *gesture.Node

	width, height int
	button        bool
	lastTool      engine.Tool
	dirty         bool
	quit          bool
	message       string
}

// New binds an initialized screen to a started session.
func New(screen tcell.Screen, s *workspace.Session) *App {
	root := gesture.NewNode(nil, "scroll-root")
	a := &App{
		screen:   screen,
		s:        s,
		log:      applog.WithComponent("tui"),
		root:     root,
		status:   gesture.NewNode(nil, "control-strip"),
		lastTool: engine.ToolDraw,
		dirty:    true,
	}
	screen.EnableMouse()
	a.resize()
	return a
}

// Run polls screen events and ticks the session until the user quits or
// ctx is done.
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for !a.quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a.Handle(ev)
		case <-ticker.C:
			a.Step()
		}
	}
	return nil
}

// Step ticks the session and redraws when anything changed.
func (a *App) Step() {
	if a.s.Tick() > 0 {
		a.dirty = true
	}
	if a.dirty {
		a.Draw()
	}
}

// Quit reports whether the user asked to leave.
func (a *App) Quit() bool { return a.quit }

// Handle dispatches one tcell event.
func (a *App) Handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.resize()
		a.screen.Sync()
	case *tcell.EventKey:
		a.key(ev)
	case *tcell.EventMouse:
		a.mouse(ev)
	}
	a.dirty = true
}

func (a *App) resize() {
	a.width, a.height = a.screen.Size()
	rows := max(0, a.height-1)
	a.s.Resize(float64(a.width)*CellWidth, float64(rows)*CellHeight)
}

func (a *App) key(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.quit = true
		return
	case tcell.KeyPgDn:
		a.turnPage(1)
		return
	case tcell.KeyPgUp:
		a.turnPage(-1)
		return
	case tcell.KeyRune:
	default:
		return
	}
	r := ev.Rune()
	switch r {
	case '0', '=', '+', '-':
		// terminals rarely report Ctrl with digits, so the bare keys zoom
		a.s.HandleKey(&gesture.KeyEvent{Event: gesture.Event{Target: a.root}, Modifiers: gesture.Modifiers{Ctrl: true}, Key: string(r)})
	case 'f', 'F':
		a.s.HandleKey(&gesture.KeyEvent{Event: gesture.Event{Target: a.root}, Key: string(r)})
	case 'h':
		if a.s.Adapter().Tool() == engine.ToolHand {
			a.s.SetTool(a.lastTool)
		} else {
			a.lastTool = a.s.Adapter().Tool()
			a.s.SetTool(engine.ToolHand)
		}
	case 'd':
		a.s.SetTool(engine.ToolDraw)
	case 'e':
		a.s.SetTool(engine.ToolEraser)
	case 's':
		a.s.SetTool(engine.ToolSelect)
	case 'u':
		a.s.Undo()
	case 'r':
		a.s.Redo()
	case 'n':
		i := a.s.AddPage()
		if err := a.s.SetPage(i); err != nil {
			a.flash(err)
		}
	case 'q':
		a.quit = true
	}
}

func (a *App) turnPage(d int) {
	p := a.s.Page()
	if err := a.s.SetPage(p.Current + d); err != nil {
		a.log.Debug("page change ignored", slog.Any("err", err))
	}
}

func (a *App) flash(err error) {
	a.message = err.Error()
	a.log.Warn("tui action failed", slog.Any("err", err))
}

// target is the node under a cell: the status row is chrome.
func (a *App) target(y int) *gesture.Node {
	if y >= a.height-1 {
		return a.status
	}
	return a.root
}

func (a *App) mouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	cx := (float64(x) + 0.5) * CellWidth
	cy := (float64(y) + 0.5) * CellHeight
	btn := ev.Buttons()
	target := a.target(y)

	if btn&(tcell.WheelUp|tcell.WheelDown) != 0 {
		dy := wheelStep
		if btn&tcell.WheelUp != 0 {
			dy = -wheelStep
		}
		w := &gesture.WheelEvent{
			Event:     gesture.Event{Target: target},
			Modifiers: gesture.Modifiers{Ctrl: ev.Modifiers()&tcell.ModCtrl != 0},
			ClientX:   cx,
			ClientY:   cy,
			DeltaY:    dy,
		}
		a.s.HandleWheel(w)
		if !w.DefaultPrevented() {
			a.s.Store().Pan(0, dy/2)
		}
		return
	}

	pressed := btn&tcell.Button1 != 0
	var phase gesture.PointerPhase
	switch {
	case pressed && !a.button:
		phase = gesture.PointerDown
	case pressed:
		phase = gesture.PointerMove
	case a.button:
		phase = gesture.PointerUp
	default:
		return
	}
	a.button = pressed
	a.s.HandlePointer(&gesture.PointerEvent{
		Event:   gesture.Event{Target: target},
		Phase:   phase,
		ClientX: cx,
		ClientY: cy,
	})
}

// Draw paints the page cells and the status line.
func (a *App) Draw() {
	a.dirty = false
	rows := a.height - 1
	page := a.s.LogicalPage()
	frame := a.s.Frame()
	var fb image.Rectangle
	if frame != nil {
		fb = frame.Bounds()
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < a.width; x++ {
			p := a.s.ClientToPage((float64(x)+0.5)*CellWidth, (float64(y)+0.5)*CellHeight)
			style := styleDesk
			if p.X >= 0 && p.Y >= 0 && p.X < page.W && p.Y < page.H {
				style = tcell.StyleDefault.Background(tcell.ColorWhite)
				if frame != nil {
					px := fb.Min.X + int(p.X*float64(fb.Dx())/page.W)
					py := fb.Min.Y + int(p.Y*float64(fb.Dy())/page.H)
					r, g, b, _ := frame.At(px, py).RGBA()
					style = tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8)))
				}
			}
			a.screen.SetContent(x, y, ' ', nil, style)
		}
	}
	a.drawStatus(rows)
	a.screen.Show()
}

// StatusLine is the text shown in the last row.
func (a *App) StatusLine() string {
	line := " " + a.s.Status()
	if a.s.Controller().Panning() {
		line += "  panning"
	}
	if a.message != "" {
		line += "  " + a.message
	}
	return line
}

func (a *App) drawStatus(row int) {
	if row < 0 {
		return
	}
	line := []rune(a.StatusLine())
	for x := 0; x < a.width; x++ {
		r := ' '
		if x < len(line) {
			r = line[x]
		}
		a.screen.SetContent(x, row, r, nil, styleStatus)
	}
}
