/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package workspace assembles one editing session: the viewport store, the
// gesture controller, the resolution manager and the engine adapter, wired
// to each other and driven by a single frame loop.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gg"

	"github.com/cwl23cwl/write-on-app-sub001/internal/config"
	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/engines/ink"
	"github.com/cwl23cwl/write-on-app-sub001/internal/engines/sheet"
	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	"github.com/cwl23cwl/write-on-app-sub001/internal/gesture"
	"github.com/cwl23cwl/write-on-app-sub001/internal/history"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/prefs"
	"github.com/cwl23cwl/write-on-app-sub001/internal/resolution"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

// SaveState is the document persistence indicator shown in the chrome.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveError  SaveState = "error"
)

// zoomEpsilon is the smallest scale difference mirrored between the store
// and the engine camera.
const zoomEpsilon = 1e-3

// Options configure a Session.
type Options struct {
	Config config.AppConfig
	// Prefs caches viewport preferences across sessions. Optional.
	Prefs prefs.Store
	Clock frame.Clock
	// DPR and Viewport are the initial display pixel ratio and visible size.
	DPR      float64
	Viewport viewmath.Size
	// HostRect returns the scroll root in client coordinates.
	HostRect func() viewmath.Rect
	Capture  gesture.PointerCapturer
	Logger   *slog.Logger
}

// pen is the pointer input both engines accept in page coordinates.
type pen interface {
	PointerDown(x, y float64)
	PointerMove(x, y float64)
	PointerUp(x, y float64)
}

// Session owns every per-workspace object. It is driven from one goroutine:
// the host's UI loop calls the input methods and Tick, after Start.
type Session struct {
	cfg   config.AppConfig
	log   *slog.Logger
	prefs prefs.Store

	loop    *frame.Loop
	store   *viewport.Store
	fit     *viewport.FitWidthManager
	ctrl    *gesture.Controller
	surface *resolution.GGSurface
	res     *resolution.Manager
	mon     *resolution.DPRMonitor
	guard   *resolution.AttributeGuard
	adapter *engine.Adapter

	kind     engine.Kind
	ink      *ink.Editor
	sheet    *sheet.Sheet
	pen      pen
	hostRect func() viewmath.Rect
	capture  gesture.PointerCapturer

	cancels   []func()
	dirty     bool
	sheetImg  *image.RGBA
	saveState SaveState
	savedAt   time.Time
	started   bool
	closed    bool
}

// New builds a session and its engine. Nothing runs until Start.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	kind, ok := engine.ParseKind(cfg.Engine.Kind)
	if !ok {
		return nil, fmt.Errorf("workspace: unknown engine %q", cfg.Engine.Kind)
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("workspace")
	}
	clock := opts.Clock
	if clock == nil {
		clock = frame.SystemClock{}
	}
	s := &Session{cfg: cfg, log: l, prefs: opts.Prefs, kind: kind, saveState: SaveIdle}
	s.loop = frame.NewLoop(clock)
	s.store = viewport.NewStore(viewport.Options{
		Constraints: cfg.Viewport.Constraints(),
		PageSize:    cfg.Viewport.PageSize(),
		Logger:      l.With(slog.String("component", "viewport")),
	})
	if opts.Viewport.W > 0 && opts.Viewport.H > 0 {
		s.store.SetViewportSize(opts.Viewport.W, opts.Viewport.H)
	}
	dpr := opts.DPR
	if !(dpr > 0) {
		dpr = 1
	}
	s.store.SetDevicePixelRatio(dpr)
	s.hostRect = opts.HostRect
	s.capture = opts.Capture
	if s.hostRect == nil {
		s.hostRect = func() viewmath.Rect { return s.store.State().Host() }
	}

	page := cfg.Viewport.PageSize()
	lim := cfg.Resolution.Limits()
	s.surface = resolution.NewGGSurface(int(page.W), int(page.H))
	s.res = resolution.NewManager(resolution.Options{
		Surface:        s.surface,
		Loop:           s.loop,
		Limits:         lim,
		PageSize:       page,
		ResizeDebounce: cfg.Resolution.ResizeDebounce(),
		OnApply:        s.onResolution,
	})
	s.mon = resolution.NewDPRMonitor(resolution.MonitorOptions{
		Clock:    clock,
		Initial:  dpr,
		OnChange: s.onDPR,
	})
	s.guard = resolution.NewAttributeGuard(lim, nil)

	adapter, err := engine.NewAdapter(kind, nil)
	if err != nil {
		return nil, err
	}
	s.adapter = adapter
	hist := history.Config{MaxPerPage: 200}
	switch kind {
	case engine.KindInk:
		s.ink = ink.New(ink.Options{Pages: cfg.Engine.Pages, History: hist, FontPath: cfg.Engine.FontPath})
		s.pen = s.ink
	case engine.KindSheet:
		if cfg.Engine.FontPath != "" {
			if err := sheet.LoadFont(sheet.FontHand, cfg.Engine.FontPath); err != nil {
				l.Warn("sheet font not loaded", slog.Any("err", err))
			}
		}
		s.sheet = sheet.New(sheet.Options{Pages: cfg.Engine.Pages, History: hist, OnCanvas: s.policeCanvas})
		s.pen = s.sheet
	}
	return s, nil
}

// Start restores cached preferences, attaches the engine and wires the
// components to each other.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return errors.New("workspace: already started")
	}
	s.started = true
	if s.prefs != nil {
		p, ok, err := prefs.LoadViewport(ctx, s.prefs, s.log)
		if err != nil {
			s.log.Warn("viewport prefs unavailable", slog.Any("err", err))
		}
		if ok {
			s.store.Restore(p)
			// a restored zoom wins over fit-width until the user fits again
			s.store.SetFitMode(viewport.Free)
			if s.savedAt = s.prefsStamp(ctx); !s.savedAt.IsZero() {
				s.log.Info("viewport prefs restored", slog.Time("saved_at", s.savedAt))
			}
		}
	}
	s.fit = viewport.NewFitWidthManager(s.store, s.cfg.Viewport.FitPadding)
	s.ctrl = gesture.NewController(gesture.Options{
		Store:    s.store,
		Loop:     s.loop,
		Fit:      s.fit,
		HostRect: s.pageRect,
		Capture:  s.capture,
	})
	s.cancels = append(s.cancels,
		s.store.Subscribe(s.onViewport),
		s.adapter.Subscribe(s.onEngine),
	)
	var m engine.Mount
	switch s.kind {
	case engine.KindInk:
		m = engine.Mount{Kind: engine.KindInk, Ink: s.ink}
	case engine.KindSheet:
		m = engine.Mount{Kind: engine.KindSheet, Sheet: s.sheet}
	}
	if err := s.adapter.Attach(m); err != nil {
		return fmt.Errorf("attach engine: %w", err)
	}
	st := s.store.State()
	s.adapter.SetZoom(st.Scale)
	s.res.Update(st.DevicePixelRatio, st.Scale)
	s.log.Info("workspace started", slog.String("engine", s.kind.String()), slog.Float64("scale", st.Scale))
	return nil
}

// Close saves the viewport preferences and tears the session down.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.prefs != nil && s.started {
		if serr := prefs.SaveViewport(ctx, s.prefs, s.store.Prefs()); serr != nil {
			s.log.Warn("viewport prefs not saved", slog.Any("err", serr))
			err = serr
		}
	}
	for _, c := range s.cancels {
		c()
	}
	s.cancels = nil
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	if s.fit != nil {
		s.fit.Close()
	}
	s.res.Close()
	s.adapter.Detach()
	if cerr := s.surface.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.log.Info("workspace closed")
	return err
}

// Tick ages the DPR monitor, runs due frame work and repaints when the
// backing store or the scene changed. It returns the number of callbacks run.
func (s *Session) Tick() int {
	s.mon.Poll()
	n := s.loop.Tick()
	if s.dirty {
		if err := s.Render(); err != nil {
			s.log.Warn("render failed", slog.Any("err", err))
		}
	}
	return n
}

// Render paints the current page onto the engine's surface.
func (s *Session) Render() error {
	s.dirty = false
	switch s.kind {
	case engine.KindInk:
		var err error
		s.surface.Draw(func(dc *gg.Context, _ float64) { err = s.ink.Render(dc) })
		if err != nil {
			return err
		}
	case engine.KindSheet:
		img, err := s.sheet.Render()
		if err != nil {
			return err
		}
		s.sheetImg = img
	}
	s.res.MarkDrawn()
	return nil
}

// Frame returns the last painted picture, or nil before the first paint.
func (s *Session) Frame() image.Image {
	if s.kind == engine.KindSheet {
		if s.sheetImg == nil {
			return nil
		}
		return s.sheetImg
	}
	if _, ok := s.res.State(); !ok {
		return nil
	}
	return s.surface.Snapshot()
}

func (s *Session) onViewport(prev, next viewport.State) {
	if prev.Scale != next.Scale || prev.DevicePixelRatio != next.DevicePixelRatio {
		s.res.Update(next.DevicePixelRatio, next.Scale)
	}
	if prev.PageSize != next.PageSize {
		s.res.SetPageSize(next.PageSize.W, next.PageSize.H)
	}
	if prev.ViewportSize != next.ViewportSize {
		s.res.ContainerResized()
	}
	if viewmath.IsSignificantScaleChange(s.adapter.Camera().Zoom, next.Scale, zoomEpsilon) {
		s.adapter.SetZoom(next.Scale)
	}
}

func (s *Session) onEngine(c engine.Change) {
	switch c.Kind {
	case engine.ChangeTool, engine.ChangeReady:
		if s.ctrl != nil {
			s.ctrl.SetHandTool(c.Tool == engine.ToolHand)
		}
	case engine.ChangeCamera:
		st := s.store.State()
		if viewmath.IsSignificantScaleChange(st.Scale, c.Camera.Zoom, zoomEpsilon) {
			s.store.SetFitMode(viewport.Free)
			s.store.SetScale(c.Camera.Zoom)
		}
	case engine.ChangeScene, engine.ChangeStyle, engine.ChangePage:
		s.dirty = true
	}
}

func (s *Session) onResolution(st resolution.State) {
	if s.kind == engine.KindSheet {
		vs := s.store.State()
		w := int(math.Ceil(vs.PageSize.W * vs.Scale))
		h := int(math.Ceil(vs.PageSize.H * vs.Scale))
		if _, err := s.sheet.SetViewport(w, h, vs.DevicePixelRatio); err != nil {
			s.log.Warn("sheet viewport rejected", slog.Any("err", err))
		}
	}
	s.dirty = true
}

func (s *Session) onDPR(dpr float64) {
	s.store.SetDevicePixelRatio(dpr)
}

// policeCanvas lets the attribute guard correct the sheet's own canvas.
func (s *Session) policeCanvas(c *sheet.Canvas) {
	a := resolution.CanvasAttrs{Name: c.Name, Width: c.Width, Height: c.Height, Style: c.Style}
	if s.guard.Police(&a) {
		c.Width, c.Height, c.Style = a.Width, a.Height, a.Style
	}
}

// Resize reports a new visible size of the scroll root.
func (s *Session) Resize(w, h float64) {
	s.mon.ObserveResize()
	s.store.SetViewportSize(w, h)
}

// ObserveDPR reports the display pixel ratio, e.g. after a window moved
// between screens.
func (s *Session) ObserveDPR(dpr float64) { s.mon.ObserveDPR(dpr) }

// HandleWheel, HandleGesture and HandleKey feed the controller.
func (s *Session) HandleWheel(ev *gesture.WheelEvent)     { s.ctrl.HandleWheel(ev) }
func (s *Session) HandleGesture(ev *gesture.GestureEvent) { s.ctrl.HandleGesture(ev) }
func (s *Session) HandleKey(ev *gesture.KeyEvent)         { s.ctrl.HandleKey(ev) }

// HandlePointer gives the controller the first look; events it does not
// take go to the engine's drawing tools in page coordinates.
func (s *Session) HandlePointer(ev *gesture.PointerEvent) {
	s.ctrl.HandlePointer(ev)
	if ev.DefaultPrevented() || ev.Target.Closest(gesture.DefaultChromeSelector) != nil {
		return
	}
	if ev.Phase == gesture.PointerDown && ev.Button != 0 {
		return
	}
	p := s.ClientToPage(ev.ClientX, ev.ClientY)
	switch ev.Phase {
	case gesture.PointerDown:
		s.pen.PointerDown(p.X, p.Y)
	case gesture.PointerMove:
		s.pen.PointerMove(p.X, p.Y)
	case gesture.PointerUp:
		s.pen.PointerUp(p.X, p.Y)
	default:
		return
	}
	s.dirty = true
}

// pageRect is the page element in client coordinates: the scroll root
// shifted right by the centering translate.
func (s *Session) pageRect() viewmath.Rect {
	r := s.hostRect()
	tx := viewport.ContentTransform(s.store.State()).TranslateX
	r.X += tx
	r.W = math.Max(0, r.W-2*tx)
	return r
}

// ClientToPage maps a client point to page coordinates.
func (s *Session) ClientToPage(clientX, clientY float64) viewmath.Point {
	return viewmath.WorldPointFromClient(clientX, clientY, s.pageRect(), s.store.State().View())
}

// PageToClient maps a page point to client coordinates.
func (s *Session) PageToClient(x, y float64) (float64, float64) {
	r, st := s.pageRect(), s.store.State()
	return r.X + x*st.Scale - st.ScrollX, r.Y + y*st.Scale - st.ScrollY
}

// SetTool selects a neutral tool on the engine.
func (s *Session) SetTool(t engine.Tool) { s.adapter.SetTool(t) }

// AddText places text at a client point with the current style.
func (s *Session) AddText(clientX, clientY float64, text string) {
	p := s.ClientToPage(clientX, clientY)
	switch s.kind {
	case engine.KindInk:
		s.ink.AddText(p.X, p.Y, text)
	case engine.KindSheet:
		s.sheet.AddText(p.X, p.Y, text)
	}
}

// Undo and Redo pass through the adapter's guards.
func (s *Session) Undo() bool { return s.adapter.Undo() }
func (s *Session) Redo() bool { return s.adapter.Redo() }

// ZoomPercent is the chrome's zoom read-out, e.g. "47%".
func (s *Session) ZoomPercent() string {
	return viewport.FormatZoomPercent(s.store.State().Scale)
}

// Transform is the content transform for the page element.
func (s *Session) Transform() viewport.Transform {
	return viewport.ContentTransform(s.store.State())
}

// Page is the current/total page read-out.
func (s *Session) Page() engine.PageInfo { return s.adapter.Page() }

// LogicalPage is the page size in CSS pixels.
func (s *Session) LogicalPage() viewmath.Size { return s.store.State().PageSize }

// AddPage appends a blank page and returns its zero based index.
func (s *Session) AddPage() int {
	if s.kind == engine.KindInk {
		return s.ink.AddPage()
	}
	return s.sheet.AddPage()
}

// SetPage switches the engine page.
func (s *Session) SetPage(i int) error {
	switch s.kind {
	case engine.KindInk:
		return s.ink.SetCurrentPage(i)
	default:
		return s.sheet.SetPage(i)
	}
}

func (s *Session) SaveState() SaveState { return s.saveState }

// Status is the one-line chrome summary: zoom, fit mode, tool, page and
// save state.
func (s *Session) Status() string {
	p := s.adapter.Page()
	return fmt.Sprintf("%s  %s  %s  page %d/%d  %s", s.ZoomPercent(), s.store.State().FitMode, s.adapter.Tool(), p.Current+1, p.Total, s.saveState)
}

// SetSaveState is called by the document persistence collaborator.
func (s *Session) SetSaveState(st SaveState) {
	switch st {
	case SaveIdle, SaveSaving, SaveSaved, SaveError:
		s.saveState = st
	default:
		applog.Once(s.log, "workspace.save_state", "unknown save state ignored", slog.String("state", string(st)))
	}
}

// SavePrefs writes the viewport preferences now.
func (s *Session) SavePrefs(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := prefs.SaveViewport(ctx, s.prefs, s.store.Prefs()); err != nil {
		return err
	}
	s.savedAt = s.prefsStamp(ctx)
	return nil
}

// PrefsSavedAt reports when the viewport preferences were last written, as
// recorded by the store. It is false for stores without timestamps.
func (s *Session) PrefsSavedAt() (time.Time, bool) { return s.savedAt, !s.savedAt.IsZero() }

func (s *Session) prefsStamp(ctx context.Context) time.Time {
	st, ok := s.prefs.(prefs.Stamped)
	if !ok {
		return time.Time{}
	}
	ts, found, err := st.UpdatedAt(ctx, viewport.PrefsKey)
	if err != nil {
		s.log.Warn("viewport prefs timestamp unavailable", slog.Any("err", err))
		return time.Time{}
	}
	if !found {
		return time.Time{}
	}
	return ts
}

func (s *Session) Store() *viewport.Store            { return s.store }
func (s *Session) Controller() *gesture.Controller   { return s.ctrl }
func (s *Session) Adapter() *engine.Adapter          { return s.adapter }
func (s *Session) Loop() *frame.Loop                 { return s.loop }
func (s *Session) Resolution() *resolution.Manager   { return s.res }
func (s *Session) Surface() *resolution.GGSurface    { return s.surface }
func (s *Session) Guard() *resolution.AttributeGuard { return s.guard }
func (s *Session) Kind() engine.Kind                 { return s.kind }

// Ink and Sheet return the engine instance of the session's kind, nil otherwise.
func (s *Session) Ink() *ink.Editor    { return s.ink }
func (s *Session) Sheet() *sheet.Sheet { return s.sheet }
