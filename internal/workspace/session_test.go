/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/config"
	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	"github.com/cwl23cwl/write-on-app-sub001/internal/gesture"
	"github.com/cwl23cwl/write-on-app-sub001/internal/prefs"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

type harness struct {
	s     *Session
	clock *frame.ManualClock
}

func start(t *testing.T, cfg config.AppConfig, p prefs.Store, dpr float64) *harness {
	t.Helper()
	clock := frame.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	s, err := New(Options{Config: cfg, Prefs: p, Clock: clock, DPR: dpr, Viewport: viewmath.Size{W: 648, H: 900}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return &harness{s: s, clock: clock}
}

// settle advances past every debounce and runs the resulting frames.
func (h *harness) settle() {
	for i := 0; i < 5; i++ {
		h.clock.Advance(200 * time.Millisecond)
		h.s.Tick()
	}
}

func TestInkSessionFitsAndAppliesResolution(t *testing.T) {
	h := start(t, config.Defaults(), nil, 2)
	st := h.s.Store().State()
	// (648 - 48) / 1200
	if st.Scale != 0.5 || st.FitMode != viewport.FitWidth {
		t.Fatalf("scale=%v mode=%v", st.Scale, st.FitMode)
	}
	if got := h.s.ZoomPercent(); got != "50%" {
		t.Fatalf("ZoomPercent = %q", got)
	}
	if z := h.s.Adapter().Camera().Zoom; z != 0.5 {
		t.Fatalf("engine zoom = %v", z)
	}
	h.settle()
	rs, ok := h.s.Resolution().State()
	if !ok || rs.EffectiveDPR != 1 || rs.PhysicalWidth != 1200 || rs.PhysicalHeight != 2200 {
		t.Fatalf("resolution = %+v ok=%v", rs, ok)
	}
	if w, hh := h.s.Surface().Size(); w != 1200 || hh != 2200 {
		t.Fatalf("surface = %dx%d", w, hh)
	}
	if f := h.s.Frame(); f == nil || f.Bounds().Dx() != 1200 {
		t.Fatalf("frame = %v", f)
	}
	if got := h.s.Transform().CSS(); got != "translate3d(24px,0,0) scale(0.5)" {
		t.Fatalf("transform = %q", got)
	}
}

func TestEngineZoomFlowsToStore(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	if err := h.s.Ink().SetCamera(0, 0, 2); err != nil {
		t.Fatalf("SetCamera: %v", err)
	}
	st := h.s.Store().State()
	if st.Scale != 2 || st.FitMode != viewport.Free {
		t.Fatalf("store scale=%v mode=%v after engine zoom", st.Scale, st.FitMode)
	}
	// store zoom flows back without echoing
	h.s.Store().SetScale(1.25)
	if z := h.s.Adapter().Camera().Zoom; z != 1.25 {
		t.Fatalf("engine zoom = %v", z)
	}
	_, _, z := h.s.Ink().Camera()
	if z != 1.25 {
		t.Fatalf("ink camera zoom = %v", z)
	}
}

func TestHandToolArmsController(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	h.s.SetTool(engine.ToolHand)
	if !h.s.Controller().HandActive() {
		t.Fatalf("hand tool not armed")
	}
	h.s.SetTool(engine.ToolDraw)
	if h.s.Controller().HandActive() {
		t.Fatalf("hand tool still armed")
	}
}

func TestPointerDrawsInPageCoordinates(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	h.s.SetTool(engine.ToolDraw)
	root := gesture.NewNode(nil, "scroll-root")
	for _, ev := range []gesture.PointerEvent{
		{Event: gesture.Event{Target: root}, Phase: gesture.PointerDown, ClientX: 100, ClientY: 50},
		{Event: gesture.Event{Target: root}, Phase: gesture.PointerMove, ClientX: 150, ClientY: 60},
		{Event: gesture.Event{Target: root}, Phase: gesture.PointerUp, ClientX: 200, ClientY: 70},
	} {
		ev := ev
		h.s.HandlePointer(&ev)
	}
	shapes := h.s.Ink().Shapes()
	if len(shapes) != 1 {
		t.Fatalf("shapes = %d", len(shapes))
	}
	// the page sits 24px right of the root at scale 0.5
	last := shapes[0].Points[len(shapes[0].Points)-1]
	if last.X != 352 || last.Y != 140 {
		t.Fatalf("last point = %+v, want (352, 140)", last)
	}
	if !h.s.Undo() || len(h.s.Ink().Shapes()) != 0 {
		t.Fatalf("undo did not remove the stroke")
	}
	if !h.s.Redo() || len(h.s.Ink().Shapes()) != 1 {
		t.Fatalf("redo did not restore the stroke")
	}

	// chrome targets never reach the engine
	strip := gesture.NewNode(nil, "control-strip")
	down := gesture.PointerEvent{Event: gesture.Event{Target: strip}, Phase: gesture.PointerDown, ClientX: 10, ClientY: 10}
	up := gesture.PointerEvent{Event: gesture.Event{Target: strip}, Phase: gesture.PointerUp, ClientX: 20, ClientY: 20}
	h.s.HandlePointer(&down)
	h.s.HandlePointer(&up)
	if n := len(h.s.Ink().Shapes()); n != 1 {
		t.Fatalf("chrome pointer drew: %d shapes", n)
	}
}

func TestPrefsSurviveSessions(t *testing.T) {
	mem := prefs.NewMemory()
	h := start(t, config.Defaults(), mem, 1)
	h.s.Store().SetFitMode(viewport.Free)
	h.s.Store().SetScale(1.5)
	if err := h.s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2 := start(t, config.Defaults(), mem, 1)
	st := h2.s.Store().State()
	if st.Scale != 1.5 || st.FitMode != viewport.Free {
		t.Fatalf("restored scale=%v mode=%v", st.Scale, st.FitMode)
	}
}

func TestPrefsSavedAtFromSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := prefs.Open(ctx, prefs.Options{Driver: prefs.DriverSQLite, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h := start(t, config.Defaults(), db, 1)
	if _, ok := h.s.PrefsSavedAt(); ok {
		t.Fatalf("fresh store reports a save time")
	}
	if err := h.s.SavePrefs(ctx); err != nil {
		t.Fatalf("SavePrefs: %v", err)
	}
	saved, ok := h.s.PrefsSavedAt()
	if !ok {
		t.Fatalf("no save time after SavePrefs")
	}
	if err := h.s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2 := start(t, config.Defaults(), db, 1)
	if at, ok := h2.s.PrefsSavedAt(); !ok || at.Before(saved) {
		t.Fatalf("restored save time = %v ok=%v, saved %v", at, ok, saved)
	}

	mem := start(t, config.Defaults(), prefs.NewMemory(), 1)
	if err := mem.s.SavePrefs(ctx); err != nil {
		t.Fatalf("SavePrefs memory: %v", err)
	}
	if _, ok := mem.s.PrefsSavedAt(); ok {
		t.Fatalf("memory store reports a save time")
	}
}

func TestSheetSessionPolicesCanvas(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.Kind = "sheet"
	h := start(t, cfg, nil, 2)
	h.settle()
	c := h.s.Sheet().Canvas()
	// 1200x2200 page at scale 0.5 and DPR 2
	if c.Width != 1200 || c.Height != 2200 {
		t.Fatalf("canvas = %dx%d", c.Width, c.Height)
	}
	if _, ok := c.Style["width"]; ok {
		t.Fatalf("inline css width survived: %v", c.Style)
	}
	if h.s.Guard().Corrections == 0 {
		t.Fatalf("guard did not run")
	}
	f := h.s.Frame()
	if f == nil || f.Bounds().Dx() != 1200 {
		t.Fatalf("frame = %v", f)
	}
	if z := h.s.Sheet().AppState()["zoom"].(map[string]any)["value"]; z != 0.5 {
		t.Fatalf("sheet zoom = %v", z)
	}
}

func TestSheetCanvasClampedToGPULimits(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.Kind = "sheet"
	cfg.Resolution.MaxDimension = 1000
	h := start(t, cfg, nil, 2)
	h.settle()
	c := h.s.Sheet().Canvas()
	if c.Width > 1000 || c.Height > 1000 || c.Width == 0 {
		t.Fatalf("canvas %dx%d exceeds limits", c.Width, c.Height)
	}
}

func TestDPRNeedsResizeToApply(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	h.settle()
	applies := h.s.Surface().Applies()
	h.s.ObserveDPR(2)
	h.settle()
	if d := h.s.Store().State().DevicePixelRatio; d != 1 {
		t.Fatalf("lone DPR change applied: %v", d)
	}
	if n := h.s.Surface().Applies(); n != applies {
		t.Fatalf("lone DPR change refreshed: applies %d -> %d", applies, n)
	}
	h.s.ObserveDPR(1.5)
	h.s.Resize(648, 900)
	if d := h.s.Store().State().DevicePixelRatio; d != 1.5 {
		t.Fatalf("paired DPR change not applied: %v", d)
	}
	h.settle()
	if n := h.s.Surface().Applies(); n != applies+1 {
		t.Fatalf("paired DPR change: applies %d -> %d, want one refresh", applies, n)
	}
}

func TestCenteredPageMapsPointerAndRender(t *testing.T) {
	clock := frame.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	s, err := New(Options{Config: config.Defaults(), Clock: clock, DPR: 1, Viewport: viewmath.Size{W: 1600, H: 900}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close(context.Background())
	s.Store().ResetViewport()

	if got := s.Transform().CSS(); got != "translate3d(200px,0,0) scale(1)" {
		t.Fatalf("transform = %q", got)
	}
	if p := s.ClientToPage(200, 30); p.X != 0 || p.Y != 30 {
		t.Fatalf("page left edge maps to %+v", p)
	}
	if x, y := s.PageToClient(0, 0); x != 200 || y != 0 {
		t.Fatalf("page origin at (%v, %v)", x, y)
	}

	s.SetTool(engine.ToolDraw)
	root := gesture.NewNode(nil, "scroll-root")
	for _, ev := range []gesture.PointerEvent{
		{Event: gesture.Event{Target: root}, Phase: gesture.PointerDown, ClientX: 210, ClientY: 40},
		{Event: gesture.Event{Target: root}, Phase: gesture.PointerUp, ClientX: 260, ClientY: 40},
	} {
		ev := ev
		s.HandlePointer(&ev)
	}
	shapes := s.Ink().Shapes()
	if len(shapes) != 1 || shapes[0].Points[0].X != 10 {
		t.Fatalf("stroke not in page space: %+v", shapes)
	}
}

func TestSaveState(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	if h.s.SaveState() != SaveIdle {
		t.Fatalf("initial = %q", h.s.SaveState())
	}
	h.s.SetSaveState(SaveSaving)
	h.s.SetSaveState("bogus")
	if h.s.SaveState() != SaveSaving {
		t.Fatalf("state = %q", h.s.SaveState())
	}
}

func TestUnknownEngineRejected(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine.Kind = "canvas2d"
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatalf("unknown engine accepted")
	}
}

func TestStatusSummary(t *testing.T) {
	h := start(t, config.Defaults(), nil, 1)
	h.s.SetSaveState(SaveSaved)
	if got, want := h.s.Status(), "50%  fit-width  select  page 1/1  saved"; got != want {
		t.Fatalf("Status = %q, want %q", got, want)
	}
	i := h.s.AddPage()
	if err := h.s.SetPage(i); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if got := h.s.Page(); got.Current != 1 || got.Total != 2 {
		t.Fatalf("page = %+v", got)
	}
}
