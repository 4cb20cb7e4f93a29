/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"log/slog"
	"math"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

// DefaultChromeSelector marks regions where zoom input is inert.
const DefaultChromeSelector = ".control-strip"

// Tunables are the feel constants of the zoom gestures. They were tuned by
// hand; nothing depends on their exact values for correctness.
type Tunables struct {
	// AccumulatorReset starts a new wheel gesture after this much idle time.
	AccumulatorReset time.Duration
	// NudgeWindow is the idle time after which the fit-width nudge count resets.
	NudgeWindow time.Duration
	// NudgesToExit deviating zoom events leave fit-width mode.
	NudgesToExit int
	ScaleEpsilon float64
	FitEpsilon   float64
}

// DefaultTunables returns the shipped gesture feel.
func DefaultTunables() Tunables {
	return Tunables{
		AccumulatorReset: 200 * time.Millisecond,
		NudgeWindow:      2000 * time.Millisecond,
		NudgesToExit:     3,
		ScaleEpsilon:     viewmath.DefaultScaleEpsilon,
		FitEpsilon:       viewmath.DefaultFitEpsilon,
	}
}

// FitScaler reports the live fit-width scale.
type FitScaler interface {
	FitScale() (float64, bool)
}

// PointerCapturer routes a pointer's events to the scroll root while panning.
type PointerCapturer interface {
	SetPointerCapture(pointerID int)
	ReleasePointerCapture(pointerID int)
}

// Options configure a Controller. Store and Loop are required.
type Options struct {
	Store *viewport.Store
	Loop  *frame.Loop
	Fit   FitScaler
	// HostRect returns the scroll root in client coordinates. Defaults to the
	// viewport at the origin.
	HostRect       func() viewmath.Rect
	Capture        PointerCapturer
	ChromeSelector string
	Tunables       Tunables
	Logger         *slog.Logger
}

// Controller is the one state machine for every zoom and pan input channel.
// It must be driven from the goroutine that ticks its Loop.
type Controller struct {
	store    *viewport.Store
	loop     *frame.Loop
	fit      FitScaler
	hostRect func() viewmath.Rect
	capture  PointerCapturer
	chrome   string
	tun      Tunables
	log      *slog.Logger

	commit    *frame.Coalescer
	// target is the view the pending frame will commit.
	target    viewmath.View
	hasTarget bool
	exitFit   bool

	wheelAccum float64
	lastWheel  time.Time

	nudges    int
	lastNudge time.Time

	pinch *pinchBaseline

	handActive bool
	pan        *panState
	panCommit  *frame.Coalescer
}

type pinchBaseline struct {
	scale            float64
	clientX, clientY float64
}

type panState struct {
	pointerID        int
	world            viewmath.Point
	clientX, clientY float64
}

// NewController binds the gesture state machine to a store.
func NewController(opts Options) *Controller {
	t := opts.Tunables
	d := DefaultTunables()
	if t.AccumulatorReset <= 0 {
		t.AccumulatorReset = d.AccumulatorReset
	}
	if t.NudgeWindow <= 0 {
		t.NudgeWindow = d.NudgeWindow
	}
	if t.NudgesToExit <= 0 {
		t.NudgesToExit = d.NudgesToExit
	}
	if t.ScaleEpsilon <= 0 {
		t.ScaleEpsilon = d.ScaleEpsilon
	}
	if t.FitEpsilon <= 0 {
		t.FitEpsilon = d.FitEpsilon
	}
	c := &Controller{
		store:    opts.Store,
		loop:     opts.Loop,
		fit:      opts.Fit,
		hostRect: opts.HostRect,
		capture:  opts.Capture,
		chrome:   opts.ChromeSelector,
		tun:      t,
		log:      opts.Logger,
	}
	if c.chrome == "" {
		c.chrome = DefaultChromeSelector
	}
	if c.log == nil {
		c.log = applog.WithComponent("gesture")
	}
	if c.hostRect == nil {
		c.hostRect = func() viewmath.Rect { return c.store.State().Host() }
	}
	c.commit = frame.NewCoalescer(c.loop)
	c.panCommit = frame.NewCoalescer(c.loop)
	return c
}

// SetHandTool tells the controller whether the hand tool is selected. Leaving
// the hand tool ends an active pan.
func (c *Controller) SetHandTool(active bool) {
	c.handActive = active
	if !active {
		c.endPan()
	}
}

// HandActive reports whether hand-tool panning is armed.
func (c *Controller) HandActive() bool { return c.handActive }

// Panning reports whether a pointer is currently dragging the view.
func (c *Controller) Panning() bool { return c.pan != nil }

// Close cancels pending frame commits.
func (c *Controller) Close() {
	c.commit.Cancel()
	c.panCommit.Cancel()
	c.hasTarget = false
	c.endPan()
}

func (c *Controller) inChrome(n *Node) bool { return n.Closest(c.chrome) != nil }

func (c *Controller) now(t time.Time) time.Time {
	if t.IsZero() {
		return c.loop.Clock().Now()
	}
	return t
}

// base is the view the next zoom step builds on: the pending target when a
// commit is queued, the store otherwise.
func (c *Controller) base() (viewport.State, viewmath.View) {
	st := c.store.State()
	if c.hasTarget {
		return st, c.target
	}
	return st, st.View()
}

// HandleWheel processes a wheel event. Ctrl/Cmd+wheel is a zoom intent and is
// consumed; other wheel events pass through for native scrolling.
func (c *Controller) HandleWheel(ev *WheelEvent) {
	if !ev.Command() {
		return
	}
	ev.consume()
	if c.inChrome(ev.Target) || !c.store.Constraints().EnableZoom {
		return
	}
	now := c.now(ev.Time)
	if c.lastWheel.IsZero() || now.Sub(c.lastWheel) > c.tun.AccumulatorReset {
		c.wheelAccum = 0
	}
	c.lastWheel = now

	st, view := c.base()
	delta := viewmath.NormalizedDeltaY(ev.DeltaY, ev.DeltaMode, st.ViewportSize.H)
	if !viewmath.Finite(delta) {
		applog.Once(c.log, "gesture.wheel_delta", "non-finite wheel delta ignored")
		return
	}
	c.wheelAccum += delta
	factor := math.Exp(-c.wheelAccum * viewmath.AdaptiveZoomSensitivity(view.Scale))
	newScale := c.store.Constraints().ClampScale(view.Scale * factor)
	if !viewmath.IsSignificantScaleChange(view.Scale, newScale, c.tun.ScaleEpsilon) {
		return
	}
	switch c.fitGate(st, newScale, now) {
	case gateHold:
		return
	case gateConsumed:
		c.wheelAccum = 0
		return
	}
	c.wheelAccum = 0
	c.zoomTo(ev.ClientX, ev.ClientY, newScale, view, st)
}

// HandleGesture processes a platform pinch gesture.
func (c *Controller) HandleGesture(ev *GestureEvent) {
	switch ev.Phase {
	case GestureStart:
		ev.consume()
		if c.inChrome(ev.Target) {
			return
		}
		c.startPinch(ev)
	case GestureChange:
		ev.consume()
		if c.inChrome(ev.Target) || !c.store.Constraints().EnableZoom {
			return
		}
		if c.pinch == nil {
			c.startPinch(ev)
		}
		if !viewmath.Finite(ev.Scale) || ev.Scale <= 0 {
			applog.Once(c.log, "gesture.pinch_scale", "invalid pinch scale ignored", slog.Float64("scale", ev.Scale))
			return
		}
		st, view := c.base()
		newScale := c.store.Constraints().ClampScale(c.pinch.scale * ev.Scale)
		if !viewmath.IsSignificantScaleChange(view.Scale, newScale, c.tun.ScaleEpsilon) {
			return
		}
		if c.fitGate(st, newScale, c.now(ev.Time)) != gateApply {
			return
		}
		c.zoomTo(c.pinch.clientX, c.pinch.clientY, newScale, view, st)
	case GestureEnd:
		ev.consume()
		c.pinch = nil
	}
}

func (c *Controller) startPinch(ev *GestureEvent) {
	st, view := c.base()
	x, y := ev.ClientX, ev.ClientY
	if !ev.HasPointer || !viewmath.Finite(x) || !viewmath.Finite(y) {
		x, y = c.center(st)
	}
	c.pinch = &pinchBaseline{scale: view.Scale, clientX: x, clientY: y}
}

type gate int

const (
	gateApply gate = iota
	// gateHold keeps accumulating input without counting a nudge.
	gateHold
	// gateConsumed counted a nudge; the input is dropped.
	gateConsumed
)

// fitGate applies fit-width hysteresis. In free mode every zoom applies. In
// fit-width mode a zoom within FitEpsilon of the fit scale is held, and only
// the NudgesToExit-th deviating zoom inside NudgeWindow leaves fit-width.
func (c *Controller) fitGate(st viewport.State, newScale float64, now time.Time) gate {
	if st.FitMode != viewport.FitWidth || c.exitFit {
		return gateApply
	}
	if c.fit != nil {
		fit, ok := c.fit.FitScale()
		if ok && !viewmath.HasDeviatedFromFitWidth(newScale, fit, c.tun.FitEpsilon) {
			return gateHold
		}
	}
	if c.lastNudge.IsZero() || now.Sub(c.lastNudge) > c.tun.NudgeWindow {
		c.nudges = 0
	}
	c.nudges++
	c.lastNudge = now
	if c.nudges < c.tun.NudgesToExit {
		c.log.Debug("fit-width nudge", slog.Int("count", c.nudges))
		return gateConsumed
	}
	c.nudges = 0
	c.lastNudge = time.Time{}
	c.exitFit = true
	c.log.Debug("leaving fit-width after repeated zoom")
	return gateApply
}

// zoomTo queues a pointer-anchored view change for the next frame.
func (c *Controller) zoomTo(clientX, clientY, newScale float64, view viewmath.View, st viewport.State) {
	next := viewmath.ZoomAtClientPoint(clientX, clientY, newScale, view, c.hostRect(), st.ViewportSize, st.VirtualSize)
	c.target = next
	c.hasTarget = true
	c.commit.Schedule(c.flushZoom)
}

func (c *Controller) flushZoom() {
	if !c.hasTarget {
		return
	}
	v := c.target
	c.hasTarget = false
	if c.exitFit {
		c.exitFit = false
		c.store.SetFitMode(viewport.Free)
	}
	c.store.SetViewState(v)
}

// HandlePointer drives hand-tool panning.
func (c *Controller) HandlePointer(ev *PointerEvent) {
	switch ev.Phase {
	case PointerDown:
		if !c.handActive || !c.store.Constraints().EnablePan || ev.Button != 0 || c.inChrome(ev.Target) {
			return
		}
		ev.consume()
		st := c.store.State()
		c.pan = &panState{
			pointerID: ev.PointerID,
			world:     viewmath.WorldPointFromClient(ev.ClientX, ev.ClientY, c.hostRect(), st.View()),
			clientX:   ev.ClientX,
			clientY:   ev.ClientY,
		}
		if c.capture != nil {
			c.capture.SetPointerCapture(ev.PointerID)
		}
	case PointerMove:
		if c.pan == nil || ev.PointerID != c.pan.pointerID {
			return
		}
		ev.consume()
		c.pan.clientX, c.pan.clientY = ev.ClientX, ev.ClientY
		c.panCommit.Schedule(c.flushPan)
	case PointerUp, PointerCancel:
		if c.pan == nil || ev.PointerID != c.pan.pointerID {
			return
		}
		ev.consume()
		flush := c.panCommit.Pending()
		if ev.Phase == PointerUp {
			c.pan.clientX, c.pan.clientY = ev.ClientX, ev.ClientY
			flush = true
		}
		c.panCommit.Cancel()
		if flush {
			c.flushPan()
		}
		c.endPan()
	}
}

// flushPan keeps the world point grabbed on pointer-down under the latest
// pointer position.
func (c *Controller) flushPan() {
	if c.pan == nil {
		return
	}
	st := c.store.State()
	now := viewmath.WorldPointFromClient(c.pan.clientX, c.pan.clientY, c.hostRect(), st.View())
	dx := (c.pan.world.X - now.X) * st.Scale
	dy := (c.pan.world.Y - now.Y) * st.Scale
	if dx == 0 && dy == 0 {
		return
	}
	c.store.Pan(dx, dy)
}

func (c *Controller) endPan() {
	if c.pan == nil {
		return
	}
	if c.capture != nil {
		c.capture.ReleasePointerCapture(c.pan.pointerID)
	}
	c.panCommit.Cancel()
	c.pan = nil
}

// HandleKey processes the zoom shortcuts. Shortcuts typed inside chrome are
// swallowed without acting; "f" is ignored while typing.
func (c *Controller) HandleKey(ev *KeyEvent) {
	switch {
	case ev.Command() && (ev.Key == "0" || ev.Key == "+" || ev.Key == "=" || ev.Key == "-"):
		ev.consume()
		if c.inChrome(ev.Target) {
			return
		}
		if ev.Key == "0" {
			c.cancelZoom()
			c.store.ResetViewport()
			return
		}
		c.keyZoom(ev.Key != "-")
	case !ev.Command() && !ev.Alt && (ev.Key == "f" || ev.Key == "F"):
		if ev.Target.IsEditable() || c.inChrome(ev.Target) {
			return
		}
		ev.consume()
		c.cancelZoom()
		c.store.FitToScreen()
	}
}

func (c *Controller) keyZoom(in bool) {
	if !c.store.Constraints().EnableZoom {
		return
	}
	st, view := c.base()
	step := 1 + viewmath.AdaptiveZoomStep(view.Scale)
	newScale := view.Scale * step
	if !in {
		newScale = view.Scale / step
	}
	newScale = c.store.Constraints().ClampScale(newScale)
	if !viewmath.IsSignificantScaleChange(view.Scale, newScale, c.tun.ScaleEpsilon) {
		return
	}
	if st.FitMode == viewport.FitWidth {
		c.exitFit = true
	}
	cx, cy := c.center(st)
	c.zoomTo(cx, cy, newScale, view, st)
}

// center is the middle of the host rect, or of the viewport when the host
// reports no size.
func (c *Controller) center(st viewport.State) (float64, float64) {
	h := c.hostRect()
	w, ht := h.W, h.H
	if w <= 0 {
		w = st.ViewportSize.W
	}
	if ht <= 0 {
		ht = st.ViewportSize.H
	}
	return h.X + w/2, h.Y + ht/2
}

func (c *Controller) cancelZoom() {
	c.commit.Cancel()
	c.hasTarget = false
	c.exitFit = false
}
