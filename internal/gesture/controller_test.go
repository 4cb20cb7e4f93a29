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
	"math"
	"testing"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

type harness struct {
	store *viewport.Store
	fit   *viewport.FitWidthManager
	clock *frame.ManualClock
	loop  *frame.Loop
	ctl   *Controller
	root  *Node
	strip *Node
	cap   *fakeCapture
}

type fakeCapture struct{ captured map[int]bool }

func (f *fakeCapture) SetPointerCapture(id int)     { f.captured[id] = true }
func (f *fakeCapture) ReleasePointerCapture(id int) { delete(f.captured, id) }

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: frame.NewManualClock(time.Time{})}
	h.loop = frame.NewLoop(h.clock)
	h.store = viewport.NewStore(viewport.Options{PageSize: viewmath.Size{W: 1200, H: 2200}})
	h.fit = viewport.NewFitWidthManager(h.store, 0)
	t.Cleanup(h.fit.Close)
	h.store.SetViewportSize(1000, 800)
	h.cap = &fakeCapture{captured: map[int]bool{}}
	h.ctl = NewController(Options{Store: h.store, Loop: h.loop, Fit: h.fit, Capture: h.cap})
	t.Cleanup(h.ctl.Close)
	h.root = &Node{ID: "scroll-root"}
	h.strip = NewNode(NewNode(h.root, "control-strip"), "button")
	return h
}

func (h *harness) free(t *testing.T) {
	t.Helper()
	h.store.SetFitMode(viewport.Free)
	h.store.ResetViewport()
}

func (h *harness) wheel(x, y, dy float64) *WheelEvent {
	ev := &WheelEvent{ClientX: x, ClientY: y, DeltaY: dy}
	ev.Time = h.clock.Now()
	ev.Target = h.root
	ev.Ctrl = true
	h.ctl.HandleWheel(ev)
	return ev
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestPlainWheelPassesThrough(t *testing.T) {
	h := newHarness(t)
	ev := &WheelEvent{DeltaY: 120}
	ev.Target = h.root
	h.ctl.HandleWheel(ev)
	if ev.DefaultPrevented() || ev.PropagationStopped() {
		t.Fatalf("plain wheel was consumed")
	}
}

func TestWheelZoomKeepsPointerAnchored(t *testing.T) {
	h := newHarness(t)
	h.free(t)
	before := viewmath.WorldPointFromClient(300, 400, h.store.State().Host(), h.store.State().View())

	ev := h.wheel(300, 400, -100)
	if !ev.DefaultPrevented() || !ev.PropagationStopped() {
		t.Fatalf("zoom wheel not consumed")
	}
	if h.store.State().Scale != 1 {
		t.Fatalf("scale committed before the frame")
	}
	h.loop.Tick()

	st := h.store.State()
	if want := math.Exp(0.2); !near(st.Scale, want, 1e-9) {
		t.Fatalf("scale = %v, want %v", st.Scale, want)
	}
	after := viewmath.WorldPointFromClient(300, 400, st.Host(), st.View())
	if !near(before.X, after.X, 0.01) || !near(before.Y, after.Y, 0.01) {
		t.Fatalf("anchor drifted: before %+v after %+v", before, after)
	}
}

func TestWheelEventsCoalescePerFrame(t *testing.T) {
	h := newHarness(t)
	h.free(t)
	transitions := 0
	h.store.Subscribe(func(prev, next viewport.State) { transitions++ })

	h.wheel(500, 400, -100)
	h.clock.Advance(10 * time.Millisecond)
	h.wheel(500, 400, -100)
	h.loop.Tick()

	if transitions != 1 {
		t.Fatalf("transitions = %d, want 1", transitions)
	}
	first := math.Exp(0.2)
	want := first * math.Exp(100*viewmath.AdaptiveZoomSensitivity(first))
	if got := h.store.State().Scale; !near(got, want, 1e-9) {
		t.Fatalf("scale = %v, want %v", got, want)
	}
}

func TestFitWidthExitsAfterThreeNudges(t *testing.T) {
	h := newHarness(t)
	fit := h.store.State().Scale
	if !near(fit, 1000.0/1200.0, 1e-12) {
		t.Fatalf("fit scale = %v", fit)
	}

	for i := 0; i < 2; i++ {
		h.wheel(500, 400, -100)
		h.clock.Advance(300 * time.Millisecond)
		h.loop.Tick()
		if st := h.store.State(); st.FitMode != viewport.FitWidth || st.Scale != fit {
			t.Fatalf("nudge %d changed the view: %+v", i+1, st)
		}
	}
	h.wheel(500, 400, -100)
	h.loop.Tick()
	st := h.store.State()
	if st.FitMode != viewport.Free {
		t.Fatalf("mode = %q after third nudge, want free", st.FitMode)
	}
	if want := fit * math.Exp(0.2); !near(st.Scale, want, 1e-9) {
		t.Fatalf("scale = %v, want %v", st.Scale, want)
	}
}

func TestFitWidthNudgesResetAfterPause(t *testing.T) {
	h := newHarness(t)
	h.wheel(500, 400, -100)
	h.clock.Advance(300 * time.Millisecond)
	h.wheel(500, 400, -100)
	h.clock.Advance(2100 * time.Millisecond)
	h.wheel(500, 400, -100)
	h.loop.Tick()
	if st := h.store.State(); st.FitMode != viewport.FitWidth {
		t.Fatalf("left fit-width after a pause: %q", st.FitMode)
	}
}

func TestChromeBlocksZoom(t *testing.T) {
	h := newHarness(t)
	h.free(t)
	ev := &WheelEvent{ClientX: 10, ClientY: 10, DeltaY: -500}
	ev.Ctrl = true
	ev.Target = h.strip
	h.ctl.HandleWheel(ev)
	if !ev.DefaultPrevented() {
		t.Fatalf("browser zoom not prevented in chrome")
	}
	h.loop.Tick()
	if h.store.State().Scale != 1 {
		t.Fatalf("chrome wheel zoomed")
	}

	key := &KeyEvent{Key: "="}
	key.Meta = true
	key.Target = h.strip
	h.ctl.HandleKey(key)
	h.loop.Tick()
	if h.store.State().Scale != 1 {
		t.Fatalf("chrome shortcut zoomed")
	}
}

func TestPinchUsesBaselineAnchor(t *testing.T) {
	h := newHarness(t)
	h.free(t)
	before := viewmath.WorldPointFromClient(400, 300, h.store.State().Host(), h.store.State().View())

	start := &GestureEvent{Phase: GestureStart, ClientX: 400, ClientY: 300, HasPointer: true}
	start.Target = h.root
	h.ctl.HandleGesture(start)
	change := &GestureEvent{Phase: GestureChange, Scale: 2}
	change.Target = h.root
	h.ctl.HandleGesture(change)
	h.loop.Tick()

	st := h.store.State()
	if st.Scale != 2 {
		t.Fatalf("pinch scale = %v, want 2", st.Scale)
	}
	after := viewmath.WorldPointFromClient(400, 300, st.Host(), st.View())
	if !near(before.X, after.X, 0.01) || !near(before.Y, after.Y, 0.01) {
		t.Fatalf("pinch anchor drifted: %+v -> %+v", before, after)
	}
	end := &GestureEvent{Phase: GestureEnd}
	h.ctl.HandleGesture(end)
	if h.ctl.pinch != nil {
		t.Fatalf("baseline kept after gestureend")
	}
}

func TestHandToolPan(t *testing.T) {
	h := newHarness(t)
	h.free(t)

	down := &PointerEvent{Phase: PointerDown, PointerID: 7, ClientX: 500, ClientY: 400}
	down.Target = h.root
	h.ctl.HandlePointer(down)
	if down.PropagationStopped() || h.ctl.Panning() {
		t.Fatalf("pan started without the hand tool")
	}

	h.ctl.SetHandTool(true)
	h.ctl.HandlePointer(down)
	if !h.ctl.Panning() || !h.cap.captured[7] {
		t.Fatalf("pointer not captured")
	}
	for _, p := range [][2]float64{{480, 380}, {450, 350}, {400, 300}} {
		m := &PointerEvent{Phase: PointerMove, PointerID: 7, ClientX: p[0], ClientY: p[1]}
		h.ctl.HandlePointer(m)
	}
	h.loop.Tick()
	st := h.store.State()
	if st.ScrollX != 100 || st.ScrollY != 100 {
		t.Fatalf("scroll = (%v,%v), want (100,100)", st.ScrollX, st.ScrollY)
	}

	up := &PointerEvent{Phase: PointerUp, PointerID: 7, ClientX: 350, ClientY: 300}
	h.ctl.HandlePointer(up)
	if h.ctl.Panning() || h.cap.captured[7] {
		t.Fatalf("pointer capture not released")
	}
	if got := h.store.State().ScrollX; got != 150 {
		t.Fatalf("final move not flushed on up: scrollX %v", got)
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	h := newHarness(t)

	in := &KeyEvent{Key: "="}
	in.Ctrl = true
	in.Target = h.root
	h.ctl.HandleKey(in)
	h.loop.Tick()
	st := h.store.State()
	if st.FitMode != viewport.Free {
		t.Fatalf("keyboard zoom kept fit-width")
	}
	if want := (1000.0 / 1200.0) * 1.1; !near(st.Scale, want, 1e-9) {
		t.Fatalf("zoom in = %v, want %v", st.Scale, want)
	}

	reset := &KeyEvent{Key: "0"}
	reset.Ctrl = true
	h.ctl.HandleKey(reset)
	if got := h.store.State().Scale; got != 1 {
		t.Fatalf("reset scale = %v", got)
	}

	out := &KeyEvent{Key: "-"}
	out.Meta = true
	h.ctl.HandleKey(out)
	h.loop.Tick()
	if want := 1 / 1.1; !near(h.store.State().Scale, want, 1e-9) {
		t.Fatalf("zoom out = %v, want %v", h.store.State().Scale, want)
	}

	typing := &KeyEvent{Key: "f"}
	typing.Target = &Node{Editable: true}
	h.ctl.HandleKey(typing)
	if typing.DefaultPrevented() {
		t.Fatalf("f consumed inside an editable target")
	}

	fit := &KeyEvent{Key: "f"}
	fit.Target = h.root
	h.ctl.HandleKey(fit)
	if want := 800.0 / 2200.0; !near(h.store.State().Scale, want, 1e-9) {
		t.Fatalf("fit to screen = %v, want %v", h.store.State().Scale, want)
	}
}

func TestClosest(t *testing.T) {
	root := &Node{ID: "app"}
	strip := NewNode(root, "panel", "control-strip")
	btn := NewNode(strip)
	if btn.Closest(".control-strip") != strip {
		t.Fatalf("class match failed")
	}
	if btn.Closest("#app") != root {
		t.Fatalf("id match failed")
	}
	if root.Closest(".control-strip") != nil {
		t.Fatalf("matched outside ancestry")
	}
	var nilNode *Node
	if nilNode.Closest(".x") != nil {
		t.Fatalf("nil node matched")
	}
}
