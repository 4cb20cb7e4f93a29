/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"math"
	"testing"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

func newTestStore(c Constraints) *Store {
	return NewStore(Options{Constraints: c, PageSize: viewmath.Size{W: 1200, H: 2200}})
}

func TestSetScaleClampsToConstraints(t *testing.T) {
	s := newTestStore(Constraints{MinScale: 0.5, MaxScale: 3.0, EnablePan: true, EnableZoom: true})
	s.SetScale(10)
	if got := s.State().Scale; got != 3.0 {
		t.Fatalf("SetScale(10) = %v, want 3.0", got)
	}
	s.SetScale(0.01)
	if got := s.State().Scale; got != 0.5 {
		t.Fatalf("SetScale(0.01) = %v, want 0.5", got)
	}
	s.SetScale(math.NaN())
	if got := s.State().Scale; got != 0.5 {
		t.Fatalf("SetScale(NaN) changed scale to %v", got)
	}
	for _, in := range []float64{-4, 0, 1e-9, 2.2, 1e9, math.Inf(1)} {
		s.SetScale(in)
		if got := s.State().Scale; got < 0.5 || got > 3.0 {
			t.Fatalf("SetScale(%v) escaped constraints: %v", in, got)
		}
	}
}

func TestSetConstraintsClampsInOneTransition(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetScale(4)
	var seen []State
	var maxSeen []float64
	cancel := s.Subscribe(func(prev, next State) {
		seen = append(seen, next)
		maxSeen = append(maxSeen, s.Constraints().MaxScale)
	})
	defer cancel()

	s.SetConstraints(Constraints{MinScale: 0.1, MaxScale: 2, EnablePan: true, EnableZoom: true})
	if len(seen) != 1 || seen[0].Scale != 2 || maxSeen[0] != 2 {
		t.Fatalf("transitions = %+v, max scale seen %v", seen, maxSeen)
	}
	// widening keeps the scale, so nothing is published
	s.SetConstraints(DefaultConstraints())
	if len(seen) != 1 {
		t.Fatalf("widening notified: %d transitions", len(seen))
	}
	if got := s.Constraints().MaxScale; got != DefaultConstraints().MaxScale {
		t.Fatalf("constraints not replaced: max %v", got)
	}
}

func TestZoomDisabledIgnoresScale(t *testing.T) {
	s := newTestStore(Constraints{MinScale: 0.1, MaxScale: 8, EnablePan: true, EnableZoom: false})
	s.SetScale(2)
	if got := s.State().Scale; got != 1 {
		t.Fatalf("scale changed with zoom disabled: %v", got)
	}
}

func TestSetViewStateIsOneTransition(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetViewportSize(800, 600)
	var seen []State
	cancel := s.Subscribe(func(prev, next State) { seen = append(seen, next) })
	defer cancel()

	s.SetViewState(viewmath.View{Scale: 2, ScrollX: 300, ScrollY: 700})
	if len(seen) != 1 {
		t.Fatalf("expected one transition, got %d", len(seen))
	}
	st := seen[0]
	if st.Scale != 2 || st.ScrollX != 300 || st.ScrollY != 700 {
		t.Fatalf("transition = %+v", st)
	}
	if st.OffsetX != st.ScrollX || st.OffsetY != st.ScrollY {
		t.Fatalf("offset diverged from scroll: %+v", st)
	}
}

func TestPanRespectsEnablePanAndClamps(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetViewportSize(1000, 800)
	s.Pan(-50, 100)
	st := s.State()
	if st.ScrollX != 0 || st.ScrollY != 100 {
		t.Fatalf("pan = (%v,%v), want (0,100)", st.ScrollX, st.ScrollY)
	}
	s.Pan(0, 1e6)
	if got := s.State().ScrollY; got != 1400 {
		t.Fatalf("pan past end = %v, want 1400", got)
	}

	locked := newTestStore(Constraints{MinScale: 0.1, MaxScale: 8, EnablePan: false, EnableZoom: true})
	locked.SetViewportSize(1000, 800)
	locked.Pan(10, 10)
	if st := locked.State(); st.ScrollX != 0 || st.ScrollY != 0 {
		t.Fatalf("pan applied while disabled: %+v", st)
	}
}

func TestSetScrollSanitizes(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetScroll(math.Inf(-1), 42)
	st := s.State()
	if st.ScrollX != 0 || st.ScrollY != 42 || st.OffsetY != 42 {
		t.Fatalf("scroll = %+v", st)
	}
}

func TestResetAndFitToScreen(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetViewportSize(1100, 1100)
	s.SetViewState(viewmath.View{Scale: 3, ScrollX: 500, ScrollY: 500})

	s.FitToScreen()
	st := s.State()
	if want := 0.5; st.Scale != want {
		t.Fatalf("fit scale = %v, want %v", st.Scale, want)
	}
	if st.FitMode != Free {
		t.Fatalf("fit-to-screen left mode %q", st.FitMode)
	}
	if st.ScrollX != 0 || st.ScrollY != 0 {
		t.Fatalf("fit-to-screen scroll = (%v,%v)", st.ScrollX, st.ScrollY)
	}

	s.SetViewState(viewmath.View{Scale: 2, ScrollX: 100, ScrollY: 100})
	s.ResetViewport()
	st = s.State()
	if st.Scale != 1 || st.ScrollX != 0 || st.ScrollY != 0 || st.OffsetX != 0 {
		t.Fatalf("reset = %+v", st)
	}
}

func TestListenersSeeTransitionsInOrder(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetViewportSize(1000, 800)
	var scales []float64
	// first listener reacts to the first change with a second one
	s.Subscribe(func(prev, next State) {
		if next.Scale == 2 {
			s.SetScale(3)
		}
	})
	s.Subscribe(func(prev, next State) { scales = append(scales, next.Scale) })

	s.SetScale(2)
	if len(scales) != 2 || scales[0] != 2 || scales[1] != 3 {
		t.Fatalf("second listener saw %v, want [2 3]", scales)
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	calls := 0
	cancel := s.Subscribe(func(prev, next State) { calls++ })
	s.SetScale(2)
	cancel()
	s.SetScale(3)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestNoOpActionDoesNotNotify(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	calls := 0
	s.Subscribe(func(prev, next State) { calls++ })
	s.SetScale(1)
	s.SetFitMode(FitWidth)
	s.SetFitMode("zoomy")
	if calls != 0 {
		t.Fatalf("no-op actions notified %d times", calls)
	}
}

func TestPixelRatioFollowsScaleAndDPR(t *testing.T) {
	s := newTestStore(DefaultConstraints())
	s.SetDevicePixelRatio(2)
	s.SetScale(1.5)
	if got := s.State().PixelRatio; got != 3 {
		t.Fatalf("PixelRatio = %v, want 3", got)
	}
	s.SetDevicePixelRatio(math.NaN())
	if got := s.State().DevicePixelRatio; got != 1 {
		t.Fatalf("NaN dpr = %v, want 1", got)
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	a := newTestStore(Constraints{MinScale: 0.25, MaxScale: 4, EnablePan: true, EnableZoom: true})
	a.SetViewportSize(800, 600)
	a.SetViewState(viewmath.View{Scale: 1.75, ScrollX: 120, ScrollY: 340})
	p := a.Prefs()

	b := newTestStore(DefaultConstraints())
	b.SetViewportSize(800, 600)
	b.Restore(p)
	st := b.State()
	if st.Scale != 1.75 || st.ScrollX != 120 || st.ScrollY != 340 {
		t.Fatalf("restored state = %+v", st)
	}
	if c := b.Constraints(); c.MinScale != 0.25 || c.MaxScale != 4 {
		t.Fatalf("restored constraints = %+v", c)
	}

	p.Version = 99
	b.Restore(p)
	if b.State().Scale != 1.75 {
		t.Fatalf("foreign version applied")
	}
}
