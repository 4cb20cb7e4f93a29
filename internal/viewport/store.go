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
	"log/slog"
	"math"
	"sync"

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// Listener observes a committed transition. prev and next are complete
// snapshots; a listener never sees scale and scroll from different actions.
type Listener func(prev, next State)

// Options configure a Store.
type Options struct {
	Constraints Constraints
	PageSize    viewmath.Size
	// VirtualPadding is added to the page size to form the scrollable extent.
	VirtualPadding viewmath.Size
	Logger         *slog.Logger
}

// Store is the single writer of the viewport state. Every action is applied
// as one transition under the lock; listeners are notified afterwards, in
// commit order, including transitions caused by other listeners.
type Store struct {
	mu      sync.Mutex
	st      State
	c       Constraints
	padding viewmath.Size
	log     *slog.Logger

	subs   []subscription
	nextID int

	pending     []transition
	dispatching bool
}

type subscription struct {
	id int
	fn Listener
}

type transition struct{ prev, next State }

// NewStore creates the viewport for one workspace session: scale 1 (clamped),
// no scroll, fit-width mode.
func NewStore(opts Options) *Store {
	c := opts.Constraints
	if c == (Constraints{}) {
		c = DefaultConstraints()
	}
	c = c.normalized()
	page := opts.PageSize
	if page.W <= 0 || page.H <= 0 {
		page = viewmath.Size{W: DefaultPageWidth, H: DefaultPageHeight}
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("viewport")
	}
	s := &Store{c: c, padding: opts.VirtualPadding, log: l}
	s.st = State{
		Scale:            c.ClampScale(1),
		PageSize:         page,
		FitMode:          FitWidth,
		DevicePixelRatio: 1,
	}
	s.st.VirtualSize = s.virtualFor(page)
	finalize(&s.st)
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Constraints returns the active constraints.
func (s *Store) Constraints() Constraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

// Subscribe registers fn for every later transition and returns its cancel func.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// SetScale sets the zoom, clamped to the constraints. Scroll is re-clamped to
// the new content extent. No-op when zoom is disabled.
func (s *Store) SetScale(scale float64) {
	s.update(func(st *State, c Constraints) {
		if !c.EnableZoom {
			return
		}
		st.Scale = c.ClampScale(s.sanitize(scale, st.Scale, "scale"))
		st.ScrollX, st.ScrollY = viewmath.ClampScrollPosition(st.ScrollX, st.ScrollY, st.Scale, st.ViewportSize, st.VirtualSize, 0)
	})
}

// SetViewState applies scale and scroll in one transition. This is what
// pointer-anchored zoom commits through. When zoom is disabled only the
// scroll part is applied.
func (s *Store) SetViewState(v viewmath.View) {
	s.update(func(st *State, c Constraints) {
		if c.EnableZoom {
			st.Scale = c.ClampScale(s.sanitize(v.Scale, st.Scale, "scale"))
		}
		x := s.sanitize(v.ScrollX, 0, "scroll")
		y := s.sanitize(v.ScrollY, 0, "scroll")
		st.ScrollX, st.ScrollY = viewmath.ClampScrollPosition(x, y, st.Scale, st.ViewportSize, st.VirtualSize, 0)
	})
}

// Pan moves the view by (dx, dy) zoomed pixels. No-op when pan is disabled.
func (s *Store) Pan(dx, dy float64) {
	s.update(func(st *State, c Constraints) {
		if !c.EnablePan {
			return
		}
		dx = s.sanitize(dx, 0, "pan")
		dy = s.sanitize(dy, 0, "pan")
		st.ScrollX, st.ScrollY = viewmath.ClampScrollPosition(st.ScrollX+dx, st.ScrollY+dy, st.Scale, st.ViewportSize, st.VirtualSize, 0)
	})
}

// SetScroll mirrors a native scroll position into the state.
func (s *Store) SetScroll(x, y float64) {
	s.update(func(st *State, _ Constraints) {
		st.ScrollX = s.sanitize(x, 0, "scroll")
		st.ScrollY = s.sanitize(y, 0, "scroll")
	})
}

// SetFitMode switches between fit-width and free zoom.
func (s *Store) SetFitMode(mode FitMode) {
	if !mode.Valid() {
		applog.Once(s.log, "viewport.fit_mode", "unknown fit mode ignored", slog.String("mode", string(mode)))
		return
	}
	s.update(func(st *State, _ Constraints) { st.FitMode = mode })
}

// SetPageSize sets the logical page size. Non-positive sizes are ignored.
func (s *Store) SetPageSize(w, h float64) {
	if !(w > 0) || !(h > 0) || !viewmath.Finite(w) || !viewmath.Finite(h) {
		applog.Once(s.log, "viewport.page_size", "invalid page size ignored", slog.Float64("w", w), slog.Float64("h", h))
		return
	}
	s.update(func(st *State, _ Constraints) {
		st.PageSize = viewmath.Size{W: w, H: h}
		st.VirtualSize = s.virtualFor(st.PageSize)
	})
}

// SetViewportSize records the measured size of the visible area.
func (s *Store) SetViewportSize(w, h float64) {
	s.update(func(st *State, _ Constraints) {
		st.ViewportSize = viewmath.Size{
			W: math.Max(0, s.sanitize(w, 0, "viewport_size")),
			H: math.Max(0, s.sanitize(h, 0, "viewport_size")),
		}
	})
}

// SetDevicePixelRatio records the display DPR and recomputes PixelRatio.
func (s *Store) SetDevicePixelRatio(dpr float64) {
	s.update(func(st *State, _ Constraints) {
		if !viewmath.Finite(dpr) || dpr <= 0 {
			applog.Once(s.log, "viewport.dpr", "invalid device pixel ratio replaced", slog.Float64("dpr", dpr))
			dpr = 1
		}
		st.DevicePixelRatio = dpr
	})
}

// SetConstraints replaces the constraints and re-clamps the scale.
func (s *Store) SetConstraints(c Constraints) {
	c = c.normalized()
	s.commit(func(st *State) {
		s.c = c
		st.Scale = c.ClampScale(st.Scale)
	})
}

// ResetViewport returns to 100% at the page origin and leaves fit-width mode.
func (s *Store) ResetViewport() {
	s.update(func(st *State, c Constraints) {
		st.Scale = c.ClampScale(1)
		st.ScrollX, st.ScrollY = 0, 0
		st.FitMode = Free
	})
}

// FitToScreen scales the whole page into the viewport and centers it.
// No-op until both the viewport and the page have a size.
func (s *Store) FitToScreen() {
	s.update(func(st *State, c Constraints) {
		vw, vh := st.ViewportSize.W, st.ViewportSize.H
		pw, ph := st.PageSize.W, st.PageSize.H
		if vw <= 0 || vh <= 0 || pw <= 0 || ph <= 0 {
			return
		}
		st.Scale = c.ClampScale(math.Min(vw/pw, vh/ph))
		cx := (pw*st.Scale - vw) / 2
		cy := (ph*st.Scale - vh) / 2
		st.ScrollX, st.ScrollY = viewmath.ClampScrollPosition(cx, cy, st.Scale, st.ViewportSize, st.VirtualSize, 0)
		st.FitMode = Free
	})
}

// Prefs returns the persistable subset of the state.
func (s *Store) Prefs() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Prefs{
		Version:    PrefsVersion,
		Scale:      s.st.Scale,
		ScrollX:    s.st.ScrollX,
		ScrollY:    s.st.ScrollY,
		OffsetX:    s.st.OffsetX,
		OffsetY:    s.st.OffsetY,
		MinScale:   s.c.MinScale,
		MaxScale:   s.c.MaxScale,
		EnablePan:  s.c.EnablePan,
		EnableZoom: s.c.EnableZoom,
	}
}

// Restore applies cached preferences: constraints first, then scale and scroll.
// Records from another version are ignored.
func (s *Store) Restore(p Prefs) {
	if p.Version != PrefsVersion {
		s.log.Warn("viewport prefs version mismatch, ignoring", slog.Int("version", p.Version))
		return
	}
	s.SetConstraints(Constraints{MinScale: p.MinScale, MaxScale: p.MaxScale, EnablePan: p.EnablePan, EnableZoom: p.EnableZoom})
	s.update(func(st *State, c Constraints) {
		st.Scale = c.ClampScale(s.sanitize(p.Scale, st.Scale, "scale"))
		st.ScrollX = s.sanitize(p.ScrollX, 0, "scroll")
		st.ScrollY = s.sanitize(p.ScrollY, 0, "scroll")
	})
}

func (s *Store) update(fn func(st *State, c Constraints)) {
	s.commit(func(st *State) { fn(st, s.c) })
}

// commit runs fn on a copy of the state under the lock, publishes the result
// and dispatches it. fn may also replace s.c.
func (s *Store) commit(fn func(st *State)) {
	s.mu.Lock()
	prev := s.st
	next := prev
	fn(&next)
	finalize(&next)
	if next == prev {
		s.mu.Unlock()
		return
	}
	s.st = next
	s.pending = append(s.pending, transition{prev: prev, next: next})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.pending) > 0 {
		tr := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]subscription(nil), s.subs...)
		s.mu.Unlock()
		for _, sub := range subs {
			sub.fn(tr.prev, tr.next)
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Store) virtualFor(page viewmath.Size) viewmath.Size {
	return viewmath.Size{W: page.W + s.padding.W, H: page.H + s.padding.H}
}

// sanitize replaces a non-finite value with def and reports it once per kind.
func (s *Store) sanitize(v, def float64, kind string) float64 {
	if viewmath.Finite(v) {
		return v
	}
	applog.Once(s.log, "viewport."+kind, "non-finite viewport value replaced", slog.Float64("default", def))
	if !viewmath.Finite(def) {
		return 0
	}
	return def
}

func finalize(st *State) {
	if !viewmath.Finite(st.Scale) || st.Scale <= 0 {
		st.Scale = 1
	}
	st.OffsetX = st.ScrollX
	st.OffsetY = st.ScrollY
	st.PixelRatio = st.Scale * st.DevicePixelRatio
}
