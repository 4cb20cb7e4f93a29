/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package resolution

import (
	"log/slog"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// Options configure a Manager. Surface and Loop are required.
type Options struct {
	Surface Surface
	Loop    *frame.Loop
	Limits  Limits
	// PageSize is the constant logical size of the page.
	PageSize viewmath.Size
	// ResizeDebounce delays refreshes after container resizes.
	ResizeDebounce time.Duration
	// OnApply is called after a new backing store was applied.
	OnApply func(State)
	Logger  *slog.Logger
}

// Manager keeps the interactive surface's backing store matched to the zoom
// and device pixel ratio. Refreshes are coalesced to one per frame and skipped
// when nothing visible would change.
type Manager struct {
	surface Surface
	lim     Limits
	log     *slog.Logger
	onApply func(State)

	refresh *frame.Coalescer
	resize  *frame.Debouncer

	page  viewmath.Size
	dpr   float64
	scale float64

	applied bool
	last    State
}

// NewManager creates a manager for the interactive surface. Any static layer
// an engine has is never handed to the manager.
func NewManager(opts Options) *Manager {
	page := opts.PageSize
	if page.W <= 0 || page.H <= 0 {
		page = viewmath.Size{W: 1200, H: 2200}
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("resolution")
	}
	return &Manager{
		surface: opts.Surface,
		lim:     opts.Limits.normalized(),
		log:     l,
		onApply: opts.OnApply,
		refresh: frame.NewCoalescer(opts.Loop),
		resize:  frame.NewDebouncer(opts.Loop, opts.ResizeDebounce),
		page:    page,
		dpr:     1,
		scale:   1,
	}
}

// Update records the inputs and schedules a refresh.
func (m *Manager) Update(dpr, scale float64) {
	if viewmath.Finite(dpr) && dpr > 0 {
		m.dpr = dpr
	}
	if viewmath.Finite(scale) && scale > 0 {
		m.scale = scale
	}
	m.ScheduleRefresh()
}

// SetPageSize changes the logical size, e.g. when the document page changes.
func (m *Manager) SetPageSize(w, h float64) {
	if !(w > 0) || !(h > 0) {
		return
	}
	m.page = viewmath.Size{W: w, H: h}
	m.ScheduleRefresh()
}

// ScheduleRefresh runs Refresh on the next frame. Repeated calls before the
// frame collapse into one.
func (m *Manager) ScheduleRefresh() {
	m.refresh.Schedule(func() { m.Refresh() })
}

// ContainerResized schedules a refresh once resizes have settled.
func (m *Manager) ContainerResized() {
	m.resize.Trigger(m.ScheduleRefresh)
}

// Refresh recomputes the backing store and applies it when it differs from
// the last applied one. It reports whether the surface was written.
func (m *Manager) Refresh() bool {
	next := Plan(m.page, m.dpr, m.scale, m.lim)
	if m.applied && next.Same(m.last, m.lim.Tolerance) {
		return false
	}
	if next.Reduced {
		m.log.Info("backing store reduced to GPU limits",
			slog.Float64("requested_dpr", m.dpr*m.scale),
			slog.Float64("effective_dpr", next.EffectiveDPR),
			slog.Int("w", next.PhysicalWidth), slog.Int("h", next.PhysicalHeight))
	}
	if err := m.surface.Apply(next.PhysicalWidth, next.PhysicalHeight, next.EffectiveDPR); err != nil {
		m.log.Warn("backing store apply failed, falling back to DPR 1", slog.Any("err", err))
		fb := fallbackPlan(m.page, m.lim)
		if m.applied && fb.Same(m.last, m.lim.Tolerance) {
			return false
		}
		if err := m.surface.Apply(fb.PhysicalWidth, fb.PhysicalHeight, fb.EffectiveDPR); err != nil {
			m.log.Error("fallback backing store failed, keeping previous", slog.Any("err", err))
			return false
		}
		next = fb
	}
	m.last = next
	m.applied = true
	m.log.Debug("backing store applied", slog.Int("w", next.PhysicalWidth), slog.Int("h", next.PhysicalHeight), slog.Float64("dpr", next.EffectiveDPR))
	if m.onApply != nil {
		m.onApply(next)
	}
	return true
}

// State returns the last applied resolution. ok is false before the first
// successful apply.
func (m *Manager) State() (st State, ok bool) { return m.last, m.applied }

// MarkDrawn clears NeedsRedraw once the engine repainted the new store.
func (m *Manager) MarkDrawn() { m.last.NeedsRedraw = false }

// Close cancels pending refreshes.
func (m *Manager) Close() {
	m.refresh.Cancel()
	m.resize.Cancel()
}
