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
	"math"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

const (
	DefaultDPRThreshold = 0.1
	DefaultPairWindow   = 500 * time.Millisecond
)

// DPRMonitor tells a monitor change apart from in-place browser zoom. Both
// change the reported DPR, but only a monitor change also resizes the window.
// A DPR change paired with a resize inside the window, in either order,
// fires OnChange once. An unpaired change ages out and becomes the new
// baseline silently.
type DPRMonitor struct {
	clock     frame.Clock
	threshold float64
	window    time.Duration
	onChange  func(dpr float64)
	log       *slog.Logger

	baseline   float64
	pending    float64
	pendingAt  time.Time
	hasPending bool
	resizeAt   time.Time
}

// MonitorOptions configure a DPRMonitor.
type MonitorOptions struct {
	Clock      frame.Clock
	Initial    float64
	Threshold  float64
	PairWindow time.Duration
	OnChange   func(dpr float64)
	Logger     *slog.Logger
}

func NewDPRMonitor(opts MonitorOptions) *DPRMonitor {
	m := &DPRMonitor{
		clock:     opts.Clock,
		threshold: opts.Threshold,
		window:    opts.PairWindow,
		onChange:  opts.OnChange,
		log:       opts.Logger,
		baseline:  opts.Initial,
	}
	if m.clock == nil {
		m.clock = frame.SystemClock{}
	}
	if m.threshold <= 0 {
		m.threshold = DefaultDPRThreshold
	}
	if m.window <= 0 {
		m.window = DefaultPairWindow
	}
	if !viewmath.Finite(m.baseline) || m.baseline <= 0 {
		m.baseline = 1
	}
	if m.log == nil {
		m.log = applog.WithComponent("resolution.dpr")
	}
	return m
}

// Baseline is the DPR the surface is currently sized for.
func (m *DPRMonitor) Baseline() float64 { return m.baseline }

// ObserveDPR records a polled or event-reported device pixel ratio.
func (m *DPRMonitor) ObserveDPR(dpr float64) {
	if !viewmath.Finite(dpr) || dpr <= 0 {
		applog.Once(m.log, "resolution.dpr", "invalid device pixel ratio ignored", slog.Float64("dpr", dpr))
		return
	}
	now := m.clock.Now()
	m.expire(now)
	ref := m.baseline
	if m.hasPending {
		ref = m.pending
	}
	if math.Abs(dpr-ref) < m.threshold {
		return
	}
	m.pending, m.pendingAt, m.hasPending = dpr, now, true
	if !m.resizeAt.IsZero() && now.Sub(m.resizeAt) <= m.window {
		m.fire()
	}
}

// ObserveResize records a window resize.
func (m *DPRMonitor) ObserveResize() {
	now := m.clock.Now()
	m.expire(now)
	m.resizeAt = now
	if m.hasPending {
		m.fire()
	}
}

// Poll ages out stale observations. Hosts call it from their frame tick.
func (m *DPRMonitor) Poll() { m.expire(m.clock.Now()) }

func (m *DPRMonitor) expire(now time.Time) {
	if m.hasPending && now.Sub(m.pendingAt) > m.window {
		m.log.Debug("dpr change without resize, treating as browser zoom", slog.Float64("dpr", m.pending))
		m.baseline = m.pending
		m.hasPending = false
	}
	if !m.resizeAt.IsZero() && now.Sub(m.resizeAt) > m.window {
		m.resizeAt = time.Time{}
	}
}

func (m *DPRMonitor) fire() {
	dpr := m.pending
	m.baseline = dpr
	m.hasPending = false
	m.resizeAt = time.Time{}
	m.log.Info("display pixel ratio changed", slog.Float64("dpr", dpr))
	if m.onChange != nil {
		m.onChange(dpr)
	}
}
