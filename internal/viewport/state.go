/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewport owns the page viewport: the single mutable zoom/scroll
// record, the actions allowed to change it, the fit-width policy and the
// read-only values chrome displays.
package viewport

import (
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// FitMode selects whether the scale follows the viewport width or the user.
type FitMode string

const (
	FitWidth FitMode = "fit-width"
	Free     FitMode = "free"
)

// Valid reports whether m is a known mode.
func (m FitMode) Valid() bool { return m == FitWidth || m == Free }

// Default page geometry in CSS pixels.
const (
	DefaultPageWidth  = 1200
	DefaultPageHeight = 2200
)

// State is a snapshot of the viewport. Offset mirrors Scroll at all times and
// is kept for consumers written against the older pan representation.
type State struct {
	Scale   float64
	ScrollX float64
	ScrollY float64
	OffsetX float64
	OffsetY float64

	ViewportSize viewmath.Size // visible scroll area in CSS px
	PageSize     viewmath.Size // logical page, constant across zoom
	VirtualSize  viewmath.Size // scrollable extent used for clamping

	FitMode FitMode

	DevicePixelRatio float64
	// PixelRatio is Scale * DevicePixelRatio.
	PixelRatio float64
}

// View returns the zoom/scroll triple used by viewmath.
func (s State) View() viewmath.View {
	return viewmath.View{Scale: s.Scale, ScrollX: s.ScrollX, ScrollY: s.ScrollY}
}

// Host returns the viewport as a rectangle at the origin.
func (s State) Host() viewmath.Rect {
	return viewmath.Rect{W: s.ViewportSize.W, H: s.ViewportSize.H}
}

// Constraints bound what the user may do with the viewport.
type Constraints struct {
	MinScale   float64
	MaxScale   float64
	EnablePan  bool
	EnableZoom bool
}

// DefaultConstraints returns the constraints used when none are configured.
func DefaultConstraints() Constraints {
	return Constraints{MinScale: 0.1, MaxScale: 8, EnablePan: true, EnableZoom: true}
}

// normalized repairs unusable bounds so clamping is always well defined.
func (c Constraints) normalized() Constraints {
	d := DefaultConstraints()
	if !viewmath.Finite(c.MinScale) || c.MinScale <= 0 {
		c.MinScale = d.MinScale
	}
	if !viewmath.Finite(c.MaxScale) || c.MaxScale <= 0 {
		c.MaxScale = d.MaxScale
	}
	if c.MaxScale < c.MinScale {
		c.MinScale, c.MaxScale = c.MaxScale, c.MinScale
	}
	return c
}

// ClampScale limits s to [MinScale, MaxScale].
func (c Constraints) ClampScale(s float64) float64 {
	return viewmath.Clamp(s, c.MinScale, c.MaxScale)
}
