/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewmath holds the pure coordinate math behind the page viewport:
// client/world conversion, scroll clamping, pointer-anchored zoom and the
// tuned zoom-feel tables. Nothing here keeps state.
package viewmath

import "math"

// Point is a 2D coordinate.
type Point struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle, origin at the top-left corner.
type Rect struct{ X, Y, W, H float64 }

// View is the part of the viewport state the math needs: zoom and the
// top-left content offset in zoomed pixels.
type View struct {
	Scale   float64
	ScrollX float64
	ScrollY float64
}

// DeltaMode mirrors the wheel event delta unit.
type DeltaMode int

const (
	DeltaPixel DeltaMode = iota
	DeltaLine
	DeltaPage
)

const (
	// LineHeightPx is the pixel size of one wheel "line".
	LineHeightPx = 16.0
	// SnapZeroPx is the distance from zero below which a scroll value snaps to 0.
	SnapZeroPx = 0.5

	DefaultScaleEpsilon = 0.002
	DefaultFitEpsilon   = 0.02
)

// WorldPointFromClient converts a client coordinate into content (world) space.
func WorldPointFromClient(clientX, clientY float64, host Rect, view View) Point {
	s := SafeScale(view.Scale)
	return Point{
		X: (clientX-host.X)/s + view.ScrollX/s,
		Y: (clientY-host.Y)/s + view.ScrollY/s,
	}
}

// ZoomAtClientPoint returns the view after changing the scale to newScale while
// keeping the world point under (clientX, clientY) fixed on screen.
func ZoomAtClientPoint(clientX, clientY, newScale float64, cur View, host Rect, viewport, content Size) View {
	oldScale := SafeScale(cur.Scale)
	newScale = SafeScale(newScale)
	mx := clientX - host.X
	my := clientY - host.Y
	ratio := newScale / oldScale
	sx := (cur.ScrollX+mx)*ratio - mx
	sy := (cur.ScrollY+my)*ratio - my
	sx, sy = ClampScrollPosition(sx, sy, newScale, viewport, content, 0)
	return View{Scale: newScale, ScrollX: sx, ScrollY: sy}
}

// ClampScrollPosition bounds scroll to [-gutter, scaled-viewport+gutter] on each
// axis. Values within half a pixel of zero are snapped to zero.
func ClampScrollPosition(scrollX, scrollY, scale float64, viewport, content Size, gutter float64) (float64, float64) {
	s := SafeScale(scale)
	x := clampAxis(scrollX, content.W*s, viewport.W, gutter)
	y := clampAxis(scrollY, content.H*s, viewport.H, gutter)
	return x, y
}

func clampAxis(v, scaled, view, gutter float64) float64 {
	if !Finite(v) {
		v = 0
	}
	lo := -gutter
	hi := scaled - view + gutter
	if hi < lo {
		hi = lo
	}
	v = Clamp(v, lo, hi)
	if math.Abs(v) < SnapZeroPx {
		v = 0
	}
	return v
}

// IsSignificantScaleChange reports whether the change is large enough to be seen.
// eps <= 0 selects DefaultScaleEpsilon.
func IsSignificantScaleChange(oldScale, newScale, eps float64) bool {
	if eps <= 0 {
		eps = DefaultScaleEpsilon
	}
	return math.Abs(newScale-oldScale) > eps
}

// HasDeviatedFromFitWidth reports whether current differs from the fit-width
// scale by more than eps relative to it. eps <= 0 selects DefaultFitEpsilon.
func HasDeviatedFromFitWidth(current, fitScale, eps float64) bool {
	if eps <= 0 {
		eps = DefaultFitEpsilon
	}
	if fitScale <= 0 || !Finite(fitScale) {
		return false
	}
	return math.Abs(current-fitScale)/fitScale > eps
}

// NormalizedDeltaY converts a wheel delta into pixels so zoom speed does not
// depend on the platform's delta unit.
func NormalizedDeltaY(deltaY float64, mode DeltaMode, viewportHeight float64) float64 {
	if !Finite(deltaY) {
		return 0
	}
	switch mode {
	case DeltaLine:
		return deltaY * LineHeightPx
	case DeltaPage:
		if viewportHeight <= 0 || !Finite(viewportHeight) {
			viewportHeight = 800
		}
		return deltaY * viewportHeight
	default:
		return deltaY
	}
}

// AdaptiveZoomSensitivity is the wheel sensitivity for the given scale: coarse
// when far zoomed out, finer around and above 100%.
// Tuned by feel; the breakpoints carry no derivation.
func AdaptiveZoomSensitivity(scale float64) float64 {
	switch {
	case scale < 0.25:
		return 0.0040
	case scale < 0.5:
		return 0.0030
	case scale < 2.0:
		return 0.0020
	case scale < 4.0:
		return 0.0015
	default:
		return 0.0012
	}
}

// AdaptiveZoomStep is the multiplicative keyboard zoom step (fraction of the
// current scale) for the given scale.
func AdaptiveZoomStep(scale float64) float64 {
	switch {
	case scale < 0.25:
		return 0.20
	case scale < 0.5:
		return 0.15
	case scale < 2.0:
		return 0.10
	case scale < 4.0:
		return 0.05
	default:
		return 0.03
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SafeScale maps unusable scales (zero, negative, non-finite) to 1.
func SafeScale(s float64) float64 {
	if !Finite(s) || s <= 0 {
		return 1
	}
	return s
}
