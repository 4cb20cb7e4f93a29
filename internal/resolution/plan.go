/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package resolution sizes the drawing surface backing store for the current
// zoom and device pixel ratio while staying inside GPU raster limits.
package resolution

import (
	"math"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// Limits bound the backing store.
type Limits struct {
	MinDPR       float64
	MaxDPR       float64
	MaxDimension int
	MaxPixels    int64
	// Tolerance is the DPR difference below which a plan counts as unchanged.
	Tolerance float64
}

// DefaultLimits are safe for every GPU the app targets.
func DefaultLimits() Limits {
	return Limits{
		MinDPR:       0.75,
		MaxDPR:       3.0,
		MaxDimension: 16384,
		MaxPixels:    268_435_456,
		Tolerance:    0.01,
	}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if !(l.MinDPR > 0) {
		l.MinDPR = d.MinDPR
	}
	if !(l.MaxDPR > 0) {
		l.MaxDPR = d.MaxDPR
	}
	if l.MaxDPR < l.MinDPR {
		l.MinDPR, l.MaxDPR = l.MaxDPR, l.MinDPR
	}
	if l.MaxDimension <= 0 {
		l.MaxDimension = d.MaxDimension
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = d.MaxPixels
	}
	if !(l.Tolerance > 0) {
		l.Tolerance = d.Tolerance
	}
	return l
}

// State is the resolution last computed for the interactive surface.
type State struct {
	LogicalWidth   float64
	LogicalHeight  float64
	PhysicalWidth  int
	PhysicalHeight int
	EffectiveDPR   float64
	NeedsRedraw    bool
	// Reduced is set when the GPU guard lowered the DPR.
	Reduced bool
}

// Same reports whether s and o would produce an identical backing store.
func (s State) Same(o State, tol float64) bool {
	return s.PhysicalWidth == o.PhysicalWidth && s.PhysicalHeight == o.PhysicalHeight &&
		math.Abs(s.EffectiveDPR-o.EffectiveDPR) <= tol
}

// Plan computes the backing store for a logical page drawn at dpr*scale.
func Plan(logical viewmath.Size, dpr, scale float64, lim Limits) State {
	lim = lim.normalized()
	if !viewmath.Finite(dpr) || dpr <= 0 {
		dpr = 1
	}
	scale = viewmath.SafeScale(scale)
	lw, lh := math.Max(1, logical.W), math.Max(1, logical.H)

	eff := viewmath.Clamp(dpr*scale, lim.MinDPR, lim.MaxDPR)
	w := int(math.Round(lw * eff))
	h := int(math.Round(lh * eff))
	st := State{LogicalWidth: lw, LogicalHeight: lh, PhysicalWidth: w, PhysicalHeight: h, EffectiveDPR: eff, NeedsRedraw: true}

	largest := math.Max(float64(w), float64(h))
	total := float64(w) * float64(h)
	if largest <= float64(lim.MaxDimension) && total <= float64(lim.MaxPixels) {
		return st
	}
	f := math.Min(float64(lim.MaxDimension)/largest, math.Sqrt(float64(lim.MaxPixels)/total))
	eff *= f
	// floor so rounding can never push an axis back over the limit
	st.EffectiveDPR = eff
	st.PhysicalWidth = max(1, int(math.Floor(lw*eff)))
	st.PhysicalHeight = max(1, int(math.Floor(lh*eff)))
	st.Reduced = true
	return st
}

// fallbackPlan is the DPR 1 backing store used when applying a plan failed.
func fallbackPlan(logical viewmath.Size, lim Limits) State {
	return Plan(logical, 1, 1, Limits{MinDPR: 1, MaxDPR: 1, MaxDimension: lim.MaxDimension, MaxPixels: lim.MaxPixels, Tolerance: lim.Tolerance})
}
