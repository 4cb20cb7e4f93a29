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
	"fmt"
	"math"
	"strconv"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// RoundZoomPercent converts a scale into the percentage shown in chrome:
// one decimal below 10%, whole numbers up to 100%, steps of 5 above.
func RoundZoomPercent(scale float64) float64 {
	if !viewmath.Finite(scale) || scale <= 0 {
		return 0
	}
	p := scale * 100
	switch {
	case p < 10:
		return math.Round(p*10) / 10
	case p <= 100:
		return math.Round(p)
	default:
		return math.Round(p/5) * 5
	}
}

// FormatZoomPercent renders RoundZoomPercent for display, e.g. "8.0%" or "205%".
func FormatZoomPercent(scale float64) string {
	p := RoundZoomPercent(scale)
	if p < 10 {
		return strconv.FormatFloat(p, 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(p, 'f', 0, 64) + "%"
}

// Transform is the translate/scale applied to the page element. Vertical
// placement comes from native scrolling, so only X is translated.
type Transform struct {
	TranslateX float64
	Scale      float64
}

// ContentTransform centers the scaled page horizontally while it is narrower
// than the viewport.
func ContentTransform(st State) Transform {
	scaled := st.PageSize.W * st.Scale
	tx := math.Max(0, (st.ViewportSize.W-scaled)/2)
	return Transform{TranslateX: tx, Scale: st.Scale}
}

// CSS renders the transform the way the page element expects it.
func (t Transform) CSS() string {
	return fmt.Sprintf("translate3d(%spx,0,0) scale(%s)", trim(t.TranslateX), trim(t.Scale))
}

func trim(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// Prefs is the cached viewport preference record.
type Prefs struct {
	Version    int     `json:"version"`
	Scale      float64 `json:"scale"`
	ScrollX    float64 `json:"scroll_x"`
	ScrollY    float64 `json:"scroll_y"`
	OffsetX    float64 `json:"offset_x"`
	OffsetY    float64 `json:"offset_y"`
	MinScale   float64 `json:"min_scale"`
	MaxScale   float64 `json:"max_scale"`
	EnablePan  bool    `json:"enable_pan"`
	EnableZoom bool    `json:"enable_zoom"`
}

const (
	// PrefsVersion is bumped when the record layout changes.
	PrefsVersion = 1
	// PrefsKey is where the record is cached.
	PrefsKey = "write-on.viewport.v1"
)
