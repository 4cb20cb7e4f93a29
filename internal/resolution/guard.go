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

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
)

// CanvasAttrs are the attributes an engine writes on its own canvases.
// Style holds inline CSS properties.
type CanvasAttrs struct {
	Name   string
	Width  int
	Height int
	Style  map[string]string
}

// AttributeGuard polices canvases an engine sizes itself. Oversized
// dimensions are scaled back under the limits and inline CSS sizes, which
// would fight the wrapper's box, are removed.
type AttributeGuard struct {
	lim Limits
	log *slog.Logger
	// Corrections counts attribute sets that had to be changed.
	Corrections int
}

func NewAttributeGuard(lim Limits, l *slog.Logger) *AttributeGuard {
	if l == nil {
		l = applog.WithComponent("resolution.guard")
	}
	return &AttributeGuard{lim: lim.normalized(), log: l}
}

var cssSizeProps = []string{"width", "height", "min-width", "min-height", "max-width", "max-height"}

// Police corrects a in place and reports whether anything changed.
func (g *AttributeGuard) Police(a *CanvasAttrs) bool {
	changed := false
	w, h := float64(a.Width), float64(a.Height)
	largest := math.Max(w, h)
	if largest > float64(g.lim.MaxDimension) || w*h > float64(g.lim.MaxPixels) {
		f := math.Min(float64(g.lim.MaxDimension)/largest, math.Sqrt(float64(g.lim.MaxPixels)/(w*h)))
		nw := max(1, int(math.Floor(w*f)))
		nh := max(1, int(math.Floor(h*f)))
		g.log.Warn("engine canvas exceeded GPU limits",
			slog.String("canvas", a.Name), slog.Int("w", a.Width), slog.Int("h", a.Height),
			slog.Int("clamped_w", nw), slog.Int("clamped_h", nh))
		a.Width, a.Height = nw, nh
		changed = true
	}
	for _, p := range cssSizeProps {
		if _, ok := a.Style[p]; ok {
			delete(a.Style, p)
			changed = true
		}
	}
	if changed {
		g.Corrections++
	}
	return changed
}
