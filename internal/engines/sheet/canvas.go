/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package sheet

import (
	"fmt"
	"math"
)

// CanvasName is the name of the engine's drawing canvas.
const CanvasName = "sheet-static"

// Canvas holds the attributes the engine writes on its canvas: the backing
// size in device pixels and inline CSS properties.
type Canvas struct {
	Name   string
	Width  int
	Height int
	Style  map[string]string
}

// SetViewport sizes the canvas for a w×h CSS pixel viewport at dpr. The
// engine writes the backing size and an inline CSS box; the OnCanvas hook
// sees the attributes before they are kept.
func (s *Sheet) SetViewport(w, h int, dpr float64) (Canvas, error) {
	if w <= 0 || h <= 0 || !(dpr > 0) {
		return Canvas{}, fmt.Errorf("sheet: invalid viewport %dx%d@%v", w, h, dpr)
	}
	c := Canvas{
		Name:   CanvasName,
		Width:  int(math.Round(float64(w) * dpr)),
		Height: int(math.Round(float64(h) * dpr)),
		Style: map[string]string{
			"width":  fmt.Sprintf("%dpx", w),
			"height": fmt.Sprintf("%dpx", h),
		},
	}
	if s.onCanvas != nil {
		s.onCanvas(&c)
	}
	c.Width, c.Height = max(1, c.Width), max(1, c.Height)
	s.mu.Lock()
	s.canvas = c
	s.viewW, s.viewH = w, h
	s.mu.Unlock()
	return c.clone(), nil
}

// Canvas returns the current canvas attributes.
func (s *Sheet) Canvas() Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.clone()
}

func (c Canvas) clone() Canvas {
	if c.Style != nil {
		st := make(map[string]string, len(c.Style))
		for k, v := range c.Style {
			st[k] = v
		}
		c.Style = st
	}
	return c
}
