/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ink

import (
	"math"
	"strconv"
)

// eraseRadius is the eraser reach in page units.
const eraseRadius = 8.0

func (e *Editor) newShapeLocked(kind string) Shape {
	e.nextID++
	o, _ := strconv.ParseFloat(e.next["opacity"], 64)
	if kind == "highlight" {
		o = math.Min(o, 0.4)
	}
	return Shape{
		ID:      e.nextID,
		Kind:    kind,
		Color:   e.next["color"],
		Size:    e.next["size"],
		Font:    e.next["font"],
		Fill:    e.next["fill"],
		Align:   e.next["align"],
		Opacity: o,
	}
}

// PointerDown starts the active tool's interaction at a page point.
func (e *Editor) PointerDown(x, y float64) {
	e.mu.Lock()
	var events []string
	switch e.tool {
	case "draw", "highlight", "geo":
		s := e.newShapeLocked(e.tool)
		s.Points = []Point{{x, y}}
		e.active = &s
	case "eraser":
		if e.eraseLocked(x, y) {
			events = append(events, "scene")
		}
	case "select":
		e.selection = map[int]bool{}
		if id, ok := e.hitLocked(x, y); ok {
			e.selection[id] = true
		}
		events = append(events, "selection")
	}
	e.mu.Unlock()
	e.notify(events...)
}

// PointerMove extends the active stroke or geo box.
func (e *Editor) PointerMove(x, y float64) {
	e.mu.Lock()
	var events []string
	switch {
	case e.active != nil && e.active.Kind == "geo":
		e.active.Points = append(e.active.Points[:1], Point{x, y})
	case e.active != nil:
		e.active.Points = append(e.active.Points, Point{x, y})
	case e.tool == "eraser":
		if e.eraseLocked(x, y) {
			events = append(events, "scene")
		}
	}
	e.mu.Unlock()
	e.notify(events...)
}

// PointerUp commits the active shape.
func (e *Editor) PointerUp(x, y float64) {
	e.mu.Lock()
	s := e.active
	e.active = nil
	if s == nil {
		e.mu.Unlock()
		return
	}
	if s.Kind == "geo" {
		s.Points = append(s.Points[:1], Point{x, y})
	} else if last := s.Points[len(s.Points)-1]; last.X != x || last.Y != y {
		s.Points = append(s.Points, Point{x, y})
	}
	e.recordLocked()
	pg := e.pages[e.current]
	pg.Shapes = append(pg.Shapes, *s)
	e.mu.Unlock()
	e.notify("scene")
}

// AddText places a text shape with the next-shape style.
func (e *Editor) AddText(x, y float64, text string) int {
	e.mu.Lock()
	s := e.newShapeLocked("text")
	s.Points = []Point{{x, y}}
	s.Text = text
	e.recordLocked()
	e.pages[e.current].Shapes = append(e.pages[e.current].Shapes, s)
	e.mu.Unlock()
	e.notify("scene")
	return s.ID
}

func (e *Editor) eraseLocked(x, y float64) bool {
	pg := e.pages[e.current]
	keep := pg.Shapes[:0:0]
	hit := false
	for _, s := range pg.Shapes {
		if near(s, x, y, eraseRadius+StrokeWidths[s.Size]/2) {
			hit = true
			continue
		}
		keep = append(keep, s)
	}
	if hit {
		e.recordLocked()
		pg.Shapes = keep
	}
	return hit
}

// hitLocked returns the topmost shape near the point.
func (e *Editor) hitLocked(x, y float64) (int, bool) {
	shapes := e.pages[e.current].Shapes
	for i := len(shapes) - 1; i >= 0; i-- {
		if near(shapes[i], x, y, 4+StrokeWidths[shapes[i].Size]/2) {
			return shapes[i].ID, true
		}
	}
	return 0, false
}

func near(s Shape, x, y, r float64) bool {
	switch s.Kind {
	case "geo":
		if len(s.Points) < 2 {
			return false
		}
		minX, maxX := math.Min(s.Points[0].X, s.Points[1].X), math.Max(s.Points[0].X, s.Points[1].X)
		minY, maxY := math.Min(s.Points[0].Y, s.Points[1].Y), math.Max(s.Points[0].Y, s.Points[1].Y)
		return x >= minX-r && x <= maxX+r && y >= minY-r && y <= maxY+r
	case "text":
		p := s.Points[0]
		w, h := textBox(s)
		return x >= p.X-r && x <= p.X+w+r && y >= p.Y-h-r && y <= p.Y+r
	}
	for i, p := range s.Points {
		if i == 0 {
			if math.Hypot(p.X-x, p.Y-y) <= r {
				return true
			}
			continue
		}
		if segDist(s.Points[i-1], p, x, y) <= r {
			return true
		}
	}
	return false
}

func segDist(a, b Point, x, y float64) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}
	t := math.Max(0, math.Min(1, ((x-a.X)*dx+(y-a.Y)*dy)/l2))
	return math.Hypot(x-(a.X+t*dx), y-(a.Y+t*dy))
}

// fontPx is the text size per size name.
var fontPx = map[string]float64{"s": 18, "m": 24, "l": 36, "xl": 44}

// textBox estimates the text extent without a font.
func textBox(s Shape) (w, h float64) {
	px := fontPx[s.Size]
	if px == 0 {
		px = 24
	}
	return float64(len([]rune(s.Text))) * px * 0.55, px
}
