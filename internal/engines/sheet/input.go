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
	"math"
)

// eraseRadius is the eraser reach in scene units.
const eraseRadius = 6.0

func (s *Sheet) newElementLocked(typ string) Element {
	sc := s.pages[s.current]
	sc.NextID++
	st := s.state
	return Element{
		ID:              sc.NextID,
		Type:            typ,
		StrokeColor:     st["currentItemStrokeColor"].(string),
		BackgroundColor: st["currentItemBackgroundColor"].(string),
		FillStyle:       st["currentItemFillStyle"].(string),
		StrokeWidth:     st["currentItemStrokeWidth"].(float64),
		FontFamily:      int(st["currentItemFontFamily"].(float64)),
		FontSize:        st["currentItemFontSize"].(float64),
		TextAlign:       st["currentItemTextAlign"].(string),
		Opacity:         int(math.Round(st["currentItemOpacity"].(float64))),
	}
}

// PointerDown starts the active tool's interaction at a scene point.
func (s *Sheet) PointerDown(x, y float64) {
	s.mu.Lock()
	emit := false
	switch s.tool {
	case ToolFreedraw:
		e := s.newElementLocked(ToolFreedraw)
		e.Points = []Point{{x, y}}
		s.active = &e
	case ToolRectangle:
		e := s.newElementLocked(ToolRectangle)
		e.X, e.Y = x, y
		e.Points = []Point{{x, y}}
		s.active = &e
	case ToolEraser:
		emit = s.eraseLocked(x, y)
	case ToolSelection:
		s.selected = map[int]bool{}
		if id, ok := s.hitLocked(x, y); ok {
			s.selected[id] = true
		}
		emit = true
	}
	s.mu.Unlock()
	if emit {
		s.emit()
	}
}

// PointerMove extends the active element.
func (s *Sheet) PointerMove(x, y float64) {
	s.mu.Lock()
	emit := false
	switch {
	case s.active != nil && s.active.Type == ToolRectangle:
		spanRect(s.active, x, y)
	case s.active != nil:
		s.active.Points = append(s.active.Points, Point{x, y})
	case s.tool == ToolEraser:
		emit = s.eraseLocked(x, y)
	}
	s.mu.Unlock()
	if emit {
		s.emit()
	}
}

// PointerUp commits the active element.
func (s *Sheet) PointerUp(x, y float64) {
	s.mu.Lock()
	e := s.active
	s.active = nil
	if e == nil {
		s.mu.Unlock()
		return
	}
	if e.Type == ToolRectangle {
		spanRect(e, x, y)
		e.Points = nil
	} else {
		if last := e.Points[len(e.Points)-1]; last.X != x || last.Y != y {
			e.Points = append(e.Points, Point{x, y})
		}
		bounds(e)
	}
	s.recordLocked()
	sc := s.pages[s.current]
	sc.Elements = append(sc.Elements, *e)
	s.mu.Unlock()
	s.emit()
}

// AddText places a text element with the current item style. (x, y) is the
// top-left corner of the text box.
func (s *Sheet) AddText(x, y float64, text string) int {
	s.mu.Lock()
	e := s.newElementLocked(ToolText)
	e.X, e.Y, e.Text = x, y, text
	e.Width, e.Height = measureText(e.FontFamily, e.FontSize, text)
	s.recordLocked()
	s.pages[s.current].Elements = append(s.pages[s.current].Elements, e)
	s.mu.Unlock()
	s.emit()
	return e.ID
}

// spanRect sets the rectangle between its anchor, kept in Points[0], and
// the pointer.
func spanRect(e *Element, x, y float64) {
	a := e.Points[0]
	e.X, e.Y = math.Min(a.X, x), math.Min(a.Y, y)
	e.Width, e.Height = math.Abs(x-a.X), math.Abs(y-a.Y)
}

// bounds sets a freedraw element's box from its points.
func bounds(e *Element) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range e.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	e.X, e.Y, e.Width, e.Height = minX, minY, maxX-minX, maxY-minY
}

func (s *Sheet) eraseLocked(x, y float64) bool {
	sc := s.pages[s.current]
	keep := sc.Elements[:0:0]
	hit := false
	for _, e := range sc.Elements {
		if near(e, x, y, eraseRadius+e.StrokeWidth/2) {
			hit = true
			continue
		}
		keep = append(keep, e)
	}
	if hit {
		s.recordLocked()
		sc.Elements = keep
	}
	return hit
}

// hitLocked returns the topmost element near the point.
func (s *Sheet) hitLocked(x, y float64) (int, bool) {
	els := s.pages[s.current].Elements
	for i := len(els) - 1; i >= 0; i-- {
		if near(els[i], x, y, 4+els[i].StrokeWidth/2) {
			return els[i].ID, true
		}
	}
	return 0, false
}

func near(e Element, x, y, r float64) bool {
	switch e.Type {
	case ToolRectangle, ToolText:
		return x >= e.X-r && x <= e.X+e.Width+r && y >= e.Y-r && y <= e.Y+e.Height+r
	}
	for i, p := range e.Points {
		if i == 0 {
			if math.Hypot(p.X-x, p.Y-y) <= r {
				return true
			}
			continue
		}
		if segDist(e.Points[i-1], p, x, y) <= r {
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
