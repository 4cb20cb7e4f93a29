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
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Render draws the current page onto dc in page units. The caller owns the
// context's base transform.
func (e *Editor) Render(dc *gg.Context) error {
	e.mu.Lock()
	shapes := append([]Shape(nil), e.pages[e.current].Shapes...)
	if e.active != nil {
		shapes = append(shapes, *e.active)
	}
	e.mu.Unlock()

	dc.ClearWithColor(gg.White)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	for _, s := range shapes {
		c := gg.Hex(Palette[s.Color])
		dc.SetRGBA(c.R, c.G, c.B, s.Opacity)
		w := StrokeWidths[s.Size]
		if s.Kind == "highlight" {
			w *= 3
		}
		dc.SetLineWidth(w)
		switch s.Kind {
		case "geo":
			if len(s.Points) < 2 {
				continue
			}
			a, b := s.Points[0], s.Points[1]
			dc.DrawRectangle(min(a.X, b.X), min(a.Y, b.Y), abs(b.X-a.X), abs(b.Y-a.Y))
			if s.Fill != "none" && s.Fill != "" {
				alpha := s.Opacity
				if s.Fill == "semi" {
					alpha *= 0.3
				}
				dc.SetRGBA(c.R, c.G, c.B, alpha)
				if err := dc.FillPreserve(); err != nil {
					return err
				}
				dc.SetRGBA(c.R, c.G, c.B, s.Opacity)
			}
			if err := dc.Stroke(); err != nil {
				return err
			}
		case "text":
			p := s.Points[0]
			src := e.fontFor(s.Font)
			if src == nil {
				tw, th := textBox(s)
				dc.SetLineWidth(1)
				dc.DrawRectangle(p.X, p.Y-th, tw, th)
				if err := dc.Stroke(); err != nil {
					return err
				}
				continue
			}
			// text is drawn in device space, so map the anchor and size through the transform
			x0, y0 := dc.TransformPoint(p.X, p.Y)
			x1, y1 := dc.TransformPoint(p.X+1, p.Y)
			px := fontPx[s.Size]
			if px == 0 {
				px = 24
			}
			dc.SetFont(src.Face(px * math.Hypot(x1-x0, y1-y0)))
			dc.DrawString(s.Text, x0, y0)
		default:
			if len(s.Points) == 1 {
				dc.DrawCircle(s.Points[0].X, s.Points[0].Y, w/2)
				if err := dc.Fill(); err != nil {
					return err
				}
				continue
			}
			dc.MoveTo(s.Points[0].X, s.Points[0].Y)
			for _, p := range s.Points[1:] {
				dc.LineTo(p.X, p.Y)
			}
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// fontFor returns the font source for an ink font name, loading it on first
// use. A configured font file replaces the built-in Go fonts.
func (e *Editor) fontFor(name string) *text.FontSource {
	e.fontsOnce.Do(func() {
		e.fonts = map[string]*text.FontSource{}
		if e.fontPath != "" {
			src, err := text.NewFontSourceFromFile(e.fontPath)
			if err != nil {
				e.log.Warn("font load failed, using built-in fonts", slog.String("path", e.fontPath), slog.Any("err", err))
			} else {
				for _, n := range []string{"draw", "sans", "serif", "mono"} {
					e.fonts[n] = src
				}
				return
			}
		}
		regular, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			e.log.Warn("built-in font failed, drawing text boxes", slog.Any("err", err))
			return
		}
		mono, err := text.NewFontSource(gomono.TTF)
		if err != nil {
			mono = regular
		}
		e.fonts["draw"], e.fonts["sans"], e.fonts["serif"], e.fonts["mono"] = regular, regular, regular, mono
	})
	return e.fonts[name]
}
