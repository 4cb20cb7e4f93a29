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
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ErrNoCanvas is returned by Render before SetViewport.
var ErrNoCanvas = errors.New("sheet: canvas not sized")

// hachureGap is the distance between hachure lines in scene units.
const hachureGap = 8.0

// view maps scene coordinates to canvas pixels.
type view struct {
	zoom, scrollX, scrollY float64
	kx, ky                 float64
}

func (v view) pt(p Point) (float32, float32) {
	return float32((p.X + v.scrollX) * v.zoom * v.kx), float32((p.Y + v.scrollY) * v.zoom * v.ky)
}

func (v view) len(d float64) float64 { return d * v.zoom * (v.kx + v.ky) / 2 }

// Render rasterizes the current page onto a new image the size of the canvas.
// Scene point p lands at (p + scroll) × zoom in viewport pixels.
func (s *Sheet) Render() (*image.RGBA, error) {
	s.mu.Lock()
	c := s.canvas
	vw, vh := s.viewW, s.viewH
	els := append([]Element(nil), s.pages[s.current].Elements...)
	if s.active != nil {
		els = append(els, *s.active)
	}
	bg := s.state["viewBackgroundColor"].(string)
	v := view{
		zoom:    s.state["zoom"].(map[string]any)["value"].(float64),
		scrollX: s.state["scrollX"].(float64),
		scrollY: s.state["scrollY"].(float64),
	}
	s.mu.Unlock()
	if c.Width == 0 || vw == 0 {
		return nil, ErrNoCanvas
	}
	v.kx = float64(c.Width) / float64(vw)
	v.ky = float64(c.Height) / float64(vh)

	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(parseColor(bg, 100)), image.Point{}, draw.Src)
	z := vector.NewRasterizer(c.Width, c.Height)
	for _, e := range els {
		switch e.Type {
		case ToolRectangle:
			drawRect(z, img, v, e)
		case ToolText:
			drawText(img, v, e)
		default:
			drawFreedraw(z, img, v, e)
		}
	}
	return img, nil
}

func fill(z *vector.Rasterizer, dst *image.RGBA, c color.Color) {
	z.DrawOp = draw.Over
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
}

func drawFreedraw(z *vector.Rasterizer, dst *image.RGBA, v view, e Element) {
	r := math.Max(0.5, v.len(e.StrokeWidth)/2)
	for i, p := range e.Points {
		x, y := v.pt(p)
		disc(z, x, y, r)
		if i > 0 {
			ax, ay := v.pt(e.Points[i-1])
			segment(z, ax, ay, x, y, r)
		}
	}
	fill(z, dst, parseColor(e.StrokeColor, e.Opacity))
}

func drawRect(z *vector.Rasterizer, dst *image.RGBA, v view, e Element) {
	corners := []Point{{e.X, e.Y}, {e.X + e.Width, e.Y}, {e.X + e.Width, e.Y + e.Height}, {e.X, e.Y + e.Height}}
	if e.BackgroundColor != "transparent" {
		bg := parseColor(e.BackgroundColor, e.Opacity)
		switch e.FillStyle {
		case "solid":
			x, y := v.pt(corners[0])
			z.MoveTo(x, y)
			for _, p := range corners[1:] {
				x, y = v.pt(p)
				z.LineTo(x, y)
			}
			z.ClosePath()
		default:
			hachure(z, v, e, 1)
			if e.FillStyle == "cross-hatch" {
				hachure(z, v, e, -1)
			}
		}
		fill(z, dst, bg)
	}
	r := math.Max(0.5, v.len(e.StrokeWidth)/2)
	for i, p := range corners {
		ax, ay := v.pt(p)
		bx, by := v.pt(corners[(i+1)%4])
		disc(z, ax, ay, r)
		segment(z, ax, ay, bx, by, r)
	}
	fill(z, dst, parseColor(e.StrokeColor, e.Opacity))
}

// hachure adds 45° lines clipped to the element box; dir -1 mirrors them.
func hachure(z *vector.Rasterizer, v view, e Element, dir float64) {
	x0, y0, x1, y1 := e.X, e.Y, e.X+e.Width, e.Y+e.Height
	r := math.Max(0.5, v.len(1)/2)
	// lines y = dir*x + c
	lo, hi := y0-dir*x1, y1-dir*x0
	if dir < 0 {
		lo, hi = y0-dir*x0, y1-dir*x1
	}
	for c := lo + hachureGap/2; c < hi; c += hachureGap {
		// x range where the line stays inside [y0, y1]
		xa, xb := (y0-c)/dir, (y1-c)/dir
		if xa > xb {
			xa, xb = xb, xa
		}
		xa, xb = math.Max(xa, x0), math.Min(xb, x1)
		if xa >= xb {
			continue
		}
		ax, ay := v.pt(Point{xa, dir*xa + c})
		bx, by := v.pt(Point{xb, dir*xb + c})
		segment(z, ax, ay, bx, by, r)
	}
}

// segment adds a quad of half-width r around a→b. Winding matches disc so
// overlapping pieces do not cancel.
func segment(z *vector.Rasterizer, ax, ay, bx, by float32, r float64) {
	dx, dy := float64(bx-ax), float64(by-ay)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := float32(-dy/l*r), float32(dx/l*r)
	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
}

// disc adds a 16-gon of radius r, wound clockwise in y-up terms.
func disc(z *vector.Rasterizer, x, y float32, r float64) {
	const n = 16
	for i := 0; i <= n; i++ {
		t := -2 * math.Pi * float64(i) / n
		px, py := x+float32(math.Cos(t)*r), y+float32(math.Sin(t)*r)
		if i == 0 {
			z.MoveTo(px, py)
		} else {
			z.LineTo(px, py)
		}
	}
	z.ClosePath()
}

func drawText(dst *image.RGBA, v view, e Element) {
	size := v.len(e.FontSize)
	if size < 1 {
		return
	}
	face := library().face(e.FontFamily, size)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(parseColor(e.StrokeColor, e.Opacity)), Face: face}
	x0, y0 := v.pt(Point{e.X, e.Y})
	ascent := float64(face.Metrics().Ascent) / 64
	for i, ln := range splitLines(e.Text) {
		w := float64(d.MeasureString(ln)) / 64
		x := float64(x0)
		switch e.TextAlign {
		case "center":
			x += (v.len(e.Width) - w) / 2
		case "right":
			x += v.len(e.Width) - w
		}
		y := float64(y0) + ascent + float64(i)*size*lineHeight
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		d.DrawString(ln)
	}
}

// parseColor reads #rrggbb with opacity 0..100; invalid colors are black.
func parseColor(hex string, opacity int) color.NRGBA {
	c := color.NRGBA{A: uint8(math.Round(float64(max(0, min(100, opacity))) * 2.55))}
	if len(hex) == 7 && hex[0] == '#' {
		if n, err := strconv.ParseUint(hex[1:], 16, 32); err == nil {
			c.R, c.G, c.B = uint8(n>>16), uint8(n>>8), uint8(n)
		}
	}
	return c
}
