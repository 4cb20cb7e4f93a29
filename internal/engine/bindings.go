/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"math"
	"strconv"
)

// binding is the per-engine half of the adapter.
type binding interface {
	setTool(native string) error
	tool() string
	applyStyle(prev, next Style) error
	style() Style
	camera() Camera
	setCamera(c Camera) error
	page() PageInfo
	undo() error
	redo() error
	canUndo() bool
	canRedo() bool
	// listen reports engine changes; an empty kind means "anything".
	listen(fn func(ChangeKind)) func()
}

type inkBinding struct {
	api InkAPI
	t   *table
}

func (b inkBinding) setTool(native string) error { return b.api.SetCurrentTool(native) }
func (b inkBinding) tool() string                { return b.api.CurrentToolID() }

func (b inkBinding) applyStyle(prev, next Style) error {
	var props [][2]string
	if next.StrokeColor != prev.StrokeColor {
		props = append(props, [2]string{"color", b.t.colorName(next.StrokeColor)})
	}
	if next.Fill != prev.Fill {
		props = append(props, [2]string{"fill", string(next.Fill)})
	}
	if next.Font != prev.Font {
		props = append(props, [2]string{"font", b.t.fontOut[next.Font]})
	}
	if next.TextSize != prev.TextSize {
		props = append(props, [2]string{"size", b.t.sizeName(next.TextSize)})
	}
	if next.Align != prev.Align {
		props = append(props, [2]string{"align", b.t.alignOut[next.Align]})
	}
	if next.Opacity != prev.Opacity {
		props = append(props, [2]string{"opacity", strconv.FormatFloat(next.Opacity, 'f', -1, 64)})
	}
	for _, p := range props {
		if err := b.api.SetStyleForNextShapes(p[0], p[1]); err != nil {
			return fmt.Errorf("ink style %s=%s: %w", p[0], p[1], err)
		}
		if err := b.api.SetStyleForSelectedShapes(p[0], p[1]); err != nil {
			return fmt.Errorf("ink selection style %s=%s: %w", p[0], p[1], err)
		}
	}
	return nil
}

func (b inkBinding) style() Style {
	s := DefaultStyle()
	if hex := b.t.colorHex(b.api.StyleForNextShapes("color")); hex != "" {
		s.StrokeColor = hex
	}
	switch f := Fill(b.api.StyleForNextShapes("fill")); f {
	case FillNone, FillSemi, FillSolid:
		s.Fill = f
	}
	if f, ok := b.t.fontIn[b.api.StyleForNextShapes("font")]; ok {
		s.Font = f
	}
	if px, ok := b.t.sizePx(b.api.StyleForNextShapes("size")); ok {
		s.TextSize = px
	}
	if a, ok := b.t.alignIn[b.api.StyleForNextShapes("align")]; ok {
		s.Align = a
	}
	if o, err := strconv.ParseFloat(b.api.StyleForNextShapes("opacity"), 64); err == nil {
		s.Opacity = o
	}
	return s
}

func (b inkBinding) camera() Camera {
	x, y, z := b.api.Camera()
	return Camera{Zoom: z, X: x, Y: y}
}

func (b inkBinding) setCamera(c Camera) error { return b.api.SetCamera(c.X, c.Y, c.Zoom) }

func (b inkBinding) page() PageInfo {
	return PageInfo{Current: b.api.CurrentPageIndex(), Total: b.api.PageCount()}
}

func (b inkBinding) undo() error   { return b.api.Undo() }
func (b inkBinding) redo() error   { return b.api.Redo() }
func (b inkBinding) canUndo() bool { return b.api.CanUndo() }
func (b inkBinding) canRedo() bool { return b.api.CanRedo() }

func (b inkBinding) listen(fn func(ChangeKind)) func() {
	return b.api.Listen(func(event string) {
		switch event {
		case "tool":
			fn(ChangeTool)
		case "selection":
			fn(ChangeSelection)
		case "scene":
			fn(ChangeScene)
		case "camera":
			fn(ChangeCamera)
		case "page":
			fn(ChangePage)
		default:
			fn("")
		}
	})
}

// Sheet app-state keys.
const (
	keyStrokeColor = "currentItemStrokeColor"
	keyBackground  = "currentItemBackgroundColor"
	keyFillStyle   = "currentItemFillStyle"
	keyFontFamily  = "currentItemFontFamily"
	keyFontSize    = "currentItemFontSize"
	keyTextAlign   = "currentItemTextAlign"
	keyOpacity     = "currentItemOpacity"
	keyZoom        = "zoom"
	keyScrollX     = "scrollX"
	keyScrollY     = "scrollY"
)

type sheetBinding struct {
	api SheetAPI
	t   *table
}

func (b sheetBinding) setTool(native string) error { return b.api.SetActiveTool(native) }
func (b sheetBinding) tool() string                { return b.api.ActiveTool() }

func (b sheetBinding) applyStyle(prev, next Style) error {
	patch := map[string]any{}
	if next.StrokeColor != prev.StrokeColor {
		patch[keyStrokeColor] = next.StrokeColor
	}
	if next.Fill != prev.Fill || (next.Fill != FillNone && next.StrokeColor != prev.StrokeColor) {
		switch next.Fill {
		case FillNone:
			patch[keyBackground] = "transparent"
		case FillSemi:
			patch[keyBackground] = next.StrokeColor
			patch[keyFillStyle] = "hachure"
		case FillSolid:
			patch[keyBackground] = next.StrokeColor
			patch[keyFillStyle] = "solid"
		}
	}
	if next.Font != prev.Font {
		id, _ := strconv.Atoi(b.t.fontOut[next.Font])
		patch[keyFontFamily] = id
	}
	if next.TextSize != prev.TextSize {
		patch[keyFontSize] = next.TextSize
	}
	if next.Align != prev.Align {
		patch[keyTextAlign] = b.t.alignOut[next.Align]
	}
	if next.Opacity != prev.Opacity {
		patch[keyOpacity] = int(math.Round(next.Opacity * 100))
	}
	if len(patch) == 0 {
		return nil
	}
	return b.api.UpdateAppState(patch)
}

func (b sheetBinding) style() Style {
	st := b.api.AppState()
	s := DefaultStyle()
	if hex := NormalizeHex(stringOf(st[keyStrokeColor])); hex != "" {
		s.StrokeColor = hex
	}
	switch bg := stringOf(st[keyBackground]); {
	case bg == "" || bg == "transparent":
		s.Fill = FillNone
	case stringOf(st[keyFillStyle]) == "solid":
		s.Fill = FillSolid
	default:
		s.Fill = FillSemi
	}
	if id, ok := numberOf(st[keyFontFamily]); ok {
		if f, ok := b.t.fontIn[strconv.Itoa(int(id))]; ok {
			s.Font = f
		}
	}
	if px, ok := numberOf(st[keyFontSize]); ok && px > 0 {
		s.TextSize = px
	}
	if a, ok := b.t.alignIn[stringOf(st[keyTextAlign])]; ok {
		s.Align = a
	}
	if o, ok := numberOf(st[keyOpacity]); ok {
		s.Opacity = math.Max(0, math.Min(1, o/100))
	}
	return s
}

func (b sheetBinding) camera() Camera {
	st := b.api.AppState()
	c := Camera{Zoom: 1}
	if z, ok := st[keyZoom].(map[string]any); ok {
		if v, ok := numberOf(z["value"]); ok && v > 0 {
			c.Zoom = v
		}
	}
	c.X, _ = numberOf(st[keyScrollX])
	c.Y, _ = numberOf(st[keyScrollY])
	return c
}

func (b sheetBinding) setCamera(c Camera) error {
	return b.api.UpdateAppState(map[string]any{
		keyZoom:    map[string]any{"value": c.Zoom},
		keyScrollX: c.X,
		keyScrollY: c.Y,
	})
}

func (b sheetBinding) page() PageInfo {
	cur, total := b.api.Page()
	return PageInfo{Current: cur, Total: total}
}

func (b sheetBinding) undo() error   { return b.api.Undo() }
func (b sheetBinding) redo() error   { return b.api.Redo() }
func (b sheetBinding) canUndo() bool { return b.api.CanUndo() }
func (b sheetBinding) canRedo() bool { return b.api.CanRedo() }

func (b sheetBinding) listen(fn func(ChangeKind)) func() {
	return b.api.Subscribe(func() { fn("") })
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
