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
	"strings"
)

// table is the translation between the neutral vocabulary and one engine.
// It is built once per adapter.
type table struct {
	kind    Kind
	toolOut map[Tool]string
	toolIn  map[string]Tool

	palette []swatch // empty when the engine takes raw hex colors
	sizes   []namedSize

	fontOut  map[Font]string
	fontIn   map[string]Font
	alignOut map[Align]string
	alignIn  map[string]Align
}

type swatch struct {
	name string
	hex  string
	rgb  [3]int
}

type namedSize struct {
	name string
	px   float64
}

func tableFor(k Kind) *table {
	switch k {
	case KindInk:
		return inkTable()
	case KindSheet:
		return sheetTable()
	}
	return nil
}

func inkTable() *table {
	t := &table{
		kind: KindInk,
		toolOut: map[Tool]string{
			ToolSelect: "select", ToolHand: "hand", ToolDraw: "draw", ToolEraser: "eraser",
			ToolText: "text", ToolHighlight: "highlight", ToolGeo: "geo", ToolNone: "select",
		},
		toolIn: map[string]Tool{
			"select": ToolSelect, "hand": ToolHand, "draw": ToolDraw, "eraser": ToolEraser,
			"text": ToolText, "highlight": ToolHighlight, "geo": ToolGeo, "laser": ToolNone,
		},
		sizes: []namedSize{{"s", 18}, {"m", 24}, {"l", 36}, {"xl", 44}},
		fontOut: map[Font]string{
			FontHand: "draw", FontSans: "sans", FontSerif: "serif", FontMono: "mono",
		},
		alignOut: map[Align]string{
			AlignLeft: "start", AlignCenter: "middle", AlignRight: "end",
		},
	}
	for _, s := range [][2]string{
		{"black", "#1d1d1d"},
		{"grey", "#9fa8b2"},
		{"light-violet", "#e085f4"},
		{"violet", "#ae3ec9"},
		{"blue", "#4465e9"},
		{"light-blue", "#4ba1f1"},
		{"yellow", "#f1ac4b"},
		{"orange", "#e16919"},
		{"green", "#099268"},
		{"light-green", "#4cb05e"},
		{"light-red", "#f87777"},
		{"red", "#e03131"},
		{"white", "#ffffff"},
	} {
		rgb, _ := parseHex(s[1])
		t.palette = append(t.palette, swatch{name: s[0], hex: s[1], rgb: rgb})
	}
	t.fontIn = invert(t.fontOut)
	t.alignIn = invert(t.alignOut)
	return t
}

// Sheet font family ids.
const (
	sheetFontHand  = 1
	sheetFontSans  = 2
	sheetFontMono  = 3
	sheetFontSerif = 4
)

func sheetTable() *table {
	t := &table{
		kind: KindSheet,
		toolOut: map[Tool]string{
			ToolSelect: "selection", ToolHand: "hand", ToolDraw: "freedraw", ToolEraser: "eraser",
			ToolText: "text", ToolHighlight: "freedraw", ToolGeo: "rectangle", ToolNone: "selection",
		},
		toolIn: map[string]Tool{
			"selection": ToolSelect, "hand": ToolHand, "freedraw": ToolDraw, "eraser": ToolEraser,
			"text": ToolText, "rectangle": ToolGeo, "laser": ToolNone,
		},
		fontOut: map[Font]string{
			FontHand:  strconv.Itoa(sheetFontHand),
			FontSans:  strconv.Itoa(sheetFontSans),
			FontMono:  strconv.Itoa(sheetFontMono),
			FontSerif: strconv.Itoa(sheetFontSerif),
		},
		alignOut: map[Align]string{
			AlignLeft: "left", AlignCenter: "center", AlignRight: "right",
		},
	}
	t.fontIn = invert(t.fontOut)
	t.alignIn = invert(t.alignOut)
	return t
}

func invert[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// nativeTool returns the engine tool for t.
func (t *table) nativeTool(tool Tool) string { return t.toolOut[tool] }

// neutralTool maps an engine tool back; unknown tools read as ToolNone.
func (t *table) neutralTool(native string) Tool {
	if n, ok := t.toolIn[native]; ok {
		return n
	}
	return ToolNone
}

// colorName returns the palette entry nearest to hex.
func (t *table) colorName(hex string) string {
	rgb, ok := parseHex(hex)
	if !ok || len(t.palette) == 0 {
		return ""
	}
	best, bestD := 0, math.MaxInt
	for i, s := range t.palette {
		dr, dg, db := rgb[0]-s.rgb[0], rgb[1]-s.rgb[1], rgb[2]-s.rgb[2]
		if d := dr*dr + dg*dg + db*db; d < bestD {
			best, bestD = i, d
		}
	}
	return t.palette[best].name
}

// colorHex resolves a palette name, or "" when unknown.
func (t *table) colorHex(name string) string {
	for _, s := range t.palette {
		if s.name == name {
			return s.hex
		}
	}
	return ""
}

// sizeName returns the named size nearest to px.
func (t *table) sizeName(px float64) string {
	best := t.sizes[0]
	for _, s := range t.sizes[1:] {
		if math.Abs(s.px-px) < math.Abs(best.px-px) {
			best = s
		}
	}
	return best.name
}

func (t *table) sizePx(name string) (float64, bool) {
	for _, s := range t.sizes {
		if s.name == name {
			return s.px, true
		}
	}
	return 0, false
}

// parseHex accepts "#rgb" and "#rrggbb".
func parseHex(s string) ([3]int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return [3]int{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return [3]int{}, false
	}
	return [3]int{int((v >> 16) & 0xff), int((v >> 8) & 0xff), int(v & 0xff)}, true
}

// NormalizeHex returns s as lowercase "#rrggbb", or "" when s is not a color.
func NormalizeHex(s string) string {
	rgb, ok := parseHex(s)
	if !ok {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
