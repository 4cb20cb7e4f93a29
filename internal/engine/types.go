/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine is the neutral face of the embedded drawing engine. The
// Adapter translates the app's tool, style and camera vocabulary into one of
// the supported engines' native APIs and back.
package engine

// Tool is an app-level drawing tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolHand      Tool = "hand"
	ToolDraw      Tool = "draw"
	ToolEraser    Tool = "eraser"
	ToolText      Tool = "text"
	ToolHighlight Tool = "highlight"
	ToolGeo       Tool = "geo"
	ToolNone      Tool = "none"
)

// Tools lists the closed tool set in toolbar order.
var Tools = []Tool{ToolSelect, ToolHand, ToolDraw, ToolEraser, ToolText, ToolHighlight, ToolGeo, ToolNone}

// Valid reports whether t is in the closed set.
func (t Tool) Valid() bool {
	for _, k := range Tools {
		if k == t {
			return true
		}
	}
	return false
}

type Fill string

const (
	FillNone  Fill = "none"
	FillSemi  Fill = "semi"
	FillSolid Fill = "solid"
)

type Font string

const (
	FontHand  Font = "hand"
	FontSans  Font = "sans"
	FontSerif Font = "serif"
	FontMono  Font = "mono"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Style is the shared style applied to the selection and to new shapes.
// StrokeColor is "#rrggbb"; TextSize is in CSS px; Opacity is 0..1.
type Style struct {
	StrokeColor string
	Fill        Fill
	Font        Font
	TextSize    float64
	Align       Align
	Opacity     float64
}

// DefaultStyle is what a fresh engine starts with.
func DefaultStyle() Style {
	return Style{StrokeColor: "#1d1d1d", Fill: FillNone, Font: FontHand, TextSize: 24, Align: AlignLeft, Opacity: 1}
}

// Camera is the engine's own view of the page.
type Camera struct {
	Zoom float64
	X, Y float64
}

// PageInfo is the page bookkeeping shown in chrome. Current is zero based.
type PageInfo struct {
	Current int
	Total   int
}

// ChangeKind says what an engine notification was about.
type ChangeKind string

const (
	ChangeTool      ChangeKind = "tool"
	ChangeStyle     ChangeKind = "style"
	ChangeSelection ChangeKind = "selection"
	ChangeScene     ChangeKind = "scene"
	ChangeCamera    ChangeKind = "camera"
	ChangePage      ChangeKind = "page"
	ChangeReady     ChangeKind = "ready"
)

// Change is delivered to adapter listeners after the neutral state changed.
type Change struct {
	Kind   ChangeKind
	Tool   Tool
	Style  Style
	Camera Camera
	Page   PageInfo
}

// Kind names a supported engine.
type Kind int

const (
	KindInk Kind = iota + 1
	KindSheet
)

func (k Kind) String() string {
	switch k {
	case KindInk:
		return "ink"
	case KindSheet:
		return "sheet"
	}
	return "unknown"
}

// ParseKind maps a configured engine name onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "ink", "":
		return KindInk, true
	case "sheet":
		return KindSheet, true
	}
	return 0, false
}

// InkAPI is the imperative handle of the ink engine. Styles are named
// properties with named values ("color"="blue", "size"="m").
type InkAPI interface {
	SetCurrentTool(id string) error
	CurrentToolID() string
	SetStyleForNextShapes(prop, value string) error
	SetStyleForSelectedShapes(prop, value string) error
	StyleForNextShapes(prop string) string
	Camera() (x, y, z float64)
	SetCamera(x, y, z float64) error
	Undo() error
	Redo() error
	CanUndo() bool
	CanRedo() bool
	CurrentPageIndex() int
	PageCount() int
	// Listen calls fn with "tool", "selection", "scene", "camera" or "page".
	Listen(fn func(event string)) (unlisten func())
}

// SheetAPI is the imperative handle of the sheet engine. Styles live in a
// flat app-state map keyed by property name.
type SheetAPI interface {
	SetActiveTool(toolType string) error
	ActiveTool() string
	UpdateAppState(patch map[string]any) error
	AppState() map[string]any
	Undo() error
	Redo() error
	CanUndo() bool
	CanRedo() bool
	Page() (current, total int)
	// Subscribe calls fn after every app-state or scene change.
	Subscribe(fn func()) (unsubscribe func())
}

// Mount is the engine handle the adapter binds to. Exactly the API matching
// Kind must be set.
type Mount struct {
	Kind  Kind
	Ink   InkAPI
	Sheet SheetAPI
}
