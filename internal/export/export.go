/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes rendered pages to PNG and PDF files.
package export

import (
	"errors"
	"fmt"
	"image"

	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// ErrNoFrame is returned when the source has nothing painted yet.
var ErrNoFrame = errors.New("export: source has no rendered frame")

// Source is a renderable page, typically a workspace session.
type Source interface {
	Render() error
	Frame() image.Image
	LogicalPage() viewmath.Size
}

// Pager is a Source that can switch between pages.
type Pager interface {
	Source
	Page() engine.PageInfo
	SetPage(i int) error
}

// Snapshot is one page as rendered at the session's current resolution.
// Page is the logical page size in CSS pixels.
type Snapshot struct {
	Index int
	Image image.Image
	Page  viewmath.Size
}

// pointsPerPixel converts CSS pixels (96/in) to PDF points (72/in).
const pointsPerPixel = 72.0 / 96.0

// PageSizePt is the snapshot's logical page in PDF points.
func (s Snapshot) PageSizePt() (w, h float64) {
	return s.Page.W * pointsPerPixel, s.Page.H * pointsPerPixel
}

// Capture renders src and returns its current frame.
func Capture(src Source) (Snapshot, error) {
	if err := src.Render(); err != nil {
		return Snapshot{}, fmt.Errorf("render: %w", err)
	}
	img := src.Frame()
	if img == nil || img.Bounds().Empty() {
		return Snapshot{}, ErrNoFrame
	}
	return Snapshot{Image: img, Page: src.LogicalPage()}, nil
}

// CapturePages renders the given zero based pages, or all pages when none
// are named, and switches back to the page that was current.
func CapturePages(p Pager, pages []int) ([]Snapshot, error) {
	info := p.Page()
	pages = pageIndexes(info.Total, pages)
	defer func() { _ = p.SetPage(info.Current) }()

	out := make([]Snapshot, 0, len(pages))
	for _, i := range pages {
		if i < 0 || i >= info.Total {
			continue
		}
		if err := p.SetPage(i); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		snap, err := Capture(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		snap.Index = i
		out = append(out, snap)
	}
	if len(out) == 0 {
		return nil, errors.New("export: no pages selected")
	}
	return out, nil
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
