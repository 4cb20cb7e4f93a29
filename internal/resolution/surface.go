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
	"fmt"
	"image"
	"image/draw"
	"io"
	"sync"

	"github.com/gogpu/gg"
)

// Surface is a drawing surface whose backing store the manager owns. Apply
// sets the pixel size and the matching context scale in one step.
type Surface interface {
	Apply(width, height int, dpr float64) error
}

// GGSurface is the interactive surface, backed by a gg context. The manager
// is the only writer of its size and base transform.
type GGSurface struct {
	mu  sync.Mutex
	dc  *gg.Context
	dpr float64
	// allocs counts backing-store writes.
	allocs int
}

// NewGGSurface allocates a surface of w x h pixels at DPR 1.
func NewGGSurface(w, h int) *GGSurface {
	return &GGSurface{dc: gg.NewContext(max(1, w), max(1, h)), dpr: 1}
}

func (s *GGSurface) Apply(width, height int, dpr float64) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resize backing store %dx%d: %v", width, height, r)
		}
	}()
	if err := s.dc.Resize(width, height); err != nil {
		return fmt.Errorf("resize backing store: %w", err)
	}
	s.dc.Identity()
	s.dc.Scale(dpr, dpr)
	s.dpr = dpr
	s.allocs++
	return nil
}

// Draw runs fn with exclusive access to the context, at the current base
// transform. fn must not resize the context.
func (s *GGSurface) Draw(fn func(dc *gg.Context, dpr float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.Push()
	defer s.dc.Pop()
	fn(s.dc, s.dpr)
}

// Snapshot copies the backing store.
func (s *GGSurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.dc.Image()
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// EncodePNG writes the backing store as PNG.
func (s *GGSurface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.EncodePNG(w)
}

// Size returns the backing store size in pixels.
func (s *GGSurface) Size() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Width(), s.dc.Height()
}

// Applies returns how often the backing store was written.
func (s *GGSurface) Applies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocs
}

// Close releases the context.
func (s *GGSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Close()
}
