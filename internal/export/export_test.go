/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/config"
	"github.com/cwl23cwl/write-on-app-sub001/internal/engine"
	"github.com/cwl23cwl/write-on-app-sub001/internal/frame"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/workspace"
)

// fakePager paints each page a distinct gray at 2x the logical size.
type fakePager struct {
	current, total int
	blank          bool
	img            image.Image
}

func (f *fakePager) Render() error {
	if f.blank {
		f.img = nil
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, 80, 120))
	g := uint8(40 * (f.current + 1))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = g, g, g, 255
	}
	f.img = img
	return nil
}

func (f *fakePager) Frame() image.Image         { return f.img }
func (f *fakePager) LogicalPage() viewmath.Size { return viewmath.Size{W: 40, H: 60} }
func (f *fakePager) Page() engine.PageInfo      { return engine.PageInfo{Current: f.current, Total: f.total} }
func (f *fakePager) SetPage(i int) error {
	if i < 0 || i >= f.total {
		return fmt.Errorf("page %d out of range", i)
	}
	f.current = i
	return nil
}

func TestCapturePagesRestoresCurrentPage(t *testing.T) {
	p := &fakePager{current: 1, total: 3}
	snaps, err := CapturePages(p, nil)
	if err != nil {
		t.Fatalf("CapturePages: %v", err)
	}
	if len(snaps) != 3 || p.current != 1 {
		t.Fatalf("snaps=%d current=%d", len(snaps), p.current)
	}
	for i, s := range snaps {
		if s.Index != i {
			t.Fatalf("snap %d has index %d", i, s.Index)
		}
		r, _, _, _ := s.Image.At(0, 0).RGBA()
		if want := uint32(40*(i+1)) * 0x101; r != want {
			t.Fatalf("page %d color = %x, want %x", i, r, want)
		}
	}

	snaps, err = CapturePages(p, []int{2, 7})
	if err != nil || len(snaps) != 1 || snaps[0].Index != 2 {
		t.Fatalf("subset = %v, %v", snaps, err)
	}
}

func TestCaptureWithoutFrame(t *testing.T) {
	p := &fakePager{total: 1, blank: true}
	if _, err := Capture(p); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("err = %v, want ErrNoFrame", err)
	}
	if _, err := CapturePages(p, []int{5}); err == nil {
		t.Fatalf("empty selection accepted")
	}
}

func TestPageSizeInPoints(t *testing.T) {
	w, h := Snapshot{Page: viewmath.Size{W: 1200, H: 2200}}.PageSizePt()
	if w != 900 || h != 1650 {
		t.Fatalf("page = %vx%v pt", w, h)
	}
}

func TestWritePNGKeepsResolution(t *testing.T) {
	p := &fakePager{total: 1}
	snap, err := Capture(p)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, snap); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 120 {
		t.Fatalf("png = %v", b)
	}
	if got := color.GrayModel.Convert(img.At(10, 10)).(color.Gray).Y; got != 40 {
		t.Fatalf("pixel = %d", got)
	}
}

func TestBatchPrintPreset(t *testing.T) {
	dir := t.TempDir()
	p := &fakePager{total: 2}
	files, err := Batch(p, BatchOptions{Preset: PresetPrint, OutDir: dir, Name: "lesson", Title: "Lesson"})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	want := []string{
		filepath.Join(dir, "pdf", "lesson.pdf"),
		filepath.Join(dir, "png", "lesson-page-1.png"),
		filepath.Join(dir, "png", "lesson-page-2.png"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i, f := range want {
		if files[i] != f {
			t.Fatalf("file %d = %s, want %s", i, files[i], f)
		}
		st, err := os.Stat(f)
		if err != nil || st.Size() == 0 {
			t.Fatalf("missing %s: %v", f, err)
		}
	}
	data, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
}

func TestBatchRejectsUnknownFormat(t *testing.T) {
	p := &fakePager{total: 1}
	if _, err := Batch(p, BatchOptions{Formats: []string{"svg"}, OutDir: t.TempDir()}); err == nil {
		t.Fatalf("unknown format accepted")
	}
}

func TestCaptureSession(t *testing.T) {
	clock := frame.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	s, err := workspace.New(workspace.Options{Config: config.Defaults(), Clock: clock, DPR: 2, Viewport: viewmath.Size{W: 648, H: 900}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	for i := 0; i < 3; i++ {
		clock.Advance(200 * time.Millisecond)
		s.Tick()
	}
	snap, err := Capture(s)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if b := snap.Image.Bounds(); b.Dx() != 1200 || b.Dy() != 2200 {
		t.Fatalf("frame = %v", b)
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, []Snapshot{snap}, PDFOptions{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}
