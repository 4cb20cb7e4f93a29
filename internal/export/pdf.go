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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions set the document metadata.
type PDFOptions struct {
	Title  string
	Author string
}

// WritePDF writes one PDF page per snapshot. Each page is sized to the
// logical page in points and carries the frame as a full-page image.
func WritePDF(w io.Writer, snaps []Snapshot, opt PDFOptions) error {
	if len(snaps) == 0 {
		return errors.New("export: no pages to write")
	}
	fw, fh := snaps[0].PageSizePt()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: fw, Ht: fh},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author == "" {
		opt.Author = "Write On"
	}
	pdf.SetAuthor(opt.Author, true)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, s := range snaps {
		if s.Image == nil {
			return fmt.Errorf("page %d: %w", s.Index+1, ErrNoFrame)
		}
		var buf bytes.Buffer
		if err := WritePNG(&buf, s); err != nil {
			return fmt.Errorf("page %d: %w", s.Index+1, err)
		}
		pw, ph := s.PageSizePt()
		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, imgOpt, &buf)
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pw, Ht: ph})
		pdf.ImageOptions(name, 0, 0, pw, ph, false, imgOpt, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("page %d: %w", s.Index+1, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// SavePDF writes the snapshots to path, creating the directory.
func SavePDF(path string, snaps []Snapshot, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(f, snaps, opt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	return nil
}
