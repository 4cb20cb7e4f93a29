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
	"fmt"
	"path/filepath"
	"strings"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a batch export of several pages and formats.
//
// Files land in OutDir/<format>/: <name>.pdf for PDF, <name>-page-<n>.png
// for PNG. Pages are zero based; empty means all pages.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // pdf, png; empty means preset defaults
	Pages   []int
	OutDir  string
	Name    string
	Title   string
}

// Batch captures the selected pages once and writes every format. It returns
// the files written.
func Batch(p Pager, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := opt.OutDir
	if base == "" {
		base = string(opt.Preset)
		if base == "" {
			base = "exports"
		}
	}
	name := opt.Name
	if name == "" {
		name = "page"
	}

	snaps, err := CapturePages(p, opt.Pages)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(base, "pdf", name+".pdf")
			if err := SavePDF(out, snaps, PDFOptions{Title: opt.Title}); err != nil {
				return files, fmt.Errorf("pdf: %w", err)
			}
			files = append(files, out)
		case "png":
			written, err := SavePNGPages(filepath.Join(base, "png"), name, snaps)
			files = append(files, written...)
			if err != nil {
				return files, fmt.Errorf("png: %w", err)
			}
		default:
			return files, fmt.Errorf("unknown format: %s", f)
		}
	}
	return files, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}
