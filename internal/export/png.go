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
	"io"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"
)

// WritePNG encodes the snapshot at its rendered resolution.
func WritePNG(w io.Writer, snap Snapshot) error {
	if snap.Image == nil {
		return ErrNoFrame
	}
	if err := gg.NewContextForImage(snap.Image).EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes the snapshot to path, creating the directory.
func SavePNG(path string, snap Snapshot) error {
	if snap.Image == nil {
		return ErrNoFrame
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := gg.NewContextForImage(snap.Image).SavePNG(path); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNGPages writes one <name>-page-<n>.png per snapshot into dir and
// returns the file names.
func SavePNGPages(dir, name string, snaps []Snapshot) ([]string, error) {
	files := make([]string, 0, len(snaps))
	for _, s := range snaps {
		p := filepath.Join(dir, fmt.Sprintf("%s-page-%d.png", name, s.Index+1))
		if err := SavePNG(p, s); err != nil {
			return files, err
		}
		files = append(files, p)
	}
	return files, nil
}
