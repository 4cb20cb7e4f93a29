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
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// fontLibrary maps font family ids to parsed OpenType fonts and caches faces
// per size. Families without a font fall back to basicfont.
type fontLibrary struct {
	mu    sync.Mutex
	fonts map[int]*opentype.Font
	faces map[faceKey]font.Face
}

// maxFaces bounds the face cache; zooming produces a new size per step.
const maxFaces = 64

type faceKey struct {
	family int
	size   float64
}

var (
	fontsOnce sync.Once
	fonts     *fontLibrary
)

func library() *fontLibrary {
	fontsOnce.Do(func() {
		fonts = &fontLibrary{fonts: map[int]*opentype.Font{}, faces: map[faceKey]font.Face{}}
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return
		}
		mono, err := opentype.Parse(gomono.TTF)
		if err != nil {
			mono = regular
		}
		fonts.fonts[FontHand] = regular
		fonts.fonts[FontSans] = regular
		fonts.fonts[FontSerif] = regular
		fonts.fonts[FontMono] = mono
	})
	return fonts
}

// LoadFont replaces the font used for a family id with a TTF/OTF file.
func LoadFont(family int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	lib := library()
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.fonts[family] = f
	for k := range lib.faces {
		if k.family == family {
			delete(lib.faces, k)
		}
	}
	return nil
}

// face returns a face for the family at size pixels.
func (l *fontLibrary) face(family int, size float64) font.Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := faceKey{family, size}
	if f, ok := l.faces[k]; ok {
		return f
	}
	if len(l.faces) >= maxFaces {
		l.faces = map[faceKey]font.Face{}
	}
	var face font.Face = basicfont.Face7x13
	if f := l.fonts[family]; f != nil && size > 0 {
		if ff, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone}); err == nil {
			face = ff
		}
	}
	l.faces[k] = face
	return face
}

// lineHeight is the text line height relative to the font size.
const lineHeight = 1.25

// measureText returns the box of a possibly multi-line text at size px.
func measureText(family int, size float64, text string) (w, h float64) {
	face := library().face(family, size)
	d := &font.Drawer{Face: face}
	lines := splitLines(text)
	for _, ln := range lines {
		w = max(w, float64(d.MeasureString(ln))/64)
	}
	return w, float64(len(lines)) * size * lineHeight
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	return append(lines, text[start:])
}
