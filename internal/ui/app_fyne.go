//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/cwl23cwl/write-on-app-sub001/internal/export"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/version"
	"github.com/cwl23cwl/write-on-app-sub001/internal/workspace"
)

// frameInterval paces session ticks.
const frameInterval = 16 * time.Millisecond

// Run shows the session in a Fyne window until it is closed or ctx is done.
func Run(ctx context.Context, s *workspace.Session) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.Version))

	fyneApp := app.NewWithID("io.writeon.app")
	w := fyneApp.NewWindow("Write On")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel(s.Status())
	cv := NewSessionCanvas(s)
	cv.OnChange = func() { status.SetText(s.Status()) }

	zoomOut := widget.NewButton("−", func() { cv.Shortcut(fyne.KeyMinus) })
	zoomIn := widget.NewButton("+", func() { cv.Shortcut(fyne.KeyEqual) })
	fit := widget.NewButton("Fit", func() { cv.key("f", false) })
	undo := widget.NewButton("Undo", func() { s.Undo(); cv.changed() })
	redo := widget.NewButton("Redo", func() { s.Redo(); cv.changed() })
	strip := container.NewHBox(zoomOut, zoomIn, fit, widget.NewSeparator(), undo, redo, widget.NewSeparator(), status)

	exportItem := fyne.NewMenuItem("Export…", func() {
		dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			if err := exportTo(s, path); err != nil {
				l.Error("export failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + filepath.Base(path))
		}, w)
	})
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierShortcutDefault}
	w.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu("File", exportItem)))

	// Keyboard shortcuts
	for _, k := range []fyne.KeyName{fyne.Key0, fyne.KeyEqual, fyne.KeyMinus} {
		k := k
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: k, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
			cv.Shortcut(k)
		})
	}
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		s.Undo()
		cv.changed()
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		s.Redo()
		cv.changed()
	})

	w.SetContent(container.NewBorder(strip, nil, nil, nil, cv))
	w.Canvas().Focus(cv)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(frameInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				fyne.Do(w.Close)
				return
			case <-t.C:
				fyne.Do(func() {
					s.ObserveDPR(float64(w.Canvas().Scale()))
					if s.Tick() > 0 {
						cv.changed()
					}
				})
			}
		}
	}()

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := s.SavePrefs(context.Background()); err != nil {
			l.Warn("viewport prefs not saved", slog.Any("err", err))
		}
		w.Close()
	})

	w.ShowAndRun()
	close(done)
	return nil
}

// exportTo writes every page as PDF, or the current page as PNG when path
// ends in .png.
func exportTo(s *workspace.Session, path string) error {
	if filepath.Ext(path) == ".png" {
		snap, err := export.Capture(s)
		if err != nil {
			return err
		}
		return export.SavePNG(path, snap)
	}
	snaps, err := export.CapturePages(s, nil)
	if err != nil {
		return err
	}
	return export.SavePDF(path, snaps, export.PDFOptions{Title: filepath.Base(path)})
}
