/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"

	"github.com/cwl23cwl/write-on-app-sub001/internal/config"
	"github.com/cwl23cwl/write-on-app-sub001/internal/crash"
	"github.com/cwl23cwl/write-on-app-sub001/internal/export"
	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
	"github.com/cwl23cwl/write-on-app-sub001/internal/prefs"
	"github.com/cwl23cwl/write-on-app-sub001/internal/tui"
	"github.com/cwl23cwl/write-on-app-sub001/internal/ui"
	"github.com/cwl23cwl/write-on-app-sub001/internal/version"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/workspace"
)

func usage() {
	fmt.Println("Write On")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  writeon version|-v|--version                 Show version")
	fmt.Println("  writeon [tui]                                Edit in the terminal")
	fmt.Println("  writeon ui                                   Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  writeon export [-preset web|print] [-out dir] [-pages 1,2]")
	fmt.Println("                                               Render pages to PNG/PDF")
	fmt.Println("  writeon config                               Print the config file path")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "tui"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("Write On")
		fmt.Println(version.String())
		return 0
	case "help", "-h", "--help":
		usage()
		return 0
	case "tui", "ui", "export", "config":
	default:
		fmt.Println("unknown command:", cmd)
		usage()
		return 2
	}

	cfg, password, cfgErr := config.Load()
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	gg.SetLogger(applog.WithComponent("gg"))
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	if cmd == "config" {
		p, err := config.ConfigPath()
		if err != nil {
			fmt.Println("Error:", err)
			return 1
		}
		fmt.Println(p)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := openPrefs(ctx, cfg, password, l)
	defer func() {
		if err := store.Close(); err != nil {
			l.Warn("closing prefs failed", slog.Any("err", err))
		}
	}()

	opts := workspace.Options{Config: cfg, Prefs: store, DPR: 1}
	if cmd == "export" {
		// a viewport that fits the page at scale 1
		opts.Viewport = viewmath.Size{W: cfg.Viewport.PageWidth + cfg.Viewport.FitPadding, H: 900}
		opts.Prefs = nil
	}
	sess, err := workspace.New(opts)
	if err != nil {
		l.Error("workspace setup failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			l.Warn("workspace close failed", slog.Any("err", err))
		}
	}()
	if err := sess.Start(ctx); err != nil {
		l.Error("workspace start failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	cfgDir, _ := config.ConfigDir()
	defer crash.Recover(cfgDir, sess)

	switch cmd {
	case "ui":
		err = ui.Run(ctx, sess)
	case "export":
		err = runExport(sess, args)
	default:
		err = runTUI(ctx, sess)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error(cmd+" failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		return 1
	}
	return 0
}

// openPrefs opens the configured preference store, falling back to memory.
func openPrefs(ctx context.Context, cfg config.AppConfig, password string, l *slog.Logger) prefs.Store {
	octx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s, err := prefs.Open(octx, prefs.Options{Driver: cfg.Prefs.Driver, DSN: cfg.Prefs.DSN, Password: password, Dir: cfg.Prefs.Dir})
	if err != nil {
		l.Warn("prefs store unavailable, preferences will not persist", slog.Any("err", err))
		return prefs.NewMemory()
	}
	return s
}

func runTUI(ctx context.Context, sess *workspace.Session) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()
	return tui.New(screen, sess).Run(ctx)
}

func runExport(sess *workspace.Session, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	preset := fs.String("preset", string(export.PresetPrint), "export preset: web or print")
	out := fs.String("out", "exports", "output directory")
	pages := fs.String("pages", "", "comma separated page numbers, default all")
	name := fs.String("name", "page", "base file name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sel, err := parsePages(*pages)
	if err != nil {
		return err
	}
	// wait for the first backing store
	for i := 0; i < 50; i++ {
		sess.Tick()
		if _, ok := sess.Resolution().State(); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	files, err := export.Batch(sess, export.BatchOptions{Preset: export.PresetName(*preset), Pages: sel, OutDir: *out, Name: *name, Title: "Write On"})
	for _, f := range files {
		fmt.Println(f)
	}
	return err
}

// parsePages turns "1,3" into zero based indexes.
func parsePages(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		out = append(out, n-1)
	}
	return out, nil
}
