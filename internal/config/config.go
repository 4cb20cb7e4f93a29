/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwl23cwl/write-on-app-sub001/internal/resolution"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
	"github.com/cwl23cwl/write-on-app-sub001/internal/viewport"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type ViewportConfig struct {
	MinScale   float64 `yaml:"min_scale"`
	MaxScale   float64 `yaml:"max_scale"`
	EnablePan  bool    `yaml:"enable_pan"`
	EnableZoom bool    `yaml:"enable_zoom"`
	PageWidth  float64 `yaml:"page_width"`
	PageHeight float64 `yaml:"page_height"`
	// FitPadding is the horizontal space kept free around the page in fit-width.
	FitPadding float64 `yaml:"fit_padding"`
}

type ResolutionConfig struct {
	MinDPR           float64 `yaml:"min_dpr"`
	MaxDPR           float64 `yaml:"max_dpr"`
	MaxDimension     int     `yaml:"max_dimension"`
	MaxPixels        int64   `yaml:"max_pixels"`
	ResizeDebounceMs int     `yaml:"resize_debounce_ms"`
}

type EngineConfig struct {
	Kind     string `yaml:"kind"` // "ink" | "sheet"
	FontPath string `yaml:"font_path"`
	Pages    int    `yaml:"pages"`
}

type PrefsConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "pgx"
	DSN    string `yaml:"dsn"`
	// Dir holds the SQLite file; empty selects the config directory.
	Dir string `yaml:"dir"`
	// The pgx password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Viewport      ViewportConfig   `yaml:"viewport"`
	Resolution    ResolutionConfig `yaml:"resolution"`
	Engine        EngineConfig     `yaml:"engine"`
	Prefs         PrefsConfig      `yaml:"prefs"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	c := viewport.DefaultConstraints()
	l := resolution.DefaultLimits()
	return AppConfig{
		ConfigVersion: 1,
		Viewport: ViewportConfig{
			MinScale: c.MinScale, MaxScale: c.MaxScale, EnablePan: c.EnablePan, EnableZoom: c.EnableZoom,
			PageWidth: 1200, PageHeight: 2200, FitPadding: 48,
		},
		Resolution: ResolutionConfig{
			MinDPR: l.MinDPR, MaxDPR: l.MaxDPR, MaxDimension: l.MaxDimension, MaxPixels: l.MaxPixels,
			ResizeDebounceMs: 100,
		},
		Engine:  EngineConfig{Kind: "ink", Pages: 1},
		Prefs:   PrefsConfig{Driver: "sqlite"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvMinScale   = "WOA_MIN_SCALE"
	EnvMaxScale   = "WOA_MAX_SCALE"
	EnvEnablePan  = "WOA_ENABLE_PAN"
	EnvEnableZoom = "WOA_ENABLE_ZOOM"
	EnvMaxDPR     = "WOA_MAX_DPR"
	EnvEngine     = "WOA_ENGINE"
	EnvFontPath   = "WOA_FONT_PATH"
	EnvPrefsDrv   = "WOA_PREFS_DRIVER"
	EnvPrefsDSN   = "WOA_PREFS_DSN"
	EnvPrefsDir   = "WOA_PREFS_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "WOA_LOG_LEVEL"
	EnvLogFormat = "WOA_LOG_FORMAT"
	EnvLogSource = "WOA_LOG_SOURCE"
	EnvLogFile   = "WOA_LOG_FILE"
	// EnvConfigDir relocates the config directory.
	EnvConfigDir = "WOA_CONFIG_DIR"
)

// ConfigDir returns the per-user config directory.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "WriteOn")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "WriteOn")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "write-on")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "write-on")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The pgx password is read from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A malformed file is reported
// but the defaults plus env overrides are still returned.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	var ferr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			ferr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg, data)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		ferr = fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Prefs.Dir == "" {
		cfg.Prefs.Dir = filepath.Dir(path)
	}
	pw, _ := tokenStore.Get(keyringService, keyringDBPassword)
	return cfg, pw, ferr
}

// Save writes the user config YAML and persists the pgx password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, password)
}

func SaveTo(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringDBPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// mergeInto copies set fields from the file. Booleans are taken only when
// the file mentions their section, so a partial file keeps the defaults.
func mergeInto(dst *AppConfig, src *AppConfig, raw []byte) {
	var present map[string]any
	_ = yaml.Unmarshal(raw, &present)
	has := func(section, key string) bool {
		m, _ := present[section].(map[string]any)
		_, ok := m[key]
		return ok
	}
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// viewport
	if src.Viewport.MinScale > 0 {
		dst.Viewport.MinScale = src.Viewport.MinScale
	}
	if src.Viewport.MaxScale > 0 {
		dst.Viewport.MaxScale = src.Viewport.MaxScale
	}
	if has("viewport", "enable_pan") {
		dst.Viewport.EnablePan = src.Viewport.EnablePan
	}
	if has("viewport", "enable_zoom") {
		dst.Viewport.EnableZoom = src.Viewport.EnableZoom
	}
	if src.Viewport.PageWidth > 0 {
		dst.Viewport.PageWidth = src.Viewport.PageWidth
	}
	if src.Viewport.PageHeight > 0 {
		dst.Viewport.PageHeight = src.Viewport.PageHeight
	}
	if has("viewport", "fit_padding") && src.Viewport.FitPadding >= 0 {
		dst.Viewport.FitPadding = src.Viewport.FitPadding
	}
	// resolution
	if src.Resolution.MinDPR > 0 {
		dst.Resolution.MinDPR = src.Resolution.MinDPR
	}
	if src.Resolution.MaxDPR > 0 {
		dst.Resolution.MaxDPR = src.Resolution.MaxDPR
	}
	if src.Resolution.MaxDimension > 0 {
		dst.Resolution.MaxDimension = src.Resolution.MaxDimension
	}
	if src.Resolution.MaxPixels > 0 {
		dst.Resolution.MaxPixels = src.Resolution.MaxPixels
	}
	if src.Resolution.ResizeDebounceMs > 0 {
		dst.Resolution.ResizeDebounceMs = src.Resolution.ResizeDebounceMs
	}
	// engine
	if v := strings.ToLower(strings.TrimSpace(src.Engine.Kind)); v != "" {
		dst.Engine.Kind = v
	}
	if v := strings.TrimSpace(src.Engine.FontPath); v != "" {
		dst.Engine.FontPath = v
	}
	if src.Engine.Pages > 0 {
		dst.Engine.Pages = src.Engine.Pages
	}
	// prefs
	if v := strings.ToLower(strings.TrimSpace(src.Prefs.Driver)); v != "" {
		dst.Prefs.Driver = v
	}
	if v := strings.TrimSpace(src.Prefs.DSN); v != "" {
		dst.Prefs.DSN = v
	}
	if v := strings.TrimSpace(src.Prefs.Dir); v != "" {
		dst.Prefs.Dir = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMinScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Viewport.MinScale = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Viewport.MaxScale = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnablePan)); v != "" {
		cfg.Viewport.EnablePan = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableZoom)); v != "" {
		cfg.Viewport.EnableZoom = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxDPR)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Resolution.MaxDPR = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvEngine)); v != "" {
		cfg.Engine.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontPath)); v != "" {
		cfg.Engine.FontPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefsDrv)); v != "" {
		cfg.Prefs.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefsDSN)); v != "" {
		cfg.Prefs.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefsDir)); v != "" {
		cfg.Prefs.Dir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"viewport.min_scale":   EnvMinScale,
	"viewport.max_scale":   EnvMaxScale,
	"viewport.enable_pan":  EnvEnablePan,
	"viewport.enable_zoom": EnvEnableZoom,
	"resolution.max_dpr":   EnvMaxDPR,
	"engine.kind":          EnvEngine,
	"engine.font_path":     EnvFontPath,
	"prefs.driver":         EnvPrefsDrv,
	"prefs.dsn":            EnvPrefsDSN,
	"prefs.dir":            EnvPrefsDir,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	if env, ok := envByKey[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Constraints returns the viewport constraints. Inverted bounds are swapped.
func (v ViewportConfig) Constraints() viewport.Constraints {
	lo, hi := v.MinScale, v.MaxScale
	if lo > hi {
		lo, hi = hi, lo
	}
	return viewport.Constraints{MinScale: lo, MaxScale: hi, EnablePan: v.EnablePan, EnableZoom: v.EnableZoom}
}

// PageSize returns the logical page size.
func (v ViewportConfig) PageSize() viewmath.Size {
	return viewmath.Size{W: v.PageWidth, H: v.PageHeight}
}

// Limits returns the resolution limits.
func (r ResolutionConfig) Limits() resolution.Limits {
	l := resolution.DefaultLimits()
	l.MinDPR, l.MaxDPR = r.MinDPR, r.MaxDPR
	l.MaxDimension, l.MaxPixels = r.MaxDimension, r.MaxPixels
	return l
}

// ResizeDebounce returns the container resize debounce.
func (r ResolutionConfig) ResizeDebounce() time.Duration {
	if r.ResizeDebounceMs <= 0 {
		return time.Duration(Defaults().Resolution.ResizeDebounceMs) * time.Millisecond
	}
	return time.Duration(r.ResizeDebounceMs) * time.Millisecond
}
