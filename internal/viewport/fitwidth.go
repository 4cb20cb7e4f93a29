/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"log/slog"
	"sync"

	applog "github.com/cwl23cwl/write-on-app-sub001/internal/log"
)

// FitWidthManager keeps the scale at (viewport width - padding) / page width
// while the store is in fit-width mode.
type FitWidthManager struct {
	store   *Store
	log     *slog.Logger
	cancel  func()
	mu      sync.Mutex
	padding float64
}

// NewFitWidthManager subscribes to store and applies the fit scale as soon as
// both the viewport and the page have a width.
func NewFitWidthManager(store *Store, horizontalPadding float64) *FitWidthManager {
	if horizontalPadding < 0 {
		horizontalPadding = 0
	}
	f := &FitWidthManager{store: store, padding: horizontalPadding, log: applog.WithComponent("fitwidth")}
	f.cancel = store.Subscribe(f.onChange)
	f.Apply()
	return f
}

// FitScale returns the clamped scale that fits the page width into the
// viewport. ok is false while either width is unknown.
func (f *FitWidthManager) FitScale() (scale float64, ok bool) {
	f.mu.Lock()
	pad := f.padding
	f.mu.Unlock()
	st := f.store.State()
	return fitScaleFor(st, pad, f.store.Constraints())
}

func fitScaleFor(st State, padding float64, c Constraints) (float64, bool) {
	avail := st.ViewportSize.W - padding
	if st.ViewportSize.W <= 0 || st.PageSize.W <= 0 || avail <= 0 {
		return 0, false
	}
	return c.ClampScale(avail / st.PageSize.W), true
}

// SetPadding changes the horizontal padding and re-applies the fit.
func (f *FitWidthManager) SetPadding(p float64) {
	if p < 0 {
		p = 0
	}
	f.mu.Lock()
	f.padding = p
	f.mu.Unlock()
	f.Apply()
}

// Apply sets the fit scale when in fit-width mode.
func (f *FitWidthManager) Apply() {
	st := f.store.State()
	if st.FitMode != FitWidth {
		return
	}
	scale, ok := f.FitScale()
	if !ok {
		return
	}
	if scale != st.Scale {
		f.log.Debug("fit-width scale applied", slog.Float64("scale", scale), slog.Float64("viewport_w", st.ViewportSize.W))
		f.store.SetScale(scale)
	}
}

// Close stops following the store.
func (f *FitWidthManager) Close() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *FitWidthManager) onChange(prev, next State) {
	if prev.ViewportSize.W == next.ViewportSize.W && prev.PageSize.W == next.PageSize.W && prev.FitMode == next.FitMode {
		return
	}
	f.Apply()
}
