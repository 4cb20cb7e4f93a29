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
	"testing"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

func TestRoundZoomPercent(t *testing.T) {
	cases := []struct {
		scale float64
		want  float64
		text  string
	}{
		{0.08, 8.0, "8.0%"},
		{0.047, 4.7, "4.7%"},
		{0.47, 47, "47%"},
		{1, 100, "100%"},
		{2.03, 205, "205%"},
		{1.13, 115, "115%"},
		{0, 0, "0.0%"},
	}
	for _, c := range cases {
		if got := RoundZoomPercent(c.scale); got != c.want {
			t.Errorf("RoundZoomPercent(%v) = %v, want %v", c.scale, got, c.want)
		}
		if got := FormatZoomPercent(c.scale); got != c.text {
			t.Errorf("FormatZoomPercent(%v) = %q, want %q", c.scale, got, c.text)
		}
	}
}

func TestContentTransformCentersNarrowPage(t *testing.T) {
	s := NewStore(Options{PageSize: viewmath.Size{W: 1200, H: 2200}})
	s.SetFitMode(Free)
	s.SetViewportSize(1600, 900)

	tr := ContentTransform(s.State())
	if got, want := tr.CSS(), "translate3d(200px,0,0) scale(1)"; got != want {
		t.Fatalf("CSS = %q, want %q", got, want)
	}

	s.SetScale(1.5)
	tr = ContentTransform(s.State())
	if got, want := tr.CSS(), "translate3d(0px,0,0) scale(1.5)"; got != want {
		t.Fatalf("CSS = %q, want %q", got, want)
	}
}
