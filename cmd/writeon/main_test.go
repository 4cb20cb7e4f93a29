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

import "testing"

func TestParsePages(t *testing.T) {
	got, err := parsePages("1, 3")
	if err != nil || len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("parsePages = %v, %v", got, err)
	}
	if got, err := parsePages(""); err != nil || got != nil {
		t.Fatalf("empty = %v, %v", got, err)
	}
	for _, bad := range []string{"0", "x", "1,,2"} {
		if _, err := parsePages(bad); err == nil {
			t.Fatalf("parsePages(%q) accepted", bad)
		}
	}
}

func TestRunVersionAndUnknown(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("version exit = %d", code)
	}
	if code := run([]string{"bogus"}); code != 2 {
		t.Fatalf("unknown exit = %d", code)
	}
}
