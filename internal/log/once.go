/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"log/slog"
	"sync"
)

var seen sync.Map

// Once logs msg at warn level the first time kind is reported and reports
// whether it did. Later reports of the same kind are dropped so a corrupted
// value hit on every frame does not flood the log.
func Once(l *slog.Logger, kind, msg string, attrs ...any) bool {
	if _, loaded := seen.LoadOrStore(kind, struct{}{}); loaded {
		return false
	}
	if l == nil {
		l = L()
	}
	l.Warn(msg, append([]any{slog.String("kind", kind)}, attrs...)...)
	return true
}

// ResetOnce forgets every reported kind.
func ResetOnce() {
	seen.Range(func(k, _ any) bool {
		seen.Delete(k)
		return true
	})
}
