/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package frame

import "time"

// Coalescer keeps at most one pending frame callback. Scheduling again before
// the frame runs replaces the earlier callback.
type Coalescer struct {
	loop *Loop
	id   ID
}

func NewCoalescer(l *Loop) *Coalescer { return &Coalescer{loop: l} }

// Schedule queues fn for the next frame, superseding any pending callback.
func (c *Coalescer) Schedule(fn func()) {
	c.loop.Cancel(c.id)
	var id ID
	id = c.loop.Request(func() {
		// superseded or cancelled after the loop took it for this tick
		if c.id != id {
			return
		}
		c.id = 0
		fn()
	})
	c.id = id
}

// Pending reports whether a callback is waiting for the next frame.
func (c *Coalescer) Pending() bool { return c.id != 0 }

// Cancel drops the pending callback, if any.
func (c *Coalescer) Cancel() {
	c.loop.Cancel(c.id)
	c.id = 0
}

// DefaultResizeDebounce is the settle time applied to container resizes.
const DefaultResizeDebounce = 100 * time.Millisecond

// Debouncer runs the latest triggered callback once no trigger has arrived for
// its delay.
type Debouncer struct {
	loop  *Loop
	delay time.Duration
	id    ID
}

func NewDebouncer(l *Loop, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultResizeDebounce
	}
	return &Debouncer{loop: l, delay: delay}
}

// Trigger restarts the delay with fn as the callback.
func (d *Debouncer) Trigger(fn func()) {
	d.loop.Cancel(d.id)
	var id ID
	id = d.loop.After(d.delay, func() {
		// superseded or cancelled after the loop took it for this tick
		if d.id != id {
			return
		}
		d.id = 0
		fn()
	})
	d.id = id
}

// Pending reports whether a callback is waiting.
func (d *Debouncer) Pending() bool { return d.id != 0 }

// Cancel drops the pending callback.
func (d *Debouncer) Cancel() {
	d.loop.Cancel(d.id)
	d.id = 0
}
