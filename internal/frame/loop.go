/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package frame is the animation-frame and timeout scheduler the interaction
// core defers its commits to. A host ticks the Loop on its UI goroutine once
// per displayed frame; callbacks requested during a tick run on the next one.
package frame

import (
	"sort"
	"sync"
	"time"
)

// ID identifies a scheduled callback. Zero is never issued.
type ID uint64

type job struct {
	id ID
	fn func()
}

type timer struct {
	job
	due time.Time
	seq uint64
}

// Loop queues frame callbacks and timeouts. All callbacks run inside Tick.
// Scheduling and cancelling are safe from any goroutine.
type Loop struct {
	mu     sync.Mutex
	clock  Clock
	nextID ID
	seq    uint64
	frames []job
	timers []timer
}

// NewLoop returns a loop reading time from c, or the system clock when c is nil.
func NewLoop(c Clock) *Loop {
	if c == nil {
		c = SystemClock{}
	}
	return &Loop{clock: c}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock { return l.clock }

// Request runs fn on the next Tick.
func (l *Loop) Request(fn func()) ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.frames = append(l.frames, job{id: l.nextID, fn: fn})
	return l.nextID
}

// After runs fn on the first Tick at or after now+d.
func (l *Loop) After(d time.Duration, fn func()) ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.seq++
	l.timers = append(l.timers, timer{job: job{id: l.nextID, fn: fn}, due: l.clock.Now().Add(d), seq: l.seq})
	return l.nextID
}

// Cancel removes a pending frame callback or timeout. It reports whether
// anything was removed.
func (l *Loop) Cancel(id ID) bool {
	if id == 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, j := range l.frames {
		if j.id == id {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return true
		}
	}
	for i, t := range l.timers {
		if t.id == id {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of queued frame callbacks and timeouts.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames) + len(l.timers)
}

// Tick runs the timeouts that are due, then the frame batch that was queued
// before the tick started. It returns the number of callbacks run.
func (l *Loop) Tick() int {
	l.mu.Lock()
	now := l.clock.Now()
	var due []timer
	keep := l.timers[:0]
	for _, t := range l.timers {
		if !t.due.After(now) {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	l.timers = keep
	l.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	n := 0
	for _, t := range due {
		t.fn()
		n++
	}

	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	l.mu.Unlock()
	for _, j := range batch {
		j.fn()
		n++
	}
	return n
}
