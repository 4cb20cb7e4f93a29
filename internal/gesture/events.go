/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"time"

	"github.com/cwl23cwl/write-on-app-sub001/internal/viewmath"
)

// Event is the dispatch state shared by all input events.
type Event struct {
	Time   time.Time
	Target *Node

	defaultPrevented   bool
	propagationStopped bool
}

func (e *Event) PreventDefault()          { e.defaultPrevented = true }
func (e *Event) StopPropagation()         { e.propagationStopped = true }
func (e *Event) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// consume marks an event as fully handled by the controller.
func (e *Event) consume() {
	e.PreventDefault()
	e.StopPropagation()
}

// Modifiers are the keyboard modifiers held during an event.
type Modifiers struct {
	Ctrl, Meta, Shift, Alt bool
}

// Command reports whether the platform zoom modifier (Ctrl or Cmd) is held.
func (m Modifiers) Command() bool { return m.Ctrl || m.Meta }

// WheelEvent is a mouse wheel or trackpad scroll.
type WheelEvent struct {
	Event
	Modifiers
	ClientX, ClientY float64
	DeltaY           float64
	DeltaMode        viewmath.DeltaMode
}

// GesturePhase is the stage of a platform pinch gesture.
type GesturePhase int

const (
	GestureStart GesturePhase = iota
	GestureChange
	GestureEnd
)

// GestureEvent is a platform pinch. Scale is relative to the gesture start.
// Pointer coordinates are only meaningful when HasPointer is set.
type GestureEvent struct {
	Event
	Phase            GesturePhase
	Scale            float64
	ClientX, ClientY float64
	HasPointer       bool
}

// PointerPhase is the stage of a pointer interaction.
type PointerPhase int

const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
	PointerCancel
)

// PointerEvent is a mouse, pen or touch pointer.
type PointerEvent struct {
	Event
	Phase            PointerPhase
	PointerID        int
	Button           int
	ClientX, ClientY float64
}

// KeyEvent is a key press. Key follows the browser key names ("0", "+", "f").
type KeyEvent struct {
	Event
	Modifiers
	Key string
}
