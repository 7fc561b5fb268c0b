// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package event carries input events from edge handlers to a consumer.
package event

import (
	"fmt"
)

// Kind identifies the type of an Event.
type Kind int

const (
	Step   Kind = iota // Encoder step, Direction is valid
	Button             // Button edge, State is valid
)

// Direction is the sign of an encoder step.
type Direction int

const (
	CCW Direction = -1 // Counter-clockwise
	CW  Direction = 1  // Clockwise
)

func (d Direction) String() string {
	if d < 0 {
		return "-1"
	}
	return "+1"
}

// Event is a single input event. It is a small value type so that
// it can be copied into the queue without allocation.
type Event struct {
	kind  Kind
	dir   Direction
	state bool
}

// NewStep returns an encoder step event.
func NewStep(d Direction) Event {
	return Event{kind: Step, dir: d}
}

// NewButton returns a button edge event carrying the new latch value.
func NewButton(state bool) Event {
	return Event{kind: Button, state: state}
}

// Kind returns the event type.
func (e Event) Kind() Kind {
	return e.kind
}

// Direction returns the step direction, or 0 for non-step events.
func (e Event) Direction() Direction {
	return e.dir
}

// State returns the latch value of a button event.
func (e Event) State() bool {
	return e.state
}

func (e Event) String() string {
	switch e.kind {
	case Step:
		return fmt.Sprintf("step(%s)", e.dir)
	case Button:
		return fmt.Sprintf("button(%t)", e.state)
	default:
		return fmt.Sprintf("unknown(%d)", e.kind)
	}
}
