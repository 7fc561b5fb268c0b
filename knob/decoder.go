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

// Quadrature encoder decoding.

package knob

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/io"
)

// Observer is called with the direction of each decoded step.
type Observer func(event.Direction)

// Decoder converts transitions of a 2 phase rotary encoder into step
// events. Edge is the handler for transitions of phase A:
//
//	        +-----+     +-----+
//	A       |     |     |     |
//	   -----+     +-----+     +---
//	           +-----+     +-----+
//	B          |     |     |     |
//	   --------+     +-----+     +
//
// When A changes, B is sampled: if B differs from the new level of A
// the knob moved clockwise, otherwise counter-clockwise.
// A notification without a change of A (e.g a re-trigger) is ignored.
type Decoder struct {
	a, b   io.Getter
	q      *event.Queue
	obs    Observer
	last   *atomic.Bool // Last seen level of phase A
	steps  atomic.Int64 // Steps decoded, including those dropped by the queue
	faults atomic.Int64 // Failed level reads
}

// NewDecoder creates a decoder for the phase inputs, sending steps to q.
// The current level of phase A is read as the initial state.
// obs may be nil.
func NewDecoder(a, b io.Getter, q *event.Queue, obs Observer) (*Decoder, error) {
	v, err := a.Get()
	if err != nil {
		return nil, errors.Wrap(err, "phase A")
	}
	d := new(Decoder)
	d.a = a
	d.b = b
	d.q = q
	d.obs = obs
	d.last = atomic.NewBool(v != 0)
	return d, nil
}

// Edge decodes a transition. It is called from the binding's edge
// watcher and never blocks; if the queue is full the step is lost.
func (d *Decoder) Edge() {
	av, err := d.a.Get()
	if err != nil {
		d.faults.Inc()
		return
	}
	bv, err := d.b.Get()
	if err != nil {
		d.faults.Inc()
		return
	}
	a := av != 0
	if d.last.Swap(a) == a {
		return
	}
	dir := event.CCW
	if (bv != 0) != a {
		dir = event.CW
	}
	d.steps.Inc()
	if d.obs != nil {
		d.obs(dir)
	}
	d.q.Put(event.NewStep(dir))
}

// Steps returns the number of steps decoded.
func (d *Decoder) Steps() int64 {
	return d.steps.Load()
}

// Faults returns the number of level reads that failed.
func (d *Decoder) Faults() int64 {
	return d.faults.Load()
}
