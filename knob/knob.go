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

// Package knob decodes a rotary encoder with a push button into a
// counter and a latch.
//
// Edge handlers run on the GPIO binding's watcher goroutines and
// send events through a bounded queue to a single consumer, the
// Aggregator, which owns the state and reports each change.
package knob

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/report"
)

// Pins are the GPIO numbers used by the knob.
type Pins struct {
	A      int // Phase A, both edges
	B      int // Phase B, level only
	Button int // Push button, falling edge
	Green  int // Clockwise LED
	Red    int // Counter-clockwise LED
}

// DefaultPins is the standard wiring.
var DefaultPins = Pins{A: 32, B: 33, Button: 25, Green: 23, Red: 22}

// Knob is an assembled input pipeline.
type Knob struct {
	Queue      *event.Queue
	Decoder    *Decoder
	Toggle     *Toggle
	Indicator  *Indicator // nil if the LEDs are not used
	Aggregator *Aggregator

	logger golog.Logger
	faults int64 // Faults at the last housekeeping
}

// New opens the pins on the binding, builds the queue, handlers and
// aggregator, and registers the handlers with the binding.
// The binding is owned by the caller.
func New(b io.Binding, pins Pins, cfg *Config, rep report.Reporter, logger golog.Logger) (*Knob, error) {
	q, err := event.NewQueue(cfg.Queue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "event queue")
	}
	a, err := b.Input(pins.A, io.BOTH)
	if err != nil {
		return nil, errors.Wrapf(err, "pin %d", pins.A)
	}
	ph, err := b.Input(pins.B, io.NONE)
	if err != nil {
		return nil, errors.Wrapf(err, "pin %d", pins.B)
	}
	if _, err := b.Input(pins.Button, io.FALLING); err != nil {
		return nil, errors.Wrapf(err, "pin %d", pins.Button)
	}
	k := &Knob{Queue: q, logger: logger}
	var obs Observer
	if cfg.Indicators {
		if k.Indicator, err = indicator(b, pins); err != nil {
			logger.Warnw("direction indicators disabled", "error", err)
		} else {
			obs = k.Indicator.Show
		}
	}
	k.Decoder, err = NewDecoder(a, ph, q, obs)
	if err != nil {
		return nil, err
	}
	k.Toggle = NewToggle(false, q)
	k.Aggregator = NewAggregator(q, rep, cfg.Timeout, logger)
	k.Aggregator.Idle = k.housekeeping
	if err := b.Watch(pins.A, k.Decoder.Edge); err != nil {
		return nil, errors.Wrapf(err, "watch pin %d", pins.A)
	}
	if err := b.Watch(pins.Button, k.Toggle.Edge); err != nil {
		return nil, errors.Wrapf(err, "watch pin %d", pins.Button)
	}
	logger.Debugw("knob ready", "pins", pins, "queue", q.Cap(), "indicators", k.Indicator != nil)
	return k, nil
}

func indicator(b io.Binding, pins Pins) (*Indicator, error) {
	g, err := b.Output(pins.Green)
	if err != nil {
		return nil, errors.Wrapf(err, "pin %d", pins.Green)
	}
	r, err := b.Output(pins.Red)
	if err != nil {
		return nil, errors.Wrapf(err, "pin %d", pins.Red)
	}
	return NewIndicator(g, r), nil
}

// Run runs the aggregator until ctx is cancelled or the knob is closed.
func (k *Knob) Run(ctx context.Context) error {
	return k.Aggregator.Run(ctx)
}

// Stats returns the pipeline counters.
func (k *Knob) Stats() report.Stats {
	st := report.Stats{
		Queued:  k.Queue.Len(),
		Dropped: k.Queue.Dropped(),
		Faults:  k.Decoder.Faults(),
	}
	if k.Indicator != nil {
		st.Faults += k.Indicator.Faults()
	}
	return st
}

// Close stops event delivery to the aggregator. Events still queued
// are processed before Run returns.
func (k *Knob) Close() {
	k.Queue.Close()
}

func (k *Knob) housekeeping() {
	st := k.Stats()
	if st.Faults != k.faults {
		k.logger.Warnw("gpio faults", "count", st.Faults-k.faults, "total", st.Faults)
		k.faults = st.Faults
	}
}
