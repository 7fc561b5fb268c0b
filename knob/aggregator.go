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

package knob

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/report"
)

// DefaultTimeout is the time the aggregator waits for an event
// before running its idle housekeeping.
const DefaultTimeout = time.Second

// State is the aggregated knob state.
type State = report.State

// Aggregator consumes events from the queue, folds them into the
// knob state and reports every change.
// The state is only touched by the goroutine running Run.
type Aggregator struct {
	q       *event.Queue
	rep     report.Reporter
	timeout time.Duration
	logger  golog.Logger
	state   State

	// Idle, if set, is called from Run after each timeout.
	Idle func()

	dropped int64  // Drop count at the last housekeeping
	lastErr string // Last reporter error logged
	failed  int64  // Reporter errors since the last success
}

// NewAggregator creates an aggregator reading q and reporting to rep.
// A timeout <= 0 selects DefaultTimeout.
func NewAggregator(q *event.Queue, rep report.Reporter, timeout time.Duration, logger golog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{q: q, rep: rep, timeout: timeout, logger: logger}
}

// Run processes events until ctx is cancelled or the queue is closed.
func (a *Aggregator) Run(ctx context.Context) error {
	if s, ok := a.rep.(report.Starter); ok {
		if err := s.Start(a.state); err != nil {
			a.reportError(err)
		}
	}
	for {
		e, err := a.q.Get(ctx, a.timeout)
		switch {
		case err == nil:
			if st, ok := a.apply(e); ok {
				a.report(st)
			}
		case errors.Is(err, event.ErrTimeout):
			a.housekeeping()
		case errors.Is(err, event.ErrClosed):
			a.logger.Debug("event queue closed")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// Apply folds a single event into the state and returns the new state.
func (a *Aggregator) Apply(e event.Event) State {
	st, _ := a.apply(e)
	return st
}

// State returns the current state. It must not be called while Run is active.
func (a *Aggregator) State() State {
	return a.state
}

func (a *Aggregator) apply(e event.Event) (State, bool) {
	switch e.Kind() {
	case event.Step:
		d := e.Direction()
		if d != event.CW && d != event.CCW {
			return a.state, false
		}
		a.state.Counter += int(d)
	case event.Button:
		a.state.Latch = e.State()
	default:
		return a.state, false
	}
	return a.state, true
}

func (a *Aggregator) report(st State) {
	if err := a.rep.Report(st); err != nil {
		a.reportError(err)
		return
	}
	if a.failed != 0 {
		a.logger.Infow("reporter recovered", "errors", a.failed)
		a.failed = 0
		a.lastErr = ""
	}
}

// reportError logs the first of a run of reporter errors, and any
// error that differs from the previous one.
func (a *Aggregator) reportError(err error) {
	a.failed++
	if msg := err.Error(); msg != a.lastErr {
		a.logger.Errorw("reporter failed", "error", err)
		a.lastErr = msg
	}
}

func (a *Aggregator) housekeeping() {
	if d := a.q.Dropped(); d != a.dropped {
		a.logger.Warnw("events dropped", "count", d-a.dropped, "total", d)
		a.dropped = d
	}
	if a.Idle != nil {
		a.Idle()
	}
}
