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

// Package report renders the encoder and button state to output sinks.
package report

import (
	"fmt"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
)

// State is the aggregate input state: the running encoder count
// and the button latch.
type State struct {
	Counter int
	Latch   bool
}

func (s State) String() string {
	return fmt.Sprintf("counter=%d,latch=%t", s.Counter, s.Latch)
}

// Reporter renders a state. It is called after every change.
type Reporter interface {
	Report(State) error
}

// Starter is implemented by reporters needing an initial render
// before the first change.
type Starter interface {
	Start(State) error
}

// Log reports each state as a structured log entry.
type Log struct {
	logger golog.Logger
}

// NewLog creates a Log reporter.
func NewLog(logger golog.Logger) *Log {
	return &Log{logger: logger}
}

// Start logs the initial state.
func (l *Log) Start(s State) error {
	l.logger.Infow("initial state", "latch", s.Latch, "counter", s.Counter)
	return nil
}

// Report logs the state.
func (l *Log) Report(s State) error {
	l.logger.Infow("state", "latch", s.Latch, "counter", s.Counter)
	return nil
}

// Multi sends each state to several reporters.
// A failing reporter does not prevent the others from being called.
type Multi []Reporter

// Start calls Start on the reporters that implement Starter.
func (m Multi) Start(s State) error {
	var err error
	for _, r := range m {
		if st, ok := r.(Starter); ok {
			err = multierr.Append(err, st.Start(s))
		}
	}
	return err
}

// Report calls every reporter.
func (m Multi) Report(s State) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Report(s))
	}
	return err
}
