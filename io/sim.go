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

package io

import (
	"sync"

	"github.com/pkg/errors"
)

type simPin struct {
	sim    *Sim
	number int
	level  int
	edge   int
	output bool
	h      Handler
}

func (p *simPin) Get() (int, error) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.level, nil
}

func (p *simPin) Set(v int) error {
	if v != 0 && v != 1 {
		return errors.Errorf("sim%d: illegal value", p.number)
	}
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	p.level = v
	return nil
}

// Sim is an in-memory Binding. Input levels are driven by the program
// (a simulator or a test) with Drive, which calls the watch handler
// on the driving goroutine when the transition matches the pin's edge.
type Sim struct {
	mu   sync.Mutex
	pins map[int]*simPin
}

// NewSim creates a simulated binding with all pins low.
func NewSim() *Sim {
	s := new(Sim)
	s.pins = make(map[int]*simPin)
	return s
}

// pin returns the pin, creating it if needed. Must be called with mu held.
func (s *Sim) pin(n int) *simPin {
	p, ok := s.pins[n]
	if !ok {
		p = &simPin{sim: s, number: n}
		s.pins[n] = p
	}
	return p
}

// Input opens a simulated input.
func (s *Sim) Input(pin, edge int) (Getter, error) {
	if _, err := EdgeName(edge); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pin(pin)
	if p.output {
		return nil, errors.Errorf("sim%d: already open as output", pin)
	}
	p.edge = edge
	return p, nil
}

// Output opens a simulated output.
func (s *Sim) Output(pin int) (Setter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pin(pin)
	if p.edge != NONE || p.h != nil {
		return nil, errors.Errorf("sim%d: already open as input", pin)
	}
	p.output = true
	return p, nil
}

// Watch registers the handler for edges on the pin.
func (s *Sim) Watch(pin int, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pins[pin]
	if !ok || p.edge == NONE {
		return errors.Errorf("sim%d: not open for edge detection", pin)
	}
	p.h = h
	return nil
}

// Preset sets an input level without generating an edge.
func (s *Sim) Preset(pin, v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin(pin).level = v
}

// Drive sets the level of an input pin, and calls the watch
// handler if the change is an edge the pin is watching for.
func (s *Sim) Drive(pin, v int) {
	s.mu.Lock()
	p := s.pin(pin)
	old := p.level
	p.level = v
	h := p.h
	fire := h != nil && old != v && matchEdge(p.edge, v)
	s.mu.Unlock()
	if fire {
		h()
	}
}

// Trigger calls the watch handler of the pin without changing its
// level, as a spurious interrupt would.
func (s *Sim) Trigger(pin int) {
	s.mu.Lock()
	var h Handler
	if p, ok := s.pins[pin]; ok {
		h = p.h
	}
	s.mu.Unlock()
	if h != nil {
		h()
	}
}

// Level returns the current level of any pin.
func (s *Sim) Level(pin int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pin(pin).level
}

// Close removes all handlers.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pins {
		p.h = nil
	}
	return nil
}
