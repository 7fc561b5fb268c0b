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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// watchPoll bounds each edge wait so that watchers notice Close.
const watchPoll = 100 * time.Millisecond

// Sysfs is a Binding using the sysfs GPIO interface.
// Each watched pin has a goroutine polling the value file for edges.
type Sysfs struct {
	mu         sync.Mutex
	pins       map[int]*Gpio
	cancelCtx  context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewSysfs creates a sysfs binding.
func NewSysfs() *Sysfs {
	s := new(Sysfs)
	s.pins = make(map[int]*Gpio)
	s.cancelCtx, s.cancelFunc = context.WithCancel(context.Background())
	return s
}

// Input opens a pin as an input, setting the edge detection.
// Opening an already open input returns the same pin.
func (s *Sysfs) Input(pin, edge int) (Getter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.pins[pin]
	if !ok {
		var err error
		g, err = Pin(pin)
		if err != nil {
			return nil, errors.Wrapf(err, "gpio%d", pin)
		}
		s.pins[pin] = g
	} else if g.direction == OUT {
		return nil, errors.Errorf("gpio%d: already open as output", pin)
	}
	if edge != NONE && g.edge != edge {
		if err := g.Edge(edge); err != nil {
			return nil, err
		}
		// Clear the initial event.
		if _, err := g.Get(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Output opens a pin as an output.
func (s *Sysfs) Output(pin int) (Setter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.pins[pin]; ok {
		if g.direction != OUT {
			return nil, errors.Errorf("gpio%d: already open as input", pin)
		}
		return g, nil
	}
	g, err := OutputPin(pin)
	if err != nil {
		return nil, errors.Wrapf(err, "gpio%d", pin)
	}
	s.pins[pin] = g
	return g, nil
}

// Watch starts a goroutine that calls h on each edge of the pin.
func (s *Sysfs) Watch(pin int, h Handler) error {
	s.mu.Lock()
	g, ok := s.pins[pin]
	s.mu.Unlock()
	if !ok || g.edge == NONE {
		return errors.Errorf("gpio%d: not open for edge detection", pin)
	}
	s.workers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-s.cancelCtx.Done():
				return
			default:
			}
			ok, _, err := g.Wait(watchPoll)
			if err != nil {
				// Back off rather than spin on a broken pin.
				if !utils.SelectContextOrWait(s.cancelCtx, watchPoll) {
					return
				}
				continue
			}
			if ok {
				h()
			}
		}
	}, s.workers.Done)
	return nil
}

// Close stops the watchers and releases all pins.
func (s *Sysfs) Close() error {
	s.cancelFunc()
	s.workers.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	for n, g := range s.pins {
		err = multierr.Append(err, g.Close())
		delete(s.pins, n)
	}
	return err
}
