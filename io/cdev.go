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

// GPIO character device pins, using the ioctl interface by way of
// mkch's gpio package.

package io

import (
	"context"
	"strings"
	"sync"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

const consumer = "rotary"

type cdevPin struct {
	offset uint32
	edge   int
	output bool
	mu     sync.Mutex
	line   *gpio.Line          // Plain input or output line
	events *gpio.LineWithEvent // Input line with edge events
}

func (p *cdevPin) Get() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events != nil {
		v, err := p.events.Value()
		if err != nil {
			return 0, err
		}
		return level(v != 0), nil
	}
	v, err := p.line.Value()
	if err != nil {
		return 0, err
	}
	return level(v != 0), nil
}

func (p *cdevPin) Set(v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var value byte
	if v != 0 {
		value = 1
	}
	return p.line.SetValue(value)
}

func (p *cdevPin) close() error {
	if p.events != nil {
		return p.events.Close()
	}
	return p.line.Close()
}

// Chardev is a Binding using a GPIO character device (/dev/gpiochipN).
// Pin numbers are line offsets on the chip.
type Chardev struct {
	device     string
	mu         sync.Mutex
	pins       map[int]*cdevPin
	cancelCtx  context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewChardev creates a binding for the named chip, e.g gpiochip0.
func NewChardev(chip string) *Chardev {
	c := new(Chardev)
	if chip == "" {
		chip = "gpiochip0"
	}
	if !strings.HasPrefix(chip, "/") {
		chip = "/dev/" + chip
	}
	c.device = chip
	c.pins = make(map[int]*cdevPin)
	c.cancelCtx, c.cancelFunc = context.WithCancel(context.Background())
	return c
}

// Input requests the line as an input. Edge events are requested
// for both edges and filtered when delivered.
func (c *Chardev) Input(pin, edge int) (Getter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pins[pin]; ok {
		if p.output || p.edge != edge {
			return nil, errors.Errorf("line %d: already open", pin)
		}
		return p, nil
	}
	chip, err := gpio.OpenChip(c.device)
	if err != nil {
		return nil, errors.Wrap(err, c.device)
	}
	defer utils.UncheckedErrorFunc(chip.Close)
	p := &cdevPin{offset: uint32(pin), edge: edge}
	if edge == NONE {
		p.line, err = chip.OpenLine(p.offset, 0, gpio.Input, consumer)
	} else {
		p.events, err = chip.OpenLineWithEvents(p.offset, gpio.Input, gpio.BothEdges, consumer)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "line %d", pin)
	}
	c.pins[pin] = p
	return p, nil
}

// Output requests the line as an output, initially low.
func (c *Chardev) Output(pin int) (Setter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pins[pin]; ok {
		return nil, errors.Errorf("line %d: already open", pin)
	}
	chip, err := gpio.OpenChip(c.device)
	if err != nil {
		return nil, errors.Wrap(err, c.device)
	}
	defer utils.UncheckedErrorFunc(chip.Close)
	line, err := chip.OpenLine(uint32(pin), 0, gpio.Output, consumer)
	if err != nil {
		return nil, errors.Wrapf(err, "line %d", pin)
	}
	p := &cdevPin{offset: uint32(pin), output: true, line: line}
	c.pins[pin] = p
	return p, nil
}

// Watch starts a goroutine delivering the line's edge events to h.
func (c *Chardev) Watch(pin int, h Handler) error {
	c.mu.Lock()
	p, ok := c.pins[pin]
	c.mu.Unlock()
	if !ok || p.events == nil {
		return errors.Errorf("line %d: not open for edge detection", pin)
	}
	c.workers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-c.cancelCtx.Done():
				return
			case event := <-p.events.Events():
				if matchEdge(p.edge, level(event.RisingEdge)) {
					h()
				}
			}
		}
	}, c.workers.Done)
	return nil
}

// Close stops the watchers and releases all lines.
func (c *Chardev) Close() error {
	c.cancelFunc()
	c.workers.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	for n, p := range c.pins {
		err = multierr.Combine(err, p.close())
		delete(c.pins, n)
	}
	return err
}

func level(b bool) int {
	if b {
		return 1
	}
	return 0
}
