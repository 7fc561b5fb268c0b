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
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphPin struct {
	pin  gpio.PinIO
	edge int
}

func (p *periphPin) Get() (int, error) {
	return level(p.pin.Read() == gpio.High), nil
}

func (p *periphPin) Set(v int) error {
	l := gpio.Low
	if v != 0 {
		l = gpio.High
	}
	return p.pin.Out(l)
}

// Periph is a Binding using the periph.io host drivers.
// Inputs are configured with the internal pull-up enabled.
type Periph struct {
	mu         sync.Mutex
	pins       map[int]*periphPin
	cancelCtx  context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewPeriph initialises the periph.io host drivers.
func NewPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	p := new(Periph)
	p.pins = make(map[int]*periphPin)
	p.cancelCtx, p.cancelFunc = context.WithCancel(context.Background())
	return p, nil
}

func (p *Periph) lookup(pin int) (gpio.PinIO, error) {
	gp := gpioreg.ByName(fmt.Sprintf("%d", pin))
	if gp == nil {
		return nil, errors.Errorf("no gpio pin %d", pin)
	}
	return gp, nil
}

// Input configures the pin as a pulled-up input.
func (p *Periph) Input(pin, edge int) (Getter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pp, ok := p.pins[pin]; ok {
		if pp.edge != edge {
			return nil, errors.Errorf("gpio %d: already open", pin)
		}
		return pp, nil
	}
	gp, err := p.lookup(pin)
	if err != nil {
		return nil, err
	}
	var e gpio.Edge
	switch edge {
	case NONE:
		e = gpio.NoEdge
	case RISING:
		e = gpio.RisingEdge
	case FALLING:
		e = gpio.FallingEdge
	case BOTH:
		e = gpio.BothEdges
	default:
		return nil, errors.Errorf("unknown edge %d", edge)
	}
	if err := gp.In(gpio.PullUp, e); err != nil {
		return nil, errors.Wrapf(err, "gpio %d", pin)
	}
	pp := &periphPin{pin: gp, edge: edge}
	p.pins[pin] = pp
	return pp, nil
}

// Output configures the pin as an output, initially low.
func (p *Periph) Output(pin int) (Setter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pins[pin]; ok {
		return nil, errors.Errorf("gpio %d: already open", pin)
	}
	gp, err := p.lookup(pin)
	if err != nil {
		return nil, err
	}
	if err := gp.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "gpio %d", pin)
	}
	pp := &periphPin{pin: gp, edge: NONE}
	p.pins[pin] = pp
	return pp, nil
}

// Watch starts a goroutine calling h on each edge of the pin.
func (p *Periph) Watch(pin int, h Handler) error {
	p.mu.Lock()
	pp, ok := p.pins[pin]
	p.mu.Unlock()
	if !ok || pp.edge == NONE {
		return errors.Errorf("gpio %d: not open for edge detection", pin)
	}
	p.workers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-p.cancelCtx.Done():
				return
			default:
			}
			if pp.pin.WaitForEdge(watchPoll) {
				h()
			}
		}
	}, p.workers.Done)
	return nil
}

// Close stops the watchers and halts all pins.
func (p *Periph) Close() error {
	p.cancelFunc()
	p.workers.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for n, pp := range p.pins {
		err = multierr.Combine(err, pp.pin.Halt())
		delete(p.pins, n)
	}
	return err
}
