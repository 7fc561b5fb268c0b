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
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/io"
)

const (
	pinA   = 32
	pinB   = 33
	pinBtn = 25
)

// newDecoder returns a decoder on a simulated binding with both phases low.
func newDecoder(t *testing.T, size int, obs Observer) (*io.Sim, *event.Queue, *Decoder) {
	t.Helper()
	s := io.NewSim()
	q, d := newDecoderOn(t, s, size, obs)
	return s, q, d
}

func newDecoderOn(t *testing.T, s *io.Sim, size int, obs Observer) (*event.Queue, *Decoder) {
	t.Helper()
	a, err := s.Input(pinA, io.BOTH)
	test.That(t, err, test.ShouldBeNil)
	b, err := s.Input(pinB, io.NONE)
	test.That(t, err, test.ShouldBeNil)
	q, err := event.NewQueue(size, nil)
	test.That(t, err, test.ShouldBeNil)
	d, err := NewDecoder(a, b, q, obs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Watch(pinA, d.Edge), test.ShouldBeNil)
	return q, d
}

// step moves phase A to the other level, with phase B preset to
// match (CCW) or oppose (CW) the new level of A.
func step(s *io.Sim, dir event.Direction) {
	a := 1 - s.Level(pinA)
	b := a
	if dir == event.CW {
		b = 1 - a
	}
	s.Preset(pinB, b)
	s.Drive(pinA, a)
}

func drain(t *testing.T, q *event.Queue) []event.Event {
	t.Helper()
	var evs []event.Event
	for q.Len() > 0 {
		e, err := q.Get(context.Background(), time.Second)
		test.That(t, err, test.ShouldBeNil)
		evs = append(evs, e)
	}
	return evs
}

func TestDecoderDirection(t *testing.T) {
	for _, dir := range []event.Direction{event.CW, event.CCW} {
		t.Run(dir.String(), func(t *testing.T) {
			s, q, d := newDecoder(t, event.DefaultSize, nil)
			for i := 0; i < 6; i++ {
				step(s, dir)
			}
			evs := drain(t, q)
			test.That(t, len(evs), test.ShouldEqual, 6)
			for _, e := range evs {
				test.That(t, e.Kind(), test.ShouldEqual, event.Step)
				test.That(t, e.Direction(), test.ShouldEqual, dir)
			}
			test.That(t, d.Steps(), test.ShouldEqual, int64(6))
			test.That(t, d.Faults(), test.ShouldEqual, int64(0))
		})
	}
}

func TestDecoderNoChange(t *testing.T) {
	s, q, d := newDecoder(t, event.DefaultSize, nil)
	s.Preset(pinB, 1)
	s.Trigger(pinA)
	s.Trigger(pinA)
	test.That(t, q.Len(), test.ShouldEqual, 0)
	test.That(t, d.Steps(), test.ShouldEqual, int64(0))

	// The initial level is taken from the pin.
	s.Preset(pinA, 1)
	q2, d2 := newDecoderOn(t, s, event.DefaultSize, nil)
	s.Trigger(pinA)
	test.That(t, q2.Len(), test.ShouldEqual, 0)
	s.Drive(pinA, 0)
	test.That(t, q2.Len(), test.ShouldEqual, 1)
	test.That(t, d2.Steps(), test.ShouldEqual, int64(1))
}

type badPin struct {
	v   int
	err error
}

func (p *badPin) Get() (int, error) {
	return p.v, p.err
}

func TestDecoderFaults(t *testing.T) {
	q, err := event.NewQueue(4, nil)
	test.That(t, err, test.ShouldBeNil)

	_, err = NewDecoder(&badPin{err: errors.New("no pin")}, &badPin{}, q, nil)
	test.That(t, err, test.ShouldNotBeNil)

	a := &badPin{}
	b := &badPin{err: errors.New("read error")}
	d, err := NewDecoder(a, b, q, nil)
	test.That(t, err, test.ShouldBeNil)
	a.v = 1
	d.Edge()
	test.That(t, d.Faults(), test.ShouldEqual, int64(1))
	test.That(t, q.Len(), test.ShouldEqual, 0)

	// A failed read leaves the stored level alone.
	b.err = nil
	d.Edge()
	test.That(t, d.Steps(), test.ShouldEqual, int64(1))
	e, err := q.Get(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Direction(), test.ShouldEqual, event.CW)
}

func TestDecoderQueueFull(t *testing.T) {
	s, q, d := newDecoder(t, 3, nil)
	for i := 0; i < 8; i++ {
		step(s, event.CW)
	}
	test.That(t, q.Len(), test.ShouldEqual, 3)
	test.That(t, q.Dropped(), test.ShouldEqual, int64(5))
	test.That(t, d.Steps(), test.ShouldEqual, int64(8))
}

func TestIndicator(t *testing.T) {
	const green, red = 23, 22
	s := io.NewSim()
	g, err := s.Output(green)
	test.That(t, err, test.ShouldBeNil)
	r, err := s.Output(red)
	test.That(t, err, test.ShouldBeNil)
	ind := NewIndicator(g, r)

	q, _ := newDecoderOn(t, s, event.DefaultSize, ind.Show)

	step(s, event.CW)
	test.That(t, s.Level(green), test.ShouldEqual, 1)
	test.That(t, s.Level(red), test.ShouldEqual, 0)
	step(s, event.CCW)
	test.That(t, s.Level(green), test.ShouldEqual, 0)
	test.That(t, s.Level(red), test.ShouldEqual, 1)
	// No step, no change.
	s.Trigger(pinA)
	test.That(t, s.Level(red), test.ShouldEqual, 1)
	test.That(t, ind.Faults(), test.ShouldEqual, int64(0))
	test.That(t, q.Len(), test.ShouldEqual, 2)

	bad := NewIndicator(failSetter{}, r)
	bad.Show(event.CW)
	test.That(t, bad.Faults(), test.ShouldEqual, int64(1))
	test.That(t, s.Level(red), test.ShouldEqual, 0)
}

type failSetter struct{}

func (failSetter) Set(int) error {
	return errors.New("write error")
}

func TestToggle(t *testing.T) {
	for _, initial := range []bool{false, true} {
		for n := 0; n < 6; n++ {
			s := io.NewSim()
			_, err := s.Input(pinBtn, io.FALLING)
			test.That(t, err, test.ShouldBeNil)
			q, err := event.NewQueue(event.DefaultSize, nil)
			test.That(t, err, test.ShouldBeNil)
			tg := NewToggle(initial, q)
			test.That(t, s.Watch(pinBtn, tg.Edge), test.ShouldBeNil)
			for i := 0; i < n; i++ {
				s.Drive(pinBtn, 1) // Release, not watched
				s.Drive(pinBtn, 0) // Press
			}
			test.That(t, tg.Latch(), test.ShouldEqual, initial != (n%2 == 1))
			test.That(t, tg.Edges(), test.ShouldEqual, int64(n))
			evs := drain(t, q)
			test.That(t, len(evs), test.ShouldEqual, n)
			v := initial
			for _, e := range evs {
				v = !v
				test.That(t, e.Kind(), test.ShouldEqual, event.Button)
				test.That(t, e.State(), test.ShouldEqual, v)
			}
		}
	}
}
