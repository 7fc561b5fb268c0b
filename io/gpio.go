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

// sysfs GPIO pins

package io

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

const (
	baseDir       = "/sys/class/gpio/"
	exportFile    = baseDir + "export"
	unexportFile  = baseDir + "unexport"
	directionFile = "/direction"
	edgeFile      = "/edge"
	valueFile     = "/value"
)

// Gpio is a sysfs GPIO pin. The value file is kept open so that
// it can be polled for edges.
type Gpio struct {
	number    int
	direction int
	edge      int
	value     *os.File
	pollfd    []unix.PollFd
	mu        sync.Mutex // Guards buf and value file offset use
	buf       [1]byte
}

// OutputPin exports a pin and sets it as an output.
func OutputPin(n int) (*Gpio, error) {
	return openPin(n, OUT)
}

// Pin exports a pin as an input with edge detection off.
func Pin(n int) (*Gpio, error) {
	return openPin(n, IN)
}

func openPin(n, dir int) (*Gpio, error) {
	g := &Gpio{number: n}
	if err := export(pinFile(n, valueFile), exportFile, n); err != nil {
		return nil, errors.Wrapf(err, "gpio%d: export", n)
	}
	err := g.Direction(dir)
	if err == nil && dir == IN {
		err = g.Edge(NONE)
	}
	if err == nil {
		g.value, err = os.OpenFile(pinFile(n, valueFile), os.O_RDWR, 0o600)
	}
	if err != nil {
		return nil, multierr.Append(err, unexport(unexportFile, n))
	}
	g.pollfd = []unix.PollFd{{Fd: int32(g.value.Fd()), Events: unix.POLLPRI | unix.POLLERR}}
	return g, nil
}

// Direction sets the pin as an input or output.
func (g *Gpio) Direction(d int) error {
	var s string
	switch d {
	case IN:
		s = "in"
	case OUT:
		s = "out"
	default:
		return errors.Errorf("gpio%d: unknown direction %d", g.number, d)
	}
	if err := writeFile(pinFile(g.number, directionFile), s); err != nil {
		return errors.Wrapf(err, "gpio%d: direction", g.number)
	}
	g.direction = d
	return nil
}

// Edge selects the edges that wake Wait. Only valid for inputs.
func (g *Gpio) Edge(e int) error {
	if g.direction != IN {
		return errors.Errorf("gpio%d: edge on an output", g.number)
	}
	s, err := EdgeName(e)
	if err != nil {
		return errors.Wrapf(err, "gpio%d", g.number)
	}
	if err := writeFile(pinFile(g.number, edgeFile), s); err != nil {
		return errors.Wrapf(err, "gpio%d: edge", g.number)
	}
	g.edge = e
	return nil
}

// Set drives an output to 0 or 1.
func (g *Gpio) Set(v int) error {
	if g.direction != OUT {
		return errors.Errorf("gpio%d: not an output", g.number)
	}
	if v != 0 && v != 1 {
		return errors.Errorf("gpio%d: illegal value %d", g.number, v)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf[0] = '0' + byte(v)
	_, err := g.value.WriteAt(g.buf[:], 0)
	return err
}

// Get reads the level of the pin. It does not block, and
// acknowledges any pending edge.
func (g *Gpio) Get() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.value.ReadAt(g.buf[:], 0); err != nil {
		return 0, errors.Wrapf(err, "gpio%d", g.number)
	}
	switch g.buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, errors.Errorf("gpio%d: unknown value %q", g.number, g.buf[0])
}

// Wait blocks for up to tout waiting for an edge. If one arrives
// it returns true with the level read after the edge.
// An interrupted poll is reported as a timeout.
func (g *Gpio) Wait(tout time.Duration) (bool, int, error) {
	if g.edge == NONE {
		return false, 0, errors.Errorf("gpio%d: edge detection not enabled", g.number)
	}
	g.pollfd[0].Revents = 0
	n, err := unix.Poll(g.pollfd, int(tout.Milliseconds()))
	switch {
	case errors.Is(err, unix.EINTR):
		return false, 0, nil
	case err != nil:
		return false, 0, errors.Wrapf(err, "gpio%d: poll", g.number)
	case n == 0:
		return false, 0, nil
	}
	v, err := g.Get()
	return true, v, err
}

// Close releases the pin and unexports it.
func (g *Gpio) Close() error {
	return multierr.Append(g.value.Close(), unexport(unexportFile, g.number))
}

func pinFile(n int, f string) string {
	return fmt.Sprintf("%sgpio%d%s", baseDir, n, f)
}
