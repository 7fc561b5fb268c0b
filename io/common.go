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

// Package io provides access to GPIO pins and their edge events.

package io

import (
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Mode
const (
	IN  = iota // Default
	OUT = iota
)

// Edge
const (
	NONE    = iota // Default
	RISING  = iota
	FALLING = iota
	BOTH    = iota
)

// Getter is an interface for reading the level of a GPIO.
type Getter interface {
	Get() (int, error)
}

// Setter is an interface for setting an output value on a GPIO
type Setter interface {
	Set(int) error
}

// Handler is called on each detected edge of a watched input.
// Handlers run on the binding's watcher goroutine and must not block.
type Handler func()

// Binding is the hardware access used by the input pipeline.
// Input opens a pin as an input, with edge detection enabled if edge
// is not NONE. Watch delivers the edges of such a pin to a handler.
type Binding interface {
	Input(pin, edge int) (Getter, error)
	Output(pin int) (Setter, error)
	Watch(pin int, h Handler) error
	Close() error
}

// Drivers lists the names accepted by Open.
var Drivers = []string{"sysfs", "cdev", "periph", "sim"}

// Open creates the named binding. The chip is only used by the
// character device driver.
func Open(driver, chip string) (Binding, error) {
	switch driver {
	case "sysfs":
		return NewSysfs(), nil
	case "cdev":
		return NewChardev(chip), nil
	case "periph":
		p, err := NewPeriph()
		if err != nil {
			return nil, err
		}
		return p, nil
	case "sim":
		return NewSim(), nil
	default:
		return nil, errors.Errorf("unknown gpio driver %q", driver)
	}
}

// EdgeName returns the kernel name of the edge setting.
func EdgeName(e int) (string, error) {
	switch e {
	case NONE:
		return "none", nil
	case RISING:
		return "rising", nil
	case FALLING:
		return "falling", nil
	case BOTH:
		return "both", nil
	default:
		return "", errors.Errorf("unknown edge %d", e)
	}
}

// matchEdge reports whether a transition to level v triggers edge e.
func matchEdge(e, v int) bool {
	switch e {
	case BOTH:
		return true
	case RISING:
		return v != 0
	case FALLING:
		return v == 0
	default:
		return false
	}
}

// Exported files can take a while to become accessible to a
// non-root user, since udev changes their group and mode.
const verifyTimeout = 2 * time.Second

// Verify makes export wait for the exported files to become writable.
// It is enabled when not running as root, and may be overridden.
var Verify = false

func init() {
	if u, err := user.Current(); err == nil && u.Uid != "0" {
		Verify = true
	}
}

// unexport releases a unit by writing its number to the unexport file.
func unexport(f string, n int) error {
	return writeFile(f, strconv.Itoa(n))
}

// export makes file f available by writing the unit number to expfile,
// unless f is already accessible.
func export(f, expfile string, n int) error {
	if unix.Access(f, unix.W_OK|unix.R_OK) == nil {
		return nil
	}
	if err := writeFile(expfile, strconv.Itoa(n)); err != nil {
		return err
	}
	if Verify {
		return verifyFile(f)
	}
	return nil
}

func writeFile(name, s string) error {
	f, err := os.OpenFile(name, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	_, err = f.WriteString(s)
	return multierr.Append(err, f.Close())
}

// verifyFile waits for f to become writable.
func verifyFile(f string) error {
	const interval = time.Millisecond
	for waited := time.Duration(0); waited < verifyTimeout; waited += interval {
		if unix.Access(f, unix.W_OK) == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return errors.Errorf("%s: not writable after %s", f, verifyTimeout)
}
