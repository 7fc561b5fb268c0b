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
	"go.uber.org/atomic"

	"github.com/aamcrae/rotary/event"
	"github.com/aamcrae/rotary/io"
)

// Indicator shows the last step direction on a pair of LEDs:
// green for clockwise, red for counter-clockwise.
type Indicator struct {
	green, red io.Setter
	faults     atomic.Int64
}

// NewIndicator creates an indicator driving the two outputs.
func NewIndicator(green, red io.Setter) *Indicator {
	return &Indicator{green: green, red: red}
}

// Show sets the LEDs for the direction. It is an Observer.
func (i *Indicator) Show(d event.Direction) {
	g, r := 0, 1
	if d == event.CW {
		g, r = 1, 0
	}
	if err := i.green.Set(g); err != nil {
		i.faults.Inc()
	}
	if err := i.red.Set(r); err != nil {
		i.faults.Inc()
	}
}

// Faults returns the number of failed output writes.
func (i *Indicator) Faults() int64 {
	return i.faults.Load()
}
