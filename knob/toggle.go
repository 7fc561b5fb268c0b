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
)

// Toggle flips a latch on every button edge and sends the new value.
// There is no debouncing, so contact bounce toggles the latch too.
type Toggle struct {
	latch *atomic.Bool
	edges atomic.Int64
	q     *event.Queue
}

// NewToggle creates a toggle with the initial latch value.
func NewToggle(initial bool, q *event.Queue) *Toggle {
	return &Toggle{latch: atomic.NewBool(initial), q: q}
}

// Edge is the handler for the button edge. It never blocks.
func (t *Toggle) Edge() {
	v := !t.latch.Toggle()
	t.edges.Inc()
	t.q.Put(event.NewButton(v))
}

// Latch returns the current latch value.
func (t *Toggle) Latch() bool {
	return t.latch.Load()
}

// Edges returns the number of edges seen.
func (t *Toggle) Edges() int64 {
	return t.edges.Load()
}
