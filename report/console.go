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

package report

import (
	"fmt"
	"io"
)

// Terminal control sequences.
const (
	clearScreen = "\033[2J"
	cursorHome  = "\033[H"
	clearEOL    = "\033[K"
)

type flusher interface {
	Flush() error
}

// Console redraws the state on a single terminal line.
type Console struct {
	w io.Writer
}

// NewConsole creates a console reporter writing to w. If w has a
// Flush method (e.g a bufio.Writer), it is flushed after every write.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Start clears the screen and prints the initial state.
func (c *Console) Start(s State) error {
	return c.write(clearScreen + cursorHome + line(s))
}

// Report overwrites the current line with the new state.
func (c *Console) Report(s State) error {
	return c.write("\r" + line(s) + clearEOL)
}

func (c *Console) write(str string) error {
	if _, err := io.WriteString(c.w, str); err != nil {
		return err
	}
	if f, ok := c.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func line(s State) string {
	b := 0
	if s.Latch {
		b = 1
	}
	return fmt.Sprintf("Button state: %d | Encoder value: %d", b, s.Counter)
}
