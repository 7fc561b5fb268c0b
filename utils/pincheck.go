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

// Wiring check utility

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/knob"
)

var configFile = flag.String("config", "", "Configuration file")

type checker struct {
	b       io.Binding
	inputs  map[int]io.Getter
	outputs map[int]io.Setter
}

func main() {
	flag.Parse()
	cfg, err := knob.ParseConfig(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	b, err := io.Open(cfg.Driver, cfg.Chip)
	if err != nil {
		log.Fatalf("%s: %v", cfg.Driver, err)
	}
	defer b.Close()
	p := &checker{b: b, inputs: make(map[int]io.Getter), outputs: make(map[int]io.Setter)}
	pins := knob.DefaultPins
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter command ('help' for help) ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		f := strings.Fields(text)
		if len(f) == 0 {
			continue
		}
		var pin, v int
		switch f[0] {
		case "help":
			fmt.Println("  help - print help")
			fmt.Println("  knob - show the levels of the knob inputs")
			fmt.Println("  leds - cycle the direction LEDs")
			fmt.Println("  r NN - read pin")
			fmt.Println("  w NN V - write V to pin")
			fmt.Println("  q - quit")
		case "q":
			return
		case "knob":
			for _, n := range []int{pins.A, pins.B, pins.Button} {
				p.read(n)
			}
		case "leds":
			if err := p.leds(reader, pins); err != nil {
				return
			}
		case "r":
			if n, err := fmt.Sscanf(text, "r %d", &pin); err != nil || n != 1 {
				fmt.Printf("Unrecognised input\n")
			} else {
				p.read(pin)
			}
		case "w":
			if n, err := fmt.Sscanf(text, "w %d %d", &pin, &v); err != nil || n != 2 {
				fmt.Printf("Unrecognised input\n")
			} else {
				p.write(pin, v)
			}
		default:
			fmt.Printf("Unrecognised input\n")
		}
	}
}

// leds lights each direction LED in turn, waiting for a line of input
// between steps. Both LEDs are off when it returns.
func (p *checker) leds(r *bufio.Reader, pins knob.Pins) error {
	defer func() {
		p.write(pins.Green, 0)
		p.write(pins.Red, 0)
	}()
	p.write(pins.Green, 1)
	p.write(pins.Red, 0)
	if _, err := r.ReadString('\n'); err != nil {
		return err
	}
	p.write(pins.Green, 0)
	p.write(pins.Red, 1)
	_, err := r.ReadString('\n')
	return err
}

func (p *checker) read(pin int) {
	g, ok := p.inputs[pin]
	if !ok {
		var err error
		if g, err = p.b.Input(pin, io.NONE); err != nil {
			fmt.Printf("Pin %d: %v\n", pin, err)
			return
		}
		p.inputs[pin] = g
	}
	v, err := g.Get()
	if err != nil {
		fmt.Printf("Pin %d: %v\n", pin, err)
		return
	}
	fmt.Printf("Pin %d = %d\n", pin, v)
}

func (p *checker) write(pin, v int) {
	s, ok := p.outputs[pin]
	if !ok {
		var err error
		if s, err = p.b.Output(pin); err != nil {
			fmt.Printf("Pin %d: %v\n", pin, err)
			return
		}
		p.outputs[pin] = s
	}
	if err := s.Set(v); err != nil {
		fmt.Printf("Pin %d: %v\n", pin, err)
		return
	}
	fmt.Printf("Pin %d set to %d\n", pin, v)
}
