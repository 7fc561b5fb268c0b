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

// Simulator knob program

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"go.viam.com/utils"

	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/knob"
	"github.com/aamcrae/rotary/logging"
	"github.com/aamcrae/rotary/report"
)

// SimKnob turns a simulated encoder and presses its button.
type SimKnob struct {
	sim   *io.Sim
	pins  knob.Pins
	pos   int // Position in the quadrature cycle
	delay time.Duration
}

// Quadrature sequence of (A, B) levels for clockwise rotation.
var cycle = [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

var port = flag.Int("port", 8080, "Web server port number")
var rate = flag.Duration("rate", 5*time.Millisecond, "Time between encoder transitions")
var moves = flag.Int("moves", 0, "Number of random moves, 0 to run until interrupted")
var queue = flag.Int("queue", 40, "Event queue size")

func main() {
	flag.Parse()
	cfg := knob.DefaultConfig()
	cfg.Queue = *queue
	cfg.Driver = "sim"
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	logger, err := logging.New("sim", "warn", "")
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := &SimKnob{sim: io.NewSim(), pins: knob.DefaultPins, delay: *rate}
	img := report.NewImage(cfg.Detents)
	k, err := knob.New(s.sim, s.pins, cfg, report.Multi{report.NewConsole(os.Stdout), img}, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *port > 0 {
		srv := report.NewServer(img, k.Stats, logger)
		if err := srv.Start(*port); err != nil {
			log.Fatalf("%v", err)
		}
		defer utils.UncheckedErrorFunc(func() error { return srv.Close(context.Background()) })
	}
	done := make(chan struct{})
	utils.ManagedGo(func() {
		s.run(ctx, *moves)
		k.Close()
	}, func() { close(done) })
	if err := k.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	<-done
	st := k.Stats()
	fmt.Printf("\nDecoded %d steps, %d dropped\n", k.Decoder.Steps(), st.Dropped)
}

// run makes random moves until the count is reached or ctx is done.
func (s *SimKnob) run(ctx context.Context, count int) {
	for i := 0; count == 0 || i < count; i++ {
		if rand.Intn(8) == 0 {
			s.Press()
		} else {
			s.Turn(rand.Intn(21) - 10)
		}
		if !utils.SelectContextOrWait(ctx, time.Duration(rand.Intn(500))*time.Millisecond) {
			return
		}
	}
}

// Turn moves the encoder a number of transitions, clockwise if positive.
// Phase B is changed before phase A so that each change of A sees
// the B level of its direction.
func (s *SimKnob) Turn(n int) {
	inc := 1
	if n < 0 {
		inc = -1
		n = -n
	}
	for i := 0; i < n; i++ {
		s.pos = (s.pos + inc + len(cycle)) % len(cycle)
		s.sim.Drive(s.pins.B, cycle[s.pos][1])
		s.sim.Drive(s.pins.A, cycle[s.pos][0])
		time.Sleep(s.delay)
	}
}

// Press pushes and releases the button.
func (s *SimKnob) Press() {
	s.sim.Drive(s.pins.Button, 1)
	s.sim.Drive(s.pins.Button, 0)
}
