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

// Program to demonstrate how to watch edge triggered inputs

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"

	"go.uber.org/atomic"

	"github.com/aamcrae/rotary/io"
)

var gpio = flag.Int("gpio", 32, "GPIO pin to watch")
var edge = flag.String("edge", "both", "Edge to watch (rising, falling, both)")
var driver = flag.String("driver", "sysfs", "GPIO driver (sysfs, cdev, periph)")
var chip = flag.String("chip", "gpiochip0", "GPIO chip for the cdev driver")

func main() {
	flag.Parse()
	e := -1
	for _, v := range []int{io.RISING, io.FALLING, io.BOTH} {
		if n, _ := io.EdgeName(v); n == *edge {
			e = v
		}
	}
	if e < 0 {
		log.Fatalf("%s: unknown edge", *edge)
	}
	b, err := io.Open(*driver, *chip)
	if err != nil {
		log.Fatalf("%s: %v", *driver, err)
	}
	defer b.Close()
	p, err := b.Input(*gpio, e)
	if err != nil {
		log.Fatalf("Pin %d: %v", *gpio, err)
	}
	var count atomic.Int64
	err = b.Watch(*gpio, func() {
		v, err := p.Get()
		if err != nil {
			log.Printf("pin %d: Get: %v", *gpio, err)
			return
		}
		log.Printf("pin %d = %d (edge %d)\n", *gpio, v, count.Inc())
	})
	if err != nil {
		log.Fatalf("Pin %d: watch: %v", *gpio, err)
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	log.Printf("%d edges on pin %d", count.Load(), *gpio)
}
